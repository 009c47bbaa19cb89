package workflow

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"
)

// Finding is one lint result. An empty finding list means the document
// satisfies every offline check.
type Finding struct {
	Rule    string
	Message string
}

func (f Finding) String() string {
	return f.Rule + ": " + f.Message
}

// analyzerActionRepo is the hosted analyzer suite the scanning job delegates
// to; the job invoking it is the analysis job.
const analyzerActionRepo = "github/codeql-action"

// requiredAccess is the permission set a scanning job needs: read the
// repository and its workflow metadata, write to the code-scanning channel.
var requiredAccess = map[string]string{
	"actions":         "read",
	"contents":        "read",
	"security-events": "write",
}

// knownLanguages are the identifiers the analyzer suite accepts.
var knownLanguages = map[string]struct{}{
	"actions":               {},
	"c-cpp":                 {},
	"cpp":                   {},
	"csharp":                {},
	"go":                    {},
	"java":                  {},
	"java-kotlin":           {},
	"javascript":            {},
	"javascript-typescript": {},
	"kotlin":                {},
	"python":                {},
	"ruby":                  {},
	"swift":                 {},
	"typescript":            {},
}

// Lint runs every offline check against the document: armed triggers with
// branch filters, cron validity, the scanning permission set, pinned action
// references, and the analyzer step chain. Live checks (branch existence,
// action version existence) are the Verifier's job.
func Lint(wf *Workflow) []Finding {
	var findings []Finding
	add := func(rule, format string, args ...any) {
		findings = append(findings, Finding{Rule: rule, Message: fmt.Sprintf(format, args...)})
	}

	lintTriggers(wf, add)
	lintSteps(wf, add)
	lintAnalysisJob(wf, add)

	return findings
}

type addFunc func(rule, format string, args ...any)

func lintTriggers(wf *Workflow, add addFunc) {
	on := wf.On
	if on == nil || (on.Push == nil && on.PullRequest == nil && len(on.Schedule) == 0) {
		add("trigger", "no trigger is armed")
		return
	}

	if on.Push == nil {
		add("trigger/push", "push trigger is not armed")
	} else {
		lintBranchFilter("trigger/push", on.Push, add)
	}

	if on.PullRequest == nil {
		add("trigger/pull-request", "pull_request trigger is not armed")
	} else {
		lintBranchFilter("trigger/pull-request", on.PullRequest, add)
	}

	if len(on.Schedule) == 0 {
		add("schedule", "no schedule entry; scheduled scanning needs a cron trigger")
	}
	for _, entry := range on.Schedule {
		if _, err := cron.ParseStandard(entry.Cron); err != nil {
			add("schedule/cron", "cron %q is not valid: %v", entry.Cron, err)
		}
	}
}

func lintBranchFilter(rule string, filter *BranchFilter, add addFunc) {
	if len(filter.Branches) == 0 {
		add(rule, "trigger has no branch filter")
		return
	}
	for _, branch := range filter.Branches {
		if !validBranchPattern(branch) {
			add(rule, "branch filter %q is not a valid branch name", branch)
		}
	}
}

// validBranchPattern applies the git ref-name rules that matter for a branch
// filter, allowing the platform's glob wildcards.
func validBranchPattern(name string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") || strings.HasPrefix(name, "-") {
		return false
	}
	if strings.Contains(name, "..") || strings.HasSuffix(name, ".lock") {
		return false
	}
	for _, c := range name {
		switch {
		case c <= ' ' || c == 0x7f:
			return false
		case strings.ContainsRune("~^:?[\\", c):
			return false
		}
	}
	return true
}

// lintSteps checks every delegated reference in every job: it must parse and
// must be pinned to a version tag or commit hash rather than a branch.
func lintSteps(wf *Workflow, add addFunc) {
	for _, jobID := range sortedJobIDs(wf) {
		job := wf.Jobs[jobID]
		for i, step := range job.Steps {
			if step.Uses == "" {
				continue
			}

			ref, err := ParseActionRef(step.Uses)
			if err != nil {
				add("steps/uses", "job %q step %d: %v", jobID, i+1, err)
				continue
			}

			if !ref.IsPinned() {
				add("steps/pinned", "job %q step %d: %q is not pinned to a version tag or commit", jobID, i+1, step.Uses)
			}
		}
	}
}

// lintAnalysisJob locates the job delegating to the analyzer suite and
// checks its permission set and step chain.
func lintAnalysisJob(wf *Workflow, add addFunc) {
	jobID, job, ok := findAnalysisJob(wf)
	if !ok {
		add("jobs", "no job delegates to %s", analyzerActionRepo)
		return
	}

	lintPermissions(jobID, job, wf, add)

	var haveCheckout, haveInit, haveAutobuild, haveAnalyze bool
	for _, step := range job.Steps {
		ref, err := ParseActionRef(step.Uses)
		if err != nil {
			continue
		}

		if ref.RepoSlug() == "actions/checkout" {
			haveCheckout = true
			continue
		}
		if ref.RepoSlug() != analyzerActionRepo {
			continue
		}

		switch ref.Path {
		case "init":
			haveInit = true
			lintLanguages(jobID, job, step, add)
		case "autobuild":
			haveAutobuild = true
		case "analyze":
			haveAnalyze = true
			if category := step.With["category"]; category == "" {
				add("steps/analyze", "job %q: analyze step has no report category", jobID)
			}
		}
	}

	if !haveCheckout {
		add("steps/checkout", "job %q: no checkout step", jobID)
	}
	if !haveInit {
		add("steps/init", "job %q: no analyzer init step", jobID)
	}
	if !haveAutobuild {
		add("steps/autobuild", "job %q: no autobuild step", jobID)
	}
	if !haveAnalyze {
		add("steps/analyze", "job %q: no analyze step", jobID)
	}
}

func findAnalysisJob(wf *Workflow) (string, Job, bool) {
	for _, jobID := range sortedJobIDs(wf) {
		job := wf.Jobs[jobID]
		for _, step := range job.Steps {
			ref, err := ParseActionRef(step.Uses)
			if err == nil && ref.RepoSlug() == analyzerActionRepo {
				return jobID, job, true
			}
		}
	}
	return "", Job{}, false
}

func sortedJobIDs(wf *Workflow) []string {
	return slices.Sorted(maps.Keys(wf.Jobs))
}

func lintPermissions(jobID string, job Job, wf *Workflow, add addFunc) {
	perms := job.EffectivePermissions(wf)
	if len(perms) == 0 {
		add("permissions", "job %q declares no permission set", jobID)
		return
	}

	for scope, want := range requiredAccess {
		if got := perms.Access(scope); got != want {
			add("permissions", "job %q: scope %s is %s, want %s", jobID, scope, got, want)
		}
	}
	for scope := range perms {
		if scope == shorthandScope {
			continue
		}
		if _, ok := requiredAccess[scope]; !ok {
			add("permissions", "job %q: unexpected scope %s", jobID, scope)
		}
	}
}

// lintLanguages resolves the init step's language list, expanding the matrix
// expression, and checks each identifier against the analyzer's set.
func lintLanguages(jobID string, job Job, step Step, add addFunc) {
	languages := stepLanguages(job, step)
	if len(languages) == 0 {
		add("steps/init", "job %q: init step declares no languages", jobID)
		return
	}
	for _, lang := range languages {
		if _, ok := knownLanguages[lang]; !ok {
			add("steps/languages", "job %q: unknown language identifier %q", jobID, lang)
		}
	}
}

func stepLanguages(job Job, step Step) []string {
	raw := step.With["languages"]
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if isMatrixLanguageExpr(part) {
			if job.Strategy != nil {
				out = append(out, job.Strategy.Matrix.Language...)
			}
			continue
		}
		out = append(out, part)
	}
	return out
}

func isMatrixLanguageExpr(s string) bool {
	inner, ok := strings.CutPrefix(s, "${{")
	if !ok {
		return false
	}
	inner, ok = strings.CutSuffix(inner, "}}")
	if !ok {
		return false
	}
	return strings.TrimSpace(inner) == "matrix.language"
}
