package workflow_test

import (
	"testing"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseCanonical returns a freshly parsed canonical document for mutation.
func parseCanonical(t *testing.T) *workflow.Workflow {
	t.Helper()

	wf, err := workflow.Parse([]byte(canonicalDoc))
	require.NoError(t, err)
	return wf
}

// rules extracts the rule identifiers from a finding list.
func rules(findings []workflow.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Rule)
	}
	return out
}

func TestLint_CanonicalDocumentIsClean(t *testing.T) {
	wf := parseCanonical(t)

	findings := workflow.Lint(wf)

	assert.Empty(t, findings, "canonical document should lint clean: %v", findings)
}

func TestLint_NoTriggers(t *testing.T) {
	wf := parseCanonical(t)
	wf.On = &workflow.Triggers{}

	findings := workflow.Lint(wf)

	assert.Contains(t, rules(findings), "trigger")
}

func TestLint_MissingBranchFilter(t *testing.T) {
	wf := parseCanonical(t)
	wf.On.Push.Branches = nil

	findings := workflow.Lint(wf)

	assert.Contains(t, rules(findings), "trigger/push")
}

func TestLint_InvalidBranchName(t *testing.T) {
	tests := []string{"", "feat ure", "a..b", "-lead", "/abs", "tail/", "bad~name", "ref.lock"}

	for _, branch := range tests {
		t.Run(branch, func(t *testing.T) {
			wf := parseCanonical(t)
			wf.On.PullRequest.Branches = []string{branch}

			findings := workflow.Lint(wf)

			assert.Contains(t, rules(findings), "trigger/pull-request")
		})
	}
}

func TestLint_GlobBranchFilterIsValid(t *testing.T) {
	wf := parseCanonical(t)
	wf.On.Push.Branches = []string{"main", "release/*"}

	findings := workflow.Lint(wf)

	assert.Empty(t, findings, "glob patterns are valid branch filters")
}

func TestLint_MissingSchedule(t *testing.T) {
	wf := parseCanonical(t)
	wf.On.Schedule = nil

	findings := workflow.Lint(wf)

	assert.Contains(t, rules(findings), "schedule")
}

func TestLint_InvalidCron(t *testing.T) {
	tests := []string{"x y z", "61 6 * * *", "26 25 * * *", "26 6 * *"}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			wf := parseCanonical(t)
			wf.On.Schedule = []workflow.Schedule{{Cron: expr}}

			findings := workflow.Lint(wf)

			assert.Contains(t, rules(findings), "schedule/cron")
		})
	}
}

func TestLint_ValidCronForms(t *testing.T) {
	tests := []string{"26 6 * * *", "0 */4 * * 1-5", "@daily"}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			wf := parseCanonical(t)
			wf.On.Schedule = []workflow.Schedule{{Cron: expr}}

			findings := workflow.Lint(wf)

			assert.Empty(t, findings)
		})
	}
}

func TestLint_PermissionFindings(t *testing.T) {
	t.Run("missing scope", func(t *testing.T) {
		wf := parseCanonical(t)
		job := wf.Jobs["analyze"]
		delete(job.Permissions, "security-events")
		wf.Jobs["analyze"] = job

		findings := workflow.Lint(wf)
		assert.Contains(t, rules(findings), "permissions")
	})

	t.Run("wrong access", func(t *testing.T) {
		wf := parseCanonical(t)
		wf.Jobs["analyze"].Permissions["contents"] = "write"

		findings := workflow.Lint(wf)
		assert.Contains(t, rules(findings), "permissions")
	})

	t.Run("unexpected scope", func(t *testing.T) {
		wf := parseCanonical(t)
		wf.Jobs["analyze"].Permissions["packages"] = "read"

		findings := workflow.Lint(wf)
		assert.Contains(t, rules(findings), "permissions")
	})

	t.Run("no permission block", func(t *testing.T) {
		wf := parseCanonical(t)
		job := wf.Jobs["analyze"]
		job.Permissions = nil
		wf.Jobs["analyze"] = job

		findings := workflow.Lint(wf)
		assert.Contains(t, rules(findings), "permissions")
	})

	t.Run("workflow-level block is honored", func(t *testing.T) {
		wf := parseCanonical(t)
		job := wf.Jobs["analyze"]
		wf.Permissions = job.Permissions
		job.Permissions = nil
		wf.Jobs["analyze"] = job

		findings := workflow.Lint(wf)
		assert.Empty(t, findings)
	})
}

func TestLint_UnpinnedAction(t *testing.T) {
	wf := parseCanonical(t)
	job := wf.Jobs["analyze"]
	job.Steps[0].Uses = "actions/checkout@main"
	wf.Jobs["analyze"] = job

	findings := workflow.Lint(wf)

	assert.Contains(t, rules(findings), "steps/pinned")
}

func TestLint_UnparseableAction(t *testing.T) {
	wf := parseCanonical(t)
	job := wf.Jobs["analyze"]
	job.Steps[0].Uses = "actions/checkout"
	wf.Jobs["analyze"] = job

	findings := workflow.Lint(wf)

	assert.Contains(t, rules(findings), "steps/uses")
}

func TestLint_MissingAnalyzerSteps(t *testing.T) {
	tests := []struct {
		name     string
		dropStep int
		wantRule string
	}{
		{name: "checkout", dropStep: 0, wantRule: "steps/checkout"},
		{name: "init", dropStep: 1, wantRule: "steps/init"},
		{name: "autobuild", dropStep: 2, wantRule: "steps/autobuild"},
		{name: "analyze", dropStep: 3, wantRule: "steps/analyze"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wf := parseCanonical(t)
			job := wf.Jobs["analyze"]
			job.Steps = append(job.Steps[:tc.dropStep:tc.dropStep], job.Steps[tc.dropStep+1:]...)
			wf.Jobs["analyze"] = job

			findings := workflow.Lint(wf)

			assert.Contains(t, rules(findings), tc.wantRule)
		})
	}
}

func TestLint_NoAnalysisJob(t *testing.T) {
	wf := parseCanonical(t)
	wf.Jobs = map[string]workflow.Job{
		"build": {
			RunsOn: "ubuntu-latest",
			Steps:  []workflow.Step{{Run: "make"}},
		},
	}

	findings := workflow.Lint(wf)

	assert.Contains(t, rules(findings), "jobs")
}

func TestLint_MissingCategory(t *testing.T) {
	wf := parseCanonical(t)
	job := wf.Jobs["analyze"]
	job.Steps[3].With = nil
	wf.Jobs["analyze"] = job

	findings := workflow.Lint(wf)

	assert.Contains(t, rules(findings), "steps/analyze")
}

func TestLint_Languages(t *testing.T) {
	t.Run("unknown identifier", func(t *testing.T) {
		wf := parseCanonical(t)
		job := wf.Jobs["analyze"]
		job.Steps[1].With = map[string]string{"languages": "golang"}
		wf.Jobs["analyze"] = job

		findings := workflow.Lint(wf)
		assert.Contains(t, rules(findings), "steps/languages")
	})

	t.Run("literal list", func(t *testing.T) {
		wf := parseCanonical(t)
		job := wf.Jobs["analyze"]
		job.Steps[1].With = map[string]string{"languages": "go, python"}
		wf.Jobs["analyze"] = job

		findings := workflow.Lint(wf)
		assert.Empty(t, findings)
	})

	t.Run("matrix expression expands", func(t *testing.T) {
		wf := parseCanonical(t)
		job := wf.Jobs["analyze"]
		job.Strategy.Matrix.Language = []string{"go", "not-a-language"}
		wf.Jobs["analyze"] = job

		findings := workflow.Lint(wf)
		assert.Contains(t, rules(findings), "steps/languages")
	})

	t.Run("no languages", func(t *testing.T) {
		wf := parseCanonical(t)
		job := wf.Jobs["analyze"]
		job.Steps[1].With = nil
		wf.Jobs["analyze"] = job

		findings := workflow.Lint(wf)
		assert.Contains(t, rules(findings), "steps/init")
	})
}
