package workflow

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
)

// Verifier runs the live checks a hermetic lint cannot: that branch filters
// name branches that exist and that delegated action versions exist.
type Verifier struct {
	gh *gh.Client
}

// NewVerifier creates a Verifier with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client)
//
// The token is optional; anonymous access works for public repositories at
// a lower rate limit.
func NewVerifier(token string) *Verifier {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Verifier{gh: client}
}

// NewVerifierWithHTTPClient creates a Verifier with a custom http.Client and
// base URL. This constructor is intended for testing, allowing injection of
// an httptest server.
func NewVerifierWithHTTPClient(httpClient *http.Client, baseURL string) (*Verifier, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Verifier{gh: client}, nil
}

// Verify runs both live checks against the document and returns the
// combined findings. owner/repo is the repository the document belongs to.
func (v *Verifier) Verify(ctx context.Context, owner, repo string, wf *Workflow) ([]Finding, error) {
	findings, err := v.VerifyBranches(ctx, owner, repo, wf)
	if err != nil {
		return nil, err
	}

	actionFindings, err := v.VerifyActions(ctx, wf)
	if err != nil {
		return nil, err
	}

	return append(findings, actionFindings...), nil
}

// VerifyBranches checks that every branch named by the push and pull_request
// filters exists in the given repository. Glob patterns are skipped; only
// literal names can be checked for existence.
func (v *Verifier) VerifyBranches(ctx context.Context, owner, repo string, wf *Workflow) ([]Finding, error) {
	var findings []Finding

	for _, branch := range branchFilters(wf) {
		if strings.ContainsAny(branch, "*?") {
			continue
		}

		_, resp, err := v.gh.Repositories.GetBranch(ctx, owner, repo, branch, 0)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				findings = append(findings, Finding{
					Rule:    "branches/live",
					Message: fmt.Sprintf("branch %q does not exist in %s/%s", branch, owner, repo),
				})
				continue
			}
			return nil, fmt.Errorf("checking branch %q: %w", branch, err)
		}
	}

	return findings, nil
}

// VerifyActions checks that every delegated action reference resolves: a
// commit SHA must exist in the action repository, and a tag ref must exist
// as a tag (or, for moving refs, a branch).
func (v *Verifier) VerifyActions(ctx context.Context, wf *Workflow) ([]Finding, error) {
	var findings []Finding

	for _, ref := range actionRefs(wf) {
		exists, err := v.refExists(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !exists {
			findings = append(findings, Finding{
				Rule:    "actions/live",
				Message: fmt.Sprintf("action ref %s does not resolve", ref),
			})
		}
	}

	return findings, nil
}

func (v *Verifier) refExists(ctx context.Context, ref ActionRef) (bool, error) {
	if ref.IsCommitSHA() {
		_, resp, err := v.gh.Git.GetCommit(ctx, ref.Owner, ref.Repo, ref.Ref)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				return false, nil
			}
			return false, fmt.Errorf("checking action ref %s: %w", ref, err)
		}
		return true, nil
	}

	// Release tags first; branches cover moving refs like @main.
	for _, name := range []string{"tags/" + ref.Ref, "heads/" + ref.Ref} {
		_, resp, err := v.gh.Git.GetRef(ctx, ref.Owner, ref.Repo, name)
		if err == nil {
			return true, nil
		}
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			continue
		}
		return false, fmt.Errorf("checking action ref %s: %w", ref, err)
	}

	return false, nil
}

// branchFilters returns the union of all branch names the triggers filter
// on, deduplicated and sorted.
func branchFilters(wf *Workflow) []string {
	if wf.On == nil {
		return nil
	}

	seen := make(map[string]struct{})
	if wf.On.Push != nil {
		for _, b := range wf.On.Push.Branches {
			seen[b] = struct{}{}
		}
	}
	if wf.On.PullRequest != nil {
		for _, b := range wf.On.PullRequest.Branches {
			seen[b] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	slices.Sort(out)

	return out
}

// actionRefs returns every parseable delegated reference in the document,
// deduplicated by repository and ref: existence does not depend on the
// subdirectory path, so sibling actions share one lookup.
func actionRefs(wf *Workflow) []ActionRef {
	seen := make(map[string]ActionRef)

	for _, jobID := range sortedJobIDs(wf) {
		for _, step := range wf.Jobs[jobID].Steps {
			if step.Uses == "" {
				continue
			}
			ref, err := ParseActionRef(step.Uses)
			if err != nil {
				continue
			}
			ref.Path = ""
			seen[ref.String()] = ref
		}
	}

	out := make([]ActionRef, 0, len(seen))
	for _, key := range slices.Sorted(maps.Keys(seen)) {
		out = append(out, seen[key])
	}

	return out
}
