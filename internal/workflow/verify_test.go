package workflow_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestVerifier creates a Verifier backed by the given httptest handler.
func newTestVerifier(t *testing.T, handler http.Handler) *workflow.Verifier {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	verifier, err := workflow.NewVerifierWithHTTPClient(server.Client(), server.URL+"/")
	require.NoError(t, err)

	return verifier
}

func TestVerifyBranches_AllExist(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owner/repo/branches/main", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"name": "main"})
	})

	verifier := newTestVerifier(t, handler)
	wf := parseCanonical(t)

	findings, err := verifier.VerifyBranches(context.Background(), "owner", "repo", wf)

	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestVerifyBranches_Missing(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"message": "Branch not found"})
	})

	verifier := newTestVerifier(t, handler)
	wf := parseCanonical(t)
	wf.On.Push.Branches = []string{"gone"}
	wf.On.PullRequest.Branches = []string{"gone"}

	findings, err := verifier.VerifyBranches(context.Background(), "owner", "repo", wf)

	require.NoError(t, err)
	require.Len(t, findings, 1, "the same branch is checked once across triggers")
	assert.Equal(t, "branches/live", findings[0].Rule)
	assert.Contains(t, findings[0].Message, `"gone"`)
}

func TestVerifyBranches_SkipsGlobPatterns(t *testing.T) {
	var checked []string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checked = append(checked, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"name": "main"})
	})

	verifier := newTestVerifier(t, handler)
	wf := parseCanonical(t)
	wf.On.Push.Branches = []string{"main", "release/*"}

	findings, err := verifier.VerifyBranches(context.Background(), "owner", "repo", wf)

	require.NoError(t, err)
	assert.Empty(t, findings)
	assert.Equal(t, []string{"/repos/owner/repo/branches/main"}, checked,
		"glob patterns cannot be checked for existence")
}

func TestVerifyActions_AllResolve(t *testing.T) {
	var tagLookups []string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "/git/ref/tags/")
		tagLookups = append(tagLookups, r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ref": "refs" + r.URL.Path[strings.Index(r.URL.Path, "/tags/"):]})
	})

	verifier := newTestVerifier(t, handler)
	wf := parseCanonical(t)

	findings, err := verifier.VerifyActions(context.Background(), wf)

	require.NoError(t, err)
	assert.Empty(t, findings)

	// One lookup per repo+ref: the three analyzer subdirectory actions
	// share a single v3 check.
	assert.ElementsMatch(t, []string{
		"/repos/actions/checkout/git/ref/tags/v4",
		"/repos/github/codeql-action/git/ref/tags/v3",
	}, tagLookups)
}

func TestVerifyActions_MissingTag(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if strings.Contains(r.URL.Path, "/repos/actions/checkout/") {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"message": "Not Found"})
			return
		}

		json.NewEncoder(w).Encode(map[string]any{"ref": "refs/tags/v3"})
	})

	verifier := newTestVerifier(t, handler)
	wf := parseCanonical(t)

	findings, err := verifier.VerifyActions(context.Background(), wf)

	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "actions/live", findings[0].Rule)
	assert.Contains(t, findings[0].Message, "actions/checkout@v4")
}

func TestVerifyActions_CommitPin(t *testing.T) {
	const sha = "8f4b7f84864484a7bf31766abe9204da3cbe65b3"

	var commitLookups []string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if strings.Contains(r.URL.Path, "/git/commits/") {
			commitLookups = append(commitLookups, r.URL.Path)
			json.NewEncoder(w).Encode(map[string]any{"sha": sha})
			return
		}

		json.NewEncoder(w).Encode(map[string]any{"ref": "refs/tags/v3"})
	})

	verifier := newTestVerifier(t, handler)
	wf := parseCanonical(t)
	job := wf.Jobs["analyze"]
	job.Steps[0].Uses = "actions/checkout@" + sha
	wf.Jobs["analyze"] = job

	findings, err := verifier.VerifyActions(context.Background(), wf)

	require.NoError(t, err)
	assert.Empty(t, findings)
	assert.Equal(t, []string{"/repos/actions/checkout/git/commits/" + sha}, commitLookups,
		"commit pins resolve through the commit endpoint")
}

func TestVerify_CombinesBothChecks(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasPrefix(r.URL.Path, "/repos/owner/repo/branches/"):
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"message": "Branch not found"})
		case strings.Contains(r.URL.Path, "/git/ref/"):
			json.NewEncoder(w).Encode(map[string]any{"ref": "refs/tags/v3"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	verifier := newTestVerifier(t, handler)
	wf := parseCanonical(t)

	findings, err := verifier.Verify(context.Background(), "owner", "repo", wf)

	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "branches/live", findings[0].Rule)
}
