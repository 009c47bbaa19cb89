package workflow

import (
	"fmt"
	"strings"
)

// ActionRef is a parsed `uses:` reference of the owner/repo[/path]@ref form.
type ActionRef struct {
	Owner string
	Repo  string
	Path  string // subdirectory within the action repo, "" for the root action
	Ref   string // tag, branch, or commit SHA
}

// ParseActionRef parses a delegated action reference. Local path actions
// ("./...") and container actions ("docker://...") are not delegated refs
// and return an error.
func ParseActionRef(uses string) (ActionRef, error) {
	if strings.HasPrefix(uses, "./") || strings.HasPrefix(uses, "docker://") {
		return ActionRef{}, fmt.Errorf("action ref %q: not a repository reference", uses)
	}

	spec, ref, found := strings.Cut(uses, "@")
	if !found || ref == "" {
		return ActionRef{}, fmt.Errorf("action ref %q: missing @version", uses)
	}

	parts := strings.SplitN(spec, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ActionRef{}, fmt.Errorf("action ref %q: expected owner/repo[/path]@ref", uses)
	}

	out := ActionRef{
		Owner: parts[0],
		Repo:  parts[1],
		Ref:   ref,
	}
	if len(parts) == 3 {
		out.Path = parts[2]
	}

	return out, nil
}

// RepoSlug returns the owner/repo part of the reference.
func (r ActionRef) RepoSlug() string {
	return r.Owner + "/" + r.Repo
}

// String renders the reference back to its `uses:` form.
func (r ActionRef) String() string {
	spec := r.RepoSlug()
	if r.Path != "" {
		spec += "/" + r.Path
	}
	return spec + "@" + r.Ref
}

// IsVersionTag reports whether the ref looks like a release tag (v4, v3.26.9).
func (r ActionRef) IsVersionTag() bool {
	if len(r.Ref) < 2 || r.Ref[0] != 'v' {
		return false
	}
	for _, c := range r.Ref[1:] {
		if (c < '0' || c > '9') && c != '.' {
			return false
		}
	}
	return r.Ref[1] >= '0' && r.Ref[1] <= '9'
}

// IsCommitSHA reports whether the ref is a full 40-character commit hash.
func (r ActionRef) IsCommitSHA() bool {
	if len(r.Ref) != 40 {
		return false
	}
	for _, c := range r.Ref {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// IsPinned reports whether the ref is a version tag or a commit SHA, as
// opposed to a moving branch name.
func (r ActionRef) IsPinned() bool {
	return r.IsVersionTag() || r.IsCommitSHA()
}
