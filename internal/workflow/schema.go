// Package workflow models the repository's scheduled static-analysis CI
// document: parsing, offline linting, scaffolding, and live verification of
// the branch and action references it names. The schema covers exactly the
// subset of the platform's workflow grammar this document uses.
package workflow

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

// Workflow is a parsed CI workflow document.
type Workflow struct {
	Name        string         `yaml:"name" validate:"required"`
	On          *Triggers      `yaml:"on" validate:"required"`
	Permissions Permissions    `yaml:"permissions,omitempty"`
	Jobs        map[string]Job `yaml:"jobs" validate:"required,min=1,dive"`
}

// Triggers is the workflow's `on:` block. The platform also accepts the bare
// forms `on: push` and `on: [push, pull_request]`; both decode into empty
// branch filters.
type Triggers struct {
	Push        *BranchFilter `yaml:"push,omitempty"`
	PullRequest *BranchFilter `yaml:"pull_request,omitempty"`
	Schedule    []Schedule    `yaml:"schedule,omitempty"`
}

// UnmarshalYAML accepts the string, list, and map trigger forms.
func (t *Triggers) UnmarshalYAML(unmarshal func(any) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		t.armBare([]string{single})
		return nil
	}

	var list []string
	if err := unmarshal(&list); err == nil {
		t.armBare(list)
		return nil
	}

	type plain Triggers
	var full plain
	if err := unmarshal(&full); err != nil {
		return fmt.Errorf("on: unsupported trigger form: %w", err)
	}
	*t = Triggers(full)

	// A trigger key with a null body still arms the trigger.
	var keys map[string]any
	if err := unmarshal(&keys); err == nil {
		if _, ok := keys["push"]; ok && t.Push == nil {
			t.Push = &BranchFilter{}
		}
		if _, ok := keys["pull_request"]; ok && t.PullRequest == nil {
			t.PullRequest = &BranchFilter{}
		}
	}

	return nil
}

func (t *Triggers) armBare(events []string) {
	for _, event := range events {
		switch event {
		case "push":
			t.Push = &BranchFilter{}
		case "pull_request":
			t.PullRequest = &BranchFilter{}
		}
	}
}

// BranchFilter restricts a push or pull_request trigger to named branches.
type BranchFilter struct {
	Branches []string `yaml:"branches,omitempty"`
}

// Schedule is one cron entry under the `schedule:` trigger.
type Schedule struct {
	Cron string `yaml:"cron"`
}

// Permissions maps permission scopes to their access level. The platform
// also accepts the shorthand strings "read-all" and "write-all".
type Permissions map[string]string

// shorthandScope stores the read-all/write-all shorthand form.
const shorthandScope = "*"

// UnmarshalYAML accepts both the scope map and the shorthand string form.
func (p *Permissions) UnmarshalYAML(unmarshal func(any) error) error {
	var scopes map[string]string
	if err := unmarshal(&scopes); err == nil {
		*p = scopes
		return nil
	}

	var shorthand string
	if err := unmarshal(&shorthand); err != nil {
		return fmt.Errorf("permissions: expected scope map or shorthand string: %w", err)
	}
	*p = Permissions{shorthandScope: shorthand}

	return nil
}

// Access resolves the effective access level for a scope, honoring the
// shorthand form. Missing scopes resolve to "none".
func (p Permissions) Access(scope string) string {
	if access, ok := p[scope]; ok {
		return access
	}
	switch p[shorthandScope] {
	case "read-all":
		return "read"
	case "write-all":
		return "write"
	}
	return "none"
}

// Job is one entry under `jobs:`.
type Job struct {
	Name        string      `yaml:"name,omitempty"`
	RunsOn      string      `yaml:"runs-on" validate:"required"`
	Permissions Permissions `yaml:"permissions,omitempty"`
	Strategy    *Strategy   `yaml:"strategy,omitempty"`
	Steps       []Step      `yaml:"steps" validate:"required,min=1,dive"`
}

// EffectivePermissions returns the job's permission block, falling back to
// the workflow-level block when the job declares none.
func (j Job) EffectivePermissions(wf *Workflow) Permissions {
	if len(j.Permissions) > 0 {
		return j.Permissions
	}
	return wf.Permissions
}

// Strategy is the job's matrix strategy block.
type Strategy struct {
	FailFast *bool  `yaml:"fail-fast,omitempty"`
	Matrix   Matrix `yaml:"matrix,omitempty"`
}

// Matrix holds the analysis matrix. Only the language axis is modeled.
type Matrix struct {
	Language []string `yaml:"language,omitempty"`
}

// Step is one step of a job: either a delegated action invocation (`uses`)
// or an inline command (`run`).
type Step struct {
	Name string            `yaml:"name,omitempty"`
	Uses string            `yaml:"uses,omitempty" validate:"required_without=Run"`
	Run  string            `yaml:"run,omitempty" validate:"required_without=Uses"`
	With map[string]string `yaml:"with,omitempty"`
}

// validate is shared across Parse calls; the validator caches struct
// metadata internally.
var validate = validator.New()

// Parse decodes a workflow document. Decoding is strict: unknown fields and
// duplicate keys are rejected, and required fields must be present.
func Parse(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := yaml.UnmarshalWithOptions(data, &wf, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}

	if err := validate.Struct(&wf); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}

	return &wf, nil
}

// Marshal renders the document back to YAML with stable field order.
func Marshal(wf *Workflow) ([]byte, error) {
	data, err := yaml.Marshal(wf)
	if err != nil {
		return nil, fmt.Errorf("marshal workflow: %w", err)
	}
	return data, nil
}
