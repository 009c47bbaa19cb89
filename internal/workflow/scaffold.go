package workflow

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/robfig/cron/v3"
)

// ScaffoldOptions parameterize the generated scanning workflow.
type ScaffoldOptions struct {
	Branches  []string // branch filter for push and pull_request triggers
	Languages []string // analyzer language matrix
	Cron      string   // 5-field schedule expression
}

// DefaultOptions returns the options the committed document is generated
// with: the default branch, this repository's language, and a daily run.
func DefaultOptions() ScaffoldOptions {
	return ScaffoldOptions{
		Branches:  []string{"main"},
		Languages: []string{"go"},
		Cron:      "26 6 * * *",
	}
}

// The platform's own ${{ ... }} expressions must survive templating, so the
// scaffold template uses [[ ... ]] delimiters.
var scaffoldTemplate = template.Must(template.New("workflow").
	Delims("[[", "]]").
	Funcs(template.FuncMap{"quoteJoin": quoteJoin}).
	Parse(`# Scheduled static-analysis workflow.
# Generated by tgtgctl workflow init; regenerate rather than editing by hand.
name: "CodeQL"

on:
  push:
    branches: [ [[quoteJoin .Branches]] ]
  pull_request:
    branches: [ [[quoteJoin .Branches]] ]
  schedule:
    - cron: "[[.Cron]]"

jobs:
  analyze:
    name: Analyze
    runs-on: ubuntu-latest
    permissions:
      actions: read
      contents: read
      security-events: write

    strategy:
      fail-fast: false
      matrix:
        language: [ [[quoteJoin .Languages]] ]

    steps:
      - name: Checkout repository
        uses: actions/checkout@v4

      - name: Initialize CodeQL
        uses: github/codeql-action/init@v3
        with:
          languages: ${{ matrix.language }}

      - name: Autobuild
        uses: github/codeql-action/autobuild@v3

      - name: Perform CodeQL Analysis
        uses: github/codeql-action/analyze@v3
        with:
          category: "/language:${{ matrix.language }}"
`))

func quoteJoin(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = strconv.Quote(item)
	}
	return strings.Join(quoted, ", ")
}

// Render produces the canonical scanning workflow document for the given
// options. The output is guaranteed to parse and lint clean.
func Render(opts ScaffoldOptions) ([]byte, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := scaffoldTemplate.Execute(&buf, opts); err != nil {
		return nil, fmt.Errorf("render workflow: %w", err)
	}

	wf, err := Parse(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("render workflow: output does not parse: %w", err)
	}
	if findings := Lint(wf); len(findings) > 0 {
		return nil, fmt.Errorf("render workflow: output does not lint clean: %s", findings[0])
	}

	return buf.Bytes(), nil
}

func validateOptions(opts ScaffoldOptions) error {
	if len(opts.Branches) == 0 {
		return fmt.Errorf("render workflow: at least one branch is required")
	}
	for _, branch := range opts.Branches {
		if !validBranchPattern(branch) {
			return fmt.Errorf("render workflow: %q is not a valid branch name", branch)
		}
	}

	if len(opts.Languages) == 0 {
		return fmt.Errorf("render workflow: at least one language is required")
	}
	for _, lang := range opts.Languages {
		if _, ok := knownLanguages[lang]; !ok {
			return fmt.Errorf("render workflow: unknown language identifier %q", lang)
		}
	}

	if _, err := cron.ParseStandard(opts.Cron); err != nil {
		return fmt.Errorf("render workflow: cron %q is not valid: %w", opts.Cron, err)
	}

	return nil
}
