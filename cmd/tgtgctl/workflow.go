package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/workflow"
)

const defaultWorkflowPath = ".github/workflows/codeql.yml"

func newWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Maintain the scheduled scanning workflow document",
	}

	cmd.AddCommand(
		newWorkflowInitCmd(),
		newWorkflowRenderCmd(),
		newWorkflowLintCmd(),
		newWorkflowCheckCmd(),
	)

	return cmd
}

// scaffoldFlags registers the scaffold options on a command, with the
// committed document's values as defaults.
func scaffoldFlags(cmd *cobra.Command, opts *workflow.ScaffoldOptions) {
	defaults := workflow.DefaultOptions()
	cmd.Flags().StringSliceVar(&opts.Branches, "branch", defaults.Branches, "branch filter for the push and pull_request triggers")
	cmd.Flags().StringSliceVar(&opts.Languages, "language", defaults.Languages, "analyzer language matrix")
	cmd.Flags().StringVar(&opts.Cron, "cron", defaults.Cron, "schedule expression for the scheduled run")
}

func newWorkflowInitCmd() *cobra.Command {
	var (
		opts workflow.ScaffoldOptions
		out  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the scanning workflow document into the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := workflow.Render(opts)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(out, doc, 0o644); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}

	scaffoldFlags(cmd, &opts)
	cmd.Flags().StringVar(&out, "out", defaultWorkflowPath, "output path")

	return cmd
}

func newWorkflowRenderCmd() *cobra.Command {
	var opts workflow.ScaffoldOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the scanning workflow document to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := workflow.Render(opts)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(doc)
			return err
		},
	}

	scaffoldFlags(cmd, &opts)

	return cmd
}

func newWorkflowLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint [file]",
		Short: "Run the offline checks against a workflow document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := loadWorkflow(args)
			if err != nil {
				return err
			}

			return reportFindings(cmd, workflow.Lint(wf))
		},
	}
}

func newWorkflowCheckCmd() *cobra.Command {
	var (
		repo  string
		token string
	)

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Run the offline and live checks against a workflow document",
		Long:  "Runs the offline lint plus the live checks: branch filters must\nname existing branches and every delegated action version must\nresolve. Reads GITHUB_TOKEN when --token is not given; anonymous\naccess works for public repositories at a lower rate limit.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, ok := strings.Cut(repo, "/")
			if !ok || owner == "" || name == "" {
				return fmt.Errorf("--repo must be owner/name, got %q", repo)
			}

			wf, err := loadWorkflow(args)
			if err != nil {
				return err
			}

			findings := workflow.Lint(wf)

			if token == "" {
				token = os.Getenv("GITHUB_TOKEN")
			}
			verifier := workflow.NewVerifier(token)
			live, err := verifier.Verify(cmd.Context(), owner, name, wf)
			if err != nil {
				return err
			}

			return reportFindings(cmd, append(findings, live...))
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "repository the document belongs to, as owner/name")
	cmd.Flags().StringVar(&token, "token", "", "API token for the live checks")
	_ = cmd.MarkFlagRequired("repo")

	return cmd
}

func loadWorkflow(args []string) (*workflow.Workflow, error) {
	path := defaultWorkflowPath
	if len(args) == 1 {
		path = args[0]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	wf, err := workflow.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return wf, nil
}

func reportFindings(cmd *cobra.Command, findings []workflow.Finding) error {
	if len(findings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), green("clean"))
		return nil
	}

	for _, finding := range findings {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", red(finding.Rule+":"), finding.Message)
	}
	return fmt.Errorf("%d finding(s)", len(findings))
}
