package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

func newStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show watcher health and login state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newAPIClient(flags)

			report, err := client.health(cmd.Context())
			if err != nil {
				return err
			}

			watcher := green(report.Status)
			if !report.Healthy() {
				watcher = red(report.Status)
			}

			auth := authLabel(report.Auth)
			if report.Auth == model.AuthStateAuthorized {
				if st, err := client.authStatus(cmd.Context()); err == nil && st.Email != "" {
					auth = fmt.Sprintf("%s (%s)", auth, st.Email)
				}
			}

			lastPoll := "never"
			if !report.LastPollAt.IsZero() {
				lastPoll = report.LastPollAt.Local().Format(time.RFC3339)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "watcher\t%s\n", watcher)
			fmt.Fprintf(w, "database\t%s\n", report.Database)
			fmt.Fprintf(w, "login\t%s\n", auth)
			fmt.Fprintf(w, "listings\t%d\n", report.ListingCount)
			fmt.Fprintf(w, "last poll\t%s\n", lastPoll)
			if report.PollErrors > 0 {
				fmt.Fprintf(w, "poll errors\t%s\n", red(report.PollErrors))
			}
			return w.Flush()
		},
	}
}

func authLabel(state model.AuthState) string {
	switch state {
	case model.AuthStateAuthorized:
		return green("authorized")
	case model.AuthStatePending:
		return yellow("pending")
	default:
		return red("not logged in")
	}
}

func newLoginCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Start the email login flow and wait for confirmation",
		Long:  "Sends the login mail for the given account and waits until the\nlink is clicked. Open the mail on a device without the app installed,\notherwise the link opens the app instead of confirming the login.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(flags)
			email := args[0]

			if err := client.login(cmd.Context(), email); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "login mail sent to %s\n", email)
			fmt.Fprintln(cmd.OutOrStdout(), "waiting for the link to be clicked (up to two minutes)...")

			return waitForLogin(cmd, client)
		},
	}
}

// waitForLogin polls the daemon's auth state until it reports authorized.
// A fall back to "none" after the flow was pending means the daemon gave up.
func waitForLogin(cmd *cobra.Command, client *apiClient) error {
	ctx := cmd.Context()
	deadline := time.Now().Add(waitTimeout)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	sawPending := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		status, err := client.authStatus(ctx)
		if err != nil {
			return err
		}

		switch status.State {
		case model.AuthStateAuthorized:
			fmt.Fprintf(cmd.OutOrStdout(), "%s as %s\n", green("logged in"), status.Email)
			return nil
		case model.AuthStatePending:
			sawPending = true
		case model.AuthStateNone:
			if sawPending {
				return errors.New("login failed, check the daemon log")
			}
		}

		if time.Now().After(deadline) {
			return errors.New("login mail not confirmed in time")
		}
	}
}

func newLogoutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newAPIClient(flags)
			if err := client.logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}
