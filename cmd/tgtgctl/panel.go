package main

import (
	"fmt"

	"github.com/cli/browser"
	"github.com/spf13/cobra"
)

func newPanelCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "panel",
		Short: "Open the web panel in the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url := "http://" + flags.addr + "/"
			if err := browser.OpenURL(url); err != nil {
				return fmt.Errorf("open %s: %w", url, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "opened %s\n", url)
			return nil
		},
	}
}
