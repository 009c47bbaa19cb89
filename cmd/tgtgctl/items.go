package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	api "github.com/Zappdidappdi/home-assistant-tgtg/internal/adapter/driving/http"
)

func newItemsCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List the watched listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newAPIClient(flags)

			if asJSON {
				raw, err := client.itemsRaw(cmd.Context())
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := json.Indent(&buf, raw, "", "  "); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), buf.String())
				return nil
			}

			items, err := client.items(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no listings yet; log in and wait for the first poll")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ITEM ID\tNAME\tBAGS\tPRICE\tPICKUP")
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					item.Attributes.ItemID,
					item.Name,
					bagCount(item.State),
					orDash(item.Attributes.ItemPrice),
					pickupRange(item.Attributes.PickupStart, item.Attributes.PickupEnd),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw sensor payload")

	return cmd
}

func bagCount(n int) string {
	if n <= 0 {
		return red("0")
	}
	return green(strconv.Itoa(n))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// pickupRange renders the pickup window in local time, e.g. "17:30 to 19:00".
func pickupRange(start, end string) string {
	from, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return "-"
	}
	to, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return from.Local().Format("15:04")
	}
	return from.Local().Format("15:04") + " to " + to.Local().Format("15:04")
}

func newTrackCmd(flags *rootFlags) *cobra.Command {
	var (
		label    string
		min      int
		noNotify bool
	)

	cmd := &cobra.Command{
		Use:   "track <item-id>",
		Short: "Start watching a listing by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(flags)

			notify := !noNotify
			track, err := client.track(cmd.Context(), api.TrackRequest{
				ItemID:      args[0],
				Label:       label,
				MinQuantity: min,
				Notify:      &notify,
			})
			if err != nil {
				return err
			}

			name := track.Label
			if name == "" {
				name = track.ItemID
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tracking %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "display label for the listing")
	cmd.Flags().IntVar(&min, "min", 0, "alert only when at least this many bags are available")
	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "track without alerts")

	return cmd
}

func newUntrackCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "untrack <item-id>",
		Short: "Stop watching a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(flags)
			if err := client.untrack(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "untracked %s\n", args[0])
			return nil
		},
	}
}

func newMuteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mute <item-id>",
		Short: "Silence alerts for a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(flags)
			if err := client.mute(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "muted %s\n", args[0])
			return nil
		},
	}
}

func newUnmuteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unmute <item-id>",
		Short: "Re-enable alerts for a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(flags)
			if err := client.unmute(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unmuted %s\n", args[0])
			return nil
		},
	}
}

func newRefreshCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [item-id]",
		Short: "Trigger a poll cycle now",
		Long:  "Without an argument the whole account is refreshed: favorites,\ntracked listings, and active orders. With an item ID only that\nlisting is fetched.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(flags)

			itemID := ""
			if len(args) == 1 {
				itemID = args[0]
			}
			if err := client.refresh(cmd.Context(), itemID); err != nil {
				return err
			}

			if itemID == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "refreshed all listings")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "refreshed %s\n", itemID)
			}
			return nil
		},
	}
}
