package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codyseavey/cardcatalog/internal/models"
)

func newBundlesCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundles",
		Short: "Inspect submitted bundles",
	}
	cmd.AddCommand(newBundlesPendingCommand(cc))
	return cmd
}

func newBundlesPendingCommand(cc *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List the review queue, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cc.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			pending, err := store.ListPendingBundles(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(pending) == 0 {
				fmt.Fprintln(out, "No bundles awaiting review")
				return nil
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Bundle", "Submitter", "Points", "Submitted", "Cards", "Auto", "Review", "Needs new"},
				pendingRows(pending),
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum bundles to list")
	return cmd
}

func pendingRows(pending []models.PendingBundleSummary) [][]string {
	rows := make([][]string, 0, len(pending))
	for _, b := range pending {
		rows = append(rows, []string{
			b.ID,
			fmt.Sprintf("%s (%s)", b.Username, b.TrustLevel),
			strconv.Itoa(b.SubmitterPoints),
			b.SubmittedAt.Format("2006-01-02 15:04"),
			strconv.Itoa(b.CardCount),
			strconv.Itoa(b.AutoResolvedCount),
			strconv.Itoa(b.NeedsReviewCount),
			needsNew(b),
		})
	}
	return rows
}

func needsNew(b models.PendingBundleSummary) string {
	var parts []string
	if b.RequiresNewSet {
		parts = append(parts, "set")
	}
	if b.RequiresNewSeries {
		parts = append(parts, "series")
	}
	if b.RequiresNewPlayer {
		parts = append(parts, "player")
	}
	if b.RequiresNewTeam {
		parts = append(parts, "team")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}
