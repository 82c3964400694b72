package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/codyseavey/cardcatalog/internal/services"
)

func newResolveCommand(cc *commandContext) *cobra.Command {
	var in services.ResolveInput

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show how a card's raw text resolves against the catalog",
		Example: `  catalogctl resolve --set "Topps" --year 2024 --player "Mike Trout" --team Angels
  catalogctl resolve --set "2024 Topps Chrome" --series Refractors --color Gold --player "Soto / Judge"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.config()
			if err != nil {
				return err
			}
			store, err := cc.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			snap, err := services.LoadCatalogSnapshot(cmd.Context(), store)
			if err != nil {
				return err
			}

			resolver := services.NewAutoResolver(services.NewEntityMatcher(cfg.Resolution), cfg.Resolution)
			res := resolver.Resolve(snap, in)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out,
				[]string{"Field", "Input", "Best match", "Confidence", "Accepted"},
				resolutionRows(in, res),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			if res.FullyResolved {
				fmt.Fprintln(out, "Fully resolved: the card would enter the catalog without review")
			} else {
				fmt.Fprintln(out, "Needs review")
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&in.SetName, "set", "", "Set name as typed by the contributor")
	flags.IntVar(&in.Year, "year", 0, "Release year")
	flags.StringVar(&in.SeriesName, "series", "", "Series name (empty means the default series)")
	flags.StringVar(&in.ColorName, "color", "", "Parallel color")
	flags.StringVar(&in.PlayerName, "player", "", "Player name(s), separated by /")
	flags.StringVar(&in.TeamName, "team", "", "Team name(s), separated by /")
	_ = cmd.MarkFlagRequired("set")
	_ = cmd.MarkFlagRequired("player")

	return cmd
}

func resolutionRows(in services.ResolveInput, res services.Resolution) [][]string {
	rows := [][]string{
		fieldRow("set", in.SetName, res.Set),
		fieldRow("series", in.SeriesName, res.Series),
	}
	if res.Color != nil {
		rows = append(rows, fieldRow("color", in.ColorName, *res.Color))
	}
	for _, p := range res.Pairings {
		label := "player #" + strconv.Itoa(p.Position)
		rows = append(rows, fieldRow(label, p.PlayerName, p.Player))
		team := ""
		if p.TeamName != nil {
			team = *p.TeamName
		}
		rows = append(rows, fieldRow("team #"+strconv.Itoa(p.Position), team, p.Team))
	}
	return rows
}

func fieldRow(field, input string, f services.FieldResolution) []string {
	best, conf := "-", "-"
	if f.Best != nil {
		best = fmt.Sprintf("%s (#%d)", f.Best.Name, f.Best.CandidateID)
		conf = strconv.FormatFloat(f.Best.Confidence, 'f', 3, 64)
	}
	accepted := "no"
	if f.Accepted {
		accepted = "yes"
	}
	return []string{field, input, best, conf, accepted}
}
