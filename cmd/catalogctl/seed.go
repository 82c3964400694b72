package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/codyseavey/cardcatalog/internal/apperrors"
	"github.com/codyseavey/cardcatalog/internal/database"
	"github.com/codyseavey/cardcatalog/internal/models"
)

// seedFile is the YAML layout accepted by `catalogctl seed`.
type seedFile struct {
	Sets    []seedSet    `yaml:"sets"`
	Teams   []seedTeam   `yaml:"teams"`
	Players []seedPlayer `yaml:"players"`
	Colors  []string     `yaml:"colors"`
}

type seedSet struct {
	Name         string   `yaml:"name"`
	Year         int      `yaml:"year"`
	Manufacturer string   `yaml:"manufacturer"`
	Series       []string `yaml:"series"`
}

type seedTeam struct {
	Name         string `yaml:"name"`
	City         string `yaml:"city"`
	Nickname     string `yaml:"nickname"`
	Abbreviation string `yaml:"abbreviation"`
	Organization string `yaml:"organization"`
	OrgAbbrev    string `yaml:"organization_abbreviation"`
}

type seedPlayer struct {
	Name  string   `yaml:"name"`
	Teams []string `yaml:"teams"`
}

// seedReport counts rows created; existing rows are skipped, so seeding the
// same file twice creates nothing the second time.
type seedReport struct {
	Sets        int
	Series      int
	Teams       int
	Players     int
	PlayerTeams int
	Colors      int
	Skipped     int
}

func newSeedCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load canonical sets, series, teams, players and colors from YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return eris.Wrapf(err, "open seed file %s", args[0])
			}
			defer func() { _ = f.Close() }()

			store, err := cc.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			report, err := seedCatalog(cmd.Context(), store, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out,
				[]string{"Entity", "Created"},
				[][]string{
					{"sets", fmt.Sprint(report.Sets)},
					{"series", fmt.Sprint(report.Series)},
					{"teams", fmt.Sprint(report.Teams)},
					{"players", fmt.Sprint(report.Players)},
					{"player/team links", fmt.Sprint(report.PlayerTeams)},
					{"colors", fmt.Sprint(report.Colors)},
					{"skipped (already present)", fmt.Sprint(report.Skipped)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}

func seedCatalog(ctx context.Context, store *database.Store, r io.Reader) (*seedReport, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, eris.Wrap(err, "decode seed file")
	}

	report := &seedReport{}
	err := store.WithTx(ctx, func(tx *database.Store) error {
		for _, s := range file.Sets {
			if err := seedOneSet(ctx, tx, s, report); err != nil {
				return err
			}
		}

		teamIDs := make(map[string]uint, len(file.Teams))
		for _, t := range file.Teams {
			id, err := seedOneTeam(ctx, tx, t, report)
			if err != nil {
				return err
			}
			teamIDs[strings.ToLower(t.Name)] = id
		}

		for _, p := range file.Players {
			if err := seedOnePlayer(ctx, tx, p, teamIDs, report); err != nil {
				return err
			}
		}

		for _, name := range file.Colors {
			err := tx.CreateColor(ctx, &models.Color{Name: name})
			if err := countCreate(err, &report.Colors, report); err != nil {
				return eris.Wrapf(err, "seed color %q", name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("catalog seeded",
		zap.Int("sets", report.Sets),
		zap.Int("series", report.Series),
		zap.Int("teams", report.Teams),
		zap.Int("players", report.Players),
		zap.Int("colors", report.Colors),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

func seedOneSet(ctx context.Context, tx *database.Store, s seedSet, report *seedReport) error {
	set := models.Set{Name: s.Name, Year: s.Year}
	if s.Manufacturer != "" {
		m, err := tx.FirstOrCreateManufacturer(ctx, s.Manufacturer)
		if err != nil {
			return err
		}
		set.ManufacturerID = &m.ID
	}

	setID, err := createOrExisting(tx.CreateSet(ctx, &set), &set.ID, &report.Sets, report)
	if err != nil {
		return eris.Wrapf(err, "seed set %q", s.Name)
	}

	for _, name := range s.Series {
		err := tx.CreateSeries(ctx, &models.Series{SetID: setID, Name: name})
		if err := countCreate(err, &report.Series, report); err != nil {
			return eris.Wrapf(err, "seed series %q of %q", name, s.Name)
		}
	}
	return nil
}

func seedOneTeam(ctx context.Context, tx *database.Store, t seedTeam, report *seedReport) (uint, error) {
	team := models.Team{
		Name:         t.Name,
		City:         t.City,
		Nickname:     t.Nickname,
		Abbreviation: t.Abbreviation,
	}
	if t.Organization != "" {
		org, err := tx.FirstOrCreateOrganization(ctx, t.Organization, t.OrgAbbrev)
		if err != nil {
			return 0, err
		}
		team.OrganizationID = &org.ID
	}

	id, err := createOrExisting(tx.CreateTeam(ctx, &team), &team.ID, &report.Teams, report)
	if err != nil {
		return 0, eris.Wrapf(err, "seed team %q", t.Name)
	}
	return id, nil
}

func seedOnePlayer(ctx context.Context, tx *database.Store, p seedPlayer, teamIDs map[string]uint, report *seedReport) error {
	player := models.Player{Name: p.Name}
	playerID, err := createOrExisting(tx.CreatePlayer(ctx, &player, false), &player.ID, &report.Players, report)
	if err != nil {
		return eris.Wrapf(err, "seed player %q", p.Name)
	}

	for _, teamName := range p.Teams {
		teamID, ok := teamIDs[strings.ToLower(teamName)]
		if !ok {
			return apperrors.Validation("player %q references unknown team %q", p.Name, teamName)
		}
		_, created, err := tx.EnsurePlayerTeam(ctx, playerID, teamID)
		if err != nil {
			return err
		}
		if created {
			report.PlayerTeams++
		}
	}
	return nil
}

// createOrExisting returns the id of the row just created, or of the row
// that already held the natural key.
func createOrExisting(err error, createdID *uint, counter *int, report *seedReport) (uint, error) {
	if err == nil {
		*counter++
		return *createdID, nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Kind == apperrors.KindDuplicate && appErr.ExistingID != nil && *appErr.ExistingID != 0 {
		report.Skipped++
		return *appErr.ExistingID, nil
	}
	return 0, err
}

func countCreate(err error, counter *int, report *seedReport) error {
	if err == nil {
		*counter++
		return nil
	}
	if apperrors.Is(err, apperrors.KindDuplicate) {
		report.Skipped++
		return nil
	}
	return err
}
