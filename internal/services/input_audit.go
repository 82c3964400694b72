package services

import (
	libinjection "github.com/corazawaf/libinjection-go"
	"go.uber.org/zap"

	"github.com/codyseavey/cardcatalog/internal/metrics"
	"github.com/codyseavey/cardcatalog/internal/models"
)

// InputFlag describes one free-text field that looks like an injection
// attempt. Flagged text is still stored verbatim through parameterized
// queries; flags only feed logs and metrics.
type InputFlag struct {
	Card        int
	Field       string
	Type        string // "sqli" or "xss"
	Fingerprint string
}

// ScreenText checks one value.
func ScreenText(value string) (flagType, fingerprint string, flagged bool) {
	if value == "" {
		return "", "", false
	}
	if isSQLi, fp := libinjection.IsSQLi(value); isSQLi {
		return "sqli", string(fp), true
	}
	if libinjection.IsXSS(value) {
		return "xss", "", true
	}
	return "", "", false
}

// AuditSubmission screens every free-text field of a bundle and records
// anything suspicious.
func AuditSubmission(userID uint, req *models.SubmitBundleRequest) []InputFlag {
	var flags []InputFlag
	for i, card := range req.Cards {
		fields := []struct{ name, value string }{
			{"player_name", card.PlayerName},
			{"team_name", card.TeamName},
			{"set_name", card.SetName},
			{"series_name", card.SeriesName},
			{"color_name", card.ColorName},
			{"card_number", card.CardNumber},
			{"notes", card.Notes},
			{"serial_number", card.SerialNumber},
			{"storage_location", card.StorageLocation},
		}
		for _, f := range fields {
			flagType, fp, flagged := ScreenText(f.value)
			if !flagged {
				continue
			}
			flags = append(flags, InputFlag{Card: i + 1, Field: f.name, Type: flagType, Fingerprint: fp})
			metrics.SuspiciousInputTotal.WithLabelValues(f.name, flagType).Inc()
			zap.L().Warn("suspicious submission text",
				zap.Uint("user_id", userID),
				zap.Int("card", i+1),
				zap.String("field", f.name),
				zap.String("type", flagType),
				zap.String("fingerprint", fp),
			)
		}
	}
	return flags
}
