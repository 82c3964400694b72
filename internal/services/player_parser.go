package services

import "strings"

const playerDelimiter = "/"

// PlayerTeamPair is one parsed (player, team) slot on a card.
type PlayerTeamPair struct {
	Position   int
	PlayerName string
	TeamName   *string
}

// ParsePlayerTeams splits "Juan Soto / Aaron Judge" and "Mets / Yankees" into
// ordered pairings. Equal counts pair positionally; a single team applies to
// every player; any other mismatch leaves teams unset. Every non-empty player
// segment yields exactly one pair.
func ParsePlayerTeams(playerRaw, teamRaw string) []PlayerTeamPair {
	players := splitSegments(playerRaw)
	if len(players) == 0 {
		return nil
	}
	teams := splitSegments(teamRaw)

	pairs := make([]PlayerTeamPair, len(players))
	for i, name := range players {
		pairs[i] = PlayerTeamPair{Position: i + 1, PlayerName: name}

		var team string
		switch {
		case len(teams) == len(players):
			team = teams[i]
		case len(teams) == 1:
			team = teams[0]
		default:
			continue
		}
		pairs[i].TeamName = &team
	}
	return pairs
}

func splitSegments(raw string) []string {
	var out []string
	for _, seg := range strings.Split(raw, playerDelimiter) {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
