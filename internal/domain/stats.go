// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// Team identifies one side of the color click game.
type Team int

const (
	TeamRed Team = iota
	TeamGreen
)

// TeamCount is the number of teams in the game.
const TeamCount = 2

var teamNames = [TeamCount]string{"red", "green"}

// TeamFromOrdinal resolves a 0-based team ordinal.
func TeamFromOrdinal(ordinal int) (Team, bool) {
	if ordinal < 0 || ordinal >= TeamCount {
		return 0, false
	}
	return Team(ordinal), true
}

// Teams returns every team in ordinal order.
func Teams() []Team {
	teams := make([]Team, TeamCount)
	for i := range teams {
		teams[i] = Team(i)
	}
	return teams
}

func (t Team) String() string {
	if t < 0 || int(t) >= TeamCount {
		return fmt.Sprintf("Team(%d)", int(t))
	}
	return teamNames[t]
}

// MarshalText encodes the team by name so snapshots print readably.
func (t Team) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= TeamCount {
		return nil, fmt.Errorf("invalid team ordinal %d", int(t))
	}
	return []byte(teamNames[t]), nil
}

// Stats is one snapshot of the game as seen by the local player.
// It is the core domain entity of this application.
type Stats struct {
	ColorCounts    [TeamCount]int `json:"color_counts"`
	MyTeam         Team           `json:"my_team"`
	MyContribution int            `json:"my_contribution"`
	Status         int            `json:"status"`
	Winner         bool           `json:"winner"`
}

// Summary is a derived view of a Stats snapshot.
type Summary struct {
	Total       int     `json:"total"`
	Leader      Team    `json:"leader"`
	LeaderShare float64 `json:"leader_share"`
}

// Summarize totals the team counters and picks the leading team.
// Ties go to the team with the lowest ordinal.
func (s Stats) Summarize() Summary {
	data := make(stats.Float64Data, 0, TeamCount)
	for _, c := range s.ColorCounts {
		data = append(data, float64(c))
	}

	// Both calls only fail on empty input, which a fixed-size array rules out.
	total, _ := data.Sum()
	highest, _ := data.Max()

	summary := Summary{Total: int(total)}
	for i, c := range s.ColorCounts {
		if float64(c) == highest {
			summary.Leader = Team(i)
			break
		}
	}
	if total > 0 {
		summary.LeaderShare = highest / total
	}
	return summary
}
