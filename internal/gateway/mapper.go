package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/naka-gawa/colorclick/internal/domain"
)

// ErrInvalidPayload is wrapped by every error ParseStats returns.
var ErrInvalidPayload = errors.New("invalid stats payload")

// statsPayload mirrors the /json/stats response. Pointer fields tell a
// missing key apart from a zero value.
type statsPayload struct {
	Color        *int `json:"color"`
	Contribution *int `json:"contribution"`
	Status       *int `json:"status"`
	Winner       *int `json:"winner"`
	Colors       *[]struct {
		Counter *int `json:"counter"`
	} `json:"colors"`
}

// ParseStats maps a stats response body to a domain.Stats.
// It never returns a partially filled value: any missing or malformed field fails the whole parse.
func ParseStats(body []byte) (domain.Stats, error) {
	var p statsPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.Stats{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	for _, f := range []struct {
		name  string
		value *int
	}{
		{"color", p.Color},
		{"contribution", p.Contribution},
		{"status", p.Status},
		{"winner", p.Winner},
	} {
		if f.value == nil {
			return domain.Stats{}, fmt.Errorf("%w: missing field %q", ErrInvalidPayload, f.name)
		}
	}

	// color is 1-based on the wire.
	team, ok := domain.TeamFromOrdinal(*p.Color - 1)
	if !ok {
		return domain.Stats{}, fmt.Errorf("%w: color %d out of range 1..%d", ErrInvalidPayload, *p.Color, domain.TeamCount)
	}

	if p.Colors == nil {
		return domain.Stats{}, fmt.Errorf("%w: missing field %q", ErrInvalidPayload, "colors")
	}
	colors := *p.Colors
	if len(colors) != domain.TeamCount {
		return domain.Stats{}, fmt.Errorf("%w: got %d colors, want %d", ErrInvalidPayload, len(colors), domain.TeamCount)
	}

	var counts [domain.TeamCount]int
	for i, c := range colors {
		if c.Counter == nil {
			return domain.Stats{}, fmt.Errorf("%w: colors[%d] is missing field %q", ErrInvalidPayload, i, "counter")
		}
		counts[i] = *c.Counter
	}

	return domain.Stats{
		ColorCounts:    counts,
		MyTeam:         team,
		MyContribution: *p.Contribution,
		Status:         *p.Status,
		Winner:         *p.Winner != 0,
	}, nil
}
