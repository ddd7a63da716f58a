package gateway

import (
	"testing"

	"github.com/naka-gawa/colorclick/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStats(t *testing.T) {
	testCases := []struct {
		name           string
		body           string
		expected       domain.Stats
		expectError    bool
		expectedErrMsg string
	}{
		{
			name: "happy path - maps every field",
			body: `{"color":2,"contribution":5,"status":0,"winner":1,"colors":[{"counter":3},{"counter":7}]}`,
			expected: domain.Stats{
				ColorCounts:    [domain.TeamCount]int{3, 7},
				MyTeam:         domain.TeamGreen,
				MyContribution: 5,
				Status:         0,
				Winner:         true,
			},
		},
		{
			name: "happy path - zero winner and extra keys",
			body: `{"color":1,"contribution":0,"status":3,"winner":0,"colors":[{"counter":0,"name":"red"},{"counter":2}],"extra":true}`,
			expected: domain.Stats{
				ColorCounts: [domain.TeamCount]int{0, 2},
				MyTeam:      domain.TeamRed,
				Status:      3,
			},
		},
		{
			name:           "error case - too few colors",
			body:           `{"color":1,"contribution":5,"status":0,"winner":0,"colors":[{"counter":3}]}`,
			expectError:    true,
			expectedErrMsg: "got 1 colors, want 2",
		},
		{
			name:           "error case - too many colors",
			body:           `{"color":1,"contribution":5,"status":0,"winner":0,"colors":[{"counter":3},{"counter":4},{"counter":5}]}`,
			expectError:    true,
			expectedErrMsg: "got 3 colors, want 2",
		},
		{
			name:           "error case - color zero",
			body:           `{"color":0,"contribution":5,"status":0,"winner":0,"colors":[{"counter":3},{"counter":7}]}`,
			expectError:    true,
			expectedErrMsg: "color 0 out of range",
		},
		{
			name:           "error case - color past the last team",
			body:           `{"color":3,"contribution":5,"status":0,"winner":0,"colors":[{"counter":3},{"counter":7}]}`,
			expectError:    true,
			expectedErrMsg: "color 3 out of range",
		},
		{
			name:           "error case - missing contribution",
			body:           `{"color":1,"status":0,"winner":0,"colors":[{"counter":3},{"counter":7}]}`,
			expectError:    true,
			expectedErrMsg: `missing field "contribution"`,
		},
		{
			name:           "error case - missing colors",
			body:           `{"color":1,"contribution":5,"status":0,"winner":0}`,
			expectError:    true,
			expectedErrMsg: `missing field "colors"`,
		},
		{
			name:           "error case - element without counter",
			body:           `{"color":1,"contribution":5,"status":0,"winner":0,"colors":[{"counter":3},{}]}`,
			expectError:    true,
			expectedErrMsg: `colors[1] is missing field "counter"`,
		},
		{
			name:           "error case - non-numeric field",
			body:           `{"color":"blue","contribution":5,"status":0,"winner":0,"colors":[{"counter":3},{"counter":7}]}`,
			expectError:    true,
			expectedErrMsg: "invalid stats payload",
		},
		{
			name:           "error case - not JSON",
			body:           `<html>bad gateway</html>`,
			expectError:    true,
			expectedErrMsg: "invalid stats payload",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stats, err := ParseStats([]byte(tc.body))
			if tc.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPayload)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
				assert.Equal(t, domain.Stats{}, stats)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, stats)
			}
		})
	}
}
