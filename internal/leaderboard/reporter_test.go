package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/naka-gawa/colorclick/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockReporter is a mock implementation of the Reporter interface.
type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) IsAuthenticated() bool {
	return m.Called().Bool(0)
}

func (m *mockReporter) ReportScore(ctx context.Context, scores ...Score) error {
	args := m.Called(ctx, scores)
	return args.Error(0)
}

func TestReportContribution(t *testing.T) {
	stats := domain.Stats{MyTeam: domain.TeamGreen, MyContribution: 5}

	t.Run("authenticated player reports to the main category", func(t *testing.T) {
		r := new(mockReporter)
		r.On("IsAuthenticated").Return(true)
		r.On("ReportScore", mock.Anything, []Score{{Category: MainCategory, Value: 5}}).Return(nil)

		assert.NoError(t, ReportContribution(context.Background(), r, stats))
		r.AssertExpectations(t)
	})

	t.Run("unauthenticated player reports nothing", func(t *testing.T) {
		r := new(mockReporter)
		r.On("IsAuthenticated").Return(false)

		err := ReportContribution(context.Background(), r, stats)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		r.AssertNotCalled(t, "ReportScore", mock.Anything, mock.Anything)
	})
}

func TestHTTPReporter_IsAuthenticated(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	testCases := []struct {
		name     string
		baseURL  string
		token    string
		expected bool
	}{
		{name: "token and url", baseURL: "http://scores.example", token: "secret", expected: true},
		{name: "no token", baseURL: "http://scores.example", token: "", expected: false},
		{name: "no url", baseURL: "", token: "secret", expected: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewHTTPReporter(tc.baseURL, tc.token, nil, logger)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, r.IsAuthenticated())
		})
	}
}

func TestHTTPReporter_ReportScore(t *testing.T) {
	testCases := []struct {
		name           string
		status         int
		expectError    bool
		expectedErrMsg string
	}{
		{name: "happy path - accepted", status: http.StatusNoContent},
		{name: "error case - rejected", status: http.StatusBadRequest, expectError: true, expectedErrMsg: "status 400"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/scores", r.URL.Path)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

				var got reportRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				assert.Equal(t, []Score{{Category: MainCategory, Value: 42}}, got.Scores)
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			r, err := NewHTTPReporter(server.URL+"/", "secret", nil, log.New(io.Discard, "", 0))
			require.NoError(t, err)

			err = r.ReportScore(context.Background(), Score{Category: MainCategory, Value: 42})
			if tc.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHTTPReporter_ReportScore_RetriesThrottledReport(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got reportRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, []Score{{Category: MainCategory, Value: 42}}, got.Scores)

		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"message":%q,"documentation_url":"https://scores.example/docs/secondary-rate-limits"}`, ThrottledMessage+" for scores.")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	r, err := NewHTTPReporter(server.URL, "secret", nil, log.New(io.Discard, "", 0))
	require.NoError(t, err)

	start := time.Now()
	err = r.ReportScore(context.Background(), Score{Category: MainCategory, Value: 42})
	assert.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.True(t, time.Since(start) >= 500*time.Millisecond, "waited for Retry-After before retrying")
}

func TestHTTPReporter_ReportScore_PlainThrottleIsAnError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"message":"slow down"}`)
	}))
	defer server.Close()

	r, err := NewHTTPReporter(server.URL, "secret", nil, log.New(io.Discard, "", 0))
	require.NoError(t, err)

	err = r.ReportScore(context.Background(), Score{Category: MainCategory, Value: 1})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Equal(t, int32(1), hits.Load())
}
