// Package leaderboard reports player scores to an external leaderboard service.
package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/naka-gawa/colorclick/internal/domain"
	"golang.org/x/oauth2"
)

// MainCategory is the leaderboard that contributions are reported to.
const MainCategory = "main"

// ThrottledMessage prefixes the message of a throttled score report. The
// leaderboard answers 403 or 429 with this message and a Retry-After header.
const ThrottledMessage = "You have exceeded a secondary rate limit"

// ErrNotAuthenticated is returned when a report is skipped because no player is signed in.
var ErrNotAuthenticated = errors.New("player is not authenticated to the leaderboard")

// Score is a single named leaderboard entry.
type Score struct {
	Category string `json:"category"`
	Value    int64  `json:"value"`
	Context  uint64 `json:"context"`
}

// Reporter defines the behavior of a leaderboard service client.
type Reporter interface {
	IsAuthenticated() bool
	ReportScore(ctx context.Context, scores ...Score) error
}

// ReportContribution reports the player's contribution in s to the main leaderboard.
// Nothing is sent unless the player is authenticated.
func ReportContribution(ctx context.Context, r Reporter, s domain.Stats) error {
	if !r.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return r.ReportScore(ctx, Score{Category: MainCategory, Value: int64(s.MyContribution)})
}

// HTTPReporter is the concrete implementation of the Reporter interface.
type HTTPReporter struct {
	baseURL    string
	tokens     oauth2.TokenSource
	httpClient *http.Client
	logger     *log.Logger
}

type reportRequest struct {
	Scores []Score `json:"scores"`
}

// rewindBody sends every attempt with a fresh copy of the request body.
type rewindBody struct {
	next http.RoundTripper
}

func (t rewindBody) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body == nil || req.GetBody == nil {
		return t.next.RoundTrip(req)
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body: %w", err)
	}
	req.Body.Close()
	retry := req.Clone(req.Context())
	retry.Body = body
	return t.next.RoundTrip(retry)
}

// NewHTTPReporter is a constructor that creates a new instance of HTTPReporter.
// A throttled report (403 or 429 with a secondary rate limit body and
// Retry-After) is retried after the advertised wait, up to one minute.
// An empty baseURL or token yields a reporter that is never authenticated.
// A nil base uses http.DefaultTransport.
func NewHTTPReporter(baseURL, token string, base http.RoundTripper, logger *log.Logger) (*HTTPReporter, error) {
	if base == nil {
		base = http.DefaultTransport
	}
	// The waiter retries a throttled request as is, so the body has to be replayable.
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(rewindBody{base}, github_ratelimit.WithSingleSleepLimit(1*time.Minute, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	r := &HTTPReporter{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
	if baseURL == "" || token == "" {
		r.httpClient = &http.Client{Transport: rateLimitWaiter, Timeout: 10 * time.Second}
		return r, nil
	}

	r.tokens = oauth2.ReuseTokenSource(nil, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	r.httpClient = &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: r.tokens,
		},
		Timeout: 10 * time.Second,
	}
	return r, nil
}

func (r *HTTPReporter) IsAuthenticated() bool {
	if r.tokens == nil {
		return false
	}
	tok, err := r.tokens.Token()
	if err != nil {
		r.logger.Printf("Leaderboard: token unavailable: %v", err)
		return false
	}
	return tok.Valid()
}

func (r *HTTPReporter) ReportScore(ctx context.Context, scores ...Score) error {
	if len(scores) == 0 {
		return nil
	}
	payload, err := json.Marshal(reportRequest{Scores: scores})
	if err != nil {
		return fmt.Errorf("failed to encode scores: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/scores", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to report scores: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("leaderboard rejected scores with status %d", resp.StatusCode)
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("failed to read leaderboard response: %w", err)
	}
	r.logger.Printf("Leaderboard: reported %d score(s)", len(scores))
	return nil
}
