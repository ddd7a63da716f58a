// Package gateway provides a gateway to the color click game server,
// abstracting away the underlying HTTP client and the wire format.
package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the ID of a tracked request.
const RequestIDHeader = "X-Request-ID"

// fireAndForgetTimeout bounds a single fire-and-forget request so Wait cannot block forever.
const fireAndForgetTimeout = 10 * time.Second

// Response is what a tracked request observed from the server.
type Response struct {
	RequestID  string
	StatusCode int
	Body       []byte
}

// Player identifies the local player in stats queries.
type Player struct {
	Name    string
	Client  string
	Machine string
}

// StatsAPI defines the behavior of a gateway to the game server.
type StatsAPI interface {
	StatsURL() string
	ClickURL() string
	// Get performs a tracked GET and reads the whole body.
	Get(ctx context.Context, rawURL string) (*Response, error)
	// FireAndForget dispatches a GET and never looks at its outcome.
	FireAndForget(rawURL string)
	// Wait blocks until every fire-and-forget request has left and finished.
	Wait()
}

// ServerGateway is the concrete implementation of the StatsAPI interface.
type ServerGateway struct {
	baseURL    string
	player     Player
	httpClient *http.Client
	logger     *log.Logger
	outgoing   sync.WaitGroup
}

// NewServerGateway is a constructor that creates a new instance of ServerGateway.
// A nil httpClient falls back to http.DefaultClient, so only transport defaults apply.
func NewServerGateway(baseURL string, player Player, httpClient *http.Client, logger *log.Logger) (*ServerGateway, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server URL %q must include scheme and host", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ServerGateway{
		baseURL:    strings.TrimRight(u.String(), "/"),
		player:     player,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// StatsURL returns the stats endpoint with the player query attached.
func (g *ServerGateway) StatsURL() string {
	q := url.Values{}
	q.Set("name", g.player.Name)
	q.Set("client", g.player.Client)
	q.Set("machine", g.player.Machine)
	return g.baseURL + "/json/stats?" + q.Encode()
}

func (g *ServerGateway) ClickURL() string {
	return g.baseURL + "/json/click"
}

func (g *ServerGateway) Get(ctx context.Context, rawURL string) (*Response, error) {
	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(RequestIDHeader, requestID)

	g.logger.Printf("GET %s (request %s)", rawURL, requestID)
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	g.logger.Printf("GET %s completed with status %d, %d bytes (request %s)", rawURL, resp.StatusCode, len(body), requestID)

	return &Response{
		RequestID:  requestID,
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

func (g *ServerGateway) FireAndForget(rawURL string) {
	g.outgoing.Add(1)
	go func() {
		defer g.outgoing.Done()
		ctx, cancel := context.WithTimeout(context.Background(), fireAndForgetTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return
		}
		resp, err := g.httpClient.Do(req)
		if err != nil {
			return
		}
		resp.Body.Close()
	}()
}

func (g *ServerGateway) Wait() {
	g.outgoing.Wait()
}
