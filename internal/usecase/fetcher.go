// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/naka-gawa/colorclick/internal/domain"
	"github.com/naka-gawa/colorclick/internal/gateway"
	"github.com/naka-gawa/colorclick/internal/leaderboard"
)

// ClickBurst is the number of fire-and-forget clicks sent by AsyncTryClickAndFetch.
const ClickBurst = 100

const reportTimeout = 15 * time.Second

type fetcherMsg interface{ isFetcherMsg() }

type dispatchTracked struct {
	URL   string
	Reply chan bool
}

type trackedCompleted struct {
	Resp *gateway.Response
	Err  error
}

type getSnapshot struct {
	Reply chan snapshot
}

type idleRequest struct {
	Reply chan struct{}
}

type snapshot struct {
	latest     *domain.Stats
	inProgress bool
}

func (dispatchTracked) isFetcherMsg()  {}
func (trackedCompleted) isFetcherMsg() {}
func (getSnapshot) isFetcherMsg()      {}
func (idleRequest) isFetcherMsg()      {}

// StatsFetcher keeps the most recent stats snapshot from the game server.
// At most one tracked request is outstanding at a time; all state is owned
// by a single goroutine and changed only through its inbox.
type StatsFetcher struct {
	api      gateway.StatsAPI
	reporter leaderboard.Reporter
	logger   *log.Logger

	inbox   chan fetcherMsg
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	reports sync.WaitGroup

	// Owned by loop. latest may be read directly once stopped is closed.
	latest            *domain.Stats
	requestInProgress bool
	idleWaiters       []chan struct{}
}

// NewStatsFetcher creates a StatsFetcher and starts its loop.
func NewStatsFetcher(parent context.Context, api gateway.StatsAPI, reporter leaderboard.Reporter, logger *log.Logger) *StatsFetcher {
	ctx, cancel := context.WithCancel(parent)
	f := &StatsFetcher{
		api:      api,
		reporter: reporter,
		logger:   logger,
		inbox:    make(chan fetcherMsg, 16),
		ctx:      ctx,
		cancel:   cancel,
		stopped:  make(chan struct{}),
	}
	go f.loop()
	return f
}

// AsyncFetch starts a tracked stats request unless one is already outstanding.
func (f *StatsFetcher) AsyncFetch() {
	f.dispatch(f.api.StatsURL())
}

// AsyncTryClickAndFetch sends a burst of fire-and-forget clicks, then one
// tracked click. It reports whether the tracked click was dispatched.
func (f *StatsFetcher) AsyncTryClickAndFetch() bool {
	clickURL := f.api.ClickURL()
	f.logger.Printf("Usecase: sending %d click requests...", ClickBurst)
	for i := 0; i < ClickBurst; i++ {
		f.api.FireAndForget(clickURL)
	}
	return f.dispatch(clickURL)
}

// MostRecentFetched returns the last successfully parsed snapshot, if any.
// The snapshot stays available after Close.
func (f *StatsFetcher) MostRecentFetched() (domain.Stats, bool) {
	s, ok := f.snapshot()
	if !ok {
		<-f.stopped
		s = snapshot{latest: f.latest}
	}
	if s.latest == nil {
		return domain.Stats{}, false
	}
	return *s.latest, true
}

// InProgress reports whether a tracked request is outstanding.
func (f *StatsFetcher) InProgress() bool {
	s, _ := f.snapshot()
	return s.inProgress
}

// Idle blocks until no tracked request is outstanding.
func (f *StatsFetcher) Idle(ctx context.Context) error {
	reply := make(chan struct{}, 1)
	if !f.send(idleRequest{Reply: reply}) {
		return errors.New("stats fetcher is closed")
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-f.stopped:
		return errors.New("stats fetcher is closed")
	}
}

// Close stops the fetcher and waits for pending leaderboard reports and
// for the clicks it has already sent.
func (f *StatsFetcher) Close() {
	f.cancel()
	<-f.stopped
	f.reports.Wait()
	f.api.Wait()
}

func (f *StatsFetcher) dispatch(url string) bool {
	reply := make(chan bool, 1)
	if !f.send(dispatchTracked{URL: url, Reply: reply}) {
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-f.stopped:
		return false
	}
}

func (f *StatsFetcher) snapshot() (snapshot, bool) {
	reply := make(chan snapshot, 1)
	if !f.send(getSnapshot{Reply: reply}) {
		return snapshot{}, false
	}
	select {
	case s := <-reply:
		return s, true
	case <-f.stopped:
		return snapshot{}, false
	}
}

func (f *StatsFetcher) send(m fetcherMsg) bool {
	select {
	case f.inbox <- m:
		return true
	case <-f.ctx.Done():
		return false
	}
}

func (f *StatsFetcher) loop() {
	defer close(f.stopped)
	for {
		select {
		case <-f.ctx.Done():
			return

		case m := <-f.inbox:
			switch msg := m.(type) {
			case dispatchTracked:
				if f.requestInProgress {
					f.logger.Println("Usecase: request already in progress, skipping.")
					msg.Reply <- false
					break
				}
				f.requestInProgress = true
				go f.runTracked(msg.URL)
				msg.Reply <- true

			case trackedCompleted:
				// The guard is released before any outcome is inspected.
				f.requestInProgress = false
				f.complete(msg)
				for _, w := range f.idleWaiters {
					w <- struct{}{}
				}
				f.idleWaiters = nil

			case getSnapshot:
				msg.Reply <- snapshot{latest: f.latest, inProgress: f.requestInProgress}

			case idleRequest:
				if !f.requestInProgress {
					msg.Reply <- struct{}{}
					break
				}
				f.idleWaiters = append(f.idleWaiters, msg.Reply)
			}
		}
	}
}

func (f *StatsFetcher) runTracked(url string) {
	resp, err := f.api.Get(f.ctx, url)
	f.send(trackedCompleted{Resp: resp, Err: err})
}

func (f *StatsFetcher) complete(msg trackedCompleted) {
	if msg.Err != nil {
		f.logger.Printf("Usecase: request failed: %v", msg.Err)
		return
	}
	if msg.Resp == nil || msg.Resp.StatusCode != http.StatusOK {
		status := 0
		if msg.Resp != nil {
			status = msg.Resp.StatusCode
		}
		f.logger.Printf("Usecase: dropping response with status %d", status)
		return
	}

	stats, err := gateway.ParseStats(msg.Resp.Body)
	if err != nil {
		f.logger.Printf("Usecase: dropping response (request %s): %v", msg.Resp.RequestID, err)
		return
	}

	f.latest = &stats
	f.logger.Printf("Usecase: stored stats from request %s.", msg.Resp.RequestID)

	f.reports.Add(1)
	go f.report(stats)
}

func (f *StatsFetcher) report(stats domain.Stats) {
	defer f.reports.Done()
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	err := leaderboard.ReportContribution(ctx, f.reporter, stats)
	switch {
	case errors.Is(err, leaderboard.ErrNotAuthenticated):
		f.logger.Println("Usecase: not signed in to the leaderboard, score not reported.")
	case err != nil:
		f.logger.Printf("Usecase: failed to report score: %v", err)
	}
}
