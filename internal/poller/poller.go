package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"realtime-listings/internal/listing"
	"realtime-listings/internal/publish"
	"realtime-listings/internal/report"
	"realtime-listings/internal/state"
)

const DefaultInterval = 2 * time.Second

// Fetcher performs one conditional fetch of the upstream listings.
type Fetcher interface {
	Fetch(ctx context.Context, previousToken string) (*listing.Result, error)
}

type State int32

const (
	Idle State = iota
	Fetching
	Classifying
	Publishing
	Armed
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Classifying:
		return "classifying"
	case Publishing:
		return "publishing"
	case Armed:
		return "armed"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// FaultError is returned by RunOnce when the cycle panicked.
type FaultError struct {
	Value any
	Stack []byte
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("poll cycle fault: %v", e.Value)
}

func (e *FaultError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

type Poller struct {
	fetcher   Fetcher
	history   *state.History
	stats     *state.Stats
	publisher publish.Publisher
	reporter  report.Reporter
	interval  time.Duration
	now       func() time.Time
	restarts  *rate.Limiter

	state  atomic.Int32
	lastID atomic.Pointer[listing.ID]

	// cycleMu is held for a whole cycle; token is only touched under it.
	cycleMu sync.Mutex
	token   string

	fetchMu     sync.Mutex
	cancelFetch context.CancelFunc
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

func WithReporter(r report.Reporter) Option {
	return func(p *Poller) { p.reporter = r }
}

// WithRestartLimit bounds how often a faulted cycle is restarted without
// waiting for the interval.
func WithRestartLimit(l *rate.Limiter) Option {
	return func(p *Poller) { p.restarts = l }
}

func New(f Fetcher, h *state.History, s *state.Stats, pub publish.Publisher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:   f,
		history:   h,
		stats:     s,
		publisher: pub,
		reporter:  report.Nop{},
		interval:  DefaultInterval,
		now:       time.Now,
		restarts:  rate.NewLimiter(rate.Every(time.Second), 3),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) State() State {
	return State(p.state.Load())
}

func (p *Poller) setState(s State) {
	p.state.Store(int32(s))
}

// LastID is the identifier of the first listing of the last processed batch.
func (p *Poller) LastID() listing.ID {
	if id := p.lastID.Load(); id != nil {
		return *id
	}
	return listing.ID{}
}

// Run polls until ctx is cancelled. A cycle that ends normally, including
// one whose fetch failed, arms the next after the interval. A faulted cycle
// is restarted straight away, subject to the restart limiter.
func (p *Poller) Run(ctx context.Context) {
	timer := time.NewTimer(p.interval)
	timer.Stop()
	defer timer.Stop()
	defer p.setState(Stopped)

	for {
		p.setState(Idle)
		_, err := p.RunOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		var fault *FaultError
		if errors.As(err, &fault) {
			metricFaults.Inc()
			slog.Error("Poll cycle fault, restarting", "error", err, "stack", string(fault.Stack))
			p.reporter.Capture(err, map[string]string{"component": "poller"})
			if err := p.restarts.Wait(ctx); err != nil {
				return
			}
			continue
		}

		p.setState(Armed)
		timer.Reset(p.interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// RunOnce executes a single fetch-classify-publish-stats cycle and returns
// the newly detected listings. Fetch outcomes other than success come back
// as *listing.FetchError; a panic anywhere in the cycle comes back as
// *FaultError.
func (p *Poller) RunOnce(ctx context.Context) (fresh []listing.Listing, err error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	logger := slog.With("cycle", uuid.NewString())

	defer func() {
		if r := recover(); r != nil {
			p.abortFetch()
			fresh = nil
			err = &FaultError{Value: r, Stack: debug.Stack()}
		}
	}()

	p.setState(Fetching)
	logger.Debug("Requesting new listings")
	res, err := p.fetch(ctx)
	if res != nil && res.Token != "" {
		p.token = res.Token
	}
	if err != nil {
		kind := listing.KindOf(err)
		metricFetchCount.WithLabelValues(kind.String()).Inc()
		if kind == listing.Unchanged {
			logger.Debug("ETag identical to last request, ignoring content")
		} else {
			logger.Warn("Failed to fetch listings", "error", err)
		}
		return nil, err
	}
	metricFetchCount.WithLabelValues("ok").Inc()

	if len(res.Listings) == 0 {
		logger.Debug("No listings in response")
		return nil, nil
	}

	p.setState(Classifying)
	listing.SortByID(res.Listings)
	fresh = p.history.ClassifyAndRecord(res.Listings)

	p.setState(Publishing)
	for _, l := range fresh {
		if err := p.publisher.Publish(ctx, publish.Channel, publish.Event, l); err != nil {
			metricPublishErrors.Inc()
			logger.Error("Failed to publish listing", "id", l.ID.String(), "error", err)
			p.reporter.Capture(err, map[string]string{"component": "publisher"})
			continue
		}
		logger.Debug("Published listing", "id", l.ID.String())
	}
	metricNewItems.Add(float64(len(fresh)))

	p.stats.Record(len(fresh), p.now())
	metricPast24.Set(float64(p.stats.Snapshot().Total))

	if first := res.Listings[0].ID; first.Valid() {
		p.lastID.Store(&first)
		if f, ok := first.Float64(); ok {
			metricHighWater.Set(f)
		}
	}

	logger.Info("Processed listings", "fetched", len(res.Listings), "new", len(fresh))
	return fresh, nil
}

func (p *Poller) fetch(ctx context.Context) (*listing.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	p.fetchMu.Lock()
	p.cancelFetch = cancel
	p.fetchMu.Unlock()

	defer p.abortFetch()
	return p.fetcher.Fetch(ctx, p.token)
}

// abortFetch cancels the in-flight fetch, if any.
func (p *Poller) abortFetch() {
	p.fetchMu.Lock()
	defer p.fetchMu.Unlock()
	if p.cancelFetch != nil {
		p.cancelFetch()
		p.cancelFetch = nil
	}
}
