package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/lumofit/companion/internal/metrics"
	"github.com/lumofit/companion/internal/models"
)

// LoadHealthDataError is the state error after a failed fetch
const LoadHealthDataError = "Failed to load health data."

const (
	DefaultPollInterval    = 30 * time.Second
	DefaultRefreshInterval = 5 * time.Second
)

var (
	ErrPollerStopped    = errors.New("poller stopped")
	ErrRefreshThrottled = errors.New("refresh requested too soon")
)

// ReadingsFetcher is the remote readings API
type ReadingsFetcher interface {
	GetReadings(ctx context.Context, patientID string) (*models.ReadingsPayload, error)
}

// Ticker is the part of time.Ticker the poller uses
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

func newStdTicker(d time.Duration) Ticker { return stdTicker{time.NewTicker(d)} }

// SnapshotHook is called after every successful fetch
type SnapshotHook func(patientID string, snap models.Snapshot)

// PollState is what a health-detail view renders
type PollState struct {
	PatientID string          `json:"patientId"`
	Snapshot  models.Snapshot `json:"snapshot"`
	Loading   bool            `json:"loading"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// Poller creates per-patient polling loops; one Poller serves many handles
type Poller struct {
	fetcher      ReadingsFetcher
	interval     time.Duration
	refreshEvery time.Duration
	newTicker    TickerFactory
	hooks        []SnapshotHook
	now          func() time.Time
}

type PollerOption func(*Poller)

func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithTicker(f TickerFactory) PollerOption {
	return func(p *Poller) { p.newTicker = f }
}

// WithRefreshEvery sets the minimum spacing of manual refreshes; 0 disables the limit
func WithRefreshEvery(d time.Duration) PollerOption {
	return func(p *Poller) { p.refreshEvery = d }
}

// WithSnapshotHook adds a hook. Hooks run on the fetching goroutine; a hook
// that stops its own handle returns from Stop without waiting for the loop.
func WithSnapshotHook(h SnapshotHook) PollerOption {
	return func(p *Poller) { p.hooks = append(p.hooks, h) }
}

func WithPollerClock(now func() time.Time) PollerOption {
	return func(p *Poller) { p.now = now }
}

func NewPoller(fetcher ReadingsFetcher, opts ...PollerOption) *Poller {
	p := &Poller{
		fetcher:      fetcher,
		interval:     DefaultPollInterval,
		refreshEvery: DefaultRefreshInterval,
		newTicker:    newStdTicker,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PollHandle is one running loop for one patient
type PollHandle struct {
	poller    *Poller
	patientID string
	limiter   *rate.Limiter

	fetchMu   sync.Mutex
	hookDepth atomic.Int32

	mu      sync.Mutex
	state   PollState
	closed  bool
	updates chan PollState

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Start fetches immediately, then once per interval until Stop or ctx ends.
// An empty patient id yields an inert handle that never fetches.
func (p *Poller) Start(ctx context.Context, patientID string) *PollHandle {
	h := &PollHandle{
		poller:    p,
		patientID: patientID,
		state:     PollState{PatientID: patientID, Snapshot: models.PlaceholderSnapshot()},
		updates:   make(chan PollState, 1),
		done:      make(chan struct{}),
		cancel:    func() {},
	}
	limit := rate.Inf
	if p.refreshEvery > 0 {
		limit = rate.Every(p.refreshEvery)
	}
	h.limiter = rate.NewLimiter(limit, 1)
	h.updates <- h.state

	if patientID == "" {
		close(h.done)
		return h
	}

	loopCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	ticker := p.newTicker(p.interval)
	metrics.ActivePollers.Inc()
	go h.run(loopCtx, ticker)
	return h
}

func (h *PollHandle) run(ctx context.Context, ticker Ticker) {
	defer close(h.done)
	defer metrics.ActivePollers.Dec()
	defer h.shutdown()
	defer ticker.Stop()

	h.fetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			h.fetch(ctx)
		}
	}
}

// Refresh runs one manual fetch outside the schedule
func (h *PollHandle) Refresh(ctx context.Context) error {
	if h.patientID == "" || h.isClosed() {
		return ErrPollerStopped
	}
	if !h.limiter.Allow() {
		return ErrRefreshThrottled
	}
	h.fetch(ctx)
	return nil
}

func (h *PollHandle) fetch(ctx context.Context) {
	snap, ok := h.fetchOnce(ctx)
	if !ok {
		return
	}
	h.hookDepth.Add(1)
	defer h.hookDepth.Add(-1)
	for _, hook := range h.poller.hooks {
		hook(h.patientID, snap)
	}
}

// fetchOnce reports true only for a successful fetch that was published
func (h *PollHandle) fetchOnce(ctx context.Context) (models.Snapshot, bool) {
	h.fetchMu.Lock()
	defer h.fetchMu.Unlock()

	if !h.publish(func(s *PollState) { s.Loading = true }) {
		return models.Snapshot{}, false
	}

	payload, err := h.poller.fetcher.GetReadings(ctx, h.patientID)
	metrics.ReadingFetches.WithLabelValues(metrics.Result(err)).Inc()

	var snap models.Snapshot
	if err == nil && payload != nil {
		snap = payload.Snapshot()
	}
	ok := h.publish(func(s *PollState) {
		s.Loading = false
		if err != nil || payload == nil {
			s.Error = LoadHealthDataError
			return
		}
		now := h.poller.now()
		s.Snapshot = snap
		s.Error = ""
		s.UpdatedAt = &now
	})
	if err != nil {
		if ok {
			log.Printf("poller: readings for %s: %v", h.patientID, err)
		}
		return snap, false
	}
	return snap, ok && payload != nil
}

// publish applies fn and delivers the new state. It reports false once the
// handle is stopped; the change is then discarded.
func (h *PollHandle) publish(fn func(*PollState)) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	fn(&h.state)
	select {
	case <-h.updates:
	default:
	}
	h.updates <- copyPollState(h.state)
	return true
}

// State returns the current snapshot, loading and error flags
func (h *PollHandle) State() PollState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return copyPollState(h.state)
}

// Updates yields the latest state after each change and closes on stop
func (h *PollHandle) Updates() <-chan PollState {
	return h.updates
}

// Done is closed once the loop has exited
func (h *PollHandle) Done() <-chan struct{} {
	return h.done
}

// Stop ends the loop and waits for it. Safe to call more than once.
func (h *PollHandle) Stop() {
	h.stopOnce.Do(func() {
		h.shutdown()
		h.cancel()
	})
	if h.hookDepth.Load() > 0 {
		return
	}
	<-h.done
}

func (h *PollHandle) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.updates)
}

func (h *PollHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func copyPollState(s PollState) PollState {
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		s.UpdatedAt = &t
	}
	return s
}
