package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pixelforge/internal/domain"
	"pixelforge/internal/infra"
	"pixelforge/internal/providers/video"
)

// Poller performs a single status round-trip for one task.
type Poller interface {
	PollStatus(ctx context.Context, taskID string) (*video.StatusResponse, error)
}

// Ticker abstracts time.Ticker so tests can drive cycles deterministically.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds the cycle ticker. The default uses wall-clock time.
type TickerFactory func(interval time.Duration) Ticker

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time { return t.ticker.C }
func (t *realTicker) Stop()               { t.ticker.Stop() }

func newRealTicker(interval time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(interval)}
}

// Options configures a Tracker.
type Options struct {
	Repo       domain.TaskRepository
	Poller     Poller
	Interval   time.Duration
	Logger     *infra.Logger
	OnTerminal func(rec domain.TaskRecord)
	NewTicker  TickerFactory
}

// Tracker reconciles pending video task records with remote status on a fixed
// cadence. One cycle issues one poll per pending record, concurrently, and
// merges all effects sequentially once every poll has returned. Poll failures
// leave the record pending; it is retried on the next cycle with no backoff
// and no cutoff.
type Tracker struct {
	repo       domain.TaskRepository
	poller     Poller
	interval   time.Duration
	logger     infra.Logger
	onTerminal func(rec domain.TaskRecord)
	newTicker  TickerFactory

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// New constructs a stopped Tracker.
func New(opts Options) (*Tracker, error) {
	if opts.Repo == nil {
		return nil, fmt.Errorf("tracker: repo is required")
	}
	if opts.Poller == nil {
		return nil, fmt.Errorf("tracker: poller is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	factory := opts.NewTicker
	if factory == nil {
		factory = newRealTicker
	}
	var logger infra.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Tracker{
		repo:       opts.Repo,
		poller:     opts.Poller,
		interval:   interval,
		logger:     logger,
		onTerminal: opts.OnTerminal,
		newTicker:  factory,
	}, nil
}

// Start launches the poll loop. Calling Start on a running tracker is a no-op.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	go t.loop(ctx, t.stop, t.done)
	t.logger.Info().Dur("interval", t.interval).Msg("tracker: started")
}

// Stop halts the poll loop and waits for the in-flight cycle to finish.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	stop, done := t.stop, t.done
	t.mu.Unlock()

	close(stop)
	<-done
	t.logger.Info().Msg("tracker: stopped")
}

func (t *Tracker) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := t.newTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C():
			t.RunCycle(ctx)
		}
	}
}

type pollOutcome struct {
	record domain.TaskRecord
	status *video.StatusResponse
}

// RunCycle performs one reconciliation pass: poll every pending record, then
// merge terminal outcomes. A cycle with zero pending records is a no-op.
func (t *Tracker) RunCycle(ctx context.Context) {
	pending, err := t.repo.ListPending(ctx)
	if err != nil {
		t.logger.Error().Err(err).Msg("tracker: list pending tasks failed")
		return
	}
	if len(pending) == 0 {
		return
	}

	outcomes := make([]*pollOutcome, len(pending))
	var wg sync.WaitGroup
	for i, rec := range pending {
		wg.Add(1)
		go func(i int, rec domain.TaskRecord) {
			defer wg.Done()
			status, err := t.poller.PollStatus(ctx, rec.TaskID)
			if err != nil {
				// Transient: leave the record pending, retry next cycle.
				t.logger.Warn().Err(err).Str("task_id", rec.TaskID).Msg("tracker: poll failed")
				return
			}
			outcomes[i] = &pollOutcome{record: rec, status: status}
		}(i, rec)
	}
	wg.Wait()

	for _, outcome := range outcomes {
		if outcome == nil || !outcome.status.Status.Terminal() {
			continue
		}
		t.merge(ctx, outcome)
	}
}

func (t *Tracker) merge(ctx context.Context, outcome *pollOutcome) {
	rec := outcome.record
	status := outcome.status
	updated, err := t.repo.MarkTerminal(ctx, rec.ID, status.Status, status.ResultURL, status.ErrorMessage)
	if err != nil {
		t.logger.Error().Err(err).Str("task_id", rec.TaskID).Msg("tracker: mark terminal failed")
		return
	}
	if !updated {
		// Already terminal; a concurrent writer won the race.
		return
	}
	t.logger.Info().
		Str("task_id", rec.TaskID).
		Str("status", string(status.Status)).
		Msg("tracker: task reached terminal status")
	if t.onTerminal != nil {
		rec.Status = status.Status
		rec.ResultURL = status.ResultURL
		rec.ErrorMessage = status.ErrorMessage
		t.onTerminal(rec)
	}
}
