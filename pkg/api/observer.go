package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the executor for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay execution.
type Observer interface {
	// OnRunStart is called once when a run is first started, before any
	// operation is invoked.
	OnRunStart(ctx context.Context, run *Run)

	// OnRunCompleted is called when a run successfully reaches
	// StatusCompleted.
	OnRunCompleted(ctx context.Context, run *Run)

	// OnRunFailed is called when a run transitions to StatusFailed.
	OnRunFailed(ctx context.Context, run *Run, err error)

	// OnAttemptStart is called before each invocation of an operation.
	// index is the 0-based position within a batch (always 0 for retry
	// runs); attempt is 1-based.
	OnAttemptStart(ctx context.Context, run *Run, index, attempt int)

	// OnAttemptCompleted is called after an invocation returns, for both
	// successes and failures (err != nil).
	OnAttemptCompleted(ctx context.Context, run *Run, index, attempt int, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, run *Run)             {}
func (NoopObserver) OnRunCompleted(ctx context.Context, run *Run)         {}
func (NoopObserver) OnRunFailed(ctx context.Context, run *Run, err error) {}
func (NoopObserver) OnAttemptStart(ctx context.Context, run *Run, index, attempt int) {
}
func (NoopObserver) OnAttemptCompleted(ctx context.Context, run *Run, index, attempt int, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, run *Run) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, run)
	}
}

func (c *CompositeObserver) OnRunCompleted(ctx context.Context, run *Run) {
	for _, o := range c.observers {
		o.OnRunCompleted(ctx, run)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, run *Run, err error) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, run, err)
	}
}

func (c *CompositeObserver) OnAttemptStart(ctx context.Context, run *Run, index, attempt int) {
	for _, o := range c.observers {
		o.OnAttemptStart(ctx, run, index, attempt)
	}
}

func (c *CompositeObserver) OnAttemptCompleted(ctx context.Context, run *Run, index, attempt int, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnAttemptCompleted(ctx, run, index, attempt, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run / attempt lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, run *Run) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("run", run.Name),
		slog.String("run_id", run.ID),
		slog.String("kind", string(run.Kind)),
	)
}

func (o *LoggingObserver) OnRunCompleted(ctx context.Context, run *Run) {
	o.Logger.InfoContext(ctx, "run_completed",
		slog.String("run", run.Name),
		slog.String("run_id", run.ID),
		slog.String("kind", string(run.Kind)),
	)
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, run *Run, err error) {
	o.Logger.ErrorContext(ctx, "run_failed",
		slog.String("run", run.Name),
		slog.String("run_id", run.ID),
		slog.String("kind", string(run.Kind)),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnAttemptStart(ctx context.Context, run *Run, index, attempt int) {
	o.Logger.DebugContext(ctx, "attempt_start",
		slog.String("run", run.Name),
		slog.String("run_id", run.ID),
		slog.Int("index", index),
		slog.Int("attempt", attempt),
	)
}

func (o *LoggingObserver) OnAttemptCompleted(ctx context.Context, run *Run, index, attempt int, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	o.Logger.Log(ctx, level, "attempt_completed",
		slog.String("run", run.Name),
		slog.String("run_id", run.ID),
		slog.Int("index", index),
		slog.Int("attempt", attempt),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate attempt durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted          atomic.Int64
	runsCompleted        atomic.Int64
	runsFailed           atomic.Int64
	attemptsCompleted    atomic.Int64
	attemptsFailed       atomic.Int64
	totalAttemptDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	PendingRuns   int64

	AttemptsCompleted  int64
	AttemptsFailed     int64
	AvgAttemptDuration time.Duration
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, run *Run) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunCompleted(ctx context.Context, run *Run) {
	m.runsCompleted.Add(1)
}

func (m *BasicMetrics) OnRunFailed(ctx context.Context, run *Run, err error) {
	m.runsFailed.Add(1)
}

func (m *BasicMetrics) OnAttemptCompleted(ctx context.Context, run *Run, index, attempt int, err error, d time.Duration) {
	if err != nil {
		m.attemptsFailed.Add(1)
		return
	}
	// Only successful attempts count toward the average duration.
	m.attemptsCompleted.Add(1)
	m.totalAttemptDuration.Add(d.Nanoseconds())
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	completed := m.runsCompleted.Load()
	failed := m.runsFailed.Load()
	attempts := m.attemptsCompleted.Load()
	totalNs := m.totalAttemptDuration.Load()

	var avg time.Duration
	if attempts > 0 {
		avg = time.Duration(totalNs / attempts)
	}

	return BasicMetricsSnapshot{
		RunsStarted:        started,
		RunsCompleted:      completed,
		RunsFailed:         failed,
		PendingRuns:        started - completed - failed,
		AttemptsCompleted:  attempts,
		AttemptsFailed:     m.attemptsFailed.Load(),
		AvgAttemptDuration: avg,
	}
}
