// Package reporter periodically measures, builds and sends telemetry reports.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hytalede/statistics/internal/config"
	"github.com/hytalede/statistics/internal/dispatch"
	"github.com/hytalede/statistics/internal/domain"
	"github.com/hytalede/statistics/internal/payload"
	"github.com/hytalede/statistics/internal/probe"
	"github.com/hytalede/statistics/pkg/httpio"
)

// DefaultGracePeriod is how long Close waits for an in-flight tick before aborting it.
const DefaultGracePeriod = 5 * time.Second

var ErrPanic = errors.New("recovered from panic")

type State int

const (
	Idle State = iota
	Running
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Report describes a single measure, build and dispatch cycle.
type Report struct {
	Trigger   string
	Started   time.Time
	Duration  time.Duration
	LatencyMs int64
	// Measured is false when the cycle failed before latency was probed.
	Measured bool
	Result   dispatch.SendResult
	Err      error
}

// Verdict classifies the report for logging.
func (r Report) Verdict(endpoint string) dispatch.Verdict {
	if r.Err != nil {
		return dispatch.ClassifyError(r.Err, endpoint)
	}

	return dispatch.Classify(r.Result, endpoint)
}

type Option func(*Reporter)

func WithGracePeriod(period time.Duration) Option {
	return func(r *Reporter) {
		if period > 0 {
			r.gracePeriod = period
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(r *Reporter) {
		r.metrics = metrics
	}
}

func WithPingAttempts(attempts int) Option {
	return func(r *Reporter) {
		r.pingAttempts = max(1, attempts)
	}
}

// WithHTTPClient shares client between the prober and the dispatcher. By default a client using
// the configured connect timeout is created.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Reporter) {
		if client != nil {
			r.client = client
		}
	}
}

// Reporter runs one scheduled send per interval on its own goroutine. At most one scheduled send
// is in flight at any time. Manual sends via SendOnce are independent of the schedule.
type Reporter struct {
	conf         config.Config
	source       domain.SnapshotSource
	client       *http.Client
	prober       *probe.Prober
	dispatcher   *dispatch.Dispatcher
	metrics      *Metrics
	interval     time.Duration
	gracePeriod  time.Duration
	pingAttempts int

	mu             sync.Mutex
	state          State
	scheduleCancel context.CancelFunc
	workCancel     context.CancelFunc
	done           chan struct{}

	lastMu sync.RWMutex
	last   *Report
}

func New(conf config.Config, source domain.SnapshotSource, opts ...Option) (*Reporter, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: snapshot source must not be nil", domain.ErrNotInitialized)
	}

	if conf.Interval() <= 0 {
		return nil, fmt.Errorf("%w: config was not created with config.New", domain.ErrNotInitialized)
	}

	reporter := &Reporter{
		conf:         conf,
		source:       source,
		interval:     conf.Interval(),
		gracePeriod:  DefaultGracePeriod,
		pingAttempts: probe.DefaultAttempts,
	}

	for _, opt := range opts {
		opt(reporter)
	}

	if reporter.client == nil {
		reporter.client = httpio.NewHTTPClient(conf.ConnectTimeout())
	}

	reporter.prober = probe.New(reporter.client)
	reporter.dispatcher = dispatch.New(reporter.client)

	return reporter, nil
}

// Start launches the scheduler. The first tick runs immediately. Calling Start on a running
// reporter does nothing, a closed reporter cannot be restarted.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case Running:
		return
	case Closed:
		slog.Warn("Statistics reporter start called after close, ignoring")

		return
	case Idle:
	}

	scheduleCtx, scheduleCancel := context.WithCancel(context.Background())
	workCtx, workCancel := context.WithCancel(context.Background())

	r.scheduleCancel = scheduleCancel
	r.workCancel = workCancel
	r.done = make(chan struct{})
	r.state = Running

	go r.run(scheduleCtx, workCtx, r.done)

	slog.Info("Statistics reporter started", slog.Duration("interval", r.interval),
		slog.String("endpoint", r.conf.TelemetryEndpoint()))
}

// run drives the schedule. A time.Ticker buffers at most one pending tick, so a tick that overruns
// the interval is followed by a single catch up tick rather than a burst.
func (r *Reporter) run(scheduleCtx context.Context, workCtx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if scheduleCtx.Err() != nil {
		return
	}

	r.tick(workCtx)

	for {
		select {
		case <-scheduleCtx.Done():
			return
		case <-ticker.C:
			if scheduleCtx.Err() != nil {
				return
			}

			r.tick(workCtx)
		}
	}
}

func (r *Reporter) tick(ctx context.Context) {
	defer func() {
		if recovered := recover(); recovered != nil {
			report := Report{
				Trigger: TriggerScheduled,
				Started: time.Now(),
				Err:     fmt.Errorf("%w: %v", ErrPanic, recovered),
			}

			r.record(report)
			slog.Error("Statistics tick failed", slog.Any("panic", recovered))
		}
	}()

	report := r.send(ctx, TriggerScheduled)

	report.Verdict(r.conf.TelemetryEndpoint()).Log(ctx,
		slog.String("trigger", report.Trigger),
		slog.Int64("latency_ms", report.LatencyMs),
		slog.Duration("duration", report.Duration))
}

// SendOnce performs one synchronous cycle and returns its result. It works in every state and may
// overlap a scheduled tick.
func (r *Reporter) SendOnce(ctx context.Context) (dispatch.SendResult, error) {
	report := r.send(ctx, TriggerManual)

	return report.Result, report.Err
}

func (r *Reporter) send(ctx context.Context, trigger string) Report {
	report := Report{Trigger: trigger, Started: time.Now()}

	report.LatencyMs = r.prober.MedianLatency(ctx, r.conf.PingEndpoint(), r.conf.ReadTimeout(), r.pingAttempts)
	report.Measured = true

	doc, errBuild := payload.Build(r.conf, r.source.Snapshot(), report.LatencyMs)
	if errBuild != nil {
		report.Err = errBuild
	} else {
		report.Result, report.Err = r.dispatcher.Send(ctx, r.conf, doc)
	}

	report.Duration = time.Since(report.Started)
	r.record(report)

	return report
}

func (r *Reporter) record(report Report) {
	r.metrics.observe(report.Trigger, report)

	r.lastMu.Lock()
	r.last = &report
	r.lastMu.Unlock()
}

// Close stops the scheduler. An in-flight tick gets the grace period to finish, after which its
// context is cancelled. Close is idempotent and a closed reporter refuses Start.
func (r *Reporter) Close() {
	r.mu.Lock()
	if r.state == Closed {
		r.mu.Unlock()

		return
	}

	previous := r.state
	r.state = Closed
	scheduleCancel, workCancel, done := r.scheduleCancel, r.workCancel, r.done
	r.mu.Unlock()

	if previous != Running {
		return
	}

	scheduleCancel()
	defer workCancel()

	select {
	case <-done:
		slog.Info("Statistics reporter stopped")

		return
	case <-time.After(r.gracePeriod):
	}

	slog.Warn("Statistics reporter did not stop within grace period, aborting in-flight send",
		slog.Duration("grace_period", r.gracePeriod))
	workCancel()

	select {
	case <-done:
	case <-time.After(r.gracePeriod):
		slog.Error("Statistics reporter worker still busy after abort")
	}
}

func (r *Reporter) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// LastReport returns the most recent cycle, scheduled or manual.
func (r *Reporter) LastReport() (Report, bool) {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()

	if r.last == nil {
		return Report{}, false
	}

	return *r.last, true
}

func (r *Reporter) Config() config.Config {
	return r.conf
}
