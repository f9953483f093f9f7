// Package plugin embeds the reporter into a host. It loads configuration, owns the reporter
// lifecycle and offers manual sends that never take the host down.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hytalede/statistics/internal/config"
	"github.com/hytalede/statistics/internal/dispatch"
	"github.com/hytalede/statistics/internal/domain"
	"github.com/hytalede/statistics/internal/reporter"
	"github.com/hytalede/statistics/pkg/log"
	"go.uber.org/ratelimit"
)

var ErrClosed = errors.New("statistics plugin is closed")

// ConfigLoader produces validated settings. config.Store implements it.
type ConfigLoader interface {
	Load() (config.Settings, error)
}

type Option func(*Plugin)

// WithReporterOptions are applied to every reporter the plugin creates.
func WithReporterOptions(opts ...reporter.Option) Option {
	return func(p *Plugin) {
		p.reporterOpts = append(p.reporterOpts, opts...)
	}
}

// WithLimiter paces manual sends. Defaults to one send per second.
func WithLimiter(limiter ratelimit.Limiter) Option {
	return func(p *Plugin) {
		p.limiter = limiter
	}
}

// Result is delivered by SendOnceNowAsync.
type Result struct {
	Result dispatch.SendResult
	Err    error
}

type Plugin struct {
	loader       ConfigLoader
	source       domain.SnapshotSource
	reporterOpts []reporter.Option
	limiter      ratelimit.Limiter

	mu       sync.Mutex
	reporter *reporter.Reporter
	closed   bool

	asyncCtx    context.Context //nolint:containedctx
	asyncCancel context.CancelFunc
	asyncWG     sync.WaitGroup
}

func New(loader ConfigLoader, source domain.SnapshotSource, opts ...Option) (*Plugin, error) {
	if loader == nil || source == nil {
		return nil, fmt.Errorf("%w: config loader and snapshot source are required", domain.ErrNotInitialized)
	}

	asyncCtx, asyncCancel := context.WithCancel(context.Background())

	plugin := &Plugin{
		loader:      loader,
		source:      source,
		limiter:     ratelimit.New(1),
		asyncCtx:    asyncCtx,
		asyncCancel: asyncCancel,
	}

	for _, opt := range opts {
		opt(plugin)
	}

	return plugin, nil
}

// Start loads the config and starts the scheduled reporter. Starting twice does nothing.
func (p *Plugin) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	if p.reporter != nil {
		return nil
	}

	rep, errReporter := p.newReporter()
	if errReporter != nil {
		return errReporter
	}

	rep.Start()
	p.reporter = rep

	return nil
}

// StartSafely is Start for hosts that must not fail on configuration or IO problems.
// Returns true when the reporter is running.
func (p *Plugin) StartSafely() bool {
	if errStart := p.Start(); errStart != nil {
		slog.Error("Failed to start statistics plugin", log.ErrAttr(errStart))

		return false
	}

	return true
}

func (p *Plugin) newReporter() (*reporter.Reporter, error) {
	settings, errLoad := p.loader.Load()
	if errLoad != nil {
		return nil, errLoad
	}

	return reporter.New(settings.Reporter, p.source, p.reporterOpts...)
}

// SendOnceNow sends one payload immediately. A running reporter is reused, otherwise the config is
// loaded and a one shot reporter is used without starting its schedule.
func (p *Plugin) SendOnceNow(ctx context.Context) (result dispatch.SendResult, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", reporter.ErrPanic, recovered)
		}
	}()

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		return dispatch.SendResult{}, ErrClosed
	}

	if errCtx := ctx.Err(); errCtx != nil {
		return dispatch.SendResult{}, errCtx
	}

	p.limiter.Take()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()

		return dispatch.SendResult{}, ErrClosed
	}

	running := p.reporter
	p.mu.Unlock()

	if running != nil {
		return running.SendOnce(ctx)
	}

	oneShot, errReporter := p.newReporter()
	if errReporter != nil {
		return dispatch.SendResult{}, errReporter
	}

	defer oneShot.Close()

	return oneShot.SendOnce(ctx)
}

// SendOnceNowAsync runs SendOnceNow on its own goroutine. The returned channel receives exactly one
// Result. Closing the plugin cancels pending sends.
func (p *Plugin) SendOnceNowAsync(ctx context.Context) <-chan Result {
	results := make(chan Result, 1)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		results <- Result{Err: ErrClosed}

		return results
	}

	sendCtx, cancel := context.WithCancel(p.asyncCtx)
	stop := context.AfterFunc(ctx, cancel)

	p.asyncWG.Add(1)

	go func() {
		defer p.asyncWG.Done()
		defer cancel()
		defer stop()

		result, errSend := p.SendOnceNow(sendCtx)
		results <- Result{Result: result, Err: errSend}
	}()

	return results
}

// Close stops the reporter and cancels pending async sends. Safe to call more than once.
func (p *Plugin) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()

		return
	}

	p.closed = true
	running := p.reporter
	p.reporter = nil
	p.mu.Unlock()

	if running != nil {
		running.Close()
	}

	p.asyncCancel()

	done := make(chan struct{})

	go func() {
		p.asyncWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(reporter.DefaultGracePeriod):
		slog.Warn("Pending manual statistics sends did not finish in time")
	}
}

// Status describes the plugin for the status endpoint.
type Status struct {
	State      string        `json:"state"`
	Endpoint   string        `json:"endpoint,omitempty"`
	VanityURL  string        `json:"vanity_url,omitempty"`
	Interval   string        `json:"interval,omitempty"`
	LastReport *ReportStatus `json:"last_report,omitempty"`
}

type ReportStatus struct {
	Trigger    string    `json:"trigger"`
	Started    time.Time `json:"started"`
	DurationMs int64     `json:"duration_ms"`
	LatencyMs  int64     `json:"latency_ms"`
	StatusCode int       `json:"status_code"`
	Accepted   bool      `json:"accepted"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
}

func (p *Plugin) Status() Status {
	p.mu.Lock()
	closed, running := p.closed, p.reporter
	p.mu.Unlock()

	switch {
	case closed:
		return Status{State: reporter.Closed.String()}
	case running == nil:
		return Status{State: reporter.Idle.String()}
	}

	conf := running.Config()
	status := Status{
		State:     running.State().String(),
		Endpoint:  conf.TelemetryEndpoint(),
		VanityURL: conf.VanityURL(),
		Interval:  conf.Interval().String(),
	}

	if report, ok := running.LastReport(); ok {
		verdict := report.Verdict(conf.TelemetryEndpoint())
		status.LastReport = &ReportStatus{
			Trigger:    report.Trigger,
			Started:    report.Started,
			DurationMs: report.Duration.Milliseconds(),
			LatencyMs:  report.LatencyMs,
			StatusCode: report.Result.StatusCode,
			Accepted:   verdict.Accepted,
			Message:    verdict.Message,
		}

		if report.Err != nil {
			status.LastReport.Error = report.Err.Error()
		}
	}

	return status
}
