package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"rtcscope/internal/core/detectors"
	"rtcscope/internal/core/domain"
	"rtcscope/internal/core/ports"
	"rtcscope/internal/core/scoring"
	"rtcscope/internal/core/store"
	"rtcscope/pkg/tracing"
)

// EmitFunc receives the finished sample of one cycle. Consumers run on
// the monitor goroutine and should hand the sample off quickly.
type EmitFunc func(*domain.ClientSample)

// MonitorConfig tunes the observation cadence.
type MonitorConfig struct {
	Interval       time.Duration
	CollectTimeout time.Duration
	Now            func() time.Time
}

// Monitor owns the observation cycle: collect from every attached
// source, commit the store, run the detectors and the scorer, build the
// sample and fan it out. Cycles run strictly one at a time; attaching
// and detaching collectors serializes against the running cycle.
type Monitor struct {
	cfg      MonitorConfig
	store    *store.Store
	registry *detectors.Registry
	scorer   *scoring.Scorer
	sampler  *Sampler
	logger   *zap.SugaredLogger
	now      func() time.Time

	mu         sync.Mutex
	collectors []ports.Collector
	emit       []EmitFunc
	closed     bool

	cycles       atomic.Uint64
	skippedTicks atomic.Uint64
	rejected     atomic.Uint64
}

func NewMonitor(cfg MonitorConfig, st *store.Store, registry *detectors.Registry, scorer *scoring.Scorer, sampler *Sampler, logger *zap.SugaredLogger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.CollectTimeout <= 0 || cfg.CollectTimeout > cfg.Interval {
		cfg.CollectTimeout = cfg.Interval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		cfg:      cfg,
		store:    st,
		registry: registry,
		scorer:   scorer,
		sampler:  sampler,
		logger:   logger,
		now:      now,
	}
}

// AttachCollector registers a stats source. Safe to call while the
// monitor runs; the collector joins the next cycle.
func (m *Monitor) AttachCollector(c ports.Collector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrMonitorClosed
	}
	if err := m.store.Register(c.ID(), c.Label()); err != nil {
		return err
	}
	m.collectors = append(m.collectors, c)
	m.logger.Infow("collector attached", "collector", c.ID(), "label", c.Label())
	return nil
}

// DetachCollector closes one stats source and drops its entities from
// the store.
func (m *Monitor) DetachCollector(id domain.CollectorID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.collectors {
		if c.ID() != id {
			continue
		}
		m.collectors = append(m.collectors[:i], m.collectors[i+1:]...)
		m.store.CloseCollector(id)
		err := c.Close()
		m.logger.Infow("collector detached", "collector", id)
		return err
	}
	return fmt.Errorf("%w: %s", domain.ErrUnknownCollector, id)
}

// OnSample adds a consumer for finished samples.
func (m *Monitor) OnSample(fn EmitFunc) {
	m.mu.Lock()
	m.emit = append(m.emit, fn)
	m.mu.Unlock()
}

func (m *Monitor) Cycles() uint64          { return m.cycles.Load() }
func (m *Monitor) SkippedTicks() uint64    { return m.skippedTicks.Load() }
func (m *Monitor) RejectedRecords() uint64 { return m.rejected.Load() }

// Run drives cycles at the configured interval until the context is
// canceled or the monitor is closed. A cycle that overruns the interval
// swallows the tick that queued up behind it, so cycles never stack.
func (m *Monitor) Run(ctx context.Context) error {
	if m.isClosed() {
		return domain.ErrMonitorClosed
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	m.logger.Infow("monitor running", "interval", m.cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Infow("monitor stopped",
				"cycles", m.cycles.Load(),
				"skippedTicks", m.skippedTicks.Load())
			return nil
		case <-ticker.C:
			if m.isClosed() {
				return domain.ErrMonitorClosed
			}
			m.RunOnce(ctx)
			select {
			case <-ticker.C:
				m.skippedTicks.Add(1)
				m.logger.Debugw("cycle overran interval, tick skipped", "interval", m.cfg.Interval)
			default:
			}
		}
	}
}

// RunOnce executes a single cycle and returns the sample it produced,
// or nil after Close. Exposed so embedders and tests can pump the
// monitor manually instead of running the ticker loop.
func (m *Monitor) RunOnce(ctx context.Context) *domain.ClientSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "monitor.cycle")
	defer span.End()
	now := m.now()

	m.collect(ctx)
	m.store.Commit()

	_, detectSpan := tracing.StartSpan(ctx, "monitor.detect")
	m.registry.UpdateAll(now, m.store)
	detectSpan.End()

	m.scorer.Update(now, m.store)

	_, sampleSpan := tracing.StartSpan(ctx, "monitor.sample")
	sample := m.sampler.Build(now, m.store)
	sampleSpan.End()
	tracing.AddSpanAttributes(ctx,
		attribute.Int("sample.peer_connections", len(sample.PeerConnections)),
		attribute.Int("sample.alerts", len(sample.Alerts)),
	)

	for _, fn := range m.emit {
		m.deliver(fn, sample)
	}
	m.cycles.Add(1)
	return sample
}

func (m *Monitor) collect(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "monitor.collect")
	defer span.End()

	accepted := 0
	for _, c := range m.collectors {
		cctx, cancel := context.WithTimeout(ctx, m.cfg.CollectTimeout)
		records, err := c.Collect(cctx)
		cancel()
		if err != nil {
			tracing.RecordError(ctx, err)
			m.logger.Warnw("collector failed", "collector", c.ID(), "error", err)
			continue
		}
		for _, rec := range records {
			if err := m.store.Accept(c.ID(), rec); err != nil {
				m.rejected.Add(1)
				m.logger.Debugw("record rejected", "collector", c.ID(), "kind", rec.Kind, "error", err)
				continue
			}
			accepted++
		}
	}
	tracing.AddSpanAttributes(ctx, attribute.Int("records.accepted", accepted))
}

func (m *Monitor) deliver(fn EmitFunc, sample *domain.ClientSample) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Warnw("sample consumer panicked", "panic", rec)
		}
	}()
	fn(sample)
}

func (m *Monitor) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close stops the cycle, closes every collector and clears the store.
// Safe to call more than once.
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var firstErr error
	for _, c := range m.collectors {
		m.store.CloseCollector(c.ID())
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.collectors = nil
	m.store.Clear()
	m.logger.Infow("monitor closed", "cycles", m.cycles.Load())
	return firstErr
}
