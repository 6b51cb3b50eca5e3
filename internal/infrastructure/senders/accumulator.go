package senders

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
	"rtcscope/internal/core/ports"
)

const (
	defaultMaxBatch      = 10
	defaultFlushInterval = 5 * time.Second
)

// Accumulator buffers finished samples and forwards them to a sink in
// batches, either when the batch fills or when the flush interval fires.
// It owns the sink: Close flushes whatever is pending and closes it.
type Accumulator struct {
	maxBatch      int
	flushInterval time.Duration
	sink          ports.SampleSink
	logger        *zap.SugaredLogger

	mu      sync.Mutex
	pending []*domain.ClientSample

	flushChan chan struct{}
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewAccumulator creates an accumulator draining into sink and starts its
// flush loop.
func NewAccumulator(sink ports.SampleSink, maxBatch int, flushInterval time.Duration, logger *zap.SugaredLogger) *Accumulator {
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatch
	}
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	a := &Accumulator{
		maxBatch:      maxBatch,
		flushInterval: flushInterval,
		sink:          sink,
		logger:        logger,
		pending:       make([]*domain.ClientSample, 0, maxBatch),
		flushChan:     make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
	}

	a.wg.Add(1)
	go a.run()

	return a
}

// Enqueue adds a sample to the current batch. Safe to hand to
// Monitor.OnSample directly.
func (a *Accumulator) Enqueue(sample *domain.ClientSample) {
	if sample == nil {
		return
	}

	a.mu.Lock()
	a.pending = append(a.pending, sample)
	shouldFlush := len(a.pending) >= a.maxBatch
	a.mu.Unlock()

	if shouldFlush {
		select {
		case a.flushChan <- struct{}{}:
		default:
		}
	}
}

// Flush sends all pending samples immediately. A failed send drops the
// batch; the sink is expected to retry transient errors itself.
func (a *Accumulator) Flush(ctx context.Context) error {
	a.mu.Lock()
	if len(a.pending) == 0 {
		a.mu.Unlock()
		return nil
	}

	batch := make([]*domain.ClientSample, len(a.pending))
	copy(batch, a.pending)
	a.pending = a.pending[:0]
	a.mu.Unlock()

	if err := a.sink.Send(ctx, batch); err != nil {
		a.dropped.Add(uint64(len(batch)))
		a.logger.Warnw("sample batch dropped",
			"batch_size", len(batch),
			"error", err,
		)
		return err
	}

	a.sent.Add(uint64(len(batch)))
	return nil
}

func (a *Accumulator) run() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = a.Flush(context.Background())
		case <-a.flushChan:
			_ = a.Flush(context.Background())
		case <-a.stopChan:
			_ = a.Flush(context.Background())
			return
		}
	}
}

// Close stops the flush loop, sends whatever is still pending and closes
// the sink.
func (a *Accumulator) Close() error {
	a.stopOnce.Do(func() {
		close(a.stopChan)
	})
	a.wg.Wait()
	return a.sink.Close()
}

// Pending returns the number of buffered samples.
func (a *Accumulator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Sent returns the number of samples delivered so far.
func (a *Accumulator) Sent() uint64 {
	return a.sent.Load()
}

// Dropped returns the number of samples lost to failed sends.
func (a *Accumulator) Dropped() uint64 {
	return a.dropped.Load()
}
