package senders

import (
	"context"

	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
	"rtcscope/internal/core/ports"
	"rtcscope/pkg/circuitbreaker"
)

// BreakerSink wraps a SampleSink with a circuit breaker so a backend
// that stays down is not redialed on every flush. While the breaker is
// open, Send fails immediately and the accumulator counts the batch
// dropped; after the cool-down the breaker probes the sink again.
type BreakerSink struct {
	sink    ports.SampleSink
	breaker *circuitbreaker.CircuitBreaker
}

func NewBreakerSink(sink ports.SampleSink, cfg circuitbreaker.Config, logger *zap.SugaredLogger) *BreakerSink {
	cb := circuitbreaker.New(cfg)
	cb.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Infow("sample sink circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})
	return &BreakerSink{sink: sink, breaker: cb}
}

func (s *BreakerSink) Send(ctx context.Context, batch []*domain.ClientSample) error {
	return s.breaker.Execute(ctx, func() error {
		return s.sink.Send(ctx, batch)
	})
}

func (s *BreakerSink) Close() error {
	return s.sink.Close()
}

// State reports the breaker position, for health reporting.
func (s *BreakerSink) State() circuitbreaker.State {
	return s.breaker.GetState()
}
