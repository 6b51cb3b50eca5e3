package detectors

import (
	"time"

	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
	"rtcscope/internal/core/events"
	"rtcscope/internal/core/store"
)

// CPUPerformanceConfig tunes the dropped-frame fraction thresholds.
type CPUPerformanceConfig struct {
	AlertOnThreshold  float64
	AlertOffThreshold float64
}

func DefaultCPUPerformanceConfig() CPUPerformanceConfig {
	return CPUPerformanceConfig{
		AlertOnThreshold:  0.1,
		AlertOffThreshold: 0.05,
	}
}

// CPUPerformance flags peer connections starved for processing time.
// Two signals feed it: the fraction of incoming video frames dropped
// before decode over the interval, and any outbound stream reporting
// the cpu quality limitation. The encoder signal forces the alert on
// regardless of the dropped-frame fraction.
type CPUPerformance struct {
	threshold  Threshold
	dispatcher *events.Dispatcher
	logger     *zap.SugaredLogger
	states     map[string]*cpuState
}

type cpuState struct {
	active bool
}

func NewCPUPerformance(cfg CPUPerformanceConfig, dispatcher *events.Dispatcher, logger *zap.SugaredLogger) (*CPUPerformance, error) {
	threshold, err := NewThreshold(Above, cfg.AlertOnThreshold, cfg.AlertOffThreshold)
	if err != nil {
		return nil, err
	}
	return &CPUPerformance{
		threshold:  threshold,
		dispatcher: dispatcher,
		logger:     logger,
		states:     make(map[string]*cpuState),
	}, nil
}

func (d *CPUPerformance) Name() string { return NameCPUPerformance }

func (d *CPUPerformance) Update(now time.Time, st *store.Store) {
	live := make(map[string]struct{})
	for pc := range st.PeerConnections() {
		target := pc.ID()
		live[target] = struct{}{}
		s := d.states[target]
		if s == nil {
			s = &cpuState{}
			d.states[target] = s
		}

		var dropped, received float64
		for in := range pc.InboundRTPs() {
			if !in.IsVideo() {
				continue
			}
			deltas := in.Deltas()
			if deltas.DeltaFramesDropped != nil {
				dropped += float64(*deltas.DeltaFramesDropped)
			}
			if deltas.DeltaFramesReceived != nil {
				received += float64(*deltas.DeltaFramesReceived)
			}
		}
		limitedCPU := false
		for out := range pc.OutboundRTPs() {
			reason := out.Record().QualityLimitationReason
			if reason != nil && *reason == "cpu" {
				limitedCPU = true
				break
			}
		}
		if !s.active && dropped+received == 0 && !limitedCPU {
			continue
		}

		var fraction float64
		if dropped+received > 0 {
			fraction = dropped / (dropped + received)
		}
		next := d.threshold.Next(s.active, fraction) || limitedCPU
		switch {
		case next && !s.active:
			s.active = true
			d.dispatcher.EmitAlert(domain.AlertEvent{
				Detector:  NameCPUPerformance,
				Target:    target,
				State:     domain.AlertOn,
				Timestamp: now,
				Values:    map[string]float64{"droppedFramesFraction": fraction},
			})
			d.dispatcher.EmitIssue(domain.Issue{
				Code:      NameCPUPerformance,
				Severity:  domain.SeverityMajor,
				Target:    target,
				Message:   "media processing starved for cpu",
				Timestamp: now,
			})
		case !next && s.active:
			s.active = false
			d.dispatcher.EmitAlert(domain.AlertEvent{
				Detector:  NameCPUPerformance,
				Target:    target,
				State:     domain.AlertOff,
				Timestamp: now,
				Values:    map[string]float64{"droppedFramesFraction": fraction},
			})
		}
	}
	forgetStale(d.states, live)
}
