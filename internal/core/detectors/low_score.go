package detectors

import (
	"time"

	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
	"rtcscope/internal/core/events"
	"rtcscope/internal/core/scoring"
	"rtcscope/internal/core/store"
)

// LowScoreConfig tunes the mean-opinion-score thresholds.
type LowScoreConfig struct {
	AlertOnThreshold  float64
	AlertOffThreshold float64
}

func DefaultLowScoreConfig() LowScoreConfig {
	return LowScoreConfig{
		AlertOnThreshold:  2.5,
		AlertOffThreshold: 3.0,
	}
}

// LowScore raises when a peer connection's rolling quality score drops
// below the on threshold and clears once it recovers past the off
// threshold.
type LowScore struct {
	threshold  Threshold
	scorer     *scoring.Scorer
	dispatcher *events.Dispatcher
	logger     *zap.SugaredLogger
	states     map[string]*lowScoreState
}

type lowScoreState struct {
	active bool
}

func NewLowScore(cfg LowScoreConfig, scorer *scoring.Scorer, dispatcher *events.Dispatcher, logger *zap.SugaredLogger) (*LowScore, error) {
	threshold, err := NewThreshold(Below, cfg.AlertOnThreshold, cfg.AlertOffThreshold)
	if err != nil {
		return nil, err
	}
	return &LowScore{
		threshold:  threshold,
		scorer:     scorer,
		dispatcher: dispatcher,
		logger:     logger,
		states:     make(map[string]*lowScoreState),
	}, nil
}

func (d *LowScore) Name() string { return NameLowScore }

func (d *LowScore) Update(now time.Time, st *store.Store) {
	live := make(map[string]struct{})
	for pc := range st.PeerConnections() {
		target := pc.ID()
		live[target] = struct{}{}
		score, ok := d.scorer.Average(target)
		if !ok {
			continue
		}
		s := d.states[target]
		if s == nil {
			s = &lowScoreState{}
			d.states[target] = s
		}

		next := d.threshold.Next(s.active, score)
		switch {
		case next && !s.active:
			s.active = true
			d.dispatcher.EmitAlert(domain.AlertEvent{
				Detector:  NameLowScore,
				Target:    target,
				State:     domain.AlertOn,
				Timestamp: now,
				Values:    map[string]float64{"score": score},
			})
			d.dispatcher.EmitIssue(domain.Issue{
				Code:      NameLowScore,
				Severity:  domain.SeverityMajor,
				Target:    target,
				Message:   "call quality degraded",
				Timestamp: now,
			})
		case !next && s.active:
			s.active = false
			d.dispatcher.EmitAlert(domain.AlertEvent{
				Detector:  NameLowScore,
				Target:    target,
				State:     domain.AlertOff,
				Timestamp: now,
				Values:    map[string]float64{"score": score},
			})
		}
	}
	forgetStale(d.states, live)
}
