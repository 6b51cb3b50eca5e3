package detectors

import (
	"time"

	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
	"rtcscope/internal/core/events"
	"rtcscope/internal/core/store"
)

// StuckTrackConfig tunes how long an inbound stream may sit without
// packet progress before it counts as stuck.
type StuckTrackConfig struct {
	MinStuckDuration time.Duration
}

func DefaultStuckTrackConfig() StuckTrackConfig {
	return StuckTrackConfig{MinStuckDuration: 5 * time.Second}
}

// StuckTrack flags inbound streams whose packet counter stops moving
// while the track is still expected to deliver media. It fires once per
// stuck episode, once the stall has lasted at least MinStuckDuration,
// and clears when packets resume. Tracks reported as ended are not
// expected to progress and reset the episode.
type StuckTrack struct {
	cfg        StuckTrackConfig
	dispatcher *events.Dispatcher
	logger     *zap.SugaredLogger
	states     map[string]*stuckState
}

type stuckState struct {
	fired        bool
	lastProgress time.Time
}

func NewStuckTrack(cfg StuckTrackConfig, dispatcher *events.Dispatcher, logger *zap.SugaredLogger) *StuckTrack {
	if cfg.MinStuckDuration <= 0 {
		cfg.MinStuckDuration = DefaultStuckTrackConfig().MinStuckDuration
	}
	return &StuckTrack{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
		states:     make(map[string]*stuckState),
	}
}

func (d *StuckTrack) Name() string { return NameStuckTrack }

func (d *StuckTrack) Update(now time.Time, st *store.Store) {
	live := make(map[string]struct{})
	for in := range st.InboundRTPs() {
		target := in.ID()
		if track, ok := in.Track(); ok && track.Ended() {
			delete(d.states, target)
			continue
		}
		live[target] = struct{}{}
		s := d.states[target]
		if s == nil {
			s = &stuckState{lastProgress: now}
			d.states[target] = s
			continue
		}

		deltas := in.Deltas()
		if deltas.DeltaPacketsReceived != nil && *deltas.DeltaPacketsReceived > 0 {
			if s.fired {
				d.dispatcher.EmitAlert(domain.AlertEvent{
					Detector:  NameStuckTrack,
					Target:    target,
					State:     domain.AlertOff,
					Timestamp: now,
					Values:    map[string]float64{"stuckDurationSeconds": now.Sub(s.lastProgress).Seconds()},
				})
			}
			s.fired = false
			s.lastProgress = now
			continue
		}

		stuckFor := now.Sub(s.lastProgress)
		if !s.fired && stuckFor >= d.cfg.MinStuckDuration {
			s.fired = true
			d.dispatcher.EmitAlert(domain.AlertEvent{
				Detector:  NameStuckTrack,
				Target:    target,
				State:     domain.AlertOn,
				Timestamp: now,
				Values:    map[string]float64{"stuckDurationSeconds": stuckFor.Seconds()},
			})
			d.dispatcher.EmitIssue(domain.Issue{
				Code:      NameStuckTrack,
				Severity:  domain.SeverityMajor,
				Target:    target,
				Message:   "inbound stream stopped receiving packets",
				Timestamp: now,
			})
		}
	}
	forgetStale(d.states, live)
}
