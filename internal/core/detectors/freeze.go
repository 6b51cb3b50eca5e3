package detectors

import (
	"time"

	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
	"rtcscope/internal/core/events"
	"rtcscope/internal/core/store"
)

// VideoFreeze watches inbound video streams for frozen playback. An
// episode opens when the freeze-duration counter advances over an
// interval and closes once it stops advancing while decoded frames move
// again. The closing event carries the total frozen time accumulated
// over the episode.
type VideoFreeze struct {
	dispatcher *events.Dispatcher
	logger     *zap.SugaredLogger
	states     map[string]*freezeState
}

type freezeState struct {
	active        bool
	frozenSeconds float64
}

func NewVideoFreeze(dispatcher *events.Dispatcher, logger *zap.SugaredLogger) *VideoFreeze {
	return &VideoFreeze{
		dispatcher: dispatcher,
		logger:     logger,
		states:     make(map[string]*freezeState),
	}
}

func (d *VideoFreeze) Name() string { return NameVideoFreeze }

func (d *VideoFreeze) Update(now time.Time, st *store.Store) {
	live := make(map[string]struct{})
	for in := range st.InboundRTPs() {
		if !in.IsVideo() {
			continue
		}
		target := in.ID()
		live[target] = struct{}{}
		s := d.states[target]
		if s == nil {
			s = &freezeState{}
			d.states[target] = s
		}

		deltas := in.Deltas()
		if deltas.DeltaFreezesDuration == nil && deltas.DeltaFreezeCount == nil {
			continue
		}
		freezing := false
		if deltas.DeltaFreezesDuration != nil && *deltas.DeltaFreezesDuration > 0 {
			freezing = true
		}
		if deltas.DeltaFreezeCount != nil && *deltas.DeltaFreezeCount > 0 {
			freezing = true
		}

		if freezing {
			if !s.active {
				s.active = true
				s.frozenSeconds = 0
				d.dispatcher.EmitAlert(domain.AlertEvent{
					Detector:  NameVideoFreeze,
					Target:    target,
					State:     domain.AlertOn,
					Timestamp: now,
				})
				d.dispatcher.EmitIssue(domain.Issue{
					Code:      NameVideoFreeze,
					Severity:  domain.SeverityMinor,
					Target:    target,
					Message:   "video playback frozen",
					Timestamp: now,
				})
			}
			if deltas.DeltaFreezesDuration != nil {
				s.frozenSeconds += *deltas.DeltaFreezesDuration
			}
			continue
		}

		decoding := deltas.DeltaFramesDecoded != nil && *deltas.DeltaFramesDecoded > 0
		if s.active && decoding {
			s.active = false
			d.dispatcher.EmitAlert(domain.AlertEvent{
				Detector:  NameVideoFreeze,
				Target:    target,
				State:     domain.AlertOff,
				Timestamp: now,
				Values:    map[string]float64{"frozenDurationSeconds": s.frozenSeconds},
			})
		}
	}
	forgetStale(d.states, live)
}
