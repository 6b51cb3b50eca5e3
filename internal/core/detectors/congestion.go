package detectors

import (
	"time"

	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
	"rtcscope/internal/core/events"
	"rtcscope/internal/core/store"
)

// Congestion watches for peer connections whose sending is limited by
// available bandwidth. A connection is congested while any of its
// outbound streams reports the bandwidth quality limitation. The alert
// carries the available outgoing bitrate from the last uncongested
// cycle and from the cycle the congestion began, so the drop is visible
// in the event itself.
type Congestion struct {
	dispatcher *events.Dispatcher
	logger     *zap.SugaredLogger
	states     map[string]*congestionState
}

type congestionState struct {
	active          bool
	lastGoodBitrate float64
	hasGood         bool
}

func NewCongestion(dispatcher *events.Dispatcher, logger *zap.SugaredLogger) *Congestion {
	return &Congestion{
		dispatcher: dispatcher,
		logger:     logger,
		states:     make(map[string]*congestionState),
	}
}

func (d *Congestion) Name() string { return NameCongestion }

func (d *Congestion) Update(now time.Time, st *store.Store) {
	live := make(map[string]struct{})
	for pc := range st.PeerConnections() {
		target := pc.ID()
		live[target] = struct{}{}
		s := d.states[target]
		if s == nil {
			s = &congestionState{}
			d.states[target] = s
		}

		limited := false
		for out := range pc.OutboundRTPs() {
			reason := out.Record().QualityLimitationReason
			if reason != nil && *reason == "bandwidth" {
				limited = true
				break
			}
		}
		bitrate, bitrateOK := pc.AvailableOutgoingBitrate()

		switch {
		case limited && !s.active:
			s.active = true
			values := map[string]float64{}
			if s.hasGood {
				values["availableOutgoingBitrateBefore"] = s.lastGoodBitrate
			}
			if bitrateOK {
				values["availableOutgoingBitrateAfter"] = bitrate
			}
			d.dispatcher.EmitAlert(domain.AlertEvent{
				Detector:  NameCongestion,
				Target:    target,
				State:     domain.AlertOn,
				Timestamp: now,
				Values:    values,
			})
			d.dispatcher.EmitIssue(domain.Issue{
				Code:      NameCongestion,
				Severity:  domain.SeverityMajor,
				Target:    target,
				Message:   "sending limited by available bandwidth",
				Timestamp: now,
			})
		case !limited && s.active:
			s.active = false
			values := map[string]float64{}
			if bitrateOK {
				values["availableOutgoingBitrate"] = bitrate
			}
			d.dispatcher.EmitAlert(domain.AlertEvent{
				Detector:  NameCongestion,
				Target:    target,
				State:     domain.AlertOff,
				Timestamp: now,
				Values:    values,
			})
		}

		if !limited && bitrateOK {
			s.lastGoodBitrate = bitrate
			s.hasGood = true
		}
	}
	forgetStale(d.states, live)
}

// forgetStale drops detector state for targets that left the store, so a
// reappearing target starts a fresh episode.
func forgetStale[S any](states map[string]S, live map[string]struct{}) {
	for target := range states {
		if _, ok := live[target]; !ok {
			delete(states, target)
		}
	}
}
