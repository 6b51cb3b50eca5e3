package detectors

import (
	"time"

	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
	"rtcscope/internal/core/events"
	"rtcscope/internal/core/store"
)

// AudioDesyncConfig tunes the corrected-sample fraction thresholds.
type AudioDesyncConfig struct {
	AlertOnThreshold  float64
	AlertOffThreshold float64
}

func DefaultAudioDesyncConfig() AudioDesyncConfig {
	return AudioDesyncConfig{
		AlertOnThreshold:  0.1,
		AlertOffThreshold: 0.05,
	}
}

// AudioDesync watches inbound audio tracks for playout drift. The
// signal is the fraction of samples the receiver had to insert or
// remove to keep the track in sync, taken over one interval:
//
//	corrected / (corrected + received)
//
// Intervals with fewer than one corrected or one received sample carry
// no usable signal and leave the alert state untouched.
type AudioDesync struct {
	threshold  Threshold
	dispatcher *events.Dispatcher
	logger     *zap.SugaredLogger
	states     map[string]*desyncState
}

type desyncState struct {
	active bool
	since  time.Time
}

func NewAudioDesync(cfg AudioDesyncConfig, dispatcher *events.Dispatcher, logger *zap.SugaredLogger) (*AudioDesync, error) {
	threshold, err := NewThreshold(Above, cfg.AlertOnThreshold, cfg.AlertOffThreshold)
	if err != nil {
		return nil, err
	}
	return &AudioDesync{
		threshold:  threshold,
		dispatcher: dispatcher,
		logger:     logger,
		states:     make(map[string]*desyncState),
	}, nil
}

func (d *AudioDesync) Name() string { return NameAudioDesync }

func (d *AudioDesync) Update(now time.Time, st *store.Store) {
	live := make(map[string]struct{})
	for in := range st.InboundRTPs() {
		if !in.IsAudio() {
			continue
		}
		target := in.ID()
		live[target] = struct{}{}
		s := d.states[target]
		if s == nil {
			s = &desyncState{}
			d.states[target] = s
		}

		deltas := in.Deltas()
		var corrected, received float64
		if deltas.DeltaInsertedSamplesForDeceleration != nil {
			corrected += float64(*deltas.DeltaInsertedSamplesForDeceleration)
		}
		if deltas.DeltaRemovedSamplesForAcceleration != nil {
			corrected += float64(*deltas.DeltaRemovedSamplesForAcceleration)
		}
		if deltas.DeltaTotalSamplesReceived != nil {
			received = float64(*deltas.DeltaTotalSamplesReceived)
		}
		if corrected < 1 || received < 1 {
			continue
		}
		fraction := corrected / (corrected + received)

		next := d.threshold.Next(s.active, fraction)
		switch {
		case next && !s.active:
			s.active = true
			s.since = now
			d.dispatcher.EmitAlert(domain.AlertEvent{
				Detector:  NameAudioDesync,
				Target:    target,
				State:     domain.AlertOn,
				Timestamp: now,
				Values:    map[string]float64{"correctedSamplesFraction": fraction},
			})
			d.dispatcher.EmitIssue(domain.Issue{
				Code:      NameAudioDesync,
				Severity:  domain.SeverityMinor,
				Target:    target,
				Message:   "audio playout drifting out of sync",
				Timestamp: now,
			})
		case !next && s.active:
			s.active = false
			d.dispatcher.EmitAlert(domain.AlertEvent{
				Detector:  NameAudioDesync,
				Target:    target,
				State:     domain.AlertOff,
				Timestamp: now,
				Values: map[string]float64{
					"correctedSamplesFraction": fraction,
					"durationSeconds":          now.Sub(s.since).Seconds(),
				},
			})
		}
	}
	forgetStale(d.states, live)
}
