package detectors

import (
	"time"

	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
	"rtcscope/internal/core/events"
	"rtcscope/internal/core/store"
)

// LongConnectConfig tunes how long a peer connection may stay in the
// connecting state before the detector fires.
type LongConnectConfig struct {
	Threshold time.Duration
}

func DefaultLongConnectConfig() LongConnectConfig {
	return LongConnectConfig{Threshold: 5 * time.Second}
}

// LongConnect flags peer connections stuck establishing. The clock
// starts when the connecting state is first observed and the alert
// fires once per attempt when the threshold is reached. Leaving the
// connecting state, in either direction, closes the episode.
type LongConnect struct {
	cfg        LongConnectConfig
	dispatcher *events.Dispatcher
	logger     *zap.SugaredLogger
	states     map[string]*connectState
}

type connectState struct {
	tracking        bool
	fired           bool
	connectingSince time.Time
}

func NewLongConnect(cfg LongConnectConfig, dispatcher *events.Dispatcher, logger *zap.SugaredLogger) *LongConnect {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultLongConnectConfig().Threshold
	}
	return &LongConnect{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
		states:     make(map[string]*connectState),
	}
}

func (d *LongConnect) Name() string { return NameLongConnect }

func (d *LongConnect) Update(now time.Time, st *store.Store) {
	live := make(map[string]struct{})
	for pc := range st.PeerConnections() {
		target := pc.ID()
		live[target] = struct{}{}
		s := d.states[target]
		if s == nil {
			s = &connectState{}
			d.states[target] = s
		}

		if pc.ConnectionState() == "connecting" {
			if !s.tracking {
				s.tracking = true
				s.connectingSince = now
			}
			connectingFor := now.Sub(s.connectingSince)
			if !s.fired && connectingFor >= d.cfg.Threshold {
				s.fired = true
				d.dispatcher.EmitAlert(domain.AlertEvent{
					Detector:  NameLongConnect,
					Target:    target,
					State:     domain.AlertOn,
					Timestamp: now,
					Values:    map[string]float64{"connectingSeconds": connectingFor.Seconds()},
				})
				d.dispatcher.EmitIssue(domain.Issue{
					Code:      NameLongConnect,
					Severity:  domain.SeverityMinor,
					Target:    target,
					Message:   "connection establishment taking too long",
					Timestamp: now,
				})
			}
			continue
		}

		if s.fired {
			d.dispatcher.EmitAlert(domain.AlertEvent{
				Detector:  NameLongConnect,
				Target:    target,
				State:     domain.AlertOff,
				Timestamp: now,
				Values:    map[string]float64{"connectingSeconds": now.Sub(s.connectingSince).Seconds()},
			})
		}
		s.tracking = false
		s.fired = false
	}
	forgetStale(d.states, live)
}
