package scoring

import (
	"time"

	"go.uber.org/zap"

	"rtcscope/internal/core/store"
)

// Config tunes the rolling score window.
type Config struct {
	WindowSize int
}

func DefaultConfig() Config {
	return Config{WindowSize: 10}
}

// Scorer keeps a rolling mean opinion score per peer connection. Each
// cycle it derives an instantaneous score from the committed interval
// metrics and pushes it into a bounded window; the published score is
// the window average. Peer connections that leave the store are
// forgotten on the next update.
type Scorer struct {
	cfg     Config
	logger  *zap.SugaredLogger
	windows map[string]*window
}

type window struct {
	scores []float64
}

func New(cfg Config, logger *zap.SugaredLogger) *Scorer {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultConfig().WindowSize
	}
	return &Scorer{
		cfg:     cfg,
		logger:  logger,
		windows: make(map[string]*window),
	}
}

// Update scores every peer connection with interval data this cycle.
// Connections that produced neither packet deltas nor a round-trip
// measurement are left alone so silence does not inflate the window.
func (s *Scorer) Update(now time.Time, st *store.Store) {
	live := make(map[string]struct{})
	for pc := range st.PeerConnections() {
		target := pc.ID()
		live[target] = struct{}{}

		inputs, ok := collectInputs(pc)
		if !ok {
			continue
		}
		score := mos(inputs)
		w := s.windows[target]
		if w == nil {
			w = &window{}
			s.windows[target] = w
		}
		w.push(score, s.cfg.WindowSize)
		s.logger.Debugw("scored peer connection",
			"target", target,
			"score", score,
			"rttMs", inputs.rttMs,
			"jitterMs", inputs.jitterMs,
			"lossPct", inputs.lossPct)
	}
	for target := range s.windows {
		if _, ok := live[target]; !ok {
			delete(s.windows, target)
		}
	}
}

// Average returns the window mean for one peer connection.
func (s *Scorer) Average(target string) (float64, bool) {
	w := s.windows[target]
	if w == nil || len(w.scores) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range w.scores {
		sum += v
	}
	return sum / float64(len(w.scores)), true
}

func (w *window) push(score float64, size int) {
	w.scores = append(w.scores, score)
	if len(w.scores) > size {
		w.scores = w.scores[len(w.scores)-size:]
	}
}

type scoreInputs struct {
	rttMs    float64
	jitterMs float64
	lossPct  float64
}

// collectInputs gathers latency, jitter and loss for one peer
// connection over the last interval. Round-trip time prefers the
// remote-inbound report and falls back to the selected candidate pair;
// jitter is the worst inbound stream; loss is aggregated across all
// inbound streams.
func collectInputs(pc *store.PeerConnectionEntry) (scoreInputs, bool) {
	var in scoreInputs
	sawPackets := false
	sawRTT := false

	var lost, total float64
	for inbound := range pc.InboundRTPs() {
		deltas := inbound.Deltas()
		if deltas.DeltaPacketsReceived != nil {
			sawPackets = true
			total += float64(*deltas.DeltaPacketsReceived)
		}
		if deltas.DeltaPacketsLost != nil && *deltas.DeltaPacketsLost > 0 {
			lost += float64(*deltas.DeltaPacketsLost)
			total += float64(*deltas.DeltaPacketsLost)
		}
		if jitter := inbound.Record().Jitter; jitter != nil {
			if ms := *jitter * 1000; ms > in.jitterMs {
				in.jitterMs = ms
			}
		}
	}
	if total > 0 {
		in.lossPct = lost / total * 100
	}

	for remote := range pc.RemoteInboundRTPs() {
		if rtt := remote.Record().RoundTripTime; rtt != nil {
			sawRTT = true
			if ms := *rtt * 1000; ms > in.rttMs {
				in.rttMs = ms
			}
		}
	}
	if !sawRTT {
		if pair, ok := pc.SelectedOrNominatedPair(); ok {
			if rtt := pair.Record().CurrentRoundTripTime; rtt != nil {
				sawRTT = true
				in.rttMs = *rtt * 1000
			}
		}
	}

	return in, sawPackets || sawRTT
}

// mos maps the interval metrics to a 1..4.5 mean opinion score using a
// simplified E-model transmission rating.
func mos(in scoreInputs) float64 {
	effLatency := in.rttMs/2 + in.jitterMs*2 + 10

	var r float64
	if effLatency < 160 {
		r = 93.2 - effLatency/40
	} else {
		r = 93.2 - (effLatency-120)/10
	}
	r -= in.lossPct * 2.5
	if r < 0 {
		r = 0
	}
	if r > 100 {
		r = 100
	}
	return 1 + 0.035*r + 7e-6*r*(r-60)*(100-r)
}
