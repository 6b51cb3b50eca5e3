package detectors

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
	"rtcscope/internal/core/store"
)

// Detector names, used as alert/issue codes and registry keys.
const (
	NameCongestion     = "congestion"
	NameAudioDesync    = "audio-desync"
	NameCPUPerformance = "cpu-performance"
	NameVideoFreeze    = "video-freeze"
	NameStuckTrack     = "stuck-inbound-track"
	NameLongConnect    = "long-connection-establishment"
	NameLowScore       = "low-score"
)

// Detector is one independent issue monitor. Update runs once per cycle,
// after the store commit, and reads the committed state. Detectors keep
// their own per-target state and never depend on one another.
type Detector interface {
	Name() string
	Update(now time.Time, st *store.Store)
}

// Registry holds the active detectors and drives them each cycle.
// Detectors can be added and removed between cycles without affecting the
// others.
type Registry struct {
	logger    *zap.SugaredLogger
	detectors []Detector
}

func NewRegistry(logger *zap.SugaredLogger) *Registry {
	return &Registry{logger: logger}
}

func (r *Registry) Add(d Detector) error {
	for _, existing := range r.detectors {
		if existing.Name() == d.Name() {
			return fmt.Errorf("%w: %s", domain.ErrDetectorRegistered, d.Name())
		}
	}
	r.detectors = append(r.detectors, d)
	r.logger.Debugw("detector added", "detector", d.Name())
	return nil
}

func (r *Registry) Remove(name string) bool {
	for i, d := range r.detectors {
		if d.Name() == name {
			r.detectors = append(r.detectors[:i], r.detectors[i+1:]...)
			r.logger.Debugw("detector removed", "detector", name)
			return true
		}
	}
	return false
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.detectors))
	for _, d := range r.detectors {
		names = append(names, d.Name())
	}
	return names
}

// UpdateAll runs every detector against the committed store state. A
// failing detector is isolated: its panic is logged and the remaining
// detectors still run.
func (r *Registry) UpdateAll(now time.Time, st *store.Store) {
	for _, d := range r.detectors {
		r.updateOne(d, now, st)
	}
}

func (r *Registry) updateOne(d Detector, now time.Time, st *store.Store) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warnw("detector panicked", "detector", d.Name(), "panic", rec)
		}
	}()
	d.Update(now, st)
}
