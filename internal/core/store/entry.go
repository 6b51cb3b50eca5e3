package store

import (
	"time"

	"rtcscope/internal/core/domain"
)

// entryMeta is the bookkeeping every entry monitor embeds: owning collector,
// the per-cycle visited flag, and creation/last-seen wall clock times.
type entryMeta struct {
	collector *collectorState
	visited   bool
	createdAt time.Time
	lastSeen  time.Time
}

func newEntryMeta(cs *collectorState, now time.Time) entryMeta {
	return entryMeta{collector: cs, visited: true, createdAt: now, lastSeen: now}
}

func (m *entryMeta) meta() *entryMeta { return m }

func (m *entryMeta) touch(now time.Time) {
	m.visited = true
	m.lastSeen = now
}

func (m *entryMeta) CollectorID() domain.CollectorID { return m.collector.id }

func (m *entryMeta) CreatedAt() time.Time { return m.createdAt }
func (m *entryMeta) LastSeen() time.Time  { return m.lastSeen }
func (m *entryMeta) Visited() bool        { return m.visited }

// elapsedSeconds returns the interval between two record timestamps. A
// non-positive result marks a stale or first-seen update; callers must not
// derive deltas from it.
func elapsedSeconds(prev, cur time.Time) float64 {
	return cur.Sub(prev).Seconds()
}

// deltaU64 subtracts two optional counters. The delta is absent unless both
// values are present and the counter did not run backwards.
func deltaU64(prev, cur *uint64) *uint64 {
	if prev == nil || cur == nil || *cur < *prev {
		return nil
	}
	d := *cur - *prev
	return &d
}

func deltaU32(prev, cur *uint32) *uint32 {
	if prev == nil || cur == nil || *cur < *prev {
		return nil
	}
	d := *cur - *prev
	return &d
}

// deltaI64 subtracts two optional signed counters. Signed counters may
// legitimately decrease, so no monotonic guard applies.
func deltaI64(prev, cur *int64) *int64 {
	if prev == nil || cur == nil {
		return nil
	}
	d := *cur - *prev
	return &d
}

func deltaF64(prev, cur *float64) *float64 {
	if prev == nil || cur == nil || *cur < *prev {
		return nil
	}
	d := *cur - *prev
	return &d
}

// bitrate converts a byte delta over an interval into bits per second.
func bitrate(deltaBytes *uint64, elapsed float64) *float64 {
	if deltaBytes == nil || elapsed <= 0 {
		return nil
	}
	r := float64(*deltaBytes) * 8 / elapsed
	return &r
}

// perSecond converts a count delta over an interval into a rate.
func perSecond(delta *uint64, elapsed float64) *float64 {
	if delta == nil || elapsed <= 0 {
		return nil
	}
	r := float64(*delta) / elapsed
	return &r
}

// lossFraction derives the lost/(lost+received) fraction of one interval,
// clamped to [0,1]. Absent when either delta is absent or nothing moved.
func lossFraction(deltaLost *int64, deltaReceived *uint64) *float64 {
	if deltaLost == nil || deltaReceived == nil {
		return nil
	}
	lost := float64(*deltaLost)
	if lost < 0 {
		lost = 0
	}
	den := lost + float64(*deltaReceived)
	if den <= 0 {
		return nil
	}
	f := lost / den
	if f > 1 {
		f = 1
	}
	return &f
}
