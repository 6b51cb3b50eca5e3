package store

import (
	"time"

	"rtcscope/internal/core/domain"
)

// TrackEntry tracks one attached media track, either direction.
type TrackEntry struct {
	entryMeta
	cur    domain.TrackRecord
	deltas domain.TrackDeltas
}

func newTrackEntry(cs *collectorState, rec *domain.TrackRecord, now time.Time) *TrackEntry {
	return &TrackEntry{entryMeta: newEntryMeta(cs, now), cur: *rec}
}

func (e *TrackEntry) update(rec *domain.TrackRecord, now time.Time) {
	elapsed := elapsedSeconds(e.cur.Timestamp, rec.Timestamp)
	if elapsed <= 0 {
		e.cur = *rec
		e.deltas = domain.TrackDeltas{}
		e.touch(now)
		return
	}
	prev := &e.cur
	d := domain.TrackDeltas{
		DeltaFramesReceived: deltaU32(prev.FramesReceived, rec.FramesReceived),
		DeltaFramesSent:     deltaU32(prev.FramesSent, rec.FramesSent),
		DeltaFramesDecoded:  deltaU32(prev.FramesDecoded, rec.FramesDecoded),
		DeltaFramesDropped:  deltaU32(prev.FramesDropped, rec.FramesDropped),
	}
	e.cur = *rec
	e.deltas = d
	e.touch(now)
}

func (e *TrackEntry) ID() string                  { return e.cur.ID }
func (e *TrackEntry) Record() *domain.TrackRecord { return &e.cur }
func (e *TrackEntry) Deltas() *domain.TrackDeltas { return &e.deltas }

func (e *TrackEntry) Sample() domain.TrackSample {
	return domain.TrackSample{TrackRecord: e.cur, TrackDeltas: e.deltas}
}

func (e *TrackEntry) Ended() bool {
	return e.cur.Ended != nil && *e.cur.Ended
}

// DataChannelEntry tracks one data channel.
type DataChannelEntry struct {
	entryMeta
	cur    domain.DataChannelRecord
	deltas domain.DataChannelDeltas
}

func newDataChannelEntry(cs *collectorState, rec *domain.DataChannelRecord, now time.Time) *DataChannelEntry {
	return &DataChannelEntry{entryMeta: newEntryMeta(cs, now), cur: *rec}
}

func (e *DataChannelEntry) update(rec *domain.DataChannelRecord, now time.Time) {
	elapsed := elapsedSeconds(e.cur.Timestamp, rec.Timestamp)
	if elapsed <= 0 {
		e.cur = *rec
		e.deltas = domain.DataChannelDeltas{}
		e.touch(now)
		return
	}
	prev := &e.cur
	d := domain.DataChannelDeltas{
		DeltaMessagesSent:     deltaU32(prev.MessagesSent, rec.MessagesSent),
		DeltaMessagesReceived: deltaU32(prev.MessagesReceived, rec.MessagesReceived),
		DeltaBytesSent:        deltaU64(prev.BytesSent, rec.BytesSent),
		DeltaBytesReceived:    deltaU64(prev.BytesReceived, rec.BytesReceived),
	}
	e.cur = *rec
	e.deltas = d
	e.touch(now)
}

func (e *DataChannelEntry) ID() string                        { return e.cur.ID }
func (e *DataChannelEntry) Record() *domain.DataChannelRecord { return &e.cur }
func (e *DataChannelEntry) Deltas() *domain.DataChannelDeltas { return &e.deltas }

func (e *DataChannelEntry) Sample() domain.DataChannelSample {
	return domain.DataChannelSample{DataChannelRecord: e.cur, DataChannelDeltas: e.deltas}
}
