package store

import (
	"time"

	"rtcscope/internal/core/domain"
)

// MediaSourceEntry tracks one local capture source.
type MediaSourceEntry struct {
	entryMeta
	cur domain.MediaSourceRecord
}

func newMediaSourceEntry(cs *collectorState, rec *domain.MediaSourceRecord, now time.Time) *MediaSourceEntry {
	return &MediaSourceEntry{entryMeta: newEntryMeta(cs, now), cur: *rec}
}

func (e *MediaSourceEntry) update(rec *domain.MediaSourceRecord, now time.Time) {
	e.cur = *rec
	e.touch(now)
}

func (e *MediaSourceEntry) ID() string                        { return e.cur.ID }
func (e *MediaSourceEntry) Record() *domain.MediaSourceRecord { return &e.cur }

func (e *MediaSourceEntry) Sample() domain.MediaSourceSample {
	return domain.MediaSourceSample{MediaSourceRecord: e.cur}
}

func (e *MediaSourceEntry) Track() (*TrackEntry, bool) {
	if e.cur.TrackIdentifier == nil {
		return nil, false
	}
	e.collector.ensureIndices()
	t, ok := e.collector.tracksByIdentifier[*e.cur.TrackIdentifier]
	return t, ok
}

// CodecEntry tracks one negotiated codec.
type CodecEntry struct {
	entryMeta
	cur domain.CodecRecord
}

func newCodecEntry(cs *collectorState, rec *domain.CodecRecord, now time.Time) *CodecEntry {
	return &CodecEntry{entryMeta: newEntryMeta(cs, now), cur: *rec}
}

func (e *CodecEntry) update(rec *domain.CodecRecord, now time.Time) {
	e.cur = *rec
	e.touch(now)
}

func (e *CodecEntry) ID() string                  { return e.cur.ID }
func (e *CodecEntry) Record() *domain.CodecRecord { return &e.cur }

func (e *CodecEntry) Sample() domain.CodecSample {
	return domain.CodecSample{CodecRecord: e.cur}
}

func (e *CodecEntry) Transport() (*TransportEntry, bool) {
	if e.cur.TransportID == nil {
		return nil, false
	}
	t, ok := e.collector.transports[*e.cur.TransportID]
	return t, ok
}
