package store

import (
	"time"

	"rtcscope/internal/core/domain"
)

// InboundRTPEntry tracks one received RTP stream.
type InboundRTPEntry struct {
	entryMeta
	cur    domain.InboundRTPRecord
	deltas domain.InboundRTPDeltas
}

func newInboundRTPEntry(cs *collectorState, rec *domain.InboundRTPRecord, now time.Time) *InboundRTPEntry {
	return &InboundRTPEntry{entryMeta: newEntryMeta(cs, now), cur: *rec}
}

func (e *InboundRTPEntry) update(rec *domain.InboundRTPRecord, now time.Time) {
	elapsed := elapsedSeconds(e.cur.Timestamp, rec.Timestamp)
	if elapsed <= 0 {
		e.cur = *rec
		e.deltas = domain.InboundRTPDeltas{}
		e.touch(now)
		return
	}
	prev := &e.cur
	d := domain.InboundRTPDeltas{
		DeltaPacketsReceived:                deltaU64(prev.PacketsReceived, rec.PacketsReceived),
		DeltaPacketsLost:                    deltaI64(prev.PacketsLost, rec.PacketsLost),
		DeltaBytesReceived:                  deltaU64(prev.BytesReceived, rec.BytesReceived),
		DeltaFramesReceived:                 deltaU32(prev.FramesReceived, rec.FramesReceived),
		DeltaFramesDecoded:                  deltaU32(prev.FramesDecoded, rec.FramesDecoded),
		DeltaFramesDropped:                  deltaU32(prev.FramesDropped, rec.FramesDropped),
		DeltaNackCount:                      deltaU32(prev.NackCount, rec.NackCount),
		DeltaFreezeCount:                    deltaU32(prev.FreezeCount, rec.FreezeCount),
		DeltaFreezesDuration:                deltaF64(prev.TotalFreezesDuration, rec.TotalFreezesDuration),
		DeltaTotalSamplesReceived:           deltaU64(prev.TotalSamplesReceived, rec.TotalSamplesReceived),
		DeltaConcealedSamples:               deltaU64(prev.ConcealedSamples, rec.ConcealedSamples),
		DeltaSilentConcealedSamples:         deltaU64(prev.SilentConcealedSamples, rec.SilentConcealedSamples),
		DeltaInsertedSamplesForDeceleration: deltaU64(prev.InsertedSamplesForDeceleration, rec.InsertedSamplesForDeceleration),
		DeltaRemovedSamplesForAcceleration:  deltaU64(prev.RemovedSamplesForAcceleration, rec.RemovedSamplesForAcceleration),
	}
	d.ReceiveBitrate = bitrate(d.DeltaBytesReceived, elapsed)
	d.PacketRate = perSecond(d.DeltaPacketsReceived, elapsed)
	d.FractionLost = lossFraction(d.DeltaPacketsLost, d.DeltaPacketsReceived)
	e.cur = *rec
	e.deltas = d
	e.touch(now)
}

func (e *InboundRTPEntry) ID() string                       { return e.cur.ID }
func (e *InboundRTPEntry) Record() *domain.InboundRTPRecord { return &e.cur }
func (e *InboundRTPEntry) Deltas() *domain.InboundRTPDeltas { return &e.deltas }

func (e *InboundRTPEntry) Sample() domain.InboundRTPSample {
	return domain.InboundRTPSample{InboundRTPRecord: e.cur, InboundRTPDeltas: e.deltas}
}

func (e *InboundRTPEntry) IsAudio() bool {
	return e.cur.MediaKind != nil && *e.cur.MediaKind == "audio"
}

func (e *InboundRTPEntry) IsVideo() bool {
	return e.cur.MediaKind != nil && *e.cur.MediaKind == "video"
}

// RemoteOutbound resolves the sender-report counterpart by matching
// synchronization source within the same peer connection scope.
func (e *InboundRTPEntry) RemoteOutbound() (*RemoteOutboundRTPEntry, bool) {
	if e.cur.SSRC == nil {
		return nil, false
	}
	e.collector.ensureIndices()
	r, ok := e.collector.remoteOutboundBySSRC[*e.cur.SSRC]
	return r, ok
}

func (e *InboundRTPEntry) Codec() (*CodecEntry, bool) {
	if e.cur.CodecID == nil {
		return nil, false
	}
	c, ok := e.collector.codecs[*e.cur.CodecID]
	return c, ok
}

func (e *InboundRTPEntry) Transport() (*TransportEntry, bool) {
	if e.cur.TransportID == nil {
		return nil, false
	}
	t, ok := e.collector.transports[*e.cur.TransportID]
	return t, ok
}

func (e *InboundRTPEntry) Track() (*TrackEntry, bool) {
	if e.cur.TrackIdentifier == nil {
		return nil, false
	}
	e.collector.ensureIndices()
	t, ok := e.collector.tracksByIdentifier[*e.cur.TrackIdentifier]
	return t, ok
}
