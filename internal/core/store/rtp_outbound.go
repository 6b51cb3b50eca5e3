package store

import (
	"time"

	"rtcscope/internal/core/domain"
)

// OutboundRTPEntry tracks one sent RTP stream.
type OutboundRTPEntry struct {
	entryMeta
	cur    domain.OutboundRTPRecord
	deltas domain.OutboundRTPDeltas
}

func newOutboundRTPEntry(cs *collectorState, rec *domain.OutboundRTPRecord, now time.Time) *OutboundRTPEntry {
	return &OutboundRTPEntry{entryMeta: newEntryMeta(cs, now), cur: *rec}
}

func (e *OutboundRTPEntry) update(rec *domain.OutboundRTPRecord, now time.Time) {
	elapsed := elapsedSeconds(e.cur.Timestamp, rec.Timestamp)
	if elapsed <= 0 {
		e.cur = *rec
		e.deltas = domain.OutboundRTPDeltas{}
		e.touch(now)
		return
	}
	prev := &e.cur
	d := domain.OutboundRTPDeltas{
		DeltaPacketsSent:              deltaU64(prev.PacketsSent, rec.PacketsSent),
		DeltaBytesSent:                deltaU64(prev.BytesSent, rec.BytesSent),
		DeltaRetransmittedPacketsSent: deltaU64(prev.RetransmittedPacketsSent, rec.RetransmittedPacketsSent),
		DeltaFramesEncoded:            deltaU32(prev.FramesEncoded, rec.FramesEncoded),
		DeltaFramesSent:               deltaU32(prev.FramesSent, rec.FramesSent),
		DeltaNackCount:                deltaU32(prev.NackCount, rec.NackCount),
	}
	d.SendBitrate = bitrate(d.DeltaBytesSent, elapsed)
	d.PacketRate = perSecond(d.DeltaPacketsSent, elapsed)
	e.cur = *rec
	e.deltas = d
	e.touch(now)
}

func (e *OutboundRTPEntry) ID() string                        { return e.cur.ID }
func (e *OutboundRTPEntry) Record() *domain.OutboundRTPRecord { return &e.cur }
func (e *OutboundRTPEntry) Deltas() *domain.OutboundRTPDeltas { return &e.deltas }

func (e *OutboundRTPEntry) Sample() domain.OutboundRTPSample {
	return domain.OutboundRTPSample{OutboundRTPRecord: e.cur, OutboundRTPDeltas: e.deltas}
}

func (e *OutboundRTPEntry) IsAudio() bool {
	return e.cur.MediaKind != nil && *e.cur.MediaKind == "audio"
}

func (e *OutboundRTPEntry) IsVideo() bool {
	return e.cur.MediaKind != nil && *e.cur.MediaKind == "video"
}

// RemoteInbound resolves the receiver-report counterpart by matching
// synchronization source within the same peer connection scope.
func (e *OutboundRTPEntry) RemoteInbound() (*RemoteInboundRTPEntry, bool) {
	if e.cur.SSRC == nil {
		return nil, false
	}
	e.collector.ensureIndices()
	r, ok := e.collector.remoteInboundBySSRC[*e.cur.SSRC]
	return r, ok
}

func (e *OutboundRTPEntry) MediaSource() (*MediaSourceEntry, bool) {
	if e.cur.MediaSourceID == nil {
		return nil, false
	}
	m, ok := e.collector.mediaSources[*e.cur.MediaSourceID]
	return m, ok
}

func (e *OutboundRTPEntry) Codec() (*CodecEntry, bool) {
	if e.cur.CodecID == nil {
		return nil, false
	}
	c, ok := e.collector.codecs[*e.cur.CodecID]
	return c, ok
}

func (e *OutboundRTPEntry) Transport() (*TransportEntry, bool) {
	if e.cur.TransportID == nil {
		return nil, false
	}
	t, ok := e.collector.transports[*e.cur.TransportID]
	return t, ok
}

func (e *OutboundRTPEntry) Track() (*TrackEntry, bool) {
	if e.cur.TrackIdentifier == nil {
		return nil, false
	}
	e.collector.ensureIndices()
	t, ok := e.collector.tracksByIdentifier[*e.cur.TrackIdentifier]
	return t, ok
}
