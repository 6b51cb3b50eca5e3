package store

import (
	"time"

	"rtcscope/internal/core/domain"
)

// RemoteInboundRTPEntry tracks the receiver reports the remote side sends
// about one of our outbound streams.
type RemoteInboundRTPEntry struct {
	entryMeta
	cur    domain.RemoteInboundRTPRecord
	deltas domain.RemoteInboundRTPDeltas
}

func newRemoteInboundRTPEntry(cs *collectorState, rec *domain.RemoteInboundRTPRecord, now time.Time) *RemoteInboundRTPEntry {
	return &RemoteInboundRTPEntry{entryMeta: newEntryMeta(cs, now), cur: *rec}
}

func (e *RemoteInboundRTPEntry) update(rec *domain.RemoteInboundRTPRecord, now time.Time) {
	elapsed := elapsedSeconds(e.cur.Timestamp, rec.Timestamp)
	if elapsed <= 0 {
		e.cur = *rec
		e.deltas = domain.RemoteInboundRTPDeltas{}
		e.touch(now)
		return
	}
	d := domain.RemoteInboundRTPDeltas{
		DeltaPacketsLost: deltaI64(e.cur.PacketsLost, rec.PacketsLost),
	}
	e.cur = *rec
	e.deltas = d
	e.touch(now)
}

func (e *RemoteInboundRTPEntry) ID() string                             { return e.cur.ID }
func (e *RemoteInboundRTPEntry) Record() *domain.RemoteInboundRTPRecord { return &e.cur }
func (e *RemoteInboundRTPEntry) Deltas() *domain.RemoteInboundRTPDeltas { return &e.deltas }

func (e *RemoteInboundRTPEntry) Sample() domain.RemoteInboundRTPSample {
	return domain.RemoteInboundRTPSample{RemoteInboundRTPRecord: e.cur, RemoteInboundRTPDeltas: e.deltas}
}

// Outbound resolves the local outbound stream this report refers to.
func (e *RemoteInboundRTPEntry) Outbound() (*OutboundRTPEntry, bool) {
	if e.cur.SSRC == nil {
		return nil, false
	}
	e.collector.ensureIndices()
	o, ok := e.collector.outboundBySSRC[*e.cur.SSRC]
	return o, ok
}

// RemoteOutboundRTPEntry tracks the sender reports the remote side sends
// about one of our inbound streams.
type RemoteOutboundRTPEntry struct {
	entryMeta
	cur    domain.RemoteOutboundRTPRecord
	deltas domain.RemoteOutboundRTPDeltas
}

func newRemoteOutboundRTPEntry(cs *collectorState, rec *domain.RemoteOutboundRTPRecord, now time.Time) *RemoteOutboundRTPEntry {
	return &RemoteOutboundRTPEntry{entryMeta: newEntryMeta(cs, now), cur: *rec}
}

func (e *RemoteOutboundRTPEntry) update(rec *domain.RemoteOutboundRTPRecord, now time.Time) {
	elapsed := elapsedSeconds(e.cur.Timestamp, rec.Timestamp)
	if elapsed <= 0 {
		e.cur = *rec
		e.deltas = domain.RemoteOutboundRTPDeltas{}
		e.touch(now)
		return
	}
	d := domain.RemoteOutboundRTPDeltas{
		DeltaPacketsSent: deltaU64(e.cur.PacketsSent, rec.PacketsSent),
		DeltaBytesSent:   deltaU64(e.cur.BytesSent, rec.BytesSent),
	}
	e.cur = *rec
	e.deltas = d
	e.touch(now)
}

func (e *RemoteOutboundRTPEntry) ID() string                              { return e.cur.ID }
func (e *RemoteOutboundRTPEntry) Record() *domain.RemoteOutboundRTPRecord { return &e.cur }
func (e *RemoteOutboundRTPEntry) Deltas() *domain.RemoteOutboundRTPDeltas { return &e.deltas }

func (e *RemoteOutboundRTPEntry) Sample() domain.RemoteOutboundRTPSample {
	return domain.RemoteOutboundRTPSample{RemoteOutboundRTPRecord: e.cur, RemoteOutboundRTPDeltas: e.deltas}
}

// Inbound resolves the local inbound stream this report refers to.
func (e *RemoteOutboundRTPEntry) Inbound() (*InboundRTPEntry, bool) {
	if e.cur.SSRC == nil {
		return nil, false
	}
	e.collector.ensureIndices()
	i, ok := e.collector.inboundBySSRC[*e.cur.SSRC]
	return i, ok
}
