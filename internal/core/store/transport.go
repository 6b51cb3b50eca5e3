package store

import (
	"time"

	"rtcscope/internal/core/domain"
)

// TransportEntry tracks one ICE/DTLS transport.
type TransportEntry struct {
	entryMeta
	cur    domain.TransportRecord
	deltas domain.TransportDeltas
}

func newTransportEntry(cs *collectorState, rec *domain.TransportRecord, now time.Time) *TransportEntry {
	return &TransportEntry{entryMeta: newEntryMeta(cs, now), cur: *rec}
}

func (e *TransportEntry) update(rec *domain.TransportRecord, now time.Time) {
	elapsed := elapsedSeconds(e.cur.Timestamp, rec.Timestamp)
	if elapsed <= 0 {
		e.cur = *rec
		e.deltas = domain.TransportDeltas{}
		e.touch(now)
		return
	}
	prev := &e.cur
	d := domain.TransportDeltas{
		DeltaPacketsSent:     deltaU64(prev.PacketsSent, rec.PacketsSent),
		DeltaPacketsReceived: deltaU64(prev.PacketsReceived, rec.PacketsReceived),
		DeltaBytesSent:       deltaU64(prev.BytesSent, rec.BytesSent),
		DeltaBytesReceived:   deltaU64(prev.BytesReceived, rec.BytesReceived),
	}
	d.SendBitrate = bitrate(d.DeltaBytesSent, elapsed)
	d.ReceiveBitrate = bitrate(d.DeltaBytesReceived, elapsed)
	e.cur = *rec
	e.deltas = d
	e.touch(now)
}

func (e *TransportEntry) ID() string                      { return e.cur.ID }
func (e *TransportEntry) Record() *domain.TransportRecord { return &e.cur }
func (e *TransportEntry) Deltas() *domain.TransportDeltas { return &e.deltas }

func (e *TransportEntry) Sample() domain.TransportSample {
	return domain.TransportSample{TransportRecord: e.cur, TransportDeltas: e.deltas}
}

// SelectedPair resolves the candidate pair this transport currently routes
// over.
func (e *TransportEntry) SelectedPair() (*IceCandidatePairEntry, bool) {
	if e.cur.SelectedCandidatePairID == nil {
		return nil, false
	}
	p, ok := e.collector.pairs[*e.cur.SelectedCandidatePairID]
	return p, ok
}

func (e *TransportEntry) LocalCertificate() (*CertificateEntry, bool) {
	if e.cur.LocalCertificateID == nil {
		return nil, false
	}
	c, ok := e.collector.certificates[*e.cur.LocalCertificateID]
	return c, ok
}

func (e *TransportEntry) RemoteCertificate() (*CertificateEntry, bool) {
	if e.cur.RemoteCertificateID == nil {
		return nil, false
	}
	c, ok := e.collector.certificates[*e.cur.RemoteCertificateID]
	return c, ok
}

// IceCandidateEntry tracks one local or remote ICE candidate.
type IceCandidateEntry struct {
	entryMeta
	cur domain.IceCandidateRecord
}

func newIceCandidateEntry(cs *collectorState, rec *domain.IceCandidateRecord, now time.Time) *IceCandidateEntry {
	return &IceCandidateEntry{entryMeta: newEntryMeta(cs, now), cur: *rec}
}

func (e *IceCandidateEntry) update(rec *domain.IceCandidateRecord, now time.Time) {
	e.cur = *rec
	e.touch(now)
}

func (e *IceCandidateEntry) ID() string                         { return e.cur.ID }
func (e *IceCandidateEntry) Record() *domain.IceCandidateRecord { return &e.cur }

func (e *IceCandidateEntry) Sample() domain.IceCandidateSample {
	return domain.IceCandidateSample{IceCandidateRecord: e.cur}
}

func (e *IceCandidateEntry) Transport() (*TransportEntry, bool) {
	if e.cur.TransportID == nil {
		return nil, false
	}
	t, ok := e.collector.transports[*e.cur.TransportID]
	return t, ok
}

// IceCandidatePairEntry tracks one ICE candidate pair.
type IceCandidatePairEntry struct {
	entryMeta
	cur    domain.IceCandidatePairRecord
	deltas domain.IceCandidatePairDeltas
}

func newIceCandidatePairEntry(cs *collectorState, rec *domain.IceCandidatePairRecord, now time.Time) *IceCandidatePairEntry {
	return &IceCandidatePairEntry{entryMeta: newEntryMeta(cs, now), cur: *rec}
}

func (e *IceCandidatePairEntry) update(rec *domain.IceCandidatePairRecord, now time.Time) {
	elapsed := elapsedSeconds(e.cur.Timestamp, rec.Timestamp)
	if elapsed <= 0 {
		e.cur = *rec
		e.deltas = domain.IceCandidatePairDeltas{}
		e.touch(now)
		return
	}
	prev := &e.cur
	d := domain.IceCandidatePairDeltas{
		DeltaPacketsSent:     deltaU64(prev.PacketsSent, rec.PacketsSent),
		DeltaPacketsReceived: deltaU64(prev.PacketsReceived, rec.PacketsReceived),
		DeltaBytesSent:       deltaU64(prev.BytesSent, rec.BytesSent),
		DeltaBytesReceived:   deltaU64(prev.BytesReceived, rec.BytesReceived),
	}
	d.SendBitrate = bitrate(d.DeltaBytesSent, elapsed)
	d.ReceiveBitrate = bitrate(d.DeltaBytesReceived, elapsed)
	e.cur = *rec
	e.deltas = d
	e.touch(now)
}

func (e *IceCandidatePairEntry) ID() string                             { return e.cur.ID }
func (e *IceCandidatePairEntry) Record() *domain.IceCandidatePairRecord { return &e.cur }
func (e *IceCandidatePairEntry) Deltas() *domain.IceCandidatePairDeltas { return &e.deltas }

func (e *IceCandidatePairEntry) Sample() domain.IceCandidatePairSample {
	return domain.IceCandidatePairSample{IceCandidatePairRecord: e.cur, IceCandidatePairDeltas: e.deltas}
}

func (e *IceCandidatePairEntry) Nominated() bool {
	return e.cur.Nominated != nil && *e.cur.Nominated
}

func (e *IceCandidatePairEntry) Transport() (*TransportEntry, bool) {
	if e.cur.TransportID == nil {
		return nil, false
	}
	t, ok := e.collector.transports[*e.cur.TransportID]
	return t, ok
}

func (e *IceCandidatePairEntry) LocalCandidate() (*IceCandidateEntry, bool) {
	if e.cur.LocalCandidateID == nil {
		return nil, false
	}
	c, ok := e.collector.candidates[*e.cur.LocalCandidateID]
	return c, ok
}

func (e *IceCandidatePairEntry) RemoteCandidate() (*IceCandidateEntry, bool) {
	if e.cur.RemoteCandidateID == nil {
		return nil, false
	}
	c, ok := e.collector.candidates[*e.cur.RemoteCandidateID]
	return c, ok
}

// CertificateEntry tracks one DTLS certificate.
type CertificateEntry struct {
	entryMeta
	cur domain.CertificateRecord
}

func newCertificateEntry(cs *collectorState, rec *domain.CertificateRecord, now time.Time) *CertificateEntry {
	return &CertificateEntry{entryMeta: newEntryMeta(cs, now), cur: *rec}
}

func (e *CertificateEntry) update(rec *domain.CertificateRecord, now time.Time) {
	e.cur = *rec
	e.touch(now)
}

func (e *CertificateEntry) ID() string                        { return e.cur.ID }
func (e *CertificateEntry) Record() *domain.CertificateRecord { return &e.cur }

func (e *CertificateEntry) Sample() domain.CertificateSample {
	return domain.CertificateSample{CertificateRecord: e.cur}
}
