package store

import (
	"iter"
	"time"

	"rtcscope/internal/core/domain"
)

// PeerConnectionEntry tracks one peer connection and roots the navigation
// into every other entry of the same scope.
type PeerConnectionEntry struct {
	entryMeta
	cur domain.PeerConnectionRecord
}

func newPeerConnectionEntry(cs *collectorState, rec *domain.PeerConnectionRecord, now time.Time) *PeerConnectionEntry {
	return &PeerConnectionEntry{entryMeta: newEntryMeta(cs, now), cur: *rec}
}

func (e *PeerConnectionEntry) update(rec *domain.PeerConnectionRecord, now time.Time) {
	e.cur = *rec
	e.touch(now)
}

func (e *PeerConnectionEntry) ID() string                           { return e.cur.ID }
func (e *PeerConnectionEntry) Record() *domain.PeerConnectionRecord { return &e.cur }
func (e *PeerConnectionEntry) Label() string                        { return e.collector.label }

func (e *PeerConnectionEntry) Sample() domain.PeerConnectionEntrySample {
	return domain.PeerConnectionEntrySample{PeerConnectionRecord: e.cur}
}

func (e *PeerConnectionEntry) ConnectionState() string {
	if e.cur.ConnectionState == nil {
		return ""
	}
	return *e.cur.ConnectionState
}

// SelectedOrNominatedPair returns the candidate pair a transport of this
// peer connection currently routes over, falling back to any nominated
// pair when no transport names a selected one.
func (e *PeerConnectionEntry) SelectedOrNominatedPair() (*IceCandidatePairEntry, bool) {
	for _, t := range e.collector.transports {
		if p, ok := t.SelectedPair(); ok {
			return p, true
		}
	}
	for _, p := range e.collector.pairs {
		if p.Nominated() {
			return p, true
		}
	}
	return nil, false
}

// AvailableOutgoingBitrate reads the send-side bandwidth estimate off the
// selected or nominated pair.
func (e *PeerConnectionEntry) AvailableOutgoingBitrate() (float64, bool) {
	p, ok := e.SelectedOrNominatedPair()
	if !ok || p.cur.AvailableOutgoingBitrate == nil {
		return 0, false
	}
	return *p.cur.AvailableOutgoingBitrate, true
}

// Scoped enumerations over the entries sharing this peer connection.

func (e *PeerConnectionEntry) Transports() iter.Seq[*TransportEntry] {
	return seqOf(e.collector.transports)
}

func (e *PeerConnectionEntry) IceCandidates() iter.Seq[*IceCandidateEntry] {
	return seqOf(e.collector.candidates)
}

func (e *PeerConnectionEntry) CandidatePairs() iter.Seq[*IceCandidatePairEntry] {
	return seqOf(e.collector.pairs)
}

func (e *PeerConnectionEntry) Certificates() iter.Seq[*CertificateEntry] {
	return seqOf(e.collector.certificates)
}

func (e *PeerConnectionEntry) Codecs() iter.Seq[*CodecEntry] {
	return seqOf(e.collector.codecs)
}

func (e *PeerConnectionEntry) MediaSources() iter.Seq[*MediaSourceEntry] {
	return seqOf(e.collector.mediaSources)
}

func (e *PeerConnectionEntry) InboundRTPs() iter.Seq[*InboundRTPEntry] {
	return seqOf(e.collector.inbound)
}

func (e *PeerConnectionEntry) OutboundRTPs() iter.Seq[*OutboundRTPEntry] {
	return seqOf(e.collector.outbound)
}

func (e *PeerConnectionEntry) RemoteInboundRTPs() iter.Seq[*RemoteInboundRTPEntry] {
	return seqOf(e.collector.remoteInbound)
}

func (e *PeerConnectionEntry) RemoteOutboundRTPs() iter.Seq[*RemoteOutboundRTPEntry] {
	return seqOf(e.collector.remoteOutbound)
}

func (e *PeerConnectionEntry) DataChannels() iter.Seq[*DataChannelEntry] {
	return seqOf(e.collector.dataChannels)
}

func (e *PeerConnectionEntry) Tracks() iter.Seq[*TrackEntry] {
	return seqOf(e.collector.tracks)
}
