package store

import (
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
)

// Config controls store behavior.
type Config struct {
	// PruneGrace allows entries of a kind to survive commits unvisited
	// until their staleness exceeds the grace. Kinds without an entry
	// prune at the first unvisited commit.
	PruneGrace map[domain.Kind]time.Duration

	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

// Store is the authoritative graph of every entity reported for a session.
// It is written only from the ingestion path of the monitor cycle and must
// not be shared across goroutines.
type Store struct {
	cfg        Config
	log        *zap.SugaredLogger
	now        func() time.Time
	collectors map[domain.CollectorID]*collectorState
	agg        domain.SessionAggregates
	dropped    uint64
}

type collectorState struct {
	id    domain.CollectorID
	label string

	pcs            map[string]*PeerConnectionEntry
	transports     map[string]*TransportEntry
	candidates     map[string]*IceCandidateEntry
	pairs          map[string]*IceCandidatePairEntry
	certificates   map[string]*CertificateEntry
	codecs         map[string]*CodecEntry
	mediaSources   map[string]*MediaSourceEntry
	inbound        map[string]*InboundRTPEntry
	outbound       map[string]*OutboundRTPEntry
	remoteInbound  map[string]*RemoteInboundRTPEntry
	remoteOutbound map[string]*RemoteOutboundRTPEntry
	dataChannels   map[string]*DataChannelEntry
	tracks         map[string]*TrackEntry

	inboundBySSRC        map[uint32]*InboundRTPEntry
	outboundBySSRC       map[uint32]*OutboundRTPEntry
	remoteInboundBySSRC  map[uint32]*RemoteInboundRTPEntry
	remoteOutboundBySSRC map[uint32]*RemoteOutboundRTPEntry
	tracksByIdentifier   map[string]*TrackEntry
	indicesDirty         bool
}

func newCollectorState(id domain.CollectorID, label string) *collectorState {
	return &collectorState{
		id:             id,
		label:          label,
		pcs:            make(map[string]*PeerConnectionEntry),
		transports:     make(map[string]*TransportEntry),
		candidates:     make(map[string]*IceCandidateEntry),
		pairs:          make(map[string]*IceCandidatePairEntry),
		certificates:   make(map[string]*CertificateEntry),
		codecs:         make(map[string]*CodecEntry),
		mediaSources:   make(map[string]*MediaSourceEntry),
		inbound:        make(map[string]*InboundRTPEntry),
		outbound:       make(map[string]*OutboundRTPEntry),
		remoteInbound:  make(map[string]*RemoteInboundRTPEntry),
		remoteOutbound: make(map[string]*RemoteOutboundRTPEntry),
		dataChannels:   make(map[string]*DataChannelEntry),
		tracks:         make(map[string]*TrackEntry),
		indicesDirty:   true,
	}
}

// ensureIndices rebuilds the secondary lookup maps after mutations. Indices
// are rebuilt lazily, on the first lookup that needs them.
func (cs *collectorState) ensureIndices() {
	if !cs.indicesDirty {
		return
	}
	cs.inboundBySSRC = make(map[uint32]*InboundRTPEntry, len(cs.inbound))
	for _, e := range cs.inbound {
		if e.cur.SSRC != nil {
			cs.inboundBySSRC[*e.cur.SSRC] = e
		}
	}
	cs.outboundBySSRC = make(map[uint32]*OutboundRTPEntry, len(cs.outbound))
	for _, e := range cs.outbound {
		if e.cur.SSRC != nil {
			cs.outboundBySSRC[*e.cur.SSRC] = e
		}
	}
	cs.remoteInboundBySSRC = make(map[uint32]*RemoteInboundRTPEntry, len(cs.remoteInbound))
	for _, e := range cs.remoteInbound {
		if e.cur.SSRC != nil {
			cs.remoteInboundBySSRC[*e.cur.SSRC] = e
		}
	}
	cs.remoteOutboundBySSRC = make(map[uint32]*RemoteOutboundRTPEntry, len(cs.remoteOutbound))
	for _, e := range cs.remoteOutbound {
		if e.cur.SSRC != nil {
			cs.remoteOutboundBySSRC[*e.cur.SSRC] = e
		}
	}
	cs.tracksByIdentifier = make(map[string]*TrackEntry, len(cs.tracks))
	for _, e := range cs.tracks {
		if e.cur.TrackIdentifier != nil {
			cs.tracksByIdentifier[*e.cur.TrackIdentifier] = e
		}
	}
	cs.indicesDirty = false
}

func New(cfg Config, log *zap.SugaredLogger) *Store {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		cfg:        cfg,
		log:        log,
		now:        now,
		collectors: make(map[domain.CollectorID]*collectorState),
		agg:        domain.SessionAggregates{Entries: make(map[domain.Kind]int)},
	}
}

// Register announces a collector before its first ingestion.
func (s *Store) Register(id domain.CollectorID, label string) error {
	if _, ok := s.collectors[id]; ok {
		return fmt.Errorf("%w: %s", domain.ErrCollectorExists, id)
	}
	s.collectors[id] = newCollectorState(id, label)
	s.log.Debugw("collector registered", "collector", id, "label", label)
	return nil
}

func (s *Store) Registered(id domain.CollectorID) bool {
	_, ok := s.collectors[id]
	return ok
}

// CloseCollector removes the collector and every entry it owns.
func (s *Store) CloseCollector(id domain.CollectorID) {
	if _, ok := s.collectors[id]; !ok {
		return
	}
	delete(s.collectors, id)
	s.log.Debugw("collector closed", "collector", id)
}

// Clear empties the store on session close.
func (s *Store) Clear() {
	s.collectors = make(map[domain.CollectorID]*collectorState)
	s.agg = domain.SessionAggregates{Entries: make(map[domain.Kind]int)}
}

// Accept routes one canonical record into its entry monitor, creating the
// entry on first sight. The record is rejected, with no state change, when
// the collector is unknown, the kind is outside the closed set, or the
// record misses its required id or timestamp.
func (s *Store) Accept(col domain.CollectorID, rec domain.KindRecord) error {
	cs, ok := s.collectors[col]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownCollector, col)
	}
	now := s.now()
	switch rec.Kind {
	case domain.KindPeerConnection:
		r, ok := rec.Record.(*domain.PeerConnectionRecord)
		if !ok || r.ID == "" || r.Timestamp.IsZero() {
			return s.malformed(col, rec.Kind)
		}
		if e, ok := cs.pcs[r.ID]; ok {
			e.update(r, now)
		} else {
			cs.pcs[r.ID] = newPeerConnectionEntry(cs, r, now)
		}
	case domain.KindTransport:
		r, ok := rec.Record.(*domain.TransportRecord)
		if !ok || r.ID == "" || r.Timestamp.IsZero() {
			return s.malformed(col, rec.Kind)
		}
		if e, ok := cs.transports[r.ID]; ok {
			e.update(r, now)
		} else {
			cs.transports[r.ID] = newTransportEntry(cs, r, now)
		}
	case domain.KindIceCandidate:
		r, ok := rec.Record.(*domain.IceCandidateRecord)
		if !ok || r.ID == "" || r.Timestamp.IsZero() {
			return s.malformed(col, rec.Kind)
		}
		if e, ok := cs.candidates[r.ID]; ok {
			e.update(r, now)
		} else {
			cs.candidates[r.ID] = newIceCandidateEntry(cs, r, now)
		}
	case domain.KindIceCandidatePair:
		r, ok := rec.Record.(*domain.IceCandidatePairRecord)
		if !ok || r.ID == "" || r.Timestamp.IsZero() {
			return s.malformed(col, rec.Kind)
		}
		if e, ok := cs.pairs[r.ID]; ok {
			e.update(r, now)
		} else {
			cs.pairs[r.ID] = newIceCandidatePairEntry(cs, r, now)
		}
	case domain.KindCertificate:
		r, ok := rec.Record.(*domain.CertificateRecord)
		if !ok || r.ID == "" || r.Timestamp.IsZero() {
			return s.malformed(col, rec.Kind)
		}
		if e, ok := cs.certificates[r.ID]; ok {
			e.update(r, now)
		} else {
			cs.certificates[r.ID] = newCertificateEntry(cs, r, now)
		}
	case domain.KindCodec:
		r, ok := rec.Record.(*domain.CodecRecord)
		if !ok || r.ID == "" || r.Timestamp.IsZero() {
			return s.malformed(col, rec.Kind)
		}
		if e, ok := cs.codecs[r.ID]; ok {
			e.update(r, now)
		} else {
			cs.codecs[r.ID] = newCodecEntry(cs, r, now)
		}
	case domain.KindMediaSource:
		r, ok := rec.Record.(*domain.MediaSourceRecord)
		if !ok || r.ID == "" || r.Timestamp.IsZero() {
			return s.malformed(col, rec.Kind)
		}
		if e, ok := cs.mediaSources[r.ID]; ok {
			e.update(r, now)
		} else {
			cs.mediaSources[r.ID] = newMediaSourceEntry(cs, r, now)
		}
	case domain.KindInboundRTP:
		r, ok := rec.Record.(*domain.InboundRTPRecord)
		if !ok || r.ID == "" || r.Timestamp.IsZero() {
			return s.malformed(col, rec.Kind)
		}
		if e, ok := cs.inbound[r.ID]; ok {
			e.update(r, now)
		} else {
			cs.inbound[r.ID] = newInboundRTPEntry(cs, r, now)
		}
		cs.indicesDirty = true
	case domain.KindOutboundRTP:
		r, ok := rec.Record.(*domain.OutboundRTPRecord)
		if !ok || r.ID == "" || r.Timestamp.IsZero() {
			return s.malformed(col, rec.Kind)
		}
		if e, ok := cs.outbound[r.ID]; ok {
			e.update(r, now)
		} else {
			cs.outbound[r.ID] = newOutboundRTPEntry(cs, r, now)
		}
		cs.indicesDirty = true
	case domain.KindRemoteInboundRTP:
		r, ok := rec.Record.(*domain.RemoteInboundRTPRecord)
		if !ok || r.ID == "" || r.Timestamp.IsZero() {
			return s.malformed(col, rec.Kind)
		}
		if e, ok := cs.remoteInbound[r.ID]; ok {
			e.update(r, now)
		} else {
			cs.remoteInbound[r.ID] = newRemoteInboundRTPEntry(cs, r, now)
		}
		cs.indicesDirty = true
	case domain.KindRemoteOutboundRTP:
		r, ok := rec.Record.(*domain.RemoteOutboundRTPRecord)
		if !ok || r.ID == "" || r.Timestamp.IsZero() {
			return s.malformed(col, rec.Kind)
		}
		if e, ok := cs.remoteOutbound[r.ID]; ok {
			e.update(r, now)
		} else {
			cs.remoteOutbound[r.ID] = newRemoteOutboundRTPEntry(cs, r, now)
		}
		cs.indicesDirty = true
	case domain.KindDataChannel:
		r, ok := rec.Record.(*domain.DataChannelRecord)
		if !ok || r.ID == "" || r.Timestamp.IsZero() {
			return s.malformed(col, rec.Kind)
		}
		if e, ok := cs.dataChannels[r.ID]; ok {
			e.update(r, now)
		} else {
			cs.dataChannels[r.ID] = newDataChannelEntry(cs, r, now)
		}
	case domain.KindTrack:
		r, ok := rec.Record.(*domain.TrackRecord)
		if !ok || r.ID == "" || r.Timestamp.IsZero() {
			return s.malformed(col, rec.Kind)
		}
		if e, ok := cs.tracks[r.ID]; ok {
			e.update(r, now)
		} else {
			cs.tracks[r.ID] = newTrackEntry(cs, r, now)
		}
		cs.indicesDirty = true
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownKind, rec.Kind)
	}
	return nil
}

func (s *Store) malformed(col domain.CollectorID, kind domain.Kind) error {
	s.dropped++
	s.log.Warnw("dropping malformed record", "collector", col, "kind", kind)
	return fmt.Errorf("%w: kind %s", domain.ErrMalformedRecord, kind)
}

// DroppedRecords reports how many malformed records have been dropped since
// the store was created.
func (s *Store) DroppedRecords() uint64 { return s.dropped }

// Commit closes one cycle: entries not visited within the cycle are removed
// once their staleness exceeds the kind's grace period, visited flags reset
// for the next cycle, and aggregates recompute over what remains.
func (s *Store) Commit() {
	now := s.now()
	for _, cs := range s.collectors {
		pruneKind(s, cs, cs.pcs, domain.KindPeerConnection, now)
		pruneKind(s, cs, cs.transports, domain.KindTransport, now)
		pruneKind(s, cs, cs.candidates, domain.KindIceCandidate, now)
		pruneKind(s, cs, cs.pairs, domain.KindIceCandidatePair, now)
		pruneKind(s, cs, cs.certificates, domain.KindCertificate, now)
		pruneKind(s, cs, cs.codecs, domain.KindCodec, now)
		pruneKind(s, cs, cs.mediaSources, domain.KindMediaSource, now)
		pruneKind(s, cs, cs.inbound, domain.KindInboundRTP, now)
		pruneKind(s, cs, cs.outbound, domain.KindOutboundRTP, now)
		pruneKind(s, cs, cs.remoteInbound, domain.KindRemoteInboundRTP, now)
		pruneKind(s, cs, cs.remoteOutbound, domain.KindRemoteOutboundRTP, now)
		pruneKind(s, cs, cs.dataChannels, domain.KindDataChannel, now)
		pruneKind(s, cs, cs.tracks, domain.KindTrack, now)
	}
	s.recomputeAggregates()
}

func pruneKind[E interface{ meta() *entryMeta }](s *Store, cs *collectorState, m map[string]E, kind domain.Kind, now time.Time) {
	grace := s.cfg.PruneGrace[kind]
	for id, e := range m {
		em := e.meta()
		if em.visited {
			em.visited = false
			continue
		}
		if now.Sub(em.lastSeen) > grace {
			delete(m, id)
			cs.indicesDirty = true
			s.log.Debugw("pruned stale entry", "collector", cs.id, "kind", kind, "entry", id)
		}
	}
}

// seqOf enumerates one kind map. The sequence is lazy, finite, and
// restartable; a fresh range observes the latest committed state.
func seqOf[E any](m map[string]E) iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, e := range m {
			if !yield(e) {
				return
			}
		}
	}
}

func seqAll[E any](s *Store, pick func(*collectorState) map[string]E) iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, cs := range s.collectors {
			for _, e := range pick(cs) {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// Kind-scoped enumerations across every collector.

func (s *Store) PeerConnections() iter.Seq[*PeerConnectionEntry] {
	return seqAll(s, func(cs *collectorState) map[string]*PeerConnectionEntry { return cs.pcs })
}

func (s *Store) Transports() iter.Seq[*TransportEntry] {
	return seqAll(s, func(cs *collectorState) map[string]*TransportEntry { return cs.transports })
}

func (s *Store) IceCandidates() iter.Seq[*IceCandidateEntry] {
	return seqAll(s, func(cs *collectorState) map[string]*IceCandidateEntry { return cs.candidates })
}

func (s *Store) CandidatePairs() iter.Seq[*IceCandidatePairEntry] {
	return seqAll(s, func(cs *collectorState) map[string]*IceCandidatePairEntry { return cs.pairs })
}

func (s *Store) Certificates() iter.Seq[*CertificateEntry] {
	return seqAll(s, func(cs *collectorState) map[string]*CertificateEntry { return cs.certificates })
}

func (s *Store) Codecs() iter.Seq[*CodecEntry] {
	return seqAll(s, func(cs *collectorState) map[string]*CodecEntry { return cs.codecs })
}

func (s *Store) MediaSources() iter.Seq[*MediaSourceEntry] {
	return seqAll(s, func(cs *collectorState) map[string]*MediaSourceEntry { return cs.mediaSources })
}

func (s *Store) InboundRTPs() iter.Seq[*InboundRTPEntry] {
	return seqAll(s, func(cs *collectorState) map[string]*InboundRTPEntry { return cs.inbound })
}

func (s *Store) OutboundRTPs() iter.Seq[*OutboundRTPEntry] {
	return seqAll(s, func(cs *collectorState) map[string]*OutboundRTPEntry { return cs.outbound })
}

func (s *Store) RemoteInboundRTPs() iter.Seq[*RemoteInboundRTPEntry] {
	return seqAll(s, func(cs *collectorState) map[string]*RemoteInboundRTPEntry { return cs.remoteInbound })
}

func (s *Store) RemoteOutboundRTPs() iter.Seq[*RemoteOutboundRTPEntry] {
	return seqAll(s, func(cs *collectorState) map[string]*RemoteOutboundRTPEntry { return cs.remoteOutbound })
}

func (s *Store) DataChannels() iter.Seq[*DataChannelEntry] {
	return seqAll(s, func(cs *collectorState) map[string]*DataChannelEntry { return cs.dataChannels })
}

func (s *Store) Tracks() iter.Seq[*TrackEntry] {
	return seqAll(s, func(cs *collectorState) map[string]*TrackEntry { return cs.tracks })
}
