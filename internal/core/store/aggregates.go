package store

import (
	"maps"

	"rtcscope/internal/core/domain"
)

// recomputeAggregates rebuilds the session totals from the live entries.
// Runs at every commit.
func (s *Store) recomputeAggregates() {
	agg := domain.SessionAggregates{Entries: make(map[domain.Kind]int)}
	for _, cs := range s.collectors {
		agg.Entries[domain.KindPeerConnection] += len(cs.pcs)
		agg.Entries[domain.KindTransport] += len(cs.transports)
		agg.Entries[domain.KindIceCandidate] += len(cs.candidates)
		agg.Entries[domain.KindIceCandidatePair] += len(cs.pairs)
		agg.Entries[domain.KindCertificate] += len(cs.certificates)
		agg.Entries[domain.KindCodec] += len(cs.codecs)
		agg.Entries[domain.KindMediaSource] += len(cs.mediaSources)
		agg.Entries[domain.KindInboundRTP] += len(cs.inbound)
		agg.Entries[domain.KindOutboundRTP] += len(cs.outbound)
		agg.Entries[domain.KindRemoteInboundRTP] += len(cs.remoteInbound)
		agg.Entries[domain.KindRemoteOutboundRTP] += len(cs.remoteOutbound)
		agg.Entries[domain.KindDataChannel] += len(cs.dataChannels)
		agg.Entries[domain.KindTrack] += len(cs.tracks)

		for _, e := range cs.inbound {
			if v := e.cur.PacketsReceived; v != nil {
				agg.TotalPacketsReceived += *v
			}
			if v := e.cur.BytesReceived; v != nil {
				agg.TotalBytesReceived += *v
			}
			if v := e.deltas.DeltaPacketsReceived; v != nil {
				agg.DeltaPacketsReceived += *v
			}
			if v := e.deltas.DeltaBytesReceived; v != nil {
				agg.DeltaBytesReceived += *v
			}
			if v := e.deltas.ReceiveBitrate; v != nil {
				agg.ReceiveBitrate += *v
			}
		}
		for _, e := range cs.outbound {
			if v := e.cur.PacketsSent; v != nil {
				agg.TotalPacketsSent += *v
			}
			if v := e.cur.BytesSent; v != nil {
				agg.TotalBytesSent += *v
			}
			if v := e.deltas.DeltaPacketsSent; v != nil {
				agg.DeltaPacketsSent += *v
			}
			if v := e.deltas.DeltaBytesSent; v != nil {
				agg.DeltaBytesSent += *v
			}
			if v := e.deltas.SendBitrate; v != nil {
				agg.SendBitrate += *v
			}
		}
	}
	s.agg = agg
}

// Aggregates returns the totals as of the last commit.
func (s *Store) Aggregates() domain.SessionAggregates {
	out := s.agg
	out.Entries = maps.Clone(s.agg.Entries)
	return out
}
