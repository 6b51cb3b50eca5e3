package pion

import (
	"github.com/pion/webrtc/v3"

	"rtcscope/internal/core/domain"
)

// translateStat converts one stats object into a canonical record. The
// second return is false for stat types the monitor has no use for.
// Stat objects arrive by value; pion's report collector stores structs,
// not pointers.
func translateStat(s webrtc.Stats) (domain.KindRecord, bool) {
	switch stat := s.(type) {
	case webrtc.TransportStats:
		return domain.KindRecord{Kind: domain.KindTransport, Record: translateTransport(stat)}, true
	case webrtc.ICECandidatePairStats:
		return domain.KindRecord{Kind: domain.KindIceCandidatePair, Record: translateCandidatePair(stat)}, true
	case webrtc.ICECandidateStats:
		return domain.KindRecord{Kind: domain.KindIceCandidate, Record: translateCandidate(stat)}, true
	case webrtc.CertificateStats:
		return domain.KindRecord{Kind: domain.KindCertificate, Record: translateCertificate(stat)}, true
	case webrtc.CodecStats:
		return domain.KindRecord{Kind: domain.KindCodec, Record: translateCodec(stat)}, true
	case webrtc.InboundRTPStreamStats:
		return domain.KindRecord{Kind: domain.KindInboundRTP, Record: translateInbound(stat)}, true
	case webrtc.OutboundRTPStreamStats:
		return domain.KindRecord{Kind: domain.KindOutboundRTP, Record: translateOutbound(stat)}, true
	case webrtc.RemoteInboundRTPStreamStats:
		return domain.KindRecord{Kind: domain.KindRemoteInboundRTP, Record: translateRemoteInbound(stat)}, true
	case webrtc.RemoteOutboundRTPStreamStats:
		return domain.KindRecord{Kind: domain.KindRemoteOutboundRTP, Record: translateRemoteOutbound(stat)}, true
	case webrtc.DataChannelStats:
		return domain.KindRecord{Kind: domain.KindDataChannel, Record: translateDataChannel(stat)}, true
	default:
		return domain.KindRecord{}, false
	}
}

func translatePeerConnection(s webrtc.PeerConnectionStats) *domain.PeerConnectionRecord {
	return &domain.PeerConnectionRecord{
		ID:                 s.ID,
		Timestamp:          s.Timestamp.Time(),
		DataChannelsOpened: domain.Uint32Ptr(s.DataChannelsOpened),
		DataChannelsClosed: domain.Uint32Ptr(s.DataChannelsClosed),
	}
}

func translateTransport(s webrtc.TransportStats) *domain.TransportRecord {
	return &domain.TransportRecord{
		ID:                      s.ID,
		Timestamp:               s.Timestamp.Time(),
		PacketsSent:             domain.Uint64Ptr(uint64(s.PacketsSent)),
		PacketsReceived:         domain.Uint64Ptr(uint64(s.PacketsReceived)),
		BytesSent:               domain.Uint64Ptr(s.BytesSent),
		BytesReceived:           domain.Uint64Ptr(s.BytesReceived),
		IceRole:                 optEnum(s.ICERole.String()),
		DtlsState:               optEnum(s.DTLSState.String()),
		SelectedCandidatePairID: optString(s.SelectedCandidatePairID),
		LocalCertificateID:      optString(s.LocalCertificateID),
		RemoteCertificateID:     optString(s.RemoteCertificateID),
	}
}

func translateCandidatePair(s webrtc.ICECandidatePairStats) *domain.IceCandidatePairRecord {
	rec := &domain.IceCandidatePairRecord{
		ID:                s.ID,
		Timestamp:         s.Timestamp.Time(),
		TransportID:       optString(s.TransportID),
		LocalCandidateID:  optString(s.LocalCandidateID),
		RemoteCandidateID: optString(s.RemoteCandidateID),
		State:             optString(string(s.State)),
		Nominated:         domain.BoolPtr(s.Nominated),
		PacketsSent:       domain.Uint64Ptr(uint64(s.PacketsSent)),
		PacketsReceived:   domain.Uint64Ptr(uint64(s.PacketsReceived)),
		BytesSent:         domain.Uint64Ptr(s.BytesSent),
		BytesReceived:     domain.Uint64Ptr(s.BytesReceived),
		RequestsReceived:  domain.Uint64Ptr(s.RequestsReceived),
		RequestsSent:      domain.Uint64Ptr(s.RequestsSent),
		ResponsesReceived: domain.Uint64Ptr(s.ResponsesReceived),
		ResponsesSent:     domain.Uint64Ptr(s.ResponsesSent),
	}
	// Zero RTT and bitrate mean "not yet measured" rather than zero.
	if s.TotalRoundTripTime > 0 {
		rec.TotalRoundTripTime = domain.Float64Ptr(s.TotalRoundTripTime)
	}
	if s.CurrentRoundTripTime > 0 {
		rec.CurrentRoundTripTime = domain.Float64Ptr(s.CurrentRoundTripTime)
	}
	if s.AvailableOutgoingBitrate > 0 {
		rec.AvailableOutgoingBitrate = domain.Float64Ptr(s.AvailableOutgoingBitrate)
	}
	if s.AvailableIncomingBitrate > 0 {
		rec.AvailableIncomingBitrate = domain.Float64Ptr(s.AvailableIncomingBitrate)
	}
	return rec
}

func translateCandidate(s webrtc.ICECandidateStats) *domain.IceCandidateRecord {
	return &domain.IceCandidateRecord{
		ID:            s.ID,
		Timestamp:     s.Timestamp.Time(),
		TransportID:   optString(s.TransportID),
		Remote:        domain.BoolPtr(s.Type == webrtc.StatsTypeRemoteCandidate),
		Address:       optString(s.IP),
		Port:          domain.Int32Ptr(s.Port),
		Protocol:      optString(s.Protocol),
		CandidateType: optEnum(s.CandidateType.String()),
		Priority:      domain.Int32Ptr(s.Priority),
		URL:           optString(s.URL),
	}
}

func translateCertificate(s webrtc.CertificateStats) *domain.CertificateRecord {
	return &domain.CertificateRecord{
		ID:                   s.ID,
		Timestamp:            s.Timestamp.Time(),
		Fingerprint:          optString(s.Fingerprint),
		FingerprintAlgorithm: optString(s.FingerprintAlgorithm),
		Base64Certificate:    optString(s.Base64Certificate),
		IssuerCertificateID:  optString(s.IssuerCertificateID),
	}
}

func translateCodec(s webrtc.CodecStats) *domain.CodecRecord {
	rec := &domain.CodecRecord{
		ID:          s.ID,
		Timestamp:   s.Timestamp.Time(),
		TransportID: optString(s.TransportID),
		PayloadType: domain.Uint32Ptr(uint32(s.PayloadType)),
		MimeType:    optString(s.MimeType),
		ClockRate:   domain.Uint32Ptr(s.ClockRate),
		SDPFmtpLine: optString(s.SDPFmtpLine),
	}
	if s.Channels > 0 {
		rec.Channels = domain.Uint32Ptr(uint32(s.Channels))
	}
	return rec
}

func translateInbound(s webrtc.InboundRTPStreamStats) *domain.InboundRTPRecord {
	return &domain.InboundRTPRecord{
		ID:                 s.ID,
		Timestamp:          s.Timestamp.Time(),
		SSRC:               domain.Uint32Ptr(uint32(s.SSRC)),
		MediaKind:          optString(s.Kind),
		TransportID:        optString(s.TransportID),
		CodecID:            optString(s.CodecID),
		RemoteID:           optString(s.RemoteID),
		PacketsReceived:    domain.Uint64Ptr(uint64(s.PacketsReceived)),
		PacketsLost:        domain.Int64Ptr(int64(s.PacketsLost)),
		PacketsDiscarded:   domain.Uint64Ptr(uint64(s.PacketsDiscarded)),
		Jitter:             domain.Float64Ptr(s.Jitter),
		BytesReceived:      domain.Uint64Ptr(s.BytesReceived),
		FecPacketsReceived: domain.Uint64Ptr(uint64(s.FECPacketsReceived)),
		NackCount:          domain.Uint32Ptr(s.NACKCount),
		PliCount:           domain.Uint32Ptr(s.PLICount),
		FirCount:           domain.Uint32Ptr(s.FIRCount),
		FramesDecoded:      domain.Uint32Ptr(s.FramesDecoded),
	}
}

func translateOutbound(s webrtc.OutboundRTPStreamStats) *domain.OutboundRTPRecord {
	rec := &domain.OutboundRTPRecord{
		ID:            s.ID,
		Timestamp:     s.Timestamp.Time(),
		SSRC:          domain.Uint32Ptr(uint32(s.SSRC)),
		MediaKind:     optString(s.Kind),
		TransportID:   optString(s.TransportID),
		CodecID:       optString(s.CodecID),
		RemoteID:      optString(s.RemoteID),
		PacketsSent:   domain.Uint64Ptr(uint64(s.PacketsSent)),
		BytesSent:     domain.Uint64Ptr(s.BytesSent),
		NackCount:     domain.Uint32Ptr(s.NACKCount),
		PliCount:      domain.Uint32Ptr(s.PLICount),
		FirCount:      domain.Uint32Ptr(s.FIRCount),
		FramesEncoded: domain.Uint32Ptr(s.FramesEncoded),
	}
	if s.TargetBitrate > 0 {
		rec.TargetBitrate = domain.Float64Ptr(s.TargetBitrate)
	}
	if s.TotalEncodeTime > 0 {
		rec.TotalEncodeTime = domain.Float64Ptr(s.TotalEncodeTime)
	}
	if reason := string(s.QualityLimitationReason); reason != "" {
		rec.QualityLimitationReason = domain.StringPtr(reason)
	}
	return rec
}

func translateRemoteInbound(s webrtc.RemoteInboundRTPStreamStats) *domain.RemoteInboundRTPRecord {
	rec := &domain.RemoteInboundRTPRecord{
		ID:           s.ID,
		Timestamp:    s.Timestamp.Time(),
		SSRC:         domain.Uint32Ptr(uint32(s.SSRC)),
		MediaKind:    optString(s.Kind),
		TransportID:  optString(s.TransportID),
		CodecID:      optString(s.CodecID),
		LocalID:      optString(s.LocalID),
		PacketsLost:  domain.Int64Ptr(int64(s.PacketsLost)),
		Jitter:       domain.Float64Ptr(s.Jitter),
		FractionLost: domain.Float64Ptr(s.FractionLost),
	}
	if s.RoundTripTime > 0 {
		rec.RoundTripTime = domain.Float64Ptr(s.RoundTripTime)
	}
	return rec
}

func translateRemoteOutbound(s webrtc.RemoteOutboundRTPStreamStats) *domain.RemoteOutboundRTPRecord {
	return &domain.RemoteOutboundRTPRecord{
		ID:          s.ID,
		Timestamp:   s.Timestamp.Time(),
		SSRC:        domain.Uint32Ptr(uint32(s.SSRC)),
		MediaKind:   optString(s.Kind),
		TransportID: optString(s.TransportID),
		CodecID:     optString(s.CodecID),
		LocalID:     optString(s.LocalID),
		PacketsSent: domain.Uint64Ptr(uint64(s.PacketsSent)),
		BytesSent:   domain.Uint64Ptr(s.BytesSent),
	}
}

func translateDataChannel(s webrtc.DataChannelStats) *domain.DataChannelRecord {
	return &domain.DataChannelRecord{
		ID:               s.ID,
		Timestamp:        s.Timestamp.Time(),
		Label:            optString(s.Label),
		Protocol:         optString(s.Protocol),
		ChannelID:        domain.Int32Ptr(s.DataChannelIdentifier),
		State:            optEnum(s.State.String()),
		MessagesSent:     domain.Uint32Ptr(s.MessagesSent),
		MessagesReceived: domain.Uint32Ptr(s.MessagesReceived),
		BytesSent:        domain.Uint64Ptr(s.BytesSent),
		BytesReceived:    domain.Uint64Ptr(s.BytesReceived),
	}
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return domain.StringPtr(s)
}

// optEnum is optString for pion's integer enums, whose zero value
// stringifies to "unknown".
func optEnum(s string) *string {
	if s == "" || s == "unknown" {
		return nil
	}
	return domain.StringPtr(s)
}
