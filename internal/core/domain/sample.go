package domain

import "time"

// Delta blocks hold the per-interval derivatives an entry monitor computes
// on update. A nil field means the interval had no usable previous value.

type TransportDeltas struct {
	DeltaPacketsSent     *uint64  `json:"deltaPacketsSent,omitempty"`
	DeltaPacketsReceived *uint64  `json:"deltaPacketsReceived,omitempty"`
	DeltaBytesSent       *uint64  `json:"deltaBytesSent,omitempty"`
	DeltaBytesReceived   *uint64  `json:"deltaBytesReceived,omitempty"`
	SendBitrate          *float64 `json:"sendBitrate,omitempty"`
	ReceiveBitrate       *float64 `json:"receiveBitrate,omitempty"`
}

type IceCandidatePairDeltas struct {
	DeltaPacketsSent     *uint64  `json:"deltaPacketsSent,omitempty"`
	DeltaPacketsReceived *uint64  `json:"deltaPacketsReceived,omitempty"`
	DeltaBytesSent       *uint64  `json:"deltaBytesSent,omitempty"`
	DeltaBytesReceived   *uint64  `json:"deltaBytesReceived,omitempty"`
	SendBitrate          *float64 `json:"sendBitrate,omitempty"`
	ReceiveBitrate       *float64 `json:"receiveBitrate,omitempty"`
}

type InboundRTPDeltas struct {
	DeltaPacketsReceived                *uint64  `json:"deltaPacketsReceived,omitempty"`
	DeltaPacketsLost                    *int64   `json:"deltaPacketsLost,omitempty"`
	DeltaBytesReceived                  *uint64  `json:"deltaBytesReceived,omitempty"`
	ReceiveBitrate                      *float64 `json:"receiveBitrate,omitempty"`
	PacketRate                          *float64 `json:"packetRate,omitempty"`
	FractionLost                        *float64 `json:"fractionLost,omitempty"`
	DeltaFramesReceived                 *uint32  `json:"deltaFramesReceived,omitempty"`
	DeltaFramesDecoded                  *uint32  `json:"deltaFramesDecoded,omitempty"`
	DeltaFramesDropped                  *uint32  `json:"deltaFramesDropped,omitempty"`
	DeltaNackCount                      *uint32  `json:"deltaNackCount,omitempty"`
	DeltaFreezeCount                    *uint32  `json:"deltaFreezeCount,omitempty"`
	DeltaFreezesDuration                *float64 `json:"deltaFreezesDuration,omitempty"`
	DeltaTotalSamplesReceived           *uint64  `json:"deltaTotalSamplesReceived,omitempty"`
	DeltaConcealedSamples               *uint64  `json:"deltaConcealedSamples,omitempty"`
	DeltaSilentConcealedSamples         *uint64  `json:"deltaSilentConcealedSamples,omitempty"`
	DeltaInsertedSamplesForDeceleration *uint64  `json:"deltaInsertedSamplesForDeceleration,omitempty"`
	DeltaRemovedSamplesForAcceleration  *uint64  `json:"deltaRemovedSamplesForAcceleration,omitempty"`
}

type OutboundRTPDeltas struct {
	DeltaPacketsSent              *uint64  `json:"deltaPacketsSent,omitempty"`
	DeltaBytesSent                *uint64  `json:"deltaBytesSent,omitempty"`
	SendBitrate                   *float64 `json:"sendBitrate,omitempty"`
	PacketRate                    *float64 `json:"packetRate,omitempty"`
	DeltaRetransmittedPacketsSent *uint64  `json:"deltaRetransmittedPacketsSent,omitempty"`
	DeltaFramesEncoded            *uint32  `json:"deltaFramesEncoded,omitempty"`
	DeltaFramesSent               *uint32  `json:"deltaFramesSent,omitempty"`
	DeltaNackCount                *uint32  `json:"deltaNackCount,omitempty"`
}

type RemoteInboundRTPDeltas struct {
	DeltaPacketsLost *int64 `json:"deltaPacketsLost,omitempty"`
}

type RemoteOutboundRTPDeltas struct {
	DeltaPacketsSent *uint64 `json:"deltaPacketsSent,omitempty"`
	DeltaBytesSent   *uint64 `json:"deltaBytesSent,omitempty"`
}

type DataChannelDeltas struct {
	DeltaMessagesSent     *uint32 `json:"deltaMessagesSent,omitempty"`
	DeltaMessagesReceived *uint32 `json:"deltaMessagesReceived,omitempty"`
	DeltaBytesSent        *uint64 `json:"deltaBytesSent,omitempty"`
	DeltaBytesReceived    *uint64 `json:"deltaBytesReceived,omitempty"`
}

type TrackDeltas struct {
	DeltaFramesReceived *uint32 `json:"deltaFramesReceived,omitempty"`
	DeltaFramesSent     *uint32 `json:"deltaFramesSent,omitempty"`
	DeltaFramesDecoded  *uint32 `json:"deltaFramesDecoded,omitempty"`
	DeltaFramesDropped  *uint32 `json:"deltaFramesDropped,omitempty"`
}

// Per-kind samples are the public snapshot of one entry: the last absolute
// record plus the deltas of the most recent interval.

type PeerConnectionEntrySample struct {
	PeerConnectionRecord
}

type TransportSample struct {
	TransportRecord
	TransportDeltas
}

type IceCandidateSample struct {
	IceCandidateRecord
}

type IceCandidatePairSample struct {
	IceCandidatePairRecord
	IceCandidatePairDeltas
}

type CertificateSample struct {
	CertificateRecord
}

type CodecSample struct {
	CodecRecord
}

type MediaSourceSample struct {
	MediaSourceRecord
}

type InboundRTPSample struct {
	InboundRTPRecord
	InboundRTPDeltas
}

type OutboundRTPSample struct {
	OutboundRTPRecord
	OutboundRTPDeltas
}

type RemoteInboundRTPSample struct {
	RemoteInboundRTPRecord
	RemoteInboundRTPDeltas
}

type RemoteOutboundRTPSample struct {
	RemoteOutboundRTPRecord
	RemoteOutboundRTPDeltas
}

type DataChannelSample struct {
	DataChannelRecord
	DataChannelDeltas
}

type TrackSample struct {
	TrackRecord
	TrackDeltas
}

// PeerConnectionSample groups every live entry of one peer connection scope.
type PeerConnectionSample struct {
	PeerConnectionID string                      `json:"peerConnectionId"`
	CollectorID      string                      `json:"collectorId"`
	Label            string                      `json:"label,omitempty"`
	PeerConnection   *PeerConnectionEntrySample  `json:"peerConnection,omitempty"`
	Transports       []TransportSample           `json:"transports,omitempty"`
	IceCandidates    []IceCandidateSample        `json:"iceCandidates,omitempty"`
	CandidatePairs   []IceCandidatePairSample    `json:"candidatePairs,omitempty"`
	Certificates     []CertificateSample         `json:"certificates,omitempty"`
	Codecs           []CodecSample               `json:"codecs,omitempty"`
	MediaSources     []MediaSourceSample         `json:"mediaSources,omitempty"`
	InboundRTPs      []InboundRTPSample          `json:"inboundRtps,omitempty"`
	OutboundRTPs     []OutboundRTPSample         `json:"outboundRtps,omitempty"`
	RemoteInbounds   []RemoteInboundRTPSample    `json:"remoteInboundRtps,omitempty"`
	RemoteOutbounds  []RemoteOutboundRTPSample   `json:"remoteOutboundRtps,omitempty"`
	DataChannels     []DataChannelSample         `json:"dataChannels,omitempty"`
	Tracks           []TrackSample               `json:"tracks,omitempty"`
	Score            *float64                    `json:"score,omitempty"`
}

// SessionAggregates are the cross-entry totals the store recomputes at each
// commit.
type SessionAggregates struct {
	Entries              map[Kind]int `json:"entries"`
	TotalPacketsReceived uint64       `json:"totalPacketsReceived"`
	TotalPacketsSent     uint64       `json:"totalPacketsSent"`
	TotalBytesReceived   uint64       `json:"totalBytesReceived"`
	TotalBytesSent       uint64       `json:"totalBytesSent"`
	DeltaPacketsReceived uint64       `json:"deltaPacketsReceived"`
	DeltaPacketsSent     uint64       `json:"deltaPacketsSent"`
	DeltaBytesReceived   uint64       `json:"deltaBytesReceived"`
	DeltaBytesSent       uint64       `json:"deltaBytesSent"`
	ReceiveBitrate       float64      `json:"receiveBitrate"`
	SendBitrate          float64      `json:"sendBitrate"`
}

// ClientMetadata carries the static platform facts attached to outgoing
// samples.
type ClientMetadata struct {
	Hostname       string `json:"hostname,omitempty"`
	OS             string `json:"os,omitempty"`
	Platform       string `json:"platform,omitempty"`
	PlatformFamily string `json:"platformFamily,omitempty"`
	KernelVersion  string `json:"kernelVersion,omitempty"`
	Arch           string `json:"arch,omitempty"`
	CPUModel       string `json:"cpuModel,omitempty"`
	Cores          int    `json:"cores,omitempty"`
	TotalMemBytes  uint64 `json:"totalMemBytes,omitempty"`
	GoVersion      string `json:"goVersion,omitempty"`
}

// ClientSample is one outgoing report: everything observed in a cycle.
type ClientSample struct {
	ClientID        ClientID               `json:"clientId"`
	CallID          CallID                 `json:"callId"`
	SeqNo           int                    `json:"seqNo"`
	Timestamp       time.Time              `json:"timestamp"`
	Metadata        *ClientMetadata        `json:"metadata,omitempty"`
	PeerConnections []PeerConnectionSample `json:"peerConnections,omitempty"`
	Aggregates      *SessionAggregates     `json:"aggregates,omitempty"`
	Alerts          []AlertEvent           `json:"alerts,omitempty"`
	Issues          []Issue                `json:"issues,omitempty"`
	Score           *float64               `json:"score,omitempty"`
}
