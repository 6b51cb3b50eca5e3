package domain

import "time"

type CollectorID string
type EntryID string
type ClientID string
type CallID string

// Kind tags every canonical record with the stat category it belongs to.
type Kind string

const (
	KindPeerConnection    Kind = "peer-connection"
	KindTransport         Kind = "transport"
	KindIceCandidate      Kind = "ice-candidate"
	KindIceCandidatePair  Kind = "ice-candidate-pair"
	KindCertificate       Kind = "certificate"
	KindCodec             Kind = "codec"
	KindMediaSource       Kind = "media-source"
	KindInboundRTP        Kind = "inbound-rtp"
	KindOutboundRTP       Kind = "outbound-rtp"
	KindRemoteInboundRTP  Kind = "remote-inbound-rtp"
	KindRemoteOutboundRTP Kind = "remote-outbound-rtp"
	KindDataChannel       Kind = "data-channel"
	KindTrack             Kind = "track"
)

// Kinds returns the closed set of record kinds.
func Kinds() []Kind {
	return []Kind{
		KindPeerConnection,
		KindTransport,
		KindIceCandidate,
		KindIceCandidatePair,
		KindCertificate,
		KindCodec,
		KindMediaSource,
		KindInboundRTP,
		KindOutboundRTP,
		KindRemoteInboundRTP,
		KindRemoteOutboundRTP,
		KindDataChannel,
		KindTrack,
	}
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// KindRecord pairs a record with its kind tag so a collector can emit a
// heterogeneous batch without a type hierarchy.
type KindRecord struct {
	Kind   Kind
	Record any
}

// Canonical records mirror the flat stat schema of the underlying media
// engine. ID and Timestamp are required; every other numeric field is a
// pointer so that an absent value is distinguishable from zero.

type PeerConnectionRecord struct {
	ID                 string     `json:"id"`
	Timestamp          time.Time  `json:"timestamp"`
	Label              *string    `json:"label,omitempty"`
	ConnectionState    *string    `json:"connectionState,omitempty"`
	IceState           *string    `json:"iceState,omitempty"`
	SignalingState     *string    `json:"signalingState,omitempty"`
	DataChannelsOpened *uint32    `json:"dataChannelsOpened,omitempty"`
	DataChannelsClosed *uint32    `json:"dataChannelsClosed,omitempty"`
	OpenedAt           *time.Time `json:"openedAt,omitempty"`
}

type TransportRecord struct {
	ID                           string    `json:"id"`
	Timestamp                    time.Time `json:"timestamp"`
	PacketsSent                  *uint64   `json:"packetsSent,omitempty"`
	PacketsReceived              *uint64   `json:"packetsReceived,omitempty"`
	BytesSent                    *uint64   `json:"bytesSent,omitempty"`
	BytesReceived                *uint64   `json:"bytesReceived,omitempty"`
	IceRole                      *string   `json:"iceRole,omitempty"`
	IceState                     *string   `json:"iceState,omitempty"`
	DtlsState                    *string   `json:"dtlsState,omitempty"`
	SelectedCandidatePairID      *string   `json:"selectedCandidatePairId,omitempty"`
	SelectedCandidatePairChanges *uint32   `json:"selectedCandidatePairChanges,omitempty"`
	LocalCertificateID           *string   `json:"localCertificateId,omitempty"`
	RemoteCertificateID          *string   `json:"remoteCertificateId,omitempty"`
}

type IceCandidateRecord struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	TransportID   *string   `json:"transportId,omitempty"`
	Remote        *bool     `json:"remote,omitempty"`
	Address       *string   `json:"address,omitempty"`
	Port          *int32    `json:"port,omitempty"`
	Protocol      *string   `json:"protocol,omitempty"`
	CandidateType *string   `json:"candidateType,omitempty"`
	Priority      *int32    `json:"priority,omitempty"`
	URL           *string   `json:"url,omitempty"`
}

type IceCandidatePairRecord struct {
	ID                       string    `json:"id"`
	Timestamp                time.Time `json:"timestamp"`
	TransportID              *string   `json:"transportId,omitempty"`
	LocalCandidateID         *string   `json:"localCandidateId,omitempty"`
	RemoteCandidateID        *string   `json:"remoteCandidateId,omitempty"`
	State                    *string   `json:"state,omitempty"`
	Nominated                *bool     `json:"nominated,omitempty"`
	PacketsSent              *uint64   `json:"packetsSent,omitempty"`
	PacketsReceived          *uint64   `json:"packetsReceived,omitempty"`
	BytesSent                *uint64   `json:"bytesSent,omitempty"`
	BytesReceived            *uint64   `json:"bytesReceived,omitempty"`
	TotalRoundTripTime       *float64  `json:"totalRoundTripTime,omitempty"`
	CurrentRoundTripTime     *float64  `json:"currentRoundTripTime,omitempty"`
	AvailableOutgoingBitrate *float64  `json:"availableOutgoingBitrate,omitempty"`
	AvailableIncomingBitrate *float64  `json:"availableIncomingBitrate,omitempty"`
	RequestsReceived         *uint64   `json:"requestsReceived,omitempty"`
	RequestsSent             *uint64   `json:"requestsSent,omitempty"`
	ResponsesReceived        *uint64   `json:"responsesReceived,omitempty"`
	ResponsesSent            *uint64   `json:"responsesSent,omitempty"`
}

type CertificateRecord struct {
	ID                   string    `json:"id"`
	Timestamp            time.Time `json:"timestamp"`
	Fingerprint          *string   `json:"fingerprint,omitempty"`
	FingerprintAlgorithm *string   `json:"fingerprintAlgorithm,omitempty"`
	Base64Certificate    *string   `json:"base64Certificate,omitempty"`
	IssuerCertificateID  *string   `json:"issuerCertificateId,omitempty"`
}

type CodecRecord struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	TransportID *string   `json:"transportId,omitempty"`
	PayloadType *uint32   `json:"payloadType,omitempty"`
	MimeType    *string   `json:"mimeType,omitempty"`
	ClockRate   *uint32   `json:"clockRate,omitempty"`
	Channels    *uint32   `json:"channels,omitempty"`
	SDPFmtpLine *string   `json:"sdpFmtpLine,omitempty"`
}

type MediaSourceRecord struct {
	ID                   string    `json:"id"`
	Timestamp            time.Time `json:"timestamp"`
	TrackIdentifier      *string   `json:"trackIdentifier,omitempty"`
	MediaKind            *string   `json:"kind,omitempty"`
	AudioLevel           *float64  `json:"audioLevel,omitempty"`
	TotalAudioEnergy     *float64  `json:"totalAudioEnergy,omitempty"`
	TotalSamplesDuration *float64  `json:"totalSamplesDuration,omitempty"`
	EchoReturnLoss       *float64  `json:"echoReturnLoss,omitempty"`
	Width                *uint32   `json:"width,omitempty"`
	Height               *uint32   `json:"height,omitempty"`
	Frames               *uint32   `json:"frames,omitempty"`
	FramesPerSecond      *float64  `json:"framesPerSecond,omitempty"`
}

type InboundRTPRecord struct {
	ID                             string    `json:"id"`
	Timestamp                      time.Time `json:"timestamp"`
	SSRC                           *uint32   `json:"ssrc,omitempty"`
	MediaKind                      *string   `json:"kind,omitempty"`
	TransportID                    *string   `json:"transportId,omitempty"`
	CodecID                        *string   `json:"codecId,omitempty"`
	TrackIdentifier                *string   `json:"trackIdentifier,omitempty"`
	RemoteID                       *string   `json:"remoteId,omitempty"`
	PacketsReceived                *uint64   `json:"packetsReceived,omitempty"`
	PacketsLost                    *int64    `json:"packetsLost,omitempty"`
	PacketsDiscarded               *uint64   `json:"packetsDiscarded,omitempty"`
	Jitter                         *float64  `json:"jitter,omitempty"`
	BytesReceived                  *uint64   `json:"bytesReceived,omitempty"`
	HeaderBytesReceived            *uint64   `json:"headerBytesReceived,omitempty"`
	FecPacketsReceived             *uint64   `json:"fecPacketsReceived,omitempty"`
	FecPacketsDiscarded            *uint64   `json:"fecPacketsDiscarded,omitempty"`
	NackCount                      *uint32   `json:"nackCount,omitempty"`
	PliCount                       *uint32   `json:"pliCount,omitempty"`
	FirCount                       *uint32   `json:"firCount,omitempty"`
	FramesReceived                 *uint32   `json:"framesReceived,omitempty"`
	FramesDecoded                  *uint32   `json:"framesDecoded,omitempty"`
	FramesDropped                  *uint32   `json:"framesDropped,omitempty"`
	KeyFramesDecoded               *uint32   `json:"keyFramesDecoded,omitempty"`
	FrameWidth                     *uint32   `json:"frameWidth,omitempty"`
	FrameHeight                    *uint32   `json:"frameHeight,omitempty"`
	FramesPerSecond                *float64  `json:"framesPerSecond,omitempty"`
	TotalDecodeTime                *float64  `json:"totalDecodeTime,omitempty"`
	JitterBufferDelay              *float64  `json:"jitterBufferDelay,omitempty"`
	JitterBufferEmittedCount       *uint64   `json:"jitterBufferEmittedCount,omitempty"`
	AudioLevel                     *float64  `json:"audioLevel,omitempty"`
	TotalAudioEnergy               *float64  `json:"totalAudioEnergy,omitempty"`
	TotalSamplesReceived           *uint64   `json:"totalSamplesReceived,omitempty"`
	ConcealedSamples               *uint64   `json:"concealedSamples,omitempty"`
	SilentConcealedSamples         *uint64   `json:"silentConcealedSamples,omitempty"`
	InsertedSamplesForDeceleration *uint64   `json:"insertedSamplesForDeceleration,omitempty"`
	RemovedSamplesForAcceleration  *uint64   `json:"removedSamplesForAcceleration,omitempty"`
	FreezeCount                    *uint32   `json:"freezeCount,omitempty"`
	TotalFreezesDuration           *float64  `json:"totalFreezesDuration,omitempty"`
	PauseCount                     *uint32   `json:"pauseCount,omitempty"`
	TotalPausesDuration            *float64  `json:"totalPausesDuration,omitempty"`
}

type OutboundRTPRecord struct {
	ID                                 string    `json:"id"`
	Timestamp                          time.Time `json:"timestamp"`
	SSRC                               *uint32   `json:"ssrc,omitempty"`
	MediaKind                          *string   `json:"kind,omitempty"`
	TransportID                        *string   `json:"transportId,omitempty"`
	CodecID                            *string   `json:"codecId,omitempty"`
	MediaSourceID                      *string   `json:"mediaSourceId,omitempty"`
	TrackIdentifier                    *string   `json:"trackIdentifier,omitempty"`
	RemoteID                           *string   `json:"remoteId,omitempty"`
	RID                                *string   `json:"rid,omitempty"`
	Active                             *bool     `json:"active,omitempty"`
	PacketsSent                        *uint64   `json:"packetsSent,omitempty"`
	BytesSent                          *uint64   `json:"bytesSent,omitempty"`
	HeaderBytesSent                    *uint64   `json:"headerBytesSent,omitempty"`
	RetransmittedPacketsSent           *uint64   `json:"retransmittedPacketsSent,omitempty"`
	RetransmittedBytesSent             *uint64   `json:"retransmittedBytesSent,omitempty"`
	TargetBitrate                      *float64  `json:"targetBitrate,omitempty"`
	NackCount                          *uint32   `json:"nackCount,omitempty"`
	PliCount                           *uint32   `json:"pliCount,omitempty"`
	FirCount                           *uint32   `json:"firCount,omitempty"`
	FramesEncoded                      *uint32   `json:"framesEncoded,omitempty"`
	KeyFramesEncoded                   *uint32   `json:"keyFramesEncoded,omitempty"`
	FramesSent                         *uint32   `json:"framesSent,omitempty"`
	HugeFramesSent                     *uint32   `json:"hugeFramesSent,omitempty"`
	FrameWidth                         *uint32   `json:"frameWidth,omitempty"`
	FrameHeight                        *uint32   `json:"frameHeight,omitempty"`
	FramesPerSecond                    *float64  `json:"framesPerSecond,omitempty"`
	TotalEncodeTime                    *float64  `json:"totalEncodeTime,omitempty"`
	TotalPacketSendDelay               *float64  `json:"totalPacketSendDelay,omitempty"`
	QualityLimitationReason            *string   `json:"qualityLimitationReason,omitempty"`
	QualityLimitationResolutionChanges *uint32   `json:"qualityLimitationResolutionChanges,omitempty"`
}

type RemoteInboundRTPRecord struct {
	ID                        string    `json:"id"`
	Timestamp                 time.Time `json:"timestamp"`
	SSRC                      *uint32   `json:"ssrc,omitempty"`
	MediaKind                 *string   `json:"kind,omitempty"`
	TransportID               *string   `json:"transportId,omitempty"`
	CodecID                   *string   `json:"codecId,omitempty"`
	LocalID                   *string   `json:"localId,omitempty"`
	PacketsLost               *int64    `json:"packetsLost,omitempty"`
	Jitter                    *float64  `json:"jitter,omitempty"`
	FractionLost              *float64  `json:"fractionLost,omitempty"`
	RoundTripTime             *float64  `json:"roundTripTime,omitempty"`
	TotalRoundTripTime        *float64  `json:"totalRoundTripTime,omitempty"`
	RoundTripTimeMeasurements *uint64   `json:"roundTripTimeMeasurements,omitempty"`
}

type RemoteOutboundRTPRecord struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	SSRC          *uint32   `json:"ssrc,omitempty"`
	MediaKind     *string   `json:"kind,omitempty"`
	TransportID   *string   `json:"transportId,omitempty"`
	CodecID       *string   `json:"codecId,omitempty"`
	LocalID       *string   `json:"localId,omitempty"`
	PacketsSent   *uint64   `json:"packetsSent,omitempty"`
	BytesSent     *uint64   `json:"bytesSent,omitempty"`
	ReportsSent   *uint64   `json:"reportsSent,omitempty"`
	RoundTripTime *float64  `json:"roundTripTime,omitempty"`
}

type DataChannelRecord struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Label            *string   `json:"label,omitempty"`
	Protocol         *string   `json:"protocol,omitempty"`
	ChannelID        *int32    `json:"dataChannelIdentifier,omitempty"`
	State            *string   `json:"state,omitempty"`
	MessagesSent     *uint32   `json:"messagesSent,omitempty"`
	MessagesReceived *uint32   `json:"messagesReceived,omitempty"`
	BytesSent        *uint64   `json:"bytesSent,omitempty"`
	BytesReceived    *uint64   `json:"bytesReceived,omitempty"`
}

type TrackRecord struct {
	ID                       string    `json:"id"`
	Timestamp                time.Time `json:"timestamp"`
	TrackIdentifier          *string   `json:"trackIdentifier,omitempty"`
	MediaKind                *string   `json:"kind,omitempty"`
	Direction                Direction `json:"direction,omitempty"`
	RemoteSource             *bool     `json:"remoteSource,omitempty"`
	Ended                    *bool     `json:"ended,omitempty"`
	Detached                 *bool     `json:"detached,omitempty"`
	FramesReceived           *uint32   `json:"framesReceived,omitempty"`
	FramesSent               *uint32   `json:"framesSent,omitempty"`
	FramesDecoded            *uint32   `json:"framesDecoded,omitempty"`
	FramesDropped            *uint32   `json:"framesDropped,omitempty"`
	AudioLevel               *float64  `json:"audioLevel,omitempty"`
	JitterBufferDelay        *float64  `json:"jitterBufferDelay,omitempty"`
	JitterBufferEmittedCount *uint64   `json:"jitterBufferEmittedCount,omitempty"`
}
