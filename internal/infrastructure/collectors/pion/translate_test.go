package pion

import (
	"testing"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtcscope/internal/core/domain"
)

func statsTime(t time.Time) webrtc.StatsTimestamp {
	return webrtc.StatsTimestamp(float64(t.UnixNano()) / float64(time.Millisecond))
}

var statTimestamp = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestTranslateInbound(t *testing.T) {
	stat := webrtc.InboundRTPStreamStats{
		Timestamp:          statsTime(statTimestamp),
		Type:               webrtc.StatsTypeInboundRTP,
		ID:                 "inbound-1",
		SSRC:               webrtc.SSRC(4242),
		Kind:               "video",
		TransportID:        "transport-1",
		CodecID:            "codec-1",
		RemoteID:           "remote-1",
		PacketsReceived:    1500,
		PacketsLost:        -3,
		Jitter:             0.004,
		BytesReceived:      250_000,
		FECPacketsReceived: 7,
		NACKCount:          2,
		PLICount:           1,
		FramesDecoded:      900,
	}

	rec := translateInbound(stat)

	assert.Equal(t, "inbound-1", rec.ID)
	assert.True(t, rec.Timestamp.Equal(statTimestamp))
	require.NotNil(t, rec.SSRC)
	assert.Equal(t, uint32(4242), *rec.SSRC)
	require.NotNil(t, rec.MediaKind)
	assert.Equal(t, "video", *rec.MediaKind)
	require.NotNil(t, rec.PacketsReceived)
	assert.Equal(t, uint64(1500), *rec.PacketsReceived)
	require.NotNil(t, rec.PacketsLost)
	assert.Equal(t, int64(-3), *rec.PacketsLost)
	require.NotNil(t, rec.Jitter)
	assert.InDelta(t, 0.004, *rec.Jitter, 1e-9)
	require.NotNil(t, rec.FramesDecoded)
	assert.Equal(t, uint32(900), *rec.FramesDecoded)

	// Fields the engine does not report stay absent.
	assert.Nil(t, rec.TotalSamplesReceived)
	assert.Nil(t, rec.ConcealedSamples)
	assert.Nil(t, rec.TotalFreezesDuration)
	assert.Nil(t, rec.TrackIdentifier)
}

func TestTranslateOutboundQualityLimitation(t *testing.T) {
	stat := webrtc.OutboundRTPStreamStats{
		Timestamp:   statsTime(statTimestamp),
		ID:          "outbound-1",
		SSRC:        webrtc.SSRC(1),
		Kind:        "video",
		PacketsSent: 100,
		BytesSent:   9000,
	}

	rec := translateOutbound(stat)
	assert.Nil(t, rec.QualityLimitationReason)
	assert.Nil(t, rec.TargetBitrate)

	stat.QualityLimitationReason = webrtc.QualityLimitationReasonBandwidth
	stat.TargetBitrate = 1_200_000

	rec = translateOutbound(stat)
	require.NotNil(t, rec.QualityLimitationReason)
	assert.Equal(t, "bandwidth", *rec.QualityLimitationReason)
	require.NotNil(t, rec.TargetBitrate)
	assert.Equal(t, 1_200_000.0, *rec.TargetBitrate)
}

func TestTranslateRemoteInboundGatesZeroRTT(t *testing.T) {
	stat := webrtc.RemoteInboundRTPStreamStats{
		Timestamp:   statsTime(statTimestamp),
		ID:          "remote-inbound-1",
		SSRC:        webrtc.SSRC(9),
		PacketsLost: 12,
	}

	rec := translateRemoteInbound(stat)
	assert.Nil(t, rec.RoundTripTime, "unmeasured RTT must not look like zero latency")

	stat.RoundTripTime = 0.05
	rec = translateRemoteInbound(stat)
	require.NotNil(t, rec.RoundTripTime)
	assert.InDelta(t, 0.05, *rec.RoundTripTime, 1e-9)
}

func TestTranslateCandidatePairGatesUnmeasuredGauges(t *testing.T) {
	stat := webrtc.ICECandidatePairStats{
		Timestamp:       statsTime(statTimestamp),
		ID:              "pair-1",
		State:           webrtc.StatsICECandidatePairStateSucceeded,
		Nominated:       true,
		PacketsSent:     10,
		PacketsReceived: 20,
	}

	rec := translateCandidatePair(stat)
	require.NotNil(t, rec.State)
	assert.Equal(t, "succeeded", *rec.State)
	require.NotNil(t, rec.Nominated)
	assert.True(t, *rec.Nominated)
	assert.Nil(t, rec.CurrentRoundTripTime)
	assert.Nil(t, rec.AvailableOutgoingBitrate)

	stat.CurrentRoundTripTime = 0.1
	stat.AvailableOutgoingBitrate = 2_000_000

	rec = translateCandidatePair(stat)
	require.NotNil(t, rec.CurrentRoundTripTime)
	assert.InDelta(t, 0.1, *rec.CurrentRoundTripTime, 1e-9)
	require.NotNil(t, rec.AvailableOutgoingBitrate)
	assert.Equal(t, 2_000_000.0, *rec.AvailableOutgoingBitrate)
}

func TestTranslateCandidateRemoteFlag(t *testing.T) {
	local := webrtc.ICECandidateStats{
		Timestamp:     statsTime(statTimestamp),
		Type:          webrtc.StatsTypeLocalCandidate,
		ID:            "candidate-local",
		IP:            "192.0.2.10",
		Port:          50000,
		Protocol:      "udp",
		CandidateType: webrtc.ICECandidateTypeHost,
	}
	remote := local
	remote.Type = webrtc.StatsTypeRemoteCandidate
	remote.ID = "candidate-remote"

	localRec := translateCandidate(local)
	require.NotNil(t, localRec.Remote)
	assert.False(t, *localRec.Remote)
	require.NotNil(t, localRec.Address)
	assert.Equal(t, "192.0.2.10", *localRec.Address)
	require.NotNil(t, localRec.CandidateType)
	assert.Equal(t, "host", *localRec.CandidateType)

	remoteRec := translateCandidate(remote)
	require.NotNil(t, remoteRec.Remote)
	assert.True(t, *remoteRec.Remote)
}

func TestTranslateDataChannel(t *testing.T) {
	stat := webrtc.DataChannelStats{
		Timestamp:             statsTime(statTimestamp),
		ID:                    "datachannel-1",
		Label:                 "chat",
		Protocol:              "sctp",
		DataChannelIdentifier: 5,
		State:                 webrtc.DataChannelStateOpen,
		MessagesSent:          11,
		MessagesReceived:      22,
		BytesSent:             330,
		BytesReceived:         440,
	}

	rec := translateDataChannel(stat)
	require.NotNil(t, rec.Label)
	assert.Equal(t, "chat", *rec.Label)
	require.NotNil(t, rec.ChannelID)
	assert.Equal(t, int32(5), *rec.ChannelID)
	require.NotNil(t, rec.State)
	assert.Equal(t, "open", *rec.State)
	require.NotNil(t, rec.MessagesSent)
	assert.Equal(t, uint32(11), *rec.MessagesSent)
}

func TestTranslateStatDispatch(t *testing.T) {
	rec, ok := translateStat(webrtc.TransportStats{
		Timestamp: statsTime(statTimestamp),
		ID:        "transport-1",
		BytesSent: 1,
	})
	require.True(t, ok)
	assert.Equal(t, domain.KindTransport, rec.Kind)
	_, isTransport := rec.Record.(*domain.TransportRecord)
	assert.True(t, isTransport)

	_, ok = translateStat(webrtc.MediaStreamStats{ID: "stream-1"})
	assert.False(t, ok, "stream stats have no canonical kind")
}
