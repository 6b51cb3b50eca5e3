package rtcptap

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rtcscope/internal/core/domain"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTap(t *testing.T) (*Tap, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tap := newTap(Config{Label: "tap", Now: clk.now}, zaptest.NewLogger(t).Sugar())
	return tap, clk
}

func rtpDatagram(t *testing.T, ssrc uint32, seq uint16, ts uint32) []byte {
	t.Helper()
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    96,
			SequenceNumber: seq,
			Timestamp:      ts,
			SSRC:           ssrc,
		},
		Payload: []byte{0xde, 0xad, 0xbe, 0xef},
	}
	buf, err := pkt.Marshal()
	require.NoError(t, err)
	return buf
}

func collectRecords(t *testing.T, tap *Tap) map[domain.Kind][]domain.KindRecord {
	t.Helper()
	records, err := tap.Collect(context.Background())
	require.NoError(t, err)
	byKind := make(map[domain.Kind][]domain.KindRecord)
	for _, rec := range records {
		byKind[rec.Kind] = append(byKind[rec.Kind], rec)
	}
	return byKind
}

func TestFlowCountersAndLoss(t *testing.T) {
	tap, clk := newTestTap(t)

	for _, seq := range []uint16{100, 101, 103} { // 102 never arrives
		tap.handleDatagram(clk.now(), rtpDatagram(t, 0xAABB, seq, uint32(seq)*1800))
		clk.advance(20 * time.Millisecond)
	}

	byKind := collectRecords(t, tap)
	require.Len(t, byKind[domain.KindInboundRTP], 1)

	rec := byKind[domain.KindInboundRTP][0].Record.(*domain.InboundRTPRecord)
	require.NotNil(t, rec.SSRC)
	assert.Equal(t, uint32(0xAABB), *rec.SSRC)
	require.NotNil(t, rec.PacketsReceived)
	assert.Equal(t, uint64(3), *rec.PacketsReceived)
	require.NotNil(t, rec.PacketsLost)
	assert.Equal(t, int64(1), *rec.PacketsLost)
	require.NotNil(t, rec.BytesReceived)
	assert.Greater(t, *rec.BytesReceived, uint64(0))

	pcRec := byKind[domain.KindPeerConnection][0].Record.(*domain.PeerConnectionRecord)
	require.NotNil(t, pcRec.ConnectionState)
	assert.Equal(t, "connected", *pcRec.ConnectionState)
}

func TestSequenceWraparound(t *testing.T) {
	tap, clk := newTestTap(t)

	for _, seq := range []uint16{65534, 65535, 0, 1} {
		tap.handleDatagram(clk.now(), rtpDatagram(t, 1, seq, uint32(clk.t.UnixMilli())))
		clk.advance(20 * time.Millisecond)
	}

	byKind := collectRecords(t, tap)
	rec := byKind[domain.KindInboundRTP][0].Record.(*domain.InboundRTPRecord)
	require.NotNil(t, rec.PacketsReceived)
	assert.Equal(t, uint64(4), *rec.PacketsReceived)
	require.NotNil(t, rec.PacketsLost)
	assert.Equal(t, int64(0), *rec.PacketsLost)
}

func TestJitterTracksTimingSpread(t *testing.T) {
	tap, clk := newTestTap(t)

	// Perfectly paced: RTP timestamps advance exactly with arrival time.
	ts := uint32(0)
	for seq := uint16(1); seq <= 5; seq++ {
		tap.handleDatagram(clk.now(), rtpDatagram(t, 7, seq, ts))
		clk.advance(20 * time.Millisecond)
		ts += 1800 // 20ms at 90kHz
	}

	byKind := collectRecords(t, tap)
	rec := byKind[domain.KindInboundRTP][0].Record.(*domain.InboundRTPRecord)
	require.NotNil(t, rec.Jitter)
	assert.InDelta(t, 0, *rec.Jitter, 1e-9)

	// One packet late by a full frame interval.
	tap.handleDatagram(clk.now(), rtpDatagram(t, 7, 6, ts-1800))

	byKind = collectRecords(t, tap)
	rec = byKind[domain.KindInboundRTP][0].Record.(*domain.InboundRTPRecord)
	require.NotNil(t, rec.Jitter)
	assert.InDelta(t, 1800.0/16/90000, *rec.Jitter, 1e-6)
}

func TestSenderReportProducesRemoteOutbound(t *testing.T) {
	tap, clk := newTestTap(t)

	sr := &rtcp.SenderReport{SSRC: 0x11, PacketCount: 500, OctetCount: 64000}
	buf, err := sr.Marshal()
	require.NoError(t, err)
	tap.handleDatagram(clk.now(), buf)
	tap.handleDatagram(clk.now(), buf)

	byKind := collectRecords(t, tap)
	require.Len(t, byKind[domain.KindRemoteOutboundRTP], 1)
	assert.Empty(t, byKind[domain.KindInboundRTP], "rtcp must not create rtp flows")

	rec := byKind[domain.KindRemoteOutboundRTP][0].Record.(*domain.RemoteOutboundRTPRecord)
	require.NotNil(t, rec.PacketsSent)
	assert.Equal(t, uint64(500), *rec.PacketsSent)
	require.NotNil(t, rec.BytesSent)
	assert.Equal(t, uint64(64000), *rec.BytesSent)
	require.NotNil(t, rec.ReportsSent)
	assert.Equal(t, uint64(2), *rec.ReportsSent)
}

func TestReceiverReportProducesRemoteInbound(t *testing.T) {
	tap, clk := newTestTap(t)

	rr := &rtcp.ReceiverReport{
		SSRC: 0x22,
		Reports: []rtcp.ReceptionReport{{
			SSRC:         0x33,
			FractionLost: 64, // 64/256 = 25%
			TotalLost:    10,
			Jitter:       900,
		}},
	}
	buf, err := rr.Marshal()
	require.NoError(t, err)
	tap.handleDatagram(clk.now(), buf)

	byKind := collectRecords(t, tap)
	require.Len(t, byKind[domain.KindRemoteInboundRTP], 1)

	rec := byKind[domain.KindRemoteInboundRTP][0].Record.(*domain.RemoteInboundRTPRecord)
	require.NotNil(t, rec.SSRC)
	assert.Equal(t, uint32(0x33), *rec.SSRC)
	require.NotNil(t, rec.FractionLost)
	assert.InDelta(t, 0.25, *rec.FractionLost, 1e-9)
	require.NotNil(t, rec.PacketsLost)
	assert.Equal(t, int64(10), *rec.PacketsLost)
	require.NotNil(t, rec.Jitter)
	assert.InDelta(t, 0.01, *rec.Jitter, 1e-9) // 900 units at 90kHz
}

func TestCollectBeforeTrafficReportsNewConnection(t *testing.T) {
	tap, _ := newTestTap(t)

	byKind := collectRecords(t, tap)
	require.Len(t, byKind[domain.KindPeerConnection], 1)

	rec := byKind[domain.KindPeerConnection][0].Record.(*domain.PeerConnectionRecord)
	require.NotNil(t, rec.ConnectionState)
	assert.Equal(t, "new", *rec.ConnectionState)
}

func TestListenReceivesDatagrams(t *testing.T) {
	tap, err := Listen(Config{Address: "127.0.0.1:0"}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer tap.Close()

	conn, err := net.Dial("udp", tap.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(rtpDatagram(t, 99, 1, 1000))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		records, err := tap.Collect(context.Background())
		if err != nil {
			return false
		}
		for _, rec := range records {
			if rec.Kind == domain.KindInboundRTP {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCollectAfterClose(t *testing.T) {
	tap, _ := newTestTap(t)
	require.NoError(t, tap.Close())

	_, err := tap.Collect(context.Background())
	assert.True(t, errors.Is(err, domain.ErrCollectorClosed))
}
