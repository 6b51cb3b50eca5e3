package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtcscope/internal/core/domain"
)

func sampleFixture() *domain.ClientSample {
	return &domain.ClientSample{
		ClientID:  "client-1",
		SeqNo:     1,
		Timestamp: time.Now(),
		Aggregates: &domain.SessionAggregates{
			Entries: map[domain.Kind]int{
				domain.KindPeerConnection: 1,
				domain.KindInboundRTP:     2,
			},
			ReceiveBitrate:       128000,
			SendBitrate:          96000,
			DeltaBytesReceived:   16000,
			DeltaBytesSent:       12000,
			DeltaPacketsReceived: 100,
			DeltaPacketsSent:     80,
		},
		Score: domain.Float64Ptr(4.2),
		Alerts: []domain.AlertEvent{
			{Detector: "congestion", Target: "pc-1", State: domain.AlertOn},
		},
		Issues: []domain.Issue{
			{Code: "congestion", Severity: domain.SeverityMajor, Target: "pc-1"},
		},
	}
}

func TestBridgeObserveFoldsAggregates(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := NewBridge(reg)

	b.Observe(sampleFixture())

	assert.Equal(t, 1.0, testutil.ToFloat64(b.samplesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(b.entriesLive.WithLabelValues("inbound-rtp")))
	assert.Equal(t, 128000.0, testutil.ToFloat64(b.receiveBitrate))
	assert.Equal(t, 16000.0, testutil.ToFloat64(b.bytesReceivedTotal))
	assert.Equal(t, 100.0, testutil.ToFloat64(b.packetsReceivedTotal))
	assert.Equal(t, 4.2, testutil.ToFloat64(b.sessionScore))

	// Delta counters accumulate across samples.
	b.Observe(sampleFixture())
	assert.Equal(t, 32000.0, testutil.ToFloat64(b.bytesReceivedTotal))
}

func TestBridgeTracksOpenAlerts(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := NewBridge(reg)

	on := &domain.ClientSample{Alerts: []domain.AlertEvent{
		{Detector: "congestion", Target: "pc-1", State: domain.AlertOn},
		{Detector: "congestion", Target: "pc-2", State: domain.AlertOn},
	}}
	b.Observe(on)

	assert.Equal(t, 2.0, testutil.ToFloat64(b.alertsOpen.WithLabelValues("congestion")))
	assert.Equal(t, 2.0, testutil.ToFloat64(b.alertTransitionsTotal.WithLabelValues("congestion", "on")))

	off := &domain.ClientSample{Alerts: []domain.AlertEvent{
		{Detector: "congestion", Target: "pc-1", State: domain.AlertOff},
	}}
	b.Observe(off)

	assert.Equal(t, 1.0, testutil.ToFloat64(b.alertsOpen.WithLabelValues("congestion")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.alertTransitionsTotal.WithLabelValues("congestion", "off")))
}

func TestBridgeCountsIssuesBySeverity(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := NewBridge(reg)

	b.Observe(&domain.ClientSample{Issues: []domain.Issue{
		{Severity: domain.SeverityMajor},
		{Severity: domain.SeverityMajor},
		{Severity: domain.SeverityCritical},
	}})

	assert.Equal(t, 2.0, testutil.ToFloat64(b.issuesTotal.WithLabelValues("major")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.issuesTotal.WithLabelValues("critical")))
}

type fakeMonitorStats struct {
	cycles, skipped, rejected uint64
}

func (f *fakeMonitorStats) Cycles() uint64          { return f.cycles }
func (f *fakeMonitorStats) SkippedTicks() uint64    { return f.skipped }
func (f *fakeMonitorStats) RejectedRecords() uint64 { return f.rejected }

func TestBridgeExposeMonitor(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := NewBridge(reg)

	b.ExposeMonitor(&fakeMonitorStats{cycles: 5, skipped: 1, rejected: 2})

	count, err := testutil.GatherAndCount(reg,
		"rtcscope_cycles_total",
		"rtcscope_skipped_ticks_total",
		"rtcscope_rejected_records_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestBridgeExposeSender(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := NewBridge(reg)

	b.ExposeSender("websocket", func() uint64 { return 7 }, func() uint64 { return 1 })
	b.ExposeSender("redis", func() uint64 { return 3 }, func() uint64 { return 0 })

	count, err := testutil.GatherAndCount(reg,
		"rtcscope_samples_sent_total",
		"rtcscope_samples_dropped_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestBridgeIgnoresNilSample(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := NewBridge(reg)

	b.Observe(nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.samplesTotal))
}
