package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"rtcscope/internal/core/domain"
)

// Bridge mirrors each finished sample into prometheus metrics. Hand
// Observe to Monitor.OnSample; it runs on the monitor goroutine, so no
// locking is needed around the open-alert bookkeeping.
type Bridge struct {
	factory promauto.Factory

	samplesTotal   prometheus.Counter
	entriesLive    *prometheus.GaugeVec
	receiveBitrate prometheus.Gauge
	sendBitrate    prometheus.Gauge

	bytesReceivedTotal   prometheus.Counter
	bytesSentTotal       prometheus.Counter
	packetsReceivedTotal prometheus.Counter
	packetsSentTotal     prometheus.Counter

	sessionScore          prometheus.Gauge
	alertTransitionsTotal *prometheus.CounterVec
	alertsOpen            *prometheus.GaugeVec
	issuesTotal           *prometheus.CounterVec

	// open alert targets by detector
	open map[string]map[string]struct{}
}

// MonitorStats is the subset of the monitor the bridge exposes as
// counters.
type MonitorStats interface {
	Cycles() uint64
	SkippedTicks() uint64
	RejectedRecords() uint64
}

// NewBridge registers the session metrics on reg (the default registerer
// when nil).
func NewBridge(reg prometheus.Registerer) *Bridge {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Bridge{
		factory: factory,

		samplesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rtcscope_samples_total",
			Help: "Total number of samples built",
		}),

		entriesLive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtcscope_entries_live",
			Help: "Live store entries by kind",
		}, []string{"kind"}),

		receiveBitrate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rtcscope_receive_bitrate_bps",
			Help: "Aggregate receive bitrate across all live entries",
		}),

		sendBitrate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rtcscope_send_bitrate_bps",
			Help: "Aggregate send bitrate across all live entries",
		}),

		bytesReceivedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rtcscope_bytes_received_total",
			Help: "Total bytes received across the session",
		}),

		bytesSentTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rtcscope_bytes_sent_total",
			Help: "Total bytes sent across the session",
		}),

		packetsReceivedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rtcscope_packets_received_total",
			Help: "Total packets received across the session",
		}),

		packetsSentTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rtcscope_packets_sent_total",
			Help: "Total packets sent across the session",
		}),

		sessionScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rtcscope_session_score",
			Help: "Rolling session quality score (1.0-4.5)",
		}),

		alertTransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rtcscope_alert_transitions_total",
			Help: "Detector hysteresis transitions",
		}, []string{"detector", "state"}),

		alertsOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtcscope_alerts_open",
			Help: "Targets currently in the on state by detector",
		}, []string{"detector"}),

		issuesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rtcscope_issues_total",
			Help: "Issues synthesized by detectors",
		}, []string{"severity"}),

		open: make(map[string]map[string]struct{}),
	}
}

// ExposeMonitor registers cycle counters backed by the monitor's own
// atomics.
func (b *Bridge) ExposeMonitor(stats MonitorStats) {
	b.factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "rtcscope_cycles_total",
		Help: "Completed observation cycles",
	}, func() float64 { return float64(stats.Cycles()) })

	b.factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "rtcscope_skipped_ticks_total",
		Help: "Ticks skipped because the previous cycle overran",
	}, func() float64 { return float64(stats.SkippedTicks()) })

	b.factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "rtcscope_rejected_records_total",
		Help: "Records rejected at ingestion",
	}, func() float64 { return float64(stats.RejectedRecords()) })
}

// ExposeSender registers delivery counters for one sink, distinguished
// by a constant transport label.
func (b *Bridge) ExposeSender(transport string, sent, dropped func() uint64) {
	labels := prometheus.Labels{"transport": transport}

	b.factory.NewCounterFunc(prometheus.CounterOpts{
		Name:        "rtcscope_samples_sent_total",
		Help:        "Samples delivered to the sink",
		ConstLabels: labels,
	}, func() float64 { return float64(sent()) })

	b.factory.NewCounterFunc(prometheus.CounterOpts{
		Name:        "rtcscope_samples_dropped_total",
		Help:        "Samples lost to failed sends",
		ConstLabels: labels,
	}, func() float64 { return float64(dropped()) })
}

// Observe folds one sample into the metrics.
func (b *Bridge) Observe(sample *domain.ClientSample) {
	if sample == nil {
		return
	}

	b.samplesTotal.Inc()

	if agg := sample.Aggregates; agg != nil {
		b.entriesLive.Reset()
		for kind, count := range agg.Entries {
			b.entriesLive.WithLabelValues(string(kind)).Set(float64(count))
		}
		b.receiveBitrate.Set(agg.ReceiveBitrate)
		b.sendBitrate.Set(agg.SendBitrate)
		b.bytesReceivedTotal.Add(float64(agg.DeltaBytesReceived))
		b.bytesSentTotal.Add(float64(agg.DeltaBytesSent))
		b.packetsReceivedTotal.Add(float64(agg.DeltaPacketsReceived))
		b.packetsSentTotal.Add(float64(agg.DeltaPacketsSent))
	}

	if sample.Score != nil {
		b.sessionScore.Set(*sample.Score)
	}

	for _, alert := range sample.Alerts {
		b.alertTransitionsTotal.WithLabelValues(alert.Detector, string(alert.State)).Inc()

		targets, ok := b.open[alert.Detector]
		if !ok {
			targets = make(map[string]struct{})
			b.open[alert.Detector] = targets
		}
		if alert.State == domain.AlertOn {
			targets[alert.Target] = struct{}{}
		} else {
			delete(targets, alert.Target)
		}
		b.alertsOpen.WithLabelValues(alert.Detector).Set(float64(len(targets)))
	}

	for _, issue := range sample.Issues {
		b.issuesTotal.WithLabelValues(string(issue.Severity)).Inc()
	}
}
