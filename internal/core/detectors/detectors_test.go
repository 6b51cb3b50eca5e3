package detectors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
	"rtcscope/internal/core/events"
	"rtcscope/internal/core/scoring"
	"rtcscope/internal/core/store"
)

const testCollector = domain.CollectorID("pc-1")

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type harness struct {
	clock      *fakeClock
	store      *store.Store
	dispatcher *events.Dispatcher
	alerts     []domain.AlertEvent
	issues     []domain.Issue
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zap.NewNop().Sugar()
	h := &harness{
		clock:      &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		dispatcher: events.NewDispatcher(log),
	}
	h.store = store.New(store.Config{Now: h.clock.now}, log)
	h.dispatcher.OnAlert(func(e domain.AlertEvent) { h.alerts = append(h.alerts, e) })
	h.dispatcher.OnIssue(func(i domain.Issue) { h.issues = append(h.issues, i) })
	require.NoError(t, h.store.Register(testCollector, "caller"))
	return h
}

// cycle advances the clock, feeds one collection round into the store and
// commits it, mirroring the monitor loop.
func (h *harness) cycle(t *testing.T, step time.Duration, records ...domain.KindRecord) {
	t.Helper()
	h.clock.advance(step)
	for _, rec := range records {
		require.NoError(t, h.store.Accept(testCollector, rec))
	}
	h.store.Commit()
}

func (h *harness) alertsIn(state domain.AlertState) []domain.AlertEvent {
	var out []domain.AlertEvent
	for _, a := range h.alerts {
		if a.State == state {
			out = append(out, a)
		}
	}
	return out
}

func pcRecord(ts time.Time, state string) domain.KindRecord {
	return domain.KindRecord{Kind: domain.KindPeerConnection, Record: &domain.PeerConnectionRecord{
		ID:              "pc-main",
		Timestamp:       ts,
		ConnectionState: domain.StringPtr(state),
	}}
}

func pairRecord(ts time.Time, bitrate float64) domain.KindRecord {
	return domain.KindRecord{Kind: domain.KindIceCandidatePair, Record: &domain.IceCandidatePairRecord{
		ID:                       "pair-1",
		Timestamp:                ts,
		Nominated:                domain.BoolPtr(true),
		AvailableOutgoingBitrate: domain.Float64Ptr(bitrate),
	}}
}

func outboundRecord(ts time.Time, reason string) domain.KindRecord {
	return domain.KindRecord{Kind: domain.KindOutboundRTP, Record: &domain.OutboundRTPRecord{
		ID:                      "out-1",
		Timestamp:               ts,
		SSRC:                    domain.Uint32Ptr(2222),
		MediaKind:               domain.StringPtr("video"),
		QualityLimitationReason: domain.StringPtr(reason),
	}}
}

func audioRecord(ts time.Time, inserted, removed, total uint64) domain.KindRecord {
	return domain.KindRecord{Kind: domain.KindInboundRTP, Record: &domain.InboundRTPRecord{
		ID:                             "in-audio-1",
		Timestamp:                      ts,
		SSRC:                           domain.Uint32Ptr(4242),
		MediaKind:                      domain.StringPtr("audio"),
		TotalSamplesReceived:           domain.Uint64Ptr(total),
		InsertedSamplesForDeceleration: domain.Uint64Ptr(inserted),
		RemovedSamplesForAcceleration:  domain.Uint64Ptr(removed),
	}}
}

func videoRecord(ts time.Time, received, dropped, decoded uint32, freezes float64, freezeCount uint32) domain.KindRecord {
	return domain.KindRecord{Kind: domain.KindInboundRTP, Record: &domain.InboundRTPRecord{
		ID:                   "in-video-1",
		Timestamp:            ts,
		SSRC:                 domain.Uint32Ptr(3333),
		MediaKind:            domain.StringPtr("video"),
		FramesReceived:       domain.Uint32Ptr(received),
		FramesDropped:        domain.Uint32Ptr(dropped),
		FramesDecoded:        domain.Uint32Ptr(decoded),
		TotalFreezesDuration: domain.Float64Ptr(freezes),
		FreezeCount:          domain.Uint32Ptr(freezeCount),
	}}
}

func stuckRecord(ts time.Time, packets uint64, trackID string) domain.KindRecord {
	rec := &domain.InboundRTPRecord{
		ID:              "in-stuck-1",
		Timestamp:       ts,
		SSRC:            domain.Uint32Ptr(5555),
		MediaKind:       domain.StringPtr("video"),
		PacketsReceived: domain.Uint64Ptr(packets),
	}
	if trackID != "" {
		rec.TrackIdentifier = domain.StringPtr(trackID)
	}
	return domain.KindRecord{Kind: domain.KindInboundRTP, Record: rec}
}

func trackRecord(ts time.Time, identifier string, ended bool) domain.KindRecord {
	return domain.KindRecord{Kind: domain.KindTrack, Record: &domain.TrackRecord{
		ID:              "track-" + identifier,
		Timestamp:       ts,
		TrackIdentifier: domain.StringPtr(identifier),
		MediaKind:       domain.StringPtr("video"),
		Direction:       domain.DirectionInbound,
		Ended:           domain.BoolPtr(ended),
	}}
}

func remoteInboundRecord(ts time.Time, rtt float64) domain.KindRecord {
	return domain.KindRecord{Kind: domain.KindRemoteInboundRTP, Record: &domain.RemoteInboundRTPRecord{
		ID:            "rin-1",
		Timestamp:     ts,
		SSRC:          domain.Uint32Ptr(2222),
		MediaKind:     domain.StringPtr("audio"),
		RoundTripTime: domain.Float64Ptr(rtt),
	}}
}

func lossyInbound(ts time.Time, packets uint64, lost int64, jitter float64) domain.KindRecord {
	return domain.KindRecord{Kind: domain.KindInboundRTP, Record: &domain.InboundRTPRecord{
		ID:              "in-score-1",
		Timestamp:       ts,
		SSRC:            domain.Uint32Ptr(6666),
		MediaKind:       domain.StringPtr("audio"),
		PacketsReceived: domain.Uint64Ptr(packets),
		PacketsLost:     domain.Int64Ptr(lost),
		Jitter:          domain.Float64Ptr(jitter),
	}}
}

type stubDetector struct {
	name    string
	updates int
	fn      func()
}

func (d *stubDetector) Name() string { return d.name }

func (d *stubDetector) Update(time.Time, *store.Store) {
	d.updates++
	if d.fn != nil {
		d.fn()
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	reg := NewRegistry(zap.NewNop().Sugar())

	require.NoError(t, reg.Add(&stubDetector{name: "first"}))
	err := reg.Add(&stubDetector{name: "first"})
	assert.True(t, errors.Is(err, domain.ErrDetectorRegistered))

	assert.Equal(t, []string{"first"}, reg.Names())
}

func TestRegistryAddRemove(t *testing.T) {
	reg := NewRegistry(zap.NewNop().Sugar())
	a := &stubDetector{name: "a"}
	b := &stubDetector{name: "b"}
	require.NoError(t, reg.Add(a))
	require.NoError(t, reg.Add(b))

	assert.True(t, reg.Remove("a"))
	assert.False(t, reg.Remove("a"))

	h := newHarness(t)
	reg.UpdateAll(h.clock.now(), h.store)
	assert.Equal(t, 0, a.updates)
	assert.Equal(t, 1, b.updates)
}

func TestRegistryIsolatesPanickingDetector(t *testing.T) {
	reg := NewRegistry(zap.NewNop().Sugar())
	bad := &stubDetector{name: "bad", fn: func() { panic("boom") }}
	good := &stubDetector{name: "good"}
	require.NoError(t, reg.Add(bad))
	require.NoError(t, reg.Add(good))

	h := newHarness(t)
	assert.NotPanics(t, func() { reg.UpdateAll(h.clock.now(), h.store) })
	assert.NotPanics(t, func() { reg.UpdateAll(h.clock.now(), h.store) })
	assert.Equal(t, 2, good.updates, "healthy detector keeps running")
}

func TestCongestionLifecycle(t *testing.T) {
	h := newHarness(t)
	d := NewCongestion(h.dispatcher, zap.NewNop().Sugar())

	h.cycle(t, time.Second,
		pcRecord(h.clock.t, "connected"),
		pairRecord(h.clock.t, 2_000_000),
		outboundRecord(h.clock.t, "none"))
	d.Update(h.clock.now(), h.store)
	assert.Empty(t, h.alerts)

	h.cycle(t, time.Second,
		pcRecord(h.clock.t, "connected"),
		pairRecord(h.clock.t, 800_000),
		outboundRecord(h.clock.t, "bandwidth"))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 1)
	on := h.alerts[0]
	assert.Equal(t, NameCongestion, on.Detector)
	assert.Equal(t, "pc-main", on.Target)
	assert.Equal(t, domain.AlertOn, on.State)
	assert.Equal(t, 2_000_000.0, on.Values["availableOutgoingBitrateBefore"])
	assert.Equal(t, 800_000.0, on.Values["availableOutgoingBitrateAfter"])
	require.Len(t, h.issues, 1)
	assert.Equal(t, domain.SeverityMajor, h.issues[0].Severity)

	h.cycle(t, time.Second,
		pcRecord(h.clock.t, "connected"),
		pairRecord(h.clock.t, 750_000),
		outboundRecord(h.clock.t, "bandwidth"))
	d.Update(h.clock.now(), h.store)
	assert.Len(t, h.alerts, 1, "fires once per episode")

	h.cycle(t, time.Second,
		pcRecord(h.clock.t, "connected"),
		pairRecord(h.clock.t, 1_500_000),
		outboundRecord(h.clock.t, "none"))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 2)
	off := h.alerts[1]
	assert.Equal(t, domain.AlertOff, off.State)
	assert.Equal(t, 1_500_000.0, off.Values["availableOutgoingBitrate"])
}

func TestCongestionForgetsDepartedTargets(t *testing.T) {
	h := newHarness(t)
	d := NewCongestion(h.dispatcher, zap.NewNop().Sugar())

	h.cycle(t, time.Second,
		pcRecord(h.clock.t, "connected"),
		outboundRecord(h.clock.t, "bandwidth"))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alertsIn(domain.AlertOn), 1)

	h.store.CloseCollector(testCollector)
	d.Update(h.clock.now(), h.store)

	require.NoError(t, h.store.Register(testCollector, "caller"))
	h.cycle(t, time.Second,
		pcRecord(h.clock.t, "connected"),
		outboundRecord(h.clock.t, "bandwidth"))
	d.Update(h.clock.now(), h.store)
	assert.Len(t, h.alertsIn(domain.AlertOn), 2, "reappearing target starts a fresh episode")
}

func TestAudioDesyncThresholds(t *testing.T) {
	h := newHarness(t)
	d, err := NewAudioDesync(DefaultAudioDesyncConfig(), h.dispatcher, zap.NewNop().Sugar())
	require.NoError(t, err)

	h.cycle(t, time.Second, audioRecord(h.clock.t, 0, 0, 0))
	d.Update(h.clock.now(), h.store)
	assert.Empty(t, h.alerts, "first sight has no deltas")

	// 50 corrected against 450 received sits exactly on the threshold.
	h.cycle(t, time.Second, audioRecord(h.clock.t, 30, 20, 450))
	d.Update(h.clock.now(), h.store)
	assert.Empty(t, h.alerts, "fraction equal to on threshold does not trigger")

	// 60 corrected against 450 received crosses it.
	h.cycle(t, time.Second, audioRecord(h.clock.t, 70, 40, 900))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 1)
	assert.Equal(t, NameAudioDesync, h.alerts[0].Detector)
	assert.Equal(t, "in-audio-1", h.alerts[0].Target)
	assert.Equal(t, domain.AlertOn, h.alerts[0].State)
	assert.InDelta(t, 60.0/510.0, h.alerts[0].Values["correctedSamplesFraction"], 1e-9)

	h.cycle(t, time.Second, audioRecord(h.clock.t, 75, 45, 1890))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 2)
	assert.Equal(t, domain.AlertOff, h.alerts[1].State)
	assert.InDelta(t, 1.0, h.alerts[1].Values["durationSeconds"], 1e-9)
}

func TestAudioDesyncSkipsQuietIntervals(t *testing.T) {
	h := newHarness(t)
	d, err := NewAudioDesync(DefaultAudioDesyncConfig(), h.dispatcher, zap.NewNop().Sugar())
	require.NoError(t, err)

	h.cycle(t, time.Second, audioRecord(h.clock.t, 0, 0, 0))
	d.Update(h.clock.now(), h.store)
	h.cycle(t, time.Second, audioRecord(h.clock.t, 60, 40, 400))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alertsIn(domain.AlertOn), 1)

	// No corrected samples this interval: the alert must hold, not clear.
	h.cycle(t, time.Second, audioRecord(h.clock.t, 60, 40, 800))
	d.Update(h.clock.now(), h.store)
	assert.Empty(t, h.alertsIn(domain.AlertOff))
}

func TestCPUPerformanceFromDroppedFrames(t *testing.T) {
	h := newHarness(t)
	d, err := NewCPUPerformance(DefaultCPUPerformanceConfig(), h.dispatcher, zap.NewNop().Sugar())
	require.NoError(t, err)

	h.cycle(t, time.Second,
		pcRecord(h.clock.t, "connected"),
		videoRecord(h.clock.t, 0, 0, 0, 0, 0))
	d.Update(h.clock.now(), h.store)
	assert.Empty(t, h.alerts)

	h.cycle(t, time.Second,
		pcRecord(h.clock.t, "connected"),
		videoRecord(h.clock.t, 90, 18, 70, 0, 0))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 1)
	assert.Equal(t, NameCPUPerformance, h.alerts[0].Detector)
	assert.Equal(t, domain.AlertOn, h.alerts[0].State)
	assert.InDelta(t, 18.0/108.0, h.alerts[0].Values["droppedFramesFraction"], 1e-9)

	h.cycle(t, time.Second,
		pcRecord(h.clock.t, "connected"),
		videoRecord(h.clock.t, 190, 19, 160, 0, 0))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 2)
	assert.Equal(t, domain.AlertOff, h.alerts[1].State)
}

func TestCPUPerformanceFromEncoderLimitation(t *testing.T) {
	h := newHarness(t)
	d, err := NewCPUPerformance(DefaultCPUPerformanceConfig(), h.dispatcher, zap.NewNop().Sugar())
	require.NoError(t, err)

	h.cycle(t, time.Second,
		pcRecord(h.clock.t, "connected"),
		outboundRecord(h.clock.t, "cpu"))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 1)
	assert.Equal(t, domain.AlertOn, h.alerts[0].State)

	h.cycle(t, time.Second,
		pcRecord(h.clock.t, "connected"),
		outboundRecord(h.clock.t, "none"))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 2)
	assert.Equal(t, domain.AlertOff, h.alerts[1].State)
}

func TestVideoFreezeEpisode(t *testing.T) {
	h := newHarness(t)
	d := NewVideoFreeze(h.dispatcher, zap.NewNop().Sugar())

	h.cycle(t, time.Second, videoRecord(h.clock.t, 30, 0, 30, 0, 0))
	d.Update(h.clock.now(), h.store)
	h.cycle(t, time.Second, videoRecord(h.clock.t, 60, 0, 60, 0, 0))
	d.Update(h.clock.now(), h.store)
	assert.Empty(t, h.alerts)

	h.cycle(t, time.Second, videoRecord(h.clock.t, 90, 0, 61, 1.2, 1))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 1)
	assert.Equal(t, NameVideoFreeze, h.alerts[0].Detector)
	assert.Equal(t, domain.AlertOn, h.alerts[0].State)

	h.cycle(t, time.Second, videoRecord(h.clock.t, 120, 0, 61, 2.0, 1))
	d.Update(h.clock.now(), h.store)
	assert.Len(t, h.alerts, 1, "ongoing freeze does not refire")

	h.cycle(t, time.Second, videoRecord(h.clock.t, 150, 0, 90, 2.0, 1))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 2)
	off := h.alerts[1]
	assert.Equal(t, domain.AlertOff, off.State)
	assert.InDelta(t, 2.0, off.Values["frozenDurationSeconds"], 1e-9)
}

func TestStuckTrackFiresOncePerEpisode(t *testing.T) {
	h := newHarness(t)
	d := NewStuckTrack(StuckTrackConfig{MinStuckDuration: 5 * time.Second}, h.dispatcher, zap.NewNop().Sugar())

	h.cycle(t, time.Second, stuckRecord(h.clock.t, 100, ""))
	d.Update(h.clock.now(), h.store)

	for i := 0; i < 4; i++ {
		h.cycle(t, time.Second, stuckRecord(h.clock.t, 100, ""))
		d.Update(h.clock.now(), h.store)
		assert.Empty(t, h.alerts, "stall below the threshold stays quiet")
	}

	h.cycle(t, time.Second, stuckRecord(h.clock.t, 100, ""))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 1)
	assert.Equal(t, NameStuckTrack, h.alerts[0].Detector)
	assert.Equal(t, "in-stuck-1", h.alerts[0].Target)
	assert.Equal(t, domain.AlertOn, h.alerts[0].State)
	assert.InDelta(t, 5.0, h.alerts[0].Values["stuckDurationSeconds"], 1e-9)

	h.cycle(t, time.Second, stuckRecord(h.clock.t, 100, ""))
	d.Update(h.clock.now(), h.store)
	assert.Len(t, h.alerts, 1, "fires exactly once per episode")

	h.cycle(t, time.Second, stuckRecord(h.clock.t, 150, ""))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 2)
	assert.Equal(t, domain.AlertOff, h.alerts[1].State)
}

func TestStuckTrackIgnoresEndedTracks(t *testing.T) {
	h := newHarness(t)
	d := NewStuckTrack(StuckTrackConfig{MinStuckDuration: 2 * time.Second}, h.dispatcher, zap.NewNop().Sugar())

	for i := 0; i < 5; i++ {
		h.cycle(t, time.Second,
			stuckRecord(h.clock.t, 100, "tr-1"),
			trackRecord(h.clock.t, "tr-1", true))
		d.Update(h.clock.now(), h.store)
	}
	assert.Empty(t, h.alerts, "ended track is not expected to progress")
}

func TestLongConnectFiresOncePerAttempt(t *testing.T) {
	h := newHarness(t)
	d := NewLongConnect(LongConnectConfig{Threshold: 5 * time.Second}, h.dispatcher, zap.NewNop().Sugar())

	for i := 0; i < 3; i++ {
		h.cycle(t, 2*time.Second, pcRecord(h.clock.t, "connecting"))
		d.Update(h.clock.now(), h.store)
		assert.Empty(t, h.alerts)
	}

	h.cycle(t, 2*time.Second, pcRecord(h.clock.t, "connecting"))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 1)
	assert.Equal(t, NameLongConnect, h.alerts[0].Detector)
	assert.Equal(t, domain.AlertOn, h.alerts[0].State)
	assert.InDelta(t, 6.0, h.alerts[0].Values["connectingSeconds"], 1e-9)

	h.cycle(t, 2*time.Second, pcRecord(h.clock.t, "connecting"))
	d.Update(h.clock.now(), h.store)
	assert.Len(t, h.alerts, 1)

	h.cycle(t, 2*time.Second, pcRecord(h.clock.t, "connected"))
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 2)
	assert.Equal(t, domain.AlertOff, h.alerts[1].State)
}

func TestLowScoreFollowsRollingScore(t *testing.T) {
	h := newHarness(t)
	log := zap.NewNop().Sugar()
	scorer := scoring.New(scoring.Config{WindowSize: 1}, log)
	d, err := NewLowScore(DefaultLowScoreConfig(), scorer, h.dispatcher, log)
	require.NoError(t, err)

	h.cycle(t, time.Second,
		pcRecord(h.clock.t, "connected"),
		lossyInbound(h.clock.t, 0, 0, 0.001),
		remoteInboundRecord(h.clock.t, 0.05))
	scorer.Update(h.clock.now(), h.store)
	d.Update(h.clock.now(), h.store)
	assert.Empty(t, h.alerts)

	h.cycle(t, time.Second,
		pcRecord(h.clock.t, "connected"),
		lossyInbound(h.clock.t, 800, 200, 0.05),
		remoteInboundRecord(h.clock.t, 0.8))
	scorer.Update(h.clock.now(), h.store)
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 1)
	assert.Equal(t, NameLowScore, h.alerts[0].Detector)
	assert.Equal(t, "pc-main", h.alerts[0].Target)
	assert.Equal(t, domain.AlertOn, h.alerts[0].State)
	assert.Less(t, h.alerts[0].Values["score"], 2.5)

	h.cycle(t, time.Second,
		pcRecord(h.clock.t, "connected"),
		lossyInbound(h.clock.t, 1800, 200, 0.001),
		remoteInboundRecord(h.clock.t, 0.05))
	scorer.Update(h.clock.now(), h.store)
	d.Update(h.clock.now(), h.store)
	require.Len(t, h.alerts, 2)
	assert.Equal(t, domain.AlertOff, h.alerts[1].State)
	assert.Greater(t, h.alerts[1].Values["score"], 3.0)
}

func TestDetectorConstructorsRejectBadThresholds(t *testing.T) {
	log := zap.NewNop().Sugar()
	dispatcher := events.NewDispatcher(log)

	_, err := NewAudioDesync(AudioDesyncConfig{AlertOnThreshold: 0.05, AlertOffThreshold: 0.1}, dispatcher, log)
	assert.Error(t, err)

	_, err = NewCPUPerformance(CPUPerformanceConfig{AlertOnThreshold: 0.01, AlertOffThreshold: 0.05}, dispatcher, log)
	assert.Error(t, err)

	_, err = NewLowScore(LowScoreConfig{AlertOnThreshold: 3.5, AlertOffThreshold: 3.0}, nil, dispatcher, log)
	assert.Error(t, err)
}
