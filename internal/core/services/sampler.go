package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
	"rtcscope/internal/core/events"
	"rtcscope/internal/core/scoring"
	"rtcscope/internal/core/store"
)

// SamplerConfig identifies the reporting client. Empty ids are replaced
// with generated ones so every agent run is distinguishable upstream.
type SamplerConfig struct {
	ClientID string
	CallID   string
}

// Sampler assembles the outgoing client sample at the end of each cycle:
// the committed snapshot of every peer connection, the session
// aggregates, the scores, and the alerts and issues raised since the
// previous sample.
type Sampler struct {
	clientID domain.ClientID
	callID   domain.CallID
	scorer   *scoring.Scorer
	logger   *zap.SugaredLogger

	metadata *domain.ClientMetadata

	mu            sync.Mutex
	seqNo         int
	pendingAlerts []domain.AlertEvent
	pendingIssues []domain.Issue
}

func NewSampler(cfg SamplerConfig, scorer *scoring.Scorer, dispatcher *events.Dispatcher, logger *zap.SugaredLogger) *Sampler {
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}
	if cfg.CallID == "" {
		cfg.CallID = uuid.NewString()
	}
	s := &Sampler{
		clientID: domain.ClientID(cfg.ClientID),
		callID:   domain.CallID(cfg.CallID),
		scorer:   scorer,
		logger:   logger,
	}
	if dispatcher != nil {
		dispatcher.OnAlert(s.noteAlert)
		dispatcher.OnIssue(s.noteIssue)
	}
	return s
}

func (s *Sampler) ClientID() domain.ClientID { return s.clientID }
func (s *Sampler) CallID() domain.CallID     { return s.callID }

// SetMetadata attaches static platform facts to every sample built from
// here on.
func (s *Sampler) SetMetadata(meta *domain.ClientMetadata) {
	s.mu.Lock()
	s.metadata = meta
	s.mu.Unlock()
}

func (s *Sampler) noteAlert(e domain.AlertEvent) {
	s.mu.Lock()
	s.pendingAlerts = append(s.pendingAlerts, e)
	s.mu.Unlock()
}

func (s *Sampler) noteIssue(i domain.Issue) {
	s.mu.Lock()
	s.pendingIssues = append(s.pendingIssues, i)
	s.mu.Unlock()
}

// Build snapshots the committed store into one client sample and drains
// the events accumulated since the previous build.
func (s *Sampler) Build(now time.Time, st *store.Store) *domain.ClientSample {
	s.mu.Lock()
	alerts := s.pendingAlerts
	issues := s.pendingIssues
	s.pendingAlerts = nil
	s.pendingIssues = nil
	seq := s.seqNo
	s.seqNo++
	meta := s.metadata
	s.mu.Unlock()

	sample := &domain.ClientSample{
		ClientID:  s.clientID,
		CallID:    s.callID,
		SeqNo:     seq,
		Timestamp: now,
		Metadata:  meta,
		Alerts:    alerts,
		Issues:    issues,
	}

	var scoreSum float64
	var scored int
	for pc := range st.PeerConnections() {
		pcSample := buildPeerConnectionSample(pc)
		if s.scorer != nil {
			if avg, ok := s.scorer.Average(pc.ID()); ok {
				pcSample.Score = domain.Float64Ptr(avg)
				scoreSum += avg
				scored++
			}
		}
		sample.PeerConnections = append(sample.PeerConnections, pcSample)
	}
	if scored > 0 {
		sample.Score = domain.Float64Ptr(scoreSum / float64(scored))
	}

	agg := st.Aggregates()
	sample.Aggregates = &agg
	return sample
}

func buildPeerConnectionSample(pc *store.PeerConnectionEntry) domain.PeerConnectionSample {
	entry := pc.Sample()
	out := domain.PeerConnectionSample{
		PeerConnectionID: pc.ID(),
		CollectorID:      string(pc.CollectorID()),
		Label:            pc.Label(),
		PeerConnection:   &entry,
	}
	for e := range pc.Transports() {
		out.Transports = append(out.Transports, e.Sample())
	}
	for e := range pc.IceCandidates() {
		out.IceCandidates = append(out.IceCandidates, e.Sample())
	}
	for e := range pc.CandidatePairs() {
		out.CandidatePairs = append(out.CandidatePairs, e.Sample())
	}
	for e := range pc.Certificates() {
		out.Certificates = append(out.Certificates, e.Sample())
	}
	for e := range pc.Codecs() {
		out.Codecs = append(out.Codecs, e.Sample())
	}
	for e := range pc.MediaSources() {
		out.MediaSources = append(out.MediaSources, e.Sample())
	}
	for e := range pc.InboundRTPs() {
		out.InboundRTPs = append(out.InboundRTPs, e.Sample())
	}
	for e := range pc.OutboundRTPs() {
		out.OutboundRTPs = append(out.OutboundRTPs, e.Sample())
	}
	for e := range pc.RemoteInboundRTPs() {
		out.RemoteInbounds = append(out.RemoteInbounds, e.Sample())
	}
	for e := range pc.RemoteOutboundRTPs() {
		out.RemoteOutbounds = append(out.RemoteOutbounds, e.Sample())
	}
	for e := range pc.DataChannels() {
		out.DataChannels = append(out.DataChannels, e.Sample())
	}
	for e := range pc.Tracks() {
		out.Tracks = append(out.Tracks, e.Sample())
	}
	return out
}
