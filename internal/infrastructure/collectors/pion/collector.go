package pion

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
)

// Collector adapts a pion PeerConnection to the monitor's collector
// port. Each call to Collect snapshots the connection's stats report
// and converts it to canonical records.
type Collector struct {
	id     domain.CollectorID
	label  string
	pc     *webrtc.PeerConnection
	logger *zap.SugaredLogger
	closed atomic.Bool
}

// New wraps pc for stat collection. The label travels with every
// sample built from this connection's entries.
func New(pc *webrtc.PeerConnection, label string, logger *zap.SugaredLogger) *Collector {
	return &Collector{
		id:     domain.CollectorID(uuid.NewString()),
		label:  label,
		pc:     pc,
		logger: logger,
	}
}

func (c *Collector) ID() domain.CollectorID { return c.id }

func (c *Collector) Label() string { return c.label }

// Collect snapshots the peer connection stats. Stream-level stats
// appear only when the application registered pion's stats
// interceptor; transport, candidate and channel stats are always
// present.
func (c *Collector) Collect(ctx context.Context) ([]domain.KindRecord, error) {
	if c.closed.Load() {
		return nil, domain.ErrCollectorClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := c.pc.GetStats()

	records := make([]domain.KindRecord, 0, len(report))
	var pcRec *domain.PeerConnectionRecord
	for _, s := range report {
		if stat, ok := s.(webrtc.PeerConnectionStats); ok {
			pcRec = translatePeerConnection(stat)
			continue
		}
		rec, ok := translateStat(s)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	if pcRec == nil {
		pcRec = &domain.PeerConnectionRecord{ID: string(c.id), Timestamp: time.Now()}
	}
	c.fillLiveState(pcRec)
	records = append(records, domain.KindRecord{Kind: domain.KindPeerConnection, Record: pcRec})

	return records, nil
}

// fillLiveState copies the connection states the stats report does not
// carry from the live API.
func (c *Collector) fillLiveState(rec *domain.PeerConnectionRecord) {
	if c.label != "" {
		rec.Label = domain.StringPtr(c.label)
	}
	rec.ConnectionState = domain.StringPtr(c.pc.ConnectionState().String())
	rec.IceState = domain.StringPtr(c.pc.ICEConnectionState().String())
	rec.SignalingState = domain.StringPtr(c.pc.SignalingState().String())
}

// Close detaches the collector. The underlying peer connection stays
// open; it belongs to the application.
func (c *Collector) Close() error {
	c.closed.Store(true)
	return nil
}
