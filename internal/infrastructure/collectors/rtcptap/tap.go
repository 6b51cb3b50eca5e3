package rtcptap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
)

const defaultClockRate = 90000

// Config controls the tap socket and RTP interpretation.
type Config struct {
	// Address is the UDP listen address receiving mirrored packets.
	Address string
	// Label names the synthetic peer connection in samples.
	Label string
	// ClockRate converts RTP timestamp units to seconds. Defaults to
	// the video rate; audio taps should set their codec's rate.
	ClockRate float64
	// Now is the clock used for record timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Tap observes a mirrored RTP/RTCP packet stream on a UDP socket and
// exposes it as a collector. It builds inbound counters from the RTP
// flow itself and remote report records from RTCP, so an application
// without media-engine stats still feeds the monitor.
type Tap struct {
	id     domain.CollectorID
	cfg    Config
	logger *zap.SugaredLogger

	conn *net.UDPConn
	wg   sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	sawPacket bool
	flows     map[uint32]*flowState
	senders   map[uint32]*senderState
	receivers map[uint32]*receiverState
}

// Listen opens the socket and starts reading packets.
func Listen(cfg Config, logger *zap.SugaredLogger) (*Tap, error) {
	t := newTap(cfg, logger)

	addr, err := net.ResolveUDPAddr("udp", t.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tap address %s: %w", t.cfg.Address, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", t.cfg.Address, err)
	}
	t.conn = conn

	t.wg.Add(1)
	go t.readLoop()

	logger.Infow("rtcp tap listening", "address", conn.LocalAddr().String())
	return t, nil
}

func newTap(cfg Config, logger *zap.SugaredLogger) *Tap {
	if cfg.ClockRate <= 0 {
		cfg.ClockRate = defaultClockRate
	}
	if cfg.Label == "" {
		cfg.Label = "rtcp-tap"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Tap{
		id:        domain.CollectorID(uuid.NewString()),
		cfg:       cfg,
		logger:    logger,
		flows:     make(map[uint32]*flowState),
		senders:   make(map[uint32]*senderState),
		receivers: make(map[uint32]*receiverState),
	}
}

func (t *Tap) ID() domain.CollectorID { return t.id }

func (t *Tap) Label() string { return t.cfg.Label }

// LocalAddr reports the bound socket address, useful when listening
// on an ephemeral port.
func (t *Tap) LocalAddr() net.Addr {
	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

func (t *Tap) readLoop() {
	defer t.wg.Done()

	buf := make([]byte, 2048)
	for {
		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			t.logger.Warnw("tap read failed", "error", err)
			continue
		}
		t.handleDatagram(t.cfg.Now(), buf[:n])
	}
}

// handleDatagram demultiplexes RTP and RTCP sharing the socket per
// RFC 5761: payload type byte values 192..223 are RTCP.
func (t *Tap) handleDatagram(now time.Time, buf []byte) {
	if len(buf) < 2 {
		return
	}
	if pt := buf[1]; pt >= 192 && pt <= 223 {
		t.handleRTCP(buf)
		return
	}
	t.handleRTP(now, buf)
}

func (t *Tap) handleRTP(now time.Time, buf []byte) {
	pkt := &rtp.Packet{}
	if err := pkt.Unmarshal(buf); err != nil {
		t.logger.Debugw("dropping unparseable rtp packet", "error", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.sawPacket = true

	flow, ok := t.flows[pkt.SSRC]
	if !ok {
		flow = &flowState{}
		t.flows[pkt.SSRC] = flow
		t.logger.Debugw("new rtp flow", "ssrc", pkt.SSRC, "payloadType", pkt.PayloadType)
	}
	flow.observe(now, pkt, len(buf), t.cfg.ClockRate)
}

func (t *Tap) handleRTCP(buf []byte) {
	packets, err := rtcp.Unmarshal(buf)
	if err != nil {
		t.logger.Debugw("dropping unparseable rtcp packet", "error", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.sawPacket = true

	for _, p := range packets {
		switch report := p.(type) {
		case *rtcp.SenderReport:
			sender, ok := t.senders[report.SSRC]
			if !ok {
				sender = &senderState{}
				t.senders[report.SSRC] = sender
			}
			sender.observe(report)
			t.observeBlocks(report.Reports)
		case *rtcp.ReceiverReport:
			t.observeBlocks(report.Reports)
		}
	}
}

func (t *Tap) observeBlocks(blocks []rtcp.ReceptionReport) {
	for _, block := range blocks {
		receiver, ok := t.receivers[block.SSRC]
		if !ok {
			receiver = &receiverState{}
			t.receivers[block.SSRC] = receiver
		}
		receiver.observe(block)
	}
}

// Collect synthesizes canonical records from the accumulated flow and
// report state.
func (t *Tap) Collect(ctx context.Context) ([]domain.KindRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, domain.ErrCollectorClosed
	}

	now := t.cfg.Now()
	records := make([]domain.KindRecord, 0, 1+len(t.flows)+len(t.senders)+len(t.receivers))

	state := "new"
	if t.sawPacket {
		state = "connected"
	}
	records = append(records, domain.KindRecord{
		Kind: domain.KindPeerConnection,
		Record: &domain.PeerConnectionRecord{
			ID:              "rtcp-tap",
			Timestamp:       now,
			Label:           domain.StringPtr(t.cfg.Label),
			ConnectionState: domain.StringPtr(state),
		},
	})

	for ssrc, flow := range t.flows {
		records = append(records, domain.KindRecord{
			Kind: domain.KindInboundRTP,
			Record: &domain.InboundRTPRecord{
				ID:              fmt.Sprintf("tap-in-%08x", ssrc),
				Timestamp:       now,
				SSRC:            domain.Uint32Ptr(ssrc),
				PacketsReceived: domain.Uint64Ptr(flow.packets),
				BytesReceived:   domain.Uint64Ptr(flow.bytes),
				PacketsLost:     domain.Int64Ptr(flow.lost()),
				Jitter:          domain.Float64Ptr(flow.jitterSeconds(t.cfg.ClockRate)),
			},
		})
	}

	for ssrc, sender := range t.senders {
		records = append(records, domain.KindRecord{
			Kind: domain.KindRemoteOutboundRTP,
			Record: &domain.RemoteOutboundRTPRecord{
				ID:          fmt.Sprintf("tap-rout-%08x", ssrc),
				Timestamp:   now,
				SSRC:        domain.Uint32Ptr(ssrc),
				PacketsSent: domain.Uint64Ptr(uint64(sender.packets)),
				BytesSent:   domain.Uint64Ptr(uint64(sender.octets)),
				ReportsSent: domain.Uint64Ptr(sender.reports),
			},
		})
	}

	for ssrc, receiver := range t.receivers {
		records = append(records, domain.KindRecord{
			Kind: domain.KindRemoteInboundRTP,
			Record: &domain.RemoteInboundRTPRecord{
				ID:           fmt.Sprintf("tap-rin-%08x", ssrc),
				Timestamp:    now,
				SSRC:         domain.Uint32Ptr(ssrc),
				PacketsLost:  domain.Int64Ptr(receiver.totalLost),
				FractionLost: domain.Float64Ptr(receiver.fractionLost),
				Jitter:       domain.Float64Ptr(float64(receiver.jitterUnits) / t.cfg.ClockRate),
			},
		})
	}

	return records, nil
}

// Close stops the read loop and releases the socket.
func (t *Tap) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	var err error
	if t.conn != nil {
		err = t.conn.Close()
	}
	t.wg.Wait()
	return err
}
