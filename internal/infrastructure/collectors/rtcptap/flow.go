package rtcptap

import (
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
)

// flowState accumulates per-SSRC reception counters for one observed
// RTP stream. Loss and jitter follow the RFC 3550 receiver algorithms.
type flowState struct {
	ssrc        uint32
	payloadType uint8

	packets uint64
	bytes   uint64

	seqInit bool
	baseSeq uint32
	maxSeq  uint16
	cycles  uint32

	hasTransit bool
	transit    float64
	jitter     float64 // in RTP timestamp units
}

// extendSeq folds 16-bit sequence wraparound into a 32-bit extended
// sequence number and returns the extended highest seen so far.
func (f *flowState) extendSeq(seq uint16) uint32 {
	if !f.seqInit {
		f.seqInit = true
		f.baseSeq = uint32(seq)
		f.maxSeq = seq
		return uint32(seq)
	}
	delta := int32(seq) - int32(f.maxSeq)
	switch {
	case delta < -0x8000:
		// Wrapped around.
		f.cycles += 1 << 16
		f.maxSeq = seq
	case delta > 0:
		f.maxSeq = seq
	}
	return f.cycles + uint32(f.maxSeq)
}

func (f *flowState) observe(now time.Time, pkt *rtp.Packet, wireBytes int, clockRate float64) {
	f.ssrc = pkt.SSRC
	f.payloadType = pkt.PayloadType
	f.packets++
	f.bytes += uint64(wireBytes)
	f.extendSeq(pkt.SequenceNumber)

	// Interarrival jitter, RFC 3550 appendix A.8: compare the spread
	// between arrival clock and RTP timestamp across packets.
	arrival := float64(now.UnixNano()) * clockRate / float64(time.Second)
	transit := arrival - float64(pkt.Timestamp)
	if f.hasTransit {
		d := transit - f.transit
		if d < 0 {
			d = -d
		}
		f.jitter += (d - f.jitter) / 16
	}
	f.transit = transit
	f.hasTransit = true
}

// expected returns the number of packets the sequence space says
// should have arrived.
func (f *flowState) expected() uint64 {
	if !f.seqInit {
		return 0
	}
	return uint64(f.cycles+uint32(f.maxSeq)) - uint64(f.baseSeq) + 1
}

// lost can be negative when duplicates outnumber gaps.
func (f *flowState) lost() int64 {
	return int64(f.expected()) - int64(f.packets)
}

// jitterSeconds converts the accumulated jitter from timestamp units.
func (f *flowState) jitterSeconds(clockRate float64) float64 {
	if clockRate <= 0 {
		return 0
	}
	return f.jitter / clockRate
}

// senderState tracks what an observed sender claims about its own
// stream, from RTCP sender reports.
type senderState struct {
	ssrc    uint32
	packets uint32
	octets  uint32
	reports uint64
}

func (s *senderState) observe(sr *rtcp.SenderReport) {
	s.ssrc = sr.SSRC
	s.packets = sr.PacketCount
	s.octets = sr.OctetCount
	s.reports++
}

// receiverState tracks what an observed receiver reports about a
// stream it receives, from RTCP reception report blocks.
type receiverState struct {
	ssrc         uint32
	fractionLost float64
	totalLost    int64
	jitterUnits  uint32
}

func (r *receiverState) observe(block rtcp.ReceptionReport) {
	r.ssrc = block.SSRC
	r.fractionLost = float64(block.FractionLost) / 256.0
	r.totalLost = int64(block.TotalLost)
	r.jitterUnits = block.Jitter
}
