package wire

import (
	"sync"
	"sync/atomic"
	"time"
)

// paceEvery and paceFor reproduce the reference implementation's burst
// pacing: after every 10 chunks, pause briefly to avoid overflowing the
// kernel's UDP send buffer on large keyframes.
const (
	paceEvery = 10
	paceFor   = 200 * time.Microsecond
)

// Sink is the capability a Packetizer needs to emit one wire packet. Tests
// inject an in-process sink; production code backs it with a UDP socket.
// This is the "handler callback → strategy" substitution spec.md §9 calls
// for in place of the reference's function-pointer callback.
type Sink interface {
	Send(packet []byte) error
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(packet []byte) error

func (f SinkFunc) Send(packet []byte) error { return f(packet) }

// Packetizer assigns monotonic frame ids and fragments logical units into
// wire packets. The frame-id claim is lock-free (sync/atomic), per
// spec.md §9's design note; a separate mutex optionally serializes the
// full fragmented transmission of one logical frame when the caller wants
// video and audio interleaving prevented (see NewPacketizer's serialize
// parameter and DESIGN.md's Open Question decision).
type Packetizer struct {
	counter atomic.Uint32

	serialize bool
	sendMu    sync.Mutex

	// sleep is the pacing primitive; overridable in tests.
	sleep func(time.Duration)
}

// NewPacketizer creates a Packetizer. When serialize is true, the entire
// fragmented send of one logical frame holds an internal lock, preventing
// fragments of a concurrently-sent frame (e.g. audio while video is mid-
// burst) from interleaving on the wire — this reproduces the reference
// implementation's behavior, which spec.md §9 says to preserve.
func NewPacketizer(serialize bool) *Packetizer {
	return &Packetizer{serialize: serialize, sleep: time.Sleep}
}

// NextFrameID atomically claims and returns the next monotonic frame id.
// Exposed so callers that need the id before or independent of a send
// (e.g. to correlate logs) can claim it directly.
func (p *Packetizer) NextFrameID() uint32 {
	return p.counter.Add(1)
}

// SendData fragments payload into ≤MaxPacketPayload chunks tagged with a
// freshly claimed frame id and packet type, and writes each chunk to sink
// in chunk_id ascending order, pacing every paceEvery chunks.
func (p *Packetizer) SendData(sink Sink, ptype PacketType, payload []byte) (uint32, error) {
	frameID := p.NextFrameID()
	return frameID, p.sendWithID(sink, ptype, frameID, payload)
}

// SendDataWithID fragments and sends payload under a frame id the caller
// already claimed via NextFrameID. Used when the caller must derive
// something from the frame id (the cipher IV) before the payload is
// fragmented, while still participating in the same send-serialization
// as SendData.
func (p *Packetizer) SendDataWithID(sink Sink, frameID uint32, ptype PacketType, payload []byte) (uint32, error) {
	return frameID, p.sendWithID(sink, ptype, frameID, payload)
}

func (p *Packetizer) sendWithID(sink Sink, ptype PacketType, frameID uint32, payload []byte) error {
	if p.serialize {
		p.sendMu.Lock()
		defer p.sendMu.Unlock()
	}
	return p.sendChunks(sink, ptype, frameID, payload)
}

func (p *Packetizer) sendChunks(sink Sink, ptype PacketType, frameID uint32, payload []byte) error {
	totalChunks := chunkCount(len(payload))
	buf := make([]byte, HeaderSize+MaxPacketPayload)

	offset := 0
	for i := uint16(0); i < totalChunks; i++ {
		remaining := len(payload) - offset
		size := remaining
		if size > MaxPacketPayload {
			size = MaxPacketPayload
		}

		h := Header{
			FrameID:     frameID,
			ChunkID:     i,
			TotalChunks: totalChunks,
			PayloadSize: uint32(size),
			PacketType:  ptype,
		}
		h.Marshal(buf)
		copy(buf[HeaderSize:], payload[offset:offset+size])

		if err := sink.Send(buf[:HeaderSize+size]); err != nil {
			return err
		}

		offset += size
		if (i+1)%paceEvery == 0 {
			p.sleep(paceFor)
		}
	}
	return nil
}

// chunkCount returns ceil(size / MaxPacketPayload), with a floor of 1 so
// zero-length payloads (KEEPALIVE, PUNCH) still emit exactly one chunk.
func chunkCount(size int) uint16 {
	if size == 0 {
		return 1
	}
	return uint16((size + MaxPacketPayload - 1) / MaxPacketPayload)
}

// SendKeepalive emits a zero-payload KEEPALIVE packet.
func (p *Packetizer) SendKeepalive(sink Sink) (uint32, error) {
	return p.SendData(sink, PacketKeepalive, nil)
}

// SendPunch emits a zero-payload PUNCH packet.
func (p *Packetizer) SendPunch(sink Sink) (uint32, error) {
	return p.SendData(sink, PacketPunch, nil)
}
