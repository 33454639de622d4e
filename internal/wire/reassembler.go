package wire

import "github.com/tris790/harmony/internal/arena"

// MaxFrameSize is the fixed bound on a single reassembled logical frame.
// The reference implementation never resizes this buffer; a frame
// exceeding it is silently dropped rather than grown, per DESIGN.md's
// Open Question decision to reproduce the bound exactly.
const MaxFrameSize = 2 * 1024 * 1024

// Result is the outcome of feeding one packet to a Reassembler.
type Result int

const (
	ResultIgnored Result = iota
	ResultPartial
	ResultComplete
)

func (r Result) String() string {
	switch r {
	case ResultIgnored:
		return "IGNORED"
	case ResultPartial:
		return "PARTIAL"
	case ResultComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// Reassembler reassembles chunks for a single media type into complete
// logical frames. It keeps exactly one active buffer: any higher frame_id
// abandons whatever partial state preceded it, and any frame_id lower than
// the current watermark is a late fragment of a superseded frame and is
// ignored.
type Reassembler struct {
	arena *arena.Arena
	buf   []byte

	frameID       uint32
	receivedBytes int
	totalSize     int
	packetType    PacketType
	lastChunkSeen bool
}

// NewReassembler creates a Reassembler backed by an arena sized for one
// MaxFrameSize buffer plus headroom for the caller's other allocations.
// If a shares an arena is not desired, pass a dedicated arena per
// Reassembler (the receiver keeps one per media type).
func NewReassembler(a *arena.Arena) *Reassembler {
	return &Reassembler{arena: a}
}

// Reset clears the watermark so the next arriving frame_id — however low —
// is accepted as a fresh start. Used on stream timeout (spec.md §4.6) so a
// new sender sequence starting at frame_id 1 is accepted again.
func (r *Reassembler) Reset() {
	r.frameID = 0
	r.receivedBytes = 0
	r.totalSize = 0
	r.lastChunkSeen = false
}

// HandlePacket feeds one already-header-parsed VIDEO or AUDIO packet to the
// reassembler (network intake demuxes METADATA/KEEPALIVE/PUNCH before they
// ever reach a Reassembler — see spec.md §4.6). On ResultComplete, the
// returned slice aliases the reassembler's internal buffer and is only
// valid until the next HandlePacket call that starts a new frame — callers
// must copy it out before enqueuing elsewhere.
func (r *Reassembler) HandlePacket(h Header, payload []byte) ([]byte, PacketType, Result) {
	if h.FrameID > r.frameID {
		r.frameID = h.FrameID
		r.receivedBytes = 0
		r.totalSize = 0
		r.packetType = h.PacketType
		r.lastChunkSeen = false
		if r.buf == nil {
			r.buf = r.arena.Push(MaxFrameSize)
		}
	}

	if h.FrameID != r.frameID {
		return nil, 0, ResultIgnored
	}

	offset := int(h.ChunkID) * MaxPacketPayload
	size := int(h.PayloadSize)
	if offset+size > MaxFrameSize {
		return nil, 0, ResultIgnored
	}

	copy(r.buf[offset:offset+size], payload[:size])
	r.receivedBytes += size

	if h.ChunkID == h.TotalChunks-1 {
		r.totalSize = int(h.TotalChunks-1)*MaxPacketPayload + size
		r.lastChunkSeen = true
	}

	if r.lastChunkSeen && r.totalSize > 0 && r.receivedBytes >= r.totalSize {
		return r.buf[:r.totalSize], r.packetType, ResultComplete
	}

	return nil, 0, ResultPartial
}
