// Package wire implements the fixed-header UDP wire protocol: packet
// framing, fragmentation with intra-burst pacing, and single-frame
// reassembly. All multi-byte header fields are little-endian on the wire,
// matching the reference implementation bit-for-bit.
package wire

import "encoding/binary"

// PacketType identifies the payload carried by a packet.
type PacketType uint8

const (
	PacketVideo     PacketType = 0
	PacketMetadata  PacketType = 1
	PacketKeepalive PacketType = 2
	PacketPunch     PacketType = 3
	PacketAudio     PacketType = 4
)

func (t PacketType) String() string {
	switch t {
	case PacketVideo:
		return "VIDEO"
	case PacketMetadata:
		return "METADATA"
	case PacketKeepalive:
		return "KEEPALIVE"
	case PacketPunch:
		return "PUNCH"
	case PacketAudio:
		return "AUDIO"
	default:
		return "UNKNOWN"
	}
}

// HeaderSize is the fixed on-wire header length in bytes.
const HeaderSize = 16

// MaxPacketPayload is the maximum payload carried by a single chunk,
// chosen for headroom under the common 1500-byte MTU.
const MaxPacketPayload = 1400

// Header is the fixed 16-byte packet header.
//
//	 0  frame_id      u32  monotonic per sender
//	 4  chunk_id      u16  0..total_chunks-1
//	 6  total_chunks  u16
//	 8  payload_size  u32  bytes of payload in THIS chunk
//	12  packet_type   u8
//	13  padding[3]    zeroes
type Header struct {
	FrameID     uint32
	ChunkID     uint16
	TotalChunks uint16
	PayloadSize uint32
	PacketType  PacketType
}

// Marshal writes the header into buf, which must be at least HeaderSize
// bytes long.
func (h Header) Marshal(buf []byte) {
	_ = buf[:HeaderSize]
	binary.LittleEndian.PutUint32(buf[0:4], h.FrameID)
	binary.LittleEndian.PutUint16(buf[4:6], h.ChunkID)
	binary.LittleEndian.PutUint16(buf[6:8], h.TotalChunks)
	binary.LittleEndian.PutUint32(buf[8:12], h.PayloadSize)
	buf[12] = byte(h.PacketType)
	buf[13], buf[14], buf[15] = 0, 0, 0
}

// UnmarshalHeader reads a Header from buf. Returns false if buf is smaller
// than HeaderSize — per spec, any packet smaller than the header is
// ignored by callers.
func UnmarshalHeader(buf []byte) (Header, bool) {
	if len(buf) < HeaderSize {
		return Header{}, false
	}
	return Header{
		FrameID:     binary.LittleEndian.Uint32(buf[0:4]),
		ChunkID:     binary.LittleEndian.Uint16(buf[4:6]),
		TotalChunks: binary.LittleEndian.Uint16(buf[6:8]),
		PayloadSize: binary.LittleEndian.Uint32(buf[8:12]),
		PacketType:  PacketType(buf[12]),
	}, true
}
