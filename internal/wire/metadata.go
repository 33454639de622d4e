package wire

import "encoding/binary"

const (
	osNameSize     = 32
	deNameSize     = 32
	formatNameSize = 16
	colorSpaceSize = 16
)

// MetadataSize is the full on-wire size of a StreamMetadata record.
const MetadataSize = osNameSize + deNameSize + 4 + 4 + 4 + formatNameSize + colorSpaceSize

// Metadata describes the host's current capture stream, carried as a
// single METADATA packet (always ≤ MaxPacketPayload bytes). The receiver
// decodes any it gets; the sender pipeline in this module does not emit
// METADATA packets.
type Metadata struct {
	OSName     string
	DEName     string
	Width      uint32
	Height     uint32
	FPS        uint32
	FormatName string
	ColorSpace string
}

// Marshal encodes m into its fixed-size wire representation.
func (m Metadata) Marshal() []byte {
	buf := make([]byte, MetadataSize)
	off := 0
	off += putFixedString(buf[off:], m.OSName, osNameSize)
	off += putFixedString(buf[off:], m.DEName, deNameSize)
	binary.LittleEndian.PutUint32(buf[off:], m.Width)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], m.Height)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], m.FPS)
	off += 4
	off += putFixedString(buf[off:], m.FormatName, formatNameSize)
	putFixedString(buf[off:], m.ColorSpace, colorSpaceSize)
	return buf
}

// UnmarshalMetadata decodes buf into a Metadata. Per spec.md §4.3, receivers
// tolerate minor schema evolution: any payload sized in
// [MetadataSize-4, MetadataSize] is accepted, with a missing trailing field
// (ColorSpace) treated as empty.
func UnmarshalMetadata(buf []byte) (Metadata, bool) {
	if len(buf) < MetadataSize-4 || len(buf) > MetadataSize {
		return Metadata{}, false
	}
	padded := make([]byte, MetadataSize)
	copy(padded, buf)

	var m Metadata
	off := 0
	m.OSName = getFixedString(padded[off:], osNameSize)
	off += osNameSize
	m.DEName = getFixedString(padded[off:], deNameSize)
	off += deNameSize
	m.Width = binary.LittleEndian.Uint32(padded[off:])
	off += 4
	m.Height = binary.LittleEndian.Uint32(padded[off:])
	off += 4
	m.FPS = binary.LittleEndian.Uint32(padded[off:])
	off += 4
	m.FormatName = getFixedString(padded[off:], formatNameSize)
	off += formatNameSize
	if len(buf) == MetadataSize {
		m.ColorSpace = getFixedString(padded[off:], colorSpaceSize)
	}
	return m, true
}

func putFixedString(dst []byte, s string, size int) int {
	n := copy(dst[:size], s)
	for i := n; i < size; i++ {
		dst[i] = 0
	}
	return size
}

func getFixedString(src []byte, size int) string {
	field := src[:size]
	end := size
	for i, b := range field {
		if b == 0 {
			end = i
			break
		}
	}
	return string(field[:end])
}
