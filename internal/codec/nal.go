package codec

// H.264 NAL unit types relevant to keyframe/parameter-set gating (ITU-T
// H.264 Annex B), named the way the pack's RTP/Vulkan video examples do.
const (
	NALTypeIDR = 5
	NALTypeSPS = 7
	NALTypePPS = 8
)

// FindStartCode reports the offset and length of the first Annex B start
// code (0x00 0x00 0x01 or 0x00 0x00 0x00 0x01) in buf, or -1 if none is
// found. Used to validate a decrypted video payload before handing it to
// the external decoder (spec.md §4.6, §7).
func FindStartCode(buf []byte) (offset, length int) {
	for i := 0; i+2 < len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			if i > 0 && buf[i-1] == 0 {
				return i - 1, 4
			}
			return i, 3
		}
	}
	return -1, 0
}

// HasValidStartCode reports whether buf begins with an Annex B start code,
// the decrypt-failure check spec.md §7 specifies: wrong password is
// detected by an invalid NAL start code on the decrypted video payload.
func HasValidStartCode(buf []byte) bool {
	if len(buf) >= 4 && buf[0] == 0 && buf[1] == 0 && buf[2] == 0 && buf[3] == 1 {
		return true
	}
	if len(buf) >= 3 && buf[0] == 0 && buf[1] == 0 && buf[2] == 1 {
		return true
	}
	return false
}

// UnitType extracts the NAL unit type from a NAL header byte immediately
// following a start code (low 5 bits, per the H.264 spec).
func UnitType(nalHeaderByte byte) int {
	return int(nalHeaderByte & 0x1F)
}

// IsParameterOrIDR reports whether a NAL unit starting at buf (immediately
// after its start code) is an SPS, PPS, or IDR slice — the units that let
// the decoder clear its "no keyframe seen yet" gate (spec.md §4.6).
func IsParameterOrIDR(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	switch UnitType(buf[0]) {
	case NALTypeIDR, NALTypeSPS, NALTypePPS:
		return true
	default:
		return false
	}
}
