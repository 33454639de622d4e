// Package refcodec provides a deterministic, allocation-cheap stand-in for
// the external H.264/Opus collaborators. It implements the same shapes
// the real codecs would (keyframe cadence, NAL-shaped framing for video,
// fixed-size Opus-shaped frames for audio) without linking any native
// codec library, so the pipeline and its tests can run without cgo.
package refcodec

import (
	"encoding/binary"
	"time"

	"github.com/tris790/harmony/internal/codec"
)

// VideoEncoder emits one IDR-shaped unit every keyframeInterval frames and
// P-shaped units otherwise. The "encoded" payload is simply the raw frame
// bytes prefixed with a start code and NAL header, which is enough for the
// decrypt-validation and NAL-gating logic downstream to exercise real
// control flow without a real H.264 bitstream.
type VideoEncoder struct {
	width, height, fps, bitrate int
	frameIndex                  int
	keyframeInterval            int
}

// NewVideoEncoder creates a reference encoder. keyframeInterval of 0 means
// "encode every frame as a keyframe" (useful for tests that want to avoid
// gating entirely).
func NewVideoEncoder(width, height, fps, bitrateBps, keyframeInterval int) *VideoEncoder {
	return &VideoEncoder{
		width: width, height: height, fps: fps, bitrate: bitrateBps,
		keyframeInterval: keyframeInterval,
	}
}

func (e *VideoEncoder) Encode(frame codec.RawFrame) (codec.EncodedVideo, bool, error) {
	keyframe := e.keyframeInterval <= 0 || e.frameIndex%e.keyframeInterval == 0
	e.frameIndex++

	nalType := byte(1) // non-IDR slice
	if keyframe {
		nalType = byte(codec.NALTypeIDR)
	}

	out := make([]byte, 0, len(frame.Data)+4)
	out = append(out, 0x00, 0x00, 0x00, 0x01, nalType)
	out = append(out, frame.Data...)

	return codec.EncodedVideo{
		Bytes:    out,
		Keyframe: keyframe,
		PTS:      time.Duration(e.frameIndex) * time.Second / time.Duration(e.fps),
	}, true, nil
}

func (e *VideoEncoder) Reinit(width, height, fps, bitrateBps int) error {
	e.width, e.height, e.fps, e.bitrate = width, height, fps, bitrateBps
	e.frameIndex = 0
	return nil
}

func (e *VideoEncoder) Close() error { return nil }

// VideoDecoder mirrors the real decoder's keyframe gate: it drops
// everything until it has seen an IDR/SPS/PPS NAL, then passes payloads
// through with the start code and NAL header stripped.
type VideoDecoder struct {
	keyframeSeen bool
}

func NewVideoDecoder() *VideoDecoder { return &VideoDecoder{} }

func (d *VideoDecoder) Decode(encoded []byte) (codec.RawFrame, bool, error) {
	off, l := codec.FindStartCode(encoded)
	if off < 0 || off+l >= len(encoded) {
		return codec.RawFrame{}, false, nil
	}
	nal := encoded[off+l:]
	if !d.keyframeSeen {
		if !codec.IsParameterOrIDR(nal) {
			return codec.RawFrame{}, false, nil
		}
		d.keyframeSeen = true
	}
	return codec.RawFrame{Data: nal[1:]}, true, nil
}

func (d *VideoDecoder) Close() error { return nil }

// AudioCodec round-trips 20ms Opus-shaped stereo S16LE frames by encoding
// sample count and raw samples verbatim — deterministic and lossless,
// standing in for a real Opus encode/decode pass in tests.
type AudioCodec struct{}

func NewAudioCodec() *AudioCodec { return &AudioCodec{} }

func (AudioCodec) EncodeFrame(pcm []int16) ([]byte, error) {
	buf := make([]byte, 2+len(pcm)*2)
	binary.LittleEndian.PutUint16(buf, uint16(len(pcm)))
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(buf[2+i*2:], uint16(s))
	}
	return buf, nil
}

func (AudioCodec) DecodeFrame(encoded []byte) ([]int16, error) {
	if len(encoded) < 2 {
		return nil, nil
	}
	n := int(binary.LittleEndian.Uint16(encoded))
	pcm := make([]int16, n)
	for i := 0; i < n && 2+i*2+2 <= len(encoded); i++ {
		pcm[i] = int16(binary.LittleEndian.Uint16(encoded[2+i*2:]))
	}
	return pcm, nil
}

func (AudioCodec) Close() error { return nil }
