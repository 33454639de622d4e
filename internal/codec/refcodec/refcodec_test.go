package refcodec

import (
	"bytes"
	"testing"

	"github.com/tris790/harmony/internal/codec"
)

func TestVideoEncodeDecodeKeyframeGating(t *testing.T) {
	enc := NewVideoEncoder(640, 480, 60, 4_000_000, 3)
	dec := NewVideoDecoder()

	// First frame (index 0) is a keyframe, decoder must accept it.
	out, ok, err := enc.Encode(codec.RawFrame{Data: []byte("frame0")})
	if err != nil || !ok {
		t.Fatalf("encode failed: ok=%v err=%v", ok, err)
	}
	if !out.Keyframe {
		t.Fatal("expected first frame to be a keyframe")
	}
	frame, ok, err := dec.Decode(out.Bytes)
	if err != nil || !ok {
		t.Fatalf("decode of keyframe failed: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(frame.Data, []byte("frame0")) {
		t.Fatalf("unexpected decoded payload: %q", frame.Data)
	}

	// Second frame is a P-frame; decoder has already seen a keyframe so it
	// must pass through.
	out2, _, _ := enc.Encode(codec.RawFrame{Data: []byte("frame1")})
	if out2.Keyframe {
		t.Fatal("expected second frame to not be a keyframe")
	}
	frame2, ok, _ := dec.Decode(out2.Bytes)
	if !ok || !bytes.Equal(frame2.Data, []byte("frame1")) {
		t.Fatalf("unexpected decode of P-frame: ok=%v data=%q", ok, frame2.Data)
	}
}

func TestVideoDecoderDropsUntilKeyframeSeen(t *testing.T) {
	enc := NewVideoEncoder(640, 480, 60, 4_000_000, 5)
	dec := NewVideoDecoder()

	enc.frameIndex = 1 // force first Encode() call to produce a P-frame
	pframe, _, _ := enc.Encode(codec.RawFrame{Data: []byte("p")})
	if _, ok, _ := dec.Decode(pframe.Bytes); ok {
		t.Fatal("expected decoder to drop P-frame before any keyframe seen")
	}

	enc.frameIndex = 0
	kframe, _, _ := enc.Encode(codec.RawFrame{Data: []byte("k")})
	if _, ok, _ := dec.Decode(kframe.Bytes); !ok {
		t.Fatal("expected decoder to accept keyframe")
	}
}

func TestAudioRoundTrip(t *testing.T) {
	a := NewAudioCodec()
	pcm := make([]int16, 960)
	for i := range pcm {
		pcm[i] = int16(i * 3)
	}
	encoded, err := a.EncodeFrame(pcm)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := a.DecodeFrame(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(pcm) {
		t.Fatalf("got %d samples, want %d", len(decoded), len(pcm))
	}
	for i := range pcm {
		if decoded[i] != pcm[i] {
			t.Fatalf("sample %d: got %d, want %d", i, decoded[i], pcm[i])
		}
	}
}
