package refcodec

import (
	"sync"
	"time"

	"github.com/tris790/harmony/internal/codec"
)

// SyntheticCapture stands in for the out-of-scope platform screen-capture
// collaborator (spec.md §1). Poll paints a deterministic moving gradient
// into an owned buffer at a fixed resolution; GetFrame hands back a view
// into it. Good enough to drive the full pipeline end to end — encode,
// packetize, transmit, decode, jitter buffer, render — without an X11/
// Wayland/DXGI binding.
type SyntheticCapture struct {
	mu            sync.Mutex
	width, height int
	buf           []byte
	frameIndex    int
	closed        bool
}

// NewSyntheticCapture creates a capture source of the given fixed
// resolution. Real screen capture would report resolution changes as the
// window resizes; this stand-in never does, so the sender's resolution-
// change/reinit path is exercised by tests, not by this collaborator.
func NewSyntheticCapture(width, height int) *SyntheticCapture {
	return &SyntheticCapture{
		width:  width,
		height: height,
		buf:    make([]byte, width*height*4),
	}
}

func (c *SyntheticCapture) Poll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	shift := byte(c.frameIndex)
	for y := 0; y < c.height; y++ {
		row := c.buf[y*c.width*4 : (y+1)*c.width*4]
		for x := 0; x < c.width; x++ {
			row[x*4+0] = byte(x) + shift
			row[x*4+1] = byte(y) + shift
			row[x*4+2] = shift
			row[x*4+3] = 0xFF
		}
	}
	c.frameIndex++
	return nil
}

func (c *SyntheticCapture) GetFrame() (codec.RawFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return codec.RawFrame{}, false
	}
	return codec.RawFrame{
		Data:   c.buf,
		Width:  c.width,
		Height: c.height,
		Stride: c.width * 4,
	}, true
}

func (c *SyntheticCapture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// SyntheticAudioSource stands in for the out-of-scope platform audio
// capture collaborator, emitting silent 20ms PCM frames at a fixed
// cadence so the audio worker has something to encode.
type SyntheticAudioSource struct {
	sampleRate int
	channels   int
}

func NewSyntheticAudioSource(sampleRate, channels int) *SyntheticAudioSource {
	return &SyntheticAudioSource{sampleRate: sampleRate, channels: channels}
}

// FrameDuration is the fixed Opus frame size this pipeline uses (spec.md
// §4.7: 20ms, 960 samples/channel at 48kHz).
const FrameDuration = 20 * time.Millisecond

func (s *SyntheticAudioSource) SamplesPerFrame() int {
	return int(float64(s.sampleRate) * FrameDuration.Seconds()) * s.channels
}

// NullPlayback stands in for the out-of-scope OS audio output layer: it
// discards every sample it's handed, letting the receiver's jitter
// buffer and decode path run under test without an audio device.
type NullPlayback struct{}

func NewNullPlayback() *NullPlayback { return &NullPlayback{} }

func (NullPlayback) Write(samples []int16) error { return nil }
func (NullPlayback) Close() error                { return nil }
