package refcodec

import "testing"

func TestSyntheticCaptureProducesFramesOfConfiguredSize(t *testing.T) {
	c := NewSyntheticCapture(64, 48)
	defer c.Close()

	if err := c.Poll(); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	frame, ok := c.GetFrame()
	if !ok {
		t.Fatal("expected a frame after Poll")
	}
	if frame.Width != 64 || frame.Height != 48 {
		t.Fatalf("unexpected dimensions: %dx%d", frame.Width, frame.Height)
	}
	if len(frame.Data) != 64*48*4 {
		t.Fatalf("unexpected buffer size: %d", len(frame.Data))
	}
}

func TestSyntheticCaptureContentChangesAcrossFrames(t *testing.T) {
	c := NewSyntheticCapture(16, 16)
	defer c.Close()

	c.Poll()
	first, _ := c.GetFrame()
	a := append([]byte(nil), first.Data...)

	c.Poll()
	second, _ := c.GetFrame()
	b := second.Data

	if string(a) == string(b) {
		t.Fatal("expected frame content to change between Poll calls")
	}
}

func TestSyntheticCaptureStopsAfterClose(t *testing.T) {
	c := NewSyntheticCapture(8, 8)
	c.Close()

	if _, ok := c.GetFrame(); ok {
		t.Fatal("expected GetFrame to report no frame after Close")
	}
}

func TestSyntheticAudioSourceSamplesPerFrame(t *testing.T) {
	s := NewSyntheticAudioSource(48000, 2)
	if got := s.SamplesPerFrame(); got != 1920 {
		t.Fatalf("expected 960 samples/channel * 2 channels = 1920, got %d", got)
	}
}

func TestNullPlaybackNeverErrors(t *testing.T) {
	p := NewNullPlayback()
	if err := p.Write(make([]int16, 960)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
