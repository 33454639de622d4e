// Package jitter implements the audio playback jitter buffer that sits
// between the audio decoder worker and the audio output callback (spec.md
// §4.7): a fixed-capacity ring of interleaved S16LE samples with a
// Buffering/Playing state machine that absorbs network delay variation.
package jitter

import "sync"

// State is the jitter buffer's playback state.
type State int

const (
	Buffering State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "Playing"
	}
	return "Buffering"
}

// Buffer is a single-writer/single-reader ring of interleaved S16LE audio
// samples. The writer is the audio-decode worker; the reader is the audio
// output callback running on its own thread. Overflow drops the incoming
// samples rather than overwriting the oldest ones: the ring always yields
// contiguous, untorn stretches of audio to the callback.
type Buffer struct {
	mu sync.Mutex

	ring       []int16
	writePos   int
	readPos    int
	available  int
	state      State
	targetLatency int
}

// New creates a Buffer holding up to capacitySamples interleaved samples,
// with the initial target latency set to targetLatency samples (spec.md's
// reference value is SR/10 × channels, e.g. 9600 at 48kHz stereo).
func New(capacitySamples, targetLatency int) *Buffer {
	return &Buffer{
		ring:          make([]int16, capacitySamples),
		targetLatency: targetLatency,
		state:         Buffering,
	}
}

// Write appends samples to the ring. If fewer than len(samples) slots are
// free, the excess is dropped and n reports how many were actually written.
func (b *Buffer) Write(samples []int16) (n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	free := len(b.ring) - b.available
	if free <= 0 {
		return 0
	}
	n = len(samples)
	if n > free {
		n = free
	}
	for i := 0; i < n; i++ {
		b.ring[b.writePos] = samples[i]
		b.writePos = (b.writePos + 1) % len(b.ring)
	}
	b.available += n

	if b.state == Buffering && b.available >= b.targetLatency {
		b.state = Playing
	}
	return n
}

// Read fills out with the next samples for playback. While Buffering, out
// is zeroed (silence) regardless of what's pending in the ring. While
// Playing, it drains up to len(out) available samples in FIFO order and
// fills any remainder with silence; hitting available == 0 (underrun)
// transitions back to Buffering.
func (b *Buffer) Read(out []int16) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Buffering {
		for i := range out {
			out[i] = 0
		}
		return
	}

	drained := 0
	for drained < len(out) && b.available > 0 {
		out[drained] = b.ring[b.readPos]
		b.readPos = (b.readPos + 1) % len(b.ring)
		b.available--
		drained++
	}
	for i := drained; i < len(out); i++ {
		out[i] = 0
	}

	if b.available == 0 {
		b.state = Buffering
	}
}

// State reports the current playback state.
func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Available reports the number of samples currently pending.
func (b *Buffer) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

// Reset clears all pending samples and returns to Buffering, used when a
// new stream session begins.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writePos = 0
	b.readPos = 0
	b.available = 0
	b.state = Buffering
}
