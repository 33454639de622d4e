// Package codec defines the capability interfaces the streaming pipeline
// drives against, but never implements itself (spec.md §6 treats H.264,
// Opus, screen capture and audio playback as black-box external
// collaborators). Concrete adapters (cgo bindings to libx264/libopus, a
// platform capture API, an audio output device) live outside this module;
// internal/codec/refcodec provides a deterministic in-memory stand-in used
// by tests and the bench subcommand.
package codec

import "time"

// RawFrame is one captured video frame, valid only until the next
// Capture.Poll call — callers that need to retain it must copy.
type RawFrame struct {
	Data          []byte
	Width, Height int
	Stride        int
}

// EncodedVideo is one encoder output unit.
type EncodedVideo struct {
	Bytes     []byte
	Keyframe  bool
	PTS       time.Duration
}

// VideoEncoder turns raw captured frames into an H.264 Annex B bytestream.
// Encode returns ok=false when the encoder has buffered the frame without
// producing output yet (B-frame reordering, lookahead); callers must not
// treat that as an error.
type VideoEncoder interface {
	Encode(frame RawFrame) (out EncodedVideo, ok bool, err error)
	// Reinit reconfigures the encoder for a new resolution, tolerating a
	// one-frame gap in output per spec.md §7's resolution-change policy.
	Reinit(width, height, fps, bitrateBps int) error
	Close() error
}

// VideoDecoder is stateful: it silently drops input until it has observed
// an IDR/SPS/PPS NAL, then emits decoded frames as they become available.
type VideoDecoder interface {
	// Decode feeds one encoded access unit. It returns ok=false if no
	// frame was produced (still waiting for a keyframe, or buffering).
	Decode(encoded []byte) (frame RawFrame, ok bool, err error)
	Close() error
}

// AudioCodec en/decodes fixed 48kHz stereo S16LE, 20ms (960 samples/
// channel) Opus frames.
type AudioCodec interface {
	EncodeFrame(pcm []int16) (encoded []byte, err error)
	DecodeFrame(encoded []byte) (pcm []int16, err error)
	Close() error
}

// Capture drives a platform screen/window capture event loop. Poll must be
// called regularly to pump the loop; the frame returned by GetFrame is
// only valid until the next Poll call.
type Capture interface {
	Poll() error
	GetFrame() (frame RawFrame, ok bool)
	Close() error
}

// Playback accepts interleaved S16LE audio and renders it on an internally
// owned thread (the jitter buffer is the producer feeding this consumer).
type Playback interface {
	Write(samples []int16) error
	Close() error
}
