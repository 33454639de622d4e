// Package sender implements the Host side of the pipeline: a control
// thread driving capture and pacing, a video encoder worker, and an audio
// worker, all feeding one Packetizer whose frame_id counter is shared
// across media types (spec.md §4.5). Grounded on
// _examples/original_source/src/main.c's RunHost.
package sender

import (
	"log"
	"sync"
	"time"

	"github.com/tris790/harmony/internal/cipher"
	"github.com/tris790/harmony/internal/codec"
	"github.com/tris790/harmony/internal/metrics"
	"github.com/tris790/harmony/internal/queue"
	"github.com/tris790/harmony/internal/session"
	"github.com/tris790/harmony/internal/wire"
	"golang.org/x/time/rate"
)

// Session's ObservePunch callback is the caller of ForceKeyframe: the host
// command in cmd/harmony passes session.New a callback that calls
// Sender.ForceKeyframe, so a newly-observed viewer address forces the next
// video frame to be a fresh IDR, matching spec.md §4.5's new-viewer
// handshake.

// AuxSink receives a copy of every encoded video access unit for
// out-of-scope auxiliary distribution (the embedded WebSocket
// broadcaster, spec.md §4.5's "broadcasts on the auxiliary WebSocket").
type AuxSink interface {
	BroadcastVideo(payload []byte, keyframe bool)
}

type noopAuxSink struct{}

func (noopAuxSink) BroadcastVideo([]byte, bool) {}

// rawFrameCopy is what the control thread hands the video encoder worker:
// an owned copy of the captured pixel buffer, decoupled from the
// capture collaborator's ring the instant it crosses the queue (spec.md
// §4.4).
type rawFrameCopy struct {
	frame codec.RawFrame
}

// Sender drives one outbound stream. Target/Encryption/FPS come from
// internal/config.Config; the codec and capture implementations are
// injected so tests can use internal/codec/refcodec.
type Sender struct {
	fps        int
	sink       wire.Sink
	packetizer *wire.Packetizer
	cipherCtx  *cipher.Context // nil if encryption disabled
	aux        AuxSink

	capture codec.Capture
	encoder codec.VideoEncoder
	audio   codec.AudioCodec

	metrics *metrics.Collectors

	rawQueue   *queue.Queue[rawFrameCopy]
	audioQueue *queue.Queue[[]int16]

	width, height int

	reencodeMu      sync.Mutex
	forceKeyframe   bool
	lastVideoSendAt time.Time
	videoSentMu     sync.Mutex

	dropLimiter *rate.Limiter

	wg      sync.WaitGroup
	closeCh chan struct{}
}

// Config bundles the pieces a Sender needs at construction; callers wire
// Capture/Encoder/Audio from internal/codec (real or refcodec) and Sink
// from internal/netio plus the current viewer address.
type Config struct {
	FPS      int
	Sink     wire.Sink
	Password string // empty disables encryption
	Aux      AuxSink
	Capture  codec.Capture
	Encoder  codec.VideoEncoder
	Audio    codec.AudioCodec
	Width    int
	Height   int
	// Metrics is nil-safe: a nil *metrics.Collectors (metrics.NewNoop())
	// makes every call site below a no-op.
	Metrics *metrics.Collectors
}

// New constructs a Sender. Encryption is enabled iff cfg.Password != "".
func New(cfg Config) (*Sender, error) {
	var cc *cipher.Context
	if cfg.Password != "" {
		ctx, err := cipher.NewFromPassword(cfg.Password)
		if err != nil {
			return nil, err
		}
		cc = &ctx
	}

	aux := cfg.Aux
	if aux == nil {
		aux = noopAuxSink{}
	}

	return &Sender{
		fps:         cfg.FPS,
		sink:        cfg.Sink,
		packetizer:  wire.NewPacketizer(true), // serialize across full fragmented send, spec.md §9 open question
		cipherCtx:   cc,
		aux:         aux,
		capture:     cfg.Capture,
		encoder:     cfg.Encoder,
		audio:       cfg.Audio,
		metrics:     cfg.Metrics,
		rawQueue:    queue.New[rawFrameCopy](4),
		audioQueue:  queue.New[[]int16](16),
		width:       cfg.Width,
		height:      cfg.Height,
		dropLimiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		closeCh:     make(chan struct{}),
	}, nil
}

// ForceKeyframe signals the video encoder worker to reinitialize the
// encoder before the next frame, so the next emitted access unit is a
// fresh IDR with SPS/PPS — the new-viewer handshake (spec.md §4.5).
func (s *Sender) ForceKeyframe() {
	s.reencodeMu.Lock()
	s.forceKeyframe = true
	s.reencodeMu.Unlock()
}

// Start launches the control, video-encoder and audio worker goroutines.
func (s *Sender) Start() {
	s.wg.Add(3)
	go s.controlLoop()
	go s.videoEncodeLoop()
	go s.audioEncodeLoop()
}

// Stop signals shutdown and waits for all workers to exit, closing the
// queues they block on so their Pop calls return (spec.md §5).
func (s *Sender) Stop() {
	close(s.closeCh)
	s.rawQueue.Close()
	s.audioQueue.Close()
	s.wg.Wait()
}

func (s *Sender) controlLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(max(1, s.fps)))
	defer ticker.Stop()

	metadataTicker := time.NewTicker(time.Second)
	defer metadataTicker.Stop()

	punchTicker := time.NewTicker(session.PunchInterval)
	defer punchTicker.Stop()

	for {
		select {
		case <-s.closeCh:
			return
		case <-punchTicker.C:
			if _, err := s.packetizer.SendPunch(s.sink); err != nil {
				log.Printf("SENDER: punch send failed: %v", err)
			}
		case <-metadataTicker.C:
			// This tick sends nothing: the Sender has no StreamMetadata
			// source and emits no METADATA packets, and nothing in
			// cmd/harmony sends them either. The control loop paces
			// capture, PUNCH and idle KEEPALIVE only.
		case <-ticker.C:
			if err := s.capture.Poll(); err != nil {
				log.Printf("SENDER: capture poll error: %v", err)
				continue
			}
			frame, ok := s.capture.GetFrame()
			if !ok {
				s.maybeSendIdleKeepalive()
				continue
			}
			cp := make([]byte, len(frame.Data))
			copy(cp, frame.Data)
			if !s.rawQueue.Push(rawFrameCopy{frame: codec.RawFrame{
				Data: cp, Width: frame.Width, Height: frame.Height, Stride: frame.Stride,
			}}) {
				s.metrics.FrameDropped("video", metrics.DropQueueSaturated)
			}
		}
	}
}

func (s *Sender) maybeSendIdleKeepalive() {
	s.videoSentMu.Lock()
	idle := time.Since(s.lastVideoSendAt) > 500*time.Millisecond
	s.videoSentMu.Unlock()
	if idle {
		if _, err := s.packetizer.SendKeepalive(s.sink); err != nil {
			log.Printf("SENDER: keepalive send failed: %v", err)
		}
	}
}

func (s *Sender) videoEncodeLoop() {
	defer s.wg.Done()
	for {
		item, ok := s.rawQueue.Pop()
		if !ok {
			return
		}
		frame := item.frame

		w, h := EvenDimensions(frame.Width, frame.Height)
		s.reencodeMu.Lock()
		force := s.forceKeyframe
		s.forceKeyframe = false
		s.reencodeMu.Unlock()

		if force || w != s.width || h != s.height {
			bitrate := BitrateFor(w, h, s.fps)
			if err := s.encoder.Reinit(w, h, s.fps, bitrate); err != nil {
				log.Printf("SENDER: encoder reinit failed: %v", err)
				continue
			}
			s.width, s.height = w, h
		}

		out, ok, err := s.encoder.Encode(frame)
		if err != nil {
			log.Printf("SENDER: encode error: %v", err)
			s.metrics.FrameDropped("video", metrics.DropEncodeError)
			continue
		}
		if !ok {
			continue
		}
		s.metrics.FrameEncoded("video")

		payload := out.Bytes
		if _, err := s.sendEncrypted(wire.PacketVideo, payload); err != nil {
			if s.dropLimiter.Allow() {
				log.Printf("SENDER: video send failed: %v", err)
			}
			s.metrics.FrameDropped("video", metrics.DropSendFailed)
			continue
		}

		s.aux.BroadcastVideo(out.Bytes, out.Keyframe)

		s.videoSentMu.Lock()
		s.lastVideoSendAt = time.Now()
		s.videoSentMu.Unlock()
	}
}

func (s *Sender) audioEncodeLoop() {
	defer s.wg.Done()
	for {
		pcm, ok := s.audioQueue.Pop()
		if !ok {
			return
		}
		encoded, err := s.audio.EncodeFrame(pcm)
		if err != nil {
			log.Printf("SENDER: audio encode error: %v", err)
			s.metrics.FrameDropped("audio", metrics.DropEncodeError)
			continue
		}
		s.metrics.FrameEncoded("audio")
		if _, err := s.sendEncrypted(wire.PacketAudio, encoded); err != nil {
			log.Printf("SENDER: audio send failed: %v", err)
			s.metrics.FrameDropped("audio", metrics.DropSendFailed)
		}
	}
}

// PushAudio hands a 20ms PCM frame from the audio capture collaborator to
// the audio worker queue; non-blocking push per spec.md §4.4.
func (s *Sender) PushAudio(pcm []int16) {
	cp := make([]int16, len(pcm))
	copy(cp, pcm)
	if !s.audioQueue.Push(cp) {
		s.metrics.FrameDropped("audio", metrics.DropQueueSaturated)
	}
}

func (s *Sender) sendEncrypted(ptype wire.PacketType, payload []byte) (uint32, error) {
	if s.cipherCtx == nil {
		frameID, err := s.packetizer.SendData(s.sink, ptype, payload)
		if err == nil {
			s.metrics.BytesSent(len(payload))
		}
		return frameID, err
	}
	// frame_id is claimed by SendData, but the cipher needs it before
	// encryption. Claim explicitly, encrypt, then hand the packetizer a
	// pre-claimed send — mirrors the reference's encrypt-before-fragment
	// ordering without changing SendData's public contract.
	frameID := s.packetizer.NextFrameID()
	buf := make([]byte, len(payload))
	copy(buf, payload)
	s.cipherCtx.Xcrypt(frameID, buf)
	err := s.packetizer.SendDataWithID(s.sink, frameID, ptype, buf)
	if err == nil {
		s.metrics.BytesSent(len(buf))
	}
	return frameID, err
}
