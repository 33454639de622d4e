// Package receiver implements the Viewer side of the pipeline: network
// intake with packet-type demux, separate video/audio reassemblers and
// decoder workers, a jitter buffer feed, and a control/render thread that
// tracks bandwidth and stream timeout (spec.md §4.6). Grounded on
// _examples/original_source/src/main.c's RunViewer.
package receiver

import (
	"log"
	"net"
	"sync"
	"time"

	"github.com/tris790/harmony/internal/arena"
	"github.com/tris790/harmony/internal/cipher"
	"github.com/tris790/harmony/internal/codec"
	"github.com/tris790/harmony/internal/jitter"
	"github.com/tris790/harmony/internal/metrics"
	"github.com/tris790/harmony/internal/queue"
	"github.com/tris790/harmony/internal/session"
	"github.com/tris790/harmony/internal/wire"
	"golang.org/x/time/rate"
)

// reassemblyArenaSize covers one 2MiB reassembly buffer per media type
// with headroom, per spec.md §5's resource budget.
const reassemblyArenaSize = 8 * 1024 * 1024

// targetLatencySamples is SR/10 × channels at 48kHz stereo (≈100ms).
const targetLatencySamples = 9600

// ringCapacitySamples is the 1-second ring spec.md §4.7 specifies at
// 48kHz stereo.
const ringCapacitySamples = 48000 * 2

// Metadata is the last StreamMetadata record received from the sender.
type Metadata = wire.Metadata

// DecodedFrame is the receiver's double-buffered latest decoded picture.
type DecodedFrame = codec.RawFrame

type encodedUnit struct {
	payload []byte
	frameID uint32
}

// Receiver drives one inbound stream from a single sender.
type Receiver struct {
	sock      socketLike
	cipherCtx *cipher.Context

	sess *session.State

	videoReasm *wire.Reassembler
	audioReasm *wire.Reassembler

	videoDecoder codec.VideoDecoder
	audioDecoder codec.AudioCodec
	jitterBuf    *jitter.Buffer
	playback     codec.Playback

	videoQueue *queue.Queue[encodedUnit]
	audioQueue *queue.Queue[encodedUnit]

	frameMu      sync.Mutex
	decodedFrame DecodedFrame
	haveFrame    bool

	metaMu   sync.Mutex
	metadata Metadata
	haveMeta bool

	bandwidth   *bandwidthEstimator
	dropLimiter *rate.Limiter
	metrics     *metrics.Collectors

	hostAddr *net.UDPAddr

	wg      sync.WaitGroup
	closeCh chan struct{}
}

// socketLike is the subset of *netio.Socket the receiver needs, narrow
// enough that tests can fake it with an in-memory pair.
type socketLike interface {
	Recv(buf []byte) (n int, from *net.UDPAddr, ok bool, err error)
	Send(packet []byte, dst *net.UDPAddr) error
}

// Config bundles construction-time collaborators.
type Config struct {
	Socket       socketLike
	Password     string
	VideoDecoder codec.VideoDecoder
	AudioDecoder codec.AudioCodec
	Playback     codec.Playback
	HostAddr     *net.UDPAddr // where this receiver emits its own PUNCH
	// Metrics is nil-safe: a nil *metrics.Collectors (metrics.NewNoop())
	// makes every call site below a no-op.
	Metrics *metrics.Collectors
}

// New constructs a Receiver.
func New(cfg Config) (*Receiver, error) {
	var cc *cipher.Context
	if cfg.Password != "" {
		ctx, err := cipher.NewFromPassword(cfg.Password)
		if err != nil {
			return nil, err
		}
		cc = &ctx
	}

	r := &Receiver{
		sock:         cfg.Socket,
		cipherCtx:    cc,
		sess:         session.New(nil),
		videoReasm:   wire.NewReassembler(arena.New(reassemblyArenaSize)),
		audioReasm:   wire.NewReassembler(arena.New(reassemblyArenaSize)),
		videoDecoder: cfg.VideoDecoder,
		audioDecoder: cfg.AudioDecoder,
		jitterBuf:    jitter.New(ringCapacitySamples, targetLatencySamples),
		playback:     cfg.Playback,
		videoQueue:   queue.New[encodedUnit](8),
		audioQueue:   queue.New[encodedUnit](32),
		bandwidth:    newBandwidthEstimator(),
		dropLimiter:  rate.NewLimiter(rate.Every(2*time.Second), 1),
		metrics:      cfg.Metrics,
		hostAddr:     cfg.HostAddr,
		closeCh:      make(chan struct{}),
	}
	return r, nil
}

// Start launches the network intake, video decoder, audio decoder and
// control/render goroutines.
func (r *Receiver) Start() {
	r.wg.Add(4)
	go r.intakeLoop()
	go r.videoDecodeLoop()
	go r.audioDecodeLoop()
	go r.controlLoop()
}

// Stop signals all workers to exit, waits for them, and releases the
// decoder and playback collaborators.
func (r *Receiver) Stop() {
	close(r.closeCh)
	r.videoQueue.Close()
	r.audioQueue.Close()
	r.wg.Wait()

	if err := r.videoDecoder.Close(); err != nil {
		log.Printf("RECEIVER: video decoder close error: %v", err)
	}
	if err := r.audioDecoder.Close(); err != nil {
		log.Printf("RECEIVER: audio decoder close error: %v", err)
	}
	if r.playback != nil {
		if err := r.playback.Close(); err != nil {
			log.Printf("RECEIVER: playback close error: %v", err)
		}
	}
}

func (r *Receiver) intakeLoop() {
	defer r.wg.Done()
	buf := make([]byte, wire.HeaderSize+wire.MaxPacketPayload)
	for {
		select {
		case <-r.closeCh:
			return
		default:
		}

		n, _, ok, err := r.sock.Recv(buf)
		if err != nil {
			log.Printf("RECEIVER: socket read error: %v", err)
			continue
		}
		if !ok {
			continue
		}
		r.bandwidth.Observe(n)
		r.metrics.BytesReceived(n)

		h, ok := wire.UnmarshalHeader(buf[:n])
		if !ok {
			continue
		}
		payload := buf[wire.HeaderSize:n]

		switch h.PacketType {
		case wire.PacketKeepalive, wire.PacketPunch:
			r.sess.Touch()
		case wire.PacketMetadata:
			r.sess.Touch()
			if m, ok := wire.UnmarshalMetadata(payload); ok {
				r.metaMu.Lock()
				r.metadata = m
				r.haveMeta = true
				r.metaMu.Unlock()
			}
		case wire.PacketVideo:
			r.sess.Touch()
			r.feedReassembler("video", r.videoReasm, r.videoQueue, h, payload)
		case wire.PacketAudio:
			r.sess.Touch()
			r.feedReassembler("audio", r.audioReasm, r.audioQueue, h, payload)
		default:
			// Unknown types are ignored, per spec.md §6.
		}
	}
}

func (r *Receiver) feedReassembler(media string, reasm *wire.Reassembler, q *queue.Queue[encodedUnit], h wire.Header, payload []byte) {
	out, _, res := reasm.HandlePacket(h, payload)
	if res != wire.ResultComplete {
		return
	}
	cp := make([]byte, len(out))
	copy(cp, out)
	if !q.Push(encodedUnit{payload: cp, frameID: h.FrameID}) {
		r.metrics.FrameDropped(media, metrics.DropQueueSaturated)
	}
}

func (r *Receiver) videoDecodeLoop() {
	defer r.wg.Done()
	for {
		unit, ok := r.videoQueue.Pop()
		if !ok {
			return
		}
		payload := unit.payload
		if r.cipherCtx != nil {
			r.cipherCtx.Xcrypt(unit.frameID, payload)
			if !codec.HasValidStartCode(payload) {
				if r.dropLimiter.Allow() {
					log.Printf("RECEIVER: video decrypt validation failed for frame %d (wrong password?)", unit.frameID)
				}
				r.metrics.FrameDropped("video", metrics.DropDecryptFailed)
				continue
			}
		}

		frame, ok, err := r.videoDecoder.Decode(payload)
		if err != nil {
			if r.dropLimiter.Allow() {
				log.Printf("RECEIVER: video decode error: %v", err)
			}
			r.metrics.FrameDropped("video", metrics.DropDecodeError)
			continue
		}
		if !ok {
			continue
		}
		r.metrics.FrameDecoded("video")

		r.frameMu.Lock()
		r.decodedFrame = frame
		r.haveFrame = true
		r.frameMu.Unlock()
	}
}

func (r *Receiver) audioDecodeLoop() {
	defer r.wg.Done()
	for {
		unit, ok := r.audioQueue.Pop()
		if !ok {
			return
		}
		payload := unit.payload
		if r.cipherCtx != nil {
			r.cipherCtx.Xcrypt(unit.frameID, payload)
		}

		pcm, err := r.audioDecoder.DecodeFrame(payload)
		if err != nil {
			if r.dropLimiter.Allow() {
				log.Printf("RECEIVER: audio decode error: %v", err)
			}
			r.metrics.FrameDropped("audio", metrics.DropDecodeError)
			continue
		}
		r.metrics.FrameDecoded("audio")
		r.jitterBuf.Write(pcm)
	}
}

func (r *Receiver) controlLoop() {
	defer r.wg.Done()
	punchTicker := time.NewTicker(session.PunchInterval)
	defer punchTicker.Stop()

	timeoutTicker := time.NewTicker(100 * time.Millisecond)
	defer timeoutTicker.Stop()

	for {
		select {
		case <-r.closeCh:
			return
		case <-punchTicker.C:
			pkt := make([]byte, wire.HeaderSize)
			h := wire.Header{PacketType: wire.PacketPunch, TotalChunks: 1}
			h.Marshal(pkt)
			if err := r.sock.Send(pkt, r.hostAddr); err != nil {
				log.Printf("RECEIVER: punch send failed: %v", err)
			}
		case <-timeoutTicker.C:
			if r.sess.TimedOut() {
				r.resetOnTimeout()
			}
		}
	}
}

func (r *Receiver) resetOnTimeout() {
	r.frameMu.Lock()
	r.haveFrame = false
	r.decodedFrame = DecodedFrame{}
	r.frameMu.Unlock()

	r.metaMu.Lock()
	r.haveMeta = false
	r.metadata = Metadata{}
	r.metaMu.Unlock()

	r.videoReasm.Reset()
	r.audioReasm.Reset()
	r.sess.Clear()
}

// CurrentFrame returns the latest decoded frame, if any.
func (r *Receiver) CurrentFrame() (DecodedFrame, bool) {
	r.frameMu.Lock()
	defer r.frameMu.Unlock()
	return r.decodedFrame, r.haveFrame
}

// CurrentMetadata returns the latest StreamMetadata, if any.
func (r *Receiver) CurrentMetadata() (Metadata, bool) {
	r.metaMu.Lock()
	defer r.metaMu.Unlock()
	return r.metadata, r.haveMeta
}

// BandwidthBPS returns the current 1-second-window receive bandwidth
// estimate in bits per second.
func (r *Receiver) BandwidthBPS() float64 {
	return r.bandwidth.BitsPerSecond()
}

// JitterBuffer exposes the audio jitter buffer for the playback
// collaborator's output callback to drain.
func (r *Receiver) JitterBuffer() *jitter.Buffer {
	return r.jitterBuf
}
