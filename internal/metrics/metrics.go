// Package metrics exposes Prometheus counters and gauges for the
// sender/receiver pipelines: frames encoded/decoded/dropped, bytes
// sent/received, and the live bandwidth estimate (spec.md §4.6's
// bandwidth estimate, generalized into an exported collector set since
// an embedded process benefits from the same scrape endpoint the
// teacher wires for its other long-running services).
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DropReason labels why a frame never made it to playback or the wire.
type DropReason string

const (
	DropDecryptFailed  DropReason = "decrypt_failed"
	DropDecodeError    DropReason = "decode_error"
	DropEncodeError    DropReason = "encode_error"
	DropSendFailed     DropReason = "send_failed"
	DropQueueSaturated DropReason = "queue_saturated"
)

// Collectors bundles every metric this module registers. A nil
// *Collectors (via NewNoop) makes every method a no-op so callers don't
// need to guard every call site on whether metrics are enabled.
type Collectors struct {
	framesEncoded *prometheus.CounterVec
	framesDecoded *prometheus.CounterVec
	framesDropped *prometheus.CounterVec
	bytesSent     prometheus.Counter
	bytesReceived prometheus.Counter
	bandwidthBPS  prometheus.Gauge

	registry *prometheus.Registry
	srv      *http.Server
}

// New registers a fresh collector set against its own registry, so
// multiple Sender/Receiver instances in one process never collide on
// metric names.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	c := &Collectors{
		registry: reg,
		framesEncoded: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "harmony_frames_encoded_total",
			Help: "Frames successfully encoded, by media type.",
		}, []string{"media"}),
		framesDecoded: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "harmony_frames_decoded_total",
			Help: "Frames successfully decoded, by media type.",
		}, []string{"media"}),
		framesDropped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "harmony_frames_dropped_total",
			Help: "Frames dropped before reaching playback or the wire, by media and reason.",
		}, []string{"media", "reason"}),
		bytesSent: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "harmony_bytes_sent_total",
			Help: "VIDEO/AUDIO payload bytes sent, excluding packet headers and PUNCH/KEEPALIVE.",
		}),
		bytesReceived: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "harmony_bytes_received_total",
			Help: "Wire-format bytes received, including KEEPALIVE/PUNCH.",
		}),
		bandwidthBPS: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "harmony_bandwidth_bps",
			Help: "Rolling 1-second-window bandwidth estimate in bits per second.",
		}),
	}
	return c
}

// NewNoop returns a Collectors whose methods are all safe to call but do
// nothing and register nothing — used when a Config's MetricsAddr is
// empty.
func NewNoop() *Collectors { return nil }

func (c *Collectors) FrameEncoded(media string) {
	if c == nil {
		return
	}
	c.framesEncoded.WithLabelValues(media).Inc()
}

func (c *Collectors) FrameDecoded(media string) {
	if c == nil {
		return
	}
	c.framesDecoded.WithLabelValues(media).Inc()
}

func (c *Collectors) FrameDropped(media string, reason DropReason) {
	if c == nil {
		return
	}
	c.framesDropped.WithLabelValues(media, string(reason)).Inc()
}

func (c *Collectors) BytesSent(n int) {
	if c == nil {
		return
	}
	c.bytesSent.Add(float64(n))
}

func (c *Collectors) BytesReceived(n int) {
	if c == nil {
		return
	}
	c.bytesReceived.Add(float64(n))
}

func (c *Collectors) SetBandwidthBPS(bps float64) {
	if c == nil {
		return
	}
	c.bandwidthBPS.Set(bps)
}

// Serve starts an HTTP server exposing /metrics on addr and blocks until
// ctx is cancelled, then shuts it down gracefully. Intended to run in its
// own goroutine from cmd/harmony.
func (c *Collectors) Serve(ctx context.Context, addr string) error {
	if c == nil || addr == "" {
		<-ctx.Done()
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	c.srv = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := c.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("METRICS: shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
