package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestNoopCollectorsAreSafeToCall(t *testing.T) {
	var c *Collectors
	c.FrameEncoded("video")
	c.FrameDecoded("audio")
	c.FrameDropped("video", DropDecryptFailed)
	c.BytesSent(100)
	c.BytesReceived(100)
	c.SetBandwidthBPS(1234.5)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := c.Serve(ctx, ""); err != nil {
		t.Fatalf("noop Serve should return nil, got: %v", err)
	}
}

func TestCollectorsExposeMetricsEndpoint(t *testing.T) {
	c := New()
	c.FrameEncoded("video")
	c.FrameEncoded("video")
	c.FrameDropped("audio", DropDecodeError)
	c.BytesSent(42)
	c.SetBandwidthBPS(5_000_000)

	port := freePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx, addr) }()

	var body string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err == nil {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			body = string(b)
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if body == "" {
		t.Fatal("never got a response from /metrics")
	}

	for _, want := range []string{
		"harmony_frames_encoded_total",
		"harmony_frames_dropped_total",
		"harmony_bytes_sent_total",
		"harmony_bandwidth_bps",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics body to contain %q", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error after shutdown: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not shut down in time")
	}
}
