// cmd/harmony/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tris790/harmony/internal/auxbus"
	"github.com/tris790/harmony/internal/codec/refcodec"
	"github.com/tris790/harmony/internal/config"
	"github.com/tris790/harmony/internal/metrics"
	"github.com/tris790/harmony/internal/netio"
	"github.com/tris790/harmony/internal/receiver"
	"github.com/tris790/harmony/internal/sender"
	"github.com/tris790/harmony/internal/session"
	"github.com/tris790/harmony/internal/wire"
)

var (
	showHelp = flag.Bool("h", false, "Show help")
	version  = flag.Bool("version", false, "Show version")
)

// appVersion is set at build time via -ldflags "-X main.appVersion=x.y.z"
var appVersion = "dev"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("harmony v%s\n", appVersion)
		return
	}
	if *showHelp {
		showUsage()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		showUsage()
		os.Exit(1)
	}

	command, rest := args[0], args[1:]
	switch command {
	case "host":
		runHost(rest)
	case "viewer":
		runViewer(rest)
	case "bench":
		runBench(rest)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("harmony - peer-to-peer low-latency screen and audio sharing")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  harmony host    -target <ip> [flags]        Capture and publish a stream")
	fmt.Println("  harmony viewer  -target <ip> [flags]        Receive and present a stream")
	fmt.Println("  harmony bench   [flags]                     Loopback smoke test, no network")
	fmt.Println()
	fmt.Println("Flags (host and viewer):")
	fmt.Println("  -target       IP or hostname of the other endpoint")
	fmt.Println("  -port         UDP port to bind, also used as the other endpoint's port (default 9999)")
	fmt.Println("  -password     pre-shared password; empty disables encryption")
	fmt.Println("  -fps          capture/encode frame rate (default 60, host only)")
	fmt.Println("  -metrics      Prometheus listen address, e.g. 127.0.0.1:9100 (empty disables)")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h        Show this help message")
	fmt.Println("  -version  Show version information")
}

func parseCommon(fs *flag.FlagSet, role config.Role) *config.Config {
	cfg := config.Default()
	cfg.Role = role

	fs.StringVar(&cfg.Network.TargetIP, "target", cfg.Network.TargetIP, "IP or hostname of the other endpoint (its port is -port)")
	fs.IntVar(&cfg.Network.ListenPort, "port", cfg.Network.ListenPort, "local UDP port to bind")
	fs.StringVar(&cfg.Security.Password, "password", cfg.Security.Password, "pre-shared password (empty disables encryption)")
	fs.IntVar(&cfg.Stream.FPS, "fps", cfg.Stream.FPS, "capture/encode frame rate")
	fs.StringVar(&cfg.Stream.AudioSource, "audio-source", cfg.Stream.AudioSource, "audio capture device identifier")
	fs.StringVar(&cfg.Metrics.ListenAddr, "metrics", cfg.Metrics.ListenAddr, "Prometheus listen address")

	return &cfg
}

func withSignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down gracefully...")
		cancel()
	}()
	return ctx, cancel
}

func runHost(args []string) {
	fs := flag.NewFlagSet("host", flag.ExitOnError)
	cfg := parseCommon(fs, config.RoleHost)
	width := fs.Int("width", 1280, "synthetic capture width")
	height := fs.Int("height", 720, "synthetic capture height")
	auxListen := fs.String("aux-listen", "", "WebSocket broadcaster listen address, e.g. 127.0.0.1:9998 (empty disables)")
	fs.Parse(args)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	targetAddr, err := net.ResolveUDPAddr("udp", joinHostPort(cfg.Network.TargetIP, cfg.Network.ListenPort))
	if err != nil {
		log.Fatalf("cannot resolve -target: %v", err)
	}

	sock, err := netio.Listen(cfg.Network.ListenPort)
	if err != nil {
		log.Fatalf("socket bind failed: %v", err)
	}
	defer sock.Close()

	mcol := collectorsFor(cfg.Metrics.ListenAddr)
	aux := auxbus.NewHub()

	var snd *sender.Sender
	sess := session.New(func(addr *net.UDPAddr) {
		log.Printf("HOST: new viewer at %s", addr)
		if snd != nil {
			snd.ForceKeyframe()
		}
	})

	capture := refcodec.NewSyntheticCapture(*width, *height)
	defer capture.Close()

	snd, err = sender.New(sender.Config{
		FPS:      cfg.Stream.FPS,
		Sink:     &targetSink{sock: sock, sess: sess, fallback: targetAddr},
		Password: cfg.Security.Password,
		Aux:      aux,
		Capture:  capture,
		Encoder:  refcodec.NewVideoEncoder(*width, *height, cfg.Stream.FPS, sender.BitrateFor(*width, *height, cfg.Stream.FPS), 60),
		Audio:    refcodec.NewAudioCodec(),
		Width:    *width,
		Height:   *height,
		Metrics:  mcol,
	})
	if err != nil {
		log.Fatalf("sender init failed: %v", err)
	}

	printBanner("Host", cfg, targetAddr)
	if *auxListen != "" {
		fmt.Printf("Aux WS:     ws://%s/ws\n\n", *auxListen)
	}

	ctx, cancel := withSignalContext()
	defer cancel()

	go runIntake(ctx, sock, sess)
	go mcol.Serve(ctx, cfg.Metrics.ListenAddr)
	go serveAuxbus(ctx, *auxListen, aux)

	snd.Start()
	<-ctx.Done()
	snd.Stop()
}

// serveAuxbus runs the out-of-scope auxiliary WebSocket broadcaster's HTTP
// listener (spec.md §1's "embedded WebSocket broadcaster" collaborator).
// A blank addr disables it; the hub is still fed by the sender and keeps
// the latest keyframe either way.
func serveAuxbus(ctx context.Context, addr string, hub *auxbus.Hub) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("AUXBUS: shutdown error: %v", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("AUXBUS: listener failed: %v", err)
		}
	}
}

func runViewer(args []string) {
	fs := flag.NewFlagSet("viewer", flag.ExitOnError)
	cfg := parseCommon(fs, config.RoleViewer)
	fs.Parse(args)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.Network.TargetIP == "" {
		log.Fatal("-target is required for viewer role")
	}

	hostAddr, err := net.ResolveUDPAddr("udp", joinHostPort(cfg.Network.TargetIP, cfg.Network.ListenPort))
	if err != nil {
		log.Fatalf("cannot resolve -target: %v", err)
	}

	sock, err := netio.Listen(cfg.Network.ListenPort)
	if err != nil {
		log.Fatalf("socket bind failed: %v", err)
	}
	defer sock.Close()

	mcol := collectorsFor(cfg.Metrics.ListenAddr)

	rcv, err := receiver.New(receiver.Config{
		Socket:       sock,
		Password:     cfg.Security.Password,
		VideoDecoder: refcodec.NewVideoDecoder(),
		AudioDecoder: refcodec.NewAudioCodec(),
		Playback:     refcodec.NewNullPlayback(),
		HostAddr:     hostAddr,
		Metrics:      mcol,
	})
	if err != nil {
		log.Fatalf("receiver init failed: %v", err)
	}

	printBanner("Viewer", cfg, hostAddr)

	ctx, cancel := withSignalContext()
	defer cancel()

	go mcol.Serve(ctx, cfg.Metrics.ListenAddr)
	go reportLoop(ctx, rcv, mcol)

	rcv.Start()
	<-ctx.Done()
	rcv.Stop()
}

// runBench wires a Sender and Receiver through an in-process loopback
// UDP pair for a fixed duration, printing the same liveness a real run
// would surface, without requiring two machines or a real NAT.
func runBench(args []string) {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	duration := fs.Duration("duration", 5*time.Second, "how long to run the loopback smoke test")
	password := fs.String("password", "", "pre-shared password; empty disables encryption")
	fs.Parse(args)

	hostSock, err := netio.Listen(0)
	if err != nil {
		log.Fatalf("bench: host socket bind failed: %v", err)
	}
	defer hostSock.Close()

	viewerSock, err := netio.Listen(0)
	if err != nil {
		log.Fatalf("bench: viewer socket bind failed: %v", err)
	}
	defer viewerSock.Close()

	hostAddr := loopbackAddr(hostSock.LocalAddr().Port)
	viewerAddr := loopbackAddr(viewerSock.LocalAddr().Port)

	sess := session.New(nil)
	capture := refcodec.NewSyntheticCapture(640, 480)
	defer capture.Close()

	var snd *sender.Sender
	snd, err = sender.New(sender.Config{
		FPS:      30,
		Sink:     &targetSink{sock: hostSock, sess: sess, fallback: viewerAddr},
		Password: *password,
		Capture:  capture,
		Encoder:  refcodec.NewVideoEncoder(640, 480, 30, sender.BitrateFor(640, 480, 30), 15),
		Audio:    refcodec.NewAudioCodec(),
		Width:    640, Height: 480,
	})
	if err != nil {
		log.Fatalf("bench: sender init failed: %v", err)
	}

	rcv, err := receiver.New(receiver.Config{
		Socket:       viewerSock,
		Password:     *password,
		VideoDecoder: refcodec.NewVideoDecoder(),
		AudioDecoder: refcodec.NewAudioCodec(),
		Playback:     refcodec.NewNullPlayback(),
		HostAddr:     hostAddr,
	})
	if err != nil {
		log.Fatalf("bench: receiver init failed: %v", err)
	}

	fmt.Printf("bench: host=%s viewer=%s duration=%s encryption=%v\n", hostAddr, viewerAddr, *duration, *password != "")

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()
	go runIntake(ctx, hostSock, sess)

	snd.Start()
	rcv.Start()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			snd.Stop()
			rcv.Stop()
			_, haveFrame := rcv.CurrentFrame()
			fmt.Printf("bench: done, last decode ok=%v bandwidth=%.0fbps\n", haveFrame, rcv.BandwidthBPS())
			return
		case <-ticker.C:
			_, haveFrame := rcv.CurrentFrame()
			fmt.Printf("bench: decoding=%v bandwidth=%.0fbps\n", haveFrame, rcv.BandwidthBPS())
		}
	}
}

// runIntake services a Host's own inbound socket: the sender pipeline
// only transmits, so something must read PUNCH/KEEPALIVE packets off the
// wire and feed them to the session so ObservePunch can discover the
// viewer's address.
func runIntake(ctx context.Context, sock *netio.Socket, sess *session.State) {
	buf := make([]byte, wire.HeaderSize+wire.MaxPacketPayload)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, from, ok, err := sock.Recv(buf)
		if err != nil {
			log.Printf("HOST: socket read error: %v", err)
			continue
		}
		if !ok {
			continue
		}
		h, ok := wire.UnmarshalHeader(buf[:n])
		if !ok {
			continue
		}
		switch h.PacketType {
		case wire.PacketPunch, wire.PacketKeepalive:
			sess.ObservePunch(from)
		default:
			// A host ignores inbound VIDEO/AUDIO/METADATA; it only streams.
		}
	}
}

func reportLoop(ctx context.Context, rcv *receiver.Receiver, mcol *metrics.Collectors) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mcol.SetBandwidthBPS(rcv.BandwidthBPS())
		}
	}
}

func collectorsFor(addr string) *metrics.Collectors {
	if addr == "" {
		return metrics.NewNoop()
	}
	return metrics.New()
}

// targetSink implements wire.Sink by sending to the session's
// discovered viewer address once one has been observed, falling back to
// the configured bootstrap target beforehand (spec.md §4.8's "emit PUNCH
// ... to the other party's known address").
type targetSink struct {
	sock     *netio.Socket
	sess     *session.State
	fallback *net.UDPAddr
}

func (t *targetSink) Send(packet []byte) error {
	if addr, ok := t.sess.ViewerAddr(); ok {
		return t.sock.Send(packet, addr)
	}
	return t.sock.Send(packet, t.fallback)
}

func joinHostPort(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

func loopbackAddr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

func printBanner(role string, cfg *config.Config, peer *net.UDPAddr) {
	fmt.Println("harmony — peer-to-peer screen and audio sharing")
	fmt.Printf("Role:       %s\n", role)
	fmt.Printf("Listen:     udp/%d\n", cfg.Network.ListenPort)
	fmt.Printf("Peer:       %s\n", peer)
	fmt.Printf("Encryption: %v\n", cfg.Security.Password != "")
	if cfg.Metrics.ListenAddr != "" {
		fmt.Printf("Metrics:    http://%s/metrics\n", cfg.Metrics.ListenAddr)
	}
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()
}
