// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Config is the full set of inputs a Host or Viewer process needs.
// Persisting this to/from a file is explicitly out of scope (spec.md §1:
// "configuration file persistence"); cmd/harmony assembles one directly
// from flags on every run.
type Config struct {
	Role     Role     `json:"role"`
	Network  Network  `json:"network"`
	Stream   Stream   `json:"stream"`
	Security Security `json:"security"`
	Metrics  Metrics  `json:"metrics"`
}

// Role selects which side of the pipeline a process runs.
type Role string

const (
	RoleHost   Role = "host"
	RoleViewer Role = "viewer"
)

// Network carries the fixed UDP port both endpoints share (spec.md §6)
// and, for a Host, the viewer address it streams to.
type Network struct {
	TargetIP   string `json:"target_ip"`
	ListenPort int    `json:"listen_port"`
}

// Stream carries capture-facing parameters.
type Stream struct {
	FPS         int    `json:"fps"`
	AudioSource string `json:"audio_source"`
}

// Security carries the optional pre-shared password that enables
// AES-128-CTR payload encryption (spec.md §3).
type Security struct {
	Password string `json:"password"`
}

// Metrics carries the optional Prometheus exposition endpoint address.
// Empty disables the endpoint.
type Metrics struct {
	ListenAddr string `json:"listen_addr"`
}

// DefaultListenPort is the fixed UDP port both a Host and Viewer bind
// (spec.md §6).
const DefaultListenPort = 9999

func Default() Config {
	return Config{
		Role: RoleViewer,
		Network: Network{
			TargetIP:   "127.0.0.1",
			ListenPort: DefaultListenPort,
		},
		Stream: Stream{
			FPS:         60,
			AudioSource: "default",
		},
		Security: Security{Password: ""},
		Metrics:  Metrics{ListenAddr: ""},
	}
}

// Validate checks the config is internally consistent. Per spec.md §7's
// "Socket bind failure: Fatal" policy, a non-nil return is fatal at
// startup; cmd/harmony prints it and exits rather than attempting to
// recover.
func (c *Config) Validate() error {
	switch c.Role {
	case RoleHost, RoleViewer:
	default:
		return errors.New("role must be \"host\" or \"viewer\"")
	}

	if c.Network.ListenPort < 0 || c.Network.ListenPort > 65535 {
		return errors.New("network.listen_port must be 0..65535")
	}

	if c.Role == RoleHost {
		if err := validateTargetIP(c.Network.TargetIP); err != nil {
			return fmt.Errorf("network.target_ip: %w", err)
		}
	}

	if c.Stream.FPS <= 0 || c.Stream.FPS > 240 {
		return errors.New("stream.fps must be 1..240")
	}
	if strings.TrimSpace(c.Stream.AudioSource) == "" {
		return errors.New("stream.audio_source is required")
	}

	if strings.TrimSpace(c.Metrics.ListenAddr) != "" {
		if err := validateHostPort(c.Metrics.ListenAddr); err != nil {
			return fmt.Errorf("metrics.listen_addr: %w", err)
		}
	}

	return nil
}

func validateTargetIP(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("is required for host role")
	}
	if net.ParseIP(raw) != nil {
		return nil
	}
	if _, err := net.ResolveIPAddr("ip", raw); err != nil {
		return fmt.Errorf("not a valid IP or resolvable host: %v", err)
	}
	return nil
}

func validateHostPort(raw string) error {
	_, port, err := net.SplitHostPort(raw)
	if err != nil {
		return errors.New("must be host:port")
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return errors.New("port must be 1..65535")
	}
	return nil
}
