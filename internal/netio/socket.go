// Package netio owns the single UDP socket shared by send and receive
// paths (spec.md §6): bound to a fixed port, buffers enlarged to absorb
// keyframe bursts, recv driven by a short read deadline so callers can
// poll without blocking a whole thread forever.
package netio

import (
	"errors"
	"log"
	"net"
	"time"
)

// SocketBufferBytes is the send/recv kernel buffer size requested on the
// socket, sized to absorb a keyframe burst without drops.
const SocketBufferBytes = 4 * 1024 * 1024

// RecvPollInterval bounds how long a single Recv call blocks before
// returning a timeout, letting the caller's loop observe a shutdown flag
// between reads without spinning.
const RecvPollInterval = 5 * time.Millisecond

// Socket wraps a bound UDP endpoint used simultaneously for send and recv.
type Socket struct {
	conn *net.UDPConn
}

// Listen binds a UDP socket on the given port across all interfaces and
// raises its send/recv buffers. A bind failure is fatal to the caller per
// spec.md §7 ("Socket bind failure: Fatal; surface to caller").
func Listen(port int) (*Socket, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		return nil, err
	}
	if err := conn.SetReadBuffer(SocketBufferBytes); err != nil {
		log.Printf("NETIO: failed to set read buffer to %d bytes: %v", SocketBufferBytes, err)
	}
	if err := conn.SetWriteBuffer(SocketBufferBytes); err != nil {
		log.Printf("NETIO: failed to set write buffer to %d bytes: %v", SocketBufferBytes, err)
	}
	return &Socket{conn: conn}, nil
}

// Send writes packet to dst. A transient write error (the UDP analogue of
// EAGAIN under a full send buffer) is swallowed per spec.md §7; anything
// else is returned.
func (s *Socket) Send(packet []byte, dst *net.UDPAddr) error {
	_, err := s.conn.WriteToUDP(packet, dst)
	if isTimeout(err) {
		return nil
	}
	return err
}

// Recv reads one datagram into buf, blocking for at most RecvPollInterval.
// ok is false on a read timeout (the caller should just poll again) and
// err is non-nil only for a genuine socket failure.
func (s *Socket) Recv(buf []byte) (n int, from *net.UDPAddr, ok bool, err error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(RecvPollInterval)); err != nil {
		return 0, nil, false, err
	}
	n, from, err = s.conn.ReadFromUDP(buf)
	if err != nil {
		if isTimeout(err) {
			return 0, nil, false, nil
		}
		return 0, nil, false, err
	}
	return n, from, true, nil
}

// Close releases the underlying socket.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// LocalAddr returns the address this socket is bound to, including the
// kernel-assigned port when Listen was called with port 0 (used by the
// bench subcommand to wire two in-process endpoints together).
func (s *Socket) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
