package netio

import (
	"bytes"
	"net"
	"testing"
)

func TestSendRecvRoundTrip(t *testing.T) {
	a, err := Listen(0)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := Listen(0)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	bAddr, ok := b.conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		t.Fatal("expected *net.UDPAddr")
	}

	payload := []byte("hello harmony")
	if err := a.Send(payload, bAddr); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 2048)
	for i := 0; i < 20; i++ {
		n, _, ok, err := b.Recv(buf)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			if !bytes.Equal(buf[:n], payload) {
				t.Fatalf("got %q, want %q", buf[:n], payload)
			}
			return
		}
	}
	t.Fatal("never received packet within polling budget")
}

func TestRecvTimesOutWithoutData(t *testing.T) {
	s, err := Listen(0)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	buf := make([]byte, 64)
	_, _, ok, err := s.Recv(buf)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected timeout with no data sent")
	}
}
