package arena

import (
	"bytes"
	"testing"
)

func TestPushAdvancesAndReturnsDistinctRegions(t *testing.T) {
	a := New(64)
	first := a.Push(8)
	second := a.Push(8)
	if a.Used() != 16 {
		t.Fatalf("expected used=16, got %d", a.Used())
	}
	first[0] = 0xAA
	second[0] = 0xBB
	if first[0] != 0xAA || second[0] != 0xBB {
		t.Fatal("push regions overlap")
	}
}

func TestPushZeroIsZeroed(t *testing.T) {
	a := New(16)
	buf := a.Push(16)
	for i := range buf {
		buf[i] = 0xFF
	}
	a.Reset()
	z := a.PushZero(16)
	if !bytes.Equal(z, make([]byte, 16)) {
		t.Fatal("PushZero returned non-zero bytes")
	}
}

func TestResetReclaimsCapacity(t *testing.T) {
	a := New(32)
	a.Push(32)
	a.Reset()
	if a.Used() != 0 {
		t.Fatalf("expected used=0 after reset, got %d", a.Used())
	}
	a.Push(32) // must not panic
}

func TestCheckpointRewind(t *testing.T) {
	a := New(32)
	a.Push(8)
	cp := a.Checkpoint()
	a.Push(16)
	if a.Used() != 24 {
		t.Fatalf("expected used=24, got %d", a.Used())
	}
	a.Rewind(cp)
	if a.Used() != 8 {
		t.Fatalf("expected used=8 after rewind, got %d", a.Used())
	}
}

func TestPushPanicsOnExhaustion(t *testing.T) {
	a := New(4)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on exhaustion")
		}
	}()
	a.Push(5)
}

func TestRewindPanicsOnFutureCheckpoint(t *testing.T) {
	a := New(32)
	a.Push(8)
	cp := a.Checkpoint()
	a.Reset()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic rewinding past current position")
		}
	}()
	a.Rewind(cp)
}
