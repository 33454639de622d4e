package jitter

import "testing"

func sequence(n int, start int16) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = start + int16(i)
	}
	return s
}

func allZero(s []int16) bool {
	for _, v := range s {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestStartsBufferingAndEmitsSilence(t *testing.T) {
	b := New(48000, 9600)
	out := make([]int16, 2048)
	b.Read(out)
	if !allZero(out) {
		t.Fatal("expected silence before reaching target latency")
	}
	if b.State() != Buffering {
		t.Fatal("expected Buffering state")
	}
}

func TestJitterBufferStartupScenario(t *testing.T) {
	// spec.md §8 scenario 5: write 4800, read 2048 (all zero), write 9600
	// more, next read returns producer data in order.
	b := New(48000, 9600)
	b.Write(sequence(4800, 1))

	out := make([]int16, 2048)
	b.Read(out)
	if !allZero(out) {
		t.Fatal("expected all-zero read below target latency")
	}
	if b.State() != Buffering {
		t.Fatal("expected still Buffering")
	}

	b.Write(sequence(9600, 5001))
	if b.State() != Playing {
		t.Fatal("expected transition to Playing once available >= target latency")
	}

	out2 := make([]int16, 4)
	b.Read(out2)
	want := []int16{1, 2, 3, 4}
	for i, v := range want {
		if out2[i] != v {
			t.Fatalf("sample %d: got %d, want %d", i, out2[i], v)
		}
	}
}

func TestUnderrunRecoveryEmitsSilenceUntilRetargeted(t *testing.T) {
	b := New(48000, 100)
	b.Write(sequence(100, 1))
	if b.State() != Playing {
		t.Fatal("expected Playing after reaching target latency")
	}

	out := make([]int16, 100)
	b.Read(out)
	if b.State() != Buffering {
		t.Fatal("expected underrun to drop back to Buffering")
	}

	out2 := make([]int16, 50)
	b.Read(out2)
	if !allZero(out2) {
		t.Fatal("expected silence immediately after underrun")
	}

	b.Write(sequence(99, 201))
	out3 := make([]int16, 10)
	b.Read(out3)
	if !allZero(out3) {
		t.Fatal("expected silence until target latency reached again")
	}

	b.Write(sequence(1, 300))
	if b.State() != Playing {
		t.Fatal("expected Playing once available >= target latency again")
	}
	out4 := make([]int16, 1)
	b.Read(out4)
	if out4[0] != 201 {
		t.Fatalf("expected FIFO order resumed at 201, got %d", out4[0])
	}
}

func TestOverflowDropsExcessRatherThanOverwriting(t *testing.T) {
	b := New(10, 1)
	n := b.Write(sequence(8, 1))
	if n != 8 {
		t.Fatalf("expected 8 written, got %d", n)
	}
	n2 := b.Write(sequence(8, 100))
	if n2 != 2 {
		t.Fatalf("expected only 2 more to fit, got %d", n2)
	}
	if b.Available() != 10 {
		t.Fatalf("expected ring full at 10, got %d", b.Available())
	}

	out := make([]int16, 10)
	b.Read(out)
	want := []int16{1, 2, 3, 4, 5, 6, 7, 8, 100, 101}
	for i, v := range want {
		if out[i] != v {
			t.Fatalf("sample %d: got %d, want %d (overflow must drop, not overwrite oldest)", i, out[i], v)
		}
	}
}

func TestResetReturnsToBuffering(t *testing.T) {
	b := New(100, 10)
	b.Write(sequence(10, 1))
	if b.State() != Playing {
		t.Fatal("expected Playing")
	}
	b.Reset()
	if b.State() != Buffering || b.Available() != 0 {
		t.Fatal("expected Reset to clear state")
	}
}
