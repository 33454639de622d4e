package sender

import "testing"

func TestBitrateTableBoundaries(t *testing.T) {
	cases := []struct {
		name          string
		w, h, fps     int
		want          int
	}{
		{"4k-high", 3840, 2160, 60, 35_000_000},
		{"4k-low", 3840, 2160, 30, 25_000_000},
		{"1440p-high", 2560, 1440, 60, 18_000_000},
		{"1440p-low", 2560, 1440, 30, 12_000_000},
		{"1080p-high", 1920, 1080, 60, 12_000_000},
		{"1080p-low", 1920, 1080, 30, 8_000_000},
		{"720p-high", 1280, 720, 60, 7_500_000},
		{"720p-low", 1280, 720, 30, 5_000_000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := BitrateFor(c.w, c.h, c.fps)
			if got != c.want {
				t.Fatalf("BitrateFor(%d,%d,%d) = %d, want %d", c.w, c.h, c.fps, got, c.want)
			}
		})
	}
}

func TestBitrateFallsBackToFormula(t *testing.T) {
	got := BitrateFor(640, 480, 30)
	want := int(640 * 480 * 30 * 0.08)
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestEvenDimensionsRoundsDown(t *testing.T) {
	w, h := EvenDimensions(1281, 721)
	if w != 1280 || h != 720 {
		t.Fatalf("got %d x %d, want 1280 x 720", w, h)
	}
	w2, h2 := EvenDimensions(1280, 720)
	if w2 != 1280 || h2 != 720 {
		t.Fatalf("expected already-even dims unchanged, got %d x %d", w2, h2)
	}
}

func TestHighFPSThresholdIsFifty(t *testing.T) {
	if BitrateFor(1920, 1080, 49) != 8_000_000 {
		t.Fatal("expected fps=49 to use low-fps bitrate")
	}
	if BitrateFor(1920, 1080, 50) != 12_000_000 {
		t.Fatal("expected fps=50 to use high-fps bitrate")
	}
}
