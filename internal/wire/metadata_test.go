package wire

import "testing"

func TestMetadataRoundTrip(t *testing.T) {
	m := Metadata{
		OSName:     "Linux",
		DEName:     "GNOME",
		Width:      1920,
		Height:     1080,
		FPS:        60,
		FormatName: "BGRx",
		ColorSpace: "sRGB",
	}
	buf := m.Marshal()
	if len(buf) != MetadataSize {
		t.Fatalf("expected marshaled size %d, got %d", MetadataSize, len(buf))
	}

	got, ok := UnmarshalMetadata(buf)
	if !ok {
		t.Fatal("unmarshal failed")
	}
	if got != m {
		t.Fatalf("round-trip mismatch: got %+v want %+v", got, m)
	}
}

func TestMetadataToleratesMissingTrailingField(t *testing.T) {
	m := Metadata{OSName: "Linux", DEName: "KDE", Width: 1280, Height: 720, FPS: 30, FormatName: "BGRx", ColorSpace: "sRGB"}
	buf := m.Marshal()
	truncated := buf[:MetadataSize-4]

	got, ok := UnmarshalMetadata(truncated)
	if !ok {
		t.Fatal("expected truncated-by-4 payload to be accepted")
	}
	if got.ColorSpace != "" {
		t.Fatalf("expected empty color space for truncated payload, got %q", got.ColorSpace)
	}
	if got.FormatName != "BGRx" {
		t.Fatalf("expected format name preserved, got %q", got.FormatName)
	}
}

func TestMetadataRejectsUndersizedPayload(t *testing.T) {
	if _, ok := UnmarshalMetadata(make([]byte, MetadataSize-5)); ok {
		t.Fatal("expected undersized payload to be rejected")
	}
}

func TestMetadataRejectsOversizedPayload(t *testing.T) {
	if _, ok := UnmarshalMetadata(make([]byte, MetadataSize+1)); ok {
		t.Fatal("expected oversized payload to be rejected")
	}
}
