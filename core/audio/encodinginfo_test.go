package audio

import "testing"

func TestDefaultEncodingInfo(t *testing.T) {
	info := GetDefaultEncodingInfo()
	if info.IsZero() {
		t.Fatalf("expected default encoding info to be set")
	}
	if got := info.SampleSize(); got != 2 {
		t.Fatalf("expected 2 byte samples, got %d", got)
	}
}

func TestZeroEncodingInfo(t *testing.T) {
	if !(EncodingInfo{}).IsZero() {
		t.Fatalf("expected empty encoding info to be zero")
	}
	if got := (EncodingInfo{SampleRate: 8000, Format: "opus"}).SampleSize(); got != 0 {
		t.Fatalf("expected unplayable format to have no sample size, got %d", got)
	}
}
