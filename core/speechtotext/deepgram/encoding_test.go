package deepgram

import (
	"testing"

	"github.com/fuxstixx/fuxstixx-core/core/audio"
)

func TestConvertEncodingAcceptsCaptureDefault(t *testing.T) {
	encoding, err := convertEncoding(audio.GetDefaultEncodingInfo())
	if err != nil {
		t.Fatalf("expected default capture encoding to convert, got %v", err)
	}
	if encoding.SampleRate != 16000 {
		t.Fatalf("expected 16000Hz, got %d", encoding.SampleRate)
	}
	if encoding.Format != encodingLinear16 {
		t.Fatalf("expected linear16, got %q", encoding.Format)
	}
}

func TestConvertEncodingRejectsUnsupportedSampleRate(t *testing.T) {
	_, err := convertEncoding(audio.EncodingInfo{SampleRate: 44100, Format: audio.EncodingLinear16})
	if err == nil {
		t.Fatal("expected 44100Hz to be rejected")
	}
}

func TestConvertEncodingRestrictsCompandedFormatsTo8kHz(t *testing.T) {
	if _, err := convertEncoding(audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingMulaw}); err != nil {
		t.Fatalf("expected mulaw at 8000Hz to convert, got %v", err)
	}
	if _, err := convertEncoding(audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingMulaw}); err == nil {
		t.Fatal("expected mulaw above 8000Hz to be rejected")
	}
	if _, err := convertEncoding(audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingALaw}); err == nil {
		t.Fatal("expected alaw above 8000Hz to be rejected")
	}
}
