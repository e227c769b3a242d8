package ffprobe

import (
	"context"
	"math"
	"testing"
)

const samplePayload = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"filename": "clip.mp4", "nb_streams": 2, "duration": "93.417", "format_name": "mov,mp4"}
}`

func TestDecode(t *testing.T) {
	result, err := Decode([]byte(samplePayload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := result.VideoStreamCount(); got != 1 {
		t.Errorf("video streams = %d, want 1", got)
	}
	if got := result.AudioStreamCount(); got != 1 {
		t.Errorf("audio streams = %d, want 1", got)
	}
	if got := result.DurationSeconds(); math.Abs(got-93.417) > 1e-9 {
		t.Errorf("duration = %v, want 93.417", got)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDurationSecondsMissing(t *testing.T) {
	result, err := Decode([]byte(`{"format": {}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := result.DurationSeconds(); got != 0 {
		t.Errorf("duration = %v, want 0 for missing field", got)
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "ffprobe", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
