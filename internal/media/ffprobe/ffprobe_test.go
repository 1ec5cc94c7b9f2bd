package ffprobe

import "testing"

func TestParseAndHelpers(t *testing.T) {
	payload := []byte(`{
		"streams": [
			{"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080},
			{"index": 1, "codec_type": "audio", "codec_name": "aac", "channels": 2, "sample_rate": "48000"}
		],
		"format": {"duration": "12.5", "size": "2048", "bit_rate": "256000", "format_name": "mov,mp4"}
	}`)

	result, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.DurationSeconds() != 12.5 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 2048 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 256000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}

	video, ok := result.VideoStream()
	if !ok || video.Width != 1920 || video.Height != 1080 {
		t.Fatalf("unexpected video stream %+v ok=%v", video, ok)
	}
	audio, ok := result.AudioStream()
	if !ok || audio.Channels != 2 {
		t.Fatalf("unexpected audio stream %+v ok=%v", audio, ok)
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Duration: "7.25"},
			{CodecType: "video", Duration: "8.0"},
		},
	}
	if result.DurationSeconds() != 8.0 {
		t.Fatalf("expected longest stream duration, got %v", result.DurationSeconds())
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{Size: "-1", BitRate: "nope"},
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}
