package probe

import "testing"

func TestParseProbe(t *testing.T) {
	data := []byte(`{
		"format": {"duration": "123.456"},
		"streams": [
			{"codec_type": "audio"},
			{"codec_type": "video", "width": 1920, "height": 1080},
			{"codec_type": "video", "width": 320, "height": 240}
		]
	}`)
	meta, err := parseProbe(data)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Duration != 123 {
		t.Errorf("duration = %d, want 123", meta.Duration)
	}
	if meta.Width != 1920 || meta.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want first video stream's", meta.Width, meta.Height)
	}
}

func TestParseProbeAudioOnly(t *testing.T) {
	data := []byte(`{"format": {"duration": "45.0"}, "streams": [{"codec_type": "audio"}]}`)
	meta, err := parseProbe(data)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Duration != 45 {
		t.Errorf("duration = %d, want 45", meta.Duration)
	}
	if meta.Width != 0 || meta.Height != 0 {
		t.Errorf("dimensions = %dx%d, want zero", meta.Width, meta.Height)
	}
}

func TestParseProbeMissingDuration(t *testing.T) {
	meta, err := parseProbe([]byte(`{"format": {}, "streams": []}`))
	if err != nil {
		t.Fatal(err)
	}
	if meta.Duration != 0 {
		t.Errorf("duration = %d, want 0", meta.Duration)
	}
}

func TestParseProbeBadJSON(t *testing.T) {
	if _, err := parseProbe([]byte("garbage")); err == nil {
		t.Error("expected error for malformed output")
	}
}
