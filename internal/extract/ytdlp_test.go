package extract

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestParseProbeOutput(t *testing.T) {
	data := []byte(`{
		"title": "Test Video",
		"duration": 120,
		"formats": [
			{"format_id": "140", "vcodec": "none", "acodec": "mp4a", "filesize": 2000000},
			{"format_id": "134", "height": 360, "vcodec": "avc1", "acodec": "none", "filesize": 5000000},
			{"format_id": "135", "height": 480, "vcodec": "avc1", "acodec": "none", "filesize": 8000000},
			{"format_id": "136", "height": 720, "vcodec": "avc1", "acodec": "none", "filesize_approx": 15000000.5},
			{"format_id": "18", "height": 360, "vcodec": "avc1", "acodec": "mp4a", "filesize": 4000000},
			{"format_id": "sb0", "vcodec": "none", "acodec": "none"}
		]
	}`)

	res, err := parseProbeOutput(data)
	if err != nil {
		t.Fatal(err)
	}
	if res.Title != "Test Video" {
		t.Errorf("title = %q", res.Title)
	}
	if len(res.Formats) != 3 {
		t.Fatalf("formats = %d, want 3 (one per resolution)", len(res.Formats))
	}

	// Best first.
	if res.Formats[0].Resolution != "720p" || res.Formats[2].Resolution != "360p" {
		t.Errorf("order wrong: %+v", res.Formats)
	}

	// Video-only sizes include the best audio track.
	if got := res.Formats[1].Filesize; got != 8000000+2000000 {
		t.Errorf("480p size = %d, want audio added", got)
	}

	// Per resolution the larger rendition wins: 360p video-only with
	// audio added (7 MB) beats the progressive 4 MB one.
	if got := res.Formats[2].Filesize; got != 5000000+2000000 {
		t.Errorf("360p size = %d, want %d", got, 5000000+2000000)
	}
}

func TestParseProbeOutputNoVideo(t *testing.T) {
	data := []byte(`{"title": "audio only", "formats": [{"format_id": "140", "vcodec": "none", "acodec": "mp4a"}]}`)
	if _, err := parseProbeOutput(data); err == nil {
		t.Error("expected error for format list without video")
	}
}

func TestParseProbeOutputBadJSON(t *testing.T) {
	if _, err := parseProbeOutput([]byte("not json")); err == nil {
		t.Error("expected error for malformed json")
	}
}

func TestFormatSelector(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "bestvideo+bestaudio/best"},
		{"best", "bestvideo+bestaudio/best"},
		{"137", "137+bestaudio/137/best"},
	}
	for _, tt := range tests {
		if got := formatSelector(tt.in); got != tt.want {
			t.Errorf("formatSelector(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseProgressLine(t *testing.T) {
	tests := []struct {
		line      string
		wantCur   int64
		wantTotal int64
		wantOK    bool
	}{
		{"1048576|2097152|NA", 1048576, 2097152, true},
		{"1048576|NA|2097152.0", 1048576, 2097152, true},
		{"1048576|NA|NA", 1048576, -1, true},
		{"NA|100|100", 0, 0, false},
		{"[download] 42%", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tt := range tests {
		cur, total, ok := parseProgressLine(tt.line)
		if ok != tt.wantOK {
			t.Errorf("parseProgressLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			continue
		}
		if ok && (cur != tt.wantCur || total != tt.wantTotal) {
			t.Errorf("parseProgressLine(%q) = (%d, %d), want (%d, %d)", tt.line, cur, total, tt.wantCur, tt.wantTotal)
		}
	}
}

func TestCookiesFlagRequiresJarOnDisk(t *testing.T) {
	log := zap.NewNop().Sugar()

	y := NewYtdlpRunner("", "", filepath.Join(t.TempDir(), "missing.txt"), "", log)
	for _, arg := range y.baseArgs() {
		if arg == "--cookies" {
			t.Error("--cookies passed for a jar that does not exist")
		}
	}

	jar := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(jar, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	y = NewYtdlpRunner("", "", jar, "", log)
	found := false
	for _, arg := range y.baseArgs() {
		if arg == "--cookies" {
			found = true
		}
	}
	if !found {
		t.Error("--cookies missing although the jar exists")
	}
}
