package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/akilaramal69-beep/telelinkworking/internal/progress"
	"github.com/akilaramal69-beep/telelinkworking/types"
	"go.uber.org/zap"
)

// YtdlpRunner drives the yt-dlp binary for probing and extraction.
type YtdlpRunner struct {
	binPath     string
	ffmpegPath  string
	cookiesFile string
	proxyURL    string
	log         *zap.SugaredLogger
}

func NewYtdlpRunner(binPath, ffmpegPath, cookiesFile, proxyURL string, log *zap.SugaredLogger) *YtdlpRunner {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &YtdlpRunner{
		binPath:     binPath,
		ffmpegPath:  ffmpegPath,
		cookiesFile: cookiesFile,
		proxyURL:    proxyURL,
		log:         log,
	}
}

func (y *YtdlpRunner) baseArgs() []string {
	args := []string{"--no-playlist", "--no-warnings"}
	if y.cookiesFile != "" {
		// The default jar path is speculative; only pass it when the
		// file is actually there, or yt-dlp creates and dumps to it.
		if _, err := os.Stat(y.cookiesFile); err == nil {
			args = append(args, "--cookies", y.cookiesFile)
		}
	}
	if y.proxyURL != "" {
		args = append(args, "--proxy", y.proxyURL)
	}
	return args
}

// Probe lists the available qualities for a URL, one entry per
// resolution, best first.
func (y *YtdlpRunner) Probe(ctx context.Context, url string) (*types.FormatQueryResult, error) {
	args := append(y.baseArgs(), "-J", url)
	cmd := exec.CommandContext(ctx, y.binPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: probe aborted", types.ErrCancelled)
		}
		return nil, fmt.Errorf("%w: %s", types.ErrExtraction, tail(stderr.String()))
	}
	res, err := parseProbeOutput(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExtraction, err)
	}
	return res, nil
}

type probeInfo struct {
	Title    string        `json:"title"`
	Formats  []probeFormat `json:"formats"`
	Duration float64       `json:"duration"`
}

type probeFormat struct {
	FormatID       string  `json:"format_id"`
	Height         int     `json:"height"`
	Vcodec         string  `json:"vcodec"`
	Acodec         string  `json:"acodec"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
}

func (f probeFormat) size() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return int64(f.FilesizeApprox)
}

// parseProbeOutput reduces the raw format dump to one option per
// resolution. Video-only entries get the best audio track's size added
// so the reported size matches what the merged file will weigh.
func parseProbeOutput(data []byte) (*types.FormatQueryResult, error) {
	var info probeInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid media info: %v", err)
	}

	var bestAudio int64
	for _, f := range info.Formats {
		if f.Vcodec == "none" && f.Acodec != "none" && f.size() > bestAudio {
			bestAudio = f.size()
		}
	}

	byHeight := make(map[int]types.FormatDescriptor)
	for _, f := range info.Formats {
		if f.Height <= 0 || f.Vcodec == "" || f.Vcodec == "none" {
			continue
		}
		size := f.size()
		if size > 0 && f.Acodec == "none" {
			size += bestAudio
		}
		prev, seen := byHeight[f.Height]
		if seen && prev.Filesize >= size {
			continue
		}
		byHeight[f.Height] = types.FormatDescriptor{
			FormatID:   f.FormatID,
			Resolution: fmt.Sprintf("%dp", f.Height),
			Filesize:   size,
		}
	}

	heights := make([]int, 0, len(byHeight))
	for h := range byHeight {
		heights = append(heights, h)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(heights)))

	out := &types.FormatQueryResult{Title: info.Title}
	for _, h := range heights {
		out.Formats = append(out.Formats, byHeight[h])
	}
	if len(out.Formats) == 0 {
		return nil, errors.New("no downloadable video formats")
	}
	return out, nil
}

// formatSelector expands a choice into a yt-dlp format expression that
// always has a plain "best" to fall back on.
func formatSelector(formatID string) string {
	switch formatID {
	case "", types.FormatBest:
		return "bestvideo+bestaudio/best"
	default:
		return fmt.Sprintf("%s+bestaudio/%s/best", formatID, formatID)
	}
}

// Download stages the selected format under destStem and streams byte
// progress parsed from yt-dlp's own progress lines.
func (y *YtdlpRunner) Download(ctx context.Context, url, formatID, destStem string, rep *progress.Reporter) (string, error) {
	args := append(y.baseArgs(),
		"-f", formatSelector(formatID),
		"--merge-output-format", "mp4",
		"-o", destStem+".%(ext)s",
		"--newline",
		"--progress-template", "download:%(progress.downloaded_bytes)s|%(progress.total_bytes)s|%(progress.total_bytes_estimate)s",
	)
	if y.ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", y.ffmpegPath)
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, y.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrExtraction, err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrExtraction, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if cur, total, ok := parseProgressLine(scanner.Text()); ok {
			rep.Bytes("Downloading...", cur, total)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			cleanupStem(destStem)
			return "", fmt.Errorf("%w: download aborted", types.ErrCancelled)
		}
		cleanupStem(destStem)
		return "", fmt.Errorf("%w: %s", types.ErrExtraction, tail(stderr.String()))
	}

	path, err := findStaged(destStem)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrExtraction, err)
	}
	return path, nil
}

// parseProgressLine reads "cur|total|estimate" triples where any field
// may be NA or a float.
func parseProgressLine(line string) (cur, total int64, ok bool) {
	parts := strings.Split(strings.TrimSpace(line), "|")
	if len(parts) != 3 {
		return 0, 0, false
	}
	cur, curOK := parseBytes(parts[0])
	if !curOK {
		return 0, 0, false
	}
	if t, tOK := parseBytes(parts[1]); tOK {
		return cur, t, true
	}
	if t, tOK := parseBytes(parts[2]); tOK {
		return cur, t, true
	}
	return cur, -1, true
}

func parseBytes(s string) (int64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return int64(f), true
}

// findStaged locates whatever file yt-dlp produced for the stem; merged
// output is normally stem.mp4 but audio-only picks its own extension.
func findStaged(destStem string) (string, error) {
	matches, err := filepath.Glob(destStem + ".*")
	if err != nil || len(matches) == 0 {
		return "", errors.New("extractor produced no output file")
	}
	for _, m := range matches {
		if strings.HasSuffix(m, ".mp4") {
			return m, nil
		}
	}
	return matches[0], nil
}

func cleanupStem(destStem string) {
	matches, _ := filepath.Glob(destStem + ".*")
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, " ")
}
