package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/akilaramal69-beep/telelinkworking/types"
	"go.uber.org/zap"
)

// Prober extracts playback metadata and a thumbnail from a staged media
// file. Every failure here is soft: the relay can always fall back to
// sending the file without dimensions or preview.
type Prober struct {
	ffprobePath string
	ffmpegPath  string
	log         *zap.SugaredLogger
}

func NewProber(ffprobePath, ffmpegPath string, log *zap.SugaredLogger) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Prober{ffprobePath: ffprobePath, ffmpegPath: ffmpegPath, log: log}
}

// Enrich fills duration, dimensions and a generated thumbnail into the
// staged file in place.
func (p *Prober) Enrich(ctx context.Context, file *types.StagedFile) {
	if !strings.HasPrefix(file.Mime, "video/") && !strings.HasPrefix(file.Mime, "audio/") {
		return
	}

	meta, err := p.inspect(ctx, file.Path)
	if err != nil {
		p.log.Warnw("metadata probe failed", "path", file.Path, "err", err)
	} else {
		file.Duration = meta.Duration
		file.Width = meta.Width
		file.Height = meta.Height
	}

	if strings.HasPrefix(file.Mime, "video/") {
		thumb, err := p.thumbnail(ctx, file.Path)
		if err != nil {
			p.log.Warnw("thumbnail generation failed", "path", file.Path, "err", err)
		} else {
			file.ThumbPath = thumb
		}
	}
}

type mediaMeta struct {
	Duration int
	Width    int
	Height   int
}

func (p *Prober) inspect(ctx context.Context, path string) (*mediaMeta, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe: %v", err)
	}
	return parseProbe(stdout.Bytes())
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func parseProbe(data []byte) (*mediaMeta, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %v", err)
	}
	meta := &mediaMeta{}
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		meta.Duration = int(d)
	}
	for _, s := range out.Streams {
		if s.CodecType == "video" && s.Width > 0 {
			meta.Width = s.Width
			meta.Height = s.Height
			break
		}
	}
	return meta, nil
}

// thumbnail grabs the first frame, scaled to 320px wide, as a JPEG next
// to the source file.
func (p *Prober) thumbnail(ctx context.Context, path string) (string, error) {
	thumbPath := path + "_thumb.jpg"
	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-y",
		"-i", path,
		"-vframes", "1",
		"-vf", "scale=320:-1",
		thumbPath,
	)
	if err := cmd.Run(); err != nil {
		os.Remove(thumbPath)
		return "", fmt.Errorf("ffmpeg thumbnail: %v", err)
	}
	info, err := os.Stat(thumbPath)
	if err != nil || info.Size() == 0 {
		os.Remove(thumbPath)
		return "", fmt.Errorf("empty thumbnail")
	}
	return thumbPath, nil
}
