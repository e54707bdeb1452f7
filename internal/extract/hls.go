package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/akilaramal69-beep/telelinkworking/internal/progress"
	"github.com/akilaramal69-beep/telelinkworking/types"
	"go.uber.org/zap"
)

// FFmpegRemuxer copies adaptive streams into a plain mp4 container
// without re-encoding.
type FFmpegRemuxer struct {
	binPath string
	log     *zap.SugaredLogger
}

func NewFFmpegRemuxer(binPath string, log *zap.SugaredLogger) *FFmpegRemuxer {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	return &FFmpegRemuxer{binPath: binPath, log: log}
}

// Remux pulls the stream at url into outPath. Total size is unknown for
// live manifests, so progress is reported as an elapsed-time pulse.
func (r *FFmpegRemuxer) Remux(ctx context.Context, url, outPath string, rep *progress.Reporter) error {
	cmd := exec.CommandContext(ctx, r.binPath,
		"-y",
		"-user_agent", browserUA,
		"-i", url,
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrRemux, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	start := time.Now()
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			if err != nil {
				os.Remove(outPath)
				if ctx.Err() != nil {
					return fmt.Errorf("%w: remux aborted", types.ErrCancelled)
				}
				return fmt.Errorf("%w: %s", types.ErrRemux, tail(stderr.String()))
			}
			info, serr := os.Stat(outPath)
			if serr != nil || info.Size() == 0 {
				os.Remove(outPath)
				return fmt.Errorf("%w: stream produced no data", types.ErrRemux)
			}
			return nil
		case <-ticker.C:
			rep.Pulse("Weaving Stream together...", time.Since(start))
		}
	}
}
