package relay

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/akilaramal69-beep/telelinkworking/internal/progress"
	"github.com/akilaramal69-beep/telelinkworking/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const maxCaptionLen = 1024

// Relay streams a staged file into a chat, choosing the send method
// from the requested mode and the file's media type.
type Relay struct {
	bot   *bot.Bot
	users types.UserStore
	log   *zap.SugaredLogger
}

func New(b *bot.Bot, users types.UserStore, log *zap.SugaredLogger) *Relay {
	return &Relay{bot: b, users: users, log: log}
}

// Send uploads the staged file to the task's chat, reporting byte
// progress as the Bot API consumes the stream. The caller owns staged
// file cleanup.
func (r *Relay) Send(ctx context.Context, task *types.Task, file *types.StagedFile, rep *progress.Reporter) error {
	rep.Phase("Uploading...", types.StateUploading)

	f, err := os.Open(file.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrUpload, err)
	}
	defer f.Close()

	reader := &countingReader{ctx: ctx, r: f, total: file.Size, rep: rep}
	upload := &models.InputFileUpload{Filename: task.TargetFilename, Data: reader}
	caption := r.caption(task)
	thumb, thumbFile := r.thumbnail(task, file)
	if thumbFile != nil {
		defer thumbFile.Close()
	}

	switch {
	case task.Mode == types.ModeAudio || (task.Mode == types.ModeMedia && strings.HasPrefix(file.Mime, "audio/")):
		_, err = r.bot.SendAudio(ctx, &bot.SendAudioParams{
			ChatID:   task.ChatID,
			Audio:    upload,
			Caption:  caption,
			Duration: file.Duration,
			Title:    strings.TrimSuffix(task.TargetFilename, filepath.Ext(task.TargetFilename)),
		})
	case task.Mode == types.ModeMedia && strings.HasPrefix(file.Mime, "video/"):
		_, err = r.bot.SendVideo(ctx, &bot.SendVideoParams{
			ChatID:            task.ChatID,
			Video:             upload,
			Caption:           caption,
			Duration:          file.Duration,
			Width:             file.Width,
			Height:            file.Height,
			Thumbnail:         thumb,
			SupportsStreaming: true,
		})
	default:
		_, err = r.bot.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:    task.ChatID,
			Document:  upload,
			Caption:   caption,
			Thumbnail: thumb,
		})
	}
	if err != nil {
		if ctx.Err() != nil || reader.cancelled {
			return fmt.Errorf("%w: upload aborted", types.ErrCancelled)
		}
		return fmt.Errorf("%w: %v", types.ErrUpload, err)
	}
	rep.Bytes("Uploading...", file.Size, file.Size)
	return nil
}

// caption prefers the user's stored caption and falls back to the file
// name. Telegram rejects captions past 1024 characters.
func (r *Relay) caption(task *types.Task) string {
	caption := task.TargetFilename
	if r.users != nil {
		if user, err := r.users.GetUser(task.UserID); err == nil && user != nil && user.Caption != "" {
			caption = user.Caption
		}
	}
	if len(caption) > maxCaptionLen {
		caption = caption[:maxCaptionLen]
	}
	return caption
}

// thumbnail prefers the user's stored thumbnail file id over the frame
// generated from the staged file. The returned file, when non-nil, is
// the caller's to close once the send finishes.
func (r *Relay) thumbnail(task *types.Task, file *types.StagedFile) (models.InputFile, *os.File) {
	if r.users != nil {
		if user, err := r.users.GetUser(task.UserID); err == nil && user != nil && user.ThumbFileID != "" {
			return &models.InputFileString{Data: user.ThumbFileID}, nil
		}
	}
	if file.ThumbPath != "" {
		tf, err := os.Open(file.ThumbPath)
		if err == nil {
			return &models.InputFileUpload{Filename: "thumb.jpg", Data: tf}, tf
		}
	}
	return nil, nil
}

// countingReader feeds upload progress and aborts between reads once
// the task context is cancelled, so a cancel does not wait for the
// whole body to flush.
type countingReader struct {
	ctx       context.Context
	r         io.Reader
	total     int64
	sent      int64
	rep       *progress.Reporter
	cancelled bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	if c.ctx.Err() != nil {
		c.cancelled = true
		return 0, fmt.Errorf("%w: upload aborted", types.ErrCancelled)
	}
	n, err := c.r.Read(p)
	if n > 0 {
		c.sent += int64(n)
		c.rep.Bytes("Uploading...", c.sent, c.total)
	}
	return n, err
}
