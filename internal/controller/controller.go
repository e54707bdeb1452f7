package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akilaramal69-beep/telelinkworking/internal/messages"
	"github.com/akilaramal69-beep/telelinkworking/internal/progress"
	"github.com/akilaramal69-beep/telelinkworking/internal/selector"
	"github.com/akilaramal69-beep/telelinkworking/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Acquirer produces a staged local file for a task.
type Acquirer interface {
	Acquire(ctx context.Context, task *types.Task, rep *progress.Reporter) (*types.StagedFile, error)
	ProbeFormats(ctx context.Context, url string) (*types.FormatQueryResult, error)
}

// Enricher fills playback metadata into a staged file.
type Enricher interface {
	Enrich(ctx context.Context, file *types.StagedFile)
}

// Sender delivers a staged file to the task's chat.
type Sender interface {
	Send(ctx context.Context, task *types.Task, file *types.StagedFile, rep *progress.Reporter) error
}

// Notifier is the chat-side status surface: one status message per
// task, edited in place as progress advances.
type Notifier interface {
	Start(ctx context.Context, task *types.Task) (messageID int, err error)
	Edit(ctx context.Context, chatID int64, messageID int, text string)
	Finish(ctx context.Context, chatID int64, messageID int, text string)
}

type activeTask struct {
	task      *types.Task
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// Controller owns task admission, the per-user single-task rule, the
// pipeline run and every terminal transition.
type Controller struct {
	store     types.ProgressStore
	users     types.UserStore
	acquirer  Acquirer
	enricher  Enricher
	sender    Sender
	notifier  Notifier
	log       *zap.SugaredLogger
	baseCtx   context.Context
	retention time.Duration
	editEvery time.Duration
	repEvery  time.Duration
	deadline  time.Duration
	staging   string

	mu     sync.Mutex
	active map[int64]*activeTask
}

type Options struct {
	Store         types.ProgressStore
	Users         types.UserStore
	Acquirer      Acquirer
	Enricher      Enricher
	Sender        Sender
	Notifier      Notifier
	Log           *zap.SugaredLogger
	Retention     time.Duration
	ChatEditEvery time.Duration
	ProgressEvery time.Duration
	TaskTimeout   time.Duration
	StagingDir    string
}

func New(baseCtx context.Context, opts Options) *Controller {
	if opts.Retention <= 0 {
		opts.Retention = 30 * time.Second
	}
	if opts.ChatEditEvery <= 0 {
		opts.ChatEditEvery = 1500 * time.Millisecond
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = time.Second
	}
	return &Controller{
		store:     opts.Store,
		users:     opts.Users,
		acquirer:  opts.Acquirer,
		enricher:  opts.Enricher,
		sender:    opts.Sender,
		notifier:  opts.Notifier,
		log:       opts.Log,
		baseCtx:   baseCtx,
		retention: opts.Retention,
		editEvery: opts.ChatEditEvery,
		repEvery:  opts.ProgressEvery,
		deadline:  opts.TaskTimeout,
		staging:   opts.StagingDir,
		active:    make(map[int64]*activeTask),
	}
}

// Formats resolves the quality options for a URL without admitting a
// task.
func (c *Controller) Formats(ctx context.Context, url string) (*types.FormatQueryResult, error) {
	if _, err := selector.Validate(url); err != nil {
		return nil, err
	}
	return c.acquirer.ProbeFormats(ctx, url)
}

// Submit admits a task and starts its pipeline. A user with a task
// still in flight is rejected; terminal tasks never block admission.
func (c *Controller) Submit(task *types.Task) error {
	if _, err := selector.Validate(task.SourceURL); err != nil {
		return err
	}
	if c.users != nil {
		if banned, err := c.users.IsBanned(task.UserID); err == nil && banned {
			return fmt.Errorf("%w: account is banned", types.ErrValidation)
		}
	}
	normalized, err := selector.NormalizeFormat(task.FormatID)
	if err != nil {
		return err
	}
	task.FormatID = normalized

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.TargetFilename == "" {
		task.TargetFilename = selector.FilenameFromURL(task.SourceURL)
	}
	task.TargetFilename = selector.SanitizeFilename(task.TargetFilename)
	task.CreatedAt = time.Now()
	task.State = types.StateAdmitted

	c.mu.Lock()
	if _, busy := c.active[task.UserID]; busy {
		c.mu.Unlock()
		return types.ErrTaskInProgress
	}
	var ctx context.Context
	var cancel context.CancelFunc
	if c.deadline > 0 {
		ctx, cancel = context.WithTimeout(c.baseCtx, c.deadline)
	} else {
		ctx, cancel = context.WithCancel(c.baseCtx)
	}
	at := &activeTask{task: task, cancel: cancel}
	c.active[task.UserID] = at
	c.mu.Unlock()

	go c.run(ctx, at)
	return nil
}

// Cancel requests cooperative cancellation. It acknowledges whether or
// not a task is in flight, so repeated cancels are harmless.
func (c *Controller) Cancel(userID int64) bool {
	c.mu.Lock()
	at, ok := c.active[userID]
	c.mu.Unlock()
	if !ok {
		return false
	}
	if at.cancelled.CompareAndSwap(false, true) {
		at.cancel()
		c.log.Infow("cancellation requested", "user", userID)
	}
	return true
}

// Busy reports whether the user has a task in flight.
func (c *Controller) Busy(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[userID]
	return ok
}

func (c *Controller) release(userID int64) {
	c.mu.Lock()
	if at, ok := c.active[userID]; ok {
		at.cancel()
		delete(c.active, userID)
	}
	c.mu.Unlock()
}

// run is the whole pipeline for one task. Exactly one terminal record
// is written no matter how the run ends, and the staged file never
// survives it.
func (c *Controller) run(ctx context.Context, at *activeTask) {
	task := at.task

	rep := progress.NewReporter(c.store, task.UserID, c.repEvery)
	rep.Phase("Initializing download...", types.StateAcquiring)

	editorDone := c.startEditor(task)
	// Free the user's slot as soon as the terminal record lands; the
	// editor may keep polling for one more tick and must not hold up a
	// resubmit.
	defer func() {
		if editorDone != nil {
			<-editorDone
		}
	}()
	defer c.release(task.UserID)

	file, err := c.acquirer.Acquire(ctx, task, rep)
	if err != nil {
		c.finish(task, nil, err)
		return
	}

	rep.Phase("Processing...", types.StateExtracting)
	c.enricher.Enrich(ctx, file)

	if ctx.Err() != nil {
		c.finish(task, file, fmt.Errorf("%w: cancelled before upload", types.ErrCancelled))
		return
	}

	err = c.sender.Send(ctx, task, file, rep)
	c.finish(task, file, err)
}

// finish writes the terminal progress record and removes the staged
// artifacts.
func (c *Controller) finish(task *types.Task, file *types.StagedFile, err error) {
	if file != nil {
		if file.Path != "" {
			os.Remove(file.Path)
		}
		if file.ThumbPath != "" {
			os.Remove(file.ThumbPath)
		}
	}

	rec := &types.ProgressRecord{}
	switch {
	case err == nil:
		rec.Action = types.ActionComplete
		rec.Percentage = 100
		rec.State = types.StateComplete
		task.State = types.StateComplete
	case errors.Is(err, types.ErrCancelled) || errors.Is(err, context.Canceled):
		rec.Action = types.ActionCancelled
		rec.State = types.StateCancelled
		task.State = types.StateCancelled
	default:
		rec.Action = types.ErrorActionPrefix + friendly(err)
		rec.State = types.StateFailed
		task.State = types.StateFailed
		c.log.Errorw("task failed", "user", task.UserID, "url", task.SourceURL, "err", err)
	}

	if serr := c.store.SetTerminal(task.UserID, rec, c.retention); serr != nil {
		c.log.Errorw("terminal progress write failed", "user", task.UserID, "err", serr)
	}
}

// startEditor spawns the chat-side observer: it polls the same progress
// store the web surface reads, so both always show the same record.
func (c *Controller) startEditor(task *types.Task) <-chan struct{} {
	if c.notifier == nil {
		return nil
	}
	msgID, err := c.notifier.Start(c.baseCtx, task)
	if err != nil {
		c.log.Warnw("status message failed", "user", task.UserID, "err", err)
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(c.editEvery)
		defer ticker.Stop()
		var lastText string
		for range ticker.C {
			rec, err := c.store.Get(task.UserID)
			if err != nil {
				continue
			}
			if rec == nil {
				// The record already expired past its retention window.
				return
			}
			if rec.State.IsTerminal() {
				c.notifier.Finish(c.baseCtx, task.ChatID, msgID, terminalText(task, rec))
				return
			}
			text := messages.ProgressText(task.TargetFilename, rec)
			if text != lastText {
				c.notifier.Edit(c.baseCtx, task.ChatID, msgID, text)
				lastText = text
			}
		}
	}()
	return done
}

func terminalText(task *types.Task, rec *types.ProgressRecord) string {
	switch rec.State {
	case types.StateComplete:
		return messages.UploadComplete()
	case types.StateCancelled:
		return messages.ProcessCancelled()
	default:
		return messages.ProcessFailed(rec.Action)
	}
}

// friendly maps pipeline sentinels onto the short reason shown to
// observers.
func friendly(err error) string {
	switch {
	case errors.Is(err, types.ErrValidation):
		return "Invalid request"
	case errors.Is(err, types.ErrFallbackExhausted):
		return "All download methods failed"
	case errors.Is(err, types.ErrExtraction):
		return "Extraction failed"
	case errors.Is(err, types.ErrRemux):
		return "Stream processing failed"
	case errors.Is(err, types.ErrUpload):
		return "Upload failed"
	case errors.Is(err, types.ErrNetwork):
		return "Download failed"
	default:
		return "Download failed"
	}
}

// SweepStaging removes leftovers from runs that died mid-pipeline. Any
// file present at startup belongs to no live task.
func (c *Controller) SweepStaging() {
	entries, err := os.ReadDir(c.staging)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(c.staging, e.Name())
		if err := os.Remove(path); err == nil {
			c.log.Infow("removed stale staged file", "path", path)
		}
	}
}
