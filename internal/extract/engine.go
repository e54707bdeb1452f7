package extract

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/akilaramal69-beep/telelinkworking/internal/progress"
	"github.com/akilaramal69-beep/telelinkworking/internal/selector"
	"github.com/akilaramal69-beep/telelinkworking/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Extractor resolves a supported URL into downloadable streams and
// stages the chosen one. Implemented by the yt-dlp runner.
type Extractor interface {
	Probe(ctx context.Context, url string) (*types.FormatQueryResult, error)
	Download(ctx context.Context, url, formatID, destStem string, rep *progress.Reporter) (string, error)
}

// FallbackClient is the unauthenticated secondary acquisition path used
// when primary extraction fails.
type FallbackClient interface {
	Supported() bool
	Download(ctx context.Context, url, destStem string, rep *progress.Reporter) (string, error)
}

// Remuxer normalizes an adaptive stream into a regular container.
type Remuxer interface {
	Remux(ctx context.Context, url, outPath string, rep *progress.Reporter) error
}

// Engine turns a Task into a StagedFile, whatever the strategy, while
// feeding the task's progress Reporter.
type Engine struct {
	stagingDir  string
	maxFileSize int64
	extractor   Extractor
	fallback    FallbackClient
	remuxer     Remuxer
	direct      *DirectDownloader
	log         *zap.SugaredLogger
}

func NewEngine(stagingDir string, maxFileSize int64, extractor Extractor, fallback FallbackClient, remuxer Remuxer, direct *DirectDownloader, log *zap.SugaredLogger) *Engine {
	return &Engine{
		stagingDir:  stagingDir,
		maxFileSize: maxFileSize,
		extractor:   extractor,
		fallback:    fallback,
		remuxer:     remuxer,
		direct:      direct,
		log:         log,
	}
}

// ProbeFormats lists the source's downloadable renditions. Direct URLs
// have none; callers map that to the single implicit direct option.
func (e *Engine) ProbeFormats(ctx context.Context, url string) (*types.FormatQueryResult, error) {
	strategy, err := selector.Classify(url, "")
	if err != nil {
		return nil, err
	}
	if strategy != selector.StrategyExtraction {
		return &types.FormatQueryResult{}, nil
	}
	return e.extractor.Probe(ctx, url)
}

// step outcomes make the fallback decision explicit data flow instead of
// an unwinding error path: only a retryable primary failure reaches the
// fallback step.
type stepOutcome int

const (
	stepOK stepOutcome = iota
	stepRetryable
	stepFatal
)

type stepResult struct {
	outcome stepOutcome
	path    string
	err     error
}

// Acquire runs the strategy selected for the task, with the single
// ordered fallback where one exists, and returns the staged artifact.
func (e *Engine) Acquire(ctx context.Context, task *types.Task, rep *progress.Reporter) (*types.StagedFile, error) {
	strategy, err := selector.Classify(task.SourceURL, task.FormatID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(e.stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: staging dir: %v", types.ErrNetwork, err)
	}

	stem := e.stagePath(task)
	rep.Phase("Initializing download...", types.StateAcquiring)

	var res stepResult
	switch strategy {
	case selector.StrategyStreamed:
		res = e.runStreamed(ctx, task, stem, rep)
	case selector.StrategyExtraction:
		res = e.runExtraction(ctx, task, stem, rep)
	default:
		res = e.runDirect(ctx, task, stem, rep)
	}

	if res.outcome == stepRetryable {
		res = e.runFallback(ctx, task, stem, rep, res.err)
	}
	if res.outcome != stepOK {
		return nil, res.err
	}
	return e.stat(res.path)
}

func (e *Engine) runExtraction(ctx context.Context, task *types.Task, stem string, rep *progress.Reporter) stepResult {
	path, err := e.extractor.Download(ctx, task.SourceURL, task.FormatID, stem, rep)
	if err == nil {
		return stepResult{outcome: stepOK, path: path}
	}
	if isCancel(err) {
		return stepResult{outcome: stepFatal, err: err}
	}
	// Only extraction-specific failures escalate to the fallback API,
	// and only for URLs it accepts.
	if e.fallback != nil && e.fallback.Supported() && selector.SupportsFallback(task.SourceURL) {
		return stepResult{outcome: stepRetryable, err: err}
	}
	return stepResult{outcome: stepFatal, err: err}
}

func (e *Engine) runFallback(ctx context.Context, task *types.Task, stem string, rep *progress.Reporter, primaryErr error) stepResult {
	e.log.Infow("primary extraction failed, trying fallback", "user", task.UserID, "err", primaryErr)
	rep.Phase("Requesting Extraction Server...", types.StateAcquiring)

	path, err := e.fallback.Download(ctx, task.SourceURL, stem, rep)
	if err == nil {
		return stepResult{outcome: stepOK, path: path}
	}
	if isCancel(err) {
		return stepResult{outcome: stepFatal, err: err}
	}
	return stepResult{outcome: stepFatal, err: fmt.Errorf("%w: primary: %v; fallback: %v", types.ErrFallbackExhausted, primaryErr, err)}
}

func (e *Engine) runStreamed(ctx context.Context, task *types.Task, stem string, rep *progress.Reporter) stepResult {
	outPath := stem + ".mp4"
	if err := e.remuxer.Remux(ctx, task.SourceURL, outPath, rep); err != nil {
		return stepResult{outcome: stepFatal, err: err}
	}
	return stepResult{outcome: stepOK, path: outPath}
}

func (e *Engine) runDirect(ctx context.Context, task *types.Task, stem string, rep *progress.Reporter) stepResult {
	probe, err := e.direct.Probe(ctx, task.SourceURL)
	if err == nil && selector.IsStreamingMime(probe.ContentType) {
		// The extension did not give the stream away but the server's
		// content type did; route through the remux utility after all.
		return e.runStreamed(ctx, task, stem, rep)
	}

	if probe != nil {
		// The server's own name wins over the URL-derived guess, but
		// never over a name the user typed.
		if probe.Filename != "" && !task.Renamed {
			task.TargetFilename = selector.SanitizeFilename(probe.Filename)
			stem = e.stagePath(task)
		}
		if probe.Total > e.maxFileSize {
			return stepResult{outcome: stepFatal, err: fmt.Errorf("%w: file too large (%d bytes)", types.ErrValidation, probe.Total)}
		}
	}

	ext := path.Ext(task.TargetFilename)
	if ext == "" && probe != nil {
		ext = selector.ExtensionForMime(probe.ContentType)
		if ext != "" {
			task.TargetFilename += ext
		}
	}

	outPath := stem + ext
	if err := e.direct.Download(ctx, task.SourceURL, outPath, rep); err != nil {
		return stepResult{outcome: stepFatal, err: err}
	}
	return stepResult{outcome: stepOK, path: outPath}
}

// stagePath builds the unique per-task output stem inside the staging
// directory; the strategy appends the extension.
func (e *Engine) stagePath(task *types.Task) string {
	name := selector.SanitizeFilename(task.TargetFilename)
	stem := strings.TrimSuffix(name, path.Ext(name))
	return filepath.Join(e.stagingDir, fmt.Sprintf("%s_%s", stem, uuid.New().String()[:8]))
}

func (e *Engine) stat(p string) (*types.StagedFile, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("%w: staged file missing: %v", types.ErrNetwork, err)
	}
	if info.Size() == 0 {
		_ = os.Remove(p)
		return nil, fmt.Errorf("%w: downloaded file is empty", types.ErrNetwork)
	}
	mt := mime.TypeByExtension(path.Ext(p))
	if mt == "" {
		mt = "application/octet-stream"
	}
	return &types.StagedFile{Path: p, Size: info.Size(), Mime: mt}, nil
}

func isCancel(err error) bool {
	return errors.Is(err, types.ErrCancelled) || errors.Is(err, context.Canceled)
}
