package types

import "errors"

// Pipeline error taxonomy. Engines wrap these with fmt.Errorf("%w: ...")
// so the controller can classify with errors.Is while the message keeps
// the human-readable cause.
var (
	// ErrValidation covers bad input at admission time: empty or
	// malformed URL, unusable format selector. Surfaced synchronously,
	// never retried.
	ErrValidation = errors.New("validation: invalid input")

	// ErrExtraction is an extraction-tool failure. It is the only error
	// that triggers the fallback step.
	ErrExtraction = errors.New("extraction: extractor failed")

	// ErrFallbackExhausted means the primary extraction and the fallback
	// API both failed. Terminal.
	ErrFallbackExhausted = errors.New("extraction: all acquisition paths failed")

	// ErrNetwork is a transport failure on the direct or fallback path.
	// Terminal, never escalates to fallback.
	ErrNetwork = errors.New("network: transfer failed")

	// ErrRemux is a container normalization failure. Terminal.
	ErrRemux = errors.New("remux: stream normalization failed")

	// ErrUpload is a messaging-backend transfer failure. Terminal; the
	// staged file is still deleted.
	ErrUpload = errors.New("upload: backend transfer failed")

	// ErrCancelled marks a cooperative abort requested by the user. Not
	// a failure from the user's perspective.
	ErrCancelled = errors.New("cancelled by user")

	// ErrTaskInProgress rejects a second submission while a user already
	// has a non-terminal task.
	ErrTaskInProgress = errors.New("task already in progress")
)
