package types

// TaskState tracks a task through its lifecycle. A task is created in
// StateAdmitted and always finishes in one of the terminal states.
type TaskState string

const (
	StateAdmitted   TaskState = "admitted"
	StateSelecting  TaskState = "selecting"
	StateAcquiring  TaskState = "acquiring"
	StateExtracting TaskState = "extracting"
	StateUploading  TaskState = "uploading"
	StateComplete   TaskState = "complete"
	StateCancelled  TaskState = "cancelled"
	StateFailed     TaskState = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s TaskState) IsTerminal() bool {
	return s == StateComplete || s == StateCancelled || s == StateFailed
}

// UploadMode selects how the relay engine presents the file to Telegram.
type UploadMode string

const (
	ModeMedia    UploadMode = "media"
	ModeDocument UploadMode = "doc"
	ModeAudio    UploadMode = "audio"
)

// ParseUploadMode maps the wire strings ("media", "doc"/"document",
// "audio") onto an UploadMode, defaulting to media.
func ParseUploadMode(s string) UploadMode {
	switch s {
	case "doc", "document":
		return ModeDocument
	case "audio":
		return ModeAudio
	default:
		return ModeMedia
	}
}

// Sentinel format selectors accepted by task submission.
const (
	FormatDirect     = "direct"
	FormatBest       = "best"
	FormatBestPrefix = "best_"
)

// ActionIdle is returned to pollers when no progress record exists.
const ActionIdle = "idle"

// ActionComplete is the sole success terminal marker observers rely on.
const ActionComplete = "Complete"

// ErrorActionPrefix marks a terminal failure in the legacy action string.
const ErrorActionPrefix = "Error: "

// ActionCancelled is the cancellation wording; distinct from errors so
// observers can tell a voluntary abort from a failure.
const ActionCancelled = "Cancelled by user"
