package types

import "time"

// Task is one in-flight user request. At most one non-terminal Task
// exists per user at any instant; the controller enforces that at
// admission.
type Task struct {
	ID             string     `json:"id"`
	UserID         int64      `json:"user_id"`
	ChatID         int64      `json:"chat_id"`
	SourceURL      string     `json:"source_url"`
	FormatID       string     `json:"format_id,omitempty"`
	Mode           UploadMode `json:"mode"`
	TargetFilename string     `json:"target_filename"`
	Renamed        bool       `json:"renamed,omitempty"`
	State          TaskState  `json:"state"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ProgressRecord is the single shared view of a task's progress. Written
// by exactly one engine at a time, read by the web poller and the chat
// message editor. Action keeps the legacy display string contract while
// State carries the explicit lifecycle enum alongside it.
type ProgressRecord struct {
	Action     string    `json:"action"`
	Percentage float64   `json:"percentage"`
	Current    string    `json:"current,omitempty"`
	Total      string    `json:"total,omitempty"`
	Speed      string    `json:"speed,omitempty"`
	State      TaskState `json:"state,omitempty"`
}

// FormatDescriptor describes one downloadable rendition of a source URL.
// Slices of descriptors are ordered best-to-worst; index 0 is "best".
type FormatDescriptor struct {
	FormatID   string `json:"format_id"`
	Resolution string `json:"resolution"`
	Filesize   int64  `json:"filesize,omitempty"`
}

// FormatQueryResult is the format-query response. Empty Formats signals a
// direct (non-extractable) URL.
type FormatQueryResult struct {
	Title   string             `json:"title"`
	Formats []FormatDescriptor `json:"formats"`
}

// StagedFile is the local artifact between acquisition and relay. It is
// owned by the task that produced it and never outlives it.
type StagedFile struct {
	Path      string
	Size      int64
	Mime      string
	Duration  int
	Width     int
	Height    int
	ThumbPath string
}

// User is the persistence collaborator's view of an account: upload
// personalization plus the ban list flag.
type User struct {
	UserID      int64
	Username    string
	Caption     string
	ThumbFileID string
	Banned      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProgressStore is the process-wide progress mapping keyed by user id.
// Set overwrites the live record; SetTerminal writes a final record that
// the store keeps for the retention window and then drops, so a late
// poll sees the terminal state before the key reverts to absent.
type ProgressStore interface {
	Set(userID int64, rec *ProgressRecord) error
	Get(userID int64) (*ProgressRecord, error)
	SetTerminal(userID int64, rec *ProgressRecord, retention time.Duration) error
	Delete(userID int64) error
}

// UserStore is the read-mostly persistence collaborator consumed by the
// pipeline and written by the chat command surface.
type UserStore interface {
	UpsertUser(user User) error
	GetUser(userID int64) (*User, error)
	SetCaption(userID int64, caption string) error
	SetThumb(userID int64, fileID string) error
	SetBanned(userID int64, banned bool) error
	IsBanned(userID int64) (bool, error)
}
