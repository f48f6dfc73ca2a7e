// Package job tracks poster generation jobs through their lifecycle.
//
// A job moves forward only: queued, then processing, then exactly one
// of completed or failed. Every mutation bumps a version counter so
// pollers can detect change without comparing whole records. Stores
// never let progress move backward and never let a terminal job change
// state again.
package job

import (
	"context"
	"time"

	"github.com/posterforge/posterforge/pkg/errors"
)

// Status is a job lifecycle state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// rank orders statuses along the only legal path.
func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether moving from s to next is legal. Moving
// to the same status is allowed so progress updates need no special
// casing.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return !s.Terminal()
	}
	return !s.Terminal() && next.rank() > s.rank()
}

// Request echoes the poster parameters a job was created with.
type Request struct {
	City     string `json:"city" bson:"city"`
	Country  string `json:"country" bson:"country"`
	Theme    string `json:"theme" bson:"theme"`
	Distance int    `json:"distance" bson:"distance"`
	DPI      int    `json:"dpi" bson:"dpi"`
}

// Job is one poster generation job.
type Job struct {
	ID      string  `json:"id" bson:"_id"`
	Request Request `json:"request" bson:"request"`

	Status   Status  `json:"status" bson:"status"`
	Stage    string  `json:"stage,omitempty" bson:"stage,omitempty"`
	Progress float64 `json:"progress" bson:"progress"`

	// Message is the human-readable counterpart of Stage, refreshed on
	// every stage transition.
	Message string `json:"message,omitempty" bson:"message,omitempty"`

	// DownloadURL and PreviewURL locate the finished artifact. They
	// are set exactly once, when the job completes.
	DownloadURL string `json:"download_url,omitempty" bson:"download_url,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty" bson:"preview_url,omitempty"`

	// Error holds the user-facing failure message; ErrorCode the
	// machine-readable taxonomy code.
	Error     string   `json:"error,omitempty" bson:"error,omitempty"`
	ErrorCode string   `json:"error_code,omitempty" bson:"error_code,omitempty"`
	Warnings  []string `json:"warnings,omitempty" bson:"warnings,omitempty"`

	// EstimatedSeconds is the duration hint computed at enqueue time.
	EstimatedSeconds int `json:"estimated_seconds" bson:"estimated_seconds"`

	// Version increments on every stored mutation.
	Version int64 `json:"version" bson:"version"`

	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// New builds a queued job.
func New(id string, req Request, estimatedSeconds int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:               id,
		Request:          req,
		Status:           StatusQueued,
		Progress:         0,
		Message:          "Job queued",
		EstimatedSeconds: estimatedSeconds,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// apply mutates j through fn while enforcing the lifecycle rules:
// forward-only status, monotone progress, version bump. Stores call it
// while holding whatever exclusivity they provide.
func apply(j *Job, fn func(*Job)) error {
	prev := j.Status
	prevProgress := j.Progress

	fn(j)

	if !prev.CanTransition(j.Status) {
		j.Status = prev
		return errors.New(errors.ErrCodeInternal, "illegal status transition %s -> %s", prev, j.Status)
	}
	if j.Progress < prevProgress {
		j.Progress = prevProgress
	}
	if j.Progress > 1 {
		j.Progress = 1
	}

	now := time.Now().UTC()
	j.UpdatedAt = now
	if j.Status.Terminal() && j.CompletedAt == nil {
		j.CompletedAt = &now
	}
	j.Version++
	return nil
}

// Store persists jobs. Update applies fn atomically with respect to
// concurrent updates of the same job.
type Store interface {
	Create(ctx context.Context, j *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, id string, fn func(*Job)) (*Job, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Job, error)
	Close() error
}

// NotFound builds the canonical missing-job error.
func NotFound(id string) error {
	return errors.New(errors.ErrCodeJobNotFound, "job %q not found", id)
}
