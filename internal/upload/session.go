// Package upload tracks the lifecycle of one bulk résumé upload:
// idle, uploading, processing, complete, back to idle, with error reachable from the
// two active states.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samtoma/Headhunter-sub000/internal/backend"
	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateComplete   State = "complete"
	StateError      State = "error"
)

// Active reports whether an upload is in flight.
func (s State) Active() bool {
	return s == StateUploading || s == StateProcessing
}

// DefaultDismissDelay is how long a completed session stays visible.
const DefaultDismissDelay = 3 * time.Second

var (
	ErrBusy              = errors.New("an upload is already in progress")
	ErrNotConfirmed      = errors.New("dismissal not confirmed")
	ErrInvalidTransition = errors.New("invalid upload state transition")
)

// NavigationGuard is the host's "leaving page" warning. Its methods are called with
// the session locked and must not call back into it.
type NavigationGuard interface {
	Arm()
	Disarm()
}

// Confirmer asks the user to accept losing an upload in progress.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Uploader sends the files.
type Uploader interface {
	UploadBulk(ctx context.Context, req backend.UploadRequest, progress backend.ProgressFunc) (*backend.UploadReceipt, error)
}

// Timer is the part of *time.Timer the session uses.
type Timer interface {
	Stop() bool
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	ID        string    `json:"id,omitempty"`
	State     State     `json:"state"`
	FileCount int       `json:"file_count"`
	JobID     int64     `json:"job_id,omitempty"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	Accepted  int       `json:"accepted,omitempty"`
	Message   string    `json:"message,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

type Option func(*Session)

func WithDismissDelay(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.delay = d
		}
	}
}

func WithGuard(g NavigationGuard) Option {
	return func(s *Session) {
		if g != nil {
			s.guard = g
		}
	}
}

// WithAfterFunc replaces time.AfterFunc for the auto-dismiss timer.
func WithAfterFunc(fn func(d time.Duration, f func()) Timer) Option {
	return func(s *Session) { s.afterFunc = fn }
}

type noopGuard struct{}

func (noopGuard) Arm()    {}
func (noopGuard) Disarm() {}

// Session is safe for concurrent use. Only one upload runs at a time. Callbacks from
// an upload that has since been dismissed are ignored.
type Session struct {
	uploader  Uploader
	guard     NavigationGuard
	delay     time.Duration
	afterFunc func(d time.Duration, f func()) Timer

	mu     sync.Mutex
	snap   Snapshot
	epoch  uint64
	cancel context.CancelFunc
	timer  Timer

	subMu   sync.Mutex
	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

func NewSession(u Uploader, opts ...Option) *Session {
	s := &Session{
		uploader: u,
		guard:    noopGuard{},
		delay:    DefaultDismissDelay,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		snap: Snapshot{State: StateIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe registers fn for every state or progress change. The returned func
// cancels the subscription.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
	}
}

func (s *Session) publish(snap Snapshot) {
	s.subMu.Lock()
	subs := slices.Clone(s.subs)
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.fn(snap)
	}
}

// Start begins uploading files and returns at once. A finished or failed session is
// replaced; an active one yields ErrBusy. The upload keeps running after ctx ends;
// only Dismiss stops it.
func (s *Session) Start(ctx context.Context, files []backend.UploadFile, jobID int64) (Snapshot, error) {
	if len(files) == 0 {
		return Snapshot{}, &models.ValidationError{Field: "files", Reason: "at least one file is required"}
	}

	s.mu.Lock()
	if s.snap.State.Active() {
		s.mu.Unlock()
		return Snapshot{}, ErrBusy
	}
	s.stopTimerLocked()
	s.epoch++
	epoch := s.epoch
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.snap = Snapshot{
		ID:        uuid.NewString(),
		State:     StateUploading,
		FileCount: len(files),
		JobID:     jobID,
		StartedAt: time.Now().UTC(),
	}
	s.guard.Arm()
	snap := s.snap
	s.mu.Unlock()

	s.publish(snap)
	slog.Info("upload started", "upload_id", snap.ID, "files", len(files), "job_id", jobID)

	req := backend.UploadRequest{Files: files, JobID: jobID}
	go s.run(runCtx, epoch, req)
	return snap, nil
}

func (s *Session) run(ctx context.Context, epoch uint64, req backend.UploadRequest) {
	receipt, err := s.uploader.UploadBulk(ctx, req, func(pct int) { s.progress(epoch, pct) })
	if err != nil {
		s.fail(epoch, err)
		return
	}
	s.complete(epoch, receipt)
}

// progress records byte progress. Reaching 100 means the server has the files and
// is parsing them.
func (s *Session) progress(epoch uint64, pct int) {
	s.mu.Lock()
	if epoch != s.epoch || s.snap.State != StateUploading {
		s.mu.Unlock()
		return
	}
	pct = min(max(pct, 0), 100)
	if pct < s.snap.Progress {
		s.mu.Unlock()
		return
	}
	s.snap.Progress = pct
	if pct == 100 {
		s.snap.State = StateProcessing
	}
	snap := s.snap
	s.mu.Unlock()

	s.publish(snap)
}

func (s *Session) complete(epoch uint64, receipt *backend.UploadReceipt) {
	s.mu.Lock()
	if epoch != s.epoch || !s.snap.State.Active() {
		s.mu.Unlock()
		return
	}
	s.snap.State = StateComplete
	s.snap.Progress = 100
	if receipt != nil {
		s.snap.Accepted = receipt.Accepted
		s.snap.Message = receipt.Message
	}
	s.releaseLocked()
	s.timer = s.afterFunc(s.delay, func() { s.expire(epoch) })
	s.guard.Disarm()
	snap := s.snap
	s.mu.Unlock()

	s.publish(snap)
	slog.Info("upload complete", "upload_id", snap.ID, "accepted", snap.Accepted)
}

func (s *Session) fail(epoch uint64, err error) {
	s.mu.Lock()
	if epoch != s.epoch || !s.snap.State.Active() {
		s.mu.Unlock()
		return
	}
	msg := err.Error()
	if msg == "" {
		msg = "upload failed"
	}
	s.snap.State = StateError
	s.snap.Error = msg
	s.releaseLocked()
	s.guard.Disarm()
	snap := s.snap
	s.mu.Unlock()

	s.publish(snap)
	slog.Warn("upload failed", "upload_id", snap.ID, "error", err)
}

// expire is the auto-dismiss of a completed session.
func (s *Session) expire(epoch uint64) {
	s.mu.Lock()
	if epoch != s.epoch || s.snap.State != StateComplete {
		s.mu.Unlock()
		return
	}
	s.resetLocked()
	snap := s.snap
	s.mu.Unlock()

	s.publish(snap)
}

// Dismiss returns the session to idle. Dismissing an active upload needs confirm to
// agree, and cancels the upload. The confirmation covers the same upload for as long
// as it stays active.
func (s *Session) Dismiss(ctx context.Context, confirm Confirmer) error {
	s.mu.Lock()
	state, id := s.snap.State, s.snap.ID
	s.mu.Unlock()

	switch {
	case state == StateIdle:
		return nil
	case state.Active():
		if confirm == nil || !confirm.Confirm(ctx, "An upload is in progress. Leave and discard it?") {
			return ErrNotConfirmed
		}
	}

	s.mu.Lock()
	current := s.snap.State
	same := s.snap.ID == id && (current == state || state.Active() && current.Active())
	if !same {
		// moved on while the user was asked
		s.mu.Unlock()
		return fmt.Errorf("%w: state changed from %s to %s", ErrInvalidTransition, state, current)
	}
	s.releaseLocked()
	s.resetLocked()
	s.guard.Disarm()
	snap := s.snap
	s.mu.Unlock()

	s.publish(snap)
	slog.Info("upload dismissed", "upload_id", id, "from", current)
	return nil
}

func (s *Session) resetLocked() {
	s.stopTimerLocked()
	s.epoch++
	s.snap = Snapshot{State: StateIdle}
}

// releaseLocked cancels the upload context; after completion this only frees it.
func (s *Session) releaseLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
