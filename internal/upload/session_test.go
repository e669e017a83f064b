package upload_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samtoma/Headhunter-sub000/internal/backend"
	"github.com/samtoma/Headhunter-sub000/internal/upload"
	"github.com/samtoma/Headhunter-sub000/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeGuard struct {
	mu     sync.Mutex
	armed  bool
	arms   int
	disarm int
}

func (g *fakeGuard) Arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
	g.arms++
}

func (g *fakeGuard) Disarm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = false
	g.disarm++
}

func (g *fakeGuard) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.armed
}

type fakeTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	fire    func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	return true
}

func (t *fakeTimer) Fire() {
	t.mu.Lock()
	f, stopped := t.fire, t.stopped
	t.mu.Unlock()
	if !stopped {
		f()
	}
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) upload.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, fire: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

// scriptedUploader reports each progress value, then waits for release.
type scriptedUploader struct {
	steps   []int
	release chan error
	ctxErr  chan error
}

func newScriptedUploader(steps ...int) *scriptedUploader {
	return &scriptedUploader{steps: steps, release: make(chan error, 1), ctxErr: make(chan error, 1)}
}

func (u *scriptedUploader) UploadBulk(ctx context.Context, req backend.UploadRequest, progress backend.ProgressFunc) (*backend.UploadReceipt, error) {
	for _, p := range u.steps {
		progress(p)
	}
	select {
	case err := <-u.release:
		if err != nil {
			return nil, err
		}
		return &backend.UploadReceipt{Accepted: len(req.Files), Message: "queued"}, nil
	case <-ctx.Done():
		u.ctxErr <- ctx.Err()
		return nil, ctx.Err()
	}
}

func files(n int) []backend.UploadFile {
	out := make([]backend.UploadFile, n)
	for i := range out {
		out[i] = backend.UploadFile{Name: fmt.Sprintf("cv-%d.pdf", i), Size: 4, Content: strings.NewReader("%PDF")}
	}
	return out
}

func waitForState(t *testing.T, s *upload.Session, want upload.State) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Snapshot().State == want }, time.Second, time.Millisecond,
		"waiting for state %s", want)
}

var confirmYes = upload.ConfirmFunc(func(context.Context, string) bool { return true })
var confirmNo = upload.ConfirmFunc(func(context.Context, string) bool { return false })

// --- tests ---

func TestSession_FullLifecycle(t *testing.T) {
	guard := &fakeGuard{}
	clock := &fakeClock{}
	u := newScriptedUploader(0, 50, 100)
	s := upload.NewSession(u, upload.WithGuard(guard), upload.WithAfterFunc(clock.AfterFunc))

	var mu sync.Mutex
	var seen []upload.Snapshot
	s.Subscribe(func(snap upload.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, snap)
	})

	snap, err := s.Start(context.Background(), files(3), 4)
	require.NoError(t, err)
	assert.Equal(t, upload.StateUploading, snap.State)
	assert.Equal(t, 3, snap.FileCount)
	assert.NotEmpty(t, snap.ID)
	assert.True(t, guard.Armed())

	waitForState(t, s, upload.StateProcessing)
	assert.True(t, guard.Armed(), "still armed while the server parses")

	u.release <- nil
	waitForState(t, s, upload.StateComplete)
	assert.False(t, guard.Armed())
	assert.Equal(t, 3, s.Snapshot().Accepted)

	timer := clock.Last()
	require.NotNil(t, timer)
	assert.Equal(t, upload.DefaultDismissDelay, timer.delay)
	timer.Fire()
	assert.Equal(t, upload.StateIdle, s.Snapshot().State)

	mu.Lock()
	defer mu.Unlock()
	var progress []int
	var states []upload.State
	for _, sn := range seen {
		if sn.State == upload.StateUploading || sn.State == upload.StateProcessing {
			progress = append(progress, sn.Progress)
		}
		if len(states) == 0 || states[len(states)-1] != sn.State {
			states = append(states, sn.State)
		}
	}
	assert.Equal(t, []int{0, 0, 50, 100}, progress, "start snapshot then each progress report")
	assert.Equal(t, []upload.State{upload.StateUploading, upload.StateProcessing, upload.StateComplete, upload.StateIdle}, states)
}

func TestSession_FailureBeforeCompleteDisarms(t *testing.T) {
	for _, steps := range [][]int{{0, 50}, {0, 50, 100}} {
		guard := &fakeGuard{}
		u := newScriptedUploader(steps...)
		s := upload.NewSession(u, upload.WithGuard(guard), upload.WithAfterFunc((&fakeClock{}).AfterFunc))

		_, err := s.Start(context.Background(), files(3), 0)
		require.NoError(t, err)
		u.release <- fmt.Errorf("POST /cv/upload_bulk: %w", backend.ErrNetwork)

		waitForState(t, s, upload.StateError)
		assert.NotEmpty(t, s.Snapshot().Error)
		assert.False(t, guard.Armed())
	}
}

func TestSession_ErrorStaysUntilDismissed(t *testing.T) {
	clock := &fakeClock{}
	u := newScriptedUploader()
	s := upload.NewSession(u, upload.WithAfterFunc(clock.AfterFunc))
	_, _ = s.Start(context.Background(), files(1), 0)
	u.release <- errors.New("")
	waitForState(t, s, upload.StateError)

	assert.Equal(t, "upload failed", s.Snapshot().Error)
	assert.Nil(t, clock.Last(), "no auto-dismiss for errors")

	require.NoError(t, s.Dismiss(context.Background(), nil))
	assert.Equal(t, upload.StateIdle, s.Snapshot().State)
}

func TestSession_StartWhileActiveIsBusy(t *testing.T) {
	u := newScriptedUploader(0)
	s := upload.NewSession(u)
	_, err := s.Start(context.Background(), files(1), 0)
	require.NoError(t, err)

	_, err = s.Start(context.Background(), files(2), 0)

	assert.ErrorIs(t, err, upload.ErrBusy)
	u.release <- nil
}

func TestSession_StartRequiresFiles(t *testing.T) {
	s := upload.NewSession(newScriptedUploader())

	_, err := s.Start(context.Background(), nil, 0)

	assert.True(t, models.IsValidation(err))
	assert.Equal(t, upload.StateIdle, s.Snapshot().State)
}

func TestSession_DismissActiveNeedsConfirmation(t *testing.T) {
	guard := &fakeGuard{}
	u := newScriptedUploader(0, 50)
	s := upload.NewSession(u, upload.WithGuard(guard))
	_, _ = s.Start(context.Background(), files(3), 0)
	require.Eventually(t, func() bool { return s.Snapshot().Progress == 50 }, time.Second, time.Millisecond)

	require.ErrorIs(t, s.Dismiss(context.Background(), confirmNo), upload.ErrNotConfirmed)
	require.ErrorIs(t, s.Dismiss(context.Background(), nil), upload.ErrNotConfirmed)
	assert.Equal(t, upload.StateUploading, s.Snapshot().State)
	assert.True(t, guard.Armed())

	require.NoError(t, s.Dismiss(context.Background(), confirmYes))
	assert.Equal(t, upload.StateIdle, s.Snapshot().State)
	assert.False(t, guard.Armed())

	select {
	case err := <-u.ctxErr:
		assert.ErrorIs(t, err, context.Canceled, "dismissal cancels the upload")
	case <-time.After(time.Second):
		t.Fatal("upload was not cancelled")
	}
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, upload.StateIdle, s.Snapshot().State, "late failure of a dismissed upload is ignored")
}

func TestSession_ManualDismissStopsTimer(t *testing.T) {
	clock := &fakeClock{}
	u := newScriptedUploader(100)
	s := upload.NewSession(u, upload.WithAfterFunc(clock.AfterFunc), upload.WithDismissDelay(5*time.Second))
	_, _ = s.Start(context.Background(), files(1), 0)
	u.release <- nil
	waitForState(t, s, upload.StateComplete)

	require.NoError(t, s.Dismiss(context.Background(), nil))

	timer := clock.Last()
	assert.Equal(t, 5*time.Second, timer.delay)
	assert.True(t, timer.stopped)
}

func TestSession_StaleTimerAfterRestartIsIgnored(t *testing.T) {
	clock := &fakeClock{}
	u := newScriptedUploader(100)
	s := upload.NewSession(u, upload.WithAfterFunc(clock.AfterFunc))
	_, _ = s.Start(context.Background(), files(1), 0)
	u.release <- nil
	waitForState(t, s, upload.StateComplete)
	first := clock.Last()

	// a new upload replaces the finished one before it auto-dismisses
	_, err := s.Start(context.Background(), files(2), 0)
	require.NoError(t, err)
	waitForState(t, s, upload.StateProcessing)
	first.fire()

	assert.Equal(t, upload.StateProcessing, s.Snapshot().State)
	u.release <- nil
	waitForState(t, s, upload.StateComplete)
}

func TestSession_RealTimerAutoDismisses(t *testing.T) {
	u := newScriptedUploader(100)
	s := upload.NewSession(u, upload.WithDismissDelay(10*time.Millisecond))
	_, _ = s.Start(context.Background(), files(1), 0)
	u.release <- nil

	waitForState(t, s, upload.StateComplete)
	waitForState(t, s, upload.StateIdle)
}

func TestSession_DismissIdleIsNoop(t *testing.T) {
	s := upload.NewSession(newScriptedUploader())
	assert.NoError(t, s.Dismiss(context.Background(), nil))
}

// handUploader hands its progress callback to the test and runs until cancelled.
type handUploader struct {
	report chan backend.ProgressFunc
}

func (u *handUploader) UploadBulk(ctx context.Context, _ backend.UploadRequest, progress backend.ProgressFunc) (*backend.UploadReceipt, error) {
	u.report <- progress
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSession_ConfirmedDismissCoversUploadReachingProcessing(t *testing.T) {
	u := &handUploader{report: make(chan backend.ProgressFunc, 1)}
	guard := &fakeGuard{}
	s := upload.NewSession(u, upload.WithGuard(guard))
	_, err := s.Start(context.Background(), files(2), 0)
	require.NoError(t, err)
	progress := <-u.report
	progress(40)

	confirm := upload.ConfirmFunc(func(context.Context, string) bool {
		// the last byte goes out while the user reads the prompt
		progress(100)
		return true
	})

	require.NoError(t, s.Dismiss(context.Background(), confirm))
	assert.Equal(t, upload.StateIdle, s.Snapshot().State)
	assert.False(t, guard.Armed())
}

func TestSession_GuardMatchesStateUnderConcurrentDismiss(t *testing.T) {
	for i := 0; i < 100; i++ {
		u := &handUploader{report: make(chan backend.ProgressFunc, 1)}
		guard := &fakeGuard{}
		s := upload.NewSession(u, upload.WithGuard(guard))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Start(context.Background(), files(1), 0)
		}()
		go func() {
			defer wg.Done()
			_ = s.Dismiss(context.Background(), confirmYes)
		}()
		wg.Wait()

		require.Equal(t, s.Snapshot().State.Active(), guard.Armed(), "iteration %d", i)
		require.NoError(t, s.Dismiss(context.Background(), confirmYes))
		require.False(t, guard.Armed())
	}
}

func TestSession_UnsubscribeStopsDelivery(t *testing.T) {
	s := upload.NewSession(newScriptedUploader())
	t.Cleanup(func() { _ = s.Dismiss(context.Background(), confirmYes) })

	var mu sync.Mutex
	var first, second int
	cancelFirst := s.Subscribe(func(upload.Snapshot) { mu.Lock(); first++; mu.Unlock() })
	cancelSecond := s.Subscribe(func(upload.Snapshot) { mu.Lock(); second++; mu.Unlock() })
	defer cancelSecond()

	cancelFirst()
	cancelFirst()
	_, err := s.Start(context.Background(), files(1), 0)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}
