package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hryarih32/mediacatalogbot/internal/clock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFake() (*Scheduler, *clock.FakeClock) {
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(clk, testLogger()), clk
}

func TestRunOnceFiresAfterDelay(t *testing.T) {
	s, clk := newFake()
	var got any

	job, err := s.RunOnce("job", 5*time.Second, "payload", func(ctx context.Context, j *Job) {
		got = j.Payload
	})
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(5*time.Second), job.RunAt)
	assert.Len(t, s.JobsByName("job"), 1)

	clk.Advance(4 * time.Second)
	assert.Nil(t, got)

	clk.Advance(time.Second)
	assert.Equal(t, "payload", got)
	assert.Empty(t, s.JobsByName("job"))
}

func TestCancelByNameRemovesAllPending(t *testing.T) {
	s, clk := newFake()
	var fired atomic.Int32
	fn := func(context.Context, *Job) { fired.Add(1) }

	_, _ = s.RunOnce("clear_pending_1", time.Second, nil, fn)
	_, _ = s.RunOnce("clear_pending_1", 2*time.Second, nil, fn)
	_, _ = s.RunOnce("other", time.Second, nil, fn)

	assert.Equal(t, 2, s.CancelByName("clear_pending_1"))
	assert.Empty(t, s.JobsByName("clear_pending_1"))
	assert.Equal(t, 0, s.CancelByName("clear_pending_1"))

	clk.Advance(time.Minute)
	assert.Equal(t, int32(1), fired.Load())
}

func TestSameNameFiresInScheduleOrder(t *testing.T) {
	s, clk := newFake()
	var order []int

	for i := 1; i <= 3; i++ {
		i := i
		_, _ = s.RunOnce("n", time.Second, nil, func(context.Context, *Job) { order = append(order, i) })
	}

	clk.Advance(time.Second)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestStartedJobCannotBeCancelled(t *testing.T) {
	s, clk := newFake()
	cancelled := -1
	completed := false

	_, _ = s.RunOnce("exec_power_shutdown_1", time.Second, nil, func(ctx context.Context, j *Job) {
		cancelled = s.CancelByName(j.Name)
		completed = true
	})

	clk.Advance(time.Second)
	assert.Equal(t, 0, cancelled)
	assert.True(t, completed)
}

func TestCancelFromEarlierJobPreventsLaterJob(t *testing.T) {
	s, clk := newFake()
	laterFired := false

	_, _ = s.RunOnce("first", time.Second, nil, func(context.Context, *Job) {
		s.CancelByName("second")
	})
	_, _ = s.RunOnce("second", time.Second, nil, func(context.Context, *Job) {
		laterFired = true
	})

	clk.Advance(time.Second)
	assert.False(t, laterFired)
}

func TestPanickingJobIsContained(t *testing.T) {
	s, clk := newFake()
	_, _ = s.RunOnce("boom", time.Second, nil, func(context.Context, *Job) { panic("boom") })

	assert.NotPanics(t, func() { clk.Advance(time.Second) })
	assert.NoError(t, s.Stop(context.Background()))
}

func TestStopWaitsForRunningJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(clock.Real(), testLogger())
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	_, err := s.RunOnce("exec_power_restart_1", 0, nil, func(context.Context, *Job) {
		close(started)
		<-release
		finished.Store(true)
	})
	require.NoError(t, err)
	<-started

	_, err = s.RunOnce("clear_pending_1", time.Hour, nil, func(context.Context, *Job) {})
	require.NoError(t, err)

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-stopped)
	assert.True(t, finished.Load())
	assert.Empty(t, s.JobsByName("clear_pending_1"))

	_, err = s.RunOnce("late", time.Second, nil, func(context.Context, *Job) {})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestStopHonoursContext(t *testing.T) {
	s := New(clock.Real(), testLogger())
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	_, _ = s.RunOnce("slow", 0, nil, func(context.Context, *Job) {
		close(started)
		<-release
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)
}
