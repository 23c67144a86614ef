package reactive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskUnsetUntilSettled(t *testing.T) {
	release := make(chan struct{})
	task := NewTask(func(ctx context.Context, prev int) (int, error) {
		<-release
		return 42, nil
	})

	_, err := task.Read()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnset))

	close(release)
	require.Eventually(t, func() bool {
		v, err := task.Read()
		return err == nil && v == 42
	}, time.Second, 2*time.Millisecond)
}

func TestTaskPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	task := NewTask(func(ctx context.Context, prev int) (int, error) {
		return 0, boom
	})

	require.Eventually(t, func() bool {
		_, err := task.Read()
		return err != nil && !errors.Is(err, ErrUnset)
	}, time.Second, 2*time.Millisecond)

	_, err := task.Read()
	assert.Equal(t, boom, err)
}

// TestTaskCancelsStaleRunOnDependencyChange reproduces the S3 scenario:
// a dependency change while a run is in flight aborts it and schedules
// exactly one more run, rather than leaving the stale run's result to
// race with the fresh one.
func TestTaskCancelsStaleRunOnDependencyChange(t *testing.T) {
	src, err := NewCell(1)
	require.NoError(t, err)

	var runs int32
	task := NewTask(func(ctx context.Context, prev int) (int, error) {
		runs++
		// Read src in the synchronous prelude so the dependency
		// subscription is live before the run suspends.
		v, _ := src.Read()
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		return v * 2, nil
	})

	_, _ = task.Read() // kicks off the first run

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, src.Write(2))

	require.Eventually(t, func() bool {
		v, err := task.Read()
		return err == nil && v == 4
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(2), runs, "a dependency change mid-flight must cause exactly one extra run")
}

func TestTaskDisposeAbortsInFlightRun(t *testing.T) {
	ctxCanceled := make(chan struct{})
	task := NewTask(func(ctx context.Context, prev int) (int, error) {
		<-ctx.Done()
		close(ctxCanceled)
		return 0, ctx.Err()
	})

	_, _ = task.Read()
	task.Dispose()

	select {
	case <-ctxCanceled:
	case <-time.After(time.Second):
		t.Fatal("Dispose did not cancel the in-flight run's context")
	}
}

func TestTaskOwnedByScopeCanceledOnScopeDispose(t *testing.T) {
	scope := NewScope()
	ctxCanceled := make(chan struct{})

	task, err := NewTaskWithOptions(
		func(ctx context.Context, prev int) (int, error) {
			<-ctx.Done()
			close(ctxCanceled)
			return 0, ctx.Err()
		},
		TaskOptions[int]{Owner: scope},
	)
	require.NoError(t, err)

	_, _ = task.Read()
	scope.Dispose()

	select {
	case <-ctxCanceled:
	case <-time.After(time.Second):
		t.Fatal("scope disposal did not cancel the task's in-flight run")
	}
}

// TestTaskConcurrentReadWhileInFlightReturnsUnsetNotCircular guards
// against conflating "a run is in flight" with "this Read is
// re-entrant" — only the latter is a CircularDependency per §4.4 step
// 1; a plain concurrent poll while settling is step 2's "simply return
// the cached value".
func TestTaskConcurrentReadWhileInFlightReturnsUnsetNotCircular(t *testing.T) {
	release := make(chan struct{})
	task := NewTask(func(ctx context.Context, prev int) (int, error) {
		<-release
		return 1, nil
	})

	_, err := task.Read() // kicks off the run
	require.True(t, errors.Is(err, ErrUnset))

	_, err = task.Read() // polls again while still in flight
	assert.True(t, errors.Is(err, ErrUnset))
	assert.False(t, errors.Is(err, &Error{Kind: CircularDependency}))

	close(release)
}

// TestTaskSelfRecursiveReadIsCircular covers the genuine re-entry case:
// the compute body calling back into its own Read on the same
// goroutine, before it has settled.
func TestTaskSelfRecursiveReadIsCircular(t *testing.T) {
	var task *Task[int]
	task = NewTask(func(ctx context.Context, prev int) (int, error) {
		_, err := task.Read()
		return 0, err
	})

	require.Eventually(t, func() bool {
		_, err := task.Read()
		return err != nil && errors.Is(err, &Error{Kind: CircularDependency})
	}, time.Second, 2*time.Millisecond)
}

func TestNewTaskWithOptionsRequiresOwnerWhenStrict(t *testing.T) {
	StrictOwnership = true
	defer func() { StrictOwnership = false }()

	_, err := NewTaskWithOptions(func(ctx context.Context, prev int) (int, error) {
		return 0, nil
	}, TaskOptions[int]{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, &Error{Kind: RequiredOwner}))
}
