package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var errTest = errors.New("test error")

func TestRun_AllTasksSucceed(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	err := Run(
		context.Background(),
		MakeTask("first", func(ctx context.Context) error {
			calls.Add(1)
			return nil
		}),
		MakeTask("second", func(ctx context.Context) error {
			calls.Add(1)
			return nil
		}))
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
}

func TestRun_FailureCancelsOthers(t *testing.T) {
	defer goleak.VerifyNone(t)

	err := Run(
		context.Background(),
		MakeTask("failing", func(ctx context.Context) error {
			return errTest
		}),
		MakeTask("waiting", func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}))

	var executionError *ExecutionError
	require.ErrorAs(t, err, &executionError)
	require.ErrorIs(t, err, errTest)
	require.Equal(t, "failing", executionError.TaskName)
	require.Contains(t, executionError.Error(), "utils_test.go")
}

func TestRunWithTimeout_Exceeded(t *testing.T) {
	defer goleak.VerifyNone(t)

	err := RunWithTimeout(
		context.Background(),
		10*time.Millisecond,
		MakeTask("slow", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunTickerLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32
	done := make(chan struct{})
	go func() {
		RunTickerLoop(ctx, time.Millisecond, func(context.Context) {
			if ticks.Add(1) == 3 {
				cancel()
			}
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ticker loop did not stop")
	}
	require.GreaterOrEqual(t, ticks.Load(), int32(3))
}
