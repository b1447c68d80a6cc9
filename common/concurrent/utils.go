package concurrent

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dlsniper/debugger"
)

type LabelContextKey string

const (
	TaskNameLabel                        = "taskName"
	RootContextNameLabel LabelContextKey = "rootContextName"
)

type Func = func(context.Context) error

// Task is a named function started by Run. Stack records where the task was created.
type Task struct {
	Func
	Stack    string
	TaskName string
}

type ExecutionError struct {
	TaskName string
	Err      error
	Stack    string
}

var _ error = (*ExecutionError)(nil)

func (e *ExecutionError) Error() string {
	var location string
	if e.Stack != "" {
		location = "\n" + e.Stack
	} else {
		location = "<unknown location>"
	}
	return fmt.Sprintf("task %q failed: %s. Function was created at: %s", e.TaskName, e.Err.Error(), location)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func MakeTask(taskName string, f Func) Task {
	return Task{
		Func: f,
		Stack: func(stack []byte) string {
			// Drop the goroutine header and the frames of MakeTask itself.
			newlineCount := 0
			for i := range stack {
				if stack[i] == '\n' {
					newlineCount++
					if newlineCount == 5 {
						return string(stack[i+1:])
					}
				}
			}
			return ""
		}(debug.Stack()),
		TaskName: taskName,
	}
}

// RunWithTimeout calls each given task in a separate goroutine and waits for them to finish.
// The first failing task cancels the context of the others; its error is returned.
// If timeout is positive, it is added to the context. Otherwise, it is ignored.
// Note that RunWithTimeout does not forcefully terminate the goroutines;
// your functions should be able to handle context cancellation.
func RunWithTimeout(ctx context.Context, timeout time.Duration, tasks ...Task) error {
	var wg sync.WaitGroup

	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var once sync.Once
	var originError error
	for _, t := range tasks {
		wg.Add(1)

		go func(task Task) {
			defer wg.Done()

			rootContextName, ok := ctx.Value(RootContextNameLabel).(string)
			if !ok {
				rootContextName = "<unknown>"
			}
			debugger.SetLabels(func() []string {
				return []string{
					TaskNameLabel, task.TaskName,
					string(RootContextNameLabel), rootContextName,
				}
			})

			if err := task.Func(ctx); err != nil {
				once.Do(func() {
					originError = &ExecutionError{
						TaskName: task.TaskName,
						Err:      err,
						Stack:    task.Stack,
					}
					cancel()
				})
			}
		}(t)
	}

	wg.Wait()
	return originError
}

// Run calls RunWithTimeout without a timeout.
func Run(ctx context.Context, tasks ...Task) error {
	return RunWithTimeout(ctx, 0, tasks...)
}

// RunTickerLoop runs a loop that executes a function at regular intervals
func RunTickerLoop(ctx context.Context, interval time.Duration, onTick func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			onTick(ctx)
		case <-ctx.Done():
			return
		}
	}
}
