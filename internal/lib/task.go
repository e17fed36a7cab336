package lib

import (
	"context"
	"errors"

	"github.com/pifp-labs/funding-node/internal/interfaces"
	"go.uber.org/atomic"
)

// Task runs a Runnable in a separate goroutine and allows it to be stopped
// independently from the parent context
type Task struct {
	runFunc func(ctx context.Context) error

	isRunning *atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	cancel    context.CancelFunc
	err       *atomic.Error
}

func NewTask(runnable interfaces.Runnable) *Task {
	return NewTaskFunc(runnable.Run)
}

func NewTaskFunc(f func(ctx context.Context) error) *Task {
	return &Task{
		runFunc:   f,
		isRunning: atomic.NewBool(false),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		err:       atomic.NewError(nil),
	}
}

func (t *Task) Start(ctx context.Context) {
	if !t.isRunning.CAS(false, true) {
		panic("task already running")
	}
	subCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	go func() {
		err := t.runFunc(subCtx)
		isContextErr := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)

		// returned due to calling Stop()
		if ctx.Err() == nil && subCtx.Err() != nil && isContextErr {
			close(t.stopCh)
			return
		}

		t.err.Store(err)
		close(t.doneCh)
		close(t.stopCh)
	}()
}

func (t *Task) Stop() <-chan struct{} {
	if !t.isRunning.CAS(true, false) {
		closedCh := make(chan struct{})
		close(closedCh)
		return closedCh
	}
	if t.cancel != nil {
		t.cancel()
	}
	return t.stopCh
}

// Done is closed when the task exited on its own or the parent context was
// cancelled. It is not closed on Stop()
func (t *Task) Done() <-chan struct{} {
	return t.doneCh
}

func (t *Task) Err() error {
	return t.err.Load()
}
