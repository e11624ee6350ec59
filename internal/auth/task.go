package auth

import (
	"context"
	"sync"

	"ssohub/internal/connection"
)

// Task is the handle for a login operation. Reuse and silent-refresh
// logins complete before LoginSso returns; interactive authorizations
// complete in the background. Callers that need the outcome wait on the
// task rather than on timing.
type Task struct {
	done   chan struct{}
	once   sync.Once
	cancel context.CancelFunc

	conn connection.Connection
	err  error
}

func newTask(cancel context.CancelFunc) *Task {
	return &Task{done: make(chan struct{}), cancel: cancel}
}

// completedTask returns an already-finished task.
func completedTask(conn connection.Connection, err error) *Task {
	t := newTask(nil)
	t.complete(conn, err)
	return t
}

func (t *Task) complete(conn connection.Connection, err error) {
	t.once.Do(func() {
		t.conn = conn
		t.err = err
		close(t.done)
	})
}

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done, and returns the
// connection that became active.
func (t *Task) Wait(ctx context.Context) (connection.Connection, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return t.conn, t.err
	}
}

// Cancel aborts an in-flight interactive authorization. Canceling a
// finished task is a no-op.
func (t *Task) Cancel() {
	if t.cancel != nil {
		t.cancel()
	}
}
