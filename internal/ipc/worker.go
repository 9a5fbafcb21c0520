package ipc

import "context"

// Task is a delegated unit of work. It reports how the work went; errors are
// folded into the status and note by the caller's closure.
type Task func(ctx context.Context) (Status, string)

// Result is delivered exactly once for each dispatched task.
type Result struct {
	Kind    Kind
	Status  Status
	Note    string
	SendErr error
}

// Dispatch runs task on its own goroutine. When the task finishes, the worker
// sends exactly one completion record on ch and then delivers the result on
// the returned buffered channel, so joining never blocks the worker. A failed
// completion send is reported in the result rather than lost.
func Dispatch(ctx context.Context, ch *Channel, completion Kind, task Task) <-chan Result {
	done := make(chan Result, 1)
	go func() {
		status, note := task(ctx)
		res := Result{Kind: completion, Status: status, Note: note}
		res.SendErr = ch.Send(Message{Kind: completion, Status: status, Note: note})
		done <- res
	}()
	return done
}
