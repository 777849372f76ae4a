package sender

import (
	"context"
	"errors"
	"testing"
)

// Enqueue reports queue admission only: it returns before the job runs
// and a failed send is counted, not returned. Callers that must observe
// the delivery outcome have to send synchronously.
func TestEnqueueReportsAdmissionNotOutcome(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 4})

	block := make(chan struct{})
	sendErr := errors.New("telegram: chat not found (400)")
	if err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		<-block
		return sendErr
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// Enqueue already returned nil while the send is still pending.
	close(block)
	d.Close()

	if got := d.ErrorCount(); got != 1 {
		t.Fatalf("error count = %d, want 1", got)
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	defer d.Close()

	started := make(chan struct{})
	block := make(chan struct{})
	defer close(block)

	if err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		close(started)
		<-block
		return nil
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-started

	if err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil }); err != nil {
		t.Fatalf("enqueue into empty queue: %v", err)
	}
	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil })
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	d.Close()

	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil })
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("err = %v, want ErrQueueClosed", err)
	}
}
