package scheduler

import (
	"testing"

	"github.com/rimmartin/loom/test"
)

func TestDueQueueEnqueueDequeueOrder(t *testing.T) {
	q := newDueQueue(4)
	jobs := []*Job{NewJob(), NewJob(), NewJob()}

	for _, j := range jobs {
		if err := q.enqueue(j); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	for i, want := range jobs {
		got, err := q.dequeue()
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("dequeue %d: got different job than enqueued", i)
		}
	}

	_, err := q.dequeue()
	test.AssertTrue(t, err, ErrQueueEmpty)
}

func TestDueQueueFullReportsError(t *testing.T) {
	q := newDueQueue(2)
	if err := q.enqueue(NewJob()); err != nil {
		t.Fatalf("enqueue 1: %v", err)
	}
	if err := q.enqueue(NewJob()); err != nil {
		t.Fatalf("enqueue 2: %v", err)
	}
	err := q.enqueue(NewJob())
	test.AssertTrue(t, err, ErrQueueFull)
}
