package scheduler

import (
	"errors"
	"runtime"
	"sync/atomic"
)

var (
	ErrQueueFull  = errors.New("scheduler: due-job queue is full")
	ErrQueueEmpty = errors.New("scheduler: due-job queue is empty")
)

// dueQueue is a bounded lock-free MPMC ring buffer carrying jobs whose
// nextExecuteAt has passed, from the ticking goroutine to the worker pool
// that actually runs them. Capacity must be a power of two.
type dueQueue struct {
	buffer []dueSlot
	mask   uint64
	enqPos uint64
	deqPos uint64
}

type dueSlot struct {
	sequence uint64
	value    *Job
}

func newDueQueue(capacity uint64) *dueQueue {
	if capacity == 0 || capacity&(capacity-1) != 0 {
		panic("scheduler: due queue capacity must be a power of two")
	}
	buf := make([]dueSlot, capacity)
	for i := range buf {
		buf[i].sequence = uint64(i)
	}
	return &dueQueue{buffer: buf, mask: capacity - 1}
}

func (q *dueQueue) enqueue(job *Job) error {
	for {
		pos := atomic.LoadUint64(&q.enqPos)
		slot := &q.buffer[pos&q.mask]

		seq := atomic.LoadUint64(&slot.sequence)
		delta := int64(seq) - int64(pos)

		switch {
		case delta == 0:
			if atomic.CompareAndSwapUint64(&q.enqPos, pos, pos+1) {
				slot.value = job
				atomic.StoreUint64(&slot.sequence, pos+1)
				return nil
			}
		case delta < 0:
			return ErrQueueFull
		default:
			runtime.Gosched()
		}
	}
}

func (q *dueQueue) dequeue() (*Job, error) {
	for {
		pos := atomic.LoadUint64(&q.deqPos)
		slot := &q.buffer[pos&q.mask]

		seq := atomic.LoadUint64(&slot.sequence)
		delta := int64(seq) - int64(pos+1)

		switch {
		case delta == 0:
			if atomic.CompareAndSwapUint64(&q.deqPos, pos, pos+1) {
				job := slot.value
				slot.value = nil
				atomic.StoreUint64(&slot.sequence, pos+q.mask+1)
				return job, nil
			}
		case delta < 0:
			return nil, ErrQueueEmpty
		default:
			runtime.Gosched()
		}
	}
}
