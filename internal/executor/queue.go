package executor

import (
	"sync"
)

// workQueue is a FIFO of jobs with deduplication. A job that is being
// processed is never handed out again until Done is called for it; adding it
// in the meantime marks it dirty so it is re-queued by Done.
type workQueue struct {
	mu sync.Mutex

	// queue holds jobs in FIFO order
	queue []Job

	// queued tracks jobs currently waiting in queue
	queued map[Job]bool

	// processing tracks jobs currently being processed
	processing map[Job]bool

	// dirty tracks jobs that were added while being processed
	dirty map[Job]bool

	// cond is used for blocking Get operations
	cond *sync.Cond

	// shuttingDown indicates the queue is stopping
	shuttingDown bool
}

func newWorkQueue() *workQueue {
	q := &workQueue{
		queued:     make(map[Job]bool),
		processing: make(map[Job]bool),
		dirty:      make(map[Job]bool),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add enqueues job unless it is already waiting. It never blocks.
func (q *workQueue) Add(job Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shuttingDown {
		return false
	}

	// If already being processed, mark as dirty for reprocessing
	if q.processing[job] {
		q.dirty[job] = true
		return true
	}

	if q.queued[job] {
		return true
	}

	q.queue = append(q.queue, job)
	q.queued[job] = true
	q.cond.Signal()
	return true
}

// Get retrieves the next job, blocking until one is available. The second
// result is false once the queue is shut down and drained.
func (q *workQueue) Get() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.queue) == 0 && !q.shuttingDown {
		q.cond.Wait()
	}

	if len(q.queue) == 0 {
		return nil, false
	}

	job := q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]
	delete(q.queued, job)
	q.processing[job] = true

	return job, true
}

// Done marks a job as no longer being processed.
func (q *workQueue) Done(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.processing, job)

	// Check if marked dirty during processing
	if q.dirty[job] {
		delete(q.dirty, job)
		if q.shuttingDown {
			return
		}
		q.queue = append(q.queue, job)
		q.queued[job] = true
		q.cond.Signal()
	}
}

// Len returns the number of waiting jobs.
func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Shutdown stops accepting jobs and wakes all waiting workers. Jobs already
// queued are still handed out.
func (q *workQueue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shuttingDown = true
	q.cond.Broadcast()
}
