package datastore

import "sync"

// taskQueue is an unbounded FIFO drained by a single worker goroutine.
//
// Submitters never block: a burst of writes is buffered in memory rather
// than applying backpressure to the host application.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{} // buffered, size 1
	done   chan struct{}

	onDepth func(int)
}

// newTaskQueue starts the worker. onDepth, when set, observes the queue
// length after every change.
func newTaskQueue(onDepth func(int)) *taskQueue {
	q := &taskQueue{
		tasks:   make([]func(), 0, 16),
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		onDepth: onDepth,
	}
	go q.run()
	return q
}

// submit appends a task. Returns false once the queue is closed.
func (q *taskQueue) submit(task func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, task)
	depth := len(q.tasks)
	q.notify()
	q.mu.Unlock()

	q.reportDepth(depth)
	return true
}

// close stops accepting tasks. Already queued tasks still run; done is
// closed after the last one finishes.
func (q *taskQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notify()
}

// notify must be called with mu held.
func (q *taskQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *taskQueue) run() {
	defer close(q.done)
	for {
		task, ok := q.next()
		if !ok {
			return
		}
		task()
	}
}

// next blocks until a task is available. It returns false when the queue
// is closed and drained.
func (q *taskQueue) next() (func(), bool) {
	q.mu.Lock()
	for len(q.tasks) == 0 {
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		q.mu.Unlock()
		<-q.signal
		q.mu.Lock()
	}

	task := q.tasks[0]
	q.tasks[0] = nil
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	depth := len(q.tasks)
	q.mu.Unlock()

	q.reportDepth(depth)
	return task, true
}

func (q *taskQueue) reportDepth(depth int) {
	if q.onDepth != nil {
		q.onDepth(depth)
	}
}
