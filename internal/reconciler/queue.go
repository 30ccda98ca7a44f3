package reconciler

import (
	"context"
	"sync"
	"time"
)

// syncQueue implements SyncQueue with per-feed deduplication.
//
// A feed is never handed to two workers at once: a request added while the
// same feed is being processed is parked and re-queued on Done.
type syncQueue struct {
	mu sync.Mutex

	// pending holds requests in FIFO order
	pending []SyncRequest

	// processing tracks feeds currently handed out
	processing map[string]bool

	// dirty holds requests that arrived while their feed was processing
	dirty map[string]SyncRequest

	cond *sync.Cond

	shuttingDown bool
}

// NewQueue creates a new sync queue.
func NewQueue() SyncQueue {
	q := &syncQueue{
		processing: make(map[string]bool),
		dirty:      make(map[string]SyncRequest),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add adds or replaces the pending request for a feed.
func (q *syncQueue) Add(req SyncRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shuttingDown {
		return
	}

	if q.processing[req.Feed] {
		q.dirty[req.Feed] = req
		return
	}

	for i, existing := range q.pending {
		if existing.Feed == req.Feed {
			q.pending[i] = req
			return
		}
	}

	q.pending = append(q.pending, req)
	q.cond.Signal()
}

// Get blocks until a request is available, the queue shuts down or ctx ends.
func (q *syncQueue) Get(ctx context.Context) (SyncRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) == 0 && !q.shuttingDown {
		if ctx.Err() != nil {
			return SyncRequest{}, false
		}

		// Wake the Wait below when ctx ends. done releases the goroutine on a
		// normal wakeup.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				q.mu.Lock()
				q.cond.Broadcast()
				q.mu.Unlock()
			case <-done:
			}
		}()

		q.cond.Wait()
		close(done)

		if ctx.Err() != nil {
			return SyncRequest{}, false
		}
	}

	if q.shuttingDown && len(q.pending) == 0 {
		return SyncRequest{}, false
	}

	req := q.pending[0]
	q.pending = q.pending[1:]
	q.processing[req.Feed] = true

	return req, true
}

// Done releases a feed and re-queues any request parked meanwhile.
func (q *syncQueue) Done(req SyncRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.processing, req.Feed)

	if parked, ok := q.dirty[req.Feed]; ok {
		delete(q.dirty, req.Feed)
		q.pending = append(q.pending, parked)
		q.cond.Signal()
	}
}

// Len returns the number of pending requests.
func (q *syncQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Shutdown stops the queue and wakes all waiting workers.
func (q *syncQueue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shuttingDown = true
	q.cond.Broadcast()
}

// delayedQueue adds timer-based requeueing on top of a SyncQueue.
type delayedQueue struct {
	queue   SyncQueue
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopCh  chan struct{}
	stopped bool
}

// NewDelayedQueue creates a queue that supports delayed requeueing.
func NewDelayedQueue() *delayedQueue {
	return &delayedQueue{
		queue:  NewQueue(),
		timers: make(map[string]*time.Timer),
		stopCh: make(chan struct{}),
	}
}

// Add adds a request immediately.
func (d *delayedQueue) Add(req SyncRequest) {
	d.queue.Add(req)
}

// AddAfter adds a request once delay has elapsed. A newer AddAfter for the
// same feed replaces the pending timer.
func (d *delayedQueue) AddAfter(req SyncRequest, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if timer, ok := d.timers[req.Feed]; ok {
		timer.Stop()
	}

	d.timers[req.Feed] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, req.Feed)
		d.mu.Unlock()

		select {
		case <-d.stopCh:
			return
		default:
			d.queue.Add(req)
		}
	})
}

// Get retrieves the next request.
func (d *delayedQueue) Get(ctx context.Context) (SyncRequest, bool) {
	return d.queue.Get(ctx)
}

// Done marks a request as completed.
func (d *delayedQueue) Done(req SyncRequest) {
	d.queue.Done(req)
}

// Len returns the number of requests ready to be processed.
func (d *delayedQueue) Len() int {
	return d.queue.Len()
}

// Delayed returns the number of requests waiting on a timer.
func (d *delayedQueue) Delayed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Shutdown stops the queue and cancels pending timers.
func (d *delayedQueue) Shutdown() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.stopCh)
	for _, timer := range d.timers {
		timer.Stop()
	}
	d.timers = make(map[string]*time.Timer)
	d.mu.Unlock()

	d.queue.Shutdown()
}
