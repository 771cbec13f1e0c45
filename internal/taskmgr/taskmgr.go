// Package taskmgr implements a fixed-size worker pool with task
// deduplication support and join-set waiting (spec component C6).
package taskmgr

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// TaskID identifies a task for the lifetime of a Manager.
type TaskID = uuid.UUID

// Status is a task's position in its {Registered, Executing, Successful,
// Failed} lifecycle. No other transitions are possible once a task is
// added.
type Status int32

const (
	Registered Status = iota
	Executing
	Successful
	Failed
)

func (s Status) String() string {
	switch s {
	case Registered:
		return "Registered"
	case Executing:
		return "Executing"
	case Successful:
		return "Successful"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// ActionFn is a task's body. ctx carries the Manager's slot-release hook,
// so an ActionFn that itself calls WaitForTasks correctly frees its
// worker slot for the duration of the wait.
type ActionFn func(ctx context.Context) error

type task struct {
	id     TaskID
	status atomic.Int32
	done   chan struct{}
	err    error
}

func (t *task) Status() Status { return Status(t.status.Load()) }

// Manager is a bounded-concurrency task executor. The pool size is fixed
// at construction; tasks are dispatched to unbounded goroutines gated by
// a weighted semaphore, so a task blocked waiting on other tasks never
// occupies a fixed OS-thread "worker" the way a classic worker-pool queue
// would — see slotHandle below for how nested waits avoid deadlocking on
// that semaphore instead.
type Manager struct {
	sem *semaphore.Weighted

	mu      sync.Mutex
	tasks   map[TaskID]*task
	pending sync.WaitGroup
}

// New returns a Manager bounding concurrent task execution to workers.
func New(workers int) *Manager {
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		sem:   semaphore.NewWeighted(int64(workers)),
		tasks: make(map[TaskID]*task),
	}
}

type slotKeyType struct{}

var slotKey slotKeyType

// slotHandle lets a running task's ActionFn give up its worker slot while
// it blocks in WaitForTasks, and reclaim one afterward.
type slotHandle struct {
	m *Manager
}

func (h *slotHandle) release() { h.m.sem.Release(1) }

func (h *slotHandle) reacquire(ctx context.Context) {
	// Best effort: if the context is already done we still need a slot to
	// keep running, so fall back to Background rather than wedge the
	// caller with a canceled Acquire.
	if err := h.m.sem.Acquire(ctx, 1); err != nil {
		h.m.sem.Acquire(context.Background(), 1)
	}
}

// AddTask enqueues action and returns immediately with its TaskID. The
// action is guaranteed to run at most once.
func (m *Manager) AddTask(action ActionFn) TaskID {
	t := &task{id: uuid.New(), done: make(chan struct{})}
	t.status.Store(int32(Registered))

	m.mu.Lock()
	m.tasks[t.id] = t
	m.mu.Unlock()

	m.pending.Add(1)
	go m.run(t, action)

	return t.id
}

// RunTask is semantically equivalent to AddTask at this layer; callers
// that intend synchronous consumption should immediately WaitForTasks on
// the returned ID.
func (m *Manager) RunTask(action ActionFn) TaskID { return m.AddTask(action) }

func (m *Manager) run(t *task, action ActionFn) {
	defer m.pending.Done()
	defer close(t.done)

	ctx := context.WithValue(context.Background(), slotKey, &slotHandle{m: m})

	if err := m.sem.Acquire(ctx, 1); err != nil {
		t.err = err
		t.status.Store(int32(Failed))
		return
	}

	t.status.Store(int32(Executing))
	err := action(ctx)
	m.sem.Release(1)

	if err != nil {
		t.err = err
		t.status.Store(int32(Failed))
	} else {
		t.status.Store(int32(Successful))
	}
}

// WaitForTasks blocks until every task in ids has left the pool with
// Successful or Failed, returning the conjunction of their successes. If
// ctx was produced by a currently executing ActionFn, this call
// temporarily releases that task's worker slot for the duration of the
// wait — this is what lets dependency tasks make progress when the pool
// has no free slots, avoiding the deadlock a naive blocking wait would
// hit under nested depth-first job expansion.
func (m *Manager) WaitForTasks(ctx context.Context, ids []TaskID) bool {
	if h, ok := ctx.Value(slotKey).(*slotHandle); ok {
		h.release()
		defer h.reacquire(context.Background())
	}

	m.mu.Lock()
	waiting := make([]*task, 0, len(ids))
	for _, id := range ids {
		if t, ok := m.tasks[id]; ok {
			waiting = append(waiting, t)
		}
	}
	m.mu.Unlock()

	ok := true
	for _, t := range waiting {
		<-t.done
		if t.Status() != Successful {
			ok = false
		}
	}
	return ok
}

// WaitForIdle blocks until no task is Registered or Executing.
func (m *Manager) WaitForIdle() {
	m.pending.Wait()
}

// GetStatus reports the current status of id, if known.
func (m *Manager) GetStatus(id TaskID) (Status, bool) {
	m.mu.Lock()
	t, ok := m.tasks[id]
	m.mu.Unlock()
	if !ok {
		return 0, false
	}
	return t.Status(), true
}

// Err returns the error a failed task's action returned, if any.
func (m *Manager) Err(id TaskID) error {
	m.mu.Lock()
	t, ok := m.tasks[id]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	<-t.done
	return t.err
}
