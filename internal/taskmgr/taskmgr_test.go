package taskmgr

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTaskRunsActionExactlyOnce(t *testing.T) {
	m := New(4)
	var calls int32
	id := m.AddTask(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	ok := m.WaitForTasks(context.Background(), []TaskID{id})
	assert.True(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	status, found := m.GetStatus(id)
	require.True(t, found)
	assert.Equal(t, Successful, status)
}

func TestWaitForTasksReportsFailure(t *testing.T) {
	m := New(2)
	failID := m.AddTask(func(ctx context.Context) error {
		return assert.AnError
	})

	ok := m.WaitForTasks(context.Background(), []TaskID{failID})
	assert.False(t, ok)

	status, _ := m.GetStatus(failID)
	assert.Equal(t, Failed, status)
	assert.Equal(t, assert.AnError, m.Err(failID))
}

func TestWaitForIdle(t *testing.T) {
	m := New(3)
	var done int32
	for i := 0; i < 5; i++ {
		m.AddTask(func(ctx context.Context) error {
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&done, 1)
			return nil
		})
	}
	m.WaitForIdle()
	assert.Equal(t, int32(5), atomic.LoadInt32(&done))
}

// TestNestedWaitDoesNotDeadlock simulates depth-first job expansion with
// exactly one worker slot: the parent task's action itself calls
// WaitForTasks on a dependency task, which would deadlock a naive
// fixed-worker queue since nothing would ever free up a slot for the
// dependency to run.
func TestNestedWaitDoesNotDeadlock(t *testing.T) {
	m := New(1)

	var childRan int32
	var parentID TaskID
	parentID = m.AddTask(func(ctx context.Context) error {
		childID := m.AddTask(func(ctx context.Context) error {
			atomic.AddInt32(&childRan, 1)
			return nil
		})
		ok := m.WaitForTasks(ctx, []TaskID{childID})
		if !ok {
			return assert.AnError
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		m.WaitForTasks(context.Background(), []TaskID{parentID})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested wait deadlocked with a single worker slot")
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&childRan))
	status, _ := m.GetStatus(parentID)
	assert.Equal(t, Successful, status)
}

func TestConcurrencyBoundedByWorkers(t *testing.T) {
	m := New(2)
	var current, maxSeen int32
	ids := make([]TaskID, 0, 8)
	for i := 0; i < 8; i++ {
		ids = append(ids, m.AddTask(func(ctx context.Context) error {
			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&maxSeen)
				if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return nil
		}))
	}
	m.WaitForTasks(context.Background(), ids)
	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxSeen)), 2)
}
