package depgraph

import (
	"context"
	"sync"

	"github.com/levitation-build/levc/internal/taskmgr"
)

// OnNodeFn is the user-supplied per-node action driving depth-first job
// expansion: it is invoked only after every dependency of its node has
// already completed successfully.
type OnNodeFn func(ctx context.Context, id NodeID) error

// jobsContext deduplicates task creation across DFSJobs' recursive
// expansion: a node reached as a dependency of several parents must still
// yield exactly one task.
type jobsContext struct {
	mu    sync.Mutex
	tasks map[NodeID]taskmgr.TaskID
}

func (j *jobsContext) getOrCreateTask(tm *taskmgr.Manager, g *Graph, id NodeID, onNode OnNodeFn) taskmgr.TaskID {
	j.mu.Lock()
	if tid, ok := j.tasks[id]; ok {
		j.mu.Unlock()
		return tid
	}

	// The lock stays held across AddTask, which only registers the task
	// and starts its goroutine, so no second caller can create another
	// task for the same node.
	tid := tm.AddTask(func(ctx context.Context) error {
		return g.dfsJobsOnNode(tm, id, onNode, j, ctx)
	})

	j.tasks[id] = tid
	j.mu.Unlock()

	return tid
}

// dfsJobsOnNode ensures every dependency of id has completed before
// invoking onNode on id itself.
func (g *Graph) dfsJobsOnNode(tm *taskmgr.Manager, id NodeID, onNode OnNodeFn, j *jobsContext, ctx context.Context) error {
	deps := g.Dependencies(id)

	if len(deps) > 0 {
		depTaskIDs := make([]taskmgr.TaskID, 0, len(deps))
		for _, dep := range deps {
			depTaskIDs = append(depTaskIDs, j.getOrCreateTask(tm, g, dep, onNode))
		}
		if !tm.WaitForTasks(ctx, depTaskIDs) {
			return errDependencyFailed
		}
	}

	return onNode(ctx, id)
}

var errDependencyFailed = dependencyFailedError{}

type dependencyFailedError struct{}

func (dependencyFailedError) Error() string { return "depgraph: a dependency task failed" }

// DFSJobs runs onNode over every declaration terminal and transitively
// over every node it depends on, depth-first, deduplicating nodes shared
// by multiple parents so each one's action runs exactly once. It reports
// whether every task completed successfully.
func (g *Graph) DFSJobs(tm *taskmgr.Manager, onNode OnNodeFn) bool {
	j := &jobsContext{tasks: make(map[NodeID]taskmgr.TaskID)}

	terminals := g.DeclarationTerminals()
	ids := make([]taskmgr.TaskID, 0, len(terminals))
	for _, id := range terminals {
		ids = append(ids, j.getOrCreateTask(tm, g, id, onNode))
	}

	return tm.WaitForTasks(context.Background(), ids)
}
