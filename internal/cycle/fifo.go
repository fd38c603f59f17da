package cycle

import (
	"sync"

	"github.com/normanking/alann/internal/task"
)

// taskFIFO is the input-task buffer: a plain FIFO queue, distinct from the
// priority-ordered cycling-task container. Input tasks are always
// consumed in arrival order before the cycle falls back to priority
// selection from cyclingTasks.
type taskFIFO struct {
	mu    sync.Mutex
	items []*task.Task
}

func (f *taskFIFO) PushBack(t *task.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, t)
}

func (f *taskFIFO) PopFront() (*task.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) == 0 {
		return nil, false
	}
	t := f.items[0]
	f.items = f.items[1:]
	return t, true
}

func (f *taskFIFO) IsEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items) == 0
}

func (f *taskFIFO) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func (f *taskFIFO) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
}

// Snapshot returns a copy of the queue in arrival order, for
// internal/snapshot to persist without disturbing PopFront order.
func (f *taskFIFO) Snapshot() []*task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*task.Task, len(f.items))
	copy(out, f.items)
	return out
}
