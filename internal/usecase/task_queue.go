package usecase

import "github.com/ddong8/quant-future-sub001/internal/domain"

// schedTask couples a task record with its config and, once dispatched, its
// engine. Mutated only under the scheduler's lock.
type schedTask struct {
	task   *domain.Task
	cfg    *domain.BacktestConfig
	engine *Engine

	// seq is assigned at submission and survives pause/resume and retry
	// re-insertion, preserving strict FIFO within a priority band.
	seq   uint64
	index int // heap index, -1 when not queued
}

// taskQueue is a max-heap keyed by (priority desc, seq asc). It implements
// container/heap.Interface.
type taskQueue []*schedTask

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].task.Priority != q[j].task.Priority {
		return q[i].task.Priority > q[j].task.Priority
	}
	return q[i].seq < q[j].seq
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	st := x.(*schedTask)
	st.index = len(*q)
	*q = append(*q, st)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	st := old[n-1]
	old[n-1] = nil
	st.index = -1
	*q = old[:n-1]
	return st
}
