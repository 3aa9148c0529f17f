package usecase

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ddong8/quant-future-sub001/internal/domain"
)

// estimatedStepCost is the per-(step,symbol) cost used for the rough
// duration estimate attached to new tasks.
const estimatedStepCost = 200 * time.Microsecond

// SchedulerConfig bounds the scheduler.
type SchedulerConfig struct {
	MaxConcurrentTasks int
	MaxRetries         int
}

// Scheduler owns the lifecycle of backtest tasks: a priority queue of
// pending work, a bounded set of concurrently running engines, and the
// terminal sets. One dispatch goroutine pops ready tasks when a slot frees
// up; every engine runs on its own goroutine. All task state is guarded by a
// single mutex with condition-variable signalling, no polling.
//
// The scheduler imposes no timeouts: a hung signal generator or data
// provider stalls one slot indefinitely. Known limitation.
type Scheduler struct {
	cfg      SchedulerConfig
	data     domain.MarketDataProvider
	resolver domain.SignalGeneratorResolver
	notifier domain.Notifier
	sink     domain.ResultSink
	logger   *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending taskQueue
	tasks   map[string]*schedTask // every task ever submitted, by id
	active  map[string]*schedTask // running + paused-while-running (slot holders)
	nextSeq uint64
	closed  bool

	wg sync.WaitGroup
}

func NewScheduler(
	cfg SchedulerConfig,
	data domain.MarketDataProvider,
	resolver domain.SignalGeneratorResolver,
	notifier domain.Notifier,
	sink domain.ResultSink,
	logger *zap.Logger,
) *Scheduler {
	if cfg.MaxConcurrentTasks <= 0 {
		cfg.MaxConcurrentTasks = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	s := &Scheduler{
		cfg:      cfg,
		data:     data,
		resolver: resolver,
		notifier: notifier,
		sink:     sink,
		logger:   logger,
		tasks:    make(map[string]*schedTask),
		active:   make(map[string]*schedTask),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start launches the dispatch loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.dispatchLoop()
	s.logger.Info("scheduler started",
		zap.Int("max_concurrent_tasks", s.cfg.MaxConcurrentTasks),
		zap.Int("max_retries", s.cfg.MaxRetries),
	)
}

// Stop cancels every non-terminal task and waits for running engines and
// the dispatch loop to wind down.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.closed = true
	for s.pending.Len() > 0 {
		st := heap.Pop(&s.pending).(*schedTask)
		s.finishLocked(st, domain.TaskCancelled, "")
	}
	for _, st := range s.tasks {
		if st.engine != nil && !st.task.Status.Terminal() {
			st.engine.Cancel()
		}
	}
	s.cond.Broadcast()
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Submit validates the config, guards against duplicate non-terminal tasks
// for the same backtest, and enqueues a new task at the given priority.
func (s *Scheduler) Submit(cfg *domain.BacktestConfig, priority domain.TaskPriority) (*domain.Task, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("scheduler stopped")
	}
	for _, st := range s.tasks {
		if st.cfg.ID == cfg.ID && !st.task.Status.Terminal() {
			return nil, fmt.Errorf("%w: backtest %s has task %s in state %s",
				domain.ErrDuplicateTask, cfg.ID, st.task.ID, st.task.Status)
		}
	}

	task := &domain.Task{
		ID:         uuid.NewString(),
		BacktestID: cfg.ID,
		Priority:   priority,
		Status:     domain.TaskPending,
		CreatedAt:  time.Now(),
		MaxRetries: s.cfg.MaxRetries,
		Estimated:  time.Duration(cfg.TotalSteps()*len(cfg.Symbols)) * estimatedStepCost,
	}
	st := &schedTask{task: task, cfg: cfg, seq: s.nextSeq, index: -1}
	s.nextSeq++
	s.tasks[task.ID] = st
	heap.Push(&s.pending, st)
	s.cond.Signal()

	s.logger.Info("task submitted",
		zap.String("task_id", task.ID),
		zap.String("backtest_id", cfg.ID),
		zap.String("priority", priority.String()),
	)
	return cloneTask(task), nil
}

// Status returns a copy of the task record.
func (s *Scheduler) Status(taskID string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	s.syncProgressLocked(st)
	return cloneTask(st.task), nil
}

// List returns copies of all tasks, newest first, optionally filtered by
// status.
func (s *Scheduler) List(status domain.TaskStatus) []*domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Task, 0, len(s.tasks))
	for _, st := range s.tasks {
		if status != "" && st.task.Status != status {
			continue
		}
		s.syncProgressLocked(st)
		out = append(out, cloneTask(st.task))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Pause suspends a task. A pending task leaves the queue; a running task's
// engine blocks at its next step boundary and keeps holding its concurrency
// slot until resumed or cancelled. Idempotent on already-paused tasks.
func (s *Scheduler) Pause(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[taskID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	switch st.task.Status {
	case domain.TaskPending:
		heap.Remove(&s.pending, st.index)
		st.task.Status = domain.TaskPaused
	case domain.TaskRunning:
		st.engine.Pause()
		st.task.Status = domain.TaskPaused
	case domain.TaskPaused:
		// Already paused.
	default:
		return fmt.Errorf("%w: cannot pause task in state %s", domain.ErrInvalidAction, st.task.Status)
	}
	return nil
}

// Resume undoes a pause: a parked pending task re-enters the queue with its
// original priority and submission order; a paused engine continues at the
// step it stopped on.
func (s *Scheduler) Resume(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[taskID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	switch st.task.Status {
	case domain.TaskPaused:
		if st.engine != nil {
			st.engine.Resume()
			st.task.Status = domain.TaskRunning
		} else {
			st.task.Status = domain.TaskPending
			heap.Push(&s.pending, st)
			s.cond.Signal()
		}
	case domain.TaskPending, domain.TaskRunning:
		// Nothing to resume.
	default:
		return fmt.Errorf("%w: cannot resume task in state %s", domain.ErrInvalidAction, st.task.Status)
	}
	return nil
}

// Cancel is effective in every non-terminal state: pending tasks leave the
// queue immediately, running engines stop cooperatively at the next step
// boundary, paused tasks wake up and stop.
func (s *Scheduler) Cancel(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[taskID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	switch st.task.Status {
	case domain.TaskPending:
		heap.Remove(&s.pending, st.index)
		s.finishLocked(st, domain.TaskCancelled, "")
	case domain.TaskRunning, domain.TaskPaused:
		if st.engine == nil {
			// Paused before it ever started.
			s.finishLocked(st, domain.TaskCancelled, "")
			break
		}
		st.engine.Cancel()
	default:
		return fmt.Errorf("%w: task already in terminal state %s", domain.ErrInvalidAction, st.task.Status)
	}
	return nil
}

// Restart re-enqueues a terminal task: retry count, error and progress are
// reset, priority and submission identity are kept.
func (s *Scheduler) Restart(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[taskID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if !st.task.Status.Terminal() {
		return fmt.Errorf("%w: cannot restart task in state %s", domain.ErrInvalidAction, st.task.Status)
	}
	for _, other := range s.tasks {
		if other != st && other.cfg.ID == st.cfg.ID && !other.task.Status.Terminal() {
			return fmt.Errorf("%w: backtest %s has task %s in state %s",
				domain.ErrDuplicateTask, st.cfg.ID, other.task.ID, other.task.Status)
		}
	}
	st.task.Status = domain.TaskPending
	st.task.Progress = 0
	st.task.RetryCount = 0
	st.task.Error = ""
	st.task.StartedAt = time.Time{}
	st.task.CompletedAt = time.Time{}
	st.engine = nil
	st.seq = s.nextSeq
	s.nextSeq++
	heap.Push(&s.pending, st)
	s.cond.Signal()
	return nil
}

// QueueStats counts tasks per state.
func (s *Scheduler) QueueStats() domain.QueueStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats domain.QueueStats
	for _, st := range s.tasks {
		switch st.task.Status {
		case domain.TaskPending:
			stats.Pending++
		case domain.TaskRunning:
			stats.Running++
		case domain.TaskPaused:
			stats.Paused++
		case domain.TaskCompleted:
			stats.Completed++
		case domain.TaskFailed:
			stats.Failed++
		case domain.TaskCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// dispatchLoop pops the highest-priority pending task whenever a slot is
// free. Paused engines keep their slot, so capacity counts every active
// engine, not just running ones.
func (s *Scheduler) dispatchLoop() {
	defer s.wg.Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		for !s.closed && (s.pending.Len() == 0 || len(s.active) >= s.cfg.MaxConcurrentTasks) {
			s.cond.Wait()
		}
		if s.closed {
			return
		}

		st := heap.Pop(&s.pending).(*schedTask)
		st.task.Status = domain.TaskRunning
		st.task.StartedAt = time.Now()
		st.engine = NewEngine(st.cfg, s.resolver, s.data, s.logger)
		taskID := st.task.ID
		st.engine.SetProgressFunc(func(pct float64) {
			s.publishProgress(taskID, pct)
		})
		s.active[taskID] = st

		s.wg.Add(1)
		go s.runTask(st)
	}
}

// runTask executes one engine to a terminal state and applies the retry
// policy. Engine failures surface only through the task record; nothing
// escapes this goroutine.
func (s *Scheduler) runTask(st *schedTask) {
	defer s.wg.Done()
	report, err := st.engine.Run(context.Background())

	s.mu.Lock()
	delete(s.active, st.task.ID)
	taskID := st.task.ID
	backtestID := st.cfg.ID

	var retryCount int
	switch {
	case err == nil:
		st.task.Progress = 100
		s.finishLocked(st, domain.TaskCompleted, "")
	case errors.Is(err, domain.ErrCancelled):
		s.finishLocked(st, domain.TaskCancelled, "")
	default:
		st.task.Error = err.Error()
		if st.task.RetryCount < st.task.MaxRetries {
			st.task.RetryCount++
			retryCount = st.task.RetryCount
			st.task.Status = domain.TaskPending
			st.task.Progress = 0
			st.engine = nil
			heap.Push(&s.pending, st)
			s.logger.Warn("task failed, retrying",
				zap.String("task_id", taskID),
				zap.Int("retry_count", retryCount),
				zap.Int("max_retries", st.task.MaxRetries),
				zap.Error(err),
			)
		} else {
			retryCount = st.task.RetryCount
			s.finishLocked(st, domain.TaskFailed, err.Error())
		}
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	// Notifications and persistence happen outside the lock; both are
	// best-effort and must not disturb task state.
	switch {
	case err == nil:
		if s.sink != nil {
			if serr := s.sink.SaveReport(context.Background(), backtestID, report); serr != nil {
				s.logger.Error("failed to persist report",
					zap.String("backtest_id", backtestID), zap.Error(serr))
			}
		}
		if s.notifier != nil {
			s.notifier.OnCompleted(taskID, report)
		}
	case errors.Is(err, domain.ErrCancelled):
		// No notification beyond the status change.
	default:
		if s.notifier != nil {
			s.notifier.OnFailed(taskID, err.Error(), retryCount)
		}
	}
}

// finishLocked moves a task into a terminal state. Terminal tasks are never
// mutated again.
func (s *Scheduler) finishLocked(st *schedTask, status domain.TaskStatus, errMsg string) {
	st.task.Status = status
	st.task.CompletedAt = time.Now()
	if !st.task.StartedAt.IsZero() {
		st.task.Actual = st.task.CompletedAt.Sub(st.task.StartedAt)
	}
	if errMsg != "" {
		st.task.Error = errMsg
	}
	s.logger.Info("task finished",
		zap.String("task_id", st.task.ID),
		zap.String("backtest_id", st.cfg.ID),
		zap.String("status", string(status)),
	)
}

func (s *Scheduler) publishProgress(taskID string, pct float64) {
	s.mu.Lock()
	st, ok := s.tasks[taskID]
	var status domain.TaskStatus
	if ok {
		st.task.Progress = pct
		status = st.task.Status
	}
	s.mu.Unlock()
	if ok && s.notifier != nil {
		s.notifier.OnProgress(taskID, pct, status)
	}
}

// syncProgressLocked pulls the live engine progress into the task record.
func (s *Scheduler) syncProgressLocked(st *schedTask) {
	if st.engine != nil && !st.task.Status.Terminal() {
		st.task.Progress = st.engine.Progress()
	}
}

func cloneTask(t *domain.Task) *domain.Task {
	c := *t
	return &c
}
