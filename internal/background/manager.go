package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"socialprobe/internal/analysis"
	"socialprobe/internal/config"
	"socialprobe/internal/logging"
	"socialprobe/internal/logging/types"
	"socialprobe/internal/pipeline"
)

// Task manager configuration constants
const (
	// Default configuration values
	DefaultMaxWorkers   = 10
	DefaultMaxQueueSize = 100

	// Minimum configuration values to prevent misconfiguration
	MinWorkers   = 1
	MinQueueSize = 1

	// Maximum configuration values for safety
	MaxWorkers   = 1000
	MaxQueueSize = 10000

	storeTimeout  = 5 * time.Second
	notifyTimeout = 30 * time.Second
)

// Analyzer runs one profile analysis
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Outcome, error)
}

// TaskManager defines the interface for managing background tasks
type TaskManager interface {
	// Start starts the task manager
	Start(ctx context.Context) error

	// Stop stops the task manager gracefully
	Stop(ctx context.Context) error

	// SubmitAnalyzeTask submits a profile analysis for background processing
	SubmitAnalyzeTask(ctx context.Context, processID string, req analysis.Request) error

	// GetTaskResult retrieves the result of a task by process ID
	GetTaskResult(ctx context.Context, processID string) (*TaskResult, error)

	// GetTaskStatus retrieves the status of a task by process ID
	GetTaskStatus(ctx context.Context, processID string) (TaskStatus, error)

	// ListTasks lists all known tasks (for monitoring)
	ListTasks(ctx context.Context) ([]*TaskResult, error)

	// IsHealthy checks if the task manager is healthy
	IsHealthy() bool
}

// TaskManagerImpl implements the TaskManager interface
type TaskManagerImpl struct {
	analyzer        Analyzer
	store           TaskStore
	logger          *TaskCompletionLogger
	appLogger       types.Logger
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.RWMutex
	running         bool
	taskChan        chan *TaskExecution
	maxWorkers      int
	maxQueueSize    int
	taskTimeout     time.Duration
	cleanupInterval time.Duration
	maxTaskAge      time.Duration
	notifier        Notifier
}

// Notifier receives every task that reaches a terminal state
type Notifier interface {
	Notify(ctx context.Context, result *TaskResult) error
}

// TaskExecution represents a task execution context
type TaskExecution struct {
	ProcessID   string
	Type        TaskType
	ExecuteFunc func(context.Context) (*AnalyzeTaskData, error)
}

// validateTaskManagerConfig validates and returns safe configuration values
func validateTaskManagerConfig(cfg *config.Config) (maxWorkers, maxQueueSize int, err error) {
	maxWorkers = cfg.BackgroundTasks.MaxConcurrentTasks
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	} else if maxWorkers < MinWorkers {
		return 0, 0, fmt.Errorf("worker pool size (%d) is below minimum (%d)", maxWorkers, MinWorkers)
	} else if maxWorkers > MaxWorkers {
		return 0, 0, fmt.Errorf("worker pool size (%d) exceeds maximum (%d)", maxWorkers, MaxWorkers)
	}

	maxQueueSize = cfg.BackgroundTasks.QueueSize
	if maxQueueSize <= 0 {
		maxQueueSize = DefaultMaxQueueSize
	} else if maxQueueSize < MinQueueSize {
		return 0, 0, fmt.Errorf("queue size (%d) is below minimum (%d)", maxQueueSize, MinQueueSize)
	} else if maxQueueSize > MaxQueueSize {
		return 0, 0, fmt.Errorf("queue size (%d) exceeds maximum (%d)", maxQueueSize, MaxQueueSize)
	}

	return maxWorkers, maxQueueSize, nil
}

// NewTaskManager creates a new task manager. A nil store selects the in-memory store.
func NewTaskManager(cfg *config.Config, analyzer Analyzer, store TaskStore, logger types.Logger) *TaskManagerImpl {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger = logger.WithField("component", "task_manager")
	if store == nil {
		store = NewInMemoryTaskStore()
	}

	maxWorkers, maxQueueSize, err := validateTaskManagerConfig(cfg)
	if err != nil {
		logger.Warn("Task manager configuration validation failed, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		maxWorkers = DefaultMaxWorkers
		maxQueueSize = DefaultMaxQueueSize
	}

	logger.Info("Task manager configuration initialized", map[string]interface{}{
		"max_workers":    maxWorkers,
		"max_queue_size": maxQueueSize,
		"using_defaults": err != nil,
	})

	cleanupInterval := cfg.BackgroundTasks.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}
	maxTaskAge := cfg.BackgroundTasks.MaxTaskAge
	if maxTaskAge <= 0 {
		maxTaskAge = 24 * time.Hour
	}

	return &TaskManagerImpl{
		analyzer:        analyzer,
		store:           store,
		logger:          NewTaskCompletionLogger(logger),
		appLogger:       logger,
		maxWorkers:      maxWorkers,
		maxQueueSize:    maxQueueSize,
		taskTimeout:     cfg.BackgroundTasks.TaskTimeout,
		cleanupInterval: cleanupInterval,
		maxTaskAge:      maxTaskAge,
	}
}

// Start starts the task manager
func (tm *TaskManagerImpl) Start(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.running {
		return fmt.Errorf("task manager already running")
	}

	tm.ctx, tm.cancel = context.WithCancel(ctx)
	tm.taskChan = make(chan *TaskExecution, tm.maxQueueSize)
	tm.running = true

	for i := 0; i < tm.maxWorkers; i++ {
		tm.wg.Add(1)
		go tm.worker(i)
	}

	tm.wg.Add(1)
	go tm.cleanupRoutine()

	tm.appLogger.Info("Task manager started", map[string]interface{}{
		"max_workers": tm.maxWorkers,
	})
	return nil
}

// Stop stops the task manager gracefully. Queued tasks that no worker picked
// up stay ACCEPTED in the store.
func (tm *TaskManagerImpl) Stop(ctx context.Context) error {
	tm.mu.Lock()
	if !tm.running {
		tm.mu.Unlock()
		return nil
	}

	tm.appLogger.Info("Stopping task manager...", nil)

	tm.cancel()
	close(tm.taskChan)
	tm.running = false
	tm.mu.Unlock()

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		tm.appLogger.Info("Task manager stopped gracefully", nil)
	case <-ctx.Done():
		tm.appLogger.Warn("Task manager shutdown timed out", nil)
		return ctx.Err()
	}

	return nil
}

// SubmitAnalyzeTask submits a profile analysis for background processing
func (tm *TaskManagerImpl) SubmitAnalyzeTask(ctx context.Context, processID string, req analysis.Request) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	if !tm.running || tm.ctx.Err() != nil {
		return ErrNotRunning
	}

	result := &TaskResult{
		ProcessID: processID,
		Type:      TaskTypeAnalyze,
		Status:    TaskStatusAccepted,
		CreatedAt: time.Now(),
		Metadata: map[string]interface{}{
			"handle": req.Handle,
		},
	}
	if len(req.Providers) > 0 {
		result.Metadata["providers"] = req.Providers
	}

	if err := tm.store.Store(ctx, result); err != nil {
		return fmt.Errorf("failed to store task result: %w", err)
	}

	execution := &TaskExecution{
		ProcessID: processID,
		Type:      TaskTypeAnalyze,
		ExecuteFunc: func(execCtx context.Context) (*AnalyzeTaskData, error) {
			return tm.executeAnalyzeTask(execCtx, req)
		},
	}

	select {
	case tm.taskChan <- execution:
		tm.logger.LogTaskAccepted(processID, TaskTypeAnalyze)
		return nil
	case <-ctx.Done():
		tm.discard(processID)
		return ctx.Err()
	default:
		tm.discard(processID)
		return ErrQueueFull
	}
}

// GetTaskResult retrieves the result of a task by process ID
func (tm *TaskManagerImpl) GetTaskResult(ctx context.Context, processID string) (*TaskResult, error) {
	return tm.store.Get(ctx, processID)
}

// GetTaskStatus retrieves the status of a task by process ID
func (tm *TaskManagerImpl) GetTaskStatus(ctx context.Context, processID string) (TaskStatus, error) {
	result, err := tm.store.Get(ctx, processID)
	if err != nil {
		return "", err
	}
	return result.Status, nil
}

// ListTasks lists all known tasks (for monitoring)
func (tm *TaskManagerImpl) ListTasks(ctx context.Context) ([]*TaskResult, error) {
	return tm.store.List(ctx)
}

// IsHealthy checks if the task manager is healthy
func (tm *TaskManagerImpl) IsHealthy() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.running && tm.ctx.Err() == nil
}

// worker processes tasks from the task channel
func (tm *TaskManagerImpl) worker(workerID int) {
	defer tm.wg.Done()

	for {
		select {
		case <-tm.ctx.Done():
			return
		case task, ok := <-tm.taskChan:
			if !ok {
				return
			}
			tm.processTask(workerID, task)
		}
	}
}

// processTask runs one task and persists its terminal state
func (tm *TaskManagerImpl) processTask(workerID int, task *TaskExecution) {
	startTime := time.Now()

	if err := tm.updateTaskStatus(task.ProcessID, TaskStatusProcessing); err != nil {
		tm.appLogger.Error("Failed to update task status to processing", map[string]interface{}{
			"process_id": task.ProcessID,
			"error":      err.Error(),
		})
	}
	tm.logger.LogTaskStart(task.ProcessID, task.Type)

	execCtx, cancel := tm.taskContext()
	data, err := task.ExecuteFunc(execCtx)
	cancel()
	processingTime := time.Since(startTime)

	result, getErr := tm.getStored(task.ProcessID)
	if getErr != nil {
		tm.appLogger.Error("Failed to retrieve task result for completion", map[string]interface{}{
			"process_id": task.ProcessID,
			"error":      getErr.Error(),
		})
		return
	}

	result.ProcessingTime = &processingTime
	completedAt := time.Now()
	result.CompletedAt = &completedAt
	result.Data = data

	if err != nil {
		result.Status = TaskStatusFailure
		result.Error = err.Error()
		result.ErrorClass = errorClass(err)
		tm.logger.LogTaskError(task.ProcessID, task.Type, err)
	} else {
		result.Status = TaskStatusSuccess
		tm.logger.LogTaskSuccess(task.ProcessID, task.Type, processingTime)
	}

	tm.appLogger.Debug("Task finished", map[string]interface{}{
		"worker_id":  workerID,
		"process_id": task.ProcessID,
		"status":     result.Status,
	})

	ctx, cancelStore := context.WithTimeout(context.Background(), storeTimeout)
	defer cancelStore()
	if err := tm.store.Update(ctx, result); err != nil {
		tm.appLogger.Error("Failed to store task result", map[string]interface{}{
			"process_id": task.ProcessID,
			"error":      err.Error(),
		})
	}

	if err := tm.logger.LogTaskCompletion(result); err != nil {
		tm.appLogger.Error("Failed to log task completion", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if tm.notifier != nil {
		notifyCtx, cancelNotify := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancelNotify()
		if err := tm.notifier.Notify(notifyCtx, result.clone()); err != nil {
			tm.appLogger.Warn("Task completion notification failed", map[string]interface{}{
				"process_id": task.ProcessID,
				"error":      err.Error(),
			})
		}
	}
}

// SetNotifier registers a completion notifier. Call it before Start.
func (tm *TaskManagerImpl) SetNotifier(n Notifier) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.notifier = n
}

// executeAnalyzeTask runs the analysis. Failed chains still report their attempts.
func (tm *TaskManagerImpl) executeAnalyzeTask(ctx context.Context, req analysis.Request) (*AnalyzeTaskData, error) {
	outcome, err := tm.analyzer.Analyze(ctx, req)
	if err != nil {
		var failed *pipeline.AllProvidersFailedError
		if errors.As(err, &failed) {
			return &AnalyzeTaskData{Attempts: failed.Attempts}, err
		}
		return nil, err
	}

	return &AnalyzeTaskData{
		Account:  outcome.Account,
		Attempts: outcome.Attempts,
		Cached:   outcome.Cached,
	}, nil
}

func (tm *TaskManagerImpl) taskContext() (context.Context, context.CancelFunc) {
	if tm.taskTimeout > 0 {
		return context.WithTimeout(tm.ctx, tm.taskTimeout)
	}
	return context.WithCancel(tm.ctx)
}

func (tm *TaskManagerImpl) getStored(processID string) (*TaskResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	return tm.store.Get(ctx, processID)
}

// updateTaskStatus updates the status of a task
func (tm *TaskManagerImpl) updateTaskStatus(processID string, status TaskStatus) error {
	result, err := tm.getStored(processID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	result.Status = status
	return tm.store.Update(ctx, result)
}

// discard removes a task that never reached the queue
func (tm *TaskManagerImpl) discard(processID string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	_ = tm.store.Delete(ctx, processID)
}

// cleanupRoutine periodically cleans up old task results
func (tm *TaskManagerImpl) cleanupRoutine() {
	defer tm.wg.Done()

	ticker := time.NewTicker(tm.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-tm.ctx.Done():
			return
		case <-ticker.C:
			if err := tm.store.Cleanup(tm.ctx, tm.maxTaskAge); err != nil {
				tm.appLogger.Error("Failed to cleanup old task results", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// errorClass names the failure class of a task error
func errorClass(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrBadInput):
		return "bad_input"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "provider_unavailable"
	}
}
