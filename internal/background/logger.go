package background

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"socialprobe/internal/logging"
	"socialprobe/internal/logging/types"
)

// TaskCompletionLogger handles structured logging for task completion
type TaskCompletionLogger struct {
	logger types.Logger
	out    io.Writer
}

// NewTaskCompletionLogger creates a task completion logger writing records to stdout
func NewTaskCompletionLogger(logger types.Logger) *TaskCompletionLogger {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &TaskCompletionLogger{
		logger: logger,
		out:    os.Stdout,
	}
}

// TaskCompletionLog represents the structured log entry for task completion
type TaskCompletionLog struct {
	ProcessID      string                 `json:"processId"`
	Status         string                 `json:"status"`
	Handle         string                 `json:"handle,omitempty"`
	Provider       string                 `json:"provider,omitempty"`
	Attempts       int                    `json:"attempts"`
	Error          string                 `json:"error,omitempty"`
	ErrorClass     string                 `json:"errorClass,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	Operation      string                 `json:"operation"`
	ProcessingTime string                 `json:"processing_time"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// CreateTaskCompletionLog creates a TaskCompletionLog from a TaskResult. The
// account itself is left out; it can be large and is available via the task API.
func CreateTaskCompletionLog(result *TaskResult) *TaskCompletionLog {
	processingTime := "0s"
	if result.ProcessingTime != nil {
		processingTime = result.ProcessingTime.String()
	}

	entry := &TaskCompletionLog{
		ProcessID:      result.ProcessID,
		Status:         string(result.Status),
		Error:          result.Error,
		ErrorClass:     result.ErrorClass,
		Timestamp:      time.Now(),
		Operation:      string(result.Type),
		ProcessingTime: processingTime,
		Metadata:       result.Metadata,
	}
	if handle, ok := result.Metadata["handle"].(string); ok {
		entry.Handle = handle
	}
	if result.Data != nil {
		entry.Attempts = len(result.Data.Attempts)
		if result.Data.Account != nil {
			entry.Provider = result.Data.Account.Provider
		}
	}
	return entry
}

// LogTaskCompletion writes one JSON line per finished task to the output
// stream and mirrors it to the application logger
func (l *TaskCompletionLogger) LogTaskCompletion(result *TaskResult) error {
	entry := CreateTaskCompletionLog(result)

	jsonData, err := json.Marshal(entry)
	if err != nil {
		l.logger.Error("Failed to marshal task completion log", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("failed to marshal task completion log: %w", err)
	}

	if _, err := l.out.Write(append(jsonData, '\n')); err != nil {
		return fmt.Errorf("failed to write task completion log: %w", err)
	}

	l.logger.Info("Background task completed", map[string]interface{}{
		"process_id":      result.ProcessID,
		"status":          result.Status,
		"operation":       result.Type,
		"processing_time": entry.ProcessingTime,
	})

	return nil
}

// LogTaskStart logs when a task starts processing
func (l *TaskCompletionLogger) LogTaskStart(processID string, taskType TaskType) {
	l.logger.Info("Background task started", map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"status":     TaskStatusProcessing,
	})
}

// LogTaskAccepted logs when a task is accepted for processing
func (l *TaskCompletionLogger) LogTaskAccepted(processID string, taskType TaskType) {
	l.logger.Info("Background task accepted", map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"status":     TaskStatusAccepted,
	})
}

// LogTaskError logs task errors during processing
func (l *TaskCompletionLogger) LogTaskError(processID string, taskType TaskType, err error) {
	l.logger.Error("Background task failed", map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"status":     TaskStatusFailure,
		"error":      err.Error(),
	})
}

// LogTaskSuccess logs successful task completion
func (l *TaskCompletionLogger) LogTaskSuccess(processID string, taskType TaskType, processingTime time.Duration) {
	l.logger.Info("Background task completed successfully", map[string]interface{}{
		"process_id":      processID,
		"operation":       taskType,
		"status":          TaskStatusSuccess,
		"processing_time": processingTime,
	})
}
