package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"socialprobe/internal/analysis"
	"socialprobe/internal/api/middleware"
	"socialprobe/internal/api/validation"
	"socialprobe/internal/background"
	"socialprobe/internal/logging"
	"socialprobe/pkg/models"
	"socialprobe/pkg/utils"
)

var profileValidator = validator.New()

func init() {
	validation.RegisterProfileValidators(profileValidator)
}

// Analyzer runs one profile analysis
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Outcome, error)
}

// bindAnalyzeRequest parses and validates the request body. A nil request
// means the error response has already been written.
func bindAnalyzeRequest(c echo.Context, requestID string) (*models.AnalyzeRequest, error) {
	logger := logging.GetGlobalLogger()

	var req models.AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to parse request body", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		return nil, errorResponse(c, http.StatusBadRequest, "invalid_request", "Invalid request body: "+err.Error(), requestID)
	}

	if err := profileValidator.Struct(&req); err != nil {
		logger.Warn("Request validation failed", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		ce := utils.NewValidationError(err.Error())
		return nil, c.JSON(ce.Code, models.ErrorResponse{
			Error:     "validation_failed",
			Message:   ce.Message,
			Detail:    ce.Detail,
			RequestID: requestID,
			Timestamp: time.Now(),
		})
	}

	return &req, nil
}

// AnalyzeHandler handles POST /api/v1/profiles/analyze and waits for the result
func AnalyzeHandler(analyzer Analyzer) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := middleware.RequestID(c)
		logger := logging.GetGlobalLogger().WithField("request_id", requestID)

		req, err := bindAnalyzeRequest(c, requestID)
		if req == nil {
			return err
		}

		logger.Info("Processing profile analysis request", map[string]interface{}{
			"handle":    req.Handle,
			"providers": req.Providers,
		})

		outcome, err := analyzer.Analyze(c.Request().Context(), analysis.Request{
			Handle:    req.Handle,
			Providers: req.Providers,
			SkipCache: req.SkipCache,
		})
		if err != nil {
			logger.Warn("Profile analysis failed", map[string]interface{}{
				"handle": req.Handle,
				"error":  err.Error(),
			})
			return analysisError(c, requestID, err)
		}

		response := models.AnalyzeResponse{
			Success:        true,
			Account:        outcome.Account,
			Cached:         outcome.Cached,
			ProcessingTime: outcome.Duration,
			RequestID:      requestID,
		}
		if len(outcome.Attempts) > 0 {
			response.Attempts = outcome.Attempts
		}

		logger.Info("Profile analysis completed", map[string]interface{}{
			"handle":          outcome.Handle,
			"provider":        outcome.Account.Provider,
			"cached":          outcome.Cached,
			"processing_time": outcome.Duration.String(),
		})

		return c.JSON(http.StatusOK, response)
	}
}

// AnalyzeAsyncHandler handles POST /api/v1/profiles/analyze/async and returns a process id
func AnalyzeAsyncHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := middleware.RequestID(c)
		logger := logging.GetGlobalLogger().WithField("request_id", requestID)

		req, err := bindAnalyzeRequest(c, requestID)
		if req == nil {
			return err
		}

		processID := utils.GenerateRequestID()
		err = taskManager.SubmitAnalyzeTask(c.Request().Context(), processID, analysis.Request{
			Handle:    req.Handle,
			Providers: req.Providers,
			SkipCache: req.SkipCache,
		})
		if err != nil {
			logger.Error("Failed to submit analysis task", map[string]interface{}{
				"process_id": processID,
				"error":      err.Error(),
			})
			return errorResponse(c, http.StatusServiceUnavailable, "task_submission_failed",
				"Failed to submit analysis task: "+err.Error(), requestID)
		}

		logger.Info("Analysis task submitted for background processing", map[string]interface{}{
			"process_id": processID,
			"handle":     req.Handle,
		})

		return c.JSON(http.StatusAccepted, models.CreateAsyncAnalyzeResponse(processID))
	}
}

// TaskStatusHandler handles GET /api/v1/tasks/:processId
func TaskStatusHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := middleware.RequestID(c)

		processID := c.Param("processId")
		if processID == "" {
			return errorResponse(c, http.StatusBadRequest, "missing_process_id", "Process ID is required", requestID)
		}

		result, err := taskManager.GetTaskResult(c.Request().Context(), processID)
		if err != nil {
			if errors.Is(err, background.ErrTaskNotFound) {
				ce := utils.NewNotFoundError("no task with process id " + processID)
				return errorResponse(c, ce.Code, "task_not_found", ce.Error(), requestID)
			}
			return errorResponse(c, http.StatusInternalServerError, "task_lookup_failed", err.Error(), requestID)
		}

		return c.JSON(http.StatusOK, result)
	}
}

// ListTasksHandler handles GET /api/v1/tasks
func ListTasksHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := middleware.RequestID(c)

		tasks, err := taskManager.ListTasks(c.Request().Context())
		if err != nil {
			return errorResponse(c, http.StatusInternalServerError, "task_list_failed", err.Error(), requestID)
		}

		counts := make(map[background.TaskStatus]int)
		for _, task := range tasks {
			counts[task.Status]++
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"success":    true,
			"tasks":      tasks,
			"counts":     counts,
			"request_id": requestID,
			"timestamp":  time.Now(),
		})
	}
}
