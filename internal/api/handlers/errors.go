package handlers

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"socialprobe/internal/pipeline"
	"socialprobe/pkg/models"
	"socialprobe/pkg/utils"
)

// analysisError maps a failed analysis onto an HTTP response: errors caused
// by the handle itself are 400, everything else is 503
func analysisError(c echo.Context, requestID string, err error) error {
	code := "provider_unavailable"
	ce := utils.NewServiceUnavailableError(err.Error())
	if pipeline.IsBadInput(err) {
		code = "bad_input"
		ce = utils.NewProfileInputError(err.Error())
	}

	resp := models.ErrorResponse{
		Error:     code,
		Message:   ce.Message,
		Detail:    ce.Detail,
		RequestID: requestID,
		Timestamp: time.Now(),
	}

	var failed *pipeline.AllProvidersFailedError
	if errors.As(err, &failed) && len(failed.Attempts) > 0 {
		resp.Attempts = failed.Attempts
	}

	return c.JSON(ce.Code, resp)
}

func errorResponse(c echo.Context, status int, code, message, requestID string) error {
	return c.JSON(status, models.ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now(),
	})
}
