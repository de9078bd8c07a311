package response

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/elearning-server-go/pkg/apperrors"
	"github.com/mo-amir99/elearning-server-go/pkg/observability"
)

// Envelope represents the standard API response shape.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination interface{} `json:"pagination,omitempty"`
}

// ErrorBody lets clients tell a missing resource, a bad form and a transient failure apart.
type ErrorBody struct {
	Code      apperrors.ErrorCode `json:"code"`
	Retryable bool                `json:"retryable"`
	Fields    map[string]string   `json:"fields,omitempty"`
	Detail    string              `json:"detail,omitempty"`
}

// Success writes a success response with optional message and data.
func Success(c *gin.Context, status int, data interface{}, message string, pagination interface{}) {
	c.JSON(status, Envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: pagination,
	})
}

// Created is a convenience helper for POST 201 responses.
func Created(c *gin.Context, data interface{}, message string) {
	Success(c, http.StatusCreated, data, message, nil)
}

// NoContent writes a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error writes an error response. Details of err are exposed only for 4xx statuses.
func Error(c *gin.Context, status int, message string, err error) {
	c.JSON(status, Envelope{
		Success: false,
		Message: message,
		Error:   NewErrorBody(status, err),
	})
}

// NewErrorBody describes err for clients.
func NewErrorBody(status int, err error) *ErrorBody {
	body := &ErrorBody{Code: apperrors.CodeForStatus(status)}
	if appErr, ok := apperrors.As(err); ok {
		body.Code = appErr.Code()
		body.Fields = appErr.Fields()
	}
	body.Retryable = body.Code.Retryable()
	if err != nil && status < http.StatusInternalServerError {
		body.Detail = err.Error()
	}
	return body
}

// ErrorWithLog writes an error response and logs the error via slog. 5xx errors are reported to Sentry.
func ErrorWithLog(logger *slog.Logger, c *gin.Context, status int, message string, err error) {
	if err != nil {
		if logger != nil {
			level := slog.LevelWarn
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(c.Request.Context(), level, message,
				slog.Int("status", status),
				slog.String("path", c.FullPath()),
				slog.String("error", err.Error()),
			)
		}
		if status >= http.StatusInternalServerError {
			observability.CaptureErr(c.Request.Context(), err, map[string]string{"route": c.FullPath()})
		}
	}

	Error(c, status, message, err)
}
