package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"levelup/internal/engine"
)

// Response is the envelope every endpoint replies with.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNodeNotFound),
		errors.Is(err, engine.ErrGoalNotFound),
		errors.Is(err, engine.ErrTreeNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyCompleted),
		errors.Is(err, engine.ErrGoalHasTree),
		errors.Is(err, engine.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, engine.ErrStructural):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrBackendUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Unexpected errors are logged and
// their text kept out of the reply.
func (h *Handler) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.log.Error("internal server error", zap.String("path", c.FullPath()), zap.Error(err))
		Error(c, code, "Internal server error")
		return
	}
	h.log.Debug("request failed", zap.String("path", c.FullPath()), zap.Int("status", code), zap.Error(err))
	Error(c, code, err.Error())
}
