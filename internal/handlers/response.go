package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondAppError maps the internal error taxonomy onto HTTP statuses.
func RespondAppError(c *gin.Context, err error) {
	status, code := statusFromError(err)
	RespondError(c, status, code, err)
}

func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperr.ErrBusy):
		return http.StatusServiceUnavailable, "busy"
	case errors.Is(err, apperr.ErrBackendTransient):
		return http.StatusBadGateway, "backend_transient"
	case errors.Is(err, apperr.ErrBackendPermanent):
		return http.StatusBadGateway, "backend_permanent"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
