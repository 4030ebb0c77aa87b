package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/toktik-backend/internal/domain"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromError maps the domain taxonomy onto an HTTP status and a stable code.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return New(http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, domain.ErrAnalysisTimeout), errors.Is(err, context.DeadlineExceeded):
		return New(http.StatusGatewayTimeout, "analysis_timeout", err)
	case errors.Is(err, domain.ErrAnalysisFailed):
		return New(http.StatusBadGateway, "analysis_failed", err)
	case errors.Is(err, domain.ErrEmbeddingCorrupt):
		return New(http.StatusInternalServerError, "embedding_corrupt", err)
	case errors.Is(err, domain.ErrIndexUnavailable):
		return New(http.StatusServiceUnavailable, "index_unavailable", err)
	case errors.Is(err, domain.ErrModelUnavailable):
		return New(http.StatusServiceUnavailable, "model_unavailable", err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}
