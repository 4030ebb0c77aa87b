package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrAnalysisFailed   = errors.New("analysis failed")
	ErrAnalysisTimeout  = errors.New("analysis timed out")
	ErrEmbeddingCorrupt = errors.New("embedding corrupt")
	ErrIndexUnavailable = errors.New("vector index unavailable")
	ErrModelUnavailable = errors.New("embedding model unavailable")
)

func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// AnalysisError reports a job that ended in Failed or TimedOut, with enough
// context to resubmit by hand.
type AnalysisError struct {
	JobID    string
	Attempts int
	State    JobState
	Cause    error
}

func (e *AnalysisError) Error() string {
	if e == nil {
		return "analysis error"
	}
	msg := fmt.Sprintf("analysis job %q %s after %d polls", e.JobID, e.State, e.Attempts)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AnalysisError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrAnalysisFailed:
		return e.State == JobFailed
	case ErrAnalysisTimeout:
		return e.State == JobTimedOut
	}
	return false
}

func (e *AnalysisError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// EmbeddingError names the first non-finite component of a vector.
type EmbeddingError struct {
	Index int
	Value float64
	Dim   int
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding component %d of %d is not finite (%v)", e.Index, e.Dim, e.Value)
}

func (e *EmbeddingError) Is(target error) bool { return target == ErrEmbeddingCorrupt }

// IndexError wraps a vector index failure on upsert or query.
type IndexError struct {
	Op    string
	Cause error
}

func (e *IndexError) Error() string {
	if e == nil {
		return "vector index error"
	}
	if e.Cause == nil {
		return fmt.Sprintf("vector index %s failed", e.Op)
	}
	return fmt.Sprintf("vector index %s failed: %v", e.Op, e.Cause)
}

func (e *IndexError) Is(target error) bool { return target == ErrIndexUnavailable }

func (e *IndexError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
