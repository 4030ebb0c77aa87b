package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestAnalysisErrorMatchesByState(t *testing.T) {
	cause := errors.New("poll 503")
	failed := &AnalysisError{JobID: "op-1", Attempts: 3, State: JobFailed, Cause: cause}
	timedOut := &AnalysisError{JobID: "op-2", Attempts: 20, State: JobTimedOut}

	if !errors.Is(failed, ErrAnalysisFailed) || errors.Is(failed, ErrAnalysisTimeout) {
		t.Fatalf("failed job should match only ErrAnalysisFailed")
	}
	if !errors.Is(timedOut, ErrAnalysisTimeout) || errors.Is(timedOut, ErrAnalysisFailed) {
		t.Fatalf("timed out job should match only ErrAnalysisTimeout")
	}
	if !errors.Is(fmt.Errorf("ingest: %w", failed), cause) {
		t.Fatalf("cause should be reachable through wrapping")
	}

	var ae *AnalysisError
	if !errors.As(fmt.Errorf("ingest: %w", timedOut), &ae) || ae.Attempts != 20 {
		t.Fatalf("errors.As: want attempts=20 got=%+v", ae)
	}
}

func TestEmbeddingAndIndexErrors(t *testing.T) {
	ee := &EmbeddingError{Index: 4, Value: 0, Dim: 384}
	if !errors.Is(ee, ErrEmbeddingCorrupt) {
		t.Fatalf("EmbeddingError should match ErrEmbeddingCorrupt")
	}

	cause := errors.New("connection reset")
	ie := &IndexError{Op: "query", Cause: cause}
	if !errors.Is(ie, ErrIndexUnavailable) || !errors.Is(ie, cause) {
		t.Fatalf("IndexError should match sentinel and cause")
	}
	if got := ie.Error(); got != "vector index query failed: connection reset" {
		t.Fatalf("message: got=%q", got)
	}
}

func TestInvalidInputf(t *testing.T) {
	err := InvalidInputf("page size %d", 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("InvalidInputf should wrap ErrInvalidInput")
	}
	if err.Error() != "invalid input: page size 0" {
		t.Fatalf("message: got=%q", err.Error())
	}
}
