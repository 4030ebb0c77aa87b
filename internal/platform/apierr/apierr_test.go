package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/yungbote/toktik-backend/internal/domain"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.InvalidInputf("pageSize must be positive"), http.StatusBadRequest, "invalid_input"},
		{&domain.AnalysisError{JobID: "j", Attempts: 20, State: domain.JobTimedOut}, http.StatusGatewayTimeout, "analysis_timeout"},
		{&domain.AnalysisError{JobID: "j", Attempts: 3, State: domain.JobFailed}, http.StatusBadGateway, "analysis_failed"},
		{&domain.EmbeddingError{Index: 2, Dim: 4}, http.StatusInternalServerError, "embedding_corrupt"},
		{fmt.Errorf("ingest: %w", &domain.IndexError{Op: "upsert"}), http.StatusServiceUnavailable, "index_unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		got := FromError(tc.err)
		if got.Status != tc.status || got.Code != tc.code {
			t.Fatalf("%v: want=%d/%s got=%d/%s", tc.err, tc.status, tc.code, got.Status, got.Code)
		}
	}
	if FromError(nil) != nil {
		t.Fatalf("nil error should map to nil")
	}
}
