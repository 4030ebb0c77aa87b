package hfinference

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/yungbote/toktik-backend/internal/platform/httpx"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestExtractor(t *testing.T, retries int, rt roundTripFunc) *Extractor {
	t.Helper()
	ex, err := New(logger.NewNop(), Config{
		BaseURL:    "https://hf.test",
		APIToken:   "hf_token",
		Model:      "sentence-transformers/all-MiniLM-L6-v2",
		MaxRetries: retries,
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ex
}

func TestExtractTokenFeatures(t *testing.T) {
	ex := newTestExtractor(t, 0, func(r *http.Request) (*http.Response, error) {
		if r.URL.String() != "https://hf.test/models/sentence-transformers/all-MiniLM-L6-v2/pipeline/feature-extraction" {
			t.Errorf("url: got=%s", r.URL)
		}
		if r.Header.Get("Authorization") != "Bearer hf_token" {
			t.Errorf("auth header: got=%q", r.Header.Get("Authorization"))
		}
		b, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(b), `"inputs":"Dog, Park"`) {
			t.Errorf("body: got=%s", b)
		}
		return jsonResponse(200, `[[1,0,0],[0,1,0]]`), nil
	})
	rows, err := ex.Extract(context.Background(), "Dog, Park")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(rows) != 2 || len(rows[0]) != 3 {
		t.Fatalf("rows: want=2x3 got=%v", rows)
	}
}

func TestDecodeFeaturesShapes(t *testing.T) {
	cases := []struct {
		in   string
		rows int
	}{
		{`[0.1,0.2,0.3]`, 1},
		{`[[0.1,0.2],[0.3,0.4]]`, 2},
		{`[[[0.1,0.2],[0.3,0.4],[0.5,0.6]]]`, 3},
	}
	for _, tc := range cases {
		got, err := decodeFeatures([]byte(tc.in))
		if err != nil {
			t.Fatalf("decodeFeatures(%s): %v", tc.in, err)
		}
		if len(got) != tc.rows {
			t.Fatalf("decodeFeatures(%s): want=%d rows got=%d", tc.in, tc.rows, len(got))
		}
	}
	for _, bad := range []string{`[]`, `{"error":"x"}`, `[[]]`, `[[[]]]`} {
		if got, err := decodeFeatures([]byte(bad)); err == nil {
			t.Fatalf("decodeFeatures(%s): expected error got=%v", bad, got)
		}
	}
}

func TestExtractRetriesServiceUnavailable(t *testing.T) {
	calls := 0
	ex := newTestExtractor(t, 2, func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return jsonResponse(503, `{"error":"Model is loading"}`), nil
		}
		return jsonResponse(200, `[0.5,0.5]`), nil
	})
	if _, err := ex.Extract(context.Background(), "x"); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls: want=2 got=%d", calls)
	}
}

func TestExtractClientErrorIsNotRetried(t *testing.T) {
	calls := 0
	ex := newTestExtractor(t, 3, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(400, `{"error":"bad input"}`), nil
	})
	_, err := ex.Extract(context.Background(), "x")
	var se *httpx.StatusError
	if !errors.As(err, &se) || se.StatusCode != 400 {
		t.Fatalf("error: want=StatusError(400) got=%v", err)
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}
