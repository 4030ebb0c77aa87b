package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
	"github.com/yungbote/toktik-backend/internal/platform/vectorindex"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestVectorStore(t *testing.T, rt roundTripFunc) *vectorStore {
	t.Helper()
	s, err := newVectorStore(logger.NewNop(), Config{
		URL:        "http://qdrant.local",
		Collection: "toktik",
		VectorDim:  3,
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("newVectorStore: %v", err)
	}
	return s
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"result": result, "status": "ok", "time": 0.001})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

func TestUpsertRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut || r.URL.Path != "/collections/toktik/points" || r.URL.RawQuery != "wait=true" {
			t.Fatalf("request: got=%s %s?%s", r.Method, r.URL.Path, r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	meta := domain.Metadata{domain.MetaStorageLocation: domain.String("gs://b/v.mp4")}
	err := s.Upsert(context.Background(), []vectorindex.Vector{{ID: "video-1", Values: []float32{1, 0, 0}, Metadata: meta}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	points, _ := captured["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("points: want=1 got=%d", len(points))
	}
	first := points[0].(map[string]any)
	if first["id"] != s.pointID("video-1") {
		t.Fatalf("point id: got=%v", first["id"])
	}
	payload := first["payload"].(map[string]any)
	if payload[payloadVectorIDKey] != "video-1" || payload[payloadNamespaceKey] != "default" {
		t.Fatalf("payload: got=%v", payload)
	}
	if _, mutated := meta[payloadVectorIDKey]; mutated {
		t.Fatalf("input metadata mutated")
	}
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	err := s.Upsert(context.Background(), []vectorindex.Vector{{ID: "v", Values: []float32{1, 2}}})
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorValidation {
		t.Fatalf("want validation error, got=%v", err)
	}
}

func TestQueryExcludesIDsAndStripsInternalPayload(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, []map[string]any{
			{"id": "p1", "score": 0.9, "payload": map[string]any{payloadVectorIDKey: "b", payloadNamespaceKey: "default", "s3Url": "gs://x/b"}},
			{"id": "p2", "score": 0.9, "payload": map[string]any{payloadVectorIDKey: "a", payloadNamespaceKey: "default"}},
			{"id": "p3", "score": 0.5, "payload": map[string]any{}},
		}), nil
	})

	matches, err := s.Query(context.Background(), []float32{1, 0, 0}, 6, &vectorindex.Filter{ExcludeIDs: []string{"seen"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 || matches[0].ID != "b" || matches[1].ID != "a" {
		t.Fatalf("matches should keep server order on ties: got=%+v", matches)
	}
	if _, ok := matches[0].Metadata[payloadVectorIDKey]; ok {
		t.Fatalf("internal payload leaked into metadata")
	}
	if matches[0].Metadata.StorageLocation() != "gs://x/b" {
		t.Fatalf("metadata: got=%v", matches[0].Metadata)
	}
	filter := captured["filter"].(map[string]any)
	mustNot := filter["must_not"].([]any)
	if len(mustNot) != 1 {
		t.Fatalf("must_not: got=%v", filter)
	}
	if captured["limit"] != float64(6) {
		t.Fatalf("limit: want=6 got=%v", captured["limit"])
	}
}

func TestRejectedStatusIsOperationError(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 500, Header: make(http.Header), Body: io.NopCloser(bytes.NewReader([]byte("oops")))}, nil
	})
	_, err := s.Query(context.Background(), []float32{1, 0, 0}, 1, nil)
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.StatusCode != 500 || opErr.Code != OperationErrorRejected {
		t.Fatalf("want rejected 500, got=%v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		cfg  Config
		code ConfigErrorCode
	}{
		{Config{}, ConfigErrorMissingURL},
		{Config{URL: "qdrant:6333"}, ConfigErrorInvalidURL},
		{Config{URL: "http://q:6333"}, ConfigErrorMissingCollection},
		{Config{URL: "http://q:6333", Collection: "c"}, ConfigErrorInvalidVectorDim},
	}
	for _, tc := range cases {
		var cerr *ConfigError
		if err := ValidateConfig(tc.cfg); !errors.As(err, &cerr) || cerr.Code != tc.code {
			t.Fatalf("%+v: want=%s got=%v", tc.cfg, tc.code, err)
		}
	}
	if err := ValidateConfig(Config{URL: "http://q:6333", Collection: "c", VectorDim: 384}); err != nil {
		t.Fatalf("valid config: %v", err)
	}
}

func collectionInfo(size int, distance string) map[string]any {
	return map[string]any{
		"config": map[string]any{
			"params": map[string]any{
				"vectors": map[string]any{"size": size, "distance": distance},
			},
		},
	}
}

func TestVerifyReadyRequiresSimilarityDistance(t *testing.T) {
	cases := []struct {
		distance string
		code     OperationErrorCode
	}{
		{"Cosine", ""},
		{"Dot", ""},
		{"Euclid", OperationErrorUnsupportedDistance},
		{"Manhattan", OperationErrorUnsupportedDistance},
	}
	for _, tc := range cases {
		s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
			if r.Method != http.MethodGet || r.URL.Path != "/collections/toktik" {
				t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			return okResponse(t, collectionInfo(3, tc.distance)), nil
		})
		err := s.verifyReady(context.Background())
		if tc.code == "" {
			if err != nil {
				t.Fatalf("%s: want=nil got=%v", tc.distance, err)
			}
			continue
		}
		var opErr *OperationError
		if !errors.As(err, &opErr) || opErr.Code != tc.code {
			t.Fatalf("%s: want=%s got=%v", tc.distance, tc.code, err)
		}
	}
}

func TestVerifyReadyRejectsSizeMismatch(t *testing.T) {
	s := newTestVectorStore(t, func(*http.Request) (*http.Response, error) {
		return okResponse(t, collectionInfo(384, "Cosine")), nil
	})
	var opErr *OperationError
	if err := s.verifyReady(context.Background()); !errors.As(err, &opErr) || opErr.Code != OperationErrorValidation {
		t.Fatalf("size mismatch: want=%s got=%v", OperationErrorValidation, err)
	}
}
