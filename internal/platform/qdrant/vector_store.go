package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/platform/ctxutil"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
	"github.com/yungbote/toktik-backend/internal/platform/vectorindex"
)

const maxErrorBodyBytes = 1024

var pointIDNamespaceUUID = uuid.MustParse("7c5b0a37-51d6-4c1e-9a4e-3f0f8c7f2b61")

type vectorStore struct {
	log       *logger.Logger
	cfg       Config
	baseURL   string
	namespace string
	http      *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type searchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// NewVectorStore validates cfg and checks the collection is ready and sized
// for cfg.VectorDim before returning.
func NewVectorStore(ctx context.Context, log *logger.Logger, cfg Config) (vectorindex.Index, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	s, err := newVectorStore(log, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.verifyReady(ctx); err != nil {
		return nil, err
	}
	log.Info("Qdrant vector store selected",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"namespace", s.namespace,
		"vector_dim", cfg.VectorDim,
	)
	return s, nil
}

func newVectorStore(log *logger.Logger, cfg Config) (*vectorStore, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	ns := strings.TrimSpace(cfg.Namespace)
	if ns == "" {
		ns = "default"
	}
	return &vectorStore{
		log:       log.With("service", "QdrantVectorStore"),
		cfg:       cfg,
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		namespace: ns,
		http:      hc,
	}, nil
}

func (s *vectorStore) Capabilities() vectorindex.Capabilities {
	return vectorindex.Capabilities{ExcludeFilter: true}
}

func (s *vectorStore) Upsert(ctx context.Context, vectors []vectorindex.Vector) error {
	const op = "upsert"
	if len(vectors) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(vectors))
	for _, v := range vectors {
		id := strings.TrimSpace(v.ID)
		if id == "" {
			return opErr(op, OperationErrorValidation, "vector id is required", nil)
		}
		if len(v.Values) != s.cfg.VectorDim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("vector %q dimension mismatch: expected=%d got=%d", id, s.cfg.VectorDim, len(v.Values)), nil)
		}
		payload := v.Metadata.ToMap()
		payload[payloadNamespaceKey] = s.namespace
		payload[payloadVectorIDKey] = id
		points = append(points, map[string]any{
			"id":      s.pointID(id),
			"vector":  v.Values,
			"payload": payload,
		})
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
}

func (s *vectorStore) Query(ctx context.Context, q []float32, topK int, filter *vectorindex.Filter) ([]vectorindex.Match, error) {
	const op = "query"
	if len(q) != s.cfg.VectorDim {
		return nil, opErr(op, OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(q)), nil)
	}
	if topK <= 0 {
		topK = 10
	}
	req := map[string]any{
		"vector":       q,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  false,
		"filter":       translateFilter(s.namespace, filter),
	}
	var raw []searchResultItem
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &raw); err != nil {
		return nil, err
	}

	out := make([]vectorindex.Match, 0, len(raw))
	for _, item := range raw {
		id, _ := item.Payload[payloadVectorIDKey].(string)
		if strings.TrimSpace(id) == "" {
			continue
		}
		md := domain.MetadataFromMap(item.Payload)
		delete(md, payloadNamespaceKey)
		delete(md, payloadVectorIDKey)
		out = append(out, vectorindex.Match{ID: id, Score: item.Score, Metadata: md})
	}
	return out, nil
}

func (s *vectorStore) pointID(vectorID string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(s.namespace+"\x00"+vectorID)).String()
}

func (s *vectorStore) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}

func (s *vectorStore) verifyReady(ctx context.Context) error {
	const op = "bootstrap_verify"
	var result struct {
		Status string `json:"status"`
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	if err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &result); err != nil {
		return err
	}
	size := result.Config.Params.Vectors.Size
	if size != 0 && size != s.cfg.VectorDim {
		return opErr(op, OperationErrorValidation,
			fmt.Sprintf("collection %q vector size mismatch: expected=%d actual=%d", s.cfg.Collection, s.cfg.VectorDim, size), nil)
	}
	if d := strings.ToLower(result.Config.Params.Vectors.Distance); d != "" && d != "cosine" && d != "dot" {
		return opErr(op, OperationErrorUnsupportedDistance,
			fmt.Sprintf("collection %q uses distance %q; only Cosine and Dot rank by similarity", s.cfg.Collection, result.Config.Params.Vectors.Distance), nil)
	}
	return nil
}

func (s *vectorStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b := raw
		if len(b) > maxErrorBodyBytes {
			b = b[:maxErrorBodyBytes]
		}
		return &OperationError{
			Code:       OperationErrorRejected,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("status=%d body=%q", resp.StatusCode, string(b)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode envelope failed", err)
	}
	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, "", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, "", err)
	}
	return opErr(op, OperationErrorTransportFailed, "", err)
}
