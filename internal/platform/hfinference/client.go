package hfinference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/toktik-backend/internal/platform/httpx"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
)

const DefaultBaseURL = "https://router.huggingface.co/hf-inference"

type Config struct {
	BaseURL    string
	APIToken   string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// Extractor calls a feature-extraction pipeline and returns token-level
// features. Models that pool server-side come back as a single row.
type Extractor struct {
	log        *logger.Logger
	endpoint   string
	token      string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config) (*Extractor, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	model := strings.Trim(strings.TrimSpace(cfg.Model), "/")
	if model == "" {
		return nil, errors.New("hfinference: model required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("hfinference: invalid base url %q: %w", base, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Extractor{
		log:        log.With("service", "hfinference.Extractor", "model", model),
		endpoint:   base + "/models/" + model + "/pipeline/feature-extraction",
		token:      strings.TrimSpace(cfg.APIToken),
		timeout:    timeout,
		maxRetries: maxRetries,
		httpClient: hc,
	}, nil
}

type extractRequest struct {
	Inputs  string         `json:"inputs"`
	Options extractOptions `json:"options"`
}

type extractOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

func (e *Extractor) Extract(ctx context.Context, text string) ([][]float32, error) {
	var raw json.RawMessage
	if err := e.doJSON(ctx, extractRequest{Inputs: text, Options: extractOptions{WaitForModel: true}}, &raw); err != nil {
		return nil, err
	}
	return decodeFeatures(raw)
}

// Warmup runs one extraction so the first user request does not pay for a
// cold model. It returns the feature width.
func (e *Extractor) Warmup(ctx context.Context) (int, error) {
	rows, err := e.Extract(ctx, "warmup")
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, errors.New("hfinference: warmup returned no features")
	}
	e.log.Info("Feature extraction model ready", "dimension", len(rows[0]), "tokens", len(rows))
	return len(rows[0]), nil
}

// decodeFeatures accepts [dim], [tokens][dim] and [batch][tokens][dim]
// payloads. Only the first batch element is used.
func decodeFeatures(raw json.RawMessage) ([][]float32, error) {
	var flat []float32
	if err := json.Unmarshal(raw, &flat); err == nil {
		if len(flat) == 0 {
			return nil, errors.New("hfinference: empty feature vector")
		}
		return [][]float32{flat}, nil
	}
	var tokens [][]float32
	if err := json.Unmarshal(raw, &tokens); err == nil {
		if len(tokens) == 0 || len(tokens[0]) == 0 {
			return nil, errors.New("hfinference: empty token features")
		}
		return tokens, nil
	}
	var batch [][][]float32
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("hfinference: decode features: %w", err)
	}
	if len(batch) == 0 || len(batch[0]) == 0 || len(batch[0][0]) == 0 {
		return nil, errors.New("hfinference: empty batch features")
	}
	return batch[0], nil
}

func (e *Extractor) doJSON(ctx context.Context, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var lastErr error
	backoff := 250 * time.Millisecond
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if e.token != "" {
			req.Header.Set("Authorization", "Bearer "+e.token)
		}

		resp, err := e.httpClient.Do(req)
		var wait time.Duration
		if err != nil {
			lastErr = err
			if !httpx.IsRetryableError(err) {
				return err
			}
			wait = backoff
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				return readErr
			}
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return json.Unmarshal(raw, out)
			}
			lastErr = httpx.NewStatusError("hfinference", resp.StatusCode, raw)
			if !httpx.IsRetryableHTTPStatus(resp.StatusCode) {
				return lastErr
			}
			wait = httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		}

		if attempt < e.maxRetries {
			e.log.Warn("Feature extraction failed; retrying", "attempt", attempt+1, "error", lastErr)
			if err := httpx.Sleep(ctx, httpx.JitterSleep(wait)); err != nil {
				return err
			}
			backoff *= 2
		}
	}
	if lastErr == nil {
		lastErr = errors.New("hfinference: request failed")
	}
	return lastErr
}
