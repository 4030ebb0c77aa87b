package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/platform/vectorindex"
)

// wordExtractor emits one deterministic feature row per word.
type wordExtractor struct {
	mu    sync.Mutex
	calls int
	dim   int
	rows  [][]float32
	err   error
}

func (w *wordExtractor) Extract(_ context.Context, text string) ([][]float32, error) {
	w.mu.Lock()
	w.calls++
	w.mu.Unlock()
	if w.err != nil {
		return nil, w.err
	}
	if w.rows != nil {
		return w.rows, nil
	}
	dim := w.dim
	if dim == 0 {
		dim = 4
	}
	var out [][]float32
	for _, word := range strings.Fields(text) {
		row := make([]float32, dim)
		for i, r := range word {
			row[(i+int(r))%dim] += float32(r%17) + 1
		}
		out = append(out, row)
	}
	return out, nil
}

func (w *wordExtractor) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

func loaderFor(fx FeatureExtractor) ModelLoader {
	return func(context.Context) (FeatureExtractor, error) { return fx, nil }
}

// scriptedAnalysis reports running for runningPolls polls, then final.
type scriptedAnalysis struct {
	mu           sync.Mutex
	jobID        string
	submitErr    error
	runningPolls int
	final        domain.AnalysisPoll
	pollErrAt    int
	pollErr      error
	submits      int
	polls        int
	inputs       []string
}

func (s *scriptedAnalysis) Submit(_ context.Context, input string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits++
	s.inputs = append(s.inputs, input)
	if s.submitErr != nil {
		return "", s.submitErr
	}
	if s.jobID == "" {
		return "job-1", nil
	}
	return s.jobID, nil
}

func (s *scriptedAnalysis) Poll(_ context.Context, _ string) (domain.AnalysisPoll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if s.pollErrAt > 0 && s.polls == s.pollErrAt {
		return domain.AnalysisPoll{}, s.pollErr
	}
	if s.runningPolls < 0 || s.polls <= s.runningPolls {
		return domain.AnalysisPoll{Status: domain.PollRunning}, nil
	}
	return s.final, nil
}

type manualClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
	err    error
}

func (c *manualClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if c.err != nil {
		return c.err
	}
	return ctx.Err()
}

type fakeIndex struct {
	mu         sync.Mutex
	caps       vectorindex.Capabilities
	matches    []vectorindex.Match
	queryErr   error
	upsertErr  error
	upserts    []vectorindex.Vector
	queries    int
	lastTopK   int
	lastFilter *vectorindex.Filter
}

func (f *fakeIndex) Upsert(_ context.Context, vectors []vectorindex.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, vectors...)
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, topK int, filter *vectorindex.Filter) ([]vectorindex.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	f.lastTopK = topK
	f.lastFilter = filter
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	out := f.matches
	if len(out) > topK {
		out = out[:topK]
	}
	return append([]vectorindex.Match(nil), out...), nil
}

func (f *fakeIndex) Capabilities() vectorindex.Capabilities { return f.caps }

func match(id string, score float64, location string) vectorindex.Match {
	md := domain.Metadata{}
	if location != "" {
		md[domain.MetaStorageLocation] = domain.String(location)
	}
	return vectorindex.Match{ID: id, Score: score, Metadata: md}
}
