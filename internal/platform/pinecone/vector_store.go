package pinecone

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
	"github.com/yungbote/toktik-backend/internal/platform/vectorindex"
)

type IndexConfig struct {
	IndexName string
	// IndexHost skips the describe_index bootstrap when set.
	IndexHost string
	Namespace string
}

type vectorStore struct {
	log       *logger.Logger
	pc        Client
	indexName string
	indexHost string
	namespace string
}

func NewVectorStore(ctx context.Context, log *logger.Logger, pc Client, cfg IndexConfig) (vectorindex.Index, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}
	indexName := strings.TrimSpace(cfg.IndexName)
	if indexName == "" {
		return nil, fmt.Errorf("missing pinecone index name")
	}

	host := strings.TrimSpace(cfg.IndexHost)
	// If host missing, bootstrap via describe_index (fine for local/dev; avoid in prod).
	if host == "" {
		desc, err := pc.DescribeIndex(ctx, indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index (avoid this in production)",
			"index_name", indexName,
			"index_host", host,
		)
	}

	return &vectorStore{
		log:       log.With("service", "PineconeVectorStore"),
		pc:        pc,
		indexName: indexName,
		indexHost: host,
		namespace: strings.TrimSpace(cfg.Namespace),
	}, nil
}

func (s *vectorStore) Capabilities() vectorindex.Capabilities {
	return vectorindex.Capabilities{ExcludeFilter: true}
}

func (s *vectorStore) Upsert(ctx context.Context, vectors []vectorindex.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	out := make([]Vector, 0, len(vectors))
	for _, v := range vectors {
		if strings.TrimSpace(v.ID) == "" {
			return fmt.Errorf("vector id is required")
		}
		if len(v.Values) == 0 {
			return fmt.Errorf("vector %q has empty values", v.ID)
		}
		out = append(out, Vector{ID: v.ID, Values: v.Values, Metadata: v.Metadata.ToMap()})
	}
	resp, err := s.pc.UpsertVectors(ctx, s.indexHost, UpsertRequest{
		Namespace: s.namespace,
		Vectors:   out,
	})
	if err != nil {
		return err
	}
	if resp != nil && resp.UpsertedCount != int64(len(out)) {
		s.log.Warn("pinecone upsert count mismatch", "want", len(out), "got", resp.UpsertedCount)
	}
	return nil
}

func (s *vectorStore) Query(ctx context.Context, q []float32, topK int, filter *vectorindex.Filter) ([]vectorindex.Match, error) {
	resp, err := s.pc.Query(ctx, s.indexHost, QueryRequest{
		Namespace:       s.namespace,
		Vector:          q,
		TopK:            topK,
		Filter:          translateFilter(filter),
		IncludeValues:   false,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]vectorindex.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		out = append(out, vectorindex.Match{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: domain.MetadataFromMap(m.Metadata),
		})
	}
	return out, nil
}

// translateFilter renders Filter in Pinecone's metadata filter language.
func translateFilter(f *vectorindex.Filter) map[string]any {
	if f.Empty() {
		return nil
	}
	clauses := []any{}
	if len(f.ExcludeIDs) > 0 {
		ids := make([]any, 0, len(f.ExcludeIDs))
		for _, id := range f.ExcludeIDs {
			ids = append(ids, id)
		}
		clauses = append(clauses, map[string]any{vectorindex.MetaVideoID: map[string]any{"$nin": ids}})
	}
	for _, k := range sortedKeys(f.Equals) {
		clauses = append(clauses, map[string]any{k: map[string]any{"$eq": f.Equals[k].Any()}})
	}
	if len(clauses) == 1 {
		return clauses[0].(map[string]any)
	}
	return map[string]any{"$and": clauses}
}

func sortedKeys(m map[string]domain.Value) []string {
	return domain.Metadata(m).Keys()
}
