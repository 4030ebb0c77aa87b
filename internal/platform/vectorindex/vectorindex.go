// Package vectorindex is the contract the ingestion and recommendation
// services hold against a managed nearest-neighbour store. Pinecone and
// Qdrant implement it.
package vectorindex

import (
	"context"

	"github.com/yungbote/toktik-backend/internal/domain"
)

// MetaVideoID mirrors the record id into metadata so stores that can only
// filter on metadata are able to exclude ids natively.
const MetaVideoID = "videoId"

type Vector struct {
	ID       string
	Values   []float32
	Metadata domain.Metadata
}

type Match struct {
	ID       string
	Score    float64
	Metadata domain.Metadata
}

// Filter is the metadata predicate pushed into a query. The zero value
// matches everything.
type Filter struct {
	ExcludeIDs []string
	Equals     map[string]domain.Value
}

func (f *Filter) Empty() bool {
	return f == nil || (len(f.ExcludeIDs) == 0 && len(f.Equals) == 0)
}

type Capabilities struct {
	// ExcludeFilter is true when Filter.ExcludeIDs is honoured server side.
	ExcludeFilter bool
}

type Index interface {
	Upsert(ctx context.Context, vectors []Vector) error
	// Query returns matches ordered by descending similarity.
	Query(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Match, error)
	Capabilities() Capabilities
}
