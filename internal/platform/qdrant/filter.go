package qdrant

import (
	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/platform/vectorindex"
)

const (
	payloadNamespaceKey = "_tt_namespace"
	payloadVectorIDKey  = "_tt_vector_id"
)

// translateFilter builds a Qdrant filter scoped to namespace. Excluded ids are
// matched against the stored vector id, not the derived point id.
func translateFilter(namespace string, f *vectorindex.Filter) map[string]any {
	must := []any{
		fieldMatch(payloadNamespaceKey, namespace),
	}
	out := map[string]any{}
	if f != nil {
		for _, k := range domain.Metadata(f.Equals).Keys() {
			must = append(must, fieldMatch(k, f.Equals[k].Any()))
		}
		if len(f.ExcludeIDs) > 0 {
			out["must_not"] = []any{
				map[string]any{
					"key":   payloadVectorIDKey,
					"match": map[string]any{"any": f.ExcludeIDs},
				},
			}
		}
	}
	out["must"] = must
	return out
}

func fieldMatch(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}
