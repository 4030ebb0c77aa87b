package domain

import "encoding/json"

type RecommendationItem struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// MarshalJSON adds similarityScore, which older clients read instead of score.
func (it RecommendationItem) MarshalJSON() ([]byte, error) {
	md := it.Metadata
	if md == nil {
		md = Metadata{}
	}
	return json.Marshal(struct {
		ID              string   `json:"id"`
		Score           float64  `json:"score"`
		SimilarityScore float64  `json:"similarityScore"`
		Metadata        Metadata `json:"metadata"`
	}{it.ID, it.Score, it.Score, md})
}

// RecommendationResult is one page, in index rank order, free of duplicate
// content keys.
type RecommendationResult struct {
	Items []RecommendationItem `json:"items"`
}

func (r RecommendationResult) Len() int { return len(r.Items) }

func (r RecommendationResult) IDs() []string {
	out := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, it.ID)
	}
	return out
}
