package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
	"github.com/yungbote/toktik-backend/internal/platform/vectorindex"
)

var queryVec = []float32{0.6, 0.8}

func newTestRetriever(t *testing.T, idx vectorindex.Index) *RecommendationRetriever {
	t.Helper()
	r, err := NewRecommendationRetriever(logger.NewNop(), idx, RetrieverConfig{})
	if err != nil {
		t.Fatalf("NewRecommendationRetriever: %v", err)
	}
	return r
}

// duplicated repeats content keys as A,A,B,C,C,C,D,... across 15 matches.
func duplicated() []vectorindex.Match {
	keys := []string{"A", "A", "B", "C", "C", "C", "D", "D", "E", "E", "E", "F", "G", "G", "H"}
	out := make([]vectorindex.Match, len(keys))
	for i, k := range keys {
		out[i] = match(fmt.Sprintf("video-%02d", i), 1-float64(i)*0.01, "s3://bucket/"+k+".mp4")
	}
	return out
}

func TestRecommendDeduplicatesByContentKey(t *testing.T) {
	idx := &fakeIndex{matches: duplicated()}
	res, err := newTestRetriever(t, idx).Recommend(context.Background(), RecommendRequest{QueryVector: queryVec, PageSize: 3})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if res.Len() != 3 {
		t.Fatalf("len: want=3 got=%d", res.Len())
	}
	var keys []string
	for _, it := range res.Items {
		keys = append(keys, it.Metadata.StorageLocation())
	}
	want := []string{"s3://bucket/A.mp4", "s3://bucket/B.mp4", "s3://bucket/C.mp4"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys: want=%v got=%v", want, keys)
	}
	if !reflect.DeepEqual(res.IDs(), []string{"video-00", "video-02", "video-03"}) {
		t.Fatalf("ids: got=%v", res.IDs())
	}
	if idx.lastTopK != 9 || idx.queries != 1 {
		t.Fatalf("query: want topK=9 queries=1 got topK=%d queries=%d", idx.lastTopK, idx.queries)
	}
	for i := 1; i < res.Len(); i++ {
		if res.Items[i].Score > res.Items[i-1].Score {
			t.Fatalf("scores must be non-increasing: %v", res.Items)
		}
	}
}

func TestRecommendExcludesSeenIDs(t *testing.T) {
	matches := []vectorindex.Match{
		match("top", 0.99, "s3://b/top.mp4"),
		match("second", 0.9, "s3://b/second.mp4"),
		match("third", 0.8, "s3://b/third.mp4"),
	}
	for _, native := range []bool{false, true} {
		idx := &fakeIndex{matches: matches, caps: vectorindex.Capabilities{ExcludeFilter: native}}
		exclude := []string{"top"}
		res, err := newTestRetriever(t, idx).Recommend(context.Background(), RecommendRequest{QueryVector: queryVec, ExcludeIDs: exclude, PageSize: 5})
		if err != nil {
			t.Fatalf("Recommend: %v", err)
		}
		if !reflect.DeepEqual(res.IDs(), []string{"second", "third"}) {
			t.Fatalf("native=%v ids: got=%v", native, res.IDs())
		}
		if native != (idx.lastFilter != nil) {
			t.Fatalf("native=%v filter pushed=%v", native, idx.lastFilter != nil)
		}
		if native && !reflect.DeepEqual(idx.lastFilter.ExcludeIDs, exclude) {
			t.Fatalf("filter ids: got=%v", idx.lastFilter.ExcludeIDs)
		}
		if !reflect.DeepEqual(exclude, []string{"top"}) {
			t.Fatalf("exclude set mutated: %v", exclude)
		}
	}
}

func TestRecommendUnderFillReturnsShortPage(t *testing.T) {
	idx := &fakeIndex{matches: []vectorindex.Match{
		match("a1", 0.9, "s3://b/a.mp4"),
		match("a2", 0.8, "s3://b/a.mp4"),
		match("b1", 0.7, "s3://b/b.mp4"),
		match("b2", 0.6, "s3://b/b.mp4"),
	}}
	res, err := newTestRetriever(t, idx).Recommend(context.Background(), RecommendRequest{QueryVector: queryVec, PageSize: 5})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if res.Len() != 2 || idx.queries != 1 {
		t.Fatalf("want len=2 queries=1 got len=%d queries=%d", res.Len(), idx.queries)
	}
}

func TestRecommendIsIdempotent(t *testing.T) {
	idx := &fakeIndex{matches: duplicated()}
	r := newTestRetriever(t, idx)
	first, err := r.Recommend(context.Background(), RecommendRequest{QueryVector: queryVec, PageSize: 4})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	second, err := r.Recommend(context.Background(), RecommendRequest{QueryVector: queryVec, PageSize: 4})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%v\n%v", first, second)
	}
}

func TestRecommendContentKeyFallbacks(t *testing.T) {
	legacy := vectorindex.Match{ID: "old-1", Score: 0.9, Metadata: domain.Metadata{domain.MetaLegacyVideoURL: domain.String("https://cdn/x.mp4")}}
	legacyDup := vectorindex.Match{ID: "old-2", Score: 0.8, Metadata: domain.Metadata{domain.MetaLegacyVideoURL: domain.String("https://cdn/x.mp4")}}
	bare := vectorindex.Match{ID: "bare", Score: 0.7}
	idx := &fakeIndex{matches: []vectorindex.Match{legacy, legacyDup, bare}}
	res, err := newTestRetriever(t, idx).Recommend(context.Background(), RecommendRequest{QueryVector: queryVec, PageSize: 5})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !reflect.DeepEqual(res.IDs(), []string{"old-1", "bare"}) {
		t.Fatalf("ids: got=%v", res.IDs())
	}
}

func TestRecommendInputErrors(t *testing.T) {
	r := newTestRetriever(t, &fakeIndex{})
	for _, size := range []int{0, -3} {
		if _, err := r.Recommend(context.Background(), RecommendRequest{QueryVector: queryVec, PageSize: size}); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("pageSize=%d: want=ErrInvalidInput got=%v", size, err)
		}
	}
	if _, err := r.Recommend(context.Background(), RecommendRequest{PageSize: 5}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("empty vector: want=ErrInvalidInput got=%v", err)
	}
}

func TestRecommendWrapsIndexErrors(t *testing.T) {
	cause := errors.New("pinecone http 503")
	r := newTestRetriever(t, &fakeIndex{queryErr: cause})
	_, err := r.Recommend(context.Background(), RecommendRequest{QueryVector: queryVec, PageSize: 5})
	if !errors.Is(err, domain.ErrIndexUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("want=ErrIndexUnavailable wrapping cause got=%v", err)
	}
}

func withContentType(m vectorindex.Match, ct string) vectorindex.Match {
	m.Metadata = m.Metadata.Merge(domain.Metadata{domain.MetaContentType: domain.String(ct)})
	return m
}

func TestRecommendScopesByContentType(t *testing.T) {
	idx := &fakeIndex{matches: []vectorindex.Match{
		withContentType(match("mp4", 0.9, "s3://b/a.mp4"), "video/mp4"),
		withContentType(match("mov", 0.8, "s3://b/b.mov"), "video/quicktime"),
		match("untyped", 0.7, "s3://b/c.mp4"),
		withContentType(match("mp4-2", 0.6, "s3://b/d.mp4"), "video/mp4"),
	}}
	res, err := newTestRetriever(t, idx).Recommend(context.Background(), RecommendRequest{
		QueryVector: queryVec,
		PageSize:    5,
		ContentType: "video/mp4",
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !reflect.DeepEqual(res.IDs(), []string{"mp4", "mp4-2"}) {
		t.Fatalf("ids: want=[mp4 mp4-2] got=%v", res.IDs())
	}
	if idx.lastFilter == nil {
		t.Fatalf("content type filter should be pushed to the index")
	}
	if got, _ := idx.lastFilter.Equals[domain.MetaContentType].AsString(); got != "video/mp4" {
		t.Fatalf("filter contentType: want=video/mp4 got=%q", got)
	}
	if len(idx.lastFilter.ExcludeIDs) != 0 {
		t.Fatalf("filter ids: want none got=%v", idx.lastFilter.ExcludeIDs)
	}
}

func TestRecommendRejectsOversizedPage(t *testing.T) {
	idx := &fakeIndex{}
	r := newTestRetriever(t, idx)
	maxPage := MaxTopK / DefaultBufferMultiplier
	for _, size := range []int{maxPage + 1, int(^uint(0) >> 1)} {
		_, err := r.Recommend(context.Background(), RecommendRequest{QueryVector: queryVec, PageSize: size})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("pageSize=%d: want=ErrInvalidInput got=%v", size, err)
		}
	}
	if idx.queries != 0 {
		t.Fatalf("queries: want=0 got=%d", idx.queries)
	}
	if _, err := r.Recommend(context.Background(), RecommendRequest{QueryVector: queryVec, PageSize: maxPage}); err != nil {
		t.Fatalf("pageSize=%d: %v", maxPage, err)
	}
	if idx.lastTopK != maxPage*DefaultBufferMultiplier {
		t.Fatalf("topK: want=%d got=%d", maxPage*DefaultBufferMultiplier, idx.lastTopK)
	}
}

func TestNewRecommendationRetrieverRejectsHugeMultiplier(t *testing.T) {
	if _, err := NewRecommendationRetriever(logger.NewNop(), &fakeIndex{}, RetrieverConfig{BufferMultiplier: MaxTopK + 1}); err == nil {
		t.Fatalf("expected error for multiplier above MaxTopK")
	}
}
