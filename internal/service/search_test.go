package service

import (
	"context"
	"testing"

	"github.com/tobyv/memesdb/internal/domain"
	"github.com/tobyv/memesdb/internal/repository"
)

// fixedEmbedder always returns the same vector, letting a test control
// exactly where the query lands in vector space.
type fixedEmbedder struct {
	vec []float32
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}

func (f *fixedEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return f.vec, nil
}

// axisVec returns a testDim vector with first component v, rest zero.
func axisVec(v float32) []float32 {
	vec := make([]float32, testDim)
	vec[0] = v
	return vec
}

func insertIndexed(t *testing.T, memes *repository.MemeRepository, vectors *repository.VectorRepository, path string, vec []float32) uint {
	t.Helper()
	ctx := context.Background()
	rec := &domain.MemeRecord{
		Path:         path,
		ShortCaption: "caption for " + path,
		Hash:         "hash",
	}
	id, err := memes.Upsert(ctx, rec)
	if err != nil {
		t.Fatalf("upsert %s failed: %v", path, err)
	}
	if err := vectors.Insert(ctx, id, vec); err != nil {
		t.Fatalf("vector insert for %s failed: %v", path, err)
	}
	return id
}

func TestSearchRanksByDistance(t *testing.T) {
	db := newTestDB(t)
	memes := repository.NewMemeRepository(db)
	vectors := repository.NewVectorRepository(db, testDim)

	insertIndexed(t, memes, vectors, "/m/far.png", axisVec(10))
	insertIndexed(t, memes, vectors, "/m/near.png", axisVec(1))
	insertIndexed(t, memes, vectors, "/m/mid.png", axisVec(5))

	svc := NewSearchService(memes, vectors, &fixedEmbedder{vec: axisVec(0)}, testLogger())
	results, err := svc.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	wantPaths := []string{"/m/near.png", "/m/mid.png", "/m/far.png"}
	if len(results) != len(wantPaths) {
		t.Fatalf("expected %d results, got %d", len(wantPaths), len(results))
	}
	for i, want := range wantPaths {
		if results[i].Path != want {
			t.Errorf("result %d: got %s, want %s", i, results[i].Path, want)
		}
		if i > 0 && results[i].Distance < results[i-1].Distance {
			t.Errorf("results not in ascending distance order at index %d", i)
		}
	}
}

func TestSearchCapsResults(t *testing.T) {
	db := newTestDB(t)
	memes := repository.NewMemeRepository(db)
	vectors := repository.NewVectorRepository(db, testDim)

	for i := 0; i < searchTopK+5; i++ {
		insertIndexed(t, memes, vectors, "/m/"+string(rune('a'+i))+".png", axisVec(float32(i+1)))
	}

	svc := NewSearchService(memes, vectors, &fixedEmbedder{vec: axisVec(0)}, testLogger())
	results, err := svc.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != searchTopK {
		t.Errorf("expected results capped at %d, got %d", searchTopK, len(results))
	}
}

func TestSearchEmptyArchive(t *testing.T) {
	db := newTestDB(t)
	memes := repository.NewMemeRepository(db)
	vectors := repository.NewVectorRepository(db, testDim)

	svc := NewSearchService(memes, vectors, &fixedEmbedder{vec: axisVec(0)}, testLogger())
	results, err := svc.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("search on empty archive failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSearchDropsOrphanVectorHits(t *testing.T) {
	db := newTestDB(t)
	memes := repository.NewMemeRepository(db)
	vectors := repository.NewVectorRepository(db, testDim)
	ctx := context.Background()

	insertIndexed(t, memes, vectors, "/m/keep.png", axisVec(2))
	// Vector entry with no backing record.
	if err := vectors.Insert(ctx, 9999, axisVec(1)); err != nil {
		t.Fatalf("orphan insert failed: %v", err)
	}

	svc := NewSearchService(memes, vectors, &fixedEmbedder{vec: axisVec(0)}, testLogger())
	results, err := svc.Search(ctx, "q")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected orphan hit dropped, got %d results", len(results))
	}
	if results[0].Path != "/m/keep.png" {
		t.Errorf("unexpected surviving result: %s", results[0].Path)
	}
}
