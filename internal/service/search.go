package service

import (
	"context"
	"fmt"

	"github.com/tobyv/memesdb/internal/domain"
	"github.com/tobyv/memesdb/internal/logger"
	"github.com/tobyv/memesdb/internal/repository"
)

// searchTopK is the fixed nearest-neighbor result bound.
const searchTopK = 20

// SearchService answers free-text queries against the archive: it embeds the
// query, runs a k-NN lookup in the vector index and joins the hits back to
// their records.
type SearchService struct {
	memeRepo   *repository.MemeRepository
	vectorRepo *repository.VectorRepository
	embedder   Embedder
	logger     *logger.Logger
}

// NewSearchService creates a new search service.
// Parameters:
//   - memeRepo: repository for meme records.
//   - vectorRepo: vector index repository.
//   - embedder: embedding provider for query text.
//   - log: logger instance.
//
// Returns:
//   - *SearchService: initialized search service.
func NewSearchService(
	memeRepo *repository.MemeRepository,
	vectorRepo *repository.VectorRepository,
	embedder Embedder,
	log *logger.Logger,
) *SearchService {
	return &SearchService{
		memeRepo:   memeRepo,
		vectorRepo: vectorRepo,
		embedder:   embedder,
		logger:     log,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *SearchService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Search returns up to 20 records ranked by ascending vector distance to the
// query. An empty query is embedded like any other text, no special casing.
// A vector hit whose record is missing is dropped with a warning instead of
// failing the query.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: free-text search query.
//
// Returns:
//   - []domain.ScoredRecord: results in ascending distance order.
//   - error: non-nil if embedding or the index lookup fails.
func (s *SearchService) Search(ctx context.Context, query string) ([]domain.ScoredRecord, error) {
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldComponent: "search",
		logger.FieldQuery:     query,
	})

	queryVec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	hits, err := s.vectorRepo.Search(ctx, queryVec, searchTopK)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector index: %w", err)
	}
	if len(hits) == 0 {
		return []domain.ScoredRecord{}, nil
	}

	ids := make([]uint, len(hits))
	for i, hit := range hits {
		ids[i] = hit.MemeID
	}

	recs, err := s.memeRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	recByID := make(map[uint]*domain.MemeRecord, len(recs))
	for i := range recs {
		recByID[recs[i].ID] = &recs[i]
	}

	// Preserve the index's distance-ascending order, not row order.
	results := make([]domain.ScoredRecord, 0, len(hits))
	for _, hit := range hits {
		rec, ok := recByID[hit.MemeID]
		if !ok {
			s.log(ctx).WithField("id", hit.MemeID).Warn("Vector hit without matching record, dropping")
			continue
		}
		results = append(results, domain.ScoredRecord{
			MemeRecord: *rec,
			Distance:   hit.Distance,
		})
	}

	s.log(ctx).WithField(logger.FieldCount, len(results)).Debug("Search completed")

	return results, nil
}
