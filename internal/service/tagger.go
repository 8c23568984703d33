package service

import (
	"context"
	"fmt"

	"github.com/tobyv/memesdb/internal/domain"
	"github.com/tobyv/memesdb/internal/logger"
	"github.com/tobyv/memesdb/internal/repository"
)

// TagService is the tag editor: it produces candidate records for selection
// and persists operator-supplied tag overrides. It is the only write path
// for user tags and never touches captions, auto tags, meta or hash.
type TagService struct {
	memeRepo *repository.MemeRepository
	search   *SearchService
	logger   *logger.Logger
}

// NewTagService creates a new tag service.
// Parameters:
//   - memeRepo: repository for meme records.
//   - search: search service used for query-filtered candidate lists.
//   - log: logger instance.
//
// Returns:
//   - *TagService: initialized tag service.
func NewTagService(memeRepo *repository.MemeRepository, search *SearchService, log *logger.Logger) *TagService {
	return &TagService{
		memeRepo: memeRepo,
		search:   search,
		logger:   log,
	}
}

// Candidates returns records eligible for tagging. A non-empty query runs
// the same embed + k-NN join as search; an empty query lists up to 20
// arbitrary records with zero distance and no ranking.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: optional free-text filter.
//
// Returns:
//   - []domain.ScoredRecord: candidate records.
//   - error: non-nil if the lookup fails.
func (s *TagService) Candidates(ctx context.Context, query string) ([]domain.ScoredRecord, error) {
	if query != "" {
		return s.search.Search(ctx, query)
	}

	recs, err := s.memeRepo.List(ctx, searchTopK)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	results := make([]domain.ScoredRecord, len(recs))
	for i := range recs {
		results[i] = domain.ScoredRecord{MemeRecord: recs[i]}
	}
	return results, nil
}

// SetUserTags writes the operator's comma-separated tags onto a record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: record id.
//   - tags: comma-separated tag string.
//
// Returns:
//   - error: non-nil if the update fails.
func (s *TagService) SetUserTags(ctx context.Context, id uint, tags string) error {
	if err := s.memeRepo.UpdateUserTags(ctx, id, tags); err != nil {
		return fmt.Errorf("failed to update user tags: %w", err)
	}
	s.logger.WithFields(logger.Fields{
		"id":   id,
		"tags": tags,
	}).Info("Updated user tags")
	return nil
}
