package service

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tobyv/memesdb/internal/domain"
	"github.com/tobyv/memesdb/internal/logger"
	"github.com/tobyv/memesdb/internal/prompts"
	"github.com/tobyv/memesdb/internal/repository"
	"gorm.io/gorm"
)

// IndexService runs the indexing pipeline: directory scan, skip-by-path
// dedup, feature extraction and the transactional dual-store write.
type IndexService struct {
	db         *gorm.DB
	memeRepo   *repository.MemeRepository
	vectorRepo *repository.VectorRepository
	vision     Captioner
	embedder   Embedder
	logger     *logger.Logger
	batchSize  int
}

// IndexOptions holds options for an indexing run.
type IndexOptions struct {
	// BatchSize is a parallelism-tuning hint kept for future batched model
	// invocation; processing is sequential regardless of its value.
	BatchSize int
	// Force re-processes paths that are already indexed, refreshing
	// captions, tags, hash and meta. User tags are preserved either way.
	Force bool
}

// IndexStats summarizes an indexing run.
type IndexStats struct {
	Total     int64
	Indexed   int64
	Skipped   int64
	Failed    int64
	StartTime time.Time
	EndTime   time.Time
}

// errSkipExisting is a sentinel error to indicate an already-indexed path
var errSkipExisting = fmt.Errorf("skipped: path already indexed")

// NewIndexService creates a new index service.
func NewIndexService(
	db *gorm.DB,
	memeRepo *repository.MemeRepository,
	vectorRepo *repository.VectorRepository,
	vision Captioner,
	embedder Embedder,
	log *logger.Logger,
	batchSize int,
) *IndexService {
	return &IndexService{
		db:         db,
		memeRepo:   memeRepo,
		vectorRepo: vectorRepo,
		vision:     vision,
		embedder:   embedder,
		logger:     log,
		batchSize:  batchSize,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *IndexService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Index scans dir for supported image files and indexes each candidate.
// A failure on one candidate is logged, counted and skipped; it never aborts
// the run. Each candidate's record and embedding commit together before the
// next candidate starts.
// Parameters:
//   - ctx: context for cancellation; an aborted context stops the run after
//     the in-flight candidate, leaving the store as of the last commit.
//   - dir: root directory to scan recursively.
//   - opts: run options; nil uses defaults.
// Returns:
//   - *IndexStats: run summary with indexed/skipped/failed counts.
//   - error: non-nil only if the directory itself cannot be walked.
func (s *IndexService) Index(ctx context.Context, dir string, opts *IndexOptions) (*IndexStats, error) {
	if opts == nil {
		opts = &IndexOptions{}
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.batchSize
	}

	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldComponent: "index",
		logger.FieldRunID:     uuid.New().String(),
	})

	candidates, err := collectCandidates(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dir, err)
	}

	stats := &IndexStats{
		Total:     int64(len(candidates)),
		StartTime: time.Now(),
	}

	s.log(ctx).WithFields(logger.Fields{
		"dir":        dir,
		"candidates": len(candidates),
		"batch_size": batchSize,
		"force":      opts.Force,
	}).Info("Starting indexing run")

	for _, path := range candidates {
		if ctx.Err() != nil {
			break
		}

		switch err := s.processFile(ctx, path, opts.Force); {
		case err == nil:
			stats.Indexed++
		case err == errSkipExisting:
			stats.Skipped++
			s.log(ctx).WithField(logger.FieldPath, path).Debug("Skipping (already indexed)")
		default:
			stats.Failed++
			s.log(ctx).WithField(logger.FieldPath, path).WithError(err).Error("Failed to process image")
		}
	}

	stats.EndTime = time.Now()

	s.log(ctx).WithFields(logger.Fields{
		"total":   stats.Total,
		"indexed": stats.Indexed,
		"skipped": stats.Skipped,
		"failed":  stats.Failed,
		logger.FieldDurationMs: stats.EndTime.Sub(stats.StartTime).Milliseconds(),
	}).Info("Indexing run completed")

	return stats, nil
}

// collectCandidates walks dir depth-first and returns allow-listed image
// paths in traversal order (lexical within each directory).
func collectCandidates(dir string) ([]string, error) {
	var candidates []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isSupportedImage(path) {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// processFile runs the per-candidate pipeline: skip check, load and
// fingerprint, caption and tag off a single image encoding, embed, and the
// atomic dual-store write.
func (s *IndexService) processFile(ctx context.Context, path string, force bool) error {
	// Skip check before any heavy lifting. Dedup is by path presence only;
	// a changed file at a known path is not detected (use force to refresh).
	if !force {
		exists, err := s.memeRepo.ExistsByPath(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to check existence: %w", err)
		}
		if exists {
			return errSkipExisting
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	img, meta, err := probeImage(data, path)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	hash, err := perceptualHash(img)
	if err != nil {
		return fmt.Errorf("failed to hash image: %w", err)
	}

	// Encode the image once; every caption/tag derivation reuses it.
	enc := s.vision.EncodeImage(data, meta.Format)

	shortCaption, err := s.vision.Caption(ctx, enc, prompts.CaptionLengthShort)
	if err != nil {
		return fmt.Errorf("failed to generate short caption: %w", err)
	}

	longCaption, err := s.vision.Caption(ctx, enc, prompts.CaptionLengthNormal)
	if err != nil {
		return fmt.Errorf("failed to generate long caption: %w", err)
	}

	tags, err := s.vision.Query(ctx, enc, prompts.TagPrompt)
	if err != nil {
		return fmt.Errorf("failed to generate tags: %w", err)
	}

	embedding, err := s.embedder.Embed(ctx, buildEmbedText(shortCaption, longCaption, tags))
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	rec := &domain.MemeRecord{
		Path:         path,
		Meta:         meta,
		ShortCaption: shortCaption,
		LongCaption:  longCaption,
		AutoTags:     tags,
		Hash:         hash,
	}

	// Record upsert and embedding replacement commit or roll back together;
	// a half-written record must never survive a failed embedding insert.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := s.memeRepo.WithTx(tx).Upsert(ctx, rec)
		if err != nil {
			return fmt.Errorf("failed to upsert record: %w", err)
		}

		vectors := s.vectorRepo.WithTx(tx)
		// The index has no upsert-by-key: delete any stale entry first.
		if err := vectors.DeleteByMemeID(ctx, id); err != nil {
			return fmt.Errorf("failed to delete stale embedding: %w", err)
		}
		if err := vectors.Insert(ctx, id, embedding); err != nil {
			return fmt.Errorf("failed to insert embedding: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldPath: path,
		"id":             rec.ID,
		"hash":           hash,
	}).Debug("Indexed image")

	return nil
}
