package repository

import (
	"context"
	"fmt"

	"github.com/tobyv/memesdb/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MemeRepository handles meme record data operations.
type MemeRepository struct {
	db *gorm.DB
}

// NewMemeRepository creates a new MemeRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *MemeRepository: repository instance bound to db.
func NewMemeRepository(db *gorm.DB) *MemeRepository {
	return &MemeRepository{db: db}
}

// WithTx returns a repository clone bound to the given transaction handle.
// Parameters:
//   - tx: transaction-scoped GORM handle.
// Returns:
//   - *MemeRepository: repository operating inside the transaction.
func (r *MemeRepository) WithTx(tx *gorm.DB) *MemeRepository {
	return &MemeRepository{db: tx}
}

// Upsert creates or updates a meme record keyed by path and returns the row id.
// The conflict clause refreshes meta, captions, auto tags and hash but leaves
// user_tags alone: re-indexing a path must never clobber operator tags.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rec: meme record to create or update.
// Returns:
//   - uint: the record's id, assigned on first insert and stable afterwards.
//   - error: non-nil if the upsert fails.
func (r *MemeRepository) Upsert(ctx context.Context, rec *domain.MemeRecord) (uint, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"meta", "short_caption", "long_caption", "auto_tags", "hash", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		return 0, err
	}

	// On the conflict-update path SQLite's last_insert_rowid is stale, and
	// the id the driver reports back can belong to an unrelated earlier
	// insert. Resolve the real id by path unconditionally.
	var existing domain.MemeRecord
	if err := r.db.WithContext(ctx).Select("id").First(&existing, "path = ?", rec.Path).Error; err != nil {
		return 0, fmt.Errorf("failed to resolve id after upsert: %w", err)
	}
	rec.ID = existing.ID

	return rec.ID, nil
}

// GetByPath retrieves a meme record by its path.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - path: normalized file path.
// Returns:
//   - *domain.MemeRecord: record if found.
//   - error: non-nil if lookup fails.
func (r *MemeRepository) GetByPath(ctx context.Context, path string) (*domain.MemeRecord, error) {
	var rec domain.MemeRecord
	if err := r.db.WithContext(ctx).First(&rec, "path = ?", path).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ExistsByPath checks if a record exists for the given path.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - path: normalized file path.
// Returns:
//   - bool: true if a record exists.
//   - error: non-nil if the lookup fails.
func (r *MemeRepository) ExistsByPath(ctx context.Context, path string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.MemeRecord{}).
		Where("path = ?", path).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByID retrieves a meme record by its id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: record id.
// Returns:
//   - *domain.MemeRecord: record if found.
//   - error: non-nil if lookup fails.
func (r *MemeRepository) GetByID(ctx context.Context, id uint) (*domain.MemeRecord, error) {
	var rec domain.MemeRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByIDs retrieves meme records by a list of ids. The result carries no
// ordering guarantee; callers that need ranked output must reorder.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: list of record ids.
// Returns:
//   - []domain.MemeRecord: matching records.
//   - error: non-nil if the query fails.
func (r *MemeRepository) GetByIDs(ctx context.Context, ids []uint) ([]domain.MemeRecord, error) {
	if len(ids) == 0 {
		return []domain.MemeRecord{}, nil
	}
	var recs []domain.MemeRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to get records by ids: %w", err)
	}
	return recs, nil
}

// List retrieves up to limit arbitrary records, used by the tag editor when
// no query is given.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
// Returns:
//   - []domain.MemeRecord: records in insertion order.
//   - error: non-nil if the query fails.
func (r *MemeRepository) List(ctx context.Context, limit int) ([]domain.MemeRecord, error) {
	var recs []domain.MemeRecord
	if err := r.db.WithContext(ctx).Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// UpdateUserTags sets the user_tags column for a record. This is the only
// write path for user tags; it touches no other column.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: record id.
//   - tags: comma-separated tag string supplied by the operator.
// Returns:
//   - error: non-nil if the update fails.
func (r *MemeRepository) UpdateUserTags(ctx context.Context, id uint, tags string) error {
	return r.db.WithContext(ctx).Model(&domain.MemeRecord{}).
		Where("id = ?", id).
		Update("user_tags", tags).Error
}

// Count counts all meme records.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: number of records.
//   - error: non-nil if the query fails.
func (r *MemeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.MemeRecord{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// statsRow is the raw aggregate shape scanned from the stats query.
type statsRow struct {
	TotalRecords int64
	UniqueImages int64
	TextBytes    int64
}

// Stats computes aggregate archive statistics over all records.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *domain.ArchiveStats: totals, distinct hash count and text size; the
//     store file size is left for the caller to fill in.
//   - error: non-nil if the query fails.
func (r *MemeRepository) Stats(ctx context.Context) (*domain.ArchiveStats, error) {
	var row statsRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) AS total_records,
		       COUNT(DISTINCT hash) AS unique_images,
		       COALESCE(SUM(
		           LENGTH(meta) + LENGTH(short_caption) + LENGTH(long_caption) +
		           LENGTH(COALESCE(auto_tags, '')) + LENGTH(COALESCE(user_tags, ''))
		       ), 0) AS text_bytes
		FROM memes`).Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return &domain.ArchiveStats{
		TotalRecords: row.TotalRecords,
		UniqueImages: row.UniqueImages,
		TextBytes:    row.TextBytes,
	}, nil
}
