package repository

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/tobyv/memesdb/internal/domain"
	"gorm.io/gorm"
)

// VectorHit is one k-NN result: a record id and its distance to the query
// vector, smaller meaning closer.
type VectorHit struct {
	MemeID   uint
	Distance float64
}

// VectorRepository is the vector index half of the archive store. Embeddings
// live in the same SQLite file as the records, packed as float32 BLOBs, and
// nearest-neighbor search is a brute-force scan ordered by L2 distance.
//
// The index has no native upsert: replacing a record's vector is an explicit
// DeleteByMemeID followed by Insert. That pair is not atomic on its own; the
// indexing pipeline wraps both in the same transaction as the record upsert.
type VectorRepository struct {
	db  *gorm.DB
	dim int
}

// NewVectorRepository creates a new VectorRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//   - dim: fixed embedding dimension enforced on insert and search.
// Returns:
//   - *VectorRepository: repository instance bound to db.
func NewVectorRepository(db *gorm.DB, dim int) *VectorRepository {
	if dim <= 0 {
		dim = domain.EmbedDim
	}
	return &VectorRepository{db: db, dim: dim}
}

// WithTx returns a repository clone bound to the given transaction handle.
// Parameters:
//   - tx: transaction-scoped GORM handle.
// Returns:
//   - *VectorRepository: repository operating inside the transaction.
func (r *VectorRepository) WithTx(tx *gorm.DB) *VectorRepository {
	return &VectorRepository{db: tx, dim: r.dim}
}

// Insert stores the embedding vector for a record id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - memeID: owning record id.
//   - vec: embedding vector; must have the configured dimension.
// Returns:
//   - error: non-nil if the dimension is wrong or the insert fails.
func (r *VectorRepository) Insert(ctx context.Context, memeID uint, vec []float32) error {
	if len(vec) != r.dim {
		return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), r.dim)
	}
	entry := domain.MemeEmbedding{
		MemeID:    memeID,
		Embedding: encodeVector(vec),
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

// DeleteByMemeID removes the embedding entry for a record id, if any.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - memeID: owning record id.
// Returns:
//   - error: non-nil if the delete fails.
func (r *VectorRepository) DeleteByMemeID(ctx context.Context, memeID uint) error {
	return r.db.WithContext(ctx).Delete(&domain.MemeEmbedding{}, "meme_id = ?", memeID).Error
}

// GetByMemeID retrieves the decoded embedding vector for a record id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - memeID: owning record id.
// Returns:
//   - []float32: stored vector.
//   - error: non-nil if lookup or decoding fails.
func (r *VectorRepository) GetByMemeID(ctx context.Context, memeID uint) ([]float32, error) {
	var entry domain.MemeEmbedding
	if err := r.db.WithContext(ctx).First(&entry, "meme_id = ?", memeID).Error; err != nil {
		return nil, err
	}
	return decodeVector(entry.Embedding)
}

// Search performs a k-nearest-neighbor query over all stored vectors.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: query vector; must have the configured dimension.
//   - k: maximum number of hits to return.
// Returns:
//   - []VectorHit: up to k hits ordered by ascending L2 distance.
//   - error: non-nil if the dimension is wrong or the scan fails.
func (r *VectorRepository) Search(ctx context.Context, query []float32, k int) ([]VectorHit, error) {
	if len(query) != r.dim {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(query), r.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	var entries []domain.MemeEmbedding
	if err := r.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return nil, err
	}

	hits := make([]VectorHit, 0, len(entries))
	for _, entry := range entries {
		vec, err := decodeVector(entry.Embedding)
		if err != nil || len(vec) != r.dim {
			// A malformed row must not fail the whole query.
			continue
		}
		hits = append(hits, VectorHit{
			MemeID:   entry.MemeID,
			Distance: l2Distance(query, vec),
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count counts all embedding entries.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: number of entries.
//   - error: non-nil if the query fails.
func (r *VectorRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.MemeEmbedding{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// encodeVector packs a float32 slice as a little-endian BLOB, four bytes per
// component, no length prefix; the length is derived from the BLOB size on
// decode.
func encodeVector(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// decodeVector unpacks a BLOB produced by encodeVector.
func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// l2Distance computes the Euclidean distance between two equal-length vectors.
func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
