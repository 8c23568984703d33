package domain

import "time"

// EmbedDim is the fixed dimension of the caption embedding vectors.
const EmbedDim = 384

// MemeEmbedding stores the embedding vector for one meme record.
// MemeID equals MemeRecord.ID, so there is at most one entry per record.
// The vector is packed as EmbedDim little-endian float32 values; replacing
// it is a delete-then-insert, wrapped in the same transaction as the record
// upsert by the indexing pipeline.
type MemeEmbedding struct {
	MemeID    uint      `gorm:"primaryKey;autoIncrement:false" json:"meme_id"`
	Embedding []byte    `gorm:"type:blob;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for MemeEmbedding.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (MemeEmbedding) TableName() string {
	return "meme_embeddings"
}
