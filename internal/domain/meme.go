package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ImageMeta holds descriptive image metadata stored as JSON in the database.
// It is never used for identity; the record's path is the natural key.
type ImageMeta struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Mode   string `json:"mode"`
	Path   string `json:"path"`
}

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the metadata.
//   - error: non-nil if marshaling fails.
func (m ImageMeta) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (m *ImageMeta) Scan(value interface{}) error {
	if value == nil {
		*m = ImageMeta{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan ImageMeta")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// MemeRecord represents one indexed image in the archive.
// The path is the externally visible identity; the id is assigned by the
// store on first insert and joins the record to its embedding entry.
type MemeRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Path         string    `gorm:"type:text;not null;uniqueIndex:idx_memes_path" json:"path"`
	Meta         ImageMeta `gorm:"type:text" json:"meta"`
	ShortCaption string    `gorm:"type:text" json:"short_caption"`
	LongCaption  string    `gorm:"type:text" json:"long_caption"`
	AutoTags     string    `gorm:"type:text" json:"auto_tags"`
	UserTags     string    `gorm:"type:text" json:"user_tags,omitempty"`
	Hash         string    `gorm:"type:text;index:idx_memes_hash" json:"hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for MemeRecord.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (MemeRecord) TableName() string {
	return "memes"
}

// ScoredRecord represents a search result with its vector distance.
// Smaller distance means closer, so more relevant.
type ScoredRecord struct {
	MemeRecord
	Distance float64 `json:"distance"`
}
