package models

import (
	"time"

	"gorm.io/datatypes"
)

// Blob is the metadata row for one stored binary object. The raw bytes live
// in the storage backend under Location; blobs are immutable once written.
type Blob struct {
	ID        string         `gorm:"primaryKey;size:64" json:"id"`
	FileName  string         `gorm:"size:255;not null" json:"file_name"`
	MediaType string         `gorm:"size:128;not null" json:"media_type"`
	SizeBytes int64          `gorm:"not null" json:"size_bytes"`
	Checksum  string         `gorm:"size:64" json:"checksum"`
	Location  string         `gorm:"size:512;not null" json:"-"`
	Metadata  datatypes.JSON `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}
