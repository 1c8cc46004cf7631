package model

import "time"

const (
	DocumentStatusPending = "pending"
	DocumentStatusIndexed = "indexed"
)

// Document is an uploaded file tracked by the record store. Its chunks live in the vector index.
type Document struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Filename        string    `gorm:"size:256;not null" json:"filename"`
	FileSize        int64     `gorm:"not null;default:0" json:"file_size"`
	ContentType     string    `gorm:"size:128" json:"content_type"`
	Filepath        string    `gorm:"size:512" json:"-"`
	Content         string    `gorm:"type:longtext" json:"-"`
	Status          string    `gorm:"size:16;not null;index" json:"status"`
	UploadTimestamp time.Time `gorm:"autoCreateTime" json:"upload_timestamp"`
}
