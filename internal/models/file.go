package models

import "time"

// Upload is the metadata recorded for one saved file. Records are created
// at save time and never modified.
type Upload struct {
	ID         string `json:"id"`
	FileName   string `json:"fileName"`
	FileType   string `json:"fileType"`
	FileSize   int64  `json:"fileSize"`
	UploadDate string `json:"uploadDate"`
	// StorageKey locates the saved bytes for strategies that keep them.
	StorageKey string `json:"storageKey,omitempty"`
}

// FileHandle is an in-memory file picked by the client.
type FileHandle struct {
	Name    string
	Type    string
	Size    int64
	Content []byte
}

// FileInfo is the content-free view of a FileHandle returned to clients.
type FileInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	PreviewName string `json:"previewName"`
}

// KVEntry backs the key-value store in SQL databases.
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:255"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
