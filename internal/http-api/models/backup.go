package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Backup is one stored snapshot document. The payload is the full
// {books, users, rentals} object, pretty-printed JSON.
type Backup struct {
	ID        string          `json:"id" gorm:"primaryKey;type:uuid"`
	Filename  string          `json:"filename" gorm:"not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"index:idx_backups_created_at,sort:desc"`
	Size      int64           `json:"size"`
	Payload   json.RawMessage `json:"-" gorm:"type:jsonb"`
}

// BeforeCreate hook to set a UUID before inserting a Backup
func (b *Backup) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return
}

func (Backup) TableName() string {
	return "backups"
}

// BackupMeta is the listing shape: metadata only, no payload.
type BackupMeta struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}
