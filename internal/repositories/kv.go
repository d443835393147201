package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/rohits-web03/mediadrop/internal/common"
	"github.com/rohits-web03/mediadrop/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Known keys.
const (
	KeySessionUser = "user"
	KeyUsers       = "users"
	KeyUploads     = "uploads"
)

// Store is the key-value persistence port. Values are JSON text.
type Store interface {
	// Get returns ok=false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// GormStore keeps entries in the kv_entries table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.KVEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	switch {
	case err == nil:
		return entry.Value, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("%w: get %q: %v", common.ErrPersistence, key, err)
	}
}

func (s *GormStore) Set(ctx context.Context, key, value string) error {
	entry := models.KVEntry{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("%w: set %q: %v", common.ErrPersistence, key, err)
	}
	return nil
}

func (s *GormStore) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&models.KVEntry{}).Error; err != nil {
		return fmt.Errorf("%w: remove %q: %v", common.ErrPersistence, key, err)
	}
	return nil
}
