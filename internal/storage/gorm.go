package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
)

// Entry is one stored key
type Entry struct {
	Key       string `gorm:"column:store_key;primary_key;size:255"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName sets the table name for entries
func (Entry) TableName() string {
	return "kv_entries"
}

// GormStore keeps entries in a SQL table
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the entries table and returns the store
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Entry{}).Error; err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Get returns the value for key
func (s *GormStore) Get(ctx context.Context, key string) (string, error) {
	var e Entry
	err := s.db.Where("store_key = ?", key).First(&e).Error
	if gorm.IsRecordNotFoundError(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return e.Value, nil
}

// Set stores value under key, creating or replacing the row
func (s *GormStore) Set(ctx context.Context, key, value string) error {
	e := Entry{Key: key, Value: value}
	if err := s.db.Save(&e).Error; err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes keys
func (s *GormStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.db.Where("store_key IN (?)", keys).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// KeysWithSuffix lists keys ending in suffix
func (s *GormStore) KeysWithSuffix(ctx context.Context, suffix string) ([]string, error) {
	var keys []string
	pattern := "%" + escapeLike(suffix)
	err := s.db.Model(&Entry{}).
		Where("store_key LIKE ? ESCAPE '\\'", pattern).
		Order("store_key").
		Pluck("store_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// Close closes the database connection
func (s *GormStore) Close() error {
	return s.db.Close()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
