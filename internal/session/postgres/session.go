// Package postgres persists tab session storage with gorm so tabs survive a
// server restart.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TabValue is one key of one tab's storage.
type TabValue struct {
	BrowserID string    `gorm:"column:browser_id;primaryKey"`
	TabID     string    `gorm:"column:tab_id;primaryKey"`
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (TabValue) TableName() string {
	return "tab_session_values"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ForTab is a session.StorageFactory.
func (r *Repository) ForTab(browserID, tabID string) session.Storage {
	return &tabStorage{db: r.db, browserID: browserID, tabID: tabID}
}

// Purge removes tabs not written to since before.
func (r *Repository) Purge(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("updated_at < ?", before.UTC()).Delete(&TabValue{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge tab sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

type tabStorage struct {
	db        *gorm.DB
	browserID string
	tabID     string
}

func (s *tabStorage) scope(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Where("browser_id = ? AND tab_id = ?", s.browserID, s.tabID)
}

func (s *tabStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var row TabValue
	err := s.scope(ctx).Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return row.Value, true, nil
}

var upsert = clause.OnConflict{
	Columns:   []clause.Column{{Name: "browser_id"}, {Name: "tab_id"}, {Name: "key"}},
	DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
}

func (s *tabStorage) Set(ctx context.Context, key, value string) error {
	row := TabValue{
		BrowserID: s.browserID,
		TabID:     s.tabID,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Clauses(upsert).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Touch keeps the tab out of Purge.
func (s *tabStorage) Touch(ctx context.Context) error {
	if err := s.scope(ctx).Model(&TabValue{}).Update("updated_at", time.Now().UTC()).Error; err != nil {
		return fmt.Errorf("failed to touch tab: %w", err)
	}
	return nil
}

func (s *tabStorage) Remove(ctx context.Context, key string) error {
	if err := s.scope(ctx).Where("key = ?", key).Delete(&TabValue{}).Error; err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (s *tabStorage) Clear(ctx context.Context) error {
	if err := s.scope(ctx).Delete(&TabValue{}).Error; err != nil {
		return fmt.Errorf("failed to clear tab: %w", err)
	}
	return nil
}

// ClearSiblings logs out every other tab of the browser that still has a user
// stored, whether or not this process has a Store open for it.
func (s *tabStorage) ClearSiblings(ctx context.Context, replaced bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tabs []string
		err := tx.Model(&TabValue{}).
			Where("browser_id = ? AND tab_id <> ? AND key = ?", s.browserID, s.tabID, session.KeyUser).
			Pluck("tab_id", &tabs).Error
		if err != nil {
			return fmt.Errorf("failed to list sibling tabs: %w", err)
		}
		if len(tabs) == 0 {
			return nil
		}

		err = tx.Where("browser_id = ? AND tab_id IN ? AND key IN ?", s.browserID, tabs, []string{session.KeyUser, session.KeySessionID}).
			Delete(&TabValue{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear sibling tabs: %w", err)
		}
		if !replaced {
			return nil
		}

		now := time.Now().UTC()
		rows := make([]TabValue, 0, len(tabs))
		for _, tab := range tabs {
			rows = append(rows, TabValue{
				BrowserID: s.browserID,
				TabID:     tab,
				Key:       session.KeyReplaced,
				Value:     string(internal.ErrCodeSessionReplaced),
				UpdatedAt: now,
			})
		}
		if err := tx.Clauses(upsert).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to mark sibling tabs: %w", err)
		}
		return nil
	})
}
