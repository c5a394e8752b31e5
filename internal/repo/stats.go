// Package repo implements the data persistence layer for the embedded
// backend, backed by GORM. This file provides small aggregate queries used
// for conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

// JournalStats returns aggregate metadata for one entity's action journal:
// the total number of rows and the greatest CreatedAt among them.
//
// When the entity has no journal rows, the returned count is 0 and latest is
// nil.
func JournalStats(ctx context.Context, db *gorm.DB, kind, entityID string) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.ActionRecord{}).
		Where("kind = ? AND entity_id = ?", kind, entityID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
