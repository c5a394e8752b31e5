// Package repo implements the data persistence layer for the embedded
// backend, backed by GORM. This file provides the action journal: one row per
// admin mutation issued through the console. Rows carrying an idempotency key
// let a retried request be answered from the journal instead of mutating
// twice.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

// ErrDuplicate indicates that a journal row already exists for the given
// (kind, entity_id, idempotency_key) tuple.
var ErrDuplicate = errors.New("duplicate")

// RecordAction inserts rec, assigning its ID and timestamp when unset, and
// returns ErrDuplicate on a unique violation of the idempotency key.
func RecordAction(ctx context.Context, db *gorm.DB, rec *domain.ActionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.IdempotencyKey != nil && strings.TrimSpace(*rec.IdempotencyKey) == "" {
		rec.IdempotencyKey = nil
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindReplay returns the journal row recorded for (kind, entityID, key) at or
// after since, or ErrNotFound.
func FindReplay(ctx context.Context, db *gorm.DB, kind, entityID, key string, since time.Time) (*domain.ActionRecord, error) {
	if strings.TrimSpace(entityID) == "" || strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.ActionRecord
	err := db.WithContext(ctx).
		Where("kind = ? AND entity_id = ? AND idempotency_key = ? AND created_at >= ?", kind, entityID, key, since).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListActions returns a page of the journal of one entity, newest first.
func ListActions(ctx context.Context, db *gorm.DB, kind, entityID string, offset, limit int) ([]domain.ActionRecord, error) {
	var out []domain.ActionRecord
	err := db.WithContext(ctx).
		Where("kind = ? AND entity_id = ?", kind, entityID).
		Order("created_at DESC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountActions returns the number of journal rows of one entity.
func CountActions(ctx context.Context, db *gorm.DB, kind, entityID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.ActionRecord{}).
		Where("kind = ? AND entity_id = ?", kind, entityID).
		Count(&n).Error
	return n, err
}
