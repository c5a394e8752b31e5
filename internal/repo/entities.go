// Package repo implements the data persistence layer for the embedded
// backend, backed by GORM. This file provides a generic repository over the
// moderated entity tables (articles, advertisements, tours).
//
// All methods are context-aware. They follow the "thin repository"
// approach: no moderation rules, only persistence and query
// composition.
//
// Error semantics:
//   - When an entity is not found, methods return ErrNotFound.
//   - A filter field the kind does not define yields ErrUnknownFilter.
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/search"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the backend and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrUnknownFilter is returned for a filter field without a column mapping.
var ErrUnknownFilter = errors.New("unknown filter field")

// filterColumn maps a list filter onto a column. JSONArray columns hold a
// serialized []string and match when any element is in the filter set.
type filterColumn struct {
	column    string
	jsonArray bool
}

// tableSpec is the per-kind query mapping.
type tableSpec struct {
	search  []string
	filters map[string]filterColumn
}

var tableSpecs = map[domain.Kind]tableSpec{
	domain.KindArticle: {
		search: []string{"title", "summary", "content", "author_name"},
		filters: map[string]filterColumn{
			domain.FieldStatus:   {column: "status"},
			domain.FieldCategory: {column: "categories", jsonArray: true},
		},
	},
	domain.KindAdvertisement: {
		search: []string{"title", "advertiser_name"},
		filters: map[string]filterColumn{
			domain.FieldStatus:    {column: "status"},
			domain.FieldPlacement: {column: "placements", jsonArray: true},
		},
	},
	domain.KindTour: {
		search: []string{"title", "summary", "guide_name"},
		filters: map[string]filterColumn{
			domain.FieldModeration: {column: "moderation_status"},
			domain.FieldCategory:   {column: "categories", jsonArray: true},
		},
	},
}

var schemaCache sync.Map

// Entities is the repository for one entity kind.
type Entities[T domain.Entity] struct {
	db      *gorm.DB
	kind    domain.Kind
	spec    tableSpec
	table   string
	columns map[string]string // JSON field name -> column
}

// NewEntities builds the repository for kind over T's table.
func NewEntities[T domain.Entity](db *gorm.DB, kind domain.Kind) (*Entities[T], error) {
	spec, ok := tableSpecs[kind]
	if !ok {
		return nil, fmt.Errorf("no table mapping for kind %q", kind)
	}
	var zero T
	sch, err := schema.Parse(&zero, &schemaCache, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("parse %T schema: %w", zero, err)
	}
	cols := make(map[string]string, len(sch.Fields))
	for _, f := range sch.Fields {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" || f.DBName == "" {
			continue
		}
		cols[name] = f.DBName
	}
	return &Entities[T]{db: db, kind: kind, spec: spec, table: sch.Table, columns: cols}, nil
}

// DB returns the underlying handle.
func (r *Entities[T]) DB() *gorm.DB { return r.db }

// Column maps a JSON field name to its column.
func (r *Entities[T]) Column(field string) (string, bool) {
	c, ok := r.columns[field]
	return c, ok
}

// scope builds the filtered base query for f.
func (r *Entities[T]) scope(ctx context.Context, f domain.Filters) (*gorm.DB, error) {
	tx := r.db.WithContext(ctx)

	vis := f.Values(domain.FieldVisibility)
	var active, deleted bool
	for _, v := range vis {
		switch v {
		case domain.VisibilityActive:
			active = true
		case domain.VisibilityDeleted:
			deleted = true
		default:
			return nil, fmt.Errorf("%w: visibility %q", ErrUnknownFilter, v)
		}
	}
	switch {
	case active && !deleted:
		// default GORM scope: deleted_at IS NULL
	case deleted && !active:
		tx = tx.Unscoped().Where(r.table + ".deleted_at IS NOT NULL")
	default:
		tx = tx.Unscoped()
	}
	tx = tx.Model(new(T))

	for field, vals := range f.Sets {
		if field == domain.FieldVisibility {
			continue
		}
		fc, ok := r.spec.filters[field]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, field)
		}
		if fc.jsonArray {
			tx = tx.Where(fmt.Sprintf(
				"EXISTS (SELECT 1 FROM json_each(%s.%s) WHERE LOWER(json_each.value) IN ?)",
				r.table, fc.column), vals)
		} else {
			tx = tx.Where(fmt.Sprintf("LOWER(%s.%s) IN ?", r.table, fc.column), vals)
		}
	}

	for _, term := range search.Terms(f.Search) {
		like := search.LikePattern(term)
		parts := make([]string, len(r.spec.search))
		args := make([]any, len(r.spec.search))
		for i, col := range r.spec.search {
			parts[i] = fmt.Sprintf(`LOWER(%s.%s) LIKE ? ESCAPE '\'`, r.table, col)
			args[i] = like
		}
		tx = tx.Where("("+strings.Join(parts, " OR ")+")", args...)
	}
	return tx, nil
}

// ListPage returns the rows matching f, newest first, plus the total count.
func (r *Entities[T]) ListPage(ctx context.Context, f domain.Filters, offset, limit int) ([]T, int64, error) {
	countQ, err := r.scope(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := countQ.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []T{}, 0, nil
	}

	pageQ, err := r.scope(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	items := make([]T, 0, limit)
	err = pageQ.
		Order(r.table + ".created_at DESC").
		Order(r.table + ".id ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

// Get returns the entity, including soft-deleted ones.
func (r *Entities[T]) Get(ctx context.Context, id string) (T, error) {
	var v T
	err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return v, ErrNotFound
	}
	return v, err
}

// Create inserts v.
func (r *Entities[T]) Create(ctx context.Context, v *T) error {
	return r.db.WithContext(ctx).Create(v).Error
}

// SaveFields writes only the listed JSON fields of v (plus updated_at).
func (r *Entities[T]) SaveFields(ctx context.Context, v *T, fields []string) error {
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		c, ok := r.columns[f]
		if !ok {
			return fmt.Errorf("no column for field %q", f)
		}
		cols = append(cols, c)
	}
	res := r.db.WithContext(ctx).Unscoped().Model(v).Select(cols).Updates(v)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetModeration writes the moderation field (by JSON name) and note.
func (r *Entities[T]) SetModeration(ctx context.Context, id, field, value, note string) error {
	col, ok := r.columns[field]
	if !ok {
		return fmt.Errorf("no column for field %q", field)
	}
	res := r.db.WithContext(ctx).Unscoped().Model(new(T)).
		Where("id = ?", id).
		Updates(map[string]any{
			col:               value,
			"moderation_note": note,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks id deleted. Deleting an already deleted row is a no-op.
func (r *Entities[T]) SoftDelete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		_, err := r.Get(ctx, id)
		return err
	}
	return nil
}

// Restore clears the soft-delete mark of id.
func (r *Entities[T]) Restore(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Unscoped().Model(new(T)).
		Where("id = ?", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of rows, including soft-deleted ones.
func (r *Entities[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Unscoped().Model(new(T)).Count(&n).Error
	return n, err
}
