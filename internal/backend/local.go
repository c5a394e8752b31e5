package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/diff"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/repo"
)

// Ensure Local implements Backend at compile time.
var _ Backend[domain.Tour] = (*Local[domain.Tour])(nil)

const localDefaultLimit = 20

// Local serves the Backend contract from the embedded database. Moderation
// rules (which actions a kind accepts, which fields are editable) come from
// the kind's domain.Profile.
type Local[T domain.Entity] struct {
	repo    *repo.Entities[T]
	profile domain.Profile
}

// NewLocal builds the embedded backend for kind over db.
func NewLocal[T domain.Entity](db *gorm.DB, kind domain.Kind) (*Local[T], error) {
	r, err := repo.NewEntities[T](db, kind)
	if err != nil {
		return nil, err
	}
	return &Local[T]{repo: r, profile: domain.ProfileOf(kind)}, nil
}

func (l *Local[T]) List(ctx context.Context, q domain.Query) (domain.Page[T], error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = localDefaultLimit
	}
	items, total, err := l.repo.ListPage(ctx, q.Filters.Normalize(), q.Offset(), q.Limit)
	if err != nil {
		return domain.Page[T]{}, mapRepoErr(err)
	}
	return domain.Page[T]{
		Items:      items,
		Total:      int(total),
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: domain.TotalPages(int(total), q.Limit),
	}, nil
}

func (l *Local[T]) Detail(ctx context.Context, id string) (T, error) {
	v, err := l.repo.Get(ctx, id)
	return v, mapRepoErr(err)
}

// Update writes the patched fields and returns the stored row.
func (l *Local[T]) Update(ctx context.Context, id string, patch map[string]any) (*T, error) {
	fields := make([]string, 0, len(patch))
	for k := range patch {
		if !l.profile.Editable(k) {
			return nil, fmt.Errorf("%w: field %q is not editable", ErrRejected, k)
		}
		fields = append(fields, k)
	}
	sort.Strings(fields)

	cur, err := l.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if len(fields) == 0 {
		return &cur, nil
	}
	next, err := diff.Apply(cur, diff.Record(patch))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if err := l.repo.SaveFields(ctx, &next, fields); err != nil {
		return nil, mapRepoErr(err)
	}
	fresh, err := l.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return &fresh, nil
}

// AdminAction applies the moderation transition of action. Delete and
// restore are routed to their dedicated operations.
func (l *Local[T]) AdminAction(ctx context.Context, id string, action domain.ActionKind, reason string) error {
	switch action {
	case domain.ActionDelete:
		return l.SoftDelete(ctx, id)
	case domain.ActionRestore:
		return l.Restore(ctx, id)
	}
	value, ok := l.profile.Transitions[action]
	if !ok || !l.profile.Supports(action) {
		return fmt.Errorf("%w: %s does not support %s", ErrRejected, l.profile.Kind, action)
	}
	reason = strings.TrimSpace(reason)
	if action.RequiresReason() && reason == "" {
		return fmt.Errorf("%w: %s requires a reason", ErrRejected, action)
	}
	return mapRepoErr(l.repo.SetModeration(ctx, id, l.profile.ModerationField, value, reason))
}

func (l *Local[T]) SoftDelete(ctx context.Context, id string) error {
	return mapRepoErr(l.repo.SoftDelete(ctx, id))
}

func (l *Local[T]) Restore(ctx context.Context, id string) error {
	return mapRepoErr(l.repo.Restore(ctx, id))
}

func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrUnknownFilter):
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return err
}
