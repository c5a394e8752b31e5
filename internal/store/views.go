package store

import (
	"context"
	"errors"
	"time"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/diff"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

// The view types below are kind-erased snapshots for the HTTP layer, which
// holds one Store per kind behind a single interface.

// ListView is the list snapshot.
type ListView struct {
	Kind       domain.Kind    `json:"kind"`
	Items      any            `json:"items"`
	Filters    domain.Filters `json:"filters"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Total      int            `json:"total"`
	TotalPages int            `json:"totalPages"`
	Loading    bool           `json:"loading"`
	Error      string         `json:"error,omitempty"`
	Loaded     bool           `json:"loaded"`
	FetchedAt  *time.Time     `json:"fetchedAt,omitempty"`
	Selected   []string       `json:"selected"`
	Version    uint64         `json:"version"`
}

// DetailView is one id's detail snapshot.
type DetailView struct {
	Kind          domain.Kind             `json:"kind"`
	ID            string                  `json:"id"`
	Entity        any                     `json:"entity,omitempty"`
	Loading       bool                    `json:"loading"`
	Error         string                  `json:"error,omitempty"`
	LastFetchedAt *time.Time              `json:"lastFetchedAt,omitempty"`
	Selected      bool                    `json:"selected"`
	Actions       map[string]ActionStatus `json:"actions"`
	Editing       bool                    `json:"editing"`
	Dirty         bool                    `json:"dirty"`
}

// SelectionView is the selection snapshot.
type SelectionView struct {
	Kind  domain.Kind `json:"kind"`
	IDs   []string    `json:"ids"`
	Count int         `json:"count"`
}

// EditView is an edit session snapshot.
type EditView struct {
	ID       string      `json:"id"`
	Baseline diff.Record `json:"baseline"`
	Patch    diff.Record `json:"patch"`
	Dirty    bool        `json:"dirty"`
}

// ListView returns the list snapshot.
func (s *Store[T]) ListView() ListView {
	st := s.List.State()
	return ListView{
		Kind:       s.kind,
		Items:      st.Items,
		Filters:    st.Filters,
		Page:       st.Page,
		Limit:      st.Limit,
		Total:      st.Total,
		TotalPages: st.TotalPages,
		Loading:    st.Loading,
		Error:      st.Error,
		Loaded:     st.Loaded,
		FetchedAt:  st.FetchedAt,
		Selected:   s.Selection.IDs(),
		Version:    s.Version(),
	}
}

// DetailView fetches id (see FetchDetail) and returns its snapshot. A fetch
// failure is reported both as the returned error and in the view, which
// still carries any previously cached entity.
func (s *Store[T]) DetailView(ctx context.Context, id string, force bool) (DetailView, error) {
	_, err := s.FetchDetail(ctx, id, force)
	if errors.Is(err, ErrEmptyID) {
		return DetailView{}, err
	}
	return s.PeekDetail(id), err
}

// PeekDetail returns id's snapshot without fetching.
func (s *Store[T]) PeekDetail(id string) DetailView {
	e := s.Detail.Peek(id)
	v := DetailView{
		Kind:          s.kind,
		ID:            id,
		Loading:       e.Loading,
		Error:         e.Error,
		LastFetchedAt: e.LastFetchedAt,
		Selected:      s.Selection.Has(id),
		Actions:       s.ActionView(id),
	}
	if e.Entity != nil {
		v.Entity = *e.Entity
	}
	if sess, ok := s.Session(id); ok {
		v.Editing = true
		v.Dirty = sess.Dirty()
	}
	return v
}

// ActionView returns id's action statuses keyed by action name.
func (s *Store[T]) ActionView(id string) map[string]ActionStatus {
	out := make(map[string]ActionStatus)
	for k, st := range s.Actions.Statuses(id) {
		out[k.String()] = st
	}
	return out
}

// SelectionView returns the selection snapshot.
func (s *Store[T]) SelectionView() SelectionView {
	ids := s.Selection.IDs()
	return SelectionView{Kind: s.kind, IDs: ids, Count: len(ids)}
}

// EditView opens an edit session for id and returns its baseline.
func (s *Store[T]) EditView(ctx context.Context, id string) (EditView, error) {
	base, err := s.BeginEdit(ctx, id)
	if err != nil {
		return EditView{}, err
	}
	return EditView{ID: id, Baseline: base, Patch: diff.Record{}}, nil
}
