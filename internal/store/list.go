package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

// LoadFunc loads one list page from the backend.
type LoadFunc[T any] func(ctx context.Context, q domain.Query) (domain.Page[T], error)

// ListState is a read-only snapshot of the list controller.
//
// Page, Limit and Filters describe the current query. Items, Total and
// TotalPages come from the last successful fetch and stay visible while a
// newer fetch is loading or after one failed.
type ListState[T any] struct {
	Items      []T            `json:"items"`
	Filters    domain.Filters `json:"filters"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Total      int            `json:"total"`
	TotalPages int            `json:"totalPages"`
	Loading    bool           `json:"loading"`
	Error      string         `json:"error,omitempty"`
	Loaded     bool           `json:"loaded"`
	FetchedAt  *time.Time     `json:"fetchedAt,omitempty"`
}

// ListConfig configures a ListController.
type ListConfig struct {
	Kind           domain.Kind
	Profile        domain.Profile
	DefaultLimit   int
	MaxLimit       int
	SearchDebounce time.Duration
	FetchTimeout   time.Duration
	Now            func() time.Time
	Notify         func()
	Logger         zerolog.Logger
}

// ListController owns the current filter criteria and pagination window and
// applies list responses only while they are still relevant.
//
// Setters are pure state updates. The one exception is a change of the
// search text, which schedules a Fetch after a quiet period.
type ListController[T domain.Entity] struct {
	cfg  ListConfig
	load LoadFunc[T]

	mu       sync.Mutex
	filters  domain.Filters
	page     int
	limit    int
	items    []T
	total    int
	pages    int
	loaded   bool
	err      string
	fetched  time.Time
	pending  map[string]int
	seq      uint64
	applied  uint64
	timer    *time.Timer
	debounce uint64
	closed   bool
}

// NewListController starts at page 1 with the profile's default filters.
func NewListController[T domain.Entity](cfg ListConfig, load LoadFunc[T]) *ListController[T] {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Notify == nil {
		cfg.Notify = func() {}
	}
	return &ListController[T]{
		cfg:     cfg,
		load:    load,
		filters: cfg.Profile.DefaultFilters.Clone(),
		page:    1,
		limit:   cfg.DefaultLimit,
		pending: make(map[string]int),
	}
}

func (l *ListController[T]) queryLocked() domain.Query {
	return domain.Query{Filters: l.filters.Clone(), Page: l.page, Limit: l.limit}
}

// Query returns the current (filters, page, limit).
func (l *ListController[T]) Query() domain.Query {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queryLocked()
}

// SetFilters merges p into the current filters. Any effective change resets
// the page to 1. A change of the search text schedules a debounced Fetch.
func (l *ListController[T]) SetFilters(p domain.FilterPatch) error {
	for field := range p.Sets {
		if !l.cfg.Profile.HasFilter(field) {
			return fmt.Errorf("%w: %q", ErrUnknownFilter, field)
		}
	}

	l.mu.Lock()
	next, searchChanged := l.filters.Apply(p)
	changed := !next.Equal(l.filters)
	if changed {
		l.filters = next
		l.page = 1
	}
	if searchChanged {
		l.scheduleLocked()
	}
	l.mu.Unlock()

	if changed {
		l.cfg.Notify()
	}
	return nil
}

func (l *ListController[T]) scheduleLocked() {
	if l.closed {
		return
	}
	l.debounce++
	gen := l.debounce
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.cfg.SearchDebounce, func() {
		l.mu.Lock()
		fire := gen == l.debounce && !l.closed
		l.mu.Unlock()
		if !fire {
			return
		}
		if err := l.Fetch(context.Background()); err != nil {
			l.cfg.Logger.Debug().Err(err).Msg("debounced search fetch failed")
		}
	})
}

// SetPage moves the window to page n (minimum 1).
func (l *ListController[T]) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	l.mu.Lock()
	changed := n != l.page
	l.page = n
	l.mu.Unlock()
	if changed {
		l.cfg.Notify()
	}
}

// SetLimit changes the page size, clamped to [1, MaxLimit]. A change resets
// the page to 1.
func (l *ListController[T]) SetLimit(n int) {
	if n < 1 {
		n = 1
	}
	if n > l.cfg.MaxLimit {
		n = l.cfg.MaxLimit
	}
	l.mu.Lock()
	changed := n != l.limit
	if changed {
		l.limit = n
		l.page = 1
	}
	l.mu.Unlock()
	if changed {
		l.cfg.Notify()
	}
}

// ClearFilters restores the kind's default filters and page 1, cancelling
// any pending debounced search.
func (l *ListController[T]) ClearFilters() {
	l.mu.Lock()
	l.filters = l.cfg.Profile.DefaultFilters.Clone()
	l.page = 1
	l.debounce++
	if l.timer != nil {
		l.timer.Stop()
	}
	l.mu.Unlock()
	l.cfg.Notify()
}

// Fetch loads the current query. The query is captured as the relevance
// token; the response is applied only if the token still matches the
// current query and no later fetch was applied first. Irrelevant responses
// are dropped and Fetch returns nil.
//
// If ctx ends first Fetch returns ctx.Err() and the call keeps running; its
// response is still subject to the relevance check when it lands.
func (l *ListController[T]) Fetch(ctx context.Context) error {
	l.mu.Lock()
	q := l.queryLocked()
	token := q.Key()
	l.seq++
	seq := l.seq
	l.pending[token]++
	l.err = ""
	l.mu.Unlock()
	l.cfg.Notify()

	runCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc = func() {}
	if l.cfg.FetchTimeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, l.cfg.FetchTimeout)
	}

	done := make(chan error, 1)
	go func() {
		defer cancel()
		page, err := l.load(runCtx, q)
		done <- l.apply(token, seq, q, page, err)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		l.mu.Lock()
		if l.queryLocked().Key() == token {
			l.err = ctx.Err().Error()
		}
		l.mu.Unlock()
		l.cfg.Notify()
		return ctx.Err()
	}
}

func (l *ListController[T]) apply(token string, seq uint64, q domain.Query, page domain.Page[T], err error) error {
	l.mu.Lock()
	if l.pending[token]--; l.pending[token] <= 0 {
		delete(l.pending, token)
	}
	if token != l.queryLocked().Key() || seq < l.applied {
		l.mu.Unlock()
		staleResponses.WithLabelValues(string(l.cfg.Kind), layerList).Inc()
		l.cfg.Logger.Debug().Str("token", token).Msg("stale list response dropped")
		l.cfg.Notify()
		return nil
	}
	l.applied = seq
	if err != nil {
		l.err = err.Error()
		l.mu.Unlock()
		l.cfg.Notify()
		return err
	}

	items := page.Items
	if len(items) > q.Limit {
		items = items[:q.Limit]
	}
	l.items = append(make([]T, 0, len(items)), items...)
	l.total = page.Total
	l.pages = page.TotalPages
	if l.pages == 0 {
		l.pages = domain.TotalPages(page.Total, q.Limit)
	}
	l.loaded = true
	l.err = ""
	l.fetched = l.cfg.Now()
	l.mu.Unlock()
	l.cfg.Notify()
	return nil
}

// Replace swaps the displayed copy of id for v, as after a successful save.
func (l *ListController[T]) Replace(id string, v T) bool {
	l.mu.Lock()
	found := false
	for i := range l.items {
		if l.items[i].EntityID() == id {
			l.items[i] = v
			found = true
		}
	}
	l.mu.Unlock()
	if found {
		l.cfg.Notify()
	}
	return found
}

// State returns a snapshot.
func (l *ListController[T]) State() ListState[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := ListState[T]{
		Items:      append(make([]T, 0, len(l.items)), l.items...),
		Filters:    l.filters.Clone(),
		Page:       l.page,
		Limit:      l.limit,
		Total:      l.total,
		TotalPages: l.pages,
		Loading:    l.pending[l.queryLocked().Key()] > 0,
		Error:      l.err,
		Loaded:     l.loaded,
	}
	if !l.fetched.IsZero() {
		t := l.fetched
		st.FetchedAt = &t
	}
	return st
}

// Close stops any pending debounced fetch. Later setters never schedule one.
func (l *ListController[T]) Close() {
	l.mu.Lock()
	l.closed = true
	l.debounce++
	if l.timer != nil {
		l.timer.Stop()
	}
	l.mu.Unlock()
}
