// Package store is the console's client-side synchronization engine.
//
// One Store is instantiated per entity kind. It composes:
//
//   - a Tracker for per (action, id) loading/error state with coalescing,
//   - a Selection set,
//   - a DetailCache with per-id deduplication and sequence numbers,
//   - a ListController with relevance tokens and a debounced search,
//   - an optional Prefetcher warming the next page,
//   - edit sessions backed by internal/diff.
//
// All backend traffic goes through a backend.Backend[T]. Every read-only
// snapshot is safe to take concurrently with any trigger.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/backend"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/diff"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

// Options configures a Store.
type Options struct {
	Kind           domain.Kind
	FetchTimeout   time.Duration
	SearchDebounce time.Duration
	DefaultLimit   int
	MaxLimit       int
	Prefetch       bool
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Store is the synchronization engine for one entity kind.
type Store[T domain.Entity] struct {
	kind    domain.Kind
	profile domain.Profile
	backend backend.Backend[T]
	log     zerolog.Logger

	Actions   *Tracker
	Selection *Selection
	Detail    *DetailCache[T]
	List      *ListController[T]
	// Prefetch is nil when prefetching is disabled.
	Prefetch *Prefetcher[T]

	version atomic.Uint64

	sessMu   sync.Mutex
	sessions map[string]*diff.Session
}

// New builds a Store over b.
func New[T domain.Entity](b backend.Backend[T], opts Options) *Store[T] {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	lg := opts.Logger.With().Str("kind", string(opts.Kind)).Logger()
	s := &Store[T]{
		kind:     opts.Kind,
		profile:  domain.ProfileOf(opts.Kind),
		backend:  b,
		log:      lg,
		sessions: make(map[string]*diff.Session),
	}

	s.Actions = NewTracker(opts.Kind, opts.FetchTimeout, lg)
	s.Selection = NewSelection()
	s.Detail = NewDetailCache[T](opts.Kind, b.Detail, opts.FetchTimeout, opts.Now, s.bump, lg)

	load := LoadFunc[T](b.List)
	if opts.Prefetch {
		s.Prefetch = NewPrefetcher[T](opts.Kind, b.List, opts.FetchTimeout, 0, lg)
		load = s.Prefetch.Load
	}
	s.List = NewListController[T](ListConfig{
		Kind:           opts.Kind,
		Profile:        s.profile,
		DefaultLimit:   opts.DefaultLimit,
		MaxLimit:       opts.MaxLimit,
		SearchDebounce: opts.SearchDebounce,
		FetchTimeout:   opts.FetchTimeout,
		Now:            opts.Now,
		Notify:         s.bump,
		Logger:         lg,
	}, load)
	return s
}

func (s *Store[T]) bump() { s.version.Add(1) }

// Kind returns the entity kind served by s.
func (s *Store[T]) Kind() domain.Kind { return s.kind }

// Profile returns the moderation profile of s's kind.
func (s *Store[T]) Profile() domain.Profile { return s.profile }

// Version increases on every visible state change. Useful as an ETag.
func (s *Store[T]) Version() uint64 { return s.version.Load() }

func (s *Store[T]) span(ctx context.Context, name, id string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("entity.kind", string(s.kind))}
	if id != "" {
		attrs = append(attrs, attribute.String("entity.id", id))
	}
	return otel.Tracer("store/Store").Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ---- list ----

// SetFilters merges p into the current filters. See ListController.SetFilters.
func (s *Store[T]) SetFilters(p domain.FilterPatch) error { return s.List.SetFilters(p) }

func (s *Store[T]) SetPage(n int)  { s.List.SetPage(n) }
func (s *Store[T]) SetLimit(n int) { s.List.SetLimit(n) }
func (s *Store[T]) ClearFilters()  { s.List.ClearFilters() }

// FetchList loads the current list query.
func (s *Store[T]) FetchList(ctx context.Context) (err error) {
	ctx, span := s.span(ctx, "FetchList", "")
	defer func() { endSpan(span, err) }()
	return s.List.Fetch(ctx)
}

// PrefetchNextPage warms the page after the current one. It reports whether
// a background call was started.
func (s *Store[T]) PrefetchNextPage(ctx context.Context) bool {
	if s.Prefetch == nil {
		return false
	}
	st := s.List.State()
	return s.Prefetch.PrefetchNextPage(ctx, st.Filters, st.Page, st.Limit, st.TotalPages)
}

// ---- detail ----

// FetchDetail returns id's entity. Without force a previously fetched entry
// is served from cache; with force every call issues its own backend request,
// tracked as the refresh action of id.
func (s *Store[T]) FetchDetail(ctx context.Context, id string, force bool) (v T, err error) {
	if strings.TrimSpace(id) == "" {
		return v, ErrEmptyID
	}
	ctx, span := s.span(ctx, "FetchDetail", id)
	span.SetAttributes(attribute.Bool("force", force))
	defer func() { endSpan(span, err) }()

	if !force {
		return s.Detail.GetOrFetch(ctx, id)
	}
	err = s.Actions.Track(ctx, domain.ActionRefresh, id, func(rctx context.Context) error {
		_, ferr := s.Detail.ForceRefresh(rctx, id)
		return ferr
	})
	if err != nil {
		return v, err
	}
	if e := s.Detail.Peek(id); e.Entity != nil {
		return *e.Entity, nil
	}
	return v, ErrStaleResponse
}

// ---- actions ----

// RunAction validates and performs an admin action on id.
//
// Validation happens before any backend call: the kind must support the
// action, reject needs a non-empty reason and delete needs id selected.
// On success the detail entry is invalidated, warm prefetches are dropped, a
// deleted id leaves the selection and list-relevant actions refetch the
// current page if one was loaded.
func (s *Store[T]) RunAction(ctx context.Context, action domain.ActionKind, id, reason string) (err error) {
	id = strings.TrimSpace(id)
	reason = strings.TrimSpace(reason)
	switch {
	case id == "":
		return ErrEmptyID
	case !s.profile.Supports(action):
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, action, s.kind)
	case action.RequiresReason() && reason == "":
		return ErrReasonRequired
	case action.RequiresSelection() && !s.Selection.Has(id):
		return ErrNotSelected
	}

	ctx, span := s.span(ctx, "RunAction", id)
	span.SetAttributes(attribute.String("action", action.String()))
	defer func() { endSpan(span, err) }()

	return s.Actions.Run(ctx, action, id, func(rctx context.Context) error {
		if err := s.dispatch(rctx, action, id, reason); err != nil {
			return err
		}
		s.Detail.Invalidate(id)
		s.dropPrefetch()
		if action == domain.ActionDelete {
			s.Selection.Deselect(id)
			s.bump()
		}
		if action.ListRelevant() && s.List.State().Loaded {
			if lerr := s.List.Fetch(rctx); lerr != nil {
				s.log.Warn().Err(lerr).Str("id", id).Msg("list refresh after action failed")
			}
		}
		return nil
	})
}

func (s *Store[T]) dropPrefetch() {
	if s.Prefetch != nil {
		s.Prefetch.Invalidate()
	}
}

func (s *Store[T]) dispatch(ctx context.Context, action domain.ActionKind, id, reason string) error {
	switch action {
	case domain.ActionDelete:
		return s.backend.SoftDelete(ctx, id)
	case domain.ActionRestore:
		return s.backend.Restore(ctx, id)
	default:
		return s.backend.AdminAction(ctx, id, action, reason)
	}
}

// ---- selection ----

// ToggleSelection flips id's membership and reports whether it is selected.
func (s *Store[T]) ToggleSelection(id string) bool {
	on := s.Selection.Toggle(id)
	s.bump()
	return on
}

// ClearSelection empties the selection.
func (s *Store[T]) ClearSelection() {
	s.Selection.Clear()
	s.bump()
}

// ---- edit ----

// BeginEdit opens (or reopens) an edit session for id whose baseline is the
// entity's editable fields as currently cached, fetching it if needed.
func (s *Store[T]) BeginEdit(ctx context.Context, id string) (diff.Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyID
	}
	v, err := s.Detail.GetOrFetch(ctx, id)
	if err != nil {
		return nil, err
	}
	base, err := s.formOf(v)
	if err != nil {
		return nil, err
	}
	sess := diff.NewSession(id, base, diff.Options{Sets: s.profile.SetFields})
	s.sessMu.Lock()
	s.sessions[id] = sess
	s.sessMu.Unlock()
	return sess.Baseline(), nil
}

func (s *Store[T]) formOf(v T) (diff.Record, error) {
	rec, err := diff.ToRecord(v)
	if err != nil {
		return nil, err
	}
	return diff.Project(rec, s.profile.EditableFields), nil
}

// Session returns the open edit session of id, if any.
func (s *Store[T]) Session(id string) (*diff.Session, bool) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// CloseEdit discards the edit session of id.
func (s *Store[T]) CloseEdit(id string) {
	s.sessMu.Lock()
	delete(s.sessions, id)
	s.sessMu.Unlock()
}

// SubmitEdit overlays form onto id's edit session and saves the difference
// from the baseline. Only the changed fields are sent; an empty difference
// returns without a backend call.
//
// On success the detail entry is replaced in place with the saved state, the
// displayed list row is patched, warm prefetches are dropped and the session
// is re-baselined. On failure the baseline is untouched and a retry
// resubmits the same difference.
//
// A call that joins a save of id already in flight sends nothing itself.
// If that save covered all of its changes it returns an empty patch;
// otherwise it returns the unsaved remainder with ErrEditCoalesced.
func (s *Store[T]) SubmitEdit(ctx context.Context, id string, form diff.Record) (patch diff.Record, err error) {
	for field := range form {
		if !s.profile.Editable(field) {
			return nil, fmt.Errorf("%w: %q", ErrFieldNotEditable, field)
		}
	}
	sess, ok := s.Session(id)
	if !ok {
		if _, err := s.BeginEdit(ctx, id); err != nil {
			return nil, err
		}
		sess, _ = s.Session(id)
	}
	sess.Update(form)
	patch = sess.Diff()
	if len(patch) == 0 {
		return patch, nil
	}
	submitted := sess.Current()

	ctx, span := s.span(ctx, "SubmitEdit", id)
	span.SetAttributes(attribute.Int("fields", len(patch)))
	defer func() { endSpan(span, err) }()

	var sent atomic.Bool
	err = s.Actions.Run(ctx, domain.ActionUpdate, id, func(rctx context.Context) error {
		sent.Store(true)
		saved, err := s.backend.Update(rctx, id, map[string]any(patch))
		if err != nil {
			return err
		}
		var ent T
		if saved != nil {
			ent = *saved
		} else {
			cur := s.Detail.Peek(id)
			if cur.Entity != nil {
				ent = *cur.Entity
			}
			if ent, err = diff.Apply(ent, patch); err != nil {
				return err
			}
		}
		s.Detail.Put(id, ent)
		s.List.Replace(id, ent)
		s.dropPrefetch()
		sess.Commit(submitted)
		return nil
	})
	if sent.Load() || (err != nil && ctx.Err() != nil) {
		return patch, err
	}
	// Joined another caller's save: only its patch reached the backend.
	if rest := sess.Diff(); len(rest) > 0 {
		return rest, ErrEditCoalesced
	}
	return diff.Record{}, nil
}

// Close stops background timers. In-flight calls are left to finish.
func (s *Store[T]) Close() {
	s.List.Close()
}
