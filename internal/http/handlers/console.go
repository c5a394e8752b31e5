// Package handlers exposes the moderation console over HTTP.
//
// Every entity kind (articles, advertisements, tours) gets the same set of
// endpoints, bound to that kind's Console by BindKind. Handlers are
// transport-thin: they parse input, call the console, and translate results
// and errors into the shared JSON envelopes.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/backend"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/diff"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/store"
)

//
// Service contracts (context-aware)
//

// Console is the kind-erased view of one entity kind's store consumed by the
// handlers. *store.Store[T] satisfies it for every entity type.
type Console interface {
	Kind() domain.Kind
	Profile() domain.Profile
	Version() uint64

	// List
	ListView() store.ListView
	FetchList(ctx context.Context) error
	SetFilters(p domain.FilterPatch) error
	ClearFilters()
	SetPage(n int)
	SetLimit(n int)
	PrefetchNextPage(ctx context.Context) bool

	// Selection
	SelectionView() store.SelectionView
	ToggleSelection(id string) bool
	ClearSelection()

	// Detail and actions
	DetailView(ctx context.Context, id string, force bool) (store.DetailView, error)
	PeekDetail(id string) store.DetailView
	ActionView(id string) map[string]store.ActionStatus
	RunAction(ctx context.Context, action domain.ActionKind, id, reason string) error

	// Edit
	EditView(ctx context.Context, id string) (store.EditView, error)
	SubmitEdit(ctx context.Context, id string, form diff.Record) (diff.Record, error)
}

// Journal records the mutations issued through the console and answers
// idempotent replays and history queries.
type Journal interface {
	// Record appends rec. A duplicate idempotency key is not an error for
	// callers; implementations may return repo.ErrDuplicate.
	Record(ctx context.Context, rec *domain.ActionRecord) error
	// Replay returns the still-valid record for (kind, id, key), or nil.
	Replay(ctx context.Context, kind, id, key string) (*domain.ActionRecord, error)
	// History returns a page of records for (kind, id), newest first, and
	// the total count.
	History(ctx context.Context, kind, id string, offset, limit int) ([]domain.ActionRecord, int64, error)
	// Stats returns the record count and latest record time for ETags.
	Stats(ctx context.Context, kind, id string) (int64, *time.Time, error)
}

var (
	_ Console = (*store.Store[domain.Article])(nil)
	_ Console = (*store.Store[domain.Advertisement])(nil)
	_ Console = (*store.Store[domain.Tour])(nil)
)

//
// Handler wiring
//

const ctxKeyConsole = "console"

// Handlers groups the per-kind console endpoints.
type Handlers struct {
	consoles map[domain.Kind]Console
	journal  Journal
	now      func() time.Time
}

// New constructs Handlers over one Console per kind. journal may be nil, in
// which case actions are not journaled and history is empty.
func New(consoles []Console, journal Journal) *Handlers {
	m := make(map[domain.Kind]Console, len(consoles))
	for _, c := range consoles {
		m[c.Kind()] = c
	}
	return &Handlers{consoles: m, journal: journal, now: time.Now}
}

// Kinds returns the kinds with a registered console, in domain order.
func (h *Handlers) Kinds() []domain.Kind {
	out := make([]domain.Kind, 0, len(h.consoles))
	for _, k := range domain.Kinds() {
		if _, found := h.consoles[k]; found {
			out = append(out, k)
		}
	}
	return out
}

// BindKind returns middleware that attaches kind's console to the request.
// Routes mounted under it can then use the generic handlers below.
func (h *Handlers) BindKind(kind domain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		con, found := h.consoles[kind]
		if !found {
			fail(c, http.StatusNotFound, ErrCodeUnknownKind, "unknown entity kind")
			return
		}
		c.Set(ctxKeyConsole, con)
		c.Next()
	}
}

// console returns the console bound by BindKind. When none is set the
// request is failed and nil is returned.
func console(c *gin.Context) Console {
	if v, found := c.Get(ctxKeyConsole); found {
		if con, isConsole := v.(Console); isConsole {
			return con
		}
	}
	fail(c, http.StatusNotFound, ErrCodeUnknownKind, "unknown entity kind")
	return nil
}

// failErr maps console, backend and context errors onto the error envelope.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotSelected):
		fail(c, http.StatusConflict, ErrCodeNotSelected, err.Error())
	case errors.Is(err, store.ErrReasonRequired):
		fail(c, http.StatusBadRequest, ErrCodeReasonRequired, err.Error())
	case errors.Is(err, store.ErrUnsupportedAction):
		fail(c, http.StatusBadRequest, ErrCodeUnsupported, err.Error())
	case store.IsValidation(err):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, backend.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "entity not found")
	case errors.Is(err, backend.ErrRejected):
		fail(c, http.StatusConflict, ErrCodeRejected, err.Error())
	case errors.Is(err, store.ErrEditCoalesced):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, store.ErrStaleResponse):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		fail(c, http.StatusGatewayTimeout, ErrCodeTimeout, "backend did not answer in time")
	default:
		fail(c, http.StatusBadGateway, ErrCodeBadGateway, err.Error())
	}
}
