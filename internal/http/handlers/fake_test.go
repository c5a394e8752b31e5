package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/diff"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/store"
)

// fakeConsole is a scriptable Console for a single kind.
type fakeConsole struct {
	kind    domain.Kind
	version uint64
	list    store.ListView

	fetchErr  error
	filterErr error
	detailErr error
	actionErr error
	editErr   error
	patch     diff.Record
	prefetch  bool

	mu       sync.Mutex
	actions  []string
	page     int
	limit    int
	selected map[string]bool
	cleared  bool
}

func newFakeConsole(kind domain.Kind) *fakeConsole {
	return &fakeConsole{kind: kind, selected: map[string]bool{}}
}

func (f *fakeConsole) Kind() domain.Kind       { return f.kind }
func (f *fakeConsole) Profile() domain.Profile { return domain.ProfileOf(f.kind) }
func (f *fakeConsole) Version() uint64         { return f.version }

func (f *fakeConsole) ListView() store.ListView {
	v := f.list
	v.Kind = f.kind
	v.Version = f.version
	v.Page, v.Limit = f.page, f.limit
	return v
}

func (f *fakeConsole) FetchList(context.Context) error { return f.fetchErr }
func (f *fakeConsole) SetFilters(domain.FilterPatch) error {
	return f.filterErr
}
func (f *fakeConsole) ClearFilters() { f.cleared = true }
func (f *fakeConsole) SetPage(n int) { f.page = n }
func (f *fakeConsole) SetLimit(n int) {
	f.limit = n
}
func (f *fakeConsole) PrefetchNextPage(context.Context) bool { return f.prefetch }

func (f *fakeConsole) SelectionView() store.SelectionView {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.selected))
	for id := range f.selected {
		ids = append(ids, id)
	}
	return store.SelectionView{Kind: f.kind, IDs: ids, Count: len(ids)}
}

func (f *fakeConsole) ToggleSelection(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selected[id] {
		delete(f.selected, id)
		return false
	}
	f.selected[id] = true
	return true
}

func (f *fakeConsole) ClearSelection() {
	f.mu.Lock()
	f.selected = map[string]bool{}
	f.mu.Unlock()
}

func (f *fakeConsole) DetailView(_ context.Context, id string, _ bool) (store.DetailView, error) {
	return f.PeekDetail(id), f.detailErr
}

func (f *fakeConsole) PeekDetail(id string) store.DetailView {
	return store.DetailView{Kind: f.kind, ID: id, Actions: map[string]store.ActionStatus{}}
}

func (f *fakeConsole) ActionView(string) map[string]store.ActionStatus {
	return map[string]store.ActionStatus{}
}

func (f *fakeConsole) RunAction(_ context.Context, a domain.ActionKind, id, _ string) error {
	f.mu.Lock()
	f.actions = append(f.actions, a.String()+":"+id)
	f.mu.Unlock()
	return f.actionErr
}

func (f *fakeConsole) EditView(_ context.Context, id string) (store.EditView, error) {
	return store.EditView{ID: id, Baseline: diff.Record{"title": "t"}, Patch: diff.Record{}}, f.editErr
}

func (f *fakeConsole) SubmitEdit(context.Context, string, diff.Record) (diff.Record, error) {
	return f.patch, f.editErr
}

func (f *fakeConsole) actionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.actions)
}

// memJournal is an in-memory Journal.
type memJournal struct {
	mu      sync.Mutex
	records []domain.ActionRecord
	err     error
}

func (j *memJournal) Record(_ context.Context, rec *domain.ActionRecord) error {
	if j.err != nil {
		return j.err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	rec.ID = "r" + string(rune('0'+len(j.records)))
	j.records = append(j.records, *rec)
	return nil
}

func (j *memJournal) Replay(_ context.Context, kind, id, key string) (*domain.ActionRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := range j.records {
		r := j.records[i]
		if r.Kind == kind && r.EntityID == id && r.IdempotencyKey != nil && *r.IdempotencyKey == key {
			return &r, nil
		}
	}
	return nil, nil
}

func (j *memJournal) History(_ context.Context, kind, id string, offset, limit int) ([]domain.ActionRecord, int64, error) {
	if j.err != nil {
		return nil, 0, j.err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	var all []domain.ActionRecord
	for i := len(j.records) - 1; i >= 0; i-- {
		if j.records[i].Kind == kind && j.records[i].EntityID == id {
			all = append(all, j.records[i])
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (j *memJournal) Stats(_ context.Context, kind, id string) (int64, *time.Time, error) {
	if j.err != nil {
		return 0, nil, j.err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	var n int64
	var latest *time.Time
	for i := range j.records {
		if j.records[i].Kind == kind && j.records[i].EntityID == id {
			n++
			ts := j.records[i].CreatedAt
			latest = &ts
		}
	}
	return n, latest, nil
}

func (j *memJournal) len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.records)
}

// newTestRouter mounts the per-kind routes of h the way the router does.
func newTestRouter(h *Handlers, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	for _, kind := range h.Kinds() {
		g := r.Group("/"+kind.Plural(), h.BindKind(kind))
		g.GET("", h.GetList)
		g.POST("/fetch", h.FetchList)
		g.PUT("/filters", h.SetFilters)
		g.DELETE("/filters", h.ClearFilters)
		g.PUT("/page", h.SetPage)
		g.PUT("/limit", h.SetLimit)
		g.POST("/prefetch", h.Prefetch)
		g.GET("/selection", h.GetSelection)
		g.POST("/selection/:id", h.ToggleSelection)
		g.DELETE("/selection", h.ClearSelection)
		g.GET("/:id", h.GetDetail)
		g.PATCH("/:id", h.SubmitEdit)
		g.GET("/:id/actions", h.GetActions)
		g.POST("/:id/actions/:action", h.RunAction)
		g.POST("/:id/edit", h.BeginEdit)
		g.GET("/:id/history", h.GetHistory)
	}
	return r
}

func serve(r http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return er
}
