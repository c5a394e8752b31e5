package store

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

// fakeBackend is a scriptable backend.Backend[domain.Article]. Unset hooks
// fall back to simple defaults.
type fakeBackend struct {
	listCalls   atomic.Int32
	detailCalls atomic.Int32
	updateCalls atomic.Int32
	actionCalls atomic.Int32

	listFn   func(ctx context.Context, q domain.Query) (domain.Page[domain.Article], error)
	detailFn func(ctx context.Context, n int32, id string) (domain.Article, error)
	updateFn func(ctx context.Context, id string, patch map[string]any) (*domain.Article, error)
	actionFn func(ctx context.Context, id string, a domain.ActionKind, reason string) error

	mu      sync.Mutex
	patches []map[string]any
	ops     []string
}

func (f *fakeBackend) List(ctx context.Context, q domain.Query) (domain.Page[domain.Article], error) {
	f.listCalls.Add(1)
	if f.listFn != nil {
		return f.listFn(ctx, q)
	}
	return domain.Page[domain.Article]{Page: q.Page, Limit: q.Limit}, nil
}

func (f *fakeBackend) Detail(ctx context.Context, id string) (domain.Article, error) {
	n := f.detailCalls.Add(1)
	if f.detailFn != nil {
		return f.detailFn(ctx, n, id)
	}
	return domain.Article{ID: id, Title: "v" + strconv.Itoa(int(n))}, nil
}

func (f *fakeBackend) Update(ctx context.Context, id string, patch map[string]any) (*domain.Article, error) {
	f.updateCalls.Add(1)
	f.mu.Lock()
	f.patches = append(f.patches, patch)
	f.mu.Unlock()
	if f.updateFn != nil {
		return f.updateFn(ctx, id, patch)
	}
	return nil, nil
}

func (f *fakeBackend) AdminAction(ctx context.Context, id string, a domain.ActionKind, reason string) error {
	f.actionCalls.Add(1)
	f.record(a.String() + ":" + id)
	if f.actionFn != nil {
		return f.actionFn(ctx, id, a, reason)
	}
	return nil
}

func (f *fakeBackend) SoftDelete(ctx context.Context, id string) error {
	f.actionCalls.Add(1)
	f.record("delete:" + id)
	if f.actionFn != nil {
		return f.actionFn(ctx, id, domain.ActionDelete, "")
	}
	return nil
}

func (f *fakeBackend) Restore(ctx context.Context, id string) error {
	f.actionCalls.Add(1)
	f.record("restore:" + id)
	if f.actionFn != nil {
		return f.actionFn(ctx, id, domain.ActionRestore, "")
	}
	return nil
}

func (f *fakeBackend) record(op string) {
	f.mu.Lock()
	f.ops = append(f.ops, op)
	f.mu.Unlock()
}

func (f *fakeBackend) lastPatch() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.patches) == 0 {
		return nil
	}
	return f.patches[len(f.patches)-1]
}

func (f *fakeBackend) opsSnapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

// articles builds n articles whose ids carry prefix.
func articles(prefix string, n int) []domain.Article {
	out := make([]domain.Article, n)
	for i := range out {
		out[i] = domain.Article{ID: prefix + "-" + strconv.Itoa(i+1), Title: prefix}
	}
	return out
}

func newTestStore(t *testing.T, f *fakeBackend, prefetch bool) *Store[domain.Article] {
	t.Helper()
	s := New[domain.Article](f, Options{
		Kind:           domain.KindArticle,
		FetchTimeout:   2 * time.Second,
		SearchDebounce: 20 * time.Millisecond,
		DefaultLimit:   10,
		MaxLimit:       50,
		Prefetch:       prefetch,
		Logger:         zerolog.Nop(),
	})
	t.Cleanup(s.Close)
	return s
}

// gates hands out one release channel per call number.
type gates struct {
	mu sync.Mutex
	m  map[int32]chan struct{}
}

func newGates() *gates { return &gates{m: make(map[int32]chan struct{})} }

func (g *gates) get(n int32) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.m[n]
	if !ok {
		ch = make(chan struct{})
		g.m[n] = ch
	}
	return ch
}

func (g *gates) wait(ctx context.Context, n int32) error {
	select {
	case <-g.get(n):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gates) open(n int32) { close(g.get(n)) }
