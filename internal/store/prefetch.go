package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

// defaultWarmSlots caps how many completed prefetches are kept.
const defaultWarmSlots = 8

type prefetchCall[T any] struct {
	done chan struct{}
	page domain.Page[T]
	err  error
	// joined is set once a navigation fetch waits on the call; the result then
	// goes to that fetch rather than into a warm slot.
	joined bool
}

type warmPage[T any] struct {
	page domain.Page[T]
	at   time.Time
}

// Prefetcher warms likely-next list pages into side slots keyed by the query
// token. It never writes into the displayed list; the list controller reads
// through Load, which consumes a warm slot, joins an in-flight prefetch, or
// falls through to the backend.
type Prefetcher[T any] struct {
	kind     domain.Kind
	load     LoadFunc[T]
	timeout  time.Duration
	maxSlots int
	now      func() time.Time
	log      zerolog.Logger

	mu       sync.Mutex
	inflight map[string]*prefetchCall[T]
	warm     map[string]warmPage[T]
	gen      uint64
	wg       sync.WaitGroup
}

// NewPrefetcher wraps load. maxSlots <= 0 selects a small default.
func NewPrefetcher[T any](kind domain.Kind, load LoadFunc[T], timeout time.Duration, maxSlots int, lg zerolog.Logger) *Prefetcher[T] {
	if maxSlots <= 0 {
		maxSlots = defaultWarmSlots
	}
	return &Prefetcher[T]{
		kind:     kind,
		load:     load,
		timeout:  timeout,
		maxSlots: maxSlots,
		now:      time.Now,
		log:      lg,
		inflight: make(map[string]*prefetchCall[T]),
		warm:     make(map[string]warmPage[T]),
	}
}

// PrefetchNextPage starts loading currentPage+1 in the background when that
// page lies within [1, totalPages] and is neither warm nor already loading.
// It never blocks and reports whether a call was started. Failures are
// logged at debug level only.
func (p *Prefetcher[T]) PrefetchNextPage(ctx context.Context, filters domain.Filters, currentPage, limit, totalPages int) bool {
	next := currentPage + 1
	if next < 1 || next > totalPages || limit < 1 {
		return false
	}
	q := domain.Query{Filters: filters.Normalize(), Page: next, Limit: limit}
	key := q.Key()

	p.mu.Lock()
	if _, ok := p.warm[key]; ok {
		p.mu.Unlock()
		return false
	}
	if _, ok := p.inflight[key]; ok {
		p.mu.Unlock()
		return false
	}
	call := &prefetchCall[T]{done: make(chan struct{})}
	p.inflight[key] = call
	gen := p.gen
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		runCtx := context.WithoutCancel(ctx)
		if p.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, p.timeout)
			defer cancel()
		}
		page, err := p.load(runCtx, q)

		p.mu.Lock()
		call.page, call.err = page, err
		if p.inflight[key] == call {
			delete(p.inflight, key)
		}
		switch {
		case err != nil:
			cacheLookups.WithLabelValues(string(p.kind), layerPrefetch, "failed").Inc()
			p.log.Debug().Err(err).Int("page", next).Msg("prefetch failed")
		case !call.joined && gen == p.gen:
			p.storeLocked(key, page)
		}
		p.mu.Unlock()
		close(call.done)
	}()
	return true
}

func (p *Prefetcher[T]) storeLocked(key string, page domain.Page[T]) {
	if len(p.warm) >= p.maxSlots {
		var oldest string
		var at time.Time
		for k, w := range p.warm {
			if oldest == "" || w.at.Before(at) {
				oldest, at = k, w.at
			}
		}
		delete(p.warm, oldest)
	}
	p.warm[key] = warmPage[T]{page: page, at: p.now()}
}

// Load serves q from a warm slot (consuming it), from an in-flight prefetch
// of q, or from the backend. A joined prefetch that failed falls back to a
// direct call so prefetch errors never surface.
func (p *Prefetcher[T]) Load(ctx context.Context, q domain.Query) (domain.Page[T], error) {
	key := q.Key()

	p.mu.Lock()
	if w, ok := p.warm[key]; ok {
		delete(p.warm, key)
		p.mu.Unlock()
		cacheLookups.WithLabelValues(string(p.kind), layerPrefetch, "hit").Inc()
		return w.page, nil
	}
	if call, ok := p.inflight[key]; ok {
		call.joined = true
		p.mu.Unlock()
		cacheLookups.WithLabelValues(string(p.kind), layerPrefetch, "join").Inc()
		select {
		case <-call.done:
			if call.err == nil {
				return call.page, nil
			}
		case <-ctx.Done():
			return domain.Page[T]{}, ctx.Err()
		}
		return p.load(ctx, q)
	}
	p.mu.Unlock()
	cacheLookups.WithLabelValues(string(p.kind), layerPrefetch, "miss").Inc()
	return p.load(ctx, q)
}

// Invalidate drops every warm slot and detaches in-flight prefetches so their
// results are neither stored nor joined. Called after list-relevant
// mutations.
func (p *Prefetcher[T]) Invalidate() {
	p.mu.Lock()
	p.gen++
	clear(p.warm)
	clear(p.inflight)
	p.mu.Unlock()
}

// Warm reports whether q has a completed prefetch waiting.
func (p *Prefetcher[T]) Warm(q domain.Query) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.warm[q.Key()]
	return ok
}

// Wait blocks until every started prefetch has finished.
func (p *Prefetcher[T]) Wait() { p.wg.Wait() }
