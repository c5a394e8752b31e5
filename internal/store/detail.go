package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

// FetchFunc loads a single entity from the backend.
type FetchFunc[T any] func(ctx context.Context, id string) (T, error)

// DetailEntry is a read-only snapshot of one detail cache slot.
type DetailEntry[T any] struct {
	Entity        *T         `json:"entity,omitempty"`
	Loading       bool       `json:"loading"`
	Error         string     `json:"error,omitempty"`
	LastFetchedAt *time.Time `json:"lastFetchedAt,omitempty"`
}

// Fetched reports whether the entry was ever successfully loaded and is still
// trusted without a refetch.
func (e DetailEntry[T]) Fetched() bool { return e.LastFetchedAt != nil }

type detailCall[T any] struct {
	seq  uint64
	done chan struct{}
	val  T
	err  error
}

type detailSlot[T any] struct {
	entity    *T
	err       string
	fetchedAt time.Time

	// seq is the last sequence number handed out for this id; applied is the
	// sequence of the newest outcome written into the slot. A response whose
	// sequence is below applied lost the race and is discarded.
	seq      uint64
	applied  uint64
	inflight *detailCall[T]
}

// DetailCache maps id to the last good entity plus fetch metadata.
//
// An entry with a fetch timestamp is served without a backend call no matter
// how old it is; only an explicit ForceRefresh or an Invalidate after a
// mutation causes a refetch. Concurrent lookups for an unfetched id share one
// backend call.
type DetailCache[T any] struct {
	kind    domain.Kind
	fetch   FetchFunc[T]
	timeout time.Duration
	now     func() time.Time
	notify  func()
	log     zerolog.Logger

	mu    sync.Mutex
	slots map[string]*detailSlot[T]
}

// NewDetailCache builds an empty cache. notify, when non-nil, is called after
// every state change visible through Peek.
func NewDetailCache[T any](kind domain.Kind, fetch FetchFunc[T], timeout time.Duration, now func() time.Time, notify func(), lg zerolog.Logger) *DetailCache[T] {
	if now == nil {
		now = time.Now
	}
	if notify == nil {
		notify = func() {}
	}
	return &DetailCache[T]{
		kind:    kind,
		fetch:   fetch,
		timeout: timeout,
		now:     now,
		notify:  notify,
		log:     lg,
		slots:   make(map[string]*detailSlot[T]),
	}
}

func (c *DetailCache[T]) slot(id string) *detailSlot[T] {
	s, ok := c.slots[id]
	if !ok {
		s = &detailSlot[T]{}
		c.slots[id] = s
	}
	return s
}

// GetOrFetch returns the cached entity when the entry was fetched before.
// Otherwise it joins the in-flight call for id or starts one.
func (c *DetailCache[T]) GetOrFetch(ctx context.Context, id string) (T, error) {
	c.mu.Lock()
	s := c.slot(id)
	if !s.fetchedAt.IsZero() && s.entity != nil {
		v := *s.entity
		c.mu.Unlock()
		cacheLookups.WithLabelValues(string(c.kind), layerDetail, "hit").Inc()
		return v, nil
	}
	if call := s.inflight; call != nil {
		c.mu.Unlock()
		cacheLookups.WithLabelValues(string(c.kind), layerDetail, "join").Inc()
		return c.wait(ctx, call)
	}
	call := c.startLocked(ctx, id, s)
	c.mu.Unlock()
	cacheLookups.WithLabelValues(string(c.kind), layerDetail, "miss").Inc()
	c.notify()
	return c.wait(ctx, call)
}

// ForceRefresh always issues a new call for id. Calls already in flight are
// not cancelled; whichever of them resolves after this one is discarded.
func (c *DetailCache[T]) ForceRefresh(ctx context.Context, id string) (T, error) {
	c.mu.Lock()
	call := c.startLocked(ctx, id, c.slot(id))
	c.mu.Unlock()
	cacheLookups.WithLabelValues(string(c.kind), layerDetail, "refresh").Inc()
	c.notify()
	return c.wait(ctx, call)
}

func (c *DetailCache[T]) startLocked(ctx context.Context, id string, s *detailSlot[T]) *detailCall[T] {
	s.seq++
	call := &detailCall[T]{seq: s.seq, done: make(chan struct{})}
	s.inflight = call
	s.err = ""
	go c.run(context.WithoutCancel(ctx), id, call)
	return call
}

func (c *DetailCache[T]) run(ctx context.Context, id string, call *detailCall[T]) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	v, err := c.fetch(ctx, id)

	c.mu.Lock()
	s := c.slot(id)
	switch {
	case call.seq < s.applied:
		// A newer outcome or an invalidation is already in the slot. Waiters
		// get the slot's state when it has one, their own result otherwise.
		staleResponses.WithLabelValues(string(c.kind), layerDetail).Inc()
		c.log.Debug().Str("id", id).Uint64("seq", call.seq).Uint64("applied", s.applied).
			Msg("stale detail response dropped")
		switch {
		case s.entity != nil:
			call.val, call.err = *s.entity, nil
		case s.err != "":
			call.err = errors.New(s.err)
		case err == nil:
			call.val = v
		default:
			call.err = err
		}
	case err != nil:
		s.applied = call.seq
		s.err = err.Error()
		call.err = err
	default:
		s.applied = call.seq
		s.entity = &v
		s.fetchedAt = c.now()
		s.err = ""
		call.val = v
	}
	if s.inflight == call {
		s.inflight = nil
	}
	c.mu.Unlock()

	close(call.done)
	c.notify()
}

func (c *DetailCache[T]) wait(ctx context.Context, call *detailCall[T]) (T, error) {
	select {
	case <-call.done:
		return call.val, call.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Put stores v as the authoritative state of id, as after a successful save.
// Every call still in flight for id becomes stale.
func (c *DetailCache[T]) Put(id string, v T) {
	c.mu.Lock()
	s := c.slot(id)
	s.seq++
	s.applied = s.seq
	s.entity = &v
	s.fetchedAt = c.now()
	s.err = ""
	s.inflight = nil
	c.mu.Unlock()
	c.notify()
}

// Invalidate forgets that id was fetched so the next GetOrFetch goes to the
// backend. The cached entity stays visible until then. Calls already in
// flight were issued before the mutation: they are detached and their
// responses are dropped.
func (c *DetailCache[T]) Invalidate(id string) {
	c.mu.Lock()
	if s, ok := c.slots[id]; ok {
		s.fetchedAt = time.Time{}
		s.seq++
		s.applied = s.seq
		s.inflight = nil
	}
	c.mu.Unlock()
	c.notify()
}

// Peek returns a snapshot of id's slot without triggering a fetch.
func (c *DetailCache[T]) Peek(id string) DetailEntry[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[id]
	if !ok {
		return DetailEntry[T]{}
	}
	e := DetailEntry[T]{Loading: s.inflight != nil, Error: s.err}
	if s.entity != nil {
		v := *s.entity
		e.Entity = &v
	}
	if !s.fetchedAt.IsZero() {
		t := s.fetchedAt
		e.LastFetchedAt = &t
	}
	return e
}

// Len returns the number of ids with a slot.
func (c *DetailCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}
