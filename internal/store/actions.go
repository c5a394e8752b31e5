package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

// ActionStatus is the loading/error state of one (action, id) pair.
type ActionStatus struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

type actionKey struct {
	action domain.ActionKind
	id     string
}

// Tracker records per (action, id) loading/error state and guarantees that at
// most one mutation per pair is in flight. Concurrent duplicates join the
// running call and receive its result.
type Tracker struct {
	kind    domain.Kind
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	status  map[actionKey]ActionStatus
	running map[actionKey]int // uncoalesced calls in flight, see Track
	group   singleflight.Group
}

// NewTracker builds a Tracker. timeout bounds each mutation independently of
// any caller deadline; zero means unbounded.
func NewTracker(kind domain.Kind, timeout time.Duration, lg zerolog.Logger) *Tracker {
	return &Tracker{
		kind:    kind,
		timeout: timeout,
		log:     lg,
		status:  make(map[actionKey]ActionStatus),
		running: make(map[actionKey]int),
	}
}

// Run executes fn as the (action, id) mutation.
//
// Loading is set and the previous error cleared before fn starts. fn runs on
// a context detached from ctx, so a caller that stops waiting does not cancel
// the call other callers may have joined; the caller then gets ctx.Err().
// A failure is recorded as the pair's error and returned; it is never retried.
func (t *Tracker) Run(ctx context.Context, action domain.ActionKind, id string, fn func(context.Context) error) error {
	if !action.Valid() {
		return ErrUnsupportedAction
	}
	key := actionKey{action: action, id: id}
	ch := t.group.DoChan(action.String()+"\x00"+id, func() (any, error) {
		t.set(key, ActionStatus{Loading: true})

		err := t.call(ctx, fn)
		st := ActionStatus{}
		if err != nil {
			st.Error = err.Error()
		}
		t.set(key, st)
		t.observe(key, err)
		return nil, err
	})

	select {
	case res := <-ch:
		if res.Shared {
			actionsTotal.WithLabelValues(string(t.kind), action.String(), "coalesced").Inc()
			t.log.Debug().Str("action", action.String()).Str("id", id).Msg("action coalesced")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Track runs fn as one call of the (action, id) pair without coalescing:
// every caller issues its own call. The pair reads as loading while any of
// them is in flight and the last one to finish sets the error state. As with
// Run, fn is detached from ctx and a caller that stops waiting gets ctx.Err().
func (t *Tracker) Track(ctx context.Context, action domain.ActionKind, id string, fn func(context.Context) error) error {
	if !action.Valid() {
		return ErrUnsupportedAction
	}
	key := actionKey{action: action, id: id}
	t.mu.Lock()
	t.running[key]++
	t.status[key] = ActionStatus{Loading: true}
	t.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		err := t.call(ctx, fn)
		t.mu.Lock()
		t.running[key]--
		st := ActionStatus{Loading: t.running[key] > 0}
		if st.Loading {
			st.Error = t.status[key].Error
		} else {
			delete(t.running, key)
		}
		if err != nil {
			st.Error = err.Error()
		}
		t.status[key] = st
		t.mu.Unlock()
		t.observe(key, err)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) call(ctx context.Context, fn func(context.Context) error) error {
	runCtx := context.WithoutCancel(ctx)
	if t.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, t.timeout)
		defer cancel()
	}
	return fn(runCtx)
}

func (t *Tracker) observe(key actionKey, err error) {
	if err == nil {
		actionsTotal.WithLabelValues(string(t.kind), key.action.String(), "ok").Inc()
		return
	}
	actionsTotal.WithLabelValues(string(t.kind), key.action.String(), "failed").Inc()
	t.log.Warn().Err(err).
		Str("kind", string(t.kind)).
		Str("action", key.action.String()).
		Str("id", key.id).
		Msg("action failed")
}

func (t *Tracker) set(key actionKey, st ActionStatus) {
	t.mu.Lock()
	t.status[key] = st
	t.mu.Unlock()
}

// Status returns the state of (action, id). A pair never run is idle.
func (t *Tracker) Status(action domain.ActionKind, id string) ActionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status[actionKey{action: action, id: id}]
}

// Statuses returns every tracked action state of id, keyed by action.
func (t *Tracker) Statuses(id string) map[domain.ActionKind]ActionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[domain.ActionKind]ActionStatus)
	for k, st := range t.status {
		if k.id == id {
			out[k.action] = st
		}
	}
	return out
}

// Busy lists the ids with at least one mutation in flight.
func (t *Tracker) Busy() []string {
	t.mu.Lock()
	seen := make(map[string]struct{})
	for k, st := range t.status {
		if st.Loading {
			seen[k.id] = struct{}{}
		}
	}
	t.mu.Unlock()
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
