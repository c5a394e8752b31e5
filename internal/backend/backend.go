// Package backend defines the collaborator the console's cache engine talks
// to: the system of record for articles, advertisements and tours.
//
// Two implementations are provided:
//
//   - Client is a JSON-over-HTTP client for a remote admin API.
//   - Local serves the same contract from the embedded SQLite database
//     (internal/repo), for single-binary deployments and demos.
//
// Instrument wraps either one with Prometheus latency histograms and
// OpenTelemetry spans.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

// Backend is the per-kind contract consumed by the store.
type Backend[T domain.Entity] interface {
	// List returns one page of entities matching q.
	List(ctx context.Context, q domain.Query) (domain.Page[T], error)
	// Detail returns a single entity.
	Detail(ctx context.Context, id string) (T, error)
	// Update applies a partial record to id. The returned entity, when non-nil,
	// is the authoritative post-update state.
	Update(ctx context.Context, id string, patch map[string]any) (*T, error)
	// AdminAction performs a moderation transition (approve, reject, ...).
	AdminAction(ctx context.Context, id string, action domain.ActionKind, reason string) error
	// SoftDelete hides id from default listings.
	SoftDelete(ctx context.Context, id string) error
	// Restore undoes a soft delete.
	Restore(ctx context.Context, id string) error
}

var (
	// ErrNotFound is returned when the entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrRejected is returned when the backend refuses a mutation, e.g. a
	// patch touching a field outside the edit form or an invalid transition.
	ErrRejected = errors.New("backend rejected the request")
)

// APIError is a non-2xx response from a remote backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// Unwrap maps well-known statuses onto the package sentinels so callers can
// use errors.Is regardless of transport.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case 404:
		return ErrNotFound
	case 400, 409, 422:
		return ErrRejected
	}
	return nil
}
