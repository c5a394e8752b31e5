package backend

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

var (
	// backendLat records backend call duration by entity kind and operation.
	backendLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_backend_request_duration_seconds",
			Help:    "Duration of backend calls in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "op"},
	)

	// backendErrs counts failed backend calls by class (not_found, rejected,
	// timeout, error).
	backendErrs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_backend_errors_total",
			Help: "Failed backend calls by entity kind, operation and error class.",
		},
		[]string{"kind", "op", "class"},
	)
)

func init() {
	prometheus.MustRegister(backendLat, backendErrs)
}

// Instrumented decorates a Backend with latency metrics and tracing spans.
type Instrumented[T domain.Entity] struct {
	next   Backend[T]
	kind   string
	tracer trace.Tracer
}

// Instrument wraps b. Every call becomes a span named "backend.<op>" and an
// observation of console_backend_request_duration_seconds.
func Instrument[T domain.Entity](kind domain.Kind, b Backend[T]) *Instrumented[T] {
	return &Instrumented[T]{next: b, kind: string(kind), tracer: otel.Tracer("backend/Backend")}
}

func (i *Instrumented[T]) observe(ctx context.Context, op, id string, fn func(context.Context) error) error {
	attrs := []attribute.KeyValue{attribute.String("entity.kind", i.kind)}
	if id != "" {
		attrs = append(attrs, attribute.String("entity.id", id))
	}
	ctx, span := i.tracer.Start(ctx, "backend."+op, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	backendLat.WithLabelValues(i.kind, op).Observe(time.Since(start).Seconds())

	if err != nil {
		backendErrs.WithLabelValues(i.kind, op, errorClass(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	}
	return "error"
}

func (i *Instrumented[T]) List(ctx context.Context, q domain.Query) (domain.Page[T], error) {
	var page domain.Page[T]
	err := i.observe(ctx, "list", "", func(ctx context.Context) error {
		var err error
		page, err = i.next.List(ctx, q)
		return err
	})
	return page, err
}

func (i *Instrumented[T]) Detail(ctx context.Context, id string) (T, error) {
	var v T
	err := i.observe(ctx, "detail", id, func(ctx context.Context) error {
		var err error
		v, err = i.next.Detail(ctx, id)
		return err
	})
	return v, err
}

func (i *Instrumented[T]) Update(ctx context.Context, id string, patch map[string]any) (*T, error) {
	var v *T
	err := i.observe(ctx, "update", id, func(ctx context.Context) error {
		var err error
		v, err = i.next.Update(ctx, id, patch)
		return err
	})
	return v, err
}

func (i *Instrumented[T]) AdminAction(ctx context.Context, id string, action domain.ActionKind, reason string) error {
	return i.observe(ctx, "action_"+action.String(), id, func(ctx context.Context) error {
		return i.next.AdminAction(ctx, id, action, reason)
	})
}

func (i *Instrumented[T]) SoftDelete(ctx context.Context, id string) error {
	return i.observe(ctx, "soft_delete", id, func(ctx context.Context) error {
		return i.next.SoftDelete(ctx, id)
	})
}

func (i *Instrumented[T]) Restore(ctx context.Context, id string) error {
	return i.observe(ctx, "restore", id, func(ctx context.Context) error {
		return i.next.Restore(ctx, id)
	})
}
