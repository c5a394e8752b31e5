package backend

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

type stubBackend struct {
	detailErr error
	actions   []domain.ActionKind
}

func (s *stubBackend) List(context.Context, domain.Query) (domain.Page[domain.Advertisement], error) {
	return domain.Page[domain.Advertisement]{Items: []domain.Advertisement{{ID: "ad1"}}, Total: 1}, nil
}

func (s *stubBackend) Detail(_ context.Context, id string) (domain.Advertisement, error) {
	return domain.Advertisement{ID: id}, s.detailErr
}

func (s *stubBackend) Update(_ context.Context, id string, _ map[string]any) (*domain.Advertisement, error) {
	return &domain.Advertisement{ID: id}, nil
}

func (s *stubBackend) AdminAction(_ context.Context, _ string, a domain.ActionKind, _ string) error {
	s.actions = append(s.actions, a)
	return nil
}

func (s *stubBackend) SoftDelete(context.Context, string) error { return nil }
func (s *stubBackend) Restore(context.Context, string) error    { return nil }

func TestInstrument_PassesThroughAndCountsErrors(t *testing.T) {
	stub := &stubBackend{detailErr: ErrNotFound}
	b := Instrument[domain.Advertisement](domain.KindAdvertisement, stub)
	ctx := context.Background()

	page, err := b.List(ctx, domain.Query{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	before := testutil.ToFloat64(backendErrs.WithLabelValues("advertisement", "detail", "not_found"))
	_, err = b.Detail(ctx, "ad9")
	require.ErrorIs(t, err, ErrNotFound)
	after := testutil.ToFloat64(backendErrs.WithLabelValues("advertisement", "detail", "not_found"))
	assert.Equal(t, before+1, after)

	require.NoError(t, b.AdminAction(ctx, "ad1", domain.ActionPause, ""))
	assert.Equal(t, []domain.ActionKind{domain.ActionPause}, stub.actions)

	v, err := b.Update(ctx, "ad1", map[string]any{"plan": "premium"})
	require.NoError(t, err)
	assert.Equal(t, "ad1", v.ID)
	require.NoError(t, b.SoftDelete(ctx, "ad1"))
	require.NoError(t, b.Restore(ctx, "ad1"))

	assert.Positive(t, testutil.CollectAndCount(backendLat))
}

func TestErrorClass(t *testing.T) {
	assert.Equal(t, "rejected", errorClass(&APIError{Status: 422}))
	assert.Equal(t, "not_found", errorClass(&APIError{Status: 404}))
	assert.Equal(t, "timeout", errorClass(context.DeadlineExceeded))
	assert.Equal(t, "error", errorClass(&APIError{Status: 500}))
}
