package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

func newTestTracker() *Tracker {
	return NewTracker(domain.KindAdvertisement, time.Second, zerolog.Nop())
}

func TestTracker_DistinctPairsAreIsolated(t *testing.T) {
	tr := newTestTracker()
	release := make(chan struct{})
	started := make(chan struct{})

	approveDone := make(chan error, 1)
	go func() {
		approveDone <- tr.Run(context.Background(), domain.ActionApprove, "X", func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := tr.Run(context.Background(), domain.ActionReject, "Y", func(ctx context.Context) error {
		return errors.New("reason too short")
	})
	require.Error(t, err)

	assert.Equal(t, ActionStatus{Loading: true}, tr.Status(domain.ActionApprove, "X"))
	assert.Equal(t, ActionStatus{Error: "reason too short"}, tr.Status(domain.ActionReject, "Y"))
	assert.Equal(t, []string{"X"}, tr.Busy())

	close(release)
	require.NoError(t, <-approveDone)
	assert.Equal(t, ActionStatus{}, tr.Status(domain.ActionApprove, "X"))
	assert.Equal(t, ActionStatus{Error: "reason too short"}, tr.Status(domain.ActionReject, "Y"))
}

func TestTracker_SameIDDifferentActionsDoNotBlock(t *testing.T) {
	tr := newTestTracker()
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = tr.Run(context.Background(), domain.ActionPause, "X", func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	ran := false
	require.NoError(t, tr.Run(context.Background(), domain.ActionRefresh, "X", func(ctx context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
	assert.True(t, tr.Status(domain.ActionPause, "X").Loading)
}

func TestTracker_DuplicateRunsAreCoalesced(t *testing.T) {
	tr := newTestTracker()
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(ctx context.Context) error {
		calls.Add(1)
		<-release
		return errors.New("conflict")
	}

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = tr.Run(context.Background(), domain.ActionApprove, "X", fn)
		}(i)
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, err := range errs {
		assert.EqualError(t, err, "conflict")
	}
}

func TestTracker_FailureIsNotRetried(t *testing.T) {
	tr := newTestTracker()
	var calls atomic.Int32
	err := tr.Run(context.Background(), domain.ActionResume, "X", func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("nope")
	})
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())

	// an explicit second run clears the error first
	require.NoError(t, tr.Run(context.Background(), domain.ActionResume, "X", func(ctx context.Context) error {
		return nil
	}))
	assert.Equal(t, ActionStatus{}, tr.Status(domain.ActionResume, "X"))
}

func TestTracker_EveryActionKindHasItsOwnSlot(t *testing.T) {
	tr := newTestTracker()
	for _, a := range domain.AllActionKinds() {
		a := a
		err := tr.Run(context.Background(), a, "X", func(ctx context.Context) error {
			return errors.New(a.String())
		})
		require.Error(t, err)
	}
	st := tr.Statuses("X")
	require.Len(t, st, len(domain.AllActionKinds()))
	for a, s := range st {
		assert.Equal(t, a.String(), s.Error)
	}
	assert.ErrorIs(t, tr.Run(context.Background(), domain.ActionKind(0), "X", nil), ErrUnsupportedAction)
}

func TestTracker_CallerTimeoutLeavesCallRunning(t *testing.T) {
	tr := newTestTracker()
	release := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := tr.Run(ctx, domain.ActionApprove, "X", func(runCtx context.Context) error {
		<-release
		return runCtx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, tr.Status(domain.ActionApprove, "X").Loading)

	close(release)
	require.Eventually(t, func() bool {
		return tr.Status(domain.ActionApprove, "X") == ActionStatus{}
	}, time.Second, time.Millisecond)
}

func TestTracker_TrackNeverCoalesces(t *testing.T) {
	tr := newTestTracker()
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			<-release
			return errors.New("timeout upstream")
		}
		<-release
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = tr.Track(context.Background(), domain.ActionRefresh, "X", fn)
		}(i)
	}
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
	assert.True(t, tr.Status(domain.ActionRefresh, "X").Loading)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 2, calls.Load())
	assert.False(t, tr.Status(domain.ActionRefresh, "X").Loading)
	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	assert.ErrorIs(t, tr.Track(context.Background(), domain.ActionKind(0), "X", nil), ErrUnsupportedAction)
}
