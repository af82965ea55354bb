package cron

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"tourbook/models"
	"tourbook/services"
	"tourbook/services/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRecomputer struct {
	err   error
	calls []string
}

func (s *stubRecomputer) Recompute(_ context.Context, tourID string) (*models.Tour, error) {
	s.calls = append(s.calls, tourID)
	if s.err != nil {
		return nil, s.err
	}
	return &models.Tour{ID: tourID, ReviewCount: 3}, nil
}

func reconcileTask(t *testing.T, tourID string) *asynq.Task {
	task, _, err := tasks.NewRatingReconcileTask(models.ReconcilePayload{TourID: tourID, Reason: "test"})
	require.NoError(t, err)
	return task
}

func TestHandleRatingReconcile(t *testing.T) {
	stub := &stubRecomputer{}
	h := HandleRatingReconcile(stub, zap.NewNop())

	require.NoError(t, h(context.Background(), reconcileTask(t, "t1")))
	assert.Equal(t, []string{"t1"}, stub.calls)
}

func TestHandleRatingReconcile_MissingTourIsDropped(t *testing.T) {
	stub := &stubRecomputer{err: fmt.Errorf("%w: tours/t1", services.ErrNotFound)}
	h := HandleRatingReconcile(stub, zap.NewNop())
	assert.NoError(t, h(context.Background(), reconcileTask(t, "t1")))
}

func TestHandleRatingReconcile_TransientFailureRetries(t *testing.T) {
	stub := &stubRecomputer{err: fmt.Errorf("%w: timeout", services.ErrStoreUnavailable)}
	h := HandleRatingReconcile(stub, zap.NewNop())
	err := h(context.Background(), reconcileTask(t, "t1"))
	assert.ErrorIs(t, err, services.ErrStoreUnavailable)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleRatingReconcile_BadPayloadSkipsRetry(t *testing.T) {
	h := HandleRatingReconcile(&stubRecomputer{}, zap.NewNop())
	err := h(context.Background(), asynq.NewTask(tasks.TypeRatingReconcile, []byte("not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
