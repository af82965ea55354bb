package tasks

import (
	"testing"

	"tourbook/models"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingReconcileTask_RoundTrip(t *testing.T) {
	task, opts, err := NewRatingReconcileTask(models.ReconcilePayload{TourID: "t1", Reason: "conflict"})
	require.NoError(t, err)
	assert.Equal(t, TypeRatingReconcile, task.Type())
	assert.NotEmpty(t, opts)

	p, err := ParseRatingReconcile(task)
	require.NoError(t, err)
	assert.Equal(t, "t1", p.TourID)
	assert.Equal(t, "conflict", p.Reason)
}

func TestParseRatingReconcile_Rejects(t *testing.T) {
	_, err := ParseRatingReconcile(asynq.NewTask(TypeRatingReconcile, []byte("{")))
	assert.Error(t, err)

	_, err = ParseRatingReconcile(asynq.NewTask(TypeRatingReconcile, []byte(`{"reason":"x"}`)))
	assert.Error(t, err)
}
