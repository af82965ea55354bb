package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tourbook/models"

	"github.com/hibiken/asynq"
)

const TypeRatingReconcile = "rating:reconcile"

// NewRatingReconcileTask builds a task that recomputes a tour's rating from its
// reviews. Tasks for the same tour within the uniqueness window collapse.
func NewRatingReconcileTask(payload models.ReconcilePayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeRatingReconcile, b)
	opts := []asynq.Option{
		asynq.MaxRetry(10),
		asynq.Unique(time.Minute),
		asynq.ProcessIn(time.Second),
	}
	return task, opts, nil
}

// ParseRatingReconcile decodes the payload of a reconcile task.
func ParseRatingReconcile(task *asynq.Task) (models.ReconcilePayload, error) {
	var p models.ReconcilePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid %s payload: %w", TypeRatingReconcile, err)
	}
	if p.TourID == "" {
		return p, fmt.Errorf("invalid %s payload: missing tourId", TypeRatingReconcile)
	}
	return p, nil
}

// AsynqReconciler schedules rating repairs on the asynq queue.
type AsynqReconciler struct {
	Client *asynq.Client
}

func NewAsynqReconciler(client *asynq.Client) *AsynqReconciler {
	return &AsynqReconciler{Client: client}
}

func (r *AsynqReconciler) EnqueueReconcile(ctx context.Context, tourID, reason string) error {
	task, opts, err := NewRatingReconcileTask(models.ReconcilePayload{TourID: tourID, Reason: reason})
	if err != nil {
		return err
	}
	if _, err := r.Client.EnqueueContext(ctx, task, opts...); err != nil {
		// A pending task for the tour already covers this request.
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("error enqueuing rating reconcile for tour %s: %w", tourID, err)
	}
	return nil
}
