package cron

import (
	"context"
	"errors"
	"time"

	"tourbook/config"
	"tourbook/models"
	"tourbook/services"
	"tourbook/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Recomputer rebuilds a tour's rating aggregate from its reviews.
type Recomputer interface {
	Recompute(ctx context.Context, tourID string) (*models.Tour, error)
}

// RedisOpt returns the asynq connection settings for the task queue database.
func RedisOpt(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
}

// ReconcileWorker processes rating reconcile tasks in the background.
type ReconcileWorker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	cfg    config.Config
	logger *zap.Logger
	stop   chan struct{}
}

func NewReconcileWorker(cfg config.Config, ratings Recomputer, logger *zap.Logger) *ReconcileWorker {
	srv := asynq.NewServer(
		RedisOpt(cfg),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRatingReconcile, HandleRatingReconcile(ratings, logger))

	return &ReconcileWorker{srv: srv, mux: mux, cfg: cfg, logger: logger, stop: make(chan struct{})}
}

// Start runs the worker in the background, retrying startup with backoff.
func (w *ReconcileWorker) Start() {
	go w.monitorRedisConnection()

	go func() {
		w.logger.Info("Starting rating reconcile worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				return
			}
			w.logger.Error("Failed to start reconcile worker",
				zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				w.logger.Error("Reconcile worker gave up; stale ratings will not be repaired in the background")
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
}

func (w *ReconcileWorker) Shutdown() {
	close(w.stop)
	w.srv.Shutdown()
}

// HandleRatingReconcile recomputes the rating named by the task. A tour that
// no longer exists is not retried.
func HandleRatingReconcile(ratings Recomputer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseRatingReconcile(task)
		if err != nil {
			logger.Error("Invalid reconcile payload", zap.Error(err))
			return errors.Join(err, asynq.SkipRetry)
		}

		tour, err := ratings.Recompute(ctx, p.TourID)
		switch {
		case err == nil:
			logger.Info("Rating reconciled",
				zap.String("tourId", p.TourID),
				zap.String("reason", p.Reason),
				zap.Int("reviewCount", tour.ReviewCount),
			)
			return nil
		case errors.Is(err, services.ErrNotFound):
			logger.Warn("Reconcile skipped, tour no longer exists", zap.String("tourId", p.TourID))
			return nil
		default:
			logger.Warn("Reconcile failed, will retry", zap.String("tourId", p.TourID), zap.Error(err))
			return err
		}
	}
}

// monitorRedisConnection pings the queue database periodically to surface
// failures at runtime.
func (w *ReconcileWorker) monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     w.cfg.RedisAddr,
		Password: w.cfg.RedisPassword,
		DB:       w.cfg.RedisQueueDB,
	})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if err := client.Ping(context.Background()).Err(); err != nil {
				w.logger.Warn("Task queue Redis connection lost", zap.Error(err))
			}
		}
	}
}
