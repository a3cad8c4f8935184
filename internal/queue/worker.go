package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handler processes one job and returns its result value.
type Handler func(ctx context.Context, job *Job) (any, error)

// Worker consumes jobs from a queue, dispatching on job type. Failed
// attempts are re-delayed with exponential backoff until the attempt
// budget is spent, after which the job settles as failed.
type Worker struct {
	queue       *Queue
	handlers    map[string]Handler
	concurrency int
	log         *zap.Logger
}

// NewWorker builds a consumer for the given queue.
func NewWorker(q *Queue, concurrency int, log *zap.Logger) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		queue:       q,
		handlers:    make(map[string]Handler),
		concurrency: concurrency,
		log:         log,
	}
}

// Register binds a handler to a job type. Must be called before Run.
func (w *Worker) Register(jobType string, handler Handler) {
	w.handlers[jobType] = handler
}

// Run blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup

	// One promoter moves due delayed jobs to the waiting list.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.queue.promoteDelayed(ctx, time.Now()); err != nil && ctx.Err() == nil {
					w.log.Warn("failed to promote delayed jobs", zap.Error(err))
				}
			}
		}
	}()

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.log.Info("queue consumer started",
				zap.String("queue", w.queue.Name()),
				zap.Int("consumer_id", id),
			)
			w.consume(ctx)
		}(i)
	}

	wg.Wait()
}

func (w *Worker) consume(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		res, err := w.queue.client.BRPop(ctx, time.Second, w.queue.waitKey()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Warn("failed to pop job", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		// BRPop returns [key, value].
		if len(res) != 2 {
			continue
		}
		w.process(ctx, res[1])
	}
}

func (w *Worker) process(ctx context.Context, jobID string) {
	job, err := w.queue.Job(ctx, jobID)
	if err != nil {
		w.log.Warn("popped job not found", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	handler, ok := w.handlers[job.Type]
	if !ok {
		w.settle(ctx, job, nil, fmt.Errorf("no handler registered for job type %q", job.Type))
		return
	}

	now := time.Now()
	job.State = StateActive
	job.Attempts++
	job.ProcessedAt = &now
	if err := w.queue.saveJob(ctx, job); err != nil {
		w.log.Error("failed to mark job active", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	w.queue.client.Incr(ctx, w.queue.counterKey("active"))
	defer w.queue.client.Decr(ctx, w.queue.counterKey("active"))

	result, handlerErr := w.runHandler(ctx, handler, job)

	if handlerErr == nil {
		w.settle(ctx, job, result, nil)
		return
	}

	if job.Attempts >= job.MaxAttempts {
		w.settle(ctx, job, nil, handlerErr)
		return
	}

	w.log.Warn("job attempt failed, scheduling retry",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempts),
		zap.Int("max_attempts", job.MaxAttempts),
		zap.Error(handlerErr),
	)
	if err := w.queue.requeue(ctx, job); err != nil {
		w.log.Error("failed to requeue job", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// runHandler shields the consumer from a panicking handler. A panic
// counts as a failed attempt like any other handler error.
func (w *Worker) runHandler(ctx context.Context, handler Handler, job *Job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, job)
}

func (w *Worker) settle(ctx context.Context, job *Job, result any, cause error) {
	now := time.Now()
	job.FinishedAt = &now

	if cause == nil {
		job.State = StateCompleted
		if result != nil {
			if data, err := json.Marshal(result); err == nil {
				job.ReturnValue = data
			}
		}
		w.queue.client.Incr(ctx, w.queue.counterKey("completed"))
		w.log.Info("job completed",
			zap.String("job_id", job.ID),
			zap.String("type", job.Type),
			zap.Int("attempts", job.Attempts),
		)
	} else {
		job.State = StateFailed
		job.FailedReason = cause.Error()
		w.queue.client.Incr(ctx, w.queue.counterKey("failed"))
		w.log.Warn("job failed permanently",
			zap.String("job_id", job.ID),
			zap.String("type", job.Type),
			zap.Int("attempts", job.Attempts),
			zap.Error(cause),
		)
	}

	if err := w.queue.saveJob(ctx, job); err != nil {
		w.log.Error("failed to persist job settlement", zap.String("job_id", job.ID), zap.Error(err))
	}
}
