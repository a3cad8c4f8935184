package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

// JobState is the lifecycle state of a queued job.
type JobState string

const (
	StateWaiting   JobState = "waiting"
	StateDelayed   JobState = "delayed"
	StateActive    JobState = "active"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// Terminal reports whether the job has settled.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Options controls retry and scheduling behaviour for a job.
type Options struct {
	// Attempts is the total attempt budget, including the first run.
	Attempts int
	// Backoff is the initial retry delay; it doubles on every failure.
	Backoff time.Duration
	// Delay postpones the first run.
	Delay time.Duration
}

// Job is a durable unit of work.
type Job struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	Backoff     time.Duration   `json:"backoff"`
	Delay       time.Duration   `json:"delay,omitempty"`
	State       JobState        `json:"state"`
	ReturnValue json.RawMessage `json:"returnvalue,omitempty"`
	FailedReason string         `json:"failedReason,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	ProcessedAt *time.Time      `json:"processedAt,omitempty"`
	FinishedAt  *time.Time      `json:"finishedAt,omitempty"`
}

// Stats is a snapshot of queue depth by state.
type Stats struct {
	Waiting   int64 `json:"waiting"`
	Delayed   int64 `json:"delayed"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Total     int64 `json:"total"`
}

const jobTTL = 7 * 24 * time.Hour

// Queue is a named durable job queue over Redis. Jobs live as JSON blobs;
// the waiting list and the delayed set hold job IDs only.
type Queue struct {
	name   string
	client *redis.Client
	log    *zap.Logger
}

// New creates a queue bound to the given Redis client.
func New(name string, client *redis.Client, log *zap.Logger) *Queue {
	return &Queue{name: name, client: client, log: log}
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

func (q *Queue) jobKey(id string) string  { return fmt.Sprintf("queue:%s:job:%s", q.name, id) }
func (q *Queue) waitKey() string          { return fmt.Sprintf("queue:%s:wait", q.name) }
func (q *Queue) delayedKey() string       { return fmt.Sprintf("queue:%s:delayed", q.name) }
func (q *Queue) counterKey(s string) string { return fmt.Sprintf("queue:%s:count:%s", q.name, s) }

// Add enqueues a single job.
func (q *Queue) Add(ctx context.Context, jobType string, payload any, opts Options) (*Job, error) {
	job, err := buildJob(jobType, payload, opts)
	if err != nil {
		return nil, err
	}
	if err := q.push(ctx, q.client.Pipeline(), job, time.Now()); err != nil {
		return nil, err
	}
	return job, nil
}

// AddBulk enqueues many jobs in one round trip.
func (q *Queue) AddBulk(ctx context.Context, specs []BulkSpec) ([]*Job, error) {
	jobs := make([]*Job, 0, len(specs))
	pipe := q.client.Pipeline()
	now := time.Now()

	for _, spec := range specs {
		job, err := buildJob(spec.Type, spec.Payload, spec.Options)
		if err != nil {
			return nil, err
		}
		if err := q.stage(pipe, job, now); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue batch: %w", err)
	}
	return jobs, nil
}

// BulkSpec describes one job of an AddBulk batch.
type BulkSpec struct {
	Type    string
	Payload any
	Options Options
}

func buildJob(jobType string, payload any, opts Options) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	state := StateWaiting
	if opts.Delay > 0 {
		state = StateDelayed
	}

	return &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Payload:     data,
		MaxAttempts: attempts,
		Backoff:     backoff,
		Delay:       opts.Delay,
		State:       state,
		CreatedAt:   time.Now(),
	}, nil
}

func (q *Queue) push(ctx context.Context, pipe redis.Pipeliner, job *Job, now time.Time) error {
	if err := q.stage(pipe, job, now); err != nil {
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

func (q *Queue) stage(pipe redis.Pipeliner, job *Job, now time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	ctx := context.Background()
	pipe.Set(ctx, q.jobKey(job.ID), data, jobTTL)
	if job.State == StateDelayed {
		readyAt := now.Add(job.Delay)
		pipe.ZAdd(ctx, q.delayedKey(), redis.Z{Score: float64(readyAt.UnixMilli()), Member: job.ID})
	} else {
		pipe.LPush(ctx, q.waitKey(), job.ID)
	}
	return nil
}

// Job fetches a job by ID.
func (q *Queue) Job(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, q.jobKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Finished blocks until the job settles (completed or failed) and returns
// its final form. Settlement order across jobs is not guaranteed.
func (q *Queue) Finished(ctx context.Context, id string) (*Job, error) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		job, err := q.Job(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.State.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stats returns the queue depth snapshot.
func (q *Queue) Stats(ctx context.Context) (*Stats, error) {
	pipe := q.client.Pipeline()
	waiting := pipe.LLen(ctx, q.waitKey())
	delayed := pipe.ZCard(ctx, q.delayedKey())
	active := pipe.Get(ctx, q.counterKey("active"))
	completed := pipe.Get(ctx, q.counterKey("completed"))
	failed := pipe.Get(ctx, q.counterKey("failed"))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	stats := &Stats{
		Waiting:   waiting.Val(),
		Delayed:   delayed.Val(),
		Active:    intOrZero(active),
		Completed: intOrZero(completed),
		Failed:    intOrZero(failed),
	}
	stats.Total = stats.Waiting + stats.Delayed + stats.Active + stats.Completed + stats.Failed
	return stats, nil
}

func intOrZero(cmd *redis.StringCmd) int64 {
	n, err := cmd.Int64()
	if err != nil {
		return 0
	}
	return n
}

func (q *Queue) saveJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return q.client.Set(ctx, q.jobKey(job.ID), data, jobTTL).Err()
}

// promoteDelayed moves due delayed jobs onto the waiting list.
func (q *Queue) promoteDelayed(ctx context.Context, now time.Time) error {
	due, err := q.client.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.UnixMilli()),
	}).Result()
	if err != nil {
		return err
	}

	for _, id := range due {
		// ZRem first so two pollers never promote the same job twice.
		removed, err := q.client.ZRem(ctx, q.delayedKey(), id).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		job, err := q.Job(ctx, id)
		if err != nil {
			if err == domain.ErrJobNotFound {
				continue
			}
			return err
		}
		job.State = StateWaiting
		if err := q.saveJob(ctx, job); err != nil {
			return err
		}
		if err := q.client.LPush(ctx, q.waitKey(), id).Err(); err != nil {
			return err
		}
	}
	return nil
}

// requeue schedules a retry after a failed attempt, doubling the backoff
// per attempt already made.
func (q *Queue) requeue(ctx context.Context, job *Job) error {
	delay := job.Backoff
	for i := 1; i < job.Attempts; i++ {
		delay *= 2
	}
	job.State = StateDelayed
	if err := q.saveJob(ctx, job); err != nil {
		return err
	}
	readyAt := time.Now().Add(delay)
	return q.client.ZAdd(ctx, q.delayedKey(), redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: job.ID,
	}).Err()
}
