package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/arigen-tech/docsearch/config"
)

// Task types routed through the queue.
const (
	TaskTypeDocumentIngest = "document:ingest"
)

// Queue carries ingest tasks from the API to the worker and tracks their
// status.
type Queue interface {
	Enqueue(ctx context.Context, task *Task) error
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error)
	CancelTask(ctx context.Context, taskID string) error
	SaveStatus(ctx context.Context, status *TaskStatus) error
}

// Task is the unit of queued work.
type Task struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Priority  int               `json:"priority"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// TaskStatus is the externally visible lifecycle of a task.
type TaskStatus struct {
	TaskID     string    `json:"taskId"`
	Status     string    `json:"status"`
	Progress   float64   `json:"progress"`
	DocumentID string    `json:"documentId,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
}

// Status values stored for tasks.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// AsynqQueue is the redis-backed Queue implementation.
type AsynqQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	redis     *redis.Client
}

// Config tunes queue behavior.
type Config struct {
	RedisAddr      string
	RedisDB        int
	MaxRetries     int
	RetryDelay     time.Duration
	ProcessTimeout time.Duration
}

// GetQueue builds a queue from the redis environment config.
func GetQueue() (*AsynqQueue, error) {
	rc := config.GetRedisConfig()
	return NewAsynqQueue(&Config{
		RedisAddr:      rc.Addr,
		RedisDB:        rc.DB,
		MaxRetries:     3,
		RetryDelay:     time.Minute,
		ProcessTimeout: 30 * time.Minute,
	})
}

func NewAsynqQueue(cfg *Config) (*AsynqQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	return &AsynqQueue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		redis:     redisClient,
	}, nil
}

// Enqueue serializes the task and routes it to a priority queue.
func (q *AsynqQueue) Enqueue(ctx context.Context, task *Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	opts := []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Timeout(30 * time.Minute),
		asynq.TaskID(task.ID),
	}

	switch task.Priority {
	case 1:
		opts = append(opts, asynq.Queue("critical"))
	case 2:
		opts = append(opts, asynq.Queue("default"))
	default:
		opts = append(opts, asynq.Queue("low"))
	}

	t := asynq.NewTask(task.Type, payload, opts...)
	if _, err := q.client.EnqueueContext(ctx, t); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return q.SaveStatus(ctx, &TaskStatus{
		TaskID:    task.ID,
		Status:    StatusPending,
		StartedAt: time.Now().UTC(),
	})
}

// GetTaskStatus reads the saved status, falling back to asynq's own view of
// tasks still sitting in a queue.
func (q *AsynqQueue) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	key := statusKey(taskID)
	data, err := q.redis.Get(ctx, key).Bytes()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}

	if err == nil {
		var status TaskStatus
		if err := json.Unmarshal(data, &status); err != nil {
			return nil, fmt.Errorf("failed to unmarshal status: %w", err)
		}
		return &status, nil
	}

	queues := []string{"critical", "default", "low"}
	var info *asynq.TaskInfo
	var lastErr error
	for _, queueName := range queues {
		info, err = q.inspector.GetTaskInfo(queueName, taskID)
		if err == nil {
			break
		}
		lastErr = err
	}
	if info == nil {
		return nil, fmt.Errorf("task not found in any queue: %w", lastErr)
	}

	return convertAsynqStatus(info), nil
}

// CancelTask removes a queued task.
func (q *AsynqQueue) CancelTask(ctx context.Context, taskID string) error {
	queues := []string{"critical", "default", "low"}
	var lastErr error
	for _, queue := range queues {
		err := q.inspector.DeleteTask(queue, taskID)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to cancel task: %w", lastErr)
}

// SaveStatus persists a task status snapshot for 24 hours.
func (q *AsynqQueue) SaveStatus(ctx context.Context, status *TaskStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := q.redis.Set(ctx, statusKey(status.TaskID), data, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

// Close releases the queue's connections.
func (q *AsynqQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.redis.Close()
}

func statusKey(taskID string) string {
	return fmt.Sprintf("task_status:%s", taskID)
}

func convertAsynqStatus(info *asynq.TaskInfo) *TaskStatus {
	status := &TaskStatus{
		TaskID:    info.ID,
		StartedAt: info.NextProcessAt,
	}

	switch info.State {
	case asynq.TaskStatePending:
		status.Status = StatusPending
	case asynq.TaskStateActive:
		status.Status = StatusRunning
		status.Progress = 0.5
	case asynq.TaskStateCompleted:
		status.Status = StatusCompleted
		status.Progress = 1.0
		status.FinishedAt = info.CompletedAt
	case asynq.TaskStateRetry, asynq.TaskStateArchived:
		status.Status = StatusFailed
		status.Error = info.LastErr
	default:
		status.Status = StatusPending
	}

	return status
}
