// Package broker distributes optimization work over Redis lists. The
// coordinator pushes init and run tasks; workers block-pop them and push
// scored results back. Payloads are JSON.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"quantsim/internal/trades"
)

const (
	initQueue   = "worker:init"
	runQueue    = "worker:run"
	resultQueue = "worker:results"

	popTimeout = 2 * time.Second
)

// InitTask tells a worker which study to prepare: it loads candles and
// builds its local session before accepting run tasks.
type InitTask struct {
	Study     string `json:"study"`
	Strategy  string `json:"strategy"`
	RoutesRaw []byte `json:"routes"`
	StartMs   int64  `json:"start_ms"`
	FinishMs  int64  `json:"finish_ms"`
}

// RunTask is one candidate to score.
type RunTask struct {
	Study string `json:"study"`
	DNA   string `json:"dna"`
}

// Result is a worker's answer to a RunTask. Failed runs carry Err and an
// empty metrics block; the coordinator scores them zero.
type Result struct {
	Study   string         `json:"study"`
	DNA     string         `json:"dna"`
	Metrics trades.Metrics `json:"metrics"`
	Err     string         `json:"error,omitempty"`
}

// Broker wraps the Redis task queues.
type Broker struct {
	client *goredis.Client
}

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// New connects and pings the server.
func New(cfg Config) (*Broker, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("broker: redis ping: %w", err)
	}

	log.Printf("[broker] connected to %s", cfg.Addr)
	return &Broker{client: client}, nil
}

// PublishInit broadcasts an init task. One copy per expected worker.
func (b *Broker) PublishInit(ctx context.Context, task InitTask, workers int) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("broker: marshal init: %w", err)
	}
	for i := 0; i < workers; i++ {
		if err := b.client.RPush(ctx, initQueue, raw).Err(); err != nil {
			return fmt.Errorf("broker: push init: %w", err)
		}
	}
	return nil
}

// PublishRun enqueues one candidate.
func (b *Broker) PublishRun(ctx context.Context, task RunTask) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("broker: marshal run: %w", err)
	}
	if err := b.client.RPush(ctx, runQueue, raw).Err(); err != nil {
		return fmt.Errorf("broker: push run: %w", err)
	}
	return nil
}

// PublishResult pushes a worker's result.
func (b *Broker) PublishResult(ctx context.Context, res Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("broker: marshal result: %w", err)
	}
	if err := b.client.RPush(ctx, resultQueue, raw).Err(); err != nil {
		return fmt.Errorf("broker: push result: %w", err)
	}
	return nil
}

// NextInit block-pops the next init task. Returns (task, false, nil) only
// on context cancellation.
func (b *Broker) NextInit(ctx context.Context) (InitTask, bool, error) {
	var task InitTask
	ok, err := b.pop(ctx, initQueue, &task)
	return task, ok, err
}

// NextRun block-pops the next run task.
func (b *Broker) NextRun(ctx context.Context) (RunTask, bool, error) {
	var task RunTask
	ok, err := b.pop(ctx, runQueue, &task)
	return task, ok, err
}

// NextResult block-pops the next result.
func (b *Broker) NextResult(ctx context.Context) (Result, bool, error) {
	var res Result
	ok, err := b.pop(ctx, resultQueue, &res)
	return res, ok, err
}

// pop BLPOPs with a short timeout in a loop so ctx cancellation is
// honored between polls.
func (b *Broker) pop(ctx context.Context, queue string, v interface{}) (bool, error) {
	for {
		if ctx.Err() != nil {
			return false, nil
		}
		vals, err := b.client.BLPop(ctx, popTimeout, queue).Result()
		if err == goredis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return false, nil
			}
			return false, fmt.Errorf("broker: blpop %s: %w", queue, err)
		}
		// vals[0] is the queue name
		if err := json.Unmarshal([]byte(vals[1]), v); err != nil {
			log.Printf("[broker] dropping malformed %s payload: %v", queue, err)
			continue
		}
		return true, nil
	}
}

// Purge clears all queues. Called before a new distributed study.
func (b *Broker) Purge(ctx context.Context) error {
	return b.client.Del(ctx, initQueue, runQueue, resultQueue).Err()
}

// Close closes the connection.
func (b *Broker) Close() error {
	return b.client.Close()
}
