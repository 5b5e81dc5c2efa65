package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"quantsim/internal/broker"
	"quantsim/internal/trades"
)

// RemoteEvaluator is the coordinator-side optimize.Evaluator that farms
// candidates out over the broker instead of running them locally. Start
// must run before the first Evaluate.
type RemoteEvaluator struct {
	Broker *broker.Broker
	Study  string

	mu      sync.Mutex
	waiters map[string][]chan broker.Result
}

// Start launches the result dispatcher. It returns when ctx ends.
func (e *RemoteEvaluator) Start(ctx context.Context) {
	e.mu.Lock()
	if e.waiters == nil {
		e.waiters = make(map[string][]chan broker.Result)
	}
	e.mu.Unlock()

	go func() {
		for {
			res, ok, err := e.Broker.NextResult(ctx)
			if err != nil {
				log.Printf("[worker] result queue error: %v", err)
				return
			}
			if !ok {
				return
			}
			if res.Study != e.Study {
				continue
			}
			e.dispatch(res)
		}
	}()
}

func (e *RemoteEvaluator) dispatch(res broker.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	queue := e.waiters[res.DNA]
	if len(queue) == 0 {
		return
	}
	ch := queue[0]
	e.waiters[res.DNA] = queue[1:]
	ch <- res
}

func (e *RemoteEvaluator) register(dna string) chan broker.Result {
	ch := make(chan broker.Result, 1)
	e.mu.Lock()
	e.waiters[dna] = append(e.waiters[dna], ch)
	e.mu.Unlock()
	return ch
}

// Evaluate publishes one candidate and blocks for its result.
func (e *RemoteEvaluator) Evaluate(ctx context.Context, dna string) (trades.Metrics, error) {
	if e.waiters == nil {
		return trades.Metrics{}, errors.New("worker: remote evaluator not started")
	}
	ch := e.register(dna)
	if err := e.Broker.PublishRun(ctx, broker.RunTask{Study: e.Study, DNA: dna}); err != nil {
		return trades.Metrics{}, err
	}
	select {
	case <-ctx.Done():
		return trades.Metrics{}, ctx.Err()
	case res := <-ch:
		if res.Err != "" {
			return trades.Metrics{}, fmt.Errorf("worker: remote run failed: %s", res.Err)
		}
		return res.Metrics, nil
	}
}
