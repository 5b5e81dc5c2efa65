package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"quantsim/internal/broker"
	"quantsim/internal/feed"
	"quantsim/internal/router"
	"quantsim/internal/sim"
	"quantsim/internal/strategy"
	"quantsim/internal/trades"
)

// Service is the distributed worker loop: it waits for an init task,
// loads the study's candle window, then scores run tasks until the
// context ends or a new init arrives.
type Service struct {
	Broker *broker.Broker
	Loader *feed.Loader
	Cfg    sim.Config
	// Concurrency is the number of parallel scorers per init.
	Concurrency int
	// EvalTimeout bounds each run task; an expired task reports a
	// failure result instead of wedging the scorer. 0 disables it.
	EvalTimeout time.Duration
}

// Run blocks until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	for {
		task, ok, err := s.Broker.NextInit(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := s.serveStudy(ctx, task); err != nil {
			log.Printf("[worker] study %s failed: %v", task.Study, err)
		}
	}
}

func (s *Service) serveStudy(ctx context.Context, task broker.InitTask) error {
	var rt router.Router
	if err := yaml.Unmarshal(task.RoutesRaw, &rt); err != nil {
		return err
	}
	if err := rt.Validate(strategy.Exists); err != nil {
		return err
	}

	series, err := s.Loader.Load(ctx, &rt, task.StartMs, task.FinishMs)
	if err != nil {
		return err
	}
	cfg := s.Cfg
	cfg.Silent = true
	runtime, err := NewRuntime(cfg, &rt, series, s.Concurrency)
	if err != nil {
		return err
	}
	log.Printf("[worker] ready for study %s (%d window candles)", task.Study, runtime.WindowLength())

	var wg sync.WaitGroup
	for w := 0; w < s.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.scoreLoop(ctx, task.Study, runtime)
		}()
	}
	wg.Wait()
	return nil
}

func (s *Service) scoreLoop(ctx context.Context, study string, runtime *Runtime) {
	for {
		task, ok, err := s.Broker.NextRun(ctx)
		if err != nil {
			log.Printf("[worker] run queue error: %v", err)
			return
		}
		if !ok {
			return
		}
		if task.Study != study {
			// a stale candidate from a previous study; drop it
			continue
		}

		res := broker.Result{Study: study, DNA: task.DNA}
		ectx := ctx
		cancel := func() {}
		if s.EvalTimeout > 0 {
			ectx, cancel = context.WithTimeout(ctx, s.EvalTimeout)
		}
		m, err := runtime.Evaluate(ectx, task.DNA)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			res.Err = err.Error()
			res.Metrics = trades.Metrics{}
		} else {
			res.Metrics = m
		}
		if err := s.Broker.PublishResult(ctx, res); err != nil {
			log.Printf("[worker] publish result: %v", err)
		}
	}
}
