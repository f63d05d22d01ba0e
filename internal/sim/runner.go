package sim

import (
	"go.uber.org/zap"

	"github.com/ismaiel54/market-replay-sim/internal/queue"
)

// strategyRunner is the execution context owning one strategy: its
// goroutine and its bounded inbound queue. The dispatcher is the sole
// producer; the runner is the sole consumer.
type strategyRunner struct {
	id       StrategyID
	strategy Strategy
	inbound  *queue.BlockingQueue[Event]
	logger   *zap.Logger
	done     chan struct{}
}

func newStrategyRunner(id StrategyID, strat Strategy, queueSize int, logger *zap.Logger) *strategyRunner {
	return &strategyRunner{
		id:       id,
		strategy: strat,
		inbound:  queue.New[Event](queueSize),
		logger:   logger.With(zap.String("strategy", string(id))),
		done:     make(chan struct{}),
	}
}

// run drives the strategy: OnInit, then deliver events in effective
// time order until a STRATEGY_SHUTDOWN control or queue shutdown, then
// OnShutdown.
func (r *strategyRunner) run(d *Dispatcher) {
	defer close(r.done)

	r.logger.Info("strategy runner starting")
	r.strategy.OnInit(d.CurrentSimTime())

	for {
		ev, err := r.inbound.WaitAndPop()
		if err != nil {
			r.logger.Info("strategy inbound queue shut down")
			break
		}

		arrivalTS := ev.EffectiveTime()
		if c, ok := ev.(*ControlEvent); ok && c.Kind == ControlStrategyShutdown {
			r.logger.Info("shutdown signal received")
			break
		}

		DispatchEvent(r.strategy, ev, arrivalTS)
	}

	r.strategy.OnShutdown(d.CurrentSimTime())
	r.logger.Info("strategy runner exited")
}
