package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ismaiel54/market-replay-sim/internal/config"
	"github.com/ismaiel54/market-replay-sim/internal/feed"
	"github.com/ismaiel54/market-replay-sim/internal/logging"
	"github.com/ismaiel54/market-replay-sim/internal/metrics"
	"github.com/ismaiel54/market-replay-sim/internal/publish"
	"github.com/ismaiel54/market-replay-sim/internal/sim"
	"github.com/ismaiel54/market-replay-sim/internal/strategy"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <path_to_tick_data.csv>\n", os.Args[0])
		return 1
	}
	dataPath := os.Args[1]

	cfg, err := config.LoadConfig("replay")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	logger, err := logging.NewLogger(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	runID := uuid.NewString()
	logger.Info("market replay simulator starting",
		zap.String("run_id", runID),
		zap.String("data_file", dataPath),
	)

	collector := metrics.NewCollector(cfg.TradesFile, cfg.LatencyFile, cfg.PnLFile, logger)

	if cfg.MetricsDB != "" {
		store, err := metrics.OpenStore(cfg.MetricsDB)
		if err != nil {
			logger.Error("failed to open metrics store", zap.Error(err))
			return 1
		}
		defer store.Close()
		collector.SetStore(store, runID)
	}

	if cfg.KafkaEnabled {
		producer, err := publish.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, runID, logger)
		if err != nil {
			logger.Error("failed to create trade publisher", zap.Error(err))
			return 1
		}
		defer producer.Close()
		collector.SetPublisher(producer)
	}

	latencyCfg := sim.LatencyConfig{
		MarketDataFeedLatency:     cfg.MarketDataFeedLatency,
		StrategyProcessingLatency: cfg.StrategyProcessingLatency,
		OrderNetworkLatency:       cfg.OrderNetworkLatency,
		ExchangeAckLatency:        cfg.ExchangeAckLatency,
		ExchangeFillLatency:       cfg.ExchangeFillLatency,
		AckNetworkLatency:         cfg.AckNetworkLatency,
	}
	latencyModel := sim.NewLatencyModel(latencyCfg)
	if cfg.JitterEnabled {
		latencyModel = latencyModel.WithJitter(cfg.JitterSeed, cfg.JitterMax)
		logger.Info("latency jitter enabled",
			zap.Int64("seed", cfg.JitterSeed),
			zap.Duration("max", cfg.JitterMax),
		)
	}

	dispatcher := sim.NewDispatcher(sim.DispatcherConfig{
		StrategyQueueSize:     cfg.StrategyQueueSize,
		OrderRequestQueueSize: cfg.OrderRequestQueueSize,
	}, latencyModel, collector, logger)

	for i, name := range cfg.Strategies {
		factory, err := strategy.ForName(name)
		if err != nil {
			logger.Error("failed to resolve strategy", zap.String("name", name), zap.Error(err))
			return 1
		}
		id := sim.StrategyID(fmt.Sprintf("%s-%d", name, i+1))
		if err := dispatcher.AddStrategy(id, factory); err != nil {
			logger.Error("failed to register strategy", zap.String("strategy", string(id)), zap.Error(err))
			return 1
		}
	}

	source, err := feed.NewCSVSource(dataPath, logger)
	if err != nil {
		// Startup failure: the dispatcher must not start, but the
		// metrics sink is still flushed.
		logger.Error("failed to open tick source", zap.Error(err))
		collector.ReportFinalMetrics()
		return 1
	}
	defer source.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal, cancelling simulation",
			zap.String("signal", sig.String()),
		)
		dispatcher.Stop()
	}()

	start := time.Now()
	if err := dispatcher.Run(source); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		collector.ReportFinalMetrics()
		return 1
	}
	logger.Info("simulation run finished",
		zap.Duration("wall_duration", time.Since(start)),
		zap.String("final_sim_time", dispatcher.CurrentSimTime().String()),
	)

	collector.ReportFinalMetrics()
	logger.Info("market replay simulator finished")
	return 0
}
