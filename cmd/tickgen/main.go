package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"go.uber.org/zap"

	"github.com/ismaiel54/market-replay-sim/internal/logging"
)

// tickgen writes a synthetic QUOTE/TRADE CSV for demo simulation runs.
func main() {
	var (
		out    = flag.String("out", "synthetic_ticks.csv", "Output CSV path")
		ticks  = flag.Int("ticks", 1000, "Number of tick records to generate")
		symbol = flag.String("symbol", "EURUSD", "Symbol for generated ticks")
		seed   = flag.Int64("seed", 42, "Random seed for deterministic generation")
	)
	flag.Parse()

	logger, err := logging.NewLogger("tickgen", "info")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := generate(*out, *ticks, *symbol, *seed); err != nil {
		logger.Fatal("failed to generate ticks", zap.Error(err))
	}

	logger.Info("synthetic ticks written",
		zap.String("path", *out),
		zap.Int("ticks", *ticks),
		zap.String("symbol", *symbol),
		zap.Int64("seed", *seed),
	)
}

func generate(path string, ticks int, symbol string, seed int64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	rng := rand.New(rand.NewSource(seed))

	// 2023-01-01 09:30:00 UTC in nanoseconds.
	ts := int64(1672565400) * 1_000_000_000

	basePrice := 1.07100
	const spread = 0.00005

	fmt.Fprintln(f, "TYPE,TIMESTAMP_NS,SYMBOL,PRICE,SIZE,BID_PRICE,BID_SIZE,ASK_PRICE,ASK_SIZE")

	for i := 0; i < ticks; i++ {
		// 10ms to 500ms between ticks.
		ts += 10_000_000 + rng.Int63n(490_000_001)

		basePrice += (rng.Float64() - 0.5) * 0.0002
		if basePrice < 1.05 {
			basePrice = 1.05
		}
		if basePrice > 1.09 {
			basePrice = 1.09
		}

		if rng.Float64() < 0.7 {
			bid := basePrice - spread/2
			ask := basePrice + spread/2
			bidSize := (rng.Int63n(901) + 100) * 10
			askSize := (rng.Int63n(901) + 100) * 10
			fmt.Fprintf(f, "QUOTE,%d,%s,0,0,%.5f,%d,%.5f,%d\n",
				ts, symbol, bid, bidSize, ask, askSize)
		} else {
			side := basePrice - spread/2
			if rng.Float64() < 0.5 {
				side = basePrice + spread/2
			}
			size := (rng.Int63n(91) + 10) * 10
			fmt.Fprintf(f, "TRADE,%d,%s,%.5f,%d\n", ts, symbol, side, size)
		}
	}

	return nil
}
