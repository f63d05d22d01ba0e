package strategy

import (
	"fmt"

	"github.com/ismaiel54/market-replay-sim/internal/sim"
)

// Default parameters for the built-in strategies.
const (
	defaultSymbol      = "EURUSD"
	defaultClip        = sim.Quantity(1000)
	defaultMRClip      = sim.Quantity(500)
	defaultMRWindow    = 20
	defaultMRThreshold = 0.0005
)

// ForName resolves a configured strategy name to a factory.
func ForName(name string) (sim.StrategyFactory, error) {
	switch name {
	case "basic":
		return NewBasicStrategy(defaultSymbol, defaultClip), nil
	case "meanrev":
		return NewMeanReversionStrategy(defaultSymbol, defaultMRClip, defaultMRWindow, defaultMRThreshold), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}
