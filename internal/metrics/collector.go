// Package metrics records simulated trades, latency samples, and
// per-strategy PnL, and writes them out as CSV reports at the end of a
// run. An optional SQLite store and an optional trade publisher can be
// attached.
package metrics

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ismaiel54/market-replay-sim/internal/sim"
	"github.com/ismaiel54/market-replay-sim/internal/simtime"
)

// TradePublisher streams recorded trades to an external sink, e.g. a
// Kafka topic.
type TradePublisher interface {
	PublishTrade(trade sim.SimulatedTrade) error
}

// LatencyRecord is one appended latency sample.
type LatencyRecord struct {
	EventTime simtime.Timestamp
	Source    string
	Latency   time.Duration
	Notes     string
}

type pnlKey struct {
	Strategy sim.StrategyID
	Symbol   string
}

type pnlEntry struct {
	sim.PnL
	avgCost float64
}

// Collector is the metrics sink. A single mutex serialises writes to
// the trade log, the latency log, and the PnL map; contention is low
// (one trade per fill).
type Collector struct {
	tradesPath  string
	latencyPath string
	pnlPath     string
	logger      *zap.Logger

	mu       sync.Mutex
	trades   []sim.SimulatedTrade
	latency  []LatencyRecord
	pnl      map[pnlKey]*pnlEntry
	store    *Store
	runID    string
	publish  TradePublisher
	reported bool
}

// NewCollector creates a collector writing its three CSV reports to
// the given paths.
func NewCollector(tradesPath, latencyPath, pnlPath string, logger *zap.Logger) *Collector {
	logger.Info("metrics collector initialized",
		zap.String("trades", tradesPath),
		zap.String("latency", latencyPath),
		zap.String("pnl", pnlPath),
	)
	return &Collector{
		tradesPath:  tradesPath,
		latencyPath: latencyPath,
		pnlPath:     pnlPath,
		logger:      logger,
		pnl:         make(map[pnlKey]*pnlEntry),
	}
}

// SetStore attaches a SQLite results store; final metrics are also
// persisted there under runID.
func (c *Collector) SetStore(store *Store, runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = store
	c.runID = runID
}

// SetPublisher attaches a live trade publisher.
func (c *Collector) SetPublisher(pub TradePublisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publish = pub
}

// RecordTrade appends a fill to the trade log, folds it into PnL, and
// forwards it to the publisher when one is attached.
func (c *Collector) RecordTrade(trade sim.SimulatedTrade) {
	c.mu.Lock()
	c.trades = append(c.trades, trade)
	c.updatePnLLocked(trade.StrategyID, trade.Symbol, trade.Price, trade.Quantity, trade.Side)
	pub := c.publish
	c.mu.Unlock()

	if pub != nil {
		if err := pub.PublishTrade(trade); err != nil {
			c.logger.Error("failed to publish trade", zap.Error(err))
		}
	}
}

// RecordLatency appends a latency sample.
func (c *Collector) RecordLatency(source string, latency time.Duration, eventTime simtime.Timestamp, notes string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latency = append(c.latency, LatencyRecord{
		EventTime: eventTime,
		Source:    source,
		Latency:   latency,
		Notes:     notes,
	})
}

// UpdatePnL folds a fill into the (strategy, symbol) accumulator.
func (c *Collector) UpdatePnL(strategy sim.StrategyID, symbol string, fillPrice float64, filledQty sim.Quantity, side sim.OrderSide) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updatePnLLocked(strategy, symbol, fillPrice, filledQty, side)
}

// updatePnLLocked uses average-cost accounting: a fill that reduces the
// position realizes (price - avg) per unit, a fill that extends it
// re-averages the cost basis. Crossing through flat resets the basis to
// the fill price.
func (c *Collector) updatePnLLocked(strategy sim.StrategyID, symbol string, fillPrice float64, filledQty sim.Quantity, side sim.OrderSide) {
	if filledQty == 0 {
		return
	}

	key := pnlKey{Strategy: strategy, Symbol: symbol}
	entry, ok := c.pnl[key]
	if !ok {
		entry = &pnlEntry{}
		c.pnl[key] = entry
	}

	qty := int64(filledQty)
	entry.TotalVolumeTraded += fillPrice * float64(filledQty)

	signed := qty
	if side == sim.SideSell {
		signed = -qty
	}

	pos := entry.CurrentPosition
	switch {
	case pos == 0 || (pos > 0) == (signed > 0):
		// Extending (or opening) the position: re-average the basis.
		total := float64(abs64(pos))*entry.avgCost + float64(qty)*fillPrice
		entry.CurrentPosition = pos + signed
		entry.avgCost = total / float64(abs64(entry.CurrentPosition))
	default:
		// Reducing: realize against the basis for the closed portion.
		closed := min64(qty, abs64(pos))
		if pos > 0 {
			entry.RealizedPnL += (fillPrice - entry.avgCost) * float64(closed)
		} else {
			entry.RealizedPnL += (entry.avgCost - fillPrice) * float64(closed)
		}
		entry.CurrentPosition = pos + signed
		if remainder := qty - closed; remainder > 0 {
			// Flipped through flat: the leftover opens at fill price.
			entry.avgCost = fillPrice
		} else if entry.CurrentPosition == 0 {
			entry.avgCost = 0
		}
	}
}

// ReportFinalMetrics writes the three CSV reports and, when a store is
// attached, persists the run there as well. Idempotent.
func (c *Collector) ReportFinalMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reported {
		return
	}
	c.reported = true

	c.logger.Info("generating final reports")
	if err := c.writeTradesLocked(); err != nil {
		c.logger.Error("failed to write trades log", zap.Error(err))
	}
	if err := c.writeLatencyLocked(); err != nil {
		c.logger.Error("failed to write latency log", zap.Error(err))
	}
	if err := c.writePnLLocked(); err != nil {
		c.logger.Error("failed to write pnl summary", zap.Error(err))
	}

	if c.store != nil {
		if err := c.store.SaveRun(c.runID, c.trades, c.latency, c.pnlRowsLocked()); err != nil {
			c.logger.Error("failed to persist run to metrics store", zap.Error(err))
		} else {
			c.logger.Info("run persisted to metrics store", zap.String("run_id", c.runID))
		}
	}
}

func (c *Collector) writeTradesLocked() error {
	f, err := os.Create(c.tradesPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.tradesPath, err)
	}
	defer f.Close()

	fmt.Fprintln(f, "TimestampNS,StrategyID,Symbol,Side,Price,Quantity,ClientOrderID,ExchangeOrderID")
	for _, tr := range c.trades {
		fmt.Fprintf(f, "%s,%s,%s,%s,%.5f,%d,%d,%d\n",
			tr.Timestamp, tr.StrategyID, tr.Symbol, tr.Side,
			tr.Price, tr.Quantity, tr.ClientOrderID, tr.ExchangeOrderID)
	}
	c.logger.Info("trades log written", zap.String("path", c.tradesPath), zap.Int("rows", len(c.trades)))
	return nil
}

func (c *Collector) writeLatencyLocked() error {
	f, err := os.Create(c.latencyPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.latencyPath, err)
	}
	defer f.Close()

	fmt.Fprintln(f, "EventTimestampNS,SourceDescription,LatencyNS,Notes")
	for _, rec := range c.latency {
		fmt.Fprintf(f, "%s,%s,%d,%s\n",
			rec.EventTime, rec.Source, rec.Latency.Nanoseconds(), rec.Notes)
	}
	c.logger.Info("latency log written", zap.String("path", c.latencyPath), zap.Int("rows", len(c.latency)))
	return nil
}

// PnLRow is one (strategy, symbol) summary line.
type PnLRow struct {
	Strategy sim.StrategyID
	Symbol   string
	Result   sim.PnL
}

func (c *Collector) pnlRowsLocked() []PnLRow {
	rows := make([]PnLRow, 0, len(c.pnl))
	for key, entry := range c.pnl {
		rows = append(rows, PnLRow{Strategy: key.Strategy, Symbol: key.Symbol, Result: entry.PnL})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Strategy != rows[j].Strategy {
			return rows[i].Strategy < rows[j].Strategy
		}
		return rows[i].Symbol < rows[j].Symbol
	})
	return rows
}

func (c *Collector) writePnLLocked() error {
	f, err := os.Create(c.pnlPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.pnlPath, err)
	}
	defer f.Close()

	fmt.Fprintln(f, "StrategyID,Symbol,FinalPosition,TotalVolumeTraded,RealizedPnL,UnrealizedPnL")
	for _, row := range c.pnlRowsLocked() {
		fmt.Fprintf(f, "%s,%s,%d,%.2f,%.2f,%.2f\n",
			row.Strategy, row.Symbol, row.Result.CurrentPosition,
			row.Result.TotalVolumeTraded, row.Result.RealizedPnL, row.Result.UnrealizedPnL)
	}
	c.logger.Info("pnl summary written", zap.String("path", c.pnlPath), zap.Int("rows", len(c.pnl)))
	return nil
}

// PnLFor returns a copy of the accumulator for (strategy, symbol).
func (c *Collector) PnLFor(strategy sim.StrategyID, symbol string) (sim.PnL, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.pnl[pnlKey{Strategy: strategy, Symbol: symbol}]
	if !ok {
		return sim.PnL{}, false
	}
	return entry.PnL, true
}

// Trades returns a copy of the trade log.
func (c *Collector) Trades() []sim.SimulatedTrade {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sim.SimulatedTrade, len(c.trades))
	copy(out, c.trades)
	return out
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
