// Package publish streams simulated fills to a Kafka topic for
// downstream consumers. It is optional: the simulator runs fully
// offline without a broker.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/ismaiel54/market-replay-sim/internal/sim"
)

// TradeMsg is the JSON payload published per simulated fill.
type TradeMsg struct {
	EventID         string  `json:"event_id"`
	RunID           string  `json:"run_id"`
	StrategyID      string  `json:"strategy_id"`
	Symbol          string  `json:"symbol"`
	Side            string  `json:"side"`
	Price           float64 `json:"price"`
	Quantity        uint64  `json:"quantity"`
	ClientOrderID   uint64  `json:"client_order_id"`
	ExchangeOrderID uint64  `json:"exchange_order_id"`
	TimestampNS     int64   `json:"timestamp_ns"`
}

// Producer publishes simulated trades to Kafka.
type Producer struct {
	client *kgo.Client
	topic  string
	runID  string
	logger *zap.Logger

	produceCount int64
	errorCount   int64
}

// NewProducer creates a Kafka trade producer.
func NewProducer(brokers []string, topic, runID string, logger *zap.Logger) (*Producer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.DisableIdempotentWrite(),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	p := &Producer{
		client: client,
		topic:  topic,
		runID:  runID,
		logger: logger,
	}

	logger.Info("trade publisher initialized",
		zap.Strings("brokers", brokers),
		zap.String("topic", topic),
		zap.String("run_id", runID),
	)

	go p.logStats()

	return p, nil
}

// PublishTrade produces one fill as a JSON record keyed by symbol.
func (p *Producer) PublishTrade(trade sim.SimulatedTrade) error {
	msg := TradeMsg{
		EventID:         uuid.NewString(),
		RunID:           p.runID,
		StrategyID:      string(trade.StrategyID),
		Symbol:          trade.Symbol,
		Side:            trade.Side.String(),
		Price:           trade.Price,
		Quantity:        uint64(trade.Quantity),
		ClientOrderID:   uint64(trade.ClientOrderID),
		ExchangeOrderID: uint64(trade.ExchangeOrderID),
		TimestampNS:     trade.Timestamp.Nanos(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		atomic.AddInt64(&p.errorCount, 1)
		return fmt.Errorf("failed to marshal trade message: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(trade.Symbol),
		Value: data,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := p.client.ProduceSync(ctx, record)
	if result.FirstErr() != nil {
		atomic.AddInt64(&p.errorCount, 1)
		return fmt.Errorf("failed to produce trade message: %w", result.FirstErr())
	}

	atomic.AddInt64(&p.produceCount, 1)
	return nil
}

// Close closes the producer.
func (p *Producer) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

// logStats logs publisher statistics periodically.
func (p *Producer) logStats() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		produced := atomic.LoadInt64(&p.produceCount)
		errors := atomic.LoadInt64(&p.errorCount)
		p.logger.Info("trade publisher stats",
			zap.Int64("published", produced),
			zap.Int64("errors", errors),
		)
	}
}
