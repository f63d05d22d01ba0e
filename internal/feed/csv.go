// Package feed reads historical tick data. The CSV format is one
// record per line, exchange-time sorted:
//
//	QUOTE,ts_ns,symbol,price_unused,size_unused,bid_price,bid_size,ask_price,ask_size
//	TRADE,ts_ns,symbol,price,size
//
// A header row is skipped. Malformed rows are logged and skipped,
// never fatal.
package feed

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ismaiel54/market-replay-sim/internal/sim"
	"github.com/ismaiel54/market-replay-sim/internal/simtime"
)

// CSVSource streams tick events from a CSV file. It implements
// sim.TickSource.
type CSVSource struct {
	file    *os.File
	scanner *bufio.Scanner
	logger  *zap.Logger

	lineNumber int
	exhausted  bool
}

// NewCSVSource opens path and skips the header row. An unopenable file
// is a startup failure: the error is returned and the simulation must
// not start.
func NewCSVSource(path string, logger *zap.Logger) (*CSVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tick data file: %w", err)
	}

	s := &CSVSource{
		file:    file,
		scanner: bufio.NewScanner(file),
		logger:  logger,
	}

	if s.scanner.Scan() {
		s.lineNumber++
		logger.Debug("skipped header line", zap.String("header", s.scanner.Text()))
	} else {
		logger.Warn("tick data file is empty", zap.String("path", path))
		s.exhausted = true
	}

	return s, nil
}

// HasMore reports whether the source may yield further events.
func (s *CSVSource) HasMore() bool {
	return !s.exhausted
}

// ReadNext parses the next record. It returns nil at end of input and
// for malformed rows, which are logged at WARN and skipped.
func (s *CSVSource) ReadNext() sim.Event {
	if s.exhausted {
		return nil
	}
	if !s.scanner.Scan() {
		s.exhausted = true
		return nil
	}
	s.lineNumber++

	line := s.scanner.Text()
	ev, err := s.parseLine(line)
	if err != nil {
		s.logger.Warn("skipping malformed tick record",
			zap.Int("line", s.lineNumber),
			zap.String("record", line),
			zap.Error(err),
		)
		return nil
	}
	return ev
}

// Close releases the underlying file.
func (s *CSVSource) Close() error {
	return s.file.Close()
}

func (s *CSVSource) parseLine(line string) (sim.Event, error) {
	tokens := strings.Split(line, ",")
	if len(tokens) == 0 || strings.TrimSpace(tokens[0]) == "" {
		return nil, fmt.Errorf("empty record")
	}
	if len(tokens) < 3 {
		return nil, fmt.Errorf("wrong arity: %d fields", len(tokens))
	}

	recordType := strings.TrimSpace(tokens[0])
	exchangeTS, err := simtime.ParseTimestamp(tokens[1])
	if err != nil {
		return nil, err
	}
	symbol := strings.TrimSpace(tokens[2])

	switch recordType {
	case "QUOTE":
		if len(tokens) < 9 {
			return nil, fmt.Errorf("QUOTE record needs 9 fields, got %d", len(tokens))
		}
		bidPrice, err := parsePrice(tokens[5])
		if err != nil {
			return nil, fmt.Errorf("bad bid price: %w", err)
		}
		bidSize, err := parseQuantity(tokens[6])
		if err != nil {
			return nil, fmt.Errorf("bad bid size: %w", err)
		}
		askPrice, err := parsePrice(tokens[7])
		if err != nil {
			return nil, fmt.Errorf("bad ask price: %w", err)
		}
		askSize, err := parseQuantity(tokens[8])
		if err != nil {
			return nil, fmt.Errorf("bad ask size: %w", err)
		}
		return &sim.QuoteEvent{
			EventBase: sim.EventBase{ExchangeTS: exchangeTS, ArrivalTS: exchangeTS},
			Symbol:    symbol,
			BidPrice:  bidPrice,
			BidSize:   bidSize,
			AskPrice:  askPrice,
			AskSize:   askSize,
		}, nil

	case "TRADE":
		if len(tokens) < 5 {
			return nil, fmt.Errorf("TRADE record needs 5 fields, got %d", len(tokens))
		}
		price, err := parsePrice(tokens[3])
		if err != nil {
			return nil, fmt.Errorf("bad trade price: %w", err)
		}
		size, err := parseQuantity(tokens[4])
		if err != nil {
			return nil, fmt.Errorf("bad trade size: %w", err)
		}
		return &sim.TradeEvent{
			EventBase: sim.EventBase{ExchangeTS: exchangeTS, ArrivalTS: exchangeTS},
			Symbol:    symbol,
			Price:     price,
			Size:      size,
		}, nil

	default:
		return nil, fmt.Errorf("unknown record type %q", recordType)
	}
}

func parsePrice(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseQuantity(s string) (sim.Quantity, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	return sim.Quantity(v), err
}
