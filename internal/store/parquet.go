package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"stocksim/internal/domain"
)

// Compile-time interface check.
var _ BarStore = (*ParquetStore)(nil)

// DefaultMarket is the market directory bars are written under when the
// caller does not name one.
const DefaultMarket = "us"

// ParquetStore caches daily bars as one Parquet file per symbol and year:
//
//	<DataDir>/<market>/daily/<SYMBOL>/<YYYY>.parquet
type ParquetStore struct {
	DataDir string

	mu sync.Mutex // serialises read-merge-write cycles
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// BarRecord is the on-disk schema of a cached daily bar.
type BarRecord struct {
	Symbol     string  `parquet:"symbol"`
	Timestamp  int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open       float64 `parquet:"open"`
	High       float64 `parquet:"high"`
	Low        float64 `parquet:"low"`
	Close      float64 `parquet:"close"`
	Volume     int64   `parquet:"volume"`
	TradeCount int64   `parquet:"trade_count"`
	VWAP       float64 `parquet:"vwap"`
}

func toRecord(b domain.Bar) BarRecord {
	return BarRecord{
		Symbol:     strings.ToUpper(b.Symbol),
		Timestamp:  b.Timestamp.UnixMilli(),
		Open:       b.Open,
		High:       b.High,
		Low:        b.Low,
		Close:      b.Close,
		Volume:     b.Volume,
		TradeCount: b.TradeCount,
		VWAP:       b.VWAP,
	}
}

func (r BarRecord) toBar() domain.Bar {
	return domain.Bar{
		Symbol:     r.Symbol,
		Timestamp:  time.UnixMilli(r.Timestamp).UTC(),
		Open:       r.Open,
		High:       r.High,
		Low:        r.Low,
		Close:      r.Close,
		Volume:     r.Volume,
		TradeCount: r.TradeCount,
		VWAP:       r.VWAP,
	}
}

// WriteBars merges bars into the DefaultMarket cache.
func (s *ParquetStore) WriteBars(_ context.Context, bars []domain.Bar) error {
	return s.WriteBarsForMarket(bars, DefaultMarket)
}

// WriteBarsForMarket merges bars into the cache of the given market. Bars
// already on disk with the same symbol and timestamp are replaced.
func (s *ParquetStore) WriteBarsForMarket(bars []domain.Bar, market string) error {
	if len(bars) == 0 {
		return nil
	}

	type fileKey struct {
		symbol string
		year   int
	}
	byFile := make(map[fileKey][]BarRecord)
	for _, b := range bars {
		k := fileKey{symbol: strings.ToUpper(b.Symbol), year: b.Timestamp.UTC().Year()}
		byFile[k] = append(byFile[k], toRecord(b))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, incoming := range byFile {
		path := s.barPath(k.symbol, market, k.year)
		existing, err := readRecords(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if err := writeRecords(path, mergeBarRecords(existing, incoming)); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// ReadBars returns the cached bars of symbol within [start, end], oldest
// first. A symbol with no cache yields an empty slice.
func (s *ParquetStore) ReadBars(_ context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error) {
	if end.Before(start) {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from, to := start.UnixMilli(), end.UnixMilli()
	var bars []domain.Bar
	for year := start.UTC().Year(); year <= end.UTC().Year(); year++ {
		records, err := readRecords(s.barPath(symbol, market, year))
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if r.Timestamp >= from && r.Timestamp <= to {
				bars = append(bars, r.toBar())
			}
		}
	}
	return bars, nil
}

// Coverage returns the timestamps of the oldest and newest cached bar of
// symbol. ok is false when nothing is cached.
func (s *ParquetStore) Coverage(symbol, market string) (first, last time.Time, ok bool) {
	years, err := s.years(symbol, market)
	if err != nil || len(years) == 0 {
		return time.Time{}, time.Time{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	head, err := readRecords(s.barPath(symbol, market, years[0]))
	if err != nil || len(head) == 0 {
		return time.Time{}, time.Time{}, false
	}
	tail, err := readRecords(s.barPath(symbol, market, years[len(years)-1]))
	if err != nil || len(tail) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return time.UnixMilli(head[0].Timestamp).UTC(), time.UnixMilli(tail[len(tail)-1].Timestamp).UTC(), true
}

// ListSymbols lists all symbols that have cached bars in the given market.
func (s *ParquetStore) ListSymbols(_ context.Context, market string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, market, "daily"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// years lists the cached years of symbol in ascending order.
func (s *ParquetStore) years(symbol, market string) ([]int, error) {
	dir := filepath.Dir(s.barPath(symbol, market, 0))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var years []int
	for _, e := range entries {
		y, err := strconv.Atoi(strings.TrimSuffix(e.Name(), ".parquet"))
		if err == nil && !e.IsDir() {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years, nil
}

// barPath returns <dataDir>/<market>/daily/<SYMBOL>/<YYYY>.parquet.
func (s *ParquetStore) barPath(symbol, market string, year int) string {
	return filepath.Join(s.DataDir, market, "daily", strings.ToUpper(symbol), fmt.Sprintf("%04d.parquet", year))
}

// readRecords returns the records of a Parquet file, or nil if the file
// does not exist.
func readRecords(path string) ([]BarRecord, error) {
	rows, err := parquet.ReadFile[BarRecord](path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return rows, err
}

func writeRecords(path string, records []BarRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

// mergeBarRecords deduplicates by (symbol, timestamp), incoming winning over
// existing, and returns the records in time order.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	type key struct {
		symbol string
		ts     int64
	}
	byKey := make(map[key]BarRecord, len(existing)+len(incoming))
	for _, batch := range [][]BarRecord{existing, incoming} {
		for _, r := range batch {
			byKey[key{r.Symbol, r.Timestamp}] = r
		}
	}

	merged := make([]BarRecord, 0, len(byKey))
	for _, r := range byKey {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
