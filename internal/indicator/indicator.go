// Package indicator computes the technical indicator columns the strategy
// simulator trades on. The math is delegated to gct-ta; this package aligns
// its output with the input series and marks warm-up bars with NaN.
package indicator

import (
	"math"

	"github.com/thrasher-corp/gct-ta/indicators"

	"stocksim/internal/domain"
)

// Indicator windows used by the built-in strategies.
const (
	MAShort   = 20
	MALong    = 50
	RSIWindow = 14
)

// SMA returns the simple moving average of closes over window. The result
// has the same length as closes; bars before the window is full are NaN.
func SMA(closes []float64, window int) []float64 {
	if window <= 0 || len(closes) < window {
		return nanSlice(len(closes))
	}
	return align(indicators.SMA(closes, window), len(closes), window-1)
}

// RSI returns the relative strength index of closes over window. The first
// value is defined once window price changes are available (index window);
// earlier bars are NaN. Bars with no losing move so far read 100, flat
// stretches included.
func RSI(closes []float64, window int) []float64 {
	if window <= 0 || len(closes) <= window {
		return nanSlice(len(closes))
	}
	out := align(indicators.RSI(closes, window), len(closes), window)
	// gct-ta reports 0 when both averages vanish. Until the first down move
	// the average loss is zero, which is an RSI of 100.
	for i := 1; i < len(closes) && closes[i] >= closes[i-1]; i++ {
		if i >= window {
			out[i] = 100
		}
	}
	return out
}

// Attach fills every absent indicator column of s in place. Columns already
// present are trusted and left alone, so repeated calls are cheap. Attach is
// the explicit precomputation step: call it once before handing the same
// series to concurrent simulations.
func Attach(s *domain.Series) {
	if s.MA20 == nil {
		s.MA20 = SMA(s.Close, MAShort)
	}
	if s.MA50 == nil {
		s.MA50 = SMA(s.Close, MALong)
	}
	if s.RSI == nil {
		s.RSI = RSI(s.Close, RSIWindow)
	}
}

// WithIndicators returns a copy of s with every absent column computed. The
// input series is not modified.
func WithIndicators(s domain.Series) domain.Series {
	out := s.Clone()
	Attach(&out)
	return out
}

// align right-aligns raw against a series of length n and blanks everything
// before first.
func align(raw []float64, n, first int) []float64 {
	out := nanSlice(n)
	offset := n - len(raw)
	for i, v := range raw {
		idx := i + offset
		if idx < first || idx < 0 || idx >= n {
			continue
		}
		out[idx] = v
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
