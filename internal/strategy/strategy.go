// Package strategy defines the Strategy interface for the all-in/all-out
// trading rules stocksim simulates, a Registry that holds one handler per
// strategy kind, and the simulator that turns a handler's bar-by-bar run
// into a SimulationResult.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"stocksim/internal/domain"
)

// Kind identifies one of the built-in trading rules. The set is closed:
// adding a rule means adding a Kind and registering a handler for it.
type Kind int

const (
	BuyAndHold Kind = iota + 1
	MovingAverageCrossover
	RSIStrategy
)

// Kinds returns every strategy kind in display order.
func Kinds() []Kind {
	return []Kind{BuyAndHold, MovingAverageCrossover, RSIStrategy}
}

// String returns the human readable strategy name.
func (k Kind) String() string {
	switch k {
	case BuyAndHold:
		return "Buy and Hold"
	case MovingAverageCrossover:
		return "Moving Average Crossover"
	case RSIStrategy:
		return "RSI Strategy"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Slug returns the short command-line name of the strategy.
func (k Kind) Slug() string {
	switch k {
	case BuyAndHold:
		return "buy-and-hold"
	case MovingAverageCrossover:
		return "ma-crossover"
	case RSIStrategy:
		return "rsi"
	}
	return ""
}

// ParseKind resolves a display name or slug, case-insensitively.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, k := range Kinds() {
		if n == strings.ToLower(k.String()) || n == k.Slug() {
			return k, nil
		}
	}
	switch n {
	case "buyandhold", "hold":
		return BuyAndHold, nil
	case "sma-cross", "ma", "moving-average-crossover":
		return MovingAverageCrossover, nil
	}
	return 0, fmt.Errorf("%w: unknown strategy %q", ErrInvalidInput, name)
}

// MarshalText encodes the kind by its display name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts anything ParseKind does.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Outcome is what a strategy produces from one pass over a series: the
// trade log, one portfolio value per bar, and the position it ends in.
type Outcome struct {
	Trades   []Trade
	Values   []float64
	Position Position
}

// Strategy is the interface that all trading rules must implement.
type Strategy interface {
	// Kind returns the identifier of this rule.
	Kind() Kind

	// Warmup returns the number of leading bars during which the rule
	// never trades.
	Warmup() int

	// Run replays the rule over s starting from cash and no shares. The
	// series is read-only and carries every indicator column the rule
	// needs.
	Run(s domain.Series, cash float64) Outcome
}

// Registry holds one strategy handler per Kind.
type Registry struct {
	strategies map[Kind]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[Kind]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Kind().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Kind()] = s
}

// Get retrieves a strategy by kind. The second return value indicates
// whether the strategy was found.
func (r *Registry) Get(k Kind) (Strategy, bool) {
	s, ok := r.strategies[k]
	return s, ok
}

// Lookup resolves a strategy by display name or slug.
func (r *Registry) Lookup(name string) (Strategy, error) {
	k, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	s, ok := r.strategies[k]
	if !ok {
		return nil, fmt.Errorf("%w: strategy %q is not registered", ErrInvalidInput, k)
	}
	return s, nil
}

// List returns the registered kinds in display order.
func (r *Registry) List() []Kind {
	kinds := make([]Kind, 0, len(r.strategies))
	for k := range r.strategies {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
