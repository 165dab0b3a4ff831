package builtins

// state is the market exposure of a two-state strategy.
type state int

const (
	stateOut state = iota
	stateIn
)
