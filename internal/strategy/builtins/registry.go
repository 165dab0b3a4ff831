package builtins

import "stocksim/internal/strategy"

// NewRegistry returns a registry holding every built-in strategy.
func NewRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register(NewBuyAndHold())
	r.Register(NewSMACross())
	r.Register(NewRSI())
	return r
}
