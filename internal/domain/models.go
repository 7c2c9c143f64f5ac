// Package domain provides core domain models and types.
package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// DaysPerYear converts days to maturity into a year fraction
const DaysPerYear = 365.0

var (
	// ErrUnknownOptionType is returned for anything other than call or put
	ErrUnknownOptionType = errors.New("unknown option type")
	// ErrInvalidParameters is returned when option parameters fall outside their domain
	ErrInvalidParameters = errors.New("invalid option parameters")
)

// OptionType represents the exercise right of a European option
type OptionType string

const (
	// OptionTypeCall pays max(0, S_T - K)
	OptionTypeCall OptionType = "call"
	// OptionTypePut pays max(0, K - S_T)
	OptionTypePut OptionType = "put"
)

// ParseOptionType parses "call" or "put" case-insensitively
func ParseOptionType(s string) (OptionType, error) {
	switch OptionType(strings.ToLower(strings.TrimSpace(s))) {
	case OptionTypeCall:
		return OptionTypeCall, nil
	case OptionTypePut:
		return OptionTypePut, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOptionType, s)
}

// Valid reports whether t is call or put
func (t OptionType) Valid() bool {
	return t == OptionTypeCall || t == OptionTypePut
}

// String returns the lower-case literal
func (t OptionType) String() string {
	return string(t)
}

// Payoff returns the terminal payoff at spot x for strike k
func (t OptionType) Payoff(x, k float64) float64 {
	if t == OptionTypePut {
		return math.Max(0, k-x)
	}
	return math.Max(0, x-k)
}

// Exercised reports whether spot x falls in the delta indicator region.
// Calls count x >= k, puts count x <= k.
func (t OptionType) Exercised(x, k float64) bool {
	if t == OptionTypePut {
		return x <= k
	}
	return x >= k
}

// DeltaSign is +1 for calls and -1 for puts
func (t OptionType) DeltaSign() float64 {
	if t == OptionTypePut {
		return -1
	}
	return 1
}

// OptionParameters holds a single pricing scenario
type OptionParameters struct {
	Type       OptionType `json:"type" msgpack:"type"`
	Spot       float64    `json:"spot" msgpack:"spot"`             // S > 0
	Volatility float64    `json:"volatility" msgpack:"volatility"` // sigma > 0, annualized
	Rate       float64    `json:"rate" msgpack:"rate"`             // annual interest rate
	Days       int        `json:"days" msgpack:"days"`             // days to maturity, >= 0
	Strike     float64    `json:"strike" msgpack:"strike"`         // K > 0
}

// Maturity returns the time to maturity in years
func (p OptionParameters) Maturity() float64 {
	return float64(p.Days) / DaysPerYear
}

// Validate checks every field against its domain
func (p OptionParameters) Validate() error {
	if !p.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOptionType, p.Type)
	}
	for name, v := range map[string]float64{
		"spot":       p.Spot,
		"volatility": p.Volatility,
		"rate":       p.Rate,
		"strike":     p.Strike,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidParameters, name)
		}
	}
	if p.Spot <= 0 {
		return fmt.Errorf("%w: spot price must be positive, got %v", ErrInvalidParameters, p.Spot)
	}
	if p.Volatility <= 0 {
		return fmt.Errorf("%w: volatility must be positive, got %v", ErrInvalidParameters, p.Volatility)
	}
	if p.Days < 0 {
		return fmt.Errorf("%w: days to maturity must not be negative, got %d", ErrInvalidParameters, p.Days)
	}
	if p.Strike <= 0 {
		return fmt.Errorf("%w: strike price must be positive, got %v", ErrInvalidParameters, p.Strike)
	}
	return nil
}
