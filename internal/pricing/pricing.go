// Package pricing maps a player's latest performance metric to a trade price.
//
// The engine treats the oracle as an opaque pure function and never caches
// its output. LeaguePointsOracle is the default mapping used by the server.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidMetric is returned for negative league points.
	ErrInvalidMetric = errors.New("pricing: metric must be non-negative")

	// ErrInvalidScale is returned when the points-per-unit divisor is not positive.
	ErrInvalidScale = errors.New("pricing: points per unit must be positive")

	// PriceScale is the number of decimal places prices are rounded to.
	PriceScale int32 = 2
)

// Oracle maps a metric to a price.
type Oracle interface {
	Price(metric decimal.Decimal) (decimal.Decimal, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(metric decimal.Decimal) (decimal.Decimal, error)

// Price calls f.
func (f OracleFunc) Price(metric decimal.Decimal) (decimal.Decimal, error) {
	return f(metric)
}

// LeaguePointsOracle prices a player linearly in league points:
//
//	price = Base + points / PointsPerUnit
//
// rounded to PriceScale places and never below MinPrice.
type LeaguePointsOracle struct {
	base          decimal.Decimal
	pointsPerUnit decimal.Decimal
	minPrice      decimal.Decimal
}

// NewLeaguePointsOracle validates its parameters.
func NewLeaguePointsOracle(base, pointsPerUnit decimal.Decimal) (*LeaguePointsOracle, error) {
	if !pointsPerUnit.IsPositive() {
		return nil, ErrInvalidScale
	}
	return &LeaguePointsOracle{
		base:          base,
		pointsPerUnit: pointsPerUnit,
		minPrice:      decimal.New(1, -PriceScale),
	}, nil
}

// Price implements Oracle.
func (o *LeaguePointsOracle) Price(points decimal.Decimal) (decimal.Decimal, error) {
	if points.IsNegative() {
		return decimal.Zero, ErrInvalidMetric
	}
	price := o.base.Add(points.Div(o.pointsPerUnit)).Round(PriceScale)
	if price.LessThan(o.minPrice) {
		price = o.minPrice
	}
	return price, nil
}

// Fixed always returns the same price. Useful for tests and fixtures.
func Fixed(price decimal.Decimal) Oracle {
	return OracleFunc(func(decimal.Decimal) (decimal.Decimal, error) {
		return price, nil
	})
}
