// Package book implements the holding book arithmetic: the weighted-average
// cost update on buys and the share decrement on sells.
//
// Functions here are pure. Persistence and locking belong to the store; the
// engine calls these inside one unit of work.
package book

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/frodan/league-exchange/internal/model"
)

const (
	// AvgScale is the number of decimal places kept for average cost.
	AvgScale int32 = 16

	// MaxShareScale is the finest share fraction accepted (10^-8).
	MaxShareScale int32 = 8

	// MaxShareIntDigits bounds share quantities below 10^12.
	MaxShareIntDigits = 12

	// maxCoefficientDigits caps the digits inspected before trailing zeros
	// are stripped, so "1.000...0" stays valid without unbounded work.
	maxCoefficientDigits = 64
)

var (
	// ErrUnderflow means a sell would drive shares negative. The engine checks
	// owned shares first, so this signals an internal-consistency failure.
	ErrUnderflow = errors.New("book: holding shares would go negative")

	// ErrNonPositive is returned for zero or negative quantities.
	ErrNonPositive = errors.New("book: quantity must be positive")

	// ErrShareScale is returned for quantities finer than MaxShareScale places.
	ErrShareScale = errors.New("book: too many decimal places in share quantity")

	// ErrShareSize is returned for quantities of 10^MaxShareIntDigits or more.
	ErrShareSize = errors.New("book: share quantity too large")
)

// CheckShares validates a requested quantity. It inspects only the
// coefficient and exponent, so the cost does not depend on the exponent's
// magnitude.
func CheckShares(shares decimal.Decimal) error {
	if shares.Sign() <= 0 {
		return ErrNonPositive
	}
	coef := shares.Coefficient()
	if len(coef.Text(10)) > maxCoefficientDigits {
		return ErrShareSize
	}

	exp := int64(shares.Exponent())
	ten := big.NewInt(10)
	q, r := new(big.Int), new(big.Int)
	for exp < 0 {
		q.QuoRem(coef, ten, r)
		if r.Sign() != 0 {
			break
		}
		coef.Set(q)
		exp++
	}

	if exp < -int64(MaxShareScale) {
		return ErrShareScale
	}
	if int64(len(coef.Text(10)))+exp > MaxShareIntDigits {
		return ErrShareSize
	}
	return nil
}

// costBasis is the exact amount paid for the position. Rows written before
// the basis was tracked fall back to avg × shares.
func costBasis(h *model.Holding) decimal.Decimal {
	if h.CostBasis.IsPositive() {
		return h.CostBasis
	}
	return h.AvgCost.Mul(h.Shares)
}

// ApplyBuy returns the holding after buying shares at price. A nil current
// holding creates a new one whose average cost is exactly price.
//
// The basis accumulates price·shares exactly and the average is derived
// from it with a single rounding, so a run of buys yields
// Σ(pᵢ·qᵢ) / Σqᵢ whatever order the fills arrive in.
func ApplyBuy(current *model.Holding, portfolioID, playerID string, price, shares decimal.Decimal) (*model.Holding, error) {
	if !shares.IsPositive() {
		return nil, ErrNonPositive
	}
	cost := price.Mul(shares)
	if current == nil || current.Shares.IsZero() {
		return &model.Holding{
			PortfolioID: portfolioID,
			PlayerID:    playerID,
			Shares:      shares,
			AvgCost:     price,
			CostBasis:   cost,
		}, nil
	}
	next := *current
	next.Shares = current.Shares.Add(shares)
	next.CostBasis = costBasis(current).Add(cost)
	next.AvgCost = next.CostBasis.DivRound(next.Shares, AvgScale)
	return &next, nil
}

// ApplySell returns the holding after selling shares. Average cost is
// unchanged and the basis is rebased onto it. When the position reaches
// exactly zero, remaining is nil and the caller must delete the record.
func ApplySell(current *model.Holding, shares decimal.Decimal) (remaining *model.Holding, err error) {
	if !shares.IsPositive() {
		return nil, ErrNonPositive
	}
	if current == nil || shares.GreaterThan(current.Shares) {
		return nil, ErrUnderflow
	}
	left := current.Shares.Sub(shares)
	if left.IsZero() {
		return nil, nil
	}
	next := *current
	next.Shares = left
	next.CostBasis = current.AvgCost.Mul(left)
	return &next, nil
}

// BookValue sums shares × average cost over holdings.
func BookValue(holdings []model.Holding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.Shares.Mul(h.AvgCost))
	}
	return total
}
