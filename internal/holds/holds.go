// Package holds implements the hold registry rules. A hold blocks resale of
// freshly bought shares until its deadline. Holds are never removed; expiry is
// a read-time filter against the caller's captured clock value.
package holds

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/frodan/league-exchange/internal/model"
)

// DefaultDuration is the lock applied to every buy.
const DefaultDuration = 3 * time.Hour

// New returns the hold created by a buy of shares at now.
func New(portfolioID, playerID string, shares decimal.Decimal, now time.Time, lock time.Duration) model.Hold {
	if lock <= 0 {
		lock = DefaultDuration
	}
	return model.Hold{
		ID:          uuid.New().String(),
		PortfolioID: portfolioID,
		PlayerID:    playerID,
		Shares:      shares,
		Deadline:    now.Add(lock),
	}
}

// ActiveHeldShares sums the shares of holds for (portfolioID, playerID)
// whose deadline is strictly after asOf.
func ActiveHeldShares(all []model.Hold, portfolioID, playerID string, asOf time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, h := range all {
		if h.PortfolioID != portfolioID || h.PlayerID != playerID {
			continue
		}
		if h.Active(asOf) {
			total = total.Add(h.Shares)
		}
	}
	return total
}

// Active filters holds still in force at asOf.
func Active(all []model.Hold, asOf time.Time) []model.Hold {
	out := make([]model.Hold, 0, len(all))
	for _, h := range all {
		if h.Active(asOf) {
			out = append(out, h)
		}
	}
	return out
}

// FreeShares is owned minus held, floored at zero.
func FreeShares(owned, held decimal.Decimal) decimal.Decimal {
	free := owned.Sub(held)
	if free.IsNegative() {
		return decimal.Zero
	}
	return free
}
