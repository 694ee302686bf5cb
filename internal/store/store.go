// Package store defines the persistence interface for the trading engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache of the reporting views), and in-memory (for testing and development).
//
// Every trade runs inside Store.Atomic: a unit of work scoped to one
// membership. Reads made through the Tx see the locked, current state and
// writes become visible only if the callback returns nil.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frodan/league-exchange/internal/model"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when the unit of work lost a race, e.g. a
	// serialization failure or a duplicate portfolio. The whole operation may
	// be retried once.
	ErrConflict = errors.New("store: concurrent update conflict")
)

// Tx is the view of one membership's trading state inside a unit of work.
type Tx interface {
	// Membership returns the locked membership, including its current balance.
	Membership(ctx context.Context) (*model.Membership, error)

	// EnsurePortfolio returns the membership's portfolio, creating it if it
	// does not exist yet. Creation is create-if-absent, never check-then-insert.
	EnsurePortfolio(ctx context.Context, now time.Time) (*model.Portfolio, error)

	// Holding returns the position in playerID, or nil when none exists.
	Holding(ctx context.Context, portfolioID, playerID string) (*model.Holding, error)

	// PutHolding inserts or replaces a holding. Shares must be positive.
	PutHolding(ctx context.Context, h *model.Holding) error

	// DeleteHolding removes the holding record.
	DeleteHolding(ctx context.Context, portfolioID, playerID string) error

	// ListHoldings returns the positions as they stand inside this unit of work.
	ListHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error)

	// InsertHold appends a hold. Holds are never updated or deleted.
	InsertHold(ctx context.Context, h *model.Hold) error

	// ActiveHeldShares sums holds for (portfolioID, playerID) with deadline > asOf.
	ActiveHeldShares(ctx context.Context, portfolioID, playerID string, asOf time.Time) (decimal.Decimal, error)

	// AppendTransaction appends an immutable transaction record.
	AppendTransaction(ctx context.Context, r *model.TransactionRecord) error

	// SetBalance replaces the membership balance.
	SetBalance(ctx context.Context, balance decimal.Decimal) error

	// SetPortfolioValue refreshes the cached portfolio value.
	SetPortfolioValue(ctx context.Context, portfolioID string, value decimal.Decimal) error
}

// Store is the persistence interface.
type Store interface {
	// Atomic runs fn in a unit of work that serializes all trades of one
	// membership. If fn returns an error nothing it wrote is kept.
	Atomic(ctx context.Context, membershipID string, fn func(ctx context.Context, tx Tx) error) error

	// --- Read-only projections ---

	// GetMembership returns a membership by id.
	GetMembership(ctx context.Context, id string) (*model.Membership, error)

	// GetPortfolio returns a portfolio by id.
	GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error)

	// ListHoldings returns the current holdings of a portfolio.
	ListHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error)

	// ListTransactions returns the transaction log of a portfolio ordered by timestamp.
	ListTransactions(ctx context.Context, portfolioID string) ([]model.TransactionRecord, error)

	// ListHolds returns every hold ever recorded for a portfolio.
	ListHolds(ctx context.Context, portfolioID string) ([]model.Hold, error)
}
