// Package model defines the core domain types shared across the exchange.
// All monetary values and share quantities use shopspring/decimal, never float64.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeType is the direction of a transaction.
type TradeType string

const (
	Buy  TradeType = "buy"
	Sell TradeType = "sell"
)

// Valid reports whether t is one of the supported trade types.
func (t TradeType) Valid() bool {
	return t == Buy || t == Sell
}

// PlayerSource tags which player table an identity was resolved from.
type PlayerSource string

const (
	SourcePrimary   PlayerSource = "primary"
	SourceAlternate PlayerSource = "alternate"
)

// PlayerIdentity is a tradable player resolved from a handle.
type PlayerIdentity struct {
	ID       string       `json:"id"`
	Source   PlayerSource `json:"source"`
	GameName string       `json:"game_name"`
	TagLine  string       `json:"tag_line"`
}

// Key is the identifier used by holdings, holds and transactions. Ids from the
// two player tables may overlap, so the source is part of the key.
func (p PlayerIdentity) Key() string {
	return string(p.Source) + ":" + p.ID
}

// ParsePlayerKey splits a key produced by PlayerIdentity.Key.
func ParsePlayerKey(key string) (PlayerSource, string, bool) {
	src, id, ok := strings.Cut(key, ":")
	if !ok || id == "" {
		return "", "", false
	}
	switch s := PlayerSource(src); s {
	case SourcePrimary, SourceAlternate:
		return s, id, true
	}
	return "", "", false
}

// Metric is one performance sample of a player.
type Metric struct {
	PlayerID     string          `json:"player_id"`
	LeaguePoints decimal.Decimal `json:"league_points"`
	Date         time.Time       `json:"date"`
}

// League defines the active trading window [Start, End).
type League struct {
	ID    string    `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Start time.Time `json:"start" db:"start_date"`
	End   time.Time `json:"end" db:"end_date"`
}

// Membership links a user to a league and, once it has traded, a portfolio.
type Membership struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"user_id" db:"user_id"`
	LeagueID    string          `json:"league_id" db:"league_id"`
	PortfolioID string          `json:"portfolio_id,omitempty" db:"portfolio_id"` // empty until first trade
	Balance     decimal.Decimal `json:"balance" db:"balance"`
}

// Portfolio is created lazily on a membership's first transaction.
type Portfolio struct {
	ID           string          `json:"id" db:"id"`
	MembershipID string          `json:"membership_id" db:"membership_id"`
	CurrentValue decimal.Decimal `json:"current_value" db:"current_value"` // book value, refreshed on commit
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Holding is the aggregate position in one player. A holding with zero
// shares is never stored.
type Holding struct {
	PortfolioID string          `json:"portfolio_id" db:"portfolio_id"`
	PlayerID    string          `json:"player_id" db:"player_id"`
	Shares      decimal.Decimal `json:"shares" db:"shares"`
	AvgCost     decimal.Decimal `json:"avg_cost" db:"avg_cost"`
	CostBasis   decimal.Decimal `json:"cost_basis" db:"cost_basis"` // exact amount paid for Shares
}

// Hold locks freshly bought shares until Deadline. Holds are append-only;
// expiry is decided at read time.
type Hold struct {
	ID          string          `json:"id" db:"id"`
	PortfolioID string          `json:"portfolio_id" db:"portfolio_id"`
	PlayerID    string          `json:"player_id" db:"player_id"`
	Shares      decimal.Decimal `json:"shares" db:"shares"`
	Deadline    time.Time       `json:"deadline" db:"deadline"`
}

// Active reports whether the hold still blocks resale at asOf.
func (h Hold) Active(asOf time.Time) bool {
	return h.Deadline.After(asOf)
}

// TransactionRecord is an immutable record of a committed trade.
// Once created, these are never modified or deleted.
type TransactionRecord struct {
	ID          string          `json:"id" db:"id"`
	PortfolioID string          `json:"portfolio_id" db:"portfolio_id"`
	Type        TradeType       `json:"type" db:"type"`
	PlayerID    string          `json:"player_id" db:"player_id"`
	Shares      decimal.Decimal `json:"shares" db:"shares"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
}

// Total is shares × price.
func (r TransactionRecord) Total() decimal.Decimal {
	return r.Shares.Mul(r.Price)
}
