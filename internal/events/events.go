// Package events publishes committed transactions to downstream consumers
// such as the price-movement service.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frodan/league-exchange/internal/model"
)

// TypeTransactionExecuted is the event type of a committed trade.
const TypeTransactionExecuted = "transaction_executed"

// TransactionExecuted is emitted after a trade commits. It is never emitted
// for a rolled-back trade.
type TransactionExecuted struct {
	Type         string          `json:"type"`
	ID           string          `json:"id"`
	MembershipID string          `json:"membership_id"`
	UserID       string          `json:"user_id"`
	PortfolioID  string          `json:"portfolio_id"`
	Player       string          `json:"player"`
	GameName     string          `json:"game_name"`
	TagLine      string          `json:"tag_line"`
	TradeType    model.TradeType `json:"trade_type"`
	Shares       decimal.Decimal `json:"shares"`
	Price        decimal.Decimal `json:"price"`
	Balance      decimal.Decimal `json:"balance"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e TransactionExecuted) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, TransactionExecuted) error { return nil }
func (Nop) Close() error                                       { return nil }
