package trade

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/frodan/league-exchange/internal/apperr"
	"github.com/frodan/league-exchange/internal/holds"
	"github.com/frodan/league-exchange/internal/model"
	"github.com/frodan/league-exchange/internal/store"
)

// PortfolioView is a read-only projection of a membership's portfolio.
type PortfolioView struct {
	MembershipID string          `json:"membership_id"`
	LeagueID     string          `json:"league_id"`
	PortfolioID  string          `json:"portfolio_id,omitempty"`
	Balance      decimal.Decimal `json:"balance"`
	BookValue    decimal.Decimal `json:"book_value"`
	MarketValue  decimal.Decimal `json:"market_value"`
	Holdings     []HoldingView   `json:"holdings"`
	AsOf         time.Time       `json:"as_of"`
}

// HoldingView is one position valued at the current price.
type HoldingView struct {
	Player      model.PlayerIdentity `json:"player"`
	Shares      decimal.Decimal      `json:"shares"`
	AvgCost     decimal.Decimal      `json:"avg_cost"`
	Price       decimal.Decimal      `json:"price"`
	MarketValue decimal.Decimal      `json:"market_value"`
	HeldShares  decimal.Decimal      `json:"held_shares"`
	FreeShares  decimal.Decimal      `json:"free_shares"`
}

// Portfolio builds the portfolio view. A membership that has never traded
// gets an empty view with its balance.
func (e *Engine) Portfolio(ctx context.Context, membershipID string) (*PortfolioView, error) {
	now := e.now()
	m, err := e.membership(ctx, membershipID)
	if err != nil {
		return nil, err
	}

	view := &PortfolioView{
		MembershipID: m.ID,
		LeagueID:     m.LeagueID,
		PortfolioID:  m.PortfolioID,
		Balance:      m.Balance,
		BookValue:    decimal.Zero,
		MarketValue:  decimal.Zero,
		Holdings:     []HoldingView{},
		AsOf:         now,
	}
	if m.PortfolioID == "" {
		return view, nil
	}

	p, err := e.store.GetPortfolio(ctx, m.PortfolioID)
	if err != nil {
		return nil, readError(err, "get portfolio")
	}
	view.BookValue = p.CurrentValue

	positions, err := e.store.ListHoldings(ctx, p.ID)
	if err != nil {
		return nil, readError(err, "list holdings")
	}
	registry, err := e.store.ListHolds(ctx, p.ID)
	if err != nil {
		return nil, readError(err, "list holds")
	}

	for _, h := range positions {
		hv := HoldingView{
			Player:  model.PlayerIdentity{ID: h.PlayerID},
			Shares:  h.Shares,
			AvgCost: h.AvgCost,
			Price:   h.AvgCost,
		}
		if src, id, ok := model.ParsePlayerKey(h.PlayerID); ok {
			hv.Player = model.PlayerIdentity{ID: id, Source: src}
			if player, err := e.players.Lookup(ctx, src, id); err == nil {
				hv.Player = player.Identity
				if price, err := e.oracle.Price(player.Latest.LeaguePoints); err == nil {
					hv.Price = price
				}
			} else {
				e.log.Warn("portfolio view: pricing at cost", zap.String("player", h.PlayerID), zap.Error(err))
			}
		}
		hv.MarketValue = hv.Shares.Mul(hv.Price)
		hv.HeldShares = holds.ActiveHeldShares(registry, p.ID, h.PlayerID, now)
		hv.FreeShares = holds.FreeShares(h.Shares, hv.HeldShares)

		view.MarketValue = view.MarketValue.Add(hv.MarketValue)
		view.Holdings = append(view.Holdings, hv)
	}
	return view, nil
}

// Transactions returns the membership's transaction log in timestamp order.
func (e *Engine) Transactions(ctx context.Context, membershipID string) ([]model.TransactionRecord, error) {
	m, err := e.membership(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m.PortfolioID == "" {
		return []model.TransactionRecord{}, nil
	}
	records, err := e.store.ListTransactions(ctx, m.PortfolioID)
	if err != nil {
		return nil, readError(err, "list transactions")
	}
	return records, nil
}

// ActiveHolds returns the holds still blocking resale right now.
func (e *Engine) ActiveHolds(ctx context.Context, membershipID string) ([]model.Hold, error) {
	now := e.now()
	m, err := e.membership(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m.PortfolioID == "" {
		return []model.Hold{}, nil
	}
	registry, err := e.store.ListHolds(ctx, m.PortfolioID)
	if err != nil {
		return nil, readError(err, "list holds")
	}
	return holds.Active(registry, now), nil
}

func (e *Engine) membership(ctx context.Context, id string) (*model.Membership, error) {
	m, err := e.store.GetMembership(ctx, id)
	if err != nil {
		return nil, readError(err, "get membership")
	}
	return m, nil
}

func readError(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Wrap(apperr.KindNotFound, err, "%s: not found", op)
	}
	return apperr.Internal(err, op)
}
