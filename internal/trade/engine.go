package trade

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/frodan/league-exchange/internal/apperr"
	"github.com/frodan/league-exchange/internal/book"
	"github.com/frodan/league-exchange/internal/directory"
	"github.com/frodan/league-exchange/internal/gate"
	"github.com/frodan/league-exchange/internal/handle"
	"github.com/frodan/league-exchange/internal/holds"
	"github.com/frodan/league-exchange/internal/metrics"
	"github.com/frodan/league-exchange/internal/model"
	"github.com/frodan/league-exchange/internal/pricing"
	"github.com/frodan/league-exchange/internal/store"
)

// Engine executes buy and sell transactions for league memberships.
//
// Every invocation captures the clock once. The same instant drives the
// league-window check, the hold expiry filter, new hold deadlines, and the
// transaction timestamp.
type Engine struct {
	store   store.Store
	players directory.Players
	gate    *gate.Gate
	oracle  pricing.Oracle
	log     *zap.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine wires an engine. A nil logger disables logging.
func NewEngine(st store.Store, players directory.Players, leagues gate.LeagueResolver, oracle pricing.Oracle, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		store:   st,
		players: players,
		gate:    gate.New(leagues),
		oracle:  oracle,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request is one transaction submitted on behalf of a membership.
type Request struct {
	MembershipID string
	UserID       string
	Player       handle.Handle
	Type         model.TradeType
	Shares       decimal.Decimal
}

// Result describes a committed transaction.
type Result struct {
	Record           model.TransactionRecord
	Player           model.PlayerIdentity
	Balance          decimal.Decimal
	Holding          *model.Holding // nil when a sell closed the position
	PortfolioCreated bool
}

// Execute runs one transaction. Either every mutation commits or none does.
// Domain failures are returned as *apperr.Error.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := e.execute(ctx, req)
	if err != nil {
		e.reject(req, err)
		return nil, err
	}

	metrics.TradesTotal.WithLabelValues(string(req.Type)).Inc()
	metrics.TradeLatency.WithLabelValues(string(req.Type)).Observe(time.Since(start).Seconds())
	metrics.TradeVolume.WithLabelValues(string(req.Type)).Add(req.Shares.InexactFloat64())
	if res.PortfolioCreated {
		metrics.PortfoliosCreated.Inc()
	}

	e.log.Info("transaction committed",
		zap.String("id", res.Record.ID),
		zap.String("membership", req.MembershipID),
		zap.String("user", req.UserID),
		zap.String("type", string(req.Type)),
		zap.String("player", res.Player.Key()),
		zap.String("shares", req.Shares.String()),
		zap.String("price", res.Record.Price.String()),
		zap.String("total", res.Record.Total().String()),
		zap.String("balance", res.Balance.String()),
	)
	return res, nil
}

func (e *Engine) execute(ctx context.Context, req Request) (*Result, error) {
	if req.MembershipID == "" {
		return nil, apperr.New(apperr.KindInputInvalid, "membership is required")
	}
	if !req.Type.Valid() {
		return nil, apperr.New(apperr.KindInputInvalid, "transaction type must be buy or sell, got %q", req.Type)
	}
	if err := book.CheckShares(req.Shares); err != nil {
		return nil, sharesError(err)
	}

	now := e.now()

	player, price, err := e.resolvePrice(ctx, req.Player)
	if err != nil {
		return nil, err
	}

	if _, err := e.gate.Check(ctx, req.MembershipID, now); err != nil {
		return nil, leagueError(err)
	}

	res := &Result{Player: player.Identity}
	err = e.store.Atomic(ctx, req.MembershipID, func(ctx context.Context, tx store.Tx) error {
		m, err := tx.Membership(ctx)
		if err != nil {
			return err
		}
		res.PortfolioCreated = m.PortfolioID == ""

		portfolio, err := tx.EnsurePortfolio(ctx, now)
		if err != nil {
			return err
		}

		playerKey := player.Identity.Key()
		res.Record = model.TransactionRecord{
			ID:          uuid.New().String(),
			PortfolioID: portfolio.ID,
			Type:        req.Type,
			PlayerID:    playerKey,
			Shares:      req.Shares,
			Price:       price,
			Timestamp:   now,
		}
		total := res.Record.Total()
		balance := m.Balance

		current, err := tx.Holding(ctx, portfolio.ID, playerKey)
		if err != nil {
			return err
		}

		switch req.Type {
		case model.Buy:
			if balance.LessThan(total) {
				return apperr.New(apperr.KindInsufficientBalance,
					"insufficient balance: need %s, have %s", total, balance)
			}
			next, err := book.ApplyBuy(current, portfolio.ID, playerKey, price, req.Shares)
			if err != nil {
				return err
			}
			if err := tx.PutHolding(ctx, next); err != nil {
				return err
			}
			hold := holds.New(portfolio.ID, playerKey, req.Shares, now, holds.DefaultDuration)
			if err := tx.InsertHold(ctx, &hold); err != nil {
				return err
			}
			res.Holding = next
			balance = balance.Sub(total)

		case model.Sell:
			owned := decimal.Zero
			if current != nil {
				owned = current.Shares
			}
			if owned.LessThan(req.Shares) {
				return apperr.New(apperr.KindInsufficientShares,
					"insufficient shares: own %s, selling %s", owned, req.Shares)
			}
			held, err := tx.ActiveHeldShares(ctx, portfolio.ID, playerKey, now)
			if err != nil {
				return err
			}
			free := holds.FreeShares(owned, held)
			if free.LessThan(req.Shares) {
				return apperr.New(apperr.KindInsufficientFreeShares,
					"insufficient free shares: %s free, %s on hold", free, held)
			}
			remaining, err := book.ApplySell(current, req.Shares)
			if err != nil {
				return err
			}
			if remaining == nil {
				err = tx.DeleteHolding(ctx, portfolio.ID, playerKey)
			} else {
				err = tx.PutHolding(ctx, remaining)
			}
			if err != nil {
				return err
			}
			res.Holding = remaining
			balance = balance.Add(total)
		}

		if err := tx.AppendTransaction(ctx, &res.Record); err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, balance); err != nil {
			return err
		}
		res.Balance = balance

		all, err := tx.ListHoldings(ctx, portfolio.ID)
		if err != nil {
			return err
		}
		return tx.SetPortfolioValue(ctx, portfolio.ID, book.BookValue(all))
	})
	if err != nil {
		return nil, storeError(err)
	}
	return res, nil
}

// Quote is the current price of a player.
type Quote struct {
	Player model.PlayerIdentity `json:"player"`
	Metric model.Metric         `json:"metric"`
	Price  decimal.Decimal      `json:"price"`
}

// Quote prices a player without trading.
func (e *Engine) Quote(ctx context.Context, h handle.Handle) (*Quote, error) {
	player, price, err := e.resolvePrice(ctx, h)
	if err != nil {
		return nil, err
	}
	return &Quote{Player: player.Identity, Metric: player.Latest, Price: price}, nil
}

func (e *Engine) resolvePrice(ctx context.Context, h handle.Handle) (*directory.Player, decimal.Decimal, error) {
	player, err := e.players.Resolve(ctx, h)
	if err != nil {
		return nil, decimal.Zero, playerError(err, h.String())
	}
	price, err := e.oracle.Price(player.Latest.LeaguePoints)
	if err != nil {
		return nil, decimal.Zero, apperr.Internal(err, "price oracle")
	}
	if !price.IsPositive() {
		return nil, decimal.Zero, apperr.Internal(errors.New("non-positive price "+price.String()), "price oracle")
	}
	return player, price, nil
}

// reject records a failed transaction. Internal failures carry their cause
// to the log only.
func (e *Engine) reject(req Request, err error) {
	kind := apperr.KindOf(err)
	metrics.TradeRejections.WithLabelValues(kind.Code()).Inc()

	fields := []zap.Field{
		zap.String("code", kind.Code()),
		zap.String("membership", req.MembershipID),
		zap.String("user", req.UserID),
		zap.String("type", string(req.Type)),
		zap.String("player", req.Player.String()),
		sharesField(req.Shares),
	}
	switch kind {
	case apperr.KindInternal:
		e.log.Error("transaction failed", append(fields, zap.String("op", "execute"), zap.Error(err))...)
	case apperr.KindConcurrencyConflict:
		e.log.Warn("transaction conflicted", append(fields, zap.Error(err))...)
	default:
		e.log.Info("transaction rejected", append(fields, zap.String("reason", apperr.As(err).Message))...)
	}
}

// sharesField logs a quantity. Rejected scales are logged by exponent; their
// decimal form can run to millions of digits.
func sharesField(s decimal.Decimal) zap.Field {
	if err := book.CheckShares(s); errors.Is(err, book.ErrShareScale) || errors.Is(err, book.ErrShareSize) {
		return zap.Int32("shares_exponent", s.Exponent())
	}
	return zap.String("shares", s.String())
}

func sharesError(err error) error {
	switch {
	case errors.Is(err, book.ErrShareScale):
		return apperr.Wrap(apperr.KindInputInvalid, err, "shares allow at most %d decimal places", book.MaxShareScale)
	case errors.Is(err, book.ErrShareSize):
		return apperr.Wrap(apperr.KindInputInvalid, err, "shares must be below 10^%d", book.MaxShareIntDigits)
	default:
		return apperr.Wrap(apperr.KindInputInvalid, err, "shares must be positive")
	}
}

func playerError(err error, h string) error {
	switch {
	case errors.Is(err, directory.ErrPlayerNotFound):
		return apperr.Wrap(apperr.KindNotFound, err, "player %s not found", h)
	case errors.Is(err, directory.ErrNoMetric):
		return apperr.Wrap(apperr.KindNotFound, err, "no price data for player %s", h)
	default:
		return apperr.Internal(err, "resolve player")
	}
}

func leagueError(err error) error {
	switch {
	case errors.Is(err, gate.ErrNotStarted):
		return apperr.Wrap(apperr.KindLeagueClosed, err, "league has not started")
	case errors.Is(err, gate.ErrEnded):
		return apperr.Wrap(apperr.KindLeagueClosed, err, "league has ended")
	case errors.Is(err, gate.ErrNoLeague), errors.Is(err, directory.ErrNoLeague):
		return apperr.Wrap(apperr.KindNotFound, err, "membership has no league")
	default:
		return apperr.Internal(err, "resolve league")
	}
}

// storeError classifies failures coming out of a unit of work. Domain errors
// raised inside the callback pass through unchanged.
func storeError(err error) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, store.ErrConflict):
		return apperr.Wrap(apperr.KindConcurrencyConflict, err, "concurrent update, retry the transaction")
	case errors.Is(err, store.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, err, "membership not found")
	default:
		return apperr.Internal(err, "commit transaction")
	}
}
