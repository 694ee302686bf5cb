package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/frodan/league-exchange/internal/model"
)

// PostgreSQL error codes that mean the unit of work lost a race.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision
// and round-tripped as text.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Atomic opens a transaction and locks the membership row with
// SELECT ... FOR UPDATE, which serializes every trade of that membership.
func (s *PostgresStore) Atomic(ctx context.Context, membershipID string, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	m, err := scanMembership(tx.QueryRow(ctx,
		`SELECT id, user_id, league_id, COALESCE(portfolio_id, ''), balance::TEXT
		 FROM memberships WHERE id = $1 FOR UPDATE`, membershipID))
	if err != nil {
		return mapPgError(fmt.Errorf("lock membership %s: %w", membershipID, err))
	}

	if err := fn(ctx, &pgTx{tx: tx, membership: *m}); err != nil {
		return mapPgError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// mapPgError translates driver errors into store sentinels, keeping the
// original in the chain.
func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgUniqueViolation:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
	}
	return err
}

// --- Read-only projections ---

func (s *PostgresStore) GetMembership(ctx context.Context, id string) (*model.Membership, error) {
	m, err := scanMembership(s.pool.QueryRow(ctx,
		`SELECT id, user_id, league_id, COALESCE(portfolio_id, ''), balance::TEXT
		 FROM memberships WHERE id = $1`, id))
	if err != nil {
		return nil, mapPgError(fmt.Errorf("get membership %s: %w", id, err))
	}
	return m, nil
}

func (s *PostgresStore) GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	p, err := scanPortfolio(s.pool.QueryRow(ctx,
		`SELECT id, membership_id, current_value::TEXT, created_at
		 FROM portfolios WHERE id = $1`, id))
	if err != nil {
		return nil, mapPgError(fmt.Errorf("get portfolio %s: %w", id, err))
	}
	return p, nil
}

func (s *PostgresStore) ListHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error) {
	return listHoldings(ctx, s.pool, portfolioID)
}

func (s *PostgresStore) ListTransactions(ctx context.Context, portfolioID string) ([]model.TransactionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, portfolio_id, type, player_id, shares::TEXT, price::TEXT, timestamp
		 FROM transactions WHERE portfolio_id = $1 ORDER BY timestamp, seq`, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.TransactionRecord, 0)
	for rows.Next() {
		var r model.TransactionRecord
		var typ, sharesS, priceS string
		if err := rows.Scan(&r.ID, &r.PortfolioID, &typ, &r.PlayerID, &sharesS, &priceS, &r.Timestamp); err != nil {
			return nil, err
		}
		r.Type = model.TradeType(typ)
		r.Shares, _ = decimal.NewFromString(sharesS)
		r.Price, _ = decimal.NewFromString(priceS)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) ListHolds(ctx context.Context, portfolioID string) ([]model.Hold, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, portfolio_id, player_id, shares::TEXT, deadline
		 FROM holds WHERE portfolio_id = $1 ORDER BY deadline`, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Hold, 0)
	for rows.Next() {
		var h model.Hold
		var sharesS string
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.PlayerID, &sharesS, &h.Deadline); err != nil {
			return nil, err
		}
		h.Shares, _ = decimal.NewFromString(sharesS)
		result = append(result, h)
	}
	return result, rows.Err()
}

// pgTx is the Tx handed to the Atomic callback.
type pgTx struct {
	tx         pgx.Tx
	membership model.Membership
}

func (t *pgTx) Membership(_ context.Context) (*model.Membership, error) {
	cp := t.membership
	return &cp, nil
}

// EnsurePortfolio inserts with ON CONFLICT DO NOTHING on the unique
// membership_id and then reads back whichever row won.
func (t *pgTx) EnsurePortfolio(ctx context.Context, now time.Time) (*model.Portfolio, error) {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO portfolios (id, membership_id, current_value, created_at)
		 VALUES ($1, $2, 0, $3)
		 ON CONFLICT (membership_id) DO NOTHING`,
		uuid.New().String(), t.membership.ID, now)
	if err != nil {
		return nil, fmt.Errorf("create portfolio: %w", err)
	}

	p, err := scanPortfolio(t.tx.QueryRow(ctx,
		`SELECT id, membership_id, current_value::TEXT, created_at
		 FROM portfolios WHERE membership_id = $1`, t.membership.ID))
	if err != nil {
		return nil, fmt.Errorf("read portfolio: %w", err)
	}

	if t.membership.PortfolioID != p.ID {
		if _, err := t.tx.Exec(ctx,
			`UPDATE memberships SET portfolio_id = $2 WHERE id = $1`,
			t.membership.ID, p.ID); err != nil {
			return nil, fmt.Errorf("link portfolio: %w", err)
		}
		t.membership.PortfolioID = p.ID
	}
	return p, nil
}

func (t *pgTx) Holding(ctx context.Context, portfolioID, playerID string) (*model.Holding, error) {
	h := model.Holding{PortfolioID: portfolioID, PlayerID: playerID}
	var sharesS, avgS, basisS string
	err := t.tx.QueryRow(ctx,
		`SELECT shares::TEXT, avg_cost::TEXT, cost_basis::TEXT
		 FROM holdings WHERE portfolio_id = $1 AND player_id = $2 FOR UPDATE`,
		portfolioID, playerID).Scan(&sharesS, &avgS, &basisS)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get holding: %w", err)
	}
	h.Shares, _ = decimal.NewFromString(sharesS)
	h.AvgCost, _ = decimal.NewFromString(avgS)
	h.CostBasis, _ = decimal.NewFromString(basisS)
	return &h, nil
}

func (t *pgTx) PutHolding(ctx context.Context, h *model.Holding) error {
	if !h.Shares.IsPositive() {
		return fmt.Errorf("holding %s/%s: shares must be positive, got %s", h.PortfolioID, h.PlayerID, h.Shares)
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO holdings (portfolio_id, player_id, shares, avg_cost, cost_basis)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC)
		 ON CONFLICT (portfolio_id, player_id)
		 DO UPDATE SET shares = EXCLUDED.shares, avg_cost = EXCLUDED.avg_cost, cost_basis = EXCLUDED.cost_basis`,
		h.PortfolioID, h.PlayerID, h.Shares.String(), h.AvgCost.String(), h.CostBasis.String())
	return err
}

func (t *pgTx) DeleteHolding(ctx context.Context, portfolioID, playerID string) error {
	_, err := t.tx.Exec(ctx,
		`DELETE FROM holdings WHERE portfolio_id = $1 AND player_id = $2`,
		portfolioID, playerID)
	return err
}

func (t *pgTx) ListHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error) {
	return listHoldings(ctx, t.tx, portfolioID)
}

func (t *pgTx) InsertHold(ctx context.Context, h *model.Hold) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO holds (id, portfolio_id, player_id, shares, deadline)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5)`,
		h.ID, h.PortfolioID, h.PlayerID, h.Shares.String(), h.Deadline)
	return err
}

func (t *pgTx) ActiveHeldShares(ctx context.Context, portfolioID, playerID string, asOf time.Time) (decimal.Decimal, error) {
	var sumS string
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(shares), 0)::TEXT
		 FROM holds WHERE portfolio_id = $1 AND player_id = $2 AND deadline > $3`,
		portfolioID, playerID, asOf).Scan(&sumS)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum holds: %w", err)
	}
	return decimal.NewFromString(sumS)
}

func (t *pgTx) AppendTransaction(ctx context.Context, r *model.TransactionRecord) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO transactions (id, portfolio_id, type, player_id, shares, price, timestamp)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7)`,
		r.ID, r.PortfolioID, string(r.Type), r.PlayerID,
		r.Shares.String(), r.Price.String(), r.Timestamp)
	return err
}

func (t *pgTx) SetBalance(ctx context.Context, balance decimal.Decimal) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE memberships SET balance = $2::NUMERIC WHERE id = $1`,
		t.membership.ID, balance.String())
	if err == nil {
		t.membership.Balance = balance
	}
	return err
}

func (t *pgTx) SetPortfolioValue(ctx context.Context, portfolioID string, value decimal.Decimal) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE portfolios SET current_value = $2::NUMERIC WHERE id = $1`,
		portfolioID, value.String())
	return err
}

// --- Scan helpers ---

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listHoldings(ctx context.Context, q querier, portfolioID string) ([]model.Holding, error) {
	rows, err := q.Query(ctx,
		`SELECT portfolio_id, player_id, shares::TEXT, avg_cost::TEXT, cost_basis::TEXT
		 FROM holdings WHERE portfolio_id = $1 ORDER BY player_id`, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Holding, 0)
	for rows.Next() {
		var h model.Holding
		var sharesS, avgS, basisS string
		if err := rows.Scan(&h.PortfolioID, &h.PlayerID, &sharesS, &avgS, &basisS); err != nil {
			return nil, err
		}
		h.Shares, _ = decimal.NewFromString(sharesS)
		h.AvgCost, _ = decimal.NewFromString(avgS)
		h.CostBasis, _ = decimal.NewFromString(basisS)
		result = append(result, h)
	}
	return result, rows.Err()
}

func scanMembership(row pgx.Row) (*model.Membership, error) {
	var m model.Membership
	var balanceS string
	if err := row.Scan(&m.ID, &m.UserID, &m.LeagueID, &m.PortfolioID, &balanceS); err != nil {
		return nil, err
	}
	m.Balance, _ = decimal.NewFromString(balanceS)
	return &m, nil
}

func scanPortfolio(row pgx.Row) (*model.Portfolio, error) {
	var p model.Portfolio
	var valueS string
	if err := row.Scan(&p.ID, &p.MembershipID, &valueS, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.CurrentValue, _ = decimal.NewFromString(valueS)
	return &p, nil
}
