package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/frodan/league-exchange/internal/holds"
	"github.com/frodan/league-exchange/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
//
// Units of work on the same membership are serialized by a per-membership
// lock. Writes are buffered in the memTx and applied under the data lock on
// commit, so a failed callback leaves no trace.
type MemoryStore struct {
	mu          sync.RWMutex
	memberships map[string]*model.Membership
	portfolios  map[string]*model.Portfolio
	byMember    map[string]string // membershipID -> portfolioID
	holdings    map[holdingKey]*model.Holding
	holds       []model.Hold
	log         []model.TransactionRecord

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

type holdingKey struct {
	portfolioID string
	playerID    string
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		memberships: make(map[string]*model.Membership),
		portfolios:  make(map[string]*model.Portfolio),
		byMember:    make(map[string]string),
		holdings:    make(map[holdingKey]*model.Holding),
		locks:       make(map[string]chan struct{}),
	}
}

// PutMembership registers or replaces a membership. Memberships are owned by
// the league subsystem; the trading engine only ever changes the balance.
func (s *MemoryStore) PutMembership(_ context.Context, m *model.Membership) error {
	if m.ID == "" {
		return fmt.Errorf("membership id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *m
	s.memberships[m.ID] = &cp
	if m.PortfolioID != "" {
		s.byMember[m.ID] = m.PortfolioID
	}
	return nil
}

// lock acquires the membership lock, honouring ctx cancellation.
func (s *MemoryStore) lock(ctx context.Context, membershipID string) (func(), error) {
	s.locksMu.Lock()
	ch, ok := s.locks[membershipID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[membershipID] = ch
	}
	s.locksMu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *MemoryStore) Atomic(ctx context.Context, membershipID string, fn func(ctx context.Context, tx Tx) error) error {
	unlock, err := s.lock(ctx, membershipID)
	if err != nil {
		return err
	}
	defer unlock()

	s.mu.RLock()
	m, ok := s.memberships[membershipID]
	var snapshot model.Membership
	if ok {
		snapshot = *m
	}
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("membership %s: %w", membershipID, ErrNotFound)
	}

	tx := &memTx{
		s:          s,
		membership: snapshot,
		holdings:   make(map[holdingKey]*model.Holding),
		values:     make(map[string]decimal.Decimal),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *MemoryStore) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.newPortfolio != nil {
		if existing, ok := s.byMember[tx.membership.ID]; ok && existing != tx.newPortfolio.ID {
			return fmt.Errorf("portfolio for membership %s: %w", tx.membership.ID, ErrConflict)
		}
		p := *tx.newPortfolio
		s.portfolios[p.ID] = &p
		s.byMember[tx.membership.ID] = p.ID
	}

	m := s.memberships[tx.membership.ID]
	m.Balance = tx.membership.Balance
	m.PortfolioID = tx.membership.PortfolioID

	for k, h := range tx.holdings {
		if h == nil {
			delete(s.holdings, k)
			continue
		}
		cp := *h
		s.holdings[k] = &cp
	}
	s.holds = append(s.holds, tx.holds...)
	s.log = append(s.log, tx.records...)

	for id, v := range tx.values {
		if p, ok := s.portfolios[id]; ok {
			p.CurrentValue = v
		}
	}
	return nil
}

// --- Read-only projections ---

func (s *MemoryStore) GetMembership(_ context.Context, id string) (*model.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.memberships[id]
	if !ok {
		return nil, fmt.Errorf("membership %s: %w", id, ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) GetPortfolio(_ context.Context, id string) (*model.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portfolios[id]
	if !ok {
		return nil, fmt.Errorf("portfolio %s: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListHoldings(_ context.Context, portfolioID string) ([]model.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.holdingsOf(portfolioID), nil
}

// holdingsOf must be called with s.mu held.
func (s *MemoryStore) holdingsOf(portfolioID string) []model.Holding {
	result := make([]model.Holding, 0)
	for k, h := range s.holdings {
		if k.portfolioID == portfolioID {
			result = append(result, *h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PlayerID < result[j].PlayerID })
	return result
}

func (s *MemoryStore) ListTransactions(_ context.Context, portfolioID string) ([]model.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.TransactionRecord, 0)
	for _, r := range s.log {
		if r.PortfolioID == portfolioID {
			result = append(result, r)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

func (s *MemoryStore) ListHolds(_ context.Context, portfolioID string) ([]model.Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Hold, 0)
	for _, h := range s.holds {
		if h.PortfolioID == portfolioID {
			result = append(result, h)
		}
	}
	return result, nil
}

// memTx buffers the writes of one unit of work. A nil entry in holdings
// marks a deletion.
type memTx struct {
	s            *MemoryStore
	membership   model.Membership
	newPortfolio *model.Portfolio
	holdings     map[holdingKey]*model.Holding
	holds        []model.Hold
	records      []model.TransactionRecord
	values       map[string]decimal.Decimal
}

func (t *memTx) Membership(_ context.Context) (*model.Membership, error) {
	cp := t.membership
	return &cp, nil
}

func (t *memTx) EnsurePortfolio(_ context.Context, now time.Time) (*model.Portfolio, error) {
	if t.newPortfolio != nil {
		cp := *t.newPortfolio
		return &cp, nil
	}

	t.s.mu.RLock()
	id, ok := t.s.byMember[t.membership.ID]
	var existing *model.Portfolio
	if ok {
		if p, found := t.s.portfolios[id]; found {
			cp := *p
			existing = &cp
		}
	}
	t.s.mu.RUnlock()

	if existing != nil {
		return existing, nil
	}

	p := &model.Portfolio{
		ID:           uuid.New().String(),
		MembershipID: t.membership.ID,
		CurrentValue: decimal.Zero,
		CreatedAt:    now,
	}
	t.newPortfolio = p
	t.membership.PortfolioID = p.ID
	cp := *p
	return &cp, nil
}

func (t *memTx) Holding(_ context.Context, portfolioID, playerID string) (*model.Holding, error) {
	k := holdingKey{portfolioID, playerID}
	if h, ok := t.holdings[k]; ok {
		if h == nil {
			return nil, nil
		}
		cp := *h
		return &cp, nil
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	h, ok := t.s.holdings[k]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (t *memTx) PutHolding(_ context.Context, h *model.Holding) error {
	if !h.Shares.IsPositive() {
		return fmt.Errorf("holding %s/%s: shares must be positive, got %s", h.PortfolioID, h.PlayerID, h.Shares)
	}
	cp := *h
	t.holdings[holdingKey{h.PortfolioID, h.PlayerID}] = &cp
	return nil
}

func (t *memTx) DeleteHolding(_ context.Context, portfolioID, playerID string) error {
	t.holdings[holdingKey{portfolioID, playerID}] = nil
	return nil
}

func (t *memTx) ListHoldings(_ context.Context, portfolioID string) ([]model.Holding, error) {
	t.s.mu.RLock()
	merged := make(map[holdingKey]model.Holding)
	for _, h := range t.s.holdingsOf(portfolioID) {
		merged[holdingKey{h.PortfolioID, h.PlayerID}] = h
	}
	t.s.mu.RUnlock()

	for k, h := range t.holdings {
		if k.portfolioID != portfolioID {
			continue
		}
		if h == nil {
			delete(merged, k)
			continue
		}
		merged[k] = *h
	}

	result := make([]model.Holding, 0, len(merged))
	for _, h := range merged {
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PlayerID < result[j].PlayerID })
	return result, nil
}

func (t *memTx) InsertHold(_ context.Context, h *model.Hold) error {
	t.holds = append(t.holds, *h)
	return nil
}

func (t *memTx) ActiveHeldShares(_ context.Context, portfolioID, playerID string, asOf time.Time) (decimal.Decimal, error) {
	t.s.mu.RLock()
	committed := holds.ActiveHeldShares(t.s.holds, portfolioID, playerID, asOf)
	t.s.mu.RUnlock()

	return committed.Add(holds.ActiveHeldShares(t.holds, portfolioID, playerID, asOf)), nil
}

func (t *memTx) AppendTransaction(_ context.Context, r *model.TransactionRecord) error {
	t.records = append(t.records, *r)
	return nil
}

func (t *memTx) SetBalance(_ context.Context, balance decimal.Decimal) error {
	t.membership.Balance = balance
	return nil
}

func (t *memTx) SetPortfolioValue(_ context.Context, portfolioID string, value decimal.Decimal) error {
	t.values[portfolioID] = value
	return nil
}
