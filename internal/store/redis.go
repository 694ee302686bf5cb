package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/frodan/league-exchange/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache of the reporting views. Units of work always run against the
// primary; a successful commit invalidates every key of the membership and
// its portfolio.
//
// Every invalidation also bumps a per-key epoch. A read-through fill is
// written only while the epoch it observed before reading the primary is
// still current, so a reader racing a commit cannot put the pre-commit
// view back into the cache.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
	log     *zap.Logger
}

// epochTTL outlives any single read-through.
const epochTTL = 10 * time.Minute

var errStaleFill = errors.New("store: cache fill raced an invalidation")

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CachedStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
		log:     log,
	}
}

// --- Unit of work (primary, then invalidate) ---

func (s *CachedStore) Atomic(ctx context.Context, membershipID string, fn func(ctx context.Context, tx Tx) error) error {
	var portfolioID string
	err := s.primary.Atomic(ctx, membershipID, func(ctx context.Context, tx Tx) error {
		ct := &cachedTx{Tx: tx}
		if err := fn(ctx, ct); err != nil {
			return err
		}
		portfolioID = ct.portfolioID
		return nil
	})
	if err != nil {
		return err
	}

	keys := []string{membershipKey(membershipID)}
	if portfolioID != "" {
		keys = append(keys,
			portfolioKey(portfolioID),
			holdingsKey(portfolioID),
			transactionsKey(portfolioID),
			holdsKey(portfolioID),
		)
	}
	s.invalidate(ctx, keys)
	return nil
}

// invalidate runs even when the request context has been cancelled: the
// commit already happened and the cache must not keep the old view.
func (s *CachedStore) invalidate(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Incr(ctx, epochKey(key))
			pipe.Expire(ctx, epochKey(key), epochTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		s.log.Error("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// cachedTx records which portfolio the unit of work touched.
type cachedTx struct {
	Tx
	portfolioID string
}

func (t *cachedTx) EnsurePortfolio(ctx context.Context, now time.Time) (*model.Portfolio, error) {
	p, err := t.Tx.EnsurePortfolio(ctx, now)
	if err == nil {
		t.portfolioID = p.ID
	}
	return p, err
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetMembership(ctx context.Context, id string) (*model.Membership, error) {
	return readThrough(ctx, s, membershipKey(id), func(ctx context.Context) (*model.Membership, error) {
		return s.primary.GetMembership(ctx, id)
	})
}

func (s *CachedStore) GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	return readThrough(ctx, s, portfolioKey(id), func(ctx context.Context) (*model.Portfolio, error) {
		return s.primary.GetPortfolio(ctx, id)
	})
}

func (s *CachedStore) ListHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error) {
	return readThrough(ctx, s, holdingsKey(portfolioID), func(ctx context.Context) ([]model.Holding, error) {
		return s.primary.ListHoldings(ctx, portfolioID)
	})
}

func (s *CachedStore) ListTransactions(ctx context.Context, portfolioID string) ([]model.TransactionRecord, error) {
	return readThrough(ctx, s, transactionsKey(portfolioID), func(ctx context.Context) ([]model.TransactionRecord, error) {
		return s.primary.ListTransactions(ctx, portfolioID)
	})
}

// ListHolds caches the raw registry. Expiry is a read-time filter applied by
// the caller, so cached entries never go stale by the passage of time.
func (s *CachedStore) ListHolds(ctx context.Context, portfolioID string) ([]model.Hold, error) {
	return readThrough(ctx, s, holdsKey(portfolioID), func(ctx context.Context) ([]model.Hold, error) {
		return s.primary.ListHolds(ctx, portfolioID)
	})
}

// --- Cache helpers ---

func readThrough[T any](ctx context.Context, s *CachedStore, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	epoch, epochOK := s.epoch(ctx, key)
	got, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if epochOK {
		s.toCache(ctx, key, epoch, got)
	}
	return got, nil
}

func (s *CachedStore) fromCache(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// epoch reads the key's invalidation counter. A missing counter reads as "".
func (s *CachedStore) epoch(ctx context.Context, key string) (string, bool) {
	v, err := s.rdb.Get(ctx, epochKey(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", true
	case err != nil:
		return "", false
	}
	return v, true
}

// toCache stores v under key if no invalidation happened since epoch was read.
func (s *CachedStore) toCache(ctx context.Context, key, epoch string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	ek := epochKey(key)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, ek).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != epoch {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, ek)
	if err != nil && !errors.Is(err, errStaleFill) && !errors.Is(err, redis.TxFailedErr) {
		s.log.Debug("cache fill skipped", zap.String("key", key), zap.Error(err))
	}
}

func membershipKey(id string) string    { return fmt.Sprintf("membership:%s", id) }
func portfolioKey(id string) string     { return fmt.Sprintf("portfolio:%s", id) }
func holdingsKey(pid string) string     { return fmt.Sprintf("holdings:%s", pid) }
func transactionsKey(pid string) string { return fmt.Sprintf("transactions:%s", pid) }
func holdsKey(pid string) string        { return fmt.Sprintf("holds:%s", pid) }
func epochKey(key string) string        { return "epoch:" + key }
