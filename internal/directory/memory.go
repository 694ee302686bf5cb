package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frodan/league-exchange/internal/handle"
	"github.com/frodan/league-exchange/internal/model"
)

// Memory implements Players and Leagues with in-memory maps. Used for
// testing and development.
type Memory struct {
	mu sync.RWMutex

	players map[model.PlayerSource]map[handle.Handle]string
	metrics map[string][]model.Metric // keyed by PlayerIdentity.Key()

	leagues       map[string]*model.League
	currentLeague map[string]string    // userID -> leagueID
	memberships   map[[2]string]string // (userID, leagueID) -> membershipID
	memberLeague  map[string]string    // membershipID -> leagueID
}

// NewMemory returns an empty directory.
func NewMemory() *Memory {
	return &Memory{
		players:       make(map[model.PlayerSource]map[handle.Handle]string),
		metrics:       make(map[string][]model.Metric),
		leagues:       make(map[string]*model.League),
		currentLeague: make(map[string]string),
		memberships:   make(map[[2]string]string),
		memberLeague:  make(map[string]string),
	}
}

// AddPlayer registers a player under source.
func (m *Memory) AddPlayer(source model.PlayerSource, id string, h handle.Handle) model.PlayerIdentity {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.players[source] == nil {
		m.players[source] = make(map[handle.Handle]string)
	}
	m.players[source][h] = id
	return model.PlayerIdentity{ID: id, Source: source, GameName: h.GameName, TagLine: h.TagLine}
}

// AddMetric records a league-points sample for a player.
func (m *Memory) AddMetric(p model.PlayerIdentity, points decimal.Decimal, date time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics[p.Key()] = append(m.metrics[p.Key()], model.Metric{
		PlayerID:     p.ID,
		LeaguePoints: points,
		Date:         date,
	})
}

// AddLeague registers or replaces a league.
func (m *Memory) AddLeague(l model.League) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := l
	m.leagues[l.ID] = &cp
}

// AddMembership links userID to leagueID and makes it the user's current league.
func (m *Memory) AddMembership(membershipID, userID, leagueID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.memberships[[2]string{userID, leagueID}] = membershipID
	m.memberLeague[membershipID] = leagueID
	m.currentLeague[userID] = leagueID
}

func (m *Memory) Resolve(_ context.Context, h handle.Handle) (*Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, src := range Sources {
		id, ok := m.players[src][h]
		if !ok {
			continue
		}
		return m.withLatest(model.PlayerIdentity{ID: id, Source: src, GameName: h.GameName, TagLine: h.TagLine})
	}
	return nil, fmt.Errorf("%s: %w", h, ErrPlayerNotFound)
}

func (m *Memory) Lookup(_ context.Context, source model.PlayerSource, id string) (*Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for h, pid := range m.players[source] {
		if pid == id {
			return m.withLatest(model.PlayerIdentity{ID: id, Source: source, GameName: h.GameName, TagLine: h.TagLine})
		}
	}
	return nil, fmt.Errorf("%s:%s: %w", source, id, ErrPlayerNotFound)
}

// withLatest must be called with m.mu held.
func (m *Memory) withLatest(p model.PlayerIdentity) (*Player, error) {
	samples := m.metrics[p.Key()]
	if len(samples) == 0 {
		return nil, fmt.Errorf("%s#%s: %w", p.GameName, p.TagLine, ErrNoMetric)
	}
	latest := samples[0]
	for _, s := range samples[1:] {
		if s.Date.After(latest.Date) {
			latest = s
		}
	}
	return &Player{Identity: p, Latest: latest}, nil
}

func (m *Memory) CurrentMembership(_ context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	leagueID, ok := m.currentLeague[userID]
	if !ok {
		return "", fmt.Errorf("user %s: %w", userID, ErrNoMembership)
	}
	id, ok := m.memberships[[2]string{userID, leagueID}]
	if !ok {
		return "", fmt.Errorf("user %s: %w", userID, ErrNoMembership)
	}
	return id, nil
}

func (m *Memory) LeagueForMembership(_ context.Context, membershipID string) (*model.League, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	leagueID, ok := m.memberLeague[membershipID]
	if !ok {
		return nil, fmt.Errorf("membership %s: %w", membershipID, ErrNoLeague)
	}
	l, ok := m.leagues[leagueID]
	if !ok {
		return nil, fmt.Errorf("membership %s: %w", membershipID, ErrNoLeague)
	}
	cp := *l
	return &cp, nil
}
