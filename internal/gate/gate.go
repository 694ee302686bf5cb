// Package gate decides whether a membership's league is open for trading.
//
// The gate fails closed: a missing league record, or a clock value outside the
// league window [start, end), rejects the trade. Callers pass the single
// clock value captured for the whole transaction so that league and hold
// decisions agree.
package gate

import (
	"context"
	"errors"
	"time"

	"github.com/frodan/league-exchange/internal/model"
)

var (
	// ErrNoLeague is returned when the membership has no league record.
	ErrNoLeague = errors.New("gate: membership has no league")

	// ErrNotStarted is returned when now is before the league start.
	ErrNotStarted = errors.New("gate: league has not started")

	// ErrEnded is returned when now is at or after the league end.
	ErrEnded = errors.New("gate: league has ended")
)

// LeagueResolver resolves the league a membership currently belongs to.
type LeagueResolver interface {
	LeagueForMembership(ctx context.Context, membershipID string) (*model.League, error)
}

// Gate checks league windows for memberships.
type Gate struct {
	leagues LeagueResolver
}

// New creates a gate backed by the given resolver.
func New(leagues LeagueResolver) *Gate {
	return &Gate{leagues: leagues}
}

// Check resolves the membership's league and validates now against its
// window. The league is returned on success.
func (g *Gate) Check(ctx context.Context, membershipID string, now time.Time) (*model.League, error) {
	league, err := g.leagues.LeagueForMembership(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if league == nil {
		return nil, ErrNoLeague
	}
	if err := Window(league, now); err != nil {
		return league, err
	}
	return league, nil
}

// IsOpen reports whether the membership may trade at now.
func (g *Gate) IsOpen(ctx context.Context, membershipID string, now time.Time) bool {
	_, err := g.Check(ctx, membershipID, now)
	return err == nil
}

// Window validates now ∈ [league.Start, league.End).
func Window(league *model.League, now time.Time) error {
	if league == nil {
		return ErrNoLeague
	}
	if now.Before(league.Start) {
		return ErrNotStarted
	}
	if !now.Before(league.End) {
		return ErrEnded
	}
	return nil
}
