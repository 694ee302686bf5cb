// Package directory resolves the read-only reference data the engine trades
// against: players with their latest metric, and league memberships.
//
// This data is owned by other subsystems. The engine treats it as a
// consistent snapshot for the duration of one transaction and never writes it.
package directory

import (
	"context"
	"errors"

	"github.com/frodan/league-exchange/internal/handle"
	"github.com/frodan/league-exchange/internal/model"
)

var (
	ErrPlayerNotFound = errors.New("directory: player not found")
	ErrNoMetric       = errors.New("directory: no price data for player")
	ErrNoMembership   = errors.New("directory: user not associated with current league")
	ErrNoLeague       = errors.New("directory: membership has no league")
)

// Sources is the lookup order for player handles.
var Sources = []model.PlayerSource{model.SourcePrimary, model.SourceAlternate}

// Player is a resolved player and its most recent metric.
type Player struct {
	Identity model.PlayerIdentity
	Latest   model.Metric
}

// Players resolves handles.
type Players interface {
	// Resolve returns the player for h, trying each source in order.
	Resolve(ctx context.Context, h handle.Handle) (*Player, error)

	// Lookup returns the player stored under id in source.
	Lookup(ctx context.Context, source model.PlayerSource, id string) (*Player, error)
}

// Leagues resolves memberships and their league windows.
type Leagues interface {
	// CurrentMembership returns the membership id of userID in the user's
	// current league.
	CurrentMembership(ctx context.Context, userID string) (string, error)

	// LeagueForMembership returns the league the membership belongs to.
	LeagueForMembership(ctx context.Context, membershipID string) (*model.League, error)
}
