package directory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/frodan/league-exchange/internal/db"
	"github.com/frodan/league-exchange/internal/handle"
	"github.com/frodan/league-exchange/internal/model"
)

// GormDirectory implements Players and Leagues over the relational schema.
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(gdb *gorm.DB) *GormDirectory {
	return &GormDirectory{db: gdb}
}

// playerTables maps each source to its table. Both tables share a shape, so
// one query path serves every source.
var playerTables = map[model.PlayerSource]string{
	model.SourcePrimary:   db.PlayerRow{}.TableName(),
	model.SourceAlternate: db.AlternatePlayerRow{}.TableName(),
}

func (g *GormDirectory) Resolve(ctx context.Context, h handle.Handle) (*Player, error) {
	for _, src := range Sources {
		var row db.PlayerRow
		err := g.db.WithContext(ctx).
			Table(playerTables[src]).
			Where("game_name = ? AND tag_line = ?", h.GameName, h.TagLine).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup %s in %s: %w", h, src, err)
		}
		return g.withLatest(ctx, model.PlayerIdentity{ID: row.ID, Source: src, GameName: row.GameName, TagLine: row.TagLine})
	}
	return nil, fmt.Errorf("%s: %w", h, ErrPlayerNotFound)
}

func (g *GormDirectory) Lookup(ctx context.Context, source model.PlayerSource, id string) (*Player, error) {
	table, ok := playerTables[source]
	if !ok {
		return nil, fmt.Errorf("%s:%s: %w", source, id, ErrPlayerNotFound)
	}
	var row db.PlayerRow
	err := g.db.WithContext(ctx).Table(table).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s:%s: %w", source, id, ErrPlayerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s:%s: %w", source, id, err)
	}
	return g.withLatest(ctx, model.PlayerIdentity{ID: row.ID, Source: source, GameName: row.GameName, TagLine: row.TagLine})
}

func (g *GormDirectory) withLatest(ctx context.Context, p model.PlayerIdentity) (*Player, error) {
	var metric db.PlayerMetricRow
	err := g.db.WithContext(ctx).
		Where("source = ? AND player_id = ?", string(p.Source), p.ID).
		Order("date DESC").
		Take(&metric).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s#%s: %w", p.GameName, p.TagLine, ErrNoMetric)
	}
	if err != nil {
		return nil, fmt.Errorf("latest metric for %s: %w", p.Key(), err)
	}
	return &Player{
		Identity: p,
		Latest:   model.Metric{PlayerID: p.ID, LeaguePoints: metric.LeaguePoints, Date: metric.Date},
	}, nil
}

func (g *GormDirectory) CurrentMembership(ctx context.Context, userID string) (string, error) {
	var m db.MembershipRow
	err := g.db.WithContext(ctx).
		Joins("JOIN users ON users.current_league_id = memberships.league_id AND users.id = memberships.user_id").
		Where("users.id = ?", userID).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("user %s: %w", userID, ErrNoMembership)
	}
	if err != nil {
		return "", fmt.Errorf("current membership of %s: %w", userID, err)
	}
	return m.ID, nil
}

func (g *GormDirectory) LeagueForMembership(ctx context.Context, membershipID string) (*model.League, error) {
	var l db.LeagueRow
	err := g.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.league_id = leagues.id").
		Where("memberships.id = ?", membershipID).
		Take(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("membership %s: %w", membershipID, ErrNoLeague)
	}
	if err != nil {
		return nil, fmt.Errorf("league of membership %s: %w", membershipID, err)
	}
	return &model.League{ID: l.ID, Name: l.Name, Start: l.StartDate, End: l.EndDate}, nil
}
