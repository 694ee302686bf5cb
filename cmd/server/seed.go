package main

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frodan/league-exchange/internal/directory"
	"github.com/frodan/league-exchange/internal/handle"
	"github.com/frodan/league-exchange/internal/model"
	"github.com/frodan/league-exchange/internal/store"
)

// seedDemo fills the in-memory backends with one open league, one member
// (user "demo"), and a few players so the API can be exercised locally.
func seedDemo(ctx context.Context, ms *store.MemoryStore, dir *directory.Memory, now time.Time) error {
	league := model.League{
		ID:    "demo-league",
		Name:  "Demo League",
		Start: now.Add(-24 * time.Hour),
		End:   now.Add(30 * 24 * time.Hour),
	}
	dir.AddLeague(league)
	dir.AddMembership("demo-membership", "demo", league.ID)

	if err := ms.PutMembership(ctx, &model.Membership{
		ID:       "demo-membership",
		UserID:   "demo",
		LeagueID: league.ID,
		Balance:  decimal.NewFromInt(1000),
	}); err != nil {
		return err
	}

	players := []struct {
		source model.PlayerSource
		id     string
		handle string
		points int64
	}{
		{model.SourcePrimary, "1", "Faker#KR1", 1450},
		{model.SourcePrimary, "2", "Caps#EUW", 1210},
		{model.SourcePrimary, "3", "Doublelift#NA1", 880},
		{model.SourceAlternate, "1", "Nonna#EUW", 320},
	}
	for _, p := range players {
		h, err := handle.Parse(p.handle)
		if err != nil {
			return err
		}
		id := dir.AddPlayer(p.source, p.id, h)
		dir.AddMetric(id, decimal.NewFromInt(p.points), now.Add(-time.Hour))
	}
	return nil
}
