package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frodan/league-exchange/internal/handle"
	"github.com/frodan/league-exchange/internal/model"
)

var day = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func TestResolve_PrimaryBeforeAlternate(t *testing.T) {
	dir := NewMemory()
	h := handle.Handle{GameName: "Faker", TagLine: "KR1"}
	alt := dir.AddPlayer(model.SourceAlternate, "7", h)
	prim := dir.AddPlayer(model.SourcePrimary, "7", h)
	dir.AddMetric(alt, decimal.NewFromInt(100), day)
	dir.AddMetric(prim, decimal.NewFromInt(900), day)

	p, err := dir.Resolve(context.Background(), h)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Identity.Source != model.SourcePrimary {
		t.Errorf("source = %s, want primary", p.Identity.Source)
	}
	if !p.Latest.LeaguePoints.Equal(decimal.NewFromInt(900)) {
		t.Errorf("points = %s, want 900", p.Latest.LeaguePoints)
	}
}

func TestResolve_FallsBackToAlternate(t *testing.T) {
	dir := NewMemory()
	h := handle.Handle{GameName: "Nonna", TagLine: "EUW"}
	alt := dir.AddPlayer(model.SourceAlternate, "42", h)
	dir.AddMetric(alt, decimal.NewFromInt(50), day)

	p, err := dir.Resolve(context.Background(), h)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Identity.Key() != "alternate:42" {
		t.Errorf("key = %s", p.Identity.Key())
	}
}

func TestResolve_LatestMetricWins(t *testing.T) {
	dir := NewMemory()
	h := handle.Handle{GameName: "Caps", TagLine: "EUW"}
	p := dir.AddPlayer(model.SourcePrimary, "1", h)
	dir.AddMetric(p, decimal.NewFromInt(300), day.Add(48*time.Hour))
	dir.AddMetric(p, decimal.NewFromInt(100), day)
	dir.AddMetric(p, decimal.NewFromInt(200), day.Add(24*time.Hour))

	got, err := dir.Resolve(context.Background(), h)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !got.Latest.LeaguePoints.Equal(decimal.NewFromInt(300)) {
		t.Errorf("points = %s, want 300", got.Latest.LeaguePoints)
	}
}

func TestResolve_NotFound(t *testing.T) {
	dir := NewMemory()
	_, err := dir.Resolve(context.Background(), handle.Handle{GameName: "Ghost", TagLine: "NA1"})
	if !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestResolve_NoMetric(t *testing.T) {
	dir := NewMemory()
	h := handle.Handle{GameName: "Fresh", TagLine: "NA1"}
	dir.AddPlayer(model.SourcePrimary, "9", h)

	_, err := dir.Resolve(context.Background(), h)
	if !errors.Is(err, ErrNoMetric) {
		t.Errorf("expected ErrNoMetric, got %v", err)
	}
}

func TestMemberships(t *testing.T) {
	dir := NewMemory()
	dir.AddLeague(model.League{ID: "L1", Start: day, End: day.Add(30 * 24 * time.Hour)})
	dir.AddLeague(model.League{ID: "L2", Start: day, End: day.Add(60 * 24 * time.Hour)})
	dir.AddMembership("m1", "u1", "L1")
	dir.AddMembership("m2", "u1", "L2")

	id, err := dir.CurrentMembership(context.Background(), "u1")
	if err != nil {
		t.Fatalf("CurrentMembership: %v", err)
	}
	if id != "m2" {
		t.Errorf("current membership = %s, want m2", id)
	}

	l, err := dir.LeagueForMembership(context.Background(), "m1")
	if err != nil {
		t.Fatalf("LeagueForMembership: %v", err)
	}
	if l.ID != "L1" {
		t.Errorf("league = %s, want L1", l.ID)
	}

	if _, err := dir.CurrentMembership(context.Background(), "u2"); !errors.Is(err, ErrNoMembership) {
		t.Errorf("expected ErrNoMembership, got %v", err)
	}
	if _, err := dir.LeagueForMembership(context.Background(), "m9"); !errors.Is(err, ErrNoLeague) {
		t.Errorf("expected ErrNoLeague, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	dir := NewMemory()
	h := handle.Handle{GameName: "Nonna", TagLine: "EUW"}
	alt := dir.AddPlayer(model.SourceAlternate, "42", h)
	dir.AddMetric(alt, decimal.NewFromInt(50), day)

	p, err := dir.Lookup(context.Background(), model.SourceAlternate, "42")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.Identity.GameName != "Nonna" || p.Identity.TagLine != "EUW" {
		t.Errorf("identity = %+v", p.Identity)
	}
	if _, err := dir.Lookup(context.Background(), model.SourcePrimary, "42"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("expected ErrPlayerNotFound, got %v", err)
	}
}
