package db

import (
	"time"

	"github.com/shopspring/decimal"
)

// Row types mirror the tables read by store.PostgresStore and
// directory.GormDirectory. Column names must stay in sync with the raw SQL
// in the store.
//
// Money and share columns are unconstrained NUMERIC: products of share and
// price scales are stored exactly, never rounded by the column.

type LeagueRow struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Name      string    `gorm:"type:varchar(128);not null"`
	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null"`
}

func (LeagueRow) TableName() string { return "leagues" }

type UserRow struct {
	ID              string  `gorm:"primaryKey;type:varchar(64)"`
	Username        string  `gorm:"type:varchar(64);uniqueIndex;not null"`
	CurrentLeagueID *string `gorm:"type:varchar(64)"`
}

func (UserRow) TableName() string { return "users" }

type MembershipRow struct {
	ID          string          `gorm:"primaryKey;type:varchar(64)"`
	UserID      string          `gorm:"type:varchar(64);not null;uniqueIndex:uq_membership_user_league"`
	LeagueID    string          `gorm:"type:varchar(64);not null;uniqueIndex:uq_membership_user_league"`
	PortfolioID *string         `gorm:"type:varchar(64)"`
	Balance     decimal.Decimal `gorm:"type:numeric;not null;default:0;check:chk_membership_balance,balance >= 0"`
}

func (MembershipRow) TableName() string { return "memberships" }

type PortfolioRow struct {
	ID           string          `gorm:"primaryKey;type:varchar(64)"`
	MembershipID string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	CurrentValue decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	CreatedAt    time.Time       `gorm:"not null"`
}

func (PortfolioRow) TableName() string { return "portfolios" }

type HoldingRow struct {
	PortfolioID string          `gorm:"primaryKey;type:varchar(64)"`
	PlayerID    string          `gorm:"primaryKey;type:varchar(96)"`
	Shares      decimal.Decimal `gorm:"type:numeric;not null;check:chk_holding_shares,shares > 0"`
	AvgCost     decimal.Decimal `gorm:"type:numeric;not null"`
	CostBasis   decimal.Decimal `gorm:"type:numeric;not null;default:0"`
}

func (HoldingRow) TableName() string { return "holdings" }

type HoldRow struct {
	ID          string          `gorm:"primaryKey;type:varchar(64)"`
	PortfolioID string          `gorm:"type:varchar(64);not null;index:idx_holds_lookup,priority:1"`
	PlayerID    string          `gorm:"type:varchar(96);not null;index:idx_holds_lookup,priority:2"`
	Shares      decimal.Decimal `gorm:"type:numeric;not null"`
	Deadline    time.Time       `gorm:"not null;index:idx_holds_lookup,priority:3"`
}

func (HoldRow) TableName() string { return "holds" }

// TransactionRow is append-only. Seq breaks ties between equal timestamps.
type TransactionRow struct {
	ID          string          `gorm:"primaryKey;type:varchar(64)"`
	Seq         int64           `gorm:"autoIncrement;not null"`
	PortfolioID string          `gorm:"type:varchar(64);not null;index:idx_tx_portfolio_time,priority:1"`
	Type        string          `gorm:"type:varchar(8);not null"`
	PlayerID    string          `gorm:"type:varchar(96);not null"`
	Shares      decimal.Decimal `gorm:"type:numeric;not null"`
	Price       decimal.Decimal `gorm:"type:numeric;not null"`
	Timestamp   time.Time       `gorm:"not null;index:idx_tx_portfolio_time,priority:2"`
}

func (TransactionRow) TableName() string { return "transactions" }

// PlayerRow is the primary player table.
type PlayerRow struct {
	ID       string `gorm:"primaryKey;type:varchar(64)"`
	GameName string `gorm:"type:varchar(32);not null;uniqueIndex:uq_player_handle"`
	TagLine  string `gorm:"type:varchar(8);not null;uniqueIndex:uq_player_handle"`
}

func (PlayerRow) TableName() string { return "players" }

// AlternatePlayerRow is the regional player table consulted when the
// primary table has no match.
type AlternatePlayerRow struct {
	ID       string `gorm:"primaryKey;type:varchar(64)"`
	GameName string `gorm:"type:varchar(32);not null;uniqueIndex:uq_alt_player_handle"`
	TagLine  string `gorm:"type:varchar(8);not null;uniqueIndex:uq_alt_player_handle"`
}

func (AlternatePlayerRow) TableName() string { return "alternate_players" }

// PlayerMetricRow is one league-points sample.
type PlayerMetricRow struct {
	ID           uint            `gorm:"primaryKey"`
	Source       string          `gorm:"type:varchar(16);not null;index:idx_metric_player,priority:1"`
	PlayerID     string          `gorm:"type:varchar(64);not null;index:idx_metric_player,priority:2"`
	LeaguePoints decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Date         time.Time       `gorm:"not null;index:idx_metric_player,priority:3"`
}

func (PlayerMetricRow) TableName() string { return "player_metrics" }
