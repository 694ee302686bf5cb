package db

import "fmt"

// Tables lists every row type owned by this service, in creation order.
func Tables() []any {
	return []any{
		&LeagueRow{},
		&UserRow{},
		&MembershipRow{},
		&PortfolioRow{},
		&HoldingRow{},
		&HoldRow{},
		&TransactionRow{},
		&PlayerRow{},
		&AlternatePlayerRow{},
		&PlayerMetricRow{},
	}
}

// AutoMigrate creates or widens the schema.
func AutoMigrate(d *DB) error {
	if d == nil || d.Gorm == nil {
		return fmt.Errorf("automigrate: not connected")
	}
	if err := d.Gorm.AutoMigrate(Tables()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
