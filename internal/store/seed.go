package store

import (
	"context"
	"fmt"
)

// Seed loads a demo tenant with services and opening hours so the
// server is usable straight after first start. Seeding twice is a
// no-op.
func Seed(ctx context.Context, db *DB) error {
	var count int
	if err := db.sql.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tenants WHERE id = ?", "salon-a",
	).Scan(&count); err != nil {
		return fmt.Errorf("checking seed state: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO tenants (id, name) VALUES (?, ?)", "salon-a", "Salon A",
	); err != nil {
		return fmt.Errorf("seeding tenant: %w", err)
	}

	services := []struct {
		id       string
		name     string
		price    float64
		duration int
	}{
		{"svc-haircut", "Haircut", 50, 30},
		{"svc-coloring", "Coloring", 120, 90},
		{"svc-beard-trim", "Beard Trim", 25, 15},
	}
	for _, svc := range services {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO services (id, tenant_id, name, price, duration_minutes) VALUES (?, ?, ?, ?, ?)",
			svc.id, "salon-a", svc.name, svc.price, svc.duration,
		); err != nil {
			return fmt.Errorf("seeding service %s: %w", svc.name, err)
		}
	}

	// Open Monday through Saturday.
	for weekday := 1; weekday <= 6; weekday++ {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO opening_hours (tenant_id, weekday, open_time, close_time) VALUES (?, ?, ?, ?)",
			"salon-a", weekday, "09:00", "18:00",
		); err != nil {
			return fmt.Errorf("seeding opening hours: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	db.log.Info().Str("tenant", "salon-a").Msg("seeded demo tenant")
	return nil
}
