package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tidybook/tidybook/internal/domain"
)

// ErrTenantNotFound is returned when a tenant ID does not exist.
var ErrTenantNotFound = errors.New("tenant not found")

// Directory resolves tenants and customers for new conversations.
type Directory struct {
	db *DB
}

// NewDirectory creates a directory backed by db.
func NewDirectory(db *DB) *Directory {
	return &Directory{db: db}
}

// FindTenant loads a tenant with its services and opening hours.
func (d *Directory) FindTenant(ctx context.Context, tenantID string) (*domain.TenantSnapshot, error) {
	snap := &domain.TenantSnapshot{ID: tenantID}
	err := d.db.sql.QueryRowContext(ctx,
		"SELECT name FROM tenants WHERE id = ?", tenantID,
	).Scan(&snap.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading tenant: %w", err)
	}

	rows, err := d.db.sql.QueryContext(ctx,
		"SELECT id, name, price, duration_minutes FROM services WHERE tenant_id = ? ORDER BY name",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading services: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s domain.ServiceInfo
		if err := rows.Scan(&s.ID, &s.Name, &s.Price, &s.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scanning service: %w", err)
		}
		snap.Services = append(snap.Services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating services: %w", err)
	}

	hrows, err := d.db.sql.QueryContext(ctx,
		"SELECT weekday, open_time, close_time FROM opening_hours WHERE tenant_id = ? ORDER BY weekday",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading opening hours: %w", err)
	}
	defer hrows.Close()
	for hrows.Next() {
		var weekday int
		var h domain.OpeningHours
		if err := hrows.Scan(&weekday, &h.Open, &h.Close); err != nil {
			return nil, fmt.Errorf("scanning opening hours: %w", err)
		}
		h.Weekday = time.Weekday(weekday)
		snap.Hours = append(snap.Hours, h)
	}
	if err := hrows.Err(); err != nil {
		return nil, fmt.Errorf("iterating opening hours: %w", err)
	}

	return snap, nil
}

// FindOrCreateCustomer looks a customer up by phone, creating the
// record on first contact. A known customer's stored name wins over an
// empty incoming one.
func (d *Directory) FindOrCreateCustomer(ctx context.Context, phone, name string) (*domain.CustomerSnapshot, error) {
	cust := &domain.CustomerSnapshot{Phone: phone}
	err := d.db.sql.QueryRowContext(ctx,
		"SELECT id, name FROM customers WHERE phone = ?", phone,
	).Scan(&cust.ID, &cust.Name)
	if err == nil {
		if name != "" && name != cust.Name {
			if _, err := d.db.sql.ExecContext(ctx,
				"UPDATE customers SET name = ? WHERE id = ?", name, cust.ID,
			); err != nil {
				return nil, fmt.Errorf("updating customer name: %w", err)
			}
			cust.Name = name
		}
		return cust, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("looking up customer: %w", err)
	}

	cust.ID = uuid.NewString()
	cust.Name = name
	if _, err := d.db.sql.ExecContext(ctx,
		"INSERT INTO customers (id, phone, name) VALUES (?, ?, ?)",
		cust.ID, phone, name,
	); err != nil {
		return nil, fmt.Errorf("creating customer: %w", err)
	}
	return cust, nil
}

// EnsureLink records that a customer has contacted a tenant. Repeat
// calls are no-ops.
func (d *Directory) EnsureLink(ctx context.Context, tenantID, customerID string) error {
	if _, err := d.db.sql.ExecContext(ctx,
		"INSERT OR IGNORE INTO tenant_customers (tenant_id, customer_id) VALUES (?, ?)",
		tenantID, customerID,
	); err != nil {
		return fmt.Errorf("linking customer to tenant: %w", err)
	}
	return nil
}
