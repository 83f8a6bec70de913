package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tidybook/tidybook/internal/domain"
	"github.com/tidybook/tidybook/internal/tools"
)

// Scheduling errors surfaced to the model through tool results.
var (
	ErrServiceNotFound     = errors.New("service not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("slot is no longer available")
	ErrOutsideHours        = errors.New("requested time is outside opening hours")
)

const timeLayout = time.RFC3339

// Scheduler implements the booking boundary on top of SQLite.
type Scheduler struct {
	db  *DB
	now func() time.Time
}

// NewScheduler creates a scheduler backed by db.
func NewScheduler(db *DB) *Scheduler {
	return &Scheduler{db: db, now: time.Now}
}

// ListServices returns the tenant's services sorted by name.
func (s *Scheduler) ListServices(ctx context.Context, tenantID string) ([]domain.ServiceInfo, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		"SELECT id, name, price, duration_minutes FROM services WHERE tenant_id = ? ORDER BY name",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	defer rows.Close()

	var services []domain.ServiceInfo
	for rows.Next() {
		var svc domain.ServiceInfo
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Price, &svc.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scanning service: %w", err)
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

// AvailableSlots returns the free start times for a service on a day,
// stepped by the service duration within the tenant's opening hours.
func (s *Scheduler) AvailableSlots(ctx context.Context, tenantID, serviceID string, day time.Time) ([]string, error) {
	duration, err := s.serviceDuration(ctx, tenantID, serviceID)
	if err != nil {
		return nil, err
	}

	var openStr, closeStr string
	err = s.db.sql.QueryRowContext(ctx,
		"SELECT open_time, close_time FROM opening_hours WHERE tenant_id = ? AND weekday = ?",
		tenantID, int(day.Weekday()),
	).Scan(&openStr, &closeStr)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, nil // closed that day
	}
	if err != nil {
		return nil, fmt.Errorf("loading opening hours: %w", err)
	}

	open, err := atTime(day, openStr)
	if err != nil {
		return nil, err
	}
	close, err := atTime(day, closeStr)
	if err != nil {
		return nil, err
	}

	booked, err := s.bookedRanges(ctx, tenantID, day)
	if err != nil {
		return nil, err
	}

	var slots []string
	for start := open; !start.Add(duration).After(close); start = start.Add(duration) {
		end := start.Add(duration)
		if overlapsAny(start, end, booked) {
			continue
		}
		slots = append(slots, start.Format("15:04"))
	}
	if slots == nil {
		slots = []string{}
	}
	return slots, nil
}

// Book creates a confirmed appointment after checking the slot is still
// free and inside opening hours.
func (s *Scheduler) Book(ctx context.Context, tenantID, customerID, serviceID string, startsAt time.Time) (*tools.Appointment, error) {
	duration, err := s.serviceDuration(ctx, tenantID, serviceID)
	if err != nil {
		return nil, err
	}
	endsAt := startsAt.Add(duration)

	var openStr, closeStr string
	err = s.db.sql.QueryRowContext(ctx,
		"SELECT open_time, close_time FROM opening_hours WHERE tenant_id = ? AND weekday = ?",
		tenantID, int(startsAt.Weekday()),
	).Scan(&openStr, &closeStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOutsideHours
	}
	if err != nil {
		return nil, fmt.Errorf("loading opening hours: %w", err)
	}
	open, err := atTime(startsAt, openStr)
	if err != nil {
		return nil, err
	}
	close, err := atTime(startsAt, closeStr)
	if err != nil {
		return nil, err
	}
	if startsAt.Before(open) || endsAt.After(close) {
		return nil, ErrOutsideHours
	}

	booked, err := s.bookedRanges(ctx, tenantID, startsAt)
	if err != nil {
		return nil, err
	}
	if overlapsAny(startsAt, endsAt, booked) {
		return nil, ErrSlotTaken
	}

	appt := &tools.Appointment{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		CustomerID: customerID,
		ServiceID:  serviceID,
		StartsAt:   startsAt,
		Status:     "confirmed",
	}
	if _, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO appointments (id, tenant_id, customer_id, service_id, starts_at, ends_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		appt.ID, tenantID, customerID, serviceID,
		startsAt.Format(timeLayout), endsAt.Format(timeLayout), appt.Status,
	); err != nil {
		return nil, fmt.Errorf("inserting appointment: %w", err)
	}
	return appt, nil
}

// Cancel marks one of the customer's appointments cancelled.
func (s *Scheduler) Cancel(ctx context.Context, tenantID, customerID, appointmentID string) error {
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE appointments SET status = 'cancelled'
		 WHERE id = ? AND tenant_id = ? AND customer_id = ? AND status = 'confirmed'`,
		appointmentID, tenantID, customerID,
	)
	if err != nil {
		return fmt.Errorf("cancelling appointment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancelling appointment: %w", err)
	}
	if n == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (s *Scheduler) serviceDuration(ctx context.Context, tenantID, serviceID string) (time.Duration, error) {
	var minutes int
	err := s.db.sql.QueryRowContext(ctx,
		"SELECT duration_minutes FROM services WHERE id = ? AND tenant_id = ?",
		serviceID, tenantID,
	).Scan(&minutes)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrServiceNotFound, serviceID)
	}
	if err != nil {
		return 0, fmt.Errorf("loading service: %w", err)
	}
	return time.Duration(minutes) * time.Minute, nil
}

// bookedRanges returns the confirmed appointment windows for a day.
func (s *Scheduler) bookedRanges(ctx context.Context, tenantID string, day time.Time) ([][2]time.Time, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT starts_at, ends_at FROM appointments
		 WHERE tenant_id = ? AND status = 'confirmed' AND starts_at >= ? AND starts_at < ?`,
		tenantID, dayStart.Format(timeLayout), dayEnd.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("loading appointments: %w", err)
	}
	defer rows.Close()

	var ranges [][2]time.Time
	for rows.Next() {
		var startStr, endStr string
		if err := rows.Scan(&startStr, &endStr); err != nil {
			return nil, fmt.Errorf("scanning appointment: %w", err)
		}
		start, err := time.Parse(timeLayout, startStr)
		if err != nil {
			return nil, fmt.Errorf("parsing appointment start: %w", err)
		}
		end, err := time.Parse(timeLayout, endStr)
		if err != nil {
			return nil, fmt.Errorf("parsing appointment end: %w", err)
		}
		ranges = append(ranges, [2]time.Time{start, end})
	}
	return ranges, rows.Err()
}

// atTime places an HH:MM clock reading on the given day in UTC.
func atTime(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing clock time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

func overlapsAny(start, end time.Time, ranges [][2]time.Time) bool {
	for _, r := range ranges {
		if start.Before(r[1]) && r[0].Before(end) {
			return true
		}
	}
	return false
}
