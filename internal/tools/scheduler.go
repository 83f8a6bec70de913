package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/tidybook/tidybook/internal/domain"
)

// Appointment is a booked slot returned by the scheduling boundary.
type Appointment struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	CustomerID string    `json:"customerId"`
	ServiceID  string    `json:"serviceId"`
	StartsAt   time.Time `json:"startsAt"`
	Status     string    `json:"status"`
}

// Scheduler is the booking boundary the business tools call into. State
// lives behind it; the tools themselves hold none.
type Scheduler interface {
	ListServices(ctx context.Context, tenantID string) ([]domain.ServiceInfo, error)
	AvailableSlots(ctx context.Context, tenantID, serviceID string, day time.Time) ([]string, error)
	Book(ctx context.Context, tenantID, customerID, serviceID string, startsAt time.Time) (*Appointment, error)
	Cancel(ctx context.Context, tenantID, customerID, appointmentID string) error
}

// argString extracts a required string argument.
func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}

// argDay parses a required YYYY-MM-DD argument.
func argDay(args map[string]any, key string) (time.Time, error) {
	s, err := argString(args, key)
	if err != nil {
		return time.Time{}, err
	}
	day, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("argument %q must be a date in YYYY-MM-DD form", key)
	}
	return day, nil
}
