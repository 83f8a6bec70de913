package tools

import (
	"context"
	"fmt"
	"time"
)

// BookAppointmentTool books a service slot for the conversation's
// customer. A successful booking completes the conversation's business
// flow.
type BookAppointmentTool struct {
	sched Scheduler
}

// NewBookAppointmentTool creates the book_appointment tool.
func NewBookAppointmentTool(sched Scheduler) *BookAppointmentTool {
	return &BookAppointmentTool{sched: sched}
}

func (t *BookAppointmentTool) Name() string { return "book_appointment" }

func (t *BookAppointmentTool) Description() string {
	return "Book an appointment for a service at a given date and start time. Confirm the slot is free first."
}

func (t *BookAppointmentTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"service_id": map[string]any{"type": "string", "description": "ID of the service to book"},
			"date":       map[string]any{"type": "string", "description": "Date in YYYY-MM-DD form"},
			"time":       map[string]any{"type": "string", "description": "Start time in HH:MM form"},
		},
		"required": []string{"service_id", "date", "time"},
	}
}

// Finalizes reports that a successful booking ends the conversation.
func (t *BookAppointmentTool) Finalizes() bool { return true }

func (t *BookAppointmentTool) Execute(ctx context.Context, args map[string]any, exec ExecContext) (any, error) {
	serviceID, err := argString(args, "service_id")
	if err != nil {
		return nil, err
	}
	day, err := argDay(args, "date")
	if err != nil {
		return nil, err
	}
	startStr, err := argString(args, "time")
	if err != nil {
		return nil, err
	}
	start, err := time.Parse("15:04", startStr)
	if err != nil {
		return nil, fmt.Errorf("argument \"time\" must be a start time in HH:MM form")
	}

	startsAt := time.Date(day.Year(), day.Month(), day.Day(), start.Hour(), start.Minute(), 0, 0, time.UTC)
	appt, err := t.sched.Book(ctx, exec.TenantID, exec.CustomerID, serviceID, startsAt)
	if err != nil {
		return nil, err
	}
	return map[string]any{"appointment": appt}, nil
}

// CancelAppointmentTool cancels one of the customer's appointments.
type CancelAppointmentTool struct {
	sched Scheduler
}

// NewCancelAppointmentTool creates the cancel_appointment tool.
func NewCancelAppointmentTool(sched Scheduler) *CancelAppointmentTool {
	return &CancelAppointmentTool{sched: sched}
}

func (t *CancelAppointmentTool) Name() string { return "cancel_appointment" }

func (t *CancelAppointmentTool) Description() string {
	return "Cancel one of the customer's existing appointments by its ID."
}

func (t *CancelAppointmentTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"appointment_id": map[string]any{"type": "string", "description": "ID of the appointment to cancel"},
		},
		"required": []string{"appointment_id"},
	}
}

func (t *CancelAppointmentTool) Execute(ctx context.Context, args map[string]any, exec ExecContext) (any, error) {
	apptID, err := argString(args, "appointment_id")
	if err != nil {
		return nil, err
	}
	if err := t.sched.Cancel(ctx, exec.TenantID, exec.CustomerID, apptID); err != nil {
		return nil, err
	}
	return map[string]any{"cancelled": apptID}, nil
}
