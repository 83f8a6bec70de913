package tools

import "context"

// ListServicesTool returns the tenant's offered services.
type ListServicesTool struct {
	sched Scheduler
}

// NewListServicesTool creates the list_services tool.
func NewListServicesTool(sched Scheduler) *ListServicesTool {
	return &ListServicesTool{sched: sched}
}

func (t *ListServicesTool) Name() string { return "list_services" }

func (t *ListServicesTool) Description() string {
	return "List the services this business offers, with price and duration in minutes."
}

func (t *ListServicesTool) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *ListServicesTool) Execute(ctx context.Context, args map[string]any, exec ExecContext) (any, error) {
	services, err := t.sched.ListServices(ctx, exec.TenantID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"services": services}, nil
}

// CheckAvailabilityTool returns free start times for a service on a day.
type CheckAvailabilityTool struct {
	sched Scheduler
}

// NewCheckAvailabilityTool creates the check_availability tool.
func NewCheckAvailabilityTool(sched Scheduler) *CheckAvailabilityTool {
	return &CheckAvailabilityTool{sched: sched}
}

func (t *CheckAvailabilityTool) Name() string { return "check_availability" }

func (t *CheckAvailabilityTool) Description() string {
	return "Check which start times are free for a service on a given date."
}

func (t *CheckAvailabilityTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"service_id": map[string]any{"type": "string", "description": "ID of the service to check"},
			"date":       map[string]any{"type": "string", "description": "Date in YYYY-MM-DD form"},
		},
		"required": []string{"service_id", "date"},
	}
}

func (t *CheckAvailabilityTool) Execute(ctx context.Context, args map[string]any, exec ExecContext) (any, error) {
	serviceID, err := argString(args, "service_id")
	if err != nil {
		return nil, err
	}
	day, err := argDay(args, "date")
	if err != nil {
		return nil, err
	}

	slots, err := t.sched.AvailableSlots(ctx, exec.TenantID, serviceID, day)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"date":  day.Format("2006-01-02"),
		"slots": slots,
	}, nil
}
