// Package domain holds the core data model shared across the assistant engine.
package domain

import "time"

// Message roles.
const (
	RoleUser       = "user"
	RoleAssistant  = "assistant"
	RoleSystem     = "system"
	RoleToolResult = "tool_result"
)

// ServiceInfo is a bookable service offered by a tenant.
type ServiceInfo struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"durationMinutes"`
}

// OpeningHours is one row of a tenant's weekly operating-hours table.
// Open and Close are local wall-clock times in "15:04" form.
type OpeningHours struct {
	Weekday time.Weekday `json:"weekday"`
	Open    string       `json:"open"`
	Close   string       `json:"close"`
}

// TenantSnapshot is the tenant data denormalized onto a conversation
// when it is created.
type TenantSnapshot struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Services []ServiceInfo  `json:"services,omitempty"`
	Hours    []OpeningHours `json:"hours,omitempty"`
}

// CustomerSnapshot identifies the customer side of a conversation.
type CustomerSnapshot struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}

// Conversation is the cached state of one ongoing exchange between a
// tenant and a customer. Messages is append-only for the lifetime of
// the conversation.
type Conversation struct {
	ID        string           `json:"id"`
	Tenant    TenantSnapshot   `json:"tenant"`
	Customer  CustomerSnapshot `json:"customer"`
	Messages  []Message        `json:"messages,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}
