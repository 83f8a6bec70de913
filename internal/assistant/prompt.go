package assistant

import (
	"fmt"
	"strings"

	"github.com/tidybook/tidybook/internal/domain"
)

// BuildInstructions renders the system instructions for a conversation
// from the tenant snapshot captured when it was created.
func BuildInstructions(conv *domain.Conversation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are the virtual receptionist for %s.\n", conv.Tenant.Name)
	b.WriteString("You help customers over chat with questions about services, checking availability, booking appointments, and cancelling them.\n\n")

	if len(conv.Tenant.Services) > 0 {
		b.WriteString("Services offered:\n")
		for _, svc := range conv.Tenant.Services {
			fmt.Fprintf(&b, "- %s: %.2f, %d minutes (id: %s)\n", svc.Name, svc.Price, svc.DurationMinutes, svc.ID)
		}
		b.WriteString("\n")
	}

	if len(conv.Tenant.Hours) > 0 {
		b.WriteString("Opening hours:\n")
		for _, h := range conv.Tenant.Hours {
			fmt.Fprintf(&b, "- %s: %s to %s\n", h.Weekday, h.Open, h.Close)
		}
		b.WriteString("\n")
	}

	if conv.Customer.Name != "" {
		fmt.Fprintf(&b, "You are talking to %s.\n\n", conv.Customer.Name)
	}

	b.WriteString("Guidelines:\n")
	b.WriteString("- Use the available tools to answer questions about services, availability, and bookings. Never invent slots or prices.\n")
	b.WriteString("- Check availability before booking, and confirm the service, date, and time with the customer before calling book_appointment.\n")
	b.WriteString("- Dates are YYYY-MM-DD and times are 24-hour HH:MM.\n")
	b.WriteString("- Be brief and friendly. Answer in the customer's language.\n")
	b.WriteString("- If a tool reports an error, explain the problem plainly and suggest an alternative.\n")

	return b.String()
}
