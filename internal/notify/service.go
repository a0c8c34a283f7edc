package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/studyvisa-ai-platform/internal/leads"
	"github.com/wolfman30/studyvisa-ai-platform/internal/students"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

// LeadNotifier emails staff when a student selects a destination country.
type LeadNotifier struct {
	email  EmailSender
	to     string
	logger *logging.Logger
}

// NewLeadNotifier returns a notifier that does nothing when to is empty.
func NewLeadNotifier(email EmailSender, to string, logger *logging.Logger) *LeadNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	return &LeadNotifier{
		email:  email,
		to:     strings.TrimSpace(to),
		logger: logger,
	}
}

// NotifyNewLead is best effort: errors are logged, not returned.
func (n *LeadNotifier) NotifyNewLead(ctx context.Context, app leads.Application, student students.Student) {
	if n == nil || n.to == "" {
		return
	}

	name := strings.TrimSpace(student.Name)
	if name == "" {
		name = "A new student"
	}
	channel := student.Channel
	if channel == "" {
		channel = "chat"
	}

	subject := fmt.Sprintf("New %s lead: %s", app.Country, name)
	body := fmt.Sprintf(
		"%s selected %s on %s.\n\nContact: %s\nLead ID: %d\nStatus: %s\nReceived: %s\n\nOpen the dashboard to follow up.",
		name, app.Country, channel,
		student.ExternalID,
		app.ID,
		app.Status,
		app.CreatedAt.Format("January 2, 2006 at 3:04 PM"),
	)

	if err := n.email.Send(ctx, EmailMessage{To: n.to, Subject: subject, Body: body}); err != nil {
		n.logger.Error("notify: new lead email failed", "error", err, "lead_id", app.ID, "student_id", student.ID)
		return
	}
	n.logger.Info("notify: new lead email sent", "lead_id", app.ID, "student_id", student.ID)
}
