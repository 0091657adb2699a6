package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

// BookingNotifier emails the clinic every appointment booked by the assistant.
type BookingNotifier struct {
	email     EmailSender
	recipient string
	logger    *logging.Logger
}

func NewBookingNotifier(email EmailSender, recipient string, logger *logging.Logger) *BookingNotifier {
	if email == nil {
		panic("notify: email sender cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingNotifier{email: email, recipient: strings.TrimSpace(recipient), logger: logger}
}

var _ scheduling.BookingRecorder = (*BookingNotifier)(nil)

func (n *BookingNotifier) RecordBooking(ctx context.Context, b scheduling.CommittedBooking) error {
	if n.recipient == "" {
		n.logger.Debug("notify: no clinic recipient configured, skipping booking email")
		return nil
	}
	return n.email.Send(ctx, bookingEmail(n.recipient, b))
}

func bookingEmail(to string, b scheduling.CommittedBooking) EmailMessage {
	date := b.Date
	if t, err := time.Parse("2006-01-02", b.Date); err == nil {
		date = t.Format("02/01/2006")
	}

	lines := [][2]string{
		{"Paciente", b.PatientName},
		{"Contato", b.Contact},
		{"Especialidade", b.SpecialtyName},
		{"Profissional", b.ProfessionalName},
		{"Data", date},
		{"Horário", fmt.Sprintf("%s às %s", b.Start, b.End)},
		{"Protocolo", b.AppointmentID},
	}

	var text, rows strings.Builder
	text.WriteString("Novo agendamento realizado pelo assistente virtual.\n\n")
	for _, l := range lines {
		fmt.Fprintf(&text, "%s: %s\n", l[0], l[1])
		fmt.Fprintf(&rows, "<tr><th align=\"left\">%s</th><td>%s</td></tr>", html.EscapeString(l[0]), html.EscapeString(l[1]))
	}

	return EmailMessage{
		To:       to,
		Subject:  fmt.Sprintf("Novo agendamento: %s em %s às %s", b.PatientName, date, b.Start),
		Body:     text.String(),
		HTML:     "<p>Novo agendamento realizado pelo assistente virtual.</p><table>" + rows.String() + "</table>",
		Category: "booking",
	}
}
