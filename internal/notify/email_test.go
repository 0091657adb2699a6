package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

func TestMaskAddress(t *testing.T) {
	assert.Equal(t, "r***@clinica.com.br", maskAddress("recepcao@clinica.com.br"))
	assert.Equal(t, "***", maskAddress("sem-arroba"))
	assert.Equal(t, "***", maskAddress("@clinica.com.br"))
}

func TestIdentityDefaults(t *testing.T) {
	id := Identity{Email: " agenda@clinica.com.br "}.withDefaults()
	assert.Equal(t, "Agenda Health AI <agenda@clinica.com.br>", id.String())
}

func TestNewSendGridSender(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{From: Identity{Email: "a@b.c"}}, nil))

	sender := NewSendGridSender(SendGridConfig{APIKey: "SG.test", From: Identity{Email: "agenda@clinica.com.br", Name: "Clínica Centro"}}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, "Clínica Centro", sender.from.Name)
}

func TestBuildSendGridMail(t *testing.T) {
	m := buildSendGridMail(Identity{Email: "agenda@clinica.com.br", Name: "Agenda"}, EmailMessage{
		To:       "recepcao@clinica.com.br",
		Subject:  "Novo agendamento",
		Body:     "texto",
		Category: "booking",
	})
	assert.Equal(t, []string{"booking"}, m.Categories)
	assert.Equal(t, "agenda@clinica.com.br", m.From.Address)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "texto", m.Content[1].Value, "html falls back to the text body")
}

func TestNilSendersReportNotConfigured(t *testing.T) {
	var sg *SendGridSender
	assert.ErrorIs(t, sg.Send(context.Background(), EmailMessage{To: "a@b.c"}), ErrNotConfigured)

	var ses *SESSender
	assert.ErrorIs(t, ses.Send(context.Background(), EmailMessage{To: "a@b.c"}), ErrNotConfigured)
}

type stubSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (s *stubSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	s.input = params
	if s.err != nil {
		return nil, s.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSenderSend(t *testing.T) {
	api := &stubSES{}
	var logs bytes.Buffer
	sender := NewSESSender(api, SESConfig{
		From:             Identity{Email: "agenda@clinica.com.br"},
		ConfigurationSet: "agendamentos",
	}, logging.NewWithWriter(&logs, "info"))

	err := sender.Send(context.Background(), EmailMessage{
		To:       "recepcao@clinica.com.br",
		Subject:  "Olá",
		Body:     "texto",
		HTML:     "<p>html</p>",
		Category: "booking",
	})
	require.NoError(t, err)

	in := api.input
	assert.Equal(t, "Agenda Health AI <agenda@clinica.com.br>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, "agendamentos", aws.ToString(in.ConfigurationSetName))
	require.Len(t, in.EmailTags, 1)
	assert.Equal(t, "booking", aws.ToString(in.EmailTags[0].Value))
	assert.NotNil(t, in.Content.Simple.Body.Text)
	assert.NotNil(t, in.Content.Simple.Body.Html)
	assert.NotContains(t, logs.String(), "recepcao@")
}

func TestSESSenderOmitsOptionalFields(t *testing.T) {
	api := &stubSES{}
	sender := NewSESSender(api, SESConfig{From: Identity{Email: "a@b.c"}}, nil)

	require.NoError(t, sender.Send(context.Background(), EmailMessage{To: "x@y.z", Body: "só texto"}))
	assert.Nil(t, api.input.ConfigurationSetName)
	assert.Empty(t, api.input.EmailTags)
	assert.Nil(t, api.input.Content.Simple.Body.Html)
}

func TestSESSenderError(t *testing.T) {
	sender := NewSESSender(&stubSES{err: errors.New("throttled")}, SESConfig{From: Identity{Email: "a@b.c"}}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: "x@y.z"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestNewSESSenderNilClient(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))
}

type captureSender struct {
	sent []EmailMessage
}

func (c *captureSender) Send(ctx context.Context, msg EmailMessage) error {
	c.sent = append(c.sent, msg)
	return nil
}

func TestBookingNotifier(t *testing.T) {
	capture := &captureSender{}
	notifier := NewBookingNotifier(capture, "recepcao@clinica.com.br", nil)

	err := notifier.RecordBooking(context.Background(), scheduling.CommittedBooking{
		AppointmentID:    "AG-991",
		PatientName:      "Ana <Carolina> Silva",
		Contact:          "5511999990000",
		SpecialtyName:    "Cardiologia",
		ProfessionalName: "Dr. Paulo Mendes",
		Date:             "2025-05-02",
		Start:            "09:00",
		End:              "09:30",
	})
	require.NoError(t, err)
	require.Len(t, capture.sent, 1)

	msg := capture.sent[0]
	assert.Equal(t, "booking", msg.Category)
	assert.Contains(t, msg.Subject, "02/05/2025 às 09:00")
	assert.Contains(t, msg.Body, "Protocolo: AG-991")
	assert.NotContains(t, msg.HTML, "<Carolina>")
}

func TestBookingNotifierWithoutRecipient(t *testing.T) {
	capture := &captureSender{}
	err := NewBookingNotifier(capture, " ", nil).RecordBooking(context.Background(), scheduling.CommittedBooking{})
	require.NoError(t, err)
	assert.Empty(t, capture.sent)
}
