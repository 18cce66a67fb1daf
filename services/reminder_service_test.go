package services

import (
	"errors"
	"testing"
	"time"

	"barbershop-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	to, from, body string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (s *fakeSender) Send(to, from, body string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, sentMessage{to: to, from: from, body: body})
	return "SM123", nil
}

func (f *fixture) reminders(sender *fakeSender, whatsApp string) *ReminderService {
	opts := ReminderOptions{
		Schedule:       "*/15 * * * *",
		Lead:           48 * time.Hour,
		SMSNumber:      "+15005550006",
		WhatsAppNumber: whatsApp,
	}
	return NewReminderService(f.repo, sender, opts, f.settings, f.clock, f.logger)
}

func TestSendUpcomingReminders(t *testing.T) {
	f := newFixture(t)
	due := f.appointment(f.at(tuesday, "10:00"))
	f.appointment(f.at(thursday, "10:00"))
	f.appointment(f.at(tuesday, "11:00"), func(a *models.Appointment) { a.Status = models.StatusCancelled })
	sender := &fakeSender{}
	svc := f.reminders(sender, "+14155238886")

	sent, err := svc.SendUpcomingReminders(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "whatsapp:+5511912345678", msg.to)
	assert.Equal(t, "whatsapp:+14155238886", msg.from)
	assert.Contains(t, msg.body, "Olá Carlos")
	assert.Contains(t, msg.body, "10/06 às 10:00")
	assert.Contains(t, msg.body, "(Corte com João)")
	assert.Contains(t, msg.body, "4 horas")

	assert.NotNil(t, f.get(due.ID).ReminderSentAt)
	logs := f.repo.ReminderLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "whatsapp", logs[0].Channel)
	assert.Equal(t, "sent", logs[0].Status)

	// second run finds nothing new
	sent, err = svc.SendUpcomingReminders(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, sender.sent, 1)
}

func TestSendUpcomingReminders_SMSWithoutWhatsApp(t *testing.T) {
	f := newFixture(t)
	f.appointment(f.at(tuesday, "10:00"))
	sender := &fakeSender{}

	_, err := f.reminders(sender, "").SendUpcomingReminders(f.ctx)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "+5511912345678", sender.sent[0].to)
	assert.Equal(t, "+15005550006", sender.sent[0].from)
}

func TestSendUpcomingReminders_FailureIsLoggedAndRetried(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"))
	sender := &fakeSender{err: errors.New("21211 invalid 'To' number")}
	svc := f.reminders(sender, "")

	sent, err := svc.SendUpcomingReminders(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Nil(t, f.get(appt.ID).ReminderSentAt)

	logs, err := f.repo.ListReminderLogs(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "failed", logs[0].Status)
	assert.Contains(t, logs[0].ErrorMessage, "invalid")

	sender.err = nil
	sent, err = svc.SendUpcomingReminders(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestSendUpcomingReminders_SkipsInvalidPhone(t *testing.T) {
	f := newFixture(t)
	client := f.client
	client.Phone = "abc"
	f.repo.PutProfile(client)
	f.appointment(f.at(tuesday, "10:00"))
	sender := &fakeSender{}

	sent, err := f.reminders(sender, "").SendUpcomingReminders(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, sender.sent)
}

func TestReminderService_DisabledWithoutSender(t *testing.T) {
	f := newFixture(t)
	svc := NewReminderService(f.repo, nil, ReminderOptions{Schedule: "*/15 * * * *"}, f.settings, f.clock, f.logger)
	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.StartScheduler())
	svc.Stop()
}
