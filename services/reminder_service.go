// services/reminder_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"barbershop-backend/models"
	"barbershop-backend/repository"
	"barbershop-backend/utils"

	"github.com/robfig/cron/v3"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// MessageSender delivers a text message and returns the provider id.
type MessageSender interface {
	Send(to, from, body string) (string, error)
}

type TwilioSender struct {
	client *twilio.RestClient
}

func NewTwilioSender(accountSID, authToken string) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
	}
}

func (t *TwilioSender) Send(to, from, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return "", err
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}

type ReminderOptions struct {
	Schedule       string
	Lead           time.Duration
	SMSNumber      string
	WhatsAppNumber string
}

// ReminderService texts clients ahead of their appointments.
type ReminderService struct {
	repo     repository.Repository
	sender   MessageSender
	opts     ReminderOptions
	settings Settings
	now      Clock
	logger   *zap.Logger
	cron     *cron.Cron
}

func NewReminderService(repo repository.Repository, sender MessageSender, opts ReminderOptions, settings Settings, now Clock, logger *zap.Logger) *ReminderService {
	if now == nil {
		now = time.Now
	}
	return &ReminderService{repo: repo, sender: sender, opts: opts, settings: settings, now: now, logger: logger}
}

// Enabled reports whether a message sender is configured.
func (s *ReminderService) Enabled() bool {
	return s.sender != nil
}

func (s *ReminderService) StartScheduler() error {
	if !s.Enabled() {
		s.logger.Info("Reminder scheduler disabled: no message sender configured")
		return nil
	}
	c, err := scheduleJob(s.settings.location(), s.opts.Schedule, 5*time.Minute, "reminders", s.logger,
		func(ctx context.Context) error {
			_, err := s.SendUpcomingReminders(ctx)
			return err
		})
	if err != nil {
		return err
	}
	s.cron = c
	return nil
}

func (s *ReminderService) Stop() {
	stopCron(s.cron)
}

// SendUpcomingReminders messages every scheduled appointment starting within
// the lead window that has not been reminded yet. Returns how many were sent.
func (s *ReminderService) SendUpcomingReminders(ctx context.Context) (int, error) {
	now := s.now()
	until := now.Add(s.opts.Lead)
	appts, err := s.repo.ListAppointments(ctx, repository.AppointmentFilter{
		From:             &now,
		To:               &until,
		Statuses:         []models.AppointmentStatus{models.StatusScheduled},
		RemindersPending: true,
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range appts {
		ok, err := s.remind(ctx, &appts[i])
		if err != nil {
			s.logger.Warn("Reminder skipped", zap.Stringer("appointmentId", appts[i].ID), zap.Error(err))
			continue
		}
		if ok {
			sent++
		}
	}
	s.logger.Info("Reminder run completed", zap.Int("candidates", len(appts)), zap.Int("sent", sent))
	return sent, nil
}

func (s *ReminderService) remind(ctx context.Context, appt *models.Appointment) (bool, error) {
	client, err := s.repo.GetProfile(ctx, appt.ClientID)
	if err != nil {
		return false, err
	}
	phone := utils.NormalizePhone(client.Phone)
	if phone == "" || !utils.ValidatePhone(phone) {
		return false, errors.New("client has no valid phone")
	}

	var professionalName, serviceName string
	if p, err := s.repo.GetProfessional(ctx, appt.ProfessionalID); err == nil {
		professionalName = p.Name
	}
	if svc, err := s.repo.GetService(ctx, appt.ServiceID); err == nil {
		serviceName = svc.Name
	}
	message := reminderMessage(client.Name, serviceName, professionalName, appt.StartsAt.In(s.settings.location()), s.settings.CancellationLead)

	// WhatsApp when the number is E.164 and a WhatsApp sender exists
	channel, to, from := "sms", phone, s.opts.SMSNumber
	if strings.HasPrefix(phone, "+") && s.opts.WhatsAppNumber != "" {
		channel, to, from = "whatsapp", "whatsapp:"+phone, "whatsapp:"+s.opts.WhatsAppNumber
	}

	sid, sendErr := s.sender.Send(to, from, message)
	status, errorMsg := "sent", ""
	if sendErr != nil {
		status, errorMsg = "failed", sendErr.Error()
		s.logger.Warn("Failed to send reminder", zap.String("to", phone), zap.Error(sendErr))
	} else {
		s.logger.Info("Reminder sent", zap.Stringer("appointmentId", appt.ID), zap.String("sid", sid))
	}

	logEntry := &models.ReminderLog{
		AppointmentID: appt.ID,
		ClientID:      appt.ClientID,
		Message:       message,
		Status:        status,
		ErrorMessage:  errorMsg,
		Channel:       channel,
		SentAt:        s.now(),
	}
	if err := s.repo.CreateReminderLog(ctx, logEntry); err != nil {
		s.logger.Warn("Failed to log reminder", zap.Stringer("appointmentId", appt.ID), zap.Error(err))
	}
	if sendErr != nil {
		return false, nil
	}
	if err := s.repo.MarkReminderSent(ctx, appt.ID, s.now()); err != nil {
		return true, err
	}
	return true, nil
}

func reminderMessage(clientName, serviceName, professionalName string, startsAt time.Time, cancelLead time.Duration) string {
	msg := fmt.Sprintf("Olá %s! Lembrete do seu agendamento em %s às %s",
		clientName, startsAt.Format("02/01"), startsAt.Format("15:04"))
	if serviceName != "" {
		msg += " (" + serviceName
		if professionalName != "" {
			msg += " com " + professionalName
		}
		msg += ")"
	}
	return msg + fmt.Sprintf(". Para cancelar, faça-o com pelo menos %d horas de antecedência.", int(cancelLead.Hours()))
}
