package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"sharpcut-backend/internal/models"
)

// Dispatcher fans a notification out over the configured channels.
// Delivery is best-effort everywhere: a failed send is logged and never
// surfaced to the caller as a fatal error, so the booking or waitlist
// write it follows always stands.
type Dispatcher struct {
	Email *BrevoClient
	SMS   *TwilioClient
	Log   *slog.Logger
}

func NewDispatcher(email *BrevoClient, sms *TwilioClient, log *slog.Logger) *Dispatcher {
	return &Dispatcher{Email: email, SMS: sms, Log: log}
}

func (d *Dispatcher) NotifyConfirmation(ctx context.Context, appointment models.Appointment, service models.Service) {
	if d.Email != nil {
		messageID, err := d.Email.SendBookingConfirmation(ctx, appointment, service)
		if err != nil {
			d.Log.Warn("notify confirmation: email failed",
				slog.String("appointment_id", appointment.ID),
				slog.String("email", appointment.Email),
				slog.String("error", err.Error()),
			)
		} else {
			d.Log.Info("notify confirmation: email sent",
				slog.String("appointment_id", appointment.ID),
				slog.String("message_id", messageID),
			)
		}
	}

	if d.SMS != nil && appointment.Phone != "" {
		body := fmt.Sprintf("SharpCut: your %s on %s at %s is booked. Ref %s.",
			service.Name, appointment.Date, appointment.Time, appointment.ID)
		if err := d.SMS.SendSMS(appointment.Phone, body); err != nil {
			d.Log.Warn("notify confirmation: sms failed",
				slog.String("appointment_id", appointment.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (d *Dispatcher) NotifyWaitlistOpening(ctx context.Context, toEmail, toName, toPhone, serviceName, date, slot string) {
	if d.Email != nil {
		messageID, err := d.Email.SendWaitlistOpening(ctx, toEmail, toName, serviceName, date, slot)
		if err != nil {
			d.Log.Warn("notify waitlist: email failed",
				slog.String("email", toEmail),
				slog.String("date", date),
				slog.String("slot", slot),
				slog.String("error", err.Error()),
			)
		} else {
			d.Log.Info("notify waitlist: email sent",
				slog.String("email", toEmail),
				slog.String("date", date),
				slog.String("slot", slot),
				slog.String("message_id", messageID),
			)
		}
	}

	if d.SMS != nil && toPhone != "" {
		body := fmt.Sprintf("SharpCut: a %s slot opened on %s at %s. First come, first served.",
			serviceName, date, slot)
		if err := d.SMS.SendSMS(toPhone, body); err != nil {
			d.Log.Warn("notify waitlist: sms failed",
				slog.String("phone", toPhone),
				slog.String("error", err.Error()),
			)
		}
	}
}
