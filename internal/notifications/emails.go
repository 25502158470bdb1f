package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"sharpcut-backend/internal/models"
)

const bookingConfirmationTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Name}},</p>
  <p>Your appointment is booked. Details:</p>
  <ul>
    <li>Service: {{.ServiceName}}</li>
    <li>Date: {{.Date}}</li>
    <li>Time: {{.Time}}</li>
    <li>Duration: {{.DurationMinutes}} minutes</li>
    <li>Price: {{.Price}}</li>
    <li>Booking reference: {{.AppointmentID}}</li>
  </ul>
  <p>Need to change it? Reply to this email or call the shop.</p>
  <p>See you soon.</p>
</body>
</html>`

const waitlistOpeningTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Name}},</p>
  <p>A slot just opened up for {{.ServiceName}} on {{.Date}} at {{.Slot}}.</p>
  <p>Slots are first come, first served, so book now to claim it.</p>
</body>
</html>`

var (
	bookingConfirmationTmpl = template.Must(template.New("booking_confirmation").Parse(bookingConfirmationTemplate))
	waitlistOpeningTmpl     = template.Must(template.New("waitlist_opening").Parse(waitlistOpeningTemplate))
)

type bookingConfirmationData struct {
	Name            string
	ServiceName     string
	Date            string
	Time            string
	DurationMinutes int
	Price           int
	AppointmentID   string
}

type waitlistOpeningData struct {
	Name        string
	ServiceName string
	Date        string
	Slot        string
}

// SendBookingConfirmation emails the customer after a successful
// booking write. Returns the provider message id.
func (c *BrevoClient) SendBookingConfirmation(ctx context.Context, appointment models.Appointment, service models.Service) (string, error) {
	data := bookingConfirmationData{
		Name:            appointment.Name,
		ServiceName:     service.Name,
		Date:            appointment.Date,
		Time:            appointment.Time,
		DurationMinutes: appointment.Duration,
		Price:           appointment.Price,
		AppointmentID:   appointment.ID,
	}
	var buf bytes.Buffer
	if err := bookingConfirmationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	subject := fmt.Sprintf("Booking confirmed - %s", service.Name)
	return c.sendHTML(ctx, appointment.Email, appointment.Name, subject, buf.String())
}

// SendWaitlistOpening emails a waitlisted customer that a slot freed
// up. The slot is not held for them; booking re-validates availability.
func (c *BrevoClient) SendWaitlistOpening(ctx context.Context, toEmail, toName, serviceName, date, slot string) (string, error) {
	data := waitlistOpeningData{
		Name:        toName,
		ServiceName: serviceName,
		Date:        date,
		Slot:        slot,
	}
	var buf bytes.Buffer
	if err := waitlistOpeningTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	subject := fmt.Sprintf("A slot opened up - %s on %s", serviceName, date)
	return c.sendHTML(ctx, toEmail, toName, subject, buf.String())
}
