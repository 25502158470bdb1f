package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"sharpcut-backend/internal/models"
	"sharpcut-backend/internal/transport"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type PaymentIntentRequest struct {
	AppointmentID string `json:"appointmentId" validate:"required"`
}

type PaymentIntentResponse struct {
	IntentID     string `json:"intentId"`
	ClientSecret string `json:"clientSecret,omitempty"`
	Status       string `json:"status"`
	Amount       int    `json:"amount"`
	Currency     string `json:"currency"`
}

// CreatePaymentIntent opens a Stripe payment for an appointment's
// price. Online payment is optional: without a configured Stripe key
// the endpoint reports it disabled instead of failing.
func (s *Server) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req PaymentIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		details := validationDetails(s.Val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "validation error", details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	var appointment models.Appointment
	if err := s.Cols.Appointments.FindOne(ctx, bson.M{"_id": req.AppointmentID}).Decode(&appointment); err != nil {
		if err == mongo.ErrNoDocuments {
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
			return
		}
		log.Error("payments: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if appointment.Status == models.AppointmentCancelled || appointment.Status == models.AppointmentNoShow {
		transport.WriteError(w, http.StatusBadRequest, "appointment is not payable", nil)
		return
	}

	if s.Cfg.StripeAPIKey == "" {
		transport.WriteJSON(w, http.StatusOK, PaymentIntentResponse{
			Status:   "disabled",
			Amount:   appointment.Price,
			Currency: "usd",
		})
		return
	}

	stripe.Key = s.Cfg.StripeAPIKey
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(appointment.Price)),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		ReceiptEmail: stripe.String(appointment.Email),
	}
	params.AddMetadata("appointmentId", appointment.ID)
	params.AddMetadata("serviceId", appointment.ServiceID)

	pi, err := paymentintent.New(params)
	if err != nil {
		log.Error("payments: stripe error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadGateway, "payment provider error", nil)
		return
	}

	log.Info("payments: intent created",
		slog.String("appointment_id", appointment.ID),
		slog.String("intent_id", pi.ID),
	)
	transport.WriteJSON(w, http.StatusOK, PaymentIntentResponse{
		IntentID:     pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       appointment.Price,
		Currency:     string(pi.Currency),
	})
}
