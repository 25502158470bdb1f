package models

import "time"

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

// allowedTransitions is the full appointment lifecycle. Cancelled,
// completed and no_show are terminal; cancellation is a status change,
// never a delete, so the record stays for history.
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:   {AppointmentConfirmed, AppointmentCancelled},
	AppointmentConfirmed: {AppointmentCompleted, AppointmentCancelled, AppointmentNoShow},
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCancelled, AppointmentCompleted, AppointmentNoShow:
		return true
	}
	return false
}

// Occupying reports whether an appointment in this status still claims
// its time slot. Cancelled and no-show appointments free the slot.
func (s AppointmentStatus) Occupying() bool {
	return s == AppointmentPending || s == AppointmentConfirmed || s == AppointmentCompleted
}

func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OccupyingStatuses lists the statuses that block a slot, in the form
// mongo filters want them.
func OccupyingStatuses() []string {
	return []string{
		string(AppointmentPending),
		string(AppointmentConfirmed),
		string(AppointmentCompleted),
	}
}

type Service struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	Name            string    `bson:"name" json:"name"`
	Slug            string    `bson:"slug" json:"slug"`
	Description     string    `bson:"description" json:"description"`
	Price           int       `bson:"price" json:"price"`
	DurationMinutes int       `bson:"durationMinutes" json:"durationMinutes"`
	LoyaltyPoints   int       `bson:"loyaltyPoints" json:"loyaltyPoints"`
	Active          bool      `bson:"active" json:"active"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
}

type Customer struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	Name          string    `bson:"name" json:"name"`
	Email         string    `bson:"email" json:"email"`
	Phone         string    `bson:"phone" json:"phone"`
	LoyaltyPoints int       `bson:"loyaltyPoints" json:"loyaltyPoints"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

type Appointment struct {
	ID         string            `bson:"_id,omitempty" json:"id"`
	ServiceID  string            `bson:"serviceId" json:"serviceId"`
	CustomerID string            `bson:"customerId" json:"customerId"`
	Name       string            `bson:"name" json:"name"`
	Email      string            `bson:"email" json:"email"`
	Phone      string            `bson:"phone" json:"phone"`
	Date       string            `bson:"date" json:"date"`
	Time       string            `bson:"time" json:"time"`
	Duration   int               `bson:"duration" json:"duration"`
	Price      int               `bson:"price" json:"price"`
	Notes      string            `bson:"notes,omitempty" json:"notes,omitempty"`
	Status     AppointmentStatus `bson:"status" json:"status"`
	CreatedAt  time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time         `bson:"updatedAt" json:"updatedAt"`
}

type AdminUser struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Username     string    `bson:"username" json:"username"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	Role         string    `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

const UserRoleAdmin = "admin"
