package waitlist

import "time"

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusNotified Status = "notified"
	StatusBooked   Status = "booked"
	StatusExpired  Status = "expired"
)

// Entry is a request to be told when a slot frees up on a date.
// Entries are ordered by CreatedAt: the earliest request wins contested
// slots. No transition removes an entry; booked and expired are
// terminal.
type Entry struct {
	ID                 string     `bson:"_id,omitempty" json:"id"`
	ServiceID          string     `bson:"serviceId" json:"serviceId"`
	Name               string     `bson:"name" json:"name"`
	Email              string     `bson:"email" json:"email"`
	Phone              string     `bson:"phone" json:"phone"`
	Date               string     `bson:"date" json:"date"`
	PreferredTimeSlots []string   `bson:"preferredTimeSlots,omitempty" json:"preferredTimeSlots,omitempty"`
	Status             Status     `bson:"status" json:"status"`
	NotifiedSlot       string     `bson:"notifiedSlot,omitempty" json:"notifiedSlot,omitempty"`
	CreatedAt          time.Time  `bson:"createdAt" json:"createdAt"`
	NotifiedAt         *time.Time `bson:"notifiedAt,omitempty" json:"notifiedAt,omitempty"`
}

type CreateRequest struct {
	ServiceID          string   `json:"serviceId" validate:"required"`
	Name               string   `json:"name" validate:"required"`
	Email              string   `json:"email" validate:"required,email"`
	Phone              string   `json:"phone" validate:"omitempty,phone"`
	Date               string   `json:"date" validate:"required,date"`
	PreferredTimeSlots []string `json:"preferredTimeSlots" validate:"omitempty,dive,clock"`
}
