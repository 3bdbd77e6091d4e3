package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AppointmentStatus string

const (
	StatusActive    AppointmentStatus = "active"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// UserSnapshot and DoctorSnapshot are copied into the appointment when it is
// booked. They are never refreshed from later profile edits.
type UserSnapshot struct {
	Name    string  `bson:"name" json:"name"`
	Email   string  `bson:"email" json:"email"`
	Phone   string  `bson:"phone" json:"phone"`
	Image   string  `bson:"image" json:"image"`
	Address Address `bson:"address" json:"address"`
	Gender  string  `bson:"gender" json:"gender"`
	DOB     string  `bson:"dob" json:"dob"`
}

type DoctorSnapshot struct {
	Name       string  `bson:"name" json:"name"`
	Speciality string  `bson:"speciality" json:"speciality"`
	Fees       float64 `bson:"fees" json:"fees"`
	Image      string  `bson:"image" json:"image"`
	Experience string  `bson:"experience" json:"experience"`
	Degree     string  `bson:"degree" json:"degree"`
	About      string  `bson:"about" json:"about"`
}

type Appointment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"userId" json:"userId"`
	DoctorID    string             `bson:"docId" json:"docId"`
	SlotDate    string             `bson:"slotDate" json:"slotDate"`
	SlotTime    string             `bson:"slotTime" json:"slotTime"`
	UserData    UserSnapshot       `bson:"userData" json:"userData"`
	DocData     DoctorSnapshot     `bson:"docData" json:"docData"`
	Amount      float64            `bson:"amount" json:"amount"`
	Status      AppointmentStatus  `bson:"status" json:"status"`
	Payment     bool               `bson:"payment" json:"payment"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	CancelledAt *time.Time         `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CompletedAt *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

func (a *Appointment) IsActive() bool { return a.Status == StatusActive }

// HoldsSlot reports whether the appointment still consumes its slot. A
// completed appointment keeps it; only cancellation frees it.
func (a *Appointment) HoldsSlot() bool { return a.Status != StatusCancelled }

// StatusChange moves an appointment out of the active state.
type StatusChange struct {
	To AppointmentStatus
	At time.Time
}

// AppointmentFilter narrows appointment listings. Empty fields match everything.
type AppointmentFilter struct {
	UserID   string
	DoctorID string
	Status   AppointmentStatus
}
