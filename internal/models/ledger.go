package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SlotEntry marks one (doctor, date, time) slot as reserved. At most one entry
// exists per slot. It is written when the appointment is booked and removed
// only when that appointment is cancelled.
type SlotEntry struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DoctorID      string             `bson:"doctorId" json:"doctorId"`
	SlotDate      string             `bson:"slotDate" json:"slotDate"`
	SlotTime      string             `bson:"slotTime" json:"slotTime"`
	AppointmentID string             `bson:"appointmentId" json:"appointmentId"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

type SlotKey struct {
	DoctorID string `json:"doctorId"`
	SlotDate string `json:"slotDate"`
	SlotTime string `json:"slotTime"`
}

func (e SlotEntry) Key() SlotKey {
	return SlotKey{DoctorID: e.DoctorID, SlotDate: e.SlotDate, SlotTime: e.SlotTime}
}

func (a *Appointment) SlotKey() SlotKey {
	return SlotKey{DoctorID: a.DoctorID, SlotDate: a.SlotDate, SlotTime: a.SlotTime}
}

// GroupSlots folds ledger entries into date -> times, the shape clients use to
// render a doctor's calendar.
func GroupSlots(entries []SlotEntry) map[string][]string {
	out := make(map[string][]string)
	for _, e := range entries {
		out[e.SlotDate] = append(out[e.SlotDate], e.SlotTime)
	}
	return out
}
