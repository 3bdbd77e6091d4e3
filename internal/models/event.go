package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EventAppointmentBooked    = "appointment.booked.v1"
	EventAppointmentCancelled = "appointment.cancelled.v1"
	EventAppointmentCompleted = "appointment.completed.v1"
)

// Event is an outbox record written in the same transaction as the state
// change it describes.
type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID     string             `bson:"eventId" json:"eventId"`
	AggregateID string             `bson:"aggregateId" json:"aggregateId"`
	Type        string             `bson:"type" json:"type"`
	Payload     []byte             `bson:"payload" json:"payload"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	PublishedAt *time.Time         `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
}
