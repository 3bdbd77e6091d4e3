package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
)

// AppointmentEvent is the payload of every appointment.* outbox event.
type AppointmentEvent struct {
	EventID       string                   `json:"eventId"`
	Type          string                   `json:"type"`
	AppointmentID string                   `json:"appointmentId"`
	UserID        string                   `json:"userId"`
	DoctorID      string                   `json:"docId"`
	SlotDate      string                   `json:"slotDate"`
	SlotTime      string                   `json:"slotTime"`
	Status        models.AppointmentStatus `json:"status"`
	Amount        float64                  `json:"amount"`
	OccurredAt    time.Time                `json:"occurredAt"`
}

func appendEvent(ctx context.Context, tx store.Tx, eventType string, a *models.Appointment, at time.Time) error {
	payload := AppointmentEvent{
		EventID:       uuid.NewString(),
		Type:          eventType,
		AppointmentID: a.ID.Hex(),
		UserID:        a.UserID,
		DoctorID:      a.DoctorID,
		SlotDate:      a.SlotDate,
		SlotTime:      a.SlotTime,
		Status:        a.Status,
		Amount:        a.Amount,
		OccurredAt:    at,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return tx.AppendEvent(ctx, &models.Event{
		EventID:     payload.EventID,
		AggregateID: payload.AppointmentID,
		Type:        eventType,
		Payload:     raw,
		CreatedAt:   at,
	})
}
