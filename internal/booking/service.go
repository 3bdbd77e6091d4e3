// Package booking owns the appointment lifecycle: booking a slot, cancelling
// and completing appointments. Every decision and its effects on the slot
// ledger and the outbox run in one storage transaction.
package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
)

// SlotDateLayout is the layout of the "D_M_YYYY" date keys, e.g. "25_6_2025".
const SlotDateLayout = "2_1_2006"

type BookingRequest struct {
	DoctorID string `json:"docId"`
	SlotDate string `json:"slotDate"`
	SlotTime string `json:"slotTime"`
}

func (r *BookingRequest) normalize() {
	r.DoctorID = strings.TrimSpace(r.DoctorID)
	r.SlotDate = strings.TrimSpace(r.SlotDate)
	r.SlotTime = strings.TrimSpace(r.SlotTime)
}

func (r BookingRequest) validate(userID string) error {
	switch {
	case userID == "":
		return apperr.Validation("userId is required")
	case r.DoctorID == "":
		return apperr.Validation("docId is required")
	case r.SlotDate == "":
		return apperr.Validation("slotDate is required")
	case r.SlotTime == "":
		return apperr.Validation("slotTime is required")
	}
	if _, err := time.Parse(SlotDateLayout, r.SlotDate); err != nil {
		return apperr.Validation("slotDate %q must look like 25_6_2025", r.SlotDate)
	}
	return nil
}

// Caller is the authenticated principal acting on an appointment.
type Caller struct {
	ID   string
	Role models.Role
}

type Service struct {
	tx     store.Transactor
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(tx store.Transactor, logger zerolog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		tx:     tx,
		logger: logger.With().Str("component", "booking").Logger(),
		now:    now,
	}
}

// BookAppointment reserves req's slot for userID. The availability check and
// the writes commit together, so of two concurrent requests for the same
// slot exactly one succeeds and the other gets ErrSlotAlreadyBooked.
func (s *Service) BookAppointment(ctx context.Context, userID string, req BookingRequest) (*models.Appointment, error) {
	req.normalize()
	if err := req.validate(userID); err != nil {
		return nil, err
	}

	var booked *models.Appointment
	err := s.tx.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.FindActiveAppointment(ctx, req.DoctorID, req.SlotDate, req.SlotTime)
		if err == nil {
			return apperr.ErrSlotAlreadyBooked
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		doctor, err := tx.FindDoctor(ctx, req.DoctorID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.ErrDoctorNotFound
		}
		if err != nil {
			return err
		}
		if !doctor.Available {
			return apperr.ErrDoctorUnavailable
		}

		user, err := tx.FindUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		now := s.now().UTC()
		appt := &models.Appointment{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			DoctorID:  req.DoctorID,
			SlotDate:  req.SlotDate,
			SlotTime:  req.SlotTime,
			UserData:  userSnapshot(user),
			DocData:   doctorSnapshot(doctor),
			Amount:    doctor.Fees,
			Status:    models.StatusActive,
			CreatedAt: now,
		}
		if err := tx.InsertAppointment(ctx, appt); err != nil {
			return err
		}
		entry := &models.SlotEntry{
			DoctorID:      appt.DoctorID,
			SlotDate:      appt.SlotDate,
			SlotTime:      appt.SlotTime,
			AppointmentID: appt.ID.Hex(),
			CreatedAt:     now,
		}
		if err := tx.ReserveSlot(ctx, entry); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, models.EventAppointmentBooked, appt, now); err != nil {
			return err
		}
		booked = appt
		return nil
	})
	if err != nil {
		err = failure(err, apperr.ErrSlotAlreadyBooked)
		s.logRejected(err, "book").
			Str("user_id", userID).
			Str("doctor_id", req.DoctorID).
			Str("slot_date", req.SlotDate).
			Str("slot_time", req.SlotTime).
			Msg("booking rejected")
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", booked.ID.Hex()).
		Str("user_id", userID).
		Str("doctor_id", booked.DoctorID).
		Str("slot_date", booked.SlotDate).
		Str("slot_time", booked.SlotTime).
		Msg("appointment booked")
	return booked, nil
}

func canCancel(a *models.Appointment, c Caller) bool {
	switch c.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDoctor:
		return a.DoctorID == c.ID
	case models.RoleUser:
		return a.UserID == c.ID
	}
	return false
}

func canComplete(a *models.Appointment, c Caller) bool {
	switch c.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDoctor:
		return a.DoctorID == c.ID
	}
	return false
}

// CancelAppointment cancels an active appointment and frees its slot. The
// owning user, the appointment's doctor and admins may cancel.
func (s *Service) CancelAppointment(ctx context.Context, appointmentID string, caller Caller) (*models.Appointment, error) {
	appointmentID = strings.TrimSpace(appointmentID)
	if appointmentID == "" {
		return nil, apperr.Validation("appointmentId is required")
	}

	var cancelled *models.Appointment
	err := s.tx.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		appt, err := tx.FindAppointment(ctx, appointmentID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.ErrAppointmentNotFound
		}
		if err != nil {
			return err
		}
		if !canCancel(appt, caller) {
			return apperr.ErrUnauthorized
		}
		switch appt.Status {
		case models.StatusCancelled:
			return apperr.ErrAlreadyCancelled
		case models.StatusCompleted:
			return apperr.ErrCannotCancelCompleted
		}

		now := s.now().UTC()
		updated, err := tx.UpdateAppointmentStatus(ctx, appointmentID, models.StatusChange{To: models.StatusCancelled, At: now})
		if err != nil {
			return err
		}
		err = tx.ReleaseSlot(ctx, appt.SlotKey(), appt.ID.Hex())
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn().
				Str("appointment_id", appointmentID).
				Str("doctor_id", appt.DoctorID).
				Str("slot_date", appt.SlotDate).
				Str("slot_time", appt.SlotTime).
				Msg("cancelled appointment had no ledger entry of its own")
		} else if err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, models.EventAppointmentCancelled, updated, now); err != nil {
			return err
		}
		cancelled = updated
		return nil
	})
	if err != nil {
		err = failure(err, apperr.ErrAlreadyCancelled)
		s.logRejected(err, "cancel").
			Str("appointment_id", appointmentID).
			Str("caller_id", caller.ID).
			Str("caller_role", string(caller.Role)).
			Msg("cancellation rejected")
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appointmentID).
		Str("caller_id", caller.ID).
		Str("caller_role", string(caller.Role)).
		Msg("appointment cancelled")
	return cancelled, nil
}

// CompleteAppointment marks an active appointment as completed. The slot stays
// consumed. Only the appointment's doctor and admins may complete.
func (s *Service) CompleteAppointment(ctx context.Context, appointmentID string, caller Caller) (*models.Appointment, error) {
	appointmentID = strings.TrimSpace(appointmentID)
	if appointmentID == "" {
		return nil, apperr.Validation("appointmentId is required")
	}

	var completed *models.Appointment
	err := s.tx.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		appt, err := tx.FindAppointment(ctx, appointmentID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.ErrAppointmentNotFound
		}
		if err != nil {
			return err
		}
		if !canComplete(appt, caller) {
			return apperr.ErrUnauthorized
		}
		switch appt.Status {
		case models.StatusCompleted:
			return apperr.ErrAlreadyCompleted
		case models.StatusCancelled:
			return apperr.ErrCannotCompleteCancelled
		}

		now := s.now().UTC()
		updated, err := tx.UpdateAppointmentStatus(ctx, appointmentID, models.StatusChange{To: models.StatusCompleted, At: now})
		if err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, models.EventAppointmentCompleted, updated, now); err != nil {
			return err
		}
		completed = updated
		return nil
	})
	if err != nil {
		err = failure(err, apperr.ErrAppointmentChanged)
		s.logRejected(err, "complete").
			Str("appointment_id", appointmentID).
			Str("caller_id", caller.ID).
			Str("caller_role", string(caller.Role)).
			Msg("completion rejected")
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appointmentID).
		Str("caller_id", caller.ID).
		Msg("appointment completed")
	return completed, nil
}

// failure turns a transaction error into the typed error returned to callers.
// Domain errors pass through. A duplicate key or lost write conflict means a
// concurrent request won and becomes onConflict. A commit with an unconfirmed
// outcome is OutcomeUnknown; every other storage failure is TransactionFailed.
func failure(err error, onConflict *apperr.Error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, store.ErrCommitUnknown) {
		return apperr.ErrOutcomeUnknown.Wrap(err)
	}
	if errors.Is(err, store.ErrDuplicate) || errors.Is(err, store.ErrConflict) {
		return onConflict.Wrap(err)
	}
	return apperr.ErrTransactionFailed.Wrap(err)
}

func (s *Service) logRejected(err error, op string) *zerolog.Event {
	ev := s.logger.Debug()
	if apperr.As(err).Kind == apperr.KindTransactionFailed {
		ev = s.logger.Error()
	}
	return ev.Err(err).Str("op", op)
}

func userSnapshot(u *models.User) models.UserSnapshot {
	return models.UserSnapshot{
		Name:    u.Name,
		Email:   u.Email,
		Phone:   u.Phone,
		Image:   u.Image,
		Address: u.Address,
		Gender:  u.Gender,
		DOB:     u.DOB,
	}
}

func doctorSnapshot(d *models.Doctor) models.DoctorSnapshot {
	return models.DoctorSnapshot{
		Name:       d.Name,
		Speciality: d.Speciality,
		Fees:       d.Fees,
		Image:      d.Image,
		Experience: d.Experience,
		Degree:     d.Degree,
		About:      d.About,
	}
}
