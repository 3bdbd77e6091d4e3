// Package store declares the persistence contracts shared by the MongoDB
// backend and the in-memory backend.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/harentsoaR/clinic-api/internal/models"
)

var (
	// ErrNotFound is the typed absence returned by every lookup.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate reports a unique-index violation.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrConflict reports a transaction that lost a write conflict, or a
	// conditional update whose precondition no longer holds.
	ErrConflict = errors.New("store: write conflict")
	// ErrTimeout reports a transaction that exceeded its deadline. Its effects
	// have been rolled back.
	ErrTimeout = errors.New("store: transaction timed out")
	// ErrCommitUnknown reports a commit whose outcome could not be confirmed.
	// Unlike the other errors, its writes may have been applied.
	ErrCommitUnknown = errors.New("store: commit outcome unknown")
)

// Tx is the set of reads and writes that commit together with a booking,
// cancellation or completion decision. The ctx passed to each method must be
// the one handed to the InTransaction callback.
type Tx interface {
	FindUser(ctx context.Context, id string) (*models.User, error)
	FindDoctor(ctx context.Context, id string) (*models.Doctor, error)
	// FindActiveAppointment returns the appointment holding the slot, that is
	// any appointment for it that has not been cancelled.
	FindActiveAppointment(ctx context.Context, doctorID, slotDate, slotTime string) (*models.Appointment, error)
	FindAppointment(ctx context.Context, id string) (*models.Appointment, error)
	InsertAppointment(ctx context.Context, a *models.Appointment) error
	// UpdateAppointmentStatus moves an active appointment to change.To. It
	// returns ErrConflict when the appointment is no longer active.
	UpdateAppointmentStatus(ctx context.Context, id string, change models.StatusChange) (*models.Appointment, error)
	ReserveSlot(ctx context.Context, e *models.SlotEntry) error
	// ReleaseSlot deletes the ledger entry for key only if it belongs to
	// appointmentID. It returns ErrNotFound otherwise.
	ReleaseSlot(ctx context.Context, key models.SlotKey, appointmentID string) error
	AppendEvent(ctx context.Context, e *models.Event) error
}

// Transactor runs fn atomically: every Tx write made inside fn commits, or
// none does. Transactions are never retried.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

type AdminRepository interface {
	CreateAdmin(ctx context.Context, a *models.Admin) error
	FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
}

type DoctorRepository interface {
	CreateDoctor(ctx context.Context, d *models.Doctor) error
	FindDoctorByID(ctx context.Context, id string) (*models.Doctor, error)
	FindDoctorByEmail(ctx context.Context, email string) (*models.Doctor, error)
	ListDoctors(ctx context.Context) ([]models.Doctor, error)
	// ToggleAvailability flips the availability flag and returns the new value.
	ToggleAvailability(ctx context.Context, id string) (bool, error)
	UpdateDoctorProfile(ctx context.Context, id string, upd models.DoctorProfileUpdate) (*models.Doctor, error)
	CountDoctors(ctx context.Context) (int64, error)
}

type AppointmentRepository interface {
	// ListAppointments returns matching appointments, newest first.
	ListAppointments(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error)
	CountAppointments(ctx context.Context, f models.AppointmentFilter) (int64, error)
}

type LedgerRepository interface {
	ListSlotEntries(ctx context.Context, doctorID string) ([]models.SlotEntry, error)
}

type OutboxRepository interface {
	FetchUnpublished(ctx context.Context, limit int) ([]models.Event, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
}

// Store is the full persistence surface used by the API.
type Store interface {
	Transactor
	UserRepository
	AdminRepository
	DoctorRepository
	AppointmentRepository
	LedgerRepository
	OutboxRepository
	Ping(ctx context.Context) error
}
