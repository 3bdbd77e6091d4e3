package services

import (
	"context"
	"strings"

	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
)

const latestCount = 5

type AdminDashboard struct {
	Doctors            int64                `json:"doctors"`
	Appointments       int64                `json:"appointments"`
	Patients           int64                `json:"patients"`
	LatestAppointments []models.Appointment `json:"latestAppointments"`
}

type DoctorDashboard struct {
	Earnings           float64              `json:"earnings"`
	Appointments       int                  `json:"appointments"`
	Patients           int                  `json:"patients"`
	LatestAppointments []models.Appointment `json:"latestAppointments"`
}

// UserAppointment is an appointment as shown on a patient's own list, with
// the date key rendered as "25-6-2025".
type UserAppointment struct {
	models.Appointment
	SlotDate string `json:"slotDate"`
}

// DashboardService builds the read-only views over appointments.
type DashboardService struct {
	store store.Store
}

func NewDashboardService(s store.Store) *DashboardService {
	return &DashboardService{store: s}
}

func latest(list []models.Appointment) []models.Appointment {
	if len(list) > latestCount {
		list = list[:latestCount]
	}
	return list
}

func (s *DashboardService) Admin(ctx context.Context) (*AdminDashboard, error) {
	doctors, err := s.store.CountDoctors(ctx)
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	users, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	appointments, err := s.store.CountAppointments(ctx, models.AppointmentFilter{})
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	all, err := s.store.ListAppointments(ctx, models.AppointmentFilter{})
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	return &AdminDashboard{
		Doctors:            doctors,
		Appointments:       appointments,
		Patients:           users,
		LatestAppointments: latest(all),
	}, nil
}

// Doctor sums earnings over appointments that were completed or paid.
func (s *DashboardService) Doctor(ctx context.Context, doctorID string) (*DoctorDashboard, error) {
	list, err := s.store.ListAppointments(ctx, models.AppointmentFilter{DoctorID: doctorID})
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	dash := &DoctorDashboard{Appointments: len(list), LatestAppointments: latest(list)}
	patients := make(map[string]struct{})
	for _, a := range list {
		if a.Status == models.StatusCompleted || a.Payment {
			dash.Earnings += a.Amount
		}
		patients[a.UserID] = struct{}{}
	}
	dash.Patients = len(patients)
	return dash, nil
}

func (s *DashboardService) AllAppointments(ctx context.Context) ([]models.Appointment, error) {
	list, err := s.store.ListAppointments(ctx, models.AppointmentFilter{})
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	return list, nil
}

func (s *DashboardService) UserAppointments(ctx context.Context, userID string) ([]UserAppointment, error) {
	list, err := s.store.ListAppointments(ctx, models.AppointmentFilter{UserID: userID})
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	out := make([]UserAppointment, 0, len(list))
	for _, a := range list {
		out = append(out, UserAppointment{
			Appointment: a,
			SlotDate:    strings.ReplaceAll(a.SlotDate, "_", "-"),
		})
	}
	return out, nil
}
