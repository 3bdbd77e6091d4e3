package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/cache"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

type DoctorService struct {
	doctors store.DoctorRepository
	ledger  store.LedgerRepository
	appts   store.AppointmentRepository
	cache   *cache.DoctorCache
	logger  zerolog.Logger
	now     func() time.Time
}

// NewDoctorService accepts a nil cache.
func NewDoctorService(s store.Store, c *cache.DoctorCache, logger zerolog.Logger) *DoctorService {
	return &DoctorService{
		doctors: s,
		ledger:  s,
		appts:   s,
		cache:   c,
		logger:  logger.With().Str("component", "doctors").Logger(),
		now:     time.Now,
	}
}

type AddDoctorRequest struct {
	Name       string         `json:"name" binding:"required"`
	Email      string         `json:"email" binding:"required,email"`
	Password   string         `json:"password" binding:"required,min=8"`
	Image      string         `json:"image"`
	Speciality string         `json:"speciality" binding:"required"`
	Degree     string         `json:"degree" binding:"required"`
	Experience string         `json:"experience" binding:"required"`
	About      string         `json:"about" binding:"required"`
	Fees       float64        `json:"fees" binding:"gte=0"`
	Address    models.Address `json:"address"`
}

func (s *DoctorService) AddDoctor(ctx context.Context, req AddDoctorRequest) (*models.Doctor, error) {
	email := normalizeEmail(req.Email)
	if err := validateCredentials(req.Name, email, req.Password); err != nil {
		return nil, err
	}
	if req.Fees < 0 {
		return nil, apperr.Validation("fees must not be negative")
	}
	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}

	doctor := &models.Doctor{
		Name:       strings.TrimSpace(req.Name),
		Email:      email,
		Password:   hashed,
		Image:      req.Image,
		Speciality: req.Speciality,
		Degree:     req.Degree,
		Experience: req.Experience,
		About:      req.About,
		Available:  true,
		Fees:       req.Fees,
		Address:    req.Address,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.doctors.CreateDoctor(ctx, doctor); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ErrEmailTaken
		}
		return nil, apperr.ErrInternal.Wrap(err)
	}
	s.cache.Invalidate(ctx)
	s.logger.Info().Str("doctor_id", doctor.ID.Hex()).Msg("doctor added")
	return doctor, nil
}

// PublicList returns every doctor's public card with the slots currently
// booked. Profiles come from the cache when possible; slots are always read
// from the ledger.
func (s *DoctorService) PublicList(ctx context.Context) ([]models.DoctorCard, error) {
	cards, ok := s.cache.Get(ctx)
	if !ok {
		doctors, err := s.doctors.ListDoctors(ctx)
		if err != nil {
			return nil, apperr.ErrInternal.Wrap(err)
		}
		cards = make([]models.DoctorCard, 0, len(doctors))
		for i := range doctors {
			cards = append(cards, doctors[i].Card(nil))
		}
		s.cache.Set(ctx, cards)
	}

	entries, err := s.ledger.ListSlotEntries(ctx, "")
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	byDoctor := make(map[string][]models.SlotEntry)
	for _, e := range entries {
		byDoctor[e.DoctorID] = append(byDoctor[e.DoctorID], e)
	}
	for i := range cards {
		cards[i].SlotsBooked = models.GroupSlots(byDoctor[cards[i].ID])
	}
	return cards, nil
}

// All returns the full doctor records for the admin roster.
func (s *DoctorService) All(ctx context.Context) ([]models.Doctor, error) {
	doctors, err := s.doctors.ListDoctors(ctx)
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	return doctors, nil
}

func (s *DoctorService) ToggleAvailability(ctx context.Context, doctorID string) (bool, error) {
	if strings.TrimSpace(doctorID) == "" {
		return false, apperr.Validation("docId is required")
	}
	available, err := s.doctors.ToggleAvailability(ctx, doctorID)
	if errors.Is(err, store.ErrNotFound) {
		return false, apperr.ErrDoctorNotFound
	}
	if err != nil {
		return false, apperr.ErrInternal.Wrap(err)
	}
	s.cache.Invalidate(ctx)
	s.logger.Info().Str("doctor_id", doctorID).Bool("available", available).Msg("availability changed")
	return available, nil
}

func (s *DoctorService) Profile(ctx context.Context, doctorID string) (*models.DoctorCard, error) {
	doctor, err := s.doctors.FindDoctorByID(ctx, doctorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrDoctorNotFound
	}
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	entries, err := s.ledger.ListSlotEntries(ctx, doctorID)
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	card := doctor.Card(models.GroupSlots(entries))
	return &card, nil
}

// UpdateProfile changes fees, address and availability. Existing
// appointments keep the fee they were booked at.
func (s *DoctorService) UpdateProfile(ctx context.Context, doctorID string, upd models.DoctorProfileUpdate) (*models.Doctor, error) {
	if upd.Fees != nil && *upd.Fees < 0 {
		return nil, apperr.Validation("fees must not be negative")
	}
	doctor, err := s.doctors.UpdateDoctorProfile(ctx, doctorID, upd)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrDoctorNotFound
	}
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	s.cache.Invalidate(ctx)
	s.logger.Info().Str("doctor_id", doctorID).Msg("doctor profile updated")
	return doctor, nil
}

func (s *DoctorService) Appointments(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	list, err := s.appts.ListAppointments(ctx, models.AppointmentFilter{DoctorID: doctorID})
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	return list, nil
}
