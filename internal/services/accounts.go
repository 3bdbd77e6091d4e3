package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

const minPasswordLen = 8

// AccountService handles registration, login and profile management for the
// three principal kinds.
type AccountService struct {
	users   store.UserRepository
	admins  store.AdminRepository
	doctors store.DoctorRepository
	tokens  *utils.TokenManager
	logger  zerolog.Logger
	now     func() time.Time
}

func NewAccountService(s store.Store, tokens *utils.TokenManager, logger zerolog.Logger) *AccountService {
	return &AccountService{
		users:   s,
		admins:  s,
		doctors: s,
		tokens:  tokens,
		logger:  logger.With().Str("component", "accounts").Logger(),
		now:     time.Now,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return apperr.Validation("please enter a valid email")
	}
	if len(password) < minPasswordLen {
		return apperr.Validation("please enter a strong password of at least %d characters", minPasswordLen)
	}
	return nil
}

// Register creates a user account and returns a session token for it.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (string, *models.User, error) {
	email := normalizeEmail(req.Email)
	if err := validateCredentials(req.Name, email, req.Password); err != nil {
		return "", nil, err
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return "", nil, apperr.ErrInternal.Wrap(err)
	}
	user := &models.User{
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Password:  hashed,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", nil, apperr.ErrEmailTaken
		}
		return "", nil, apperr.ErrInternal.Wrap(err)
	}

	token, err := s.tokens.GenerateJWT(user.ID.Hex(), string(models.RoleUser))
	if err != nil {
		return "", nil, apperr.ErrInternal.Wrap(err)
	}
	s.logger.Info().Str("user_id", user.ID.Hex()).Msg("user registered")
	return token, user, nil
}

func (s *AccountService) LoginUser(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return "", apperr.ErrInvalidCredentials
	}
	if err != nil {
		return "", apperr.ErrInternal.Wrap(err)
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return "", apperr.ErrInvalidCredentials
	}
	return s.issue(user.ID.Hex(), models.RoleUser)
}

// LoginDoctor rejects doctors whose availability has been switched off; an
// admin has to switch it back on.
func (s *AccountService) LoginDoctor(ctx context.Context, email, password string) (string, error) {
	doctor, err := s.doctors.FindDoctorByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return "", apperr.ErrInvalidCredentials
	}
	if err != nil {
		return "", apperr.ErrInternal.Wrap(err)
	}
	if !utils.CheckPasswordHash(password, doctor.Password) {
		return "", apperr.ErrInvalidCredentials
	}
	if !doctor.Available {
		return "", apperr.ErrAccountInactive
	}
	return s.issue(doctor.ID.Hex(), models.RoleDoctor)
}

func (s *AccountService) LoginAdmin(ctx context.Context, email, password string) (string, error) {
	admin, err := s.admins.FindAdminByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return "", apperr.ErrInvalidCredentials
	}
	if err != nil {
		return "", apperr.ErrInternal.Wrap(err)
	}
	if !utils.CheckPasswordHash(password, admin.Password) {
		return "", apperr.ErrInvalidCredentials
	}
	return s.issue(admin.ID.Hex(), models.RoleAdmin)
}

func (s *AccountService) issue(id string, role models.Role) (string, error) {
	token, err := s.tokens.GenerateJWT(id, string(role))
	if err != nil {
		return "", apperr.ErrInternal.Wrap(err)
	}
	s.logger.Debug().Str("principal_id", id).Str("role", string(role)).Msg("token issued")
	return token, nil
}

func (s *AccountService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	return user, nil
}

// UpdateProfile replaces the editable profile fields. Appointments booked
// earlier keep the snapshot taken at booking time.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error) {
	upd.Name = strings.TrimSpace(upd.Name)
	upd.Phone = strings.TrimSpace(upd.Phone)
	if upd.Name == "" || upd.Phone == "" || upd.DOB == "" || upd.Gender == "" {
		return nil, apperr.Validation("name, phone, dob and gender are required")
	}
	user, err := s.users.UpdateUserProfile(ctx, userID, upd)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	s.logger.Info().Str("user_id", userID).Msg("profile updated")
	return user, nil
}

// CreateAdmin provisions an admin account. It backs the create-admin command.
func (s *AccountService) CreateAdmin(ctx context.Context, name, email, password string) (*models.Admin, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(name, email, password); err != nil {
		return nil, err
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, apperr.ErrInternal.Wrap(err)
	}
	admin := &models.Admin{
		Name:      strings.TrimSpace(name),
		Email:     email,
		Password:  hashed,
		CreatedAt: s.now().UTC(),
	}
	if err := s.admins.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ErrEmailTaken
		}
		return nil, apperr.ErrInternal.Wrap(err)
	}
	s.logger.Info().Str("admin_id", admin.ID.Hex()).Msg("admin created")
	return admin, nil
}
