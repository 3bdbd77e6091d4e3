package handlers

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/harentsoaR/clinic-api/internal/booking"
	"github.com/harentsoaR/clinic-api/internal/cache"
	"github.com/harentsoaR/clinic-api/internal/services"
	"github.com/harentsoaR/clinic-api/internal/store"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

// Handler holds the services behind every HTTP endpoint.
type Handler struct {
	Store      store.Store
	Booking    *booking.Service
	Reconciler *booking.Reconciler
	Accounts   *services.AccountService
	Doctors    *services.DoctorService
	Dashboard  *services.DashboardService
	Logger     zerolog.Logger
}

// NewHandler wires the services on top of s. doctorCache may be nil.
func NewHandler(s store.Store, tokens *utils.TokenManager, doctorCache *cache.DoctorCache, logger zerolog.Logger) *Handler {
	return &Handler{
		Store:      s,
		Booking:    booking.NewService(s, logger, time.Now),
		Reconciler: booking.NewReconciler(s, logger),
		Accounts:   services.NewAccountService(s, tokens, logger),
		Doctors:    services.NewDoctorService(s, doctorCache, logger),
		Dashboard:  services.NewDashboardService(s),
		Logger:     logger,
	}
}
