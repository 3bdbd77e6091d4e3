package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

// RegisterRoutes mounts every endpoint on r. limiter guards the booking and
// cancellation routes and may be nil.
func (h *Handler) RegisterRoutes(r *gin.Engine, tm *utils.TokenManager, limiter *middleware.RateLimiter) {
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "API Working") })
	r.GET("/healthz", h.Health)

	auth := middleware.AuthMiddleware(tm)
	limit := limiter.Middleware(h.Logger, true)

	user := r.Group("/api/user")
	{
		user.POST("/register", h.RegisterUser)
		user.POST("/login", h.LoginUser)

		me := user.Group("", auth, middleware.RequireRole(models.RoleUser))
		me.GET("/get-profile", h.GetCurrentUser)
		me.POST("/update-profile", h.UpdateCurrentUser)
		me.POST("/book-appointment", limit, h.BookAppointment)
		me.GET("/appointments", h.GetUserAppointments)
		me.POST("/cancel-appointment", limit, h.CancelAppointment)
	}

	doctor := r.Group("/api/doctor")
	{
		doctor.GET("/list", h.ListDoctors)
		doctor.POST("/login", h.LoginDoctor)

		me := doctor.Group("", auth, middleware.RequireRole(models.RoleDoctor))
		me.GET("/appointments", h.GetDoctorAppointments)
		me.POST("/appointment-complete", h.CompleteAppointment)
		me.POST("/appointment-cancel", h.CancelAppointment)
		me.GET("/dashboard", h.DoctorDashboard)
		me.GET("/doctor-profile", h.DoctorProfile)
		me.POST("/update-doctor-profile", h.UpdateDoctorProfile)
		me.POST("/change-availability", h.ChangeAvailability)
	}

	admin := r.Group("/api/admin")
	{
		admin.POST("/login", h.LoginAdmin)

		me := admin.Group("", auth, middleware.RequireRole(models.RoleAdmin))
		me.POST("/add-doctor", h.AddDoctor)
		me.GET("/all-doctors", h.AllDoctors)
		me.POST("/change-availability", h.AdminChangeAvailability)
		me.GET("/appointments", h.GetAllAppointments)
		me.POST("/appointment-cancel", h.CancelAppointment)
		me.POST("/appointment-complete", h.CompleteAppointment)
		me.GET("/dashboard", h.AdminDashboard)
		me.GET("/ledger/audit", h.LedgerAudit)
	}
}

// Health reports whether the store is reachable.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
