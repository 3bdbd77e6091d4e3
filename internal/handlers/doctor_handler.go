package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/models"
)

// ListDoctors is the public doctor listing.
func (h *Handler) ListDoctors(c *gin.Context) {
	cards, err := h.Doctors.PublicList(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *Handler) DoctorProfile(c *gin.Context) {
	profile, err := h.Doctors.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) UpdateDoctorProfile(c *gin.Context) {
	var req struct {
		Fees      *float64        `json:"fees"`
		Address   *models.Address `json:"address"`
		Available *bool           `json:"available"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	doctor, err := h.Doctors.UpdateProfile(c.Request.Context(), middleware.UserID(c), models.DoctorProfileUpdate{
		Fees:      req.Fees,
		Address:   req.Address,
		Available: req.Available,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "doctor": doctor})
}

// ChangeAvailability toggles the calling doctor's availability.
func (h *Handler) ChangeAvailability(c *gin.Context) {
	available, err := h.Doctors.ToggleAvailability(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Availability changed", "available": available})
}

func (h *Handler) DoctorDashboard(c *gin.Context) {
	dash, err := h.Dashboard.Doctor(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}
