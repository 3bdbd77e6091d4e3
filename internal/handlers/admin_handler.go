package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/clinic-api/internal/services"
)

func (h *Handler) AddDoctor(c *gin.Context) {
	var req services.AddDoctorRequest
	if !h.bindJSON(c, &req) {
		return
	}
	doctor, err := h.Doctors.AddDoctor(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Doctor added", "doctor": doctor})
}

func (h *Handler) AllDoctors(c *gin.Context) {
	doctors, err := h.Doctors.All(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doctors)
}

// AdminChangeAvailability toggles any doctor's availability.
func (h *Handler) AdminChangeAvailability(c *gin.Context) {
	var req struct {
		DoctorID string `json:"docId" binding:"required"`
	}
	if !h.bindJSON(c, &req) {
		return
	}
	available, err := h.Doctors.ToggleAvailability(c.Request.Context(), req.DoctorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Availability changed", "available": available})
}

func (h *Handler) AdminDashboard(c *gin.Context) {
	dash, err := h.Dashboard.Admin(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// LedgerAudit runs the slot ledger reconciliation on demand.
func (h *Handler) LedgerAudit(c *gin.Context) {
	report, err := h.Reconciler.Run(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
