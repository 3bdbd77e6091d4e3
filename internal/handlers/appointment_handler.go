package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/clinic-api/internal/booking"
	"github.com/harentsoaR/clinic-api/internal/middleware"
)

type appointmentAction struct {
	AppointmentID string `json:"appointmentId" binding:"required"`
}

func caller(c *gin.Context) booking.Caller {
	return booking.Caller{ID: middleware.UserID(c), Role: middleware.Role(c)}
}

// BookAppointment books a slot for the authenticated user.
func (h *Handler) BookAppointment(c *gin.Context) {
	var req booking.BookingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	appt, err := h.Booking.BookAppointment(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":       "Appointment booked",
		"appointmentId": appt.ID.Hex(),
		"appointment":   appt,
	})
}

// CancelAppointment serves the user, doctor and admin cancel routes. Who may
// cancel what is decided by the booking service from the caller's role.
func (h *Handler) CancelAppointment(c *gin.Context) {
	var req appointmentAction
	if !h.bindJSON(c, &req) {
		return
	}

	appt, err := h.Booking.CancelAppointment(c.Request.Context(), req.AppointmentID, caller(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment cancelled", "appointment": appt})
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	var req appointmentAction
	if !h.bindJSON(c, &req) {
		return
	}

	appt, err := h.Booking.CompleteAppointment(c.Request.Context(), req.AppointmentID, caller(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment completed", "appointment": appt})
}

// GetUserAppointments lists the caller's own appointments, newest first.
func (h *Handler) GetUserAppointments(c *gin.Context) {
	list, err := h.Dashboard.UserAppointments(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetDoctorAppointments(c *gin.Context) {
	list, err := h.Doctors.Appointments(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetAllAppointments(c *gin.Context) {
	list, err := h.Dashboard.AllAppointments(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
