package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/services"
	"github.com/harentsoaR/clinic-api/internal/store/memstore"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type testAPI struct {
	t        *testing.T
	router   *gin.Engine
	doctorID string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	s := memstore.New()
	tm := utils.NewTokenManager("0123456789abcdef-test", time.Hour)
	h := NewHandler(s, tm, nil, zerolog.Nop())

	ctx := context.Background()
	_, err := h.Accounts.CreateAdmin(ctx, "Root", "admin@clinic.test", "adminpass1")
	require.NoError(t, err)
	doc, err := h.Doctors.AddDoctor(ctx, services.AddDoctorRequest{
		Name: "Dr. Mehta", Email: "mehta@clinic.test", Password: "doctorpass",
		Speciality: "Dermatologist", Degree: "MBBS", Experience: "4 Years", About: "Skin", Fees: 500,
	})
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.RequestID())
	h.RegisterRoutes(r, tm, nil)
	return &testAPI{t: t, router: r, doctorID: doc.ID.Hex()}
}

func (a *testAPI) call(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (a *testAPI) login(path, email, password string) string {
	a.t.Helper()
	w, out := a.call(http.MethodPost, path, "", gin.H{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return out["token"].(string)
}

func (a *testAPI) register(name, email string) string {
	a.t.Helper()
	w, out := a.call(http.MethodPost, "/api/user/register", "", gin.H{"name": name, "email": email, "password": "s3cretpass"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return out["token"].(string)
}

func (a *testAPI) book(token, slotTime string) (*httptest.ResponseRecorder, map[string]any) {
	return a.call(http.MethodPost, "/api/user/book-appointment", token, gin.H{
		"docId": a.doctorID, "slotDate": "25_6_2025", "slotTime": slotTime,
	})
}

func TestBookingFlow(t *testing.T) {
	api := newTestAPI(t)
	asha := api.register("Asha", "asha@example.com")
	ben := api.register("Ben", "ben@example.com")

	w, out := api.book(asha, "10:00 AM")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	apptID := out["appointmentId"].(string)
	assert.NotEmpty(t, apptID)
	appt := out["appointment"].(map[string]any)
	assert.Equal(t, 500.0, appt["amount"])
	assert.Equal(t, "active", appt["status"])

	w, out = api.book(ben, "10:00 AM")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SLOT_ALREADY_BOOKED", out["code"])
	assert.Equal(t, "conflict", out["kind"])

	w, _ = api.call(http.MethodGet, "/api/doctor/list", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cards []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cards))
	require.Len(t, cards, 1)
	assert.Equal(t, map[string]any{"25_6_2025": []any{"10:00 AM"}}, cards[0]["slotsBooked"])

	w, out = api.call(http.MethodPost, "/api/user/cancel-appointment", ben, gin.H{"appointmentId": apptID})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "UNAUTHORIZED", out["code"])

	w, _ = api.call(http.MethodPost, "/api/user/cancel-appointment", asha, gin.H{"appointmentId": apptID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, out = api.call(http.MethodPost, "/api/user/cancel-appointment", asha, gin.H{"appointmentId": apptID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_CANCELLED", out["code"])

	w, _ = api.book(ben, "10:00 AM")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = api.call(http.MethodGet, "/api/user/appointments", asha, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "25-6-2025", mine[0]["slotDate"])
	assert.Equal(t, "cancelled", mine[0]["status"])
}

func TestDoctorAndAdminFlow(t *testing.T) {
	api := newTestAPI(t)
	asha := api.register("Asha", "asha@example.com")
	doctor := api.login("/api/doctor/login", "mehta@clinic.test", "doctorpass")
	admin := api.login("/api/admin/login", "admin@clinic.test", "adminpass1")

	_, out := api.book(asha, "10:00 AM")
	first := out["appointmentId"].(string)
	_, out = api.book(asha, "11:00 AM")
	second := out["appointmentId"].(string)

	w, out := api.call(http.MethodPost, "/api/doctor/appointment-complete", asha, gin.H{"appointmentId": first})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.call(http.MethodPost, "/api/doctor/appointment-complete", doctor, gin.H{"appointmentId": first})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, out = api.call(http.MethodPost, "/api/admin/appointment-complete", admin, gin.H{"appointmentId": first})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_COMPLETED", out["code"])

	w, _ = api.call(http.MethodPost, "/api/admin/appointment-cancel", admin, gin.H{"appointmentId": second})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, out = api.call(http.MethodGet, "/api/doctor/dashboard", doctor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 500.0, out["earnings"])
	assert.Equal(t, 2.0, out["appointments"])

	w, out = api.call(http.MethodGet, "/api/admin/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, out["doctors"])
	assert.Equal(t, 1.0, out["patients"])

	w, out = api.call(http.MethodGet, "/api/admin/ledger/audit", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, out["ledgerSlots"])
	assert.Empty(t, out["orphaned"])
	assert.Empty(t, out["missing"])

	w, _ = api.call(http.MethodGet, "/api/admin/dashboard", asha, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, out = api.call(http.MethodPost, "/api/admin/change-availability", admin, gin.H{"docId": api.doctorID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, out["available"])

	w, out = api.book(asha, "12:00 PM")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DOCTOR_UNAVAILABLE", out["code"])

	w, out = api.call(http.MethodPost, "/api/doctor/login", "", gin.H{"email": "mehta@clinic.test", "password": "doctorpass"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ACCOUNT_INACTIVE", out["code"])
}

func TestRequestValidation(t *testing.T) {
	api := newTestAPI(t)
	asha := api.register("Asha", "asha@example.com")

	w, out := api.call(http.MethodPost, "/api/user/book-appointment", asha, gin.H{"docId": api.doctorID, "slotDate": "June 25", "slotTime": "10:00 AM"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", out["code"])

	w, _ = api.call(http.MethodPost, "/api/user/cancel-appointment", asha, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = api.call(http.MethodPost, "/api/user/cancel-appointment", asha, gin.H{"appointmentId": "64b7f0c2a1b2c3d4e5f60718"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "APPOINTMENT_NOT_FOUND", out["code"])

	w, _ = api.call(http.MethodPost, "/api/user/book-appointment", "", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, out = api.call(http.MethodPost, "/api/user/login", "", gin.H{"email": "asha@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", out["code"])
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	w, out := api.call(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", out["status"])
}
