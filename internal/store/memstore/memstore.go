// Package memstore is an in-memory implementation of store.Store. A single
// mutex serialises every transaction, and a transaction that returns an error
// is rolled back by restoring the snapshot taken when it began. It backs the
// test suites and the `--memory` development mode of the server.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
)

type state struct {
	users        map[string]models.User
	admins       map[string]models.Admin
	doctors      map[string]models.Doctor
	appointments map[string]models.Appointment
	ledger       map[models.SlotKey]models.SlotEntry
	events       []models.Event
}

func newState() *state {
	return &state{
		users:        make(map[string]models.User),
		admins:       make(map[string]models.Admin),
		doctors:      make(map[string]models.Doctor),
		appointments: make(map[string]models.Appointment),
		ledger:       make(map[models.SlotKey]models.SlotEntry),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.admins {
		c.admins[k] = v
	}
	for k, v := range s.doctors {
		c.doctors[k] = v
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	for k, v := range s.ledger {
		c.ledger[k] = v
	}
	c.events = append([]models.Event(nil), s.events...)
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return store.ErrTimeout
	}
	snapshot := s.st.clone()
	err := fn(ctx, &txn{st: s.st})
	if err == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = store.ErrTimeout
	}
	if err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// txn operates on the live state while the store mutex is held.
type txn struct {
	st *state
}

func (t *txn) FindUser(_ context.Context, id string) (*models.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (t *txn) FindDoctor(_ context.Context, id string) (*models.Doctor, error) {
	d, ok := t.st.doctors[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (t *txn) FindActiveAppointment(_ context.Context, doctorID, slotDate, slotTime string) (*models.Appointment, error) {
	for _, a := range t.st.appointments {
		if a.HoldsSlot() && a.DoctorID == doctorID && a.SlotDate == slotDate && a.SlotTime == slotTime {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *txn) FindAppointment(_ context.Context, id string) (*models.Appointment, error) {
	a, ok := t.st.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (t *txn) InsertAppointment(ctx context.Context, a *models.Appointment) error {
	if a.HoldsSlot() {
		if _, err := t.FindActiveAppointment(ctx, a.DoctorID, a.SlotDate, a.SlotTime); err == nil {
			return store.ErrDuplicate
		}
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	t.st.appointments[a.ID.Hex()] = *a
	return nil
}

func (t *txn) UpdateAppointmentStatus(_ context.Context, id string, change models.StatusChange) (*models.Appointment, error) {
	a, ok := t.st.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !a.IsActive() {
		return nil, store.ErrConflict
	}
	at := change.At
	a.Status = change.To
	switch change.To {
	case models.StatusCancelled:
		a.CancelledAt = &at
	case models.StatusCompleted:
		a.CompletedAt = &at
	}
	t.st.appointments[id] = a
	return &a, nil
}

func (t *txn) ReserveSlot(_ context.Context, e *models.SlotEntry) error {
	if _, taken := t.st.ledger[e.Key()]; taken {
		return store.ErrDuplicate
	}
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	t.st.ledger[e.Key()] = *e
	return nil
}

func (t *txn) ReleaseSlot(_ context.Context, key models.SlotKey, appointmentID string) error {
	e, ok := t.st.ledger[key]
	if !ok || e.AppointmentID != appointmentID {
		return store.ErrNotFound
	}
	delete(t.st.ledger, key)
	return nil
}

func (t *txn) AppendEvent(_ context.Context, e *models.Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	t.st.events = append(t.st.events, *e)
	return nil
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.st.users {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.st.users[u.ID.Hex()] = *u
	return nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txn{st: s.st}).FindUser(ctx, id)
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateUserProfile(_ context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Name, u.Phone, u.DOB, u.Gender = upd.Name, upd.Phone, upd.DOB, upd.Gender
	if upd.Address != nil {
		u.Address = *upd.Address
	}
	s.st.users[id] = u
	return &u, nil
}

func (s *Store) CountUsers(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.st.users)), nil
}

func (s *Store) CreateAdmin(_ context.Context, a *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.st.admins {
		if existing.Email == a.Email {
			return store.ErrDuplicate
		}
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	s.st.admins[a.ID.Hex()] = *a
	return nil
}

func (s *Store) FindAdminByEmail(_ context.Context, email string) (*models.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.st.admins {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateDoctor(_ context.Context, d *models.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.st.doctors {
		if existing.Email == d.Email {
			return store.ErrDuplicate
		}
	}
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	s.st.doctors[d.ID.Hex()] = *d
	return nil
}

func (s *Store) FindDoctorByID(ctx context.Context, id string) (*models.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txn{st: s.st}).FindDoctor(ctx, id)
}

func (s *Store) FindDoctorByEmail(_ context.Context, email string) (*models.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.st.doctors {
		if d.Email == email {
			return &d, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListDoctors(context.Context) ([]models.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Doctor, 0, len(s.st.doctors))
	for _, d := range s.st.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (s *Store) ToggleAvailability(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.st.doctors[id]
	if !ok {
		return false, store.ErrNotFound
	}
	d.Available = !d.Available
	s.st.doctors[id] = d
	return d.Available, nil
}

func (s *Store) UpdateDoctorProfile(_ context.Context, id string, upd models.DoctorProfileUpdate) (*models.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.st.doctors[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.Fees != nil {
		d.Fees = *upd.Fees
	}
	if upd.Address != nil {
		d.Address = *upd.Address
	}
	if upd.Available != nil {
		d.Available = *upd.Available
	}
	s.st.doctors[id] = d
	return &d, nil
}

func (s *Store) CountDoctors(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.st.doctors)), nil
}

func matches(a models.Appointment, f models.AppointmentFilter) bool {
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	if f.DoctorID != "" && a.DoctorID != f.DoctorID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

func (s *Store) ListAppointments(_ context.Context, f models.AppointmentFilter) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Appointment, 0)
	for _, a := range s.st.appointments {
		if matches(a, f) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (s *Store) CountAppointments(ctx context.Context, f models.AppointmentFilter) (int64, error) {
	list, err := s.ListAppointments(ctx, f)
	return int64(len(list)), err
}

// ListSlotEntries returns the ledger for one doctor, or the whole ledger when
// doctorID is empty.
func (s *Store) ListSlotEntries(_ context.Context, doctorID string) ([]models.SlotEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SlotEntry, 0)
	for _, e := range s.st.ledger {
		if doctorID == "" || e.DoctorID == doctorID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DoctorID != b.DoctorID {
			return a.DoctorID < b.DoctorID
		}
		if a.SlotDate != b.SlotDate {
			return a.SlotDate < b.SlotDate
		}
		return a.SlotTime < b.SlotTime
	})
	return out, nil
}

func (s *Store) FetchUnpublished(_ context.Context, limit int) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, 0)
	for _, e := range s.st.events {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkPublished(_ context.Context, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for i := range s.st.events {
		if _, ok := want[s.st.events[i].ID.Hex()]; ok {
			published := at
			s.st.events[i].PublishedAt = &published
		}
	}
	return nil
}
