package mongostore_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/booking"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
	"github.com/harentsoaR/clinic-api/internal/store/mongostore"
)

// These tests need a replica set, e.g.
//
//	MONGO_TEST_URI="mongodb://localhost:27017/?replicaSet=rs0" go test ./internal/store/mongostore/
//
// Each test gets its own database, dropped on cleanup.

type testEnv struct {
	store  *mongostore.Store
	user   *models.User
	doctor *models.Doctor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := fmt.Sprintf("clinic_test_%s", primitive.NewObjectID().Hex())
	s, err := mongostore.Connect(ctx, uri, dbName, 10*time.Second)
	require.NoError(t, err)

	admin, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := admin.Database(dbName).Drop(ctx); err != nil {
			t.Logf("warning: failed to drop %s: %v", dbName, err)
		}
		_ = admin.Disconnect(ctx)
		_ = s.Close(ctx)
	})

	require.NoError(t, s.EnsureIndexes(ctx))
	// Idempotent on an existing database.
	require.NoError(t, s.EnsureIndexes(ctx))

	user := &models.User{Name: "Asha Rao", Email: "asha@example.com"}
	doctor := &models.Doctor{Name: "Dr. Mehta", Email: "mehta@clinic.test", Available: true, Fees: 500}
	require.NoError(t, s.CreateUser(ctx, user))
	require.NoError(t, s.CreateDoctor(ctx, doctor))

	return &testEnv{store: s, user: user, doctor: doctor}
}

func (e *testEnv) request(slotTime string) booking.BookingRequest {
	return booking.BookingRequest{DoctorID: e.doctor.ID.Hex(), SlotDate: "25_6_2025", SlotTime: slotTime}
}

func (e *testEnv) ledger(t *testing.T) []models.SlotEntry {
	t.Helper()
	entries, err := e.store.ListSlotEntries(context.Background(), e.doctor.ID.Hex())
	require.NoError(t, err)
	return entries
}

func TestMongoConcurrentBookingHasOneWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := booking.NewService(env.store, zerolog.Nop(), nil)

	const callers = 8
	users := make([]string, callers)
	for i := range users {
		u := &models.User{Name: fmt.Sprintf("Patient %d", i), Email: fmt.Sprintf("p%d@example.com", i)}
		require.NoError(t, env.store.CreateUser(ctx, u))
		users[i] = u.ID.Hex()
	}

	start := make(chan struct{})
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for _, userID := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			<-start
			_, err := svc.BookAppointment(ctx, userID, env.request("10:00 AM"))
			results <- err
		}(userID)
	}
	close(start)
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrSlotAlreadyBooked)
	}
	assert.Equal(t, 1, wins)

	entries := env.ledger(t)
	require.Len(t, entries, 1)
	active, err := env.store.CountAppointments(ctx, models.AppointmentFilter{Status: models.StatusActive})
	require.NoError(t, err)
	assert.EqualValues(t, 1, active)
}

func TestMongoCancelReleasesSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := booking.NewService(env.store, zerolog.Nop(), nil)
	caller := booking.Caller{ID: env.user.ID.Hex(), Role: models.RoleUser}

	appt, err := svc.BookAppointment(ctx, env.user.ID.Hex(), env.request("10:00 AM"))
	require.NoError(t, err)
	require.Len(t, env.ledger(t), 1)

	cancelled, err := svc.CancelAppointment(ctx, appt.ID.Hex(), caller)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Empty(t, env.ledger(t))

	_, err = svc.CancelAppointment(ctx, appt.ID.Hex(), caller)
	assert.ErrorIs(t, err, apperr.ErrAlreadyCancelled)

	_, err = svc.BookAppointment(ctx, env.user.ID.Hex(), env.request("10:00 AM"))
	require.NoError(t, err)
}

func TestMongoRacingCancelsHaveOneWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := booking.NewService(env.store, zerolog.Nop(), nil)

	appt, err := svc.BookAppointment(ctx, env.user.ID.Hex(), env.request("10:00 AM"))
	require.NoError(t, err)

	callers := []booking.Caller{
		{ID: env.user.ID.Hex(), Role: models.RoleUser},
		{ID: env.doctor.ID.Hex(), Role: models.RoleDoctor},
		{ID: primitive.NewObjectID().Hex(), Role: models.RoleAdmin},
	}
	start := make(chan struct{})
	results := make(chan error, len(callers))
	var wg sync.WaitGroup
	for _, c := range callers {
		wg.Add(1)
		go func(c booking.Caller) {
			defer wg.Done()
			<-start
			_, err := svc.CancelAppointment(ctx, appt.ID.Hex(), c)
			results <- err
		}(c)
	}
	close(start)
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrAlreadyCancelled)
	}
	assert.Equal(t, 1, wins)
	assert.Empty(t, env.ledger(t))
}

func TestMongoFailedTransactionRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := env.store.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		a := &models.Appointment{
			DoctorID: env.doctor.ID.Hex(), SlotDate: "25_6_2025", SlotTime: "10:00 AM",
			UserID: env.user.ID.Hex(), Status: models.StatusActive, CreatedAt: time.Now().UTC(),
		}
		if err := tx.InsertAppointment(ctx, a); err != nil {
			return err
		}
		if err := tx.ReserveSlot(ctx, &models.SlotEntry{
			DoctorID: a.DoctorID, SlotDate: a.SlotDate, SlotTime: a.SlotTime, AppointmentID: a.ID.Hex(),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := env.store.CountAppointments(ctx, models.AppointmentFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, env.ledger(t))
}

// failingOutbox fails the outbox write after the appointment and ledger
// writes of the same transaction went through.
type failingOutbox struct {
	*mongostore.Store
}

func (f failingOutbox) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return f.Store.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, failingOutboxTx{tx})
	})
}

type failingOutboxTx struct {
	store.Tx
}

func (failingOutboxTx) AppendEvent(context.Context, *models.Event) error {
	return errors.New("outbox unavailable")
}

func TestMongoBookingRollsBackOnOutboxFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := booking.NewService(failingOutbox{env.store}, zerolog.Nop(), nil)

	_, err := svc.BookAppointment(ctx, env.user.ID.Hex(), env.request("10:00 AM"))
	require.ErrorIs(t, err, apperr.ErrTransactionFailed)

	n, err := env.store.CountAppointments(ctx, models.AppointmentFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, env.ledger(t))
	events, err := env.store.FetchUnpublished(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMongoStatusChangeRequiresActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := booking.NewService(env.store, zerolog.Nop(), nil)

	appt, err := svc.BookAppointment(ctx, env.user.ID.Hex(), env.request("10:00 AM"))
	require.NoError(t, err)

	completed, err := svc.CompleteAppointment(ctx, appt.ID.Hex(), booking.Caller{ID: env.doctor.ID.Hex(), Role: models.RoleDoctor})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.Len(t, env.ledger(t), 1)

	err = env.store.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.UpdateAppointmentStatus(ctx, appt.ID.Hex(), models.StatusChange{To: models.StatusCancelled, At: time.Now()})
		return err
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestMongoHeldSlotIndexCoversCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	insert := func(status models.AppointmentStatus) error {
		return env.store.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.InsertAppointment(ctx, &models.Appointment{
				DoctorID: env.doctor.ID.Hex(), SlotDate: "25_6_2025", SlotTime: "10:00 AM", Status: status,
			})
		})
	}

	require.NoError(t, insert(models.StatusCancelled))
	require.NoError(t, insert(models.StatusCancelled))
	require.NoError(t, insert(models.StatusCompleted))
	assert.ErrorIs(t, insert(models.StatusActive), store.ErrDuplicate)
}

func TestMongoReleaseSlotChecksOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	key := models.SlotKey{DoctorID: env.doctor.ID.Hex(), SlotDate: "25_6_2025", SlotTime: "10:00 AM"}

	require.NoError(t, env.store.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.ReserveSlot(ctx, &models.SlotEntry{
			DoctorID: key.DoctorID, SlotDate: key.SlotDate, SlotTime: key.SlotTime, AppointmentID: "owner",
		})
	}))

	err := env.store.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.ReleaseSlot(ctx, key, "someone-else")
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.Len(t, env.ledger(t), 1)

	require.NoError(t, env.store.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.ReleaseSlot(ctx, key, "owner")
	}))
	assert.Empty(t, env.ledger(t))
}
