package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
)

func TestReserveSlotIsUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	entry := models.SlotEntry{DoctorID: "d1", SlotDate: "25_6_2025", SlotTime: "10:00 AM"}

	err := s.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		first := entry
		return tx.ReserveSlot(ctx, &first)
	})
	require.NoError(t, err)

	err = s.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		second := entry
		return tx.ReserveSlot(ctx, &second)
	})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestFailedTransactionRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		a := &models.Appointment{DoctorID: "d1", SlotDate: "1_1_2026", SlotTime: "9:00 AM", Status: models.StatusActive}
		require.NoError(t, tx.InsertAppointment(ctx, a))
		require.NoError(t, tx.ReserveSlot(ctx, &models.SlotEntry{DoctorID: "d1", SlotDate: "1_1_2026", SlotTime: "9:00 AM"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	list, err := s.ListAppointments(ctx, models.AppointmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	entries, err := s.ListSlotEntries(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestActiveAppointmentUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()
	insert := func(status models.AppointmentStatus) error {
		return s.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.InsertAppointment(ctx, &models.Appointment{
				DoctorID: "d1", SlotDate: "1_1_2026", SlotTime: "9:00 AM", Status: status,
			})
		})
	}

	require.NoError(t, insert(models.StatusCancelled))
	require.NoError(t, insert(models.StatusActive))
	assert.ErrorIs(t, insert(models.StatusActive), store.ErrDuplicate)
}

func TestUpdateStatusRequiresActive(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := &models.Appointment{DoctorID: "d1", SlotDate: "1_1_2026", SlotTime: "9:00 AM", Status: models.StatusActive}
	require.NoError(t, s.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertAppointment(ctx, a)
	}))

	now := time.Now()
	err := s.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		updated, err := tx.UpdateAppointmentStatus(ctx, a.ID.Hex(), models.StatusChange{To: models.StatusCancelled, At: now})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, updated.Status)
		require.NotNil(t, updated.CancelledAt)
		_, err = tx.UpdateAppointmentStatus(ctx, a.ID.Hex(), models.StatusChange{To: models.StatusCompleted, At: now})
		return err
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestExpiredContextTimesOut(t *testing.T) {
	s := New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := s.InTransaction(ctx, func(context.Context, store.Tx) error { return nil })
	assert.ErrorIs(t, err, store.ErrTimeout)
}

func TestOutboxPublishing(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		for i := 0; i < 3; i++ {
			if err := tx.AppendEvent(ctx, &models.Event{Type: models.EventAppointmentBooked}); err != nil {
				return err
			}
		}
		return nil
	}))

	batch, err := s.FetchUnpublished(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	require.NoError(t, s.MarkPublished(ctx, []string{batch[0].ID.Hex(), batch[1].ID.Hex()}, time.Now()))
	rest, err := s.FetchUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestReleaseSlotOnlyFreesOwnEntry(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := models.SlotKey{DoctorID: "d1", SlotDate: "1_1_2026", SlotTime: "9:00 AM"}
	require.NoError(t, s.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.ReserveSlot(ctx, &models.SlotEntry{
			DoctorID: key.DoctorID, SlotDate: key.SlotDate, SlotTime: key.SlotTime, AppointmentID: "owner",
		})
	}))

	err := s.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.ReleaseSlot(ctx, key, "someone-else")
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
	entries, err := s.ListSlotEntries(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, s.InTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.ReleaseSlot(ctx, key, "owner")
	}))
	entries, err = s.ListSlotEntries(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
