package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/clinic-api/internal/models"
)

func appointmentFilter(f models.AppointmentFilter) bson.M {
	filter := bson.M{}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.DoctorID != "" {
		filter["docId"] = f.DoctorID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

func (s *Store) ListAppointments(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.db.Collection(appointmentsColl).Find(ctx, appointmentFilter(f), opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	appointments := make([]models.Appointment, 0)
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, translate(err)
	}
	return appointments, nil
}

func (s *Store) CountAppointments(ctx context.Context, f models.AppointmentFilter) (int64, error) {
	n, err := s.db.Collection(appointmentsColl).CountDocuments(ctx, appointmentFilter(f))
	return n, translate(err)
}

// ListSlotEntries returns the ledger for one doctor, or the whole ledger when
// doctorID is empty.
func (s *Store) ListSlotEntries(ctx context.Context, doctorID string) ([]models.SlotEntry, error) {
	filter := bson.M{}
	if doctorID != "" {
		filter["doctorId"] = doctorID
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "doctorId", Value: 1},
		{Key: "slotDate", Value: 1},
		{Key: "slotTime", Value: 1},
	})
	cursor, err := s.db.Collection(ledgerColl).Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	entries := make([]models.SlotEntry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, translate(err)
	}
	return entries, nil
}

func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.db.Collection(outboxColl).Find(ctx, bson.M{"publishedAt": bson.M{"$exists": false}}, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	events := make([]models.Event, 0)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, translate(err)
	}
	return events, nil
}

func (s *Store) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}
	if len(oids) == 0 {
		return nil
	}
	_, err := s.db.Collection(outboxColl).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": oids}},
		bson.M{"$set": bson.M{"publishedAt": at}},
	)
	return translate(err)
}
