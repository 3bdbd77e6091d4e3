package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
)

var withoutPassword = bson.M{"password": 0}

// txn issues every operation with the session context it is handed, so all of
// them join the surrounding transaction.
type txn struct {
	db *mongo.Database
}

func findByID[T any](ctx context.Context, coll *mongo.Collection, id string, opts ...*options.FindOneOptions) (*T, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	var out T
	if err := coll.FindOne(ctx, bson.M{"_id": oid}, opts...).Decode(&out); err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (t *txn) FindUser(ctx context.Context, id string) (*models.User, error) {
	return findByID[models.User](ctx, t.db.Collection(usersColl), id,
		options.FindOne().SetProjection(withoutPassword))
}

func (t *txn) FindDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	return findByID[models.Doctor](ctx, t.db.Collection(doctorsColl), id,
		options.FindOne().SetProjection(withoutPassword))
}

func (t *txn) FindActiveAppointment(ctx context.Context, doctorID, slotDate, slotTime string) (*models.Appointment, error) {
	filter := bson.M{
		"docId":    doctorID,
		"slotDate": slotDate,
		"slotTime": slotTime,
		"status":   bson.M{"$ne": models.StatusCancelled},
	}
	var a models.Appointment
	if err := t.db.Collection(appointmentsColl).FindOne(ctx, filter).Decode(&a); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (t *txn) FindAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	return findByID[models.Appointment](ctx, t.db.Collection(appointmentsColl), id)
}

func (t *txn) InsertAppointment(ctx context.Context, a *models.Appointment) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	_, err := t.db.Collection(appointmentsColl).InsertOne(ctx, a)
	return translate(err)
}

func (t *txn) UpdateAppointmentStatus(ctx context.Context, id string, change models.StatusChange) (*models.Appointment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	set := bson.M{"status": change.To}
	switch change.To {
	case models.StatusCancelled:
		set["cancelledAt"] = change.At
	case models.StatusCompleted:
		set["completedAt"] = change.At
	}

	var updated models.Appointment
	err = t.db.Collection(appointmentsColl).FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "status": models.StatusActive},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrConflict
	}
	if err != nil {
		return nil, translate(err)
	}
	return &updated, nil
}

func (t *txn) ReserveSlot(ctx context.Context, e *models.SlotEntry) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	_, err := t.db.Collection(ledgerColl).InsertOne(ctx, e)
	return translate(err)
}

func (t *txn) ReleaseSlot(ctx context.Context, key models.SlotKey, appointmentID string) error {
	res, err := t.db.Collection(ledgerColl).DeleteOne(ctx, bson.M{
		"doctorId":      key.DoctorID,
		"slotDate":      key.SlotDate,
		"slotTime":      key.SlotTime,
		"appointmentId": appointmentID,
	})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *txn) AppendEvent(ctx context.Context, e *models.Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	_, err := t.db.Collection(outboxColl).InsertOne(ctx, e)
	return translate(err)
}
