package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/clinic-api/internal/models"
)

// EnsureIndexes creates the unique constraints the booking workflow relies
// on. It is idempotent and also creates the collections, which must exist
// before they can be written inside a transaction on older servers.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for coll, idx := range indexSpecs() {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// heldSlotFilter matches the appointments that hold their slot, the same rule
// as models.Appointment.HoldsSlot. $in in a partial filter needs MongoDB 6.0+.
var heldSlotFilter = bson.M{
	"status": bson.M{"$in": bson.A{models.StatusActive, models.StatusCompleted}},
}

func indexSpecs() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		usersColl: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		},
		adminsColl: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		},
		doctorsColl: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		},
		ledgerColl: {
			{
				Keys:    bson.D{{Key: "doctorId", Value: 1}, {Key: "slotDate", Value: 1}, {Key: "slotTime", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_slot"),
			},
		},
		appointmentsColl: {
			{
				Keys: bson.D{{Key: "docId", Value: 1}, {Key: "slotDate", Value: 1}, {Key: "slotTime", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName("uniq_held_slot").
					SetPartialFilterExpression(heldSlotFilter),
			},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("by_user")},
			{Keys: bson.D{{Key: "docId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("by_doctor")},
		},
		outboxColl: {
			{Keys: bson.D{{Key: "publishedAt", Value: 1}, {Key: "createdAt", Value: 1}}, Options: options.Index().SetName("unpublished")},
		},
	}
}
