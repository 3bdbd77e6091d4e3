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

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	_, err := s.db.Collection(usersColl).InsertOne(ctx, u)
	return translate(err)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return (&txn{db: s.db}).FindUser(ctx, id)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.Collection(usersColl).FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UpdateUserProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	set := bson.M{
		"name":   upd.Name,
		"phone":  upd.Phone,
		"dob":    upd.DOB,
		"gender": upd.Gender,
	}
	if upd.Address != nil {
		set["address"] = upd.Address
	}

	var u models.User
	err = s.db.Collection(usersColl).FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(withoutPassword),
	).Decode(&u)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.db.Collection(usersColl).CountDocuments(ctx, bson.M{})
	return n, translate(err)
}

func (s *Store) CreateAdmin(ctx context.Context, a *models.Admin) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	_, err := s.db.Collection(adminsColl).InsertOne(ctx, a)
	return translate(err)
}

func (s *Store) FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	if err := s.db.Collection(adminsColl).FindOne(ctx, bson.M{"email": email}).Decode(&a); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) CreateDoctor(ctx context.Context, d *models.Doctor) error {
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	_, err := s.db.Collection(doctorsColl).InsertOne(ctx, d)
	return translate(err)
}

func (s *Store) FindDoctorByID(ctx context.Context, id string) (*models.Doctor, error) {
	return (&txn{db: s.db}).FindDoctor(ctx, id)
}

// FindDoctorByEmail includes the password hash; it is only used for login.
func (s *Store) FindDoctorByEmail(ctx context.Context, email string) (*models.Doctor, error) {
	var d models.Doctor
	if err := s.db.Collection(doctorsColl).FindOne(ctx, bson.M{"email": email}).Decode(&d); err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *Store) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	cursor, err := s.db.Collection(doctorsColl).Find(ctx, bson.M{},
		options.Find().SetProjection(withoutPassword).SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	doctors := make([]models.Doctor, 0)
	if err := cursor.All(ctx, &doctors); err != nil {
		return nil, translate(err)
	}
	return doctors, nil
}

func (s *Store) ToggleAvailability(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, store.ErrNotFound
	}
	flip := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "available", Value: bson.D{{Key: "$not", Value: "$available"}}}}}},
	}
	var d models.Doctor
	err = s.db.Collection(doctorsColl).FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		flip,
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(bson.M{"available": 1}),
	).Decode(&d)
	if err != nil {
		return false, translate(err)
	}
	return d.Available, nil
}

func (s *Store) UpdateDoctorProfile(ctx context.Context, id string, upd models.DoctorProfileUpdate) (*models.Doctor, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	set := bson.M{}
	if upd.Fees != nil {
		set["fees"] = *upd.Fees
	}
	if upd.Address != nil {
		set["address"] = *upd.Address
	}
	if upd.Available != nil {
		set["available"] = *upd.Available
	}
	if len(set) == 0 {
		return s.FindDoctorByID(ctx, id)
	}

	var d models.Doctor
	err = s.db.Collection(doctorsColl).FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(withoutPassword),
	).Decode(&d)
	if err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *Store) CountDoctors(ctx context.Context) (int64, error) {
	n, err := s.db.Collection(doctorsColl).CountDocuments(ctx, bson.M{})
	return n, translate(err)
}
