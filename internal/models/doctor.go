package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Doctor struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Password   string             `bson:"password" json:"-"`
	Image      string             `bson:"image" json:"image"`
	Speciality string             `bson:"speciality" json:"speciality"`
	Degree     string             `bson:"degree" json:"degree"`
	Experience string             `bson:"experience" json:"experience"`
	About      string             `bson:"about" json:"about"`
	Available  bool               `bson:"available" json:"available"`
	Fees       float64            `bson:"fees" json:"fees"`
	Address    Address            `bson:"address" json:"address"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// DoctorCard is the public listing view of a doctor, with the slots that are
// currently taken so clients can grey them out.
type DoctorCard struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Image       string              `json:"image"`
	Speciality  string              `json:"speciality"`
	Degree      string              `json:"degree"`
	Experience  string              `json:"experience"`
	About       string              `json:"about"`
	Available   bool                `json:"available"`
	Fees        float64             `json:"fees"`
	Address     Address             `json:"address"`
	SlotsBooked map[string][]string `json:"slotsBooked"`
}

func (d *Doctor) Card(slots map[string][]string) DoctorCard {
	if slots == nil {
		slots = map[string][]string{}
	}
	return DoctorCard{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Image:       d.Image,
		Speciality:  d.Speciality,
		Degree:      d.Degree,
		Experience:  d.Experience,
		About:       d.About,
		Available:   d.Available,
		Fees:        d.Fees,
		Address:     d.Address,
		SlotsBooked: slots,
	}
}

// DoctorProfileUpdate holds the fields a doctor may change on their own record.
// Nil pointers leave the stored value untouched.
type DoctorProfileUpdate struct {
	Fees      *float64
	Address   *Address
	Available *bool
}
