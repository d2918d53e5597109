package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Gender of a user, collected during registration.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Goal is the user's primary training goal.
type Goal string

const (
	GoalMassGain    Goal = "mass_gain"
	GoalWeightLoss  Goal = "weight_loss"
	GoalMaintenance Goal = "maintenance"
)

// FitnessLevel is the user's experience tier.
type FitnessLevel string

const (
	LevelBeginner     FitnessLevel = "beginner"
	LevelIntermediate FitnessLevel = "intermediate"
	LevelAdvanced     FitnessLevel = "advanced"
)

// EquipmentType describes the equipment context plans are generated for.
type EquipmentType string

const (
	EquipmentGym        EquipmentType = "gym"
	EquipmentBodyweight EquipmentType = "bodyweight"
)

// AvailabilitySlot is one recurring weekly training window.
// Days are unique per user (enforced by the profile-editing flow).
type AvailabilitySlot struct {
	Day    time.Weekday `bson:"day" json:"day"`
	Hour   int          `bson:"hour" json:"hour"`
	Minute int          `bson:"minute" json:"minute"`
}

// User represents an end user of the coaching bot, together with the
// training profile the plan generator reads.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TelegramID int64              `bson:"telegramId" json:"telegramId"` // Unique chat identity
	Username   string             `bson:"username,omitempty" json:"username,omitempty"`

	Gender        Gender       `bson:"gender,omitempty" json:"gender,omitempty"`
	Age           int          `bson:"age,omitempty" json:"age,omitempty"`
	HeightCm      int          `bson:"heightCm,omitempty" json:"heightCm,omitempty"`
	CurrentWeight float64      `bson:"currentWeight,omitempty" json:"currentWeight,omitempty"`
	TargetWeight  float64      `bson:"targetWeight,omitempty" json:"targetWeight,omitempty"`
	Goal          Goal         `bson:"goal,omitempty" json:"goal,omitempty"`
	FitnessLevel  FitnessLevel `bson:"fitnessLevel,omitempty" json:"fitnessLevel,omitempty"`

	// WeeklyFrequency is how many sessions per week the user asked for.
	WeeklyFrequency int `bson:"weeklyFrequency,omitempty" json:"weeklyFrequency,omitempty"`

	// CurrentTrainingWeek is the absolute training-week counter. Nil until the
	// first plan is generated; advanced only by the workout service.
	CurrentTrainingWeek *int `bson:"currentTrainingWeek,omitempty" json:"currentTrainingWeek,omitempty"`

	EquipmentType EquipmentType `bson:"equipmentType,omitempty" json:"equipmentType,omitempty"`

	// Availability is the recurring weekly schedule. Empty means the slot
	// calculator falls back to one session per day at the default time.
	Availability []AvailabilitySlot `bson:"availability,omitempty" json:"availability,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// HasAvailability reports whether the user configured a recurring schedule.
func (u *User) HasAvailability() bool {
	return len(u.Availability) > 0
}
