package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionStatus type for the session lifecycle.
type SessionStatus string

const (
	SessionPlanned   SessionStatus = "planned"
	SessionSent      SessionStatus = "sent"
	SessionCompleted SessionStatus = "completed"
	SessionSkipped   SessionStatus = "skipped"
)

// SessionExercise is one exercise assignment within a scheduled session.
type SessionExercise struct {
	ExerciseID  primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	Name        string             `bson:"name" json:"name"` // Denormalized for message formatting
	MuscleGroup string             `bson:"muscleGroup,omitempty" json:"muscleGroup,omitempty"`
	Sets        int                `bson:"sets" json:"sets"`
	Reps        string             `bson:"reps" json:"reps"` // "8-12", "10-15" or "AMRAP"
	Order       int                `bson:"order" json:"order"`
	GifKey      string             `bson:"gifKey,omitempty" json:"gifKey,omitempty"`
}

// Session is a single scheduled training occurrence. Sessions are created in
// bulk when a weekly plan is persisted; the delivery job flips the status to
// "sent", completion flows own the terminal transitions.
type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	PlannedAt time.Time          `bson:"plannedAt" json:"plannedAt"`
	Status    SessionStatus      `bson:"status" json:"status"`

	// CycleID ties together every session created by one orchestrator run.
	// "Most recent cycle" queries key off it.
	CycleID string `bson:"cycleId" json:"cycleId"`
	// CycleWeek is the absolute training week this session was generated for.
	CycleWeek int `bson:"cycleWeek" json:"cycleWeek"`
	// EquipmentType the cycle was generated against. A mismatch with the
	// user's current profile forces a cycle restart on the next generation.
	EquipmentType EquipmentType `bson:"equipmentType" json:"equipmentType"`

	Focus     string            `bson:"focus,omitempty" json:"focus,omitempty"` // e.g. "Push", "Full Body"
	WarmUp    string            `bson:"warmUp,omitempty" json:"warmUp,omitempty"`
	CoolDown  string            `bson:"coolDown,omitempty" json:"coolDown,omitempty"`
	Exercises []SessionExercise `bson:"exercises" json:"exercises"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
