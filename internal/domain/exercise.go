// internal/domain/exercise.go
package domain

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exercise represents a single exercise definition in the library.
// The library is seeded via the ops API and read by the plan generator.
type Exercise struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"` // Unique; the LLM must echo it verbatim
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	MuscleGroup   string             `bson:"muscleGroup" json:"muscleGroup"` // e.g. "Chest", "Back", "Legs"
	EquipmentType EquipmentType      `bson:"equipmentType" json:"equipmentType"`

	// GifKey is the S3 object key of the demo animation, if one was uploaded.
	GifKey       string `bson:"gifKey,omitempty" json:"gifKey,omitempty"`
	Instructions string `bson:"instructions,omitempty" json:"instructions,omitempty"`
}
