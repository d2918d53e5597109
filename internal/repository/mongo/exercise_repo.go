// internal/repository/mongo/exercise_repo.go
package mongo

import (
	"alcyxob/coach-bot/internal/domain"
	"alcyxob/coach-bot/internal/repository"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const exerciseCollectionName = "exercises"

// mongoExerciseRepository implements repository.ExerciseRepository
type mongoExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoExerciseRepository creates a new Exercise repository.
func NewMongoExerciseRepository(db *mongo.Database) repository.ExerciseRepository {
	return &mongoExerciseRepository{
		collection: db.Collection(exerciseCollectionName),
	}
}

// CreateMany bulk-inserts exercises (library seeding).
func (r *mongoExerciseRepository) CreateMany(ctx context.Context, exercises []domain.Exercise) error {
	if len(exercises) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(exercises))
	for i := range exercises {
		if exercises[i].ID == primitive.NilObjectID {
			exercises[i].ID = primitive.NewObjectID()
		}
		docs = append(docs, exercises[i])
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

// GetByEquipment retrieves the full exercise pool for an equipment context.
func (r *mongoExerciseRepository) GetByEquipment(ctx context.Context, equipment domain.EquipmentType) ([]domain.Exercise, error) {
	var exercises []domain.Exercise
	filter := bson.M{"equipmentType": equipment}
	findOptions := options.Find().SetSort(bson.D{{Key: "muscleGroup", Value: 1}, {Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// GetByNames retrieves exercises whose names match exactly.
func (r *mongoExerciseRepository) GetByNames(ctx context.Context, names []string) ([]domain.Exercise, error) {
	var exercises []domain.Exercise
	if len(names) == 0 {
		return exercises, nil
	}
	filter := bson.M{"name": bson.M{"$in": names}}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// DeleteAll wipes the library (re-seeding).
func (r *mongoExerciseRepository) DeleteAll(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{})
	return err
}

// EnsureExerciseIndexes creates necessary indexes. Call during startup.
func EnsureExerciseIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "equipmentType", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
