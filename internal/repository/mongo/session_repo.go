// internal/repository/mongo/session_repo.go
package mongo

import (
	"alcyxob/coach-bot/internal/domain"
	"alcyxob/coach-bot/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionCollectionName = "sessions"

// mongoSessionRepository implements repository.SessionRepository
type mongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new Session repository.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

// CreateMany inserts a full weekly batch of sessions and returns them with
// their assigned IDs.
func (r *mongoSessionRepository) CreateMany(ctx context.Context, sessions []domain.Session) ([]domain.Session, error) {
	if len(sessions) == 0 {
		return nil, errors.New("no sessions to create")
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(sessions))
	for i := range sessions {
		if sessions[i].UserID == primitive.NilObjectID || sessions[i].CycleID == "" {
			return nil, errors.New("session requires userId and cycleId")
		}
		sessions[i].ID = primitive.NewObjectID()
		sessions[i].CreatedAt = now
		sessions[i].UpdatedAt = now
		if sessions[i].Status == "" {
			sessions[i].Status = domain.SessionPlanned
		}
		docs = append(docs, sessions[i])
	}

	_, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetByID retrieves a single session by its ID.
func (r *mongoSessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error) {
	var session domain.Session
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetNextPlanned returns the earliest future planned session for a user.
func (r *mongoSessionRepository) GetNextPlanned(ctx context.Context, userID primitive.ObjectID, after time.Time) (*domain.Session, error) {
	var session domain.Session
	filter := bson.M{
		"userId":    userID,
		"status":    domain.SessionPlanned,
		"plannedAt": bson.M{"$gt": after},
	}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "plannedAt", Value: 1}})
	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetFuturePlanned returns all future planned sessions of a user, ascending.
func (r *mongoSessionRepository) GetFuturePlanned(ctx context.Context, userID primitive.ObjectID, after time.Time) ([]domain.Session, error) {
	filter := bson.M{
		"userId":    userID,
		"status":    domain.SessionPlanned,
		"plannedAt": bson.M{"$gt": after},
	}
	return r.findSessions(ctx, filter)
}

// GetAllFuturePlanned is the restart-recovery query across all users.
func (r *mongoSessionRepository) GetAllFuturePlanned(ctx context.Context, after time.Time) ([]domain.Session, error) {
	filter := bson.M{
		"status":    domain.SessionPlanned,
		"plannedAt": bson.M{"$gt": after},
	}
	return r.findSessions(ctx, filter)
}

func (r *mongoSessionRepository) findSessions(ctx context.Context, filter bson.M) ([]domain.Session, error) {
	var sessions []domain.Session
	findOptions := options.Find().SetSort(bson.D{{Key: "plannedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetLatestCycle reconstructs the most recent cycle from session rows: find
// the newest session, then collect every session sharing its cycleId.
func (r *mongoSessionRepository) GetLatestCycle(ctx context.Context, userID primitive.ObjectID) (*repository.CycleInfo, error) {
	var latest domain.Session
	findOptions := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}, findOptions).Decode(&latest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	sessions, err := r.findSessions(ctx, bson.M{"userId": userID, "cycleId": latest.CycleID})
	if err != nil {
		return nil, err
	}

	info := &repository.CycleInfo{
		CycleID:       latest.CycleID,
		CycleWeek:     latest.CycleWeek,
		EquipmentType: latest.EquipmentType,
		CreatedAt:     latest.CreatedAt,
	}
	seen := make(map[string]bool)
	for _, s := range sessions {
		for _, ex := range s.Exercises {
			if !seen[ex.Name] {
				seen[ex.Name] = true
				info.ExerciseNames = append(info.ExerciseNames, ex.Name)
			}
		}
	}
	return info, nil
}

// UpdateStatus transitions a session's lifecycle status.
func (r *mongoSessionRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.SessionStatus) error {
	filter := bson.M{"_id": id}
	updateDoc := bson.M{
		"$set": bson.M{
			"status":    status,
			"updatedAt": time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureSessionIndexes creates necessary indexes. Call during startup.
func EnsureSessionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Restart recovery and per-user future queries.
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "plannedAt", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "plannedAt", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "cycleId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
