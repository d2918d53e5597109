// internal/repository/mongo/subscription_repo.go
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

const subscriptionCollectionName = "subscriptions"

// mongoSubscriptionRepository implements repository.SubscriptionRepository
type mongoSubscriptionRepository struct {
	collection *mongo.Collection
}

// NewMongoSubscriptionRepository creates a new Subscription repository.
func NewMongoSubscriptionRepository(db *mongo.Database) repository.SubscriptionRepository {
	return &mongoSubscriptionRepository{
		collection: db.Collection(subscriptionCollectionName),
	}
}

// Create inserts a new subscription record (onboarding, status=trial).
func (r *mongoSubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) (primitive.ObjectID, error) {
	if sub.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("subscription requires a user ID")
	}
	sub.ID = primitive.NewObjectID()
	if sub.Status == "" {
		sub.Status = domain.SubscriptionTrial
	}
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, sub)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted subscription ID")
	}
	return insertedID, nil
}

// GetByUserID retrieves the one-per-user subscription record.
func (r *mongoSubscriptionRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Subscription, error) {
	var sub domain.Subscription
	filter := bson.M{"userId": userID}
	err := r.collection.FindOne(ctx, filter).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// UpdateStatus transitions the entitlement status.
func (r *mongoSubscriptionRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.SubscriptionStatus) error {
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

// IncrementTrialUsed bumps the trial counter atomically, and only while the
// record is still in trial status.
func (r *mongoSubscriptionRepository) IncrementTrialUsed(ctx context.Context, userID primitive.ObjectID) error {
	filter := bson.M{
		"userId": userID,
		"status": domain.SubscriptionTrial,
	}
	updateDoc := bson.M{
		"$inc": bson.M{"trialSessionsUsed": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	// MatchedCount of zero is not an error here: a non-trial record is a no-op.
	_, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	return err
}

// Activate sets status=active with the given expiry and resets the trial counter.
func (r *mongoSubscriptionRepository) Activate(ctx context.Context, userID primitive.ObjectID, expiresAt time.Time) error {
	filter := bson.M{"userId": userID}
	updateDoc := bson.M{
		"$set": bson.M{
			"status":            domain.SubscriptionActive,
			"expiresAt":         expiresAt,
			"trialSessionsUsed": 0,
			"updatedAt":         time.Now().UTC(),
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

// ListByStatus returns all records in the given status.
func (r *mongoSubscriptionRepository) ListByStatus(ctx context.Context, status domain.SubscriptionStatus) ([]domain.Subscription, error) {
	return r.findSubscriptions(ctx, bson.M{"status": status})
}

// ListExpiredActive returns active records whose expiry has passed.
func (r *mongoSubscriptionRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	filter := bson.M{
		"status":    domain.SubscriptionActive,
		"expiresAt": bson.M{"$lt": now},
	}
	return r.findSubscriptions(ctx, filter)
}

func (r *mongoSubscriptionRepository) findSubscriptions(ctx context.Context, filter bson.M) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// EnsureSubscriptionIndexes creates necessary indexes. Call during startup.
func EnsureSubscriptionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
