package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubscriptionStatus type for the entitlement lifecycle.
//
// Allowed transitions:
//
//	trial         -> trial_expired | active
//	active        -> active (renewal) | expired
//	expired       -> active
//	trial_expired -> active
type SubscriptionStatus string

const (
	SubscriptionTrial        SubscriptionStatus = "trial"
	SubscriptionTrialExpired SubscriptionStatus = "trial_expired"
	SubscriptionActive       SubscriptionStatus = "active"
	SubscriptionExpired      SubscriptionStatus = "expired"
)

// Subscription is the one-per-user entitlement record. Created at onboarding
// with status=trial; never hard-deleted while the user exists.
type Subscription struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"` // Unique

	Status SubscriptionStatus `bson:"status" json:"status"`

	// TrialSessionsUsed counts sessions delivered under trial. Monotonic;
	// reset to zero only by paid activation.
	TrialSessionsUsed int `bson:"trialSessionsUsed" json:"trialSessionsUsed"`

	// ExpiresAt is set only while status=active.
	ExpiresAt *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
