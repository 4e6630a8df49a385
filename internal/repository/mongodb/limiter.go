package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCeiling is the lifetime number of searches allowed per user.
const DefaultCeiling = 5

// Limiter keeps {user_id, request_count} records in the users collection.
// Admission relies on the unique index on user_id (see UserIndexes).
type Limiter struct {
	coll    *mongo.Collection
	ceiling int64
	now     func() time.Time
}

// NewLimiter creates a MongoDB-backed limiter. ceiling <= 0 selects DefaultCeiling.
func NewLimiter(coll *mongo.Collection, ceiling int64) *Limiter {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Limiter{coll: coll, ceiling: ceiling, now: time.Now}
}

// Admit increments the user's counter while it is below the ceiling.
// The record is created at 1 on first use. A duplicate key on the upsert means
// the record already exists: either the user is at the ceiling or a concurrent
// first request inserted it. The plain conditional update tells the two apart.
func (l *Limiter) Admit(ctx context.Context, userID string) (bool, error) {
	filter := bson.M{"user_id": userID, "request_count": bson.M{"$lt": l.ceiling}}
	update := bson.M{
		"$inc":         bson.M{"request_count": 1},
		"$set":         bson.M{"updated_at": l.now().UTC()},
		"$setOnInsert": bson.M{"created_at": l.now().UTC()},
	}

	_, err := l.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, fmt.Errorf("ratelimit admit %s: %w", userID, err)
	}

	res, err := l.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("ratelimit admit %s: %w", userID, err)
	}
	return res.MatchedCount > 0, nil
}

// Refund releases a reservation taken by Admit without going below zero.
func (l *Limiter) Refund(ctx context.Context, userID string) error {
	_, err := l.coll.UpdateOne(ctx,
		bson.M{"user_id": userID, "request_count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"request_count": -1}, "$set": bson.M{"updated_at": l.now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("ratelimit refund %s: %w", userID, err)
	}
	return nil
}
