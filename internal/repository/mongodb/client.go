// Package mongodb stores documents and rate limit records in MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// DocumentIndexes are created on the documents collection at startup.
func DocumentIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "title", Value: "text"}, {Key: "content", Value: "text"}},
			Options: options.Index().SetName("title_content_text"),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}},
		},
	}
}

// UserIndexes are created on the users collection at startup.
func UserIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
}

// EnsureIndexes creates the indexes both collections rely on. Idempotent.
func EnsureIndexes(ctx context.Context, docs, users *mongo.Collection) error {
	if _, err := docs.Indexes().CreateMany(ctx, DocumentIndexes()); err != nil {
		return fmt.Errorf("create document indexes: %w", err)
	}
	if _, err := users.Indexes().CreateMany(ctx, UserIndexes()); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}
