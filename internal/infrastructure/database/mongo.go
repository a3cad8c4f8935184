package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo wraps the document store handle.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// OpenMongo connects to the document store and verifies the connection.
func OpenMongo(uri, database string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(database)
	if err := ensureIndexes(ctx, db); err != nil {
		return nil, err
	}

	return &Mongo{Client: client, Database: db}, nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	users := db.Collection("users")
	_, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "googleId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "isBlacklisted", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	campaigns := db.Collection("campaigns")
	_, err = campaigns.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "jobId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	return err
}

// Close disconnects from the document store.
func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
