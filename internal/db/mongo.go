package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoClient wraps mongo.Client and exposes the document collections.
type MongoClient struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo connects, pings and ensures indexes.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoClient, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetConnectTimeout(10 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	c := &MongoClient{client: client, db: client.Database(database)}
	if err := c.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return c, nil
}

func (c *MongoClient) UsersCollection() *mongo.Collection    { return c.db.Collection("users") }
func (c *MongoClient) AccountsCollection() *mongo.Collection { return c.db.Collection("accounts") }
func (c *MongoClient) ChatsCollection() *mongo.Collection    { return c.db.Collection("chats") }
func (c *MongoClient) MessagesCollection() *mongo.Collection { return c.db.Collection("messages") }

// MediaBucket is the GridFS bucket holding uploaded media.
func (c *MongoClient) MediaBucket() *mongo.GridFSBucket {
	return c.db.GridFSBucket(options.GridFSBucket().SetName("media"))
}

// Drop removes the whole database. Used by integration tests.
func (c *MongoClient) Drop(ctx context.Context) error {
	return c.db.Drop(ctx)
}

// Ping checks the primary is reachable.
func (c *MongoClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (c *MongoClient) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

func (c *MongoClient) createIndexes(ctx context.Context) error {
	_, err := c.AccountsCollection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create accounts index: %w", err)
	}

	if _, err := c.ChatsCollection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "members", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create chats index: %w", err)
	}

	if _, err := c.MessagesCollection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create messages index: %w", err)
	}
	return nil
}
