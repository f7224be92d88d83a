// internal/common/database/mongo.go
package database

import (
	"context"
	"fmt"
	"time"

	"quote-vehicle-reconciler/internal/common/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoClient holds the single authenticated session shared by every stage.
type MongoClient struct {
	Client *mongo.Client
	DB     *mongo.Database
	cfg    config.MongoConfig
}

// NewMongo connects to the document store and selects the configured database.
func NewMongo(ctx context.Context, cfg config.MongoConfig) (*MongoClient, error) {
	opts := options.Client().
		ApplyURI(cfg.GetURI()).
		SetAppName("quote-vehicle-reconciler")

	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: cfg.AuthSource,
		})
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.GetConnectTimeout())
		opts.SetServerSelectionTimeout(cfg.GetConnectTimeout())
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	return &MongoClient{
		Client: client,
		DB:     client.Database(cfg.Database),
		cfg:    cfg,
	}, nil
}

// Ping tests the connection against the primary.
func (c *MongoClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (c *MongoClient) Close(ctx context.Context) error {
	if c.Client != nil {
		return c.Client.Disconnect(ctx)
	}
	return nil
}

// Collection returns a handle to a collection of the configured database.
func (c *MongoClient) Collection(name string) *mongo.Collection {
	return c.DB.Collection(name)
}

func (c *MongoClient) VehicleMasters() *mongo.Collection {
	return c.Collection(c.cfg.Collections.VehicleMasters)
}

func (c *MongoClient) Quotes() *mongo.Collection {
	return c.Collection(c.cfg.Collections.Quotes)
}

func (c *MongoClient) VehicleCatalogs() *mongo.Collection {
	return c.Collection(c.cfg.Collections.VehicleCatalogs)
}

func (c *MongoClient) NewQuotes() *mongo.Collection {
	return c.Collection(c.cfg.Collections.NewQuotes)
}

func (c *MongoClient) QuoteUpdateLog() *mongo.Collection {
	return c.Collection(c.cfg.Collections.QuoteUpdateLog)
}
