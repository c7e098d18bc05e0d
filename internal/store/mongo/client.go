// Package mongo persists driver lists and the insurance catalog in MongoDB.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/manishonc/car-rental/internal/platform/config"
)

const (
	maxRetries     = 5
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

type MongoClient struct {
	Client    *mongo.Client
	DB        *mongo.Database
	OpTimeout time.Duration
}

// NewClient connects with exponential backoff and verifies the connection with a ping.
func NewClient(ctx context.Context, cfg *config.Config) (*MongoClient, error) {
	clientOpts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetAppName("car-rental")
	connectTimeout := time.Duration(cfg.MongoConnectTimeoutSec) * time.Second

	var client *mongo.Client
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		var err error
		client, err = connect(ctx, clientOpts, connectTimeout)
		if err == nil {
			break
		}
		if attempt == maxRetries {
			return nil, fmt.Errorf("connect to mongo after %d attempts: %w", maxRetries, err)
		}
		slog.Warn("mongo connect failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}

	return &MongoClient{
		Client:    client,
		DB:        client.Database(cfg.MongoDB),
		OpTimeout: time.Duration(cfg.MongoOpTimeoutMs) * time.Millisecond,
	}, nil
}

func connect(ctx context.Context, opts *options.ClientOptions, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// Ping verifies connectivity (used by /readyz).
func (m *MongoClient) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, nil)
}

// Close gracefully disconnects from MongoDB.
func (m *MongoClient) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
