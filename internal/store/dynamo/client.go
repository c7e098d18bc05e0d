// Package dynamo persists driver lists and the insurance catalog in DynamoDB.
package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

const (
	readyAttempts = 5
	readyTimeout  = 5 * time.Second
	firstBackoff  = time.Second
	backoffCap    = 30 * time.Second
	localCredName = "local"
)

type Client struct {
	DB *dynamodb.Client
}

// Config selects the region and, for DynamoDB Local, an endpoint plus static keys.
// In AWS the default credential chain (IAM role) is used.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

func (c Config) loadOptions() []func(*config.LoadOptions) error {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.Endpoint == "" {
		return opts
	}
	key, secret := c.AccessKeyID, c.SecretAccessKey
	if key == "" {
		key = localCredName
	}
	if secret == "" {
		secret = localCredName
	}
	return append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")))
}

// NewClient builds the SDK client and blocks until the service answers or ctx ends.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, cfg.loadOptions()...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	c := &Client{DB: dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})}
	if err := c.waitReady(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) waitReady(ctx context.Context) error {
	wait := firstBackoff
	var err error
	for attempt := 1; attempt <= readyAttempts; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, readyTimeout)
		err = c.Ping(pctx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == readyAttempts {
			break
		}
		slog.Warn("dynamodb not reachable yet", "attempt", attempt, "retry_in", wait, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, backoffCap)
	}
	return fmt.Errorf("dynamodb unreachable after %d attempts: %w", readyAttempts, err)
}

// Ping lists at most one table; used by /readyz.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.DB.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)})
	return err
}
