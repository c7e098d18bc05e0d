package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	TableDriverInfo       = "car_rental_driver_info"
	TableInsuranceOptions = "car_rental_insurance_options"
)

// ttlAttribute holds the epoch second after which DynamoDB may drop a driver list.
const ttlAttribute = "expires_at"

const tableWait = 2 * time.Minute

// tableSpec is a single-hash-key, on-demand table.
type tableSpec struct {
	name    string
	hashKey string
	keyType types.ScalarAttributeType
	ttlAttr string
}

var tableSpecs = []tableSpec{
	{name: TableDriverInfo, hashKey: "order_id", keyType: types.ScalarAttributeTypeS, ttlAttr: ttlAttribute},
	{name: TableInsuranceOptions, hashKey: "id", keyType: types.ScalarAttributeTypeN},
}

// EnsureTables creates the driver info and insurance option tables when missing.
func EnsureTables(ctx context.Context, client *dynamodb.Client, log *slog.Logger) error {
	for _, spec := range tableSpecs {
		found, err := describe(ctx, client, spec.name)
		if err != nil {
			return fmt.Errorf("describe %s: %w", spec.name, err)
		}
		if found {
			log.Debug("table present", "table", spec.name)
			continue
		}
		if err := spec.create(ctx, client); err != nil {
			return fmt.Errorf("create %s: %w", spec.name, err)
		}
		log.Info("table created", "table", spec.name, "ttl", spec.ttlAttr != "")
	}
	return nil
}

func describe(ctx context.Context, client *dynamodb.Client, name string) (bool, error) {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	var missing *types.ResourceNotFoundException
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &missing):
		return false, nil
	default:
		return false, err
	}
}

func (s tableSpec) create(ctx context.Context, client *dynamodb.Client) error {
	if _, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(s.name),
		KeySchema:            []types.KeySchemaElement{{AttributeName: aws.String(s.hashKey), KeyType: types.KeyTypeHash}},
		AttributeDefinitions: []types.AttributeDefinition{{AttributeName: aws.String(s.hashKey), AttributeType: s.keyType}},
		BillingMode:          types.BillingModePayPerRequest,
	}); err != nil {
		return err
	}
	if s.ttlAttr == "" {
		return nil
	}

	// TTL can only be enabled once the table is ACTIVE.
	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.name)}, tableWait); err != nil {
		return fmt.Errorf("wait for table: %w", err)
	}
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(s.name),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String(s.ttlAttr),
			Enabled:       aws.Bool(true),
		},
	})
	return err
}
