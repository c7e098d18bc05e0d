package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/manishonc/car-rental/internal/core"
)

// DriverInfoRetention is how long an untouched driver list is kept.
const DriverInfoRetention = 30 * 24 * time.Hour

// DriverInfoItem stores drivers under their JSON field names.
type DriverInfoItem struct {
	OrderID   string        `dynamodbav:"order_id"`
	Drivers   []core.Driver `dynamodbav:"drivers"`
	UpdatedAt string        `dynamodbav:"updated_at"`
	ExpiresAt int64         `dynamodbav:"expires_at"`
}

func withJSONTags(o *attributevalue.EncoderOptions) { o.TagKey = "json" }
func fromJSONTags(o *attributevalue.DecoderOptions) { o.TagKey = "json" }

type DriverRepo struct {
	client *dynamodb.Client
	clock  func() time.Time
}

func NewDriverRepo(client *dynamodb.Client) *DriverRepo {
	return &DriverRepo{client: client, clock: time.Now}
}

func (r *DriverRepo) Save(ctx context.Context, orderID string, drivers []core.Driver) error {
	now := r.clock().UTC()
	item := DriverInfoItem{
		OrderID:   orderID,
		Drivers:   drivers,
		UpdatedAt: now.Format(time.RFC3339),
		ExpiresAt: now.Add(DriverInfoRetention).Unix(),
	}
	av, err := attributevalue.MarshalMapWithOptions(item, withJSONTags)
	if err != nil {
		return fmt.Errorf("driver_info.marshal: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(TableDriverInfo),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("driver_info.putItem: %w", err)
	}
	return nil
}

func (r *DriverRepo) Load(ctx context.Context, orderID string) ([]core.Driver, error) {
	proj := expression.NamesList(expression.Name("order_id"), expression.Name("drivers"))
	expr, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		return nil, fmt.Errorf("driver_info.buildExpr: %w", err)
	}

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(TableDriverInfo),
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		return nil, fmt.Errorf("driver_info.getItem: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%w: drivers for order %s", core.ErrNotFound, orderID)
	}

	var item DriverInfoItem
	if err := attributevalue.UnmarshalMapWithOptions(out.Item, &item, fromJSONTags); err != nil {
		return nil, fmt.Errorf("driver_info.unmarshal: %w", err)
	}
	return item.Drivers, nil
}
