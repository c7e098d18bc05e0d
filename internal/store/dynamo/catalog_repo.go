package dynamo

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/manishonc/car-rental/internal/core"
)

type CatalogRepo struct {
	client *dynamodb.Client
}

func NewCatalogRepo(client *dynamodb.Client) *CatalogRepo {
	return &CatalogRepo{client: client}
}

// List scans every option and returns them in id order.
func (r *CatalogRepo) List(ctx context.Context) ([]core.InsuranceOption, error) {
	var opts []core.InsuranceOption
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(TableInsuranceOptions),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("insurance_options.scan: %w", err)
		}
		var batch []core.InsuranceOption
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("insurance_options.unmarshal: %w", err)
		}
		opts = append(opts, batch...)
	}
	slices.SortFunc(opts, func(a, b core.InsuranceOption) int { return cmp.Compare(a.ID, b.ID) })
	return opts, nil
}

func (r *CatalogRepo) Upsert(ctx context.Context, opt core.InsuranceOption) error {
	av, err := attributevalue.MarshalMap(opt)
	if err != nil {
		return fmt.Errorf("insurance_options.marshal: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(TableInsuranceOptions),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("insurance_options.putItem: %w", err)
	}
	return nil
}
