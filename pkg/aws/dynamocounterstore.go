package aws

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/storacha/hitcounter/pkg/store"
	"github.com/storacha/hitcounter/pkg/store/counterstore"
)

const (
	// HitsPartitionKey is the partition key attribute of the hits table.
	HitsPartitionKey = "path"
	hitsAttribute    = "hits"
)

// DynamoCounterStore implements the counterstore.CounterStore interface on
// dynamodb. Increments use an ADD update expression, which DynamoDB applies
// atomically.
type DynamoCounterStore struct {
	tableName      string
	dynamoDbClient *dynamodb.Client
}

var _ counterstore.CounterStore = (*DynamoCounterStore)(nil)

// NewDynamoCounterStore returns a CounterStore connected to a AWS DynamoDB table
func NewDynamoCounterStore(cfg aws.Config, tableName string, opts ...func(*dynamodb.Options)) *DynamoCounterStore {
	return &DynamoCounterStore{
		tableName:      tableName,
		dynamoDbClient: dynamodb.NewFromConfig(cfg, opts...),
	}
}

// Increment implements counterstore.CounterStore.
func (d *DynamoCounterStore) Increment(ctx context.Context, key string) (uint64, error) {
	update := expression.Add(expression.Name(hitsAttribute), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return 0, fmt.Errorf("building update: %w", err)
	}

	response, err := d.dynamoDbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.tableName),
		Key:                       hitItem{Path: key}.GetKey(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		UpdateExpression:          expr.Update(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("incrementing hits: %w", err)
	}

	var item hitItem
	err = attributevalue.UnmarshalMap(response.Attributes, &item)
	if err != nil {
		return 0, fmt.Errorf("deserializing item: %w", err)
	}
	return item.Hits, nil
}

// Get implements counterstore.CounterStore.
func (d *DynamoCounterStore) Get(ctx context.Context, key string) (uint64, error) {
	response, err := d.dynamoDbClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            hitItem{Path: key}.GetKey(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("retrieving item: %w", err)
	}
	if response.Item == nil {
		return 0, store.ErrNotFound
	}
	var item hitItem
	err = attributevalue.UnmarshalMap(response.Item, &item)
	if err != nil {
		return 0, fmt.Errorf("deserializing item: %w", err)
	}
	return item.Hits, nil
}

// List implements counterstore.CounterStore.
func (d *DynamoCounterStore) List(ctx context.Context) ([]counterstore.Record, error) {
	var records []counterstore.Record
	scanPaginator := dynamodb.NewScanPaginator(d.dynamoDbClient, &dynamodb.ScanInput{
		TableName: aws.String(d.tableName),
	})
	for scanPaginator.HasMorePages() {
		response, err := scanPaginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scanning hits: %w", err)
		}
		var page []hitItem
		err = attributevalue.UnmarshalListOfMaps(response.Items, &page)
		if err != nil {
			return nil, fmt.Errorf("parsing scan responses: %w", err)
		}
		for _, item := range page {
			records = append(records, counterstore.Record{Key: item.Path, Count: item.Hits})
		}
	}
	slices.SortFunc(records, func(a, b counterstore.Record) int {
		return strings.Compare(a.Key, b.Key)
	})
	return records, nil
}

type hitItem struct {
	Path string `dynamodbav:"path"`
	Hits uint64 `dynamodbav:"hits"`
}

// GetKey returns the primary key of the item in a format that can be sent to
// DynamoDB.
func (h hitItem) GetKey() map[string]types.AttributeValue {
	path, err := attributevalue.Marshal(h.Path)
	if err != nil {
		panic(err)
	}
	return map[string]types.AttributeValue{HitsPartitionKey: path}
}
