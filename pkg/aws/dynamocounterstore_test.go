package aws

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcdynamodb "github.com/testcontainers/testcontainers-go/modules/dynamodb"

	"github.com/storacha/hitcounter/pkg/internal/testutil"
	"github.com/storacha/hitcounter/pkg/store"
	"github.com/storacha/hitcounter/pkg/store/counterstore"
)

func TestDynamoCounterStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping DynamoDB container test in short mode")
	}

	ctx := context.Background()
	opts := dynamoOptions(createDynamo(t))
	tableName := testutil.RandomName("hits")
	createHitsTable(t, tableName, opts...)

	s := NewDynamoCounterStore(aws.Config{}, tableName, opts...)

	t.Run("increments from one", func(t *testing.T) {
		key := testutil.RandomPath()
		for i := 1; i <= 3; i++ {
			n, err := s.Increment(ctx, key)
			require.NoError(t, err)
			require.Equal(t, uint64(i), n)
		}

		n, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, uint64(3), n)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.Get(ctx, testutil.RandomPath())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("concurrent increments", func(t *testing.T) {
		key := testutil.RandomPath()
		const n = 10

		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Increment(ctx, key)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		count, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, uint64(n), count)
	})

	t.Run("list", func(t *testing.T) {
		a, b := "/list/a", "/list/b"
		_, err := s.Increment(ctx, b)
		require.NoError(t, err)
		_, err = s.Increment(ctx, a)
		require.NoError(t, err)

		records, err := s.List(ctx)
		require.NoError(t, err)

		var listed []counterstore.Record
		for _, r := range records {
			if r.Key == a || r.Key == b {
				listed = append(listed, r)
			}
		}
		require.Equal(t, []counterstore.Record{{Key: a, Count: 1}, {Key: b, Count: 1}}, listed)
	})
}

func createDynamo(t *testing.T) *url.URL {
	ctx := context.Background()
	container, err := tcdynamodb.Run(ctx, "amazon/dynamodb-local:latest")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	return testutil.Must(url.Parse("http://" + endpoint))(t)
}

func dynamoOptions(endpoint *url.URL) []func(*dynamodb.Options) {
	return []func(*dynamodb.Options){
		func(o *dynamodb.Options) {
			o.Credentials = credentials.NewStaticCredentialsProvider("DUMMYIDEXAMPLE", "DUMMYEXAMPLEKEY", "")
			o.Region = "us-east-1"
			o.BaseEndpoint = aws.String(endpoint.String())
		},
	}
}

func createHitsTable(t *testing.T, tableName string, opts ...func(*dynamodb.Options)) {
	client := dynamodb.NewFromConfig(aws.Config{}, opts...)
	_, err := client.CreateTable(context.Background(), &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(HitsPartitionKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(HitsPartitionKey), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	require.NoError(t, err)
}
