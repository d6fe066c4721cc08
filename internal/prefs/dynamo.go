package prefs

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/vvatanabe/shipcode/internal/clock"
)

const defaultDynamoTimeout = 5 * time.Second

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoDBAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type preferenceItem struct {
	Key       string `dynamodbav:"key"`
	Value     string `dynamodbav:"value"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// DynamoStoreOptions holds options for a DynamoStore.
type DynamoStoreOptions struct {
	Logger  *slog.Logger
	Clock   clock.Clock
	Timeout time.Duration
}

func WithDynamoLogger(logger *slog.Logger) func(*DynamoStoreOptions) {
	return func(o *DynamoStoreOptions) {
		o.Logger = logger
	}
}

func WithDynamoClock(c clock.Clock) func(*DynamoStoreOptions) {
	return func(o *DynamoStoreOptions) {
		o.Clock = c
	}
}

func WithDynamoTimeout(timeout time.Duration) func(*DynamoStoreOptions) {
	return func(o *DynamoStoreOptions) {
		o.Timeout = timeout
	}
}

// DynamoStore keeps preferences in a DynamoDB table whose hash key is the
// string attribute "key". Writes go to a local cache first so the session
// keeps seeing them when the table is unreachable.
type DynamoStore struct {
	db        DynamoDBAPI
	tableName string
	cache     *MemoryStore
	logger    *slog.Logger
	clock     clock.Clock
	timeout   time.Duration
}

func NewDynamoStore(db DynamoDBAPI, tableName string, optFns ...func(*DynamoStoreOptions)) *DynamoStore {
	o := &DynamoStoreOptions{
		Logger:  slog.Default(),
		Clock:   clock.RealClock{},
		Timeout: defaultDynamoTimeout,
	}
	for _, opt := range optFns {
		opt(o)
	}
	return &DynamoStore{
		db:        db,
		tableName: tableName,
		cache:     NewMemoryStore(),
		logger:    o.Logger,
		clock:     o.Clock,
		timeout:   o.Timeout,
	}
}

// Ping checks that the table exists and is reachable.
func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)})
	if err != nil {
		return StorageError{Op: "describe", Cause: err}
	}
	return nil
}

func (s *DynamoStore) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		s.logger.Warn("failed to read preference", "table", s.tableName, "error", StorageError{Op: "get", Key: key, Cause: err})
		return s.cache.Get(key)
	}
	if out.Item == nil {
		s.cache.Remove(key)
		return "", false
	}
	var item preferenceItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		s.logger.Warn("discarding corrupt preference", "table", s.tableName, "error", StorageError{Op: "decode", Key: key, Cause: err})
		return "", false
	}
	s.cache.Set(key, item.Value)
	return item.Value, true
}

func (s *DynamoStore) Set(key, value string) {
	s.cache.Set(key, value)
	expr, err := expression.NewBuilder().
		WithUpdate(expression.
			Set(expression.Name("value"), expression.Value(value)).
			Set(expression.Name("updated_at"), expression.Value(clock.FormatRFC3339Nano(s.clock.Now())))).
		Build()
	if err != nil {
		s.logger.Warn("failed to build preference update", "error", StorageError{Op: "set", Key: key, Cause: err})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, err = s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       s.key(key),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		s.logger.Warn("failed to persist preference", "table", s.tableName, "error", StorageError{Op: "set", Key: key, Cause: err})
	}
}

func (s *DynamoStore) Remove(key string) {
	s.cache.Remove(key)
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, err := s.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(key),
	})
	if err != nil {
		s.logger.Warn("failed to remove preference", "table", s.tableName, "error", StorageError{Op: "remove", Key: key, Cause: err})
	}
}

func (s *DynamoStore) key(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: key},
	}
}
