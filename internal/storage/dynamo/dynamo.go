// Package dynamo provides a DynamoDB-backed implementation of the
// storage.DocumentStore interface.
//
// All collections share one table with partition key "collection" and sort
// key "id".
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/mmynk/fundflow/internal/storage"
)

const (
	partitionKey = "collection"
	sortKey      = "id"
)

// API is the subset of the DynamoDB client used by Store.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Ensure Store implements storage.DocumentStore
var _ storage.DocumentStore = (*Store)(nil)

// Store implements storage.DocumentStore on a single DynamoDB table.
type Store struct {
	db    API
	table string
}

// New loads the default AWS configuration for region and returns a store on
// table.
func New(ctx context.Context, table, region string) (*Store, error) {
	if table == "" {
		return nil, errors.New("dynamo: table name is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithClient(dynamodb.NewFromConfig(cfg), table), nil
}

// NewWithClient returns a store using an existing client.
func NewWithClient(db API, table string) *Store {
	return &Store{db: db, table: table}
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *Store) Close() error {
	return nil
}

// Get retrieves a document by collection and id.
func (s *Store) Get(ctx context.Context, collection, id string) (storage.Document, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       key(collection, id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, storage.ErrNotFound)
	}
	return decode(out.Item)
}

// Query reads the collection's partition and filters on field. List
// attributes match when they contain value; attribute_type keeps contains()
// from doing substring matches on strings.
func (s *Store) Query(ctx context.Context, collection, field string, value any) ([]storage.Document, error) {
	if !storage.ValidField(field) {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidField, field)
	}
	v, err := attributevalue.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query value: %w", err)
	}

	var items []map[string]types.AttributeValue
	var lastKey map[string]types.AttributeValue
	for {
		out, err := s.db.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("#c = :c"),
			FilterExpression:       aws.String("#f = :v OR (attribute_type(#f, :list) AND contains(#f, :v))"),
			ExpressionAttributeNames: map[string]string{
				"#c": partitionKey,
				"#f": field,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":c":    &types.AttributeValueMemberS{Value: collection},
				":v":    v,
				":list": &types.AttributeValueMemberS{Value: "L"},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query items: %w", err)
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil {
			break
		}
		lastKey = out.LastEvaluatedKey
	}

	docs := make([]storage.Document, 0, len(items))
	for _, item := range items {
		doc, err := decode(item)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Create puts a new item, refusing to overwrite an existing id.
func (s *Store) Create(ctx context.Context, collection string, doc storage.Document) (string, error) {
	id := doc.ID()
	if id == "" {
		id = uuid.New().String()
	}

	body := make(map[string]any, len(doc)+2)
	for k, v := range doc {
		body[k] = v
	}
	body[sortKey] = id
	body[partitionKey] = collection

	item, err := attributevalue.MarshalMap(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode item: %w", err)
	}

	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": sortKey,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to put item: %w", err)
	}
	return id, nil
}

// Update sets each top-level field of partial.
func (s *Store) Update(ctx context.Context, collection, id string, partial storage.Document) error {
	fields := make([]string, 0, len(partial))
	for k := range partial {
		if k == sortKey || k == partitionKey {
			continue
		}
		fields = append(fields, k)
	}
	if len(fields) == 0 {
		_, err := s.Get(ctx, collection, id)
		return err
	}
	sort.Strings(fields)

	names := map[string]string{"#id": sortKey}
	values := make(map[string]types.AttributeValue, len(fields))
	expr := "SET "
	for i, f := range fields {
		n, v := fmt.Sprintf("#f%d", i), fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(partial[f])
		if err != nil {
			return fmt.Errorf("failed to encode field %s: %w", f, err)
		}
		names[n] = f
		values[v] = av
		if i > 0 {
			expr += ", "
		}
		expr += n + " = " + v
	}

	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(collection, id),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return s.conditional(err, "update", collection, id)
}

// Delete removes an item that must exist.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.table),
		Key:                 key(collection, id),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": sortKey,
		},
	})
	return s.conditional(err, "delete", collection, id)
}

func (s *Store) conditional(err error, op, collection, id string) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%s/%s: %w", collection, id, storage.ErrNotFound)
	}
	return fmt.Errorf("failed to %s item: %w", op, err)
}

func key(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		partitionKey: &types.AttributeValueMemberS{Value: collection},
		sortKey:      &types.AttributeValueMemberS{Value: id},
	}
}

func decode(item map[string]types.AttributeValue) (storage.Document, error) {
	var doc map[string]any
	if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	delete(doc, partitionKey)
	return storage.Document(doc), nil
}
