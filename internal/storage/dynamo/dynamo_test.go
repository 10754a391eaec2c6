package dynamo

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mmynk/fundflow/internal/storage"
)

// fakeDynamo keeps items in memory and understands exactly the expressions
// Store emits. Query returns one item per page to exercise pagination.
type fakeDynamo struct {
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func itemKey(k map[string]types.AttributeValue) string {
	c := k[partitionKey].(*types.AttributeValueMemberS).Value
	id := k[sortKey].(*types.AttributeValueMemberS).Value
	return c + "/" + id
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	k := itemKey(in.Item)
	if _, exists := f.items[k]; exists {
		return nil, &types.ConditionalCheckFailedException{}
	}
	f.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	item, ok := f.items[itemKey(in.Key)]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	for _, assignment := range strings.Split(strings.TrimPrefix(*in.UpdateExpression, "SET "), ", ") {
		parts := strings.Split(assignment, " = ")
		item[in.ExpressionAttributeNames[parts[0]]] = in.ExpressionAttributeValues[parts[1]]
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	k := itemKey(in.Key)
	if _, ok := f.items[k]; !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	delete(f.items, k)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	collection := in.ExpressionAttributeValues[":c"].(*types.AttributeValueMemberS).Value
	field := in.ExpressionAttributeNames["#f"]
	var want any
	if err := attributevalue.Unmarshal(in.ExpressionAttributeValues[":v"], &want); err != nil {
		return nil, err
	}

	var keys []string
	for k := range f.items {
		if strings.HasPrefix(k, collection+"/") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var matched []map[string]types.AttributeValue
	for _, k := range keys {
		var got any
		if err := attributevalue.Unmarshal(f.items[k][field], &got); err != nil {
			continue
		}
		if reflect.DeepEqual(got, want) {
			matched = append(matched, f.items[k])
			continue
		}
		if list, ok := got.([]any); ok {
			for _, el := range list {
				if reflect.DeepEqual(el, want) {
					matched = append(matched, f.items[k])
					break
				}
			}
		}
	}

	start := 0
	if in.ExclusiveStartKey != nil {
		last := itemKey(in.ExclusiveStartKey)
		for i, m := range matched {
			if itemKey(m) == last {
				start = i + 1
			}
		}
	}
	if start >= len(matched) {
		return &dynamodb.QueryOutput{}, nil
	}
	out := &dynamodb.QueryOutput{Items: matched[start : start+1]}
	if start+1 < len(matched) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			partitionKey: matched[start][partitionKey],
			sortKey:      matched[start][sortKey],
		}
	}
	return out, nil
}

func TestStore(t *testing.T) {
	store := NewWithClient(newFakeDynamo(), "fundflow")
	ctx := context.Background()

	id, err := store.Create(ctx, "funds", storage.Document{"name": "Trip", "members": []any{"a", "b"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id == "" {
		t.Fatal("Expected ID to be generated")
	}
	if _, err := store.Create(ctx, "funds", storage.Document{"id": id}); err == nil {
		t.Error("Expected duplicate create to fail")
	}

	doc, err := store.Get(ctx, "funds", id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["name"] != "Trip" || doc.ID() != id {
		t.Errorf("unexpected document %v", doc)
	}
	if _, ok := doc[partitionKey]; ok {
		t.Error("partition key should not leak into documents")
	}

	if _, err := store.Create(ctx, "funds", storage.Document{"name": "Home", "members": []any{"b"}}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, "funds", storage.Document{"name": "Work", "members": []any{"c"}}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	docs, err := store.Query(ctx, "funds", "members", "b")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("Expected 2 funds with member b, got %d", len(docs))
	}

	byName, err := store.Query(ctx, "funds", "name", "Work")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(byName) != 1 {
		t.Errorf("Expected 1 fund named Work, got %d", len(byName))
	}

	if err := store.Update(ctx, "funds", id, storage.Document{"name": "Trip 2", "icon": "🏖"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	doc, _ = store.Get(ctx, "funds", id)
	if doc["name"] != "Trip 2" || doc["icon"] != "🏖" {
		t.Errorf("update not applied: %v", doc)
	}

	if err := store.Update(ctx, "funds", "missing", storage.Document{"name": "x"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Update error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "funds", id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "funds", id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
	if _, err := store.Get(ctx, "funds", id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
}

func TestNew_RequiresTable(t *testing.T) {
	if _, err := New(context.Background(), "", "ap-southeast-1"); err == nil {
		t.Error("Expected error for empty table name")
	}
}
