package dynamostore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"Scrumble/store"
	"Scrumble/store/storetest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo understands exactly the request shapes Store issues. Query
// results are paged two at a time to exercise ExclusiveStartKey handling.
type fakeDynamo struct {
	mu      sync.Mutex
	rows    map[string]map[string]map[string]ddbtypes.AttributeValue
	queries int
}

func newFake() *fakeDynamo {
	return &fakeDynamo{rows: map[string]map[string]map[string]ddbtypes.AttributeValue{}}
}

func str(av ddbtypes.AttributeValue) string {
	s, _ := av.(*ddbtypes.AttributeValueMemberS)
	if s == nil {
		return ""
	}
	return s.Value
}

func copyRow(in map[string]ddbtypes.AttributeValue) map[string]ddbtypes.AttributeValue {
	out := make(map[string]ddbtypes.AttributeValue, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[str(in.Key[attrPK])][str(in.Key[attrSK])]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyRow(row)}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk := str(in.Item[attrPK])
	if f.rows[pk] == nil {
		f.rows[pk] = map[string]map[string]ddbtypes.AttributeValue{}
	}
	f.rows[pk][str(in.Item[attrSK])] = copyRow(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk, sk := str(in.Key[attrPK]), str(in.Key[attrSK])
	field := in.ExpressionAttributeNames["#f"]
	delta, err := strconv.ParseInt(in.ExpressionAttributeValues[":d"].(*ddbtypes.AttributeValueMemberN).Value, 10, 64)
	if err != nil {
		return nil, err
	}
	if f.rows[pk] == nil {
		f.rows[pk] = map[string]map[string]ddbtypes.AttributeValue{}
	}
	row := f.rows[pk][sk]
	if row == nil {
		row = copyRow(in.Key)
		f.rows[pk][sk] = row
	}
	var current int64
	if n, ok := row[field].(*ddbtypes.AttributeValueMemberN); ok {
		current, _ = strconv.ParseInt(n.Value, 10, 64)
	}
	next := &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(current+delta, 10)}
	row[field] = next
	return &dynamodb.UpdateItemOutput{Attributes: map[string]ddbtypes.AttributeValue{field: next}}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++

	part := f.rows[str(in.ExpressionAttributeValues[":pk"])]
	prefix := str(in.ExpressionAttributeValues[":prefix"])
	var sks []string
	for sk := range part {
		if strings.HasPrefix(sk, prefix) {
			sks = append(sks, sk)
		}
	}
	sort.Strings(sks)
	if !aws.ToBool(in.ScanIndexForward) {
		sort.Sort(sort.Reverse(sort.StringSlice(sks)))
	}
	if in.ExclusiveStartKey != nil {
		after := str(in.ExclusiveStartKey[attrSK])
		for i, sk := range sks {
			if sk == after {
				sks = sks[i+1:]
				break
			}
		}
	}

	page := 2
	if in.Limit != nil && int(*in.Limit) < page {
		page = int(*in.Limit)
	}
	out := &dynamodb.QueryOutput{}
	for i, sk := range sks {
		if i == page {
			out.LastEvaluatedKey = map[string]ddbtypes.AttributeValue{
				attrPK: in.ExpressionAttributeValues[":pk"],
				attrSK: &ddbtypes.AttributeValueMemberS{Value: sks[i-1]},
			}
			break
		}
		out.Items = append(out.Items, copyRow(part[sk]))
	}
	return out, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows[str(in.Key[attrPK])], str(in.Key[attrSK]))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New(newFake(), "scrumble-test") })
}

func TestAttributeValueConversion(t *testing.T) {
	in := store.NewItem("ENTRY", "velo").
		Set("name", "Velo").
		Set("rank", int64(3)).
		Set("featured", true)

	av, err := toAttributeValues(in)
	require.NoError(t, err)
	assert.Equal(t, &ddbtypes.AttributeValueMemberS{Value: "ENTRY"}, av[attrPK])
	assert.Equal(t, &ddbtypes.AttributeValueMemberN{Value: "3"}, av["rank"])
	assert.Equal(t, &ddbtypes.AttributeValueMemberBOOL{Value: true}, av["featured"])

	out, err := fromAttributeValues(av)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestConversionRejectsBadInput(t *testing.T) {
	_, err := toAttributeValues(store.NewItem("ENTRY", "x").Set("pk", "shadow"))
	assert.Error(t, err)

	_, err = toAttributeValues(store.NewItem("ENTRY", "x").Set("ratio", 0.5))
	assert.Error(t, err)

	_, err = fromAttributeValues(map[string]ddbtypes.AttributeValue{attrPK: &ddbtypes.AttributeValueMemberS{Value: "ENTRY"}})
	assert.Error(t, err)
}

func TestQueryFollowsPages(t *testing.T) {
	fake := newFake()
	s := New(fake, "scrumble-test")
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, s.Put(ctx, store.NewItem("MATCHUP", id).Set("title", id)))
	}
	got, err := s.Query(ctx, store.QueryInput{PK: "MATCHUP"})
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 3, fake.queries)
}
