// Package dynamostore implements store.Store on a single DynamoDB table keyed
// by the string attributes pk (hash) and sk (range).
package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"Scrumble/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	attrPK = "pk"
	attrSK = "sk"
)

// API is the subset of the DynamoDB client the store calls.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type Store struct {
	api   API
	table string
}

func New(api API, table string) *Store {
	return &Store{api: api, table: table}
}

// NewClient builds a DynamoDB client for region. A non-empty endpoint points
// the client at DynamoDB Local with static credentials.
func NewClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	if region == "" {
		region = "us-east-2"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if endpoint != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// EnsureTable creates the table on demand billing when it does not exist.
func EnsureTable(ctx context.Context, client *dynamodb.Client, table string) error {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err == nil {
		return nil
	}
	var rnfe *ddbtypes.ResourceNotFoundException
	if !errors.As(err, &rnfe) {
		return fmt.Errorf("describe table %s: %w", table, err)
	}

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(table),
		BillingMode: ddbtypes.BillingModePayPerRequest,
		AttributeDefinitions: []ddbtypes.AttributeDefinition{
			{AttributeName: aws.String(attrPK), AttributeType: ddbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrSK), AttributeType: ddbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []ddbtypes.KeySchemaElement{
			{AttributeName: aws.String(attrPK), KeyType: ddbtypes.KeyTypeHash},
			{AttributeName: aws.String(attrSK), KeyType: ddbtypes.KeyTypeRange},
		},
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, 2*time.Minute)
}

func (s *Store) Get(ctx context.Context, pk, sk string) (store.Item, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return store.Item{}, fmt.Errorf("GetItem(%s/%s): %w", pk, sk, err)
	}
	if len(out.Item) == 0 {
		return store.Item{}, store.ErrNotFound
	}
	return fromAttributeValues(out.Item)
}

func (s *Store) Put(ctx context.Context, item store.Item) error {
	av, err := toAttributeValues(item)
	if err != nil {
		return err
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("PutItem(%s/%s): %w", item.PK, item.SK, err)
	}
	return nil
}

func (s *Store) AtomicAdd(ctx context.Context, pk, sk, field string, delta int64) (int64, error) {
	out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.table),
		Key:                      key(pk, sk),
		UpdateExpression:         aws.String("ADD #f :d"),
		ExpressionAttributeNames: map[string]string{"#f": field},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":d": &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(delta, 10)},
		},
		ReturnValues: ddbtypes.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("UpdateItem(%s/%s ADD %s): %w", pk, sk, field, err)
	}
	n, ok := out.Attributes[field].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("UpdateItem(%s/%s): %s missing from response", pk, sk, field)
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

func (s *Store) Query(ctx context.Context, in store.QueryInput) ([]store.Item, error) {
	cond := "#pk = :pk"
	values := map[string]ddbtypes.AttributeValue{
		":pk": &ddbtypes.AttributeValueMemberS{Value: in.PK},
	}
	names := map[string]string{"#pk": attrPK}
	if in.SKPrefix != "" {
		cond += " AND begins_with(#sk, :prefix)"
		names["#sk"] = attrSK
		values[":prefix"] = &ddbtypes.AttributeValueMemberS{Value: in.SKPrefix}
	}

	q := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    aws.String(cond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConsistentRead:            aws.Bool(true),
		ScanIndexForward:          aws.Bool(!in.NewestFirst),
	}
	// DynamoDB applies Limit before any filter, so only push it down when
	// the filter runs nowhere.
	if in.Filter == nil && in.Limit > 0 {
		q.Limit = aws.Int32(int32(in.Limit))
	}

	out := []store.Item{}
	for {
		resp, err := s.api.Query(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("Query(%s, prefix=%q): %w", in.PK, in.SKPrefix, err)
		}
		for _, raw := range resp.Items {
			it, err := fromAttributeValues(raw)
			if err != nil {
				return nil, err
			}
			if !in.Match(it) {
				continue
			}
			out = append(out, it)
			if in.Limit > 0 && len(out) >= in.Limit {
				return out, nil
			}
		}
		if len(resp.LastEvaluatedKey) == 0 {
			return out, nil
		}
		q.ExclusiveStartKey = resp.LastEvaluatedKey
	}
}

func (s *Store) Delete(ctx context.Context, pk, sk string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       key(pk, sk),
	})
	if err != nil {
		return fmt.Errorf("DeleteItem(%s/%s): %w", pk, sk, err)
	}
	return nil
}

func key(pk, sk string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		attrPK: &ddbtypes.AttributeValueMemberS{Value: pk},
		attrSK: &ddbtypes.AttributeValueMemberS{Value: sk},
	}
}

func toAttributeValues(item store.Item) (map[string]ddbtypes.AttributeValue, error) {
	av := key(item.PK, item.SK)
	for name, v := range item.Attrs {
		if name == attrPK || name == attrSK {
			return nil, fmt.Errorf("attribute name %q is reserved", name)
		}
		switch t := v.(type) {
		case string:
			av[name] = &ddbtypes.AttributeValueMemberS{Value: t}
		case int64:
			av[name] = &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(t, 10)}
		case int:
			av[name] = &ddbtypes.AttributeValueMemberN{Value: strconv.Itoa(t)}
		case bool:
			av[name] = &ddbtypes.AttributeValueMemberBOOL{Value: t}
		default:
			return nil, fmt.Errorf("attribute %q: unsupported type %T", name, v)
		}
	}
	return av, nil
}

func fromAttributeValues(av map[string]ddbtypes.AttributeValue) (store.Item, error) {
	pk, _ := av[attrPK].(*ddbtypes.AttributeValueMemberS)
	sk, _ := av[attrSK].(*ddbtypes.AttributeValueMemberS)
	if pk == nil || sk == nil {
		return store.Item{}, errors.New("item is missing its key attributes")
	}

	item := store.NewItem(pk.Value, sk.Value)
	for name, raw := range av {
		if name == attrPK || name == attrSK {
			continue
		}
		switch t := raw.(type) {
		case *ddbtypes.AttributeValueMemberS:
			item = item.Set(name, t.Value)
		case *ddbtypes.AttributeValueMemberN:
			n, err := strconv.ParseInt(t.Value, 10, 64)
			if err != nil {
				return store.Item{}, fmt.Errorf("attribute %q: %w", name, err)
			}
			item = item.Set(name, n)
		case *ddbtypes.AttributeValueMemberBOOL:
			item = item.Set(name, t.Value)
		}
	}
	return item, nil
}
