package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Yulian302/lfusys-renewal-map/auth/types"
	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamoTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the part of *dynamodb.Client the profile store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type profileRecord struct {
	Key       string `dynamodbav:"key"`
	Profile   string `dynamodbav:"profile"`
	UpdatedAt int64  `dynamodbav:"updated_at"`
}

type DynamoDbProfileStore struct {
	Client    DynamoAPI
	TableName string
	Key       string
}

func NewDynamoProfileStore(client DynamoAPI, tableName, key string) *DynamoDbProfileStore {
	return &DynamoDbProfileStore{
		Client:    client,
		TableName: tableName,
		Key:       key,
	}
}

func (s *DynamoDbProfileStore) IsReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	_, err := s.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.TableName),
	})
	return err
}

func (s *DynamoDbProfileStore) Name() string {
	return "ProfileStore[" + s.TableName + "]"
}

func (s *DynamoDbProfileStore) key() map[string]dynamoTypes.AttributeValue {
	return map[string]dynamoTypes.AttributeValue{
		"key": &dynamoTypes.AttributeValueMemberS{Value: s.Key},
	}
}

func (s *DynamoDbProfileStore) Load(ctx context.Context) (*types.UserProfile, error) {
	res, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.TableName),
		Key:            s.key(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get profile: %w", err)
	}
	if res.Item == nil {
		return nil, apperror.ErrProfileNotFound
	}

	var rec profileRecord
	if err := attributevalue.UnmarshalMap(res.Item, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrProfileCorrupted, err)
	}
	return decode([]byte(rec.Profile))
}

func (s *DynamoDbProfileStore) Save(ctx context.Context, profile types.UserProfile) error {
	data, err := encode(profile)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(profileRecord{
		Key:       s.Key,
		Profile:   string(data),
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.TableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put profile: %w", err)
	}
	return nil
}

func (s *DynamoDbProfileStore) Delete(ctx context.Context) error {
	_, err := s.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.TableName),
		Key:       s.key(),
	})
	if err != nil {
		return fmt.Errorf("dynamodb delete profile: %w", err)
	}
	return nil
}
