package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-email-relay/internal/domain"
)

// ItemAPI is the subset of the DynamoDB client used by VerificationStore.
type ItemAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// VerificationStore manages pending verification codes.
// PK: key (email). expires_at is a Unix timestamp used as DynamoDB TTL;
// DynamoDB deletes lazily, so Get re-checks age against the TTL.
type VerificationStore struct {
	client      ItemAPI
	tableName   string
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

// verificationItem is the stored shape. issued_at_ms keeps millisecond
// precision so expiry matches the other backends; expires_at is in seconds
// as DynamoDB TTL requires.
type verificationItem struct {
	Key        string `dynamodbav:"key"`
	Code       string `dynamodbav:"code"`
	IssuedAtMs int64  `dynamodbav:"issued_at_ms"`
	Attempts   int    `dynamodbav:"attempts"`
	ExpiresAt  int64  `dynamodbav:"expires_at"`
}

func NewVerificationStore(client ItemAPI, tableName string, ttl time.Duration, maxAttempts int) *VerificationStore {
	return &VerificationStore{
		client:      client,
		tableName:   tableName,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (r *VerificationStore) Put(ctx context.Context, key, code string) error {
	now := r.now()
	item, err := attributevalue.MarshalMap(&verificationItem{
		Key:        key,
		Code:       code,
		IssuedAtMs: now.UnixMilli(),
		ExpiresAt:  now.Add(r.ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *VerificationStore) Get(ctx context.Context, key string) (*domain.PendingVerification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("key", key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var item verificationItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal verification: %w", err)
	}
	v := &domain.PendingVerification{
		Key:      item.Key,
		Code:     item.Code,
		IssuedAt: time.UnixMilli(item.IssuedAtMs),
		Attempts: item.Attempts,
	}
	if v.Expired(r.now(), r.ttl) {
		if err := r.Remove(ctx, key); err != nil {
			slog.WarnContext(ctx, "failed to delete expired verification", "key", key, "err", err)
		}
		return nil, fmt.Errorf("verification expired: %w", domain.ErrNotFound)
	}
	return v, nil
}

func (r *VerificationStore) RecordFailedAttempt(ctx context.Context, key string) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("key", key),
		UpdateExpression:    aws.String("ADD attempts :one"),
		ConditionExpression: aws.String("attribute_exists(#k)"),
		// "key" is a DynamoDB reserved word
		ExpressionAttributeNames:  map[string]string{"#k": "key"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return 0, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
		}
		return 0, err
	}
	n, ok := out.Attributes["attempts"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("update verification: attempts missing from response")
	}
	attempts, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("parse attempts: %w", err)
	}
	if attempts >= r.maxAttempts {
		if err := r.Remove(ctx, key); err != nil {
			return attempts, err
		}
	}
	return attempts, nil
}

func (r *VerificationStore) Remove(ctx context.Context, key string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("key", key),
	})
	return err
}
