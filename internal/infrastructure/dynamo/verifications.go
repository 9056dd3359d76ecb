package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shop-auth-api/internal/domain"
)

// VerificationRepo manages one-time verification artifacts.
// PK: user_id, SK: purpose ("verification" | "reset"). A put replaces the
// previous artifact for the same key.
type VerificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVerificationRepo(client *dynamodb.Client, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

func (r *VerificationRepo) Put(ctx context.Context, a *domain.Artifact) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return upstream("put verification", err)
	}
	return nil
}

func (r *VerificationRepo) Get(ctx context.Context, userID string, purpose domain.Purpose) (*domain.Artifact, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            compositeKey(fieldUserID, userID, fieldPurpose, string(purpose)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, upstream("get verification", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var a domain.Artifact
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal verification: %w", err)
	}
	return &a, nil
}

// ConsumeMatching deletes the artifact only if hash matches its code or token
// and it has not expired at now. It reports whether the delete happened, so
// two concurrent consumers cannot both succeed.
func (r *VerificationRepo) ConsumeMatching(ctx context.Context, userID string, purpose domain.Purpose, hash string, now time.Time) (bool, error) {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey(fieldUserID, userID, fieldPurpose, string(purpose)),
		ConditionExpression: aws.String("(#c = :h OR #t = :h) AND #e > :now"),
		ExpressionAttributeNames: map[string]string{
			"#c": fieldCodeHash,
			"#t": fieldTokenHash,
			"#e": fieldExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":h":   &types.AttributeValueMemberS{Value: hash},
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return false, nil
		}
		return false, upstream("consume verification", err)
	}
	return true, nil
}

// Attempt atomically counts one presentation of the artifact. It fails when
// the artifact is missing, expired or already at maxAttempts, and in the last
// case deletes it. The count is taken before any comparison, so parallel
// guesses cannot exceed the limit.
func (r *VerificationRepo) Attempt(ctx context.Context, userID string, purpose domain.Purpose, maxAttempts int, now time.Time) (bool, error) {
	key := compositeKey(fieldUserID, userID, fieldPurpose, string(purpose))
	names := map[string]string{
		"#u": fieldUserID,
		"#e": fieldExpiresAt,
		"#a": fieldAttempts,
	}
	limit := &types.AttributeValueMemberN{Value: strconv.Itoa(maxAttempts)}
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      key,
		UpdateExpression:         aws.String("ADD #a :one"),
		ConditionExpression:      aws.String("attribute_exists(#u) AND #e > :now AND (attribute_not_exists(#a) OR #a < :max)"),
		ExpressionAttributeNames: names,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
			":max": limit,
		},
	})
	if err == nil {
		return true, nil
	}
	if !isConditionFailed(err) {
		return false, upstream("count verification attempt", err)
	}
	// Burn only an exhausted artifact; a freshly issued one has attempts 0.
	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       key,
		ConditionExpression:       aws.String("#a >= :max"),
		ExpressionAttributeNames:  map[string]string{"#a": fieldAttempts},
		ExpressionAttributeValues: map[string]types.AttributeValue{":max": limit},
	})
	if err != nil && !isConditionFailed(err) {
		return false, upstream("burn verification", err)
	}
	return false, nil
}

func (r *VerificationRepo) Delete(ctx context.Context, userID string, purpose domain.Purpose) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey(fieldUserID, userID, fieldPurpose, string(purpose)),
	})
	if err != nil {
		return upstream("delete verification", err)
	}
	return nil
}
