package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// CartRepo reads the item count of a user's cart. The cart itself belongs to
// another service; only the count is needed here.
type CartRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCartRepo(client *dynamodb.Client, tableName string) *CartRepo {
	return &CartRepo{client: client, tableName: tableName}
}

// ItemsCount returns 0 when the user has no cart record.
func (r *CartRepo) ItemsCount(ctx context.Context, userID string) (int, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(fieldUserID, userID),
		ProjectionExpression:     aws.String("#n"),
		ExpressionAttributeNames: map[string]string{"#n": fieldItemCount},
	})
	if err != nil {
		return 0, upstream("get cart", err)
	}
	if out.Item == nil {
		return 0, nil
	}
	var cart struct {
		ItemsCount int `dynamodbav:"items_count"`
	}
	if err := attributevalue.UnmarshalMap(out.Item, &cart); err != nil {
		return 0, fmt.Errorf("unmarshal cart: %w", err)
	}
	return cart.ItemsCount, nil
}
