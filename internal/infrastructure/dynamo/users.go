package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shop-auth-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
// Reads return the public view unless the credentials variant is called.
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserRepo(client *dynamodb.Client, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

// emailLockPrefix keys the items that reserve an email address. They live
// in the users table next to the records, carry no email attribute and so
// never show up in the email index.
const emailLockPrefix = "email#"

func emailLockKey(email string) map[string]types.AttributeValue {
	return strKey(fieldUserID, emailLockPrefix+email)
}

// Create stores a new identity. The record and its email lock are written in
// one transaction, so two concurrent registrations of the same address cannot
// both succeed.
func (r *UserRepo) Create(ctx context.Context, u *domain.Identity) error {
	if _, err := r.GetByEmail(ctx, u.Email); err == nil {
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !isNotFound(err) {
		return err
	}
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     item,
				ConditionExpression:      aws.String("attribute_not_exists(#id)"),
				ExpressionAttributeNames: map[string]string{"#id": fieldUserID},
			}},
			r.lockEmail(u.Email, u.UserID),
		},
	})
	if err != nil {
		if _, failed := canceledByCondition(err); failed {
			return fmt.Errorf("email or user id already registered: %w", domain.ErrConflict)
		}
		return upstream("put user", err)
	}
	return nil
}

func (r *UserRepo) lockEmail(email, userID string) types.TransactWriteItem {
	return types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(r.tableName),
		Item: map[string]types.AttributeValue{
			fieldUserID:  &types.AttributeValueMemberS{Value: emailLockPrefix + email},
			fieldOwnerID: &types.AttributeValueMemberS{Value: userID},
		},
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": fieldUserID},
	}}
}

func (r *UserRepo) unlockEmail(email string) types.TransactWriteItem {
	return types.TransactWriteItem{Delete: &types.Delete{
		TableName: aws.String(r.tableName),
		Key:       emailLockKey(email),
	}}
}

// Get returns the public view of the identity.
func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.PublicIdentity, error) {
	proj, names := projection(publicUserFields)
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(fieldUserID, userID),
		ProjectionExpression:     aws.String(proj),
		ExpressionAttributeNames: names,
	})
	if err != nil {
		return nil, upstream("get user", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.PublicIdentity
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// GetCredentials returns the sensitive view, including the password hash and
// the password-change timestamp.
func (r *UserRepo) GetCredentials(ctx context.Context, userID string) (*domain.Identity, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, upstream("get user credentials", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.Identity
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// GetCredentialsByEmail returns the sensitive view for the given email.
func (r *UserRepo) GetCredentialsByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	var u domain.Identity
	if err := r.queryEmail(ctx, email, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns the public view for the given email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.PublicIdentity, error) {
	var u domain.PublicIdentity
	if err := r.queryEmail(ctx, email, publicUserFields, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Update applies a partial update. Fails with ErrNotFound when the user does
// not exist. An email change moves the email lock in the same transaction and
// fails with ErrConflict when the new address is taken.
func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	fields := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		fields[k] = v
	}
	fields[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(fields)
	if err != nil {
		return err
	}
	ue.Names["#id"] = fieldUserID
	if email, ok := updates[fieldEmail].(string); ok {
		return r.updateWithEmail(ctx, userID, email, ue)
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return upstream("update user", err)
	}
	return nil
}

func (r *UserRepo) updateWithEmail(ctx context.Context, userID, email string, ue *updateExpr) error {
	current, err := r.GetCredentials(ctx, userID)
	if err != nil {
		return err
	}
	items := []types.TransactWriteItem{{Update: &types.Update{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	}}}
	if email != current.Email {
		items = append(items, r.lockEmail(email, userID), r.unlockEmail(current.Email))
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if idx, failed := canceledByCondition(err); failed {
			if idx == 0 {
				return fmt.Errorf("user not found: %w", domain.ErrNotFound)
			}
			return fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		return upstream("update user", err)
	}
	return nil
}

// Delete removes the user record and releases its email.
func (r *UserRepo) Delete(ctx context.Context, userID string) error {
	current, err := r.Get(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       strKey(fieldUserID, userID),
			}},
			r.unlockEmail(current.Email),
		},
	})
	if err != nil {
		return upstream("delete user", err)
	}
	return nil
}

func (r *UserRepo) queryEmail(ctx context.Context, email string, attrs []string, out interface{}) error {
	names := map[string]string{"#a": fieldEmail}
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexEmail),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: email}},
		Limit:                     aws.Int32(1),
	}
	if len(attrs) > 0 {
		proj, projNames := projection(attrs)
		for k, v := range projNames {
			names[k] = v
		}
		input.ProjectionExpression = aws.String(proj)
	}
	input.ExpressionAttributeNames = names
	res, err := r.client.Query(ctx, input)
	if err != nil {
		return upstream("query user by email", err)
	}
	if len(res.Items) == 0 {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if err := attributevalue.UnmarshalMap(res.Items[0], out); err != nil {
		return fmt.Errorf("unmarshal user: %w", err)
	}
	return nil
}
