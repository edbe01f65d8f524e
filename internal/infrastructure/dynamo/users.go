package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/contacts-api/internal/domain"
)

// Attribute names used in partial update maps.
const (
	fieldRefreshToken = "refresh_token"
	fieldConfirmed    = "confirmed"
	fieldAvatar       = "avatar"
	fieldUpdatedAt    = "updated_at"
)

// UserRepo provides typed DynamoDB operations for the users table.
// The users table is the single source of truth for identity state; the
// Redis snapshot cache in front of it is purely an optimization.
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserRepo(client *dynamodb.Client, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

func (r *UserRepo) Put(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put user: %v: %w", err, domain.ErrStorage)
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("email-index"),
		KeyConditionExpression:    aws.String("email = :e"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": &types.AttributeValueMemberS{Value: email}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query user by email: %v: %w", err, domain.ErrStorage)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %v: %w", err, domain.ErrStorage)
	}
	return &u, nil
}

func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	expr, names, values, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("update user: %v: %w", err, domain.ErrStorage)
	}
	return nil
}

// SetRefreshToken overwrites the stored refresh token unconditionally.
// Used on login, where a fresh pair always replaces whatever was there.
func (r *UserRepo) SetRefreshToken(ctx context.Context, userID, token string) error {
	return r.Update(ctx, userID, map[string]interface{}{fieldRefreshToken: token})
}

// RotateRefreshToken replaces the stored refresh token only if it still
// equals oldToken. The conditional write makes rotation a compare-and-swap:
// of two concurrent refreshes presenting the same token, exactly one commits.
// Returns ErrUnauthorized when the condition fails.
func (r *UserRepo) RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("user_id", userID),
		UpdateExpression:    aws.String("SET refresh_token = :new, updated_at = :now"),
		ConditionExpression: aws.String("refresh_token = :old"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new": &types.AttributeValueMemberS{Value: newToken},
			":old": &types.AttributeValueMemberS{Value: oldToken},
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("refresh token no longer current: %w", domain.ErrUnauthorized)
		}
		return fmt.Errorf("rotate refresh token: %v: %w", err, domain.ErrStorage)
	}
	return nil
}

// ClearRefreshToken drops the stored refresh token, forcing a new login.
func (r *UserRepo) ClearRefreshToken(ctx context.Context, userID string) error {
	return r.Update(ctx, userID, map[string]interface{}{fieldRefreshToken: ""})
}

// ConfirmEmail marks the user's email address as confirmed. The transition
// is one-way; calling it again is harmless.
func (r *UserRepo) ConfirmEmail(ctx context.Context, userID string) error {
	return r.Update(ctx, userID, map[string]interface{}{fieldConfirmed: true})
}

// UpdateAvatar stores a new avatar URL for the user.
func (r *UserRepo) UpdateAvatar(ctx context.Context, userID, url string) error {
	return r.Update(ctx, userID, map[string]interface{}{fieldAvatar: url})
}
