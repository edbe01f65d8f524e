package dynamo

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/contacts-api/internal/domain"
)

// ContactRepo provides typed DynamoDB operations for the contacts table.
type ContactRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewContactRepo(client *dynamodb.Client, tableName string) *ContactRepo {
	return &ContactRepo{client: client, tableName: tableName}
}

func (r *ContactRepo) Put(ctx context.Context, c *domain.Contact) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal contact: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put contact: %v: %w", err, domain.ErrStorage)
	}
	return nil
}

// GetForUser fetches a contact by id and verifies ownership. A contact
// belonging to another user is indistinguishable from a missing one.
func (r *ContactRepo) GetForUser(ctx context.Context, contactID, userID string) (*domain.Contact, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("contact_id", contactID),
	})
	if err != nil {
		return nil, fmt.Errorf("get contact: %v: %w", err, domain.ErrStorage)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("contact not found: %w", domain.ErrNotFound)
	}
	var c domain.Contact
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal contact: %v: %w", err, domain.ErrStorage)
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("contact not found: %w", domain.ErrNotFound)
	}
	return &c, nil
}

// QueryByUser returns a page of the user's contacts via the user_id GSI.
// cursor is a base64-encoded contact_id used as ExclusiveStartKey.
// Returns the items, a next cursor (empty string when no more pages), and any error.
func (r *ContactRepo) QueryByUser(ctx context.Context, userID string, limit int32, cursor string) ([]domain.Contact, string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		Limit: aws.Int32(limit),
	}
	if cursor != "" {
		contactID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = map[string]types.AttributeValue{
			"contact_id": &types.AttributeValueMemberS{Value: contactID},
			"user_id":    &types.AttributeValueMemberS{Value: userID},
		}
	}
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("query contacts: %v: %w", err, domain.ErrStorage)
	}
	var contacts []domain.Contact
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &contacts); err != nil {
		return nil, "", fmt.Errorf("unmarshal contacts: %v: %w", err, domain.ErrStorage)
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["contact_id"].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return contacts, nextCursor, nil
}

// AllByUser drains every page of the user's contacts. Used by queries that
// filter in application code (birthday windows, name/email search).
func (r *ContactRepo) AllByUser(ctx context.Context, userID string) ([]domain.Contact, error) {
	var all []domain.Contact
	cursor := ""
	for {
		page, next, err := r.QueryByUser(ctx, userID, 100, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

func (r *ContactRepo) Update(ctx context.Context, contactID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	expr, names, values, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("contact_id", contactID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("update contact: %v: %w", err, domain.ErrStorage)
	}
	return nil
}

func (r *ContactRepo) Delete(ctx context.Context, contactID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("contact_id", contactID),
	})
	if err != nil {
		return fmt.Errorf("delete contact: %v: %w", err, domain.ErrStorage)
	}
	return nil
}

func encodeCursor(contactID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(contactID))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
