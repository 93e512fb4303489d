package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"rustplugin-bot/internal/domain"
)

const (
	pkPrefixPending = "PENDING#"
	skResult        = "RESULT#"
	pkPrefixUpdate  = "UPDATE#"
	skSeen          = "SEEN#"

	// Telegram stops redelivering an update after 24 hours.
	updateRetention = 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore keeps pending results in a DynamoDB table with a TTL attribute.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// NewDynamoStore creates a DynamoDB-backed pending result store.
func NewDynamoStore(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName, now: time.Now}, nil
}

// pendingPK returns the DynamoDB partition key for a pending result token.
func pendingPK(token string) string {
	return pkPrefixPending + token
}

// Save writes a new pending result. Tokens are never overwritten.
func (s *DynamoStore) Save(ctx context.Context, p domain.PendingResult) error {
	if strings.TrimSpace(p.Token) == "" {
		return errors.New("repository: Save: token is required")
	}
	if p.ExpiresAt.IsZero() {
		return errors.New("repository: Save: expiry is required")
	}
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                pendingItem(p),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	return nil
}

// Take deletes the pending result and returns it. DynamoDB sweeps TTL items
// lazily, so an item past its expiry is reported as not found.
func (s *DynamoStore) Take(ctx context.Context, token string) (domain.PendingResult, error) {
	if strings.TrimSpace(token) == "" {
		return domain.PendingResult{}, domain.ErrPendingNotFound
	}
	out, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pendingPK(token)},
			"SK": &types.AttributeValueMemberS{Value: skResult},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return domain.PendingResult{}, fmt.Errorf("repository: Take delete item: %w", err)
	}
	if out == nil || len(out.Attributes) == 0 {
		return domain.PendingResult{}, domain.ErrPendingNotFound
	}

	p, err := itemToPending(out.Attributes)
	if err != nil {
		return domain.PendingResult{}, fmt.Errorf("repository: Take decode: %w", err)
	}
	if p.Expired(s.now()) {
		return domain.PendingResult{}, domain.ErrPendingNotFound
	}
	return p, nil
}

// ClaimUpdate records updateID as seen. It reports false when the update was
// claimed before, which marks a webhook redelivery.
func (s *DynamoStore) ClaimUpdate(ctx context.Context, updateID int) (bool, error) {
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":  &types.AttributeValueMemberS{Value: pkPrefixUpdate + strconv.Itoa(updateID)},
			"SK":  &types.AttributeValueMemberS{Value: skSeen},
			"ttl": &types.AttributeValueMemberN{Value: strconv.FormatInt(s.now().Add(updateRetention).Unix(), 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	var conflict *types.ConditionalCheckFailedException
	if errors.As(err, &conflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("repository: ClaimUpdate: %w", err)
	}
	return true, nil
}

func pendingItem(p domain.PendingResult) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":       &types.AttributeValueMemberS{Value: pendingPK(p.Token)},
		"SK":       &types.AttributeValueMemberS{Value: skResult},
		"token":    &types.AttributeValueMemberS{Value: p.Token},
		"chatId":   &types.AttributeValueMemberN{Value: strconv.FormatInt(p.ChatID, 10)},
		"text":     &types.AttributeValueMemberS{Value: p.Text},
		"fileName": &types.AttributeValueMemberS{Value: p.FileName},
		"ttl":      &types.AttributeValueMemberN{Value: strconv.FormatInt(p.ExpiresAt.Unix(), 10)},
	}
}

// itemToPending converts a DynamoDB attribute map to a PendingResult.
func itemToPending(item map[string]types.AttributeValue) (domain.PendingResult, error) {
	token, err := strAttr(item, "token")
	if err != nil {
		return domain.PendingResult{}, err
	}
	chatID, err := int64Attr(item, "chatId")
	if err != nil {
		return domain.PendingResult{}, err
	}
	text, err := strAttr(item, "text")
	if err != nil {
		return domain.PendingResult{}, err
	}
	fileName, _ := strAttr(item, "fileName") // allow empty
	ttl, err := int64Attr(item, "ttl")
	if err != nil {
		return domain.PendingResult{}, err
	}
	return domain.PendingResult{
		Token:     token,
		ChatID:    chatID,
		Text:      text,
		FileName:  fileName,
		ExpiresAt: time.Unix(ttl, 0),
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
