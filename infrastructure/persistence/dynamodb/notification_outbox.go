package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"guard-backend/application/ports"
	"guard-backend/domain/core/valueobjects"
	appErrors "guard-backend/pkg/errors"
)

const (
	outboxPK            = "OUTBOX"
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"
)

// outboxRecord is the single-table item for one staged notification. Entries
// share a partition so the retry processor can scan them with one query.
type outboxRecord struct {
	PK        string            `dynamodbav:"PK"`
	SK        string            `dynamodbav:"SK"`
	EntryID   string            `dynamodbav:"EntryID"`
	SubjectID string            `dynamodbav:"SubjectID"`
	AlertID   string            `dynamodbav:"AlertID"`
	Token     string            `dynamodbav:"Token"`
	Title     string            `dynamodbav:"Title"`
	Body      string            `dynamodbav:"Body"`
	Data      map[string]string `dynamodbav:"Data,omitempty"`
	Status    string            `dynamodbav:"Status"`
	Attempts  int               `dynamodbav:"Attempts"`
	CreatedAt string            `dynamodbav:"CreatedAt"`
	TTL       int64             `dynamodbav:"TTL"`
}

// NotificationOutbox stages push notifications in DynamoDB so delivery
// survives a crash between the alert commit and the fanout.
type NotificationOutbox struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewNotificationOutbox creates a DynamoDB-backed notification outbox
func NewNotificationOutbox(client *dynamodb.Client, tableName string, logger *zap.Logger) *NotificationOutbox {
	return &NotificationOutbox{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Stage implements ports.NotificationOutbox
func (o *NotificationOutbox) Stage(ctx context.Context, entries []ports.OutboxEntry) error {
	for _, entry := range entries {
		item, err := MarshalOutboxEntry(entry)
		if err != nil {
			return err
		}
		if _, err := o.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(o.tableName),
			Item:      item,
		}); err != nil {
			return appErrors.NewUnavailableError("failed to stage outbox entry", err)
		}
	}
	return nil
}

// MarshalOutboxEntry builds the entry's DynamoDB item. Shared with the
// transactional commit.
func MarshalOutboxEntry(entry ports.OutboxEntry) (map[string]types.AttributeValue, error) {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	status := entry.Status
	if status == "" {
		status = outboxStatusPending
	}
	record := outboxRecord{
		PK:        outboxPK,
		SK:        outboxSK(createdAt, entry.ID),
		EntryID:   entry.ID,
		SubjectID: entry.SubjectID.String(),
		AlertID:   entry.AlertID,
		Token:     entry.Token,
		Title:     entry.Title,
		Body:      entry.Body,
		Data:      entry.Data,
		Status:    status,
		Attempts:  entry.Attempts,
		CreatedAt: createdAt.Format(time.RFC3339Nano),
		// Entries expire after a week regardless of delivery outcome.
		TTL: createdAt.Add(7 * 24 * time.Hour).Unix(),
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to marshal outbox record", err)
	}
	return item, nil
}

// PendingBatch implements ports.NotificationOutbox
func (o *NotificationOutbox) PendingBatch(ctx context.Context, limit int) ([]ports.OutboxEntry, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("PK").Equal(expression.Value(outboxPK))).
		WithFilter(expression.Name("Status").Equal(expression.Value(outboxStatusPending))).
		Build()
	if err != nil {
		return nil, appErrors.NewInternalError("failed to build outbox query", err)
	}

	out, err := o.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(o.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, appErrors.NewUnavailableError("failed to query pending outbox entries", err)
	}

	entries := make([]ports.OutboxEntry, 0, len(out.Items))
	for _, item := range out.Items {
		var record outboxRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			o.logger.Warn("skipping corrupt outbox record", zap.Error(err))
			continue
		}
		subjectID, err := valueobjects.NewSubjectIDFromString(record.SubjectID)
		if err != nil {
			o.logger.Warn("skipping outbox record with bad subject id", zap.Error(err))
			continue
		}
		entries = append(entries, ports.OutboxEntry{
			ID:        record.EntryID,
			SubjectID: subjectID,
			AlertID:   record.AlertID,
			Token:     record.Token,
			Title:     record.Title,
			Body:      record.Body,
			Data:      record.Data,
			Status:    record.Status,
			Attempts:  record.Attempts,
			CreatedAt: parseTime(record.CreatedAt),
		})
	}
	return entries, nil
}

// MarkSent implements ports.NotificationOutbox
func (o *NotificationOutbox) MarkSent(ctx context.Context, id string) error {
	return o.setStatus(ctx, id, outboxStatusSent)
}

// MarkRetry implements ports.NotificationOutbox
func (o *NotificationOutbox) MarkRetry(ctx context.Context, id string) error {
	return o.setStatus(ctx, id, outboxStatusPending)
}

// MarkFailed implements ports.NotificationOutbox
func (o *NotificationOutbox) MarkFailed(ctx context.Context, id string) error {
	return o.setStatus(ctx, id, outboxStatusFailed)
}

func (o *NotificationOutbox) setStatus(ctx context.Context, id, status string) error {
	sk, err := o.findSK(ctx, id)
	if err != nil {
		return err
	}

	_, err = o.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(o.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: outboxPK},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression: aws.String("SET #status = :status ADD Attempts :one"),
		ExpressionAttributeNames: map[string]string{
			"#status": "Status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: status},
			":one":    &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		return appErrors.NewUnavailableError("failed to update outbox entry", err)
	}
	return nil
}

// findSK resolves an entry ID to its sort key. Entry IDs carry no timestamp,
// so this filters within the outbox partition.
func (o *NotificationOutbox) findSK(ctx context.Context, id string) (string, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("PK").Equal(expression.Value(outboxPK))).
		WithFilter(expression.Name("EntryID").Equal(expression.Value(id))).
		WithProjection(expression.NamesList(expression.Name("SK"))).
		Build()
	if err != nil {
		return "", appErrors.NewInternalError("failed to build outbox lookup", err)
	}

	out, err := o.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(o.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ProjectionExpression:      expr.Projection(),
	})
	if err != nil {
		return "", appErrors.NewUnavailableError("failed to find outbox entry", err)
	}
	if len(out.Items) == 0 {
		return "", appErrors.NewNotFoundError(fmt.Sprintf("outbox entry %s", id))
	}

	sk, ok := out.Items[0]["SK"].(*types.AttributeValueMemberS)
	if !ok {
		return "", appErrors.NewInternalError("outbox entry has no sort key", nil)
	}
	return sk.Value, nil
}

func outboxSK(createdAt time.Time, id string) string {
	return fmt.Sprintf("NOTIFY#%020d#%s", createdAt.UnixNano(), id)
}
