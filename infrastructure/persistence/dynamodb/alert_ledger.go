package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"guard-backend/domain/core/entities"
	"guard-backend/domain/core/valueobjects"
	appErrors "guard-backend/pkg/errors"
)

// alertRecord is the single-table item for one alert ledger entry. GSI2
// groups alerts by kind so the dashboard can count them without scanning.
type alertRecord struct {
	PK         string   `dynamodbav:"PK"`
	SK         string   `dynamodbav:"SK"`
	GSI2PK     string   `dynamodbav:"GSI2PK"`
	GSI2SK     string   `dynamodbav:"GSI2SK"`
	AlertID    string   `dynamodbav:"AlertID"`
	SubjectID  string   `dynamodbav:"SubjectID"`
	Kind       string   `dynamodbav:"Kind"`
	Message    string   `dynamodbav:"Message"`
	Latitude   *float64 `dynamodbav:"Latitude,omitempty"`
	Longitude  *float64 `dynamodbav:"Longitude,omitempty"`
	OccurredAt string   `dynamodbav:"OccurredAt"`
	CreatedAt  string   `dynamodbav:"CreatedAt"`
	EntityType string   `dynamodbav:"EntityType"`
}

// AlertLedger is the append-only DynamoDB store of alert events.
type AlertLedger struct {
	client        *dynamodb.Client
	tableName     string
	kindIndexName string
	logger        *zap.Logger
}

// NewAlertLedger creates a DynamoDB-backed alert ledger
func NewAlertLedger(client *dynamodb.Client, tableName, kindIndexName string, logger *zap.Logger) *AlertLedger {
	return &AlertLedger{
		client:        client,
		tableName:     tableName,
		kindIndexName: kindIndexName,
		logger:        logger,
	}
}

// Append implements ports.AlertLedger
func (l *AlertLedger) Append(ctx context.Context, alert entities.AlertEvent) error {
	item, err := MarshalAlert(alert)
	if err != nil {
		return err
	}

	if _, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item:      item,
	}); err != nil {
		return appErrors.NewUnavailableError("failed to append alert", err)
	}
	return nil
}

// MarshalAlert builds the alert's DynamoDB item. Shared with the
// transactional commit.
func MarshalAlert(alert entities.AlertEvent) (map[string]types.AttributeValue, error) {
	record := alertRecord{
		PK:         subjectPK(alert.SubjectID),
		SK:         alertSK(alert.OccurredAt, alert.ID),
		GSI2PK:     "ALERTKIND#" + string(alert.Kind),
		GSI2SK:     fmt.Sprintf("%020d", alert.OccurredAt.UnixNano()),
		AlertID:    alert.ID,
		SubjectID:  alert.SubjectID.String(),
		Kind:       string(alert.Kind),
		Message:    alert.Message,
		Latitude:   alert.Latitude,
		Longitude:  alert.Longitude,
		OccurredAt: alert.OccurredAt.Format(time.RFC3339Nano),
		CreatedAt:  alert.CreatedAt.Format(time.RFC3339Nano),
		EntityType: "ALERT",
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to marshal alert record", err)
	}
	return item, nil
}

// ListBySubject implements ports.AlertLedger
func (l *AlertLedger) ListBySubject(ctx context.Context, subjectID valueobjects.SubjectID, limit int) ([]entities.AlertEvent, error) {
	out, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: subjectPK(subjectID)},
			":prefix": &types.AttributeValueMemberS{Value: "ALERT#"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, appErrors.NewUnavailableError("failed to query alerts", err)
	}

	alerts := make([]entities.AlertEvent, 0, len(out.Items))
	for _, item := range out.Items {
		alert, err := unmarshalAlert(item)
		if err != nil {
			l.logger.Warn("skipping corrupt alert record", zap.Error(err))
			continue
		}
		alerts = append(alerts, *alert)
	}
	return alerts, nil
}

// CountByKindSince implements ports.AlertLedger
func (l *AlertLedger) CountByKindSince(ctx context.Context, kind entities.AlertKind, since time.Time) (int, error) {
	total := 0
	var startKey map[string]types.AttributeValue

	for {
		out, err := l.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(l.tableName),
			IndexName:              aws.String(l.kindIndexName),
			KeyConditionExpression: aws.String("GSI2PK = :kind AND GSI2SK >= :since"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":kind":  &types.AttributeValueMemberS{Value: "ALERTKIND#" + string(kind)},
				":since": &types.AttributeValueMemberS{Value: fmt.Sprintf("%020d", since.UnixNano())},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, appErrors.NewUnavailableError("failed to count alerts", err)
		}
		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return total, nil
}

// RecentByKind implements ports.AlertLedger. GSI2 sorts by occurrence time,
// so the newest entries come back with one reverse query.
func (l *AlertLedger) RecentByKind(ctx context.Context, kind entities.AlertKind, limit int) ([]entities.AlertEvent, error) {
	out, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.tableName),
		IndexName:              aws.String(l.kindIndexName),
		KeyConditionExpression: aws.String("GSI2PK = :kind"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":kind": &types.AttributeValueMemberS{Value: "ALERTKIND#" + string(kind)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, appErrors.NewUnavailableError("failed to query recent alerts", err)
	}

	alerts := make([]entities.AlertEvent, 0, len(out.Items))
	for _, item := range out.Items {
		alert, err := unmarshalAlert(item)
		if err != nil {
			l.logger.Warn("skipping corrupt alert record", zap.Error(err))
			continue
		}
		alerts = append(alerts, *alert)
	}
	return alerts, nil
}

func unmarshalAlert(item map[string]types.AttributeValue) (*entities.AlertEvent, error) {
	var record alertRecord
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return nil, appErrors.NewInternalError("failed to unmarshal alert record", err)
	}

	subjectID, err := valueobjects.NewSubjectIDFromString(record.SubjectID)
	if err != nil {
		return nil, appErrors.NewInternalError("corrupt alert record: bad subject id", err)
	}

	return &entities.AlertEvent{
		ID:         record.AlertID,
		SubjectID:  subjectID,
		Kind:       entities.AlertKind(record.Kind),
		Message:    record.Message,
		Latitude:   record.Latitude,
		Longitude:  record.Longitude,
		OccurredAt: parseTime(record.OccurredAt),
		CreatedAt:  parseTime(record.CreatedAt),
	}, nil
}

func alertSK(occurredAt time.Time, alertID string) string {
	return fmt.Sprintf("ALERT#%020d#%s", occurredAt.UnixNano(), alertID)
}
