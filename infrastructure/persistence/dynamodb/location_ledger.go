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

// locationRecord is the single-table item for one position sample. The sort
// key orders samples by receive time, so "latest" is a single reverse query.
type locationRecord struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	SampleID   string  `dynamodbav:"SampleID"`
	SubjectID  string  `dynamodbav:"SubjectID"`
	Latitude   float64 `dynamodbav:"Latitude"`
	Longitude  float64 `dynamodbav:"Longitude"`
	RecordedAt string  `dynamodbav:"RecordedAt,omitempty"`
	ReceivedAt string  `dynamodbav:"ReceivedAt"`
	EntityType string  `dynamodbav:"EntityType"`
}

// LocationLedger is the append-only DynamoDB store of admitted samples.
type LocationLedger struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewLocationLedger creates a DynamoDB-backed location ledger
func NewLocationLedger(client *dynamodb.Client, tableName string, logger *zap.Logger) *LocationLedger {
	return &LocationLedger{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Append implements ports.LocationLedger
func (l *LocationLedger) Append(ctx context.Context, sample entities.PositionSample) error {
	record := locationRecord{
		PK:         subjectPK(sample.SubjectID),
		SK:         locationSK(sample.ReceivedAt, sample.ID),
		SampleID:   sample.ID,
		SubjectID:  sample.SubjectID.String(),
		Latitude:   sample.Position.Latitude(),
		Longitude:  sample.Position.Longitude(),
		ReceivedAt: sample.ReceivedAt.Format(time.RFC3339Nano),
		EntityType: "LOCATION",
	}
	if !sample.RecordedAt.IsZero() {
		record.RecordedAt = sample.RecordedAt.Format(time.RFC3339Nano)
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return appErrors.NewInternalError("failed to marshal location record", err)
	}

	if _, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item:      item,
	}); err != nil {
		return appErrors.NewUnavailableError("failed to append location sample", err)
	}
	return nil
}

// Latest implements ports.LocationLedger
func (l *LocationLedger) Latest(ctx context.Context, subjectID valueobjects.SubjectID) (*entities.PositionSample, error) {
	out, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: subjectPK(subjectID)},
			":prefix": &types.AttributeValueMemberS{Value: "LOCATION#"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, appErrors.NewUnavailableError("failed to query latest location", err)
	}
	if len(out.Items) == 0 {
		return nil, appErrors.NewNotFoundError(
			fmt.Sprintf("location samples for subject %s", subjectID.String()))
	}

	sample, err := unmarshalSample(out.Items[0])
	if err != nil {
		return nil, err
	}
	return sample, nil
}

// History implements ports.LocationLedger
func (l *LocationLedger) History(ctx context.Context, subjectID valueobjects.SubjectID, from, to time.Time, limit int) ([]entities.PositionSample, error) {
	out, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: subjectPK(subjectID)},
			":from": &types.AttributeValueMemberS{Value: locationSKPrefix(from)},
			":to":   &types.AttributeValueMemberS{Value: locationSKPrefix(to) + "~"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, appErrors.NewUnavailableError("failed to query location history", err)
	}

	samples := make([]entities.PositionSample, 0, len(out.Items))
	for _, item := range out.Items {
		sample, err := unmarshalSample(item)
		if err != nil {
			l.logger.Warn("skipping corrupt location record", zap.Error(err))
			continue
		}
		samples = append(samples, *sample)
	}
	return samples, nil
}

func unmarshalSample(item map[string]types.AttributeValue) (*entities.PositionSample, error) {
	var record locationRecord
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return nil, appErrors.NewInternalError("failed to unmarshal location record", err)
	}

	subjectID, err := valueobjects.NewSubjectIDFromString(record.SubjectID)
	if err != nil {
		return nil, appErrors.NewInternalError("corrupt location record: bad subject id", err)
	}
	position, err := valueobjects.NewCoordinate(record.Latitude, record.Longitude)
	if err != nil {
		return nil, appErrors.NewInternalError("corrupt location record: bad coordinate", err)
	}

	return &entities.PositionSample{
		ID:         record.SampleID,
		SubjectID:  subjectID,
		Position:   position,
		RecordedAt: parseTime(record.RecordedAt),
		ReceivedAt: parseTime(record.ReceivedAt),
	}, nil
}

// locationSK orders samples by receive time with the sample ID as a
// tiebreaker for identical nanoseconds.
func locationSK(receivedAt time.Time, sampleID string) string {
	return fmt.Sprintf("%s%s", locationSKPrefix(receivedAt), sampleID)
}

func locationSKPrefix(t time.Time) string {
	return fmt.Sprintf("LOCATION#%020d#", t.UnixNano())
}
