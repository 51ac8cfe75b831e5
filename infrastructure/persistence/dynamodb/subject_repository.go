package dynamodb

import (
	"context"
	"errors"
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

const subjectMetadataSK = "METADATA"

// subjectRecord is the single-table item for a subject aggregate.
type subjectRecord struct {
	PK          string   `dynamodbav:"PK"`
	SK          string   `dynamodbav:"SK"`
	SubjectID   string   `dynamodbav:"SubjectID"`
	DeviceID    string   `dynamodbav:"DeviceID"`
	ZoneLat     *float64 `dynamodbav:"ZoneLat,omitempty"`
	ZoneLon     *float64 `dynamodbav:"ZoneLon,omitempty"`
	ZoneRadius  *float64 `dynamodbav:"ZoneRadius,omitempty"`
	InsideZone  bool     `dynamodbav:"InsideZone"`
	LastSeenAt  string   `dynamodbav:"LastSeenAt,omitempty"`
	CreatedAt   string   `dynamodbav:"CreatedAt"`
	UpdatedAt   string   `dynamodbav:"UpdatedAt"`
	Version     int      `dynamodbav:"Version"`
	EntityType  string   `dynamodbav:"EntityType"`
}

// SubjectRepository persists subjects with optimistic concurrency. The
// version attribute guards every write; a lost race surfaces as CONFLICT so
// the caller can reload and retry.
type SubjectRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewSubjectRepository creates a DynamoDB-backed subject repository
func NewSubjectRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *SubjectRepository {
	return &SubjectRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// GetByID implements ports.SubjectRepository
func (r *SubjectRepository) GetByID(ctx context.Context, id valueobjects.SubjectID) (*entities.Subject, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: subjectPK(id)},
			"SK": &types.AttributeValueMemberS{Value: subjectMetadataSK},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, appErrors.NewUnavailableError("failed to load subject", err)
	}
	if out.Item == nil {
		return nil, appErrors.NewNotFoundError(fmt.Sprintf("subject %s", id.String()))
	}

	var record subjectRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, appErrors.NewInternalError("failed to unmarshal subject record", err)
	}

	return r.hydrate(record)
}

// Save implements ports.SubjectRepository
func (r *SubjectRepository) Save(ctx context.Context, subject *entities.Subject) error {
	item, expectedVersion, err := MarshalSubject(subject)
	if err != nil {
		return err
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}
	// First write creates the item; later writes must match the version the
	// aggregate was loaded at.
	if expectedVersion == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(PK)")
	} else {
		input.ConditionExpression = aws.String("Version = :expected")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion)},
		}
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return appErrors.NewConflictError("subject was modified concurrently")
		}
		return appErrors.NewUnavailableError("failed to save subject", err)
	}
	return nil
}

// MarshalSubject builds the subject's DynamoDB item and returns the version
// the write must be conditioned on. Shared with the transactional commit.
func MarshalSubject(subject *entities.Subject) (map[string]types.AttributeValue, int, error) {
	record := subjectRecord{
		PK:         subjectPK(subject.ID()),
		SK:         subjectMetadataSK,
		SubjectID:  subject.ID().String(),
		DeviceID:   subject.DeviceID(),
		InsideZone: subject.InsideSafeZone(),
		CreatedAt:  subject.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:  subject.UpdatedAt().Format(time.RFC3339Nano),
		Version:    subject.Version(),
		EntityType: "SUBJECT",
	}
	if !subject.LastSeenAt().IsZero() {
		record.LastSeenAt = subject.LastSeenAt().Format(time.RFC3339Nano)
	}
	if zone := subject.Zone(); zone != nil {
		lat := zone.Center().Latitude()
		lon := zone.Center().Longitude()
		radius := zone.RadiusMeters()
		record.ZoneLat = &lat
		record.ZoneLon = &lon
		record.ZoneRadius = &radius
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, 0, appErrors.NewInternalError("failed to marshal subject record", err)
	}

	// Version was already bumped by the aggregate's mutation; the condition
	// checks the stored (pre-mutation) value.
	return item, record.Version - 1, nil
}

func (r *SubjectRepository) hydrate(record subjectRecord) (*entities.Subject, error) {
	id, err := valueobjects.NewSubjectIDFromString(record.SubjectID)
	if err != nil {
		return nil, appErrors.NewInternalError("corrupt subject record: bad id", err)
	}

	var zone *valueobjects.SafeZone
	if record.ZoneLat != nil && record.ZoneLon != nil && record.ZoneRadius != nil {
		center, err := valueobjects.NewCoordinate(*record.ZoneLat, *record.ZoneLon)
		if err != nil {
			return nil, appErrors.NewInternalError("corrupt subject record: bad zone center", err)
		}
		z, err := valueobjects.NewSafeZone(center, *record.ZoneRadius)
		if err != nil {
			return nil, appErrors.NewInternalError("corrupt subject record: bad zone radius", err)
		}
		zone = &z
	}

	lastSeen := parseTime(record.LastSeenAt)
	createdAt := parseTime(record.CreatedAt)
	updatedAt := parseTime(record.UpdatedAt)

	return entities.ReconstructSubject(
		id, record.DeviceID, zone, record.InsideZone,
		lastSeen, createdAt, updatedAt, record.Version,
	), nil
}

func subjectPK(id valueobjects.SubjectID) string {
	return "SUBJECT#" + id.String()
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
