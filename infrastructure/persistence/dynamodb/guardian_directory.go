package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"guard-backend/application/ports"
	"guard-backend/domain/core/valueobjects"
	appErrors "guard-backend/pkg/errors"
)

// linkRecord is the single-table item for a guardian watching a subject.
// GSI1 inverts the relation for guardian-side lookups.
type linkRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	GuardianID string `dynamodbav:"GuardianID"`
	SubjectID  string `dynamodbav:"SubjectID"`
	PushToken  string `dynamodbav:"PushToken,omitempty"`
	LinkedAt   string `dynamodbav:"LinkedAt"`
	EntityType string `dynamodbav:"EntityType"`
}

// GuardianDirectory is the DynamoDB-backed guardian-subject relation.
type GuardianDirectory struct {
	client            *dynamodb.Client
	tableName         string
	guardianIndexName string
	logger            *zap.Logger
}

// NewGuardianDirectory creates a DynamoDB-backed guardian directory
func NewGuardianDirectory(client *dynamodb.Client, tableName, guardianIndexName string, logger *zap.Logger) *GuardianDirectory {
	return &GuardianDirectory{
		client:            client,
		tableName:         tableName,
		guardianIndexName: guardianIndexName,
		logger:            logger,
	}
}

// ListGuardians implements ports.GuardianDirectory
func (d *GuardianDirectory) ListGuardians(ctx context.Context, subjectID valueobjects.SubjectID) ([]ports.GuardianLink, error) {
	out, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: subjectPK(subjectID)},
			":prefix": &types.AttributeValueMemberS{Value: "LINK#"},
		},
	})
	if err != nil {
		return nil, appErrors.NewUnavailableError("failed to list guardians", err)
	}

	links := make([]ports.GuardianLink, 0, len(out.Items))
	for _, item := range out.Items {
		var record linkRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			d.logger.Warn("skipping corrupt link record", zap.Error(err))
			continue
		}
		links = append(links, ports.GuardianLink{
			GuardianID: record.GuardianID,
			SubjectID:  subjectID,
			PushToken:  record.PushToken,
			LinkedAt:   parseTime(record.LinkedAt),
		})
	}
	return links, nil
}

// ListSubjects implements ports.GuardianDirectory via the inverted GSI1
// projection, so a guardian's watch list never scans the table.
func (d *GuardianDirectory) ListSubjects(ctx context.Context, guardianID string) ([]ports.GuardianLink, error) {
	out, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		IndexName:              aws.String(d.guardianIndexName),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "GUARDIAN#" + guardianID},
		},
	})
	if err != nil {
		return nil, appErrors.NewUnavailableError("failed to list watched subjects", err)
	}

	links := make([]ports.GuardianLink, 0, len(out.Items))
	for _, item := range out.Items {
		var record linkRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			d.logger.Warn("skipping corrupt link record", zap.Error(err))
			continue
		}
		subjectID, err := valueobjects.NewSubjectIDFromString(record.SubjectID)
		if err != nil {
			d.logger.Warn("skipping link record with bad subject id",
				zap.String("subject_id", record.SubjectID), zap.Error(err))
			continue
		}
		links = append(links, ports.GuardianLink{
			GuardianID: record.GuardianID,
			SubjectID:  subjectID,
			PushToken:  record.PushToken,
			LinkedAt:   parseTime(record.LinkedAt),
		})
	}
	return links, nil
}

// Link implements ports.GuardianDirectory
func (d *GuardianDirectory) Link(ctx context.Context, link ports.GuardianLink) error {
	linkedAt := link.LinkedAt
	if linkedAt.IsZero() {
		linkedAt = time.Now()
	}
	record := linkRecord{
		PK:         subjectPK(link.SubjectID),
		SK:         "LINK#" + link.GuardianID,
		GSI1PK:     "GUARDIAN#" + link.GuardianID,
		GSI1SK:     subjectPK(link.SubjectID),
		GuardianID: link.GuardianID,
		SubjectID:  link.SubjectID.String(),
		PushToken:  link.PushToken,
		LinkedAt:   linkedAt.Format(time.RFC3339Nano),
		EntityType: "LINK",
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return appErrors.NewInternalError("failed to marshal link record", err)
	}

	// Relinking overwrites the existing item, refreshing the push token.
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	}); err != nil {
		return appErrors.NewUnavailableError("failed to link guardian", err)
	}
	return nil
}

// Unlink implements ports.GuardianDirectory
func (d *GuardianDirectory) Unlink(ctx context.Context, subjectID valueobjects.SubjectID, guardianID string) error {
	if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: subjectPK(subjectID)},
			"SK": &types.AttributeValueMemberS{Value: "LINK#" + guardianID},
		},
	}); err != nil {
		return appErrors.NewUnavailableError("failed to unlink guardian", err)
	}
	return nil
}

// IsGuardianOf implements ports.GuardianDirectory
func (d *GuardianDirectory) IsGuardianOf(ctx context.Context, subjectID valueobjects.SubjectID, guardianID string) (bool, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: subjectPK(subjectID)},
			"SK": &types.AttributeValueMemberS{Value: "LINK#" + guardianID},
		},
	})
	if err != nil {
		return false, appErrors.NewUnavailableError("failed to check guardian link", err)
	}
	return out.Item != nil, nil
}
