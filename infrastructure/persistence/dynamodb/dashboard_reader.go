package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	appErrors "guard-backend/pkg/errors"
)

// DashboardReader produces fleet-wide counts by scanning the single table.
// Scans are acceptable here: the dashboard is an admin view hit a few times a
// day, not a request-path dependency.
type DashboardReader struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewDashboardReader creates a DynamoDB-backed dashboard reader
func NewDashboardReader(client *dynamodb.Client, tableName string, logger *zap.Logger) *DashboardReader {
	return &DashboardReader{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// CountSubjects implements ports.DashboardReader
func (r *DashboardReader) CountSubjects(ctx context.Context) (int, error) {
	filter := expression.Name("EntityType").Equal(expression.Value("SUBJECT"))
	return r.scanCount(ctx, filter)
}

// CountActiveSubjects implements ports.DashboardReader. A subject is active
// when it has reported at least once since the cutoff.
func (r *DashboardReader) CountActiveSubjects(ctx context.Context, since time.Time) (int, error) {
	filter := expression.Name("EntityType").Equal(expression.Value("SUBJECT")).
		And(expression.Name("LastSeenAt").GreaterThanEqual(expression.Value(since.Format(time.RFC3339Nano))))
	return r.scanCount(ctx, filter)
}

// CountGuardianLinks implements ports.DashboardReader
func (r *DashboardReader) CountGuardianLinks(ctx context.Context) (int, error) {
	filter := expression.Name("EntityType").Equal(expression.Value("LINK"))
	return r.scanCount(ctx, filter)
}

func (r *DashboardReader) scanCount(ctx context.Context, filter expression.ConditionBuilder) (int, error) {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return 0, appErrors.NewInternalError("failed to build dashboard scan", err)
	}

	total := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(r.tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			Select:                    types.SelectCount,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return 0, appErrors.NewUnavailableError("failed to scan dashboard counts", err)
		}
		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
