package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"guard-backend/application/ports"
	appErrors "guard-backend/pkg/errors"
	"guard-backend/pkg/observability"
)

// UnitOfWork commits a zone transition as one DynamoDB transaction: the
// subject's flipped state, the alert ledger entry, and the staged
// notifications land together or not at all. A crash can therefore never
// leave a flipped state without its alert.
type UnitOfWork struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
	tracer    *observability.Tracer
}

// NewUnitOfWork creates a DynamoDB-backed unit of work
func NewUnitOfWork(client *dynamodb.Client, tableName string, logger *zap.Logger, tracer *observability.Tracer) *UnitOfWork {
	return &UnitOfWork{
		client:    client,
		tableName: tableName,
		logger:    logger,
		tracer:    tracer,
	}
}

// CommitTransition implements ports.UnitOfWork
func (u *UnitOfWork) CommitTransition(ctx context.Context, commit ports.TransitionCommit) error {
	var items []types.TransactWriteItem

	if commit.Subject != nil {
		item, expectedVersion, err := MarshalSubject(commit.Subject)
		if err != nil {
			return err
		}
		put := &types.Put{
			TableName: aws.String(u.tableName),
			Item:      item,
		}
		if expectedVersion == 0 {
			put.ConditionExpression = aws.String("attribute_not_exists(PK)")
		} else {
			put.ConditionExpression = aws.String("Version = :expected")
			put.ExpressionAttributeValues = map[string]types.AttributeValue{
				":expected": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion)},
			}
		}
		items = append(items, types.TransactWriteItem{Put: put})
	}

	if commit.Alert != nil {
		item, err := MarshalAlert(*commit.Alert)
		if err != nil {
			return err
		}
		items = append(items, types.TransactWriteItem{Put: &types.Put{
			TableName: aws.String(u.tableName),
			Item:      item,
		}})
	}

	for _, entry := range commit.Outbox {
		item, err := MarshalOutboxEntry(entry)
		if err != nil {
			return err
		}
		items = append(items, types.TransactWriteItem{Put: &types.Put{
			TableName: aws.String(u.tableName),
			Item:      item,
		}})
	}

	if len(items) == 0 {
		return nil
	}

	err := u.tracer.TraceFunction(ctx, "dynamodb.commit_transition", func(ctx context.Context) error {
		_, txErr := u.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		})
		return txErr
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for _, reason := range canceled.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return appErrors.NewConflictError("subject was modified concurrently")
				}
			}
		}
		return appErrors.NewUnavailableError("failed to commit transition", err)
	}

	return nil
}
