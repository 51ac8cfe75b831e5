package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"guard-backend/domain/core/valueobjects"
	appErrors "guard-backend/pkg/errors"
	"guard-backend/pkg/observability"
)

var errLockHeld = errors.New("lock already held")

// SubjectLock serializes sample processing per subject across instances
// using DynamoDB conditional writes. A stale lock is reclaimable once its
// expiry passes, so a crashed holder cannot wedge a subject forever.
type SubjectLock struct {
	client      *dynamodb.Client
	tableName   string
	ownerID     string
	lockTTL     time.Duration
	acquireWait time.Duration
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewSubjectLock creates a subject lock backed by the given table.
func NewSubjectLock(
	client *dynamodb.Client,
	tableName string,
	lockTTL time.Duration,
	acquireWait time.Duration,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *SubjectLock {
	host, _ := os.Hostname()
	return &SubjectLock{
		client:      client,
		tableName:   tableName,
		ownerID:     fmt.Sprintf("%s-%s", host, uuid.New().String()[:8]),
		lockTTL:     lockTTL,
		acquireWait: acquireWait,
		logger:      logger,
		metrics:     metrics,
	}
}

// Acquire implements ports.SubjectLock. It retries with backoff until the
// lock is won or the wait budget runs out.
func (l *SubjectLock) Acquire(ctx context.Context, subjectID valueobjects.SubjectID) (func(), error) {
	resource := "SUBJECT#" + subjectID.String()
	deadline := time.Now().Add(l.acquireWait)
	retryInterval := 50 * time.Millisecond
	contended := false

	for {
		lockID, err := l.tryAcquire(ctx, resource)
		if err == nil {
			if contended {
				l.metrics.Count(observability.MetricLockContentionEvents, 1, nil)
			}
			release := func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				l.release(releaseCtx, resource, lockID)
			}
			return release, nil
		}
		if !errors.Is(err, errLockHeld) {
			return nil, err
		}
		contended = true

		if time.Now().After(deadline) {
			return nil, appErrors.NewUnavailableError(
				fmt.Sprintf("timed out waiting for subject lock %s", subjectID.String()), nil)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
			if retryInterval < time.Second {
				retryInterval = time.Duration(float64(retryInterval) * 1.5)
			}
		}
	}
}

func (l *SubjectLock) tryAcquire(ctx context.Context, resource string) (string, error) {
	lockID := fmt.Sprintf("%s_%d", l.ownerID, time.Now().UnixNano())
	now := time.Now()
	expiresAt := now.Add(l.lockTTL)

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: "LOCK#" + resource},
		"SK":         &types.AttributeValueMemberS{Value: "LOCK"},
		"LockID":     &types.AttributeValueMemberS{Value: lockID},
		"Owner":      &types.AttributeValueMemberS{Value: l.ownerID},
		"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339Nano)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return "", errLockHeld
		}
		return "", fmt.Errorf("failed to acquire lock: %w", err)
	}

	return lockID, nil
}

func (l *SubjectLock) release(ctx context.Context, resource, lockID string) {
	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "LOCK#" + resource},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression: aws.String("LockID = :lockId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: lockID},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			// Expired and reclaimed by another holder; nothing to release.
			return
		}
		l.logger.Warn("failed to release subject lock",
			zap.String("resource", resource),
			zap.Error(err))
	}
}
