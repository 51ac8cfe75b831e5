package notification

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"guard-backend/domain/events"
)

// WebSocketBroadcaster pushes domain events to connected dashboard clients
// over the API Gateway management API. Connections are tracked in their own
// table; gone connections are pruned on first failed post.
type WebSocketBroadcaster struct {
	apiClient        *apigatewaymanagementapi.Client
	dynamoClient     *dynamodb.Client
	connectionsTable string
	logger           *zap.Logger
}

// NewWebSocketBroadcaster creates a broadcaster for dashboard connections
func NewWebSocketBroadcaster(
	apiClient *apigatewaymanagementapi.Client,
	dynamoClient *dynamodb.Client,
	connectionsTable string,
	logger *zap.Logger,
) *WebSocketBroadcaster {
	return &WebSocketBroadcaster{
		apiClient:        apiClient,
		dynamoClient:     dynamoClient,
		connectionsTable: connectionsTable,
		logger:           logger,
	}
}

// Publish implements ports.EventPublisher by broadcasting the event to every
// live dashboard connection.
func (b *WebSocketBroadcaster) Publish(ctx context.Context, event events.DomainEvent) error {
	payload, err := json.Marshal(map[string]interface{}{
		"type":  event.GetEventType(),
		"event": event,
	})
	if err != nil {
		return err
	}

	connectionIDs, err := b.listConnections(ctx)
	if err != nil {
		return err
	}

	for _, connectionID := range connectionIDs {
		_, err := b.apiClient.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: aws.String(connectionID),
			Data:         payload,
		})
		if err != nil {
			var gone *apigwtypes.GoneException
			if errors.As(err, &gone) {
				b.pruneConnection(ctx, connectionID)
				continue
			}
			b.logger.Warn("failed to post event to dashboard connection",
				zap.String("connection_id", connectionID),
				zap.Error(err))
		}
	}
	return nil
}

func (b *WebSocketBroadcaster) listConnections(ctx context.Context) ([]string, error) {
	out, err := b.dynamoClient.Scan(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(b.connectionsTable),
		ProjectionExpression: aws.String("ConnectionID"),
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(out.Items))
	for _, item := range out.Items {
		if v, ok := item["ConnectionID"].(*dynamodbtypes.AttributeValueMemberS); ok {
			ids = append(ids, v.Value)
		}
	}
	return ids, nil
}

func (b *WebSocketBroadcaster) pruneConnection(ctx context.Context, connectionID string) {
	_, err := b.dynamoClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(b.connectionsTable),
		Key: map[string]dynamodbtypes.AttributeValue{
			"ConnectionID": &dynamodbtypes.AttributeValueMemberS{Value: connectionID},
		},
	})
	if err != nil {
		b.logger.Warn("failed to prune stale connection",
			zap.String("connection_id", connectionID),
			zap.Error(err))
	}
}
