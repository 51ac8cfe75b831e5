package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsapigw "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"guard-backend/application/commands"
	"guard-backend/application/commands/bus"
	cmdhandlers "guard-backend/application/commands/handlers"
	"guard-backend/application/ports"
	"guard-backend/application/queries"
	querybus "guard-backend/application/queries/bus"
	queryhandlers "guard-backend/application/queries/handlers"
	"guard-backend/application/services"
	"guard-backend/infrastructure/config"
	"guard-backend/infrastructure/messaging"
	"guard-backend/infrastructure/messaging/eventbridge"
	"guard-backend/infrastructure/notification"
	"guard-backend/infrastructure/persistence/cache"
	"guard-backend/infrastructure/persistence/dynamodb"
	"guard-backend/pkg/auth"
	"guard-backend/pkg/common"
	"guard-backend/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the metrics instance. With metrics disabled the
// client is nil and every publish is a no-op.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config) *observability.Metrics {
	if !cfg.EnableMetrics {
		return observability.NewMetrics(cfg.MetricsNamespace, nil)
	}
	namespace := fmt.Sprintf("%s/%s", cfg.MetricsNamespace, cfg.Environment)
	return observability.NewMetrics(namespace, client)
}

// ProvideTracer creates the X-Ray tracer. With tracing disabled the instance
// is a no-op, mirroring how metrics behave when turned off.
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer("guard-backend", cfg.EnableTracing)
}

// ProvideSubjectRepository creates the subject repository
func ProvideSubjectRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.SubjectRepository {
	return dynamodb.NewSubjectRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideLocationLedger creates the location ledger
func ProvideLocationLedger(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.LocationLedger {
	return dynamodb.NewLocationLedger(client, cfg.DynamoDBTable, logger)
}

// ProvideAlertLedger creates the alert ledger
func ProvideAlertLedger(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.AlertLedger {
	return dynamodb.NewAlertLedger(client, cfg.DynamoDBTable, cfg.AlertKindIndexName, logger)
}

// ProvideGuardianDirectory creates the guardian directory wrapped with a
// short-TTL cache; fanout reads it on every transition.
func ProvideGuardianDirectory(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger, memCache *cache.InMemoryCache) ports.GuardianDirectory {
	base := dynamodb.NewGuardianDirectory(client, cfg.DynamoDBTable, cfg.GuardianIndexName, logger)
	return cache.NewCachedGuardianDirectory(base, memCache)
}

// ProvideDashboardReader creates the admin dashboard reader
func ProvideDashboardReader(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.DashboardReader {
	return dynamodb.NewDashboardReader(client, cfg.DynamoDBTable, logger)
}

// ProvideInMemoryCache creates the process-local cache
func ProvideInMemoryCache() *cache.InMemoryCache {
	return cache.NewInMemoryCache()
}

// ProvideNotificationOutbox creates the notification outbox
func ProvideNotificationOutbox(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.NotificationOutbox {
	return dynamodb.NewNotificationOutbox(client, cfg.DynamoDBTable, logger)
}

// ProvideSubjectLock creates the cross-instance subject lock
func ProvideSubjectLock(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) ports.SubjectLock {
	return dynamodb.NewSubjectLock(client, cfg.DynamoDBTable, cfg.SubjectLockTTL, cfg.SubjectLockTimeout, logger, metrics)
}

// ProvideLocalMutex creates the in-process per-subject mutex
func ProvideLocalMutex() *common.KeyedMutex {
	return common.NewKeyedMutex()
}

// ProvideUnitOfWork creates the transactional commit unit
func ProvideUnitOfWork(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger, tracer *observability.Tracer) ports.UnitOfWork {
	return dynamodb.NewUnitOfWork(client, cfg.DynamoDBTable, logger, tracer)
}

// ProvideNotificationSender creates the FCM push sender
func ProvideNotificationSender(cfg *config.Config, logger *zap.Logger) ports.NotificationSender {
	return notification.NewFCMSender(cfg.PushEndpoint, cfg.PushServerKey, logger)
}

// ProvideEventPublisher creates the event publisher. When a WebSocket
// endpoint is configured, events also stream to live dashboard connections.
func ProvideEventPublisher(
	ebClient *awseventbridge.Client,
	dynamoClient *awsdynamodb.Client,
	awsCfg aws.Config,
	cfg *config.Config,
	logger *zap.Logger,
) ports.EventPublisher {
	busPublisher := eventbridge.NewPublisher(ebClient, cfg.EventBusName, logger)
	if cfg.WebSocketEndpoint == "" {
		return busPublisher
	}

	apiClient := awsapigw.NewFromConfig(awsCfg, func(o *awsapigw.Options) {
		o.BaseEndpoint = aws.String(cfg.WebSocketEndpoint)
	})
	broadcaster := notification.NewWebSocketBroadcaster(apiClient, dynamoClient, cfg.ConnectionsTable, logger)
	return messaging.NewCompositePublisher(logger, busPublisher, broadcaster)
}

// ProvideNotificationFanout creates the fanout service
func ProvideNotificationFanout(
	directory ports.GuardianDirectory,
	sender ports.NotificationSender,
	outbox ports.NotificationOutbox,
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
) *services.NotificationFanout {
	return services.NewNotificationFanout(directory, sender, outbox, logger, metrics, tracer, cfg.NotifyOnZoneEnter)
}

// ProvideOutboxProcessor creates the notification retry processor
func ProvideOutboxProcessor(
	outbox ports.NotificationOutbox,
	sender ports.NotificationSender,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *dynamodb.OutboxProcessor {
	return dynamodb.NewOutboxProcessor(outbox, sender, logger, metrics)
}

// ProvideJWTValidator creates the token validator
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
}

// ProvideRateLimiter creates the per-client rate limiter
func ProvideRateLimiter() *auth.TokenBucketLimiter {
	return auth.NewIPRateLimiter(120)
}

// ProvideManageSubjectHandler creates the subject management handler. It is
// exposed on the container because registration is called directly.
func ProvideManageSubjectHandler(
	subjects ports.SubjectRepository,
	directory ports.GuardianDirectory,
	logger *zap.Logger,
) *cmdhandlers.ManageSubjectHandler {
	return cmdhandlers.NewManageSubjectHandler(subjects, directory, logger)
}

// ProvideCommandBus creates a command bus with all handlers registered
func ProvideCommandBus(
	subjects ports.SubjectRepository,
	ledger ports.LocationLedger,
	directory ports.GuardianDirectory,
	uow ports.UnitOfWork,
	lock ports.SubjectLock,
	local *common.KeyedMutex,
	fanout *services.NotificationFanout,
	publisher ports.EventPublisher,
	manageHandler *cmdhandlers.ManageSubjectHandler,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus()
	pipeline := bus.NewPipeline(
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(metrics),
	)

	ingestHandler := cmdhandlers.NewIngestLocationHandler(
		subjects, ledger, uow, lock, local, fanout, publisher, logger, metrics)
	if err := commandBus.Register(commands.IngestLocationCommand{}, pipeline.Execute(ingestHandler)); err != nil {
		return nil, err
	}

	emergencyHandler := cmdhandlers.NewSignalEmergencyHandler(
		subjects, uow, fanout, publisher, logger, metrics)
	if err := commandBus.Register(commands.SignalEmergencyCommand{}, pipeline.Execute(emergencyHandler)); err != nil {
		return nil, err
	}

	zoneHandler := cmdhandlers.NewConfigureZoneHandler(subjects, directory, lock, local, logger)
	if err := commandBus.Register(commands.ConfigureSafeZoneCommand{}, pipeline.Execute(zoneHandler)); err != nil {
		return nil, err
	}
	if err := commandBus.Register(commands.ClearSafeZoneCommand{}, pipeline.Execute(zoneHandler)); err != nil {
		return nil, err
	}

	if err := commandBus.Register(commands.LinkGuardianCommand{}, pipeline.Execute(manageHandler)); err != nil {
		return nil, err
	}
	if err := commandBus.Register(commands.UnlinkGuardianCommand{}, pipeline.Execute(manageHandler)); err != nil {
		return nil, err
	}

	return commandBus, nil
}

// ProvideQueryBus creates a query bus with all handlers registered
func ProvideQueryBus(
	subjects ports.SubjectRepository,
	ledger ports.LocationLedger,
	alerts ports.AlertLedger,
	directory ports.GuardianDirectory,
	dashboard ports.DashboardReader,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()

	locationHandler := queryhandlers.NewLocationQueryHandler(ledger, directory)
	if err := queryBus.Register(queries.GetLatestLocationQuery{}, locationHandler); err != nil {
		return nil, err
	}
	if err := queryBus.Register(queries.GetLocationHistoryQuery{}, locationHandler); err != nil {
		return nil, err
	}

	zoneHandler := queryhandlers.NewSafeZoneQueryHandler(subjects, directory)
	if err := queryBus.Register(queries.GetSafeZoneQuery{}, zoneHandler); err != nil {
		return nil, err
	}

	guardianHandler := queryhandlers.NewGuardianQueryHandler(directory)
	if err := queryBus.Register(queries.ListWatchedSubjectsQuery{}, guardianHandler); err != nil {
		return nil, err
	}

	alertHandler := queryhandlers.NewAlertQueryHandler(alerts, directory, dashboard)
	if err := queryBus.Register(queries.ListAlertsQuery{}, alertHandler); err != nil {
		return nil, err
	}
	if err := queryBus.Register(queries.GetDashboardStatsQuery{}, alertHandler); err != nil {
		return nil, err
	}

	return queryBus, nil
}
