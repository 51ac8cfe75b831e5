//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"guard-backend/application/commands/bus"
	cmdhandlers "guard-backend/application/commands/handlers"
	"guard-backend/application/ports"
	querybus "guard-backend/application/queries/bus"
	"guard-backend/application/services"
	"guard-backend/infrastructure/config"
	"guard-backend/infrastructure/persistence/dynamodb"
	"guard-backend/pkg/auth"
	"guard-backend/pkg/common"
	"guard-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *zap.Logger
	Subjects        ports.SubjectRepository
	Locations       ports.LocationLedger
	Alerts          ports.AlertLedger
	Guardians       ports.GuardianDirectory
	Outbox          ports.NotificationOutbox
	EventPublisher  ports.EventPublisher
	UnitOfWork      ports.UnitOfWork
	SubjectLock     ports.SubjectLock
	LocalMutex      *common.KeyedMutex
	Fanout          *services.NotificationFanout
	OutboxProcessor *dynamodb.OutboxProcessor
	CommandBus      *bus.CommandBus
	QueryBus        *querybus.QueryBus
	ManageSubjects  *cmdhandlers.ManageSubjectHandler
	JWTValidator    *auth.JWTValidator
	RateLimiter     *auth.TokenBucketLimiter
	Metrics         *observability.Metrics
	Tracer          *observability.Tracer
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideMetrics,
	ProvideTracer,
	ProvideInMemoryCache,
	ProvideSubjectRepository,
	ProvideLocationLedger,
	ProvideAlertLedger,
	ProvideDashboardReader,
	ProvideGuardianDirectory,
	ProvideNotificationOutbox,
	ProvideSubjectLock,
	ProvideLocalMutex,
	ProvideUnitOfWork,
	ProvideNotificationSender,
	ProvideEventPublisher,
	ProvideNotificationFanout,
	ProvideOutboxProcessor,
	ProvideJWTValidator,
	ProvideRateLimiter,
	ProvideManageSubjectHandler,
	ProvideCommandBus,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
