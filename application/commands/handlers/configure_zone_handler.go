package handlers

import (
	"context"

	"go.uber.org/zap"

	"guard-backend/application/commands"
	"guard-backend/application/commands/bus"
	"guard-backend/application/ports"
	"guard-backend/domain/core/entities"
	"guard-backend/domain/core/valueobjects"
	"guard-backend/pkg/common"
	appErrors "guard-backend/pkg/errors"
)

// ConfigureZoneHandler sets, replaces, and clears safe zones. Zone changes
// are a guardian-side operation: the caller must hold the guardian link. They
// take the same per-subject locks as ingestion so a concurrent sample never
// races a half-applied configuration.
type ConfigureZoneHandler struct {
	subjects  ports.SubjectRepository
	directory ports.GuardianDirectory
	lock      ports.SubjectLock
	local     *common.KeyedMutex
	logger    *zap.Logger
}

// NewConfigureZoneHandler creates the zone configuration handler
func NewConfigureZoneHandler(
	subjects ports.SubjectRepository,
	directory ports.GuardianDirectory,
	lock ports.SubjectLock,
	local *common.KeyedMutex,
	logger *zap.Logger,
) *ConfigureZoneHandler {
	return &ConfigureZoneHandler{
		subjects:  subjects,
		directory: directory,
		lock:      lock,
		local:     local,
		logger:    logger,
	}
}

// Handle implements bus.CommandHandler for both configure and clear commands.
func (h *ConfigureZoneHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case commands.ConfigureSafeZoneCommand:
		return h.configure(ctx, c)
	case commands.ClearSafeZoneCommand:
		return h.clear(ctx, c)
	default:
		return appErrors.NewInternalError("invalid command type for configure zone handler", nil)
	}
}

func (h *ConfigureZoneHandler) configure(ctx context.Context, cmd commands.ConfigureSafeZoneCommand) error {
	subjectID, err := valueobjects.NewSubjectIDFromString(cmd.SubjectID)
	if err != nil {
		return appErrors.NewValidationError(err.Error())
	}
	center, err := valueobjects.NewCoordinate(cmd.Latitude, cmd.Longitude)
	if err != nil {
		return appErrors.NewValidationError(err.Error())
	}
	zone, err := valueobjects.NewSafeZone(center, cmd.RadiusMeters)
	if err != nil {
		return appErrors.NewValidationError(err.Error())
	}
	if err := requireLinkedGuardian(ctx, h.directory, subjectID); err != nil {
		return err
	}

	return h.withSubject(ctx, subjectID, func(subject *entities.Subject) {
		subject.ConfigureSafeZone(zone)
	})
}

func (h *ConfigureZoneHandler) clear(ctx context.Context, cmd commands.ClearSafeZoneCommand) error {
	subjectID, err := valueobjects.NewSubjectIDFromString(cmd.SubjectID)
	if err != nil {
		return appErrors.NewValidationError(err.Error())
	}
	if err := requireLinkedGuardian(ctx, h.directory, subjectID); err != nil {
		return err
	}

	return h.withSubject(ctx, subjectID, func(subject *entities.Subject) {
		subject.ClearSafeZone()
	})
}

func (h *ConfigureZoneHandler) withSubject(ctx context.Context, subjectID valueobjects.SubjectID, mutate func(*entities.Subject)) error {
	unlock := h.local.Lock(subjectID.String())
	defer unlock()

	release, err := h.lock.Acquire(ctx, subjectID)
	if err != nil {
		return appErrors.NewUnavailableError("could not acquire subject lock", err)
	}
	defer release()

	subject, err := h.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return err
	}

	mutate(subject)

	if err := h.subjects.Save(ctx, subject); err != nil {
		return err
	}
	subject.ClearEvents()

	h.logger.Info("safe zone updated",
		zap.String("subject_id", subjectID.String()),
		zap.String("state", string(subject.State())))
	return nil
}
