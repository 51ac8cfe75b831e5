package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"guard-backend/application/commands"
	"guard-backend/application/commands/bus"
	"guard-backend/application/ports"
	"guard-backend/domain/core/entities"
	"guard-backend/domain/core/valueobjects"
	"guard-backend/pkg/auth"
	appErrors "guard-backend/pkg/errors"
)

// ManageSubjectHandler covers subject enrollment and guardian linking.
type ManageSubjectHandler struct {
	subjects  ports.SubjectRepository
	directory ports.GuardianDirectory
	logger    *zap.Logger
}

// NewManageSubjectHandler creates the subject management handler
func NewManageSubjectHandler(
	subjects ports.SubjectRepository,
	directory ports.GuardianDirectory,
	logger *zap.Logger,
) *ManageSubjectHandler {
	return &ManageSubjectHandler{
		subjects:  subjects,
		directory: directory,
		logger:    logger,
	}
}

// Handle implements bus.CommandHandler for guardian link commands.
func (h *ManageSubjectHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case commands.LinkGuardianCommand:
		return h.link(ctx, c)
	case commands.UnlinkGuardianCommand:
		return h.unlink(ctx, c)
	default:
		return appErrors.NewInternalError("invalid command type for manage subject handler", nil)
	}
}

// Register enrolls a new subject and returns it. Registration is called
// directly rather than through the bus because the caller needs the
// generated identifier back.
func (h *ManageSubjectHandler) Register(ctx context.Context, cmd commands.RegisterSubjectCommand) (*entities.Subject, error) {
	if err := cmd.Validate(); err != nil {
		return nil, appErrors.NewValidationError(err.Error())
	}

	subject := entities.NewSubject(cmd.DeviceID)
	if err := h.subjects.Save(ctx, subject); err != nil {
		return nil, err
	}

	h.logger.Info("subject registered",
		zap.String("subject_id", subject.ID().String()),
		zap.String("device_id", cmd.DeviceID))
	return subject, nil
}

func (h *ManageSubjectHandler) link(ctx context.Context, cmd commands.LinkGuardianCommand) error {
	subjectID, err := valueobjects.NewSubjectIDFromString(cmd.SubjectID)
	if err != nil {
		return appErrors.NewValidationError(err.Error())
	}

	// Linking is consent: only the subject being watched, or an admin, may
	// grant a guardian the link. A guardian cannot attach itself.
	if err := requireSubjectPrincipal(ctx, subjectID); err != nil {
		return err
	}

	// The subject must exist before a guardian can watch it.
	if _, err := h.subjects.GetByID(ctx, subjectID); err != nil {
		return err
	}

	return h.directory.Link(ctx, ports.GuardianLink{
		GuardianID: cmd.GuardianID,
		SubjectID:  subjectID,
		PushToken:  cmd.PushToken,
		LinkedAt:   time.Now(),
	})
}

func (h *ManageSubjectHandler) unlink(ctx context.Context, cmd commands.UnlinkGuardianCommand) error {
	subjectID, err := valueobjects.NewSubjectIDFromString(cmd.SubjectID)
	if err != nil {
		return appErrors.NewValidationError(err.Error())
	}

	// A guardian may always drop its own link; anything else needs the
	// subject or an admin.
	claims, claimsErr := auth.GetUserFromContext(ctx)
	guardianRemovingSelf := claimsErr == nil &&
		claims.Role == auth.RoleGuardian && claims.UserID == cmd.GuardianID
	if !guardianRemovingSelf {
		if err := requireSubjectPrincipal(ctx, subjectID); err != nil {
			return err
		}
	}

	return h.directory.Unlink(ctx, subjectID, cmd.GuardianID)
}
