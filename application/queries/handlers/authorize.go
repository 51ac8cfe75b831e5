package handlers

import (
	"context"

	"guard-backend/application/ports"
	"guard-backend/domain/core/valueobjects"
	"guard-backend/pkg/auth"
	appErrors "guard-backend/pkg/errors"
)

// authorizeSubjectAccess enforces who may read a subject's data: the subject
// itself, a linked guardian, or an admin. Anyone else gets an authorization
// error that does not reveal whether the subject exists.
func authorizeSubjectAccess(ctx context.Context, directory ports.GuardianDirectory, subjectID valueobjects.SubjectID) error {
	claims, err := auth.GetUserFromContext(ctx)
	if err != nil {
		return appErrors.NewUnauthorizedError("authentication required")
	}

	switch claims.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleSubject:
		if claims.UserID == subjectID.String() {
			return nil
		}
		return appErrors.NewUnauthorizedError("not permitted for this subject")
	case auth.RoleGuardian:
		linked, err := directory.IsGuardianOf(ctx, subjectID, claims.UserID)
		if err != nil {
			return err
		}
		if !linked {
			return appErrors.NewUnauthorizedError("not permitted for this subject")
		}
		return nil
	default:
		return appErrors.NewUnauthorizedError("unknown role")
	}
}

// authorizeGuardianAccess restricts a guardian-scoped read to that guardian
// or an admin.
func authorizeGuardianAccess(ctx context.Context, guardianID string) error {
	claims, err := auth.GetUserFromContext(ctx)
	if err != nil {
		return appErrors.NewUnauthorizedError("authentication required")
	}

	switch claims.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleGuardian:
		if claims.UserID == guardianID {
			return nil
		}
	}
	return appErrors.NewUnauthorizedError("not permitted for this guardian")
}
