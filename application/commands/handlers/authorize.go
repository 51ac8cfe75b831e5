package handlers

import (
	"context"

	"guard-backend/application/ports"
	"guard-backend/domain/core/valueobjects"
	"guard-backend/pkg/auth"
	appErrors "guard-backend/pkg/errors"
)

// requireSubjectPrincipal gates operations a device performs on its own
// behalf: position uploads and emergency signals. Only the subject itself or
// an admin passes; guardians cannot report for a subject they watch.
func requireSubjectPrincipal(ctx context.Context, subjectID valueobjects.SubjectID) error {
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
	}
	return appErrors.NewUnauthorizedError("not permitted for this subject")
}

// requireLinkedGuardian gates guardian-side operations: configuring or
// clearing a subject's safe zone. The caller must hold the guardian link or
// be an admin. The rejection does not reveal whether the subject exists.
func requireLinkedGuardian(ctx context.Context, directory ports.GuardianDirectory, subjectID valueobjects.SubjectID) error {
	claims, err := auth.GetUserFromContext(ctx)
	if err != nil {
		return appErrors.NewUnauthorizedError("authentication required")
	}

	switch claims.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleGuardian:
		linked, err := directory.IsGuardianOf(ctx, subjectID, claims.UserID)
		if err != nil {
			return err
		}
		if linked {
			return nil
		}
	}
	return appErrors.NewUnauthorizedError("not permitted for this subject")
}
