package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"guard-backend/application/commands"
	"guard-backend/domain/core/entities"
	appErrors "guard-backend/pkg/errors"
)

type manageFixture struct {
	handler   *ManageSubjectHandler
	subjects  *fakeSubjectRepo
	directory *fakeDirectory
	subject   *entities.Subject
}

func newManageFixture(t *testing.T) *manageFixture {
	t.Helper()

	subjects := newFakeSubjectRepo()
	directory := newFakeDirectory()
	subject := entities.NewSubject("device-1")
	require.NoError(t, subjects.Save(context.Background(), subject))

	return &manageFixture{
		handler:   NewManageSubjectHandler(subjects, directory, zap.NewNop()),
		subjects:  subjects,
		directory: directory,
		subject:   subject,
	}
}

func TestLinkGuardian_SubjectConsents(t *testing.T) {
	f := newManageFixture(t)

	err := f.handler.Handle(asSubject(f.subject.ID().String()), commands.LinkGuardianCommand{
		SubjectID:  f.subject.ID().String(),
		GuardianID: "guardian-1",
		PushToken:  "token-1",
	})
	require.NoError(t, err)

	linked, err := f.directory.IsGuardianOf(context.Background(), f.subject.ID(), "guardian-1")
	require.NoError(t, err)
	assert.True(t, linked)
}

func TestLinkGuardian_GuardianCannotAttachItself(t *testing.T) {
	f := newManageFixture(t)

	err := f.handler.Handle(asGuardian("guardian-1"), commands.LinkGuardianCommand{
		SubjectID:  f.subject.ID().String(),
		GuardianID: "guardian-1",
		PushToken:  "token-1",
	})
	assert.True(t, appErrors.IsUnauthorized(err))

	linked, err := f.directory.IsGuardianOf(context.Background(), f.subject.ID(), "guardian-1")
	require.NoError(t, err)
	assert.False(t, linked)
}

func TestLinkGuardian_AdminMayLink(t *testing.T) {
	f := newManageFixture(t)

	err := f.handler.Handle(asAdmin(), commands.LinkGuardianCommand{
		SubjectID:  f.subject.ID().String(),
		GuardianID: "guardian-2",
		PushToken:  "token-2",
	})
	require.NoError(t, err)

	linked, err := f.directory.IsGuardianOf(context.Background(), f.subject.ID(), "guardian-2")
	require.NoError(t, err)
	assert.True(t, linked)
}

func TestUnlinkGuardian_GuardianRemovesOwnLink(t *testing.T) {
	f := newManageFixture(t)
	require.NoError(t, f.handler.Handle(asSubject(f.subject.ID().String()), commands.LinkGuardianCommand{
		SubjectID:  f.subject.ID().String(),
		GuardianID: "guardian-1",
		PushToken:  "token-1",
	}))

	err := f.handler.Handle(asGuardian("guardian-1"), commands.UnlinkGuardianCommand{
		SubjectID:  f.subject.ID().String(),
		GuardianID: "guardian-1",
	})
	require.NoError(t, err)

	linked, err := f.directory.IsGuardianOf(context.Background(), f.subject.ID(), "guardian-1")
	require.NoError(t, err)
	assert.False(t, linked)
}

func TestUnlinkGuardian_StrangerCannotRemove(t *testing.T) {
	f := newManageFixture(t)
	require.NoError(t, f.handler.Handle(asSubject(f.subject.ID().String()), commands.LinkGuardianCommand{
		SubjectID:  f.subject.ID().String(),
		GuardianID: "guardian-1",
		PushToken:  "token-1",
	}))

	// Another guardian cannot sever someone else's link.
	err := f.handler.Handle(asGuardian("guardian-2"), commands.UnlinkGuardianCommand{
		SubjectID:  f.subject.ID().String(),
		GuardianID: "guardian-1",
	})
	assert.True(t, appErrors.IsUnauthorized(err))

	// Neither can an unauthenticated caller.
	err = f.handler.Handle(context.Background(), commands.UnlinkGuardianCommand{
		SubjectID:  f.subject.ID().String(),
		GuardianID: "guardian-1",
	})
	assert.True(t, appErrors.IsUnauthorized(err))

	linked, err := f.directory.IsGuardianOf(context.Background(), f.subject.ID(), "guardian-1")
	require.NoError(t, err)
	assert.True(t, linked)
}

func TestLinkGuardian_UnknownSubject_NotFound(t *testing.T) {
	f := newManageFixture(t)

	err := f.handler.Handle(asAdmin(), commands.LinkGuardianCommand{
		SubjectID:  "0e8aa897-5b14-4e23-a959-ce4cd2bcf2f0",
		GuardianID: "guardian-1",
		PushToken:  "token-1",
	})
	assert.True(t, appErrors.IsNotFound(err))
}
