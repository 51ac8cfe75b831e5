package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"guard-backend/application/commands"
	"guard-backend/application/ports"
	"guard-backend/domain/core/entities"
	"guard-backend/pkg/common"
	appErrors "guard-backend/pkg/errors"
)

func newZoneFixture(t *testing.T) (*ConfigureZoneHandler, *entities.Subject) {
	t.Helper()
	subjects := newFakeSubjectRepo()
	subject := entities.NewSubject("device-1")
	require.NoError(t, subjects.Save(context.Background(), subject))

	directory := newFakeDirectory()
	require.NoError(t, directory.Link(context.Background(), ports.GuardianLink{
		GuardianID: "guardian-1",
		SubjectID:  subject.ID(),
		PushToken:  "token-1",
	}))

	handler := NewConfigureZoneHandler(subjects, directory, fakeLock{}, common.NewKeyedMutex(), zap.NewNop())
	return handler, subject
}

func TestConfigureZone_SetsZoneStartingInside(t *testing.T) {
	handler, subject := newZoneFixture(t)

	err := handler.Handle(asGuardian("guardian-1"), commands.ConfigureSafeZoneCommand{
		SubjectID:    subject.ID().String(),
		Latitude:     37.5,
		Longitude:    127.0,
		RadiusMeters: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, entities.GeofenceInside, subject.State())
	require.NotNil(t, subject.Zone())
	assert.Equal(t, 100.0, subject.Zone().RadiusMeters())
}

func TestConfigureZone_ReplaceResetsToInside(t *testing.T) {
	handler, subject := newZoneFixture(t)

	require.NoError(t, handler.Handle(asGuardian("guardian-1"), commands.ConfigureSafeZoneCommand{
		SubjectID:    subject.ID().String(),
		Latitude:     37.5,
		Longitude:    127.0,
		RadiusMeters: 100,
	}))

	require.NoError(t, handler.Handle(asGuardian("guardian-1"), commands.ConfigureSafeZoneCommand{
		SubjectID:    subject.ID().String(),
		Latitude:     37.6,
		Longitude:    127.1,
		RadiusMeters: 250,
	}))

	assert.Equal(t, entities.GeofenceInside, subject.State())
	assert.Equal(t, 250.0, subject.Zone().RadiusMeters())
}

func TestClearZone_ReturnsToUnconfigured(t *testing.T) {
	handler, subject := newZoneFixture(t)

	require.NoError(t, handler.Handle(asGuardian("guardian-1"), commands.ConfigureSafeZoneCommand{
		SubjectID:    subject.ID().String(),
		Latitude:     37.5,
		Longitude:    127.0,
		RadiusMeters: 100,
	}))

	require.NoError(t, handler.Handle(asGuardian("guardian-1"), commands.ClearSafeZoneCommand{
		SubjectID: subject.ID().String(),
	}))

	assert.Equal(t, entities.GeofenceUnconfigured, subject.State())
	assert.Nil(t, subject.Zone())
}

func TestConfigureZone_UnknownSubject_NotFound(t *testing.T) {
	handler, _ := newZoneFixture(t)

	err := handler.Handle(asAdmin(), commands.ConfigureSafeZoneCommand{
		SubjectID:    "0e8aa897-5b14-4e23-a959-ce4cd2bcf2f0",
		Latitude:     37.5,
		Longitude:    127.0,
		RadiusMeters: 100,
	})

	assert.True(t, appErrors.IsNotFound(err))
}

func TestConfigureZone_UnlinkedGuardian_Unauthorized(t *testing.T) {
	handler, subject := newZoneFixture(t)

	cmd := commands.ConfigureSafeZoneCommand{
		SubjectID:    subject.ID().String(),
		Latitude:     37.5,
		Longitude:    127.0,
		RadiusMeters: 100,
	}

	// A guardian without the link cannot touch the zone.
	err := handler.Handle(asGuardian("stranger"), cmd)
	assert.True(t, appErrors.IsUnauthorized(err))
	assert.Nil(t, subject.Zone())

	// The subject itself cannot either; zone changes are guardian-side.
	err = handler.Handle(asSubject(subject.ID().String()), cmd)
	assert.True(t, appErrors.IsUnauthorized(err))

	// Same gate on clearing.
	err = handler.Handle(asGuardian("stranger"), commands.ClearSafeZoneCommand{
		SubjectID: subject.ID().String(),
	})
	assert.True(t, appErrors.IsUnauthorized(err))

	// No principal at all.
	err = handler.Handle(context.Background(), cmd)
	assert.True(t, appErrors.IsUnauthorized(err))
}
