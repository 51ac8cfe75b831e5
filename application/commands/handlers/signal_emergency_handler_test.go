package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"guard-backend/application/commands"
	"guard-backend/application/ports"
	"guard-backend/application/services"
	"guard-backend/domain/core/entities"
	appErrors "guard-backend/pkg/errors"
)

type emergencyFixture struct {
	handler   *SignalEmergencyHandler
	subjects  *fakeSubjectRepo
	alerts    *fakeAlertLedger
	directory *fakeDirectory
	sender    *fakeSender
	outbox    *fakeOutbox
	subject   *entities.Subject
}

func newEmergencyFixture(t *testing.T) *emergencyFixture {
	t.Helper()

	subjects := newFakeSubjectRepo()
	alerts := &fakeAlertLedger{}
	directory := newFakeDirectory()
	sender := &fakeSender{}
	outbox := newFakeOutbox()
	uow := &fakeUnitOfWork{subjects: subjects, alerts: alerts, outbox: outbox}

	logger := zap.NewNop()
	fanout := services.NewNotificationFanout(directory, sender, outbox, logger, nil, nil, false)

	subject := entities.NewSubject("device-1")
	require.NoError(t, subjects.Save(context.Background(), subject))

	return &emergencyFixture{
		handler:   NewSignalEmergencyHandler(subjects, uow, fanout, &fakePublisher{}, logger, nil),
		subjects:  subjects,
		alerts:    alerts,
		directory: directory,
		sender:    sender,
		outbox:    outbox,
		subject:   subject,
	}
}

func TestEmergency_ZeroGuardians_LedgerEntryOnly(t *testing.T) {
	f := newEmergencyFixture(t)

	err := f.handler.Handle(asSubject(f.subject.ID().String()), commands.SignalEmergencyCommand{
		SubjectID: f.subject.ID().String(),
	})
	require.NoError(t, err)

	alerts := f.alerts.bySubject(f.subject.ID())
	require.Len(t, alerts, 1)
	assert.Equal(t, entities.AlertEmergency, alerts[0].Kind)
	assert.Nil(t, alerts[0].Latitude)
	assert.Zero(t, f.sender.sentCount())
}

func TestEmergency_FansOutToAllGuardians(t *testing.T) {
	f := newEmergencyFixture(t)
	for _, g := range []struct{ id, token string }{
		{"guardian-1", "token-1"},
		{"guardian-2", "token-2"},
		{"guardian-3", "token-3"},
	} {
		require.NoError(t, f.directory.Link(context.Background(), ports.GuardianLink{
			GuardianID: g.id,
			SubjectID:  f.subject.ID(),
			PushToken:  g.token,
			LinkedAt:   time.Now(),
		}))
	}

	lat, lon := 37.6, 127.1
	err := f.handler.Handle(asSubject(f.subject.ID().String()), commands.SignalEmergencyCommand{
		SubjectID: f.subject.ID().String(),
		Latitude:  &lat,
		Longitude: &lon,
	})
	require.NoError(t, err)

	alerts := f.alerts.bySubject(f.subject.ID())
	require.Len(t, alerts, 1)
	require.NotNil(t, alerts[0].Latitude)
	assert.Equal(t, lat, *alerts[0].Latitude)

	assert.Eventually(t, func() bool {
		return f.sender.sentCount() == 3
	}, 2*time.Second, 10*time.Millisecond)

	f.sender.mu.Lock()
	defer f.sender.mu.Unlock()
	for _, msg := range f.sender.sent {
		assert.Equal(t, "Emergency!", msg.Title)
		assert.Equal(t, "An SOS call was made. Please check the app.", msg.Body)
	}
}

func TestEmergency_UnknownSubject_NotFound(t *testing.T) {
	f := newEmergencyFixture(t)

	err := f.handler.Handle(asSubject("0e8aa897-5b14-4e23-a959-ce4cd2bcf2f0"), commands.SignalEmergencyCommand{
		SubjectID: "0e8aa897-5b14-4e23-a959-ce4cd2bcf2f0",
	})

	assert.True(t, appErrors.IsNotFound(err))
	assert.Empty(t, f.alerts.alerts)
}

func TestEmergency_DoesNotChangeGeofenceState(t *testing.T) {
	f := newEmergencyFixture(t)

	require.NoError(t, f.handler.Handle(asSubject(f.subject.ID().String()), commands.SignalEmergencyCommand{
		SubjectID: f.subject.ID().String(),
	}))

	assert.Equal(t, entities.GeofenceUnconfigured, f.subject.State())
}

func TestEmergency_OtherPrincipal_Unauthorized(t *testing.T) {
	f := newEmergencyFixture(t)
	require.NoError(t, f.directory.Link(context.Background(), ports.GuardianLink{
		GuardianID: "guardian-1",
		SubjectID:  f.subject.ID(),
		PushToken:  "token-1",
	}))

	cmd := commands.SignalEmergencyCommand{SubjectID: f.subject.ID().String()}

	// Even a linked guardian cannot raise an SOS on the subject's behalf.
	err := f.handler.Handle(asGuardian("guardian-1"), cmd)
	assert.True(t, appErrors.IsUnauthorized(err))

	// Nor can another subject.
	err = f.handler.Handle(asSubject("1b7bd1e2-93c1-4c36-9d01-9a4f2d1c0b55"), cmd)
	assert.True(t, appErrors.IsUnauthorized(err))

	assert.Empty(t, f.alerts.alerts)
	assert.Zero(t, f.sender.sentCount())
}
