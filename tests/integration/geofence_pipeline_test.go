package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"guard-backend/application/commands"
	"guard-backend/application/commands/bus"
	cmdhandlers "guard-backend/application/commands/handlers"
	"guard-backend/application/ports"
	"guard-backend/application/services"
	"guard-backend/domain/core/entities"
	"guard-backend/domain/core/valueobjects"
	"guard-backend/domain/events"
	"guard-backend/pkg/auth"
	"guard-backend/pkg/common"
	appErrors "guard-backend/pkg/errors"
)

func principal(userID, role string) context.Context {
	ctx := common.WithUserID(context.Background(), userID)
	return common.WithUserRole(ctx, role)
}

func asSubject(subjectID string) context.Context { return principal(subjectID, auth.RoleSubject) }

func asGuardian(guardianID string) context.Context { return principal(guardianID, auth.RoleGuardian) }

func asAdmin() context.Context { return principal("ops-1", auth.RoleAdmin) }

// In-memory adapters backing the full command pipeline. The subject store
// enforces the same version check as the real repository so concurrent
// writers are exercised honestly.

type memSubjectStore struct {
	mu       sync.Mutex
	subjects map[string]*entities.Subject
}

func newMemSubjectStore() *memSubjectStore {
	return &memSubjectStore{subjects: make(map[string]*entities.Subject)}
}

func (s *memSubjectStore) GetByID(_ context.Context, id valueobjects.SubjectID) (*entities.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.subjects[id.String()]
	if !ok {
		return nil, appErrors.NewNotFoundError("subject")
	}
	return snapshot(stored), nil
}

func (s *memSubjectStore) Save(_ context.Context, subject *entities.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(subject)
}

func (s *memSubjectStore) saveLocked(subject *entities.Subject) error {
	key := subject.ID().String()
	stored, exists := s.subjects[key]
	if exists && stored.Version() != subject.Version()-1 {
		return appErrors.NewConflictError("subject was modified concurrently")
	}
	if !exists && subject.Version() != 0 {
		return appErrors.NewConflictError("subject was modified concurrently")
	}
	s.subjects[key] = snapshot(subject)
	return nil
}

func snapshot(subject *entities.Subject) *entities.Subject {
	return entities.ReconstructSubject(
		subject.ID(),
		subject.DeviceID(),
		subject.Zone(),
		subject.InsideSafeZone(),
		subject.LastSeenAt(),
		subject.CreatedAt(),
		subject.UpdatedAt(),
		subject.Version(),
	)
}

type memLocationStore struct {
	mu      sync.Mutex
	samples []entities.PositionSample
}

func (s *memLocationStore) Append(_ context.Context, sample entities.PositionSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	return nil
}

func (s *memLocationStore) Latest(_ context.Context, subjectID valueobjects.SubjectID) (*entities.PositionSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *entities.PositionSample
	for i := range s.samples {
		sample := s.samples[i]
		if !sample.SubjectID.Equals(subjectID) {
			continue
		}
		if latest == nil || sample.ReceivedAt.After(latest.ReceivedAt) {
			latest = &sample
		}
	}
	if latest == nil {
		return nil, appErrors.NewNotFoundError("location")
	}
	return latest, nil
}

func (s *memLocationStore) History(_ context.Context, subjectID valueobjects.SubjectID, from, to time.Time, limit int) ([]entities.PositionSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.PositionSample
	for _, sample := range s.samples {
		if sample.SubjectID.Equals(subjectID) && !sample.ReceivedAt.Before(from) && !sample.ReceivedAt.After(to) {
			out = append(out, sample)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memAlertStore struct {
	mu     sync.Mutex
	alerts []entities.AlertEvent
}

func (s *memAlertStore) Append(_ context.Context, alert entities.AlertEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *memAlertStore) ListBySubject(_ context.Context, subjectID valueobjects.SubjectID, limit int) ([]entities.AlertEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.AlertEvent
	for _, alert := range s.alerts {
		if alert.SubjectID.Equals(subjectID) {
			out = append(out, alert)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memAlertStore) CountByKindSince(_ context.Context, kind entities.AlertKind, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, alert := range s.alerts {
		if alert.Kind == kind && !alert.OccurredAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *memAlertStore) bySubject(subjectID valueobjects.SubjectID) []entities.AlertEvent {
	out, _ := s.ListBySubject(context.Background(), subjectID, 0)
	return out
}

type memDirectory struct {
	mu    sync.Mutex
	links []ports.GuardianLink
}

func (d *memDirectory) ListGuardians(_ context.Context, subjectID valueobjects.SubjectID) ([]ports.GuardianLink, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []ports.GuardianLink
	for _, link := range d.links {
		if link.SubjectID.Equals(subjectID) {
			out = append(out, link)
		}
	}
	return out, nil
}

func (d *memDirectory) ListSubjects(_ context.Context, guardianID string) ([]ports.GuardianLink, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []ports.GuardianLink
	for _, link := range d.links {
		if link.GuardianID == guardianID {
			out = append(out, link)
		}
	}
	return out, nil
}

func (d *memDirectory) Link(_ context.Context, link ports.GuardianLink) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.links {
		if existing.SubjectID.Equals(link.SubjectID) && existing.GuardianID == link.GuardianID {
			d.links[i] = link
			return nil
		}
	}
	d.links = append(d.links, link)
	return nil
}

func (d *memDirectory) Unlink(_ context.Context, subjectID valueobjects.SubjectID, guardianID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, link := range d.links {
		if link.SubjectID.Equals(subjectID) && link.GuardianID == guardianID {
			d.links = append(d.links[:i], d.links[i+1:]...)
			return nil
		}
	}
	return nil
}

func (d *memDirectory) IsGuardianOf(ctx context.Context, subjectID valueobjects.SubjectID, guardianID string) (bool, error) {
	links, _ := d.ListGuardians(ctx, subjectID)
	for _, link := range links {
		if link.GuardianID == guardianID {
			return true, nil
		}
	}
	return false, nil
}

type memSender struct {
	mu   sync.Mutex
	sent []ports.PushMessage
}

func (s *memSender) Send(_ context.Context, msg ports.PushMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *memSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *memSender) messages() []ports.PushMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.PushMessage, len(s.sent))
	copy(out, s.sent)
	return out
}

type memOutbox struct {
	mu      sync.Mutex
	entries map[string]ports.OutboxEntry
}

func newMemOutbox() *memOutbox {
	return &memOutbox{entries: make(map[string]ports.OutboxEntry)}
}

func (o *memOutbox) Stage(_ context.Context, entries []ports.OutboxEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, entry := range entries {
		o.entries[entry.ID] = entry
	}
	return nil
}

func (o *memOutbox) PendingBatch(_ context.Context, limit int) ([]ports.OutboxEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []ports.OutboxEntry
	for _, entry := range o.entries {
		if entry.Status == "pending" {
			out = append(out, entry)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (o *memOutbox) MarkSent(_ context.Context, id string) error   { return o.setStatus(id, "sent") }
func (o *memOutbox) MarkRetry(_ context.Context, id string) error  { return o.setStatus(id, "pending") }
func (o *memOutbox) MarkFailed(_ context.Context, id string) error { return o.setStatus(id, "failed") }

func (o *memOutbox) setStatus(id, status string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.entries[id]
	if !ok {
		return appErrors.NewNotFoundError("outbox entry")
	}
	entry.Status = status
	entry.Attempts++
	o.entries[id] = entry
	return nil
}

func (o *memOutbox) countStatus(status string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	count := 0
	for _, entry := range o.entries {
		if entry.Status == status {
			count++
		}
	}
	return count
}

type memPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *memPublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type memLock struct{ mutex *common.KeyedMutex }

func (l *memLock) Acquire(_ context.Context, subjectID valueobjects.SubjectID) (func(), error) {
	return l.mutex.Lock("commit:" + subjectID.String()), nil
}

// memUnitOfWork applies a transition against the stores under one lock so the
// subject version check and the ledger append stay atomic, as the
// transactional write does in production.
type memUnitOfWork struct {
	subjects *memSubjectStore
	alerts   *memAlertStore
	outbox   *memOutbox
}

func (u *memUnitOfWork) CommitTransition(ctx context.Context, commit ports.TransitionCommit) error {
	u.subjects.mu.Lock()
	defer u.subjects.mu.Unlock()

	if commit.Subject != nil {
		if err := u.subjects.saveLocked(commit.Subject); err != nil {
			return err
		}
	}
	if commit.Alert != nil {
		if err := u.alerts.Append(ctx, *commit.Alert); err != nil {
			return err
		}
	}
	return u.outbox.Stage(ctx, commit.Outbox)
}

type pipeline struct {
	bus       *bus.CommandBus
	manage    *cmdhandlers.ManageSubjectHandler
	subjects  *memSubjectStore
	alerts    *memAlertStore
	directory *memDirectory
	sender    *memSender
	outbox    *memOutbox
	pub       *memPublisher
}

func newPipeline(t *testing.T, notifyOnZoneEnter bool) *pipeline {
	t.Helper()
	logger := zap.NewNop()

	subjects := newMemSubjectStore()
	locations := &memLocationStore{}
	alerts := &memAlertStore{}
	directory := &memDirectory{}
	sender := &memSender{}
	outbox := newMemOutbox()
	publisher := &memPublisher{}
	lock := &memLock{mutex: common.NewKeyedMutex()}
	local := common.NewKeyedMutex()
	uow := &memUnitOfWork{subjects: subjects, alerts: alerts, outbox: outbox}

	fanout := services.NewNotificationFanout(directory, sender, outbox, logger, nil, nil, notifyOnZoneEnter)

	commandBus := bus.NewCommandBus()
	require.NoError(t, commandBus.Register(commands.IngestLocationCommand{},
		cmdhandlers.NewIngestLocationHandler(subjects, locations, uow, lock, local, fanout, publisher, logger, nil)))
	require.NoError(t, commandBus.Register(commands.SignalEmergencyCommand{},
		cmdhandlers.NewSignalEmergencyHandler(subjects, uow, fanout, publisher, logger, nil)))

	zoneHandler := cmdhandlers.NewConfigureZoneHandler(subjects, directory, lock, local, logger)
	require.NoError(t, commandBus.Register(commands.ConfigureSafeZoneCommand{}, zoneHandler))
	require.NoError(t, commandBus.Register(commands.ClearSafeZoneCommand{}, zoneHandler))

	manage := cmdhandlers.NewManageSubjectHandler(subjects, directory, logger)
	require.NoError(t, commandBus.Register(commands.LinkGuardianCommand{}, manage))
	require.NoError(t, commandBus.Register(commands.UnlinkGuardianCommand{}, manage))

	return &pipeline{
		bus:       commandBus,
		manage:    manage,
		subjects:  subjects,
		alerts:    alerts,
		directory: directory,
		sender:    sender,
		outbox:    outbox,
		pub:       publisher,
	}
}

// Home zone for the scenario tests. The outside point is roughly 150 m north
// of center; the inside point is roughly 11 m out.
const (
	homeLat    = 37.5
	homeLon    = 127.0
	homeRadius = 100.0

	outsideLat = 37.50135
	insideLat  = 37.5001
)

func (p *pipeline) register(t *testing.T) string {
	t.Helper()
	subject, err := p.manage.Register(context.Background(), commands.RegisterSubjectCommand{DeviceID: "tracker-" + uuid.NewString()[:8]})
	require.NoError(t, err)
	return subject.ID().String()
}

func (p *pipeline) configureHomeZone(t *testing.T, subjectID string) {
	t.Helper()
	require.NoError(t, p.bus.Send(asAdmin(), commands.ConfigureSafeZoneCommand{
		SubjectID:    subjectID,
		Latitude:     homeLat,
		Longitude:    homeLon,
		RadiusMeters: homeRadius,
	}))
}

func (p *pipeline) ingest(subjectID string, lat, lon float64) error {
	return p.bus.Send(asSubject(subjectID), commands.IngestLocationCommand{
		SubjectID:  subjectID,
		Latitude:   lat,
		Longitude:  lon,
		RecordedAt: time.Now(),
	})
}

func mustSubjectID(t *testing.T, raw string) valueobjects.SubjectID {
	t.Helper()
	id, err := valueobjects.NewSubjectIDFromString(raw)
	require.NoError(t, err)
	return id
}

func TestGeofencePipeline(t *testing.T) {
	p := newPipeline(t, false)

	subjectID := p.register(t)
	sid := mustSubjectID(t, subjectID)

	require.NoError(t, p.bus.Send(asSubject(subjectID), commands.LinkGuardianCommand{
		SubjectID:  subjectID,
		GuardianID: "guardian-1",
		PushToken:  "token-1",
	}))
	require.NoError(t, p.bus.Send(asSubject(subjectID), commands.LinkGuardianCommand{
		SubjectID:  subjectID,
		GuardianID: "guardian-2",
		PushToken:  "token-2",
	}))

	p.configureHomeZone(t, subjectID)

	// Inside sample: no alert, no push.
	require.NoError(t, p.ingest(subjectID, insideLat, homeLon))
	assert.Empty(t, p.alerts.bySubject(sid))
	assert.Zero(t, p.sender.count())

	// Leaving the zone raises exactly one exit alert and pushes to both
	// guardians.
	require.NoError(t, p.ingest(subjectID, outsideLat, homeLon))

	alerts := p.alerts.bySubject(sid)
	require.Len(t, alerts, 1)
	assert.Equal(t, entities.AlertZoneExit, alerts[0].Kind)
	assert.Equal(t, entities.MessageZoneExit, alerts[0].Message)

	assert.Eventually(t, func() bool {
		return p.sender.count() == 2 && p.outbox.countStatus("sent") == 2
	}, 2*time.Second, 10*time.Millisecond)

	for _, msg := range p.sender.messages() {
		assert.Equal(t, "Safe zone alert", msg.Title)
		assert.Equal(t, entities.MessageZoneExit, msg.Body)
	}

	// Staying outside is not a new transition.
	require.NoError(t, p.ingest(subjectID, outsideLat+0.0001, homeLon))
	assert.Len(t, p.alerts.bySubject(sid), 1)

	// Returning writes an enter alert but pushes nothing by default.
	require.NoError(t, p.ingest(subjectID, insideLat, homeLon))

	alerts = p.alerts.bySubject(sid)
	require.Len(t, alerts, 2)
	assert.Equal(t, entities.AlertZoneEnter, alerts[1].Kind)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, p.sender.count())

	// Both transitions landed on the event bus.
	assert.Eventually(t, func() bool {
		p.pub.mu.Lock()
		defer p.pub.mu.Unlock()
		return len(p.pub.events) >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEmergencyWithoutGuardians(t *testing.T) {
	p := newPipeline(t, false)

	subjectID := p.register(t)
	sid := mustSubjectID(t, subjectID)

	lat, lon := 37.49, 126.98
	require.NoError(t, p.bus.Send(asSubject(subjectID), commands.SignalEmergencyCommand{
		SubjectID: subjectID,
		Latitude:  &lat,
		Longitude: &lon,
	}))

	// The ledger records the emergency even though nobody gets a push.
	alerts := p.alerts.bySubject(sid)
	require.Len(t, alerts, 1)
	assert.Equal(t, entities.AlertEmergency, alerts[0].Kind)
	assert.Equal(t, entities.MessageEmergency, alerts[0].Message)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, p.sender.count())
}

func TestConcurrentIngestProducesSingleExitAlert(t *testing.T) {
	p := newPipeline(t, false)

	subjectID := p.register(t)
	sid := mustSubjectID(t, subjectID)
	p.configureHomeZone(t, subjectID)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Replays of the same outside fix must not duplicate the alert.
			_ = p.ingest(subjectID, outsideLat, homeLon)
		}()
	}
	wg.Wait()

	alerts := p.alerts.bySubject(sid)
	require.Len(t, alerts, 1)
	assert.Equal(t, entities.AlertZoneExit, alerts[0].Kind)
}

func TestUnlinkedGuardianCannotMutate(t *testing.T) {
	p := newPipeline(t, false)

	subjectID := p.register(t)
	sid := mustSubjectID(t, subjectID)

	require.NoError(t, p.bus.Send(asSubject(subjectID), commands.LinkGuardianCommand{
		SubjectID:  subjectID,
		GuardianID: "guardian-1",
		PushToken:  "token-1",
	}))

	// A guardian with no link to the subject can neither place a zone nor
	// raise an SOS on its behalf.
	err := p.bus.Send(asGuardian("stranger"), commands.ConfigureSafeZoneCommand{
		SubjectID:    subjectID,
		Latitude:     homeLat,
		Longitude:    homeLon,
		RadiusMeters: homeRadius,
	})
	assert.True(t, appErrors.IsUnauthorized(err))

	err = p.bus.Send(asGuardian("stranger"), commands.SignalEmergencyCommand{
		SubjectID: subjectID,
	})
	assert.True(t, appErrors.IsUnauthorized(err))

	// Nothing changed: no zone, no alerts, no pushes.
	stored, err := p.subjects.GetByID(context.Background(), sid)
	require.NoError(t, err)
	assert.Nil(t, stored.Zone())
	assert.Empty(t, p.alerts.bySubject(sid))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, p.sender.count())

	// The linked guardian, by contrast, may configure the zone.
	require.NoError(t, p.bus.Send(asGuardian("guardian-1"), commands.ConfigureSafeZoneCommand{
		SubjectID:    subjectID,
		Latitude:     homeLat,
		Longitude:    homeLon,
		RadiusMeters: homeRadius,
	}))
	stored, err = p.subjects.GetByID(context.Background(), sid)
	require.NoError(t, err)
	require.NotNil(t, stored.Zone())
}

func TestZoneEnterPushWhenEnabled(t *testing.T) {
	p := newPipeline(t, true)

	subjectID := p.register(t)
	sid := mustSubjectID(t, subjectID)

	require.NoError(t, p.bus.Send(asSubject(subjectID), commands.LinkGuardianCommand{
		SubjectID:  subjectID,
		GuardianID: "guardian-1",
		PushToken:  "token-1",
	}))

	p.configureHomeZone(t, subjectID)
	require.NoError(t, p.ingest(subjectID, outsideLat, homeLon))
	require.NoError(t, p.ingest(subjectID, insideLat, homeLon))

	require.Len(t, p.alerts.bySubject(sid), 2)

	// Exit and enter both push when the enter gate is on.
	assert.Eventually(t, func() bool {
		return p.sender.count() == 2
	}, 2*time.Second, 10*time.Millisecond)
}
