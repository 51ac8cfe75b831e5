package handlers

import (
	"context"
	"sync"
	"time"

	"guard-backend/application/ports"
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

type fakeSubjectRepo struct {
	mu       sync.Mutex
	subjects map[string]*entities.Subject
}

func newFakeSubjectRepo() *fakeSubjectRepo {
	return &fakeSubjectRepo{subjects: make(map[string]*entities.Subject)}
}

func (r *fakeSubjectRepo) GetByID(_ context.Context, id valueobjects.SubjectID) (*entities.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subjects[id.String()]
	if !ok {
		return nil, appErrors.NewNotFoundError("subject")
	}
	return s, nil
}

func (r *fakeSubjectRepo) Save(_ context.Context, subject *entities.Subject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects[subject.ID().String()] = subject
	return nil
}

type fakeLocationLedger struct {
	mu      sync.Mutex
	samples []entities.PositionSample
}

func (l *fakeLocationLedger) Append(_ context.Context, sample entities.PositionSample) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.samples = append(l.samples, sample)
	return nil
}

func (l *fakeLocationLedger) Latest(_ context.Context, subjectID valueobjects.SubjectID) (*entities.PositionSample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.samples) - 1; i >= 0; i-- {
		if l.samples[i].SubjectID.Equals(subjectID) {
			s := l.samples[i]
			return &s, nil
		}
	}
	return nil, appErrors.NewNotFoundError("samples for subject")
}

func (l *fakeLocationLedger) History(_ context.Context, subjectID valueobjects.SubjectID, from, to time.Time, limit int) ([]entities.PositionSample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []entities.PositionSample
	for i := len(l.samples) - 1; i >= 0 && len(out) < limit; i-- {
		s := l.samples[i]
		if s.SubjectID.Equals(subjectID) && !s.ReceivedAt.Before(from) && !s.ReceivedAt.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeAlertLedger struct {
	mu     sync.Mutex
	alerts []entities.AlertEvent
}

func (l *fakeAlertLedger) Append(_ context.Context, alert entities.AlertEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alerts = append(l.alerts, alert)
	return nil
}

func (l *fakeAlertLedger) ListBySubject(_ context.Context, subjectID valueobjects.SubjectID, limit int) ([]entities.AlertEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []entities.AlertEvent
	for i := len(l.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		if l.alerts[i].SubjectID.Equals(subjectID) {
			out = append(out, l.alerts[i])
		}
	}
	return out, nil
}

func (l *fakeAlertLedger) CountByKindSince(_ context.Context, kind entities.AlertKind, since time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, a := range l.alerts {
		if a.Kind == kind && !a.OccurredAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (l *fakeAlertLedger) bySubject(subjectID valueobjects.SubjectID) []entities.AlertEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []entities.AlertEvent
	for _, a := range l.alerts {
		if a.SubjectID.Equals(subjectID) {
			out = append(out, a)
		}
	}
	return out
}

type fakeDirectory struct {
	mu    sync.Mutex
	links map[string][]ports.GuardianLink
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{links: make(map[string][]ports.GuardianLink)}
}

func (d *fakeDirectory) ListGuardians(_ context.Context, subjectID valueobjects.SubjectID) ([]ports.GuardianLink, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ports.GuardianLink(nil), d.links[subjectID.String()]...), nil
}

func (d *fakeDirectory) ListSubjects(_ context.Context, guardianID string) ([]ports.GuardianLink, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []ports.GuardianLink
	for _, links := range d.links {
		for _, l := range links {
			if l.GuardianID == guardianID {
				out = append(out, l)
			}
		}
	}
	return out, nil
}

func (d *fakeDirectory) Link(_ context.Context, link ports.GuardianLink) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := link.SubjectID.String()
	d.links[key] = append(d.links[key], link)
	return nil
}

func (d *fakeDirectory) Unlink(_ context.Context, subjectID valueobjects.SubjectID, guardianID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := subjectID.String()
	var kept []ports.GuardianLink
	for _, l := range d.links[key] {
		if l.GuardianID != guardianID {
			kept = append(kept, l)
		}
	}
	d.links[key] = kept
	return nil
}

func (d *fakeDirectory) IsGuardianOf(_ context.Context, subjectID valueobjects.SubjectID, guardianID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range d.links[subjectID.String()] {
		if l.GuardianID == guardianID {
			return true, nil
		}
	}
	return false, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []ports.PushMessage
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg ports.PushMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeOutbox struct {
	mu      sync.Mutex
	entries map[string]ports.OutboxEntry
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{entries: make(map[string]ports.OutboxEntry)}
}

func (o *fakeOutbox) Stage(_ context.Context, entries []ports.OutboxEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range entries {
		o.entries[e.ID] = e
	}
	return nil
}

func (o *fakeOutbox) PendingBatch(_ context.Context, limit int) ([]ports.OutboxEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []ports.OutboxEntry
	for _, e := range o.entries {
		if e.Status == "pending" && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (o *fakeOutbox) MarkSent(_ context.Context, id string) error {
	return o.setStatus(id, "sent")
}

func (o *fakeOutbox) MarkRetry(_ context.Context, id string) error {
	return o.setStatus(id, "pending")
}

func (o *fakeOutbox) MarkFailed(_ context.Context, id string) error {
	return o.setStatus(id, "failed")
}

func (o *fakeOutbox) setStatus(id, status string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[id]
	if !ok {
		return appErrors.NewNotFoundError("outbox entry")
	}
	e.Status = status
	e.Attempts++
	o.entries[id] = e
	return nil
}

func (o *fakeOutbox) all() []ports.OutboxEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []ports.OutboxEntry
	for _, e := range o.entries {
		out = append(out, e)
	}
	return out
}

func (o *fakeOutbox) statusCounts() map[string]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range o.entries {
		counts[e.Status]++
	}
	return counts
}

type fakePublisher struct {
	mu        sync.Mutex
	published []events.DomainEvent
}

func (p *fakePublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, event)
	return nil
}

type fakeLock struct{}

func (fakeLock) Acquire(_ context.Context, _ valueobjects.SubjectID) (func(), error) {
	return func() {}, nil
}

// fakeUnitOfWork applies a transition commit against the in-memory stores.
type fakeUnitOfWork struct {
	subjects *fakeSubjectRepo
	alerts   *fakeAlertLedger
	outbox   *fakeOutbox
}

func (u *fakeUnitOfWork) CommitTransition(ctx context.Context, commit ports.TransitionCommit) error {
	if commit.Subject != nil {
		if err := u.subjects.Save(ctx, commit.Subject); err != nil {
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
