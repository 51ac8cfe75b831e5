// Package ports defines the interfaces the application layer depends on.
// Infrastructure adapters implement these; handlers never see concrete types.
package ports

import (
	"context"
	"time"

	"guard-backend/domain/core/entities"
	"guard-backend/domain/core/valueobjects"
	"guard-backend/domain/events"
)

// SubjectRepository persists the subject aggregate.
type SubjectRepository interface {
	// GetByID loads a subject, returning a NOT_FOUND error when absent.
	GetByID(ctx context.Context, id valueobjects.SubjectID) (*entities.Subject, error)

	// Save writes the aggregate with a version check. A concurrent writer
	// having bumped the version surfaces as a CONFLICT error.
	Save(ctx context.Context, subject *entities.Subject) error
}

// LocationLedger is the append-only store of admitted position samples.
type LocationLedger interface {
	Append(ctx context.Context, sample entities.PositionSample) error

	// Latest returns the most recently received sample, or a NOT_FOUND error
	// when the subject has never reported.
	Latest(ctx context.Context, subjectID valueobjects.SubjectID) (*entities.PositionSample, error)

	// History returns samples received within [from, to], newest first.
	History(ctx context.Context, subjectID valueobjects.SubjectID, from, to time.Time, limit int) ([]entities.PositionSample, error)
}

// AlertLedger is the append-only store of alert events.
type AlertLedger interface {
	Append(ctx context.Context, alert entities.AlertEvent) error

	// ListBySubject returns a subject's alerts, newest first.
	ListBySubject(ctx context.Context, subjectID valueobjects.SubjectID, limit int) ([]entities.AlertEvent, error)

	// CountByKindSince supports the operations dashboard.
	CountByKindSince(ctx context.Context, kind entities.AlertKind, since time.Time) (int, error)

	// RecentByKind returns the newest alerts of one kind across all subjects.
	RecentByKind(ctx context.Context, kind entities.AlertKind, limit int) ([]entities.AlertEvent, error)
}

// DashboardReader aggregates fleet-wide counts for the operations dashboard.
// These are admin-path reads; none of them sit on the ingestion hot path.
type DashboardReader interface {
	CountSubjects(ctx context.Context) (int, error)
	CountActiveSubjects(ctx context.Context, since time.Time) (int, error)
	CountGuardianLinks(ctx context.Context) (int, error)
}

// GuardianLink associates a guardian with a subject and carries the
// guardian's push endpoint.
type GuardianLink struct {
	GuardianID string
	SubjectID  valueobjects.SubjectID
	PushToken  string
	LinkedAt   time.Time
}

// GuardianDirectory resolves the guardian-subject relation from both sides.
type GuardianDirectory interface {
	ListGuardians(ctx context.Context, subjectID valueobjects.SubjectID) ([]GuardianLink, error)

	// ListSubjects is the inverted lookup: every link a guardian holds.
	ListSubjects(ctx context.Context, guardianID string) ([]GuardianLink, error)

	Link(ctx context.Context, link GuardianLink) error
	Unlink(ctx context.Context, subjectID valueobjects.SubjectID, guardianID string) error

	// IsGuardianOf backs authorization checks on subject-scoped reads.
	IsGuardianOf(ctx context.Context, subjectID valueobjects.SubjectID, guardianID string) (bool, error)
}

// PushMessage is one notification destined for a guardian device.
type PushMessage struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// NotificationSender delivers a push message to a single device. Delivery is
// best-effort; a failure never propagates to the ingestion path.
type NotificationSender interface {
	Send(ctx context.Context, msg PushMessage) error
}

// NotificationOutbox stages fanout work so a crash between commit and
// delivery loses nothing.
type NotificationOutbox interface {
	Stage(ctx context.Context, entries []OutboxEntry) error
	PendingBatch(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkSent(ctx context.Context, id string) error

	// MarkRetry bumps the attempt counter but leaves the entry pending for
	// the background processor.
	MarkRetry(ctx context.Context, id string) error

	// MarkFailed retires an entry permanently.
	MarkFailed(ctx context.Context, id string) error
}

// OutboxEntry is one staged notification.
type OutboxEntry struct {
	ID        string
	SubjectID valueobjects.SubjectID
	AlertID   string
	Token     string
	Title     string
	Body      string
	Data      map[string]string
	Status    string
	Attempts  int
	CreatedAt time.Time
}

// EventPublisher pushes domain events onto the event bus for downstream
// consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}

// SubjectLock serializes processing per subject across instances.
type SubjectLock interface {
	// Acquire blocks until the lock is held or ctx expires. The returned
	// release function is safe to call once.
	Acquire(ctx context.Context, subjectID valueobjects.SubjectID) (release func(), err error)
}

// TransitionCommit is the atomic unit written when a sample flips the
// geofence verdict: the subject's new state, the alert ledger entry, and the
// staged notifications commit together or not at all.
type TransitionCommit struct {
	Subject *entities.Subject
	Alert   *entities.AlertEvent
	Outbox  []OutboxEntry
}

// UnitOfWork commits a transition atomically.
type UnitOfWork interface {
	CommitTransition(ctx context.Context, commit TransitionCommit) error
}
