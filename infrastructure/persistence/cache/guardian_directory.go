package cache

import (
	"context"

	"guard-backend/application/ports"
	"guard-backend/domain/core/valueobjects"
)

// Guardian lists change rarely but are read on every transition fanout, so a
// short TTL takes the directory off the ingestion hot path.
const guardianListTTLSeconds = 30

// CachedGuardianDirectory decorates a directory with read caching. Writes
// invalidate the subject's entry so a freshly linked guardian is seen
// immediately by this instance.
type CachedGuardianDirectory struct {
	inner ports.GuardianDirectory
	cache *InMemoryCache
}

// NewCachedGuardianDirectory wraps a directory with caching
func NewCachedGuardianDirectory(inner ports.GuardianDirectory, cache *InMemoryCache) *CachedGuardianDirectory {
	return &CachedGuardianDirectory{
		inner: inner,
		cache: cache,
	}
}

func cacheKey(subjectID valueobjects.SubjectID) string {
	return "guardians:" + subjectID.String()
}

// ListGuardians implements ports.GuardianDirectory
func (d *CachedGuardianDirectory) ListGuardians(ctx context.Context, subjectID valueobjects.SubjectID) ([]ports.GuardianLink, error) {
	key := cacheKey(subjectID)
	if cached, ok := d.cache.Get(ctx, key); ok {
		if links, ok := cached.([]ports.GuardianLink); ok {
			return links, nil
		}
	}

	links, err := d.inner.ListGuardians(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	_ = d.cache.Set(ctx, key, links, guardianListTTLSeconds)
	return links, nil
}

// ListSubjects implements ports.GuardianDirectory. Guardian-side reads are
// request-path only, never fanout, so they go straight through.
func (d *CachedGuardianDirectory) ListSubjects(ctx context.Context, guardianID string) ([]ports.GuardianLink, error) {
	return d.inner.ListSubjects(ctx, guardianID)
}

// Link implements ports.GuardianDirectory
func (d *CachedGuardianDirectory) Link(ctx context.Context, link ports.GuardianLink) error {
	if err := d.inner.Link(ctx, link); err != nil {
		return err
	}
	_ = d.cache.Delete(ctx, cacheKey(link.SubjectID))
	return nil
}

// Unlink implements ports.GuardianDirectory
func (d *CachedGuardianDirectory) Unlink(ctx context.Context, subjectID valueobjects.SubjectID, guardianID string) error {
	if err := d.inner.Unlink(ctx, subjectID, guardianID); err != nil {
		return err
	}
	_ = d.cache.Delete(ctx, cacheKey(subjectID))
	return nil
}

// IsGuardianOf implements ports.GuardianDirectory. Authorization checks go
// through the cached list so hot read paths avoid a directory round trip.
func (d *CachedGuardianDirectory) IsGuardianOf(ctx context.Context, subjectID valueobjects.SubjectID, guardianID string) (bool, error) {
	links, err := d.ListGuardians(ctx, subjectID)
	if err != nil {
		return false, err
	}
	for _, link := range links {
		if link.GuardianID == guardianID {
			return true, nil
		}
	}
	return false, nil
}
