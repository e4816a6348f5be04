package ports

import (
	"context"
	"time"

	"github.com/aurora-borealis222/url-shortener/pkg/core/domain"
)

// LinkRepository defines storage operations for links.
// "Active" always means deleted = false.
type LinkRepository interface {
	// CountActiveByCode returns the number of active links holding code.
	// Used for pre-insert collision checks.
	CountActiveByCode(ctx context.Context, code string) (int64, error)
	// FindActiveByCode returns the active link for code, or domain.ErrNotFound.
	FindActiveByCode(ctx context.Context, code string) (*domain.Link, error)
	// FindActiveByOriginalURL returns all active links matching url exactly.
	FindActiveByOriginalURL(ctx context.Context, url string) ([]domain.Link, error)
	// FindActiveByOwner returns the owner's active links.
	FindActiveByOwner(ctx context.Context, owner string) ([]domain.Link, error)
	// FindExpiredByOwner returns the owner's links with expires_at < now,
	// regardless of the deleted flag.
	FindExpiredByOwner(ctx context.Context, owner string, now time.Time) ([]domain.Link, error)

	// Insert persists a new link and assigns its ID. Must fail with
	// domain.ErrConflict if an active link already holds the short code.
	Insert(ctx context.Context, link *domain.Link) error
	// Update persists mutable fields of an existing link. Must fail with
	// domain.ErrConflict if the short code is moved onto a taken one.
	Update(ctx context.Context, link *domain.Link) error
	// IncrementUsage bumps clicks_count and sets last_usage_at for the
	// active link holding code, atomically, and returns the updated link.
	IncrementUsage(ctx context.Context, code string, now time.Time) (*domain.Link, error)

	// SoftDeleteExpired marks all active links with expires_at < now as
	// deleted and returns the number of rows affected. Idempotent.
	SoftDeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// SoftDeleteInactive marks all active links last used before cutoff as
	// deleted and returns the number of rows affected. Links that were
	// never used are exempt. Idempotent.
	SoftDeleteInactive(ctx context.Context, cutoff time.Time) (int64, error)

	// Dump returns every link row, tombstones included. For migration.
	Dump(ctx context.Context) ([]domain.Link, error)
}

// LinkService defines the link lifecycle operations.
type LinkService interface {
	Shorten(ctx context.Context, originalURL, customAlias string, expiresAt *time.Time, owner string) (*domain.Link, error)
	Search(ctx context.Context, originalURL string) ([]domain.LinkSummary, error)
	Resolve(ctx context.Context, code string) (string, error)
	Stats(ctx context.Context, code string) (*domain.LinkStats, error)
	ListActive(ctx context.Context, owner string) ([]domain.LinkDetail, error)
	ListExpired(ctx context.Context, owner string) ([]domain.LinkDetail, error)
	Remove(ctx context.Context, code, requester string) error
	Rotate(ctx context.Context, code, requester string) (*domain.Link, error)
}

// CodeGenerator creates random short codes. Uniqueness is not
// self-guaranteed; the caller checks collisions against the store.
type CodeGenerator interface {
	Generate() (string, error)
}

// Cache is a read-through cache for search and stats responses.
// Implementations must degrade gracefully: a cache failure is a miss,
// never an error surfaced to the caller.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}
