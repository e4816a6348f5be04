package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/aurora-borealis222/url-shortener/pkg/core/domain"
	"github.com/aurora-borealis222/url-shortener/pkg/ports"
)

const (
	maxURLLength     = 2048
	maxAliasLength   = 64
	generateAttempts = 6
)

var aliasRe = regexp.MustCompile(`^[0-9A-Za-z]+$`)

// LinkService orchestrates the link lifecycle: creation, redirects, code
// rotation, soft deletion and the cached read paths.
type LinkService struct {
	repo     ports.LinkRepository
	gen      ports.CodeGenerator
	cache    ports.Cache
	cacheTTL time.Duration
	nowFunc  func() time.Time
}

func NewLinkService(repo ports.LinkRepository, gen ports.CodeGenerator, cache ports.Cache, cacheTTL time.Duration) *LinkService {
	return &LinkService{
		repo:     repo,
		gen:      gen,
		cache:    cache,
		cacheTTL: cacheTTL,
		nowFunc:  time.Now,
	}
}

// Shorten creates a new link. A custom alias is validated for uniqueness;
// otherwise a code is generated and checked against the store, bounded by a
// retry limit. The store's partial unique constraint catches concurrent
// check-then-insert races and surfaces them as a conflict.
func (s *LinkService) Shorten(ctx context.Context, originalURL, customAlias string, expiresAt *time.Time, owner string) (*domain.Link, error) {
	normalized, err := normalizeURL(originalURL)
	if err != nil {
		return nil, err
	}

	link := &domain.Link{
		OriginalURL:  normalized,
		CreationDate: s.nowFunc(),
		ExpiresAt:    expiresAt,
		ClicksCount:  0,
		Deleted:      false,
	}
	if owner != "" {
		link.Owner = &owner
	}

	if customAlias != "" {
		if !validAlias(customAlias) {
			return nil, domain.ErrInvalidCode
		}
		taken, err := s.repo.CountActiveByCode(ctx, customAlias)
		if err != nil {
			return nil, classify("check alias", err)
		}
		if taken > 0 {
			return nil, fmt.Errorf("alias %q: %w", customAlias, domain.ErrConflict)
		}
		link.ShortCode = customAlias
		if err := s.repo.Insert(ctx, link); err != nil {
			return nil, classify("insert link", err)
		}
	} else if err := s.insertGenerated(ctx, link); err != nil {
		return nil, err
	}

	s.cache.Delete(ctx, searchKey(normalized))
	return link, nil
}

// insertGenerated assigns a generated code and inserts, retrying on the
// rare collision until the attempt budget is exhausted.
func (s *LinkService) insertGenerated(ctx context.Context, link *domain.Link) error {
	for i := 0; i < generateAttempts; i++ {
		code, err := s.gen.Generate()
		if err != nil {
			return fmt.Errorf("generate code: %w (%v)", domain.ErrInternal, err)
		}
		taken, err := s.repo.CountActiveByCode(ctx, code)
		if err != nil {
			return classify("check code", err)
		}
		if taken > 0 {
			continue
		}
		link.ShortCode = code
		err = s.repo.Insert(ctx, link)
		if err == nil {
			return nil
		}
		if domain.IsConflict(err) {
			// Lost the check-then-insert race; pick another code.
			continue
		}
		return classify("insert link", err)
	}
	return fmt.Errorf("code generation retries exhausted: %w", domain.ErrInternal)
}

// Search returns all active links matching the original URL exactly.
// Results are served from the read-through cache with a short TTL.
func (s *LinkService) Search(ctx context.Context, originalURL string) ([]domain.LinkSummary, error) {
	originalURL = strings.TrimSpace(originalURL)
	key := searchKey(originalURL)

	if raw, ok := s.cache.Get(ctx, key); ok {
		var cached []domain.LinkSummary
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	links, err := s.repo.FindActiveByOriginalURL(ctx, originalURL)
	if err != nil {
		return nil, classify("search links", err)
	}
	summaries := make([]domain.LinkSummary, 0, len(links))
	for i := range links {
		summaries = append(summaries, links[i].Summary())
	}

	if raw, err := json.Marshal(summaries); err == nil {
		s.cache.Set(ctx, key, raw, s.cacheTTL)
	}
	return summaries, nil
}

// Resolve looks up the active link for code, atomically bumps its usage
// counters and returns the destination URL. The cached stats entry for the
// code is invalidated before the counters are committed.
func (s *LinkService) Resolve(ctx context.Context, code string) (string, error) {
	s.cache.Delete(ctx, statsKey(code))

	link, err := s.repo.IncrementUsage(ctx, code, s.nowFunc())
	if err != nil {
		return "", classify("resolve link", err)
	}
	return link.OriginalURL, nil
}

// Stats returns the statistics projection of an active link, served from
// the read-through cache with a short TTL.
func (s *LinkService) Stats(ctx context.Context, code string) (*domain.LinkStats, error) {
	key := statsKey(code)

	if raw, ok := s.cache.Get(ctx, key); ok {
		var cached domain.LinkStats
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	}

	link, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, classify("load link", err)
	}
	stats := link.Stats()

	if raw, err := json.Marshal(stats); err == nil {
		s.cache.Set(ctx, key, raw, s.cacheTTL)
	}
	return &stats, nil
}

// ListActive returns detailed projections of the owner's active links.
func (s *LinkService) ListActive(ctx context.Context, owner string) ([]domain.LinkDetail, error) {
	links, err := s.repo.FindActiveByOwner(ctx, owner)
	if err != nil {
		return nil, classify("list active links", err)
	}
	return details(links), nil
}

// ListExpired returns detailed projections of the owner's links whose
// expiry timestamp has passed, deleted ones included.
func (s *LinkService) ListExpired(ctx context.Context, owner string) ([]domain.LinkDetail, error) {
	links, err := s.repo.FindExpiredByOwner(ctx, owner, s.nowFunc())
	if err != nil {
		return nil, classify("list expired links", err)
	}
	return details(links), nil
}

// Remove soft-deletes the requester's link, freeing the code for reuse.
func (s *LinkService) Remove(ctx context.Context, code, requester string) error {
	link, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		return classify("load link", err)
	}
	if !link.OwnedBy(requester) {
		return domain.ErrForbidden
	}

	link.Deleted = true
	s.cache.Delete(ctx, statsKey(code), searchKey(link.OriginalURL))
	if err := s.repo.Update(ctx, link); err != nil {
		return classify("delete link", err)
	}
	return nil
}

// Rotate assigns a brand-new generated code to the requester's link.
// The old code stops resolving; the new one points at the same URL.
func (s *LinkService) Rotate(ctx context.Context, code, requester string) (*domain.Link, error) {
	link, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, classify("load link", err)
	}
	if !link.OwnedBy(requester) {
		return nil, domain.ErrForbidden
	}

	s.cache.Delete(ctx, statsKey(code), searchKey(link.OriginalURL))

	for i := 0; i < generateAttempts; i++ {
		newCode, err := s.gen.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w (%v)", domain.ErrInternal, err)
		}
		taken, err := s.repo.CountActiveByCode(ctx, newCode)
		if err != nil {
			return nil, classify("check code", err)
		}
		if taken > 0 {
			continue
		}
		link.ShortCode = newCode
		err = s.repo.Update(ctx, link)
		if err == nil {
			return link, nil
		}
		if domain.IsConflict(err) {
			continue
		}
		return nil, classify("rotate link", err)
	}
	return nil, fmt.Errorf("code generation retries exhausted: %w", domain.ErrInternal)
}

// ---- helpers ----

func details(links []domain.Link) []domain.LinkDetail {
	out := make([]domain.LinkDetail, 0, len(links))
	for i := range links {
		out = append(out, links[i].Detail())
	}
	return out
}

func searchKey(originalURL string) string { return "links:search:" + originalURL }
func statsKey(code string) string         { return "links:stats:" + code }

func validAlias(a string) bool {
	return len(a) <= maxAliasLength && aliasRe.MatchString(a)
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxURLLength {
		return "", domain.ErrInvalidURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", domain.ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", domain.ErrInvalidURL
	}
	if parsed.Host == "" {
		return "", domain.ErrInvalidURL
	}
	return parsed.String(), nil
}

// classify translates store failures into the service error taxonomy so
// callers never see a raw driver error. Context interruptions are safe to
// retry; anything unmapped is internal.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w (%v)", op, domain.ErrTransient, err)
	default:
		return fmt.Errorf("%s: %w (%v)", op, domain.ErrInternal, err)
	}
}

var _ ports.LinkService = (*LinkService)(nil)
