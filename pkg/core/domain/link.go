package domain

import "time"

// Link represents a shortened URL and its lifecycle state.
// A link is never physically removed: Deleted marks it as a tombstone,
// which frees its short code for reuse.
type Link struct {
	ID           int64      `json:"id"`
	OriginalURL  string     `json:"original_url"`
	ShortCode    string     `json:"short_code"`
	CreationDate time.Time  `json:"creation_date"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"` // nil means no fixed expiry
	ClicksCount  int64      `json:"clicks_count"`
	LastUsageAt  *time.Time `json:"last_usage_at,omitempty"`
	Deleted      bool       `json:"deleted"`
	Owner        *string    `json:"owner,omitempty"` // weak reference by identifier; nil means anonymous
}

// Expired reports whether the link has a fixed expiry in the past.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// OwnedBy reports whether requester is the link's owner.
// Anonymous links have no owner and cannot be mutated by anyone.
func (l *Link) OwnedBy(requester string) bool {
	return l.Owner != nil && *l.Owner == requester
}

// LinkSummary is the public projection returned by shorten and search.
type LinkSummary struct {
	OriginalURL string `json:"original_url"`
	ShortCode   string `json:"short_code"`
}

// LinkStats is the read-only statistics projection of an active link.
type LinkStats struct {
	CreationDate time.Time  `json:"creation_date"`
	ClicksCount  int64      `json:"clicks_count"`
	LastUsageAt  *time.Time `json:"last_usage_at,omitempty"`
}

// LinkDetail is the owner-facing projection used by the listing endpoints.
type LinkDetail struct {
	OriginalURL  string     `json:"original_url"`
	ShortCode    string     `json:"short_code"`
	CreationDate time.Time  `json:"creation_date"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	ClicksCount  int64      `json:"clicks_count"`
	LastUsageAt  *time.Time `json:"last_usage_at,omitempty"`
	Deleted      bool       `json:"deleted"`
}

// Summary returns the public projection of the link.
func (l *Link) Summary() LinkSummary {
	return LinkSummary{OriginalURL: l.OriginalURL, ShortCode: l.ShortCode}
}

// Stats returns the statistics projection of the link.
func (l *Link) Stats() LinkStats {
	return LinkStats{
		CreationDate: l.CreationDate,
		ClicksCount:  l.ClicksCount,
		LastUsageAt:  l.LastUsageAt,
	}
}

// Detail returns the owner-facing projection of the link.
func (l *Link) Detail() LinkDetail {
	return LinkDetail{
		OriginalURL:  l.OriginalURL,
		ShortCode:    l.ShortCode,
		CreationDate: l.CreationDate,
		ExpiresAt:    l.ExpiresAt,
		ClicksCount:  l.ClicksCount,
		LastUsageAt:  l.LastUsageAt,
		Deleted:      l.Deleted,
	}
}
