package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver

	"github.com/aurora-borealis222/url-shortener/pkg/core/domain"
	"github.com/aurora-borealis222/url-shortener/pkg/ports"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	// The partial unique index enforces code uniqueness among active links
	// only, so soft-deleted codes become reusable. A concurrent
	// check-then-insert race surfaces as a constraint violation instead of
	// a silent duplicate.
	query := `
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		original_url TEXT NOT NULL,
		short_code TEXT NOT NULL,
		creation_date DATETIME NOT NULL,
		expires_at DATETIME,
		clicks_count INTEGER NOT NULL DEFAULT 0,
		last_usage_at DATETIME,
		deleted INTEGER NOT NULL DEFAULT 0,
		owner TEXT
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_links_active_code ON links(short_code) WHERE deleted = 0;
	CREATE INDEX IF NOT EXISTS idx_links_original_url ON links(original_url);
	CREATE INDEX IF NOT EXISTS idx_links_owner ON links(owner);
	CREATE INDEX IF NOT EXISTS idx_links_expires_at ON links(expires_at);
	`
	_, err := db.Exec(query)
	return err
}

const linkColumns = `id, original_url, short_code, creation_date, expires_at, clicks_count, last_usage_at, deleted, owner`

func (r *SQLiteRepository) CountActiveByCode(ctx context.Context, code string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(id) FROM links WHERE short_code = ? AND deleted = 0`, code).Scan(&count)
	return count, err
}

func (r *SQLiteRepository) FindActiveByCode(ctx context.Context, code string) (*domain.Link, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE short_code = ? AND deleted = 0`, code)

	link, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("short code %q: %w", code, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *SQLiteRepository) FindActiveByOriginalURL(ctx context.Context, url string) ([]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE original_url = ? AND deleted = 0 ORDER BY creation_date`, url)
	if err != nil {
		return nil, err
	}
	return collectLinks(rows)
}

func (r *SQLiteRepository) FindActiveByOwner(ctx context.Context, owner string) ([]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE owner = ? AND deleted = 0 ORDER BY creation_date`, owner)
	if err != nil {
		return nil, err
	}
	return collectLinks(rows)
}

func (r *SQLiteRepository) FindExpiredByOwner(ctx context.Context, owner string, now time.Time) ([]domain.Link, error) {
	// History view: expired links are reported whether or not the sweeper
	// has already tombstoned them.
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM links
		 WHERE owner = ? AND expires_at IS NOT NULL AND expires_at < ?
		 ORDER BY creation_date`, owner, now.UTC())
	if err != nil {
		return nil, err
	}
	return collectLinks(rows)
}

func (r *SQLiteRepository) Insert(ctx context.Context, link *domain.Link) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO links (original_url, short_code, creation_date, expires_at, clicks_count, last_usage_at, deleted, owner)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		link.OriginalURL, link.ShortCode, link.CreationDate.UTC(), nullTime(link.ExpiresAt),
		link.ClicksCount, nullTime(link.LastUsageAt), boolToInt(link.Deleted), nullString(link.Owner))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("short code %q: %w", link.ShortCode, domain.ErrConflict)
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	link.ID = id
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, link *domain.Link) error {
	// creation_date and owner are immutable; clicks_count/last_usage_at go
	// through IncrementUsage so redirects never race this write.
	_, err := r.db.ExecContext(ctx,
		`UPDATE links SET original_url = ?, short_code = ?, expires_at = ?, deleted = ? WHERE id = ?`,
		link.OriginalURL, link.ShortCode, nullTime(link.ExpiresAt), boolToInt(link.Deleted), link.ID)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("short code %q: %w", link.ShortCode, domain.ErrConflict)
	}
	return err
}

func (r *SQLiteRepository) IncrementUsage(ctx context.Context, code string, now time.Time) (*domain.Link, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE short_code = ? AND deleted = 0`, code)
	link, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("short code %q: %w", code, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	// In-SQL increment: concurrent redirects never lose updates.
	now = now.UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE links SET clicks_count = clicks_count + 1, last_usage_at = ? WHERE id = ?`,
		now, link.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	link.ClicksCount++
	link.LastUsageAt = &now
	return link, nil
}

func (r *SQLiteRepository) SoftDeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE links SET deleted = 1 WHERE deleted = 0 AND expires_at IS NOT NULL AND expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) SoftDeleteInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE links SET deleted = 1 WHERE deleted = 0 AND last_usage_at IS NOT NULL AND last_usage_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM links ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectLinks(rows)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// ---- row mapping ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*domain.Link, error) {
	var (
		link        domain.Link
		expiresAt   sql.NullTime
		lastUsageAt sql.NullTime
		deleted     int
		owner       sql.NullString
	)
	err := row.Scan(&link.ID, &link.OriginalURL, &link.ShortCode, &link.CreationDate,
		&expiresAt, &link.ClicksCount, &lastUsageAt, &deleted, &owner)
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		link.ExpiresAt = &expiresAt.Time
	}
	if lastUsageAt.Valid {
		link.LastUsageAt = &lastUsageAt.Time
	}
	if owner.Valid {
		link.Owner = &owner.String
	}
	link.Deleted = deleted != 0
	return &link, nil
}

func collectLinks(rows *sql.Rows) ([]domain.Link, error) {
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

// Timestamps are stored in UTC so the driver's text encoding compares
// consistently in WHERE clauses.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Ensure interface compliance
var _ ports.LinkRepository = (*SQLiteRepository)(nil)
