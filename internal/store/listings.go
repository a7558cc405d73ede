package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"carwatch-engine/internal/domain"
)

func Migrate(db *sql.DB) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS listings (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  price TEXT NOT NULL DEFAULT '',
  year TEXT NOT NULL DEFAULT '',
  km TEXT NOT NULL DEFAULT '',
  link TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  crawled_at TEXT NOT NULL,
  source TEXT NOT NULL DEFAULT ''
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_listings_crawled_at
ON listings(crawled_at);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

// InsertListingIgnore archives a listing, keyed by id. Re-inserting an id
// already in the archive is a no-op; added reports whether the row was new.
func InsertListingIgnore(db *sql.DB, l domain.Listing) (added bool, err error) {
	_, err = db.Exec(`
INSERT OR IGNORE INTO listings (id, title, price, year, km, link, image_url, crawled_at, source)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		l.ID, l.Title, l.Price, l.Year, l.Km, l.Link, l.ImageURL,
		l.CrawledAt.UTC().Format(time.RFC3339), l.Source,
	)
	if err != nil {
		return false, fmt.Errorf("insert listing: %w", err)
	}

	// IGNORE doesn't report rows affected reliably across drivers; ask sqlite.
	var changes int
	if e := db.QueryRow(`SELECT changes();`).Scan(&changes); e == nil {
		return changes > 0, nil
	}
	return true, nil
}

// RecentListings returns up to limit archived listings, newest first.
func RecentListings(ctx context.Context, db *sql.DB, limit int) ([]domain.Listing, error) {
	if limit <= 0 || limit > 2000 {
		limit = 1000
	}

	rows, err := db.QueryContext(ctx, `
SELECT id, title, price, year, km, link, image_url, crawled_at, source
FROM listings
ORDER BY crawled_at DESC, id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		var l domain.Listing
		var crawledAt string
		if err := rows.Scan(
			&l.ID,
			&l.Title,
			&l.Price,
			&l.Year,
			&l.Km,
			&l.Link,
			&l.ImageURL,
			&crawledAt,
			&l.Source,
		); err != nil {
			return nil, err
		}
		l.CrawledAt, _ = time.Parse(time.RFC3339, crawledAt)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// AllListingIDs streams every archived id, used to warm-start the seen set
// after a restart.
func AllListingIDs(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM listings;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CleanupOldListings drops archive rows older than three months so the db
// file doesn't grow without bound.
func CleanupOldListings(db *sql.DB) (deleted int64, err error) {
	res, err := db.Exec(`
DELETE FROM listings
WHERE crawled_at < datetime('now', '-3 months');
`)
	if err != nil {
		return 0, fmt.Errorf("cleanup old listings: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
