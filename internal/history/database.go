// Package history persists a record of every wallpaper the pipeline
// generates into a queryable SQLite table, backing the gallery
// sub-commands (list/info/favorite/delete/stats/cleanup).
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one generated wallpaper as recorded in the gallery store.
type Entry struct {
	ID              int64
	Monitor         string
	Theme           string
	Template        string
	Seed            uint64
	PositivePrompt  string
	NegativePrompt  string
	WorkflowID      string
	Path            string
	CreatedAt       time.Time
	Favorite        bool
}

// Store wraps a SQLite-backed wallpapers table.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS wallpapers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	monitor TEXT NOT NULL,
	theme TEXT NOT NULL,
	template TEXT NOT NULL,
	seed INTEGER NOT NULL,
	positive_prompt TEXT NOT NULL,
	negative_prompt TEXT NOT NULL,
	workflow_id TEXT NOT NULL,
	path TEXT NOT NULL,
	created_at TEXT NOT NULL,
	favorite INTEGER NOT NULL DEFAULT 0
);
`

// Open opens (creating if necessary) the SQLite database at path and
// ensures the wallpapers table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history database ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create wallpapers table: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a temporary in-memory store, primarily for tests.
func OpenInMemory() (*Store, error) {
	return Open(":memory:")
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a new wallpaper entry and returns its assigned ID.
func (s *Store) Record(e Entry) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO wallpapers
			(monitor, theme, template, seed, positive_prompt, negative_prompt, workflow_id, path, created_at, favorite)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Monitor, e.Theme, e.Template, e.Seed, e.PositivePrompt, e.NegativePrompt,
		e.WorkflowID, e.Path, e.CreatedAt.Format(time.RFC3339), boolToInt(e.Favorite),
	)
	if err != nil {
		return 0, fmt.Errorf("record wallpaper: %w", err)
	}
	return res.LastInsertId()
}

// List returns entries ordered newest-first, optionally filtered by
// monitor name (empty means all monitors).
func (s *Store) List(monitor string, limit int) ([]Entry, error) {
	var rows *sql.Rows
	var err error
	query := `SELECT id, monitor, theme, template, seed, positive_prompt, negative_prompt, workflow_id, path, created_at, favorite
	          FROM wallpapers`
	args := []any{}
	if monitor != "" {
		query += " WHERE monitor = ?"
		args = append(args, monitor)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err = s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list wallpapers: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns a single entry by ID.
func (s *Store) Get(id int64) (Entry, error) {
	row := s.db.QueryRow(
		`SELECT id, monitor, theme, template, seed, positive_prompt, negative_prompt, workflow_id, path, created_at, favorite
		 FROM wallpapers WHERE id = ?`, id)
	return scanEntry(row)
}

// SetFavorite marks or unmarks an entry as a favorite.
func (s *Store) SetFavorite(id int64, favorite bool) error {
	_, err := s.db.Exec(`UPDATE wallpapers SET favorite = ? WHERE id = ?`, boolToInt(favorite), id)
	if err != nil {
		return fmt.Errorf("set favorite: %w", err)
	}
	return nil
}

// Delete removes an entry by ID. It does not remove the underlying
// image file; callers decide whether to do that.
func (s *Store) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM wallpapers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wallpaper entry: %w", err)
	}
	return nil
}

// CleanupOlderThan deletes non-favorite entries older than cutoff,
// returning the number removed.
func (s *Store) CleanupOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM wallpapers WHERE favorite = 0 AND created_at < ?`,
		cutoff.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("cleanup wallpapers: %w", err)
	}
	return res.RowsAffected()
}

// Stats summarizes the gallery store for the `gallery stats` command.
type Stats struct {
	Total      int
	Favorites  int
	ByMonitor  map[string]int
	ByTheme    map[string]int
}

// Stats computes summary counts over the whole store.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{ByMonitor: map[string]int{}, ByTheme: map[string]int{}}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM wallpapers`).Scan(&stats.Total); err != nil {
		return stats, fmt.Errorf("count wallpapers: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM wallpapers WHERE favorite = 1`).Scan(&stats.Favorites); err != nil {
		return stats, fmt.Errorf("count favorites: %w", err)
	}

	rows, err := s.db.Query(`SELECT monitor, COUNT(*) FROM wallpapers GROUP BY monitor`)
	if err != nil {
		return stats, fmt.Errorf("count by monitor: %w", err)
	}
	for rows.Next() {
		var monitor string
		var count int
		if err := rows.Scan(&monitor, &count); err != nil {
			rows.Close()
			return stats, err
		}
		stats.ByMonitor[monitor] = count
	}
	rows.Close()

	rows, err = s.db.Query(`SELECT theme, COUNT(*) FROM wallpapers GROUP BY theme`)
	if err != nil {
		return stats, fmt.Errorf("count by theme: %w", err)
	}
	for rows.Next() {
		var theme string
		var count int
		if err := rows.Scan(&theme, &count); err != nil {
			rows.Close()
			return stats, err
		}
		stats.ByTheme[theme] = count
	}
	rows.Close()

	return stats, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	var createdAt string
	var favorite int
	if err := row.Scan(&e.ID, &e.Monitor, &e.Theme, &e.Template, &e.Seed,
		&e.PositivePrompt, &e.NegativePrompt, &e.WorkflowID, &e.Path, &createdAt, &favorite); err != nil {
		return Entry{}, fmt.Errorf("scan wallpaper entry: %w", err)
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse created_at: %w", err)
	}
	e.CreatedAt = t
	e.Favorite = favorite != 0
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
