package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/perfumeharvest/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "perfumeharvest.db"

// PerfumeDB provides SQLite-based storage for harvested perfumes and run
// reports.
//
// Design decision: list fields are stored as JSON text columns instead of
// child tables. Records are always read and written whole, keyed by
// perfume_id, so a join buys nothing here.
type PerfumeDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures PerfumeDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a PerfumeDB inside dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*PerfumeDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a harvest first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer. Harvests of several sites share
	// this handle, so writes are serialized here.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pdb := &PerfumeDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := pdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pdb, nil
}

// Path returns the database file path.
func (pdb *PerfumeDB) Path() string {
	return pdb.dbPath
}

// Close closes the database connection.
func (pdb *PerfumeDB) Close() error {
	return pdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (pdb *PerfumeDB) createTables() error {
	schema := `
	-- One row per product, keyed by the identity derived from its URL
	CREATE TABLE IF NOT EXISTS perfumes (
		perfume_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		price_min REAL,
		price_max REAL,
		gender_tags TEXT NOT NULL DEFAULT '[]',
		scent_families TEXT NOT NULL DEFAULT '[]',
		molecule_tags TEXT NOT NULL DEFAULT '[]',
		notes_top TEXT NOT NULL DEFAULT '[]',
		notes_middle TEXT NOT NULL DEFAULT '[]',
		notes_base TEXT NOT NULL DEFAULT '[]',
		notes_all TEXT NOT NULL DEFAULT '[]',
		description TEXT NOT NULL DEFAULT '',
		image_urls TEXT NOT NULL DEFAULT '[]',
		last_scraped_at TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_perfumes_name ON perfumes(name);

	-- Run reports are stored whole as JSON
	CREATE TABLE IF NOT EXISTS harvest_runs (
		run_id TEXT PRIMARY KEY,
		site TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		scraped_count INTEGER NOT NULL DEFAULT 0,
		failed_count INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_site ON harvest_runs(site);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON harvest_runs(started_at);
	`

	_, err := pdb.db.ExecContext(context.Background(), schema)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const upsertPerfumeQuery = `
	INSERT INTO perfumes (
		perfume_id, name, url, price_min, price_max,
		gender_tags, scent_families, molecule_tags,
		notes_top, notes_middle, notes_base, notes_all,
		description, image_urls, last_scraped_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(perfume_id) DO UPDATE SET
		name = excluded.name,
		url = excluded.url,
		price_min = excluded.price_min,
		price_max = excluded.price_max,
		gender_tags = excluded.gender_tags,
		scent_families = excluded.scent_families,
		molecule_tags = excluded.molecule_tags,
		notes_top = excluded.notes_top,
		notes_middle = excluded.notes_middle,
		notes_base = excluded.notes_base,
		notes_all = excluded.notes_all,
		description = excluded.description,
		image_urls = excluded.image_urls,
		last_scraped_at = excluded.last_scraped_at,
		updated_at = CURRENT_TIMESTAMP
	`

// UpsertPerfume inserts p or replaces the stored record with the same ID.
func (pdb *PerfumeDB) UpsertPerfume(ctx context.Context, p *model.Perfume) error {
	return upsertPerfume(ctx, pdb.db, p)
}

// UpsertPerfumes stores all records in one transaction. Either every record
// is stored or none is.
func (pdb *PerfumeDB) UpsertPerfumes(ctx context.Context, perfumes []*model.Perfume) error {
	tx, err := pdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, p := range perfumes {
		if err := upsertPerfume(ctx, tx, p); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit perfumes: %w", err)
	}
	return nil
}

func upsertPerfume(ctx context.Context, db execer, p *model.Perfume) error {
	if p == nil {
		return errors.New("failed to upsert perfume: nil record")
	}

	lists := []any{
		p.GenderTags, p.ScentFamilies, p.MoleculeTags,
		p.NotesTop, p.NotesMiddle, p.NotesBase, p.NotesAll(),
	}
	encoded := make([]any, 0, len(lists))
	for _, list := range lists {
		s, err := encodeJSON(list)
		if err != nil {
			return fmt.Errorf("failed to serialize perfume %s: %w", p.ID, err)
		}
		encoded = append(encoded, s)
	}
	images, err := encodeJSON(p.ImageURLs)
	if err != nil {
		return fmt.Errorf("failed to serialize perfume %s: %w", p.ID, err)
	}

	args := []any{p.ID, p.Name, p.URL, nullFloat(p.PriceMin), nullFloat(p.PriceMax)}
	args = append(args, encoded...)
	args = append(args, p.Description, images, p.LastScrapedAt.UTC().Format(time.RFC3339Nano))

	if _, err := db.ExecContext(ctx, upsertPerfumeQuery, args...); err != nil {
		return fmt.Errorf("failed to upsert perfume %s: %w", p.ID, err)
	}
	return nil
}

const selectPerfumeColumns = `
	SELECT perfume_id, name, url, price_min, price_max,
		gender_tags, scent_families, molecule_tags,
		notes_top, notes_middle, notes_base,
		description, image_urls, last_scraped_at
	FROM perfumes
	`

// GetPerfume retrieves a perfume by ID. It returns nil, nil when no record
// has that ID.
func (pdb *PerfumeDB) GetPerfume(ctx context.Context, id string) (*model.Perfume, error) {
	row := pdb.db.QueryRowContext(ctx, selectPerfumeColumns+" WHERE perfume_id = ?", id)

	p, err := scanPerfume(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get perfume: %w", err)
	}
	return p, nil
}

// ListPerfumes returns stored perfumes ordered by ID. A non-positive limit
// returns every record after offset.
func (pdb *PerfumeDB) ListPerfumes(ctx context.Context, limit, offset int) ([]*model.Perfume, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := pdb.db.QueryContext(ctx,
		selectPerfumeColumns+" ORDER BY perfume_id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list perfumes: %w", err)
	}
	defer rows.Close()

	results := make([]*model.Perfume, 0)
	for rows.Next() {
		p, err := scanPerfume(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan perfume: %w", err)
		}
		results = append(results, p)
	}

	return results, rows.Err()
}

// CountPerfumes returns the number of stored perfumes.
func (pdb *PerfumeDB) CountPerfumes(ctx context.Context) (int, error) {
	var count int
	if err := pdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM perfumes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count perfumes: %w", err)
	}
	return count, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerfume(row rowScanner) (*model.Perfume, error) {
	var (
		p                                model.Perfume
		priceMin, priceMax               sql.NullFloat64
		gender, families, molecules      string
		notesTop, notesMiddle, notesBase string
		images, lastScraped              string
	)

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.URL,
		&priceMin,
		&priceMax,
		&gender,
		&families,
		&molecules,
		&notesTop,
		&notesMiddle,
		&notesBase,
		&p.Description,
		&images,
		&lastScraped,
	)
	if err != nil {
		return nil, err
	}

	if priceMin.Valid {
		p.PriceMin = &priceMin.Float64
	}
	if priceMax.Valid {
		p.PriceMax = &priceMax.Float64
	}

	targets := []struct {
		raw string
		dst *[]string
	}{
		{gender, &p.GenderTags},
		{families, &p.ScentFamilies},
		{molecules, &p.MoleculeTags},
		{notesTop, &p.NotesTop},
		{notesMiddle, &p.NotesMiddle},
		{notesBase, &p.NotesBase},
		{images, &p.ImageURLs},
	}
	for _, t := range targets {
		list, err := decodeList(t.raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse list column of %s: %w", p.ID, err)
		}
		*t.dst = list
	}

	p.LastScrapedAt = parseTimestamp(lastScraped)

	return &p, nil
}

// RunSummary contains summary information about a stored run.
// This is used for listing runs without loading the full report.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Site         string    `json:"site"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	ScrapedCount int       `json:"scraped_count"`
	FailedCount  int       `json:"failed_count"`
}

// SaveRunReport saves a run report as JSON. Saving the same run ID again
// replaces the earlier copy.
func (pdb *PerfumeDB) SaveRunReport(ctx context.Context, report *model.RunReport) error {
	if report == nil {
		return errors.New("failed to save run report: nil report")
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO harvest_runs (run_id, site, started_at, finished_at, scraped_count, failed_count, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id) DO UPDATE SET
		site = excluded.site,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		scraped_count = excluded.scraped_count,
		failed_count = excluded.failed_count,
		report_json = excluded.report_json
	`

	_, err = pdb.db.ExecContext(ctx, query,
		report.RunID,
		report.Site,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
		report.ScrapedCount,
		len(report.FailedProductURLs),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}

	return nil
}

// LatestRunReport retrieves the most recent run report for a site.
// It returns nil, nil when the site has no runs.
func (pdb *PerfumeDB) LatestRunReport(ctx context.Context, site string) (*model.RunReport, error) {
	query := `
	SELECT report_json FROM harvest_runs
	WHERE site = ?
	ORDER BY started_at DESC
	LIMIT 1
	`

	var reportJSON string
	err := pdb.db.QueryRowContext(ctx, query, site).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListRuns returns run summaries, newest first. An empty site lists the
// runs of every site.
func (pdb *PerfumeDB) ListRuns(ctx context.Context, site string) ([]RunSummary, error) {
	query := `
	SELECT run_id, site, started_at, finished_at, scraped_count, failed_count
	FROM harvest_runs
	WHERE 1=1
	`
	args := make([]any, 0)

	if site != "" {
		query += " AND site = ?"
		args = append(args, site)
	}

	query += " ORDER BY started_at DESC"

	rows, err := pdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	results := make([]RunSummary, 0)
	for rows.Next() {
		var (
			summary           RunSummary
			started, finished string
		)
		if err := rows.Scan(
			&summary.RunID,
			&summary.Site,
			&started,
			&finished,
			&summary.ScrapedCount,
			&summary.FailedCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		summary.StartedAt = parseTimestamp(started)
		summary.FinishedAt = parseTimestamp(finished)
		results = append(results, summary)
	}

	return results, rows.Err()
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeList parses a JSON string array. Empty text and JSON null give an
// empty slice.
func decodeList(raw string) ([]string, error) {
	list := []string{}
	if raw == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // written by this package
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
