// Package history records automation runs in a local SQLite database.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("history: run not found")

// Run is one recorded automation run. EndTime is zero while the run is
// still in progress.
type Run struct {
	ID             string    `json:"id"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime,omitempty"`
	Script         string    `json:"script"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
	LogFile        string    `json:"logFile,omitempty"`
	ScreenshotPath string    `json:"screenshotPath,omitempty"`
}

// Store persists runs.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(`
        PRAGMA foreign_keys = ON;
        PRAGMA journal_mode = WAL;
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// StartRun records the start of a run and returns its ID.
func (s *Store) StartRun(script string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`
        INSERT INTO runs (id, start_time, script, status)
        VALUES (?, ?, ?, ?)
    `, id, time.Now().Format(time.RFC3339Nano), script, "running")
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// FinishRun records the outcome of a run started with StartRun.
func (s *Store) FinishRun(id, status, errorMessage, logFile, screenshotPath string) error {
	result, err := s.db.Exec(`
        UPDATE runs
        SET end_time = ?, status = ?, error_message = ?, log_file = ?, screenshot_path = ?
        WHERE id = ?
    `, time.Now().Format(time.RFC3339Nano), status, errorMessage, logFile, screenshotPath, id)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Run returns a single run by ID.
func (s *Store) Run(id string) (*Run, error) {
	row := s.db.QueryRow(`
        SELECT id, start_time, end_time, script, status, error_message, log_file, screenshot_path
        FROM runs
        WHERE id = ?
    `, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// Runs returns the most recent runs, newest first. A limit of zero or less
// returns everything.
func (s *Store) Runs(limit int) ([]Run, error) {
	query := `
        SELECT id, start_time, end_time, script, status, error_message, log_file, screenshot_path
        FROM runs
        ORDER BY start_time DESC, id
    `
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Clear deletes every recorded run.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM runs"); err != nil {
		return fmt.Errorf("failed to clear runs: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var (
		run        Run
		start, end string
	)
	if err := row.Scan(&run.ID, &start, &end, &run.Script, &run.Status,
		&run.ErrorMessage, &run.LogFile, &run.ScreenshotPath); err != nil {
		return nil, err
	}
	run.StartTime = parseTime(start)
	run.EndTime = parseTime(end)
	return &run, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
