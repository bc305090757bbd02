// SPDX-License-Identifier: Apache-2.0

// Package commitstore persists a per-project history of applied data/schema
// changes to a local embedded SQLite database, one file per project under
// the OS application-data directory.
package commitstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tuskerhq/tusker-core/internal/dberr"
)

// Commit is one recorded batch of changes.
type Commit struct {
	ID          string  `json:"id"`
	ParentID    *string `json:"parent_id,omitempty"`
	Message     string  `json:"message"`
	Summary     string  `json:"summary"`
	CreatedAt   string  `json:"created_at"`
	ChangeCount int64   `json:"change_count"`
}

// Change is one row/statement recorded under a Commit.
type Change struct {
	ID           int64   `json:"id"`
	CommitID     string  `json:"commit_id"`
	Type         string  `json:"type"`
	SchemaName   string  `json:"schema_name"`
	TableName    string  `json:"table_name"`
	Data         string  `json:"data"`
	OriginalData *string `json:"original_data,omitempty"`
	SQL          string  `json:"sql"`
	SortOrder    int64   `json:"sort_order"`
}

// Detail bundles a Commit with its ordered Changes.
type Detail struct {
	Commit  Commit   `json:"commit"`
	Changes []Change `json:"changes"`
}

// ChangeInput is one change supplied to SaveCommit, before it is assigned a
// commit id and sort order.
type ChangeInput struct {
	Type         string
	SchemaName   string
	TableName    string
	Data         string
	OriginalData *string
	SQL          string
}

// SaveCommitRequest describes a commit to persist.
type SaveCommitRequest struct {
	ProjectID string
	Message   string
	Summary   string
	Changes   []ChangeInput
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS commits (
	id TEXT PRIMARY KEY,
	parent_id TEXT,
	message TEXT NOT NULL,
	summary TEXT NOT NULL,
	created_at TEXT NOT NULL,
	change_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS commit_changes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	commit_id TEXT NOT NULL REFERENCES commits(id),
	type TEXT NOT NULL,
	schema_name TEXT NOT NULL,
	table_name TEXT NOT NULL,
	data TEXT NOT NULL,
	original_data TEXT,
	sql TEXT NOT NULL,
	sort_order INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_commit_changes_commit_id ON commit_changes(commit_id);
`

// Store opens one SQLite database per project, on demand, under baseDir
// (normally the OS app-data directory's "commits" subfolder).
type Store struct {
	baseDir string
}

// NewStore constructs a Store rooted at baseDir. An empty baseDir resolves
// to os.UserConfigDir()/tusker-core/commits at open time.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) resolveBaseDir() (string, error) {
	if s.baseDir != "" {
		return s.baseDir, nil
	}
	dataDir, err := os.UserConfigDir()
	if err != nil {
		return "", dberr.Configuration("could not determine app data directory: %s", err)
	}
	return filepath.Join(dataDir, "tusker-core", "commits"), nil
}

func (s *Store) open(projectID string) (*sql.DB, error) {
	dir, err := s.resolveBaseDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, dberr.Configuration("failed to create commits directory: %s", err)
	}

	path := filepath.Join(dir, projectID+".db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, dberr.Database(err, "failed to open commit database for project %s", projectID)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, dberr.Database(err, "failed to configure commit database for project %s", projectID)
		}
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, dberr.Database(err, "failed to initialize commit tables for project %s", projectID)
	}

	return db, nil
}

// generateHash hashes parentID (or "root"), the commit timestamp, and every
// statement's SQL text, in that order, producing a deterministic commit id.
func generateHash(parentID *string, timestamp string, statements []string) string {
	h := sha256.New()
	if parentID != nil {
		h.Write([]byte(*parentID))
	} else {
		h.Write([]byte("root"))
	}
	h.Write([]byte(timestamp))
	for _, stmt := range statements {
		h.Write([]byte(stmt))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func latestCommitID(ctx context.Context, db *sql.DB) (*string, error) {
	var id string
	err := db.QueryRowContext(ctx, "SELECT id FROM commits ORDER BY created_at DESC LIMIT 1").Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// SaveCommit records req as a new commit chained onto the project's latest
// commit, if any.
func (s *Store) SaveCommit(ctx context.Context, req SaveCommitRequest) (*Commit, error) {
	db, err := s.open(req.ProjectID)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	parentID, err := latestCommitID(ctx, db)
	if err != nil {
		return nil, dberr.Database(err, "failed to read latest commit for project %s", req.ProjectID)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	statements := make([]string, len(req.Changes))
	for i, c := range req.Changes {
		statements[i] = c.SQL
	}
	hash := generateHash(parentID, now, statements)

	commit := Commit{
		ID:          hash,
		ParentID:    parentID,
		Message:     req.Message,
		Summary:     req.Summary,
		CreatedAt:   now,
		ChangeCount: int64(len(req.Changes)),
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dberr.Database(err, "failed to begin commit transaction")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO commits (id, parent_id, message, summary, created_at, change_count) VALUES (?, ?, ?, ?, ?, ?)`,
		commit.ID, commit.ParentID, commit.Message, commit.Summary, commit.CreatedAt, commit.ChangeCount)
	if err != nil {
		tx.Rollback()
		return nil, dberr.Database(err, "failed to insert commit")
	}

	for i, change := range req.Changes {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO commit_changes (commit_id, type, schema_name, table_name, data, original_data, sql, sort_order)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			hash, change.Type, change.SchemaName, change.TableName, change.Data, change.OriginalData, change.SQL, i)
		if err != nil {
			tx.Rollback()
			return nil, dberr.Database(err, "failed to insert commit change %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, dberr.Database(err, "failed to commit commit transaction")
	}

	return &commit, nil
}

// GetCommits lists every commit for a project, newest first.
func (s *Store) GetCommits(ctx context.Context, projectID string) ([]Commit, error) {
	db, err := s.open(projectID)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT id, parent_id, message, summary, created_at, change_count FROM commits ORDER BY created_at DESC`)
	if err != nil {
		return nil, dberr.Database(err, "failed to query commits for project %s", projectID)
	}
	defer rows.Close()

	var commits []Commit
	for rows.Next() {
		var c Commit
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Message, &c.Summary, &c.CreatedAt, &c.ChangeCount); err != nil {
			return nil, dberr.Database(err, "failed to read commit row")
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Database(err, "failed to read commits for project %s", projectID)
	}
	return commits, nil
}

// GetCommitDetail returns commitID's metadata together with its ordered
// changes.
func (s *Store) GetCommitDetail(ctx context.Context, projectID, commitID string) (*Detail, error) {
	db, err := s.open(projectID)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var c Commit
	err = db.QueryRowContext(ctx,
		`SELECT id, parent_id, message, summary, created_at, change_count FROM commits WHERE id = ?`, commitID).
		Scan(&c.ID, &c.ParentID, &c.Message, &c.Summary, &c.CreatedAt, &c.ChangeCount)
	if err == sql.ErrNoRows {
		return nil, dberr.Database(nil, "commit not found: %s", commitID)
	}
	if err != nil {
		return nil, dberr.Database(err, "failed to read commit %s", commitID)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, commit_id, type, schema_name, table_name, data, original_data, sql, sort_order
		 FROM commit_changes WHERE commit_id = ? ORDER BY sort_order`, commitID)
	if err != nil {
		return nil, dberr.Database(err, "failed to query changes for commit %s", commitID)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var ch Change
		if err := rows.Scan(&ch.ID, &ch.CommitID, &ch.Type, &ch.SchemaName, &ch.TableName, &ch.Data, &ch.OriginalData, &ch.SQL, &ch.SortOrder); err != nil {
			return nil, dberr.Database(err, "failed to read change row")
		}
		changes = append(changes, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Database(err, "failed to read changes for commit %s", commitID)
	}

	return &Detail{Commit: c, Changes: changes}, nil
}
