// Package journal keeps a local SQLite ledger of install attempts. The
// journal is an audit trail only: a launch never fails because the journal is
// unavailable.
package journal

import (
	"database/sql"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/validation-tool/launcher/pkg/errors"
)

// Schema defines the install journal tables.
const Schema = `
CREATE TABLE IF NOT EXISTS installs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    artifact TEXT NOT NULL,
    version TEXT,
    sha256 TEXT,
    source_url TEXT,
    status TEXT NOT NULL CHECK(status IN ('installed', 'skipped', 'failed')),
    error_message TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_installs_artifact ON installs(artifact);
CREATE INDEX IF NOT EXISTS idx_installs_created_at ON installs(created_at);
`

// Entry is one recorded install attempt.
type Entry struct {
	ID           int64
	Artifact     string
	Version      string
	SHA256       string
	SourceURL    string
	Status       string
	ErrorMessage string
	CreatedAt    string
}

// Journal provides access to the install ledger.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if necessary) the journal database at dbPath.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open journal database")
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create journal schema")
	}
	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends one install attempt. Errors are logged and swallowed; the
// ledger is best-effort by design of the caller, not of this method.
func (j *Journal) Record(artifact, version, sha256, sourceURL, status, errMsg string) {
	query := `
		INSERT INTO installs (artifact, version, sha256, source_url, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := j.db.Exec(query, artifact, version, sha256, sourceURL, status, errMsg); err != nil {
		slog.Warn("journal_record_failed", "artifact", artifact, "status", status, "error", err)
	}
}

// List returns the most recent entries, newest first.
func (j *Journal) List(limit int) ([]*Entry, error) {
	query := `
		SELECT id, artifact, version, sha256, source_url, status, error_message, created_at
		FROM installs ORDER BY id DESC LIMIT ?
	`
	rows, err := j.db.Query(query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list journal entries")
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var version, sha, src, errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.Artifact, &version, &sha, &src, &e.Status, &errMsg, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan journal row")
		}
		e.Version = version.String
		e.SHA256 = sha.String
		e.SourceURL = src.String
		e.ErrorMessage = errMsg.String
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "journal rows error")
	}
	return entries, nil
}
