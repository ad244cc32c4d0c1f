package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hotdelta/internal/capability"
	"hotdelta/internal/decl"
	"hotdelta/internal/errors"
)

// Session is an edit session: a baseline of documents that later edits are
// analyzed against.
type Session struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Root         string         `json:"root"`
	Profile      string         `json:"profile"`
	Capabilities capability.Set `json:"-"`
	Documents    int            `json:"documents"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Run is one recorded analysis of a session.
type Run struct {
	ID         string `json:"id"`
	SessionID  string `json:"sessionId"`
	Edits      int    `json:"edits"`
	Rude       int    `json:"rude"`
	Operations int    `json:"operations"`
	// Applied is set when the analysis advanced the session baseline.
	Applied   bool      `json:"applied"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionStore reads and writes sessions.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a session store backed by db.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create stores a new session with docs as its baseline. An empty ID is
// assigned a fresh one.
func (s *SessionStore) Create(ctx context.Context, sess *Session, docs []*decl.Document) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	blob, err := EncodeSnapshot(docs)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	sess.CreatedAt, sess.UpdatedAt = now, now
	sess.Documents = len(docs)

	_, err = s.db.conn.ExecContext(ctx, `
		INSERT INTO sessions (id, name, root, profile, capabilities, documents, baseline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.Name, sess.Root, sess.Profile, sess.Capabilities.String(), sess.Documents, blob,
		formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	s.db.logger.Debug("Session created", "session", sess.ID, "documents", sess.Documents)
	return nil
}

// Get returns the session with the given id or unique id prefix.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, name, root, profile, capabilities, documents, created_at, updated_at
		FROM sessions WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2
	`, id, id+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	defer rows.Close()

	var found []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		if sess.ID == id {
			return sess, nil
		}
		found = append(found, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, errors.Newf(errors.SessionNotFound, "session %q not found", id)
	case 1:
		return found[0], nil
	}
	return nil, errors.Newf(errors.InvalidInput, "session prefix %q is ambiguous", id)
}

// Baseline returns the decoded baseline documents of a session.
func (s *SessionStore) Baseline(ctx context.Context, id string) ([]*decl.Document, error) {
	var blob []byte
	err := s.db.conn.QueryRowContext(ctx, `SELECT baseline FROM sessions WHERE id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.SessionNotFound, "session %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}
	docs, err := DecodeSnapshot(blob)
	if err != nil {
		return nil, errors.New(errors.InternalError, "corrupt baseline for session "+id, err)
	}
	return docs, nil
}

// SetBaseline replaces the baseline of a session.
func (s *SessionStore) SetBaseline(ctx context.Context, id string, docs []*decl.Document) error {
	blob, err := EncodeSnapshot(docs)
	if err != nil {
		return err
	}
	res, err := s.db.conn.ExecContext(ctx, `
		UPDATE sessions SET baseline = ?, documents = ?, updated_at = ? WHERE id = ?
	`, blob, len(docs), formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("failed to update baseline: %w", err)
	}
	return requireRow(res, id)
}

// List returns all sessions, most recently updated first.
func (s *SessionStore) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, name, root, profile, capabilities, documents, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Delete removes a session and its runs.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return requireRow(res, id)
}

// RecordRun appends a run to the session history. When the run is applied,
// docs become the new baseline in the same transaction.
func (s *SessionStore) RecordRun(ctx context.Context, run *Run, docs []*decl.Document) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	var blob []byte
	if run.Applied {
		var err error
		if blob, err = EncodeSnapshot(docs); err != nil {
			return err
		}
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, run.SessionID).Scan(&exists)
		if err == sql.ErrNoRows {
			return errors.Newf(errors.SessionNotFound, "session %q not found", run.SessionID)
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO runs (id, session_id, edits, rude, operations, applied, summary, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, run.SessionID, run.Edits, run.Rude, run.Operations, run.Applied, run.Summary, formatTime(run.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}

		if run.Applied {
			_, err = tx.ExecContext(ctx, `
				UPDATE sessions SET baseline = ?, documents = ?, updated_at = ? WHERE id = ?
			`, blob, len(docs), formatTime(run.CreatedAt), run.SessionID)
			if err != nil {
				return fmt.Errorf("failed to advance baseline: %w", err)
			}
		}
		return nil
	})
}

// Runs returns the most recent runs of a session, newest first. A limit of
// zero returns all of them.
func (s *SessionStore) Runs(ctx context.Context, sessionID string, limit int) ([]*Run, error) {
	query := `
		SELECT id, session_id, edits, rude, operations, applied, summary, created_at
		FROM runs WHERE session_id = ? ORDER BY created_at DESC, id`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Edits, &r.Rude, &r.Operations, &r.Applied, &r.Summary, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(created)
		out = append(out, &r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*Session, error) {
	var sess Session
	var caps, created, updated string
	if err := row.Scan(&sess.ID, &sess.Name, &sess.Root, &sess.Profile, &caps, &sess.Documents, &created, &updated); err != nil {
		return nil, err
	}
	sess.Capabilities = capability.Parse(caps)
	sess.CreatedAt = parseTime(created)
	sess.UpdatedAt = parseTime(updated)
	return &sess, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Newf(errors.SessionNotFound, "session %q not found", id)
	}
	return nil
}

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
