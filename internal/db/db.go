// Package db stores finished session reports in sqlite.
package db

import (
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/richa/internal/report"
)

// ErrSessionNotFound is returned when no stored session has the given ID.
var ErrSessionNotFound = errors.New("session not found")

type DB struct {
	*sql.DB
	path string
}

// NewDB opens the database at path and applies any pending migrations.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; sharing one connection also keeps
	// PRAGMA foreign_keys in effect for every statement.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	db := &DB{DB: sqlDB, path: path}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string { return db.path }

// Save stores doc, replacing any earlier save of the same session. label is
// kept alongside the session so operators can tell runs apart.
func (db *DB) Save(ctx context.Context, label string, doc *report.Document) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, doc.SessionID); err != nil {
		return fmt.Errorf("failed to clear session %s: %w", doc.SessionID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, label, selector, started_ms, ended_ms) VALUES (?, ?, ?, ?, ?)`,
		doc.SessionID, label, doc.Selector, doc.StartedAt.UnixMilli(), doc.EndedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	for i, m := range doc.Stages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stage_marks (session_id, seq, label, at_ms) VALUES (?, ?, ?, ?)`,
			doc.SessionID, i, m.Label, m.At.UnixMilli(),
		); err != nil {
			return fmt.Errorf("failed to insert stage mark %q: %w", m.Label, err)
		}
	}

	for _, r := range doc.Rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attention (session_id, stage, focus, zone, total_ms, glances) VALUES (?, ?, ?, ?, ?, ?)`,
			doc.SessionID, r.Stage, r.Focus, r.Zone, r.TotalMs, r.Glances,
		); err != nil {
			return fmt.Errorf("failed to insert attention row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", doc.SessionID, err)
	}
	return nil
}

// SessionInfo is the listing form of a stored session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Selector  string    `json:"selector"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Buckets   int       `json:"buckets"`
}

// Sessions lists stored sessions, most recent first.
func (db *DB) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT s.session_id, s.label, s.selector, s.started_ms, s.ended_ms,
			(SELECT COUNT(*) FROM attention a WHERE a.session_id = s.session_id)
		FROM sessions s
		ORDER BY s.started_ms DESC, s.session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var (
			info             SessionInfo
			startedMs, endMs int64
		)
		if err := rows.Scan(&info.ID, &info.Label, &info.Selector, &startedMs, &endMs, &info.Buckets); err != nil {
			return nil, err
		}
		info.StartedAt = time.UnixMilli(startedMs).UTC()
		info.EndedAt = time.UnixMilli(endMs).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

// SessionReport rebuilds the stored document for id.
func (db *DB) SessionReport(ctx context.Context, id string) (*report.Document, error) {
	var startedMs, endedMs int64
	doc := &report.Document{SessionID: id}
	err := db.QueryRowContext(ctx,
		`SELECT selector, started_ms, ended_ms FROM sessions WHERE session_id = ?`, id,
	).Scan(&doc.Selector, &startedMs, &endedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	doc.StartedAt = time.UnixMilli(startedMs).UTC()
	doc.EndedAt = time.UnixMilli(endedMs).UTC()

	// Each query must finish before the next: the pool holds one connection.
	if doc.Stages, err = db.stageMarks(ctx, id); err != nil {
		return nil, err
	}
	if doc.Rows, err = db.attentionRows(ctx, id); err != nil {
		return nil, err
	}

	doc.Attention = report.LinesFromRows(doc.Rows)
	return doc, nil
}

func (db *DB) stageMarks(ctx context.Context, id string) ([]report.StageMark, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT label, at_ms FROM stage_marks WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var marks []report.StageMark
	for rows.Next() {
		var (
			label string
			atMs  int64
		)
		if err := rows.Scan(&label, &atMs); err != nil {
			return nil, err
		}
		marks = append(marks, report.StageMark{Label: label, At: time.UnixMilli(atMs).UTC()})
	}
	return marks, rows.Err()
}

func (db *DB) attentionRows(ctx context.Context, id string) ([]report.Row, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT stage, focus, zone, total_ms, glances FROM attention WHERE session_id = ? ORDER BY stage, focus, zone`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []report.Row
	for rows.Next() {
		var r report.Row
		if err := rows.Scan(&r.Stage, &r.Focus, &r.Zone, &r.TotalMs, &r.Glances); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteSession removes a stored session and its rows.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Session DB",
	})

	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dir, err := os.MkdirTemp("", "richa-backup-")
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup directory: %v", err), http.StatusInternalServerError)
			return
		}
		defer os.RemoveAll(dir)

		name := fmt.Sprintf("backup-%d.db", time.Now().Unix())
		backupPath := filepath.Join(dir, name)
		if _, err := db.ExecContext(r.Context(), "VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer backupFile.Close()

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
		w.Header().Set("Content-Type", "application/gzip")

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			log.Printf("Failed to write backup file: %v", err)
		}
	}))
}
