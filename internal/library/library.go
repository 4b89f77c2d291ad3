/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package library tracks recently opened media in a small per-user SQLite
// database. The database is a disposable cache: it is derived from what the
// user opened and can be deleted at any time.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	applog "github.com/longweekendlabs/speech-bubble-editor/internal/log"
	"github.com/longweekendlabs/speech-bubble-editor/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// DBFileName is the library database file under the user config dir.
	DBFileName = "library.sqlite"

	// schemaVersion tracks the local SQLite schema. Bump on breaking
	// changes and add a migration step.
	schemaVersion = 1
)

// Entry is one recently opened media file.
type Entry struct {
	Path        string
	Kind        domain.MediaKind
	Width       int
	Height      int
	FPS         float64
	FrameCount  int
	ProjectRoot string
	LastOpened  time.Time
}

// Library is a handle to the recent-media database.
type Library struct {
	db *sql.DB
}

// Open opens (creating if needed) the library database at path, enables WAL
// mode and ensures the schema exists.
func Open(path string) (*Library, error) {
	l := applog.WithOperation(applog.WithComponent("library"), "open").With(
		slog.String("path", path),
	)
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("library path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create library dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create library dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("library ready")
	return &Library{db: db}, nil
}

// DefaultPath returns the library location under the user config dir.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "BubbleEdit", DBFileName), nil
}

func (l *Library) Close() error { return l.db.Close() }

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id         INTEGER PRIMARY KEY CHECK(id=1),
			schema     INTEGER NOT NULL,
			app        TEXT,
			created_at TEXT,
			updated_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS recent_media (
			path         TEXT PRIMARY KEY,
			kind         TEXT NOT NULL,
			width        INTEGER NOT NULL,
			height       INTEGER NOT NULL,
			fps          REAL NOT NULL DEFAULT 0,
			frame_count  INTEGER NOT NULL DEFAULT 0,
			project_root TEXT NOT NULL DEFAULT '',
			last_opened  TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_recent_media_last_opened ON recent_media(last_opened DESC);`,
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id = 1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx,
			`INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`,
			schemaVersion, version.Version, now, now); err != nil {
			return fmt.Errorf("insert version row: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case cur > schemaVersion:
		return fmt.Errorf("library schema %d is newer than supported %d", cur, schemaVersion)
	}
	return nil
}

// Touch records that the media was opened now, inserting or refreshing its
// recent entry.
func (l *Library) Touch(ctx context.Context, ref domain.MediaRef, projectRoot string) error {
	if ref.Path == "" {
		return errors.New("media path is required")
	}
	_, err := l.db.ExecContext(ctx, `INSERT INTO recent_media
		(path, kind, width, height, fps, frame_count, project_root, last_opened)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind = excluded.kind,
			width = excluded.width,
			height = excluded.height,
			fps = excluded.fps,
			frame_count = excluded.frame_count,
			project_root = excluded.project_root,
			last_opened = excluded.last_opened`,
		ref.Path, string(ref.Kind), ref.Width, ref.Height, ref.FPS, ref.FrameCount,
		projectRoot, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("touch recent media: %w", err)
	}
	return nil
}

// Recent lists the most recently opened media, newest first.
func (l *Library) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `SELECT path, kind, width, height, fps, frame_count, project_root, last_opened
		FROM recent_media ORDER BY last_opened DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent media: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var kind, opened string
		if err := rows.Scan(&e.Path, &kind, &e.Width, &e.Height, &e.FPS, &e.FrameCount, &e.ProjectRoot, &opened); err != nil {
			return nil, fmt.Errorf("scan recent media: %w", err)
		}
		e.Kind = domain.MediaKind(kind)
		if ts, perr := time.Parse(time.RFC3339Nano, opened); perr == nil {
			e.LastOpened = ts
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Remove drops one entry, e.g. when the file no longer exists.
func (l *Library) Remove(ctx context.Context, path string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM recent_media WHERE path = ?`, path)
	return err
}

// Prune keeps only the newest keep entries.
func (l *Library) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		keep = 50
	}
	_, err := l.db.ExecContext(ctx, `DELETE FROM recent_media WHERE path NOT IN (
		SELECT path FROM recent_media ORDER BY last_opened DESC LIMIT ?
	)`, keep)
	return err
}
