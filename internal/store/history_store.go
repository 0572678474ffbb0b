// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     store
// Description: SQLite-backed history of parsed expressions
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	mdwerror "github.com/msto63/callexpr/foundation/core/error"
)

// Source names the surface an expression arrived through
type Source string

const (
	SourceCLI     Source = "cli"
	SourceGRPC    Source = "grpc"
	SourceHTTP    Source = "http"
	SourceWS      Source = "websocket"
	SourceREPL    Source = "repl"
	SourceUnknown Source = "unknown"
)

// Entry is one recorded parse attempt
type Entry struct {
	ID           string        `json:"id" yaml:"id"`
	Timestamp    time.Time     `json:"timestamp" yaml:"timestamp"`
	RequestID    string        `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Source       Source        `json:"source" yaml:"source"`
	Expression   string        `json:"expression" yaml:"expression"`
	OK           bool          `json:"ok" yaml:"ok"`
	ErrorCode    string        `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Canonical    string        `json:"canonical,omitempty" yaml:"canonical,omitempty"`
	TreeJSON     string        `json:"tree_json,omitempty" yaml:"tree_json,omitempty"`
	Depth        int           `json:"depth" yaml:"depth"`
	Commands     int           `json:"commands" yaml:"commands"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
}

// Filter defines criteria for listing entries
type Filter struct {
	Status    string // "", "ok" or "failed"
	ErrorCode string
	Source    Source
	Contains  string // substring of the expression
	Since     time.Time
	Limit     int
	Offset    int
}

// Stats summarises the history
type Stats struct {
	Total       int64            `json:"total" yaml:"total"`
	Succeeded   int64            `json:"succeeded" yaml:"succeeded"`
	Failed      int64            `json:"failed" yaml:"failed"`
	ByErrorCode map[string]int64 `json:"by_error_code" yaml:"by_error_code"`
	BySource    map[string]int64 `json:"by_source" yaml:"by_source"`
	AvgDuration time.Duration    `json:"avg_duration" yaml:"avg_duration"`
	MaxDepth    int              `json:"max_depth" yaml:"max_depth"`
	First       time.Time        `json:"first,omitempty" yaml:"first,omitempty"`
	Last        time.Time        `json:"last,omitempty" yaml:"last,omitempty"`
}

// Store defines the interface for history persistence
type Store interface {
	Record(ctx context.Context, entry *Entry) error
	RecordBatch(ctx context.Context, entries []*Entry) (int, error)
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, filter Filter) ([]*Entry, error)
	Stats(ctx context.Context) (*Stats, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// SQLiteConfig holds configuration for the SQLite store
type SQLiteConfig struct {
	Path string
}

// DefaultConfig returns default configuration
func DefaultConfig() SQLiteConfig {
	return SQLiteConfig{
		Path: "./data/callexpr.db",
	}
}

// NewSQLiteStore opens or creates the history database
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, mdwerror.New("store path cannot be empty").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("store.NewSQLiteStore")
	}

	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, dbError(err, "failed to create directory", "store.NewSQLiteStore")
	}

	// Open database with WAL mode
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, dbError(err, "failed to open database", "store.NewSQLiteStore")
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, dbError(err, "failed to initialize schema", "store.NewSQLiteStore")
	}

	return store, nil
}

// initSchema creates the necessary tables
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS parses (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		request_id TEXT,
		source TEXT NOT NULL,
		expression TEXT NOT NULL,
		ok INTEGER NOT NULL,
		error_code TEXT,
		error_message TEXT,
		canonical TEXT,
		tree_json TEXT,
		depth INTEGER NOT NULL DEFAULT 0,
		commands INTEGER NOT NULL DEFAULT 0,
		duration_us INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_parses_timestamp ON parses(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_parses_ok ON parses(ok);
	CREATE INDEX IF NOT EXISTS idx_parses_error_code ON parses(error_code);
	`

	_, err := s.db.Exec(schema)
	return err
}

const insertSQL = `
	INSERT INTO parses (id, timestamp, request_id, source, expression, ok, error_code,
		error_message, canonical, tree_json, depth, commands, duration_us)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// prepare fills in defaults before an insert
func prepare(entry *Entry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC()
	if entry.Source == "" {
		entry.Source = SourceUnknown
	}
}

func insertArgs(e *Entry) []interface{} {
	return []interface{}{
		e.ID, e.Timestamp, e.RequestID, string(e.Source), e.Expression, e.OK,
		e.ErrorCode, e.ErrorMessage, e.Canonical, e.TreeJSON,
		e.Depth, e.Commands, e.Duration.Microseconds(),
	}
}

// Record stores a single entry
func (s *SQLiteStore) Record(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(entry)
	if _, err := s.db.ExecContext(ctx, insertSQL, insertArgs(entry)...); err != nil {
		return dbError(err, "failed to insert history entry", "store.Record")
	}
	return nil
}

// RecordBatch stores entries in one transaction and returns how many were
// written
func (s *SQLiteStore) RecordBatch(ctx context.Context, entries []*Entry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, dbError(err, "failed to begin transaction", "store.RecordBatch")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, dbError(err, "failed to prepare statement", "store.RecordBatch")
	}
	defer stmt.Close()

	for _, entry := range entries {
		prepare(entry)
		if _, err := stmt.ExecContext(ctx, insertArgs(entry)...); err != nil {
			return 0, dbError(err, "failed to insert history entry", "store.RecordBatch")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, dbError(err, "failed to commit transaction", "store.RecordBatch")
	}
	return len(entries), nil
}

const selectSQL = `SELECT id, timestamp, request_id, source, expression, ok, error_code,
	error_message, canonical, tree_json, depth, commands, duration_us FROM parses`

// Get returns the entry with the given ID, or an error with CodeNotFound.
// A unique ID prefix of at least 8 characters is accepted as well.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectSQL + ` WHERE id = ?`
	args := []interface{}{id}
	if len(id) >= 8 && len(id) < 36 {
		query = selectSQL + ` WHERE id LIKE ? ESCAPE '\' LIMIT 2`
		args = []interface{}{escapeLike(id) + "%"}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err, "failed to query history", "store.Get")
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	switch len(entries) {
	case 0:
		return nil, mdwerror.Newf("history entry %q not found", id).
			WithCode(mdwerror.CodeNotFound).
			WithOperation("store.Get")
	case 1:
		return entries[0], nil
	default:
		return nil, mdwerror.Newf("history entry prefix %q is ambiguous", id).
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("store.Get")
	}
}

// List returns entries matching filter, newest first
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectSQL + ` WHERE 1=1`
	var args []interface{}

	switch filter.Status {
	case "":
	case "ok":
		query += " AND ok = 1"
	case "failed":
		query += " AND ok = 0"
	default:
		return nil, mdwerror.Newf("unknown status filter %q", filter.Status).
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("store.List")
	}
	if filter.ErrorCode != "" {
		query += " AND error_code = ?"
		args = append(args, filter.ErrorCode)
	}
	if filter.Source != "" {
		query += " AND source = ?"
		args = append(args, string(filter.Source))
	}
	if filter.Contains != "" {
		query += ` AND expression LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(filter.Contains)+"%")
	}
	if !filter.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.Since.UTC())
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err, "failed to query history", "store.List")
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var (
			entry                                           Entry
			requestID, errorCode, errorMsg, canonical, tree sql.NullString
			source                                          string
			durationUS                                      int64
		)
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &requestID, &source, &entry.Expression,
			&entry.OK, &errorCode, &errorMsg, &canonical, &tree,
			&entry.Depth, &entry.Commands, &durationUS); err != nil {
			return nil, dbError(err, "failed to scan history entry", "store.scan")
		}
		entry.RequestID = requestID.String
		entry.Source = Source(source)
		entry.ErrorCode = errorCode.String
		entry.ErrorMessage = errorMsg.String
		entry.Canonical = canonical.String
		entry.TreeJSON = tree.String
		entry.Duration = time.Duration(durationUS) * time.Microsecond
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to read history", "store.scan")
	}
	return entries, nil
}

// Stats returns history statistics
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		ByErrorCode: make(map[string]int64),
		BySource:    make(map[string]int64),
	}

	var (
		succeeded, avgUS sql.NullFloat64
		maxDepth         sql.NullInt64
		first, last      sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(ok), AVG(duration_us), MAX(depth), MIN(timestamp), MAX(timestamp)
		FROM parses
	`).Scan(&stats.Total, &succeeded, &avgUS, &maxDepth, &first, &last)
	if err != nil {
		return nil, dbError(err, "failed to read statistics", "store.Stats")
	}
	stats.Succeeded = int64(succeeded.Float64)
	stats.Failed = stats.Total - stats.Succeeded
	stats.AvgDuration = time.Duration(avgUS.Float64) * time.Microsecond
	stats.MaxDepth = int(maxDepth.Int64)
	stats.First = parseTime(first.String)
	stats.Last = parseTime(last.String)

	groups := []struct {
		query string
		into  map[string]int64
	}{
		{`SELECT error_code, COUNT(*) FROM parses WHERE ok = 0 GROUP BY error_code`, stats.ByErrorCode},
		{`SELECT source, COUNT(*) FROM parses GROUP BY source`, stats.BySource},
	}
	for _, g := range groups {
		rows, err := s.db.QueryContext(ctx, g.query)
		if err != nil {
			return nil, dbError(err, "failed to read statistics", "store.Stats")
		}
		for rows.Next() {
			var key sql.NullString
			var count int64
			if err := rows.Scan(&key, &count); err != nil {
				rows.Close()
				return nil, dbError(err, "failed to read statistics", "store.Stats")
			}
			g.into[key.String] = count
		}
		rows.Close()
	}

	return stats, nil
}

// timeLayouts are the formats go-sqlite3 writes for time.Time values
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
}

// parseTime parses aggregate timestamps, which the driver returns as text
func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Prune removes entries older than the specified duration
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan).UTC()
	result, err := s.db.ExecContext(ctx, `DELETE FROM parses WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, dbError(err, "failed to prune history", "store.Prune")
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// Ping checks that the database is reachable
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return dbError(err, "database unreachable", "store.Ping")
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func dbError(err error, message, operation string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return mdwerror.Wrap(err, message).WithCode(mdwerror.CodeTimeout).WithOperation(operation)
	}
	return mdwerror.Wrap(err, message).WithCode(mdwerror.CodeDatabaseError).WithOperation(operation)
}
