// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     store
// Description: Tests for the SQLite history store
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	mdwerror "github.com/msto63/callexpr/foundation/core/error"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "nested", "history.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestNewSQLiteStore_EmptyPath tests that an empty path is rejected
func TestNewSQLiteStore_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStore(SQLiteConfig{Path: "  "})
	if !mdwerror.HasCode(err, mdwerror.CodeConfigError) {
		t.Errorf("Expected CONFIG_ERROR, got %v", err)
	}
}

// TestRecordAndGet tests a round trip through the database
func TestRecordAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := &Entry{
		Source:     SourceCLI,
		RequestID:  "req-1",
		Expression: `Foo(1, "a,b")`,
		OK:         true,
		Canonical:  `Foo(1, "a,b")`,
		TreeJSON:   `{"name":"Foo"}`,
		Depth:      1,
		Commands:   1,
		Duration:   1500 * time.Microsecond,
	}
	if err := s.Record(ctx, entry); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.ID == "" {
		t.Fatal("Expected Record to assign an ID")
	}
	if entry.Timestamp.IsZero() {
		t.Fatal("Expected Record to assign a timestamp")
	}

	got, err := s.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Expression != entry.Expression || got.Canonical != entry.Canonical {
		t.Errorf("Get() = %+v", got)
	}
	if !got.OK || got.Source != SourceCLI || got.RequestID != "req-1" {
		t.Errorf("Get() flags = ok:%v source:%s request:%s", got.OK, got.Source, got.RequestID)
	}
	if got.Duration != 1500*time.Microsecond {
		t.Errorf("Expected duration 1.5ms, got %v", got.Duration)
	}
	if !got.Timestamp.Equal(entry.Timestamp) {
		t.Errorf("Expected timestamp %v, got %v", entry.Timestamp, got.Timestamp)
	}

	byPrefix, err := s.Get(ctx, entry.ID[:8])
	if err != nil {
		t.Fatalf("Get(prefix) error = %v", err)
	}
	if byPrefix.ID != entry.ID {
		t.Errorf("Get(prefix) returned %s, want %s", byPrefix.ID, entry.ID)
	}
}

// TestGet_NotFound tests the not found error
func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !mdwerror.HasCode(err, mdwerror.CodeNotFound) {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
}

func seed(t *testing.T, s *SQLiteStore) {
	t.Helper()
	now := time.Now()
	entries := []*Entry{
		{Timestamp: now.Add(-3 * time.Hour), Source: SourceCLI, Expression: "Foo()", OK: true, Depth: 1, Commands: 1},
		{Timestamp: now.Add(-2 * time.Hour), Source: SourceGRPC, Expression: "Foo(", ErrorCode: "MALFORMED_EXPRESSION"},
		{Timestamp: now.Add(-1 * time.Hour), Source: SourceHTTP, Expression: `Foo("x`, ErrorCode: "UNTERMINATED_QUOTE"},
		{Timestamp: now, Source: SourceCLI, Expression: "Bar(Baz(100%))", OK: true, Depth: 2, Commands: 2},
	}
	n, err := s.RecordBatch(context.Background(), entries)
	if err != nil {
		t.Fatalf("RecordBatch() error = %v", err)
	}
	if n != len(entries) {
		t.Fatalf("RecordBatch() wrote %d, want %d", n, len(entries))
	}
}

// TestList tests filtering and ordering
func TestList(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "all newest first", filter: Filter{}, want: []string{"Bar(Baz(100%))", `Foo("x`, "Foo(", "Foo()"}},
		{name: "ok only", filter: Filter{Status: "ok"}, want: []string{"Bar(Baz(100%))", "Foo()"}},
		{name: "failed only", filter: Filter{Status: "failed"}, want: []string{`Foo("x`, "Foo("}},
		{name: "error code", filter: Filter{ErrorCode: "UNTERMINATED_QUOTE"}, want: []string{`Foo("x`}},
		{name: "source", filter: Filter{Source: SourceCLI}, want: []string{"Bar(Baz(100%))", "Foo()"}},
		{name: "contains escapes wildcards", filter: Filter{Contains: "100%"}, want: []string{"Bar(Baz(100%))"}},
		{name: "since", filter: Filter{Since: time.Now().Add(-90 * time.Minute)}, want: []string{"Bar(Baz(100%))", `Foo("x`}},
		{name: "limit and offset", filter: Filter{Limit: 2, Offset: 1}, want: []string{`Foo("x`, "Foo("}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := s.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			var got []string
			for _, e := range entries {
				got = append(got, e.Expression)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("List()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}

	if _, err := s.List(ctx, Filter{Status: "maybe"}); !mdwerror.HasCode(err, mdwerror.CodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT for unknown status, got %v", err)
	}
}

// TestStats tests aggregate statistics
func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() on empty store error = %v", err)
	}
	if empty.Total != 0 || !empty.First.IsZero() {
		t.Errorf("Expected empty stats, got %+v", empty)
	}

	seed(t, s)
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Total != 4 || stats.Succeeded != 2 || stats.Failed != 2 {
		t.Errorf("Expected 4/2/2, got %d/%d/%d", stats.Total, stats.Succeeded, stats.Failed)
	}
	if stats.MaxDepth != 2 {
		t.Errorf("Expected MaxDepth=2, got %d", stats.MaxDepth)
	}
	if stats.ByErrorCode["MALFORMED_EXPRESSION"] != 1 || stats.ByErrorCode["UNTERMINATED_QUOTE"] != 1 {
		t.Errorf("Unexpected ByErrorCode: %v", stats.ByErrorCode)
	}
	if stats.BySource["cli"] != 2 {
		t.Errorf("Expected 2 cli entries, got %v", stats.BySource)
	}
	if stats.First.IsZero() || stats.Last.Before(stats.First) {
		t.Errorf("Unexpected time range %v .. %v", stats.First, stats.Last)
	}
}

// TestPrune tests removal of old entries
func TestPrune(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	deleted, err := s.Prune(ctx, 90*time.Minute)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted, got %d", deleted)
	}

	entries, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 remaining, got %d", len(entries))
	}
}

// TestPingAndCanceledContext tests connectivity checks
func TestPingAndCanceledContext(t *testing.T) {
	s := newTestStore(t)

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Record(ctx, &Entry{Expression: "Foo()"})
	if err == nil {
		t.Fatal("Expected error for canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
}
