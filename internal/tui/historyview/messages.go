// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     historyview
// Description: Message types for async operations in the history viewer
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package historyview

import (
	"time"

	"github.com/msto63/callexpr/internal/store"
)

// entriesLoadedMsg is sent when entries are loaded from the store
type entriesLoadedMsg struct {
	entries []*store.Entry // oldest first
	err     error
}

// statsLoadedMsg is sent when history stats are loaded
type statsLoadedMsg struct {
	stats *store.Stats
	err   error
}

// tickMsg is used for periodic updates
type tickMsg time.Time
