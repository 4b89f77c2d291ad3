/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps a linear history of reversible document edits.
// One entry corresponds to one completed user gesture; a half-finished drag
// never appears here.
package undo

import (
	"sync"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
)

// Entry is one reversible edit. Apply re-does the edit on the document,
// Revert undoes it. Entries must be self-contained: applying and reverting
// any number of times yields the same document states.
type Entry interface {
	Apply(d *domain.Document) error
	Revert(d *domain.Document) error
	// Name is a short human label for menus and logs, e.g. "move".
	Name() string
}

// Manager is a linear undo history with a cursor. Recording while the cursor
// is in the middle of the history truncates the redo tail. Safe for
// concurrent use.
type Manager struct {
	mu       sync.Mutex
	entries  []Entry
	cursor   int // number of applied entries; entries[cursor:] are redoable
	maxDepth int
}

// NewManager creates a history capped at maxDepth entries. A maxDepth of 0
// leaves the history unbounded for the life of the session.
func NewManager(maxDepth int) *Manager {
	return &Manager{maxDepth: maxDepth}
}

// Record pushes an entry whose effect has already been applied to the
// document. Any redoable tail is discarded.
func (m *Manager) Record(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries[:m.cursor], e)
	m.cursor = len(m.entries)
	if m.maxDepth > 0 && len(m.entries) > m.maxDepth {
		drop := len(m.entries) - m.maxDepth
		m.entries = append([]Entry(nil), m.entries[drop:]...)
		m.cursor -= drop
	}
}

// Undo reverts the most recent applied entry. Returns false at the beginning
// of history; the document is untouched in that case.
func (m *Manager) Undo(d *domain.Document) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor == 0 {
		return false, nil
	}
	if err := m.entries[m.cursor-1].Revert(d); err != nil {
		return false, err
	}
	m.cursor--
	return true, nil
}

// Redo re-applies the next entry. Returns false at the end of history.
func (m *Manager) Redo(d *domain.Document) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor == len(m.entries) {
		return false, nil
	}
	if err := m.entries[m.cursor].Apply(d); err != nil {
		return false, err
	}
	m.cursor++
	return true, nil
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor < len(m.entries)
}

// UndoName returns the label of the entry Undo would revert.
func (m *Manager) UndoName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor == 0 {
		return ""
	}
	return m.entries[m.cursor-1].Name()
}

// Clear drops the whole history, e.g. after loading a new document.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.cursor = 0
}

// Depth returns applied and total entry counts for diagnostics.
func (m *Manager) Depth() (applied, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor, len(m.entries)
}
