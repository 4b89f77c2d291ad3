/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session drives interactive editing of one document: selection,
// pointer gestures and text editing. Gestures mutate the document live;
// exactly one undo entry is recorded when a gesture completes with an actual
// change.
package session

import (
	"math"
	"strings"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	applog "github.com/longweekendlabs/speech-bubble-editor/internal/log"
	"github.com/longweekendlabs/speech-bubble-editor/internal/textlayout"
	"github.com/longweekendlabs/speech-bubble-editor/internal/undo"
	"github.com/longweekendlabs/speech-bubble-editor/internal/vector"
)

type mode int

const (
	modeIdle mode = iota
	modeDragBody
	modeDragHandle
	modeDragTail
	modeEditText
)

// Session holds the live editing state around a document.
type Session struct {
	doc     *domain.Document
	history *undo.Manager
	measure textlayout.Measurer

	selected   string
	mode       mode
	aspectLock bool

	// gesture bookkeeping
	downPt     vector.Pt
	startBody  vector.Rect
	startTail  *vector.Pt
	dragAnchor vector.Anchor
	editBefore *domain.Annotation
}

// New creates a session for doc. The measurer must match the renderer's so
// text fitting during editing agrees with the composed output.
func New(doc *domain.Document, m textlayout.Measurer) *Session {
	return &Session{
		doc:     doc,
		history: undo.NewManager(0),
		measure: m,
	}
}

func (s *Session) Doc() *domain.Document  { return s.doc }
func (s *Session) History() *undo.Manager { return s.history }

// SelectedID returns the id of the selected annotation, or "".
func (s *Session) SelectedID() string { return s.selected }

// Selected returns the selected annotation, or nil.
func (s *Session) Selected() *domain.Annotation {
	if s.selected == "" {
		return nil
	}
	a, err := s.doc.Annotation(s.selected)
	if err != nil {
		return nil
	}
	return a
}

// Select sets the selection without starting a gesture.
func (s *Session) Select(id string) {
	if _, err := s.doc.Annotation(id); err != nil {
		return
	}
	s.selected = id
}

// ClearSelection drops the selection and aborts any text edit.
func (s *Session) ClearSelection() {
	s.selected = ""
	s.mode = modeIdle
	s.editBefore = nil
}

// Editing reports whether a text edit is in progress.
func (s *Session) Editing() bool { return s.mode == modeEditText }

// Add places a new annotation centred at p, selects it and records the edit.
func (s *Session) Add(style domain.Style, p vector.Pt) *domain.Annotation {
	sw, sh := s.doc.SceneSize()
	a := domain.NewAnnotation(style, p.X, p.Y, sw, sh)
	s.doc.Add(a)
	s.history.Record(undo.NewAddAnnotation(a, len(s.doc.Annotations)-1))
	s.selected = a.ID
	applog.WithComponent("session").Debug("annotation added", "style", string(style), "id", a.ID)
	return a
}

// DeleteSelected removes the selected annotation and records the edit.
func (s *Session) DeleteSelected() bool {
	a := s.Selected()
	if a == nil {
		return false
	}
	idx := s.doc.IndexOf(a.ID)
	if err := s.doc.Remove(a.ID); err != nil {
		return false
	}
	s.history.Record(undo.NewRemoveAnnotation(a, idx))
	s.ClearSelection()
	return true
}

// SetAspectLock toggles aspect-preserving handle resizing for subsequent
// gestures.
func (s *Session) SetAspectLock(on bool) { s.aspectLock = on }

// AspectLock reports whether handle resizing preserves the aspect ratio.
func (s *Session) AspectLock() bool { return s.aspectLock }

// Duplicate copies the selected annotation with a small offset, records the
// edit and selects the copy.
func (s *Session) Duplicate() *domain.Annotation {
	a := s.Selected()
	if a == nil {
		return nil
	}
	c := a.Duplicate()
	s.doc.Add(c)
	s.history.Record(undo.NewAddAnnotation(c, len(s.doc.Annotations)-1))
	s.selected = c.ID
	return c
}

// SnapEdge pins a rectangle or scrim strip to the top or bottom canvas edge
// at full width. edge is "top" or "bottom".
func (s *Session) SnapEdge(edge string) bool {
	a := s.Selected()
	if a == nil || (a.Style != domain.StyleRect && a.Style != domain.StyleScrim) {
		return false
	}
	before := a.Clone()
	sw, sh := s.doc.SceneSize()
	a.SnapToEdge(edge, sw, sh)
	if a.Body == before.Body {
		return false
	}
	s.refit(a)
	s.history.Record(undo.NewReplace(before, a.Clone(), "snap to edge"))
	return true
}

// SetAutoFit toggles text auto-fitting on the selected annotation. Turning
// it on immediately refits the body to the current text; turning it off
// freezes the body and the font size as they are.
func (s *Session) SetAutoFit(on bool) bool {
	a := s.Selected()
	if a == nil || a.AutoFit == on {
		return false
	}
	before := a.Clone()
	a.AutoFit = on
	s.refit(a)
	s.history.Record(undo.NewReplace(before, a.Clone(), "toggle auto-fit"))
	return true
}

// SetStyle switches the selected annotation's style, applying the style's
// side effects, and records one undo entry.
func (s *Session) SetStyle(style domain.Style) bool {
	a := s.Selected()
	if a == nil || a.Style == style || !style.Valid() {
		return false
	}
	before := a.Clone()
	sw, sh := s.doc.SceneSize()
	domain.ApplyStyle(a, style, sw, sh)
	s.refit(a)
	s.history.Record(undo.NewReplace(before, a.Clone(), "change style"))
	return true
}

// SetRotation rotates the selected annotation about its centre, unless the
// style pins it upright.
func (s *Session) SetRotation(deg float64) bool {
	a := s.Selected()
	if a == nil || a.Style.RotationLocked() {
		return false
	}
	deg = math.Mod(deg, 360)
	if a.Rotation == deg {
		return false
	}
	before := a.Clone()
	a.Rotation = deg
	s.history.Record(undo.NewReplace(before, a.Clone(), "rotate"))
	return true
}

// BringToFront raises the selected annotation to the top of the stack.
func (s *Session) BringToFront() bool {
	a := s.Selected()
	if a == nil {
		return false
	}
	from := s.doc.IndexOf(a.ID)
	if from == len(s.doc.Annotations)-1 {
		return false
	}
	if err := s.doc.BringToFront(a.ID); err != nil {
		return false
	}
	s.history.Record(&undo.Reorder{ID: a.ID, From: from, To: len(s.doc.Annotations) - 1})
	return true
}

// SendToBack lowers the selected annotation to the bottom of the stack.
func (s *Session) SendToBack() bool {
	a := s.Selected()
	if a == nil {
		return false
	}
	from := s.doc.IndexOf(a.ID)
	if from == 0 {
		return false
	}
	if err := s.doc.SendToBack(a.ID); err != nil {
		return false
	}
	s.history.Record(&undo.Reorder{ID: a.ID, From: from, To: 0})
	return true
}

// PointerDown begins a gesture at p. Grab priority for the selected
// annotation is tail dot, then resize handles, then the body; anywhere else
// the topmost annotation under the pointer is picked, or the selection is
// cleared.
func (s *Session) PointerDown(p vector.Pt) {
	if s.mode == modeEditText {
		return
	}
	s.downPt = p

	if a := s.Selected(); a != nil {
		if a.Tail != nil && vector.Dist(*a.Tail, p) <= vector.TailDotRadius {
			s.mode = modeDragTail
			tip := *a.Tail
			s.startTail = &tip
			return
		}
		if anchor, ok := hitHandle(a, p); ok {
			s.mode = modeDragHandle
			s.dragAnchor = anchor
			s.startBody = a.Body
			return
		}
	}

	if a := topmostAt(s.doc, p); a != nil {
		s.selected = a.ID
		s.mode = modeDragBody
		s.startBody = a.Body
		if a.Tail != nil {
			tip := *a.Tail
			s.startTail = &tip
		} else {
			s.startTail = nil
		}
		return
	}
	s.ClearSelection()
}

// PointerMove updates the live gesture.
func (s *Session) PointerMove(p vector.Pt) {
	a := s.Selected()
	if a == nil {
		return
	}
	switch s.mode {
	case modeDragBody:
		dx := p.X - s.downPt.X
		dy := p.Y - s.downPt.Y
		a.Body = s.startBody
		a.Body.X += dx
		a.Body.Y += dy
		if s.startTail != nil {
			tip := vector.Pt{X: s.startTail.X + dx, Y: s.startTail.Y + dy}
			a.Tail = &tip
		}
	case modeDragHandle:
		local := vector.ToLocal(s.startBody, a.Rotation*math.Pi/180, p)
		if s.aspectLock {
			a.Body = vector.ResizeRectAspect(s.startBody, s.dragAnchor, local, domain.MinWidth, domain.MinHeight)
		} else {
			a.Body = vector.ResizeRect(s.startBody, s.dragAnchor, local, domain.MinWidth, domain.MinHeight)
		}
	case modeDragTail:
		tip := p
		a.Tail = &tip
	}
}

// PointerUp completes the gesture, recording one undo entry when something
// actually changed.
func (s *Session) PointerUp(p vector.Pt) {
	a := s.Selected()
	if a == nil || s.mode == modeIdle || s.mode == modeEditText {
		s.mode = modeIdle
		return
	}
	s.PointerMove(p)
	switch s.mode {
	case modeDragBody:
		dx := a.Body.X - s.startBody.X
		dy := a.Body.Y - s.startBody.Y
		if dx != 0 || dy != 0 {
			s.history.Record(&undo.Move{ID: a.ID, DX: dx, DY: dy})
		}
	case modeDragHandle:
		if a.Body != s.startBody {
			s.refit(a)
			s.history.Record(&undo.Resize{ID: a.ID, From: s.startBody, To: a.Body})
		}
	case modeDragTail:
		if s.startTail == nil || a.Tail == nil || *a.Tail != *s.startTail {
			var from, to *vector.Pt
			if s.startTail != nil {
				f := *s.startTail
				from = &f
			}
			if a.Tail != nil {
				t := *a.Tail
				to = &t
			}
			s.history.Record(&undo.SetTail{ID: a.ID, From: from, To: to})
		}
	}
	s.mode = modeIdle
	s.startTail = nil
}

// DoubleClick starts text editing when p hits an annotation.
func (s *Session) DoubleClick(p vector.Pt) bool {
	a := topmostAt(s.doc, p)
	if a == nil {
		return false
	}
	s.selected = a.ID
	return s.BeginTextEdit()
}

// BeginTextEdit opens the selected annotation for typing.
func (s *Session) BeginTextEdit() bool {
	a := s.Selected()
	if a == nil {
		return false
	}
	s.mode = modeEditText
	s.editBefore = a.Clone()
	return true
}

// CommitText ends the edit, refits the body around the new text and records
// one undo entry covering both when the text changed.
func (s *Session) CommitText(text string) bool {
	a := s.Selected()
	if a == nil || s.mode != modeEditText {
		return false
	}
	s.mode = modeIdle
	before := s.editBefore
	s.editBefore = nil
	if before == nil || a.Text == text {
		return false
	}
	a.Text = text
	s.refit(a)
	s.history.Record(undo.NewReplace(before, a.Clone(), "edit text"))
	return true
}

// CancelTextEdit ends the edit leaving the annotation untouched.
func (s *Session) CancelTextEdit() {
	if s.mode == modeEditText {
		s.mode = modeIdle
		s.editBefore = nil
	}
}

func (s *Session) Undo() bool {
	ok, err := s.history.Undo(s.doc)
	if err != nil {
		applog.WithComponent("session").Warn("undo failed", "err", err)
		return false
	}
	return ok
}

func (s *Session) Redo() bool {
	ok, err := s.history.Redo(s.doc)
	if err != nil {
		applog.WithComponent("session").Warn("redo failed", "err", err)
		return false
	}
	return ok
}

// refit grows the body so the current text fits, matching what the
// compositor will lay out.
func (s *Session) refit(a *domain.Annotation) {
	if s.measure == nil || !a.AutoFit {
		return
	}
	text := a.Text
	if a.Font.Uppercase {
		text = strings.ToUpper(text)
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	spec := textlayout.FontSpec{
		Family: a.Font.Family,
		SizePt: a.Font.SizePt,
		Bold:   a.Font.Bold,
		Italic: a.Font.Italic,
	}
	fit := textlayout.FitBody(s.measure, spec, text, a.Body, a.Style == domain.StyleOval)
	a.Body = fit.Body
}
