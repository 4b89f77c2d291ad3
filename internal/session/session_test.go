/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	"github.com/longweekendlabs/speech-bubble-editor/internal/textlayout"
	"github.com/longweekendlabs/speech-bubble-editor/internal/vector"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	doc := domain.NewDocument(domain.MediaRef{
		Path: "x.png", Kind: domain.MediaImage, Width: 1920, Height: 1080,
	})
	return New(doc, nil)
}

func docJSON(t *testing.T, d *domain.Document) string {
	t.Helper()
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestAddSelectsAndUndoes(t *testing.T) {
	s := newSession(t)
	a := s.Add(domain.StyleOval, vector.Pt{X: 200, Y: 150})
	if s.SelectedID() != a.ID {
		t.Fatal("expected new annotation selected")
	}
	if !s.Undo() {
		t.Fatal("expected undo to succeed")
	}
	if len(s.Doc().Annotations) != 0 {
		t.Fatal("expected annotation removed by undo")
	}
	if !s.Redo() {
		t.Fatal("expected redo to succeed")
	}
	if len(s.Doc().Annotations) != 1 {
		t.Fatal("expected annotation back after redo")
	}
}

func TestDragBodyMovesTailAndRecordsOnce(t *testing.T) {
	s := newSession(t)
	a := s.Add(domain.StyleOval, vector.Pt{X: 200, Y: 150})
	before := docJSON(t, s.Doc())

	s.PointerDown(vector.Pt{X: 200, Y: 150})
	s.PointerMove(vector.Pt{X: 205, Y: 155})
	s.PointerUp(vector.Pt{X: 210, Y: 160})

	if a.Body.X != 100 || a.Body.Y != 95 {
		t.Fatalf("expected body at (100,95), got (%g,%g)", a.Body.X, a.Body.Y)
	}
	if a.Tail == nil || a.Tail.X != 210 || a.Tail.Y != 300 {
		t.Fatalf("expected tail moved with the body, got %v", a.Tail)
	}
	applied, total := s.History().Depth()
	if applied != 2 || total != 2 { // add + move
		t.Fatalf("expected one gesture entry, history %d/%d", applied, total)
	}
	if !s.Undo() {
		t.Fatal("undo failed")
	}
	if got := docJSON(t, s.Doc()); got != before {
		t.Fatalf("undo did not restore the pre-drag document\nwant %s\ngot  %s", before, got)
	}
}

func TestClickWithoutMovementRecordsNothing(t *testing.T) {
	s := newSession(t)
	s.Add(domain.StyleOval, vector.Pt{X: 200, Y: 150})
	s.PointerDown(vector.Pt{X: 200, Y: 150})
	s.PointerUp(vector.Pt{X: 200, Y: 150})
	if _, total := s.History().Depth(); total != 1 {
		t.Fatalf("expected only the add entry, got %d", total)
	}
}

func TestHandleBeatsBodyForSelected(t *testing.T) {
	s := newSession(t)
	a := s.Add(domain.StyleRect, vector.Pt{X: 200, Y: 150})
	// top-left handle sits at the body corner
	s.PointerDown(vector.Pt{X: a.Body.X, Y: a.Body.Y})
	s.PointerMove(vector.Pt{X: a.Body.X - 10, Y: a.Body.Y - 10})
	s.PointerUp(vector.Pt{X: 80, Y: 75})

	if a.Body.X != 80 || a.Body.Y != 75 {
		t.Fatalf("expected resized origin (80,75), got (%g,%g)", a.Body.X, a.Body.Y)
	}
	if a.Body.W != 230 || a.Body.H != 140 {
		t.Fatalf("expected 230x140, got %gx%g", a.Body.W, a.Body.H)
	}
	if s.History().UndoName() != "resize" {
		t.Fatalf("expected a resize entry, got %q", s.History().UndoName())
	}
}

func TestResizeStopsAtMinimum(t *testing.T) {
	s := newSession(t)
	a := s.Add(domain.StyleRect, vector.Pt{X: 200, Y: 150})
	right := a.Body.X + a.Body.W
	s.PointerDown(vector.Pt{X: a.Body.X, Y: a.Body.Y})
	s.PointerUp(vector.Pt{X: 1000, Y: 1000})
	if a.Body.W != domain.MinWidth || a.Body.H != domain.MinHeight {
		t.Fatalf("expected minimum size, got %gx%g", a.Body.W, a.Body.H)
	}
	if a.Body.X+a.Body.W != right {
		t.Fatal("expected the opposite edge to stay fixed")
	}
}

func TestTailDotBeatsHandles(t *testing.T) {
	s := newSession(t)
	a := s.Add(domain.StyleOval, vector.Pt{X: 200, Y: 150})
	s.PointerDown(vector.Pt{X: a.Tail.X + 3, Y: a.Tail.Y - 3})
	s.PointerUp(vector.Pt{X: 400, Y: 400})
	if a.Tail.X != 400 || a.Tail.Y != 400 {
		t.Fatalf("expected tail at (400,400), got %v", a.Tail)
	}
	if s.History().UndoName() != "move tail" {
		t.Fatalf("expected a tail entry, got %q", s.History().UndoName())
	}
}

func TestTopmostAnnotationWins(t *testing.T) {
	s := newSession(t)
	bottom := s.Add(domain.StyleRect, vector.Pt{X: 200, Y: 150})
	top := s.Add(domain.StyleRect, vector.Pt{X: 220, Y: 160})
	s.ClearSelection()

	s.PointerDown(vector.Pt{X: 220, Y: 160})
	s.PointerUp(vector.Pt{X: 220, Y: 160})
	if s.SelectedID() != top.ID {
		t.Fatalf("expected the top annotation selected, got %q (bottom is %q)", s.SelectedID(), bottom.ID)
	}
}

func TestOvalCornerFallsThrough(t *testing.T) {
	s := newSession(t)
	a := s.Add(domain.StyleOval, vector.Pt{X: 200, Y: 150})
	s.ClearSelection()
	// the bounding-box corner is outside the ellipse
	s.PointerDown(vector.Pt{X: a.Body.X + 2, Y: a.Body.Y + 2})
	if s.SelectedID() != "" {
		t.Fatal("expected click outside the ellipse to miss")
	}
}

func TestClickEmptyClearsSelection(t *testing.T) {
	s := newSession(t)
	s.Add(domain.StyleOval, vector.Pt{X: 200, Y: 150})
	s.PointerDown(vector.Pt{X: 900, Y: 900})
	if s.SelectedID() != "" {
		t.Fatal("expected selection cleared")
	}
}

func TestRotatedHandleHit(t *testing.T) {
	s := newSession(t)
	a := s.Add(domain.StyleRect, vector.Pt{X: 200, Y: 150})
	a.Rotation = 90
	// the local top-left corner maps to the rotated position around the centre
	c := a.Body.Center()
	corner := vector.RotateAbout(math.Pi/2, c).Apply(vector.Pt{X: a.Body.X, Y: a.Body.Y})
	anchor, ok := hitHandle(a, corner)
	if !ok || anchor != vector.AnchorTL {
		t.Fatalf("expected rotated top-left handle hit, got ok=%v anchor=%v", ok, anchor)
	}
}

func TestCommitTextGrowsBodyAndRecordsOnce(t *testing.T) {
	doc := domain.NewDocument(domain.MediaRef{Path: "x.png", Kind: domain.MediaImage, Width: 1920, Height: 1080})
	s := New(doc, textlayout.Proportional{})
	a := s.Add(domain.StyleRect, vector.Pt{X: 200, Y: 150})
	before := docJSON(t, s.Doc())

	if !s.DoubleClick(vector.Pt{X: 200, Y: 150}) {
		t.Fatal("expected double click to start editing")
	}
	long := strings.TrimSpace(strings.Repeat("word ", 20))
	if !s.CommitText(long) {
		t.Fatal("expected commit to record a change")
	}
	if a.Text != long {
		t.Fatal("expected text applied")
	}
	if math.Abs(a.Body.H-192) > 0.01 {
		t.Fatalf("expected body grown to 192, got %g", a.Body.H)
	}
	if c := a.Body.Center(); math.Abs(c.Y-150) > 0.01 {
		t.Fatalf("expected growth about the centre, got cy=%g", c.Y)
	}
	if _, total := s.History().Depth(); total != 2 { // add + edit
		t.Fatalf("expected one edit entry, got %d total", total)
	}
	if !s.Undo() {
		t.Fatal("undo failed")
	}
	if got := docJSON(t, s.Doc()); got != before {
		t.Fatal("undo did not restore the pre-edit document")
	}
}

func TestCommitUnchangedTextRecordsNothing(t *testing.T) {
	s := newSession(t)
	a := s.Add(domain.StyleOval, vector.Pt{X: 200, Y: 150})
	s.BeginTextEdit()
	if s.CommitText(a.Text) {
		t.Fatal("expected no entry for unchanged text")
	}
	if _, total := s.History().Depth(); total != 1 {
		t.Fatalf("expected only the add entry, got %d", total)
	}
}

func TestSetStyleRoundTrip(t *testing.T) {
	s := newSession(t)
	a := s.Add(domain.StyleOval, vector.Pt{X: 200, Y: 150})
	before := docJSON(t, s.Doc())

	if !s.SetStyle(domain.StyleScrim) {
		t.Fatal("expected style switch")
	}
	if a2 := s.Selected(); a2.Tail != nil || a2.BorderWidth != 0 {
		t.Fatalf("expected strip side effects, got tail=%v bw=%g", a2.Tail, a2.BorderWidth)
	}
	if !s.Undo() {
		t.Fatal("undo failed")
	}
	if got := docJSON(t, s.Doc()); got != before {
		t.Fatal("undo did not restore the balloon")
	}
	_ = a
}

func TestRotationLockedStyles(t *testing.T) {
	s := newSession(t)
	s.Add(domain.StyleCaption, vector.Pt{X: 200, Y: 150})
	if s.SetRotation(45) {
		t.Fatal("expected rotation rejected for caption")
	}
	s.Add(domain.StyleOval, vector.Pt{X: 400, Y: 300})
	if !s.SetRotation(45) {
		t.Fatal("expected rotation accepted for balloon")
	}
}

func TestZOrderOperations(t *testing.T) {
	s := newSession(t)
	a := s.Add(domain.StyleRect, vector.Pt{X: 100, Y: 100})
	s.Add(domain.StyleRect, vector.Pt{X: 200, Y: 200})
	s.Select(a.ID)
	if !s.BringToFront() {
		t.Fatal("expected bring to front")
	}
	if s.Doc().IndexOf(a.ID) != 1 {
		t.Fatal("expected annotation on top")
	}
	if !s.Undo() {
		t.Fatal("undo failed")
	}
	if s.Doc().IndexOf(a.ID) != 0 {
		t.Fatal("expected order restored")
	}
}

func TestDuplicateOffsetsAndSelectsCopy(t *testing.T) {
	s := newSession(t)
	a := s.Add(domain.StyleOval, vector.Pt{X: 300, Y: 200})
	c := s.Duplicate()
	if c == nil || c.ID == a.ID {
		t.Fatal("expected a copy with a fresh id")
	}
	if s.SelectedID() != c.ID {
		t.Fatal("expected the copy selected")
	}
	if c.Body.X != a.Body.X+25 || c.Body.Y != a.Body.Y+25 {
		t.Fatalf("copy body = %+v, want source offset by 25", c.Body)
	}
	if a.Tail == nil || c.Tail == nil || c.Tail.X != a.Tail.X+25 {
		t.Fatal("expected tail offset with the body")
	}
	if len(s.Doc().Annotations) != 2 {
		t.Fatalf("annotations = %d", len(s.Doc().Annotations))
	}
	if !s.Undo() {
		t.Fatal("undo failed")
	}
	if len(s.Doc().Annotations) != 1 {
		t.Fatal("expected undo to remove the copy")
	}
}

func TestSnapEdgePinsFullWidth(t *testing.T) {
	s := newSession(t)
	a := s.Add(domain.StyleRect, vector.Pt{X: 400, Y: 300})
	if !s.SnapEdge("bottom") {
		t.Fatal("expected snap accepted for rectangle")
	}
	sw, sh := s.Doc().SceneSize()
	if a.Body.X != 0 || a.Body.W != sw {
		t.Fatalf("expected full width, got %+v", a.Body)
	}
	if a.Body.Y+a.Body.H != sh {
		t.Fatalf("expected body flush with bottom edge, got %+v", a.Body)
	}
	if !s.Undo() {
		t.Fatal("undo failed")
	}

	s.Add(domain.StyleOval, vector.Pt{X: 200, Y: 200})
	if s.SnapEdge("top") {
		t.Fatal("expected snap rejected for balloon styles")
	}
}

func TestAspectLockedResize(t *testing.T) {
	s := newSession(t)
	a := s.Add(domain.StyleRect, vector.Pt{X: 200, Y: 150})
	s.SetAspectLock(true)
	// body is 220x130 centred at (200,150); grab the BR handle and drag right
	s.PointerDown(vector.Pt{X: 310, Y: 215})
	s.PointerMove(vector.Pt{X: 530, Y: 220})
	s.PointerUp(vector.Pt{X: 530, Y: 220})
	ratio := a.Body.W / a.Body.H
	if ratio < 220.0/130-0.01 || ratio > 220.0/130+0.01 {
		t.Fatalf("aspect ratio drifted: %v", ratio)
	}
	if a.Body.W <= 220 {
		t.Fatalf("expected body to grow, got %+v", a.Body)
	}
	if a.Body.X != 90 || a.Body.Y != 85 {
		t.Fatalf("top-left must stay fixed: %+v", a.Body)
	}
}

func TestResizeRefitUndoRedoRoundTrip(t *testing.T) {
	doc := domain.NewDocument(domain.MediaRef{Path: "x.png", Kind: domain.MediaImage, Width: 1920, Height: 1080})
	s := New(doc, textlayout.Proportional{})
	a := s.Add(domain.StyleRect, vector.Pt{X: 200, Y: 150})
	s.DoubleClick(vector.Pt{X: 200, Y: 150})
	if !s.CommitText(strings.TrimSpace(strings.Repeat("word ", 20))) {
		t.Fatal("commit failed")
	}
	before := docJSON(t, s.Doc())

	// shrink hard; the refit grows the body back around the text
	br := vector.Pt{X: a.Body.X + a.Body.W, Y: a.Body.Y + a.Body.H}
	s.PointerDown(br)
	s.PointerMove(vector.Pt{X: 160, Y: 120})
	s.PointerUp(vector.Pt{X: 160, Y: 120})
	if a.Body.H <= 66 {
		t.Fatalf("expected refit growth past the dragged height, got %+v", a.Body)
	}
	after := docJSON(t, s.Doc())

	if !s.Undo() {
		t.Fatal("undo failed")
	}
	if got := docJSON(t, s.Doc()); got != before {
		t.Fatal("undo did not restore the pre-resize document")
	}
	if !s.Redo() {
		t.Fatal("redo failed")
	}
	if got := docJSON(t, s.Doc()); got != after {
		t.Fatal("redo did not reproduce the post-resize document")
	}
}

func TestAutoFitOffFreezesBody(t *testing.T) {
	doc := domain.NewDocument(domain.MediaRef{Path: "x.png", Kind: domain.MediaImage, Width: 1920, Height: 1080})
	s := New(doc, textlayout.Proportional{})
	s.Add(domain.StyleRect, vector.Pt{X: 200, Y: 150})
	if !s.SetAutoFit(false) {
		t.Fatal("expected toggle off to record a change")
	}
	frozen := s.Doc().Annotations[0].Body

	s.DoubleClick(vector.Pt{X: 200, Y: 150})
	if !s.CommitText(strings.TrimSpace(strings.Repeat("word ", 20))) {
		t.Fatal("commit failed")
	}
	if s.Doc().Annotations[0].Body != frozen {
		t.Fatalf("body must stay put with auto-fit off, got %+v", s.Doc().Annotations[0].Body)
	}

	if !s.SetAutoFit(true) {
		t.Fatal("expected toggle on to record a change")
	}
	if s.Doc().Annotations[0].Body.H <= frozen.H {
		t.Fatalf("expected refit growth when auto-fit returns, got %+v", s.Doc().Annotations[0].Body)
	}
	if !s.Undo() {
		t.Fatal("undo failed")
	}
	got := s.Doc().Annotations[0]
	if got.AutoFit || got.Body != frozen {
		t.Fatalf("undo must restore the frozen state, got %+v", got)
	}
}
