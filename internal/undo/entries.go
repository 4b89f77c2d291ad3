/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	"github.com/longweekendlabs/speech-bubble-editor/internal/vector"
)

// AddAnnotation records placing a new annotation on top of the stack.
type AddAnnotation struct {
	Annotation *domain.Annotation // pristine copy of the added state
	Index      int
}

func NewAddAnnotation(a *domain.Annotation, index int) *AddAnnotation {
	return &AddAnnotation{Annotation: a.Clone(), Index: index}
}

func (e *AddAnnotation) Apply(d *domain.Document) error {
	d.InsertAt(e.Index, e.Annotation.Clone())
	return nil
}

func (e *AddAnnotation) Revert(d *domain.Document) error {
	return d.Remove(e.Annotation.ID)
}

func (e *AddAnnotation) Name() string { return "add" }

// RemoveAnnotation records deleting an annotation, keeping enough state to
// put it back at its old z position.
type RemoveAnnotation struct {
	Annotation *domain.Annotation
	Index      int
}

func NewRemoveAnnotation(a *domain.Annotation, index int) *RemoveAnnotation {
	return &RemoveAnnotation{Annotation: a.Clone(), Index: index}
}

func (e *RemoveAnnotation) Apply(d *domain.Document) error {
	return d.Remove(e.Annotation.ID)
}

func (e *RemoveAnnotation) Revert(d *domain.Document) error {
	d.InsertAt(e.Index, e.Annotation.Clone())
	return nil
}

func (e *RemoveAnnotation) Name() string { return "delete" }

// Move records a completed body drag. The tail, stored in document
// coordinates, travels with the body.
type Move struct {
	ID     string
	DX, DY float64
}

func (e *Move) Apply(d *domain.Document) error  { return e.shift(d, e.DX, e.DY) }
func (e *Move) Revert(d *domain.Document) error { return e.shift(d, -e.DX, -e.DY) }
func (e *Move) Name() string                    { return "move" }

func (e *Move) shift(d *domain.Document, dx, dy float64) error {
	a, err := d.Annotation(e.ID)
	if err != nil {
		return err
	}
	a.Body.X += dx
	a.Body.Y += dy
	if a.Tail != nil {
		a.Tail.X += dx
		a.Tail.Y += dy
	}
	return nil
}

// Resize records a completed handle drag.
type Resize struct {
	ID       string
	From, To vector.Rect
}

func (e *Resize) Apply(d *domain.Document) error  { return setBody(d, e.ID, e.To) }
func (e *Resize) Revert(d *domain.Document) error { return setBody(d, e.ID, e.From) }
func (e *Resize) Name() string                    { return "resize" }

func setBody(d *domain.Document, id string, r vector.Rect) error {
	a, err := d.Annotation(id)
	if err != nil {
		return err
	}
	a.Body = r
	return nil
}

// SetText records a finished text edit.
type SetText struct {
	ID       string
	From, To string
}

func (e *SetText) Apply(d *domain.Document) error  { return setText(d, e.ID, e.To) }
func (e *SetText) Revert(d *domain.Document) error { return setText(d, e.ID, e.From) }
func (e *SetText) Name() string                    { return "edit text" }

func setText(d *domain.Document, id, text string) error {
	a, err := d.Annotation(id)
	if err != nil {
		return err
	}
	a.Text = text
	return nil
}

// SetTail records a completed tail-tip drag.
type SetTail struct {
	ID       string
	From, To *vector.Pt
}

func (e *SetTail) Apply(d *domain.Document) error  { return setTail(d, e.ID, e.To) }
func (e *SetTail) Revert(d *domain.Document) error { return setTail(d, e.ID, e.From) }
func (e *SetTail) Name() string                    { return "move tail" }

func setTail(d *domain.Document, id string, tip *vector.Pt) error {
	a, err := d.Annotation(id)
	if err != nil {
		return err
	}
	if tip == nil {
		a.Tail = nil
	} else {
		t := *tip
		a.Tail = &t
	}
	return nil
}

// Replace swaps the full annotation state. Style switches go through this
// because they touch colors, fonts and geometry in one gesture.
type Replace struct {
	Before, After *domain.Annotation
	Label         string
}

func NewReplace(before, after *domain.Annotation, label string) *Replace {
	if label == "" {
		label = "change"
	}
	return &Replace{Before: before.Clone(), After: after.Clone(), Label: label}
}

func (e *Replace) Apply(d *domain.Document) error  { return replace(d, e.After) }
func (e *Replace) Revert(d *domain.Document) error { return replace(d, e.Before) }
func (e *Replace) Name() string                    { return e.Label }

func replace(d *domain.Document, with *domain.Annotation) error {
	i := d.IndexOf(with.ID)
	if i < 0 {
		return domain.ErrNotFound
	}
	d.Annotations[i] = with.Clone()
	return nil
}

// Reorder records a z-order change.
type Reorder struct {
	ID       string
	From, To int
}

func (e *Reorder) Apply(d *domain.Document) error  { return moveIndex(d, e.ID, e.To) }
func (e *Reorder) Revert(d *domain.Document) error { return moveIndex(d, e.ID, e.From) }
func (e *Reorder) Name() string                    { return "reorder" }

func moveIndex(d *domain.Document, id string, to int) error {
	i := d.IndexOf(id)
	if i < 0 {
		return domain.ErrNotFound
	}
	a := d.Annotations[i]
	d.Annotations = append(d.Annotations[:i], d.Annotations[i+1:]...)
	d.InsertAt(to, a)
	return nil
}
