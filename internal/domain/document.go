/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "errors"

// ErrNotFound is returned when an annotation ID is not in the document.
var ErrNotFound = errors.New("annotation not found")

// MediaKind distinguishes still images from video sources.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaRef identifies the source media of a document and its native
// properties as probed at load time.
type MediaRef struct {
	Path       string    `json:"path"`
	Kind       MediaKind `json:"kind"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	FPS        float64   `json:"fps,omitempty"`
	FrameCount int       `json:"frameCount,omitempty"`
	HasAudio   bool      `json:"hasAudio,omitempty"`
}

// Timeline is the persisted edit decision state for video media. The timeline
// package interprets it; here it is plain data.
type Timeline struct {
	TrimIn   int      `json:"trimIn"`
	TrimOut  int      `json:"trimOut"`
	Cuts     [][2]int `json:"cuts,omitempty"` // inclusive [start, end] source frame ranges
	Reversed bool     `json:"reversed,omitempty"`
}

// MemeBars configures the classic top/bottom meme caption bands.
type MemeBars struct {
	Enabled    bool   `json:"enabled"`
	TopText    string `json:"topText"`
	BottomText string `json:"bottomText"`
}

// Dual configures side-by-side before/after composition with a second clip.
type Dual struct {
	Enabled    bool   `json:"enabled"`
	SecondPath string `json:"secondPath,omitempty"`
}

// Document is a complete annotated-media project: the media reference plus
// every overlay and edit decision. It serializes to the JSON manifest.
type Document struct {
	Media       MediaRef      `json:"media"`
	Annotations []*Annotation `json:"annotations"`
	Timeline    Timeline      `json:"timeline"`
	Meme        MemeBars      `json:"meme"`
	Dual        Dual          `json:"dual"`
}

// NewDocument creates an empty document for the given media.
func NewDocument(media MediaRef) *Document {
	d := &Document{Media: media}
	if media.Kind == MediaVideo && media.FrameCount > 0 {
		d.Timeline = Timeline{TrimIn: 0, TrimOut: media.FrameCount - 1}
	}
	return d
}

// SceneSize returns the document coordinate space dimensions.
func (d *Document) SceneSize() (w, h float64) {
	return float64(d.Media.Width), float64(d.Media.Height)
}

// Add appends an annotation on top of the stack.
func (d *Document) Add(a *Annotation) { d.Annotations = append(d.Annotations, a) }

// IndexOf returns the z position of the annotation, or -1.
func (d *Document) IndexOf(id string) int {
	for i, a := range d.Annotations {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Annotation returns the annotation with the given ID.
func (d *Document) Annotation(id string) (*Annotation, error) {
	if i := d.IndexOf(id); i >= 0 {
		return d.Annotations[i], nil
	}
	return nil, ErrNotFound
}

// Remove deletes the annotation with the given ID.
func (d *Document) Remove(id string) error {
	i := d.IndexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	d.Annotations = append(d.Annotations[:i], d.Annotations[i+1:]...)
	return nil
}

// InsertAt places an annotation at the given z position, clamping to the
// stack bounds. Used by undo to restore a removed annotation exactly.
func (d *Document) InsertAt(i int, a *Annotation) {
	if i < 0 {
		i = 0
	}
	if i > len(d.Annotations) {
		i = len(d.Annotations)
	}
	d.Annotations = append(d.Annotations, nil)
	copy(d.Annotations[i+1:], d.Annotations[i:])
	d.Annotations[i] = a
}

// BringToFront moves the annotation to the top of the stack.
func (d *Document) BringToFront(id string) error {
	i := d.IndexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	a := d.Annotations[i]
	d.Annotations = append(d.Annotations[:i], d.Annotations[i+1:]...)
	d.Annotations = append(d.Annotations, a)
	return nil
}

// SendToBack moves the annotation to the bottom of the stack.
func (d *Document) SendToBack(id string) error {
	i := d.IndexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	a := d.Annotations[i]
	d.Annotations = append(d.Annotations[:i], d.Annotations[i+1:]...)
	d.Annotations = append([]*Annotation{a}, d.Annotations...)
	return nil
}

// Clone returns a deep copy of the whole document. Exporters snapshot the
// document this way so the user can keep editing while a render runs.
func (d *Document) Clone() *Document {
	c := *d
	if d.Annotations != nil {
		c.Annotations = make([]*Annotation, len(d.Annotations))
		for i, a := range d.Annotations {
			c.Annotations[i] = a.Clone()
		}
	}
	if d.Timeline.Cuts != nil {
		c.Timeline.Cuts = make([][2]int, len(d.Timeline.Cuts))
		copy(c.Timeline.Cuts, d.Timeline.Cuts)
	}
	return &c
}
