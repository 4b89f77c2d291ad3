/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Core data model for annotated media documents. Annotations live in document
// coordinates (the native pixel space of the source media); rendering scales
// them to whatever raster size an exporter asks for.

import (
	"image/color"

	"github.com/google/uuid"

	"github.com/longweekendlabs/speech-bubble-editor/internal/vector"
)

// Default body dimensions for a freshly placed annotation.
const (
	DefaultWidth  = 220.0
	DefaultHeight = 130.0
)

// MinWidth and MinHeight bound interactive resizing.
const (
	MinWidth  = 60.0
	MinHeight = 60.0
)

// Color is an 8-bit RGBA color.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// NRGBA returns the color as a non-premultiplied stdlib color.
func (c Color) NRGBA() color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A} }

// FontSpec describes the text face of an annotation.
type FontSpec struct {
	Family    string  `json:"family"`
	SizePt    float64 `json:"sizePt"`
	Bold      bool    `json:"bold,omitempty"`
	Italic    bool    `json:"italic,omitempty"`
	Uppercase bool    `json:"uppercase,omitempty"`
}

// Annotation is one positioned overlay element: a balloon, strip or text
// block. Z-order is the position in the document's annotation list.
type Annotation struct {
	ID          string      `json:"id"`
	Style       Style       `json:"style"`
	Body        vector.Rect `json:"body"`
	Rotation    float64     `json:"rotation,omitempty"` // degrees, about the body centre
	Tail        *vector.Pt  `json:"tail,omitempty"`     // document coords; nil = no tail
	Text        string      `json:"text"`
	AutoFit     bool        `json:"autoFit"` // grow the body / shrink the font to fit Text
	Font        FontSpec    `json:"font"`
	TextColor   Color       `json:"textColor"`
	Fill        Color       `json:"fill"`
	Border      Color       `json:"border"`
	BorderWidth float64     `json:"borderWidth"`
}

// NewAnnotation creates an annotation of the given style centred at (x, y)
// with the stock balloon defaults, then applies the style's own defaults.
func NewAnnotation(style Style, x, y, sceneW, sceneH float64) *Annotation {
	a := &Annotation{
		ID:          uuid.NewString(),
		Style:       StyleOval,
		Body:        vector.R(x-DefaultWidth/2, y-DefaultHeight/2, DefaultWidth, DefaultHeight),
		Text:        "Type here...",
		AutoFit:     true,
		Font:        FontSpec{Family: "Klee One", SizePt: 20, Bold: true},
		TextColor:   Color{15, 15, 15, 255},
		Fill:        Color{255, 255, 255, 240},
		Border:      Color{20, 20, 20, 255},
		BorderWidth: 2,
	}
	if style.TailAllowed() {
		tip := vector.Pt{X: x, Y: y + DefaultHeight/2 + 70}
		a.Tail = &tip
	}
	if style != StyleOval {
		ApplyStyle(a, style, sceneW, sceneH)
	}
	return a
}

// Clone returns a deep copy.
func (a *Annotation) Clone() *Annotation {
	if a == nil {
		return nil
	}
	c := *a
	if a.Tail != nil {
		tip := *a.Tail
		c.Tail = &tip
	}
	return &c
}

// Duplicate returns a copy with a fresh ID, offset slightly so the copy is
// visible next to the source.
func (a *Annotation) Duplicate() *Annotation {
	c := a.Clone()
	c.ID = uuid.NewString()
	c.Body.X += 25
	c.Body.Y += 25
	if c.Tail != nil {
		c.Tail.X += 25
		c.Tail.Y += 25
	}
	return c
}

// Center returns the body centre in document coordinates.
func (a *Annotation) Center() vector.Pt { return a.Body.Center() }
