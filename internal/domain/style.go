/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "math"

// Style selects the body shape and default look of an annotation.
type Style string

const (
	StyleOval    Style = "oval"    // classic speech balloon
	StyleCloud   Style = "cloud"   // thought cloud with dot chain
	StyleRect    Style = "rect"    // caption bar
	StyleSpiky   Style = "spiky"   // shout / explosion starburst
	StyleText    Style = "text"    // free text, no body
	StyleScrim   Style = "scrim"   // dark full-width strip
	StyleCaption Style = "caption" // stroke-text overlay
)

// Styles lists every valid style in display order.
var Styles = []Style{StyleOval, StyleCloud, StyleRect, StyleSpiky, StyleText, StyleScrim, StyleCaption}

// Valid reports whether s is a known style.
func (s Style) Valid() bool {
	switch s {
	case StyleOval, StyleCloud, StyleRect, StyleSpiky, StyleText, StyleScrim, StyleCaption:
		return true
	}
	return false
}

// TailAllowed reports whether the style carries a draggable tail.
func (s Style) TailAllowed() bool {
	switch s {
	case StyleOval, StyleCloud, StyleSpiky:
		return true
	}
	return false
}

// RotationLocked reports whether the style ignores rotation. The strip and
// overlay styles are glued to the frame and never rotate.
func (s Style) RotationLocked() bool {
	switch s {
	case StyleText, StyleScrim, StyleCaption:
		return true
	}
	return false
}

// ApplyStyle switches a to the given style, applying the same side effects a
// user-visible style change has: incompatible tails are dropped, and the
// scrim and caption styles install their strip/overlay defaults. sceneH is
// used to size the scrim strip; pass 0 when no media is loaded.
func ApplyStyle(a *Annotation, style Style, sceneW, sceneH float64) {
	prev := a.Style
	a.Style = style
	if !style.TailAllowed() {
		a.Tail = nil
	}
	if style.RotationLocked() {
		a.Rotation = 0
	}

	// Leaving scrim: the body is still full-width and flat, which breaks the
	// organic shape geometry. Reset to the default balloon dimensions first.
	if prev == StyleScrim && style != StyleScrim {
		c := a.Body.Center()
		a.Body.X = c.X - DefaultWidth/2
		a.Body.Y = c.Y - DefaultHeight/2
		a.Body.W = DefaultWidth
		a.Body.H = DefaultHeight
	}

	if style == StyleScrim && prev != StyleScrim {
		a.Fill = Color{0, 0, 0, 200}
		a.BorderWidth = 0
		a.TextColor = Color{255, 255, 255, 255}
		a.Font = FontSpec{Family: "Montserrat", SizePt: 24, Bold: true}
		compactH := 60.0
		if sceneH > 0 {
			compactH = math.Max(44, sceneH*0.07)
		}
		cy := a.Body.Center().Y
		a.Body.H = compactH
		a.Body.Y = cy - compactH/2
		a.SnapToScrim(sceneW)
	}

	if style == StyleCaption && prev != StyleCaption {
		a.Fill = Color{0, 0, 0, 0}
		a.Border = Color{0, 0, 0, 255}
		a.BorderWidth = 2
		a.TextColor = Color{255, 255, 255, 255}
		a.Font = FontSpec{Family: "Anton", SizePt: 40, Uppercase: true}
	}

	if prev == StyleCaption && style != StyleCaption {
		a.TextColor = Color{15, 15, 15, 255}
		a.Font.Uppercase = false
	}
}

// SnapToScrim expands the body to the full scene width, keeping the current
// vertical position. No-op without media.
func (a *Annotation) SnapToScrim(sceneW float64) {
	if sceneW <= 0 {
		return
	}
	a.Body.X = 0
	a.Body.W = sceneW
}

// SnapToEdge spans the full scene width and sits the body flush against the
// top or bottom edge, keeping its height. edge is "top" or "bottom".
func (a *Annotation) SnapToEdge(edge string, sceneW, sceneH float64) {
	if sceneW <= 0 || sceneH <= 0 {
		return
	}
	a.Body.X = 0
	a.Body.W = sceneW
	if edge == "top" {
		a.Body.Y = 0
	} else {
		a.Body.Y = sceneH - a.Body.H
	}
}
