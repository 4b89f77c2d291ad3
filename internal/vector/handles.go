/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Resize handles: anchor layout and edge-constrained resizing.

// Anchor identifies one of the eight resize handles around a body rect.
type Anchor uint8

const (
	AnchorTL Anchor = iota
	AnchorTC
	AnchorTR
	AnchorML
	AnchorMR
	AnchorBL
	AnchorBC
	AnchorBR
)

// HandleSize is the square side length of a resize handle.
const HandleSize = 10

// TailDotRadius is the radius of the tail-tip grab dot.
const TailDotRadius = 9

// anchors lists each handle's position as fractions of the body rect.
var anchors = [8]struct {
	fx, fy float64
}{
	{0, 0}, {0.5, 0}, {1, 0},
	{0, 0.5}, {1, 0.5},
	{0, 1}, {0.5, 1}, {1, 1},
}

// AnchorPoint returns the document position of the given handle on r.
func AnchorPoint(r Rect, a Anchor) Pt {
	f := anchors[a]
	return Pt{r.X + f.fx*r.W, r.Y + f.fy*r.H}
}

// HandleRect returns the hit rect of the given handle on r.
func HandleRect(r Rect, a Anchor) Rect {
	p := AnchorPoint(r, a)
	s := float64(HandleSize)
	return Rect{X: p.X - s/2, Y: p.Y - s/2, W: s, H: s}
}

// moves which edges an anchor drags.
func (a Anchor) movesLeft() bool   { return a == AnchorTL || a == AnchorML || a == AnchorBL }
func (a Anchor) movesRight() bool  { return a == AnchorTR || a == AnchorMR || a == AnchorBR }
func (a Anchor) movesTop() bool    { return a == AnchorTL || a == AnchorTC || a == AnchorTR }
func (a Anchor) movesBottom() bool { return a == AnchorBL || a == AnchorBC || a == AnchorBR }

// ResizeRect drags the anchor of start to p, keeping the opposite edge fixed.
// Each edge only moves while the result stays at least minW wide and minH
// tall, so the rect never inverts.
func ResizeRect(start Rect, a Anchor, p Pt, minW, minH float64) Rect {
	left, top := start.X, start.Y
	right, bottom := start.X+start.W, start.Y+start.H

	if a.movesLeft() {
		if right-p.X >= minW {
			left = p.X
		}
	}
	if a.movesRight() {
		if p.X-left >= minW {
			right = p.X
		}
	}
	if a.movesTop() {
		if bottom-p.Y >= minH {
			top = p.Y
		}
	}
	if a.movesBottom() {
		if p.Y-top >= minH {
			bottom = p.Y
		}
	}
	return Rect{X: left, Y: top, W: right - left, H: bottom - top}
}

// ToLocal maps a document point into the unrotated frame of a body rect that
// is rotated by angle radians about its centre.
func ToLocal(r Rect, angle float64, p Pt) Pt {
	if angle == 0 {
		return p
	}
	return RotateAbout(-angle, r.Center()).Apply(p)
}

// ResizeRectAspect resizes like ResizeRect but preserves the start rect's
// aspect ratio, pinning the edges opposite the dragged handle. Mid-edge
// handles keep the opposite axis centred.
func ResizeRectAspect(start Rect, a Anchor, p Pt, minW, minH float64) Rect {
	r := ResizeRect(start, a, p, minW, minH)
	if start.W <= 0 || start.H <= 0 {
		return r
	}
	scale := r.W / start.W
	if s := r.H / start.H; s > scale {
		scale = s
	}
	w := start.W * scale
	h := start.H * scale
	if w < minW || h < minH {
		grow := minW / start.W
		if g := minH / start.H; g > grow {
			grow = g
		}
		w, h = start.W*grow, start.H*grow
	}
	out := Rect{W: w, H: h}
	switch {
	case a.movesLeft():
		out.X = start.X + start.W - w
	case a.movesRight():
		out.X = start.X
	default:
		out.X = start.X + (start.W-w)/2
	}
	switch {
	case a.movesTop():
		out.Y = start.Y + start.H - h
	case a.movesBottom():
		out.Y = start.Y
	default:
		out.Y = start.Y + (start.H-h)/2
	}
	return out
}
