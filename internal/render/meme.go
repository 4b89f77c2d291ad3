/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image/color"
	"math"
	"strings"

	"github.com/gogpu/gg"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	"github.com/longweekendlabs/speech-bubble-editor/internal/textlayout"
)

// Meme band text defaults shown until the user edits them.
const (
	DefaultTopText    = "TOP TEXT"
	DefaultBottomText = "BOTTOM TEXT"
)

var memeBandFill = color.NRGBA{R: 0, G: 0, B: 0, A: 205}

// drawMemeBars paints the top and bottom caption bands across the full
// canvas width, outside the photo row. Device coordinates, not transformed.
func (r *Renderer) drawMemeBars(dc *gg.Context, doc *domain.Document, lay Layout, scale float64) {
	barH := lay.BarH * scale
	w := lay.CanvasW * scale
	top := doc.Meme.TopText
	if top == "" {
		top = DefaultTopText
	}
	bottom := doc.Meme.BottomText
	if bottom == "" {
		bottom = DefaultBottomText
	}
	r.drawBand(dc, top, 0, 0, w, barH)
	r.drawBand(dc, bottom, 0, (lay.PhotoY+lay.PhotoH)*scale, w, barH)
}

// drawBand fills one band and centres its caption in impact style: heavy
// face sized to the band, shrunk in 2px steps until the text fits the inset
// rectangle, drawn white over a 1px soft shadow.
func (r *Renderer) drawBand(dc *gg.Context, s string, x, y, w, h float64) {
	dc.SetColor(memeBandFill)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()

	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return
	}

	px := math.Max(14, float64(int(h*0.62)))
	minPx := math.Max(10, float64(int(px)/4))
	maxW := w - 2*memeInsetX
	maxH := h - 2*memeInsetY
	if maxW <= 0 || maxH <= 0 {
		return
	}

	m := faceMeasurer{lib: r.lib}
	spec := textlayout.FontSpec{Family: "Anton", SizePt: px, Bold: true}
	size, lines, err := textlayout.Shrink(m, spec, s, maxW, maxH, minPx)
	if err != nil && len(lines) == 0 {
		return
	}
	spec.SizePt = size

	face := r.lib.Face(domain.FontSpec{Family: spec.Family, SizePt: size, Bold: true}, size)
	dc.SetFont(face)
	ascent := face.Metrics().Ascent

	_, th := textlayout.BlockSize(m, spec, lines)
	ty := y + (h-th)/2
	for _, line := range lines {
		lw, lh := m.LineSize(spec, line)
		lx := x + (w-lw)/2
		base := ty + ascent
		dc.SetColor(color.NRGBA{A: 160})
		dc.DrawString(line, lx+1, base+1)
		dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		dc.DrawString(line, lx, base)
		ty += lh
	}
}

const (
	memeInsetX = 20.0
	memeInsetY = 4.0
)
