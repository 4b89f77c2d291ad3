/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Text measurement and line breaking behind a deterministic interface.
// The raster backend supplies a real font-based implementation; tests and
// headless layout use the deterministic measurers below.

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string
	SizePt float64
	Bold   bool
	Italic bool
}

// Measurer measures single-line text in a given font. Implementations must
// be deterministic for identical inputs.
type Measurer interface {
	// LineSize returns the advance width of s and the line height of the
	// face, both in document units.
	LineSize(spec FontSpec, s string) (w, h float64)
}

// WordWrap breaks text into lines no wider than maxWidth, splitting on
// spaces. Explicit newlines always break. A single word wider than maxWidth
// is kept on its own line rather than split.
func WordWrap(m Measurer, spec FontSpec, text string, maxWidth float64) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := words[0]
		for _, word := range words[1:] {
			cand := cur + " " + word
			if w, _ := m.LineSize(spec, cand); w > maxWidth {
				lines = append(lines, cur)
				cur = word
			} else {
				cur = cand
			}
		}
		lines = append(lines, cur)
	}
	return lines
}

// BlockSize measures a wrapped block: the widest line and the total height.
func BlockSize(m Measurer, spec FontSpec, lines []string) (w, h float64) {
	for _, line := range lines {
		lw, lh := m.LineSize(spec, line)
		if lw > w {
			w = lw
		}
		h += lh
	}
	return w, h
}

// Proportional is a deterministic measurer whose metrics scale linearly with
// the point size. It approximates an average glyph at 60% of the em square
// with 20% leading, which keeps headless layout stable across scales.
type Proportional struct{}

func (Proportional) LineSize(spec FontSpec, s string) (w, h float64) {
	n := float64(len([]rune(s)))
	return n * spec.SizePt * 0.6, spec.SizePt * 1.2
}

// Basic measures with the fixed-size x/image Face7x13. Size-independent, so
// only suitable where the point size does not matter.
type Basic struct{}

func (Basic) LineSize(spec FontSpec, s string) (w, h float64) {
	f := basicfont.Face7x13
	d := &font.Drawer{Face: f}
	met := f.Metrics()
	return float64(d.MeasureString(s) >> 6), float64(met.Height.Round())
}
