/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Balloon text fitting: wrap the text into the body, shrink the font when the
// body is capped, and grow the body vertically when the text still needs more
// room.

import (
	"errors"
	"math"

	"github.com/longweekendlabs/speech-bubble-editor/internal/vector"
)

// ErrOverflow is returned when text cannot fit a fixed region even at the
// minimum font size.
var ErrOverflow = errors.New("text does not fit")

// MinFitSizePt is the smallest point size auto-shrink will go to.
const MinFitSizePt = 7

// FitResult is a fitted text block inside a (possibly grown) body rect.
type FitResult struct {
	SizePt     float64     // fitted point size, <= the requested size
	Lines      []string    // wrapped lines at SizePt
	WrapWidth  float64     // width the text was wrapped to
	TextWidth  float64     // widest laid-out line
	TextHeight float64     // total block height
	Body       vector.Rect // body after vertical auto-grow
	Origin     vector.Pt   // top-left of the centred text block area
}

// FitBody lays text into a balloon body. Oval bodies narrow sharply toward
// the top and bottom, so their text column is only 55% of the width and the
// auto-grow cap is higher; every other shape uses the width minus padding.
// The font shrinks (down to MinFitSizePt) only when the text would push the
// body past its cap; otherwise the body grows about its centre.
func FitBody(m Measurer, spec FontSpec, text string, body vector.Rect, oval bool) FitResult {
	var tw, vpad, capH float64
	if oval {
		tw = math.Max(40, body.W*0.55)
		vpad = 40
		capH = math.Max(body.H, body.W*1.1)
	} else {
		tw = math.Max(40, body.W-24)
		vpad = 24
		capH = math.Max(body.H, 650)
	}

	size := spec.SizePt
	lines := WordWrap(m, sized(spec, size), text, tw)
	_, th := BlockSize(m, sized(spec, size), lines)
	needed := th + vpad

	if needed > capH && size > MinFitSizePt {
		size = searchSize(size, MinFitSizePt, func(pt float64) bool {
			ls := WordWrap(m, sized(spec, pt), text, tw)
			_, h := BlockSize(m, sized(spec, pt), ls)
			return h+vpad <= capH
		})
		lines = WordWrap(m, sized(spec, size), text, tw)
		_, th = BlockSize(m, sized(spec, size), lines)
		needed = th + vpad
	}

	out := body
	if out.H < needed {
		cy := out.Y + out.H/2
		out.Y = cy - needed/2
		out.H = needed
	}

	bw, _ := BlockSize(m, sized(spec, size), lines)
	return FitResult{
		SizePt:     size,
		Lines:      lines,
		WrapWidth:  tw,
		TextWidth:  bw,
		TextHeight: th,
		Body:       out,
		Origin: vector.Pt{
			X: out.X + (out.W-tw)/2,
			Y: out.Y + (out.H-th)/2,
		},
	}
}

// FixedBody lays text into the body at exactly spec.SizePt: no shrink and no
// auto-grow. It uses the same wrap column as FitBody, but the block may spill
// past the body; callers clip when drawing.
func FixedBody(m Measurer, spec FontSpec, text string, body vector.Rect, oval bool) FitResult {
	tw := math.Max(40, body.W-24)
	if oval {
		tw = math.Max(40, body.W*0.55)
	}
	lines := WordWrap(m, spec, text, tw)
	bw, th := BlockSize(m, spec, lines)
	return FitResult{
		SizePt:     spec.SizePt,
		Lines:      lines,
		WrapWidth:  tw,
		TextWidth:  bw,
		TextHeight: th,
		Body:       body,
		Origin: vector.Pt{
			X: body.X + (body.W-tw)/2,
			Y: body.Y + (body.H-th)/2,
		},
	}
}

// Shrink fits text into a fixed region by stepping the point size down from
// spec.SizePt to minPt. Unlike FitBody the region never grows; if even minPt
// overflows, ErrOverflow is returned with the minPt layout so callers can
// still draw a best effort.
func Shrink(m Measurer, spec FontSpec, text string, maxW, maxH, minPt float64) (float64, []string, error) {
	fits := func(pt float64) bool {
		lines := WordWrap(m, sized(spec, pt), text, maxW)
		w, h := BlockSize(m, sized(spec, pt), lines)
		return w <= maxW && h <= maxH
	}
	size := searchSize(spec.SizePt, minPt, fits)
	lines := WordWrap(m, sized(spec, size), text, maxW)
	if !fits(size) {
		return size, lines, ErrOverflow
	}
	return size, lines, nil
}

// searchSize finds the largest point size in [minPt, base], stepping down a
// whole point at a time, whose layout satisfies fits. Fitting is monotone in
// the point size for the measurers in use, so a bisection over the step count
// lands on the answer directly; a linear walk downward afterwards covers a
// face whose wrapping breaks monotonicity. The last candidate is clamped to
// exactly minPt and is returned even when nothing fits; a base at or below
// minPt is kept as-is.
func searchSize(base, minPt float64, fits func(pt float64) bool) float64 {
	if base <= minPt {
		return base
	}
	maxStep := int(math.Ceil(base - minPt))
	at := func(k int) float64 {
		return math.Max(base-float64(k), minPt)
	}
	lo, hi := 0, maxStep
	for lo < hi {
		mid := (lo + hi) / 2
		if fits(at(mid)) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	for lo < maxStep && !fits(at(lo)) {
		lo++
	}
	return at(lo)
}

func sized(spec FontSpec, pt float64) FontSpec {
	spec.SizePt = pt
	return spec
}
