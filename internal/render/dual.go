/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
)

// BarFraction is the height of one meme band as a fraction of the photo
// height. The bands sit outside the photo, so the canvas grows by two bands.
const BarFraction = 0.065

// DualGap is the horizontal spacing between the two clips in dual mode, in
// document units.
const DualGap = 4.0

// Layout is the document-unit geometry of the composed canvas: where the
// photo(s) sit and how much the meme bands add. All fields are in document
// coordinates; callers multiply by their raster scale.
type Layout struct {
	CanvasW float64
	CanvasH float64

	PhotoY float64 // top of the photo row; equals BarH
	PhotoW float64
	PhotoH float64

	BarH float64 // one band's height, 0 when meme bands are off

	// Second clip placement in dual mode; SecondW is 0 otherwise.
	SecondX float64
	SecondW float64
	SecondH float64
}

// ComputeLayout derives the canvas geometry for a document and an optional
// second frame. The second frame is scaled to the primary photo height and
// placed to its right with a small gap; meme bands extend the canvas above
// and below the photo row without covering it.
func ComputeLayout(doc *domain.Document, second image.Image) Layout {
	sw, sh := doc.SceneSize()
	lay := Layout{PhotoW: sw, PhotoH: sh, CanvasW: sw, CanvasH: sh}

	if doc.Dual.Enabled && second != nil {
		b := second.Bounds()
		if b.Dx() > 0 && b.Dy() > 0 {
			lay.SecondH = sh
			lay.SecondW = float64(b.Dx()) * sh / float64(b.Dy())
			lay.SecondX = sw + DualGap
			lay.CanvasW = lay.SecondX + lay.SecondW
		}
	}

	if doc.Meme.Enabled {
		lay.BarH = sh * BarFraction
		lay.PhotoY = lay.BarH
		lay.CanvasH = sh + 2*lay.BarH
	}
	return lay
}
