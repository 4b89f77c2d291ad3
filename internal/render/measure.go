/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	ggtext "github.com/gogpu/gg/text"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	"github.com/longweekendlabs/speech-bubble-editor/internal/textlayout"
)

// faceMeasurer measures text with the same faces the compositor draws with,
// so fitted sizes match what ends up on the canvas.
type faceMeasurer struct {
	lib *Library
}

var _ textlayout.Measurer = faceMeasurer{}

func (m faceMeasurer) LineSize(spec textlayout.FontSpec, s string) (w, h float64) {
	face := m.lib.Face(domain.FontSpec{
		Family: spec.Family,
		Bold:   spec.Bold,
		Italic: spec.Italic,
	}, spec.SizePt)
	w, h = ggtext.Measure(s, face)
	if h <= 0 {
		h = spec.SizePt * 1.2
	}
	return w, h
}

func layoutSpec(f domain.FontSpec) textlayout.FontSpec {
	return textlayout.FontSpec{
		Family: f.Family,
		SizePt: f.SizePt,
		Bold:   f.Bold,
		Italic: f.Italic,
	}
}
