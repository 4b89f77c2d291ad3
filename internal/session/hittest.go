/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"math"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	"github.com/longweekendlabs/speech-bubble-editor/internal/vector"
)

// hitHandle tests p against the eight resize handles of a, in the
// annotation's local (unrotated) frame.
func hitHandle(a *domain.Annotation, p vector.Pt) (vector.Anchor, bool) {
	local := vector.ToLocal(a.Body, a.Rotation*math.Pi/180, p)
	for anchor := vector.AnchorTL; anchor <= vector.AnchorBR; anchor++ {
		if vector.HandleRect(a.Body, anchor).Contains(local) {
			return anchor, true
		}
	}
	return 0, false
}

// hitBody tests p against the annotation's shape outline, not just its
// bounding box, so clicks in the empty corners of an oval fall through.
func hitBody(a *domain.Annotation, p vector.Pt) bool {
	local := vector.ToLocal(a.Body, a.Rotation*math.Pi/180, p)
	switch a.Style {
	case domain.StyleOval:
		return vector.OvalContains(a.Body, local)
	case domain.StyleCloud:
		return vector.CloudContains(a.Body, local)
	case domain.StyleSpiky:
		return vector.SpikyContains(a.Body, local)
	default:
		return a.Body.Contains(local)
	}
}

// topmostAt returns the highest-z annotation whose shape contains p.
func topmostAt(d *domain.Document, p vector.Pt) *domain.Annotation {
	for i := len(d.Annotations) - 1; i >= 0; i-- {
		if hitBody(d.Annotations[i], p) {
			return d.Annotations[i]
		}
	}
	return nil
}
