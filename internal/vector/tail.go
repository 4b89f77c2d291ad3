/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Tail geometry: the triangular wedge for speech balloons and the dot chain
// for thought clouds.

import "math"

// TailHalfWidth is the half-width of the tail triangle at the body centre.
const TailHalfWidth = 13

// TailTriangle returns the wedge from the body centre to the tip. United with
// the body outline only the exterior part is visible, giving a narrow,
// sharp tail emerging from the balloon edge.
func TailTriangle(body Rect, tip Pt) [3]Pt {
	c := body.Center()
	dx := tip.X - c.X
	dy := tip.Y - c.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		dist = 1
	}
	nx, ny := dy/dist, -dx/dist
	return [3]Pt{
		{c.X + nx*TailHalfWidth, c.Y + ny*TailHalfWidth},
		tip,
		{c.X - nx*TailHalfWidth, c.Y - ny*TailHalfWidth},
	}
}

// cloudEdgeDistance bisects along the ray from the body centre toward tip for
// the distance at which the ray leaves the cloud silhouette. Direction-aware,
// so the dot chain starts just outside the cloud whichever way the tail
// points. The returned distance includes a 6 px gap.
func cloudEdgeDistance(body Rect, tip Pt) float64 {
	c := body.Center()
	dx := tip.X - c.X
	dy := tip.Y - c.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		dist = 1
	}
	ux, uy := dx/dist, dy/dist

	lo, hi := 0.0, math.Min(dist, math.Max(body.W, body.H))
	for i := 0; i < 20; i++ {
		mid := (lo + hi) / 2
		if CloudContains(body, Pt{c.X + ux*mid, c.Y + uy*mid}) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi + 6
}

// ThoughtDot is one circle of the thought-cloud dot chain.
type ThoughtDot struct {
	C Pt
	R float64
}

// ThoughtDots returns the dot chain from the cloud edge toward the tip. Dots
// scale in size and spacing with the available tail length: a short tail
// shows two small dots, a long one up to five larger ones.
func ThoughtDots(body Rect, tip Pt) []ThoughtDot {
	c := body.Center()
	dx := tip.X - c.X
	dy := tip.Y - c.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		dist = 1
	}
	ux, uy := dx/dist, dy/dist

	edge := cloudEdgeDistance(body, tip)
	available := math.Max(0, dist-edge-8)
	if available < 10 {
		return nil
	}

	// 1.0 around 60 px of tail, capped at 2.2 for very long tails.
	scale := math.Min(2.2, math.Max(0.7, available/60))

	type spec struct {
		frac float64
		base float64
	}
	specs := []spec{{0.12, 11}, {0.38, 8}, {0.60, 6}}
	if available > 80 {
		specs = append(specs, spec{0.75, 4})
	}
	if available > 140 {
		specs = append(specs, spec{0.87, 3})
	}

	var dots []ThoughtDot
	for _, s := range specs {
		rad := math.Max(2, math.Trunc(s.base*scale))
		d := edge + s.frac*available
		if d+rad > dist-5 {
			break
		}
		dots = append(dots, ThoughtDot{C: Pt{c.X + ux*d, c.Y + uy*d}, R: rad})
	}
	return dots
}
