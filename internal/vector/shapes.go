/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Body outlines for the annotation styles. All paths are built in document
// coordinates from the unrotated body rect; callers apply rotation.

import "math"

// ellipseK is the bezier control constant approximating a quarter ellipse.
const ellipseK = 0.5523

// OvalPath returns a smooth oval built from four cubic segments. The cubic
// construction gives a slightly more organic silhouette than a true ellipse.
func OvalPath(r Rect) *Path {
	cx, cy := r.Center().X, r.Center().Y
	w2, h2 := r.W/2, r.H/2
	k := ellipseK
	p := &Path{}
	p.MoveTo(cx, cy-h2)
	p.CubicTo(cx+w2*k, cy-h2, cx+w2, cy-h2*k, cx+w2, cy)
	p.CubicTo(cx+w2, cy+h2*k, cx+w2*k, cy+h2, cx, cy+h2)
	p.CubicTo(cx-w2*k, cy+h2, cx-w2, cy+h2*k, cx-w2, cy)
	p.CubicTo(cx-w2, cy-h2*k, cx-w2*k, cy-h2, cx, cy-h2)
	p.Close()
	return p
}

// OvalContains reports whether p lies inside the oval inscribed in r.
func OvalContains(r Rect, p Pt) bool {
	if r.W <= 0 || r.H <= 0 {
		return false
	}
	c := r.Center()
	nx := (p.X - c.X) / (r.W / 2)
	ny := (p.Y - c.Y) / (r.H / 2)
	return nx*nx+ny*ny <= 1
}

// CloudBump is one circle of the cloud silhouette.
type CloudBump struct {
	C Pt
	R float64
}

// cloudFractions positions each bump relative to the body rect:
// (fraction-x, fraction-y, radius-fraction-of-min-dimension).
var cloudFractions = [9][3]float64{
	{0.14, 0.62, 0.22},
	{0.28, 0.42, 0.28},
	{0.48, 0.34, 0.31},
	{0.68, 0.42, 0.28},
	{0.84, 0.62, 0.22},
	{0.80, 0.78, 0.23},
	{0.62, 0.84, 0.26},
	{0.38, 0.84, 0.26},
	{0.18, 0.78, 0.21},
}

// CloudBumps returns the nine circles whose union forms the thought cloud.
// Rendering with a nonzero winding fill traces the outer silhouette only,
// with no internal rings.
func CloudBumps(r Rect) []CloudBump {
	minDim := math.Min(r.W, r.H)
	out := make([]CloudBump, 0, len(cloudFractions))
	for _, f := range cloudFractions {
		out = append(out, CloudBump{
			C: Pt{r.X + f[0]*r.W, r.Y + f[1]*r.H},
			R: f[2] * minDim,
		})
	}
	return out
}

// CloudContains reports whether p lies inside the union of the cloud bumps.
func CloudContains(r Rect, p Pt) bool {
	for _, b := range CloudBumps(r) {
		if Dist(b.C, p) <= b.R {
			return true
		}
	}
	return false
}

// spikeCount is the number of spike tips on the shout balloon.
const spikeCount = 18

// SpikyPoints returns the starburst polygon, alternating spike tips and
// valleys around the ellipse inscribed in r. Tip radii vary with a fixed
// sinusoidal pattern so the outline looks hand-drawn rather than mechanical.
func SpikyPoints(r Rect) []Pt {
	cx, cy := r.Center().X, r.Center().Y
	rx, ry := r.W/2, r.H/2
	pts := make([]Pt, 0, spikeCount*2)
	for i := 0; i < spikeCount*2; i++ {
		angle := math.Pi*float64(i)/spikeCount - math.Pi/2
		var sx, sy float64
		if i%2 == 0 {
			variation := 1.0 + 0.22*math.Sin(float64(i)*1.9+0.8)
			sx = cx + math.Cos(angle)*rx*variation
			sy = cy + math.Sin(angle)*ry*variation
		} else {
			sx = cx + math.Cos(angle)*rx*0.64
			sy = cy + math.Sin(angle)*ry*0.64
		}
		pts = append(pts, Pt{sx, sy})
	}
	return pts
}

// SpikyPath returns the closed starburst outline.
func SpikyPath(r Rect) *Path {
	pts := SpikyPoints(r)
	p := &Path{}
	for i, q := range pts {
		if i == 0 {
			p.MoveTo(q.X, q.Y)
		} else {
			p.LineTo(q.X, q.Y)
		}
	}
	p.Close()
	return p
}

// SpikyContains tests p against the starburst polygon with an even-odd rule.
func SpikyContains(r Rect, p Pt) bool {
	return PolygonContains(SpikyPoints(r), p)
}

// RoundedRectPath returns a rectangle with corner radius rad, clamped so the
// corners never overlap.
func RoundedRectPath(r Rect, rad float64) *Path {
	rad = math.Min(rad, math.Min(r.W, r.H)/2)
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.W, r.Y+r.H
	k := rad * ellipseK
	p := &Path{}
	p.MoveTo(x0+rad, y0)
	p.LineTo(x1-rad, y0)
	p.CubicTo(x1-rad+k, y0, x1, y0+rad-k, x1, y0+rad)
	p.LineTo(x1, y1-rad)
	p.CubicTo(x1, y1-rad+k, x1-rad+k, y1, x1-rad, y1)
	p.LineTo(x0+rad, y1)
	p.CubicTo(x0+rad-k, y1, x0, y1-rad+k, x0, y1-rad)
	p.LineTo(x0, y0+rad)
	p.CubicTo(x0, y0+rad-k, x0+rad-k, y0, x0+rad, y0)
	p.Close()
	return p
}

// PolygonContains runs a ray-crossing test of p against a closed polygon.
func PolygonContains(poly []Pt, p Pt) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}
