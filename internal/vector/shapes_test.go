/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"
	"testing"
)

func TestOvalPathBounds(t *testing.T) {
	r := R(0, 0, 220, 130)
	b := OvalPath(r).Bounds()
	if b.W < 200 || b.W > 220 || b.H < 120 || b.H > 130 {
		t.Fatalf("oval bounds look wrong: %+v", b)
	}
}

func TestOvalContains(t *testing.T) {
	r := R(0, 0, 200, 100)
	if !OvalContains(r, r.Center()) {
		t.Fatalf("centre must be inside")
	}
	if OvalContains(r, Pt{1, 1}) {
		t.Fatalf("corner must be outside the inscribed oval")
	}
	if !OvalContains(r, Pt{199, 50}) {
		t.Fatalf("right extremity must be inside")
	}
}

func TestCloudBumps(t *testing.T) {
	r := R(0, 0, 220, 130)
	bumps := CloudBumps(r)
	if len(bumps) != 9 {
		t.Fatalf("expected 9 bumps, got %d", len(bumps))
	}
	// largest bump is the top-centre one
	if !almostEq(bumps[2].R, 0.31*130, 1e-9) {
		t.Fatalf("bump radius = %v", bumps[2].R)
	}
	if !CloudContains(r, Pt{0.48 * 220, 0.34 * 130}) {
		t.Fatalf("bump centre must be inside cloud")
	}
	if CloudContains(r, Pt{-100, -100}) {
		t.Fatalf("far point must be outside cloud")
	}
}

func TestSpikyPoints(t *testing.T) {
	r := R(0, 0, 220, 130)
	pts := SpikyPoints(r)
	if len(pts) != 36 {
		t.Fatalf("expected 36 points, got %d", len(pts))
	}
	c := r.Center()
	// valleys sit strictly inside tip radius
	tip0 := Dist(c, pts[0])
	valley := Dist(c, pts[1])
	if valley >= tip0 {
		t.Fatalf("valley %v not inside tip %v", valley, tip0)
	}
	if !SpikyContains(r, c) {
		t.Fatalf("centre must be inside starburst")
	}
}

func TestSpikyTipVariation(t *testing.T) {
	r := R(0, 0, 200, 200)
	pts := SpikyPoints(r)
	c := r.Center()
	want := 100 * (1.0 + 0.22*math.Sin(0.8))
	if got := Dist(c, pts[0]); !almostEq(got, want, 1e-9) {
		t.Fatalf("tip 0 radius = %v, want %v", got, want)
	}
}

func TestRoundedRectPathClampsRadius(t *testing.T) {
	b := RoundedRectPath(R(0, 0, 20, 10), 50).Bounds()
	if b.W > 20+1e-9 || b.H > 10+1e-9 {
		t.Fatalf("rounded rect escaped its bounds: %+v", b)
	}
}

func TestPolygonContains(t *testing.T) {
	sq := []Pt{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	if !PolygonContains(sq, Pt{5, 5}) {
		t.Fatalf("inside point reported outside")
	}
	if PolygonContains(sq, Pt{15, 5}) {
		t.Fatalf("outside point reported inside")
	}
}
