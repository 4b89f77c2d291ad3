/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"strings"
	"testing"
)

func TestWordWrapBreaksOnWidth(t *testing.T) {
	m := Proportional{}
	spec := FontSpec{SizePt: 10} // glyph width 6
	lines := WordWrap(m, spec, "aaaa bbbb cccc", 60)
	// "aaaa bbbb" is 9 runes = 54 <= 60, adding " cccc" makes 84 > 60
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != "aaaa bbbb" || lines[1] != "cccc" {
		t.Fatalf("lines = %q", lines)
	}
}

func TestWordWrapKeepsLongWordWhole(t *testing.T) {
	m := Proportional{}
	lines := WordWrap(m, FontSpec{SizePt: 10}, "supercalifragilistic", 30)
	if len(lines) != 1 || lines[0] != "supercalifragilistic" {
		t.Fatalf("lines = %q", lines)
	}
}

func TestWordWrapHonorsNewlines(t *testing.T) {
	m := Proportional{}
	lines := WordWrap(m, FontSpec{SizePt: 10}, "a\n\nb", 1000)
	if len(lines) != 3 || lines[1] != "" {
		t.Fatalf("lines = %q", lines)
	}
}

func TestBlockSize(t *testing.T) {
	m := Proportional{}
	spec := FontSpec{SizePt: 10}
	w, h := BlockSize(m, spec, []string{"ab", "abcd"})
	if w != 4*6 {
		t.Fatalf("width = %v", w)
	}
	if h != 2*12 {
		t.Fatalf("height = %v", h)
	}
}

func TestProportionalScalesLinearly(t *testing.T) {
	m := Proportional{}
	w1, h1 := m.LineSize(FontSpec{SizePt: 20}, "hello")
	w2, h2 := m.LineSize(FontSpec{SizePt: 40}, "hello")
	if w2 != 2*w1 || h2 != 2*h1 {
		t.Fatalf("expected linear scaling: (%v,%v) vs (%v,%v)", w1, h1, w2, h2)
	}
}

func TestBasicMeasurerStable(t *testing.T) {
	m := Basic{}
	w1, h1 := m.LineSize(FontSpec{SizePt: 20}, "hello")
	w2, h2 := m.LineSize(FontSpec{SizePt: 40}, "hello")
	if w1 != w2 || h1 != h2 {
		t.Fatalf("fixed face must ignore point size")
	}
	if w1 <= 0 || h1 <= 0 {
		t.Fatalf("degenerate metrics: %v %v", w1, h1)
	}
}

func TestWordWrapManyWords(t *testing.T) {
	m := Proportional{}
	text := strings.Repeat("word ", 50)
	lines := WordWrap(m, FontSpec{SizePt: 10}, strings.TrimSpace(text), 120)
	for i, line := range lines {
		if w, _ := m.LineSize(FontSpec{SizePt: 10}, line); w > 120 {
			t.Fatalf("line %d overflows: %q (%v)", i, line, w)
		}
	}
}
