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
	"image/color"
	"image/draw"
	"math"
	"strings"
	"testing"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	"github.com/longweekendlabs/speech-bubble-editor/internal/textlayout"
)

func testDoc(w, h int) *domain.Document {
	return domain.NewDocument(domain.MediaRef{
		Path:   "test.png",
		Kind:   domain.MediaImage,
		Width:  w,
		Height: h,
	})
}

func solidFrame(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestComputeLayoutPlain(t *testing.T) {
	doc := testDoc(800, 600)
	lay := ComputeLayout(doc, nil)
	if lay.CanvasW != 800 || lay.CanvasH != 600 {
		t.Fatalf("expected 800x600 canvas, got %gx%g", lay.CanvasW, lay.CanvasH)
	}
	if lay.PhotoY != 0 || lay.BarH != 0 {
		t.Fatalf("expected no bands, got photoY=%g barH=%g", lay.PhotoY, lay.BarH)
	}
}

func TestComputeLayoutMemeBands(t *testing.T) {
	doc := testDoc(800, 600)
	doc.Meme.Enabled = true
	lay := ComputeLayout(doc, nil)
	wantBar := 600 * BarFraction
	if math.Abs(lay.BarH-wantBar) > 1e-9 {
		t.Fatalf("expected band height %g, got %g", wantBar, lay.BarH)
	}
	if lay.PhotoY != lay.BarH {
		t.Fatalf("expected photo below the top band, got photoY=%g", lay.PhotoY)
	}
	if math.Abs(lay.CanvasH-(600+2*wantBar)) > 1e-9 {
		t.Fatalf("expected canvas to grow by two bands, got %g", lay.CanvasH)
	}
	if lay.CanvasW != 800 {
		t.Fatalf("bands must not change the width, got %g", lay.CanvasW)
	}
}

func TestComputeLayoutDual(t *testing.T) {
	doc := testDoc(800, 600)
	doc.Dual.Enabled = true
	second := image.NewRGBA(image.Rect(0, 0, 400, 300)) // 4:3, scales to 800x600
	lay := ComputeLayout(doc, second)
	if lay.SecondH != 600 {
		t.Fatalf("expected second clip scaled to photo height, got %g", lay.SecondH)
	}
	if math.Abs(lay.SecondW-800) > 1e-9 {
		t.Fatalf("expected second width 800, got %g", lay.SecondW)
	}
	if lay.SecondX != 800+DualGap {
		t.Fatalf("expected gap after first clip, got x=%g", lay.SecondX)
	}
	if math.Abs(lay.CanvasW-(800+DualGap+800)) > 1e-9 {
		t.Fatalf("expected combined width, got %g", lay.CanvasW)
	}
}

func TestComputeLayoutDualDisabledIgnoresSecond(t *testing.T) {
	doc := testDoc(800, 600)
	second := image.NewRGBA(image.Rect(0, 0, 400, 300))
	lay := ComputeLayout(doc, second)
	if lay.SecondW != 0 || lay.CanvasW != 800 {
		t.Fatalf("expected second clip ignored, got secondW=%g canvasW=%g", lay.SecondW, lay.CanvasW)
	}
}

func TestComposeOutputSize(t *testing.T) {
	doc := testDoc(200, 100)
	doc.Meme.Enabled = true
	r := New(NewLibrary(""))

	out, err := r.Compose(doc, solidFrame(200, 100, color.Black), nil, 1)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	wantH := int(math.Round(100 + 2*100*BarFraction))
	if out.Bounds().Dx() != 200 || out.Bounds().Dy() != wantH {
		t.Fatalf("expected 200x%d, got %dx%d", wantH, out.Bounds().Dx(), out.Bounds().Dy())
	}

	out2, err := r.Compose(doc, solidFrame(200, 100, color.Black), nil, 2)
	if err != nil {
		t.Fatalf("compose at 2x: %v", err)
	}
	if out2.Bounds().Dx() != 400 || out2.Bounds().Dy() != 2*wantH {
		t.Fatalf("expected 400x%d, got %dx%d", 2*wantH, out2.Bounds().Dx(), out2.Bounds().Dy())
	}
}

func TestComposeDrawsBalloonFill(t *testing.T) {
	doc := testDoc(400, 300)
	a := domain.NewAnnotation(domain.StyleOval, 200, 150, 400, 300)
	a.Text = ""
	a.Tail = nil
	doc.Add(a)

	r := New(NewLibrary(""))
	out, err := r.Compose(doc, solidFrame(400, 300, color.Black), nil, 1)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	cr, _, _, _ := out.At(200, 150).RGBA()
	if cr>>8 < 180 {
		t.Fatalf("expected light fill at balloon centre, got r=%d", cr>>8)
	}
	er, _, _, _ := out.At(5, 5).RGBA()
	if er>>8 > 30 {
		t.Fatalf("expected untouched frame at corner, got r=%d", er>>8)
	}
}

func TestComposeMemeBandsDarkenEdges(t *testing.T) {
	doc := testDoc(400, 300)
	doc.Meme.Enabled = true
	doc.Meme.TopText = " " // band without glyphs at the probe point
	doc.Meme.BottomText = " "

	r := New(NewLibrary(""))
	out, err := r.Compose(doc, solidFrame(400, 300, color.White), nil, 1)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	tr, _, _, _ := out.At(3, 2).RGBA()
	if tr>>8 > 80 {
		t.Fatalf("expected dark top band, got r=%d", tr>>8)
	}
	mr, _, _, _ := out.At(200, out.Bounds().Dy()/2).RGBA()
	if mr>>8 < 200 {
		t.Fatalf("expected the photo row untouched, got r=%d", mr>>8)
	}
}

func TestComposeEveryStyleRenders(t *testing.T) {
	r := New(NewLibrary(""))
	for _, style := range domain.Styles {
		doc := testDoc(400, 300)
		a := domain.NewAnnotation(style, 200, 150, 400, 300)
		a.Rotation = 15
		doc.Add(a)
		if _, err := r.Compose(doc, solidFrame(400, 300, color.Black), nil, 1); err != nil {
			t.Fatalf("compose with %s: %v", style, err)
		}
	}
}

func TestComposeFixedSizeTextClipsToBody(t *testing.T) {
	doc := testDoc(300, 200)
	a := domain.NewAnnotation(domain.StyleRect, 150, 100, 300, 200)
	a.AutoFit = false
	a.Text = strings.TrimSpace(strings.Repeat("spill ", 40))
	a.Font.SizePt = 26
	a.TextColor = domain.Color{R: 255, G: 0, B: 0, A: 255}
	doc.Add(a)

	r := New(NewLibrary(""))
	out, err := r.Compose(doc, solidFrame(300, 200, color.Black), nil, 1)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	// the oversized block must not leak past the body onto the frame
	body := a.Body
	const margin = 4
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if float64(x) >= body.X-margin && float64(x) <= body.X+body.W+margin &&
				float64(y) >= body.Y-margin && float64(y) <= body.Y+body.H+margin {
				continue
			}
			cr, cg, cb, _ := out.At(x, y).RGBA()
			if cr>>8 > 40 || cg>>8 > 40 || cb>>8 > 40 {
				t.Fatalf("text drawn outside the body at (%d,%d)", x, y)
			}
		}
	}
}

func TestLibraryFallbackFace(t *testing.T) {
	lib := NewLibrary("")
	face := lib.Face(domain.FontSpec{Family: "No Such Family", SizePt: 20}, 20)
	if face == nil {
		t.Fatal("expected fallback face, got nil")
	}
	again := lib.Face(domain.FontSpec{Family: "No Such Family", SizePt: 20}, 20)
	if face != again {
		t.Fatal("expected the cached face on repeat lookup")
	}
}

func TestNormalizeFontName(t *testing.T) {
	if normalizeFontName("Klee One") != "kleeone" {
		t.Fatalf("got %q", normalizeFontName("Klee One"))
	}
	if normalizeFontName("Anton-Bold") != "antonbold" {
		t.Fatalf("got %q", normalizeFontName("Anton-Bold"))
	}
}

func TestMeasurerMatchesFitting(t *testing.T) {
	lib := NewLibrary("")
	m := faceMeasurer{lib: lib}
	spec := textlayout.FontSpec{Family: "x", SizePt: 20}
	w1, h1 := m.LineSize(spec, "hello")
	if w1 <= 0 || h1 <= 0 {
		t.Fatalf("expected positive metrics, got %g x %g", w1, h1)
	}
	spec.SizePt = 40
	w2, _ := m.LineSize(spec, "hello")
	if w2 <= w1 {
		t.Fatalf("expected wider text at the larger size, got %g then %g", w1, w2)
	}
}
