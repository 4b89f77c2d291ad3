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
	"image/draw"
	"math"
	"strings"

	"github.com/gogpu/gg"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	"github.com/longweekendlabs/speech-bubble-editor/internal/textlayout"
	"github.com/longweekendlabs/speech-bubble-editor/internal/vector"
)

// Renderer composes a document over decoded frames. It is safe for use by a
// single goroutine; the export pipeline creates one per job.
type Renderer struct {
	lib *Library
}

func New(lib *Library) *Renderer { return &Renderer{lib: lib} }

// Measurer returns the text measurer backed by this renderer's fonts. The
// session layer uses it so text fitting during editing matches the
// compositor exactly.
func (r *Renderer) Measurer() textlayout.Measurer { return faceMeasurer{lib: r.lib} }

// Compose renders the document over frame at the given scale and returns the
// finished raster. second is the right-hand frame in dual mode and may be
// nil otherwise. scale 1.0 renders at native media resolution.
func (r *Renderer) Compose(doc *domain.Document, frame image.Image, second image.Image, scale float64) (*image.RGBA, error) {
	if scale <= 0 {
		scale = 1
	}
	lay := ComputeLayout(doc, second)

	outW := int(math.Round(lay.CanvasW * scale))
	outH := int(math.Round(lay.CanvasH * scale))
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	dc := gg.NewContext(outW, outH)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	drawScaled(dc, frame, 0, lay.PhotoY*scale, lay.PhotoW*scale, lay.PhotoH*scale)
	if lay.SecondW > 0 && second != nil {
		drawScaled(dc, second, lay.SecondX*scale, lay.PhotoY*scale, lay.SecondW*scale, lay.SecondH*scale)
	}

	if doc.Meme.Enabled {
		r.drawMemeBars(dc, doc, lay, scale)
	}

	// Everything below works in document coordinates.
	dc.Push()
	dc.Scale(scale, scale)
	dc.Translate(0, lay.PhotoY)
	for _, a := range doc.Annotations {
		r.drawAnnotation(dc, a)
	}
	dc.Pop()

	return toRGBA(dc.Image()), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func drawScaled(dc *gg.Context, img image.Image, x, y, w, h float64) {
	buf := gg.ImageBufFromImage(img)
	dc.DrawImageEx(buf, gg.DrawImageOptions{
		X:             x,
		Y:             y,
		DstWidth:      w,
		DstHeight:     h,
		Interpolation: gg.InterpBilinear,
	})
}

func (r *Renderer) drawAnnotation(dc *gg.Context, a *domain.Annotation) {
	rotated := a.Rotation != 0 && !a.Style.RotationLocked()
	if rotated {
		c := a.Body.Center()
		dc.Push()
		dc.RotateAbout(a.Rotation*math.Pi/180, c.X, c.Y)
	}

	switch a.Style {
	case domain.StyleOval, domain.StyleSpiky:
		r.drawBalloon(dc, a)
	case domain.StyleCloud:
		r.drawCloud(dc, a)
	case domain.StyleRect:
		r.drawRoundedBox(dc, a)
	case domain.StyleScrim:
		dc.SetColor(a.Fill.NRGBA())
		dc.DrawRectangle(a.Body.X, a.Body.Y, a.Body.W, a.Body.H)
		dc.Fill()
	case domain.StyleText, domain.StyleCaption:
		// no body shape
	}

	r.drawBodyText(dc, a)

	if rotated {
		dc.Pop()
	}
}

// drawBalloon paints an oval or spiky body merged with its tail triangle.
// The border is stroked first at twice its width for every component, then
// all components are filled on top: the fill covers the inner stroke halves
// anywhere inside the union, so only the shared outline remains.
func (r *Renderer) drawBalloon(dc *gg.Context, a *domain.Annotation) {
	paths := []*vector.Path{bodyPath(a)}
	if a.Tail != nil {
		tri := vector.TailTriangle(a.Body, *a.Tail)
		p := &vector.Path{}
		p.MoveTo(tri[0].X, tri[0].Y)
		p.LineTo(tri[1].X, tri[1].Y)
		p.LineTo(tri[2].X, tri[2].Y)
		p.Close()
		paths = append(paths, p)
	}

	if a.BorderWidth > 0 {
		dc.SetColor(a.Border.NRGBA())
		dc.SetLineWidth(a.BorderWidth * 2)
		dc.SetLineJoin(gg.LineJoinRound)
		for _, p := range paths {
			tracePath(dc, p)
			dc.Stroke()
		}
	}
	dc.SetColor(a.Fill.NRGBA())
	for _, p := range paths {
		tracePath(dc, p)
		dc.Fill()
	}
}

// drawCloud paints the overlapping bump circles the same way, then the
// trailing thought dots as plain circles.
func (r *Renderer) drawCloud(dc *gg.Context, a *domain.Annotation) {
	bumps := vector.CloudBumps(a.Body)

	if a.BorderWidth > 0 {
		dc.SetColor(a.Border.NRGBA())
		dc.SetLineWidth(a.BorderWidth * 2)
		for _, b := range bumps {
			dc.DrawCircle(b.C.X, b.C.Y, b.R)
			dc.Stroke()
		}
	}
	dc.SetColor(a.Fill.NRGBA())
	for _, b := range bumps {
		dc.DrawCircle(b.C.X, b.C.Y, b.R)
		dc.Fill()
	}

	if a.Tail == nil {
		return
	}
	for _, d := range vector.ThoughtDots(a.Body, *a.Tail) {
		dc.DrawCircle(d.C.X, d.C.Y, d.R)
		dc.SetColor(a.Fill.NRGBA())
		dc.FillPreserve()
		if a.BorderWidth > 0 {
			dc.SetColor(a.Border.NRGBA())
			dc.SetLineWidth(a.BorderWidth)
			dc.Stroke()
		} else {
			dc.ClearPath()
		}
	}
}

func (r *Renderer) drawRoundedBox(dc *gg.Context, a *domain.Annotation) {
	rad := math.Min(16, math.Min(a.Body.W, a.Body.H)/2)
	dc.DrawRoundedRectangle(a.Body.X, a.Body.Y, a.Body.W, a.Body.H, rad)
	dc.SetColor(a.Fill.NRGBA())
	dc.FillPreserve()
	if a.BorderWidth > 0 {
		dc.SetColor(a.Border.NRGBA())
		dc.SetLineWidth(a.BorderWidth)
		dc.Stroke()
	} else {
		dc.ClearPath()
	}
}

func bodyPath(a *domain.Annotation) *vector.Path {
	if a.Style == domain.StyleSpiky {
		return vector.SpikyPath(a.Body)
	}
	return vector.OvalPath(a.Body)
}

func tracePath(dc *gg.Context, p *vector.Path) {
	for _, c := range p.Cmds {
		switch c.Op {
		case vector.MoveTo:
			dc.MoveTo(c.Data[0], c.Data[1])
		case vector.LineTo:
			dc.LineTo(c.Data[0], c.Data[1])
		case vector.QuadTo:
			dc.QuadraticTo(c.Data[0], c.Data[1], c.Data[2], c.Data[3])
		case vector.CubicTo:
			dc.CubicTo(c.Data[0], c.Data[1], c.Data[2], c.Data[3], c.Data[4], c.Data[5])
		case vector.Close:
			dc.ClosePath()
		}
	}
}

// drawBodyText lays the annotation text into its body and draws it line by
// line, each line centred in the wrap column. Captions additionally get an
// outline by repainting the text offset in eight directions.
func (r *Renderer) drawBodyText(dc *gg.Context, a *domain.Annotation) {
	content := a.Text
	if a.Font.Uppercase {
		content = strings.ToUpper(content)
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	m := faceMeasurer{lib: r.lib}
	var fit textlayout.FitResult
	if a.AutoFit {
		fit = textlayout.FitBody(m, layoutSpec(a.Font), content, a.Body, a.Style == domain.StyleOval)
	} else {
		// fixed size: the text stays at Font.SizePt and is clipped to the body
		fit = textlayout.FixedBody(m, layoutSpec(a.Font), content, a.Body, a.Style == domain.StyleOval)
		dc.Push()
		dc.ClipRect(a.Body.X, a.Body.Y, a.Body.W, a.Body.H)
		defer dc.Pop()
	}

	face := r.lib.Face(a.Font, fit.SizePt)
	dc.SetFont(face)
	ascent := face.Metrics().Ascent

	spec := layoutSpec(a.Font)
	spec.SizePt = fit.SizePt
	y := fit.Origin.Y
	for _, line := range fit.Lines {
		lw, lh := m.LineSize(spec, line)
		x := fit.Origin.X + (fit.WrapWidth-lw)/2
		base := y + ascent
		if a.Style == domain.StyleCaption && a.BorderWidth > 0 {
			off := math.Max(1, math.Round(a.BorderWidth))
			dc.SetColor(a.Border.NRGBA())
			for _, d := range [8][2]float64{
				{-1, -1}, {0, -1}, {1, -1},
				{-1, 0}, {1, 0},
				{-1, 1}, {0, 1}, {1, 1},
			} {
				dc.DrawString(line, x+d[0]*off, base+d[1]*off)
			}
		}
		dc.SetColor(a.TextColor.NRGBA())
		dc.DrawString(line, x, base)
		y += lh
	}
}
