/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/jung-kurt/gofpdf"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	"github.com/longweekendlabs/speech-bubble-editor/internal/render"
)

// PDFOptions controls PDF export.
// DPI maps the raster to page points (1pt = 1/72"); zero means 150.
type PDFOptions struct {
	DPI   int
	Scale float64
}

// ExportPDF composes the document and embeds the raster into a single-page
// PDF sized to the image at the requested DPI.
func ExportPDF(r *render.Renderer, doc *domain.Document, frame, second image.Image, outPath string, opt PDFOptions) error {
	if r == nil || doc == nil || frame == nil {
		return fmt.Errorf("renderer, document and frame are required")
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = 1
	}
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = 150
	}

	img, err := r.Compose(doc, frame, second, scale)
	if err != nil {
		return fmt.Errorf("compose page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode page image: %w", err)
	}

	ptPerPx := 72.0 / float64(dpi)
	pageW := math.Round(float64(img.Bounds().Dx())*ptPerPx*100) / 100
	pageH := math.Round(float64(img.Bounds().Dy())*ptPerPx*100) / 100

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: pageW, Ht: pageH})

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("frame", opts, &buf)
	pdf.ImageOptions("frame", 0, 0, pageW, pageH, false, opts, 0, "")

	if pdf.Err() {
		return fmt.Errorf("build pdf: %v", pdf.Error())
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
