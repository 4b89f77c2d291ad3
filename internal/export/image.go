/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes finished stills, PDFs and videos from a composed
// document. Image and PDF exports are synchronous; video export runs as a
// background job reporting progress over a channel.
package export

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	"github.com/longweekendlabs/speech-bubble-editor/internal/media"
	"github.com/longweekendlabs/speech-bubble-editor/internal/render"
)

// StillOptions controls single-image export behavior.
// Zero values get sensible defaults: png format, quality 90, scale 1.
type StillOptions struct {
	Format  string  // "png", "jpeg" or "webp"; default "png"
	Quality int     // 1..100, lossy formats only; default 90
	Scale   float64 // raster scale relative to native media size
	FFmpeg  string  // ffmpeg binary for webp encoding
	Run     media.Runner
}

// ExportStill composes the document over frame (plus the optional second
// frame in dual mode) and writes the result to outPath in the requested
// format. WebP goes through ffmpeg since there is no native encoder.
func ExportStill(ctx context.Context, r *render.Renderer, doc *domain.Document, frame, second image.Image, outPath string, opt StillOptions) error {
	if r == nil || doc == nil || frame == nil {
		return fmt.Errorf("renderer, document and frame are required")
	}
	format := strings.ToLower(opt.Format)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(outPath)), ".")
	}
	if format == "jpg" {
		format = "jpeg"
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = 1
	}

	img, err := r.Compose(doc, frame, second, scale)
	if err != nil {
		return fmt.Errorf("compose still: %w", err)
	}

	switch format {
	case "", "png":
		return writePNG(outPath, img)
	case "jpeg":
		q := opt.Quality
		if q <= 0 || q > 100 {
			q = 90
		}
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		if err := jpeg.Encode(f, img, &jpeg.Options{Quality: q}); err != nil {
			f.Close()
			return fmt.Errorf("encode jpeg: %w", err)
		}
		return f.Close()
	case "webp":
		return writeWebP(ctx, outPath, img, opt)
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

// writeWebP writes a temporary PNG next to the target and converts it with
// ffmpeg, which is already a runtime requirement for video media.
func writeWebP(ctx context.Context, outPath string, img image.Image, opt StillOptions) error {
	ffmpeg := opt.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	run := opt.Run
	if run == nil {
		run = media.ExecRunner
	}
	q := opt.Quality
	if q <= 0 || q > 100 {
		q = 90
	}
	tmp := outPath + ".tmp.png"
	if err := writePNG(tmp, img); err != nil {
		return err
	}
	defer os.Remove(tmp)
	if out, err := run(ctx, ffmpeg, "-y", "-i", tmp, "-quality", fmt.Sprint(q), outPath); err != nil {
		return fmt.Errorf("ffmpeg webp encode: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
