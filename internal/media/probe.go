/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package media decodes source media: probing properties, reading video
// frames through ffmpeg and caching decoded frames.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// ErrDecode is returned when media cannot be opened or decoded.
var ErrDecode = errors.New("media decode failed")

// VideoExtensions are the file extensions treated as video sources.
var VideoExtensions = []string{
	".mp4", ".mov", ".avi", ".webm", ".mkv",
	".m4v", ".flv", ".wmv", ".ts", ".mts",
}

// IsVideoPath reports whether the path has a known video extension.
func IsVideoPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range VideoExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Runner executes an external tool and returns its stdout. Tests inject a
// fake; production uses ExecRunner.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the tool via os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ffprobe JSON shapes, limited to the fields we read.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	NbFrames   string `json:"nb_frames"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// Prober reads media properties.
type Prober struct {
	FFprobe string // ffprobe binary, default "ffprobe"
	Run     Runner
}

func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{FFprobe: ffprobePath, Run: ExecRunner}
}

// Probe inspects the file and returns a MediaRef. Video files go through
// ffprobe; still images are decoded with the standard image config readers.
func (p *Prober) Probe(ctx context.Context, path string) (domain.MediaRef, error) {
	if IsVideoPath(path) {
		return p.probeVideo(ctx, path)
	}
	return probeImage(path)
}

func (p *Prober) probeVideo(ctx context.Context, path string) (domain.MediaRef, error) {
	run := p.Run
	if run == nil {
		run = ExecRunner
	}
	out, err := run(ctx, p.FFprobe,
		"-v", "error",
		"-show_streams", "-show_format",
		"-of", "json",
		path)
	if err != nil {
		return domain.MediaRef{}, fmt.Errorf("ffprobe %s: %v: %w", path, err, ErrDecode)
	}
	var po probeOutput
	if err := json.Unmarshal(out, &po); err != nil {
		return domain.MediaRef{}, fmt.Errorf("ffprobe output: %v: %w", err, ErrDecode)
	}

	ref := domain.MediaRef{Path: path, Kind: domain.MediaVideo}
	var fps float64
	for _, st := range po.Streams {
		switch st.CodecType {
		case "video":
			if ref.Width != 0 {
				continue // first video stream wins
			}
			ref.Width = st.Width
			ref.Height = st.Height
			fps = parseRate(st.RFrameRate)
			if n, err := strconv.Atoi(st.NbFrames); err == nil {
				ref.FrameCount = n
			}
		case "audio":
			ref.HasAudio = true
		}
	}
	if ref.Width == 0 || ref.Height == 0 {
		return domain.MediaRef{}, fmt.Errorf("%s: no video stream: %w", path, ErrDecode)
	}
	if fps <= 0 {
		fps = 25.0
	}
	ref.FPS = fps
	if ref.FrameCount == 0 {
		if dur, err := strconv.ParseFloat(po.Format.Duration, 64); err == nil {
			ref.FrameCount = int(math.Round(dur * fps))
		}
	}
	if ref.FrameCount <= 0 {
		return domain.MediaRef{}, fmt.Errorf("%s: empty video: %w", path, ErrDecode)
	}
	return ref, nil
}

// parseRate parses an ffprobe rational like "30000/1001".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func probeImage(path string) (domain.MediaRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.MediaRef{}, fmt.Errorf("open %s: %v: %w", path, err, ErrDecode)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return domain.MediaRef{}, fmt.Errorf("decode %s: %v: %w", path, err, ErrDecode)
	}
	return domain.MediaRef{
		Path: path, Kind: domain.MediaImage,
		Width: cfg.Width, Height: cfg.Height,
	}, nil
}

// LoadImage decodes a still image into RGBA.
func LoadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", path, err, ErrDecode)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", path, err, ErrDecode)
	}
	return ToRGBA(img), nil
}

// ToRGBA converts any image to RGBA without copying when already RGBA.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
