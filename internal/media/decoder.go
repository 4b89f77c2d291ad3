/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package media

import (
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
)

// FrameSource yields decoded frames by source index.
type FrameSource interface {
	ReadFrame(ctx context.Context, idx int) (*image.RGBA, error)
	Close() error
}

// Decoder reads frames from a video file through an ffmpeg rawvideo pipe.
// Random access restarts the pipe with an input seek; reading the next
// sequential frame reuses the running pipe, which is what makes export and
// forward playback fast.
type Decoder struct {
	ffmpeg string
	ref    domain.MediaRef

	cmd  *exec.Cmd
	out  io.ReadCloser
	next int // source index the pipe will yield next; -1 when no pipe
}

// NewDecoder prepares a decoder for the probed media. ffmpegPath defaults to
// "ffmpeg".
func NewDecoder(ref domain.MediaRef, ffmpegPath string) *Decoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Decoder{ffmpeg: ffmpegPath, ref: ref, next: -1}
}

// ReadFrame returns the frame at idx, clamped to the clip.
func (d *Decoder) ReadFrame(ctx context.Context, idx int) (*image.RGBA, error) {
	if idx < 0 {
		idx = 0
	}
	if idx >= d.ref.FrameCount {
		idx = d.ref.FrameCount - 1
	}
	if d.out == nil || idx != d.next {
		if err := d.restart(ctx, idx); err != nil {
			return nil, err
		}
	}
	frame := image.NewRGBA(image.Rect(0, 0, d.ref.Width, d.ref.Height))
	if _, err := io.ReadFull(d.out, frame.Pix); err != nil {
		d.stop()
		return nil, fmt.Errorf("read frame %d of %s: %v: %w", idx, d.ref.Path, err, ErrDecode)
	}
	d.next = idx + 1
	return frame, nil
}

// restart reopens the pipe with an input seek to idx.
func (d *Decoder) restart(ctx context.Context, idx int) error {
	d.stop()
	seek := float64(idx) / d.ref.FPS
	cmd := exec.CommandContext(ctx, d.ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(seek, 'f', 6, 64),
		"-i", d.ref.Path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg pipe: %v: %w", err, ErrDecode)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %v: %w", err, ErrDecode)
	}
	d.cmd = cmd
	d.out = out
	d.next = idx
	return nil
}

func (d *Decoder) stop() {
	if d.cmd != nil {
		_ = d.out.Close()
		_ = d.cmd.Process.Kill()
		_ = d.cmd.Wait()
		d.cmd = nil
		d.out = nil
	}
	d.next = -1
}

// Close terminates any running pipe.
func (d *Decoder) Close() error {
	d.stop()
	return nil
}

// Player combines a frame source with the LRU cache, mirroring how the
// interactive canvas and the exporter both consume frames.
type Player struct {
	Ref   domain.MediaRef
	src   FrameSource
	cache *FrameCache
}

// NewPlayer wires a source and a cache sized for the media.
func NewPlayer(ref domain.MediaRef, src FrameSource, budgetMiB int) *Player {
	return &Player{
		Ref:   ref,
		src:   src,
		cache: NewFrameCache(ref.Width, ref.Height, budgetMiB),
	}
}

// Frame returns the frame at idx, clamped to the clip, serving cache hits
// without touching the decoder.
func (p *Player) Frame(ctx context.Context, idx int) (*image.RGBA, error) {
	if p.Ref.FrameCount > 0 {
		if idx < 0 {
			idx = 0
		}
		if idx >= p.Ref.FrameCount {
			idx = p.Ref.FrameCount - 1
		}
	}
	if f, ok := p.cache.Get(idx); ok {
		return f, nil
	}
	f, err := p.src.ReadFrame(ctx, idx)
	if err != nil {
		return nil, err
	}
	p.cache.Put(idx, f)
	return f, nil
}

// Cache exposes the player's cache for diagnostics.
func (p *Player) Cache() *FrameCache { return p.cache }

// Close releases the underlying source.
func (p *Player) Close() error { return p.src.Close() }
