/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	applog "github.com/longweekendlabs/speech-bubble-editor/internal/log"
	"github.com/longweekendlabs/speech-bubble-editor/internal/media"
	"github.com/longweekendlabs/speech-bubble-editor/internal/render"
	"github.com/longweekendlabs/speech-bubble-editor/internal/timeline"
)

var (
	// ErrBusy is returned when a video export is already running.
	ErrBusy = errors.New("an export is already running")
	// ErrEncode wraps encoder failures.
	ErrEncode = errors.New("video encode failed")
	// ErrCancelled is carried by the result of a cancelled job.
	ErrCancelled = errors.New("export cancelled")
)

// Progress is a snapshot of a running video export.
type Progress struct {
	FramesDone  int
	FramesTotal int
}

// Status classifies how a video export ended.
type Status int

const (
	StatusSuccess Status = iota
	StatusCancelled
	StatusFailed
)

// Result is the terminal state of a video export job.
type Result struct {
	Status Status
	Path   string
	Err    error
}

// FrameProvider yields decoded source frames by index. media.Player
// implements it.
type FrameProvider interface {
	Frame(ctx context.Context, idx int) (*image.RGBA, error)
}

// frameSink receives composed frames and produces the encoded file. The
// ffmpeg-backed implementation is the default; tests substitute their own.
type frameSink interface {
	WriteFrame(img *image.RGBA) error
	Close() error
	Abort()
}

type sinkFactory func(ctx context.Context, path string, w, h int, fps float64, opt VideoOptions) (frameSink, error)

// VideoOptions controls video export. Zero values default to H.264 at
// CRF 18 with the veryfast preset through the "ffmpeg" binary.
type VideoOptions struct {
	Scale            float64
	FFmpeg           string
	CRF              int
	Preset           string
	SkipAudio        bool
	SecondFrameCount int // frame count of the dual-mode clip, 0 if none
	Run              media.Runner

	newSink sinkFactory // test seam
}

// Job is a handle to a running video export. Progress updates are dropped
// when the consumer lags; the final Result is always delivered on Done.
type Job struct {
	progress chan Progress
	done     chan Result
	cancel   context.CancelFunc
}

func (j *Job) Progress() <-chan Progress { return j.progress }
func (j *Job) Done() <-chan Result       { return j.done }

// Cancel stops the job. The partially written file is removed; the job
// finishes with StatusCancelled.
func (j *Job) Cancel() { j.cancel() }

// Exporter serializes video export jobs: only one may run at a time.
type Exporter struct {
	mu   sync.Mutex
	busy bool
}

// StartVideo snapshots the document and begins encoding it in the
// background. The returned job reports progress and completion; ErrBusy is
// returned while a previous job is still running.
func (e *Exporter) StartVideo(ctx context.Context, r *render.Renderer, doc *domain.Document, primary, second FrameProvider, outPath string, opt VideoOptions) (*Job, error) {
	if r == nil || doc == nil || primary == nil {
		return nil, fmt.Errorf("renderer, document and frame source are required")
	}
	if doc.Media.Kind != domain.MediaVideo || doc.Media.FrameCount <= 0 {
		return nil, fmt.Errorf("%s is not a video", doc.Media.Path)
	}

	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	e.busy = true
	e.mu.Unlock()

	if opt.Scale <= 0 {
		opt.Scale = 1
	}
	if opt.FFmpeg == "" {
		opt.FFmpeg = "ffmpeg"
	}
	if opt.CRF <= 0 {
		opt.CRF = 18
	}
	if opt.Preset == "" {
		opt.Preset = "veryfast"
	}
	if opt.Run == nil {
		opt.Run = media.ExecRunner
	}
	if opt.newSink == nil {
		opt.newSink = newFFmpegSink
	}

	snapshot := doc.Clone()
	jobCtx, cancel := context.WithCancel(ctx)
	job := &Job{
		progress: make(chan Progress, 1),
		done:     make(chan Result, 1),
		cancel:   cancel,
	}

	go func() {
		defer cancel()
		res := e.encode(jobCtx, r, snapshot, primary, second, outPath, opt, job)
		e.mu.Lock()
		e.busy = false
		e.mu.Unlock()
		job.done <- res
	}()
	return job, nil
}

func (e *Exporter) encode(ctx context.Context, r *render.Renderer, doc *domain.Document, primary, second FrameProvider, outPath string, opt VideoOptions, job *Job) Result {
	log := applog.WithComponent("export")

	tl := timeline.New(doc.Media.FrameCount, &doc.Timeline)
	frames := tl.ExportFrames()
	if len(frames) == 0 {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: timeline selects no frames", ErrEncode)}
	}

	fps := doc.Media.FPS
	if fps <= 0 {
		fps = 25
	}

	first, err := e.composeOne(ctx, r, doc, primary, second, frames[0], opt)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Result{Status: StatusCancelled, Err: ErrCancelled}
		}
		return Result{Status: StatusFailed, Err: err}
	}
	encW, encH := evenDims(first.Bounds().Dx(), first.Bounds().Dy())

	tmp := outPath + ".tmp_noaudio.mp4"
	sink, err := opt.newSink(ctx, tmp, encW, encH, fps, opt)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: %v", ErrEncode, err)}
	}

	abort := func() {
		sink.Abort()
		os.Remove(tmp)
	}

	log.Info("video export started", "path", outPath, "frames", len(frames), "size", fmt.Sprintf("%dx%d", encW, encH))
	for i, srcIdx := range frames {
		select {
		case <-ctx.Done():
			abort()
			return Result{Status: StatusCancelled, Err: ErrCancelled}
		default:
		}

		var img *image.RGBA
		if i == 0 {
			img = first
		} else {
			img, err = e.composeOne(ctx, r, doc, primary, second, srcIdx, opt)
			if err != nil {
				abort()
				if errors.Is(err, context.Canceled) {
					return Result{Status: StatusCancelled, Err: ErrCancelled}
				}
				return Result{Status: StatusFailed, Err: err}
			}
		}
		if err := sink.WriteFrame(padEven(img, encW, encH)); err != nil {
			abort()
			return Result{Status: StatusFailed, Err: fmt.Errorf("%w: %v", ErrEncode, err)}
		}

		select {
		case job.progress <- Progress{FramesDone: i + 1, FramesTotal: len(frames)}:
		default:
		}
	}

	if err := sink.Close(); err != nil {
		os.Remove(tmp)
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: %v", ErrEncode, err)}
	}

	if err := e.finishAudio(ctx, doc, frames, fps, tmp, outPath, opt); err != nil {
		os.Remove(tmp)
		return Result{Status: StatusFailed, Err: err}
	}
	log.Info("video export finished", "path", outPath)
	return Result{Status: StatusSuccess, Path: outPath}
}

func (e *Exporter) composeOne(ctx context.Context, r *render.Renderer, doc *domain.Document, primary, second FrameProvider, srcIdx int, opt VideoOptions) (*image.RGBA, error) {
	frame, err := primary.Frame(ctx, srcIdx)
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", srcIdx, err)
	}
	var rightImg image.Image
	if doc.Dual.Enabled && second != nil {
		rightIdx := srcIdx
		if opt.SecondFrameCount > 0 && rightIdx >= opt.SecondFrameCount {
			rightIdx = opt.SecondFrameCount - 1
		}
		ri, err := second.Frame(ctx, rightIdx)
		if err != nil {
			return nil, fmt.Errorf("decode second frame %d: %w", rightIdx, err)
		}
		rightImg = ri
	}
	return r.Compose(doc, frame, rightImg, opt.Scale)
}

// finishAudio muxes the source audio onto the rendered stream, or renames
// the silent render into place when there is no audio track to carry over.
func (e *Exporter) finishAudio(ctx context.Context, doc *domain.Document, frames []int, fps float64, tmp, outPath string, opt VideoOptions) error {
	if opt.SkipAudio || !doc.Media.HasAudio {
		return os.Rename(tmp, outPath)
	}

	start := frames[0]
	for _, f := range frames {
		if f < start {
			start = f
		}
	}
	args := []string{
		"-y",
		"-i", tmp,
		"-ss", strconv.FormatFloat(float64(start)/fps, 'f', 3, 64),
		"-i", doc.Media.Path,
		"-map", "0:v:0",
		"-map", "1:a:0?",
		"-c:v", "libx264",
		"-preset", opt.Preset,
		"-crf", strconv.Itoa(opt.CRF),
		"-c:a", "aac",
		"-shortest",
		outPath,
	}
	if out, err := opt.Run(ctx, opt.FFmpeg, args...); err != nil {
		applog.WithComponent("export").Warn("audio mux failed, keeping silent render", "err", err, "output", strings.TrimSpace(string(out)))
		return os.Rename(tmp, outPath)
	}
	os.Remove(tmp)
	return nil
}

// evenDims rounds dimensions up to even values; H.264 4:2:0 requires them.
func evenDims(w, h int) (int, int) {
	if w%2 != 0 {
		w++
	}
	if h%2 != 0 {
		h++
	}
	return w, h
}

// padEven copies img onto an even-sized canvas when needed.
func padEven(img *image.RGBA, w, h int) *image.RGBA {
	if img.Bounds().Dx() == w && img.Bounds().Dy() == h {
		return img
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, img.Bounds(), img, image.Point{}, draw.Src)
	return out
}

// ffmpegSink pipes raw RGBA frames into an ffmpeg process encoding H.264.
type ffmpegSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	errBuf *strings.Builder
}

func newFFmpegSink(ctx context.Context, path string, w, h int, fps float64, opt VideoOptions) (frameSink, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", w, h),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "-",
		"-an",
		"-c:v", "libx264",
		"-preset", opt.Preset,
		"-crf", strconv.Itoa(opt.CRF),
		"-pix_fmt", "yuv420p",
		path,
	}
	cmd := exec.CommandContext(ctx, opt.FFmpeg, args...)
	var errBuf strings.Builder
	cmd.Stderr = &errBuf
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &ffmpegSink{cmd: cmd, stdin: stdin, errBuf: &errBuf}, nil
}

func (s *ffmpegSink) WriteFrame(img *image.RGBA) error {
	_, err := s.stdin.Write(img.Pix)
	return err
}

func (s *ffmpegSink) Close() error {
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(s.errBuf.String()))
	}
	return nil
}

func (s *ffmpegSink) Abort() {
	s.stdin.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
}
