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
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	"github.com/longweekendlabs/speech-bubble-editor/internal/render"
)

func videoDoc(frames int) *domain.Document {
	return domain.NewDocument(domain.MediaRef{
		Path:       "clip.mp4",
		Kind:       domain.MediaVideo,
		Width:      64,
		Height:     48,
		FPS:        25,
		FrameCount: frames,
	})
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// fakeProvider serves solid frames and records the requested indices. An
// optional gate blocks each call until released, for cancellation tests.
type fakeProvider struct {
	mu   sync.Mutex
	w, h int
	idxs []int
	gate chan struct{}
}

func (p *fakeProvider) Frame(ctx context.Context, idx int) (*image.RGBA, error) {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	p.idxs = append(p.idxs, idx)
	p.mu.Unlock()
	return solid(p.w, p.h, color.Black), nil
}

func (p *fakeProvider) requested() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.idxs...)
}

// fakeSink collects frame sizes and creates the output file on construction
// the way the real encoder does.
type fakeSink struct {
	mu     sync.Mutex
	path   string
	sizes  []image.Point
	closed bool
}

func newFakeSink(path string) (*fakeSink, error) {
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		return nil, err
	}
	return &fakeSink{path: path}, nil
}

func (s *fakeSink) WriteFrame(img *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sizes = append(s.sizes, image.Pt(img.Bounds().Dx(), img.Bounds().Dy()))
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) Abort() {}

func (s *fakeSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sizes)
}

func fakeSinkFactory(sink **fakeSink) sinkFactory {
	return func(_ context.Context, path string, _, _ int, _ float64, _ VideoOptions) (frameSink, error) {
		s, err := newFakeSink(path)
		if err != nil {
			return nil, err
		}
		*sink = s
		return s, nil
	}
}

func waitDone(t *testing.T, job *Job) Result {
	t.Helper()
	select {
	case res := <-job.Done():
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("export did not finish")
		return Result{}
	}
}

func TestExportStillPNG(t *testing.T) {
	doc := domain.NewDocument(domain.MediaRef{Path: "x.png", Kind: domain.MediaImage, Width: 100, Height: 80})
	doc.Meme.Enabled = true
	r := render.New(render.NewLibrary(""))

	out := filepath.Join(t.TempDir(), "still.png")
	err := ExportStill(context.Background(), r, doc, solid(100, 80, color.White), nil, out, StillOptions{})
	if err != nil {
		t.Fatalf("export still: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	wantH := int(math.Round(80 + 2*80*render.BarFraction))
	if cfg.Width != 100 || cfg.Height != wantH {
		t.Fatalf("expected 100x%d, got %dx%d", wantH, cfg.Width, cfg.Height)
	}
}

func TestExportStillFormatFromExtension(t *testing.T) {
	doc := domain.NewDocument(domain.MediaRef{Path: "x.png", Kind: domain.MediaImage, Width: 20, Height: 20})
	r := render.New(render.NewLibrary(""))
	out := filepath.Join(t.TempDir(), "still.jpg")
	if err := ExportStill(context.Background(), r, doc, solid(20, 20, color.White), nil, out, StillOptions{}); err != nil {
		t.Fatalf("export jpeg by extension: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestExportStillUnsupportedFormat(t *testing.T) {
	doc := domain.NewDocument(domain.MediaRef{Path: "x.png", Kind: domain.MediaImage, Width: 20, Height: 20})
	r := render.New(render.NewLibrary(""))
	err := ExportStill(context.Background(), r, doc, solid(20, 20, color.White), nil, filepath.Join(t.TempDir(), "o.bmp"), StillOptions{})
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestExportStillWebPUsesFFmpeg(t *testing.T) {
	doc := domain.NewDocument(domain.MediaRef{Path: "x.png", Kind: domain.MediaImage, Width: 20, Height: 20})
	r := render.New(render.NewLibrary(""))
	out := filepath.Join(t.TempDir(), "o.webp")

	var gotArgs []string
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return nil, os.WriteFile(out, []byte("webp"), 0o644)
	}
	err := ExportStill(context.Background(), r, doc, solid(20, 20, color.White), nil, out, StillOptions{Format: "webp", Quality: 37, Run: run})
	if err != nil {
		t.Fatalf("export webp: %v", err)
	}
	if len(gotArgs) == 0 || gotArgs[0] != "ffmpeg" {
		t.Fatalf("expected ffmpeg invocation, got %v", gotArgs)
	}
	if gotArgs[len(gotArgs)-1] != out {
		t.Fatalf("expected output path as last arg, got %v", gotArgs)
	}
	quality := ""
	for i, a := range gotArgs {
		if a == "-quality" && i+1 < len(gotArgs) {
			quality = gotArgs[i+1]
		}
	}
	if quality != "37" {
		t.Fatalf("expected -quality 37 forwarded to ffmpeg, got %v", gotArgs)
	}
}

func TestExportPDF(t *testing.T) {
	doc := domain.NewDocument(domain.MediaRef{Path: "x.png", Kind: domain.MediaImage, Width: 40, Height: 30})
	r := render.New(render.NewLibrary(""))
	out := filepath.Join(t.TempDir(), "page.pdf")
	if err := ExportPDF(r, doc, solid(40, 30, color.White), nil, out, PDFOptions{}); err != nil {
		t.Fatalf("export pdf: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF") {
		t.Fatal("output is not a PDF")
	}
}

func TestVideoExportTrimAndCut(t *testing.T) {
	doc := videoDoc(12)
	doc.Timeline.TrimIn = 1
	doc.Timeline.TrimOut = 10
	doc.Timeline.Cuts = [][2]int{{4, 5}}
	r := render.New(render.NewLibrary(""))
	provider := &fakeProvider{w: 64, h: 48}

	var sink *fakeSink
	out := filepath.Join(t.TempDir(), "out.mp4")
	var e Exporter
	job, err := e.StartVideo(context.Background(), r, doc, provider, nil, out, VideoOptions{newSink: fakeSinkFactory(&sink)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	res := waitDone(t, job)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %v err=%v", res.Status, res.Err)
	}
	want := []int{1, 2, 3, 6, 7, 8, 9, 10}
	got := provider.requested()
	// frame 1 decodes once for sizing and again in the loop
	if got[0] != 1 || len(got) != len(want)+1 {
		t.Fatalf("expected %v plus a sizing decode, got %v", want, got)
	}
	for i, f := range want {
		if got[i+1] != f {
			t.Fatalf("frame order mismatch at %d: expected %v, got %v", i, want, got)
		}
	}
	if sink.frameCount() != len(want) {
		t.Fatalf("expected %d encoded frames, got %d", len(want), sink.frameCount())
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if _, err := os.Stat(out + ".tmp_noaudio.mp4"); !os.IsNotExist(err) {
		t.Fatal("expected temp render to be gone")
	}
}

func TestVideoExportReversed(t *testing.T) {
	doc := videoDoc(6)
	doc.Timeline.Reversed = true
	r := render.New(render.NewLibrary(""))
	provider := &fakeProvider{w: 64, h: 48}

	var sink *fakeSink
	var e Exporter
	out := filepath.Join(t.TempDir(), "rev.mp4")
	job, err := e.StartVideo(context.Background(), r, doc, provider, nil, out, VideoOptions{newSink: fakeSinkFactory(&sink)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res := waitDone(t, job); res.Status != StatusSuccess {
		t.Fatalf("expected success, got %v err=%v", res.Status, res.Err)
	}
	got := provider.requested()
	if got[0] != 5 {
		t.Fatalf("expected reversed playback to start at the last frame, got %v", got)
	}
}

func TestVideoExportPadsOddDimensions(t *testing.T) {
	doc := videoDoc(2)
	doc.Media.Width = 63
	doc.Media.Height = 47
	r := render.New(render.NewLibrary(""))
	provider := &fakeProvider{w: 63, h: 47}

	var sink *fakeSink
	var e Exporter
	out := filepath.Join(t.TempDir(), "odd.mp4")
	job, err := e.StartVideo(context.Background(), r, doc, provider, nil, out, VideoOptions{newSink: fakeSinkFactory(&sink)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res := waitDone(t, job); res.Status != StatusSuccess {
		t.Fatalf("expected success, got %v err=%v", res.Status, res.Err)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, sz := range sink.sizes {
		if sz.X != 64 || sz.Y != 48 {
			t.Fatalf("expected 64x48 padded frames, got %v", sz)
		}
	}
}

func TestVideoExportCancel(t *testing.T) {
	doc := videoDoc(100)
	r := render.New(render.NewLibrary(""))
	gate := make(chan struct{})
	provider := &fakeProvider{w: 64, h: 48, gate: gate}

	var sink *fakeSink
	var e Exporter
	out := filepath.Join(t.TempDir(), "cancel.mp4")
	job, err := e.StartVideo(context.Background(), r, doc, provider, nil, out, VideoOptions{newSink: fakeSinkFactory(&sink)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	gate <- struct{}{} // sizing decode
	gate <- struct{}{} // first loop frame already composed from sizing; release one more
	job.Cancel()

	res := waitDone(t, job)
	if res.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %v err=%v", res.Status, res.Err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatal("expected no output after cancel")
	}
	if _, err := os.Stat(out + ".tmp_noaudio.mp4"); !os.IsNotExist(err) {
		t.Fatal("expected temp render removed after cancel")
	}
}

func TestVideoExportBusy(t *testing.T) {
	doc := videoDoc(100)
	r := render.New(render.NewLibrary(""))
	gate := make(chan struct{})
	provider := &fakeProvider{w: 64, h: 48, gate: gate}

	var sink *fakeSink
	var e Exporter
	dir := t.TempDir()
	job, err := e.StartVideo(context.Background(), r, doc, provider, nil, filepath.Join(dir, "a.mp4"), VideoOptions{newSink: fakeSinkFactory(&sink)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := e.StartVideo(context.Background(), r, doc, provider, nil, filepath.Join(dir, "b.mp4"), VideoOptions{newSink: fakeSinkFactory(&sink)}); err != ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	job.Cancel()
	waitDone(t, job)

	provider2 := &fakeProvider{w: 64, h: 48}
	doc2 := videoDoc(2)
	job2, err := e.StartVideo(context.Background(), r, doc2, provider2, nil, filepath.Join(dir, "c.mp4"), VideoOptions{newSink: fakeSinkFactory(&sink)})
	if err != nil {
		t.Fatalf("expected exporter free after cancel, got %v", err)
	}
	waitDone(t, job2)
}

func TestVideoExportRejectsImages(t *testing.T) {
	doc := domain.NewDocument(domain.MediaRef{Path: "x.png", Kind: domain.MediaImage, Width: 20, Height: 20})
	r := render.New(render.NewLibrary(""))
	var e Exporter
	if _, err := e.StartVideo(context.Background(), r, doc, &fakeProvider{w: 20, h: 20}, nil, "o.mp4", VideoOptions{}); err == nil {
		t.Fatal("expected error for non-video media")
	}
}

func TestVideoExportAudioMux(t *testing.T) {
	doc := videoDoc(10)
	doc.Media.HasAudio = true
	doc.Timeline.TrimIn = 5
	r := render.New(render.NewLibrary(""))
	provider := &fakeProvider{w: 64, h: 48}

	out := filepath.Join(t.TempDir(), "audio.mp4")
	var gotArgs []string
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return nil, os.WriteFile(out, []byte("x"), 0o644)
	}
	var sink *fakeSink
	var e Exporter
	job, err := e.StartVideo(context.Background(), r, doc, provider, nil, out, VideoOptions{Run: run, newSink: fakeSinkFactory(&sink)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res := waitDone(t, job); res.Status != StatusSuccess {
		t.Fatalf("expected success, got %v err=%v", res.Status, res.Err)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "-ss "+fmt.Sprintf("%.3f", 5.0/25)) {
		t.Fatalf("expected audio offset from the first trimmed frame, got %q", joined)
	}
	if !strings.Contains(joined, "clip.mp4") || !strings.Contains(joined, "-c:a aac") {
		t.Fatalf("expected source audio mapped with aac, got %q", joined)
	}
	if _, err := os.Stat(out + ".tmp_noaudio.mp4"); !os.IsNotExist(err) {
		t.Fatal("expected temp render removed after mux")
	}
}
