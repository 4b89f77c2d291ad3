/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/longweekendlabs/speech-bubble-editor/internal/bundle"
	"github.com/longweekendlabs/speech-bubble-editor/internal/config"
	"github.com/longweekendlabs/speech-bubble-editor/internal/crash"
	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	"github.com/longweekendlabs/speech-bubble-editor/internal/export"
	applog "github.com/longweekendlabs/speech-bubble-editor/internal/log"
	"github.com/longweekendlabs/speech-bubble-editor/internal/media"
	"github.com/longweekendlabs/speech-bubble-editor/internal/render"
	"github.com/longweekendlabs/speech-bubble-editor/internal/storage"
	"github.com/longweekendlabs/speech-bubble-editor/internal/telemetry"
	"github.com/longweekendlabs/speech-bubble-editor/internal/ui"
	"github.com/longweekendlabs/speech-bubble-editor/internal/version"
)

func usage() {
	fmt.Println(version.AppName)
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  bubbleedit version|-v|--version             Show version")
	fmt.Println("  bubbleedit probe <media>                     Probe a media file and print its properties")
	fmt.Println("  bubbleedit init <dir> <media>                Create a new project at <dir> for <media>")
	fmt.Println("  bubbleedit open <dir>                        Open project at <dir> and print summary")
	fmt.Println("  bubbleedit export <dir> <out> [frame]        Export a composed still (png/jpeg/webp/pdf by extension)")
	fmt.Println("  bubbleedit export-video <dir> <out>          Export the composed video with the timeline applied")
	fmt.Println("  bubbleedit bundle <dir> <out.zip>            Pack a project into a shareable archive")
	fmt.Println("  bubbleedit unbundle <in.zip> <dir>           Unpack a project archive into <dir>")
	fmt.Println("  bubbleedit ui [<dir>]                        Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var h *storage.DocumentHandle
	defer func() { crash.Recover(h) }()

	cfg, err := config.Load()
	if err != nil {
		l.Warn("load config, using defaults", slog.Any("err", err))
		cfg = config.Default()
	}
	if cfg.General.TelemetryOptIn {
		telemetry.EnableOptIn()
	}

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println(version.AppName)
			fmt.Println(version.String())
			return
		case "probe":
			if len(args) < 3 {
				fmt.Println("probe requires <media>")
				usage()
				os.Exit(2)
			}
			ref, err := media.NewProber(cfg.Export.FFprobePath).Probe(context.Background(), args[2])
			if err != nil {
				l.Error("probe failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Path:   %s\n", ref.Path)
			fmt.Printf("Kind:   %s\n", ref.Kind)
			fmt.Printf("Size:   %dx%d\n", ref.Width, ref.Height)
			if ref.Kind == domain.MediaVideo {
				fmt.Printf("FPS:    %.3f\n", ref.FPS)
				fmt.Printf("Frames: %d\n", ref.FrameCount)
				fmt.Printf("Audio:  %v\n", ref.HasAudio)
			}
			return
		case "init":
			if len(args) < 4 {
				fmt.Println("init requires <dir> and <media>")
				usage()
				os.Exit(2)
			}
			dir, mediaPath := args[2], args[3]
			abs, _ := filepath.Abs(dir)
			l.Info("init project", slog.String("root", abs), slog.String("media", mediaPath))
			ref, err := media.NewProber(cfg.Export.FFprobePath).Probe(context.Background(), mediaPath)
			if err != nil {
				l.Error("probe failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			nh, err := storage.Init(abs, domain.NewDocument(ref))
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			h = nh
			fmt.Println("Created project at", abs)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("open project", slog.String("root", abs))
			oh, err := storage.Open(abs)
			if err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			h = oh
			fmt.Println("Root:", h.Root)
			fmt.Printf("Media: %s (%s, %dx%d)\n", h.Doc.Media.Path, h.Doc.Media.Kind, h.Doc.Media.Width, h.Doc.Media.Height)
			fmt.Printf("Annotations: %d\n", len(h.Doc.Annotations))
			if h.Doc.Media.Kind == domain.MediaVideo {
				fmt.Printf("Timeline: trim [%d, %d], cuts %d, reversed %v\n",
					h.Doc.Timeline.TrimIn, h.Doc.Timeline.TrimOut, len(h.Doc.Timeline.Cuts), h.Doc.Timeline.Reversed)
			}
			return
		case "export":
			if len(args) < 4 {
				fmt.Println("export requires <dir> and <out>")
				usage()
				os.Exit(2)
			}
			if err := exportStill(cfg, &h, args[2], args[3], args[4:], l); err != nil {
				l.Error("export failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			telemetry.Event("export.still", map[string]any{"ext": filepath.Ext(args[3])})
			fmt.Println("Exported", args[3])
			return
		case "export-video":
			if len(args) < 4 {
				fmt.Println("export-video requires <dir> and <out>")
				usage()
				os.Exit(2)
			}
			if err := exportVideo(cfg, &h, args[2], args[3], l); err != nil {
				l.Error("export-video failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			telemetry.Event("export.video", nil)
			fmt.Println("Exported", args[3])
			return
		case "bundle":
			if len(args) < 4 {
				fmt.Println("bundle requires <dir> and <out.zip>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			if err := bundle.Export(abs, args[3]); err != nil {
				l.Error("bundle failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Bundled", abs, "into", args[3])
			return
		case "unbundle":
			if len(args) < 4 {
				fmt.Println("unbundle requires <in.zip> and <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[3])
			n, err := bundle.Import(args[2], abs)
			if err != nil {
				l.Error("unbundle failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Unpacked %d files into %s\n", n, abs)
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}

// sourceFrame decodes the requested source frame of the project media.
func sourceFrame(cfg config.Config, doc *domain.Document, idx int) (image.Image, func(), error) {
	if doc.Media.Kind == domain.MediaVideo {
		dec := media.NewDecoder(doc.Media, cfg.Export.FFmpegPath)
		player := media.NewPlayer(doc.Media, dec, cfg.Media.CacheBudgetMiB)
		frame, err := player.Frame(context.Background(), idx)
		if err != nil {
			_ = player.Close()
			return nil, nil, err
		}
		return frame, func() { _ = player.Close() }, nil
	}
	img, err := media.LoadImage(doc.Media.Path)
	if err != nil {
		return nil, nil, err
	}
	return img, func() {}, nil
}

// secondFrame loads the side-by-side pane for a given primary frame index.
func secondFrame(cfg config.Config, doc *domain.Document, idx int) (image.Image, func(), error) {
	if !doc.Dual.Enabled || doc.Dual.SecondPath == "" {
		return nil, func() {}, nil
	}
	if media.IsVideoPath(doc.Dual.SecondPath) {
		ref, err := media.NewProber(cfg.Export.FFprobePath).Probe(context.Background(), doc.Dual.SecondPath)
		if err != nil {
			return nil, nil, err
		}
		if ref.FrameCount > 0 && idx >= ref.FrameCount {
			idx = ref.FrameCount - 1
		}
		dec := media.NewDecoder(ref, cfg.Export.FFmpegPath)
		player := media.NewPlayer(ref, dec, cfg.Media.CacheBudgetMiB)
		frame, err := player.Frame(context.Background(), idx)
		if err != nil {
			_ = player.Close()
			return nil, nil, err
		}
		return frame, func() { _ = player.Close() }, nil
	}
	img, err := media.LoadImage(doc.Dual.SecondPath)
	if err != nil {
		return nil, nil, err
	}
	return img, func() {}, nil
}

func exportStill(cfg config.Config, h **storage.DocumentHandle, dir, out string, rest []string, l *slog.Logger) error {
	abs, _ := filepath.Abs(dir)
	oh, err := storage.Open(abs)
	if err != nil {
		return err
	}
	*h = oh
	idx := 0
	if len(rest) > 0 {
		idx, err = strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("frame must be a whole number: %w", err)
		}
	}
	frame, closeFrame, err := sourceFrame(cfg, oh.Doc, idx)
	if err != nil {
		return err
	}
	defer closeFrame()
	second, closeSecond, err := secondFrame(cfg, oh.Doc, idx)
	if err != nil {
		return err
	}
	defer closeSecond()

	renderer := render.New(render.NewLibrary(cfg.General.FontsDir))
	l.Info("export still", slog.String("out", out), slog.Int("frame", idx))
	if filepath.Ext(out) == ".pdf" {
		return export.ExportPDF(renderer, oh.Doc, frame, second, out, export.PDFOptions{})
	}
	opt := export.StillOptions{Quality: cfg.Export.JPEGQuality, FFmpeg: cfg.Export.FFmpegPath}
	return export.ExportStill(context.Background(), renderer, oh.Doc, frame, second, out, opt)
}

func exportVideo(cfg config.Config, h **storage.DocumentHandle, dir, out string, l *slog.Logger) error {
	abs, _ := filepath.Abs(dir)
	oh, err := storage.Open(abs)
	if err != nil {
		return err
	}
	*h = oh
	doc := oh.Doc
	if doc.Media.Kind != domain.MediaVideo {
		return fmt.Errorf("project media is not a video")
	}

	dec := media.NewDecoder(doc.Media, cfg.Export.FFmpegPath)
	player := media.NewPlayer(doc.Media, dec, cfg.Media.CacheBudgetMiB)
	defer player.Close()

	var secondProv export.FrameProvider
	secondFrames := 0
	if doc.Dual.Enabled && doc.Dual.SecondPath != "" && media.IsVideoPath(doc.Dual.SecondPath) {
		ref, perr := media.NewProber(cfg.Export.FFprobePath).Probe(context.Background(), doc.Dual.SecondPath)
		if perr != nil {
			return perr
		}
		sp := media.NewPlayer(ref, media.NewDecoder(ref, cfg.Export.FFmpegPath), cfg.Media.CacheBudgetMiB)
		defer sp.Close()
		secondProv = sp
		secondFrames = ref.FrameCount
	}

	renderer := render.New(render.NewLibrary(cfg.General.FontsDir))
	opt := export.VideoOptions{
		FFmpeg:           cfg.Export.FFmpegPath,
		CRF:              cfg.Export.CRF,
		Preset:           cfg.Export.Preset,
		SecondFrameCount: secondFrames,
	}
	job, err := (&export.Exporter{}).StartVideo(context.Background(), renderer, doc, player, secondProv, out, opt)
	if err != nil {
		return err
	}
	for {
		select {
		case p := <-job.Progress():
			if p.FramesTotal > 0 {
				fmt.Printf("\r%d/%d frames", p.FramesDone, p.FramesTotal)
			}
		case res := <-job.Done():
			fmt.Println()
			if res.Status != export.StatusSuccess {
				if res.Err != nil {
					return res.Err
				}
				return fmt.Errorf("export cancelled")
			}
			l.Info("export video done", slog.String("out", res.Path))
			return nil
		}
	}
}
