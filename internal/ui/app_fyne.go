//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"github.com/longweekendlabs/speech-bubble-editor/internal/config"
	"github.com/longweekendlabs/speech-bubble-editor/internal/crash"
	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	"github.com/longweekendlabs/speech-bubble-editor/internal/export"
	"github.com/longweekendlabs/speech-bubble-editor/internal/library"
	applog "github.com/longweekendlabs/speech-bubble-editor/internal/log"
	"github.com/longweekendlabs/speech-bubble-editor/internal/media"
	"github.com/longweekendlabs/speech-bubble-editor/internal/render"
	"github.com/longweekendlabs/speech-bubble-editor/internal/session"
	"github.com/longweekendlabs/speech-bubble-editor/internal/storage"
	"github.com/longweekendlabs/speech-bubble-editor/internal/telemetry"
	"github.com/longweekendlabs/speech-bubble-editor/internal/timeline"
	"github.com/longweekendlabs/speech-bubble-editor/internal/vector"
	"github.com/longweekendlabs/speech-bubble-editor/internal/version"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".bmp"}

// Run starts the Fyne-based desktop editor. Pass an optional project
// directory to open immediately.
func Run(projectDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	cfg, err := config.Load()
	if err != nil {
		l.Warn("load config, using defaults", slog.Any("err", err))
		cfg = config.Default()
	}
	if cfg.General.TelemetryOptIn {
		telemetry.EnableOptIn()
	}

	var h *storage.DocumentHandle
	defer func() { crash.Recover(h) }()

	fyneApp := app.NewWithID("bubbleedit")
	w := fyneApp.NewWindow(version.AppName)
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1280)
	winH := prefs.IntWithFallback("window.height", 860)
	if winW < 900 {
		winW = 900
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	fonts := render.NewLibrary(cfg.General.FontsDir)
	renderer := render.New(fonts)
	prober := media.NewProber(cfg.Export.FFprobePath)
	exporter := &export.Exporter{}

	// Recent-media index is best effort; the editor works without it.
	var mediaLib *library.Library
	if dbPath, perr := library.DefaultPath(); perr == nil {
		if db, derr := library.Open(dbPath); derr == nil {
			mediaLib = db
			defer mediaLib.Close()
		} else {
			l.Warn("open media library", slog.Any("err", derr))
		}
	}

	status := widget.NewLabel("Open or create a project to begin.")
	ed := NewEditorCanvas()

	var (
		sess         *session.Session
		player       *media.Player
		secondPlayer *media.Player
		secondRef    domain.MediaRef
		stillFrame   *image.RGBA
		secondStill  *image.RGBA
		tlState      *timeline.State
		playhead     int
	)
	var refresh func()

	frameAt := func(idx int) (image.Image, error) {
		if h == nil {
			return nil, fmt.Errorf("no project open")
		}
		if h.Doc.Media.Kind == domain.MediaVideo && player != nil {
			return player.Frame(context.Background(), idx)
		}
		if stillFrame == nil {
			return nil, fmt.Errorf("media not loaded")
		}
		return stillFrame, nil
	}

	secondAt := func(idx int) image.Image {
		if h == nil || !h.Doc.Dual.Enabled {
			return nil
		}
		if secondPlayer != nil {
			si := idx
			if secondRef.FrameCount > 0 && si >= secondRef.FrameCount {
				si = secondRef.FrameCount - 1
			}
			img, ferr := secondPlayer.Frame(context.Background(), si)
			if ferr != nil {
				l.Warn("decode second clip frame", slog.Any("err", ferr))
				return nil
			}
			return img
		}
		if secondStill != nil {
			return secondStill
		}
		return nil
	}

	closeMedia := func() {
		if player != nil {
			_ = player.Close()
			player = nil
		}
		if secondPlayer != nil {
			_ = secondPlayer.Close()
			secondPlayer = nil
		}
		stillFrame = nil
		secondStill = nil
		secondRef = domain.MediaRef{}
	}

	reloadSecond := func() {
		if secondPlayer != nil {
			_ = secondPlayer.Close()
			secondPlayer = nil
		}
		secondStill = nil
		secondRef = domain.MediaRef{}
		if h == nil || !h.Doc.Dual.Enabled || strings.TrimSpace(h.Doc.Dual.SecondPath) == "" {
			return
		}
		path := h.Doc.Dual.SecondPath
		if media.IsVideoPath(path) {
			ref, perr := prober.Probe(context.Background(), path)
			if perr != nil {
				l.Error("probe second clip", slog.String("path", path), slog.Any("err", perr))
				dialog.ShowError(perr, w)
				return
			}
			secondRef = ref
			dec := media.NewDecoder(ref, cfg.Export.FFmpegPath)
			secondPlayer = media.NewPlayer(ref, dec, cfg.Media.CacheBudgetMiB)
			return
		}
		img, lerr := media.LoadImage(path)
		if lerr != nil {
			l.Error("load second image", slog.String("path", path), slog.Any("err", lerr))
			dialog.ShowError(lerr, w)
			return
		}
		secondStill = img
	}

	frameLabel := widget.NewLabel("")
	slider := widget.NewSlider(0, 1)
	slider.Step = 1
	slider.OnChanged = func(v float64) {
		playhead = int(v)
		if refresh != nil {
			refresh()
		}
	}
	timelineBar := container.NewBorder(nil, nil, nil, frameLabel, slider)
	timelineBar.Hide()

	refresh = func() {
		if h == nil || sess == nil {
			return
		}
		doc := h.Doc
		frame, ferr := frameAt(playhead)
		if ferr != nil {
			status.SetText("Frame decode failed: " + ferr.Error())
			return
		}
		second := secondAt(playhead)
		img, cerr := renderer.Compose(doc, frame, second, 1)
		if cerr != nil {
			status.SetText("Compose failed: " + cerr.Error())
			return
		}
		lay := render.ComputeLayout(doc, second)
		ed.SetScene(img, lay.PhotoY, sess)
		if doc.Media.Kind == domain.MediaVideo && tlState != nil {
			frameLabel.SetText(fmt.Sprintf("frame %d / %d (keeps %d)", playhead, doc.Media.FrameCount-1, tlState.OutputFrameCount()))
		}
	}

	editTextDialog := func(a *domain.Annotation) {
		if a == nil {
			return
		}
		entry := widget.NewMultiLineEntry()
		entry.SetText(a.Text)
		form := dialog.NewForm("Edit Text", "Apply", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Text", entry),
		}, func(ok bool) {
			if !ok {
				sess.CancelTextEdit()
				return
			}
			sess.CommitText(entry.Text)
			refresh()
		}, w)
		form.Resize(fyne.NewSize(420, 260))
		form.Show()
	}

	ed.OnChanged = func() { refresh() }
	ed.OnEditText = editTextDialog

	loadDocument := func() {
		closeMedia()
		doc := h.Doc
		playhead = 0
		tlState = nil
		if doc.Media.Kind == domain.MediaVideo {
			dec := media.NewDecoder(doc.Media, cfg.Export.FFmpegPath)
			player = media.NewPlayer(doc.Media, dec, cfg.Media.CacheBudgetMiB)
			tlState = timeline.New(doc.Media.FrameCount, &doc.Timeline)
			if doc.Media.FrameCount > 1 {
				slider.Max = float64(doc.Media.FrameCount - 1)
			} else {
				slider.Max = 1
			}
			slider.SetValue(0)
			timelineBar.Show()
		} else {
			img, lerr := media.LoadImage(doc.Media.Path)
			if lerr != nil {
				l.Error("load media", slog.String("path", doc.Media.Path), slog.Any("err", lerr))
				dialog.ShowError(lerr, w)
			}
			stillFrame = img
			timelineBar.Hide()
		}
		reloadSecond()
		sess = session.New(doc, renderer.Measurer())
		if mediaLib != nil {
			if terr := mediaLib.Touch(context.Background(), doc.Media, h.Root); terr != nil {
				l.Warn("touch media library", slog.Any("err", terr))
			}
		}
		refresh()
	}

	saveDoc := func() {
		if h == nil {
			return
		}
		if serr := storage.Save(h); serr != nil {
			l.Error("save project", slog.Any("err", serr))
			dialog.ShowError(serr, w)
			return
		}
		status.SetText("Saved " + h.ManifestPath)
	}

	newProjectFlow := func() {
		dialog.ShowFileOpen(func(rc fyne.URIReadCloser, oerr error) {
			if oerr != nil || rc == nil {
				return
			}
			mediaPath := rc.URI().Path()
			_ = rc.Close()
			ref, perr := prober.Probe(context.Background(), mediaPath)
			if perr != nil {
				dialog.ShowError(perr, w)
				return
			}
			dialog.ShowFolderOpen(func(lu fyne.ListableURI, ferr error) {
				if ferr != nil || lu == nil {
					return
				}
				root := lu.Path()
				doc := domain.NewDocument(ref)
				nh, ierr := storage.Init(root, doc)
				if ierr != nil {
					dialog.ShowError(ierr, w)
					return
				}
				h = nh
				w.SetTitle(fmt.Sprintf("%s — %s", version.AppName, filepath.Base(root)))
				status.SetText("Created project: " + root)
				addRecentProject(prefs, root)
				loadDocument()
			}, w)
		}, w)
	}

	openProjectFlow := func() {
		dialog.ShowFolderOpen(func(lu fyne.ListableURI, oerr error) {
			if oerr != nil || lu == nil {
				return
			}
			dir := lu.Path()
			if perr := openProject(dir, &h, w, l, status); perr != nil {
				dialog.ShowError(perr, w)
				return
			}
			addRecentProject(prefs, dir)
			loadDocument()
		}, w)
	}

	exportStillFlow := func() {
		if h == nil {
			return
		}
		d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, serr error) {
			if serr != nil || wc == nil {
				return
			}
			outPath := wc.URI().Path()
			_ = wc.Close()
			frame, ferr := frameAt(playhead)
			if ferr != nil {
				dialog.ShowError(ferr, w)
				return
			}
			opt := export.StillOptions{
				Quality: cfg.Export.JPEGQuality,
				FFmpeg:  cfg.Export.FFmpegPath,
			}
			if eerr := export.ExportStill(context.Background(), renderer, h.Doc, frame, secondAt(playhead), outPath, opt); eerr != nil {
				l.Error("export still", slog.Any("err", eerr))
				dialog.ShowError(eerr, w)
				return
			}
			telemetry.Event("export.still", map[string]any{"ext": filepath.Ext(outPath)})
			status.SetText("Exported " + outPath)
		}, w)
		d.SetFileName("export." + cfg.Export.DefaultFormat)
		d.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".webp"}))
		d.Show()
	}

	exportPDFFlow := func() {
		if h == nil {
			return
		}
		d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, serr error) {
			if serr != nil || wc == nil {
				return
			}
			outPath := wc.URI().Path()
			_ = wc.Close()
			frame, ferr := frameAt(playhead)
			if ferr != nil {
				dialog.ShowError(ferr, w)
				return
			}
			if eerr := export.ExportPDF(renderer, h.Doc, frame, secondAt(playhead), outPath, export.PDFOptions{}); eerr != nil {
				l.Error("export pdf", slog.Any("err", eerr))
				dialog.ShowError(eerr, w)
				return
			}
			status.SetText("Exported " + outPath)
		}, w)
		d.SetFileName("export.pdf")
		d.SetFilter(fstorage.NewExtensionFileFilter([]string{".pdf"}))
		d.Show()
	}

	exportVideoFlow := func() {
		if h == nil {
			return
		}
		if h.Doc.Media.Kind != domain.MediaVideo {
			dialog.ShowInformation("Export Video", "Video export needs video source media.", w)
			return
		}
		d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, serr error) {
			if serr != nil || wc == nil {
				return
			}
			outPath := wc.URI().Path()
			_ = wc.Close()
			var secondProv export.FrameProvider
			if h.Doc.Dual.Enabled {
				if secondPlayer != nil {
					secondProv = secondPlayer
				} else if secondStill != nil {
					secondProv = staticFrames{img: secondStill}
				}
			}
			opt := export.VideoOptions{
				FFmpeg:           cfg.Export.FFmpegPath,
				CRF:              cfg.Export.CRF,
				Preset:           cfg.Export.Preset,
				SecondFrameCount: secondRef.FrameCount,
			}
			job, jerr := exporter.StartVideo(context.Background(), renderer, h.Doc, player, secondProv, outPath, opt)
			if jerr != nil {
				dialog.ShowError(jerr, w)
				return
			}
			bar := widget.NewProgressBar()
			body := container.NewVBox(bar, widget.NewButton("Cancel", job.Cancel))
			prog := dialog.NewCustomWithoutButtons("Exporting Video", body, w)
			prog.Resize(fyne.NewSize(380, 120))
			prog.Show()
			go func() {
				for {
					select {
					case p := <-job.Progress():
						fyne.Do(func() {
							if p.FramesTotal > 0 {
								bar.SetValue(float64(p.FramesDone) / float64(p.FramesTotal))
							}
						})
					case res := <-job.Done():
						fyne.Do(func() {
							prog.Hide()
							switch res.Status {
							case export.StatusSuccess:
								telemetry.Event("export.video", nil)
								status.SetText("Exported " + res.Path)
							case export.StatusCancelled:
								status.SetText("Video export cancelled.")
							default:
								l.Error("export video", slog.Any("err", res.Err))
								dialog.ShowError(res.Err, w)
							}
						})
						return
					}
				}
			}()
		}, w)
		d.SetFileName("export.mp4")
		d.SetFilter(fstorage.NewExtensionFileFilter([]string{".mp4"}))
		d.Show()
	}

	addCutFlow := func() {
		if tlState == nil {
			return
		}
		startEntry := widget.NewEntry()
		startEntry.SetText(strconv.Itoa(playhead))
		endEntry := widget.NewEntry()
		endEntry.SetText(strconv.Itoa(playhead))
		dialog.NewForm("Add Cut", "Add", "Cancel", []*widget.FormItem{
			widget.NewFormItem("First frame", startEntry),
			widget.NewFormItem("Last frame", endEntry),
		}, func(ok bool) {
			if !ok {
				return
			}
			start, e1 := strconv.Atoi(strings.TrimSpace(startEntry.Text))
			end, e2 := strconv.Atoi(strings.TrimSpace(endEntry.Text))
			if e1 != nil || e2 != nil {
				dialog.ShowError(fmt.Errorf("cut bounds must be whole frame numbers"), w)
				return
			}
			tlState.AddCut(start, end)
			refresh()
		}, w).Show()
	}

	memeTextFlow := func() {
		if h == nil {
			return
		}
		top := widget.NewEntry()
		top.SetText(h.Doc.Meme.TopText)
		bottom := widget.NewEntry()
		bottom.SetText(h.Doc.Meme.BottomText)
		dialog.NewForm("Meme Text", "Apply", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Top", top),
			widget.NewFormItem("Bottom", bottom),
		}, func(ok bool) {
			if !ok {
				return
			}
			h.Doc.Meme.TopText = top.Text
			h.Doc.Meme.BottomText = bottom.Text
			h.Doc.Meme.Enabled = true
			refresh()
		}, w).Show()
	}

	dualFlow := func() {
		if h == nil {
			return
		}
		if h.Doc.Dual.Enabled {
			h.Doc.Dual = domain.Dual{}
			reloadSecond()
			refresh()
			status.SetText("Side-by-side disabled.")
			return
		}
		d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, oerr error) {
			if oerr != nil || rc == nil {
				return
			}
			path := rc.URI().Path()
			_ = rc.Close()
			h.Doc.Dual = domain.Dual{Enabled: true, SecondPath: path}
			reloadSecond()
			refresh()
		}, w)
		d.SetFilter(fstorage.NewExtensionFileFilter(append(append([]string{}, imageExtensions...), media.VideoExtensions...)))
		d.Show()
	}

	rotateFlow := func() {
		if sess == nil || sess.Selected() == nil {
			return
		}
		entry := widget.NewEntry()
		entry.SetText(fmt.Sprintf("%.0f", sess.Selected().Rotation))
		dialog.NewForm("Rotate", "Apply", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Degrees", entry),
		}, func(ok bool) {
			if !ok {
				return
			}
			deg, perr := strconv.ParseFloat(strings.TrimSpace(entry.Text), 64)
			if perr != nil {
				dialog.ShowError(fmt.Errorf("rotation must be a number of degrees"), w)
				return
			}
			if !sess.SetRotation(deg) {
				status.SetText("This style does not rotate.")
				return
			}
			refresh()
		}, w).Show()
	}

	// Menus
	styleItems := make([]*fyne.MenuItem, 0, len(domain.Styles))
	insertItems := make([]*fyne.MenuItem, 0, len(domain.Styles))
	for _, st := range domain.Styles {
		st := st
		label := strings.ToUpper(string(st)[:1]) + string(st)[1:]
		styleItems = append(styleItems, fyne.NewMenuItem(label, func() {
			if sess == nil || !sess.SetStyle(st) {
				return
			}
			refresh()
		}))
		insertItems = append(insertItems, fyne.NewMenuItem(label, func() {
			if sess == nil {
				return
			}
			sw, sh := h.Doc.SceneSize()
			sess.Add(st, vector.Pt{X: sw / 2, Y: sh / 2})
			refresh()
		}))
	}

	recentItems := []*fyne.MenuItem{}
	for _, dir := range loadRecentProjects(prefs) {
		dir := dir
		recentItems = append(recentItems, fyne.NewMenuItem(dir, func() {
			if perr := openProject(dir, &h, w, l, status); perr != nil {
				dialog.ShowError(perr, w)
				return
			}
			addRecentProject(prefs, dir)
			loadDocument()
		}))
	}
	openRecent := fyne.NewMenuItem("Open Recent", nil)
	openRecent.ChildMenu = fyne.NewMenu("", recentItems...)
	if len(recentItems) == 0 {
		openRecent.Disabled = true
	}

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Project from Media…", newProjectFlow),
		fyne.NewMenuItem("Open Project…", openProjectFlow),
		openRecent,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save", saveDoc),
		fyne.NewMenuItem("Save As…", func() {
			if h == nil {
				return
			}
			dialog.ShowFolderOpen(func(lu fyne.ListableURI, oerr error) {
				if oerr != nil || lu == nil {
					return
				}
				if serr := storage.SaveAs(h, lu.Path()); serr != nil {
					dialog.ShowError(serr, w)
					return
				}
				w.SetTitle(fmt.Sprintf("%s — %s", version.AppName, filepath.Base(h.Root)))
				addRecentProject(prefs, h.Root)
				status.SetText("Saved as " + h.Root)
			}, w)
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export Still…", exportStillFlow),
		fyne.NewMenuItem("Export PDF…", exportPDFFlow),
		fyne.NewMenuItem("Export Video…", exportVideoFlow),
	)

	setStyle := fyne.NewMenuItem("Set Style", nil)
	setStyle.ChildMenu = fyne.NewMenu("", styleItems...)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", func() {
			if sess != nil && sess.Undo() {
				refresh()
			}
		}),
		fyne.NewMenuItem("Redo", func() {
			if sess != nil && sess.Redo() {
				refresh()
			}
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Edit Text…", func() {
			if sess != nil && sess.BeginTextEdit() {
				editTextDialog(sess.Selected())
			}
		}),
		setStyle,
		fyne.NewMenuItem("Rotate…", rotateFlow),
		fyne.NewMenuItem("Duplicate", func() {
			if sess != nil && sess.Duplicate() != nil {
				refresh()
			}
		}),
		fyne.NewMenuItem("Snap to Top", func() {
			if sess != nil && sess.SnapEdge("top") {
				refresh()
			}
		}),
		fyne.NewMenuItem("Snap to Bottom", func() {
			if sess != nil && sess.SnapEdge("bottom") {
				refresh()
			}
		}),
		fyne.NewMenuItem("Auto-Fit Text", func() {
			if sess != nil {
				a := sess.Selected()
				if a != nil && sess.SetAutoFit(!a.AutoFit) {
					refresh()
				}
			}
		}),
		fyne.NewMenuItem("Lock Aspect While Resizing", func() {
			if sess != nil {
				sess.SetAspectLock(!sess.AspectLock())
			}
		}),
		fyne.NewMenuItem("Bring to Front", func() {
			if sess != nil && sess.BringToFront() {
				refresh()
			}
		}),
		fyne.NewMenuItem("Send to Back", func() {
			if sess != nil && sess.SendToBack() {
				refresh()
			}
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Delete", func() {
			if sess != nil && sess.DeleteSelected() {
				refresh()
			}
		}),
	)

	insertMenu := fyne.NewMenu("Insert", insertItems...)

	timelineMenu := fyne.NewMenu("Timeline",
		fyne.NewMenuItem("Set Trim In at Playhead", func() {
			if tlState != nil {
				tlState.SetTrimIn(playhead)
				refresh()
			}
		}),
		fyne.NewMenuItem("Set Trim Out at Playhead", func() {
			if tlState != nil {
				tlState.SetTrimOut(playhead)
				refresh()
			}
		}),
		fyne.NewMenuItem("Add Cut…", addCutFlow),
		fyne.NewMenuItem("Clear Cuts", func() {
			if tlState != nil {
				tlState.ClearCuts()
				refresh()
			}
		}),
		fyne.NewMenuItem("Reverse Playback", func() {
			if tlState != nil {
				tlState.ToggleReverse()
				refresh()
			}
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Reset Timeline", func() {
			if tlState != nil {
				tlState.Reset()
				refresh()
			}
		}),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Toggle Meme Bars", func() {
			if h == nil {
				return
			}
			h.Doc.Meme.Enabled = !h.Doc.Meme.Enabled
			refresh()
		}),
		fyne.NewMenuItem("Meme Text…", memeTextFlow),
		fyne.NewMenuItem("Side-by-Side Clip…", dualFlow),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Reset Zoom", func() { ed.ResetView() }),
	)

	aboutMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", func() {
			dialog.ShowInformation("About", fmt.Sprintf("%s %s", version.AppName, version.String()), w)
		}),
	)

	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, insertMenu, timelineMenu, viewMenu, aboutMenu))

	bottom := container.NewVBox(timelineBar, status)
	w.SetContent(container.NewBorder(nil, bottom, nil, nil, ed))

	// Periodic autosave; runs on the UI thread so it sees a consistent document.
	autosave := time.NewTicker(2 * time.Minute)
	defer autosave.Stop()
	go func() {
		for range autosave.C {
			fyne.Do(func() {
				if h == nil {
					return
				}
				if aerr := storage.Autosave(h); aerr != nil {
					l.Warn("autosave", slog.Any("err", aerr))
				}
			})
		}
	}()

	// Persist preferences on close
	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})

	if projectDir != "" {
		if oerr := openProject(projectDir, &h, w, l, status); oerr != nil {
			l.Error("auto-open project failed", slog.Any("err", oerr))
			// not fatal; continue
		} else {
			addRecentProject(prefs, projectDir)
			loadDocument()
		}
	}

	w.ShowAndRun()
	closeMedia()
	return nil
}

func openProject(dir string, h **storage.DocumentHandle, w fyne.Window, l *slog.Logger, status *widget.Label) error {
	abs, _ := filepath.Abs(dir)
	l.Info("open project", slog.String("root", abs))
	dh, err := storage.Open(abs)
	if err != nil {
		return err
	}
	*h = dh
	w.SetTitle(fmt.Sprintf("%s — %s", version.AppName, filepath.Base(abs)))
	status.SetText(fmt.Sprintf("Opened project: %s", abs))
	return nil
}

// staticFrames adapts a still image to the video exporter's frame provider,
// for side-by-side exports whose second pane is an image.
type staticFrames struct{ img *image.RGBA }

func (s staticFrames) Frame(context.Context, int) (*image.RGBA, error) {
	if s.img == nil {
		return nil, fmt.Errorf("no frame available")
	}
	return s.img, nil
}

// canvasDragMode tracks what the current drag gesture is doing.
type canvasDragMode int

const (
	dragIdle    canvasDragMode = iota
	dragGesture                // forwarded to the editing session
	dragPan                    // background pan
)

// EditorCanvas displays the composed frame and routes pointer gestures to the
// editing session. The session works in document coordinates; this widget
// owns only the screen mapping (zoom + pan) and the selection overlay.
type EditorCanvas struct {
	widget.BaseWidget
	zoom    float32
	offsetX float32
	offsetY float32

	sess   *session.Session
	frame  image.Image // composed canvas, annotations included
	photoY float64     // meme bar offset between canvas and document space

	mode   canvasDragMode
	lastPt vector.Pt

	OnChanged  func()                     // fires after a gesture that may mutate the document
	OnEditText func(a *domain.Annotation) // fires on double click over an annotation
}

func NewEditorCanvas() *EditorCanvas {
	ec := &EditorCanvas{zoom: 0.5}
	ec.ExtendBaseWidget(ec)
	return ec
}

// SetScene replaces the displayed frame. photoY is the canvas-space offset of
// the document origin (non-zero when meme bars are enabled).
func (p *EditorCanvas) SetScene(frame image.Image, photoY float64, sess *session.Session) {
	p.frame = frame
	p.photoY = photoY
	p.sess = sess
	p.Refresh()
}

// ResetView restores the default zoom and pan.
func (p *EditorCanvas) ResetView() {
	p.zoom = 0.5
	p.offsetX = 0
	p.offsetY = 0
	p.Refresh()
}

// PreferredSize sets a decent default size for the widget.
func (p *EditorCanvas) PreferredSize() fyne.Size { return fyne.NewSize(800, 600) }

// Coordinate helpers: document <-> screen mapping
func (p *EditorCanvas) canvasOriginAndScale() (cx, cy, scale float32) {
	size := p.Size()
	fw, fh := float32(800), float32(600)
	if p.frame != nil {
		b := p.frame.Bounds()
		fw, fh = float32(b.Dx()), float32(b.Dy())
	}
	scaledW := fw * p.zoom
	scaledH := fh * p.zoom
	cx = size.Width/2 - scaledW/2 + p.offsetX
	cy = size.Height/2 - scaledH/2 + p.offsetY
	return cx, cy, p.zoom
}

func (p *EditorCanvas) toScreen(pt vector.Pt) fyne.Position {
	cx, cy, s := p.canvasOriginAndScale()
	x := cx + float32(pt.X)*s
	y := cy + float32(pt.Y+p.photoY)*s
	return fyne.NewPos(x, y)
}

func (p *EditorCanvas) toDoc(pos fyne.Position) vector.Pt {
	cx, cy, s := p.canvasOriginAndScale()
	return vector.Pt{
		X: float64((pos.X - cx) / s),
		Y: float64((pos.Y-cy)/s) - p.photoY,
	}
}

// Tapped selects (or deselects) the annotation under the cursor.
func (p *EditorCanvas) Tapped(e *fyne.PointEvent) {
	if p.sess == nil {
		return
	}
	pt := p.toDoc(e.Position)
	p.sess.PointerDown(pt)
	p.sess.PointerUp(pt)
	if p.OnChanged != nil {
		p.OnChanged()
	}
	p.Refresh()
}

// DoubleTapped opens the text editor for the annotation under the cursor.
func (p *EditorCanvas) DoubleTapped(e *fyne.PointEvent) {
	if p.sess == nil {
		return
	}
	if p.sess.DoubleClick(p.toDoc(e.Position)) && p.OnEditText != nil {
		p.OnEditText(p.sess.Selected())
	}
	p.Refresh()
}

// Dragged forwards the gesture to the session when it lands on an annotation
// (move, resize, tail) and pans the view otherwise.
func (p *EditorCanvas) Dragged(e *fyne.DragEvent) {
	if p.sess == nil {
		p.offsetX += e.Dragged.DX
		p.offsetY += e.Dragged.DY
		p.Refresh()
		return
	}
	switch p.mode {
	case dragIdle:
		pt := p.toDoc(e.Position)
		p.sess.PointerDown(pt)
		if p.sess.SelectedID() == "" {
			p.mode = dragPan
		} else {
			p.mode = dragGesture
		}
	case dragGesture:
		p.sess.PointerMove(p.toDoc(e.Position))
	case dragPan:
		p.offsetX += e.Dragged.DX
		p.offsetY += e.Dragged.DY
	}
	p.lastPt = p.toDoc(e.Position)
	p.Refresh()
}

func (p *EditorCanvas) DragEnd() {
	if p.mode == dragGesture && p.sess != nil {
		p.sess.PointerUp(p.lastPt)
		if p.OnChanged != nil {
			p.OnChanged()
		}
	}
	p.mode = dragIdle
	p.Refresh()
}

// Scrolled zooms the view. Fyne v2.6 does not expose modifier keys on
// ScrollEvent, so the wheel always zooms.
func (p *EditorCanvas) Scrolled(e *fyne.ScrollEvent) {
	step := e.Scrolled.DY * 0.05
	p.zoom += step
	if p.zoom < 0.1 {
		p.zoom = 0.1
	}
	if p.zoom > 6.0 {
		p.zoom = 6.0
	}
	p.Refresh()
}

// CreateRenderer builds the frame image plus the selection overlay objects.
func (p *EditorCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})

	img := canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScaleFastest

	bbox := canvas.NewRectangle(color.RGBA{0, 0, 0, 0})
	bbox.StrokeColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	bbox.StrokeWidth = 1
	bbox.Hide()

	var handles [8]*canvas.Rectangle
	for i := range handles {
		handles[i] = canvas.NewRectangle(color.RGBA{R: 0, G: 170, B: 255, A: 255})
		handles[i].Hide()
	}
	tail := canvas.NewCircle(color.RGBA{R: 255, G: 170, B: 0, A: 255})
	tail.Hide()

	objs := []fyne.CanvasObject{bg, img, bbox}
	for _, hd := range handles {
		objs = append(objs, hd)
	}
	objs = append(objs, tail)
	return &editorCanvasRenderer{ec: p, objects: objs, bg: bg, img: img, bbox: bbox, handles: handles, tail: tail}
}

type editorCanvasRenderer struct {
	ec      *EditorCanvas
	objects []fyne.CanvasObject
	bg      *canvas.Rectangle
	img     *canvas.Image
	bbox    *canvas.Rectangle
	handles [8]*canvas.Rectangle
	tail    *canvas.Circle
}

func (r *editorCanvasRenderer) Destroy()                     {}
func (r *editorCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *editorCanvasRenderer) MinSize() fyne.Size           { return r.ec.PreferredSize() }
func (r *editorCanvasRenderer) Refresh()                     { r.Layout(r.ec.Size()); canvas.Refresh(r.ec) }

func (r *editorCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	cx, cy, s := r.ec.canvasOriginAndScale()
	fw, fh := float32(800), float32(600)
	if r.ec.frame != nil {
		b := r.ec.frame.Bounds()
		fw, fh = float32(b.Dx()), float32(b.Dy())
		if r.img.Image != r.ec.frame {
			r.img.Image = r.ec.frame
			r.img.Refresh()
		}
	}
	r.img.Resize(fyne.NewSize(fw*s, fh*s))
	r.img.Move(fyne.NewPos(cx, cy))

	var sel *domain.Annotation
	if r.ec.sess != nil {
		sel = r.ec.sess.Selected()
	}
	if sel == nil {
		r.bbox.Hide()
		for _, hd := range r.handles {
			hd.Hide()
		}
		r.tail.Hide()
		return
	}

	b := sel.Body
	p0 := r.ec.toScreen(vector.Pt{X: b.X, Y: b.Y})
	p1 := r.ec.toScreen(vector.Pt{X: b.X + b.W, Y: b.Y + b.H})
	r.bbox.Show()
	r.bbox.Resize(fyne.NewSize(p1.X-p0.X, p1.Y-p0.Y))
	r.bbox.Move(p0)

	for i := range r.handles {
		hr := vector.HandleRect(b, vector.Anchor(i))
		h0 := r.ec.toScreen(vector.Pt{X: hr.X, Y: hr.Y})
		h1 := r.ec.toScreen(vector.Pt{X: hr.X + hr.W, Y: hr.Y + hr.H})
		r.handles[i].Show()
		r.handles[i].Resize(fyne.NewSize(h1.X-h0.X, h1.Y-h0.Y))
		r.handles[i].Move(h0)
	}

	if sel.Tail != nil {
		rad := float32(vector.TailDotRadius) * s
		c := r.ec.toScreen(*sel.Tail)
		r.tail.Show()
		r.tail.Resize(fyne.NewSize(2*rad, 2*rad))
		r.tail.Move(fyne.NewPos(c.X-rad, c.Y-rad))
	} else {
		r.tail.Hide()
	}
}

// Recent project persistence helpers
const recentPrefsKey = "recent.projects"
const recentMax = 10

func loadRecentProjects(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		var tmp []string
		if err := json.Unmarshal([]byte(raw), &tmp); err == nil {
			items = tmp
		}
	}
	if items == nil {
		items = []string{}
	}
	// Filter out non-existing paths
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentProjects(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentProject(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentProjects(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// de-dup (case-insensitive on Windows)
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentProjects(p, out)
}
