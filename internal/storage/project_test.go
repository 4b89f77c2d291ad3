/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	"github.com/longweekendlabs/speech-bubble-editor/internal/vector"
)

func sampleDoc() *domain.Document {
	doc := domain.NewDocument(domain.MediaRef{
		Path: "clip.mp4", Kind: domain.MediaVideo,
		Width: 1920, Height: 1080, FPS: 30, FrameCount: 300, HasAudio: true,
	})
	a := domain.NewAnnotation(domain.StyleOval, 400, 300, 1920, 1080)
	a.Text = "hello"
	doc.Add(a)
	doc.Timeline.TrimIn = 10
	doc.Timeline.Cuts = [][2]int{{50, 60}}
	return doc
}

func TestInitOpenRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	doc := sampleDoc()
	h, err := Init(root, doc)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, d := range []string{"exports", BackupsDirName} {
		if fi, err := os.Stat(filepath.Join(root, d)); err != nil || !fi.IsDir() {
			t.Fatalf("expected subdir %s", d)
		}
	}

	h2, err := Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want, _ := json.Marshal(h.Doc)
	got, _ := json.Marshal(h2.Doc)
	if string(want) != string(got) {
		t.Fatalf("round trip mismatch:\nwant %s\ngot  %s", want, got)
	}
	if h2.Doc.Annotations[0].Tail == nil {
		t.Fatal("expected tail preserved")
	}
}

func TestSaveCreatesBackup(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	h, err := Init(root, sampleDoc())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	h.Doc.Meme.Enabled = true
	if err := Save(h); err != nil {
		t.Fatalf("save: %v", err)
	}
	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups: %v", err)
	}
	var baks int
	for _, e := range ents {
		if strings.HasSuffix(e.Name(), ".bak") {
			baks++
		}
	}
	if baks == 0 {
		t.Fatal("expected a timestamped backup after re-save")
	}
}

func TestOpenFallsBackToBackupOnCorruption(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	h, err := Init(root, sampleDoc())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := Save(h); err != nil { // creates a backup of the good manifest
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(h.ManifestPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	h2, err := Open(root)
	if err != nil {
		t.Fatalf("expected backup recovery, got %v", err)
	}
	if h2.Doc.Media.Path != "clip.mp4" {
		t.Fatalf("recovered wrong document: %+v", h2.Doc.Media)
	}
}

func TestOpenRejectsSchemaViolations(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	// valid JSON, invalid manifest: media missing
	bad := `{"version": 1, "annotations": []}`
	if err := os.WriteFile(filepath.Join(root, ManifestFileName), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(root); err == nil {
		t.Fatal("expected schema rejection")
	}
}

func TestValidateManifest(t *testing.T) {
	good, err := MarshalManifest(sampleDoc())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := ValidateManifest(good); err != nil {
		t.Fatalf("expected valid manifest, got %v", err)
	}
	if err := ValidateManifest([]byte(`{"version":1,"media":{"path":"x","kind":"gif","width":1,"height":1}}`)); err == nil {
		t.Fatal("expected rejection of unknown media kind")
	}
	if err := ValidateManifest([]byte(`{"version":0,"media":{"path":"x","kind":"image","width":1,"height":1}}`)); err == nil {
		t.Fatal("expected rejection of version 0")
	}
}

func TestManifestVersionGate(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	newer := `{"version": 99, "media": {"path": "x.png", "kind": "image", "width": 10, "height": 10}}`
	if err := os.WriteFile(filepath.Join(root, ManifestFileName), []byte(newer), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(root); err == nil {
		t.Fatal("expected newer manifest version to be rejected")
	}
}

func TestSaveAs(t *testing.T) {
	dir := t.TempDir()
	h, err := Init(filepath.Join(dir, "a"), sampleDoc())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	newRoot := filepath.Join(dir, "b")
	if err := SaveAs(h, newRoot); err != nil {
		t.Fatalf("save as: %v", err)
	}
	if h.Root != newRoot {
		t.Fatalf("expected handle moved to %s, got %s", newRoot, h.Root)
	}
	if _, err := Open(newRoot); err != nil {
		t.Fatalf("open new root: %v", err)
	}
}

func TestAutosaveRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	h, err := Init(root, sampleDoc())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	h.Doc.Annotations[0].Body = vector.R(1, 2, 300, 200)
	if err := Autosave(h); err != nil {
		t.Fatalf("autosave: %v", err)
	}
	doc, err := OpenAutosave(root)
	if err != nil {
		t.Fatalf("open autosave: %v", err)
	}
	if doc.Annotations[0].Body.W != 300 {
		t.Fatalf("expected autosaved body, got %+v", doc.Annotations[0].Body)
	}

	ClearAutosave(root)
	if _, err := OpenAutosave(root); !os.IsNotExist(err) {
		t.Fatalf("expected autosave gone, got %v", err)
	}
}
