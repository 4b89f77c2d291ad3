/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render composes annotated frames: the raster compositor, font
// resolution and the meme/dual layout helpers.
package render

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	ggtext "github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
	applog "github.com/longweekendlabs/speech-bubble-editor/internal/log"
)

// Library resolves font families to faces. Families are matched against the
// .ttf/.otf files in a fonts directory by normalized name; anything that
// cannot be resolved falls back to the bundled Go Regular face so rendering
// never fails on a missing font.
type Library struct {
	mu      sync.Mutex
	files   map[string]string // normalized name -> path
	sources map[string]*ggtext.FontSource
	faces   map[faceKey]ggtext.Face

	fallback     *ggtext.FontSource
	fallbackOnce sync.Once
}

type faceKey struct {
	family string
	bold   bool
	italic bool
	size   float64
}

// NewLibrary scans dir for font files. A missing or empty dir yields a
// library that serves only the fallback face.
func NewLibrary(dir string) *Library {
	l := &Library{
		files:   make(map[string]string),
		sources: make(map[string]*ggtext.FontSource),
		faces:   make(map[faceKey]ggtext.Face),
	}
	if dir == "" {
		return l
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		applog.WithComponent("render").Debug("fonts dir not readable", "dir", dir, "err", err)
		return l
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".ttf" && ext != ".otf" {
			continue
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		l.files[normalizeFontName(base)] = filepath.Join(dir, e.Name())
	}
	return l
}

func normalizeFontName(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '_' {
			return -1
		}
		return r
	}, s)
}

// Face returns a cached face for the given spec at sizePt.
func (l *Library) Face(spec domain.FontSpec, sizePt float64) ggtext.Face {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := faceKey{family: spec.Family, bold: spec.Bold, italic: spec.Italic, size: sizePt}
	if f, ok := l.faces[key]; ok {
		return f
	}
	src := l.sourceLocked(spec)
	face := src.Face(sizePt)
	l.faces[key] = face
	return face
}

// sourceLocked finds the best matching font source for the spec. Variant
// names like "family-bold" are preferred over the plain family file.
func (l *Library) sourceLocked(spec domain.FontSpec) *ggtext.FontSource {
	base := normalizeFontName(spec.Family)
	var names []string
	switch {
	case spec.Bold && spec.Italic:
		names = []string{base + "bolditalic", base + "bold", base}
	case spec.Bold:
		names = []string{base + "bold", base}
	case spec.Italic:
		names = []string{base + "italic", base}
	default:
		names = []string{base, base + "regular"}
	}
	for _, n := range names {
		path, ok := l.files[n]
		if !ok {
			continue
		}
		if src, ok := l.sources[n]; ok {
			return src
		}
		src, err := ggtext.NewFontSourceFromFile(path)
		if err != nil {
			applog.WithComponent("render").Warn("font file unusable", "path", path, "err", err)
			continue
		}
		l.sources[n] = src
		return src
	}
	return l.fallbackSource()
}

func (l *Library) fallbackSource() *ggtext.FontSource {
	l.fallbackOnce.Do(func() {
		src, err := ggtext.NewFontSource(goregular.TTF)
		if err != nil {
			// goregular is a compile-time constant; this cannot happen
			panic("load bundled fallback font: " + err.Error())
		}
		l.fallback = src
	})
	return l.fallback
}
