/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package timeline interprets the edit decisions of a video document: trim,
// cut ranges and reversal. It maps output frame positions back to source
// frame indices for playback and export.
package timeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/longweekendlabs/speech-bubble-editor/internal/domain"
)

// ErrOutOfRange is returned for frame positions outside the output sequence.
var ErrOutOfRange = errors.New("frame out of range")

// State wraps a document's persisted timeline with the source frame count.
// All mutations write through to the wrapped struct, so saving the document
// persists the edits.
type State struct {
	frameCount int
	tl         *domain.Timeline
}

// New binds a timeline state. A zero-valued timeline is initialized to the
// full clip.
func New(frameCount int, tl *domain.Timeline) *State {
	if frameCount > 0 && tl.TrimOut == 0 && tl.TrimIn == 0 && len(tl.Cuts) == 0 && !tl.Reversed {
		tl.TrimOut = frameCount - 1
	}
	return &State{frameCount: frameCount, tl: tl}
}

func (s *State) FrameCount() int { return s.frameCount }
func (s *State) TrimIn() int     { return s.tl.TrimIn }
func (s *State) TrimOut() int    { return s.tl.TrimOut }
func (s *State) Reversed() bool  { return s.tl.Reversed }
func (s *State) Cuts() [][2]int  { return append([][2]int(nil), s.tl.Cuts...) }

// SetTrimIn clamps the in point to [0, trimOut].
func (s *State) SetTrimIn(frame int) {
	s.tl.TrimIn = clamp(frame, 0, s.tl.TrimOut)
}

// SetTrimOut clamps the out point to [trimIn, frameCount-1].
func (s *State) SetTrimOut(frame int) {
	s.tl.TrimOut = clamp(frame, s.tl.TrimIn, s.frameCount-1)
}

// AddCut marks the inclusive source range [start, end] as excluded from the
// output. Order of the arguments does not matter; the range is clamped to
// the clip and overlapping cuts coalesce into one.
func (s *State) AddCut(start, end int) {
	if start > end {
		start, end = end, start
	}
	start = clamp(start, 0, s.frameCount-1)
	end = clamp(end, 0, s.frameCount-1)
	cuts := append(s.tl.Cuts, [2]int{start, end})
	sort.Slice(cuts, func(i, j int) bool { return cuts[i][0] < cuts[j][0] })
	merged := cuts[:1]
	for _, c := range cuts[1:] {
		last := &merged[len(merged)-1]
		if c[0] <= last[1] {
			if c[1] > last[1] {
				last[1] = c[1]
			}
		} else {
			merged = append(merged, c)
		}
	}
	s.tl.Cuts = append([][2]int(nil), merged...)
}

// ClearCuts removes all cuts.
func (s *State) ClearCuts() { s.tl.Cuts = nil }

// ToggleReverse flips output playback direction.
func (s *State) ToggleReverse() { s.tl.Reversed = !s.tl.Reversed }

// Reset restores trim, cuts and reverse to defaults.
func (s *State) Reset() {
	s.tl.TrimIn = 0
	s.tl.TrimOut = s.frameCount - 1
	s.tl.Cuts = nil
	s.tl.Reversed = false
}

// ExportFrames returns the ordered source frame indices of the output
// sequence after trim, cuts and reversal. A cut covering the entire trimmed
// range is ignored so a single cut can never silently erase the whole video.
func (s *State) ExportFrames() []int {
	cut := make(map[int]struct{})
	for _, c := range s.tl.Cuts {
		if c[0] <= s.tl.TrimIn && c[1] >= s.tl.TrimOut {
			continue
		}
		for f := c[0]; f <= c[1]; f++ {
			cut[f] = struct{}{}
		}
	}
	var frames []int
	for f := s.tl.TrimIn; f <= s.tl.TrimOut; f++ {
		if _, ok := cut[f]; !ok {
			frames = append(frames, f)
		}
	}
	if s.tl.Reversed {
		for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
			frames[i], frames[j] = frames[j], frames[i]
		}
	}
	return frames
}

// OutputFrameCount is the number of frames the output sequence contains.
func (s *State) OutputFrameCount() int { return len(s.ExportFrames()) }

// Seek maps an output position to its source frame index.
func (s *State) Seek(pos int) (int, error) {
	frames := s.ExportFrames()
	if pos < 0 || pos >= len(frames) {
		return 0, fmt.Errorf("seek %d of %d: %w", pos, len(frames), ErrOutOfRange)
	}
	return frames[pos], nil
}

// Scrub clamps a raw source frame index to the clip, for slider dragging.
func (s *State) Scrub(frame int) int { return clamp(frame, 0, s.frameCount-1) }

// Validate reports whether the state can produce any output.
func (s *State) Validate() error {
	if s.frameCount <= 0 {
		return fmt.Errorf("no frames in source: %w", ErrOutOfRange)
	}
	if s.OutputFrameCount() == 0 {
		return fmt.Errorf("edits leave no frames to export: %w", ErrOutOfRange)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
