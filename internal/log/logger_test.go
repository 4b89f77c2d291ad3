/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Leveler{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPrettyHandlerWritesOneLine(t *testing.T) {
	var sb strings.Builder
	h := &prettyTextHandler{opts: prettyOpts{Level: slog.LevelInfo}, w: &sb}
	l := slog.New(h).With(slog.String("component", "test"))
	l.Info("hello", slog.Int("n", 3))
	out := sb.String()
	if !strings.Contains(out, "INF hello") {
		t.Fatalf("missing level/message in %q", out)
	}
	if !strings.Contains(out, "component=test") || !strings.Contains(out, "n=3") {
		t.Fatalf("missing attrs in %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected a single line, got %q", out)
	}
}

func TestWithComponentAndOperation(t *testing.T) {
	Init(Options{Level: "error"})
	l := WithOperation(WithComponent("export"), "video")
	if l == nil {
		t.Fatalf("expected non-nil logger")
	}
}
