// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sharedtex

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSloggerDefaultSilent(t *testing.T) {
	if slogger().Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger should be disabled")
	}
}

func TestSetLogger(t *testing.T) {
	orig := slogger()
	t.Cleanup(func() { loggerPtr.Store(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	slogger().Info("shared texture created")
	if !strings.Contains(buf.String(), "shared texture created") {
		t.Errorf("log output = %q", buf.String())
	}

	SetLogger(nil)
	if slogger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should restore the silent logger")
	}
}
