// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStore(filepath.Join(t.TempDir(), "transcripts"), logger)
}

func TestSaveAndRead(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	content := "\x1b[31mBuild succeeded\x1b[0m in 42s\r\n\x1b[2K** BUILD SUCCEEDED **\n"
	if _, err := store.Save("3 Login Fix", content); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Read("3 Login Fix")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if strings.Contains(got, "\x1b") {
		t.Errorf("Read returned unstripped control sequences: %q", got)
	}
	if !strings.Contains(got, "Build succeeded in 42s") {
		t.Errorf("Read = %q, want the visible text preserved", got)
	}
	if !strings.Contains(got, "** BUILD SUCCEEDED **") {
		t.Errorf("Read = %q, missing second line", got)
	}
}

func TestSaveWritesCompressedFile(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	path, err := store.Save("1 Alpha", strings.Repeat("compile line\n", 200))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	// zstd frame magic.
	if !bytes.HasPrefix(raw, []byte{0x28, 0xB5, 0x2F, 0xFD}) {
		t.Errorf("stored file does not start with a zstd frame: % x", raw[:min(8, len(raw))])
	}
	if len(raw) >= len("compile line\n")*200 {
		t.Errorf("stored %d bytes, repetitive input should compress smaller", len(raw))
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind after Save")
	}
}

func TestSaveOverwrites(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	if _, err := store.Save("1 Alpha", "first build\n"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Save("1 Alpha", "second build\n"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Read("1 Alpha")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "second build\n" {
		t.Errorf("Read = %q, want the latest capture", got)
	}
}

func TestReadMissingTranscript(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	if _, err := store.Read("9 Nope"); err == nil {
		t.Fatalf("Read of missing transcript succeeded")
	}
}

func TestPathEscapesNothing(t *testing.T) {
	t.Parallel()
	store := NewStore("/state/transcripts", slog.New(slog.NewTextHandler(io.Discard, nil)))

	path := store.Path("weird/../../name")
	if filepath.Dir(path) != "/state/transcripts" {
		t.Errorf("Path(%q) = %q, escapes the store directory", "weird/../../name", path)
	}
}

func TestList(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	older, err := store.Save("1 Alpha", "alpha output\n")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	newer, err := store.Save("2 Beta", "beta output\n")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Filesystem mtime granularity can make back-to-back saves tie;
	// pin the ordering explicitly.
	base := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, base, base); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if err := os.Chtimes(newer, base.Add(time.Minute), base.Add(time.Minute)); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List returned %d entries, want 2", len(entries))
	}
	if entries[0].SessionName != "2 Beta" || entries[1].SessionName != "1 Alpha" {
		t.Errorf("List order = [%s %s], want newest first",
			entries[0].SessionName, entries[1].SessionName)
	}
	for _, entry := range entries {
		if entry.Size <= 0 {
			t.Errorf("entry %q has size %d", entry.SessionName, entry.Size)
		}
	}
}

func TestListMissingDirectory(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List on missing directory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("List on missing directory = %v, want empty", entries)
	}
}
