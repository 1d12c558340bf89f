// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package transcript stores pane transcripts captured after builds.
// Transcripts are stripped of terminal control sequences and
// zstd-compressed, one file per session, under the repository's state
// directory. The status command reads them back to show what the last
// build printed.
package transcript

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/klauspost/compress/zstd"
)

const fileExtension = ".zst"

// zstdEncoder and zstdDecoder are reused across calls to avoid
// repeated initialization overhead. Both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("transcript: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("transcript: zstd decoder initialization failed: " + err.Error())
	}
}

// Store reads and writes transcripts in one directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore returns a Store rooted at dir. The directory is created on
// first save, not here.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Path returns the file a session's transcript is stored at.
func (s *Store) Path(sessionName string) string {
	// A "/" in a session name would escape the directory.
	name := strings.ReplaceAll(sessionName, "/", "-")
	return filepath.Join(s.dir, name+fileExtension)
}

// Save strips control sequences from content, compresses it, and
// atomically replaces the session's transcript. Returns the final
// path.
func (s *Store) Save(sessionName, content string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating transcript directory: %w", err)
	}

	stripped := ansi.Strip(content)
	compressed := zstdEncoder.EncodeAll([]byte(stripped), nil)

	path := s.Path(sessionName)
	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating temporary transcript: %w", err)
	}
	if _, err := file.Write(compressed); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return "", fmt.Errorf("writing temporary transcript: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return "", fmt.Errorf("syncing temporary transcript: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return "", fmt.Errorf("closing temporary transcript: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return "", fmt.Errorf("renaming transcript into place: %w", err)
	}

	s.logger.Debug("transcript saved",
		"session", sessionName,
		"path", path,
		"raw_bytes", len(content),
		"stored_bytes", len(compressed))
	return path, nil
}

// Read returns the decompressed transcript for a session.
func (s *Store) Read(sessionName string) (string, error) {
	compressed, err := os.ReadFile(s.Path(sessionName))
	if err != nil {
		return "", fmt.Errorf("reading transcript for %q: %w", sessionName, err)
	}
	content, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return "", fmt.Errorf("decompressing transcript for %q: %w", sessionName, err)
	}
	return string(content), nil
}

// Entry describes one stored transcript.
type Entry struct {
	SessionName string
	Path        string
	Size        int64
	Captured    time.Time
}

// List returns the stored transcripts, newest first. A store whose
// directory does not exist yet has no transcripts, not an error.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing transcripts: %w", err)
	}

	var entries []Entry
	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if dirEntry.IsDir() || !strings.HasSuffix(name, fileExtension) {
			continue
		}
		info, err := dirEntry.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			SessionName: strings.TrimSuffix(name, fileExtension),
			Path:        filepath.Join(s.dir, name),
			Size:        info.Size(),
			Captured:    info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Captured.After(entries[j].Captured)
	})
	return entries, nil
}
