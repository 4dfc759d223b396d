// Package track provides the Track domain entity.
package track

import (
	"path/filepath"
	"strings"
	"time"
)

// DefaultExtensions lists the audio container extensions accepted when scanning directories.
var DefaultExtensions = []string{"mp3", "wav", "ogg", "flac"}

// Track represents a local audio file in the playlist.
// Path and Name are fixed once the track is in a playlist; Duration is filled in on first load.
type Track struct {
	Path     string        // Filesystem path handed to the audio engine
	Name     string        // Display name (final path component)
	Duration time.Duration // Zero until the engine has loaded the file
}

// New creates a Track for the given path.
func New(path string) Track {
	return Track{
		Path: path,
		Name: DisplayName(path),
	}
}

// FromPaths creates Tracks for the given paths, preserving order.
func FromPaths(paths []string) []Track {
	tracks := make([]Track, len(paths))
	for i, p := range paths {
		tracks[i] = New(p)
	}
	return tracks
}

// DisplayName returns the final path component of path.
func DisplayName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

// Ext returns the lower-cased extension of the track without the leading dot.
func (t *Track) Ext() string {
	return Ext(t.Path)
}

// HasDuration reports whether the duration is known.
func (t *Track) HasDuration() bool {
	return t.Duration > 0
}

// Ext returns the lower-cased extension of path without the leading dot.
func Ext(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// HasExtension reports whether path has one of the given extensions.
// Extensions are compared case-insensitively, with or without a leading dot.
func HasExtension(path string, extensions []string) bool {
	ext := Ext(path)
	if ext == "" {
		return false
	}
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
