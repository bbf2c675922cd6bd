// Package logging configures the process-wide slog logger.
package logging

import (
	"cmp"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/docker/model-switcher/pkg/paths"
)

// DefaultPath is where debug logs go when no path is given.
func DefaultPath() string {
	return filepath.Join(paths.GetDataDir(), "model-switcher.debug.log")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs the default logger. Without debug, logs are discarded.
// With debug, they are written at debug level to a rotating file at path
// (DefaultPath when empty). The returned closer flushes and closes that file.
func Setup(debug bool, path string) (io.Closer, error) {
	if !debug {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return nopCloser{}, nil
	}

	file, err := NewRotatingFile(cmp.Or(strings.TrimSpace(path), DefaultPath()))
	if err != nil {
		return nil, err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return file, nil
}
