// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/mindchat/internal/model"
	"github.com/jeranaias/mindchat/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a session to one file format.
type Exporter interface {
	// Export converts a session to the target format and returns the content.
	Export(s model.ChatSession) ([]byte, error)

	// FileExtension returns the file extension including the dot.
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// Format names an exporter.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatMarkdown, FormatJSON}

// ForFormat returns the exporter for name. "txt" and "md" are accepted as
// aliases.
func ForFormat(name Format, opts *Options) (Exporter, error) {
	switch Format(strings.ToLower(string(name))) {
	case FormatText, "txt", "":
		return NewTextExporter(), nil
	case FormatMarkdown, "md":
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", name)
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata adds a front-matter header (Markdown only).
	IncludeMetadata bool

	// IncludeTimestamps adds per-message times (Markdown only).
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// Filename returns "<session name><ext>" with unsafe characters replaced.
func Filename(s model.ChatSession, exporter Exporter) string {
	return util.SafeFilename(s.Name) + exporter.FileExtension()
}

// ExportToFile exports a session and writes it to OutputDir, replacing any
// previous export of the same session name. It returns the file path.
func ExportToFile(s model.ChatSession, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}

	content, err := exporter.Export(s)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	outputPath := filepath.Join(dir, Filename(s, exporter))
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			// Non-fatal: the file was written.
			return outputPath, fmt.Errorf("exported to %s but could not open it: %w", outputPath, err)
		}
	}

	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// formatTimestamp formats a timestamp for display in local time.
func formatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Local().Format("15:04")
}
