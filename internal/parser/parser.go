// Package parser reads crew definitions from YAML or Markdown files.
package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/crewlocal/internal/models"
)

// ErrUnknownFormat is returned for files whose extension is not a supported crew format
var ErrUnknownFormat = errors.New("unknown crew file format")

// Format represents the format of a crew file
type Format int

const (
	// FormatUnknown represents an unknown or unsupported file format
	FormatUnknown Format = iota
	// FormatMarkdown represents a Markdown (.md, .markdown) crew file
	FormatMarkdown
	// FormatYAML represents a YAML (.yaml, .yml) crew file
	FormatYAML
)

// String returns the string representation of the Format
func (f Format) String() string {
	switch f {
	case FormatMarkdown:
		return "markdown"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// Parser is the interface that all crew parsers must implement
type Parser interface {
	// Parse reads from an io.Reader and returns a parsed Crew
	Parse(r io.Reader) (*models.Crew, error)
}

// DetectFormat automatically detects the crew format based on file extension
// Supported extensions:
//   - .md, .markdown -> FormatMarkdown
//   - .yaml, .yml -> FormatYAML
//   - all others -> FormatUnknown
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// NewParser creates a new parser instance for the specified format
// Returns an error if the format is unknown or unsupported
func NewParser(format Format) (Parser, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownParser(), nil
	case FormatYAML:
		return NewYAMLParser(), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}
}

// ParseFile detects the format of path from its extension, parses it and
// records the absolute path in crew.SourceFile. A crew without a name is
// named after the file.
func ParseFile(path string) (*models.Crew, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, expected a crew file", path)
	}

	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%w: %s (supported: .md, .markdown, .yaml, .yml)", ErrUnknownFormat, path)
	}

	parser, err := NewParser(format)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	crew, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse crew %s: %w", path, err)
	}

	if abs, err := filepath.Abs(path); err == nil {
		crew.SourceFile = abs
	} else {
		crew.SourceFile = path
	}
	if crew.Name == "" {
		base := filepath.Base(path)
		crew.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return crew, nil
}

// normalizeProcess canonicalizes the process name right after decoding so
// unknown values surface as parse errors.
func normalizeProcess(crew *models.Crew) error {
	process, err := models.ParseProcess(string(crew.Process))
	if err != nil {
		return err
	}
	crew.Process = process
	return nil
}
