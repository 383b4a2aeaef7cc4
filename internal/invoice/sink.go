package invoice

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// FileSink delivers an exported artifact to the operator
type FileSink interface {
	// Save stores data under filename and returns where it ended up
	Save(filename string, data []byte) (string, error)
}

// LocalSink implements FileSink by writing into a local directory
type LocalSink struct {
	basePath string
}

// NewLocalSink creates a new LocalSink, creating the directory if needed
func NewLocalSink(basePath string) (*LocalSink, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	return &LocalSink{
		basePath: basePath,
	}, nil
}

// Save writes the file and returns its full path
func (l *LocalSink) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(l.basePath, sanitizeFilename(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return path, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)

// sanitizeFilename keeps a filename inside the sink directory. Invoice numbers
// come from OCR output, so separators and control characters are replaced.
func sanitizeFilename(filename string) string {
	name := unsafeFilenameChars.ReplaceAllString(filename, "_")
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		name = "invoice_" + unknownNumber
	}
	return name
}
