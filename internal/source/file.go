package source

import (
	"context"
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
)

// FileSource reads the catalogue from a local JSON file, typically an export
// of the catalogue API.
type FileSource struct {
	path string
}

func NewFile(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return "file://" + s.path
}

// Path is the file being read.
func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) Fetch(ctx context.Context) ([]frame.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening catalogue file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
