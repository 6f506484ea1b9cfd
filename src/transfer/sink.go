package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Sink receives a downloaded artifact.
type Sink interface {
	Deliver(ctx context.Context, data []byte, contentType, filename string) error
}

type SinkFunc func(ctx context.Context, data []byte, contentType, filename string) error

func (f SinkFunc) Deliver(ctx context.Context, data []byte, contentType, filename string) error {
	return f(ctx, data, contentType, filename)
}

// DirSink saves artifacts into a local directory, created on demand.
// Only the base of the file name is used.
type DirSink struct {
	Dir string
}

func (s DirSink) Deliver(_ context.Context, data []byte, _ string, filename string) error {
	name, err := safeName(filename)
	if err != nil {
		return err
	}
	target := s.Target(name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644)
}

// Target is where DirSink places filename.
func (s DirSink) Target(filename string) string {
	name, _ := safeName(filename)
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name)
}

func safeName(filename string) (string, error) {
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", filename)
	}
	return name, nil
}
