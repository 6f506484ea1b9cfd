// Package transfer moves file contents through an agent's shell command
// channel as base64 text.
//
// Paths are single-quoted with listing.Quote. The payload itself only
// holds base64 characters, but the remote argument size limit still bounds
// what one echo can carry. It is the only
// transport the command endpoint offers.
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"portalctl/src/listing"
	"portalctl/src/logging"
	"portalctl/src/rpc"
)

const defaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	"txt":  "text/plain",
	"html": "text/html",
	"css":  "text/css",
	"js":   "application/javascript",
	"json": "application/json",
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"mp3":  "audio/mpeg",
	"mp4":  "video/mp4",
	"zip":  "application/zip",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// ContentType infers a MIME type from the extension of name.
func ContentType(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return defaultContentType
}

// IsText reports whether content of type ct can be shown as text.
func IsText(ct string) bool {
	switch {
	case strings.HasPrefix(ct, "text/"):
		return true
	case ct == "application/json", ct == "application/javascript", ct == "image/svg+xml":
		return true
	}
	return false
}

func downloadCommand(remotePath string) string {
	return "cat " + listing.Quote(remotePath) + " | base64"
}

func uploadCommand(encoded, dir, name string) string {
	return "echo '" + encoded + "' | base64 -d > " + listing.Quote(listing.JoinPath(dir, name))
}

// Download fetches remotePath from the agent and hands it to sink.
func Download(ctx context.Context, exec rpc.Executor, agentID, remotePath string, sink Sink) error {
	remotePath = listing.Clean(remotePath)
	out, err := rpc.ShellOutput(ctx, exec, agentID, downloadCommand(remotePath))
	if err != nil {
		return fmt.Errorf("download %s: %w", remotePath, err)
	}
	data, err := Decode(out)
	if err != nil {
		return fmt.Errorf("download %s: %w", remotePath, err)
	}
	name := listing.Base(remotePath)
	ct := ContentType(name)
	logging.L().Debug("downloaded",
		zap.String("agent", agentID),
		zap.String("path", remotePath),
		zap.Int("bytes", len(data)),
		zap.String("type", ct))
	if err := sink.Deliver(ctx, data, ct, name); err != nil {
		return fmt.Errorf("deliver %s: %w", name, err)
	}
	return nil
}

// File is a local artifact queued for upload.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// LocalFile uploads the file at p under its base name.
func LocalFile(p string) File {
	return File{
		Name: filepath.Base(p),
		Open: func() (io.ReadCloser, error) { return os.Open(p) },
	}
}

// BytesFile uploads data under name.
func BytesFile(name string, data []byte) File {
	return File{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// Progress is called after each completed file.
type Progress func(completed, total int)

// Upload writes files into targetDir one at a time, in order. It stops at
// the first failure; files already written stay written.
func Upload(ctx context.Context, exec rpc.Executor, agentID, targetDir string, files []File, progress Progress) error {
	targetDir = listing.Clean(targetDir)
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := path.Base(filepath.ToSlash(f.Name))
		if name == "." || name == ".." || name == "/" {
			return fmt.Errorf("upload %q: invalid file name", f.Name)
		}
		data, err := readAll(f)
		if err != nil {
			return fmt.Errorf("upload %s: %w", name, err)
		}
		if _, err := rpc.ShellOutput(ctx, exec, agentID, uploadCommand(Encode(data), targetDir, name)); err != nil {
			return fmt.Errorf("upload %s: %w", name, err)
		}
		logging.L().Debug("uploaded",
			zap.String("agent", agentID),
			zap.String("path", listing.JoinPath(targetDir, name)),
			zap.Int("bytes", len(data)))
		if progress != nil {
			progress(i+1, len(files))
		}
	}
	return nil
}

func readAll(f File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
