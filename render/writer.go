package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"ec2sshconfig/errors"
)

const outputFileMode = 0o600

// Writer sends generated config to a file or to Stdout
type Writer struct {
	Fs     afero.Fs
	Stdout io.Writer
}

// NewWriter returns a Writer on the OS filesystem and process stdout
func NewWriter() *Writer {
	return &Writer{Fs: afero.NewOsFs(), Stdout: os.Stdout}
}

// Write stores content at path. An empty path or "-" writes to Stdout.
// Files are replaced atomically through a temp file in the same directory so
// a failed run never leaves a half written config behind.
func (w *Writer) Write(path, content string) error {
	logger := zap.L().With(
		zap.String("package", packageName),
		zap.String("function", "Write"),
	)

	if path == "" || path == "-" {
		if _, err := io.WriteString(w.Stdout, content); err != nil {
			return errors.New(errors.ErrOutput, "failed to write ssh config to stdout", nil, err)
		}
		return nil
	}

	dir := filepath.Dir(path)
	if err := w.Fs.MkdirAll(dir, 0o700); err != nil {
		return outputError(path, "failed to create output directory", err)
	}

	tmp, err := afero.TempFile(w.Fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return outputError(path, "failed to create temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = w.Fs.Remove(tmpName)
		return outputError(path, "failed to write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		_ = w.Fs.Remove(tmpName)
		return outputError(path, "failed to close temp file", err)
	}
	if err := w.Fs.Chmod(tmpName, outputFileMode); err != nil {
		_ = w.Fs.Remove(tmpName)
		return outputError(path, "failed to set output permissions", err)
	}
	if err := w.Fs.Rename(tmpName, path); err != nil {
		_ = w.Fs.Remove(tmpName)
		return outputError(path, "failed to move output into place", err)
	}

	logger.Info("SSH config written",
		zap.String("operation", "output_write"),
		zap.String("path", path),
		zap.Int("bytes", len(content)),
	)
	return nil
}

func outputError(path, message string, err error) error {
	return errors.New(errors.ErrOutput, fmt.Sprintf("%s: %s", message, path),
		map[string]interface{}{
			"path": path,
		}, err)
}
