package loader

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// readLocal reads a path from the OS file system, or from files when non-nil.
// Paths inside an fs.FS are slash separated and relative.
func readLocal(ctx context.Context, files fs.FS, location string) ([]byte, error) {
	if location == "" {
		return nil, errors.New("loader: path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if files != nil {
		return fs.ReadFile(files, filepath.ToSlash(location))
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}
