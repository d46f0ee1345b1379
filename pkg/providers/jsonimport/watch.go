package jsonimport

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/red1oon/ADUI/pkg/schema"
)

// Watch imports path and re-imports it whenever the file is written or
// recreated, until ctx is cancelled. onImport, when set, receives the outcome
// of every import including the first. The parent directory is watched so
// editors that replace the file atomically are handled.
func (p *Provider) Watch(ctx context.Context, path string, onImport func(schema.WindowDefinition, error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("json import: watch %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("json import: watch %s: %w", path, err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("json import: watch %s: %w", path, err)
	}

	reimport := func() {
		window, err := p.ImportFile(ctx, abs)
		if onImport != nil {
			onImport(window, err)
		}
	}
	reimport()
	p.logger.Debug("watching import file", "path", abs)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.logger.Info("import file changed, re-importing", "path", abs, "op", event.Op.String())
			reimport()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("import watcher error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}
