// Package file implements ports.ResourceLoader over a project directory
// on the local filesystem. Paths are project-relative; escaping the
// root is rejected.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Loader reads scene files under a project root.
type Loader struct {
	root string
}

// New creates a loader rooted at projectDir. If projectDir is empty,
// it defaults to the current directory.
func New(projectDir string) (*Loader, error) {
	if projectDir == "" {
		projectDir = "."
	}
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat project dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path is not a directory: %s", abs)
	}
	return &Loader{root: abs}, nil
}

// Root returns the absolute project root.
func (l *Loader) Root() string { return l.root }

// resolve joins path onto the root, rejecting traversal outside it.
func (l *Loader) resolve(path string) (string, error) {
	full := filepath.Join(l.root, filepath.FromSlash(path))
	if full != l.root && !strings.HasPrefix(full, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes project root: %s", path)
	}
	return full, nil
}

// ReadFile returns the raw bytes of a scene file.
func (l *Loader) ReadFile(path string) ([]byte, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// FileExists reports whether the path resolves to a regular file.
func (l *Loader) FileExists(path string) bool {
	full, err := l.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// ModTime returns the file's last-modified stamp, or the zero time.
func (l *Loader) ModTime(path string) time.Time {
	full, err := l.resolve(path)
	if err != nil {
		return time.Time{}
	}
	info, err := os.Stat(full)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Watch emits the project-relative path of every scene file written or
// removed under the root, recursively, until ctx is done. Non-scene
// files are ignored.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := filepath.WalkDir(l.root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	}); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch project tree: %w", err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				// New directories join the watch set.
				if ev.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						_ = watcher.Add(ev.Name)
						continue
					}
				}
				if !strings.HasSuffix(ev.Name, ".scene") {
					continue
				}
				rel, err := filepath.Rel(l.root, ev.Name)
				if err != nil {
					continue
				}
				select {
				case out <- filepath.ToSlash(rel):
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}
