package blob

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

// Dir stores each key as a file in a directory.
type Dir struct {
	root string
}

// NewDir creates root if needed.
func NewDir(root string) (*Dir, error) {
	if root == "" {
		return nil, errors.New("dir store needs a path")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root is the backing directory.
func (d *Dir) Root() string { return d.root }

func (d *Dir) path(key string) string {
	return filepath.Join(d.root, url.PathEscape(key)+".json")
}

func (d *Dir) Get(key string) (string, error) {
	b, err := os.ReadFile(d.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read: %w", err)
	}
	return string(b), nil
}

// Set writes through a temporary file so readers never see a partial value.
func (d *Dir) Set(key, value string) error {
	tmp, err := os.CreateTemp(d.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (d *Dir) Remove(key string) error {
	if err := os.Remove(d.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// Backup copies the store directory to dst, skipping temporary files.
func (d *Dir) Backup(dst string) error {
	klog.Infof("backing up %s to %s", d.root, dst)
	err := copy.Copy(d.root, dst, copy.Options{
		Skip: func(_ os.FileInfo, src, _ string) (bool, error) {
			return filepath.Base(src) != filepath.Base(d.root) && filepath.Base(src)[0] == '.', nil
		},
	})
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}
