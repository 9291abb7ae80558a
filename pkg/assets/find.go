package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// IsImage reports whether path has an image extension we can decode.
func IsImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// Scan finds raster assets under root. Files below a "frames" directory
// become frames; all other images become stickers, categorized by their
// parent directory.
func Scan(root string) ([]Asset, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	found := []Asset{}
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path != root && strings.HasPrefix(filepath.Base(path), ".") {
				if de.IsDir() {
					return godirwalk.SkipThis
				}
				return nil
			}
			if de.IsDir() || !IsImage(path) {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			a := fromPath(rel, path)
			klog.V(1).Infof("found %s %s at %s", a.Kind, a.ID, path)
			found = append(found, a)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	return found, nil
}

func fromPath(rel, path string) Asset {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	base := strings.TrimSuffix(parts[len(parts)-1], filepath.Ext(path))

	kind := KindSticker
	category := "custom"
	if len(parts) > 1 {
		category = parts[len(parts)-2]
		if strings.EqualFold(parts[0], "frames") {
			kind = KindFrame
		}
	}
	return Asset{
		ID:       "file:" + filepath.ToSlash(rel),
		Name:     strings.ReplaceAll(base, "-", " "),
		Category: category,
		Kind:     kind,
		Path:     path,
	}
}
