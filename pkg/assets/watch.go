package assets

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

// Watch reloads l whenever files under its root change, until ctx is done.
func Watch(ctx context.Context, l *Library) error {
	if l.root == "" {
		return fmt.Errorf("library has no asset directory")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	dirs, err := subdirs(l.root)
	if err != nil {
		return err
	}
	klog.Infof("watching %d asset dirs ...", len(dirs))
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(1).Infof("asset event: %s", event)
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.Add(event.Name); err != nil {
						klog.Warningf("watch %s: %v", event.Name, err)
					}
				}
			}
			if err := l.Reload(); err != nil {
				klog.Errorf("reload assets: %v", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}

func subdirs(root string) ([]string, error) {
	dirs := []string{}
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				dirs = append(dirs, path)
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	return dirs, nil
}
