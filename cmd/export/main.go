// export copies gallery entries into a dated directory tree.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"

	"github.com/tstromberg/fotoautomat/pkg/blob"
	"github.com/tstromberg/fotoautomat/pkg/download"
	"github.com/tstromberg/fotoautomat/pkg/gallery"
	"github.com/tstromberg/fotoautomat/pkg/template"
)

var (
	store  = flag.String("gallery", "", "gallery store: dir:<path> or sqlite:<path>")
	outDir = flag.String("out", "", "Location of output directory")
	backup = flag.String("backup", "", "also copy a dir store to this directory")
	dryRun = flag.Bool("n", false, "dry-run mode, don't write things")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *store == "" {
		klog.Exitf("--gallery is a required flag")
	}
	if *outDir == "" {
		klog.Exitf("--out is a required flag")
	}

	backend, path, _ := strings.Cut(*store, ":")
	b, err := blob.Open(backend, path)
	if err != nil {
		klog.Exitf("open store: %v", err)
	}
	if sq, ok := b.(*blob.SQLite); ok {
		defer sq.Close()
	}

	g, err := gallery.Open(b)
	if err != nil {
		klog.Exitf("open gallery: %v", err)
	}

	written := 0
	for _, e := range g.List() {
		multi := false
		if e.Metadata != nil {
			if t, err := template.Lookup(e.Metadata.Template); err == nil {
				multi = t.Multi()
			}
		}
		dst := download.ArchivePath(*outDir, multi, e.Timestamp, e.ImageData)
		if _, err := os.Stat(dst); err == nil {
			klog.V(1).Infof("%s exists, skipping", dst)
			continue
		}
		klog.Infof("%s -> %s", e.ID, dst)
		if *dryRun {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			klog.Exitf("mkdir: %v", err)
		}
		if err := os.WriteFile(dst, e.ImageData, 0o644); err != nil {
			klog.Exitf("write: %v", err)
		}
		written++
	}
	klog.Infof("exported %d of %d entries to %s", written, g.Len(), *outDir)

	if *backup == "" || *dryRun {
		return
	}
	d, ok := b.(*blob.Dir)
	if !ok {
		klog.Exitf("--backup needs a dir store, got %s", backend)
	}
	if err := d.Backup(*backup); err != nil {
		klog.Exitf("backup: %v", err)
	}
}
