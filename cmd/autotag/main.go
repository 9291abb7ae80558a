// autotag adds suggested keywords to exported booth photos using Gemini.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotoautomat/pkg/assets"
	"github.com/tstromberg/fotoautomat/pkg/autotag"
	"github.com/tstromberg/fotoautomat/pkg/download"
)

var (
	dryRun    = flag.Bool("n", false, "dry-run mode, don't tag things")
	overwrite = flag.Bool("o", false, "overwrite existing tags")
	model     = flag.String("model", autotag.DefaultModel, "Gemini model name")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if len(flag.Args()) == 0 {
		klog.Exitf("No input directories provided. Usage: %s <dir> [dir ...]", os.Args[0])
	}

	key := os.Getenv("GOOGLE_AI_API_KEY")
	if key == "" {
		klog.Exitf("GOOGLE_AI_API_KEY is not set; autotag needs a Gemini API key")
	}

	ctx := context.Background()
	client, err := autotag.NewClient(ctx, key)
	if err != nil {
		klog.Exitf("genai client: %v", err)
	}
	tagger := autotag.New(client.Models, *model)

	ex, err := download.NewTagger("fotoautomat")
	if err != nil {
		klog.Exitf("exiftool: %v", err)
	}
	defer func() {
		if err := ex.Close(); err != nil {
			klog.Errorf("Failed to close exiftool: %v", err)
		}
	}()

	total, tagged := 0, 0
	for _, dir := range flag.Args() {
		err := godirwalk.Walk(dir, &godirwalk.Options{
			Callback: func(path string, de *godirwalk.Dirent) error {
				if de.IsDir() || !assets.IsImage(path) {
					return nil
				}
				total++
				if tagOne(ctx, tagger, ex, path) {
					tagged++
				}
				return nil
			},
		})
		if err != nil {
			klog.Errorf("walk %s: %v", dir, err)
		}
	}

	klog.Infof("autotag completed. Tagged %d of %d images", tagged, total)
}

func tagOne(ctx context.Context, t *autotag.Tagger, ex *download.Tagger, path string) bool {
	if !*overwrite {
		kw, err := ex.Keywords(path)
		if err != nil {
			klog.Warningf("read keywords from %s: %v", path, err)
		}
		if len(kw) > 0 {
			klog.Infof("%s has tags: %v", path, kw)
			return false
		}
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		klog.Errorf("read %s: %v", path, err)
		return false
	}
	tags, err := t.Suggest(ctx, bs)
	if err != nil {
		klog.Errorf("suggest %s: %v", path, err)
		return false
	}
	klog.Infof("adding tags to %s: %v", path, tags)
	if *dryRun || len(tags) == 0 {
		return false
	}
	if err := ex.SetKeywords(path, tags); err != nil {
		klog.Errorf("Failed to write metadata for %s: %v", path, err)
		return false
	}
	return true
}
