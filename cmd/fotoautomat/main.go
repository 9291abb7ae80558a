// fotoautomat runs a photo booth session from the command line.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/fotoautomat/pkg/assets"
	"github.com/tstromberg/fotoautomat/pkg/booth"
	"github.com/tstromberg/fotoautomat/pkg/capture"
	"github.com/tstromberg/fotoautomat/pkg/download"
	"github.com/tstromberg/fotoautomat/pkg/i18n"
	"github.com/tstromberg/fotoautomat/pkg/manage"
	"github.com/tstromberg/fotoautomat/pkg/session"
)

var (
	configPath = flag.String("config", "", "path to config.json (default ~/.config/fotoautomat/config.json)")
	camDir     = flag.String("camera", "", "directory of images to use as the camera feed")
	tmplID     = flag.String("template", "", "template id, e.g. 4x1, 2x2, 1x1")
	mode       = flag.String("mode", "", "capture mode: single, countdown or burst")
	background = flag.String("background", "", "background id")
	frame      = flag.String("frame", "", "frame id")
	stickers   = flag.String("stickers", "", "comma-separated sticker ids to add")
	assetDir   = flag.String("assets", "", "directory of extra stickers and frames")
	outDir     = flag.String("out", "", "download directory")
	gallery    = flag.String("gallery", "", "gallery store: memory, dir:<path> or sqlite:<path>")
	lang       = flag.String("lang", "", "language for status messages")
	stamp      = flag.Bool("stamp", false, "stamp downloads with exiftool metadata")
	saveFlag   = flag.Bool("save", true, "save the edited photo to the gallery")
	listen     = flag.Bool("listen", false, "serve the gallery via HTTP after the session")
	addr       = flag.String("addr", "localhost:12800", "host:port to bind to in listen mode")
	watchFlag  = flag.Bool("watch", false, "watch the asset directory for changes")
	timeout    = flag.Duration("timeout", 2*time.Minute, "give up on a session after this long")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	booth.RouteLibraryLogs()

	c, err := booth.LoadConfig(*configPath)
	if err != nil {
		klog.Exitf("config: %v", err)
	}
	applyFlags(c)
	if err := c.Validate(); err != nil {
		klog.Exitf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lib, err := assets.NewLibrary(c.AssetDir)
	if err != nil {
		klog.Exitf("assets: %v", err)
	}

	opts := []booth.Option{
		booth.WithLibrary(lib),
		booth.WithFlasher(capture.FlashFunc(func() { klog.Infof("*flash*") })),
		booth.WithEvents(events(c.Language)),
	}
	if *stamp {
		t, err := download.NewTagger("fotoautomat")
		if err != nil {
			klog.Warningf("metadata stamping disabled: %v", err)
		} else {
			defer t.Close()
			opts = append(opts, booth.WithTagger(t))
		}
	}

	var src capture.Source = capture.TestPattern{}
	if *camDir != "" {
		src = capture.Fallback{Primary: capture.DirSource{Root: *camDir}, Secondary: capture.TestPattern{}}
	}

	b, err := booth.New(c, src, opts...)
	if err != nil {
		klog.Exitf("booth: %v", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			klog.Errorf("close: %v", err)
		}
	}()

	var wg sync.WaitGroup
	if *watchFlag && c.AssetDir != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := assets.Watch(ctx, lib); err != nil {
				klog.Errorf("watch: %v", err)
			}
		}()
	}

	if err := run(ctx, c, b); err != nil {
		klog.Errorf("session failed: %v", err)
	}

	if *listen {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(ctx, b, c.Title, *addr)
		}()
	}

	if !*listen && !*watchFlag {
		return
	}
	wg.Wait()
}

func applyFlags(c *booth.Config) {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *tmplID != "" {
		c.Template = *tmplID
	}
	if *mode != "" {
		c.Mode = *mode
	}
	if *background != "" {
		c.Background = *background
	}
	if *frame != "" {
		c.Frame = *frame
	}
	if *assetDir != "" {
		c.AssetDir = *assetDir
	}
	if *outDir != "" {
		c.DownloadDir = *outDir
	}
	if *lang != "" {
		c.Language = *lang
	}
	if set["gallery"] {
		backend, path, _ := strings.Cut(*gallery, ":")
		c.Gallery = booth.GalleryConfig{Backend: backend, Path: path}
	}
}

func events(lang string) booth.Events {
	say := func(key string) string { return i18n.Lookup(lang, key) }
	return booth.Events{
		Tick: func(n int) { klog.Infof("%s %d", say("status.countdown"), n) },
		Captured: func(f session.Frame) {
			klog.Infof("%s (%d)", say("status.capturing"), f.Index+1)
		},
		Ready:  func(session.Result) { klog.Infof("%s", say("status.complete")) },
		Failed: func(err error) { klog.Errorf("%s: %v", say("error.capture"), err) },
	}
}

// run drives one capture sequence, decorates the result and hands it off.
func run(ctx context.Context, c *booth.Config, b *booth.Booth) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	klog.Infof("%s", i18n.Lookup(c.Language, "status.idle"))
	if err := b.Shoot(); err != nil {
		return err
	}

	wctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	if _, err := b.Wait(wctx); err != nil {
		return err
	}

	for _, id := range strings.Split(*stickers, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, err := b.AddSticker(ctx, id); err != nil {
			klog.Warningf("sticker %s: %v", id, err)
		}
	}

	if *saveFlag {
		if _, err := b.Save(ctx); err != nil {
			klog.Errorf("%s: %v", i18n.Lookup(c.Language, "error.storage"), err)
		}
	}
	path, err := b.Download(ctx)
	if err != nil {
		return err
	}
	klog.Infof("wrote %s", path)
	return nil
}

// serve serves the gallery via HTTP until ctx is done.
func serve(ctx context.Context, b *booth.Booth, title string, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           manage.New(b.Gallery(), title).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		if err := srv.Close(); err != nil {
			klog.Warningf("close server: %v", err)
		}
	}()

	klog.Infof("Listening on %s...", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		klog.Exitf("listen failed: %v", err)
	}
}
