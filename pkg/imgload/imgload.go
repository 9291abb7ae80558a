// Package imgload decodes images from bytes, data URLs, and files with a
// bounded timeout. Every asset in the booth is loaded through here.
package imgload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"strings"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"golang.org/x/sync/errgroup"
	_ "golang.org/x/image/webp" // register decoder
	"k8s.io/klog/v2"
)

// DefaultTimeout bounds a single load when the caller passes zero.
const DefaultTimeout = 5 * time.Second

// ErrAssetLoadFailed is returned when an image cannot be decoded in time.
var ErrAssetLoadFailed = errors.New("asset load failed")

// Load decodes src, which may be raw encoded bytes or a base64 data URL.
// It gives up after timeout or when ctx is done.
func Load(ctx context.Context, src []byte, timeout time.Duration) (image.Image, error) {
	return run(ctx, timeout, func() (image.Image, error) {
		raw, err := payload(src)
		if err != nil {
			return nil, err
		}
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		return img, nil
	})
}

// LoadFile decodes the image at path.
func LoadFile(ctx context.Context, path string, timeout time.Duration) (image.Image, error) {
	return run(ctx, timeout, func() (image.Image, error) {
		img, err := imgio.Open(path)
		if err != nil {
			return nil, fmt.Errorf("imgio.Open: %w", err)
		}
		return img, nil
	})
}

// Result is the outcome of one load within LoadAll.
type Result struct {
	Image image.Image
	Err   error
}

// LoadAll decodes every source concurrently. Individual failures are
// reported per index; LoadAll itself only fails when ctx is canceled.
func LoadAll(ctx context.Context, srcs [][]byte, timeout time.Duration) ([]Result, error) {
	out := make([]Result, len(srcs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, src := range srcs {
		g.Go(func() error {
			img, err := Load(gctx, src, timeout)
			out[i] = Result{Image: img, Err: err}
			if err != nil {
				klog.V(1).Infof("image %d failed to load: %v", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DataURL encodes data as a base64 data URL, sniffing the MIME type.
func DataURL(data []byte) string {
	mime := "image/png"
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		mime = "image/" + format
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func payload(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.New("empty source")
	}
	if !bytes.HasPrefix(src, []byte("data:")) {
		return src, nil
	}
	s := string(src)
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return nil, errors.New("malformed data URL")
	}
	header := s[len("data:"):comma]
	body := s[comma+1:]
	if !strings.HasSuffix(header, ";base64") {
		return []byte(body), nil
	}
	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}
	return raw, nil
}

func run(ctx context.Context, timeout time.Duration, fn func() (image.Image, error)) (image.Image, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssetLoadFailed, err)
	}

	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)
	go func() {
		img, err := fn()
		ch <- result{img, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAssetLoadFailed, r.err)
		}
		return r.img, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrAssetLoadFailed, ctx.Err())
	}
}
