// Package download writes finished images to disk under generated names.
package download

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"
)

// Filename returns photobooth-<ms>.png, or photostrip-<ms>.png for
// multi-photo output.
func Filename(multi bool, t time.Time) string {
	prefix := "photobooth"
	if multi {
		prefix = "photostrip"
	}
	return fmt.Sprintf("%s-%d.png", prefix, t.UnixMilli())
}

// ArchivePath returns dir/YYYY/MM/<Filename>, with the extension matching
// the encoding of data.
func ArchivePath(dir string, multi bool, t time.Time, data []byte) string {
	name := Filename(multi, t)
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil && format == "jpeg" {
		name = strings.TrimSuffix(name, ".png") + ".jpg"
	}
	return filepath.Join(dir, fmt.Sprintf("%d", t.Year()), fmt.Sprintf("%02d", int(t.Month())), name)
}

// Saver writes downloads into Dir.
type Saver struct {
	Dir    string
	Now    func() time.Time
	Tagger *Tagger // optional
}

// Save writes data and returns the path. Metadata stamping is best-effort.
func (s *Saver) Save(data []byte, multi bool) (string, error) {
	if len(data) == 0 {
		return "", errors.New("nothing to save")
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	t := now()
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	path := filepath.Join(s.Dir, Filename(multi, t))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	klog.Infof("saved %s (%d bytes)", path, len(data))

	if s.Tagger != nil {
		if err := s.Tagger.Stamp(path, t); err != nil {
			klog.Warningf("unable to stamp metadata on %s: %v", path, err)
		}
	}
	return path, nil
}

var exifDate = "2006:01:02 15:04:05"

// Tagger writes metadata with exiftool.
type Tagger struct {
	et       *exiftool.Exiftool
	Software string
}

// NewTagger starts an exiftool process.
func NewTagger(software string) (*Tagger, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	return &Tagger{et: et, Software: software}, nil
}

// Stamp records the capture time and software on path.
func (t *Tagger) Stamp(path string, taken time.Time) error {
	return t.write(path, func(fm *exiftool.FileMetadata) {
		fm.SetString("DateTimeOriginal", taken.Format(exifDate))
		fm.SetString("Software", t.Software)
	})
}

// Keywords returns the keywords already on path.
func (t *Tagger) Keywords(path string) ([]string, error) {
	fms := t.et.ExtractMetadata(path)
	if fms[0].Err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, fms[0].Err)
	}
	kw, err := fms[0].GetStrings("Keywords")
	if errors.Is(err, exiftool.ErrKeyNotFound) {
		return nil, nil
	}
	return kw, err
}

// SetKeywords replaces the keywords on path.
func (t *Tagger) SetKeywords(path string, kw []string) error {
	return t.write(path, func(fm *exiftool.FileMetadata) {
		fm.SetStrings("Keywords", kw)
	})
}

func (t *Tagger) write(path string, fn func(*exiftool.FileMetadata)) error {
	fms := t.et.ExtractMetadata(path)
	if fms[0].Err != nil {
		return fmt.Errorf("extract %s: %w", path, fms[0].Err)
	}
	fn(&fms[0])
	t.et.WriteMetadata(fms)
	if fms[0].Err != nil {
		return fmt.Errorf("write %s: %w", path, fms[0].Err)
	}
	return nil
}

// Close stops exiftool.
func (t *Tagger) Close() error {
	return t.et.Close()
}
