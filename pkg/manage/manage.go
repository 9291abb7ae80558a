// Package manage serves a local HTTP browser for the gallery.
package manage

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/fotoautomat/pkg/gallery"
	"github.com/tstromberg/fotoautomat/pkg/i18n"
)

//go:embed assets/index.tmpl
var indexTmpl string

//go:embed assets/style.css
var styleText string

// Server serves one gallery.
type Server struct {
	g     *gallery.Store
	title string
	thumb gallery.ThumbOpts
}

// New creates a new server.
func New(g *gallery.Store, title string) *Server {
	return &Server{g: g, title: title, thumb: gallery.DefaultThumb}
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.IndexHandler())
	mux.HandleFunc("GET /photo/{id}", s.PhotoHandler())
	mux.HandleFunc("GET /thumb/{id}", s.ThumbHandler())
	mux.HandleFunc("POST /photo/{id}/delete", s.DeleteHandler())
	mux.HandleFunc("GET /api/photos", s.ListHandler())
	mux.HandleFunc("GET /api/stats", s.StatsHandler())
	return mux
}

// IndexHandler renders the gallery grouped by day.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.Match(r.Header.Get("Accept-Language"))
		bs, err := s.renderIndex(lang)
		if err != nil {
			klog.Errorf("render index: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(bs); err != nil {
			klog.Warningf("write index: %v", err)
		}
	}
}

func (s *Server) renderIndex(lang string) ([]byte, error) {
	funcs := template.FuncMap{
		"T":     func(key string) string { return i18n.Lookup(lang, key) },
		"Clock": func(t time.Time) string { return t.In(time.Local).Format("15:04") },
	}
	tmpl, err := template.New("index").Funcs(funcs).Parse(indexTmpl)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	data := struct {
		Title string
		Lang  string
		Stats gallery.Stats
		Days  []gallery.Day
		Style template.CSS
	}{
		Title: s.title,
		Lang:  lang,
		Stats: s.g.Stats(),
		Days:  s.g.Days(),
		Style: template.CSS(styleText),
	}

	var tpl bytes.Buffer
	if err := tmpl.Execute(&tpl, data); err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	return tpl.Bytes(), nil
}

// PhotoHandler serves the stored image bytes.
func (s *Server) PhotoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := s.g.Get(r.PathValue("id"))
		if err != nil {
			fail(w, err)
			return
		}
		serveImage(w, e.ImageData)
	}
}

// ThumbHandler serves a cached thumbnail.
func (s *Server) ThumbHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bs, err := s.g.Thumbnail(r.Context(), r.PathValue("id"), s.thumb)
		if err != nil {
			fail(w, err)
			return
		}
		serveImage(w, bs)
	}
}

// DeleteHandler removes an entry and redirects to the index.
func (s *Server) DeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := s.g.Delete(id); err != nil {
			fail(w, err)
			return
		}
		klog.Infof("deleted %s", id)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// photo is the JSON listing form of an entry; image bytes are linked, not inlined.
type photo struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  *gallery.Metadata `json:"metadata,omitempty"`
	URL       string            `json:"url"`
	Thumb     string            `json:"thumb"`
}

// ListHandler returns the entries as JSON, most recent first.
func (s *Server) ListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		es := s.g.List()
		out := make([]photo, 0, len(es))
		for _, e := range es {
			out = append(out, photo{
				ID:        e.ID,
				Timestamp: e.Timestamp,
				Metadata:  e.Metadata,
				URL:       "/photo/" + e.ID,
				Thumb:     "/thumb/" + e.ID,
			})
		}
		writeJSON(w, out)
	}
}

// StatsHandler returns gallery.Stats as JSON.
func (s *Server) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, s.g.Stats())
	}
}

func serveImage(w http.ResponseWriter, bs []byte) {
	w.Header().Set("Content-Type", http.DetectContentType(bs))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(bs); err != nil {
		klog.Warningf("write image: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.Warningf("encode: %v", err)
	}
}

func fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gallery.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, gallery.ErrPersistence):
		klog.Errorf("gallery: %v", err)
		http.Error(w, err.Error(), http.StatusInsufficientStorage)
	default:
		klog.Errorf("gallery: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
