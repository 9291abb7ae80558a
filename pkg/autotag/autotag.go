// Package autotag suggests keywords for finished photos using a Gemini
// vision model.
package autotag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"google.golang.org/genai"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotoautomat/pkg/imgload"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// MaxTags caps the number of keywords returned.
const MaxTags = 5

// Generator is the subset of *genai.Models we need.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var prompt = "generate 1-5 comma-separated one-word tags for this photo booth picture. " +
	"Example tags: party, wedding, birthday, friends, family, selfie, couple, kids, pet, costume, " +
	"hat, glasses, smile, silly, strip, bw for black and white photos. " +
	"Tags should be a present-tense singular word. Do not combine multiple words. " +
	"Do not use plural words."

// Tagger asks a model for keywords.
type Tagger struct {
	gen   Generator
	model string
}

// New returns a Tagger. An empty model selects DefaultModel.
func New(gen Generator, model string) *Tagger {
	if model == "" {
		model = DefaultModel
	}
	return &Tagger{gen: gen, model: model}
}

// NewClient builds a Gemini client from an API key.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("no API key")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
}

// Suggest returns up to MaxTags lowercase keywords for the encoded image.
func (t *Tagger) Suggest(ctx context.Context, image []byte) ([]string, error) {
	small, err := shrink(ctx, image, 350)
	if err != nil {
		return nil, err
	}
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: small}},
			{Text: prompt},
		},
	}}
	resp, err := t.gen.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	tags := Parse(sb.String())
	klog.V(1).Infof("model suggested %v", tags)
	return tags, nil
}

// Parse turns a comma-separated model reply into clean, unique tags.
func Parse(s string) []string {
	seen := map[string]bool{}
	tags := []string{}
	for _, f := range strings.Split(s, ",") {
		tag := strings.ToLower(strings.Join(strings.Fields(f), ""))
		tag = strings.Trim(tag, ".\"'`")
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == MaxTags {
			break
		}
	}
	return tags
}

func shrink(ctx context.Context, data []byte, height int) ([]byte, error) {
	img, err := imgload.Load(ctx, data, 0)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dy() > height {
		w := max(1, b.Dx()*height/b.Dy())
		img = transform.Resize(img, w, height, transform.Lanczos)
	}
	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(80)(&buf, img); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}
