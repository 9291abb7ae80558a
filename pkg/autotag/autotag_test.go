package autotag

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGen struct {
	reply string
	err   error
	got   []*genai.Content
	model string
}

func (f *fakeGen) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.got = contents
	f.model = model
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: f.reply}}},
	}}}, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestParse(t *testing.T) {
	assert.Equal(t, []string{"party", "friends", "smile", "hat", "confetti"},
		Parse("Party, Friends , party,smile,hat,confetti,extra"))
	assert.Equal(t, []string{"bw", "icecream"}, Parse(" bw., ice cream ,,"))
	assert.Empty(t, Parse(""))
}

func TestSuggest(t *testing.T) {
	gen := &fakeGen{reply: "birthday, kids, hat"}
	tg := New(gen, "")
	tags, err := tg.Suggest(context.Background(), pngBytes(t, 100, 800))
	require.NoError(t, err)
	assert.Equal(t, []string{"birthday", "kids", "hat"}, tags)
	assert.Equal(t, DefaultModel, gen.model)

	require.Len(t, gen.got, 1)
	img := gen.got[0].Parts[0].InlineData
	require.NotNil(t, img)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 350, cfg.Height)
}

func TestSuggestErrors(t *testing.T) {
	tg := New(&fakeGen{err: errors.New("quota")}, "m")
	_, err := tg.Suggest(context.Background(), pngBytes(t, 4, 4))
	assert.Error(t, err)

	_, err = tg.Suggest(context.Background(), []byte("junk"))
	assert.Error(t, err)

	_, err = NewClient(context.Background(), "")
	assert.Error(t, err)
}
