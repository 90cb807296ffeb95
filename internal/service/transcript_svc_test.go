package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

type fakeFetcher struct {
	calls int
	langs []string
}

func (f *fakeFetcher) Fetch(_ context.Context, videoID string, langs []string) *model.Transcript {
	f.calls++
	f.langs = langs
	if videoID == "nocaptions1" {
		msg := "no transcript available"
		return &model.Transcript{VideoID: videoID, Error: &msg}
	}
	lang := "ko"
	return &model.Transcript{
		Success:  true,
		VideoID:  videoID,
		Language: &lang,
		Segments: []model.TranscriptSegment{{Start: 0, Duration: 1.5, Text: "안녕하세요"}},
		FullText: "안녕하세요",
	}
}

func (f *fakeFetcher) Languages(_ context.Context, videoID string) *model.LanguagesResponse {
	f.calls++
	return &model.LanguagesResponse{
		Success:   true,
		VideoID:   videoID,
		Languages: []model.TranscriptLanguage{{Code: "ko", Name: "Korean"}},
	}
}

func TestTranscript_Fetch(t *testing.T) {
	f := &fakeFetcher{}
	svc := NewTranscriptService(f, NewCacheServiceWithClient(nil), 0)
	ctx := context.Background()

	tr, err := svc.Transcript(ctx, " dQw4w9WgXcQ ", []string{"ko", "en"})
	require.NoError(t, err)
	assert.True(t, tr.Success)
	assert.Equal(t, "dQw4w9WgXcQ", tr.VideoID)
	assert.Equal(t, []string{"ko", "en"}, f.langs)

	// Missing captions are reported in the body, not as an error.
	tr, err = svc.Transcript(ctx, "nocaptions1", nil)
	require.NoError(t, err)
	assert.False(t, tr.Success)
	require.NotNil(t, tr.Error)

	_, err = svc.Transcript(ctx, "bad id", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 2, f.calls)
}

func TestTranscript_Languages(t *testing.T) {
	f := &fakeFetcher{}
	svc := NewTranscriptService(f, NewCacheServiceWithClient(nil), 0)

	res, err := svc.Languages(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Len(t, res.Languages, 1)
	assert.Equal(t, "ko", res.Languages[0].Code)

	_, err = svc.Languages(context.Background(), "toolongvideoid")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
