package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/arigen-tech/docsearch/config"
	"github.com/arigen-tech/docsearch/internal/models"
	"github.com/arigen-tech/docsearch/pkg/logger"
)

type fakeOCR struct {
	text       string
	confidence float64
	err        error
}

func (f *fakeOCR) ExtractText(ctx context.Context, data []byte) (string, float64, error) {
	return f.text, f.confidence, f.err
}

func testEngineConfig() *cfg.EngineConfig {
	return &cfg.EngineConfig{
		MinPageConfidence: 0.60,
		OCRRetries:        0,
		PageWorkers:       2,
		MaxPassageLen:     600,
		MinPassageLen:     24,
	}
}

func collect(t *testing.T, ch <-chan PageResult) []PageResult {
	t.Helper()
	var out []PageResult
	for res := range ch {
		out = append(out, res)
	}
	return out
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		hint    string
		want    string
		wantErr bool
	}{
		{hint: ".pdf", want: "application/pdf"},
		{hint: "pdf", want: "application/pdf"},
		{hint: "PDF", want: "application/pdf"},
		{hint: "application/pdf", want: "application/pdf"},
		{hint: ".jpeg", want: "image/jpeg"},
		{hint: ".jpg", want: "image/jpeg"},
		{hint: "txt", want: "text/plain"},
		{hint: "", wantErr: true},
		{hint: ".docx", wantErr: true},
		{hint: "application/zip", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ResolveFormat(tt.hint)
		if tt.wantErr {
			assert.ErrorIs(t, err, models.ErrUnsupportedFormat, "hint %q", tt.hint)
			continue
		}
		require.NoError(t, err, "hint %q", tt.hint)
		assert.Equal(t, tt.want, got, "hint %q", tt.hint)
	}
}

func TestRegistryUnsupportedFormatFailsFast(t *testing.T) {
	r := NewRegistry(&fakeOCR{}, testEngineConfig(), logger.NewTestLogger())

	_, err := r.Extract(context.Background(), []byte("data"), ".docx")
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
}

func TestTextExtractorPages(t *testing.T) {
	e := NewTextExtractor()

	ch, err := e.Extract(context.Background(), []byte("page one text\fpage two text\fpage three"))
	require.NoError(t, err)

	results := collect(t, ch)
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, i+1, res.Ordinal)
		assert.Equal(t, models.PageOK, res.Status)
		assert.Equal(t, 1.0, res.Confidence)
	}
	assert.Equal(t, "page one text", results[0].Text)
	assert.Equal(t, "page three", results[2].Text)
}

func TestTextExtractorSinglePage(t *testing.T) {
	e := NewTextExtractor()

	ch, err := e.Extract(context.Background(), []byte("no form feeds here"))
	require.NoError(t, err)

	results := collect(t, ch)
	require.Len(t, results, 1)
	assert.Equal(t, "no form feeds here", results[0].Text)
}

func TestImageExtractorOK(t *testing.T) {
	e := NewImageExtractor(&fakeOCR{text: "scanned words", confidence: 0.85}, 0.60, logger.NewTestLogger())

	ch, err := e.Extract(context.Background(), []byte("img"))
	require.NoError(t, err)

	results := collect(t, ch)
	require.Len(t, results, 1)
	assert.Equal(t, models.PageOK, results[0].Status)
	assert.Equal(t, "scanned words", results[0].Text)
}

func TestImageExtractorLowConfidenceSkipped(t *testing.T) {
	e := NewImageExtractor(&fakeOCR{text: "garbled", confidence: 0.30}, 0.60, logger.NewTestLogger())

	ch, err := e.Extract(context.Background(), []byte("img"))
	require.NoError(t, err)

	results := collect(t, ch)
	require.Len(t, results, 1)
	assert.Equal(t, models.PageSkipped, results[0].Status)
	assert.Equal(t, "garbled", results[0].Text, "skipped text is kept for audit")
}

func TestImageExtractorOCRFailure(t *testing.T) {
	e := NewImageExtractor(&fakeOCR{err: errors.New("engine down")}, 0.60, logger.NewTestLogger())

	ch, err := e.Extract(context.Background(), []byte("img"))
	require.NoError(t, err)

	results := collect(t, ch)
	require.Len(t, results, 1)
	assert.Equal(t, models.PageFailed, results[0].Status)
	assert.NotEmpty(t, results[0].Err)
}

func TestPDFExtractorRejectsGarbage(t *testing.T) {
	e := NewPDFExtractor(&fakeOCR{}, 2, 0.60, logger.NewTestLogger())

	_, err := e.Extract(context.Background(), []byte("this is not a pdf"))
	assert.Error(t, err)
}

func TestRegistryRoutesTextFormat(t *testing.T) {
	r := NewRegistry(&fakeOCR{}, testEngineConfig(), logger.NewTestLogger())

	ch, err := r.Extract(context.Background(), []byte("hello\fworld"), ".txt")
	require.NoError(t, err)

	results := collect(t, ch)
	assert.Len(t, results, 2)
}
