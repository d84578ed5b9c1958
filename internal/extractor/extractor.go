package extractor

import (
	"context"
	"fmt"
	"strings"

	cfg "github.com/arigen-tech/docsearch/config"
	"github.com/arigen-tech/docsearch/internal/models"
	"github.com/arigen-tech/docsearch/internal/ocr"
	"github.com/arigen-tech/docsearch/pkg/logger"
)

// PageResult is one page coming off the extraction stream. Extraction
// failure is data, not an error: a failed page carries its status and
// reason while siblings keep flowing.
type PageResult struct {
	Ordinal    int
	Text       string
	Confidence float64
	Status     models.PageStatus
	Err        string
}

// Extractor turns document bytes into an ordered, lazily produced page
// stream. The channel closes when the document is exhausted or ctx is done.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (<-chan PageResult, error)
}

// Format hints resolve through extensions to MIME types, the same mapping
// the upload surface validates against.
var extToMIME = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".tiff": "image/tiff",
	".txt":  "text/plain",
}

// Registry dispatches to a format-specific extractor by MIME type.
type Registry struct {
	extractors map[string]Extractor
	logger     logger.Logger
}

// NewRegistry wires the per-format extractors around one OCR client,
// wrapped with bounded retries so transient engine failures do not fail
// pages immediately.
func NewRegistry(ocrClient ocr.Client, engineCfg *cfg.EngineConfig, log logger.Logger) *Registry {
	retrying := ocr.WithRetries(ocrClient, engineCfg.OCRRetries, log)

	pdfExtractor := NewPDFExtractor(retrying, engineCfg.PageWorkers, engineCfg.MinPageConfidence, log)
	imageExtractor := NewImageExtractor(retrying, engineCfg.MinPageConfidence, log)
	textExtractor := NewTextExtractor()

	r := &Registry{
		extractors: make(map[string]Extractor),
		logger:     log,
	}
	r.Register("application/pdf", pdfExtractor)
	r.Register("image/png", imageExtractor)
	r.Register("image/jpeg", imageExtractor)
	r.Register("image/tiff", imageExtractor)
	r.Register("text/plain", textExtractor)
	return r
}

// Register installs or replaces the extractor for a MIME type.
func (r *Registry) Register(mimeType string, e Extractor) {
	r.extractors[mimeType] = e
}

// Extract resolves the format hint and streams pages. Unsupported formats
// fail the whole document fast: no page is ever produced for them.
func (r *Registry) Extract(ctx context.Context, data []byte, formatHint string) (<-chan PageResult, error) {
	mimeType, err := ResolveFormat(formatHint)
	if err != nil {
		return nil, err
	}

	ext, ok := r.extractors[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, mimeType)
	}

	r.logger.Debug("starting extraction",
		logger.String("mimeType", mimeType),
		logger.Int("bytes", len(data)),
	)
	return ext.Extract(ctx, data)
}

// ResolveFormat maps an extension or MIME hint to the canonical MIME type.
func ResolveFormat(formatHint string) (string, error) {
	hint := strings.ToLower(strings.TrimSpace(formatHint))
	if hint == "" {
		return "", fmt.Errorf("%w: empty format hint", models.ErrUnsupportedFormat)
	}
	if strings.Contains(hint, "/") {
		for _, mime := range extToMIME {
			if mime == hint {
				return mime, nil
			}
		}
		return "", fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, hint)
	}
	if !strings.HasPrefix(hint, ".") {
		hint = "." + hint
	}
	mime, ok := extToMIME[hint]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, hint)
	}
	return mime, nil
}

// pageFromOCR grades an OCR result against the confidence threshold. Low
// confidence pages are kept for audit but flagged skipped so they never
// reach the index.
func pageFromOCR(ordinal int, text string, confidence, minConfidence float64) PageResult {
	status := models.PageOK
	if confidence < minConfidence {
		status = models.PageSkipped
	}
	return PageResult{
		Ordinal:    ordinal,
		Text:       text,
		Confidence: confidence,
		Status:     status,
	}
}
