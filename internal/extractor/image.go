package extractor

import (
	"context"
	"fmt"

	"github.com/arigen-tech/docsearch/internal/models"
	"github.com/arigen-tech/docsearch/internal/ocr"
	"github.com/arigen-tech/docsearch/pkg/logger"
)

// ImageExtractor treats an image file as a single-page document routed
// through the OCR client.
type ImageExtractor struct {
	ocr           ocr.Client
	minConfidence float64
	logger        logger.Logger
}

func NewImageExtractor(ocrClient ocr.Client, minConfidence float64, log logger.Logger) *ImageExtractor {
	return &ImageExtractor{
		ocr:           ocrClient,
		minConfidence: minConfidence,
		logger:        log,
	}
}

func (e *ImageExtractor) Extract(ctx context.Context, data []byte) (<-chan PageResult, error) {
	out := make(chan PageResult, 1)
	go func() {
		defer close(out)

		var res PageResult
		text, confidence, err := e.ocr.ExtractText(ctx, data)
		if err != nil {
			res = PageResult{
				Ordinal: 1,
				Status:  models.PageFailed,
				Err:     fmt.Sprintf("ocr failed: %v", err),
			}
		} else {
			res = pageFromOCR(1, text, confidence, e.minConfidence)
		}

		select {
		case out <- res:
		case <-ctx.Done():
		}
	}()
	return out, nil
}
