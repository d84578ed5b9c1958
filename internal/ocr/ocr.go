package ocr

import (
	"context"
	"fmt"

	cfg "github.com/arigen-tech/docsearch/config"
	"github.com/arigen-tech/docsearch/pkg/logger"
)

// Client is the black-box OCR collaborator: page or image bytes in, text and
// a confidence in [0,1] out. Implementations may fail transiently; callers
// wrap them with Retrying and record exhausted pages as failed rather than
// aborting the document.
type Client interface {
	ExtractText(ctx context.Context, imageOrPageBytes []byte) (text string, confidence float64, err error)
}

// NewClient builds the configured OCR engine.
func NewClient(log logger.Logger) (Client, error) {
	ocrCfg := cfg.GetOCRConfig()
	switch ocrCfg.Engine {
	case "tesseract":
		return NewTesseractClient(ocrCfg.Languages, log), nil
	case "textract":
		return NewTextractClient(context.Background(), ocrCfg, log)
	default:
		return nil, fmt.Errorf("unsupported OCR engine: %s", ocrCfg.Engine)
	}
}

// Retrying retries the wrapped client a bounded number of times before
// giving up. Context cancellation is not retried.
type Retrying struct {
	client  Client
	retries int
	logger  logger.Logger
}

func WithRetries(client Client, retries int, log logger.Logger) *Retrying {
	if retries < 0 {
		retries = 0
	}
	return &Retrying{
		client:  client,
		retries: retries,
		logger:  log,
	}
}

func (r *Retrying) ExtractText(ctx context.Context, data []byte) (string, float64, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		text, confidence, err := r.client.ExtractText(ctx, data)
		if err == nil {
			return text, confidence, nil
		}
		lastErr = err
		r.logger.Warn("OCR attempt failed",
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	return "", 0, fmt.Errorf("ocr failed after %d attempts: %w", r.retries+1, lastErr)
}
