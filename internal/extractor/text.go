package extractor

import (
	"context"
	"strings"

	"github.com/arigen-tech/docsearch/internal/models"
)

// TextExtractor handles plain text uploads. Pages split on form feed, the
// page separator emitted by pdftotext-style tools; a file without one is a
// single page.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Extract(ctx context.Context, data []byte) (<-chan PageResult, error) {
	pages := strings.Split(string(data), "\f")

	out := make(chan PageResult)
	go func() {
		defer close(out)
		for i, text := range pages {
			res := PageResult{
				Ordinal:    i + 1,
				Text:       text,
				Confidence: 1.0,
				Status:     models.PageOK,
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
