package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/arigen-tech/docsearch/internal/models"
	"github.com/arigen-tech/docsearch/internal/ocr"
	"github.com/arigen-tech/docsearch/pkg/logger"
)

// PDFExtractor handles digital and scanned PDFs. Digital pages come from the
// text layer; a page without one falls back to OCR on its largest embedded
// image. Pages are extracted in parallel under a worker cap but always
// emitted in ordinal order, one at a time, so large documents never require
// full materialization before the first page is usable.
type PDFExtractor struct {
	ocr           ocr.Client
	workers       int
	minConfidence float64
	logger        logger.Logger
}

func NewPDFExtractor(ocrClient ocr.Client, workers int, minConfidence float64, log logger.Logger) *PDFExtractor {
	if workers <= 0 {
		workers = 4
	}
	return &PDFExtractor{
		ocr:           ocrClient,
		workers:       workers,
		minConfidence: minConfidence,
		logger:        log,
	}
}

func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (<-chan PageResult, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages := pdfReader.NumPage()
	out := make(chan PageResult)

	// One slot per page keeps emission strictly ordered while pages are
	// processed concurrently.
	slots := make([]chan PageResult, numPages)
	for i := range slots {
		slots[i] = make(chan PageResult, 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.workers)

	for i := 1; i <= numPages; i++ {
		ordinal := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}
			slots[ordinal-1] <- e.extractPage(gctx, pdfReader, ordinal)
			return nil
		})
	}

	go func() {
		defer close(out)
		for _, slot := range slots {
			select {
			case res := <-slot:
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
		// Workers only err on cancellation, which the slot loop already saw.
		_ = g.Wait()
	}()

	return out, nil
}

// extractPage isolates one page: any failure, including panics from
// malformed page content, is absorbed into a failed PageResult.
func (e *PDFExtractor) extractPage(ctx context.Context, pdfReader *pdf.Reader, ordinal int) (res PageResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("page extraction panicked",
				logger.Int("page", ordinal),
				logger.Any("cause", r),
			)
			res = PageResult{
				Ordinal: ordinal,
				Status:  models.PageFailed,
				Err:     fmt.Sprintf("malformed page content: %v", r),
			}
		}
	}()

	page := pdfReader.Page(ordinal)
	if page.V.IsNull() {
		return PageResult{
			Ordinal: ordinal,
			Status:  models.PageFailed,
			Err:     "page object is null",
		}
	}

	text, err := page.GetPlainText(nil)
	if err == nil && strings.TrimSpace(text) != "" {
		// Text layer present: no OCR uncertainty.
		return PageResult{
			Ordinal:    ordinal,
			Text:       text,
			Confidence: 1.0,
			Status:     models.PageOK,
		}
	}

	// No usable text layer: treat the page as scanned.
	imgData := largestPageImage(page)
	if imgData == nil || e.ocr == nil {
		reason := "no text layer and no page image to OCR"
		if err != nil {
			reason = fmt.Sprintf("text layer error: %v", err)
		}
		return PageResult{
			Ordinal: ordinal,
			Status:  models.PageFailed,
			Err:     reason,
		}
	}

	ocrText, confidence, ocrErr := e.ocr.ExtractText(ctx, imgData)
	if ocrErr != nil {
		return PageResult{
			Ordinal: ordinal,
			Status:  models.PageFailed,
			Err:     fmt.Sprintf("ocr failed: %v", ocrErr),
		}
	}
	return pageFromOCR(ordinal, ocrText, confidence, e.minConfidence)
}

// largestPageImage pulls the biggest image XObject off a page, the usual
// shape of a scanned page. Returns nil when the page has no decodable image.
func largestPageImage(page pdf.Page) (data []byte) {
	defer func() {
		// The pdf library panics on unsupported stream filters.
		if recover() != nil {
			data = nil
		}
	}()

	resources := page.V.Key("Resources")
	if resources.Kind() != pdf.Dict {
		return nil
	}
	xobjects := resources.Key("XObject")
	if xobjects.Kind() != pdf.Dict {
		return nil
	}

	var largest []byte
	for _, name := range xobjects.Keys() {
		obj := xobjects.Key(name)
		if obj.Kind() != pdf.Stream {
			continue
		}
		if obj.Key("Subtype").Name() != "Image" {
			continue
		}
		raw, err := io.ReadAll(obj.Reader())
		if err != nil {
			continue
		}
		if len(raw) > len(largest) {
			largest = raw
		}
	}
	return largest
}
