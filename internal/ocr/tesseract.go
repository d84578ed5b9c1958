package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/arigen-tech/docsearch/pkg/logger"
)

// TesseractClient runs local OCR through gosseract. A fresh Tesseract client
// is created per call; the underlying C API is not safe to share across
// goroutines.
type TesseractClient struct {
	languages []string
	logger    logger.Logger
}

func NewTesseractClient(languages []string, log logger.Logger) *TesseractClient {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractClient{
		languages: languages,
		logger:    log,
	}
}

func (c *TesseractClient) ExtractText(ctx context.Context, data []byte) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", 0, fmt.Errorf("failed to decode image: %w", err)
	}

	// Grayscale plus a light sharpen noticeably improves recognition on
	// low-quality scans.
	processed := imaging.Sharpen(imaging.Grayscale(img), 0.5)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, processed, &jpeg.Options{Quality: 100}); err != nil {
		return "", 0, fmt.Errorf("failed to encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Join(c.languages, "+")); err != nil {
		return "", 0, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", 0, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", 0, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("failed to get text: %w", err)
	}

	confidence := 1.0
	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		c.logger.Warn("failed to get bounding boxes, assuming full confidence",
			logger.Error(err),
		)
	} else if len(boxes) > 0 {
		total := 0.0
		for _, box := range boxes {
			total += box.Confidence
		}
		confidence = total / float64(len(boxes)) / 100.0
	}

	return strings.TrimSpace(text), confidence, nil
}
