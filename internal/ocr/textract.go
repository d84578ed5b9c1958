package ocr

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	cfg "github.com/arigen-tech/docsearch/config"
	"github.com/arigen-tech/docsearch/pkg/logger"
)

// TextractClient delegates OCR to AWS Textract. The synchronous API accepts
// image bytes or single-page PDF payloads.
type TextractClient struct {
	client *textract.Client
	logger logger.Logger
}

func NewTextractClient(ctx context.Context, ocrCfg *cfg.OCRConfig, log logger.Logger) (*TextractClient, error) {
	creds := credentials.NewStaticCredentialsProvider(
		ocrCfg.AccessKey,
		ocrCfg.SecretKey,
		"",
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(ocrCfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &TextractClient{
		client: textract.NewFromConfig(awsCfg),
		logger: log,
	}, nil
}

func (c *TextractClient) ExtractText(ctx context.Context, data []byte) (string, float64, error) {
	input := &textract.DetectDocumentTextInput{
		Document: &types.Document{
			Bytes: data,
		},
	}

	result, err := c.client.DetectDocumentText(ctx, input)
	if err != nil {
		return "", 0, fmt.Errorf("textract detect failed: %w", err)
	}

	var lines []string
	var totalConfidence float64
	var counted int
	for _, block := range result.Blocks {
		if block.BlockType != types.BlockTypeLine || block.Text == nil {
			continue
		}
		lines = append(lines, *block.Text)
		if block.Confidence != nil {
			totalConfidence += float64(*block.Confidence)
			counted++
		}
	}

	confidence := 1.0
	if counted > 0 {
		confidence = totalConfidence / float64(counted) / 100.0
	}

	return strings.Join(lines, "\n"), confidence, nil
}
