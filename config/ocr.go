package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

var (
	ocrOnce   sync.Once
	ocrConfig *OCRConfig
)

// OCRConfig selects and configures the OCR engine behind the extraction
// pipeline's black-box OCR client.
type OCRConfig struct {
	// Engine is "tesseract" or "textract".
	Engine    string
	Languages []string

	// AWS credentials, used when Engine is "textract".
	Region    string
	AccessKey string
	SecretKey string
}

func GetOCRConfig() *OCRConfig {
	ocrOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found, falling back to environment variables")
		}

		engine := os.Getenv("OCR_ENGINE")
		if engine == "" {
			engine = "tesseract"
		}

		lang := os.Getenv("OCR_LANGUAGES")
		if lang == "" {
			lang = "eng"
		}

		ocrConfig = &OCRConfig{
			Engine:    engine,
			Languages: []string{lang},
			Region:    os.Getenv("AWS_REGION"),
			AccessKey: os.Getenv("AWS_ACCESS_KEY"),
			SecretKey: os.Getenv("AWS_SECRET_KEY"),
		}
	})
	return ocrConfig
}
