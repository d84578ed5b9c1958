package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

var (
	storageOnce   sync.Once
	storageConfig *StorageConfig
)

// StorageConfig selects and configures the raw-bytes object store.
type StorageConfig struct {
	// Backend is "s3" or "minio".
	Backend    string
	BucketName string
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
}

func GetStorageConfig() *StorageConfig {
	storageOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found, falling back to environment variables")
		}

		backend := os.Getenv("STORAGE_BACKEND")
		if backend == "" {
			backend = "s3"
		}

		bucket := os.Getenv("STORAGE_BUCKET")
		if bucket == "" {
			bucket = "docsearch-uploads"
		}

		storageConfig = &StorageConfig{
			Backend:    backend,
			BucketName: bucket,
			Region:     os.Getenv("AWS_REGION"),
			Endpoint:   os.Getenv("STORAGE_ENDPOINT"),
			AccessKey:  os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey:  os.Getenv("STORAGE_SECRET_KEY"),
			UseSSL:     os.Getenv("STORAGE_USE_SSL") == "true",
		}
	})
	return storageConfig
}
