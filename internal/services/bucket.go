package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/velabs/studioforge-backend/internal/logger"
)

// BucketStorageProvider is the GCS-backed StorageProvider, selected with
// STORAGE_DRIVER=gcs.
type BucketStorageProvider struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucketName    string
}

func NewBucketStorageProvider(log *logger.Logger) (*BucketStorageProvider, error) {
	serviceLog := log.With("service", "BucketStorageProvider")
	bucket := os.Getenv("GCS_BUCKET_NAME")
	if bucket == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
	}
	saPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
	ctx := context.Background()
	var stClient *storage.Client
	var err error
	if saPath != "" {
		stClient, err = storage.NewClient(ctx, option.WithCredentialsFile(saPath), option.WithScopes(storage.ScopeReadWrite))
	} else {
		stClient, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &BucketStorageProvider{
		log:           serviceLog,
		storageClient: stClient,
		bucketName:    bucket,
	}, nil
}

func (s *BucketStorageProvider) Save(ctx context.Context, destination, filename string, file io.Reader) (*StorageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	key := destination + "/" + filename
	w := s.storageClient.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	size, err := io.Copy(w, file)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return &StorageResult{
		Path: fmt.Sprintf("gs://%s/%s", s.bucketName, key),
		Size: size,
	}, nil
}
