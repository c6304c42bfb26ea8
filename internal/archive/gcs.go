package archive

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// GCSArchive writes announcement artifacts to a Google Cloud Storage
// bucket. Authentication uses Application Default Credentials.
type GCSArchive struct {
	Client     *storage.Client
	BucketName string
	Prefix     string
	Logger     *zap.Logger
}

// NewGCSArchive initializes a GCS client and verifies bucket access so
// bad configuration fails at startup.
func NewGCSArchive(ctx context.Context, bucketName, prefix string, logger *zap.Logger) (*GCSArchive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	if _, err := client.Bucket(bucketName).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close GCS client after bucket check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("get GCS bucket %q attributes: %w", bucketName, err)
	}

	return &GCSArchive{
		Client:     client,
		BucketName: bucketName,
		Prefix:     prefix,
		Logger:     logger,
	}, nil
}

// Put uploads one artifact. GCS object writes replace atomically, so
// re-archiving an id is idempotent.
func (g *GCSArchive) Put(ctx context.Context, id int64, data []byte) error {
	name := ObjectName(id)
	if g.Prefix != "" {
		name = g.Prefix + "/" + name
	}

	wc := g.Client.Bucket(g.BucketName).Object(name).NewWriter(ctx)
	wc.ContentType = "application/json"

	if _, err := wc.Write(data); err != nil {
		// Close regardless to release the upload; the write error is
		// the one worth returning.
		if closeErr := wc.Close(); closeErr != nil {
			g.Logger.Warn("failed to close GCS writer after write failure", zap.Error(closeErr))
		}
		return fmt.Errorf("write GCS object %s: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("finalize GCS object %s: %w", name, err)
	}
	return nil
}

// Close releases the underlying client.
func (g *GCSArchive) Close() error {
	if err := g.Client.Close(); err != nil {
		return fmt.Errorf("close GCS client: %w", err)
	}
	return nil
}
