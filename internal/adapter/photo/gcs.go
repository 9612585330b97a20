package photo

import (
	"context"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// GCS uploads photos to a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS connects to Cloud Storage. An empty credentialsFile uses application default credentials.
func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: "reports"}, nil
}

// Save writes the photo under reports/<uuid>/<name> so repeated names never collide.
func (g *GCS) Save(ctx context.Context, name, contentType string, r io.Reader) (string, int64, error) {
	base, err := cleanName(name)
	if err != nil {
		return "", 0, err
	}
	object := g.objectName(base)

	w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	size, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return "", 0, fmt.Errorf("upload photo: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", 0, fmt.Errorf("finalize photo upload: %w", err)
	}
	return g.publicURL(object), size, nil
}

// CheckReadiness verifies the bucket is reachable.
func (g *GCS) CheckReadiness(ctx context.Context) error {
	if _, err := g.client.Bucket(g.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("gcs bucket %s: %w", g.bucket, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) objectName(base string) string {
	return path.Join(g.prefix, uuid.NewString(), base)
}

func (g *GCS) publicURL(object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, object)
}
