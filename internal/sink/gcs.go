package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/headline-goat/sigtable/internal/ttable"
)

// ErrObjectNotFound is returned by an ObjectStore for a missing object.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the slice of a bucket the GCS sink needs.
type ObjectStore interface {
	NewReader(ctx context.Context, name string) (io.ReadCloser, error)
	NewWriter(ctx context.Context, name string) io.WriteCloser
}

// GCSSink publishes each table as a JSON object named
// <prefix>/<experiment>_<title>.json in a Cloud Storage bucket.
type GCSSink struct {
	objects      ObjectStore
	bucket       string
	prefix       string
	experimentID string
	close        func() error
}

var _ ttable.Sink = (*GCSSink)(nil)

// NewGCSSink connects to Cloud Storage. Credentials come from
// credentialsFile when set, otherwise from the environment.
func NewGCSSink(ctx context.Context, bucket, prefix, experimentID, credentialsFile string) (*GCSSink, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	s := NewObjectSink(bucketObjects{bucket: client.Bucket(bucket)}, bucket, prefix, experimentID)
	s.close = client.Close
	return s, nil
}

// NewObjectSink publishes into any ObjectStore.
func NewObjectSink(objects ObjectStore, bucket, prefix, experimentID string) *GCSSink {
	return &GCSSink{
		objects:      objects,
		bucket:       bucket,
		prefix:       prefix,
		experimentID: experimentID,
	}
}

func (s *GCSSink) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// ObjectName is where the table for title is stored.
func (s *GCSSink) ObjectName(title string) string {
	name := strings.ReplaceAll(title, "/", "-")
	return path.Join(s.prefix, s.experimentID+"_"+name+".json")
}

func (s *GCSSink) Incumbent(ctx context.Context, title string) (int, bool, error) {
	r, err := s.objects.NewReader(ctx, s.ObjectName(title))
	if errors.Is(err, ErrObjectNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to open %s: %w", s.ObjectName(title), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read %s: %w", s.ObjectName(title), err)
	}

	payload, err := ttable.DecodePayload(data)
	if err != nil {
		return 0, false, fmt.Errorf("failed to decode %s: %w", s.ObjectName(title), err)
	}
	return len(payload.Rows), true, nil
}

func (s *GCSSink) Publish(ctx context.Context, t *ttable.Table) (string, error) {
	payload, err := t.MarshalPayload()
	if err != nil {
		return "", fmt.Errorf("failed to marshal table: %w", err)
	}

	name := s.ObjectName(t.Title)
	w := s.objects.NewWriter(ctx, name)
	if _, err := w.Write(payload); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer for %s: %w", name, err)
	}

	return "https://storage.googleapis.com/" + s.bucket + "/" + name, nil
}

// bucketObjects adapts a bucket handle to ObjectStore.
type bucketObjects struct {
	bucket *storage.BucketHandle
}

func (b bucketObjects) NewReader(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := b.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (b bucketObjects) NewWriter(ctx context.Context, name string) io.WriteCloser {
	w := b.bucket.Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "no-cache, no-store, must-revalidate"
	return w
}
