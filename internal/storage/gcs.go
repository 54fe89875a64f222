package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/utils"
)

const maxImageBytes = 10 << 20

type GCSStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("GCS_BUCKET is not set")
	}
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSStore{client: c, bucket: bucket}, nil
}

func (s *GCSStore) Close() error { return s.client.Close() }

func (s *GCSStore) Put(ctx context.Context, sessionID string, tag models.ImageTag, data []byte) error {
	if !tag.Valid() {
		return fmt.Errorf("invalid image tag %q", tag)
	}
	w := s.client.Bucket(s.bucket).Object(objectName(sessionID, tag)).NewWriter(ctx)
	w.ContentType = contentType(data)

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	// the object is only committed on Close
	return w.Close()
}

func (s *GCSStore) Get(ctx context.Context, sessionID string, tag models.ImageTag) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(objectName(sessionID, tag)).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(io.LimitReader(r, maxImageBytes))
}

// DeleteAll removes every object under the session prefix, so strays from an interrupted Put go too.
func (s *GCSStore) DeleteAll(ctx context.Context, sessionID string) error {
	bkt := s.client.Bucket(s.bucket)
	it := bkt.Objects(ctx, &gcs.Query{Prefix: "talk/" + SafeSegment(sessionID) + "/"})

	var errs []error
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return err
		}
		if err := bkt.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
