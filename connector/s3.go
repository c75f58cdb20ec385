package connector

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bonehead-labs/fmf/errs"
)

// S3Config configures an object-store connector. Endpoint/UseSSL
// target any S3-compatible service (AWS S3, MinIO).
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
	// RequireKMS enforces that every listed object was encrypted with
	// a customer-managed key; violating objects are a ConnectorError.
	RequireKMS bool
	Retry      RetryPolicy
}

// S3 is an object-store connector backed by minio-go, supporting
// bucket+prefix+glob filtering, paginated listing and optional KMS
// enforcement on read.
type S3 struct {
	client *minio.Client
	cfg    S3Config
	name   string
}

// NewS3 constructs an S3 connector.
func NewS3(name string, cfg S3Config) (*S3, error) {
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errs.ConnectorErrorf(err, "constructing s3 client for %s", name)
	}
	return &S3{client: client, cfg: cfg, name: name}, nil
}

func (s *S3) Name() string { return s.name }

func (s *S3) List(ctx context.Context, selectors []string) ([]ResourceRef, error) {
	var refs []ResourceRef
	err := Do(ctx, s.cfg.Retry, Retryable, func() error {
		refs = refs[:0]
		for obj := range s.client.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{
			Prefix:    s.cfg.Prefix,
			Recursive: true,
		}) {
			if obj.Err != nil {
				return obj.Err
			}
			rel := strings.TrimPrefix(obj.Key, s.cfg.Prefix)
			rel = strings.TrimPrefix(rel, "/")
			if len(selectors) > 0 && !matchesAny(selectors, rel) {
				continue
			}
			if s.cfg.RequireKMS && obj.Metadata.Get("X-Amz-Server-Side-Encryption") == "" {
				return errs.ConnectorError("object %s is missing required KMS encryption", obj.Key)
			}
			refs = append(refs, ResourceRef{
				ID:   obj.Key,
				URI:  "s3://" + s.cfg.Bucket + "/" + obj.Key,
				Name: path.Base(obj.Key),
			})
		}
		return nil
	})
	if err != nil {
		return nil, errs.ConnectorErrorf(err, "listing s3 connector %s", s.name)
	}
	return refs, nil
}

func (s *S3) Open(ctx context.Context, ref ResourceRef) (io.ReadCloser, error) {
	var obj *minio.Object
	err := Do(ctx, s.cfg.Retry, Retryable, func() error {
		o, err := s.client.GetObject(ctx, s.cfg.Bucket, ref.ID, minio.GetObjectOptions{})
		if err != nil {
			return err
		}
		obj = o
		return nil
	})
	if err != nil {
		return nil, errs.ConnectorErrorf(err, "opening %s", ref.URI)
	}
	return obj, nil
}

func (s *S3) Info(ctx context.Context, ref ResourceRef) (ResourceInfo, error) {
	var info minio.ObjectInfo
	err := Do(ctx, s.cfg.Retry, Retryable, func() error {
		i, err := s.client.StatObject(ctx, s.cfg.Bucket, ref.ID, minio.StatObjectOptions{})
		if err != nil {
			return err
		}
		info = i
		return nil
	})
	if err != nil {
		return ResourceInfo{}, errs.ConnectorErrorf(err, "stat %s", ref.URI)
	}
	return ResourceInfo{
		SourceURI:  ref.URI,
		ModifiedAt: info.LastModified.UTC(),
		ETag:       info.ETag,
		Size:       info.Size,
		Extra:      map[string]string{"content_type": info.ContentType},
	}, nil
}

var _ Connector = (*S3)(nil)
