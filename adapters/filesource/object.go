package filesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"path"

	"github.com/faktion/registry/domain/schema"
	"github.com/faktion/registry/ports"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectConfig configures an S3-compatible bucket holding the registry files.
type ObjectConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Object reads files from an S3-compatible object store.
type Object struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewObject creates a source backed by the configured bucket.
// No request is made until the first read.
func NewObject(cfg ObjectConfig) (*Object, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("object store endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("object store bucket is required")
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	var creds *credentials.Credentials
	if cfg.AccessKeyID != "" {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		creds = credentials.NewEnvAWS()
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	return &Object{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// ReadFile reads the object stored under prefix/path.
func (o *Object) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if !schema.IsLocalPath(p) {
		return nil, fmt.Errorf("%w: %q", ErrOutsideRoot, p)
	}
	key := objectKey(o.prefix, p)

	obj, err := o.client.GetObject(ctx, o.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyObjectError(key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classifyObjectError(key, err)
	}
	return data, nil
}

// HealthCheck verifies the bucket is reachable.
func (o *Object) HealthCheck(ctx context.Context) error {
	ok, err := o.client.BucketExists(ctx, o.bucket)
	if err != nil {
		return fmt.Errorf("bucket %s: %w", o.bucket, err)
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", o.bucket)
	}
	return nil
}

func objectKey(prefix, p string) string {
	return path.Join(prefix, path.Clean(p))
}

// classifyObjectError maps missing objects onto fs.ErrNotExist.
func classifyObjectError(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("read %s: %w", key, fs.ErrNotExist)
	case "AccessDenied":
		return fmt.Errorf("read %s: %w", key, fs.ErrPermission)
	}
	return fmt.Errorf("read %s: %w", key, err)
}

// Ensure interface compliance.
var (
	_ ports.FileSource    = (*Object)(nil)
	_ ports.HealthChecker = (*Object)(nil)
)
