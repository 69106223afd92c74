package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/storage/blob"
	storageutil "github.com/indieinfra/mediacycle/storage/util"
)

// s3Client is the subset of the minio client the store relies on.
type s3Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// minioAdapter narrows GetObject to an io.ReadCloser so stubs can satisfy s3Client.
type minioAdapter struct {
	*minio.Client
}

func (a minioAdapter) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.Client.GetObject(ctx, bucketName, objectName, opts)
}

var newMinioClient = func(endpoint string, opts *minio.Options) (s3Client, error) {
	c, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, err
	}
	return minioAdapter{c}, nil
}

// StoreImpl keeps media in S3 or any compatible service (R2, Backblaze, MinIO).
type StoreImpl struct {
	client         s3Client
	bucket         string
	publicBase     string
	forcePathStyle bool
	endpointHost   string
	secure         bool
	region         string
}

func NewS3BlobStore(cfg *config.S3BlobStrategy) (*StoreImpl, error) {
	if cfg == nil {
		return nil, fmt.Errorf("s3 blob config is nil")
	}

	region := strings.TrimSpace(cfg.Region)
	if strings.EqualFold(region, "auto") {
		region = ""
	}

	endpointHost := strings.TrimSpace(cfg.Endpoint)
	if endpointHost == "" {
		if region == "" {
			endpointHost = "s3.amazonaws.com"
		} else {
			endpointHost = fmt.Sprintf("s3.%s.amazonaws.com", region)
		}
	} else {
		if parsed, err := url.Parse(endpointHost); err == nil && parsed.Host != "" {
			endpointHost = parsed.Host
		}
	}

	lookup := minio.BucketLookupAuto
	if cfg.ForcePathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := newMinioClient(endpointHost, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyId, cfg.SecretKeyId, ""),
		Secure:       !cfg.DisableSSL,
		Region:       region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to verify s3 bucket %q: %w", cfg.Bucket, err)
	}

	if !exists {
		return nil, fmt.Errorf("s3 bucket %q does not exist or is not accessible", cfg.Bucket)
	}

	store := &StoreImpl{
		client:         client,
		bucket:         cfg.Bucket,
		forcePathStyle: cfg.ForcePathStyle,
		endpointHost:   endpointHost,
		secure:         !cfg.DisableSSL,
		region:         cfg.Region,
	}

	if strings.TrimSpace(cfg.PublicUrl) != "" {
		store.publicBase = storageutil.NormalizeBaseURL(cfg.PublicUrl)
	}

	return store, nil
}

func (s *StoreImpl) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if key == "" || body == nil {
		return fmt.Errorf("key and body are required")
	}

	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, body, size, opts); err != nil {
		return fmt.Errorf("upload to s3 failed: %w", err)
	}

	return nil
}

func (s *StoreImpl) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrapErr("get", key, err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return nil, s.wrapErr("get", key, err)
	}

	return buf.Bytes(), nil
}

func (s *StoreImpl) Copy(ctx context.Context, srcKey, dstKey string) error {
	dst := minio.CopyDestOptions{Bucket: s.bucket, Object: dstKey}
	src := minio.CopySrcOptions{Bucket: s.bucket, Object: srcKey}

	if _, err := s.client.CopyObject(ctx, dst, src); err != nil {
		return s.wrapErr("copy", srcKey, err)
	}

	return nil
}

func (s *StoreImpl) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("delete from s3 failed: %w", err)
	}

	return nil
}

func (s *StoreImpl) List(ctx context.Context, prefix string) ([]blob.ObjectInfo, error) {
	var out []blob.ObjectInfo

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list s3 prefix %q failed: %w", prefix, obj.Err)
		}
		out = append(out, blob.ObjectInfo{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}

	return out, nil
}

func (s *StoreImpl) BaseURL() string {
	if s.publicBase != "" {
		return s.publicBase
	}

	scheme := "https"
	if !s.secure {
		scheme = "http"
	}

	if s.forcePathStyle {
		return fmt.Sprintf("%s://%s/%s/", scheme, s.endpointHost, s.bucket)
	}

	return fmt.Sprintf("%s://%s.%s/", scheme, s.bucket, s.endpointHost)
}

func (s *StoreImpl) PublicURL(key string) string {
	return s.BaseURL() + key
}

func (s *StoreImpl) KeyFromURL(urlStr string) (string, error) {
	return blob.TrimBaseURL(s.BaseURL(), urlStr)
}

func (s *StoreImpl) wrapErr(op, key string, err error) error {
	if isNoSuchKey(err) {
		return fmt.Errorf("%s %s: %w", op, key, blob.ErrNotFound)
	}

	return fmt.Errorf("%s %s from s3 failed: %w", op, key, err)
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}

	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
