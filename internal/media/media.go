// Package media uploads project images and videos to an S3-compatible
// bucket and returns URLs the editor can paste into a record.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"showcase/api/internal/util"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const presignExpiry = 7 * 24 * time.Hour

var ErrUnsupportedType = errors.New("media: unsupported file type")

// ObjectStore is the subset of *minio.Client used here.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL, when set, is used as the base of returned URLs instead of
	// presigning.
	PublicURL string
}

type Upload struct {
	URL         string `json:"url"`
	Object      string `json:"object"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type Service struct {
	client    ObjectStore
	bucket    string
	publicURL string
	logger    *zap.Logger

	mu          sync.Mutex
	bucketReady bool
}

// Dial connects to MinIO with static credentials.
func Dial(opts Options) (*minio.Client, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}
	return client, nil
}

func NewService(client ObjectStore, bucket, publicURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.Named("media"),
	}
}

// Upload stores one image or video for projectID. size may be -1 when
// unknown.
func (s *Service) Upload(ctx context.Context, projectID, filename string, r io.Reader, size int64) (Upload, error) {
	contentType, ok := ContentType(filename)
	if !ok {
		return Upload{}, fmt.Errorf("%w: %s", ErrUnsupportedType, path.Ext(filename))
	}
	if err := s.ensureBucket(ctx); err != nil {
		return Upload{}, err
	}

	object := ObjectName(projectID, filename)
	info, err := s.client.PutObject(ctx, s.bucket, object, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Upload{}, fmt.Errorf("upload %s: %w", object, err)
	}

	link, err := s.objectURL(ctx, object)
	if err != nil {
		return Upload{}, err
	}
	s.logger.Info("media uploaded", zap.String("object", object), zap.Int64("size", info.Size))
	return Upload{URL: link, Object: object, ContentType: contentType, Size: info.Size}, nil
}

func (s *Service) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bucketReady {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		s.logger.Info("bucket created", zap.String("bucket", s.bucket))
	}
	s.bucketReady = true
	return nil
}

func (s *Service) objectURL(ctx context.Context, object string) (string, error) {
	if s.publicURL != "" {
		return s.publicURL + "/" + s.bucket + "/" + object, nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, object, presignExpiry, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", object, err)
	}
	return u.String(), nil
}

// ObjectName places uploads under projects/<id>/ with a unique prefix so a
// re-upload never overwrites an object a record still points at.
func ObjectName(projectID, filename string) string {
	dir := sanitize(projectID)
	if dir == "" {
		dir = "unassigned"
	}
	base := sanitize(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	if base == "" {
		base = "file"
	}
	return "projects/" + dir + "/" + util.NewID("m") + "-" + base
}

// ContentType maps an extension to one of the accepted media types.
func ContentType(filename string) (string, bool) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".png":
		return "image/png", true
	case ".webp":
		return "image/webp", true
	case ".gif":
		return "image/gif", true
	case ".svg":
		return "image/svg+xml", true
	case ".mp4":
		return "video/mp4", true
	case ".webm":
		return "video/webm", true
	case ".mov":
		return "video/quicktime", true
	default:
		return "", false
	}
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), ".")
}
