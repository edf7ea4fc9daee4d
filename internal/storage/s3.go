// Package storage hands out presigned S3 URLs so browsers upload and
// download resumes and images directly against the bucket.  The API never
// proxies file bytes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/SuyogBora/picode-server/internal/config"
)

var (
	ErrDisabled        = errors.New("storage is not configured")
	ErrUnsupportedType = errors.New("content type not allowed")
	ErrTooLarge        = errors.New("file too large")
	ErrInvalidFolder   = errors.New("unknown upload folder")
	ErrInvalidKey      = errors.New("invalid object key")
)

// Folders objects may be uploaded under.
var Folders = map[string]bool{
	"resumes": true,
	"blogs":   true,
	"careers": true,
	"misc":    true,
}

// Upload is a presigned PUT.  The client must send Content-Type exactly
// as given.
type Upload struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Method      string    `json:"method"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Download is a presigned GET.
type Download struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Presigner signs S3 requests for one bucket.
type Presigner struct {
	bucket   string
	ttl      time.Duration
	maxBytes int64
	allowed  map[string]bool
	client   *s3.PresignClient
}

// New builds the S3 client from cfg.  Static credentials are used when
// both keys are set, otherwise the default AWS chain applies.  A custom
// endpoint switches to path-style addressing for MinIO and LocalStack.
func New(ctx context.Context, cfg config.StorageConfig) (*Presigner, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
			o.UsePathStyle = true
		})
	}

	allowed := make(map[string]bool, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[strings.ToLower(t)] = true
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Presigner{
		bucket:   cfg.Bucket,
		ttl:      ttl,
		maxBytes: cfg.MaxUploadBytes,
		allowed:  allowed,
		client:   s3.NewPresignClient(s3.NewFromConfig(awsCfg, s3Opts...)),
	}, nil
}

// PresignUpload validates the declared file and signs a PUT for a fresh
// key under folder.  size is the declared byte length; zero skips the
// size check and leaves Content-Length unsigned.
func (p *Presigner) PresignUpload(ctx context.Context, folder, filename, contentType string, size int64) (*Upload, error) {
	if p == nil {
		return nil, ErrDisabled
	}
	folder = strings.ToLower(strings.TrimSpace(folder))
	if !Folders[folder] {
		return nil, ErrInvalidFolder
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !p.allowed[contentType] {
		return nil, ErrUnsupportedType
	}
	if size < 0 || (p.maxBytes > 0 && size > p.maxBytes) {
		return nil, ErrTooLarge
	}

	key := NewKey(folder, filename, time.Now().UTC())
	in := &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	req, err := p.client.PresignPutObject(ctx, in, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return nil, fmt.Errorf("presign put %q: %w", key, err)
	}
	return &Upload{
		Key:         key,
		URL:         req.URL,
		Method:      req.Method,
		ContentType: contentType,
		ExpiresAt:   time.Now().UTC().Add(p.ttl),
	}, nil
}

// PresignDownload signs a GET for an existing key.
func (p *Presigner) PresignDownload(ctx context.Context, key string) (*Download, error) {
	if p == nil {
		return nil, ErrDisabled
	}
	if !ValidKey(key) {
		return nil, ErrInvalidKey
	}
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return nil, fmt.Errorf("presign get %q: %w", key, err)
	}
	return &Download{Key: key, URL: req.URL, ExpiresAt: time.Now().UTC().Add(p.ttl)}, nil
}

// NewKey returns folder/YYYY/MM/<uuid><ext>.  Only a short alphanumeric
// extension of the client's file name survives.
func NewKey(folder, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%04d/%02d/%s%s", folder, now.Year(), int(now.Month()), uuid.NewString(), safeExt(filename))
}

func safeExt(filename string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(filename)))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// ValidKey accepts keys produced by NewKey: a known folder followed by
// clean path segments.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return false
	}
	folder, rest, ok := strings.Cut(key, "/")
	return ok && rest != "" && Folders[folder] && path.Clean(key) == key
}
