package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Uploader stores an image and returns its public URL. progress receives
// percentages in 0..100 and may be nil.
type Uploader interface {
	Upload(ctx context.Context, f File, progress func(int)) (string, error)
}

// ImageBackend is the backend's multipart upload endpoint.
type ImageBackend interface {
	UploadImage(ctx context.Context, filename string, r io.Reader) (string, error)
}

// HTTPUploader posts images to the newspaper backend.
type HTTPUploader struct {
	backend ImageBackend
}

// NewHTTPUploader creates an uploader over the backend upload endpoint.
func NewHTTPUploader(backend ImageBackend) *HTTPUploader {
	return &HTTPUploader{backend: backend}
}

// Upload implements Uploader.
func (u *HTTPUploader) Upload(ctx context.Context, f File, progress func(int)) (string, error) {
	report(progress, 0)
	r := &progressReader{r: bytes.NewReader(f.Data), total: int64(len(f.Data)), fn: progress}
	url, err := u.backend.UploadImage(ctx, f.Name, r)
	if err != nil {
		return "", err
	}
	report(progress, 100)
	return url, nil
}

// progressReader reports how much of the body has been consumed.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	last  int
	fn    func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		pct := int(p.read * 100 / p.total)
		// 100 is reported once the backend has answered.
		if pct > 99 {
			pct = 99
		}
		if pct > p.last {
			p.last = pct
			report(p.fn, pct)
		}
	}
	return n, err
}

func report(fn func(int), pct int) {
	if fn != nil {
		fn(pct)
	}
}

// putObjectAPI is the slice of the S3 client used here.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures S3Uploader.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	PublicBaseURL   string
}

// S3Uploader stores images in an S3-compatible bucket.
type S3Uploader struct {
	client  putObjectAPI
	bucket  string
	prefix  string
	baseURL string
}

// NewS3Uploader builds an S3 client from static credentials.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("upload: load s3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Uploader(client, cfg), nil
}

func newS3Uploader(client putObjectAPI, cfg S3Config) *S3Uploader {
	return &S3Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

// Upload implements Uploader. S3 reports no partial progress: 0, then 100.
func (u *S3Uploader) Upload(ctx context.Context, f File, progress func(int)) (string, error) {
	report(progress, 0)
	key := u.key(f.Name)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(f.Data),
		ContentLength: aws.Int64(int64(len(f.Data))),
		ContentType:   aws.String(DetectContentType(f)),
	})
	if err != nil {
		return "", fmt.Errorf("upload: put %s: %w", key, err)
	}
	report(progress, 100)
	return u.baseURL + "/" + key, nil
}

func (u *S3Uploader) key(name string) string {
	k := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	if u.prefix != "" {
		k = u.prefix + "/" + k
	}
	return k
}
