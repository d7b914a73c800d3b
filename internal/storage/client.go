package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	reportPrefix      = "reports"
	ndjsonContentType = "application/x-ndjson"
)

type Config struct {
	Endpoint string
	Access   string
	Secret   string
	Bucket   string
	UseSSL   bool
}

// Client holds dataset exports and the import reports written for them.
type Client struct {
	minio  *minio.Client
	bucket string
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Access, cfg.Secret, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Client{minio: mc, bucket: cfg.Bucket}, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

// ReportKey is where the rejected lines of one import are stored.
func ReportKey(importID string) string {
	return path.Join(reportPrefix, importID+".ndjson")
}

func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minio.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.minio.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		exists, checkErr := c.minio.BucketExists(ctx, c.bucket)
		if checkErr == nil && exists {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", c.bucket, err)
	}
	return nil
}

func (c *Client) ExportExists(ctx context.Context, exportKey string) (bool, error) {
	if strings.HasPrefix(exportKey, reportPrefix+"/") {
		return false, nil
	}
	_, err := c.minio.StatObject(ctx, c.bucket, exportKey, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		return false, nil
	}
	return false, fmt.Errorf("stat export %s: %w", exportKey, err)
}

// OpenExport streams an NDJSON export. The caller closes the reader.
func (c *Client) OpenExport(ctx context.Context, exportKey string) (io.ReadCloser, error) {
	obj, err := c.minio.GetObject(ctx, c.bucket, exportKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open export %s: %w", exportKey, err)
	}
	return obj, nil
}

func (c *Client) WriteReport(ctx context.Context, importID string, lines []byte) (string, error) {
	key := ReportKey(importID)
	_, err := c.minio.PutObject(
		ctx,
		c.bucket,
		key,
		bytes.NewReader(lines),
		int64(len(lines)),
		minio.PutObjectOptions{ContentType: ndjsonContentType},
	)
	if err != nil {
		return "", fmt.Errorf("write report %s: %w", key, err)
	}
	return key, nil
}
