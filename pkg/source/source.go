// Package source retrieves launcher artifacts from the distribution channel.
// The channel is configured as a plain path on a network share, an http(s)
// URL, or an s3:// URL; all three go through the same client so the manifest
// fetcher, the artifact installer, and the self-update staging step share one
// retrieval and hashing path.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/validation-tool/launcher/pkg/errors"
)

// Client fetches artifacts and small resources from the distribution channel.
type Client struct {
	httpClient *http.Client
	s3Client   *s3.Client
	s3Region   string
	timeout    time.Duration
}

// NewClient creates a source client. region is only used for s3:// URLs.
func NewClient(region string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		s3Region:   region,
		timeout:    timeout,
	}
}

// FetchResult contains download metadata for an artifact.
type FetchResult struct {
	LocalPath string
	SHA256    string
	Size      int64
}

// Fetch downloads rawURL to destPath, computing the SHA-256 of the full byte
// stream on the way through. destPath is owned by the caller; on error the
// partially written file is removed.
func (c *Client) Fetch(ctx context.Context, rawURL, destPath string) (*FetchResult, error) {
	slog.Info("source_fetch_start", "url", rawURL, "dest", destPath)

	body, err := c.open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	f, err := os.Create(destPath)
	if err != nil {
		slog.Error("source_dest_create_failed", "path", destPath, "error", err)
		return nil, errors.Wrap(err, "failed to create destination file")
	}

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		slog.Error("source_fetch_failed", "url", rawURL, "error", err)
		return nil, errors.Wrap(err, "failed to download artifact")
	}

	checksum := hex.EncodeToString(hash.Sum(nil))
	slog.Info("source_fetch_complete", "url", rawURL, "size", size, "sha256", checksum[:16]+"...")

	return &FetchResult{
		LocalPath: destPath,
		SHA256:    checksum,
		Size:      size,
	}, nil
}

// ReadAll reads a small resource (such as the manifest) fully into memory,
// bounded by limit bytes.
func (c *Client) ReadAll(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	body, err := c.open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read resource")
	}
	return data, nil
}

// open returns a reader for rawURL, dispatching on the URL scheme. Anything
// that is not http(s) or s3 is treated as a local or UNC path.
func (c *Client) open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(rawURL, "http://"), strings.HasPrefix(rawURL, "https://"):
		return c.openHTTP(ctx, rawURL)
	case strings.HasPrefix(rawURL, "s3://"):
		return c.openS3(ctx, rawURL)
	default:
		f, err := os.Open(rawURL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open source path")
		}
		return f, nil
	}
}

func (c *Client) openHTTP(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Wrapf(errStatus(resp.StatusCode), "unexpected response for %s", rawURL)
	}
	return resp.Body, nil
}

func (c *Client) openS3(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid s3 url")
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")

	client, err := c.s3(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("s3_get_object_failed", "bucket", bucket, "key", key, "error", err)
		return nil, errors.Wrap(err, "failed to get object from S3")
	}
	return out.Body, nil
}

// s3 lazily builds the S3 client with anonymous credentials; the distribution
// bucket is publicly readable.
func (c *Client) s3(ctx context.Context) (*s3.Client, error) {
	if c.s3Client != nil {
		return c.s3Client, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(c.s3Region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	c.s3Client = s3.NewFromConfig(cfg)
	return c.s3Client, nil
}

type errStatus int

func (e errStatus) Error() string {
	return "status " + http.StatusText(int(e))
}
