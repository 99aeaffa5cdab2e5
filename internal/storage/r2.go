package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/signer"
)

const (
	// defaultRegion is the synthetic region R2 expects.
	defaultRegion = "auto"

	// maxErrorBody caps how much of a provider error payload is kept.
	maxErrorBody = 2048

	requestTimeout = 10 * time.Minute
)

// R2Config encapsulates the connection info for Cloudflare R2 or any other
// S3-compatible service.
type R2Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	AccountID string
	// Endpoint overrides the account-derived R2 endpoint, allowing other
	// S3-compatible backends to be substituted.
	Endpoint string
	Region   string
}

// R2Client implements ObjectStorage over plain HTTP with AWS Signature V4 and
// path-style addressing. It performs no retries of its own; retry policy
// belongs to the caller.
type R2Client struct {
	bucket  string
	region  string
	baseURL *url.URL
	creds   *credentials.Credentials
	client  *http.Client
}

// NewR2Client builds a client bound to a single endpoint, derived as
// https://<account-id>.r2.cloudflarestorage.com unless cfg.Endpoint overrides
// it.
func NewR2Client(cfg R2Config) (*R2Client, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("storage credentials must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket must be provided")
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		if cfg.AccountID == "" {
			return nil, fmt.Errorf("storage account id must be provided")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + strings.TrimPrefix(endpoint, "//")
	}

	baseURL, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid storage endpoint %s: %w", endpoint, err)
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}

	return &R2Client{
		bucket:  cfg.Bucket,
		region:  region,
		baseURL: baseURL,
		creds:   credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		client:  &http.Client{Timeout: requestTimeout},
	}, nil
}

// PutObject uploads data under key. Only a 200 response counts as success.
func (c *R2Client) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	resp, err := c.do(ctx, http.MethodPut, key, data, contentType)
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	return nil
}

// HeadObject returns metadata for key.
func (c *R2Client) HeadObject(ctx context.Context, key string) (ObjectInfo, error) {
	resp, err := c.do(ctx, http.MethodHead, key, nil, "")
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("head object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ObjectInfo{}, responseError(resp)
	}
	return ObjectInfo{Key: key, Size: resp.ContentLength}, nil
}

// DeleteObject removes key. S3-compatible services answer 204, any 2xx is
// accepted.
func (c *R2Client) DeleteObject(ctx context.Context, key string) error {
	resp, err := c.do(ctx, http.MethodDelete, key, nil, "")
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}
	return nil
}

var _ ObjectStorage = (*R2Client)(nil)

func (c *R2Client) do(ctx context.Context, method, key string, body []byte, contentType string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.objectURL(key), reader)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(body)
	req.Header.Set("X-Amz-Content-Sha256", hex.EncodeToString(sum[:]))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.ContentLength = int64(len(body))

	val, err := c.creds.Get()
	if err != nil {
		return nil, fmt.Errorf("resolve credentials: %w", err)
	}
	signed := signer.SignV4(*req, val.AccessKeyID, val.SecretAccessKey, val.SessionToken, c.region)

	return c.client.Do(signed)
}

// objectURL builds the path-style URL for key: the bucket is part of the
// path, never the host.
func (c *R2Client) objectURL(key string) string {
	u := *c.baseURL
	u.Path = "/" + c.bucket + "/" + key
	return u.String()
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &ResponseError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}
