// Package storage talks to a Supabase-compatible object storage HTTP API.
// Uploads are best-effort: a failed upload yields an empty URL and the
// caller skips the attachment instead of failing the whole request.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config locates the storage API. BaseURL empty disables uploads entirely.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL: strings.TrimRight(os.Getenv("STORAGE_URL"), "/"),
		Timeout: 30 * time.Second,
	}
}

// Client is the process-wide storage client. Per-request credentials are
// carried by Session values, not by the client.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.SugaredLogger
}

func NewClient(cfg Config, logger *zap.SugaredLogger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Session is the capability object for one request: the caller's bearer
// token bound to the shared client. Build one per request and pass it down
// explicitly.
type Session struct {
	client *Client
	token  string
}

func (c *Client) Session(bearer string) *Session {
	return &Session{client: c, token: bearer}
}

// ObjectPath builds the canonical object key for an entity-owned file.
func ObjectPath(entity, id, subpath, filename string) string {
	return fmt.Sprintf("%s/%s/%s/%d_%s", entity, id, subpath, time.Now().UnixMilli(), filename)
}

// Upload stores the bytes under bucket/path and returns the public URL.
// Any failure is logged and reported as an empty URL.
func (s *Session) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) string {
	c := s.client
	if c.cfg.BaseURL == "" {
		return ""
	}
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.cfg.BaseURL, bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		c.logger.Warnw("storage upload request", "bucket", bucket, "path", path, "err", err)
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warnw("storage upload failed", "bucket", bucket, "path", path, "err", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warnw("storage upload rejected",
			"bucket", bucket, "path", path, "status", resp.StatusCode, "body", string(body))
		return ""
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.cfg.BaseURL, bucket, path)
}

// Delete removes the object a public URL points at. Best-effort: failures
// are logged and swallowed so stale objects never block a mutation.
func (s *Session) Delete(ctx context.Context, bucket, publicURL string) {
	c := s.client
	if c.cfg.BaseURL == "" || publicURL == "" {
		return
	}
	prefix := fmt.Sprintf("%s/storage/v1/object/public/%s/", c.cfg.BaseURL, bucket)
	key, ok := strings.CutPrefix(publicURL, prefix)
	if !ok {
		// foreign URL, nothing to delete on our side
		return
	}
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.cfg.BaseURL, bucket, key)
	if _, err := url.Parse(endpoint); err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warnw("storage delete failed", "bucket", bucket, "url", publicURL, "err", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warnw("storage delete rejected", "bucket", bucket, "url", publicURL, "status", resp.StatusCode)
	}
}
