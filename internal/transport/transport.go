package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Transport fetches remote resources by server-relative path
type Transport interface {
	// Get fetches a resource into memory.
	Get(ctx context.Context, path string) ([]byte, error)
	// GetToFile fetches a resource and writes it to destination.
	GetToFile(ctx context.Context, path, destination string) error
}

// ConnectionError means the remote is unreachable. It aborts the
// remaining steps of whatever run is in flight.
type ConnectionError struct {
	Path string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed for %s: %v", e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError means the remote answered with a non-success status for
// a resource that may legitimately not exist. It is a per-item skip.
type ProtocolError struct {
	Path       string
	StatusCode int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.Path)
}

// IsConnectionError reports whether err is a transport-level connection
// failure
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// Remote endpoint paths.

func TaxonomyPath() string {
	return "categories_and_types"
}

func DeckNamesPath() string {
	return "deck/names"
}

func DeckMetadataPath(name string) string {
	return "deck/metadata/" + url.PathEscape(name)
}

func DeckCoverPath(file string) string {
	return "deck/cover/" + url.PathEscape(file)
}

func CategoryIconPath(file string) string {
	return "category/icon/" + url.PathEscape(file)
}

func VisualPath(file string) string {
	return "visual/" + url.PathEscape(file)
}

func SoundPath(file string) string {
	return "sound/" + url.PathEscape(file)
}

// Client is the HTTP implementation of Transport
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a transport client for the given server base URL
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get fetches a resource into memory
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.do(ctx, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Path: path, Err: err}
	}
	return data, nil
}

// GetToFile fetches a resource and writes it to destination. The write
// goes through a temp file in the destination directory followed by a
// rename, so a failed download never leaves a truncated file behind.
func (c *Client) GetToFile(ctx context.Context, path, destination string) error {
	resp, err := c.do(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	dir := filepath.Dir(destination)
	tmpFile, err := os.CreateTemp(dir, ".karuta_tmp_")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return &ConnectionError{Path: path, Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	return os.Rename(tmpPath, destination)
}

func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConnectionError{Path: path, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &ProtocolError{Path: path, StatusCode: resp.StatusCode}
	}
	return resp, nil
}
