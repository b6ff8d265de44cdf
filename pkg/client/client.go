// Package client provides the HTTP client for the remote folder service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sharingconfigs/sharingconfigs/internal/metrics"
	"github.com/sharingconfigs/sharingconfigs/pkg/models"
	"github.com/sharingconfigs/sharingconfigs/pkg/protocol"
)

const (
	// DefaultAuthScheme prefixes the token in the Authorization header.
	DefaultAuthScheme = "Token"
	// DefaultTimeout bounds a single request when no HTTPClient is supplied.
	DefaultTimeout = 30 * time.Second

	maxDetailLen = 512
)

// Config holds client configuration.
type Config struct {
	Endpoint   string // e.g. https://www.example.com/api/v1/
	Label      string
	Token      string
	AuthScheme string // defaults to DefaultAuthScheme
	Timeout    time.Duration
	HTTPClient *http.Client // overrides Timeout when set
	Logger     *zap.Logger
}

// Client talks to one label of the remote folder service. It holds no
// mutable state and is safe for concurrent use.
type Client struct {
	base       *url.URL
	authHeader string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	endpoint, err := url.Parse(strings.TrimSpace(cfg.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if (endpoint.Scheme != "http" && endpoint.Scheme != "https") || endpoint.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute http(s) URL", cfg.Endpoint)
	}
	if err := checkSegment(cfg.Label); err != nil {
		return nil, fmt.Errorf("label: %w", err)
	}
	if cfg.Token == "" {
		return nil, errors.New("token is required")
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = DefaultAuthScheme
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	endpoint.RawQuery = ""
	endpoint.Fragment = ""
	if endpoint.Path == "" {
		endpoint.Path = "/"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}

	return &Client{
		base:       endpoint.JoinPath(url.PathEscape(cfg.Label), "folder/"),
		authHeader: cfg.AuthScheme + " " + cfg.Token,
		httpClient: httpClient,
		logger:     cfg.Logger.With(zap.String("label", cfg.Label)),
	}, nil
}

// FolderURL returns the folder listing URL, {endpoint}/{label}/folder/.
func (c *Client) FolderURL() string {
	return c.base.String()
}

// FilesURL returns the file listing (and export) URL of a folder.
func (c *Client) FilesURL(folder string) (string, error) {
	return c.resolve(folder, "files")
}

// FileURL returns the URL of a single file in a folder.
func (c *Client) FileURL(folder, filename string) (string, error) {
	return c.resolve(folder, "files", filename)
}

func (c *Client) resolve(segments ...string) (string, error) {
	elems := make([]string, len(segments))
	for i, s := range segments {
		if err := checkSegment(s); err != nil {
			return "", err
		}
		elems[i] = url.PathEscape(s)
	}
	elems[len(elems)-1] += "/"
	return c.base.JoinPath(elems...).String(), nil
}

// checkSegment rejects values that would not stay a single path segment.
func checkSegment(s string) error {
	switch strings.TrimSpace(s) {
	case "", ".", "..":
		return fmt.Errorf("%w: %q", ErrInvalidSegment, s)
	}
	return nil
}

// applyAuth sets the headers shared by every API request.
func (c *Client) applyAuth(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authHeader)
}

// ListFolders returns the folder tree of the label. An empty permission
// sends no filter.
func (c *Client) ListFolders(ctx context.Context, permission protocol.Permission) (*protocol.FolderListResponse, error) {
	const op = "list_folders"
	if !permission.Valid() {
		return nil, inputError(op, ReasonNoFolders, fmt.Errorf("%w: %q", ErrInvalidPermission, permission))
	}

	u := *c.base
	if permission != protocol.PermissionNone {
		u.RawQuery = url.Values{"permission": {string(permission)}}.Encode()
	}

	var result protocol.FolderListResponse
	if _, err := c.roundTrip(ctx, call{
		op: op, reason: ReasonNoFolders,
		method: http.MethodGet, url: u.String(),
		auth: true, into: &result,
	}); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListFiles returns the files stored in a folder.
func (c *Client) ListFiles(ctx context.Context, folder string) (*protocol.FileListResponse, error) {
	const op = "list_files"
	u, err := c.FilesURL(folder)
	if err != nil {
		return nil, inputError(op, ReasonNoFiles, err)
	}

	var result protocol.FileListResponse
	if _, err := c.roundTrip(ctx, call{
		op: op, reason: ReasonNoFiles,
		method: http.MethodGet, url: u,
		auth: true, into: &result,
	}); err != nil {
		return nil, err
	}
	return &result, nil
}

// ImportFile fetches the raw content of a stored file.
func (c *Client) ImportFile(ctx context.Context, folder, filename string) ([]byte, error) {
	const op = "import_file"
	u, err := c.FileURL(folder, filename)
	if err != nil {
		return nil, inputError(op, ReasonImportFailed, err)
	}

	data, err := c.roundTrip(ctx, call{
		op: op, reason: ReasonImportFailed,
		method: http.MethodGet, url: u,
		auth: true,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordTransfer(metrics.DirectionImport, len(data))
	return data, nil
}

// ExportFile uploads a payload into a folder.
func (c *Client) ExportFile(ctx context.Context, folder string, payload models.ExportPayload) (*protocol.ExportResponse, error) {
	const op = "export_file"
	u, err := c.FilesURL(folder)
	if err != nil {
		return nil, inputError(op, ReasonExportFailed, err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, inputError(op, ReasonExportFailed, fmt.Errorf("encode payload: %w", err))
	}

	var result protocol.ExportResponse
	if _, err := c.roundTrip(ctx, call{
		op: op, reason: ReasonExportFailed,
		method: http.MethodPost, url: u, body: body,
		auth: true, into: &result,
	}); err != nil {
		return nil, err
	}
	metrics.RecordTransfer(metrics.DirectionExport, len(body))
	return &result, nil
}

// DownloadFile fetches an absolute download URL taken from a file listing.
// The Authorization header is not sent to that URL.
func (c *Client) DownloadFile(ctx context.Context, rawURL string) ([]byte, error) {
	const op = "download_file"
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, inputError(op, ReasonDownloadFailed, fmt.Errorf("url %q does not exist", rawURL))
	}

	data, err := c.roundTrip(ctx, call{
		op: op, reason: ReasonDownloadFailed,
		method: http.MethodGet, url: u.String(),
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordTransfer(metrics.DirectionDownload, len(data))
	return data, nil
}

type call struct {
	op     string
	reason string
	method string
	url    string
	body   []byte
	auth   bool
	into   any
}

func (cl call) fail(status int, detail string, err error) *APIError {
	return &APIError{Op: cl.op, Reason: cl.reason, StatusCode: status, Detail: detail, Err: err}
}

func inputError(op, reason string, err error) *APIError {
	return &APIError{Op: op, Reason: reason, Err: err}
}

// roundTrip sends one request and returns the body of a 2xx response,
// decoding it into cl.into when set. Every other outcome is an *APIError.
func (c *Client) roundTrip(ctx context.Context, cl call) (data []byte, err error) {
	start := time.Now()
	status := 0
	defer func() {
		duration := time.Since(start)
		metrics.RecordClientRequest(cl.op, err == nil, duration)
		fields := []zap.Field{
			zap.String("op", cl.op),
			zap.String("method", cl.method),
			zap.String("url", cl.url),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		}
		if err != nil {
			c.logger.Warn("remote folder call failed", append(fields, zap.Error(err))...)
			return
		}
		c.logger.Debug("remote folder call", fields...)
	}()

	var reqBody io.Reader
	if cl.body != nil {
		reqBody = bytes.NewReader(cl.body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, cl.url, reqBody)
	if err != nil {
		return nil, cl.fail(0, "", err)
	}
	if cl.auth {
		c.applyAuth(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, cl.fail(0, "", err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, readErr := io.ReadAll(resp.Body)
	if status < 200 || status > 299 {
		return nil, cl.fail(status, errorDetail(data), nil)
	}
	if readErr != nil {
		return nil, cl.fail(status, "", fmt.Errorf("read response: %w", readErr))
	}
	if cl.into != nil {
		if decodeErr := json.Unmarshal(data, cl.into); decodeErr != nil {
			return nil, cl.fail(status, "", fmt.Errorf("decode response: %w", decodeErr))
		}
	}
	return data, nil
}

// errorDetail extracts a readable message from an error response body.
func errorDetail(body []byte) string {
	var errResp protocol.ErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Detail != "" {
		return errResp.Detail
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > maxDetailLen {
		detail = detail[:maxDetailLen] + "..."
	}
	return detail
}
