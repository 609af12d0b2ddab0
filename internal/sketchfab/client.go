package sketchfab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultBaseURL is the Sketchfab v3 API root.
	DefaultBaseURL = "https://api.sketchfab.com/v3"

	// maxSearchCount is the upstream cap on search page size.
	maxSearchCount = 24

	defaultSearchCount = 10

	// errorBodyLimit bounds how much of an upstream error body is captured.
	errorBodyLimit = 4 << 10
)

// TokenProvider supplies a valid access token for each outbound call and
// accepts the signal that the upstream considered one stale.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	MarkExpired()
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root, e.g. for tests.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// Client wraps the handful of Sketchfab API calls we rely on, authenticating
// every request through the token provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
}

// New creates a Client with sane defaults.
func New(tokens TokenProvider, opts ...ClientOption) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("missing token provider")
	}

	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(c)
	}

	if _, err := url.Parse(c.baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return c, nil
}

// Search queries models matching the query string. The result is the raw
// upstream record list in upstream order; downloadable-only filtering is the
// query service's concern.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Model, error) {
	count := limit
	if count <= 0 {
		count = defaultSearchCount
	}
	if count > maxSearchCount {
		count = maxSearchCount
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))

	var resp searchResponse
	if err := c.get(ctx, "/search", params, &resp); err != nil {
		return nil, err
	}
	return resp.Results.Models, nil
}

// GetModel fetches the detail record for one model.
func (c *Client) GetModel(ctx context.Context, uid string) (*Model, error) {
	var model Model
	err := c.get(ctx, "/models/"+url.PathEscape(uid), nil, &model)
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{ModelID: uid}
		}
		return nil, err
	}
	return &model, nil
}

// GetDownloadLink resolves the signed download URLs for one model. Requires
// valid OAuth2 credentials upstream-side.
func (c *Client) GetDownloadLink(ctx context.Context, uid string) (DownloadLinks, error) {
	var links DownloadLinks
	err := c.get(ctx, "/models/"+url.PathEscape(uid)+"/download", nil, &links)
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{ModelID: uid}
		}
		return nil, err
	}
	return links, nil
}

// get issues an authenticated GET and decodes the JSON response into out.
//
// Exactly two attempts: if the first response is a 401, the token is forced
// expired and the call retried once with a freshly obtained token. A second
// 401 is terminal. Non-auth failures are never retried here.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	for attempt := range 2 {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			// Stale or absent credentials must be visible to whoever can
			// supply new ones.
			return err
		}

		reqURL := c.baseURL + path
		if len(params) > 0 {
			reqURL += "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("calling sketchfab: %w", err)
		}

		done, err := c.handleResponse(resp, attempt, out)
		if done {
			return err
		}
	}

	// Unreachable: handleResponse returns done=true on the second attempt.
	return ErrUnauthorized
}

// handleResponse consumes one response. done=false requests the single
// auth retry.
func (c *Client) handleResponse(resp *http.Response, attempt int, out any) (done bool, err error) {
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyLimit))
		if attempt == 0 {
			c.tokens.MarkExpired()
			return false, nil
		}
		return true, ErrUnauthorized

	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return true, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}

	default:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return true, fmt.Errorf("decoding sketchfab response: %w", err)
		}
		return true, nil
	}
}

func isNotFound(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound
}
