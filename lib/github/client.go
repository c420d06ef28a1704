// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bureau-foundation/classroom/lib/clock"
	"github.com/bureau-foundation/classroom/lib/netutil"
)

// githubAPIVersion pins the REST API version header.
const githubAPIVersion = "2022-11-28"

// defaultBaseURL is the REST root for github.com.
const defaultBaseURL = "https://api.github.com"

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the REST API root. Defaults to "https://api.github.com".
	// For GitHub Enterprise Server use "https://<host>/api/v3". Must use
	// HTTPS.
	BaseURL string

	// GraphQLURL is the GraphQL endpoint. Derived from BaseURL when
	// empty: "https://api.github.com/graphql" for github.com and
	// "https://<host>/api/graphql" for Enterprise Server.
	GraphQLURL string

	// Token is the installation, personal, or fine-grained access
	// token. Required.
	Token string

	// MaxRetries bounds how many times one request is retried after a
	// transient failure. Zero selects the default of 3; negative
	// disables retries.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Each further
	// retry doubles it, capped at MaxBackoff. Defaults to 1s and 30s.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock drives backoff and rate limit waits. Defaults to
	// clock.Real().
	Clock clock.Clock

	// UserAgent identifies the caller. Defaults to "classroom".
	UserAgent string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a typed GitHub API client.
type Client struct {
	baseURL        string
	graphqlURL     string
	token          string
	userAgent      string
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	httpClient     *http.Client
	rateLimit      *rateLimitTracker
	clock          clock.Clock
	logger         *slog.Logger
}

// NewClient creates a Client. Returns an error for a missing token or
// a non-HTTPS endpoint.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("github: API client requires HTTPS (got %q)", baseURL)
	}

	graphqlURL := strings.TrimRight(config.GraphQLURL, "/")
	if graphqlURL == "" {
		graphqlURL = strings.TrimSuffix(baseURL, "/v3") + "/graphql"
	}
	if !strings.HasPrefix(graphqlURL, "https://") {
		return nil, fmt.Errorf("github: GraphQL endpoint requires HTTPS (got %q)", graphqlURL)
	}

	if config.Token == "" {
		return nil, errors.New("github: no access token configured")
	}

	maxRetries := config.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = 3
	case maxRetries < 0:
		maxRetries = 0
	}

	initialBackoff := config.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = time.Second
	}
	maxBackoff := config.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = "classroom"
	}

	return &Client{
		baseURL:        baseURL,
		graphqlURL:     graphqlURL,
		token:          config.Token,
		userAgent:      userAgent,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		httpClient:     httpClient,
		rateLimit:      newRateLimitTracker(clk),
		clock:          clk,
		logger:         logger,
	}, nil
}

// do executes an authenticated request against a path relative to the
// REST root, retrying transient failures. On non-2xx responses it
// returns an *APIError.
func (client *Client) do(ctx context.Context, method, path string, requestBody any) ([]byte, http.Header, error) {
	return client.doURL(ctx, method, client.baseURL+path, requestBody)
}

// doURL is do for an absolute URL. Pagination and GraphQL use it
// directly.
func (client *Client) doURL(ctx context.Context, method, url string, requestBody any) ([]byte, http.Header, error) {
	for attempt := 0; ; attempt++ {
		body, header, err := client.attempt(ctx, method, url, requestBody)
		if err == nil {
			return body, header, nil
		}
		if attempt >= client.maxRetries || !retryable(method, err) {
			return nil, nil, err
		}

		wait := client.backoff(attempt, err)
		client.logger.Info("transient GitHub failure, retrying",
			"method", method,
			"url", url,
			"attempt", attempt+1,
			"wait", wait,
			"error", err,
		)
		if err := clock.Sleep(ctx, client.clock, wait); err != nil {
			return nil, nil, err
		}
	}
}

// attempt sends one request and reads its response.
func (client *Client) attempt(ctx context.Context, method, url string, requestBody any) ([]byte, http.Header, error) {
	if err := client.rateLimit.wait(ctx); err != nil {
		return nil, nil, err
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, nil, fmt.Errorf("github: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("github: creating request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+client.token)
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	request.Header.Set("User-Agent", client.userAgent)
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, nil, &TransportError{Method: method, URL: url, Err: err}
	}
	defer response.Body.Close()

	client.rateLimit.update(response.Header)

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, nil, &TransportError{Method: method, URL: url, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		apiError := parseAPIErrorFromBody(response.StatusCode, body)
		apiError.retryAfter = client.rateLimit.retryAfter(response.Header)
		return nil, nil, apiError
	}
	return body, response.Header, nil
}

// backoff returns the wait before retry number attempt+1. A server
// supplied Retry-After or rate limit reset wins over the exponential
// schedule.
func (client *Client) backoff(attempt int, err error) time.Duration {
	var apiError *APIError
	if errors.As(err, &apiError) && apiError.retryAfter > 0 {
		return apiError.retryAfter
	}
	wait := client.initialBackoff << attempt
	if wait <= 0 || wait > client.maxBackoff {
		wait = client.maxBackoff
	}
	return wait
}

// retryable reports whether a failed request may be sent again.
// Requests the server rejected before processing (rate limits) are
// always safe to resend; server errors and transport failures only
// for methods that do not create resources.
func retryable(method string, err error) bool {
	if IsRateLimited(err) {
		return true
	}
	if method == http.MethodPost || method == http.MethodPatch {
		return false
	}
	return IsRetryable(err)
}

// get issues a GET and decodes the JSON response into result.
func (client *Client) get(ctx context.Context, path string, result any) error {
	body, _, err := client.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, result)
}

// post issues a POST. A nil result discards the response body.
func (client *Client) post(ctx context.Context, path string, requestBody any, result any) error {
	return client.send(ctx, http.MethodPost, path, requestBody, result)
}

// put issues a PUT. A nil result discards the response body.
func (client *Client) put(ctx context.Context, path string, requestBody any, result any) error {
	return client.send(ctx, http.MethodPut, path, requestBody, result)
}

// patch issues a PATCH. A nil result discards the response body.
func (client *Client) patch(ctx context.Context, path string, requestBody any, result any) error {
	return client.send(ctx, http.MethodPatch, path, requestBody, result)
}

// delete issues a DELETE.
func (client *Client) delete(ctx context.Context, path string) error {
	_, _, err := client.do(ctx, http.MethodDelete, path, nil)
	return err
}

func (client *Client) send(ctx context.Context, method, path string, requestBody any, result any) error {
	body, _, err := client.do(ctx, method, path, requestBody)
	if err != nil {
		return err
	}
	if result == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, result)
}

// parseAPIErrorFromBody builds an *APIError from a status code and the
// JSON error body GitHub returns.
func parseAPIErrorFromBody(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var wireError struct {
		Message          string            `json:"message"`
		DocumentationURL string            `json:"documentation_url"`
		Errors           []ValidationError `json:"errors"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Message != "" {
		apiError.Message = wireError.Message
		apiError.DocumentationURL = wireError.DocumentationURL
		apiError.Errors = wireError.Errors
	} else {
		apiError.Message = netutil.ErrorText(body)
	}
	return apiError
}
