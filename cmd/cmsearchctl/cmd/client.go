package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	chiTransport "github.com/kailas-cloud/cmsearch/internal/transport/chi"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	Body   chiTransport.ErrorResponse
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s (HTTP %d): %s", e.Body.Code, e.Status, e.Body.Message)
	if e.Body.Constraint != "" {
		msg += fmt.Sprintf(" [%s limit %s, requested %s]", e.Body.Constraint, e.Body.Limit, e.Body.Requested)
	}
	return msg
}

// apiClient calls the cmsearch HTTP API on behalf of one caller.
type apiClient struct {
	base  *url.URL
	http  *http.Client
	token string
	user  string
	roles []string
}

func newAPIClient(addr, token, user string, roles []string, timeout time.Duration) (*apiClient, error) {
	base, err := url.Parse(strings.TrimRight(addr, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse --addr: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("--addr must be an http(s) URL, got %q", addr)
	}
	return &apiClient{
		base:  base,
		http:  &http.Client{Timeout: timeout},
		token: token,
		user:  user,
		roles: roles,
	}, nil
}

// Search runs a search. A non-empty debugSecret is sent in the debug header.
func (c *apiClient) Search(
	ctx context.Context, index string, params url.Values, debugSecret string,
) (chiTransport.SearchResponse, error) {
	var out chiTransport.SearchResponse
	var hdr http.Header
	if debugSecret != "" {
		hdr = http.Header{chiTransport.HeaderDebugSecret: {debugSecret}}
	}
	err := c.get(ctx, "/v1/indexes/"+url.PathEscape(index)+"/search", params, hdr, &out)
	return out, err
}

func (c *apiClient) Lookup(ctx context.Context, index, field, value string) (chiTransport.LookupResponse, error) {
	var out chiTransport.LookupResponse
	params := url.Values{"field": {field}, "value": {value}}
	err := c.get(ctx, "/v1/indexes/"+url.PathEscape(index)+"/lookup", params, nil, &out)
	return out, err
}

func (c *apiClient) Indexes(ctx context.Context) (chiTransport.IndexListResponse, error) {
	var out chiTransport.IndexListResponse
	err := c.get(ctx, "/v1/indexes/", nil, nil, &out)
	return out, err
}

// Health returns the report even when the server answers 503.
func (c *apiClient) Health(ctx context.Context) (chiTransport.HealthResponse, error) {
	var out chiTransport.HealthResponse
	err := c.get(ctx, "/health", nil, nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable && out.Status != "" {
		return out, nil
	}
	return out, err
}

func (c *apiClient) get(ctx context.Context, path string, params url.Values, hdr http.Header, out any) error {
	u := *c.base
	u.Path += path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.user != "" {
		req.Header.Set(chiTransport.HeaderCallerUser, c.user)
	}
	if len(c.roles) > 0 {
		req.Header.Set(chiTransport.HeaderCallerRoles, strings.Join(c.roles, ","))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", u.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(body, &apiErr.Body); jsonErr != nil || apiErr.Body.Code == "" {
			apiErr.Body = chiTransport.ErrorResponse{
				Code:    chiTransport.ErrorResponseCodeInternalError,
				Message: strings.TrimSpace(string(body)),
			}
		}
		// Health reports its body with a 503.
		_ = json.Unmarshal(body, out)
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
