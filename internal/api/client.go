package api

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

	"probedash/internal/dashboard"
)

// Client is a thin HTTP client for the dashboard API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL (e.g. http://host:port).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Health checks that the server is up and has a snapshot.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	err := c.getJSON(ctx, "/health", &resp)
	return resp, err
}

// Dashboard fetches the aggregated dashboard, optionally for one host.
func (c *Client) Dashboard(ctx context.Context, host string) (*dashboard.Dashboard, error) {
	endpoint := "/api/dashboard"
	if host != "" {
		endpoint += "?host=" + url.QueryEscape(host)
	}
	var resp dashboard.Dashboard
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Hosts lists the probed hosts.
func (c *Client) Hosts(ctx context.Context) (HostsResponse, error) {
	var resp HostsResponse
	err := c.getJSON(ctx, "/api/hosts", &resp)
	return resp, err
}

// Latest fetches the newest attempt of each host.
func (c *Client) Latest(ctx context.Context) (LatestResponse, error) {
	var resp LatestResponse
	err := c.getJSON(ctx, "/api/latest", &resp)
	return resp, err
}

// Results fetches one page of the result table.
func (c *Client) Results(ctx context.Context, q ResultsQuery) (ResultsResponse, error) {
	var resp ResultsResponse
	endpoint := "/api/results"
	if v := q.Values(); len(v) > 0 {
		endpoint += "?" + v.Encode()
	}
	err := c.getJSON(ctx, endpoint, &resp)
	return resp, err
}

// Traces fetches the newest traceroute of each target.
func (c *Client) Traces(ctx context.Context) (TracesResponse, error) {
	var resp TracesResponse
	err := c.getJSON(ctx, "/api/traces", &resp)
	return resp, err
}

// Chart streams the named PNG chart to w.
func (c *Client) Chart(ctx context.Context, name, host string, w io.Writer) error {
	endpoint := "/api/charts/" + url.PathEscape(name)
	if host != "" {
		endpoint += "?host=" + url.QueryEscape(host)
	}
	res, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, err = io.Copy(w, res.Body)
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	res, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	decoder := json.NewDecoder(res.Body)
	return decoder.Decode(out)
}

// get performs a GET and turns non-2xx answers into errors carrying the body.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer res.Body.Close()
		body, _ := io.ReadAll(res.Body)
		return nil, &StatusError{Code: res.StatusCode, Status: res.Status, Body: strings.TrimSpace(string(body))}
	}
	return res, nil
}

// StatusError is returned for non-2xx answers.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("request failed: %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("request failed: %s", e.Status)
}

// IsNotFound reports whether err is a 404 answer from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
