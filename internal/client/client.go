// Package client is a typed HTTP client for the dashboard API. It obtains
// access tokens with the OAuth2 client credentials grant.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"lrs-tracker/internal/models"
)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Code)
}

type Client struct {
	base string
	http *http.Client
}

// New returns a client whose requests carry a bearer token fetched, and
// refreshed on expiry, from the server's token endpoint.
func New(ctx context.Context, cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", cfg.BaseURL, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + "/api/oauth/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	httpClient := cc.Client(ctx)
	httpClient.Timeout = timeout

	return &Client{base: base, http: httpClient}, nil
}

// Stats returns summary statistics, globally when lrsID is empty.
func (c *Client) Stats(ctx context.Context, lrsID string) (models.StatsResponse, error) {
	var resp models.StatsResponse
	err := c.get(ctx, scopedPath(lrsID, "stats"), nil, &resp)
	return resp, err
}

// Graph returns the daily series between start and end (YYYY-MM-DD, either
// may be empty).
func (c *Client) Graph(ctx context.Context, lrsID, start, end string) (models.GraphResponse, error) {
	q := url.Values{}
	if start != "" {
		q.Set("start", start)
	}
	if end != "" {
		q.Set("end", end)
	}

	var resp models.GraphResponse
	err := c.get(ctx, scopedPath(lrsID, "graph"), q, &resp)
	return resp, err
}

func (c *Client) Actors(ctx context.Context, lrsID string) (models.ActorCountResponse, error) {
	var resp models.ActorCountResponse
	err := c.get(ctx, scopedPath(lrsID, "actors"), nil, &resp)
	return resp, err
}

func (c *Client) Stores(ctx context.Context, query string) (models.StoreListResponse, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}

	var resp models.StoreListResponse
	err := c.get(ctx, "/api/stores", q, &resp)
	return resp, err
}

func scopedPath(lrsID, endpoint string) string {
	if lrsID == "" {
		return "/api/" + endpoint
	}
	return "/api/stores/" + url.PathEscape(lrsID) + "/" + endpoint
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		var body models.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Error != "" {
			apiErr.Code, apiErr.Message = body.Error, body.Message
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
