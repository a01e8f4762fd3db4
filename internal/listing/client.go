package listing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultURL       = "https://api.producthunt.com/v1/posts"
	DefaultUserAgent = "realtime-producthunt/0.0.1"
	DefaultTimeout   = 10 * time.Second

	maxBodyBytes = 10 << 20
)

// Result is what a fetch produced. Token is populated whenever the upstream
// sent one, including alongside Unchanged and MalformedBody errors, so the
// caller can keep its copy current.
type Result struct {
	Listings []Listing
	Token    string
}

type Client struct {
	client    *http.Client
	url       string
	token     string
	userAgent string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// NewClient creates a client for the listings endpoint at url, authenticating
// with the given bearer token.
func NewClient(url, bearerToken string, opts ...Option) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		url:       url,
		token:     bearerToken,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type postsBody struct {
	Posts *[]json.RawMessage `json:"posts"`
}

// Fetch performs one conditional GET. previousToken is the validation token
// from the last fetch, empty on the first one.
func (c *Client) Fetch(ctx context.Context, previousToken string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &FetchError{Kind: Transport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if previousToken != "" {
		req.Header.Set("If-None-Match", strings.Replace(previousToken, `"`, "", 1))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: Transport, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &FetchError{Kind: BadStatus, StatusCode: resp.StatusCode}
	}

	token := resp.Header.Get("ETag")
	if token == "" {
		return nil, &FetchError{Kind: MissingToken}
	}
	res := &Result{Token: token}
	if token == previousToken {
		return res, &FetchError{Kind: Unchanged}
	}

	var body postsBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return res, &FetchError{Kind: MalformedBody, Err: err}
	}
	if body.Posts == nil {
		return res, &FetchError{Kind: MalformedBody, Err: errors.New(`missing "posts"`)}
	}

	res.Listings = make([]Listing, 0, len(*body.Posts))
	for _, raw := range *body.Posts {
		res.Listings = append(res.Listings, New(raw))
	}
	return res, nil
}
