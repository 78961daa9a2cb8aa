// Package client provides a basic REST client for the Hookbox webhook API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hookbox/hookbox/pkg/rest/model"
	"github.com/hookbox/hookbox/pkg/storage"
)

// Client accesses the Hookbox webhook API.
type Client struct {
	restClient
}

// Option configures a Client.
type Option func(*http.Client)

// WithTransport sets the transport used by the underlying http.Client.
func WithTransport(transport http.RoundTripper) Option {
	return func(hc *http.Client) {
		hc.Transport = transport
	}
}

// New creates an API client given the base URL of a Hookbox server, ex:
// "http://localhost:42010", and the configured API key.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	hc := &http.Client{
		Timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(hc)
	}
	return &Client{
		restClient{
			client:  hc,
			baseURL: parsedURL,
			apiKey:  apiKey,
		},
	}, nil
}

// Health checks the service health endpoint.
func (c *Client) Health(ctx context.Context) (*model.JSONHealthV1, error) {
	health := &model.JSONHealthV1{}
	if err := c.doJSON(ctx, "GET", "/", nil, nil, health); err != nil {
		return nil, err
	}
	return health, nil
}

// SendWebhook posts an email payload to the webhook endpoint, returning the
// stored identifier.
func (c *Client) SendWebhook(ctx context.Context, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	result := &model.JSONIngestResultV1{}
	if err := c.doJSON(ctx, "POST", "/webhook", nil, body, result); err != nil {
		return "", err
	}
	return result.EmailID, nil
}

// ListQuery holds the optional filters for ListEmails.
type ListQuery struct {
	Limit     int64
	Skip      int64
	FromEmail string
	Subject   string
}

// ListEmails returns stored emails, newest first.
func (c *Client) ListEmails(ctx context.Context, q ListQuery) ([]*storage.Email, error) {
	query := url.Values{}
	if q.Limit > 0 {
		query.Set("limit", strconv.FormatInt(q.Limit, 10))
	}
	if q.Skip > 0 {
		query.Set("skip", strconv.FormatInt(q.Skip, 10))
	}
	if q.FromEmail != "" {
		query.Set("from_email", q.FromEmail)
	}
	if q.Subject != "" {
		query.Set("subject", q.Subject)
	}
	list := &model.JSONEmailListV1{}
	if err := c.doJSON(ctx, "GET", "/emails", query, nil, list); err != nil {
		return nil, err
	}
	return list.Emails, nil
}

// GetEmail returns a single stored email by identifier.
func (c *Client) GetEmail(ctx context.Context, id string) (*storage.Email, error) {
	wrapper := &model.JSONEmailV1{}
	if err := c.doJSON(ctx, "GET", "/emails/"+url.PathEscape(id), nil, nil, wrapper); err != nil {
		return nil, err
	}
	return wrapper.Email, nil
}

// GetAttachment returns the decoded bytes of a named attachment.
func (c *Client) GetAttachment(ctx context.Context, id, name string) (*bytes.Buffer, error) {
	uri := "/emails/" + url.PathEscape(id) + "/attachment/" + url.PathEscape(name)
	resp, err := c.do(ctx, "GET", uri, nil, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil,
			fmt.Errorf("unexpected HTTP response status %v: %s", resp.StatusCode, resp.Status)
	}
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	return buf, err
}
