package httpclient

import (
	"net/http"
	"time"
)

// Client defines an interface for making HTTP requests
// This allows for easy mocking and testing of HTTP calls
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultTimeout bounds every outbound call made through NewStandardClient
const DefaultTimeout = 30 * time.Second

// StandardHTTPClient wraps the standard http.Client
type StandardHTTPClient struct {
	client *http.Client
}

// NewStandardClient creates a new HTTP client with default settings
func NewStandardClient() *StandardHTTPClient {
	return NewClientWithTimeout(DefaultTimeout)
}

// NewClientWithTimeout creates a client whose requests time out after d
func NewClientWithTimeout(d time.Duration) *StandardHTTPClient {
	return &StandardHTTPClient{
		client: &http.Client{Timeout: d},
	}
}

// Do executes an HTTP request
func (c *StandardHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

// HTTPClient exposes the underlying *http.Client for SDKs that need one
// (google.golang.org/api option.WithHTTPClient, oauth2.HTTPClient context key).
func (c *StandardHTTPClient) HTTPClient() *http.Client {
	return c.client
}
