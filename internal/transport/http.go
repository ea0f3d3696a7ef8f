package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// DefaultUserAgent is sent with every HTTP request unless overridden.
const DefaultUserAgent = "transread/1.0"

// DefaultDialTimeout is the default timeout for establishing connections.
const DefaultDialTimeout = 30 * time.Second

// DefaultResponseHeaderTimeout is the default timeout for receiving response headers.
const DefaultResponseHeaderTimeout = 30 * time.Second

// NewHTTPClient returns a client with connection-phase timeouts and no
// overall timeout, since bodies are streamed for as long as the caller reads.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: DefaultDialTimeout}).DialContext,
			ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

func (r *Resolver) openHTTP(ctx context.Context, u *url.URL) (*Source, error) {
	// Credentials travel in the Authorization header, not the request URL.
	target := *u
	user := target.User
	target.User = nil

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: creating request: %w", ErrRemoteOpen, target.Redacted(), err)
	}
	if user != nil {
		password, _ := user.Password()
		req.SetBasicAuth(user.Username(), password)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrRemoteOpen, target.Redacted(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %q: unexpected status: %s", ErrRemoteOpen, target.Redacted(), resp.Status)
	}

	return &Source{Body: resp.Body, Remote: true, Size: -1}, nil
}
