package httpclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultTimeout caps a whole HTTP exchange. Per-call deadlines set by the
	// translator are normally shorter.
	DefaultTimeout = 10 * time.Minute
	// MaxResponseBytes caps HTTP response bodies to prevent memory spikes.
	MaxResponseBytes = 8 * 1024 * 1024
	// Transport tuning for stable, long-lived connections.
	MaxIdleConns          = 100
	MaxIdleConnsPerHost   = 20
	IdleConnTimeout       = 120 * time.Second
	TLSHandshakeTimeout   = 30 * time.Second
	ExpectContinueTimeout = 2 * time.Second
)

// ErrResponseTooLarge is returned while reading a body beyond MaxResponseBytes.
var ErrResponseTooLarge = fmt.Errorf("response body too large (limit %d bytes)", MaxResponseBytes)

var (
	defaultClient     *http.Client
	defaultClientOnce sync.Once
	overrideClient    *http.Client
)

// NewClient returns a new http.Client with the specified timeout. Response
// bodies are limited to MaxResponseBytes.
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          MaxIdleConns,
		MaxIdleConnsPerHost:   MaxIdleConnsPerHost,
		IdleConnTimeout:       IdleConnTimeout,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &limitTransport{base: transport, limit: MaxResponseBytes},
	}
}

// GetDefaultClient returns a standardized http.Client for use across the application.
func GetDefaultClient() *http.Client {
	if overrideClient != nil {
		return overrideClient
	}
	defaultClientOnce.Do(func() {
		defaultClient = NewClient(DefaultTimeout)
	})
	return defaultClient
}

// SetDefaultClientForTesting overrides the singleton client for tests.
// It returns a restore function to reset the previous client.
func SetDefaultClientForTesting(client *http.Client) func() {
	prevOverride := overrideClient
	overrideClient = client
	return func() {
		overrideClient = prevOverride
	}
}

// limitTransport rejects or truncates oversized response bodies so provider
// SDKs reading through this client cannot exhaust memory.
type limitTransport struct {
	base  http.RoundTripper
	limit int64
}

func (t *limitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.ContentLength > t.limit {
		resp.Body.Close()
		return nil, ErrResponseTooLarge
	}
	resp.Body = &limitedBody{rc: resp.Body, remaining: t.limit}
	return resp, nil
}

type limitedBody struct {
	rc        io.ReadCloser
	remaining int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		// Probe for one more byte to tell an exact fit from an overflow.
		var one [1]byte
		n, err := b.rc.Read(one[:])
		if n > 0 {
			return 0, ErrResponseTooLarge
		}
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.rc.Read(p)
	b.remaining -= int64(n)
	return n, err
}

func (b *limitedBody) Close() error {
	return b.rc.Close()
}

// IsTooLarge reports whether err came from the response size limit.
func IsTooLarge(err error) bool {
	return errors.Is(err, ErrResponseTooLarge)
}
