package factory

import (
	"net/http"
	"time"
)

// SharedClientFactory hands out HTTP clients that share one transport, so
// the cloud API and the embedding/vector endpoints reuse connections.
// Per-call deadlines are set by callers with a context, the client
// timeouts are only the outer bound.
type SharedClientFactory struct {
	transport *http.Transport
}

const (
	DefaultUpstreamTimeout = 180 * time.Second
	DefaultLookupTimeout   = 30 * time.Second
)

func NewSharedClientFactory() *SharedClientFactory {
	return &SharedClientFactory{
		transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			DisableCompression:  false,
		},
	}
}

// Client returns a client bounded by timeout, zero means DefaultUpstreamTimeout
func (f *SharedClientFactory) Client(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: f.transport,
	}
}

// LookupClient is for short calls such as embeddings and vector search
func (f *SharedClientFactory) LookupClient() *http.Client {
	return f.Client(DefaultLookupTimeout)
}

func (f *SharedClientFactory) CloseIdleConnections() {
	f.transport.CloseIdleConnections()
}
