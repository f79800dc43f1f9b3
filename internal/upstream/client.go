// Package upstream holds what the third-party API clients share: the HTTP
// client they dial through and the error type their failures surface as.
package upstream

import (
	"net"
	"net/http"
	"time"
)

const (
	// ClientTimeout bounds one whole upstream call. Image generation is the
	// slowest provider, so this is generous.
	ClientTimeout = 90 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 60 * time.Second
)

// UserAgent is sent on every upstream request.
const UserAgent = "QuickAI-Server/1.0"

// NewHTTPClient creates an HTTP client for calls to AI and media providers.
// Redirects are not followed.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          50,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
