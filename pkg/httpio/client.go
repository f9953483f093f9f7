package httpio

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient allocates a preconfigured *http.Client. Dialing is bounded by connectTimeout while
// the overall request deadline is left to the caller's context so each call can pick its own.
func NewHTTPClient(connectTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = connectTimeout

	return &http.Client{Transport: transport}
}
