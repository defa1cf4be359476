// Package origin fetches storefront pages from the origin host on behalf of
// the proxy.
package origin

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/partssupplied/partsedge/pkg/seo"
)

// HeaderRequestID correlates a proxied request with its origin fetch.
const HeaderRequestID = "X-Request-ID"

// maxBody bounds how much of an origin response is buffered.
const maxBody = 16 << 20

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

type Client struct {
	base   *url.URL
	client *http.Client
}

// NewClient returns a client for the origin at baseURL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("error parsing origin URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("origin must be an http(s) URL: %q", baseURL)
	}
	return &Client{
		base: u,
		client: &http.Client{
			Timeout: timeout,
			// redirects are relayed to the browser, not followed
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Target returns the origin URL for a request path and raw query.
func (o *Client) Target(path, rawQuery string) string {
	u := *o.base
	u.Path = strings.TrimRight(o.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = rawQuery
	return u.String()
}

// Fetch performs method on the origin for path and returns the buffered
// response. requestHeader is forwarded without hop-by-hop headers and
// without Accept-Encoding, so the transport negotiates and decodes
// compression itself and the body reaches the rewriter as plain text.
func (o *Client) Fetch(ctx context.Context, method, path, rawQuery string, requestHeader http.Header, clientIP string) (seo.Response, error) {
	target := o.Target(path, rawQuery)
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return seo.Response{}, fmt.Errorf("error building origin request: %w", err)
	}

	req.Header = cleanHeader(requestHeader)
	req.Header.Del("Accept-Encoding")
	req.Header.Del("Host")
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if clientIP != "" {
		if prior := req.Header.Get("X-Forwarded-For"); prior != "" {
			clientIP = prior + ", " + clientIP
		}
		req.Header.Set("X-Forwarded-For", clientIP)
	}
	if host := requestHeader.Get("Host"); host != "" {
		req.Header.Set("X-Forwarded-Host", host)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return seo.Response{}, fmt.Errorf("error fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return seo.Response{}, fmt.Errorf("error reading response body: %w", err)
	}
	if len(body) > maxBody {
		return seo.Response{}, fmt.Errorf("origin response for %s exceeds %d bytes", target, maxBody)
	}

	header := cleanHeader(resp.Header)
	header.Set(HeaderRequestID, req.Header.Get(HeaderRequestID))
	return seo.Response{Status: resp.StatusCode, Header: header, Body: body}, nil
}

// cleanHeader copies h without hop-by-hop headers, including those named in
// Connection.
func cleanHeader(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		return http.Header{}
	}
	for _, f := range out.Values("Connection") {
		for _, name := range strings.Split(f, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		out.Del(name)
	}
	return out
}

// ClientIP strips the port from a remote address.
func ClientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
