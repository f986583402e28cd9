// Package httpclient is the outbound HTTP client for external verifier
// services. It refuses loopback, private and link-local destinations
// unless told otherwise, both when the URL is checked and again at dial
// time so a hostname cannot rebind to an internal address.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/teranos/exchainge/errors"
)

const (
	maxRedirects     = 5
	maxResponseBytes = 1 << 20
)

var (
	ErrURLBlocked    = errors.Reason("url_blocked", errors.ErrValidation, "destination is not allowed")
	ErrBadStatus     = errors.Reason("http_status", errors.ErrExternal, "unexpected HTTP status")
	ErrResponseLarge = errors.Reason("http_response_too_large", errors.ErrExternal, "response body too large")
)

// Options relaxes the default destination policy.
type Options struct {
	// AllowPrivate permits loopback and private addresses, for verifier
	// sidecars on the same host and for tests against httptest servers.
	AllowPrivate bool
}

// Client is an http.Client that validates every destination.
type Client struct {
	http         *http.Client
	allowPrivate bool
}

// New returns a client with the given overall request timeout.
func New(timeout time.Duration, opts Options) *Client {
	c := &Client{allowPrivate: opts.AllowPrivate}
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}

	c.http = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, _, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, errors.Wrap(err, "invalid address")
				}
				ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to resolve host %q", host)
				}
				for _, ip := range ips {
					if err := c.checkAddr(ip); err != nil {
						return nil, err
					}
				}
				return dialer.DialContext(ctx, network, addr)
			},
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.Newf("stopped after %d redirects", maxRedirects)
			}
			return errors.Wrap(c.checkURL(req.URL), "redirect blocked")
		},
	}
	return c
}

// ValidateURL parses s and applies the destination policy to it.
func (c *Client) ValidateURL(s string) (*url.URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, errors.WithSecondaryError(errors.Wrapf(ErrURLBlocked, "%q does not parse", s), err)
	}
	if err := c.checkURL(u); err != nil {
		return nil, err
	}
	return u, nil
}

// PostJSON sends in as a JSON body and decodes a 2xx JSON response into out.
func (c *Client) PostJSON(ctx context.Context, target string, in, out any) error {
	u, err := c.ValidateURL(target)
	if err != nil {
		return err
	}
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "POST %s", u.Redacted())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if len(data) > maxResponseBytes {
		return errors.Wrapf(ErrResponseLarge, "more than %d bytes", maxResponseBytes)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Wrapf(ErrBadStatus, "POST %s: %s", u.Redacted(), resp.Status)
	}
	return errors.Wrap(json.Unmarshal(data, out), "decode response")
}

func (c *Client) checkURL(u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return errors.Wrapf(ErrURLBlocked, "scheme %q", u.Scheme)
	}
	if u.User != nil {
		return errors.Wrap(ErrURLBlocked, "credentials in URL")
	}
	host := u.Hostname()
	if host == "" {
		return errors.Wrap(ErrURLBlocked, "missing host")
	}
	if c.allowPrivate {
		return nil
	}
	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return errors.Wrapf(ErrURLBlocked, "host %s", host)
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		return c.checkAddr(ip)
	}
	return nil
}

func (c *Client) checkAddr(ip netip.Addr) error {
	if c.allowPrivate {
		return nil
	}
	if isInternal(ip.Unmap()) {
		return errors.Wrapf(ErrURLBlocked, "internal address %s", ip)
	}
	return nil
}

var documentation = netip.MustParsePrefix("2001:db8::/32")

func isInternal(ip netip.Addr) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified() ||
		ip.IsInterfaceLocalMulticast() ||
		(ip.Is4() && ip.As4()[0] == 0) || (ip.Is4() && ip.As4()[0] >= 240) ||
		documentation.Contains(ip)
}
