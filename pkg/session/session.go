/*
Copyright The Helm Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
Package session establishes an authenticated, cookie based HTTP session
against the remote imagery archive.

A Session is created once per run and shared by every request that follows.
All requests made through it carry the cookies handed out at login, pass
through the configured proxy, and respect the per-host admission limit.
*/
package session // import "github.com/sen2agri/landsat-downloader/pkg/session"

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/sen2agri/landsat-downloader/internal/version"
	"github.com/sen2agri/landsat-downloader/pkg/credentials"
)

// DefaultLoginURL is the login form of the USGS registration system.
const DefaultLoginURL = "https://ers.cr.usgs.gov/login"

// csrfField is the name of the hidden anti-forgery input on the login form.
const csrfField = "csrf_token"

// rejectionMarkers are found in the login response when the archive did not
// accept the credentials.
var rejectionMarkers = []string{
	"You must sign in as a registered user to download data or place orders for USGS EROS products",
	"Invalid username/password",
}

// AuthError is returned when a session cannot be established. It is fatal
// to the whole run.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "authentication failed: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

type options struct {
	loginURL  string
	userAgent string
	timeout   time.Duration
	tlsConfig *tls.Config
	hostRate  rate.Limit
	hostBurst int
	log       logrus.FieldLogger
}

// Option configures a Session.
type Option func(*options)

// WithLoginURL overrides the login form location.
func WithLoginURL(u string) Option {
	return func(o *options) {
		o.loginURL = u
	}
}

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithTimeout bounds connection setup and the wait for response headers.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithTLSClientConfig sets the TLS configuration of the transport.
func WithTLSClientConfig(cfg *tls.Config) Option {
	return func(o *options) {
		o.tlsConfig = cfg
	}
}

// WithHostRateLimit admits at most rps requests per second to any single
// host, with the given burst. A non-positive rps disables the limit.
func WithHostRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps <= 0 {
			o.hostRate = rate.Inf
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.hostRate = rate.Limit(rps)
		o.hostBurst = burst
	}
}

// WithLogger sets the logger used while establishing the session.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = l
	}
}

// Session is an authenticated transport to the archive.
type Session struct {
	client    *http.Client
	userAgent string
	proxy     *credentials.Proxy

	hostRate  rate.Limit
	hostBurst int
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
}

// Establish logs in to the archive with creds and returns the resulting
// session. A malformed proxy is reported as a *credentials.ConfigError
// before any network call is made; every other failure is an *AuthError.
func Establish(ctx context.Context, creds *credentials.Credentials, opts ...Option) (*Session, error) {
	o := options{
		loginURL:  DefaultLoginURL,
		userAgent: version.UserAgent(),
		timeout:   100 * time.Second,
		hostRate:  rate.Inf,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := newSession(creds, o)
	if err != nil {
		return nil, err
	}

	if creds.Proxy != nil {
		o.log.WithField("proxy", creds.Proxy.String()).Info("Establishing connection to the archive using a proxy")
	} else {
		o.log.Info("Establishing connection to the archive")
	}

	token, err := s.fetchToken(ctx, o.loginURL)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"username": {creds.Account},
		"password": {creds.Password},
		csrfField:  {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthError{Reason: "unable to build login request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.Do(req)
	if err != nil {
		return nil, &AuthError{Reason: "archive unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AuthError{Reason: "unable to read login response", Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &AuthError{Reason: "login rejected with " + resp.Status}
	}
	for _, marker := range rejectionMarkers {
		if strings.Contains(string(body), marker) {
			return nil, &AuthError{Reason: "credentials rejected, check the first line of the credentials file"}
		}
	}

	o.log.Info("Connected")
	return s, nil
}

func newSession(creds *credentials.Credentials, o options) (*Session, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   o.timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   o.timeout,
		ResponseHeaderTimeout: o.timeout,
		DisableCompression:    true,
		TLSClientConfig:       o.tlsConfig,
	}
	if creds.Proxy != nil {
		if err := creds.Proxy.Validate(); err != nil {
			return nil, &credentials.ConfigError{Source: "proxy", Reason: err.Error()}
		}
		transport.Proxy = http.ProxyURL(creds.Proxy.URL())
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create cookie jar")
	}

	return &Session{
		client:    &http.Client{Transport: transport, Jar: jar},
		userAgent: o.userAgent,
		proxy:     creds.Proxy,
		hostRate:  o.hostRate,
		hostBurst: o.hostBurst,
		limiters:  map[string]*rate.Limiter{},
	}, nil
}

func (s *Session) fetchToken(ctx context.Context, loginURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return "", &AuthError{Reason: "unable to build login page request", Err: err}
	}
	resp, err := s.Do(req)
	if err != nil {
		return "", &AuthError{Reason: "archive unreachable", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{Reason: "unable to fetch login page: " + resp.Status}
	}

	token, err := findInputValue(resp.Body, csrfField)
	if err != nil {
		return "", &AuthError{Reason: "unable to extract anti-forgery token", Err: err}
	}
	return token, nil
}

// findInputValue returns the value attribute of the first <input> element
// named name.
func findInputValue(r io.Reader, name string) (string, error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return "", errors.Errorf("no input named %q", name)
			}
			return "", z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "input" {
				continue
			}
			var isField bool
			var value string
			var hasValue bool
			for _, attr := range tok.Attr {
				switch attr.Key {
				case "name":
					isField = attr.Val == name
				case "value":
					value, hasValue = attr.Val, true
				}
			}
			if isField {
				if !hasValue {
					return "", errors.Errorf("input %q has no value", name)
				}
				return value, nil
			}
		}
	}
}

// Proxy returns the proxy the session routes through, or nil.
func (s *Session) Proxy() *credentials.Proxy {
	return s.proxy
}

// Do sends req with the session cookies once the per-host limit admits it.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	if err := s.limiter(req.URL.Host).Wait(req.Context()); err != nil {
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	return s.client.Do(req)
}

// Get issues a GET request for href through the session.
func (s *Session) Get(ctx context.Context, href string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return nil, err
	}
	return s.Do(req)
}

func (s *Session) limiter(host string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[host]
	if !ok {
		l = rate.NewLimiter(s.hostRate, s.hostBurst)
		s.limiters[host] = l
	}
	return l
}
