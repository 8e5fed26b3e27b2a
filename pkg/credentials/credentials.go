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
Package credentials reads the remote archive credentials file.

The file is plain text. The first line holds the account name and the
password separated by a single space. The optional second line describes an
HTTP proxy, either as "host port" or as "host port user pass".
*/
package credentials // import "github.com/sen2agri/landsat-downloader/pkg/credentials"

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/pkg/errors"
)

// ConfigError reports a malformed credentials file. It is fatal to a run.
type ConfigError struct {
	Source string
	Line   int
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("credentials %s, line %d: %s", e.Source, e.Line, e.Reason)
	}
	return fmt.Sprintf("credentials %s: %s", e.Source, e.Reason)
}

// Proxy describes the HTTP proxy all archive traffic is routed through.
type Proxy struct {
	Host     string
	Port     string
	User     string
	Password string
}

// URL renders the proxy as an http URL, including the user info when set.
func (p *Proxy) URL() *url.URL {
	u := &url.URL{Scheme: "http", Host: net.JoinHostPort(p.Host, p.Port)}
	if p.User != "" {
		u.User = url.UserPassword(p.User, p.Password)
	}
	return u
}

// String is safe to log: the password is redacted.
func (p *Proxy) String() string {
	return p.URL().Redacted()
}

// Credentials holds the archive account and the optional proxy.
type Credentials struct {
	Account  string
	Password string
	Proxy    *Proxy
}

// String is safe to log.
func (c *Credentials) String() string {
	if c.Proxy == nil {
		return c.Account
	}
	return fmt.Sprintf("%s (proxy %s)", c.Account, c.Proxy)
}

// Load reads the credentials file at path.
func Load(path string) (*Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Source: path, Reason: err.Error()}
	}
	defer f.Close()

	creds, err := parse(f, path)
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// Parse reads credentials from r.
func Parse(r io.Reader) (*Credentials, error) {
	return parse(r, "<input>")
}

func parse(r io.Reader, source string) (*Credentials, error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrapf(err, "unable to read credentials %s", source)
		}
		return nil, &ConfigError{Source: source, Line: 1, Reason: "missing account line"}
	}
	account, password, ok := strings.Cut(strings.TrimRight(scanner.Text(), "\r\n"), " ")
	if !ok || account == "" || password == "" {
		return nil, &ConfigError{Source: source, Line: 1, Reason: "expected '<account> <password>'"}
	}
	creds := &Credentials{Account: account, Password: password}

	if !scanner.Scan() {
		return creds, scanner.Err()
	}
	proxyLine := strings.Trim(scanner.Text(), "\n\t\r ")
	if proxyLine == "" {
		return creds, nil
	}

	proxy, err := parseProxy(proxyLine)
	if err != nil {
		return nil, &ConfigError{Source: source, Line: 2, Reason: err.Error()}
	}
	creds.Proxy = proxy
	return creds, nil
}

func parseProxy(line string) (*Proxy, error) {
	fields := strings.Split(line, " ")

	var p Proxy
	switch len(fields) {
	case 2:
		p = Proxy{Host: fields[0], Port: fields[1]}
	case 4:
		p = Proxy{Host: fields[0], Port: fields[1], User: fields[2], Password: fields[3]}
	default:
		return nil, errors.Errorf("proxy information erroneous: got %d fields, expected 'host port [user pass]'", len(fields))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that the proxy is either (host, port) or
// (host, port, user, password).
func (p *Proxy) Validate() error {
	if !govalidator.IsHost(p.Host) {
		return errors.Errorf("invalid proxy host %q", p.Host)
	}
	if !govalidator.IsPort(p.Port) {
		return errors.Errorf("invalid proxy port %q", p.Port)
	}
	if (p.User == "") != (p.Password == "") {
		return errors.New("proxy user and password must be given together")
	}
	return nil
}
