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

package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

type clientOptions struct {
	insecureSkipVerify bool
	caPEMBlock         []byte
	serverName         string
}

// Option configures the TLS settings used by the archive session.
type Option func(*clientOptions) error

// WithInsecureSkipVerify disables verification of the archive's certificate.
func WithInsecureSkipVerify(insecure bool) Option {
	return func(o *clientOptions) error {
		o.insecureSkipVerify = insecure
		return nil
	}
}

// WithCAFile replaces the trusted roots with the certificates in caFile. An
// empty path keeps the system pool.
func WithCAFile(caFile string) Option {
	return func(o *clientOptions) error {
		if caFile == "" {
			return nil
		}
		block, err := os.ReadFile(caFile)
		if err != nil {
			return errors.Wrapf(err, "can't read CA file %q", caFile)
		}
		o.caPEMBlock = block
		return nil
	}
}

// WithServerName overrides the name used to verify the server certificate.
func WithServerName(name string) Option {
	return func(o *clientOptions) error {
		o.serverName = name
		return nil
	}
}

// NewClientConfig builds a client TLS configuration. All option errors are
// reported together.
func NewClientConfig(options ...Option) (*tls.Config, error) {
	o := clientOptions{}

	var result *multierror.Error
	for _, option := range options {
		if err := option(&o); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		InsecureSkipVerify: o.insecureSkipVerify, //nolint:gosec
		ServerName:         o.serverName,
		MinVersion:         tls.VersionTLS12,
	}

	if len(o.caPEMBlock) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(o.caPEMBlock) {
			return nil, errors.New("failed to append certificates from pem block")
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}
