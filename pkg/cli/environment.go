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

/*Package cli describes the operating environment of the downloader.

Every setting can come from an environment variable and be overridden by a
global flag of the same meaning.
*/
package cli // import "github.com/sen2agri/landsat-downloader/pkg/cli"

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/sen2agri/landsat-downloader/pkg/downloader"
	"github.com/sen2agri/landsat-downloader/pkg/session"
)

// Supported history drivers.
const (
	HistoryDriverMemory = "memory"
	HistoryDriverSQL    = "sql"
)

const (
	defaultCredentials   = "/etc/sen2agri/usgs.txt"
	defaultDownloadURL   = "https://earthexplorer.usgs.gov/download"
	defaultSQLConnection = "postgres://admin@localhost/sen2agri?sslmode=disable"
)

// EnvSettings describes all of the environment settings.
type EnvSettings struct {
	// Debug enables debug logging.
	Debug bool
	// CredentialsFile is the path to the archive credentials file.
	CredentialsFile string
	// HistoryDriver selects where the product history is kept.
	HistoryDriver string
	// HistorySQLConnection is the Postgres connection string of the sql driver.
	HistorySQLConnection string
	// LoginURL is the location of the archive login form.
	LoginURL string
	// DownloadURL is the prefix of product download URLs.
	DownloadURL string
	// CAFile verifies the archive's certificate when set.
	CAFile string
	// InsecureSkipTLSVerify disables certificate verification.
	InsecureSkipTLSVerify bool
	// Workers is the number of tiles processed at once.
	Workers int
	// HostRPS bounds the requests per second sent to one host. Zero is unbounded.
	HostRPS float64
	// Attempts is the number of tries of a transiently failing product per run.
	Attempts int
	// IdleTimeout bounds the wait for data from the archive.
	IdleTimeout time.Duration
}

// New reads the settings from the environment.
func New() *EnvSettings {
	env := &EnvSettings{
		Debug:                 envBoolOr("LANDSAT_DEBUG", false),
		CredentialsFile:       envOr("LANDSAT_CREDENTIALS", defaultCredentials),
		HistoryDriver:         envOr("LANDSAT_HISTORY_DRIVER", HistoryDriverSQL),
		HistorySQLConnection:  envOr("LANDSAT_HISTORY_SQL_CONNECTION_STRING", defaultSQLConnection),
		LoginURL:              envOr("LANDSAT_LOGIN_URL", session.DefaultLoginURL),
		DownloadURL:           envOr("LANDSAT_DOWNLOAD_URL", defaultDownloadURL),
		CAFile:                os.Getenv("LANDSAT_CA_FILE"),
		InsecureSkipTLSVerify: envBoolOr("LANDSAT_INSECURE_SKIP_TLS_VERIFY", false),
		Workers:               envIntOr("LANDSAT_WORKERS", 1),
		HostRPS:               envFloatOr("LANDSAT_HOST_RPS", 0),
		Attempts:              envIntOr("LANDSAT_ATTEMPTS", 1),
		IdleTimeout:           envDurationOr("LANDSAT_IDLE_TIMEOUT", downloader.DefaultIdleTimeout),
	}
	return env
}

// AddFlags binds flags to the given flagset.
func (s *EnvSettings) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&s.Debug, "debug", s.Debug, "enable verbose output")
	fs.StringVarP(&s.CredentialsFile, "credentials", "u", s.CredentialsFile, "file with the archive account on the first line and an optional proxy on the second")
	fs.StringVar(&s.HistoryDriver, "history-driver", s.HistoryDriver, "where the product history is kept: memory or sql")
	fs.StringVar(&s.HistorySQLConnection, "history-sql-connection", s.HistorySQLConnection, "connection string of the sql history driver")
	fs.StringVar(&s.LoginURL, "login-url", s.LoginURL, "location of the archive login form")
	fs.StringVar(&s.DownloadURL, "download-url", s.DownloadURL, "prefix of product download URLs")
	fs.StringVar(&s.CAFile, "ca-file", s.CAFile, "verify the archive certificate using this CA bundle")
	fs.BoolVar(&s.InsecureSkipTLSVerify, "insecure-skip-tls-verify", s.InsecureSkipTLSVerify, "skip certificate verification of the archive")
	fs.IntVar(&s.Workers, "workers", s.Workers, "number of tiles processed at once")
	fs.Float64Var(&s.HostRPS, "host-rps", s.HostRPS, "maximum requests per second sent to one host, 0 for no limit")
	fs.IntVar(&s.Attempts, "attempts", s.Attempts, "tries of a transiently failing product within one run")
	fs.DurationVar(&s.IdleTimeout, "idle-timeout", s.IdleTimeout, "give up on a transfer after this long without data")
}

// Validate checks that the settings are usable.
func (s *EnvSettings) Validate() error {
	switch s.HistoryDriver {
	case HistoryDriverMemory:
	case HistoryDriverSQL:
		if s.HistorySQLConnection == "" {
			return errors.New("the sql history driver needs a connection string")
		}
	default:
		return errors.Errorf("unknown history driver %q, expected %s or %s", s.HistoryDriver, HistoryDriverMemory, HistoryDriverSQL)
	}
	if s.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if s.Attempts < 1 {
		return errors.New("attempts must be at least 1")
	}
	return nil
}

// EnvVars returns the settings as environment variables.
func (s *EnvSettings) EnvVars() map[string]string {
	return map[string]string{
		"LANDSAT_DEBUG":                         fmt.Sprint(s.Debug),
		"LANDSAT_CREDENTIALS":                   s.CredentialsFile,
		"LANDSAT_HISTORY_DRIVER":                s.HistoryDriver,
		"LANDSAT_HISTORY_SQL_CONNECTION_STRING": s.HistorySQLConnection,
		"LANDSAT_LOGIN_URL":                     s.LoginURL,
		"LANDSAT_DOWNLOAD_URL":                  s.DownloadURL,
		"LANDSAT_CA_FILE":                       s.CAFile,
		"LANDSAT_INSECURE_SKIP_TLS_VERIFY":      fmt.Sprint(s.InsecureSkipTLSVerify),
		"LANDSAT_WORKERS":                       strconv.Itoa(s.Workers),
		"LANDSAT_HOST_RPS":                      fmt.Sprint(s.HostRPS),
		"LANDSAT_ATTEMPTS":                      strconv.Itoa(s.Attempts),
		"LANDSAT_IDLE_TIMEOUT":                  s.IdleTimeout.String(),
	}
}

func envOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

func envBoolOr(name string, def bool) bool {
	if name == "" {
		return def
	}
	envVal := envOr(name, strconv.FormatBool(def))
	ret, err := strconv.ParseBool(envVal)
	if err != nil {
		return def
	}
	return ret
}

func envIntOr(name string, def int) int {
	if name == "" {
		return def
	}
	envVal := envOr(name, strconv.Itoa(def))
	ret, err := strconv.Atoi(envVal)
	if err != nil {
		return def
	}
	return ret
}

func envFloatOr(name string, def float64) float64 {
	ret, err := strconv.ParseFloat(envOr(name, ""), 64)
	if err != nil {
		return def
	}
	return ret
}

func envDurationOr(name string, def time.Duration) time.Duration {
	ret, err := time.ParseDuration(envOr(name, ""))
	if err != nil {
		return def
	}
	return ret
}
