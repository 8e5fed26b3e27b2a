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
Package siteconfig loads the description of a download site: the tiles it
covers, the season to fetch and where products are written.

Sites are YAML, JSON or TOML documents validated against an embedded JSON
schema.
*/
package siteconfig // import "github.com/sen2agri/landsat-downloader/pkg/siteconfig"

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/sen2agri/landsat-downloader/pkg/overpass"
)

// Defaults applied to fields a site file leaves out.
const (
	DefaultSatellite  = "LC8"
	DefaultRemoteDir  = "4923"
	DefaultMaxRetries = 3
)

const dateLayout = "2006-01-02"

// Date is a calendar day. It is written as YYYY-MM-DD.
type Date struct {
	time.Time
}

// ParseDate reads a YYYY-MM-DD day. Full RFC 3339 timestamps are accepted
// and truncated to their day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		var rfcErr error
		if t, rfcErr = time.Parse(time.RFC3339, s); rfcErr != nil {
			return Date{}, errors.Errorf("invalid date %q, expected YYYY-MM-DD", s)
		}
	}
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Site describes one download site.
type Site struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
	// Tiles are path/row identifiers (pppRRR). Malformed tiles are skipped
	// when downloading, not rejected here.
	Tiles       []string `json:"tiles"`
	SeasonStart Date     `json:"seasonStart"`
	SeasonEnd   Date     `json:"seasonEnd"`
	// WriteDir receives archives, extracted products and the run log.
	WriteDir  string   `json:"writeDir"`
	Satellite string   `json:"satellite,omitempty"`
	Stations  []string `json:"stations,omitempty"`
	RemoteDir string   `json:"remoteDir,omitempty"`
	// MaxRetries is how many failed attempts a product is allowed.
	MaxRetries *int `json:"maxRetries,omitempty"`
	// CloudLimit removes extracted products cloudier than this percentage.
	// Zero keeps every product.
	CloudLimit float64 `json:"cloudLimit,omitempty"`
	// FixCommand is run over the band files of every extracted product.
	FixCommand string `json:"fixCommand,omitempty"`
}

// Retries returns the retry ceiling of the site.
func (s *Site) Retries() int {
	if s.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *s.MaxRetries
}

// Sat returns the satellite the site downloads from.
func (s *Site) Sat() overpass.Satellite {
	sat, err := overpass.ParseSatellite(s.Satellite)
	if err != nil {
		return overpass.LC8
	}
	return sat
}

func (s *Site) applyDefaults() {
	if s.Satellite == "" {
		s.Satellite = DefaultSatellite
	}
	if len(s.Stations) == 0 {
		s.Stations = []string{overpass.DefaultStation}
	}
	if s.RemoteDir == "" {
		s.RemoteDir = DefaultRemoteDir
	}
}

// Validate checks the site beyond what the schema expresses.
func (s *Site) Validate() error {
	if s.WriteDir == "" {
		return errors.New("writeDir is required")
	}
	if len(s.Tiles) == 0 {
		return errors.New("at least one tile is required")
	}
	if s.SeasonStart.IsZero() || s.SeasonEnd.IsZero() {
		return errors.New("seasonStart and seasonEnd are required")
	}
	if !s.SeasonEnd.After(s.SeasonStart.Time) {
		return errors.Errorf("season end %s is not after season start %s", s.SeasonEnd, s.SeasonStart)
	}
	if _, err := overpass.ParseSatellite(s.Satellite); err != nil {
		return err
	}
	if s.Retries() < 0 {
		return errors.New("maxRetries must not be negative")
	}
	return nil
}
