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

package overpass

import (
	"fmt"
	"time"
)

// Versions are the catalogue version suffixes tried for every acquisition.
var Versions = []string{"00", "01", "02"}

// DefaultStation is the ground station tried when none is configured.
const DefaultStation = "LGN"

// Candidate is one possible catalogue identity of an acquisition.
type Candidate struct {
	Satellite Satellite
	Tile      Tile
	Date      time.Time
	Station   string
	Version   string
}

// Candidates expands an acquisition date into every station and version
// permutation, stations first.
func Candidates(sat Satellite, tile Tile, date time.Time, stations []string) []Candidate {
	cands := make([]Candidate, 0, len(stations)*len(Versions))
	for _, station := range stations {
		for _, version := range Versions {
			cands = append(cands, Candidate{
				Satellite: sat,
				Tile:      tile,
				Date:      date,
				Station:   station,
				Version:   version,
			})
		}
	}
	return cands
}

// JulianDate renders the date as year and day of year, YYYYDDD.
func (c Candidate) JulianDate() string {
	return JulianDate(c.Date)
}

// ProductName is the catalogue name, e.g. LC81960302016103LGN00.
func (c Candidate) ProductName() string {
	return fmt.Sprintf("%s%s%s%s%s", c.Satellite, c.Tile, c.JulianDate(), c.Station, c.Version)
}

// URL is the download location of the candidate under base.
func (c Candidate) URL(base, remoteDir string) string {
	return fmt.Sprintf("%s/%s/%s/STANDARD/EE", base, remoteDir, c.ProductName())
}

// JulianDate renders t as YYYYDDD.
func JulianDate(t time.Time) string {
	return fmt.Sprintf("%04d%03d", t.Year(), t.YearDay())
}

// AcquisitionStamp renders t the way the history ledger expects it.
func AcquisitionStamp(t time.Time) string {
	return t.Format("20060102T000000")
}
