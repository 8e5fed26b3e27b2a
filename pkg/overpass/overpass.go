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
Package overpass enumerates the acquisition dates at which a satellite
flies over a tile of the WRS-2 grid, and the candidate product names the
archive may catalogue each acquisition under.
*/
package overpass // import "github.com/sen2agri/landsat-downloader/pkg/overpass"

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// RepeatCycle is the number of days between two overpasses of a path.
const RepeatCycle = 16

const (
	cycleDayPath1     = 5
	cycleDayIncrement = 7
	// paths at or beyond the antimeridian are imaged one day later
	dateLinePath = 98
)

// ErrInvalidTile is returned for identifiers that are not six digits.
var ErrInvalidTile = errors.New("tile must be 6 digits: ppprrr, where ppp = path and rrr = row")

// Satellite identifies a Landsat mission by its product name prefix.
type Satellite string

// Supported satellites.
const (
	LT5 Satellite = "LT5"
	LE7 Satellite = "LE7"
	LC8 Satellite = "LC8"
)

var epochs = map[Satellite]time.Time{
	LT5: time.Date(1985, time.May, 4, 0, 0, 0, 0, time.UTC),
	LE7: time.Date(1999, time.January, 11, 0, 0, 0, 0, time.UTC),
	LC8: time.Date(2013, time.May, 1, 0, 0, 0, 0, time.UTC),
}

// ParseSatellite validates a satellite name.
func ParseSatellite(name string) (Satellite, error) {
	s := Satellite(name)
	if _, ok := epochs[s]; !ok {
		return "", errors.Errorf("unknown satellite %q, expected one of LT5, LE7, LC8", name)
	}
	return s, nil
}

// Epoch is the reference date of the satellite's cycle.
func (s Satellite) Epoch() time.Time {
	return epochs[s]
}

// Tile is a WRS-2 path/row pair.
type Tile struct {
	Path int
	Row  int
}

// ParseTile decodes a "ppprrr" identifier.
func ParseTile(id string) (Tile, error) {
	if len(id) != 6 {
		return Tile{}, errors.Wrapf(ErrInvalidTile, "got %q", id)
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return Tile{}, errors.Wrapf(ErrInvalidTile, "got %q", id)
		}
	}
	path, _ := strconv.Atoi(id[0:3])
	row, _ := strconv.Atoi(id[3:6])
	return Tile{Path: path, Row: row}, nil
}

func (t Tile) String() string {
	return fmt.Sprintf("%03d%03d", t.Path, t.Row)
}

// CycleDay is the day within the repeat cycle on which path is imaged.
func CycleDay(path int) int {
	day := (cycleDayPath1 + cycleDayIncrement*(path-1)) % RepeatCycle
	if day < 0 {
		day += RepeatCycle
	}
	if path >= dateLinePath {
		day++
	}
	return day
}

// NextOverpass returns the first overpass of path by sat at or after date.
func NextOverpass(date time.Time, path int, sat Satellite) time.Time {
	date = truncateDay(date)
	days := int(date.Sub(sat.Epoch()).Hours() / 24)
	offset := mod(CycleDay(path)-days, RepeatCycle)
	return date.AddDate(0, 0, offset)
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
