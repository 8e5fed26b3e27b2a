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
	"time"
)

// Iterator walks the overpass dates of a tile inside a time window. It is
// lazy, finite and restartable.
type Iterator struct {
	first time.Time
	end   time.Time
	now   time.Time
	next  time.Time
}

// Enumerate returns the overpass dates of tile by sat from the first
// overpass at or after start, every RepeatCycle days, while the date is
// before end and not after now.
func Enumerate(tile Tile, sat Satellite, start, end, now time.Time) *Iterator {
	first := NextOverpass(start, tile.Path, sat)
	return &Iterator{first: first, end: end, now: now, next: first}
}

// Next returns the next date, or false once the window is exhausted.
func (it *Iterator) Next() (time.Time, bool) {
	d := it.next
	if !d.Before(it.end) || d.After(it.now) {
		return time.Time{}, false
	}
	it.next = d.AddDate(0, 0, RepeatCycle)
	return d, true
}

// Reset rewinds the iterator to the first overpass.
func (it *Iterator) Reset() {
	it.next = it.first
}

// All drains a fresh pass over the window.
func (it *Iterator) All() []time.Time {
	it.Reset()
	defer it.Reset()
	var dates []time.Time
	for d, ok := it.Next(); ok; d, ok = it.Next() {
		dates = append(dates, d)
	}
	return dates
}
