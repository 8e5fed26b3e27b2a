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

package action

// TileReport summarises the candidates of one tile.
type TileReport struct {
	Tile string
	// Invalid is set when the tile identifier could not be parsed.
	Invalid bool
	// Downloaded lists the products fetched during the run.
	Downloaded []string
	// Skipped counts products already downloaded or out of retries.
	Skipped int
	// Restored counts downloaded products whose extraction was rebuilt.
	Restored int
	// Missing counts candidates the archive does not hold.
	Missing int
	// Failed counts candidates that failed and may be retried.
	Failed int
}

// Report summarises a download run.
type Report struct {
	SiteID int
	Tiles  []*TileReport
}

// Downloaded lists every product fetched during the run, in tile order.
func (r *Report) Downloaded() []string {
	var names []string
	for _, t := range r.Tiles {
		names = append(names, t.Downloaded...)
	}
	return names
}
