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

package downloader

import (
	"path/filepath"
	"time"

	"github.com/sen2agri/landsat-downloader/pkg/archive"
)

// Task describes one product to fetch.
type Task struct {
	// URL is the remote location of the product archive.
	URL         string
	ProductName string
	// AcquisitionDate is recorded in the product history.
	AcquisitionDate time.Time
	// DestDir receives the archive and the extracted product directory.
	DestDir    string
	SiteID     int
	MaxRetries int
}

// ArchivePath is where the archive is written.
func (t Task) ArchivePath() string {
	return archive.ArchivePath(t.DestDir, t.ProductName)
}

// ExtractionPath is the directory the product is unpacked to.
func (t Task) ExtractionPath() string {
	return filepath.Join(t.DestDir, t.ProductName)
}
