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

package history

import (
	"fmt"
	"time"
)

// Record is the persisted state of one product at one site.
type Record struct {
	SiteID          int
	ProductName     string
	Status          Status
	AcquisitionDate time.Time
	// LocalPath is the directory the product is extracted to.
	LocalPath  string
	Retries    int
	MaxRetries int
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Key identifies the record within a driver.
func (r *Record) Key() string {
	return recordKey(r.SiteID, r.ProductName)
}

// Exhausted reports whether a failed record used up its retries.
func (r *Record) Exhausted() bool {
	return r.Status == Failed && r.Retries >= r.MaxRetries
}

func recordKey(siteID int, productName string) string {
	return fmt.Sprintf("%d/%s", siteID, productName)
}
