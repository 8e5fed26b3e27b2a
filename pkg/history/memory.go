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
	"sort"
	"sync"
)

var _ Driver = (*Memory)(nil)

// MemoryDriverName is the string name of this driver.
const MemoryDriverName = "Memory"

// Memory is the in-memory driver implementation.
type Memory struct {
	sync.RWMutex
	records map[string]Record
}

// NewMemory initializes a new memory driver.
func NewMemory() *Memory {
	return &Memory{records: map[string]Record{}}
}

// Name returns the name of the driver.
func (mem *Memory) Name() string {
	return MemoryDriverName
}

// Get returns the record for the product or ErrRecordNotFound.
func (mem *Memory) Get(siteID int, productName string) (*Record, error) {
	mem.RLock()
	defer mem.RUnlock()
	rec, ok := mem.records[recordKey(siteID, productName)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &rec, nil
}

// Query returns the records of productName at every site.
func (mem *Memory) Query(productName string) ([]*Record, error) {
	mem.RLock()
	defer mem.RUnlock()
	var recs []*Record
	for _, rec := range mem.records {
		if rec.ProductName == productName {
			rec := rec
			recs = append(recs, &rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].SiteID < recs[j].SiteID })
	return recs, nil
}

// List returns the records of a site.
func (mem *Memory) List(siteID int) ([]*Record, error) {
	mem.RLock()
	defer mem.RUnlock()
	var recs []*Record
	for _, rec := range mem.records {
		if rec.SiteID == siteID {
			rec := rec
			recs = append(recs, &rec)
		}
	}
	sortRecords(recs)
	return recs, nil
}

// Put stores a copy of rec.
func (mem *Memory) Put(rec *Record) error {
	mem.Lock()
	defer mem.Unlock()
	mem.records[rec.Key()] = *rec
	return nil
}

func sortRecords(recs []*Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].AcquisitionDate.Equal(recs[j].AcquisitionDate) {
			return recs[i].AcquisitionDate.Before(recs[j].AcquisitionDate)
		}
		return recs[i].ProductName < recs[j].ProductName
	})
}
