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
	"testing"
)

func TestMemoryName(t *testing.T) {
	mem := NewMemory()
	if mem.Name() != MemoryDriverName {
		t.Errorf("Expected name to be %s, got %s", MemoryDriverName, mem.Name())
	}
}

func TestMemoryPutCopies(t *testing.T) {
	mem := NewMemory()
	rec := &Record{SiteID: testSite, ProductName: testProduct, Status: Downloading}
	if err := mem.Put(rec); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}

	rec.Status = Failed
	got, err := mem.Get(testSite, testProduct)
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if got.Status != Downloading {
		t.Errorf("Expected stored record to be unaffected, got status %s", got.Status)
	}

	got.Status = Failed
	again, _ := mem.Get(testSite, testProduct)
	if again.Status != Downloading {
		t.Errorf("Expected returned record to be a copy, got status %s", again.Status)
	}
}

func TestMemoryQuery(t *testing.T) {
	mem := NewMemory()
	for _, site := range []int{3, 1, 2} {
		if err := mem.Put(&Record{SiteID: site, ProductName: testProduct}); err != nil {
			t.Fatal(err)
		}
	}
	if err := mem.Put(&Record{SiteID: 1, ProductName: "other"}); err != nil {
		t.Fatal(err)
	}

	recs, err := mem.Query(testProduct)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(recs))
	}
	for i, rec := range recs {
		if rec.SiteID != i+1 {
			t.Errorf("Expected records ordered by site, got %d at %d", rec.SiteID, i)
		}
	}

	if _, err := mem.Get(9, testProduct); err != ErrRecordNotFound {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}
