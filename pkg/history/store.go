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
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Decision is the verdict of the ledger on whether a product is fetched.
type Decision int

const (
	// Fetch means the product has to be (re)downloaded.
	Fetch Decision = iota
	// SkipDownloaded means the product was already downloaded.
	SkipDownloaded
	// SkipExhausted means every allowed attempt of the product failed.
	SkipExhausted
)

func (d Decision) String() string {
	switch d {
	case Fetch:
		return "fetch"
	case SkipDownloaded:
		return "skip (downloaded)"
	case SkipExhausted:
		return "skip (retries exhausted)"
	}
	return "invalid"
}

// Store is the product ledger used by the downloader. It is safe for
// concurrent use; writes of a product are visible to every later read.
type Store struct {
	driver Driver
	mu     sync.Mutex
	now    func() time.Time
}

// NewStore creates a ledger persisting through d.
func NewStore(d Driver) *Store {
	return &Store{driver: d, now: time.Now}
}

// Name returns the name of the underlying driver.
func (s *Store) Name() string {
	return s.driver.Name()
}

// Upsert writes the current state of a product. Writing the same state
// twice is harmless. The retry counter survives every call and grows by one
// each time the product enters Failed.
func (s *Store) Upsert(siteID int, productName string, status Status, acquired time.Time, localPath string, maxRetries int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	rec, err := s.driver.Get(siteID, productName)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		rec = &Record{SiteID: siteID, ProductName: productName, Status: Unknown, CreatedAt: now}
	case err != nil:
		return errors.Wrapf(err, "unable to read history of %s", productName)
	}

	if !CanTransition(rec.Status, status) {
		return &TransitionError{ProductName: productName, From: rec.Status, To: status}
	}
	if status == Failed && rec.Status != Failed {
		rec.Retries++
	}
	rec.Status = status
	rec.AcquisitionDate = acquired.UTC()
	rec.LocalPath = localPath
	rec.MaxRetries = maxRetries
	rec.ModifiedAt = now

	if err := s.driver.Put(rec); err != nil {
		return errors.Wrapf(err, "unable to record %s as %s", productName, status)
	}
	return nil
}

// Exists reports whether a product is tracked at any site, whatever its
// status.
func (s *Store) Exists(productName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.driver.Query(productName)
	return err == nil && len(recs) > 0
}

// Lookup returns the full record of a product, or ErrRecordNotFound.
func (s *Store) Lookup(siteID int, productName string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver.Get(siteID, productName)
}

// List returns every record of a site.
func (s *Store) List(siteID int) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver.List(siteID)
}

// Eligible decides whether a product is fetched. Products never seen, left
// in Downloading by an interrupted run, or Failed with retries left are
// fetched. The record is returned when one exists.
func (s *Store) Eligible(siteID int, productName string) (Decision, *Record, error) {
	rec, err := s.Lookup(siteID, productName)
	if errors.Is(err, ErrRecordNotFound) {
		return Fetch, nil, nil
	}
	if err != nil {
		return Fetch, nil, err
	}

	switch rec.Status {
	case Downloaded:
		return SkipDownloaded, rec, nil
	case Failed:
		if rec.Exhausted() {
			return SkipExhausted, rec, nil
		}
		return Fetch, rec, nil
	case Unknown, Pending, Downloading:
		return Fetch, rec, nil
	}
	return Fetch, rec, nil
}
