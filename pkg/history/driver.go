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

	"github.com/pkg/errors"
)

var (
	// ErrRecordNotFound indicates that no record exists for a product.
	ErrRecordNotFound = errors.New("history: record not found")
	// ErrInvalidTransition indicates a status change the ledger forbids.
	ErrInvalidTransition = errors.New("history: invalid status transition")
)

// TransitionError records the product and the rejected status change.
type TransitionError struct {
	ProductName string
	From, To    Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%q %s: %s -> %s", e.ProductName, ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Driver persists records.
//
// Get returns the record of a product at a site, or ErrRecordNotFound.
//
// Query returns every record of a product name, across sites.
//
// List returns every record of a site ordered by acquisition date.
//
// Put inserts the record or replaces the stored one with the same key.
type Driver interface {
	Name() string
	Get(siteID int, productName string) (*Record, error)
	Query(productName string) ([]*Record, error)
	List(siteID int) ([]*Record, error)
	Put(rec *Record) error
}
