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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSite    = 7
	testProduct = "LC81960302016103LGN00"
	testPath    = "/data/site/LC81960302016103LGN00"
)

var testDate = time.Date(2016, time.April, 12, 0, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	s := NewStore(NewMemory())
	clock := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s
}

func TestUpsertLifecycle(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.Upsert(testSite, testProduct, Downloading, testDate, testPath, 3))
	rec, err := s.Lookup(testSite, testProduct)
	require.NoError(t, err)
	assert.Equal(t, Downloading, rec.Status)
	assert.Equal(t, 0, rec.Retries)
	assert.Equal(t, 3, rec.MaxRetries)
	assert.Equal(t, testPath, rec.LocalPath)
	assert.True(t, rec.AcquisitionDate.Equal(testDate))
	created := rec.CreatedAt

	require.NoError(t, s.Upsert(testSite, testProduct, Downloaded, testDate, testPath, 3))
	rec, err = s.Lookup(testSite, testProduct)
	require.NoError(t, err)
	assert.Equal(t, Downloaded, rec.Status)
	assert.Equal(t, created, rec.CreatedAt)
	assert.True(t, rec.ModifiedAt.After(created))

	// idempotent rewrite
	require.NoError(t, s.Upsert(testSite, testProduct, Downloaded, testDate, testPath, 3))

	// a downloaded product never goes back
	err = s.Upsert(testSite, testProduct, Downloading, testDate, testPath, 3)
	var tErr *TransitionError
	require.True(t, errors.As(err, &tErr))
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, Downloaded, tErr.From)
}

func TestUpsertRetryCounter(t *testing.T) {
	s := newTestStore()

	for attempt := 1; attempt <= 2; attempt++ {
		require.NoError(t, s.Upsert(testSite, testProduct, Downloading, testDate, testPath, 2))
		require.NoError(t, s.Upsert(testSite, testProduct, Failed, testDate, testPath, 2))
		// rewriting failed does not count as another attempt
		require.NoError(t, s.Upsert(testSite, testProduct, Failed, testDate, testPath, 2))

		rec, err := s.Lookup(testSite, testProduct)
		require.NoError(t, err)
		assert.Equal(t, attempt, rec.Retries)
	}

	decision, rec, err := s.Eligible(testSite, testProduct)
	require.NoError(t, err)
	assert.Equal(t, SkipExhausted, decision)
	assert.True(t, rec.Exhausted())

	// raising the ceiling makes it eligible again
	require.NoError(t, s.Upsert(testSite, testProduct, Failed, testDate, testPath, 5))
	decision, _, err = s.Eligible(testSite, testProduct)
	require.NoError(t, err)
	assert.Equal(t, Fetch, decision)
}

func TestUpsertRejectsTerminalWithoutAttempt(t *testing.T) {
	s := newTestStore()
	err := s.Upsert(testSite, testProduct, Downloaded, testDate, testPath, 3)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, s.Exists(testProduct))
}

func TestExists(t *testing.T) {
	s := newTestStore()
	assert.False(t, s.Exists(testProduct))

	require.NoError(t, s.Upsert(testSite, testProduct, Downloading, testDate, testPath, 3))
	require.NoError(t, s.Upsert(testSite, testProduct, Failed, testDate, testPath, 3))

	// failed products are tracked too
	assert.True(t, s.Exists(testProduct))
	assert.False(t, s.Exists("LC81960302016119LGN00"))
}

func TestEligible(t *testing.T) {
	s := newTestStore()

	decision, rec, err := s.Eligible(testSite, testProduct)
	require.NoError(t, err)
	assert.Equal(t, Fetch, decision)
	assert.Nil(t, rec)

	require.NoError(t, s.Upsert(testSite, testProduct, Downloading, testDate, testPath, 3))
	decision, _, err = s.Eligible(testSite, testProduct)
	require.NoError(t, err)
	assert.Equal(t, Fetch, decision, "interrupted transfers are retried")

	require.NoError(t, s.Upsert(testSite, testProduct, Failed, testDate, testPath, 3))
	decision, _, err = s.Eligible(testSite, testProduct)
	require.NoError(t, err)
	assert.Equal(t, Fetch, decision, "failed products with retries left are retried")

	require.NoError(t, s.Upsert(testSite, testProduct, Downloading, testDate, testPath, 3))
	require.NoError(t, s.Upsert(testSite, testProduct, Downloaded, testDate, testPath, 3))
	decision, rec, err = s.Eligible(testSite, testProduct)
	require.NoError(t, err)
	assert.Equal(t, SkipDownloaded, decision)
	assert.Equal(t, testPath, rec.LocalPath)

	// same product at another site is independent
	decision, _, err = s.Eligible(testSite+1, testProduct)
	require.NoError(t, err)
	assert.Equal(t, Fetch, decision)
}

func TestList(t *testing.T) {
	s := newTestStore()
	later := testDate.AddDate(0, 0, 16)
	require.NoError(t, s.Upsert(testSite, "LC81960302016119LGN00", Downloading, later, testPath, 3))
	require.NoError(t, s.Upsert(testSite, testProduct, Downloading, testDate, testPath, 3))
	require.NoError(t, s.Upsert(testSite+1, testProduct, Downloading, testDate, testPath, 3))

	recs, err := s.List(testSite)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, testProduct, recs[0].ProductName)
	assert.Equal(t, "LC81960302016119LGN00", recs[1].ProductName)
}

type brokenDriver struct{ *Memory }

func (brokenDriver) Get(int, string) (*Record, error) { return nil, errors.New("connection reset") }

func TestStoreDriverErrors(t *testing.T) {
	s := NewStore(brokenDriver{NewMemory()})

	err := s.Upsert(testSite, testProduct, Downloading, testDate, testPath, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	_, _, err = s.Eligible(testSite, testProduct)
	assert.Error(t, err)
}
