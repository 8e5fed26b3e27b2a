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
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sen2agri/landsat-downloader/internal/archivetest"
	"github.com/sen2agri/landsat-downloader/internal/logging"
	"github.com/sen2agri/landsat-downloader/pkg/archive"
	"github.com/sen2agri/landsat-downloader/pkg/credentials"
	"github.com/sen2agri/landsat-downloader/pkg/history"
	"github.com/sen2agri/landsat-downloader/pkg/session"
)

const (
	siteID  = 7
	product = "LC81960302016103LGN00"
)

var acquired = time.Date(2016, 4, 12, 0, 0, 0, 0, time.UTC)

type fixture struct {
	srv   *archivetest.Server
	sess  *session.Session
	store *history.Store
	dir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := archivetest.NewServer(t)
	creds := &credentials.Credentials{Account: archivetest.Account, Password: archivetest.Password}
	sess, err := session.Establish(context.Background(), creds,
		session.WithLoginURL(srv.LoginURL()),
		session.WithLogger(logging.Discard()))
	require.NoError(t, err)
	return &fixture{
		srv:   srv,
		sess:  sess,
		store: history.NewStore(history.NewMemory()),
		dir:   t.TempDir(),
	}
}

func (f *fixture) task(name string) Task {
	return Task{
		URL:             f.srv.DownloadBase() + "/4923/" + name + "/STANDARD/EE",
		ProductName:     name,
		AcquisitionDate: acquired,
		DestDir:         f.dir,
		SiteID:          siteID,
		MaxRetries:      3,
	}
}

func (f *fixture) downloader(opts ...Option) *Downloader {
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return New(f.store, archive.NewUnpacker(nil, logging.Discard()), opts...)
}

func (f *fixture) record(t *testing.T, name string) *history.Record {
	t.Helper()
	rec, err := f.store.Lookup(siteID, name)
	require.NoError(t, err)
	return rec
}

func TestFetchDownloaded(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProduct(product, archivetest.Product(t, product, 10))

	out := f.downloader().Fetch(context.Background(), f.sess, f.task(product))
	require.Equal(t, Downloaded, out.Kind, out.Error())
	assert.True(t, out.Success())
	assert.Equal(t, int64(len(f.srv.Products[product])), out.Bytes)

	rec := f.record(t, product)
	assert.Equal(t, history.Downloaded, rec.Status)
	assert.Equal(t, filepath.Join(f.dir, product), rec.LocalPath)
	assert.Equal(t, acquired, rec.AcquisitionDate)
	assert.Equal(t, 0, rec.Retries)

	assert.FileExists(t, filepath.Join(f.dir, product, product+"_B1.TIF"))
	assert.NoFileExists(t, filepath.Join(f.dir, product+".tgz"))
	require.NotNil(t, out.Unpacked)
	assert.Len(t, out.Unpacked.Bands, 2)
}

func TestFetchSmallChunks(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProduct(product, archivetest.Product(t, product, 10))

	var progressOut bytes.Buffer
	out := f.downloader(WithChunkSize(4096), WithProgress(&progressOut)).Fetch(context.Background(), f.sess, f.task(product))
	require.Equal(t, Downloaded, out.Kind, out.Error())
	assert.Contains(t, progressOut.String(), "100%")
}

func TestFetchUndersized(t *testing.T) {
	f := newFixture(t)
	data := make([]byte, 40000)
	_, _ = rand.Read(data)
	f.srv.AddProduct(product, data)

	out := f.downloader().Fetch(context.Background(), f.sess, f.task(product))
	assert.Equal(t, PermanentMiss, out.Kind)
	assert.False(t, out.Retryable())
	assert.NoFileExists(t, filepath.Join(f.dir, product+".tgz"))
	assert.False(t, f.store.Exists(product))
}

func TestFetchTruncated(t *testing.T) {
	f := newFixture(t)
	data := archivetest.Product(t, product, 10)
	f.srv.AddProduct(product, data)
	f.srv.Declared[product] = int64(len(data) + 1000)

	out := f.downloader().Fetch(context.Background(), f.sess, f.task(product))
	assert.Equal(t, Integrity, out.Kind, out.Error())
	assert.False(t, out.Success())

	rec := f.record(t, product)
	assert.Equal(t, history.Failed, rec.Status)
	assert.Equal(t, 1, rec.Retries)

	fi, err := os.Stat(filepath.Join(f.dir, product+".tgz"))
	require.NoError(t, err, "the partial archive is kept")
	assert.Equal(t, int64(len(data)), fi.Size())
	assert.NoDirExists(t, filepath.Join(f.dir, product))
}

func TestFetchCorruptArchive(t *testing.T) {
	f := newFixture(t)
	data := archivetest.Product(t, product, 10)
	f.srv.AddProduct(product, data)
	f.srv.Declared[product] = int64(len(data) - 1000)

	out := f.downloader().Fetch(context.Background(), f.sess, f.task(product))
	assert.Equal(t, Extraction, out.Kind, out.Error())
	assert.Equal(t, history.Failed, f.record(t, product).Status)
	assert.NoDirExists(t, filepath.Join(f.dir, product))
	assert.FileExists(t, filepath.Join(f.dir, product+".tgz"))
}

func TestFetchStatusCodes(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProduct(product, archivetest.Product(t, product, 10))

	f.srv.Status[product] = http.StatusInternalServerError
	out := f.downloader().Fetch(context.Background(), f.sess, f.task(product))
	assert.Equal(t, PermanentMiss, out.Kind)
	assert.Equal(t, http.StatusInternalServerError, out.StatusCode)

	f.srv.Status[product] = http.StatusServiceUnavailable
	out = f.downloader().Fetch(context.Background(), f.sess, f.task(product))
	assert.Equal(t, Transient, out.Kind)
	assert.True(t, out.Retryable())
	assert.Equal(t, http.StatusServiceUnavailable, out.StatusCode)

	assert.False(t, f.store.Exists(product))
}

func TestFetchNotFound(t *testing.T) {
	f := newFixture(t)

	out := f.downloader().Fetch(context.Background(), f.sess, f.task(product))
	assert.Equal(t, PermanentMiss, out.Kind)
	assert.Equal(t, "download not found", out.Reason)
	assert.NoFileExists(t, filepath.Join(f.dir, product+".tgz"))
}

func TestFetchSessionExpired(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProduct(product, archivetest.Product(t, product, 10))

	out := f.downloader().Fetch(context.Background(), plainGetter(), f.task(product))
	assert.Equal(t, Transient, out.Kind)
	assert.Equal(t, "session expired", out.Reason)
	assert.True(t, out.Retryable())
	assert.NoFileExists(t, filepath.Join(f.dir, product+".tgz"))
	assert.False(t, f.store.Exists(product))
}

func TestFetchAlreadyPresent(t *testing.T) {
	f := newFixture(t)
	data := archivetest.Product(t, product, 10)
	f.srv.AddProduct(product, data)
	archivetest.WriteFile(t, filepath.Join(f.dir, product+".tgz"), data)

	out := f.downloader().Fetch(context.Background(), f.sess, f.task(product))
	require.Equal(t, AlreadyPresent, out.Kind, out.Error())
	assert.True(t, out.Success())
	assert.Equal(t, history.Downloaded, f.record(t, product).Status)
	assert.DirExists(t, filepath.Join(f.dir, product))
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProduct(product, archivetest.Product(t, product, 10))
	f.srv.Status[product] = http.StatusBadGateway

	d := f.downloader(WithAttempts(3), WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }))
	out := d.Fetch(context.Background(), f.sess, f.task(product))
	assert.Equal(t, Transient, out.Kind)
	assert.Equal(t, 3, f.srv.Hits(product))
}

type getterFunc func(ctx context.Context, href string) (*http.Response, error)

func (fn getterFunc) Get(ctx context.Context, href string) (*http.Response, error) {
	return fn(ctx, href)
}

func plainGetter() Getter {
	return getterFunc(func(ctx context.Context, href string) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
		if err != nil {
			return nil, err
		}
		return http.DefaultClient.Do(req)
	})
}

func TestFetchIdleTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-gzip")
		w.Header().Set("Content-Length", strconv.Itoa(100000))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(make([]byte, 1000))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	store := history.NewStore(history.NewMemory())
	dir := t.TempDir()
	d := New(store, archive.NewUnpacker(nil, logging.Discard()),
		WithLogger(logging.Discard()), WithIdleTimeout(200*time.Millisecond))

	task := Task{URL: srv.URL + "/" + product, ProductName: product, AcquisitionDate: acquired, DestDir: dir, SiteID: siteID, MaxRetries: 2}
	out := d.Fetch(context.Background(), plainGetter(), task)
	assert.Equal(t, Transient, out.Kind)
	assert.Equal(t, "timeout", out.Reason)
	assert.Equal(t, int64(1000), out.Bytes)

	rec, err := store.Lookup(siteID, product)
	require.NoError(t, err)
	assert.Equal(t, history.Failed, rec.Status)
	assert.FileExists(t, filepath.Join(dir, product+".tgz"))
}

func TestFetchInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := history.NewStore(history.NewMemory())
	d := New(store, archive.NewUnpacker(nil, logging.Discard()), WithLogger(logging.Discard()))
	task := Task{URL: "http://127.0.0.1:1/" + product, ProductName: product, DestDir: t.TempDir(), SiteID: siteID}

	out := d.Fetch(ctx, plainGetter(), task)
	assert.Equal(t, Transient, out.Kind)
	assert.Equal(t, "interrupted", out.Reason)
}

// cancelAfter cancels the request once limit bytes of the body were read.
type cancelAfter struct {
	io.ReadCloser
	limit  int
	read   int
	cancel context.CancelFunc
}

func (c *cancelAfter) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	c.read += n
	if c.read >= c.limit {
		c.cancel()
	}
	return n, err
}

func TestFetchInterruptedMidTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-gzip")
		w.Header().Set("Content-Length", strconv.Itoa(200000))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(make([]byte, 60000))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := getterFunc(func(ctx context.Context, href string) (*http.Response, error) {
		resp, err := plainGetter().Get(ctx, href)
		if err != nil {
			return nil, err
		}
		resp.Body = &cancelAfter{ReadCloser: resp.Body, limit: 60000, cancel: cancel}
		return resp, nil
	})

	store := history.NewStore(history.NewMemory())
	dir := t.TempDir()
	d := New(store, archive.NewUnpacker(nil, logging.Discard()), WithLogger(logging.Discard()))

	task := Task{URL: srv.URL + "/" + product, ProductName: product, AcquisitionDate: acquired, DestDir: dir, SiteID: siteID, MaxRetries: 1}
	out := d.Fetch(ctx, g, task)
	assert.Equal(t, Transient, out.Kind)
	assert.Equal(t, "interrupted", out.Reason)

	rec, err := store.Lookup(siteID, product)
	require.NoError(t, err)
	assert.Equal(t, history.Downloading, rec.Status)
	assert.Zero(t, rec.Retries)
	assert.FileExists(t, filepath.Join(dir, product+".tgz"))

	decision, _, err := store.Eligible(siteID, product)
	require.NoError(t, err)
	assert.Equal(t, history.Fetch, decision)
}

func TestOutcomeError(t *testing.T) {
	out := Outcome{Kind: Transient, Reason: "timeout", Err: context.DeadlineExceeded}
	assert.Equal(t, "transient failure: timeout: context deadline exceeded", out.Error())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}
