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

/*
Package archivetest provides a fake imagery archive for tests: a login form
guarded by an anti-forgery token, and a cookie protected download endpoint
serving product archives.
*/
package archivetest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const (
	// Account and Password are the credentials accepted by the server.
	Account  = "jdoe"
	Password = "s3cret"
	// Token is the anti-forgery token embedded in the login form.
	Token = "f00dcafe"

	cookieName  = "EROS_SSO_production"
	cookieValue = "session-ok"
)

const loginPage = `<!DOCTYPE html>
<html><body>
<form method="post" action="/login">
  <input type="text" name="username">
  <input type="password" name="password">
  <input type="hidden" name="csrf_token" value="%s">
</form>
</body></html>`

const notSignedIn = `<html><body>You must sign in as a registered user to download data or place orders for USGS EROS products</body></html>`

// Server is a fake archive. Products are keyed by product name.
type Server struct {
	*httptest.Server

	mu sync.Mutex
	// Products maps product names to archive contents.
	Products map[string][]byte
	// Declared overrides the Content-Length sent for a product. When it is
	// larger than the content the transfer is cut short.
	Declared map[string]int64
	// Status forces an HTTP status code for a product.
	Status map[string]int
	// OmitToken serves a login page without the anti-forgery input.
	OmitToken bool

	hits map[string]int
}

// NewServer starts a fake archive that is closed when the test ends.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		Products: map[string][]byte{},
		Declared: map[string]int64{},
		Status:   map[string]int{},
		hits:     map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// LoginURL is the location of the login form.
func (s *Server) LoginURL() string {
	return s.URL + "/login"
}

// DownloadBase is the prefix of product download URLs.
func (s *Server) DownloadBase() string {
	return s.URL + "/download"
}

// AddProduct registers a product archive.
func (s *Server) AddProduct(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Products[name] = data
}

// Hits returns how many download requests were made for a product.
func (s *Server) Hits(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[name]
}

// TotalHits returns the number of download requests made for any product.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/login" && r.Method == http.MethodGet:
		s.serveLoginPage(w)
	case r.URL.Path == "/login" && r.Method == http.MethodPost:
		s.serveLogin(w, r)
	case strings.HasPrefix(r.URL.Path, "/download/"):
		s.serveDownload(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveLoginPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if s.OmitToken {
		fmt.Fprint(w, "<html><body><form></form></body></html>")
		return
	}
	fmt.Fprintf(w, loginPage, Token)
}

func (s *Server) serveLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.PostForm.Get("csrf_token") != Token {
		fmt.Fprint(w, notSignedIn)
		return
	}
	if r.PostForm.Get("username") != Account || r.PostForm.Get("password") != Password {
		fmt.Fprint(w, "<html><body>Invalid username/password</body></html>")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: cookieValue, Path: "/"})
	fmt.Fprint(w, "<html><body>Welcome</body></html>")
}

// serveDownload answers /download/<dir>/<product>/STANDARD/EE.
func (s *Server) serveDownload(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/download/"), "/")
	if len(parts) < 2 {
		http.NotFound(w, r)
		return
	}
	name := parts[1]

	s.mu.Lock()
	s.hits[name]++
	data, found := s.Products[name]
	declared, hasDeclared := s.Declared[name]
	status := s.Status[name]
	s.mu.Unlock()

	if c, err := r.Cookie(cookieName); err != nil || c.Value != cookieValue {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, notSignedIn)
		return
	}
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if !found {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body>Download Not Found</body></html>")
		return
	}

	size := int64(len(data))
	if hasDeclared {
		size = declared
	}
	w.Header().Set("Content-Type", "application/x-gzip")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	if size < int64(len(data)) {
		data = data[:size]
	}
	_, _ = w.Write(data)
}
