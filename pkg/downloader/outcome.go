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
	"fmt"
	"strings"

	"github.com/sen2agri/landsat-downloader/pkg/archive"
)

// Kind classifies the result of a fetch.
type Kind int

const (
	// Downloaded means the product was transferred and unpacked.
	Downloaded Kind = iota
	// AlreadyPresent means a complete archive was already on disk and was
	// unpacked without a transfer.
	AlreadyPresent
	// PermanentMiss means the archive does not hold the product. Trying
	// again will not help.
	PermanentMiss
	// Transient means the transfer failed for a reason that may go away:
	// a timeout, a network error or an unexpected status code.
	Transient
	// Integrity means fewer or more bytes than declared were received.
	Integrity
	// Extraction means the archive could not be unpacked.
	Extraction
	// History means the product history could not be written.
	History
)

var kindNames = map[Kind]string{
	Downloaded:     "downloaded",
	AlreadyPresent: "already present",
	PermanentMiss:  "permanent miss",
	Transient:      "transient failure",
	Integrity:      "integrity failure",
	Extraction:     "extraction failure",
	History:        "history failure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is the result of fetching one product.
type Outcome struct {
	Kind Kind
	// Reason is a short human readable explanation.
	Reason string
	// StatusCode is the HTTP status of the download response, when one was
	// received.
	StatusCode int
	// Bytes is the number of bytes written to the archive.
	Bytes int64
	// Err is the underlying error, if any.
	Err error
	// Warnings are degradations of a successful fetch.
	Warnings []string
	// Unpacked describes the extracted product of a successful fetch.
	Unpacked *archive.Result
}

// Success reports whether the product is available locally.
func (o Outcome) Success() bool {
	return o.Kind == Downloaded || o.Kind == AlreadyPresent
}

// Retryable reports whether fetching the product again may succeed.
func (o Outcome) Retryable() bool {
	return o.Kind == Transient
}

func (o Outcome) Error() string {
	var b strings.Builder
	b.WriteString(o.Kind.String())
	if o.Reason != "" {
		b.WriteString(": ")
		b.WriteString(o.Reason)
	}
	if o.Err != nil {
		b.WriteString(": ")
		b.WriteString(o.Err.Error())
	}
	return b.String()
}
