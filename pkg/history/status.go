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
	"github.com/pkg/errors"
)

// Status is the download state of a product.
type Status int

const (
	// Unknown is the status of a product that has no record.
	Unknown Status = iota
	// Pending marks a product that is known but not yet attempted.
	Pending
	// Downloading marks a transfer in progress, or one interrupted before
	// reaching a terminal status.
	Downloading
	// Downloaded marks a product transferred, verified and extracted.
	Downloaded
	// Failed marks a product whose last attempt failed.
	Failed
)

var statusNames = map[Status]string{
	Unknown:     "unknown",
	Pending:     "pending",
	Downloading: "downloading",
	Downloaded:  "downloaded",
	Failed:      "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "invalid"
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return Unknown, errors.Errorf("unknown status %q", name)
}

// Terminal reports whether s ends an attempt cycle.
func (s Status) Terminal() bool {
	switch s {
	case Downloaded, Failed:
		return true
	case Unknown, Pending, Downloading:
		return false
	}
	return false
}

// CanTransition reports whether a record may move from one status to the
// other. Rewriting the current status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return to != Unknown
	}
	switch from {
	case Unknown:
		return to == Pending || to == Downloading
	case Pending:
		return to == Downloading
	case Downloading:
		return to == Downloaded || to == Failed
	case Failed:
		return to == Downloading
	case Downloaded:
		return false
	}
	return false
}
