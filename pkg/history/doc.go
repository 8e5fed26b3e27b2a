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
Package history keeps the durable per-product download ledger.

Every product the downloader touches gets a record keyed by site and product
name. The record tracks the download status, the acquisition date, where
the product was extracted and how many attempts failed. Records are written
through a Store, which enforces the allowed status transitions and keeps the
retry counter, on top of a Driver providing the actual persistence: an
in-memory map or a Postgres table.
*/
package history // import "github.com/sen2agri/landsat-downloader/pkg/history"
