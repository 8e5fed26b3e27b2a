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
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"

	// Import pq for postgres dialect
	_ "github.com/lib/pq"
)

var _ Driver = (*SQL)(nil)

// SQLDriverName is the string name of this driver.
const SQLDriverName = "SQL"

const postgreSQLDialect = "postgres"

const (
	sqlHistoryTableName = "downloader_history"

	sqlHistoryTableSiteIDColumn          = "site_id"
	sqlHistoryTableProductNameColumn     = "product_name"
	sqlHistoryTableStatusColumn          = "status"
	sqlHistoryTableAcquisitionDateColumn = "acquisition_date"
	sqlHistoryTableFullPathColumn        = "full_path"
	sqlHistoryTableRetriesColumn         = "no_of_retries"
	sqlHistoryTableMaxRetriesColumn      = "max_retries"
	sqlHistoryTableCreatedColumn         = "created_timestamp"
	sqlHistoryTableModifiedColumn        = "modified_timestamp"
)

var sqlHistoryColumns = []string{
	sqlHistoryTableSiteIDColumn,
	sqlHistoryTableProductNameColumn,
	sqlHistoryTableStatusColumn,
	sqlHistoryTableAcquisitionDateColumn,
	sqlHistoryTableFullPathColumn,
	sqlHistoryTableRetriesColumn,
	sqlHistoryTableMaxRetriesColumn,
	sqlHistoryTableCreatedColumn,
	sqlHistoryTableModifiedColumn,
}

// SQL is the Postgres driver implementation.
type SQL struct {
	db               *sqlx.DB
	statementBuilder sq.StatementBuilderType
	Log              logrus.FieldLogger
}

// historyRow is how a record is stored in the downloader_history table.
type historyRow struct {
	SiteID          int       `db:"site_id"`
	ProductName     string    `db:"product_name"`
	Status          string    `db:"status"`
	AcquisitionDate time.Time `db:"acquisition_date"`
	FullPath        string    `db:"full_path"`
	Retries         int       `db:"no_of_retries"`
	MaxRetries      int       `db:"max_retries"`
	CreatedAt       time.Time `db:"created_timestamp"`
	ModifiedAt      time.Time `db:"modified_timestamp"`
}

func (r *historyRow) record() (*Record, error) {
	status, err := ParseStatus(r.Status)
	if err != nil {
		return nil, err
	}
	return &Record{
		SiteID:          r.SiteID,
		ProductName:     r.ProductName,
		Status:          status,
		AcquisitionDate: r.AcquisitionDate,
		LocalPath:       r.FullPath,
		Retries:         r.Retries,
		MaxRetries:      r.MaxRetries,
		CreatedAt:       r.CreatedAt,
		ModifiedAt:      r.ModifiedAt,
	}, nil
}

// NewSQL connects to the Postgres database at connectionString and installs
// the history schema when missing.
func NewSQL(connectionString string, logger logrus.FieldLogger) (*SQL, error) {
	db, err := sqlx.Connect(postgreSQLDialect, connectionString)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to the history database")
	}

	driver := &SQL{
		db:               db,
		statementBuilder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		Log:              logger,
	}

	if err := driver.ensureDBSetup(); err != nil {
		return nil, errors.Wrap(err, "unable to set up the history schema")
	}
	return driver, nil
}

// Name returns the name of the driver.
func (s *SQL) Name() string {
	return SQLDriverName
}

// Close releases the database connection.
func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) ensureDBSetup() error {
	migrations := &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "init",
				Up: []string{
					`
						CREATE TABLE downloader_history (
							id SERIAL PRIMARY KEY,
							site_id INTEGER NOT NULL,
							product_name VARCHAR(512) NOT NULL,
							status TEXT NOT NULL,
							acquisition_date TIMESTAMPTZ NOT NULL,
							full_path TEXT NOT NULL,
							no_of_retries INTEGER NOT NULL DEFAULT 0,
							max_retries INTEGER NOT NULL DEFAULT 0,
							created_timestamp TIMESTAMPTZ NOT NULL,
							modified_timestamp TIMESTAMPTZ NOT NULL,
							UNIQUE (site_id, product_name)
						);
						CREATE INDEX ON downloader_history (product_name);
						CREATE INDEX ON downloader_history (status);
					`,
				},
				Down: []string{
					`
						DROP TABLE downloader_history;
					`,
				},
			},
		},
	}

	_, err := migrate.Exec(s.db.DB, postgreSQLDialect, migrations, migrate.Up)
	return err
}

// Get returns the record of a product at a site.
func (s *SQL) Get(siteID int, productName string) (*Record, error) {
	query, args, err := s.statementBuilder.
		Select(sqlHistoryColumns...).
		From(sqlHistoryTableName).
		Where(sq.Eq{sqlHistoryTableSiteIDColumn: siteID}).
		Where(sq.Eq{sqlHistoryTableProductNameColumn: productName}).
		ToSql()
	if err != nil {
		s.Log.Debugf("failed to build query: %v", err)
		return nil, err
	}

	var row historyRow
	if err := s.db.Get(&row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		s.Log.Debugf("got SQL error when getting %s: %v", productName, err)
		return nil, err
	}
	return row.record()
}

// Query returns the records of a product name at every site.
func (s *SQL) Query(productName string) ([]*Record, error) {
	query, args, err := s.statementBuilder.
		Select(sqlHistoryColumns...).
		From(sqlHistoryTableName).
		Where(sq.Eq{sqlHistoryTableProductNameColumn: productName}).
		OrderBy(sqlHistoryTableSiteIDColumn).
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.selectRecords(query, args)
}

// List returns the records of a site ordered by acquisition date.
func (s *SQL) List(siteID int) ([]*Record, error) {
	query, args, err := s.statementBuilder.
		Select(sqlHistoryColumns...).
		From(sqlHistoryTableName).
		Where(sq.Eq{sqlHistoryTableSiteIDColumn: siteID}).
		OrderBy(sqlHistoryTableAcquisitionDateColumn, sqlHistoryTableProductNameColumn).
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.selectRecords(query, args)
}

func (s *SQL) selectRecords(query string, args []interface{}) ([]*Record, error) {
	var rows []historyRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		s.Log.Debugf("failed to list history: %v", err)
		return nil, err
	}

	recs := make([]*Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].record()
		if err != nil {
			s.Log.Warnf("skipping history row of %s: %v", rows[i].ProductName, err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Put inserts the record, or updates the row of the same site and product.
func (s *SQL) Put(rec *Record) error {
	query, args, err := s.statementBuilder.
		Insert(sqlHistoryTableName).
		Columns(sqlHistoryColumns...).
		Values(
			rec.SiteID,
			rec.ProductName,
			rec.Status.String(),
			rec.AcquisitionDate,
			rec.LocalPath,
			rec.Retries,
			rec.MaxRetries,
			rec.CreatedAt,
			rec.ModifiedAt,
		).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		s.Log.Debugf("failed to store %s in SQL database: %v", rec.ProductName, err)
		return err
	}
	return nil
}

const upsertSuffix = "ON CONFLICT (site_id, product_name) DO UPDATE SET " +
	"status = EXCLUDED.status, " +
	"acquisition_date = EXCLUDED.acquisition_date, " +
	"full_path = EXCLUDED.full_path, " +
	"no_of_retries = EXCLUDED.no_of_retries, " +
	"max_retries = EXCLUDED.max_retries, " +
	"modified_timestamp = EXCLUDED.modified_timestamp"
