// MeterDB holds the telemetry readings of all collector daemons. Each
// daemon owns a distinct table but shares the database file; write
// contention is left to SQLite and handled by retrying on a locked
// database. Any other service may read from it.
package meterdb

import (
	"database/sql"
	"embed"
	"log"
	"sync"

	"github.com/NotCoffee418/dbmigrator"
	"github.com/mbruggen/homeflux/pkg/pathing"

	_ "modernc.org/sqlite"
)

var (
	db   *sql.DB
	once sync.Once
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Open returns the shared database handle, creating the file and applying
// pending migrations on first use. A database that cannot be opened is
// fatal; none of the daemons can do anything without it.
func Open() *sql.DB {
	once.Do(func() {
		var err error
		db, err = sql.Open("sqlite", pathing.GetMeterDbPath())
		if err != nil {
			log.Fatal(err)
		}
		if err = db.Ping(); err != nil {
			log.Fatal(err)
		}

		dbmigrator.SetDatabaseType(dbmigrator.SQLite)
		<-dbmigrator.MigrateUpCh(db, migrationFS, "migrations")
	})
	return db
}
