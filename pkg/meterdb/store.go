package meterdb

import (
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/mbruggen/homeflux/pkg/types"
)

const (
	lockedRetries = 5
	lockedSleepLo = 30 * time.Second
	lockedSleepHi = 60 * time.Second
)

// Store queues finalized samples for one source table and commits them in a
// single transaction. Inserts use REPLACE conflict semantics keyed on
// sample_epoch, so re-running a window after gap recovery overwrites rather
// than errors.
type Store struct {
	db        *sql.DB
	table     string
	columns   []string
	insertSQL string
	queue     []types.Sample

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

// NewStore builds a store for one table. columns lists the metric fields in
// insert order; sample_time and sample_epoch are always the first two.
func NewStore(db *sql.DB, table string, columns []string) *Store {
	all := append([]string{"sample_time", "sample_epoch"}, columns...)
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(all)), ", ")
	return &Store{
		db:      db,
		table:   table,
		columns: columns,
		insertSQL: fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
			table, strings.Join(all, ", "), marks),
		sleep: time.Sleep,
	}
}

// Queue adds one finalized sample to the pending batch.
func (s *Store) Queue(smp types.Sample) {
	log.Printf("%s queue: %s %v", s.table, smp.SampleTime, smp.Fields)
	s.queue = append(s.queue, smp)
}

// Pending returns the number of queued samples.
func (s *Store) Pending() int {
	return len(s.queue)
}

// Insert commits the queued batch in one transaction. A locked database is
// retried after a random sleep; any other failure is returned to the caller
// and is expected to terminate the daemon.
func (s *Store) Insert() error {
	if len(s.queue) == 0 {
		return nil
	}
	var err error
	for attempt := 0; attempt < lockedRetries; attempt++ {
		if err = s.insertOnce(); err == nil {
			s.queue = s.queue[:0]
			return nil
		}
		if !isLocked(err) {
			return err
		}
		pause := lockedSleepLo + time.Duration(rand.Int63n(int64(lockedSleepHi-lockedSleepLo)))
		log.Printf("%s: database is locked, retrying in %s", s.table, pause.Round(time.Second))
		s.sleep(pause)
	}
	return fmt.Errorf("insert into %s kept hitting a locked database: %w", s.table, err)
}

func (s *Store) insertOnce() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.insertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, smp := range s.queue {
		args := make([]any, 0, len(s.columns)+2)
		args = append(args, smp.SampleTime, smp.SampleEpoch)
		for _, col := range s.columns {
			args = append(args, smp.Field(col, 0))
		}
		if _, err := stmt.Exec(args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LatestDatapoint returns the table's high-water mark. A table without rows
// returns the zero time and no error.
func (s *Store) LatestDatapoint() (time.Time, error) {
	var latest sql.NullString
	err := s.db.QueryRow(
		fmt.Sprintf("SELECT MAX(sample_time) FROM %s", s.table)).Scan(&latest)
	if err != nil {
		return time.Time{}, err
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return time.ParseInLocation(types.DTFormat, latest.String, time.Local)
}

// PruneBefore deletes raw rows older than the cutoff epoch.
func (s *Store) PruneBefore(epoch int64) error {
	_, err := s.db.Exec(
		fmt.Sprintf("DELETE FROM %s WHERE sample_epoch < ?", s.table), epoch)
	return err
}

func isLocked(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
