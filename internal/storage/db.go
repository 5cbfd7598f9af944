package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cptspacemanspiff/shamu-power/internal/collector"
)

const schema = `
CREATE TABLE IF NOT EXISTS platform_sleep_samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	state TEXT NOT NULL,
	transitions INTEGER NOT NULL,
	residency_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_platform_sleep_ts ON platform_sleep_samples(timestamp);

CREATE TABLE IF NOT EXISTS voter_samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	state TEXT NOT NULL,
	voter TEXT NOT NULL,
	time_ms INTEGER NOT NULL,
	count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_voter_ts ON voter_samples(timestamp);

CREATE TABLE IF NOT EXISTS hint_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	hint TEXT NOT NULL,
	data TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_hint_ts ON hint_events(timestamp);
`

// HintEvent is one power hint received by the HAL.
type HintEvent struct {
	Timestamp int64  `json:"timestamp"`
	Hint      string `json:"hint"`
	Data      string `json:"data,omitempty"`
}

// DB wraps a SQLite database for power HAL history.
type DB struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// InsertPlatformSnapshot stores the sleep states and their voters collected at
// ts in a single transaction. A snapshot already stored at ts is replaced.
func (d *DB) InsertPlatformSnapshot(ts int64, states []collector.SleepState) error {
	if len(states) == 0 {
		return nil
	}
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	for _, table := range []string{"platform_sleep_samples", "voter_samples"} {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE timestamp = ?", table), ts); err != nil {
			tx.Rollback()
			return err
		}
	}
	stateStmt, err := tx.Prepare("INSERT INTO platform_sleep_samples (timestamp, state, transitions, residency_ms) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stateStmt.Close()
	voterStmt, err := tx.Prepare("INSERT INTO voter_samples (timestamp, state, voter, time_ms, count) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer voterStmt.Close()

	for _, s := range states {
		if _, err := stateStmt.Exec(ts, s.Name, int64(s.TotalTransitions), int64(s.ResidencyMsSinceBoot)); err != nil {
			tx.Rollback()
			return err
		}
		for _, v := range s.Voters {
			if _, err := voterStmt.Exec(ts, s.Name, v.Name, int64(v.TimeVotedMs), int64(v.TimesVotedCount)); err != nil {
				tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}

// LatestPlatformSnapshot returns the most recent snapshot, or nil if none was stored.
func (d *DB) LatestPlatformSnapshot() (*collector.PlatformSnapshot, error) {
	var ts int64
	err := d.db.QueryRow("SELECT timestamp FROM platform_sleep_samples ORDER BY timestamp DESC LIMIT 1").Scan(&ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snaps, err := d.PlatformSnapshotsInRange(ts, ts)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return &snaps[len(snaps)-1], nil
}

// PlatformSnapshotsInRange returns snapshots within the given time range,
// ordered by timestamp. States and voters keep their insertion order.
func (d *DB) PlatformSnapshotsInRange(from, to int64) ([]collector.PlatformSnapshot, error) {
	rows, err := d.db.Query(
		"SELECT timestamp, state, transitions, residency_ms FROM platform_sleep_samples WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp, id",
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []collector.PlatformSnapshot
	type stateKey struct {
		ts   int64
		name string
	}
	index := map[stateKey][2]int{}
	for rows.Next() {
		var ts, transitions, residency int64
		var name string
		if err := rows.Scan(&ts, &name, &transitions, &residency); err != nil {
			return nil, err
		}
		if len(snaps) == 0 || snaps[len(snaps)-1].Timestamp != ts {
			snaps = append(snaps, collector.PlatformSnapshot{Timestamp: ts})
		}
		snap := &snaps[len(snaps)-1]
		snap.States = append(snap.States, collector.SleepState{
			Name:                 name,
			TotalTransitions:     uint64(transitions),
			ResidencyMsSinceBoot: uint64(residency),
			Voters:               []collector.Voter{},
		})
		index[stateKey{ts, name}] = [2]int{len(snaps) - 1, len(snap.States) - 1}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return snaps, nil
	}

	voters, err := d.db.Query(
		"SELECT timestamp, state, voter, time_ms, count FROM voter_samples WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp, id",
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer voters.Close()
	for voters.Next() {
		var ts, timeMs, count int64
		var state, name string
		if err := voters.Scan(&ts, &state, &name, &timeMs, &count); err != nil {
			return nil, err
		}
		pos, ok := index[stateKey{ts, state}]
		if !ok {
			continue
		}
		s := &snaps[pos[0]].States[pos[1]]
		s.Voters = append(s.Voters, collector.Voter{
			Name:            name,
			TimeVotedMs:     uint64(timeMs),
			TimesVotedCount: uint64(count),
		})
	}
	return snaps, voters.Err()
}

// InsertHintEvent inserts a hint event.
func (d *DB) InsertHintEvent(e HintEvent) error {
	_, err := d.db.Exec(
		"INSERT INTO hint_events (timestamp, hint, data) VALUES (?, ?, ?)",
		e.Timestamp, e.Hint, e.Data,
	)
	return err
}

// HintEventsInRange returns hint events within the given time range.
func (d *DB) HintEventsInRange(from, to int64) ([]HintEvent, error) {
	rows, err := d.db.Query(
		"SELECT timestamp, hint, data FROM hint_events WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp, id",
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []HintEvent
	for rows.Next() {
		var e HintEvent
		if err := rows.Scan(&e.Timestamp, &e.Hint, &e.Data); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
