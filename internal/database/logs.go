package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/achalasani15/gut-check-app/internal/journal"
)

const logColumns = "id, pet_id, kind, ts_ms, payload"

// InsertLog validates and stores a record for the pet. An empty ID is
// replaced by a new UUID. The stored record is returned.
func (db *DB) InsertLog(petID string, r journal.LogRecord) (*journal.LogRecord, error) {
	r = r.Normalized()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.PetID = petID
	r.Timestamp = r.Timestamp.UTC().Truncate(time.Millisecond)

	payload, err := encodePayload(r)
	if err != nil {
		return nil, err
	}

	err = db.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"INSERT INTO logs ("+logColumns+") VALUES (?, ?, ?, ?, ?)",
			r.ID, r.PetID, string(r.Kind), r.Timestamp.UnixMilli(), payload,
		); err != nil {
			return fmt.Errorf("inserting log: %w", err)
		}
		return bumpVersion(tx)
	})
	if err != nil {
		return nil, err
	}
	db.log.WithField("log_id", r.ID).WithField("kind", r.Kind).Debug("log inserted")
	return &r, nil
}

// UpdateLog replaces the record with the same ID. The pet cannot change.
func (db *DB) UpdateLog(r journal.LogRecord) error {
	r = r.Normalized()
	if err := r.Validate(); err != nil {
		return err
	}
	r.Timestamp = r.Timestamp.UTC().Truncate(time.Millisecond)
	payload, err := encodePayload(r)
	if err != nil {
		return err
	}

	return db.withTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(
			"UPDATE logs SET kind = ?, ts_ms = ?, payload = ? WHERE id = ?",
			string(r.Kind), r.Timestamp.UnixMilli(), payload, r.ID,
		)
		if err != nil {
			return fmt.Errorf("updating log: %w", err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		return bumpVersion(tx)
	})
}

// DeleteLog removes a record by ID.
func (db *DB) DeleteLog(id string) error {
	return db.withTx(func(tx *sql.Tx) error {
		result, err := tx.Exec("DELETE FROM logs WHERE id = ?", id)
		if err != nil {
			return err
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		return bumpVersion(tx)
	})
}

// DeleteAllLogs clears a pet's journal and returns how many records went.
func (db *DB) DeleteAllLogs(petID string) (int64, error) {
	var n int64
	err := db.withTx(func(tx *sql.Tx) error {
		result, err := tx.Exec("DELETE FROM logs WHERE pet_id = ?", petID)
		if err != nil {
			return err
		}
		if n, err = result.RowsAffected(); err != nil {
			return err
		}
		return bumpVersion(tx)
	})
	return n, err
}

// GetLog returns a record by ID, or nil if it does not exist.
func (db *DB) GetLog(id string) (*journal.LogRecord, error) {
	rows, err := db.conn.Query("SELECT "+logColumns+" FROM logs WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs, err := scanLogs(rows)
	if err != nil || len(logs) == 0 {
		return nil, err
	}
	return &logs[0], nil
}

// ListLogs returns a pet's records, newest first.
func (db *DB) ListLogs(petID string) ([]journal.LogRecord, error) {
	return listLogs(db.conn, petID)
}

// Snapshot loads a pet's logs and the journal version in one read
// transaction, so the version always describes exactly these logs.
func (db *DB) Snapshot(petID string) (*journal.Snapshot, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	version, err := readVersion(tx)
	if err != nil {
		return nil, err
	}
	logs, err := listLogs(tx, petID)
	if err != nil {
		return nil, err
	}
	return &journal.Snapshot{PetID: petID, Version: version, Logs: logs}, nil
}

// JournalVersion returns the counter bumped by every write.
func (db *DB) JournalVersion() (int64, error) {
	return readVersion(db.conn)
}

// CountLogsByKind returns per-kind record counts for a pet.
func (db *DB) CountLogsByKind(petID string) (map[journal.Kind]int, error) {
	rows, err := db.conn.Query("SELECT kind, COUNT(*) FROM logs WHERE pet_id = ? GROUP BY kind", petID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[journal.Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[journal.Kind(kind)] = n
	}
	return counts, rows.Err()
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func listLogs(q querier, petID string) ([]journal.LogRecord, error) {
	rows, err := q.Query(
		"SELECT "+logColumns+" FROM logs WHERE pet_id = ? ORDER BY ts_ms DESC, rowid DESC", petID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogs(rows)
}

func readVersion(q querier) (int64, error) {
	var v int64
	if err := q.QueryRow("SELECT value FROM journal_meta WHERE key = 'version'").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading journal version: %w", err)
	}
	return v, nil
}

func bumpVersion(tx *sql.Tx) error {
	_, err := tx.Exec("UPDATE journal_meta SET value = value + 1 WHERE key = 'version'")
	if err != nil {
		return fmt.Errorf("bumping journal version: %w", err)
	}
	return nil
}

func encodePayload(r journal.LogRecord) (string, error) {
	var v any
	switch r.Kind {
	case journal.KindFood:
		v = r.Food
	case journal.KindStool:
		v = r.Stool
	case journal.KindSymptom:
		v = r.Symptom
	case journal.KindNote:
		v = r.Note
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding %s payload: %w", r.Kind, err)
	}
	return string(data), nil
}

func decodePayload(r *journal.LogRecord, payload string) error {
	var target any
	switch r.Kind {
	case journal.KindFood:
		r.Food = &journal.Food{}
		target = r.Food
	case journal.KindStool:
		r.Stool = &journal.Stool{}
		target = r.Stool
	case journal.KindSymptom:
		r.Symptom = &journal.Symptom{}
		target = r.Symptom
	case journal.KindNote:
		r.Note = &journal.Note{}
		target = r.Note
	default:
		return fmt.Errorf("log %s: unknown kind %q", r.ID, r.Kind)
	}
	if err := json.Unmarshal([]byte(payload), target); err != nil {
		return fmt.Errorf("log %s: decoding payload: %w", r.ID, err)
	}
	return nil
}

func scanLogs(rows *sql.Rows) ([]journal.LogRecord, error) {
	var logs []journal.LogRecord
	for rows.Next() {
		var r journal.LogRecord
		var kind, payload string
		var ts int64
		if err := rows.Scan(&r.ID, &r.PetID, &kind, &ts, &payload); err != nil {
			return nil, err
		}
		r.Kind = journal.Kind(kind)
		r.Timestamp = time.UnixMilli(ts).UTC()
		if err := decodePayload(&r, payload); err != nil {
			return nil, err
		}
		logs = append(logs, r)
	}
	return logs, rows.Err()
}
