package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/achalasani15/gut-check-app/internal/journal"
)

// CreatePet inserts a new pet and returns it.
func (db *DB) CreatePet(name string) (*journal.Pet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &journal.ValidationError{Field: "name", Message: "must not be empty"}
	}
	pet := &journal.Pet{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	_, err := db.conn.Exec(
		"INSERT INTO pets (id, name, created_at) VALUES (?, ?, ?)",
		pet.ID, pet.Name, pet.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting pet: %w", err)
	}
	db.log.WithField("pet_id", pet.ID).Info("pet created")
	return pet, nil
}

// GetPet returns a pet by ID, or nil if it does not exist.
func (db *DB) GetPet(id string) (*journal.Pet, error) {
	row := db.conn.QueryRow("SELECT id, name, created_at FROM pets WHERE id = ?", id)
	return scanPet(row)
}

// GetActivePet returns the oldest pet, or nil when the journal has none.
func (db *DB) GetActivePet() (*journal.Pet, error) {
	row := db.conn.QueryRow("SELECT id, name, created_at FROM pets ORDER BY created_at, rowid LIMIT 1")
	return scanPet(row)
}

// RenamePet changes a pet's name.
func (db *DB) RenamePet(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &journal.ValidationError{Field: "name", Message: "must not be empty"}
	}
	result, err := db.conn.Exec("UPDATE pets SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeletePet removes a pet together with all of its logs and reports.
func (db *DB) DeletePet(id string) error {
	return db.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM logs WHERE pet_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM reports WHERE pet_id = ?", id); err != nil {
			return err
		}
		result, err := tx.Exec("DELETE FROM pets WHERE id = ?", id)
		if err != nil {
			return err
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		return bumpVersion(tx)
	})
}

func scanPet(row *sql.Row) (*journal.Pet, error) {
	var p journal.Pet
	var created int64
	if err := row.Scan(&p.ID, &p.Name, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	return &p, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
