package database

import (
	"database/sql"
	"fmt"
)

const reportColumns = "id, pet_id, period_id, tldr, body_markdown, average_score, log_count, generated_at"

// InsertReport inserts or replaces the report of a pet for a period.
func (db *DB) InsertReport(r Report) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT OR REPLACE INTO reports
		(pet_id, period_id, tldr, body_markdown, average_score, log_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.PetID, r.PeriodID, r.TLDR, r.BodyMarkdown, r.AverageScore, r.LogCount,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetReport returns the report of a pet for a period.
func (db *DB) GetReport(petID, periodID string) (*Report, error) {
	row := db.conn.QueryRow(
		"SELECT "+reportColumns+" FROM reports WHERE pet_id = ? AND period_id = ?", petID, periodID,
	)

	var r Report
	if err := row.Scan(&r.ID, &r.PetID, &r.PeriodID, &r.TLDR, &r.BodyMarkdown,
		&r.AverageScore, &r.LogCount, &r.GeneratedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// GetAllReports returns a pet's reports ordered by period_id DESC.
func (db *DB) GetAllReports(petID string) ([]Report, error) {
	rows, err := db.conn.Query(
		"SELECT "+reportColumns+" FROM reports WHERE pet_id = ? ORDER BY period_id DESC", petID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.PetID, &r.PeriodID, &r.TLDR, &r.BodyMarkdown,
			&r.AverageScore, &r.LogCount, &r.GeneratedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// GetLastReportDate returns the end date of the pet's most recent report.
// Returns empty string if no reports exist.
func (db *DB) GetLastReportDate(petID string) (string, error) {
	row := db.conn.QueryRow(
		"SELECT period_id FROM reports WHERE pet_id = ? ORDER BY period_id DESC LIMIT 1", petID,
	)

	var periodID string
	if err := row.Scan(&periodID); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return PeriodEndDate(periodID), nil
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM pets", &s.Pets},
		{"SELECT COUNT(*) FROM logs", &s.TotalLogs},
		{"SELECT COUNT(*) FROM logs WHERE kind = 'food'", &s.FoodLogs},
		{"SELECT COUNT(*) FROM logs WHERE kind = 'stool'", &s.StoolLogs},
		{"SELECT COUNT(*) FROM logs WHERE kind = 'symptom'", &s.SymptomLogs},
		{"SELECT COUNT(*) FROM logs WHERE kind = 'note'", &s.NoteLogs},
		{"SELECT COUNT(*) FROM recall_notices", &s.RecallNotices},
		{"SELECT COUNT(*) FROM reports", &s.Reports},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	v, err := db.JournalVersion()
	if err != nil {
		return nil, err
	}
	s.JournalVersion = v
	return s, nil
}
