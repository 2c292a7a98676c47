package database

import (
	"database/sql"
	"encoding/json"
)

const recallColumns = `id, url, title, source, published_date, matched_terms, content,
	content_fetched, collected_at`

// InsertRecallNotice stores a matched notice. Returns the ID on success, 0 if
// the URL is already known.
func (db *DB) InsertRecallNotice(url, title string, source, publishedDate, content *string, matched []string) (int64, error) {
	terms, err := json.Marshal(matched)
	if err != nil {
		return 0, err
	}
	result, err := db.conn.Exec(
		`INSERT OR IGNORE INTO recall_notices (url, title, source, published_date, matched_terms, content)
		VALUES (?, ?, ?, ?, ?, ?)`,
		url, title, source, publishedDate, string(terms), content,
	)
	if err != nil {
		return 0, err
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return 0, err
	}
	return result.LastInsertId()
}

// GetRecallNotices returns the most recent notices, newest first. A
// non-positive limit returns all of them.
func (db *DB) GetRecallNotices(limit int) ([]RecallNotice, error) {
	query := "SELECT " + recallColumns + " FROM recall_notices ORDER BY published_date DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecallNotices(rows)
}

// GetRecallNoticesSince returns notices published on or after a YYYY-MM-DD date.
func (db *DB) GetRecallNoticesSince(date string) ([]RecallNotice, error) {
	rows, err := db.conn.Query(
		"SELECT "+recallColumns+" FROM recall_notices WHERE published_date >= ? ORDER BY published_date DESC, id DESC",
		date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecallNotices(rows)
}

// GetRecallNoticesNeedingFetch returns notices with empty content that
// haven't been fetched.
func (db *DB) GetRecallNoticesNeedingFetch() ([]RecallNotice, error) {
	rows, err := db.conn.Query(
		"SELECT " + recallColumns + ` FROM recall_notices
		WHERE (content IS NULL OR content = '') AND content_fetched = 0
		ORDER BY collected_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecallNotices(rows)
}

// UpdateRecallContent stores fetched notice text.
func (db *DB) UpdateRecallContent(id int64, content *string) error {
	_, err := db.conn.Exec(
		"UPDATE recall_notices SET content = ?, content_fetched = 1 WHERE id = ?",
		content, id,
	)
	return err
}

// MarkRecallFetchAttempted marks that we tried to fetch content.
func (db *DB) MarkRecallFetchAttempted(id int64) error {
	_, err := db.conn.Exec("UPDATE recall_notices SET content_fetched = 1 WHERE id = ?", id)
	return err
}

// GetRecallNotice returns a notice by ID, or nil.
func (db *DB) GetRecallNotice(id int64) (*RecallNotice, error) {
	rows, err := db.conn.Query("SELECT "+recallColumns+" FROM recall_notices WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	notices, err := scanRecallNotices(rows)
	if err != nil || len(notices) == 0 {
		return nil, err
	}
	return &notices[0], nil
}

func scanRecallNotices(rows *sql.Rows) ([]RecallNotice, error) {
	var notices []RecallNotice
	for rows.Next() {
		var n RecallNotice
		var fetched int
		var terms string
		if err := rows.Scan(&n.ID, &n.URL, &n.Title, &n.Source, &n.PublishedDate,
			&terms, &n.Content, &fetched, &n.CollectedAt); err != nil {
			return nil, err
		}
		n.ContentFetched = fetched != 0
		if err := json.Unmarshal([]byte(terms), &n.MatchedTerms); err != nil {
			return nil, err
		}
		notices = append(notices, n)
	}
	return notices, rows.Err()
}
