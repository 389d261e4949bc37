package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteQueue is the embedded relational backend spec §4.4 requires
// alongside the pebble one. Grounded on
// other_examples/b-open-io-overlay__sqlite.go: a split write/read
// *sql.DB pair over the same file, the same WAL/synchronous/busy_timeout/
// temp_store PRAGMA sequence, and one queue table plus one
// single-row state table, matching the relational shape spec §6 names
// (`queue(id, outpoint, score, spend_txid, status, attempts, last_error,
// created_at, updated_at)`, `state(key, value)`), with an extra txid column
// on queue that claims and lookups group by.
type SQLiteQueue struct {
	wdb *sql.DB
	rdb *sql.DB
}

// NewSQLiteQueue opens (creating if absent) the sqlite database at dbPath.
func NewSQLiteQueue(dbPath string) (*SQLiteQueue, error) {
	q := &SQLiteQueue{}

	var err error
	if q.wdb, err = sql.Open("sqlite3", dbPath); err != nil {
		return nil, fmt.Errorf("queue: open write db: %w", err)
	}
	if err := configurePragmas(q.wdb); err != nil {
		return nil, err
	}
	if err := q.createTables(); err != nil {
		return nil, err
	}
	q.wdb.SetMaxOpenConns(1)

	if q.rdb, err = sql.Open("sqlite3", dbPath); err != nil {
		return nil, fmt.Errorf("queue: open read db: %w", err)
	}
	if err := configurePragmas(q.rdb); err != nil {
		return nil, err
	}
	q.rdb.SetMaxOpenConns(10)
	q.rdb.SetMaxIdleConns(5)

	return q, nil
}

func configurePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("queue: pragma %q: %w", p, err)
		}
	}
	return nil
}

func (q *SQLiteQueue) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS queue (
			id TEXT PRIMARY KEY,
			outpoint TEXT NOT NULL,
			txid TEXT NOT NULL,
			score REAL NOT NULL,
			spend_txid TEXT,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queue_status ON queue(status)`,
		`CREATE INDEX IF NOT EXISTS idx_queue_txid ON queue(txid)`,
		`CREATE TABLE IF NOT EXISTS state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, query := range queries {
		if _, err := q.wdb.Exec(query); err != nil {
			return fmt.Errorf("queue: create table: %w", err)
		}
	}
	return nil
}

func (q *SQLiteQueue) Close() error {
	if err := q.wdb.Close(); err != nil {
		return err
	}
	return q.rdb.Close()
}

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var it Item
	var spendTxid, lastError sql.NullString
	if err := row.Scan(&it.ID, &it.Outpoint, &it.Score, &spendTxid, &it.Status,
		&it.Attempts, &lastError, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	if spendTxid.Valid {
		it.SpendTxid = &spendTxid.String
	}
	if lastError.Valid {
		it.LastError = &lastError.String
	}
	return &it, nil
}

const itemColumns = "id, outpoint, score, spend_txid, status, attempts, last_error, created_at, updated_at"

func (q *SQLiteQueue) Enqueue(ctx context.Context, items []EnqueueItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := q.wdb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("queue: begin enqueue: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, in := range items {
		id := ItemID(in.Outpoint, in.Score)

		var status Status
		var attempts int
		var createdAt int64
		err := tx.QueryRowContext(ctx, `SELECT status, attempts, created_at FROM queue WHERE id = ?`, id).
			Scan(&status, &attempts, &createdAt)
		switch {
		case err == sql.ErrNoRows:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO queue (id, outpoint, txid, score, spend_txid, status, attempts, last_error, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)`,
				id, in.Outpoint, txidOf(in.Outpoint), in.Score, in.SpendTxid, StatusPending, now, now)
			if err != nil {
				return fmt.Errorf("queue: insert %s: %w", id, err)
			}
		case err != nil:
			return fmt.Errorf("queue: lookup %s: %w", id, err)
		case status == StatusDone:
			// skip — a done row is never reopened by enqueue.
		default:
			_, err = tx.ExecContext(ctx, `
				UPDATE queue SET status = ?, spend_txid = ?, updated_at = ? WHERE id = ?`,
				StatusPending, in.SpendTxid, now, id)
			if err != nil {
				return fmt.Errorf("queue: update %s: %w", id, err)
			}
		}
	}
	return tx.Commit()
}

func (q *SQLiteQueue) Claim(ctx context.Context, count int) (map[string][]*Item, error) {
	if count <= 0 {
		return map[string][]*Item{}, nil
	}
	tx, err := q.wdb.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("queue: begin claim: %w", err)
	}
	defer tx.Rollback()

	seedRows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT txid FROM queue WHERE status = ? ORDER BY score LIMIT ?`, StatusPending, count)
	if err != nil {
		return nil, fmt.Errorf("queue: seed scan: %w", err)
	}
	var txids []string
	for seedRows.Next() {
		var txid string
		if err := seedRows.Scan(&txid); err != nil {
			seedRows.Close()
			return nil, err
		}
		txids = append(txids, txid)
	}
	seedRows.Close()
	if err := seedRows.Err(); err != nil {
		return nil, err
	}
	if len(txids) == 0 {
		return map[string][]*Item{}, nil
	}

	now := time.Now().Unix()
	result := make(map[string][]*Item)
	for _, txid := range txids {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM queue WHERE txid = ? AND status = ?`, txid, StatusPending)
		if err != nil {
			return nil, fmt.Errorf("queue: group scan %s: %w", txid, err)
		}
		var group []*Item
		for rows.Next() {
			it, err := scanItem(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			group = append(group, it)
		}
		closeErr := rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, closeErr
		}

		for _, it := range group {
			it.Status = StatusProcessing
			it.Attempts++
			it.UpdatedAt = now
			if _, err := tx.ExecContext(ctx,
				`UPDATE queue SET status = ?, attempts = ?, updated_at = ? WHERE id = ?`,
				it.Status, it.Attempts, it.UpdatedAt, it.ID); err != nil {
				return nil, fmt.Errorf("queue: claim update %s: %w", it.ID, err)
			}
		}
		if len(group) > 0 {
			result[txid] = group
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func (q *SQLiteQueue) Complete(ctx context.Context, id string) error {
	return q.CompleteMany(ctx, []string{id})
}

func (q *SQLiteQueue) CompleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := q.wdb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("queue: begin complete: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE queue SET status = ?, updated_at = ? WHERE id = ?`, StatusDone, now, id); err != nil {
			return fmt.Errorf("queue: complete %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (q *SQLiteQueue) Fail(ctx context.Context, id string, reason string) error {
	res, err := q.wdb.ExecContext(ctx,
		`UPDATE queue SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, reason, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("queue: fail %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *SQLiteQueue) GetByTxid(ctx context.Context, txid string) ([]*Item, error) {
	rows, err := q.rdb.QueryContext(ctx, `SELECT `+itemColumns+` FROM queue WHERE txid = ?`, txid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func (q *SQLiteQueue) GetByStatus(ctx context.Context, status Status, limit int) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM queue WHERE status = ? ORDER BY score`
	args := []any{status}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := q.rdb.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (q *SQLiteQueue) GetStats(ctx context.Context) (Stats, error) {
	rows, err := q.rdb.QueryContext(ctx, `SELECT txid, status, COUNT(*) FROM queue GROUP BY txid, status`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	perTxid := make(map[string]map[Status]int)
	for rows.Next() {
		var txid string
		var status Status
		var n int
		if err := rows.Scan(&txid, &status, &n); err != nil {
			return Stats{}, err
		}
		if perTxid[txid] == nil {
			perTxid[txid] = make(map[Status]int)
		}
		perTxid[txid][status] = n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, counts := range perTxid {
		switch majorityStatus(counts) {
		case StatusPending:
			stats.Pending++
		case StatusProcessing:
			stats.Processing++
		case StatusDone:
			stats.Done++
		case StatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (q *SQLiteQueue) GetState(ctx context.Context) (State, error) {
	var raw string
	err := q.rdb.QueryRowContext(ctx, `SELECT value FROM state WHERE key = 'syncState'`).Scan(&raw)
	if err == sql.ErrNoRows {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}
	return decodeState(raw)
}

func (q *SQLiteQueue) SetState(ctx context.Context, patch StatePatch) error {
	tx, err := q.wdb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("queue: begin setState: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT value FROM state WHERE key = 'syncState'`).Scan(&raw)
	var st State
	switch {
	case err == sql.ErrNoRows:
		st = State{}
	case err != nil:
		return err
	default:
		if st, err = decodeState(raw); err != nil {
			return err
		}
	}
	if patch.LastQueuedScore != nil {
		st.LastQueuedScore = *patch.LastQueuedScore
	}
	if patch.LastSyncedAt != nil {
		st.LastSyncedAt = *patch.LastSyncedAt
	}

	encoded := encodeState(st)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO state (key, value) VALUES ('syncState', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, encoded); err != nil {
		return fmt.Errorf("queue: persist state: %w", err)
	}
	return tx.Commit()
}

func (q *SQLiteQueue) ResetProcessing(ctx context.Context) (int, error) {
	res, err := q.wdb.ExecContext(ctx,
		`UPDATE queue SET status = ?, updated_at = ? WHERE status = ?`,
		StatusPending, time.Now().Unix(), StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("queue: reset processing: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (q *SQLiteQueue) Clear(ctx context.Context) error {
	tx, err := q.wdb.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM queue`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM state`); err != nil {
		return err
	}
	return tx.Commit()
}
