package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"PricePilot/internal/model"
)

// SQLiteStore persists alerts, subscribers and positions to SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so scheduled passes and command handlers can read while a
	// pass writes trigger flags.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    TEXT NOT NULL,
			asset      TEXT NOT NULL,
			kind       TEXT NOT NULL,
			target     REAL NOT NULL DEFAULT 0,
			low        REAL NOT NULL DEFAULT 0,
			high       REAL NOT NULL DEFAULT 0,
			threshold  REAL NOT NULL DEFAULT 0,
			triggered  INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_triggered ON alerts(triggered)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts(user_id)`,

		`CREATE TABLE IF NOT EXISTS subscribers (
			user_id TEXT PRIMARY KEY
		)`,

		`CREATE TABLE IF NOT EXISTS positions (
			user_id    TEXT NOT NULL,
			asset      TEXT NOT NULL,
			amount     REAL NOT NULL,
			total_cost REAL NOT NULL,
			PRIMARY KEY (user_id, asset)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

const alertColumns = `id, user_id, asset, kind, target, low, high, threshold, triggered, created_at`

func scanAlert(row interface{ Scan(...any) error }) (model.Alert, error) {
	var a model.Alert
	var triggered int
	var createdAt int64
	if err := row.Scan(&a.ID, &a.UserID, &a.Asset, &a.Kind, &a.Target, &a.Low, &a.High,
		&a.Threshold, &triggered, &createdAt); err != nil {
		return model.Alert{}, err
	}
	a.Triggered = triggered == 1
	a.CreatedAt = time.Unix(createdAt, 0)
	return a, nil
}

func (s *SQLiteStore) CreateAlert(ctx context.Context, a model.Alert) (model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT INTO alerts
		(user_id, asset, kind, target, low, high, threshold, triggered, created_at)
		VALUES (?,?,?,?,?,?,?,0,?)`,
		a.UserID, a.Asset, string(a.Kind), a.Target, a.Low, a.High, a.Threshold,
		time.Now().Unix(),
	)
	if err != nil {
		return model.Alert{}, fmt.Errorf("insert alert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Alert{}, fmt.Errorf("alert last insert id: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	out, err := scanAlert(row)
	if err != nil {
		return model.Alert{}, fmt.Errorf("fetch inserted alert: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) queryAlerts(ctx context.Context, query string, args ...any) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]model.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

func (s *SQLiteStore) ListUntriggered(ctx context.Context) ([]model.Alert, error) {
	return s.queryAlerts(ctx, `SELECT `+alertColumns+` FROM alerts WHERE triggered = 0`)
}

func (s *SQLiteStore) ListAlertsByUser(ctx context.Context, userID string, includeTriggered bool) ([]model.Alert, error) {
	if includeTriggered {
		return s.queryAlerts(ctx, `SELECT `+alertColumns+` FROM alerts WHERE user_id = ?`, userID)
	}
	return s.queryAlerts(ctx, `SELECT `+alertColumns+` FROM alerts WHERE user_id = ? AND triggered = 0`, userID)
}

// MarkTriggered is the compare-and-set that keeps overlapping passes safe:
// only the pass whose UPDATE actually flips the row may notify.
func (s *SQLiteStore) MarkTriggered(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET triggered = 1 WHERE id = ? AND triggered = 0`, id)
	if err != nil {
		return false, fmt.Errorf("mark triggered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark triggered rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) AddSubscriber(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO subscribers (user_id) VALUES (?)`, userID); err != nil {
		return fmt.Errorf("add subscriber: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RemoveSubscriber(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM subscribers WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("remove subscriber: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListSubscribers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM subscribers`)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) AddHolding(ctx context.Context, userID, assetID string, amount, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `INSERT INTO positions (user_id, asset, amount, total_cost)
		VALUES (?,?,?,?)
		ON CONFLICT(user_id, asset) DO UPDATE SET
			amount = amount + excluded.amount,
			total_cost = total_cost + excluded.total_cost`,
		userID, assetID, amount, amount*price); err != nil {
		return fmt.Errorf("add holding: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ReduceHolding(ctx context.Context, userID, assetID string, amount float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reduce: %w", err)
	}
	defer tx.Rollback()

	var held, totalCost float64
	err = tx.QueryRowContext(ctx,
		`SELECT amount, total_cost FROM positions WHERE user_id = ? AND asset = ?`,
		userID, assetID).Scan(&held, &totalCost)
	if err == sql.ErrNoRows {
		return 0, ErrInsufficientHoldings
	}
	if err != nil {
		return 0, fmt.Errorf("read position: %w", err)
	}
	if amount > held {
		return 0, ErrInsufficientHoldings
	}

	avgCost := totalCost / held
	if _, err := tx.ExecContext(ctx,
		`UPDATE positions SET amount = ?, total_cost = ? WHERE user_id = ? AND asset = ?`,
		held-amount, totalCost-amount*avgCost, userID, assetID); err != nil {
		return 0, fmt.Errorf("update position: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reduce: %w", err)
	}
	return avgCost, nil
}

func (s *SQLiteStore) ListPositions(ctx context.Context, userID string) ([]model.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, asset, amount, total_cost FROM positions
		 WHERE user_id = ? AND amount > 0`, userID)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	positions := make([]model.Position, 0)
	for rows.Next() {
		var p model.Position
		if err := rows.Scan(&p.UserID, &p.Asset, &p.Amount, &p.TotalCost); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return positions, nil
}

func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}
