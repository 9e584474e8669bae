package backtest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// ResultStore 管理 backtest_runs/backtest_trades 两张表。
type ResultStore struct {
	mu     sync.Mutex
	closed bool
	db     *sql.DB
	path   string
}

func NewResultStore(root string) (*ResultStore, error) {
	if root == "" {
		return nil, fmt.Errorf("result store root 不能为空")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, "runs.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureResultSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &ResultStore{db: db, path: path}, nil
}

// Close 幂等。s.db 始终保持非 nil，关闭后的查询由 database/sql
// 返回 "database is closed" 错误，而不是 panic。
func (s *ResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func ensureResultSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			profile TEXT NOT NULL,
			status TEXT NOT NULL,
			start_ts INTEGER NOT NULL,
			end_ts INTEGER NOT NULL,
			trades INTEGER NOT NULL DEFAULT 0,
			expectancy_r REAL,
			win_rate REAL,
			max_drawdown_r REAL,
			config_json TEXT NOT NULL,
			report_json TEXT,
			message TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			completed_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS backtest_trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			ticker TEXT NOT NULL,
			entry_ts INTEGER NOT NULL,
			exit_ts INTEGER NOT NULL,
			r REAL NOT NULL,
			exit_reason TEXT NOT NULL,
			entry_price REAL,
			exit_price REAL,
			risk_per_share REAL,
			FOREIGN KEY(run_id) REFERENCES backtest_runs(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON backtest_trades(run_id, exit_ts);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun 写入一条 run 记录。
func (s *ResultStore) InsertRun(ctx context.Context, run Run) error {
	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs
			(id, name, profile, status, start_ts, end_ts, trades,
			config_json, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Profile, run.Status, run.StartTS, run.EndTS, run.Trades,
		string(cfgJSON), run.Message, now, now)
	return err
}

// InsertTrades 批量写入一次 run 的交易快照。
func (s *ResultStore) InsertTrades(ctx context.Context, runID string, trades []Trade) error {
	if len(trades) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_trades
			(run_id, ticker, entry_ts, exit_ts, r, exit_reason, entry_price, exit_price, risk_per_share)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, t := range trades {
		if _, err := stmt.ExecContext(ctx, runID, t.Ticker,
			t.EntryDate.UnixMilli(), t.ExitDate.UnixMilli(),
			t.R, t.ExitReason, t.EntryPrice, t.ExitPrice, t.RiskPerShare); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// CompleteRun 写入聚合结果并把状态置为 done。
func (s *ResultStore) CompleteRun(ctx context.Context, runID string, report Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		UPDATE backtest_runs SET
			status = ?, trades = ?, expectancy_r = ?, win_rate = ?, max_drawdown_r = ?,
			report_json = ?, updated_at = ?, completed_at = ?
		WHERE id = ?`,
		RunStatusDone, report.Trades,
		nullableFloat(report.ExpectancyR), nullableFloat(report.WinRate), nullableFloat(report.MaxDrawdownR),
		string(reportJSON), now, now, runID)
	return err
}

// FailRun 把状态置为 failed 并记录原因。
func (s *ResultStore) FailRun(ctx context.Context, runID, message string) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		UPDATE backtest_runs SET status = ?, message = ?, updated_at = ? WHERE id = ?`,
		RunStatusFailed, message, now, runID)
	return err
}

// GetRun 按 ID 读取 run。
func (s *ResultStore) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, profile, status, start_ts, end_ts, trades,
			config_json, report_json, message, created_at, updated_at, completed_at
		FROM backtest_runs WHERE id = ?`, runID)
	return scanRun(row)
}

// ListRuns 按创建时间倒序返回最近的 run。
func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, profile, status, start_ts, end_ts, trades,
			config_json, report_json, message, created_at, updated_at, completed_at
		FROM backtest_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// TradesForRun 返回一次 run 的全部交易，按平仓时间升序。
func (s *ResultStore) TradesForRun(ctx context.Context, runID string) ([]Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, entry_ts, exit_ts, r, exit_reason, entry_price, exit_price, risk_per_share
		FROM backtest_trades WHERE run_id = ? ORDER BY exit_ts ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var trades []Trade
	for rows.Next() {
		var t Trade
		var entryTS, exitTS int64
		var entryPrice, exitPrice, riskPerShare sql.NullFloat64
		if err := rows.Scan(&t.Ticker, &entryTS, &exitTS, &t.R, &t.ExitReason,
			&entryPrice, &exitPrice, &riskPerShare); err != nil {
			return nil, err
		}
		t.EntryDate = time.UnixMilli(entryTS).UTC()
		t.ExitDate = time.UnixMilli(exitTS).UTC()
		t.EntryPrice = entryPrice.Float64
		t.ExitPrice = exitPrice.Float64
		t.RiskPerShare = riskPerShare.Float64
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var cfgJSON string
	var reportJSON, message sql.NullString
	var createdAt, updatedAt int64
	var completedAt sql.NullInt64
	err := row.Scan(&run.ID, &run.Name, &run.Profile, &run.Status, &run.StartTS, &run.EndTS, &run.Trades,
		&cfgJSON, &reportJSON, &message, &createdAt, &updatedAt, &completedAt)
	if err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(cfgJSON), &run.Config); err != nil {
		return Run{}, fmt.Errorf("run %s config 损坏: %w", run.ID, err)
	}
	if reportJSON.Valid && reportJSON.String != "" {
		if err := json.Unmarshal([]byte(reportJSON.String), &run.Report); err != nil {
			return Run{}, fmt.Errorf("run %s report 损坏: %w", run.ID, err)
		}
	}
	run.Message = message.String
	run.CreatedAt = time.UnixMilli(createdAt).UTC()
	run.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if completedAt.Valid {
		run.CompletedAt = time.UnixMilli(completedAt.Int64).UTC()
	}
	return run, nil
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
