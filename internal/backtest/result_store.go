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

	_ "modernc.org/sqlite"
)

// ResultStore 管理 backtest_runs / backtest_equity 表。
type ResultStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewResultStore 打开（必要时创建）结果库并建表。
func NewResultStore(path string) (*ResultStore, error) {
	if path == "" {
		return nil, fmt.Errorf("backtest: result store path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
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
	return &ResultStore{db: db}, nil
}

func (s *ResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureResultSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			status TEXT NOT NULL,
			seed INTEGER NOT NULL,
			start_ts INTEGER NOT NULL,
			end_ts INTEGER NOT NULL,
			interval_ms INTEGER NOT NULL,
			initial_capital REAL NOT NULL,
			final_equity REAL NOT NULL DEFAULT 0,
			total_pnl REAL NOT NULL DEFAULT 0,
			return_pct REAL NOT NULL DEFAULT 0,
			win_rate REAL NOT NULL DEFAULT 0,
			max_drawdown_pct REAL NOT NULL DEFAULT 0,
			total_trades INTEGER NOT NULL DEFAULT 0,
			winning_trades INTEGER NOT NULL DEFAULT 0,
			bars INTEGER NOT NULL DEFAULT 0,
			request_json TEXT NOT NULL,
			message TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			completed_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS backtest_equity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			equity REAL NOT NULL,
			drawdown_pct REAL NOT NULL,
			FOREIGN KEY(run_id) REFERENCES backtest_runs(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_equity_run ON backtest_equity(run_id, ts);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun 以 RUNNING 状态写入一条 run 记录。
func (s *ResultStore) InsertRun(ctx context.Context, res Result) error {
	reqJSON, err := json.Marshal(res.Request)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs
			(id, symbol, status, seed, start_ts, end_ts, interval_ms, initial_capital,
			 request_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Request.Symbol, RunStatusRunning, res.Seed,
		res.Request.Start.UTC().UnixMilli(), res.Request.End.UTC().UnixMilli(),
		res.Request.Interval.Milliseconds(), res.Request.InitialCapital,
		string(reqJSON), now, now)
	return err
}

// FinishRun 把汇总指标与净值曲线写回并置为 DONE。
func (s *ResultStore) FinishRun(ctx context.Context, res Result) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		UPDATE backtest_runs
		SET status=?, final_equity=?, total_pnl=?, return_pct=?, win_rate=?,
		    max_drawdown_pct=?, total_trades=?, winning_trades=?, bars=?,
		    updated_at=?, completed_at=?
		WHERE id=?`,
		RunStatusDone, res.FinalEquity, res.TotalPnL, res.ReturnPct, res.WinRate,
		res.MaxDrawdownPct, res.TotalTrades, res.WinningTrades, res.Bars,
		now, now, res.RunID)
	if err != nil {
		return err
	}
	for _, p := range res.EquityCurve {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO backtest_equity (run_id, ts, equity, drawdown_pct)
			VALUES (?, ?, ?, ?)`,
			res.RunID, p.Time.UnixMilli(), p.Equity, p.Drawdown); err != nil {
			return err
		}
	}
	return nil
}

// UpdateRunStatus 仅更新状态与提示。
func (s *ResultStore) UpdateRunStatus(ctx context.Context, id, status, message string) error {
	now := time.Now().UnixMilli()
	var completed interface{}
	if status == RunStatusDone || status == RunStatusFailed {
		completed = now
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE backtest_runs
		SET status=?, message=?, updated_at=?,
		    completed_at=CASE WHEN ? IS NULL THEN completed_at ELSE ? END
		WHERE id=?`, status, message, now, completed, completed, id)
	return err
}

// RunRow 是落库后的 run 视图。
type RunRow struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Status         string    `json:"status"`
	Seed           int64     `json:"seed"`
	InitialCapital float64   `json:"initial_capital"`
	FinalEquity    float64   `json:"final_equity"`
	TotalPnL       float64   `json:"total_pnl"`
	ReturnPct      float64   `json:"return_pct"`
	WinRate        float64   `json:"win_rate"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	TotalTrades    int       `json:"total_trades"`
	WinningTrades  int       `json:"winning_trades"`
	Bars           int       `json:"bars"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

const runColumns = `id, symbol, status, seed, initial_capital, final_equity, total_pnl,
	return_pct, win_rate, max_drawdown_pct, total_trades, winning_trades, bars,
	message, created_at, completed_at`

func (s *ResultStore) GetRun(ctx context.Context, id string) (RunRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM backtest_runs WHERE id=?`, id)
	return scanRun(row)
}

func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM backtest_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunRow
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// ListEquity 返回一次 run 的净值曲线（按时间升序）。
func (s *ResultStore) ListEquity(ctx context.Context, runID string, limit int) ([]EquityPoint, error) {
	if limit <= 0 || limit > 5000 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, equity, drawdown_pct FROM backtest_equity
		WHERE run_id=? ORDER BY ts ASC LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EquityPoint
	for rows.Next() {
		var ts int64
		var p EquityPoint
		if err := rows.Scan(&ts, &p.Equity, &p.Drawdown); err != nil {
			return nil, err
		}
		p.Time = timeFromMillis(ts)
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (RunRow, error) {
	var run RunRow
	var message sql.NullString
	var createdAt int64
	var completedAt sql.NullInt64
	if err := row.Scan(&run.ID, &run.Symbol, &run.Status, &run.Seed,
		&run.InitialCapital, &run.FinalEquity, &run.TotalPnL, &run.ReturnPct,
		&run.WinRate, &run.MaxDrawdownPct, &run.TotalTrades, &run.WinningTrades,
		&run.Bars, &message, &createdAt, &completedAt); err != nil {
		return RunRow{}, err
	}
	run.Message = message.String
	run.CreatedAt = timeFromMillis(createdAt)
	if completedAt.Valid {
		run.CompletedAt = timeFromMillis(completedAt.Int64)
	}
	return run, nil
}

func timeFromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.Unix(0, ms*int64(time.Millisecond)).UTC()
}
