package database

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"jordanella.com/tower-pilot/internal/events"
	"jordanella.com/tower-pilot/internal/logging"
)

// CycleRecord is one journal row
type CycleRecord struct {
	RunID        string
	Cycle        int64
	Outcome      string
	X, Y         sql.NullInt64
	Confidence   sql.NullFloat64
	DurationMs   int64
	ErrorMessage sql.NullString
	OccurredAt   time.Time
}

// Run is one recognition loop session
type Run struct {
	ID        string
	Window    string
	Symbol    string
	StartedAt time.Time
	StoppedAt sql.NullTime
	Cycles    int64
}

// StartRun records the beginning of a loop run
func (db *DB) StartRun(id, window, symbol string, at time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO runs (id, window_title, symbol, started_at)
		VALUES (?, ?, ?, ?)
	`, id, window, symbol, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the stop time and final cycle count
func (db *DB) FinishRun(id string, at time.Time) error {
	return db.ExecTx(func(tx *sql.Tx) error {
		var cycles int64
		if err := tx.QueryRow(`SELECT COUNT(*) FROM cycle_log WHERE run_id = ?`, id).Scan(&cycles); err != nil {
			return fmt.Errorf("failed to count cycles: %w", err)
		}

		_, err := tx.Exec(`UPDATE runs SET stopped_at = ?, cycles = ? WHERE id = ?`, at.UTC(), cycles, id)
		if err != nil {
			return fmt.Errorf("failed to finish run: %w", err)
		}
		return nil
	})
}

// RecordCycle appends a cycle outcome
func (db *DB) RecordCycle(rec CycleRecord) error {
	_, err := db.conn.Exec(`
		INSERT INTO cycle_log (
			run_id, cycle, outcome, x, y, confidence,
			duration_ms, error_message, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.Cycle, rec.Outcome, rec.X, rec.Y, rec.Confidence,
		rec.DurationMs, rec.ErrorMessage, rec.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert cycle log: %w", err)
	}
	return nil
}

// GetRun loads a run by id
func (db *DB) GetRun(id string) (*Run, error) {
	run := &Run{}
	err := db.conn.QueryRow(`
		SELECT id, window_title, symbol, started_at, stopped_at, cycles
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Window, &run.Symbol, &run.StartedAt, &run.StoppedAt, &run.Cycles)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// RecentCycles returns up to limit cycles of a run, newest first
func (db *DB) RecentCycles(runID string, limit int) ([]CycleRecord, error) {
	rows, err := db.conn.Query(`
		SELECT run_id, cycle, outcome, x, y, confidence, duration_ms, error_message, occurred_at
		FROM cycle_log
		WHERE run_id = ?
		ORDER BY cycle DESC
		LIMIT ?
	`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var records []CycleRecord
	for rows.Next() {
		var rec CycleRecord
		if err := rows.Scan(&rec.RunID, &rec.Cycle, &rec.Outcome, &rec.X, &rec.Y,
			&rec.Confidence, &rec.DurationMs, &rec.ErrorMessage, &rec.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// OutcomeCounts tallies the cycles of a run by outcome
func (db *DB) OutcomeCounts(runID string) (map[string]int64, error) {
	rows, err := db.conn.Query(`
		SELECT outcome, COUNT(*) FROM cycle_log WHERE run_id = ? GROUP BY outcome
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// Journal writes loop events from the bus into the database
type Journal struct {
	db     *DB
	logger *logging.Logger

	mu    sync.Mutex
	runID string
	subs  []events.SubscriptionID
	bus   events.EventBus
}

// NewJournal creates a journal over an open, migrated database
func NewJournal(db *DB, logger *logging.Logger) *Journal {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Journal{db: db, logger: logger}
}

// Attach subscribes the journal to loop and cycle events
func (j *Journal) Attach(bus events.EventBus) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.bus = bus
	j.subs = append(j.subs,
		bus.Subscribe(events.EventTypeLoopStarted, j.onLoopStarted),
		bus.Subscribe(events.EventTypeLoopStopped, j.onLoopStopped),
		bus.Subscribe(events.EventTypeCycleCompleted, j.onCycle),
		bus.Subscribe(events.EventTypeCycleFailed, j.onCycle),
	)
}

// Detach removes the journal's subscriptions
func (j *Journal) Detach() {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, id := range j.subs {
		j.bus.Unsubscribe(id)
	}
	j.subs = nil
}

func (j *Journal) onLoopStarted(e events.Event) {
	runID, _ := e.Data["run_id"].(string)
	window, _ := e.Data["window"].(string)
	symbol, _ := e.Data["symbol"].(string)

	j.mu.Lock()
	j.runID = runID
	j.mu.Unlock()

	if err := j.db.StartRun(runID, window, symbol, e.Timestamp); err != nil {
		j.logger.Error("Journal failed to record run start", err)
	}
}

func (j *Journal) onLoopStopped(e events.Event) {
	runID, _ := e.Data["run_id"].(string)
	if err := j.db.FinishRun(runID, e.Timestamp); err != nil {
		j.logger.Error("Journal failed to record run stop", err)
	}
}

func (j *Journal) onCycle(e events.Event) {
	j.mu.Lock()
	runID := j.runID
	j.mu.Unlock()

	if runID == "" {
		return
	}

	rec := CycleRecord{RunID: runID, OccurredAt: e.Timestamp}
	rec.Cycle, _ = e.Data["cycle"].(int64)
	rec.Outcome, _ = e.Data["outcome"].(string)
	rec.DurationMs, _ = e.Data["duration_ms"].(int64)
	if x, ok := e.Data["x"].(int); ok {
		rec.X = sql.NullInt64{Int64: int64(x), Valid: true}
	}
	if y, ok := e.Data["y"].(int); ok {
		rec.Y = sql.NullInt64{Int64: int64(y), Valid: true}
	}
	if c, ok := e.Data["confidence"].(float64); ok {
		rec.Confidence = sql.NullFloat64{Float64: c, Valid: true}
	}
	if msg, ok := e.Data["error"].(string); ok {
		rec.ErrorMessage = sql.NullString{String: msg, Valid: true}
	}

	if err := j.db.RecordCycle(rec); err != nil {
		j.logger.ErrorWithContext("Journal failed to record cycle", err, map[string]interface{}{"cycle": rec.Cycle})
	}
}

// ListRuns returns the most recent runs, newest first
func (db *DB) ListRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(`
		SELECT id, window_title, symbol, started_at, stopped_at, cycles
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Window, &run.Symbol, &run.StartedAt, &run.StoppedAt, &run.Cycles); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
