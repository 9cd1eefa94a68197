package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/thermal"
	"github.com/vivekchamoli/legion2go/internal/ui"
)

var ErrClosed = errors.New("history recorder is closed")

// Recorder buffers control cycle results and writes them to sqlite in batches
type Recorder struct {
	db     *sql.DB
	config configuration.HistoryConfig
	now    func() time.Time

	mu      sync.Mutex
	buffer  []thermal.CycleResult
	written int64
	closed  bool
}

func NewRecorder(config configuration.HistoryConfig) (*Recorder, error) {
	if config.Path == "" {
		return nil, errors.New("history path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", config.Path+"?_journal=WAL&_auto_vacuum=2")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}

	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	config.BatchSize = batchSize

	ui.Debug("History recorder initialized at %s (schema v%d)", config.Path, schemaVersion)
	return &Recorder{
		db:     db,
		config: config,
		now:    time.Now,
		buffer: make([]thermal.CycleResult, 0, batchSize),
	}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(createSchemaSQL); err != nil {
		return err
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		_, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion)
		return err
	}
	var version int
	if err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return err
	}
	if version != schemaVersion {
		return fmt.Errorf("unsupported schema version %d, expected %d", version, schemaVersion)
	}
	return nil
}

// Record buffers a result, the buffer is flushed once it reaches the batch size
func (r *Recorder) Record(result thermal.CycleResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	r.buffer = append(r.buffer, result)
	if len(r.buffer) >= r.config.BatchSize {
		return r.flush()
	}
	return nil
}

// Run flushes and prunes periodically until ctx is canceled
func (r *Recorder) Run(ctx context.Context) error {
	interval := r.config.FlushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.Flush(); err != nil {
				ui.Warning("Unable to flush control history: %v", err)
			}
			if _, err := r.Prune(); err != nil {
				ui.Warning("Unable to prune control history: %v", err)
			}
		}
	}
}

func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return r.flush()
}

func (r *Recorder) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(insertCycleSQL)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, result := range r.buffer {
		_, err := stmt.Exec(
			result.Timestamp.UnixMilli(),
			string(result.Targets.Workload),
			result.Targets.Cpu,
			result.Targets.Gpu,
			result.CpuTemp,
			result.GpuTemp,
			result.VrmTemp,
			result.CpuFanSpeed,
			result.GpuFanSpeed,
			boolToInt(result.Emergency),
			boolToInt(result.Adapted),
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert cycle: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	ui.Debug("Flushed %d control cycles to history", len(r.buffer))
	r.written += int64(len(r.buffer))
	r.buffer = r.buffer[:0]
	return nil
}

// Prune removes records older than the retention, returns the number of removed records
func (r *Recorder) Prune() (int64, error) {
	if r.config.Retention <= 0 {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrClosed
	}

	cutoff := r.now().Add(-r.config.Retention).UnixMilli()
	result, err := r.db.Exec(pruneSQL, cutoff)
	if err != nil {
		return 0, err
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Recent returns the latest flushed records, newest first
func (r *Recorder) Recent(limit int) ([]thermal.CycleResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	rows, err := r.db.Query(selectRecentSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []thermal.CycleResult
	for rows.Next() {
		var (
			timestamp          int64
			workload           string
			emergency, adapted int
			cycle              thermal.CycleResult
		)
		err := rows.Scan(
			&timestamp, &workload,
			&cycle.Targets.Cpu, &cycle.Targets.Gpu,
			&cycle.CpuTemp, &cycle.GpuTemp, &cycle.VrmTemp,
			&cycle.CpuFanSpeed, &cycle.GpuFanSpeed,
			&emergency, &adapted,
		)
		if err != nil {
			return nil, err
		}
		cycle.Timestamp = time.UnixMilli(timestamp)
		cycle.Targets.Workload = thermal.Workload(workload)
		cycle.Emergency = emergency != 0
		cycle.Adapted = adapted != 0
		result = append(result, cycle)
	}
	return result, rows.Err()
}

// Written returns the number of records flushed since creation
func (r *Recorder) Written() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Close flushes pending records and closes the database, it is safe to call multiple times
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	flushErr := r.flush()
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		ui.Warning("Unable to checkpoint history database: %v", err)
	}
	if err := r.db.Close(); err != nil {
		return err
	}
	return flushErr
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
