package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"carprice/dataset"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

var ErrClosed = errors.New("database not initialized")

// Store keeps the observation table and the training log in one SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the SQLite database at path. A fresh file gets an
// empty observations table, which is the persisted form of an empty dataset.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	// one writer; the dataset is rewritten wholesale on every persist
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS observations (
        seq INTEGER PRIMARY KEY,
        year INTEGER NOT NULL,
        hand INTEGER NOT NULL,
        price TEXT NOT NULL
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50),
        r_squared REAL,
        trained_at DATETIME,
        data_points INTEGER
    );`
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}

	return &Store{db: database, path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load reads every observation in insertion order.
func (s *Store) Load(ctx context.Context) (dataset.Dataset, error) {
	if s == nil || s.db == nil {
		return dataset.Dataset{}, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT year, hand, price FROM observations ORDER BY seq`)
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var observations []dataset.Observation
	for rows.Next() {
		var (
			year, hand int
			price      decimal.Decimal
		)
		if err := rows.Scan(&year, &hand, &price); err != nil {
			return dataset.Dataset{}, fmt.Errorf("scan observation: %w", err)
		}
		observations = append(observations, dataset.NewObservation(year, hand, price))
	}
	if err := rows.Err(); err != nil {
		return dataset.Dataset{}, err
	}
	return dataset.New(observations...), nil
}

// Persist replaces the stored table with ds inside a single transaction.
func (s *Store) Persist(ctx context.Context, ds dataset.Dataset) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM observations`); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear observations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO observations (seq, year, hand, price) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, obs := range ds.Rows() {
		if _, err := stmt.ExecContext(ctx, i, obs.Year, obs.Hand, obs.Price.String()); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert observation %d: %w", i, err)
		}
	}

	return tx.Commit()
}

type TrainingLog struct {
	ModelName  string    `json:"model_name"`
	RSquared   float64   `json:"r_squared"`
	TrainedAt  time.Time `json:"trained_at"`
	DataPoints int       `json:"data_points"`
}

func (s *Store) SaveTrainingLog(ctx context.Context, entry TrainingLog) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	if entry.TrainedAt.IsZero() {
		entry.TrainedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO training_log (model_name, r_squared, trained_at, data_points)
        VALUES (?, ?, ?, ?)`,
		entry.ModelName, entry.RSquared, entry.TrainedAt, entry.DataPoints)
	return err
}

// LoadTrainingLog returns the most recent entries first.
func (s *Store) LoadTrainingLog(ctx context.Context, limit int) ([]TrainingLog, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT model_name, r_squared, trained_at, data_points
        FROM training_log
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelName, &log.RSquared, &log.TrainedAt, &log.DataPoints); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
