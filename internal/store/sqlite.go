package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/gitintel/gitintel-go/internal/models"
)

// SQLiteStore is the local single-user store.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore opens (creating if needed) a SQLite pattern database.
// ":memory:" is accepted for tests.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	// WAL keeps readers unblocked while the learner writes.
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS file_patterns (
		path_hash TEXT PRIMARY KEY,
		file_path TEXT NOT NULL,
		conflict_frequency INTEGER NOT NULL DEFAULT 0,
		resolution_strategy TEXT,
		strategy_success_rate REAL NOT NULL DEFAULT 0,
		last_seen DATETIME
	);

	CREATE TABLE IF NOT EXISTS author_patterns (
		author_email TEXT PRIMARY KEY,
		total_merges INTEGER NOT NULL DEFAULT 0,
		conflicts_caused INTEGER NOT NULL DEFAULT 0,
		conflict_rate REAL NOT NULL DEFAULT 0,
		frequent_files TEXT,
		avg_resolution_seconds INTEGER NOT NULL DEFAULT 0,
		last_updated DATETIME
	);

	CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		repo_path TEXT NOT NULL,
		target_branch TEXT,
		source_branch TEXT,
		file_path TEXT NOT NULL,
		probability REAL NOT NULL,
		confidence REAL NOT NULL,
		method TEXT,
		features_json TEXT,
		actual_conflict BOOLEAN,
		accuracy REAL,
		resolution_seconds INTEGER,
		created_at DATETIME NOT NULL,
		validated_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_predictions_file
		ON predictions(repo_path, file_path, created_at);

	CREATE TABLE IF NOT EXISTS recommendations (
		id TEXT PRIMARY KEY,
		repo_path TEXT NOT NULL,
		source_branch TEXT NOT NULL,
		target_branch TEXT NOT NULL,
		recommended_strategy TEXT NOT NULL,
		confidence REAL NOT NULL,
		success_probability REAL NOT NULL,
		estimated_conflicts INTEGER NOT NULL DEFAULT 0,
		strategy_used TEXT,
		merge_success BOOLEAN,
		actual_conflicts INTEGER,
		merge_time_minutes INTEGER,
		accuracy REAL,
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_recommendations_pair
		ON recommendations(repo_path, source_branch, target_branch, created_at);

	CREATE TABLE IF NOT EXISTS operations (
		id TEXT PRIMARY KEY,
		repo_path TEXT NOT NULL,
		operation_type TEXT NOT NULL,
		branch_name TEXT,
		files_changed INTEGER NOT NULL DEFAULT 0,
		lines_added INTEGER NOT NULL DEFAULT 0,
		lines_deleted INTEGER NOT NULL DEFAULT 0,
		conflict_occurred BOOLEAN NOT NULL DEFAULT 0,
		resolution_seconds INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		key TEXT PRIMARY KEY,
		vector TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// File patterns

func (s *SQLiteStore) UpsertFilePattern(ctx context.Context, p *models.FilePattern) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO file_patterns
			(path_hash, file_path, conflict_frequency, resolution_strategy,
			 strategy_success_rate, last_seen)
		VALUES (:path_hash, :file_path, :conflict_frequency, :resolution_strategy,
			 :strategy_success_rate, :last_seen)`, p)
	if err != nil {
		return fmt.Errorf("upsert file pattern: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetFilePattern(ctx context.Context, pathHash string) (*models.FilePattern, error) {
	var p models.FilePattern
	err := s.db.GetContext(ctx, &p,
		`SELECT * FROM file_patterns WHERE path_hash = ?`, pathHash)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file pattern: %w", err)
	}
	return &p, nil
}

func (s *SQLiteStore) CountFilePatterns(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM file_patterns`)
	return n, err
}

// Author patterns

func (s *SQLiteStore) UpsertAuthorPattern(ctx context.Context, p *models.AuthorPattern) error {
	files, err := json.Marshal(p.FrequentFiles)
	if err != nil {
		return fmt.Errorf("encode frequent files: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO author_patterns
			(author_email, total_merges, conflicts_caused, conflict_rate,
			 frequent_files, avg_resolution_seconds, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.AuthorEmail, p.TotalMerges, p.ConflictsCaused, p.ConflictRate,
		string(files), p.AvgResolutionSec, p.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert author pattern: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAuthorPattern(ctx context.Context, email string) (*models.AuthorPattern, error) {
	row := s.db.QueryRowxContext(ctx, `
		SELECT author_email, total_merges, conflicts_caused, conflict_rate,
		       frequent_files, avg_resolution_seconds, last_updated
		FROM author_patterns WHERE author_email = ?`, email)

	var p models.AuthorPattern
	var files sql.NullString
	err := row.Scan(&p.AuthorEmail, &p.TotalMerges, &p.ConflictsCaused,
		&p.ConflictRate, &files, &p.AvgResolutionSec, &p.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get author pattern: %w", err)
	}
	if files.Valid && files.String != "" {
		json.Unmarshal([]byte(files.String), &p.FrequentFiles)
	}
	return &p, nil
}

func (s *SQLiteStore) CountAuthorPatterns(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM author_patterns`)
	return n, err
}

// Predictions

func (s *SQLiteStore) SavePrediction(ctx context.Context, rec *models.PredictionRecord) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO predictions
			(id, repo_path, target_branch, source_branch, file_path,
			 probability, confidence, method, features_json, created_at)
		VALUES (:id, :repo_path, :target_branch, :source_branch, :file_path,
			 :probability, :confidence, :method, :features_json, :created_at)`, rec)
	if err != nil {
		return fmt.Errorf("save prediction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LatestUnvalidatedPrediction(ctx context.Context, repoPath, filePath string) (*models.PredictionRecord, error) {
	var rec models.PredictionRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT * FROM predictions
		WHERE repo_path = ? AND file_path = ? AND validated_at IS NULL
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, repoPath, filePath)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup unvalidated prediction: %w", err)
	}
	return &rec, nil
}

func (s *SQLiteStore) ResolvePrediction(ctx context.Context, id string, actualConflict bool, accuracy float64, resolutionSec int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE predictions
		SET actual_conflict = ?, accuracy = ?, resolution_seconds = ?,
		    validated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND validated_at IS NULL`,
		actualConflict, accuracy, resolutionSec, id)
	if err != nil {
		return fmt.Errorf("resolve prediction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) PredictionStats(ctx context.Context, repoPath string) (int, float64, error) {
	var stats struct {
		Total       int             `db:"total"`
		AvgAccuracy sql.NullFloat64 `db:"avg_accuracy"`
	}
	err := s.db.GetContext(ctx, &stats, `
		SELECT COUNT(*) AS total, AVG(accuracy) AS avg_accuracy
		FROM predictions WHERE repo_path = ?`, repoPath)
	if err != nil {
		return 0, 0, fmt.Errorf("prediction stats: %w", err)
	}
	return stats.Total, stats.AvgAccuracy.Float64, nil
}

// Recommendations

func (s *SQLiteStore) SaveRecommendation(ctx context.Context, rec *models.RecommendationRecord) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO recommendations
			(id, repo_path, source_branch, target_branch, recommended_strategy,
			 confidence, success_probability, estimated_conflicts, created_at)
		VALUES (:id, :repo_path, :source_branch, :target_branch, :recommended_strategy,
			 :confidence, :success_probability, :estimated_conflicts, :created_at)`, rec)
	if err != nil {
		return fmt.Errorf("save recommendation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LatestOpenRecommendation(ctx context.Context, repoPath, sourceBranch, targetBranch string) (*models.RecommendationRecord, error) {
	var rec models.RecommendationRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT * FROM recommendations
		WHERE repo_path = ? AND source_branch = ? AND target_branch = ?
		  AND completed_at IS NULL
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, repoPath, sourceBranch, targetBranch)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup open recommendation: %w", err)
	}
	return &rec, nil
}

func (s *SQLiteStore) CompleteRecommendation(ctx context.Context, id, strategyUsed string, success bool, conflicts, minutes int, accuracy float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE recommendations
		SET strategy_used = ?, merge_success = ?, actual_conflicts = ?,
		    merge_time_minutes = ?, accuracy = ?, completed_at = CURRENT_TIMESTAMP
		WHERE id = ? AND completed_at IS NULL`,
		strategyUsed, success, conflicts, minutes, accuracy, id)
	if err != nil {
		return fmt.Errorf("complete recommendation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) RecommendationStats(ctx context.Context, repoPath string) (int, int, float64, error) {
	var stats struct {
		Total       int             `db:"total"`
		Successful  int             `db:"successful"`
		AvgAccuracy sql.NullFloat64 `db:"avg_accuracy"`
	}
	err := s.db.GetContext(ctx, &stats, `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN merge_success THEN 1 ELSE 0 END), 0) AS successful,
		       AVG(accuracy) AS avg_accuracy
		FROM recommendations WHERE repo_path = ?`, repoPath)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("recommendation stats: %w", err)
	}
	return stats.Total, stats.Successful, stats.AvgAccuracy.Float64, nil
}

func (s *SQLiteStore) StrategyPerformance(ctx context.Context, repoPath string) (map[string]float64, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT strategy_used, AVG(CASE WHEN merge_success THEN 1.0 ELSE 0.0 END) AS rate
		FROM recommendations
		WHERE repo_path = ? AND strategy_used IS NOT NULL
		GROUP BY strategy_used`, repoPath)
	if err != nil {
		return nil, fmt.Errorf("strategy performance: %w", err)
	}
	defer rows.Close()

	perf := make(map[string]float64)
	for rows.Next() {
		var strategy string
		var rate float64
		if err := rows.Scan(&strategy, &rate); err != nil {
			return nil, err
		}
		perf[strategy] = rate
	}
	return perf, rows.Err()
}

// Operations

func (s *SQLiteStore) AppendOperation(ctx context.Context, op *models.Operation) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO operations
			(id, repo_path, operation_type, branch_name, files_changed,
			 lines_added, lines_deleted, conflict_occurred, resolution_seconds, timestamp)
		VALUES (:id, :repo_path, :operation_type, :branch_name, :files_changed,
			 :lines_added, :lines_deleted, :conflict_occurred, :resolution_seconds, :timestamp)`, op)
	if err != nil {
		return fmt.Errorf("append operation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) OperationStats(ctx context.Context, repoPath string) (int, float64, float64, error) {
	var stats struct {
		Total        int             `db:"total"`
		ConflictRate sql.NullFloat64 `db:"conflict_rate"`
		AvgRes       sql.NullFloat64 `db:"avg_res"`
	}
	err := s.db.GetContext(ctx, &stats, `
		SELECT COUNT(*) AS total,
		       AVG(CASE WHEN conflict_occurred THEN 1.0 ELSE 0.0 END) AS conflict_rate,
		       AVG(CASE WHEN conflict_occurred THEN resolution_seconds END) AS avg_res
		FROM operations WHERE repo_path = ?`, repoPath)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("operation stats: %w", err)
	}
	return stats.Total, stats.ConflictRate.Float64, stats.AvgRes.Float64, nil
}

// Embeddings

func (s *SQLiteStore) SaveEmbedding(ctx context.Context, key string, vector []float32) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (key, vector) VALUES (?, ?)`,
		key, string(data))
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetEmbedding(ctx context.Context, key string) ([]float32, error) {
	var data string
	err := s.db.GetContext(ctx, &data,
		`SELECT vector FROM embeddings WHERE key = ?`, key)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	var vec []float32
	if err := json.Unmarshal([]byte(data), &vec); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return vec, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
