package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/gitintel/gitintel-go/internal/models"
)

// PostgresStore is the team-shared store. Schema mirrors the SQLite store
// with a bigserial sequence per event table so "most recent" lookups are
// stable even when two rows share a timestamp.
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore connects to PostgreSQL via the pgx stdlib driver.
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &PostgresStore{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS file_patterns (
		path_hash TEXT PRIMARY KEY,
		file_path TEXT NOT NULL,
		conflict_frequency INTEGER NOT NULL DEFAULT 0,
		resolution_strategy TEXT,
		strategy_success_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_seen TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS author_patterns (
		author_email TEXT PRIMARY KEY,
		total_merges INTEGER NOT NULL DEFAULT 0,
		conflicts_caused INTEGER NOT NULL DEFAULT 0,
		conflict_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		frequent_files TEXT,
		avg_resolution_seconds INTEGER NOT NULL DEFAULT 0,
		last_updated TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS predictions (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		repo_path TEXT NOT NULL,
		target_branch TEXT,
		source_branch TEXT,
		file_path TEXT NOT NULL,
		probability DOUBLE PRECISION NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		method TEXT,
		features_json TEXT,
		actual_conflict BOOLEAN,
		accuracy DOUBLE PRECISION,
		resolution_seconds INTEGER,
		created_at TIMESTAMPTZ NOT NULL,
		validated_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_predictions_file
		ON predictions(repo_path, file_path, seq);

	CREATE TABLE IF NOT EXISTS recommendations (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		repo_path TEXT NOT NULL,
		source_branch TEXT NOT NULL,
		target_branch TEXT NOT NULL,
		recommended_strategy TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		success_probability DOUBLE PRECISION NOT NULL,
		estimated_conflicts INTEGER NOT NULL DEFAULT 0,
		strategy_used TEXT,
		merge_success BOOLEAN,
		actual_conflicts INTEGER,
		merge_time_minutes INTEGER,
		accuracy DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_recommendations_pair
		ON recommendations(repo_path, source_branch, target_branch, seq);

	CREATE TABLE IF NOT EXISTS operations (
		id TEXT PRIMARY KEY,
		repo_path TEXT NOT NULL,
		operation_type TEXT NOT NULL,
		branch_name TEXT,
		files_changed INTEGER NOT NULL DEFAULT 0,
		lines_added INTEGER NOT NULL DEFAULT 0,
		lines_deleted INTEGER NOT NULL DEFAULT 0,
		conflict_occurred BOOLEAN NOT NULL DEFAULT FALSE,
		resolution_seconds INTEGER NOT NULL DEFAULT 0,
		timestamp TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		key TEXT PRIMARY KEY,
		vector TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const predictionColumns = `id, repo_path, target_branch, source_branch, file_path,
	probability, confidence, method, features_json, actual_conflict,
	accuracy, resolution_seconds, created_at, validated_at`

const recommendationColumns = `id, repo_path, source_branch, target_branch,
	recommended_strategy, confidence, success_probability, estimated_conflicts,
	strategy_used, merge_success, actual_conflicts, merge_time_minutes,
	accuracy, created_at, completed_at`

// File patterns

func (s *PostgresStore) UpsertFilePattern(ctx context.Context, p *models.FilePattern) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO file_patterns
			(path_hash, file_path, conflict_frequency, resolution_strategy,
			 strategy_success_rate, last_seen)
		VALUES (:path_hash, :file_path, :conflict_frequency, :resolution_strategy,
			 :strategy_success_rate, :last_seen)
		ON CONFLICT (path_hash) DO UPDATE SET
			conflict_frequency = EXCLUDED.conflict_frequency,
			resolution_strategy = EXCLUDED.resolution_strategy,
			strategy_success_rate = EXCLUDED.strategy_success_rate,
			last_seen = EXCLUDED.last_seen`, p)
	if err != nil {
		return fmt.Errorf("upsert file pattern: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetFilePattern(ctx context.Context, pathHash string) (*models.FilePattern, error) {
	var p models.FilePattern
	err := s.db.GetContext(ctx, &p,
		`SELECT * FROM file_patterns WHERE path_hash = $1`, pathHash)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file pattern: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) CountFilePatterns(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM file_patterns`)
	return n, err
}

// Author patterns

func (s *PostgresStore) UpsertAuthorPattern(ctx context.Context, p *models.AuthorPattern) error {
	files, err := json.Marshal(p.FrequentFiles)
	if err != nil {
		return fmt.Errorf("encode frequent files: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO author_patterns
			(author_email, total_merges, conflicts_caused, conflict_rate,
			 frequent_files, avg_resolution_seconds, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (author_email) DO UPDATE SET
			total_merges = EXCLUDED.total_merges,
			conflicts_caused = EXCLUDED.conflicts_caused,
			conflict_rate = EXCLUDED.conflict_rate,
			frequent_files = EXCLUDED.frequent_files,
			avg_resolution_seconds = EXCLUDED.avg_resolution_seconds,
			last_updated = EXCLUDED.last_updated`,
		p.AuthorEmail, p.TotalMerges, p.ConflictsCaused, p.ConflictRate,
		string(files), p.AvgResolutionSec, p.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert author pattern: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAuthorPattern(ctx context.Context, email string) (*models.AuthorPattern, error) {
	row := s.db.QueryRowxContext(ctx, `
		SELECT author_email, total_merges, conflicts_caused, conflict_rate,
		       frequent_files, avg_resolution_seconds, last_updated
		FROM author_patterns WHERE author_email = $1`, email)

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

func (s *PostgresStore) CountAuthorPatterns(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM author_patterns`)
	return n, err
}

// Predictions

func (s *PostgresStore) SavePrediction(ctx context.Context, rec *models.PredictionRecord) error {
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

func (s *PostgresStore) LatestUnvalidatedPrediction(ctx context.Context, repoPath, filePath string) (*models.PredictionRecord, error) {
	var rec models.PredictionRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT `+predictionColumns+`
		FROM predictions
		WHERE repo_path = $1 AND file_path = $2 AND validated_at IS NULL
		ORDER BY seq DESC
		LIMIT 1`, repoPath, filePath)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup unvalidated prediction: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) ResolvePrediction(ctx context.Context, id string, actualConflict bool, accuracy float64, resolutionSec int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE predictions
		SET actual_conflict = $1, accuracy = $2, resolution_seconds = $3,
		    validated_at = NOW()
		WHERE id = $4 AND validated_at IS NULL`,
		actualConflict, accuracy, resolutionSec, id)
	if err != nil {
		return fmt.Errorf("resolve prediction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) PredictionStats(ctx context.Context, repoPath string) (int, float64, error) {
	var stats struct {
		Total       int             `db:"total"`
		AvgAccuracy sql.NullFloat64 `db:"avg_accuracy"`
	}
	err := s.db.GetContext(ctx, &stats, `
		SELECT COUNT(*) AS total, AVG(accuracy) AS avg_accuracy
		FROM predictions WHERE repo_path = $1`, repoPath)
	if err != nil {
		return 0, 0, fmt.Errorf("prediction stats: %w", err)
	}
	return stats.Total, stats.AvgAccuracy.Float64, nil
}

// Recommendations

func (s *PostgresStore) SaveRecommendation(ctx context.Context, rec *models.RecommendationRecord) error {
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

func (s *PostgresStore) LatestOpenRecommendation(ctx context.Context, repoPath, sourceBranch, targetBranch string) (*models.RecommendationRecord, error) {
	var rec models.RecommendationRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT `+recommendationColumns+`
		FROM recommendations
		WHERE repo_path = $1 AND source_branch = $2 AND target_branch = $3
		  AND completed_at IS NULL
		ORDER BY seq DESC
		LIMIT 1`, repoPath, sourceBranch, targetBranch)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup open recommendation: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) CompleteRecommendation(ctx context.Context, id, strategyUsed string, success bool, conflicts, minutes int, accuracy float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE recommendations
		SET strategy_used = $1, merge_success = $2, actual_conflicts = $3,
		    merge_time_minutes = $4, accuracy = $5, completed_at = NOW()
		WHERE id = $6 AND completed_at IS NULL`,
		strategyUsed, success, conflicts, minutes, accuracy, id)
	if err != nil {
		return fmt.Errorf("complete recommendation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RecommendationStats(ctx context.Context, repoPath string) (int, int, float64, error) {
	var stats struct {
		Total       int             `db:"total"`
		Successful  int             `db:"successful"`
		AvgAccuracy sql.NullFloat64 `db:"avg_accuracy"`
	}
	err := s.db.GetContext(ctx, &stats, `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN merge_success THEN 1 ELSE 0 END), 0) AS successful,
		       AVG(accuracy) AS avg_accuracy
		FROM recommendations WHERE repo_path = $1`, repoPath)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("recommendation stats: %w", err)
	}
	return stats.Total, stats.Successful, stats.AvgAccuracy.Float64, nil
}

func (s *PostgresStore) StrategyPerformance(ctx context.Context, repoPath string) (map[string]float64, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT strategy_used, AVG(CASE WHEN merge_success THEN 1.0 ELSE 0.0 END) AS rate
		FROM recommendations
		WHERE repo_path = $1 AND strategy_used IS NOT NULL
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

func (s *PostgresStore) AppendOperation(ctx context.Context, op *models.Operation) error {
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

func (s *PostgresStore) OperationStats(ctx context.Context, repoPath string) (int, float64, float64, error) {
	var stats struct {
		Total        int             `db:"total"`
		ConflictRate sql.NullFloat64 `db:"conflict_rate"`
		AvgRes       sql.NullFloat64 `db:"avg_res"`
	}
	err := s.db.GetContext(ctx, &stats, `
		SELECT COUNT(*) AS total,
		       AVG(CASE WHEN conflict_occurred THEN 1.0 ELSE 0.0 END) AS conflict_rate,
		       AVG(CASE WHEN conflict_occurred THEN resolution_seconds END) AS avg_res
		FROM operations WHERE repo_path = $1`, repoPath)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("operation stats: %w", err)
	}
	return stats.Total, stats.ConflictRate.Float64, stats.AvgRes.Float64, nil
}

// Embeddings

func (s *PostgresStore) SaveEmbedding(ctx context.Context, key string, vector []float32) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO embeddings (key, vector) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET vector = EXCLUDED.vector`,
		key, string(data))
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEmbedding(ctx context.Context, key string) ([]float32, error) {
	var data string
	err := s.db.GetContext(ctx, &data,
		`SELECT vector FROM embeddings WHERE key = $1`, key)
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
