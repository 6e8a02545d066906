package models

import (
	"strings"
	"time"
)

// ChangeType mirrors git's single-letter change codes for a file.
type ChangeType string

const (
	ChangeAdded    ChangeType = "A"
	ChangeModified ChangeType = "M"
	ChangeDeleted  ChangeType = "D"
	ChangeRenamed  ChangeType = "R"
)

// LineRange is an inclusive [Start, End] range of changed lines.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Lines returns the number of lines covered by the range.
func (r LineRange) Lines() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// FileChangeSummary describes what one branch side did to a single file.
// Computed per prediction request from the diff against the merge base;
// never persisted.
type FileChangeSummary struct {
	ChangeType        ChangeType  `json:"change_type"`
	LinesChanged      int         `json:"lines_changed"`
	LineRanges        []LineRange `json:"line_ranges"`
	FunctionsAffected int         `json:"functions_affected"`
	Timestamp         time.Time   `json:"timestamp"`
}

// FileChangePair holds the two competing sides of a change to one file,
// plus the authors who touched it on the source branch.
type FileChangePair struct {
	Target  FileChangeSummary `json:"target"`
	Source  FileChangeSummary `json:"source"`
	Authors []string          `json:"authors"`
}

// RepoContext carries per-request repository metadata into feature
// extraction.
type RepoContext struct {
	RepoPath     string `json:"repo_path"`
	TargetBranch string `json:"target_branch"`
	SourceBranch string `json:"source_branch"`
	FileSize     int64  `json:"file_size"`
	TotalCommits int    `json:"total_commits"`
	// RecentChanges counts commits touching the file in the recent window.
	RecentChanges int `json:"recent_changes"`
}

// ConflictFeatures is the fixed-shape numeric record fed to the predictor.
// All component scores are clamped to [0,1] before combination.
type ConflictFeatures struct {
	FilePath              string  `json:"file_path"`
	FileExtension         string  `json:"file_extension"`
	FileSize              int64   `json:"file_size"`
	LinesChangedTarget    int     `json:"lines_changed_target"`
	LinesChangedSource    int     `json:"lines_changed_source"`
	OverlapRatio          float64 `json:"overlap_ratio"`
	AuthorConflictHistory float64 `json:"author_conflict_history"`
	FileConflictHistory   float64 `json:"file_conflict_history"`
	ChangeComplexity      float64 `json:"change_complexity"`
	TemporalDistance      float64 `json:"temporal_distance"`
	SemanticSimilarity    float64 `json:"semantic_similarity"`
}

// ConflictPrediction is the per-file output of the predictor.
type ConflictPrediction struct {
	FilePath               string      `json:"file_path"`
	ConflictProbability    float64     `json:"conflict_probability"` // [0, 0.98]
	ConfidenceScore        float64     `json:"confidence_score"`     // [0.5, 0.98]
	PredictionMethods      []string    `json:"prediction_methods"`
	ResolutionSuggestion   string      `json:"resolution_suggestion"`
	AffectedLineRanges     []LineRange `json:"affected_line_ranges"`
	EstimatedResolutionSec int         `json:"estimated_resolution_seconds"` // [60, 3600]
}

// Method joins the contributing techniques for display.
func (p *ConflictPrediction) Method() string {
	return strings.Join(p.PredictionMethods, " + ")
}

// AuthorPattern is the learned per-author aggregate. Updated only by the
// outcome learner; read by the feature extractor.
type AuthorPattern struct {
	AuthorEmail      string    `json:"author_email" db:"author_email"`
	TotalMerges      int       `json:"total_merges" db:"total_merges"`
	ConflictsCaused  int       `json:"conflicts_caused" db:"conflicts_caused"`
	ConflictRate     float64   `json:"conflict_rate" db:"conflict_rate"`
	FrequentFiles    []string  `json:"frequent_files" db:"-"`
	AvgResolutionSec int       `json:"avg_resolution_seconds" db:"avg_resolution_seconds"`
	LastUpdated      time.Time `json:"last_updated" db:"last_updated"`
}

// FilePattern is the learned per-file aggregate.
type FilePattern struct {
	FilePath            string    `json:"file_path" db:"file_path"`
	PathHash            string    `json:"path_hash" db:"path_hash"`
	ConflictFrequency   int       `json:"conflict_frequency" db:"conflict_frequency"`
	ResolutionStrategy  string    `json:"resolution_strategy" db:"resolution_strategy"`
	StrategySuccessRate float64   `json:"strategy_success_rate" db:"strategy_success_rate"`
	LastSeen            time.Time `json:"last_seen" db:"last_seen"`
}

// StrategyType enumerates the candidate merge strategies. The evaluation
// order below is also the tie-break order when confidence scores are equal.
type StrategyType string

const (
	StrategyFastForward StrategyType = "fast-forward"
	StrategyNoFF        StrategyType = "no-ff"
	StrategySquash      StrategyType = "squash"
	StrategyRebase      StrategyType = "rebase"
	StrategyUpToDate    StrategyType = "up-to-date"
)

// MergeAnalysis captures branch divergence as measured against the merge
// base.
type MergeAnalysis struct {
	CommitsAhead    int      `json:"commits_ahead"`
	CommitsBehind   int      `json:"commits_behind"`
	FilesChanged    int      `json:"files_changed"`
	LinesAdded      int      `json:"lines_added"`
	LinesDeleted    int      `json:"lines_deleted"`
	AuthorsInvolved []string `json:"authors_involved"`
	BranchAgeDays   float64  `json:"branch_age_days"`
	ConflictCount   int      `json:"conflict_count"`
}

// HasConflicts reports whether any predicted conflicts were folded into the
// analysis.
func (a *MergeAnalysis) HasConflicts() bool { return a.ConflictCount > 0 }

// MergeStrategyScore is one evaluated candidate strategy.
type MergeStrategyScore struct {
	Strategy             StrategyType `json:"strategy"`
	ConfidenceScore      float64      `json:"confidence_score"`
	SuccessProbability   float64      `json:"success_probability"`
	EstimatedTimeMinutes int          `json:"estimated_time_minutes"`
	Pros                 []string     `json:"pros"`
	Cons                 []string     `json:"cons"`
	Prerequisites        []string     `json:"prerequisites"`
	CommandSequence      []string     `json:"command_sequence"`
}

// RiskLevel classifies the overall merge risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// MergeRecommendation is the aggregate advisor output.
type MergeRecommendation struct {
	Primary            MergeStrategyScore   `json:"primary_strategy"`
	Alternatives       []MergeStrategyScore `json:"alternative_strategies"`
	MergeMessage       string               `json:"merge_message"`
	PreMergeChecklist  []string             `json:"pre_merge_checklist"`
	PostMergeChecklist []string             `json:"post_merge_checklist"`
	RiskLevel          RiskLevel            `json:"risk_level"`
	EstimatedConflicts int                  `json:"estimated_conflicts"`
	RollbackPlan       string               `json:"rollback_plan"`
}

// PredictionRecord is a persisted prediction, written when a prediction is
// made and resolved later by ValidatePrediction.
type PredictionRecord struct {
	ID             string     `json:"id" db:"id"`
	RepoPath       string     `json:"repo_path" db:"repo_path"`
	TargetBranch   string     `json:"target_branch" db:"target_branch"`
	SourceBranch   string     `json:"source_branch" db:"source_branch"`
	FilePath       string     `json:"file_path" db:"file_path"`
	Probability    float64    `json:"probability" db:"probability"`
	Confidence     float64    `json:"confidence" db:"confidence"`
	Method         string     `json:"method" db:"method"`
	FeaturesJSON   string     `json:"features_json" db:"features_json"`
	ActualConflict *bool      `json:"actual_conflict" db:"actual_conflict"`
	Accuracy       *float64   `json:"accuracy" db:"accuracy"`
	ResolutionSec  *int       `json:"resolution_seconds" db:"resolution_seconds"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	ValidatedAt    *time.Time `json:"validated_at" db:"validated_at"`
}

// RecommendationRecord is a persisted merge recommendation, resolved by
// RecordOutcome.
type RecommendationRecord struct {
	ID                  string     `json:"id" db:"id"`
	RepoPath            string     `json:"repo_path" db:"repo_path"`
	SourceBranch        string     `json:"source_branch" db:"source_branch"`
	TargetBranch        string     `json:"target_branch" db:"target_branch"`
	RecommendedStrategy string     `json:"recommended_strategy" db:"recommended_strategy"`
	Confidence          float64    `json:"confidence" db:"confidence"`
	SuccessProbability  float64    `json:"success_probability" db:"success_probability"`
	EstimatedConflicts  int        `json:"estimated_conflicts" db:"estimated_conflicts"`
	StrategyUsed        *string    `json:"strategy_used" db:"strategy_used"`
	MergeSuccess        *bool      `json:"merge_success" db:"merge_success"`
	ActualConflicts     *int       `json:"actual_conflicts" db:"actual_conflicts"`
	MergeTimeMinutes    *int       `json:"merge_time_minutes" db:"merge_time_minutes"`
	Accuracy            *float64   `json:"accuracy" db:"accuracy"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	CompletedAt         *time.Time `json:"completed_at" db:"completed_at"`
}

// Operation is one row in the append-only operations log.
type Operation struct {
	ID               string    `json:"id" db:"id"`
	RepoPath         string    `json:"repo_path" db:"repo_path"`
	OperationType    string    `json:"operation_type" db:"operation_type"`
	BranchName       string    `json:"branch_name" db:"branch_name"`
	FilesChanged     int       `json:"files_changed" db:"files_changed"`
	LinesAdded       int       `json:"lines_added" db:"lines_added"`
	LinesDeleted     int       `json:"lines_deleted" db:"lines_deleted"`
	ConflictOccurred bool      `json:"conflict_occurred" db:"conflict_occurred"`
	ResolutionSec    int       `json:"resolution_seconds" db:"resolution_seconds"`
	Timestamp        time.Time `json:"timestamp" db:"timestamp"`
}

// CodeReviewScore is the output of the commit quality reviewer.
type CodeReviewScore struct {
	OverallScore          float64            `json:"overall_score"`
	QualityMetrics        map[string]float64 `json:"quality_metrics"`
	PotentialIssues       []string           `json:"potential_issues"`
	SuggestedImprovements []string           `json:"suggested_improvements"`
	ComplexityScore       float64            `json:"complexity_score"`
	MaintainabilityScore  float64            `json:"maintainability_score"`
}

// EngineMetrics is the aggregate surface returned by Engine.Metrics.
type EngineMetrics struct {
	PredictionAccuracy     float64            `json:"prediction_accuracy"`
	TotalPredictions       int                `json:"total_predictions"`
	TotalOperations        int                `json:"total_operations"`
	ConflictRate           float64            `json:"conflict_rate"`
	AvgResolutionSec       float64            `json:"avg_resolution_seconds"`
	LearnedFilePatterns    int                `json:"learned_file_patterns"`
	LearnedAuthorPatterns  int                `json:"learned_author_patterns"`
	TotalRecommendations   int                `json:"total_recommendations"`
	SuccessfulMerges       int                `json:"successful_merges"`
	RecommendationAccuracy float64            `json:"recommendation_accuracy"`
	StrategyPerformance    map[string]float64 `json:"strategy_performance"`
}
