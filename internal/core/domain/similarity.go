package domain

import (
	"fmt"
	"math"
	"time"
)

// DefaultThreshold is the similarity cutoff used when none is configured.
const DefaultThreshold = 0.50

// SimilarityRecord is an unordered document pair whose score exceeded the threshold.
type SimilarityRecord struct {
	DocumentA string  `json:"document_a"`
	DocumentB string  `json:"document_b"`
	Score     float64 `json:"score"`
	GroupKey  string  `json:"group_key,omitempty"`
}

// PairKey renders the pair the way text sinks key their output lines.
func (r SimilarityRecord) PairKey() string {
	return r.DocumentA + ", " + r.DocumentB
}

// ScoreLabel renders the score as "Similarity: X.XX".
func (r SimilarityRecord) ScoreLabel() string {
	return fmt.Sprintf("Similarity: %.2f", r.Score)
}

type RunStatus string

const (
	RunQueued              RunStatus = "queued"
	RunRunning             RunStatus = "running"
	RunCompleted           RunStatus = "completed"
	RunCompletedWithErrors RunStatus = "completed_with_errors"
	RunFailed              RunStatus = "failed"
)

// SimilarityRun is one execution of the aggregation stage over every stored record.
type SimilarityRun struct {
	ID         string    `json:"id"`
	Threshold  float64   `json:"threshold"`
	Strategy   string    `json:"strategy"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	Stats      RunStats  `json:"stats"`
	ReportPath string    `json:"report_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type RunStats struct {
	Documents     int   `json:"documents"`
	Groups        int   `json:"groups"`
	FaultedGroups int   `json:"faulted_groups"`
	Malformed     int   `json:"malformed"`
	Compared      int64 `json:"compared"`
	Emitted       int   `json:"emitted"`
}

// ReportPath is the object storage key of a run's text report.
func ReportPath(runID string) string {
	return "runs/" + runID + "/part-r-00000"
}

// ValidateThreshold accepts cutoffs in [0,1). NaN is rejected: no score compares above it.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold >= 1 {
		return WrapError(ErrInvalidInput, "validate threshold", fmt.Errorf("threshold %v outside [0,1)", threshold))
	}
	return nil
}
