// Package history journals completed pricing runs to SQLite.
package history

import (
	"time"

	"github.com/aristath/qpricing/internal/domain"
)

// RunRecord is one journaled pricing run
type RunRecord struct {
	ID                string                  `json:"id"`
	CreatedAt         time.Time               `json:"created_at"`
	Parameters        domain.OptionParameters `json:"parameters"`
	UncertaintyQubits int                     `json:"uncertainty_qubits"`
	EvaluationQubits  int                     `json:"evaluation_qubits"`
	ExactValue        float64                 `json:"exact_value"`
	EstimatedValue    float64                 `json:"estimated_value"`
	ValueProbability  float64                 `json:"value_probability"`
	ExactDelta        float64                 `json:"exact_delta"`
	EstimatedDelta    float64                 `json:"estimated_delta"`
	DeltaProbability  float64                 `json:"delta_probability"`
	Backend           string                  `json:"backend"`
	ChartDir          string                  `json:"chart_dir,omitempty"`
}
