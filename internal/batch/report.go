package batch

import (
	"fmt"
	"time"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

// BatchReport summarizes one checkpointed batch.
type BatchReport struct {
	Number    int           `json:"batch_number"`
	Members   []string      `json:"members"`
	Processed int           `json:"processed"`
	Total     int           `json:"total"`
	Failed    []string      `json:"failed,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Report is the outcome of a whole batch run.
type Report struct {
	RunID      string        `json:"run_id"`
	Processed  int           `json:"processed"`
	Total      int           `json:"total"`
	Ratio      float64       `json:"ratio"`
	Threshold  float64       `json:"threshold"`
	Success    bool          `json:"success"`
	Reason     string        `json:"reason,omitempty"`
	Batches    []BatchReport `json:"batches"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Summary renders the "X of Y documents extracted" line.
func (r Report) Summary() string {
	return fmt.Sprintf("%d of %d documents extracted", r.Processed, r.Total)
}

// Err returns common.ErrNoFiles for an empty run and nil otherwise. A ratio
// below threshold is an outcome, not an error.
func (r Report) Err() error {
	if r.Total == 0 {
		return common.ErrNoFiles
	}
	return nil
}

// ratioEpsilon absorbs float error at the exact boundary (9/10 vs 0.9).
const ratioEpsilon = 1e-9

func (r *Report) finish(threshold float64) {
	r.Threshold = threshold
	r.FinishedAt = time.Now()
	if r.Total == 0 {
		r.Success = false
		r.Reason = "no files"
		return
	}
	r.Ratio = float64(r.Processed) / float64(r.Total)
	r.Success = r.Ratio+ratioEpsilon >= threshold
	if !r.Success {
		r.Reason = fmt.Sprintf("success ratio %.2f below %.2f", r.Ratio, threshold)
	}
}
