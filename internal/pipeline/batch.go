package pipeline

import (
	"context"
	"fmt"
	"time"

	"callcenter-insights-go/internal/logger"
	"callcenter-insights-go/internal/manifest"
)

// BatchSummary aggregates outcomes across a batch run.
type BatchSummary struct {
	TotalCalls  int                `json:"total_calls"`
	Completed   int                `json:"completed"`
	WithErrors  int                `json:"completed_with_errors"`
	Failed      int                `json:"failed"`
	StepSuccess map[string]float64 `json:"step_success_rates"`
	DurationMs  int64              `json:"duration_ms"`
}

// BatchResult is the document produced by a manifest-driven batch run.
type BatchResult struct {
	BatchID   string       `json:"batch_id"`
	StartedAt time.Time    `json:"started_at"`
	Results   []Result     `json:"results"`
	Summary   BatchSummary `json:"summary"`
}

// ProcessBatch runs every manifest record through the pipeline sequentially.
// Calls are independent; one failing call never stops the batch. Cancellation
// of ctx stops between calls.
func (p *Pipeline) ProcessBatch(ctx context.Context, batchID string, records []manifest.CallRecord) BatchResult {
	start := time.Now()
	log := logger.New().WithComponent("pipeline").WithField("batch_id", batchID)
	log.WithField("total_calls", len(records)).Info("batch processing started")

	batch := BatchResult{BatchID: batchID, StartedAt: start}
	stepCounts := map[string]int{}
	stepSuccesses := map[string]int{}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			log.WithField("processed", i).Warn("batch cancelled")
			break
		}
		log.WithField("progress", BatchLabel(i, len(records))).Info("processing call")
		res := p.ProcessCall(ctx, rec.AudioURL, "")
		if rec.CallID != "" && res.FileIdentifier == "" {
			res.FileIdentifier = rec.CallID
		}
		batch.Results = append(batch.Results, res)

		for step, outcome := range res.ProcessingSummary {
			stepCounts[step]++
			if outcome == StepSuccess {
				stepSuccesses[step]++
			}
		}
	}

	batch.Summary = summarizeBatch(batch.Results, stepCounts, stepSuccesses)
	batch.Summary.DurationMs = time.Since(start).Milliseconds()
	log.WithField("completed", batch.Summary.Completed).
		WithField("failed", batch.Summary.Failed).
		Info("batch processing finished")
	return batch
}

func summarizeBatch(results []Result, stepCounts, stepSuccesses map[string]int) BatchSummary {
	summary := BatchSummary{
		TotalCalls:  len(results),
		StepSuccess: map[string]float64{},
	}
	for _, res := range results {
		switch res.Status {
		case StatusCompleted:
			summary.Completed++
		case StatusCompletedWithErrors:
			summary.WithErrors++
		default:
			summary.Failed++
		}
	}
	for step, total := range stepCounts {
		if total == 0 {
			continue
		}
		rate := float64(stepSuccesses[step]) / float64(total) * 100
		summary.StepSuccess[step] = float64(int(rate*10+0.5)) / 10
	}
	return summary
}

// BatchLabel renders the batch progress line used in logs.
func BatchLabel(index, total int) string {
	return fmt.Sprintf("call %d/%d", index+1, total)
}
