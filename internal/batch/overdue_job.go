package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loan-tracker/internal/infrastructure/monitoring"

	"github.com/google/uuid"
)

// OverdueDetector is the part of loan.LoanService the sweep needs.
type OverdueDetector interface {
	DetectOverdueInstallments(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

type OverdueSweepJob struct {
	detector OverdueDetector
	now      func() time.Time
	logger   *slog.Logger
}

func NewOverdueSweepJob(detector OverdueDetector, logger *slog.Logger) *OverdueSweepJob {
	if detector == nil || logger == nil {
		panic("OverdueSweepJob dependencies cannot be nil")
	}
	return &OverdueSweepJob{
		detector: detector,
		now:      time.Now,
		logger:   logger.With("job", "OverdueSweep"),
	}
}

func (j *OverdueSweepJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting overdue installment sweep.")

	affected, err := j.detector.DetectOverdueInstallments(ctx, j.now())
	duration := time.Since(startTime)
	monitoring.RecordOverdueSweep(len(affected), duration)

	summaryLog := j.logger.With(
		slog.Duration("duration", duration),
		slog.Int("loans_changed", len(affected)),
	)
	if err != nil {
		summaryLog.WarnContext(ctx, "Overdue sweep finished with errors.", slog.Any("error", err))
		return fmt.Errorf("overdue sweep completed with errors: %w", err)
	}

	summaryLog.InfoContext(ctx, "Overdue sweep finished successfully.")
	return nil
}
