package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/hostelcore/hostelcore/internal/jobs"
)

// AuditReportJob summarises audit activity over the trailing window. The
// trail itself is append-only; the report only counts, it never mutates.
type AuditReportJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAuditReportJob initialises the audit report handler.
func NewAuditReportJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditReportJob {
	return &AuditReportJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the audit summary.
func (j *AuditReportJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("audit report: handler not configured")
	}
	var payload AuditReportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowHours <= 0 {
		payload.WindowHours = 24
	}

	tracker := j.Metrics.Track(TaskAuditReport)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	since := j.now().Add(-time.Duration(payload.WindowHours) * time.Hour)
	rows, err := j.Pool.Query(ctx, `
		SELECT action, COUNT(*)
		FROM authz_audit
		WHERE occurred_at >= $1
		GROUP BY action
		ORDER BY action`,
		since,
	)
	if err != nil {
		resultErr = err
		j.logger().Error("audit report query", slog.Any("error", err))
		return resultErr
	}
	defer rows.Close()

	logger := j.logger().With(slog.Int("window_hours", payload.WindowHours))
	total := 0
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			resultErr = err
			return resultErr
		}
		total += count
		logger.Info("audit activity", slog.String("action", action), slog.Int("count", count))
	}
	if err := rows.Err(); err != nil {
		resultErr = err
		return resultErr
	}
	logger.Info("audit report complete", slog.Int("total", total))
	return nil
}

func (j *AuditReportJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *AuditReportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
