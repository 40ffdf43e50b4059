// Package worker turns transaction events into budget alerts.
package worker

//go:generate mockgen -source=alert_worker.go -destination=mock_worker.go -package=worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// CategoryAnalyzer analyzes one category over the month containing day.
type CategoryAnalyzer interface {
	CategoryAlert(ctx context.Context, userID, categoryID int64, day core.Date) (*analytics.CategoryMetric, error)
}

type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// AlertWorker publishes a BudgetAlertMessage when a transaction pushes its
// category into warning or over budget for the month.
type AlertWorker struct {
	analyzer  CategoryAnalyzer
	publisher AlertPublisher
	now       func() time.Time
}

func NewAlertWorker(analyzer CategoryAnalyzer, publisher AlertPublisher) *AlertWorker {
	return &AlertWorker{analyzer: analyzer, publisher: publisher, now: time.Now}
}

// alerting lists the statuses that produce an alert.
var alerting = map[analytics.CategoryStatus]bool{
	analytics.StatusWarning:    true,
	analytics.StatusOverBudget: true,
}

// HandleTransactionEvent processes one event. Returned errors ask the
// consumer to requeue; events that can never alert return nil.
func (w *AlertWorker) HandleTransactionEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	day, err := msg.Day()
	if err != nil {
		slog.WarnContext(ctx, "Dropping transaction event with invalid date",
			"id", msg.ID,
			"date", msg.Date,
			"error", err)
		return nil
	}

	metric, err := w.analyzer.CategoryAlert(ctx, msg.UserID, msg.CategoryID, day)
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, core.ErrInvalidUser):
		// income categories and foreign users have nothing to alert on
		return nil
	case err != nil:
		return fmt.Errorf("analyze category %d: %w", msg.CategoryID, err)
	}

	if metric.Budget <= 0 || !alerting[metric.Status] {
		slog.DebugContext(ctx, "Category within budget",
			"user_id", msg.UserID,
			"category_id", msg.CategoryID,
			"status", metric.Status)
		return nil
	}

	alert := &amqp.BudgetAlertMessage{
		MessageID:      uuid.NewString(),
		UserID:         msg.UserID,
		CategoryID:     metric.CategoryID,
		Category:       metric.Category,
		Month:          day.Format(core.MonthLayout),
		Spent:          metric.Spent,
		Budget:         metric.Budget,
		Percentage:     metric.Percentage,
		Status:         string(metric.Status),
		Recommendation: metric.Recommendation.Message,
		Timestamp:      w.now().UTC(),
	}
	if err := w.publisher.PublishBudgetAlert(ctx, alert); err != nil {
		return fmt.Errorf("publish budget alert: %w", err)
	}

	slog.InfoContext(ctx, "Budget alert raised",
		"user_id", alert.UserID,
		"category", alert.Category,
		"percentage", alert.Percentage,
		"status", alert.Status)
	return nil
}
