package worker

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func event(categoryID int64, date string) *amqp.TransactionEventMessage {
	return &amqp.TransactionEventMessage{ID: 1, UserID: 1, CategoryID: categoryID, AmountCents: 1000, Date: date}
}

func TestAlertWorker_PublishesForAlertingStatuses(t *testing.T) {
	for _, status := range []analytics.CategoryStatus{analytics.StatusWarning, analytics.StatusOverBudget} {
		t.Run(string(status), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			analyzer := NewMockCategoryAnalyzer(ctrl)
			publisher := NewMockAlertPublisher(ctrl)
			w := NewAlertWorker(analyzer, publisher)

			analyzer.EXPECT().
				CategoryAlert(gomock.Any(), int64(1), int64(4), core.NewDate(2025, 3, 5)).
				Return(&analytics.CategoryMetric{
					CategoryID:     4,
					Category:       "Groceries",
					Spent:          450,
					Budget:         500,
					Percentage:     90,
					Status:         status,
					Recommendation: analytics.Recommendation{ID: "budget_approaching", Message: "close to budget"},
				}, nil)

			var sent *amqp.BudgetAlertMessage
			publisher.EXPECT().
				PublishBudgetAlert(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, msg *amqp.BudgetAlertMessage) error {
					sent = msg
					return nil
				})

			require.NoError(t, w.HandleTransactionEvent(context.Background(), event(4, "2025-03-05")))
			require.NotNil(t, sent)
			assert.Equal(t, "Groceries", sent.Category)
			assert.Equal(t, "2025-03", sent.Month)
			assert.Equal(t, string(status), sent.Status)
			assert.Equal(t, "close to budget", sent.Recommendation)
			assert.NotEmpty(t, sent.MessageID)
		})
	}
}

func TestAlertWorker_SkipsQuietCases(t *testing.T) {
	tests := []struct {
		name   string
		metric *analytics.CategoryMetric
		err    error
	}{
		{"within budget", &analytics.CategoryMetric{Budget: 500, Spent: 100, Percentage: 20, Status: analytics.StatusExcellent}, nil},
		{"no budget", &analytics.CategoryMetric{Budget: 0, Spent: 100, Status: analytics.StatusWarning}, nil},
		{"income category", nil, storage.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			analyzer := NewMockCategoryAnalyzer(ctrl)
			publisher := NewMockAlertPublisher(ctrl)
			w := NewAlertWorker(analyzer, publisher)

			analyzer.EXPECT().CategoryAlert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(tt.metric, tt.err)
			publisher.EXPECT().PublishBudgetAlert(gomock.Any(), gomock.Any()).Times(0)

			assert.NoError(t, w.HandleTransactionEvent(context.Background(), event(4, "2025-03-05")))
		})
	}
}

func TestAlertWorker_InvalidDateIsDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := NewAlertWorker(NewMockCategoryAnalyzer(ctrl), NewMockAlertPublisher(ctrl))

	assert.NoError(t, w.HandleTransactionEvent(context.Background(), event(4, "05/03/2025")))
}

func TestAlertWorker_ErrorsRequeue(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := NewMockCategoryAnalyzer(ctrl)
	publisher := NewMockAlertPublisher(ctrl)
	w := NewAlertWorker(analyzer, publisher)

	analyzer.EXPECT().CategoryAlert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrUnavailable)
	err := w.HandleTransactionEvent(context.Background(), event(4, "2025-03-05"))
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	analyzer.EXPECT().CategoryAlert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&analytics.CategoryMetric{Budget: 100, Spent: 150, Percentage: 150, Status: analytics.StatusOverBudget}, nil)
	publisher.EXPECT().PublishBudgetAlert(gomock.Any(), gomock.Any()).Return(amqp.ErrCircuitOpen)
	err = w.HandleTransactionEvent(context.Background(), event(4, "2025-03-05"))
	assert.ErrorIs(t, err, amqp.ErrCircuitOpen)
}

func TestAlertWorker_WithAnalyticsService(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	defer store.Close()

	category, err := store.CreateCategory(ctx, core.Category{UserID: 1, Name: "Dining", Type: core.Expense, BudgetLimit: decimal.NewFromInt(200)})
	require.NoError(t, err)
	for _, day := range []int{2, 9} {
		_, err := store.CreateTransaction(ctx, core.Transaction{UserID: 1, CategoryID: category, Amount: decimal.NewFromInt(90), Date: core.NewDate(2025, 3, day)})
		require.NoError(t, err)
	}

	ctrl := gomock.NewController(t)
	publisher := NewMockAlertPublisher(ctrl)
	publisher.EXPECT().
		PublishBudgetAlert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *amqp.BudgetAlertMessage) error {
			assert.Equal(t, 90.0, msg.Percentage)
			assert.Equal(t, string(analytics.StatusWarning), msg.Status)
			return nil
		})

	w := NewAlertWorker(services.NewAnalyticsService(store), publisher)
	w.now = func() time.Time { return time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC) }

	msg := &amqp.TransactionEventMessage{ID: 2, UserID: 1, CategoryID: category, AmountCents: 9000, Date: "2025-03-09"}
	require.NoError(t, w.HandleTransactionEvent(ctx, msg))
}

func TestAlertWorker_ForeignUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := NewMockCategoryAnalyzer(ctrl)
	analyzer.EXPECT().CategoryAlert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, core.ErrInvalidUser)
	w := NewAlertWorker(analyzer, NewMockAlertPublisher(ctrl))

	assert.NoError(t, w.HandleTransactionEvent(context.Background(), event(4, "2025-03-05")))
}
