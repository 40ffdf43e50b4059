package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// TransactionPublisher announces transactions created by the processor.
type TransactionPublisher interface {
	PublishTransactionEvent(ctx context.Context, tx core.Transaction) error
}

// RecurringProcessor creates transactions from due recurring templates.
type RecurringProcessor struct {
	store     storage.RecurringStore
	publisher TransactionPublisher
	interval  time.Duration
	now       func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRecurringProcessor returns a processor that runs every interval once
// started. publisher may be nil, in which case no events are sent.
func NewRecurringProcessor(store storage.RecurringStore, publisher TransactionPublisher, interval time.Duration) *RecurringProcessor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RecurringProcessor{
		store:     store,
		publisher: publisher,
		interval:  interval,
		now:       time.Now,
	}
}

// ProcessDue creates one transaction for every template due on now's day and
// returns how many were created. A failing template is logged and skipped.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.store.ActiveRecurring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("get active recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"total_active", len(templates),
		"processing_date", core.DateOf(now).String())

	processed := 0
	for _, re := range templates {
		due, err := IsDue(re, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to check if recurring transaction is due",
				"recurring_id", re.ID,
				"error", err)
			continue
		}
		if !due {
			continue
		}

		tx := core.Transaction{
			UserID:      re.UserID,
			CategoryID:  re.CategoryID,
			Amount:      re.Amount,
			Date:        core.DateOf(now),
			Description: re.Description,
			Source:      core.SourceRecurring,
			CreatedAt:   now,
		}
		id, err := p.store.CreateTransaction(ctx, tx)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create transaction from recurring template",
				"recurring_id", re.ID,
				"description", re.Description,
				"error", err)
			continue
		}
		tx.ID = id

		// the transaction exists; a failed update only means a possible retry
		if err := p.store.MarkRecurringExecuted(ctx, re.ID, now); err != nil {
			slog.ErrorContext(ctx, "Failed to update last execution date",
				"recurring_id", re.ID,
				"error", err)
		}

		if p.publisher != nil {
			if err := p.publisher.PublishTransactionEvent(ctx, tx); err != nil {
				slog.ErrorContext(ctx, "Failed to publish transaction event",
					"transaction_id", id,
					"error", err)
			}
		}

		processed++
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"recurring_id", re.ID,
			"transaction_id", id,
			"amount_cents", core.ToCents(re.Amount),
			"frequency", re.Every)
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"processed", processed,
		"total_checked", len(templates))

	return processed, nil
}

// Start runs ProcessDue immediately and then on every tick until Stop or ctx
// cancellation. It fails if the processor is already running.
func (p *RecurringProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("recurring processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Recurring processor started", "interval", p.interval)
	return nil
}

// Stop signals the loop and waits for the current run to finish.
func (p *RecurringProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Recurring processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Recurring processor stop timed out")
		return ctx.Err()
	}
}

func (p *RecurringProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *RecurringProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.runOnce(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *RecurringProcessor) runOnce(ctx context.Context) {
	if _, err := p.ProcessDue(ctx, p.now()); err != nil {
		slog.ErrorContext(ctx, "Recurring processing failed", "error", err)
	}
}
