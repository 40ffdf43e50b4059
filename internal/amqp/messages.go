package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// TransactionEventMessage announces a stored transaction. It carries enough
// for a consumer to locate the affected category and month without reading
// the transaction back.
type TransactionEventMessage struct {
	MessageID   string    `json:"message_id"`
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	CategoryID  int64     `json:"category_id"`
	AmountCents int64     `json:"amount_cents"`
	Date        string    `json:"date"`
	Source      string    `json:"source"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewTransactionEventMessage(tx core.Transaction) *TransactionEventMessage {
	return &TransactionEventMessage{
		MessageID:   uuid.NewString(),
		ID:          tx.ID,
		UserID:      tx.UserID,
		CategoryID:  tx.CategoryID,
		AmountCents: core.ToCents(tx.Amount),
		Date:        tx.Date.String(),
		Source:      tx.Source,
		Timestamp:   time.Now().UTC(),
	}
}

// Day parses the transaction date.
func (m *TransactionEventMessage) Day() (core.Date, error) {
	return core.ParseDate(m.Date)
}

func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BudgetAlertMessage reports a category nearing or over its budget.
type BudgetAlertMessage struct {
	MessageID      string    `json:"message_id"`
	UserID         int64     `json:"user_id"`
	CategoryID     int64     `json:"category_id"`
	Category       string    `json:"category"`
	Month          string    `json:"month"`
	Spent          float64   `json:"spent"`
	Budget         float64   `json:"budget"`
	Percentage     float64   `json:"percentage"`
	Status         string    `json:"status"`
	Recommendation string    `json:"recommendation"`
	Timestamp      time.Time `json:"timestamp"`
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
