package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"brokemate/internal/core"
)

const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
)

// TransactionEvent announces a change to a user's transactions. Amount is
// encoded as a decimal string so consumers see the exact stored value.
type TransactionEvent struct {
	Type          string          `json:"type"`
	TransactionID int64           `json:"transaction_id"`
	UserID        int64           `json:"user_id"`
	Category      string          `json:"category,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Timestamp     time.Time       `json:"timestamp"`
}

func NewCreatedEvent(t core.Transaction) TransactionEvent {
	return TransactionEvent{
		Type:          EventTransactionCreated,
		TransactionID: t.ID,
		UserID:        t.UserID,
		Category:      t.Category,
		Amount:        t.Amount,
		Timestamp:     time.Now().UTC(),
	}
}

func NewDeletedEvent(id, userID int64) TransactionEvent {
	return TransactionEvent{
		Type:          EventTransactionDeleted,
		TransactionID: id,
		UserID:        userID,
		Timestamp:     time.Now().UTC(),
	}
}

func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func TransactionEventFromJSON(data []byte) (TransactionEvent, error) {
	var e TransactionEvent
	err := json.Unmarshal(data, &e)
	return e, err
}
