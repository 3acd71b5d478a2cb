package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"brokemate/internal/amqp"
	"brokemate/internal/core"
)

// TransactionRepository is the storage the service persists through.
type TransactionRepository interface {
	CreateTransaction(ctx context.Context, t *core.Transaction) error
	ListTransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, id, userID int64) error
	UpdateBudget(ctx context.Context, userID int64, budget decimal.Decimal) error
}

// Categorizer assigns a category to a description and never fails.
type Categorizer interface {
	Categorize(ctx context.Context, description string) string
}

// EventPublisher announces transaction changes.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, e amqp.TransactionEvent) error
}

// TransactionService orchestrates classification, storage and AMQP events.
type TransactionService struct {
	repo        TransactionRepository
	categorizer Categorizer
	events      EventPublisher
}

// NewTransactionService wires the service. events may be nil when AMQP is not configured.
func NewTransactionService(repo TransactionRepository, categorizer Categorizer, events EventPublisher) *TransactionService {
	return &TransactionService{
		repo:        repo,
		categorizer: categorizer,
		events:      events,
	}
}

// Create classifies, stores and announces a new transaction for userID.
func (s *TransactionService) Create(ctx context.Context, userID int64, description string, amount decimal.Decimal) (core.Transaction, error) {
	t := core.Transaction{
		Description: strings.TrimSpace(description),
		Amount:      amount,
		Category:    core.DefaultCategory,
		UserID:      userID,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, core.Invalid(err)
	}

	if s.categorizer != nil {
		t.Category = s.categorizer.Categorize(ctx, t.Description)
	}

	if err := s.repo.CreateTransaction(ctx, &t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	// The transaction is already stored; a failed announcement must not fail the request.
	s.publish(ctx, amqp.NewCreatedEvent(t))

	return t, nil
}

// Delete removes a transaction owned by userID. Transactions that do not exist
// or belong to someone else yield core.ErrNotFound.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteTransaction(ctx, id, userID); err != nil {
		return err
	}

	s.publish(ctx, amqp.NewDeletedEvent(id, userID))
	return nil
}

// Summary returns the budget overview for u.
func (s *TransactionService) Summary(ctx context.Context, u core.User) (core.Summary, error) {
	txs, err := s.repo.ListTransactionsByUser(ctx, u.ID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.Summarize(u, txs), nil
}

// SpendingByCategory sums userID's transactions per category in first-seen order.
func (s *TransactionService) SpendingByCategory(ctx context.Context, userID int64) ([]core.CategoryAmount, error) {
	txs, err := s.repo.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return core.GroupByCategory(txs), nil
}

// UpdateBudget sets a strictly positive budget for userID.
func (s *TransactionService) UpdateBudget(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := core.ValidateBudget(amount); err != nil {
		return decimal.Zero, core.Invalid(err)
	}
	if err := s.repo.UpdateBudget(ctx, userID, amount); err != nil {
		return decimal.Zero, err
	}

	slog.InfoContext(ctx, "Budget updated", "user_id", userID, "budget", amount.String())
	return amount, nil
}

func (s *TransactionService) publish(ctx context.Context, e amqp.TransactionEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"type", e.Type,
			"transaction_id", e.TransactionID,
			"error", err)
	}
}
