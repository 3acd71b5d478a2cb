package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokemate/internal/amqp"
	"brokemate/internal/core"
	"brokemate/internal/storage"
)

type fixedCategorizer struct {
	byDescription map[string]string
	calls         int
}

func (f *fixedCategorizer) Categorize(_ context.Context, description string) string {
	f.calls++
	if c, ok := f.byDescription[description]; ok {
		return c
	}
	return core.DefaultCategory
}

type recordingPublisher struct {
	events []amqp.TransactionEvent
	err    error
}

func (r *recordingPublisher) PublishTransactionEvent(_ context.Context, e amqp.TransactionEvent) error {
	r.events = append(r.events, e)
	return r.err
}

func setup(t *testing.T, events EventPublisher) (*TransactionService, *storage.Repository, *fixedCategorizer, core.User) {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.Open(ctx, storage.DriverSQLite, filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	user, err := repo.CreateUser(ctx, "alice@example.com", "hash", core.DefaultBudget)
	require.NoError(t, err)

	cat := &fixedCategorizer{byDescription: map[string]string{
		"coffee": "Food",
		"lunch":  "Food",
		"book":   "Education",
	}}
	return NewTransactionService(repo, cat, events), repo, cat, *user
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreate(t *testing.T) {
	events := &recordingPublisher{}
	svc, _, cat, user := setup(t, events)
	ctx := context.Background()

	tx, err := svc.Create(ctx, user.ID, "  coffee ", amount("3.50"))
	require.NoError(t, err)
	assert.Positive(t, tx.ID)
	assert.Equal(t, "coffee", tx.Description)
	assert.Equal(t, "Food", tx.Category)
	assert.Equal(t, user.ID, tx.UserID)

	require.Len(t, events.events, 1)
	assert.Equal(t, amqp.EventTransactionCreated, events.events[0].Type)
	assert.Equal(t, tx.ID, events.events[0].TransactionID)

	t.Run("unclassified description gets default", func(t *testing.T) {
		tx, err := svc.Create(ctx, user.ID, "mystery", amount("1"))
		require.NoError(t, err)
		assert.Equal(t, core.DefaultCategory, tx.Category)
	})

	t.Run("invalid description skips classifier", func(t *testing.T) {
		before := cat.calls
		_, err := svc.Create(ctx, user.ID, "   ", amount("1"))
		assert.ErrorIs(t, err, core.ErrValidation)
		assert.ErrorIs(t, err, core.ErrEmptyDescription)
		assert.Equal(t, before, cat.calls)
	})

	t.Run("negative amounts are accepted", func(t *testing.T) {
		tx, err := svc.Create(ctx, user.ID, "refund", amount("-20"))
		require.NoError(t, err)
		assert.True(t, tx.Amount.Equal(amount("-20")))
	})
}

func TestCreate_PublishFailureDoesNotFail(t *testing.T) {
	svc, repo, _, user := setup(t, &recordingPublisher{err: errors.New("broker down")})
	ctx := context.Background()

	_, err := svc.Create(ctx, user.ID, "coffee", amount("2"))
	require.NoError(t, err)

	txs, err := repo.ListTransactionsByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestCreate_WithoutCategorizerOrEvents(t *testing.T) {
	repo, err := storage.Open(context.Background(), storage.DriverSQLite, filepath.Join(t.TempDir(), "bare.db"))
	require.NoError(t, err)
	defer repo.Close()
	user, err := repo.CreateUser(context.Background(), "bob@example.com", "h", core.DefaultBudget)
	require.NoError(t, err)

	svc := NewTransactionService(repo, nil, nil)
	tx, err := svc.Create(context.Background(), user.ID, "coffee", amount("2"))
	require.NoError(t, err)
	assert.Equal(t, core.DefaultCategory, tx.Category)
}

func TestSummaryAndSpendingByCategory(t *testing.T) {
	svc, _, _, user := setup(t, nil)
	ctx := context.Background()

	for _, in := range []struct{ desc, amt string }{
		{"coffee", "5"},
		{"book", "10"},
		{"lunch", "5"},
	} {
		_, err := svc.Create(ctx, user.ID, in.desc, amount(in.amt))
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", summary.Email)
	assert.True(t, summary.TotalSpent.Equal(amount("20")))
	assert.True(t, summary.MoneyLeft.Equal(amount("4980")))
	assert.Len(t, summary.Transactions, 3)

	groups, err := svc.SpendingByCategory(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Food", groups[0].Name)
	assert.True(t, groups[0].Amount.Equal(amount("10")))
	assert.Equal(t, "Education", groups[1].Name)
	assert.True(t, groups[1].Amount.Equal(amount("10")))
}

func TestSummary_NoTransactions(t *testing.T) {
	svc, _, _, user := setup(t, nil)

	summary, err := svc.Summary(context.Background(), user)
	require.NoError(t, err)
	assert.NotNil(t, summary.Transactions)
	assert.Empty(t, summary.Transactions)
	assert.True(t, summary.MoneyLeft.Equal(core.DefaultBudget))

	groups, err := svc.SpendingByCategory(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestDelete(t *testing.T) {
	events := &recordingPublisher{}
	svc, repo, _, alice := setup(t, events)
	ctx := context.Background()

	bob, err := repo.CreateUser(ctx, "bob@example.com", "h", core.DefaultBudget)
	require.NoError(t, err)

	tx, err := svc.Create(ctx, alice.ID, "coffee", amount("3"))
	require.NoError(t, err)

	err = svc.Delete(ctx, bob.ID, tx.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, alice.ID, tx.ID))
	assert.ErrorIs(t, svc.Delete(ctx, alice.ID, tx.ID), core.ErrNotFound)

	require.Len(t, events.events, 2)
	assert.Equal(t, amqp.EventTransactionDeleted, events.events[1].Type)
	assert.Equal(t, tx.ID, events.events[1].TransactionID)
}

func TestUpdateBudget(t *testing.T) {
	svc, repo, _, user := setup(t, nil)
	ctx := context.Background()

	got, err := svc.UpdateBudget(ctx, user.ID, amount("1500.25"))
	require.NoError(t, err)
	assert.Equal(t, "1500.25", got.String())

	stored, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Budget.Equal(amount("1500.25")))

	for _, bad := range []string{"0", "-10"} {
		_, err := svc.UpdateBudget(ctx, user.ID, amount(bad))
		assert.ErrorIs(t, err, core.ErrValidation, bad)
		assert.ErrorIs(t, err, core.ErrInvalidBudget, bad)
	}

	stored, err = repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Budget.Equal(amount("1500.25")), "rejected update must not change budget")
}
