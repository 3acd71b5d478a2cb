package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func tx(desc string, amount string, category string) Transaction {
	return Transaction{Description: desc, Amount: decimal.RequireFromString(amount), Category: category, UserID: 1}
}

func TestGroupByCategoryFirstSeenOrder(t *testing.T) {
	txs := []Transaction{
		tx("coffee", "3", "Food"),
		tx("book", "10", "Education"),
		tx("lunch", "7", "Food"),
	}
	got := GroupByCategory(txs)
	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(got))
	}
	if got[0].Name != "Food" || got[1].Name != "Education" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(10)) || !got[1].Amount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected sums: %s, %s", got[0].Amount, got[1].Amount)
	}
}

func TestGroupByCategoryEmpty(t *testing.T) {
	got := GroupByCategory(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestSummarizeMoneyLeftIsExact(t *testing.T) {
	u := User{Email: "a@example.com", Budget: decimal.RequireFromString("100.30")}
	txs := []Transaction{
		tx("a", "0.1", "Food"),
		tx("b", "0.2", "Food"),
		tx("refund", "-5", "Shopping"),
	}
	s := Summarize(u, txs)
	if !s.TotalSpent.Equal(decimal.RequireFromString("-4.7")) {
		t.Fatalf("total spent = %s", s.TotalSpent)
	}
	if !s.MoneyLeft.Equal(u.Budget.Sub(s.TotalSpent)) {
		t.Fatalf("money left = %s", s.MoneyLeft)
	}
	if !s.MoneyLeft.Equal(decimal.RequireFromString("105")) {
		t.Fatalf("money left = %s", s.MoneyLeft)
	}
	if s.Email != u.Email || len(s.Transactions) != 3 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestSummarizeNoTransactions(t *testing.T) {
	s := Summarize(User{Budget: DefaultBudget}, nil)
	if !s.MoneyLeft.Equal(DefaultBudget) || !s.TotalSpent.IsZero() {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Transactions == nil {
		t.Fatalf("transactions must be an empty slice")
	}
}
