package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Summary is the budget overview for a single user.
type Summary struct {
	Budget       decimal.Decimal
	TotalSpent   decimal.Decimal
	MoneyLeft    decimal.Decimal
	Transactions []Transaction
	Email        string
}

// Summarize totals the user's transactions against their budget.
// MoneyLeft is always exactly Budget - TotalSpent.
func Summarize(u User, txs []Transaction) Summary {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	if txs == nil {
		txs = []Transaction{}
	}
	return Summary{
		Budget:       u.Budget,
		TotalSpent:   total,
		MoneyLeft:    u.Budget.Sub(total),
		Transactions: txs,
		Email:        u.Email,
	}
}

// GroupByCategory sums amounts per category. Output order is the order in
// which each category is first seen in txs.
func GroupByCategory(txs []Transaction) []CategoryAmount {
	index := make(map[string]int)
	out := make([]CategoryAmount, 0)
	for _, t := range txs {
		i, ok := index[t.Category]
		if !ok {
			index[t.Category] = len(out)
			out = append(out, CategoryAmount{Name: t.Category, Amount: t.Amount})
			continue
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	return out
}
