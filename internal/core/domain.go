package core

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// DefaultCategory is assigned when no classifier is available or it cannot decide.
const DefaultCategory = "General"

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// MaxDescriptionLength bounds transaction descriptions, in characters.
const MaxDescriptionLength = 200

// DefaultBudget is the budget given to newly registered users.
var DefaultBudget = decimal.NewFromInt(5000)

type (
	User struct {
		ID             int64           `db:"id"`
		Email          string          `db:"email"`
		HashedPassword string          `db:"hashed_password"`
		Budget         decimal.Decimal `db:"budget"`
	}

	Transaction struct {
		ID          int64           `db:"id"`
		Description string          `db:"description"`
		Amount      decimal.Decimal `db:"amount"`
		Category    string          `db:"category"`
		UserID      int64           `db:"user_id"`
	}
)

// Error taxonomy. Producers wrap these with fmt.Errorf("...: %w", err) and the
// HTTP layer maps them to status codes with errors.Is.
var (
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
)

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrInvalidBudget      = errors.New("Invalid budget amount")
)

// Invalid marks a detail error as a validation failure.
func Invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// NormalizeEmail trims and lowercases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateCredentials checks the shape of registration input.
func ValidateCredentials(email, password string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// Validate checks a transaction before it is persisted. Negative amounts are
// accepted: they reduce the total spent.
func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if t.Amount.Abs().GreaterThan(MaxAmount) {
		return ErrInvalidAmount
	}
	if t.UserID <= 0 {
		return errors.New("transaction has no owner")
	}
	return nil
}

// ValidateBudget accepts only strictly positive budgets up to MaxAmount.
func ValidateBudget(amount decimal.Decimal) error {
	if !amount.IsPositive() || amount.GreaterThan(MaxAmount) {
		return ErrInvalidBudget
	}
	return nil
}
