package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the ISO calendar date format used for storage and forms.
const DateLayout = "2006-01-02"

// MaxDescriptionLength bounds the free-text description.
const MaxDescriptionLength = 200

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single dated ledger entry. Balance is derived by
	// Recalculate and is never taken from user input.
	Transaction struct {
		ID          int64
		Date        Date
		Description string
		Income      Money
		Expenses    Money
		Balance     Money
	}

	// Summary holds the three headline figures shown above the ledger.
	Summary struct {
		Count          int
		TotalIncome    Money
		TotalExpenses  Money
		CurrentBalance Money
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNegativeAmount     = errors.New("amount cannot be negative")
	ErrZeroAmounts        = errors.New("either income or expenses must be greater than 0")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrNotFound           = errors.New("transaction not found")
)

// ValidationError reports user input that violates a ledger rule.
// Operations that fail with it leave the store untouched.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StoreError wraps an underlying persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Net returns income minus expenses.
func (t Transaction) Net() Money {
	return t.Income.Sub(t.Expenses)
}

// Validate checks the rules every stored record must satisfy.
func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Err: ErrDescriptionTooLong}
	}
	if t.Income.Cents < 0 {
		return &ValidationError{Field: "income", Err: ErrNegativeAmount}
	}
	if t.Expenses.Cents < 0 {
		return &ValidationError{Field: "expenses", Err: ErrNegativeAmount}
	}
	if t.Income.Cents > MaxAmountCents {
		return &ValidationError{Field: "income", Err: ErrInvalidAmount}
	}
	if t.Expenses.Cents > MaxAmountCents {
		return &ValidationError{Field: "expenses", Err: ErrInvalidAmount}
	}
	if t.Income.Cents == 0 && t.Expenses.Cents == 0 {
		return &ValidationError{Field: "amount", Err: ErrZeroAmounts}
	}
	return nil
}
