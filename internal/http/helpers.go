package http

import (
	"strings"

	"samplace/internal/core"
)

// transactionView is one table row, formatted for display.
type transactionView struct {
	ID          int64
	Date        string
	Description string
	Income      string
	Expenses    string
	Balance     string
	Negative    bool
}

type summaryView struct {
	Count          int
	TotalIncome    string
	TotalExpenses  string
	CurrentBalance string
	Negative       bool
}

// editView fills the edit form. Amounts use the plain "1234.50" form so
// they round-trip through ParseAmount.
type editView struct {
	ID          int64
	Date        string
	Description string
	Income      string
	Expenses    string
}

func newTransactionViews(txs []core.Transaction, label string) []transactionView {
	views := make([]transactionView, len(txs))
	for i, t := range txs {
		views[i] = transactionView{
			ID:          t.ID,
			Date:        t.Date.String(),
			Description: t.Description,
			Income:      formatAmount(t.Income, label),
			Expenses:    formatAmount(t.Expenses, label),
			Balance:     t.Balance.Format(label),
			Negative:    t.Balance.Cents < 0,
		}
	}
	return views
}

func newSummaryView(s core.Summary, label string) summaryView {
	return summaryView{
		Count:          s.Count,
		TotalIncome:    s.TotalIncome.Format(label),
		TotalExpenses:  s.TotalExpenses.Format(label),
		CurrentBalance: s.CurrentBalance.Format(label),
		Negative:       s.CurrentBalance.Cents < 0,
	}
}

func newEditView(t core.Transaction) editView {
	return editView{
		ID:          t.ID,
		Date:        t.Date.String(),
		Description: t.Description,
		Income:      plainAmount(t.Income),
		Expenses:    plainAmount(t.Expenses),
	}
}

// formatAmount leaves zero amounts blank so the income and expense columns
// read like a paper ledger.
func formatAmount(m core.Money, label string) string {
	if m.Cents == 0 {
		return ""
	}
	return m.Format(label)
}

func plainAmount(m core.Money) string {
	if m.Cents == 0 {
		return ""
	}
	return m.String()
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
