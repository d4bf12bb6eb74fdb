package core

// Recalculate derives every running balance from the ordered sequence in a
// single pass: balance[i] = balance[i-1] + income[i] - expenses[i], starting
// from zero. txs must already be ordered by date then id. The input slice is
// not modified; running it on its own output yields the same balances.
func Recalculate(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	var running Money
	for i, t := range txs {
		running = running.Add(t.Net())
		t.Balance = running
		out[i] = t
	}
	return out
}

// Summarize returns the totals over an already recalculated sequence.
func Summarize(txs []Transaction) Summary {
	s := Summary{Count: len(txs)}
	for _, t := range txs {
		s.TotalIncome = s.TotalIncome.Add(t.Income)
		s.TotalExpenses = s.TotalExpenses.Add(t.Expenses)
	}
	if len(txs) > 0 {
		s.CurrentBalance = txs[len(txs)-1].Balance
	}
	return s
}

// BalancesChanged reports whether any balance differs between two sequences
// of equal length. Sequences of different length always differ.
func BalancesChanged(before, after []Transaction) bool {
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		if before[i].Balance != after[i].Balance {
			return true
		}
	}
	return false
}
