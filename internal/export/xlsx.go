// Package export turns the ordered ledger into tabular artifacts.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"samplace/internal/core"
)

const (
	SheetName = "Transactions"
	FileName  = "transactions.xlsx"
	MIMEType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Header lists the exported columns in order.
var Header = []string{"id", "trans_date", "description", "income", "expenses", "balance"}

// Rows returns the header followed by one row per transaction, in the order given.
func Rows(txs []core.Transaction) [][]interface{} {
	out := make([][]interface{}, 0, len(txs)+1)

	head := make([]interface{}, len(Header))
	for i, h := range Header {
		head[i] = h
	}
	out = append(out, head)

	for _, t := range txs {
		out = append(out, []interface{}{
			t.ID,
			t.Date.String(),
			t.Description,
			t.Income.Float(),
			t.Expenses.Float(),
			t.Balance.Float(),
		})
	}
	return out
}

// XLSX renders txs as a single-sheet workbook held in memory.
func XLSX(txs []core.Transaction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, row := range Rows(txs) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("cell name for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := styleSheet(f, len(txs)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func styleSheet(f *excelize.File, n int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "F1", bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	if err := f.SetColWidth(SheetName, "B", "B", 12); err != nil {
		return fmt.Errorf("date width: %w", err)
	}
	if err := f.SetColWidth(SheetName, "C", "C", 40); err != nil {
		return fmt.Errorf("description width: %w", err)
	}
	if err := f.SetColWidth(SheetName, "D", "F", 14); err != nil {
		return fmt.Errorf("amount width: %w", err)
	}

	if n == 0 {
		return nil
	}
	// Built-in format 4 is "#,##0.00".
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(6, n+1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "D2", last, amount); err != nil {
		return fmt.Errorf("apply amount style: %w", err)
	}
	return nil
}
