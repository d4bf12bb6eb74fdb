package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

// TransactionRow mirrors one row of the transactions table.
type TransactionRow struct {
	ID          int64
	TransDate   string
	Description string
	Income      float64
	Expenses    float64
	Balance     float64
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, trans_date, description, income, expenses, balance
FROM transactions
ORDER BY trans_date ASC, id ASC
`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(
			&i.ID,
			&i.TransDate,
			&i.Description,
			&i.Income,
			&i.Expenses,
			&i.Balance,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTransaction = `-- name: GetTransaction :one
SELECT id, trans_date, description, income, expenses, balance
FROM transactions
WHERE id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i TransactionRow
	err := row.Scan(
		&i.ID,
		&i.TransDate,
		&i.Description,
		&i.Income,
		&i.Expenses,
		&i.Balance,
	)
	return i, err
}

const getLastBalance = `-- name: GetLastBalance :one
SELECT balance
FROM transactions
ORDER BY trans_date DESC, id DESC
LIMIT 1
`

func (q *Queries) GetLastBalance(ctx context.Context) (float64, error) {
	row := q.db.QueryRowContext(ctx, getLastBalance)
	var balance float64
	err := row.Scan(&balance)
	return balance, err
}

const createTransaction = `-- name: CreateTransaction :execlastid
INSERT INTO transactions (trans_date, description, income, expenses, balance)
VALUES (?, ?, ?, ?, ?)
`

type CreateTransactionParams struct {
	TransDate   string
	Description string
	Income      float64
	Expenses    float64
	Balance     float64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, createTransaction,
		arg.TransDate,
		arg.Description,
		arg.Income,
		arg.Expenses,
		arg.Balance,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const updateTransaction = `-- name: UpdateTransaction :execrows
UPDATE transactions
SET trans_date = ?, description = ?, income = ?, expenses = ?
WHERE id = ?
`

type UpdateTransactionParams struct {
	TransDate   string
	Description string
	Income      float64
	Expenses    float64
	ID          int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTransaction,
		arg.TransDate,
		arg.Description,
		arg.Income,
		arg.Expenses,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions
WHERE id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setBalance = `-- name: SetBalance :exec
UPDATE transactions
SET balance = ?
WHERE id = ?
`

type SetBalanceParams struct {
	Balance float64
	ID      int64
}

func (q *Queries) SetBalance(ctx context.Context, arg SetBalanceParams) error {
	_, err := q.db.ExecContext(ctx, setBalance, arg.Balance, arg.ID)
	return err
}

const countTransactions = `-- name: CountTransactions :one
SELECT COUNT(*) FROM transactions
`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTransactions)
	var count int64
	err := row.Scan(&count)
	return count, err
}
