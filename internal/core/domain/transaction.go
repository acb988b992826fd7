package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is either an expense or an income entry.
type TransactionType string

const (
	TransactionExpense TransactionType = "gasto"
	TransactionIncome  TransactionType = "ingreso"
)

func (t TransactionType) Valid() bool {
	return t == TransactionExpense || t == TransactionIncome
}

// Categories are offered in the transaction form.
var Categories = []string{"Materiales", "Servicios", "Transporte", "Pago", "Otro"}

// DefaultCategory is preselected in the transaction form.
const DefaultCategory = "Materiales"

// DateLayout is the calendar-date format used for transaction dates.
const DateLayout = "2006-01-02"

// Transaction is one cash-flow ledger entry. Amounts are not validated to be
// non-negative; visibility of income entries is a backend policy.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	CreatedBy   string          `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransactionPatch replaces the editable columns of a transaction.
type TransactionPatch struct {
	Type        TransactionType
	Amount      decimal.Decimal
	Category    string
	Description string
	Date        string
}

func (p TransactionPatch) Fields() map[string]any {
	return map[string]any{
		"type":        string(p.Type),
		"amount":      p.Amount,
		"category":    p.Category,
		"description": p.Description,
		"date":        p.Date,
	}
}

func (p TransactionPatch) Apply(t Transaction) Transaction {
	t.Type = p.Type
	t.Amount = p.Amount
	t.Category = p.Category
	t.Description = p.Description
	t.Date = p.Date
	return t
}

// Totals are the cash-flow aggregates derived from a transaction list.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Balance is income minus expense.
func (t Totals) Balance() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}

// ComputeTotals sums amounts per type over the whole list.
func ComputeTotals(txs []Transaction) Totals {
	totals := Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, t := range txs {
		switch t.Type {
		case TransactionIncome:
			totals.Income = totals.Income.Add(t.Amount)
		case TransactionExpense:
			totals.Expense = totals.Expense.Add(t.Amount)
		}
	}
	return totals
}
