package view

import "github.com/electrix/tracker/internal/core/domain"

// CashFlow is the transaction ledger with its derived totals.
type CashFlow struct {
	Meta

	Transactions []domain.Transaction `json:"transactions"`
	Totals       domain.Totals        `json:"totals"`
	// EditingID is the transaction loaded into the form, if any.
	EditingID string `json:"editing_id,omitempty"`
}

// Load replaces the ledger and recomputes totals.
func (v *CashFlow) Load(txs []domain.Transaction) {
	v.Transactions = txs
	v.recompute()
}

func (v *CashFlow) Add(t domain.Transaction) {
	v.Transactions = prepend(v.Transactions, t)
	v.recompute()
}

func (v *CashFlow) Replace(t domain.Transaction) {
	v.Transactions = replaceFunc(v.Transactions, func(x domain.Transaction) bool { return x.ID == t.ID }, t)
	if v.EditingID == t.ID {
		v.EditingID = ""
	}
	v.recompute()
}

func (v *CashFlow) Remove(id string) {
	v.Transactions = removeFunc(v.Transactions, func(x domain.Transaction) bool { return x.ID == id })
	if v.EditingID == id {
		v.EditingID = ""
	}
	v.recompute()
}

func (v *CashFlow) Find(id string) (domain.Transaction, bool) {
	for _, t := range v.Transactions {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Transaction{}, false
}

func (v *CashFlow) recompute() {
	v.Totals = domain.ComputeTotals(v.Transactions)
}
