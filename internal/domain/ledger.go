package domain

import "time"

type TransactionType string

const (
	TransactionTypeMaintenanceDebit TransactionType = "MAINTENANCE_DEBIT"
	TransactionTypeClaimDebit       TransactionType = "CLAIM_DEBIT"
	TransactionTypeBindingDebit     TransactionType = "BINDING_DEBIT"
	TransactionTypeExpandDebit      TransactionType = "EXPAND_DEBIT"
	TransactionTypeShrinkRefund     TransactionType = "SHRINK_REFUND"
	TransactionTypeDebtSettlement   TransactionType = "DEBT_SETTLEMENT"
	TransactionTypeReversal         TransactionType = "REVERSAL"
)

// LedgerTransaction records a single treasury movement. Amounts are positive
// for credits and negative for debits.
type LedgerTransaction struct {
	ID          int32           `json:"id"`
	SectID      int32           `json:"sect_id"`
	Amount      int64           `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	CreatedOn   time.Time       `json:"created_on"`
}
