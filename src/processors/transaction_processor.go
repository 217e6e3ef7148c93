package processors

import "github.com/username/salesetl/src/models"

// TransactionProcessor enriches cleaned candidates with the data the loader
// needs: identity first, then the derived money fields.
type TransactionProcessor struct{}

func NewTransactionProcessor() *TransactionProcessor { return &TransactionProcessor{} }

// Process enriches tx in place. It does no I/O.
func (p *TransactionProcessor) Process(tx *models.Transaction) {
	// 1. Identity, from content only.
	tx.TransactionID = TransactionID(tx)

	// 2. Revenue, profit and margins.
	*tx = ApplyMetrics(*tx)
}
