package ledger

import "errors"

var (
	// ErrMatchConflict means a manual match targeted a transaction that is
	// already linked to a different payment period. The caller must request
	// an explicit re-match to unlink first.
	ErrMatchConflict = errors.New("transaction already linked to another payment")

	// ErrNotApplicable means the transaction type cannot move money on the
	// ledger (plain debits are kept for audit only).
	ErrNotApplicable = errors.New("transaction type not applicable to ledger")

	// ErrLedgerInconsistency means a payment's running sum no longer equals
	// the sum of its linked transactions. It is never corrected silently.
	ErrLedgerInconsistency = errors.New("payment sum diverges from transaction log")
)
