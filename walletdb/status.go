package walletdb

type TxoStatus string

const (
	TxoStatusUnspent  TxoStatus = "unspent"
	TxoStatusPending  TxoStatus = "pending"
	TxoStatusSpent    TxoStatus = "spent"
	TxoStatusOrphaned TxoStatus = "orphaned"
	TxoStatusSecreted TxoStatus = "secreted"
	// TxoStatusUnrelated means the TXO has no relation to the account.
	TxoStatusUnrelated TxoStatus = ""
)

// DeriveTxoStatus computes a TXO's status relative to one account. It is
// the only place status is decided; nothing stores it.
func DeriveTxoStatus(txo *Txo, accountID string) TxoStatus {
	if txo.AccountID == accountID && accountID != "" {
		switch {
		case txo.SpentBlockIndex != nil:
			return TxoStatusSpent
		case txo.PendingTombstone != nil:
			return TxoStatusPending
		case txo.SubaddressIndex == nil:
			return TxoStatusOrphaned
		default:
			return TxoStatusUnspent
		}
	}
	if txo.MintedByAccountID == accountID && accountID != "" {
		return TxoStatusSecreted
	}
	return TxoStatusUnrelated
}

type TransactionLogStatus string

const (
	TransactionLogStatusBuilt     TransactionLogStatus = "built"
	TransactionLogStatusSubmitted TransactionLogStatus = "submitted"
	TransactionLogStatusFinalized TransactionLogStatus = "finalized"
	TransactionLogStatusFailed    TransactionLogStatus = "failed"
)

func DeriveTransactionLogStatus(log *TransactionLog) TransactionLogStatus {
	switch {
	case log.Failed:
		return TransactionLogStatusFailed
	case log.FinalizedBlockIndex != nil:
		return TransactionLogStatusFinalized
	case log.SubmittedBlockIndex != nil:
		return TransactionLogStatusSubmitted
	default:
		return TransactionLogStatusBuilt
	}
}
