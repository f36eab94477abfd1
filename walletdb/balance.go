package walletdb

import (
	"github.com/pkg/errors"
)

type Balance struct {
	Unspent       uint64 `json:"unspent"`
	Pending       uint64 `json:"pending"`
	Spent         uint64 `json:"spent"`
	Orphaned      uint64 `json:"orphaned"`
	Secreted      uint64 `json:"secreted"`
	TotalReceived uint64 `json:"total_received"`
	UnspentCount  int    `json:"unspent_count"`
}

// Add accumulates other into b.
func (b *Balance) Add(other *Balance) {
	b.Unspent += other.Unspent
	b.Pending += other.Pending
	b.Spent += other.Spent
	b.Orphaned += other.Orphaned
	b.Secreted += other.Secreted
	b.TotalReceived += other.TotalReceived
	b.UnspentCount += other.UnspentCount
}

// GetBalance sums TXO values by derived status. Call it inside a single
// engine transaction so every sum reads the same snapshot.
func GetBalance(q Querier, accountID string) (*Balance, error) {
	rows, err := q.Query(txoQuery("WHERE txos.account_id = ? OR minted_by_account_id = ?"), accountID, accountID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	bal := new(Balance)
	for rows.Next() {
		txo, err := scanTxo(rows)
		if err != nil {
			return nil, err
		}
		switch DeriveTxoStatus(txo, accountID) {
		case TxoStatusUnspent:
			bal.Unspent += txo.Value
			bal.UnspentCount++
		case TxoStatusPending:
			bal.Pending += txo.Value
		case TxoStatusSpent:
			bal.Spent += txo.Value
		case TxoStatusOrphaned:
			bal.Orphaned += txo.Value
		case TxoStatusSecreted:
			bal.Secreted += txo.Value
			continue
		}
		bal.TotalReceived += txo.Value
	}
	return bal, errors.WithStack(rows.Err())
}
