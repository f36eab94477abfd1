package wallet

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/kurumiimari/umbra/walletdb"
	"github.com/pkg/errors"
)

type ReceiptStatus string

const (
	ReceiptStatusPending    ReceiptStatus = "pending"
	ReceiptStatusReceived   ReceiptStatus = "received"
	ReceiptStatusTombstoned ReceiptStatus = "tombstoned"
)

// ReceiverReceipt lets a recipient follow a payment made to them before
// it lands. It names the output and proves the sender built it.
type ReceiverReceipt struct {
	PublicKey           ucrypto.PublicKey    `json:"public_key"`
	ConfirmationNumber  ucrypto.Hash         `json:"confirmation_number"`
	TombstoneBlockIndex uint64               `json:"tombstone_block_index"`
	Amount              ucrypto.MaskedAmount `json:"amount"`
}

// CreateReceiverReceipts returns one receipt per payment output of a log.
// Change outputs get none.
func (a *Account) CreateReceiverReceipts(logID string) ([]*ReceiverReceipt, error) {
	txLog, err := a.TransactionLog(logID)
	if err != nil {
		return nil, err
	}

	txOuts := make(map[string]*chain.TxOut)
	for _, out := range txLog.Tx.Outputs {
		txOuts[out.ID()] = out
	}
	var receipts []*ReceiverReceipt
	for _, out := range txLog.Outputs {
		if out.IsChange {
			continue
		}
		txOut := txOuts[out.TxoID]
		if txOut == nil {
			return nil, errors.Errorf("output %s missing from transaction", out.TxoID)
		}
		if len(out.ConfirmationNumber) == 0 {
			return nil, errors.Errorf("output %s has no confirmation number", out.TxoID)
		}
		receipts = append(receipts, &ReceiverReceipt{
			PublicKey:           txOut.PublicKey,
			ConfirmationNumber:  out.ConfirmationNumber,
			TombstoneBlockIndex: txLog.TombstoneBlockIndex,
			Amount:              txOut.MaskedAmount,
		})
	}
	return receipts, nil
}

// CheckReceiptStatus reports whether the payment a receipt describes has
// reached this account. A receipt whose confirmation number or amount
// does not open under the account's view key fails with ErrInvalidReceipt.
func (a *Account) CheckReceiptStatus(receipt *ReceiverReceipt) (ReceiptStatus, *walletdb.Txo, error) {
	ss, err := a.view.SharedSecret(receipt.PublicKey)
	if err != nil {
		return "", nil, errors.Wrap(ErrInvalidReceipt, err.Error())
	}
	if !chain.NewConfirmationNumber(ss).Equal(receipt.ConfirmationNumber) {
		return "", nil, errors.Wrap(ErrInvalidReceipt, "confirmation number does not match")
	}
	value, err := receipt.Amount.Unmask(ss)
	if err != nil {
		return "", nil, errors.Wrap(ErrInvalidReceipt, "amount does not open")
	}

	var txo *walletdb.Txo
	var dbAcc *walletdb.Account
	err = a.engine.Transaction(func(tx walletdb.Transactor) error {
		var err error
		dbAcc, err = walletdb.GetAccount(tx, a.id)
		if err != nil {
			return err
		}
		txo, err = walletdb.GetTxoByPublicKey(tx, receipt.PublicKey)
		if errors.Is(err, walletdb.ErrNotFound) {
			txo = nil
			return nil
		}
		return err
	})
	if err != nil {
		return "", nil, err
	}

	if txo != nil && txo.AccountID == a.id && txo.ReceivedBlockIndex != nil {
		if txo.Value != value {
			return "", txo, errors.Wrapf(ErrInvalidReceipt, "amount mismatch: expected %d, got %d", value, txo.Value)
		}
		return ReceiptStatusReceived, txo, nil
	}
	if dbAcc.NextBlockIndex >= receipt.TombstoneBlockIndex {
		return ReceiptStatusTombstoned, nil, nil
	}
	return ReceiptStatusPending, nil, nil
}
