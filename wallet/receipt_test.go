package wallet

import (
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/stretchr/testify/require"
	"testing"
)

func (s *AccountSuite) TestReceiverReceipts() {
	t := s.T()
	s.fundSender()

	txLog, err := s.sender.BuildAndSubmit(&SendOpts{
		Payments:  pay(s.recipient.view.DefaultAddress(), 10_000_000),
		Tombstone: 20,
	})
	require.NoError(t, err)

	receipts, err := s.sender.CreateReceiverReceipts(txLog.ID)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	receipt := receipts[0]
	require.EqualValues(t, 20, receipt.TombstoneBlockIndex)
	require.Len(t, receipt.ConfirmationNumber, ucrypto.HashSize)
	var found bool
	for _, out := range txLog.Tx.Outputs {
		if out.PublicKey == receipt.PublicKey {
			require.Equal(t, out.MaskedAmount, receipt.Amount)
			found = true
		}
	}
	require.True(t, found)

	status, txo, err := s.recipient.CheckReceiptStatus(receipt)
	require.NoError(t, err)
	require.Equal(t, ReceiptStatusPending, status)
	require.Nil(t, txo)

	t.Run("rejects receipts for other accounts", func(t *testing.T) {
		_, _, err := s.sender.CheckReceiptStatus(receipt)
		require.ErrorIs(t, err, ErrInvalidReceipt)
	})

	t.Run("rejects forged confirmation numbers", func(t *testing.T) {
		forged := *receipt
		forged.ConfirmationNumber = ucrypto.DomainHash256("forged")
		_, _, err := s.recipient.CheckReceiptStatus(&forged)
		require.ErrorIs(t, err, ErrInvalidReceipt)
	})

	mineAndSync(t, s.net, s.node)
	status, txo, err = s.recipient.CheckReceiptStatus(receipt)
	require.NoError(t, err)
	require.Equal(t, ReceiptStatusReceived, status)
	require.NotNil(t, txo)
	require.EqualValues(t, 10_000_000, txo.Value)
	require.Equal(t, s.recipient.ID(), txo.AccountID)
}

func (s *AccountSuite) TestReceiptTombstoned() {
	t := s.T()
	s.fundSender()

	txLog, err := s.sender.BuildAndSubmit(&SendOpts{
		Payments:  pay(s.recipient.view.DefaultAddress(), 10_000_000),
		Tombstone: 20,
	})
	require.NoError(t, err)
	receipts, err := s.sender.CreateReceiverReceipts(txLog.ID)
	require.NoError(t, err)
	require.Len(t, receipts, 1)

	s.net.MineTo(25)
	require.NoError(t, s.node.Sync())
	status, txo, err := s.recipient.CheckReceiptStatus(receipts[0])
	require.NoError(t, err)
	require.Equal(t, ReceiptStatusTombstoned, status)
	require.Nil(t, txo)
}

func (s *AccountSuite) TestReceiptsSkipChange() {
	t := s.T()
	s.fundSender()

	txLog, err := s.sender.BuildTransaction(&SendOpts{
		Payments: append(
			pay(s.recipient.view.DefaultAddress(), 1_000_000),
			pay(s.recipient.view.Subaddress(5), 2_000_000)...,
		),
	})
	require.NoError(t, err)
	require.Len(t, txLog.Outputs, 3)

	receipts, err := s.sender.CreateReceiverReceipts(txLog.ID)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	require.NotEqual(t, receipts[0].ConfirmationNumber, receipts[1].ConfirmationNumber)
}
