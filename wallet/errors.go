package wallet

import (
	"github.com/pkg/errors"
)

var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrFragmentedFunds     = errors.New("funds are too fragmented to cover the amount within the input limit")
	ErrSubmissionRejected  = errors.New("transaction rejected by the network")
	ErrViewOnlyAccount     = errors.New("account is view-only")
	ErrInvalidTombstone    = errors.New("invalid tombstone block")
	ErrFeeTooLow           = errors.New("fee below network minimum")
	ErrTooManyOutputs      = errors.New("too many outputs")
	ErrNoPayments          = errors.New("transaction has no payments")
	ErrAccountExists       = errors.New("account already exists")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidLogState     = errors.New("transaction log is not in a submittable state")
	ErrSignedTxMismatch    = errors.New("signed transaction does not match its log")
	ErrSubaddressMismatch  = errors.New("subaddress does not derive from the account view key")
	ErrMalformedGiftCode   = errors.New("malformed gift code")
	ErrGiftCodeNotFunded   = errors.New("gift code is not funded")
	ErrGiftCodeClaimed     = errors.New("gift code already claimed")
	ErrGiftCodeValueTooLow = errors.New("gift code value must exceed the minimum fee")
	ErrLedgerSafetyStop    = errors.New("ledger sync safety stop")
	ErrInvalidReceipt      = errors.New("receipt does not open under the account view key")
)
