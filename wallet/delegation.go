package wallet

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ucrypto"
)

// UnsignedInput is what an offline signer needs to sign one input: it
// recomputes the shared secret from PublicKey with the view key.
type UnsignedInput struct {
	TxoID           string            `json:"txo_id"`
	TargetKey       ucrypto.PublicKey `json:"target_key"`
	PublicKey       ucrypto.PublicKey `json:"public_key"`
	SubaddressIndex uint64            `json:"subaddress_index"`
	Value           uint64            `json:"value"`
}

// UnsignedTransaction is a built transaction awaiting an external signer.
type UnsignedTransaction struct {
	AccountID        string           `json:"account_id"`
	TransactionLogID string           `json:"transaction_log_id"`
	Tx               *chain.Tx        `json:"tx"`
	Inputs           []*UnsignedInput `json:"inputs"`
}

type SyncTxo struct {
	TxoID           string            `json:"txo_id"`
	TargetKey       ucrypto.PublicKey `json:"target_key"`
	PublicKey       ucrypto.PublicKey `json:"public_key"`
	SubaddressIndex uint64            `json:"subaddress_index"`
}

// SyncRequest lists the owned TXOs of a view-only account that still lack
// key images.
type SyncRequest struct {
	AccountID string     `json:"account_id"`
	Txos      []*SyncTxo `json:"txos"`
}

type SyncedKeyImage struct {
	TxoID    string           `json:"txo_id"`
	KeyImage ucrypto.KeyImage `json:"key_image"`
}

type SyncResponse struct {
	AccountID string            `json:"account_id"`
	KeyImages []*SyncedKeyImage `json:"key_images"`
}

// SubaddressesRequest asks a signer for count subaddresses starting at
// NextSubaddressIndex.
type SubaddressesRequest struct {
	AccountID           string `json:"account_id"`
	NextSubaddressIndex uint64 `json:"next_subaddress_index"`
	Count               int    `json:"count"`
}

type GeneratedSubaddress struct {
	Index          uint64            `json:"index"`
	ViewPublicKey  ucrypto.PublicKey `json:"view_public_key"`
	SpendPublicKey ucrypto.PublicKey `json:"spend_public_key"`
}

type SubaddressesResponse struct {
	AccountID           string                 `json:"account_id"`
	Subaddresses        []*GeneratedSubaddress `json:"subaddresses"`
	NextSubaddressIndex uint64                 `json:"next_subaddress_index"`
}
