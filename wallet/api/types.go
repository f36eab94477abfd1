package api

import (
	"encoding/hex"
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/kurumiimari/umbra/wallet"
	"github.com/kurumiimari/umbra/walletdb"
	"time"
)

type CreateAccountReq struct {
	Name            string              `json:"name"`
	Mnemonic        string              `json:"mnemonic"`
	ViewPrivateKey  *ucrypto.PrivateKey `json:"view_private_key"`
	SpendPrivateKey *ucrypto.PrivateKey `json:"spend_private_key"`
	ViewKey         string              `json:"view_key"`
	FirstBlockIndex uint64              `json:"first_block_index"`
}

type CreateAccountRes struct {
	Mnemonic *string     `json:"mnemonic,omitempty"`
	Account  *AccountRes `json:"account"`
}

type AccountRes struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	ViewOnly            bool      `json:"view_only"`
	MainAddress         string    `json:"main_address"`
	FirstBlockIndex     uint64    `json:"first_block_index"`
	NextBlockIndex      uint64    `json:"next_block_index"`
	ImportBlockIndex    *uint64   `json:"import_block_index"`
	NextSubaddressIndex uint64    `json:"next_subaddress_index"`
	CreatedAt           time.Time `json:"created_at"`
}

func NewAccountRes(acc *wallet.Account) (*AccountRes, error) {
	dbAcc, err := acc.DBAccount()
	if err != nil {
		return nil, err
	}
	return &AccountRes{
		ID:                  dbAcc.ID,
		Name:                dbAcc.Name,
		ViewOnly:            dbAcc.ViewOnly,
		MainAddress:         acc.MainAddress(),
		FirstBlockIndex:     dbAcc.FirstBlockIndex,
		NextBlockIndex:      dbAcc.NextBlockIndex,
		ImportBlockIndex:    dbAcc.ImportBlockIndex,
		NextSubaddressIndex: dbAcc.NextSubaddressIndex,
		CreatedAt:           dbAcc.CreatedAt,
	}, nil
}

type GetAccountsRes struct {
	Accounts []*AccountRes `json:"accounts"`
}

type ViewKeyRes struct {
	AccountID string `json:"account_id"`
	ViewKey   string `json:"view_key"`
}

// EncodeViewKey and DecodeViewKey carry view-only key material as hex of
// its serialized form.
func EncodeViewKey(view *chain.ViewAccountKey) string {
	return hex.EncodeToString(view.Bytes())
}

func DecodeViewKey(in string) (*chain.ViewAccountKey, error) {
	b, err := hex.DecodeString(in)
	if err != nil {
		return nil, err
	}
	view, _, err := chain.DecodeAccountKey(b)
	return view, err
}

type AssignSubaddressReq struct {
	Comment string `json:"comment"`
	Count   int    `json:"count"`
}

type SubaddressRes struct {
	Index   uint64 `json:"index"`
	Address string `json:"address"`
	Comment string `json:"comment"`
}

func NewSubaddressRes(sub *walletdb.Subaddress) *SubaddressRes {
	return &SubaddressRes{
		Index:   sub.SubaddressIndex,
		Address: sub.PublicAddressB58,
		Comment: sub.Comment,
	}
}

func NewSubaddressesRes(subs []*walletdb.Subaddress) []*SubaddressRes {
	out := make([]*SubaddressRes, len(subs))
	for i, sub := range subs {
		out[i] = NewSubaddressRes(sub)
	}
	return out
}

type MemoRes struct {
	Type             string  `json:"type"`
	SenderHash       string  `json:"sender_hash,omitempty"`
	PaymentRequestID *uint64 `json:"payment_request_id,omitempty"`
	PaymentIntentID  *uint64 `json:"payment_intent_id,omitempty"`
	RecipientHash    string  `json:"recipient_hash,omitempty"`
	NumRecipients    uint8   `json:"num_recipients,omitempty"`
	Fee              uint64  `json:"fee,omitempty"`
	TotalOutlay      uint64  `json:"total_outlay,omitempty"`
}

func NewMemoRes(memo *walletdb.TxoMemo) *MemoRes {
	if memo == nil {
		return nil
	}
	switch {
	case memo.Sender != nil:
		m := memo.Sender
		res := &MemoRes{
			Type:       m.Type.String(),
			SenderHash: hex.EncodeToString(m.SenderHash[:]),
		}
		res.PaymentRequestID, res.PaymentIntentID = paymentIDs(m.Type, m.PaymentRequestID, m.PaymentIntentID)
		return res
	case memo.Destination != nil:
		m := memo.Destination
		res := &MemoRes{
			Type:          m.Type.String(),
			RecipientHash: hex.EncodeToString(m.RecipientHash[:]),
			NumRecipients: m.NumRecipients,
			Fee:           m.Fee,
			TotalOutlay:   m.TotalOutlay,
		}
		res.PaymentRequestID, res.PaymentIntentID = paymentIDs(m.Type, m.PaymentRequestID, m.PaymentIntentID)
		return res
	default:
		return nil
	}
}

func paymentIDs(t chain.MemoType, requestID, intentID uint64) (*uint64, *uint64) {
	var req, intent *uint64
	if t.HasPaymentRequestID() {
		req = &requestID
	}
	if t.HasPaymentIntentID() {
		intent = &intentID
	}
	return req, intent
}

type TxoRes struct {
	ID                 string             `json:"id"`
	Value              uint64             `json:"value"`
	Status             walletdb.TxoStatus `json:"status"`
	TargetKey          ucrypto.PublicKey  `json:"target_key"`
	PublicKey          ucrypto.PublicKey  `json:"public_key"`
	SubaddressIndex    *uint64            `json:"subaddress_index"`
	KeyImage           *ucrypto.KeyImage  `json:"key_image"`
	ReceivedBlockIndex *uint64            `json:"received_block_index"`
	SpentBlockIndex    *uint64            `json:"spent_block_index"`
	PendingTombstone   *uint64            `json:"pending_tombstone"`
	Memo               *MemoRes           `json:"memo,omitempty"`
}

func NewTxoRes(txo *walletdb.Txo, accountID string, memo *walletdb.TxoMemo) *TxoRes {
	return &TxoRes{
		ID:                 txo.ID,
		Value:              txo.Value,
		Status:             walletdb.DeriveTxoStatus(txo, accountID),
		TargetKey:          txo.TargetKey,
		PublicKey:          txo.PublicKey,
		SubaddressIndex:    txo.SubaddressIndex,
		KeyImage:           txo.KeyImage,
		ReceivedBlockIndex: txo.ReceivedBlockIndex,
		SpentBlockIndex:    txo.SpentBlockIndex,
		PendingTombstone:   txo.PendingTombstone,
		Memo:               NewMemoRes(memo),
	}
}

type ValidateSenderMemoReq struct {
	Sender string `json:"sender"`
}

type ValidateSenderMemoRes struct {
	Valid bool `json:"valid"`
}

type ReceiptStatusReq struct {
	Receipt *wallet.ReceiverReceipt `json:"receipt"`
}

type ReceiptStatusRes struct {
	Status wallet.ReceiptStatus `json:"status"`
	Txo    *TxoRes              `json:"txo,omitempty"`
}

type TransactionLogOutputRes struct {
	TxoID              string       `json:"txo_id"`
	Recipient          string       `json:"recipient"`
	IsChange           bool         `json:"is_change"`
	ConfirmationNumber ucrypto.Hash `json:"confirmation_number"`
}

type TransactionLogRes struct {
	ID                  string                        `json:"id"`
	AccountID           string                        `json:"account_id"`
	Status              walletdb.TransactionLogStatus `json:"status"`
	Value               uint64                        `json:"value"`
	Fee                 uint64                        `json:"fee"`
	AssignedSubaddress  string                        `json:"assigned_subaddress,omitempty"`
	SubmittedBlockIndex *uint64                       `json:"submitted_block_index"`
	TombstoneBlockIndex uint64                        `json:"tombstone_block_index"`
	FinalizedBlockIndex *uint64                       `json:"finalized_block_index"`
	Comment             string                        `json:"comment"`
	InputTxoIDs         []string                      `json:"input_txo_ids"`
	Outputs             []*TransactionLogOutputRes    `json:"outputs"`
	Tx                  *chain.Tx                     `json:"tx"`
	CreatedAt           time.Time                     `json:"created_at"`
}

func NewTransactionLogRes(log *walletdb.TransactionLog) *TransactionLogRes {
	outputs := make([]*TransactionLogOutputRes, len(log.Outputs))
	for i, out := range log.Outputs {
		outputs[i] = &TransactionLogOutputRes{
			TxoID:              out.TxoID,
			Recipient:          out.RecipientB58,
			IsChange:           out.IsChange,
			ConfirmationNumber: out.ConfirmationNumber,
		}
	}
	return &TransactionLogRes{
		ID:                  log.ID,
		AccountID:           log.AccountID,
		Status:              walletdb.DeriveTransactionLogStatus(log),
		Value:               log.Value,
		Fee:                 log.Fee,
		AssignedSubaddress:  log.AssignedSubaddressB58,
		SubmittedBlockIndex: log.SubmittedBlockIndex,
		TombstoneBlockIndex: log.TombstoneBlockIndex,
		FinalizedBlockIndex: log.FinalizedBlockIndex,
		Comment:             log.Comment,
		InputTxoIDs:         log.InputTxoIDs,
		Outputs:             outputs,
		Tx:                  log.Tx,
		CreatedAt:           log.CreatedAt,
	}
}

func NewTransactionLogsRes(logs []*walletdb.TransactionLog) []*TransactionLogRes {
	out := make([]*TransactionLogRes, len(logs))
	for i, log := range logs {
		out[i] = NewTransactionLogRes(log)
	}
	return out
}

type PaymentReq struct {
	Address string `json:"address"`
	Value   uint64 `json:"value"`
}

type SendReq struct {
	Payments         []*PaymentReq `json:"payments"`
	Fee              uint64        `json:"fee"`
	Tombstone        uint64        `json:"tombstone"`
	PaymentRequestID uint64        `json:"payment_request_id"`
	Comment          string        `json:"comment"`
	BuildOnly        bool          `json:"build_only"`
}

func (r *SendReq) SendOpts(network *chain.Network) (*wallet.SendOpts, error) {
	opts := &wallet.SendOpts{
		Fee:              r.Fee,
		Tombstone:        r.Tombstone,
		PaymentRequestID: r.PaymentRequestID,
		Comment:          r.Comment,
	}
	for _, p := range r.Payments {
		addr, err := chain.PublicAddressFromB58(network, p.Address)
		if err != nil {
			return nil, err
		}
		opts.Payments = append(opts.Payments, &wallet.Payment{
			Address: addr,
			Value:   p.Value,
		})
	}
	return opts, nil
}

type SignedTransactionReq struct {
	Tx *chain.Tx `json:"tx"`
}

type SyncedTxosRes struct {
	Count int `json:"count"`
}

type SubaddressRequestReq struct {
	Count int `json:"count"`
}

type ImportSubaddressesReq struct {
	Response *wallet.SubaddressesResponse `json:"response"`
	Comment  string                       `json:"comment"`
}

type CreateGiftCodeReq struct {
	AccountID string `json:"account_id"`
	Value     uint64 `json:"value"`
	Memo      string `json:"memo"`
}

type ClaimGiftCodeReq struct {
	AccountID string `json:"account_id"`
}

type GiftCodeRes struct {
	GiftCode           string    `json:"gift_code"`
	Value              uint64    `json:"value"`
	Memo               string    `json:"memo"`
	FundingAccountID   string    `json:"funding_account_id"`
	TransactionLogID   string    `json:"transaction_log_id"`
	EphemeralAccountID string    `json:"ephemeral_account_id"`
	CreatedAt          time.Time `json:"created_at"`
}

func NewGiftCodeRes(gc *walletdb.GiftCode) *GiftCodeRes {
	return &GiftCodeRes{
		GiftCode:           gc.GiftCodeB58,
		Value:              gc.Value,
		Memo:               gc.Memo,
		FundingAccountID:   gc.FundingAccountID,
		TransactionLogID:   gc.TransactionLogID,
		EphemeralAccountID: gc.EphemeralAccountID,
		CreatedAt:          gc.CreatedAt,
	}
}
