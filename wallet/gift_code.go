package wallet

import (
	"bytes"
	"github.com/btcsuite/btcutil/base58"
	"github.com/kurumiimari/umbra/bio"
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ledgerdb"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/kurumiimari/umbra/walletdb"
	"github.com/pkg/errors"
)

const (
	GiftCodeEntropySize = 32
	MaxGiftCodeMemoSize = 256
)

type GiftCodeStatus string

const (
	GiftCodeStatusFunding   GiftCodeStatus = "funding"
	GiftCodeStatusAvailable GiftCodeStatus = "available"
	GiftCodeStatusPending   GiftCodeStatus = "pending"
	GiftCodeStatusClaimed   GiftCodeStatus = "claimed"
)

// GiftCode is the decoded content of a gift code string. The entropy
// seeds the ephemeral account that holds the funds.
type GiftCode struct {
	Entropy      []byte
	TxoPublicKey ucrypto.PublicKey
	Value        uint64
	Memo         string
}

type GiftCodeInfo struct {
	GiftCodeB58  string            `json:"gift_code_b58"`
	Status       GiftCodeStatus    `json:"status"`
	Value        uint64            `json:"value"`
	Memo         string            `json:"memo"`
	TxoPublicKey ucrypto.PublicKey `json:"txo_public_key"`
	BlockIndex   *uint64           `json:"block_index"`
}

func EncodeGiftCode(network *chain.Network, gc *GiftCode) string {
	buf := new(bytes.Buffer)
	g := bio.NewGuardWriter(buf)
	bio.WriteRawBytes(g, gc.Entropy)
	bio.WriteRawBytes(g, gc.TxoPublicKey[:])
	bio.WriteUint64BE(g, gc.Value)
	bio.WriteVarBytes(g, []byte(gc.Memo))
	if g.Err != nil {
		panic(g.Err)
	}
	return base58.CheckEncode(buf.Bytes(), network.GiftCodeVersion)
}

func DecodeGiftCode(network *chain.Network, in string) (*GiftCode, error) {
	payload, version, err := base58.CheckDecode(in)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedGiftCode, err.Error())
	}
	if version != network.GiftCodeVersion {
		return nil, errors.Wrap(ErrMalformedGiftCode, "wrong network")
	}

	r := bytes.NewReader(payload)
	g := bio.NewGuardReader(r)
	entropy, _ := bio.ReadFixedBytes(g, GiftCodeEntropySize)
	pub, _ := bio.ReadFixed32(g)
	value, _ := bio.ReadUint64BE(g)
	memo, _ := bio.ReadVarBytes(g)
	if g.Err != nil {
		return nil, errors.Wrap(ErrMalformedGiftCode, g.Err.Error())
	}
	if r.Len() != 0 {
		return nil, errors.Wrap(ErrMalformedGiftCode, "trailing bytes")
	}
	if len(memo) > MaxGiftCodeMemoSize {
		return nil, errors.Wrap(ErrMalformedGiftCode, "memo too long")
	}
	txoPub, err := ucrypto.PublicKeyFromBytes(pub[:])
	if err != nil {
		return nil, errors.Wrap(ErrMalformedGiftCode, err.Error())
	}
	return &GiftCode{
		Entropy:      entropy,
		TxoPublicKey: txoPub,
		Value:        value,
		Memo:         string(memo),
	}, nil
}

func (gc *GiftCode) mnemonic() (string, error) {
	return chain.MnemonicFromEntropy(gc.Entropy)
}

func (gc *GiftCode) accountKey(network *chain.Network) (*chain.AccountKey, error) {
	mnemonic, err := gc.mnemonic()
	if err != nil {
		return nil, errors.Wrap(ErrMalformedGiftCode, err.Error())
	}
	return chain.AccountKeyFromMnemonic(network, mnemonic, 0)
}

// CreateGiftCode escrows value from the funding account in a fresh
// ephemeral account and returns the code that unlocks it. The code is
// stored before the funding transaction is submitted so it survives a
// failed submission.
func (n *Node) CreateGiftCode(fundingAccountID string, value uint64, memo string) (*walletdb.GiftCode, error) {
	if value <= n.network.MinimumFee {
		return nil, ErrGiftCodeValueTooLow
	}
	if len(memo) > MaxGiftCodeMemoSize {
		return nil, errors.New("memo too long")
	}
	funder, err := n.Account(fundingAccountID)
	if err != nil {
		return nil, err
	}

	gc := &GiftCode{
		Entropy: RandBytes(GiftCodeEntropySize),
		Value:   value,
		Memo:    memo,
	}
	key, err := gc.accountKey(n.network)
	if err != nil {
		return nil, err
	}

	txLog, err := funder.BuildTransaction(&SendOpts{
		Payments: []*Payment{{
			Address: key.DefaultAddress(),
			Value:   value,
		}},
		Comment: "gift code",
	})
	if err != nil {
		return nil, errors.Wrap(err, "error funding gift code")
	}

	var found bool
	for _, out := range txLog.Outputs {
		if out.IsChange {
			continue
		}
		for _, txOut := range txLog.Tx.Outputs {
			if txOut.ID() == out.TxoID {
				gc.TxoPublicKey = txOut.PublicKey
				found = true
			}
		}
	}
	if !found {
		return nil, errors.New("gift code output missing from funding transaction")
	}

	var dbGC *walletdb.GiftCode
	err = n.engine.Transaction(func(tx walletdb.Transactor) error {
		var err error
		dbGC, err = walletdb.CreateGiftCode(tx, &walletdb.GiftCode{
			GiftCodeB58:        EncodeGiftCode(n.network, gc),
			Value:              value,
			Memo:               memo,
			FundingAccountID:   fundingAccountID,
			TransactionLogID:   txLog.ID,
			TxoPublicKey:       gc.TxoPublicKey,
			EphemeralAccountID: key.ID(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if _, err := funder.SubmitTransaction(txLog.ID); err != nil {
		return dbGC, err
	}
	nodeLogger.Info("created gift code", "funding_account_id", fundingAccountID, "value", value)
	return dbGC, nil
}

// GiftCodeStatus derives the state of a gift code from the ledger and the
// ephemeral account that owns its funding output.
func (n *Node) GiftCodeStatus(b58 string) (*GiftCodeInfo, error) {
	gc, err := DecodeGiftCode(n.network, b58)
	if err != nil {
		return nil, err
	}
	info := &GiftCodeInfo{
		GiftCodeB58:  b58,
		Status:       GiftCodeStatusFunding,
		Value:        gc.Value,
		Memo:         gc.Memo,
		TxoPublicKey: gc.TxoPublicKey,
	}

	acc, err := n.giftCodeAccount(gc)
	if errors.Is(err, ErrGiftCodeNotFunded) {
		return info, nil
	}
	if err != nil {
		return nil, err
	}

	txo, err := acc.giftCodeTxo(gc)
	if err != nil {
		return nil, err
	}
	info.Value = txo.Value
	info.BlockIndex = txo.ReceivedBlockIndex
	switch walletdb.DeriveTxoStatus(txo, acc.id) {
	case walletdb.TxoStatusUnspent:
		info.Status = GiftCodeStatusAvailable
	case walletdb.TxoStatusPending:
		info.Status = GiftCodeStatusPending
	case walletdb.TxoStatusSpent:
		info.Status = GiftCodeStatusClaimed
	default:
		return nil, errors.Wrap(ErrMalformedGiftCode, "funding output is not spendable by the code")
	}
	return info, nil
}

// ClaimGiftCode sweeps the gift code's funds, less the minimum fee, to the
// main address of the claiming account.
func (n *Node) ClaimGiftCode(b58 string, accountID string) (*walletdb.TransactionLog, error) {
	claimant, err := n.Account(accountID)
	if err != nil {
		return nil, err
	}
	info, err := n.GiftCodeStatus(b58)
	if err != nil {
		return nil, err
	}
	switch info.Status {
	case GiftCodeStatusFunding:
		return nil, ErrGiftCodeNotFunded
	case GiftCodeStatusPending:
		return nil, errors.Wrap(ErrGiftCodeClaimed, "claim pending")
	case GiftCodeStatusClaimed:
		return nil, ErrGiftCodeClaimed
	}

	gc, err := DecodeGiftCode(n.network, b58)
	if err != nil {
		return nil, err
	}
	acc, err := n.giftCodeAccount(gc)
	if err != nil {
		return nil, err
	}
	bal, err := acc.Balance()
	if err != nil {
		return nil, err
	}
	if bal.UnspentCount != 1 {
		return nil, errors.Wrapf(ErrMalformedGiftCode, "gift code holds %d outputs", bal.UnspentCount)
	}
	if bal.Unspent <= n.network.MinimumFee {
		return nil, ErrGiftCodeValueTooLow
	}

	txLog, err := acc.BuildAndSubmit(&SendOpts{
		Payments: []*Payment{{
			Address: claimant.view.DefaultAddress(),
			Value:   bal.Unspent - n.network.MinimumFee,
		}},
		Fee:     n.network.MinimumFee,
		Comment: "gift code claim",
	})
	if err != nil {
		return nil, errors.Wrap(err, "error claiming gift code")
	}
	nodeLogger.Info("claimed gift code", "account_id", accountID, "value", bal.Unspent-n.network.MinimumFee)
	return txLog, nil
}

func (n *Node) GiftCodes(count, offset int) ([]*walletdb.GiftCode, error) {
	var codes []*walletdb.GiftCode
	err := n.engine.Transaction(func(tx walletdb.Transactor) error {
		var err error
		codes, err = walletdb.ListGiftCodes(tx, count, offset)
		return err
	})
	return codes, err
}

// RemoveGiftCode forgets a stored gift code and its ephemeral account.
// Funds still held by the code stay claimable by whoever has the code.
func (n *Node) RemoveGiftCode(b58 string) error {
	var ephemeralID string
	err := n.engine.Transaction(func(tx walletdb.Transactor) error {
		gc, err := walletdb.GetGiftCode(tx, b58)
		if err != nil {
			return err
		}
		ephemeralID = gc.EphemeralAccountID
		return walletdb.DeleteGiftCode(tx, b58)
	})
	if err != nil {
		return err
	}
	if _, err := n.Account(ephemeralID); err == nil {
		return n.RemoveAccount(ephemeralID)
	}
	return nil
}

// giftCodeAccount returns the synced ephemeral account of a funded gift
// code, importing it on first use from the funding block on. The funding
// output must open under the code's keys before anything is stored.
func (n *Node) giftCodeAccount(gc *GiftCode) (*Account, error) {
	loc, err := n.ledger.TxOutByPublicKey(gc.TxoPublicKey)
	if errors.Is(err, ledgerdb.ErrNotFound) {
		return nil, ErrGiftCodeNotFunded
	}
	if err != nil {
		return nil, err
	}

	key, err := gc.accountKey(n.network)
	if err != nil {
		return nil, err
	}
	scanned, ok := scanOutput(key.View(), loc.BlockIndex, loc.TxOut)
	if !ok || scanned.SpendPublicKey != key.View().SubaddressSpendPublicKey(chain.DefaultSubaddressIndex) {
		return nil, errors.Wrap(ErrMalformedGiftCode, "funding output does not belong to the code")
	}

	acc, err := n.Account(key.ID())
	if errors.Is(err, ErrAccountNotFound) {
		mnemonic, err := gc.mnemonic()
		if err != nil {
			return nil, errors.Wrap(ErrMalformedGiftCode, err.Error())
		}
		acc, err = n.importMnemonic(mnemonic, &AccountOpts{
			Name:            "gift code",
			FirstBlockIndex: loc.BlockIndex,
		}, nil, true)
		if errors.Is(err, ErrAccountExists) {
			acc, err = n.Account(key.ID())
		}
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if err := acc.Sync(); err != nil {
		return nil, err
	}
	return acc, nil
}

func (a *Account) giftCodeTxo(gc *GiftCode) (*walletdb.Txo, error) {
	var txo *walletdb.Txo
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		var err error
		txo, err = walletdb.GetTxoByPublicKey(tx, gc.TxoPublicKey)
		return err
	})
	if errors.Is(err, walletdb.ErrNotFound) || (err == nil && txo.AccountID != a.id) {
		return nil, errors.Wrap(ErrMalformedGiftCode, "funding output does not belong to the code")
	}
	return txo, err
}
