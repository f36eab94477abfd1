package wallet

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ledgerdb"
	"github.com/kurumiimari/umbra/log"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/kurumiimari/umbra/walletdb"
	"github.com/pkg/errors"
	"sync"
)

var accLogger = log.ModuleLogger("account")

// SendOpts describes an outgoing transaction. A zero Fee selects the
// network minimum; a zero Tombstone selects the default horizon.
type SendOpts struct {
	Payments         []*Payment
	Fee              uint64
	Tombstone        uint64
	PaymentRequestID uint64
	Comment          string
}

type SyncStatus struct {
	NetworkBlockHeight uint64 `json:"network_block_height"`
	LocalBlockHeight   uint64 `json:"local_block_height"`
	AccountBlockHeight uint64 `json:"account_block_height"`
	IsSynced           bool   `json:"is_synced"`
}

type Account struct {
	network   *chain.Network
	engine    *walletdb.Engine
	ledger    *ledgerdb.DB
	ls        *LedgerSync
	submitter TxSubmitter
	id        string
	name      string
	ephemeral bool
	view      *chain.ViewAccountKey
	key       *chain.AccountKey
	bloom     *KeyImageBloom
	mtx       sync.Mutex
	lgr       log.Logger
}

func NewAccount(
	network *chain.Network,
	engine *walletdb.Engine,
	ledger *ledgerdb.DB,
	ls *LedgerSync,
	submitter TxSubmitter,
	dbAcc *walletdb.Account,
) (*Account, error) {
	view, key, err := chain.DecodeAccountKey(dbAcc.AccountKey)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding account key")
	}
	bloom, err := NewKeyImageBloomFromBytes(dbAcc.KeyImageBloom)
	if err != nil {
		return nil, err
	}
	return &Account{
		network:   network,
		engine:    engine,
		ledger:    ledger,
		ls:        ls,
		submitter: submitter,
		id:        dbAcc.ID,
		name:      dbAcc.Name,
		ephemeral: dbAcc.Ephemeral,
		view:      view,
		key:       key,
		bloom:     bloom,
		lgr:       accLogger.Child("id", dbAcc.ID),
	}, nil
}

func (a *Account) ID() string {
	return a.id
}

func (a *Account) Name() string {
	return a.name
}

func (a *Account) ViewOnly() bool {
	return a.key == nil
}

func (a *Account) Ephemeral() bool {
	return a.ephemeral
}

func (a *Account) ViewKey() *chain.ViewAccountKey {
	return a.view
}

func (a *Account) MainAddress() string {
	return a.view.DefaultAddress().B58(a.network)
}

func (a *Account) DBAccount() (*walletdb.Account, error) {
	var acc *walletdb.Account
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		var err error
		acc, err = walletdb.GetAccount(tx, a.id)
		return err
	})
	return acc, err
}

// AssignSubaddress allocates the next subaddress index and adopts any
// orphaned outputs that were sent to it.
func (a *Account) AssignSubaddress(comment string) (*walletdb.Subaddress, error) {
	subs, err := a.AssignSubaddressBatch(1, comment)
	if err != nil {
		return nil, err
	}
	return subs[0], nil
}

func (a *Account) AssignSubaddressBatch(count int, comment string) ([]*walletdb.Subaddress, error) {
	if count <= 0 {
		return nil, errors.New("count must be positive")
	}

	a.mtx.Lock()
	defer a.mtx.Unlock()

	var subs []*walletdb.Subaddress
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		dbAcc, err := walletdb.GetAccount(tx, a.id)
		if err != nil {
			return err
		}
		addrs := make([]*chain.PublicAddress, count)
		for i := range addrs {
			addrs[i] = a.view.Subaddress(dbAcc.NextSubaddressIndex + uint64(i))
		}
		subs, err = a.assignSubaddresses(tx, dbAcc, addrs, comment)
		return err
	})
	return subs, err
}

// assignSubaddresses records addrs as the next consecutive subaddress
// indices and resolves orphans against them.
func (a *Account) assignSubaddresses(
	tx walletdb.Transactor,
	dbAcc *walletdb.Account,
	addrs []*chain.PublicAddress,
	comment string,
) ([]*walletdb.Subaddress, error) {
	start := dbAcc.NextSubaddressIndex
	subs := make([]*walletdb.Subaddress, len(addrs))
	for i, addr := range addrs {
		sub := &walletdb.Subaddress{
			PublicAddressB58: addr.B58(a.network),
			AccountID:        a.id,
			SubaddressIndex:  start + uint64(i),
			Comment:          comment,
			SpendPublicKey:   addr.SpendPublicKey,
		}
		if err := walletdb.CreateSubaddress(tx, sub); err != nil {
			return nil, err
		}
		subs[i] = sub
	}
	if err := walletdb.UpdateNextSubaddressIndex(tx, a.id, start+uint64(len(addrs))); err != nil {
		return nil, err
	}
	dbAcc.NextSubaddressIndex = start + uint64(len(addrs))
	if err := a.resolveOrphans(tx, dbAcc.NextBlockIndex, subs); err != nil {
		return nil, errors.Wrap(err, "error resolving orphaned txos")
	}
	return subs, nil
}

func (a *Account) resolveOrphans(tx walletdb.Transactor, nextBlock uint64, subs []*walletdb.Subaddress) error {
	orphans, err := walletdb.ListOrphanedTxos(tx, a.id)
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		return nil
	}

	byKey := make(map[ucrypto.PublicKey]uint64)
	for _, sub := range subs {
		byKey[sub.SpendPublicKey] = sub.SubaddressIndex
	}

	var resolved int
	for _, txo := range orphans {
		if txo.SharedSecret == nil {
			continue
		}
		spendPub, err := ucrypto.RecoverSpendPublicKey(*txo.SharedSecret, txo.TargetKey)
		if err != nil {
			return err
		}
		idx, ok := byKey[spendPub]
		if !ok {
			continue
		}

		var ki *ucrypto.KeyImage
		if a.key != nil {
			k := a.key.KeyImage(*txo.SharedSecret, idx)
			ki = &k
			a.bloom.Add(k)
		}
		if err := walletdb.ResolveOrphanedTxo(tx, txo.ID, idx, ki); err != nil {
			return err
		}
		if err := storeMemo(tx, txo.ID, txo.MemoPayload, &idx); err != nil {
			return err
		}
		if ki != nil {
			if err := a.markSpentFromLedger(tx, txo.ID, *ki, nextBlock); err != nil {
				return err
			}
		}
		resolved++
	}

	if resolved > 0 {
		a.lgr.Info("resolved orphaned txos", "count", resolved)
		return walletdb.UpdateKeyImageBloom(tx, a.id, a.bloom.Bytes())
	}
	return nil
}

// markSpentFromLedger marks txoID spent when the ledger already published
// ki in a block the account has scanned.
func (a *Account) markSpentFromLedger(tx walletdb.Transactor, txoID string, ki ucrypto.KeyImage, nextBlock uint64) error {
	spentAt, found, err := a.ledger.KeyImageBlockIndex(ki)
	if err != nil {
		return err
	}
	if !found || spentAt >= nextBlock {
		return nil
	}
	if err := walletdb.SetTxoSpent(tx, txoID, spentAt); err != nil {
		return err
	}
	_, err = walletdb.FinalizeLogsForInput(tx, txoID, spentAt)
	return err
}

func (a *Account) Subaddresses(count, offset int) ([]*walletdb.Subaddress, error) {
	var subs []*walletdb.Subaddress
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		var err error
		subs, err = walletdb.ListSubaddresses(tx, a.id, count, offset)
		return err
	})
	return subs, err
}

func (a *Account) Txos(count, offset int) ([]*walletdb.Txo, error) {
	var txos []*walletdb.Txo
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		var err error
		txos, err = walletdb.ListTxos(tx, a.id, count, offset)
		return err
	})
	return txos, err
}

// Txo returns a TXO related to the account along with its trusted memo.
func (a *Account) Txo(id string) (*walletdb.Txo, *walletdb.TxoMemo, error) {
	var txo *walletdb.Txo
	var memo *walletdb.TxoMemo
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		var err error
		txo, err = walletdb.GetTxo(tx, id)
		if err != nil {
			return err
		}
		if walletdb.DeriveTxoStatus(txo, a.id) == walletdb.TxoStatusUnrelated {
			return walletdb.ErrNotFound
		}
		memo, err = walletdb.GetTxoMemo(tx, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return txo, memo, nil
}

func (a *Account) Balance() (*walletdb.Balance, error) {
	var bal *walletdb.Balance
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		var err error
		bal, err = walletdb.GetBalance(tx, a.id)
		return err
	})
	return bal, err
}

func (a *Account) SyncStatus() (*SyncStatus, error) {
	dbAcc, err := a.DBAccount()
	if err != nil {
		return nil, err
	}
	local, err := a.ledger.NumBlocks()
	if err != nil {
		return nil, err
	}
	network := a.ls.NetworkHeight()
	if network < local {
		network = local
	}
	return &SyncStatus{
		NetworkBlockHeight: network,
		LocalBlockHeight:   local,
		AccountBlockHeight: dbAcc.NextBlockIndex,
		IsSynced:           dbAcc.NextBlockIndex >= local && local >= network,
	}, nil
}

func (a *Account) TransactionLogs(count, offset int) ([]*walletdb.TransactionLog, error) {
	var logs []*walletdb.TransactionLog
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		var err error
		logs, err = walletdb.ListTransactionLogs(tx, a.id, count, offset)
		return err
	})
	return logs, err
}

func (a *Account) TransactionLog(id string) (*walletdb.TransactionLog, error) {
	var txLog *walletdb.TransactionLog
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		var err error
		txLog, err = a.getLog(tx, id)
		return err
	})
	return txLog, err
}

func (a *Account) getLog(tx walletdb.Transactor, id string) (*walletdb.TransactionLog, error) {
	txLog, err := walletdb.GetTransactionLog(tx, id)
	if err != nil {
		return nil, err
	}
	if txLog.AccountID != a.id {
		return nil, walletdb.ErrNotFound
	}
	return txLog, nil
}

// chainHeight is the best known network height.
func (a *Account) chainHeight() (uint64, error) {
	local, err := a.ledger.NumBlocks()
	if err != nil {
		return 0, err
	}
	if network := a.ls.NetworkHeight(); network > local {
		return network, nil
	}
	return local, nil
}

// BuildTransaction selects inputs, builds and signs a transaction and
// records it as a built transaction log. Its inputs are pending from this
// point until the log finalizes or fails.
func (a *Account) BuildTransaction(opts *SendOpts) (*walletdb.TransactionLog, error) {
	if a.key == nil {
		return nil, ErrViewOnlyAccount
	}
	txLog, _, err := a.build(opts, true)
	return txLog, err
}

// BuildUnsignedTransaction builds a transaction for an external signer.
// The log stays built until the signed copy comes back through
// SubmitSignedTransaction.
func (a *Account) BuildUnsignedTransaction(opts *SendOpts) (*UnsignedTransaction, error) {
	txLog, built, err := a.build(opts, false)
	if err != nil {
		return nil, err
	}
	unsigned := &UnsignedTransaction{
		AccountID:        a.id,
		TransactionLogID: txLog.ID,
		Tx:               built.Tx,
	}
	for _, in := range built.Inputs {
		unsigned.Inputs = append(unsigned.Inputs, &UnsignedInput{
			TxoID:           in.ID,
			TargetKey:       in.TargetKey,
			PublicKey:       in.PublicKey,
			SubaddressIndex: *in.SubaddressIndex,
			Value:           in.Value,
		})
	}
	return unsigned, nil
}

func (a *Account) build(opts *SendOpts, sign bool) (*walletdb.TransactionLog, *BuiltTx, error) {
	fee := opts.Fee
	if fee == 0 {
		fee = a.network.MinimumFee
	}
	if fee < a.network.MinimumFee {
		return nil, nil, ErrFeeTooLow
	}
	if len(opts.Payments) == 0 {
		return nil, nil, ErrNoPayments
	}

	a.mtx.Lock()
	defer a.mtx.Unlock()

	height, err := a.chainHeight()
	if err != nil {
		return nil, nil, err
	}

	var txLog *walletdb.TransactionLog
	var built *BuiltTx
	err = a.engine.Transaction(func(tx walletdb.Transactor) error {
		dbAcc, err := walletdb.GetAccount(tx, a.id)
		if err != nil {
			return err
		}
		if _, err := walletdb.FailExpiredTransactionLogs(tx, a.id, dbAcc.NextBlockIndex); err != nil {
			return err
		}

		base := height
		if dbAcc.NextBlockIndex > base {
			base = dbAcc.NextBlockIndex
		}
		tombstone, ok := a.network.Tombstone(base, opts.Tombstone)
		if !ok {
			return ErrInvalidTombstone
		}

		txb := NewTxBuilder(a.network, fee, tombstone)
		txb.SetPaymentRequestID(opts.PaymentRequestID)
		for _, p := range opts.Payments {
			if err := txb.AddPayment(p.Address, p.Value); err != nil {
				return err
			}
		}
		spendable, err := walletdb.ListSpendableTxos(tx, a.id)
		if err != nil {
			return err
		}
		if err := txb.Fund(spendable); err != nil {
			return err
		}
		built, err = txb.Build(a.view.ChangeAddress(), a.key)
		if err != nil {
			return err
		}
		if sign {
			built.Sign(a.key)
		}

		txLog, err = walletdb.CreateTransactionLog(tx, a.logOpts(opts, built))
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	a.lgr.Info(
		"built transaction",
		"log_id", txLog.ID,
		"inputs", len(built.Inputs),
		"outputs", len(built.Outputs),
		"tombstone", txLog.TombstoneBlockIndex,
		"signed", sign,
	)
	return txLog, built, nil
}

func (a *Account) logOpts(opts *SendOpts, built *BuiltTx) *walletdb.CreateTransactionLogOpts {
	logOpts := &walletdb.CreateTransactionLogOpts{
		AccountID: a.id,
		Fee:       built.Tx.Fee,
		Comment:   opts.Comment,
		Tx:        built.Tx,
	}
	for _, in := range built.Inputs {
		logOpts.InputTxoIDs = append(logOpts.InputTxoIDs, in.ID)
	}
	for _, out := range built.Outputs {
		if !out.IsChange {
			logOpts.Value += out.Value
		}
		logOpts.Outputs = append(logOpts.Outputs, &walletdb.LogOutputOpts{
			TxOut:        out.TxOut,
			Value:        out.Value,
			RecipientB58:       out.Recipient.B58(a.network),
			IsChange:           out.IsChange,
			ConfirmationNumber: out.ConfirmationNumber,
		})
	}
	return logOpts
}

// SubmitTransaction sends a built, signed log to the network. A rejection
// fails the log and frees its inputs, unless an earlier attempt may have
// been delivered: then the log is kept live until its tombstone so a copy
// already on the network can still finalize it. A transport failure leaves
// the log built so it can be submitted again.
func (a *Account) SubmitTransaction(logID string) (*walletdb.TransactionLog, error) {
	var txLog *walletdb.TransactionLog
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		var err error
		txLog, err = a.getLog(tx, logID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if walletdb.DeriveTransactionLogStatus(txLog) != walletdb.TransactionLogStatusBuilt {
		return nil, errors.Wrapf(ErrInvalidLogState, "log is %s", walletdb.DeriveTransactionLogStatus(txLog))
	}
	if !txLog.Tx.IsSigned() {
		return nil, errors.Wrap(ErrInvalidLogState, "transaction is unsigned")
	}

	height, err := a.chainHeight()
	if err != nil {
		return nil, err
	}

	submitErr := a.submitter.SubmitTx(txLog.Tx)
	var rejectErr *chain.RejectError
	switch {
	case submitErr == nil:
		err = a.engine.Transaction(func(tx walletdb.Transactor) error {
			return walletdb.MarkTransactionLogSubmitted(tx, logID, height)
		})
		if err != nil {
			return nil, err
		}
		a.lgr.Info("submitted transaction", "log_id", logID, "height", height)
	case errors.As(submitErr, &rejectErr) && txLog.SubmitAttempted:
		a.lgr.Warning(
			"transaction rejected after an unconfirmed attempt, awaiting tombstone",
			"log_id", logID,
			"reason", rejectErr.Reason,
			"tombstone", txLog.TombstoneBlockIndex,
		)
		err = a.engine.Transaction(func(tx walletdb.Transactor) error {
			return walletdb.MarkTransactionLogSubmitted(tx, logID, height)
		})
		if err != nil {
			return nil, err
		}
	case errors.As(submitErr, &rejectErr):
		a.lgr.Warning("transaction rejected", "log_id", logID, "reason", rejectErr.Reason)
		err = a.engine.Transaction(func(tx walletdb.Transactor) error {
			return walletdb.MarkTransactionLogFailed(tx, logID)
		})
		if err != nil {
			return nil, err
		}
		return nil, errors.Wrap(ErrSubmissionRejected, rejectErr.Reason)
	default:
		a.lgr.Error("error submitting transaction", "log_id", logID, "err", submitErr)
		err = a.engine.Transaction(func(tx walletdb.Transactor) error {
			return walletdb.MarkTransactionLogAttempted(tx, logID)
		})
		if err != nil {
			return nil, err
		}
		return nil, errors.Wrap(submitErr, "error submitting transaction")
	}

	return a.TransactionLog(logID)
}

func (a *Account) BuildAndSubmit(opts *SendOpts) (*walletdb.TransactionLog, error) {
	txLog, err := a.BuildTransaction(opts)
	if err != nil {
		return nil, err
	}
	return a.SubmitTransaction(txLog.ID)
}

// SubmitSignedTransaction accepts the signed copy of a transaction built
// by BuildUnsignedTransaction, records the key images it reveals, and
// submits it.
func (a *Account) SubmitSignedTransaction(signed *chain.Tx) (*walletdb.TransactionLog, error) {
	if !signed.IsSigned() || !signed.VerifySignatures() {
		return nil, errors.Wrap(ErrSignedTxMismatch, "invalid signatures")
	}

	logID := signed.ID()
	a.mtx.Lock()
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		txLog, err := a.getLog(tx, logID)
		if errors.Is(err, walletdb.ErrNotFound) {
			return errors.Wrap(ErrSignedTxMismatch, "no log for transaction")
		}
		if err != nil {
			return err
		}
		if walletdb.DeriveTransactionLogStatus(txLog) != walletdb.TransactionLogStatusBuilt {
			return errors.Wrapf(ErrInvalidLogState, "log is %s", walletdb.DeriveTransactionLogStatus(txLog))
		}
		if len(txLog.InputTxoIDs) != len(signed.Inputs) {
			return errors.Wrap(ErrSignedTxMismatch, "input count differs")
		}

		byTarget := make(map[ucrypto.PublicKey]*chain.TxIn)
		for _, in := range signed.Inputs {
			byTarget[in.TargetKey] = in
		}
		for _, id := range txLog.InputTxoIDs {
			txo, err := walletdb.GetTxo(tx, id)
			if err != nil {
				return err
			}
			in, ok := byTarget[txo.TargetKey]
			if !ok {
				return errors.Wrapf(ErrSignedTxMismatch, "txo %s not spent by transaction", id)
			}
			if err := walletdb.SetTxoKeyImage(tx, id, in.KeyImage); err != nil {
				return err
			}
			a.bloom.Add(in.KeyImage)
		}
		if err := walletdb.UpdateKeyImageBloom(tx, a.id, a.bloom.Bytes()); err != nil {
			return err
		}
		return walletdb.SetTransactionLogTx(tx, logID, signed)
	})
	a.mtx.Unlock()
	if err != nil {
		return nil, err
	}
	return a.SubmitTransaction(logID)
}

// CreateSyncRequest lists the owned TXOs whose key images only the spend
// key can compute.
func (a *Account) CreateSyncRequest() (*SyncRequest, error) {
	req := &SyncRequest{
		AccountID: a.id,
		Txos:      make([]*SyncTxo, 0),
	}
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		txos, err := walletdb.ListTxosMissingKeyImage(tx, a.id)
		if err != nil {
			return err
		}
		for _, txo := range txos {
			req.Txos = append(req.Txos, &SyncTxo{
				TxoID:           txo.ID,
				TargetKey:       txo.TargetKey,
				PublicKey:       txo.PublicKey,
				SubaddressIndex: *txo.SubaddressIndex,
			})
		}
		return nil
	})
	return req, err
}

// SyncTxos imports key images computed by a signer, then marks spent the
// TXOs whose key images the ledger has already published.
func (a *Account) SyncTxos(res *SyncResponse) (int, error) {
	if res.AccountID != a.id {
		return 0, errors.Wrap(ErrAccountNotFound, "sync response is for another account")
	}

	a.mtx.Lock()
	defer a.mtx.Unlock()

	var n int
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		dbAcc, err := walletdb.GetAccount(tx, a.id)
		if err != nil {
			return err
		}
		for _, ski := range res.KeyImages {
			txo, err := walletdb.GetTxo(tx, ski.TxoID)
			if err != nil {
				return errors.Wrapf(err, "error loading txo %s", ski.TxoID)
			}
			if txo.AccountID != a.id {
				return errors.Wrapf(walletdb.ErrNotFound, "txo %s", ski.TxoID)
			}
			if err := walletdb.SetTxoKeyImage(tx, txo.ID, ski.KeyImage); err != nil {
				return err
			}
			a.bloom.Add(ski.KeyImage)
			if err := a.markSpentFromLedger(tx, txo.ID, ski.KeyImage, dbAcc.NextBlockIndex); err != nil {
				return err
			}
			n++
		}
		return walletdb.UpdateKeyImageBloom(tx, a.id, a.bloom.Bytes())
	})
	if err != nil {
		return 0, err
	}
	a.lgr.Info("synced key images", "count", n)
	return n, nil
}

func (a *Account) CreateSubaddressesRequest(count int) (*SubaddressesRequest, error) {
	if count <= 0 {
		return nil, errors.New("count must be positive")
	}
	dbAcc, err := a.DBAccount()
	if err != nil {
		return nil, err
	}
	return &SubaddressesRequest{
		AccountID:           a.id,
		NextSubaddressIndex: dbAcc.NextSubaddressIndex,
		Count:               count,
	}, nil
}

// ImportSubaddresses assigns subaddresses generated by a signer. Each one
// must sit at the next index and derive from the account view key.
func (a *Account) ImportSubaddresses(res *SubaddressesResponse, comment string) ([]*walletdb.Subaddress, error) {
	if res.AccountID != a.id {
		return nil, errors.Wrap(ErrAccountNotFound, "subaddress response is for another account")
	}
	if len(res.Subaddresses) == 0 {
		return nil, nil
	}

	a.mtx.Lock()
	defer a.mtx.Unlock()

	var subs []*walletdb.Subaddress
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		dbAcc, err := walletdb.GetAccount(tx, a.id)
		if err != nil {
			return err
		}
		addrs := make([]*chain.PublicAddress, len(res.Subaddresses))
		for i, gen := range res.Subaddresses {
			if gen.Index != dbAcc.NextSubaddressIndex+uint64(i) {
				return errors.Wrapf(ErrSubaddressMismatch, "expected index %d, got %d", dbAcc.NextSubaddressIndex+uint64(i), gen.Index)
			}
			addr := &chain.PublicAddress{
				ViewPublicKey:  gen.ViewPublicKey,
				SpendPublicKey: gen.SpendPublicKey,
			}
			if !addr.Equal(a.view.Subaddress(gen.Index)) {
				return errors.Wrapf(ErrSubaddressMismatch, "index %d", gen.Index)
			}
			addrs[i] = addr
		}
		subs, err = a.assignSubaddresses(tx, dbAcc, addrs, comment)
		return err
	})
	return subs, err
}

// ValidateSenderMemo reports whether the TXO's authenticated sender memo
// was written by senderB58.
func (a *Account) ValidateSenderMemo(txoID string, senderB58 string) (bool, error) {
	if a.key == nil {
		return false, ErrViewOnlyAccount
	}
	sender, err := chain.PublicAddressFromB58(a.network, senderB58)
	if err != nil {
		return false, err
	}
	txo, _, err := a.Txo(txoID)
	if err != nil {
		return false, err
	}
	if txo.AccountID != a.id || txo.SubaddressIndex == nil {
		return false, nil
	}
	memo := DecodeSenderMemo(
		txo.MemoPayload,
		sender,
		a.key.ViewPrivateKey,
		a.key.SubaddressSpendPrivateKey(*txo.SubaddressIndex),
		txo.PublicKey,
	)
	return memo != nil, nil
}

// Resync rewinds the scan cursor to the first block. Rescanning is
// idempotent, so recorded TXOs and logs are kept.
func (a *Account) Resync() error {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	err := a.engine.Transaction(func(tx walletdb.Transactor) error {
		return walletdb.ResetNextBlockIndex(tx, a.id)
	})
	if err != nil {
		return err
	}
	a.lgr.Info("account reset for resync")
	return nil
}
