package wallet

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/kurumiimari/umbra/walletdb"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	SyncChunkSize = 100
)

// Sync scans ledger blocks the account has not seen yet. Each chunk is
// committed atomically together with the advanced cursor, so an
// interrupted sync resumes from the last committed chunk.
func (a *Account) Sync() error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	for {
		dbAcc, err := a.DBAccount()
		if err != nil {
			return err
		}
		local, err := a.ledger.NumBlocks()
		if err != nil {
			return err
		}
		next := dbAcc.NextBlockIndex
		if next >= local {
			return nil
		}

		count := SyncChunkSize
		if remaining := local - next; remaining < uint64(count) {
			count = int(remaining)
		}
		done, err := a.syncChunk(next, count)
		if err != nil {
			return err
		}
		if done == 0 {
			return nil
		}
		if next+done < local {
			a.lgr.Info("sync in progress", "height", next+done, "local_height", local)
		} else {
			a.lgr.Debug("sync complete", "height", next+done)
		}
	}
}

func (a *Account) syncChunk(start uint64, count int) (uint64, error) {
	blocks, err := a.ledger.Blocks(start, count)
	if err != nil {
		return 0, errors.Wrap(err, "error reading ledger")
	}
	for i, block := range blocks {
		if block.Index != start+uint64(i) {
			return 0, errors.Wrapf(ErrLedgerSafetyStop, "ledger returned block %d at %d", block.Index, start+uint64(i))
		}
	}
	if len(blocks) == 0 {
		return 0, nil
	}

	scans, err := scanBlocks(a.view, blocks)
	if err != nil {
		return 0, err
	}

	bloom := a.bloom.Copy()
	next := start + uint64(len(blocks))
	err = a.engine.Transaction(func(tx walletdb.Transactor) error {
		for _, scan := range scans {
			if err := a.processBlock(tx, bloom, scan); err != nil {
				return errors.Wrapf(err, "error processing block %d", scan.Block.Index)
			}
		}
		if err := walletdb.UpdateNextBlockIndex(tx, a.id, next); err != nil {
			return err
		}
		return walletdb.UpdateKeyImageBloom(tx, a.id, bloom.Bytes())
	})
	if err != nil {
		return 0, err
	}
	a.bloom = bloom
	return uint64(len(blocks)), nil
}

// processBlock applies one block: received outputs first, then spends,
// then tombstone expiry as of the following block.
func (a *Account) processBlock(tx walletdb.Transactor, bloom *KeyImageBloom, scan *BlockScan) error {
	idx := scan.Block.Index
	for _, out := range scan.Outputs {
		if err := a.processOutput(tx, bloom, out); err != nil {
			return err
		}
	}

	for _, ki := range scan.Block.KeyImages {
		if !bloom.Test(ki) {
			continue
		}
		if err := a.processSpend(tx, ki, idx); err != nil {
			return err
		}
	}

	failed, err := walletdb.FailExpiredTransactionLogs(tx, a.id, idx+1)
	if err != nil {
		return err
	}
	if failed > 0 {
		a.lgr.Info("transaction logs expired", "count", failed, "height", idx)
	}
	return nil
}

func (a *Account) processOutput(tx walletdb.Transactor, bloom *KeyImageBloom, out *ScannedOutput) error {
	var subIdx *uint64
	var ki *ucrypto.KeyImage
	sub, err := walletdb.GetSubaddressBySpendKey(tx, a.id, out.SpendPublicKey)
	switch {
	case err == nil:
		idx := sub.SubaddressIndex
		subIdx = &idx
		if a.key != nil {
			k := a.key.KeyImage(out.SharedSecret, idx)
			ki = &k
			bloom.Add(k)
		}
	case errors.Is(err, walletdb.ErrNotFound):
		a.lgr.Info("received orphaned output", "public_key", out.TxOut.PublicKey, "height", out.BlockIndex)
	default:
		return err
	}

	txo, err := walletdb.UpsertReceivedTxo(tx, &walletdb.ReceivedTxoOpts{
		AccountID:          a.id,
		TxOut:              out.TxOut,
		Value:              out.Value,
		SubaddressIndex:    subIdx,
		KeyImage:           ki,
		SharedSecret:       out.SharedSecret,
		ReceivedBlockIndex: out.BlockIndex,
		MemoPayload:        out.MemoPayload,
	})
	if err != nil {
		return err
	}
	if err := storeMemo(tx, txo.ID, out.MemoPayload, subIdx); err != nil {
		return err
	}
	if _, err := walletdb.FinalizeLogsForOutput(tx, txo.ID, out.BlockIndex); err != nil {
		return err
	}
	a.lgr.Debug("received output", "txo_id", txo.ID, "value", out.Value, "height", out.BlockIndex)
	return nil
}

// processSpend handles a key image that passed the bloom prefilter.
// False positives find no matching TXO.
func (a *Account) processSpend(tx walletdb.Transactor, ki ucrypto.KeyImage, blockIndex uint64) error {
	txos, err := walletdb.ListTxosByKeyImage(tx, ki)
	if err != nil {
		return err
	}
	for _, txo := range txos {
		if txo.AccountID != a.id {
			continue
		}
		if err := walletdb.SetTxoSpent(tx, txo.ID, blockIndex); err != nil {
			return err
		}
		if _, err := walletdb.FinalizeLogsForInput(tx, txo.ID, blockIndex); err != nil {
			return err
		}
		a.lgr.Debug("spent output", "txo_id", txo.ID, "height", blockIndex)
	}
	return nil
}

// storeMemo records the decoded memo of a received TXO. Destination memos
// are only kept when they arrive on the change subaddress.
func storeMemo(tx walletdb.Transactor, txoID string, payload *chain.MemoPayload, subIdx *uint64) error {
	switch memo := DecodeMemo(payload).(type) {
	case *chain.AuthenticatedSenderMemo:
		return walletdb.CreateSenderMemo(tx, txoID, memo)
	case *chain.DestinationMemo:
		if dest := trustedDestinationMemo(memo, subIdx); dest != nil {
			return walletdb.CreateDestinationMemo(tx, txoID, dest)
		}
	}
	return nil
}

// syncAccounts syncs every account concurrently. Accounts are independent
// of each other, and each one serializes its own sync.
func syncAccounts(accounts []*Account) error {
	var g errgroup.Group
	for _, acc := range accounts {
		acc := acc
		g.Go(func() error {
			if err := acc.Sync(); err != nil {
				return errors.Wrapf(err, "error syncing account %s", acc.id)
			}
			return nil
		})
	}
	return g.Wait()
}
