package wallet

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/log"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"runtime"
)

var scanLogger = log.ModuleLogger("scanner")

// ScannedOutput is an output whose amount opened under an account's view
// key. SpendPublicKey is the subaddress spend key D' = P - Hs(ss)*G the
// output was sent to; it names an allocated subaddress unless the output
// is orphaned.
type ScannedOutput struct {
	BlockIndex     uint64
	TxOut          *chain.TxOut
	SharedSecret   ucrypto.PublicKey
	Value          uint64
	SpendPublicKey ucrypto.PublicKey
	MemoPayload    *chain.MemoPayload
}

// BlockScan holds one block's view-key matches.
type BlockScan struct {
	Block   *chain.Block
	Outputs []*ScannedOutput
}

// scanOutput tests a single output against a view key. It reports false
// when the amount commitment does not open, which is how non-owned
// outputs present.
func scanOutput(view *chain.ViewAccountKey, blockIndex uint64, out *chain.TxOut) (*ScannedOutput, bool) {
	ss, err := view.SharedSecret(out.PublicKey)
	if err != nil {
		return nil, false
	}
	value, err := out.MaskedAmount.Unmask(ss)
	if err != nil {
		if !errors.Is(err, ucrypto.ErrAmountMismatch) {
			scanLogger.Warning("error unmasking amount", "err", err)
		}
		return nil, false
	}
	spendPub, err := ucrypto.RecoverSpendPublicKey(ss, out.TargetKey)
	if err != nil {
		return nil, false
	}
	return &ScannedOutput{
		BlockIndex:     blockIndex,
		TxOut:          out,
		SharedSecret:   ss,
		Value:          value,
		SpendPublicKey: spendPub,
		MemoPayload:    out.DecryptMemo(ss),
	}, true
}

// scanBlocks runs ownership trials for every output of every block in
// parallel. Results keep block order.
func scanBlocks(view *chain.ViewAccountKey, blocks []*chain.Block) ([]*BlockScan, error) {
	type job struct {
		block int
		out   *chain.TxOut
	}

	results := make([]*BlockScan, len(blocks))
	var jobs []job
	for i, block := range blocks {
		results[i] = &BlockScan{Block: block}
		for _, out := range block.Outputs {
			jobs = append(jobs, job{block: i, out: out})
		}
	}
	if len(jobs) == 0 {
		return results, nil
	}

	matches := make([]*ScannedOutput, len(jobs))
	workers := runtime.NumCPU()
	if workers > len(jobs) {
		workers = len(jobs)
	}
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := w; i < len(jobs); i += workers {
				j := jobs[i]
				if match, ok := scanOutput(view, blocks[j.block].Index, j.out); ok {
					matches[i] = match
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, match := range matches {
		if match == nil {
			continue
		}
		res := results[jobs[i].block]
		res.Outputs = append(res.Outputs, match)
	}
	return results, nil
}
