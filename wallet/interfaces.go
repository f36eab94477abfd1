package wallet

import (
	"github.com/kurumiimari/umbra/chain"
)

// BlockSource is the trusted, ordered block feed.
type BlockSource interface {
	NetworkHeight() (uint64, error)
	GetBlocks(start uint64, count int) ([]*chain.Block, error)
}

// TxSubmitter delivers signed transactions to the network. A refusal is
// reported as *chain.RejectError; any other error means delivery failed
// and the outcome is unknown.
type TxSubmitter interface {
	SubmitTx(tx *chain.Tx) error
}
