// Package chaintest provides an in-memory validator for wallet tests.
package chaintest

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/pkg/errors"
	"sync"
)

// MockNetwork is a single-validator chain. It serves blocks, accepts
// transactions into a mempool, and mines them on demand.
type MockNetwork struct {
	// Reject makes SubmitTx refuse every transaction.
	Reject bool
	// TransportErr makes SubmitTx fail as if the network were unreachable.
	TransportErr error

	blocks    []*chain.Block
	mempool   []*chain.Tx
	mints     []*chain.TxOut
	keyImages map[ucrypto.KeyImage]uint64
	outputs   map[ucrypto.PublicKey]bool
	submitted []*chain.Tx
	mtx       sync.Mutex
}

func NewMockNetwork() *MockNetwork {
	m := &MockNetwork{
		keyImages: make(map[ucrypto.KeyImage]uint64),
		outputs:   make(map[ucrypto.PublicKey]bool),
	}
	m.blocks = append(m.blocks, chain.NewBlock(0, nil, nil, nil))
	return m
}

func (m *MockNetwork) NetworkHeight() (uint64, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return uint64(len(m.blocks)), nil
}

func (m *MockNetwork) GetBlocks(start uint64, count int) ([]*chain.Block, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if start >= uint64(len(m.blocks)) {
		return nil, nil
	}
	end := start + uint64(count)
	if end > uint64(len(m.blocks)) {
		end = uint64(len(m.blocks))
	}
	out := make([]*chain.Block, end-start)
	copy(out, m.blocks[start:end])
	return out, nil
}

func (m *MockNetwork) SubmitTx(tx *chain.Tx) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.TransportErr != nil {
		return m.TransportErr
	}
	if m.Reject {
		return &chain.RejectError{Reason: "rejected by test"}
	}
	if !tx.IsSigned() || !tx.VerifySignatures() {
		return &chain.RejectError{Reason: "invalid signature"}
	}
	if tx.TombstoneBlock <= uint64(len(m.blocks)) {
		return &chain.RejectError{Reason: "tombstone block exceeded"}
	}
	seen := make(map[ucrypto.KeyImage]bool)
	for _, pending := range m.mempool {
		for _, ki := range pending.KeyImages() {
			seen[ki] = true
		}
	}
	for _, in := range tx.Inputs {
		if !m.outputs[in.TargetKey] {
			return &chain.RejectError{Reason: "unknown input"}
		}
		if _, ok := m.keyImages[in.KeyImage]; ok || seen[in.KeyImage] {
			return &chain.RejectError{Reason: "key image already spent"}
		}
		seen[in.KeyImage] = true
	}
	m.mempool = append(m.mempool, tx)
	m.submitted = append(m.submitted, tx)
	return nil
}

// MintTo queues an output paying value to addr in the next mined block.
func (m *MockNetwork) MintTo(addr *chain.PublicAddress, value uint64) *chain.TxOut {
	out, err := chain.NewTxOut(value, addr, ucrypto.NewPrivateKey(), nil)
	if err != nil {
		panic(err)
	}
	m.mtx.Lock()
	m.mints = append(m.mints, out)
	m.mtx.Unlock()
	return out
}

// MineBlock mines queued mints and every mempool transaction whose
// tombstone has not passed.
func (m *MockNetwork) MineBlock() *chain.Block {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.mine(true)
}

// MineEmptyBlock mines queued mints only and leaves the mempool in place.
func (m *MockNetwork) MineEmptyBlock() *chain.Block {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.mine(false)
}

// MineTo mines empty blocks until the chain has height blocks.
func (m *MockNetwork) MineTo(height uint64) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	for uint64(len(m.blocks)) < height {
		m.mine(false)
	}
}

func (m *MockNetwork) DropMempool() {
	m.mtx.Lock()
	m.mempool = nil
	m.mtx.Unlock()
}

func (m *MockNetwork) Mempool() []*chain.Tx {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return append([]*chain.Tx(nil), m.mempool...)
}

func (m *MockNetwork) Submitted() []*chain.Tx {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return append([]*chain.Tx(nil), m.submitted...)
}

// BlockOf returns the index of the block that published ki.
func (m *MockNetwork) BlockOf(ki ucrypto.KeyImage) (uint64, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	idx, ok := m.keyImages[ki]
	if !ok {
		return 0, errors.New("key image not found")
	}
	return idx, nil
}

func (m *MockNetwork) mine(includeMempool bool) *chain.Block {
	index := uint64(len(m.blocks))
	parent := m.blocks[len(m.blocks)-1].ID
	outputs := m.mints
	m.mints = nil
	var keyImages []ucrypto.KeyImage

	if includeMempool {
		for _, tx := range m.mempool {
			if tx.TombstoneBlock <= index {
				continue
			}
			outputs = append(outputs, tx.Outputs...)
			keyImages = append(keyImages, tx.KeyImages()...)
		}
		m.mempool = nil
	}

	for _, out := range outputs {
		m.outputs[out.TargetKey] = true
	}
	for _, ki := range keyImages {
		m.keyImages[ki] = index
	}
	block := chain.NewBlock(index, parent, outputs, keyImages)
	m.blocks = append(m.blocks, block)
	return block
}
