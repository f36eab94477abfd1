package chain

import (
	"bytes"
	"github.com/kurumiimari/umbra/bio"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
	"io"
)

// Block is the wallet's view of a finalized block: every output created in
// it and every key image it publishes.
type Block struct {
	Index     uint64             `json:"index"`
	ParentID  ucrypto.Hash       `json:"parent_id"`
	ID        ucrypto.Hash       `json:"id"`
	Outputs   []*TxOut           `json:"outputs"`
	KeyImages []ucrypto.KeyImage `json:"key_images"`
}

// NewBlock assembles a block and computes its ID.
func NewBlock(index uint64, parentID ucrypto.Hash, outputs []*TxOut, keyImages []ucrypto.KeyImage) *Block {
	b := &Block{
		Index:     index,
		ParentID:  parentID,
		Outputs:   outputs,
		KeyImages: keyImages,
	}
	b.ID = b.ComputeID()
	return b
}

func (b *Block) ComputeID() ucrypto.Hash {
	h := blake3.New()
	b.writeBody(h)
	return h.Sum(nil)
}

func (b *Block) writeBody(w io.Writer) (int64, error) {
	g := bio.NewGuardWriter(w)
	bio.WriteUint64LE(g, b.Index)
	parent := b.ParentID
	if len(parent) == 0 {
		parent = make([]byte, ucrypto.HashSize)
	}
	bio.WriteFixedBytes(g, parent, ucrypto.HashSize)
	bio.WriteVarint(g, uint64(len(b.Outputs)))
	for _, out := range b.Outputs {
		out.WriteTo(g)
	}
	bio.WriteVarint(g, uint64(len(b.KeyImages)))
	for _, ki := range b.KeyImages {
		bio.WriteRawBytes(g, ki[:])
	}
	return g.N, g.Err
}

func (b *Block) WriteTo(w io.Writer) (int64, error) {
	n, err := b.writeBody(w)
	return n, errors.Wrap(err, "error writing block")
}

func (b *Block) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	index, _ := bio.ReadUint64LE(g)
	parent, _ := bio.ReadFixedBytes(g, ucrypto.HashSize)
	outCount, _ := bio.ReadVarint(g)
	var outputs []*TxOut
	for i := 0; i < int(outCount) && g.Err == nil; i++ {
		out := new(TxOut)
		out.ReadFrom(g)
		outputs = append(outputs, out)
	}
	kiCount, _ := bio.ReadVarint(g)
	var keyImages []ucrypto.KeyImage
	for i := 0; i < int(kiCount) && g.Err == nil; i++ {
		ki, _ := bio.ReadFixed32(g)
		keyImages = append(keyImages, ki)
	}
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading block")
	}
	b.Index = index
	b.ParentID = parent
	b.Outputs = outputs
	b.KeyImages = keyImages
	b.ID = b.ComputeID()
	return g.N, nil
}

func (b *Block) Bytes() []byte {
	buf := new(bytes.Buffer)
	if _, err := b.WriteTo(buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func NewBlockFromBytes(b []byte) (*Block, error) {
	block := new(Block)
	if _, err := block.ReadFrom(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return block, nil
}
