package chain

import (
	"bytes"
	"github.com/kurumiimari/umbra/bio"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/pkg/errors"
	"io"
)

// TxIn spends a previous output identified by its target and public keys.
type TxIn struct {
	TargetKey ucrypto.PublicKey `json:"target_key"`
	PublicKey ucrypto.PublicKey `json:"public_key"`
	KeyImage  ucrypto.KeyImage  `json:"key_image"`
	Signature ucrypto.Signature `json:"signature"`
}

func (i *TxIn) IsSigned() bool {
	return !i.Signature.IsZero()
}

func (i *TxIn) WriteTo(w io.Writer) (int64, error) {
	g := bio.NewGuardWriter(w)
	bio.WriteRawBytes(g, i.TargetKey[:])
	bio.WriteRawBytes(g, i.PublicKey[:])
	bio.WriteRawBytes(g, i.KeyImage[:])
	bio.WriteRawBytes(g, i.Signature[:])
	return g.N, errors.Wrap(g.Err, "error writing input")
}

func (i *TxIn) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	target, _ := bio.ReadFixed32(g)
	pub, _ := bio.ReadFixed32(g)
	ki, _ := bio.ReadFixed32(g)
	sig, _ := bio.ReadFixedBytes(g, ucrypto.SignatureSize)
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading input")
	}
	i.TargetKey = target
	i.PublicKey = pub
	i.KeyImage = ki
	copy(i.Signature[:], sig)
	return g.N, nil
}

type Tx struct {
	Inputs         []*TxIn  `json:"inputs"`
	Outputs        []*TxOut `json:"outputs"`
	Fee            uint64   `json:"fee"`
	TombstoneBlock uint64   `json:"tombstone_block"`
}

// PrefixHash commits to everything but key images and signatures. It is
// the signing message and the transaction's identifier.
func (tx *Tx) PrefixHash() ucrypto.Hash {
	buf := new(bytes.Buffer)
	g := bio.NewGuardWriter(buf)
	bio.WriteVarint(g, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		bio.WriteRawBytes(g, in.TargetKey[:])
		bio.WriteRawBytes(g, in.PublicKey[:])
	}
	bio.WriteVarint(g, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		out.WriteTo(g)
	}
	bio.WriteUint64LE(g, tx.Fee)
	bio.WriteUint64LE(g, tx.TombstoneBlock)
	if g.Err != nil {
		panic(g.Err)
	}
	return ucrypto.DomainHash256("umbra_tx_prefix", buf.Bytes())
}

func (tx *Tx) ID() string {
	return tx.PrefixHash().String()
}

func (tx *Tx) IsSigned() bool {
	for _, in := range tx.Inputs {
		if !in.IsSigned() {
			return false
		}
	}
	return len(tx.Inputs) > 0
}

// VerifySignatures checks every input signature against the prefix hash.
func (tx *Tx) VerifySignatures() bool {
	msg := tx.PrefixHash()
	for _, in := range tx.Inputs {
		if !ucrypto.Verify(msg, in.TargetKey, in.KeyImage, in.Signature) {
			return false
		}
	}
	return true
}

func (tx *Tx) KeyImages() []ucrypto.KeyImage {
	out := make([]ucrypto.KeyImage, len(tx.Inputs))
	for i, in := range tx.Inputs {
		out[i] = in.KeyImage
	}
	return out
}

func (tx *Tx) WriteTo(w io.Writer) (int64, error) {
	g := bio.NewGuardWriter(w)
	bio.WriteVarint(g, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		in.WriteTo(g)
	}
	bio.WriteVarint(g, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		out.WriteTo(g)
	}
	bio.WriteUint64LE(g, tx.Fee)
	bio.WriteUint64LE(g, tx.TombstoneBlock)
	return g.N, errors.Wrap(g.Err, "error writing transaction")
}

func (tx *Tx) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	inCount, _ := bio.ReadVarint(g)
	var inputs []*TxIn
	for i := 0; i < int(inCount) && g.Err == nil; i++ {
		in := new(TxIn)
		in.ReadFrom(g)
		inputs = append(inputs, in)
	}
	outCount, _ := bio.ReadVarint(g)
	var outputs []*TxOut
	for i := 0; i < int(outCount) && g.Err == nil; i++ {
		out := new(TxOut)
		out.ReadFrom(g)
		outputs = append(outputs, out)
	}
	fee, _ := bio.ReadUint64LE(g)
	tombstone, _ := bio.ReadUint64LE(g)
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading transaction")
	}
	tx.Inputs = inputs
	tx.Outputs = outputs
	tx.Fee = fee
	tx.TombstoneBlock = tombstone
	return g.N, nil
}

func (tx *Tx) Bytes() []byte {
	buf := new(bytes.Buffer)
	if _, err := tx.WriteTo(buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TxFromBytes(b []byte) (*Tx, error) {
	tx := new(Tx)
	if _, err := tx.ReadFrom(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return tx, nil
}

// RejectError is returned by a submitter when the network refuses a
// transaction, as opposed to failing to deliver it.
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string {
	return "transaction rejected: " + e.Reason
}
