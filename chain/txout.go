package chain

import (
	"bytes"
	"encoding/hex"
	"github.com/kurumiimari/umbra/bio"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/pkg/errors"
	"io"
)

// TxOut is a stealth output. TargetKey is the one-time key P, PublicKey is
// the output public key R.
type TxOut struct {
	TargetKey    ucrypto.PublicKey    `json:"target_key"`
	PublicKey    ucrypto.PublicKey    `json:"public_key"`
	MaskedAmount ucrypto.MaskedAmount `json:"masked_amount"`
	EMemo        *MemoPayload         `json:"e_memo,omitempty"`
}

// OutputKeys derives the output public key R = r*D and the sender-side
// shared secret r*C for a payment to recipient.
func OutputKeys(r ucrypto.PrivateKey, recipient *PublicAddress) (ucrypto.PublicKey, ucrypto.PublicKey, error) {
	pub, err := ucrypto.SharedSecret(r, recipient.SpendPublicKey)
	if err != nil {
		return ucrypto.PublicKey{}, ucrypto.PublicKey{}, err
	}
	ss, err := ucrypto.SharedSecret(r, recipient.ViewPublicKey)
	if err != nil {
		return ucrypto.PublicKey{}, ucrypto.PublicKey{}, err
	}
	return pub, ss, nil
}

// NewConfirmationNumber commits to an output's shared secret. The sender
// hands it to the recipient, who recomputes it from their view key to
// confirm who paid them.
func NewConfirmationNumber(sharedSecret ucrypto.PublicKey) ucrypto.Hash {
	return ucrypto.DomainHash256("umbra_confirmation_number", sharedSecret[:])
}

// NewTxOut builds an output paying value to recipient using the output
// private key r. The memo, if any, is encrypted under the shared secret.
func NewTxOut(value uint64, recipient *PublicAddress, r ucrypto.PrivateKey, memo *MemoPayload) (*TxOut, error) {
	pub, ss, err := OutputKeys(r, recipient)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving output keys")
	}
	target, err := ucrypto.OnetimePublicKey(ss, recipient.SpendPublicKey)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving target key")
	}
	out := &TxOut{
		TargetKey:    target,
		PublicKey:    pub,
		MaskedAmount: ucrypto.NewMaskedAmount(value, ss),
	}
	if memo != nil {
		enc := MemoPayload(ucrypto.EncryptMemo(*memo, ss))
		out.EMemo = &enc
	}
	return out, nil
}

// DecryptMemo returns the cleartext memo payload, or nil when the output
// carries none.
func (o *TxOut) DecryptMemo(ss ucrypto.PublicKey) *MemoPayload {
	if o.EMemo == nil {
		return nil
	}
	dec := MemoPayload(ucrypto.DecryptMemo(*o.EMemo, ss))
	return &dec
}

func (o *TxOut) ID() string {
	return hex.EncodeToString(ucrypto.Blake256(o.Bytes()))
}

func (o *TxOut) Bytes() []byte {
	buf := new(bytes.Buffer)
	if _, err := o.WriteTo(buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func (o *TxOut) WriteTo(w io.Writer) (int64, error) {
	g := bio.NewGuardWriter(w)
	bio.WriteRawBytes(g, o.TargetKey[:])
	bio.WriteRawBytes(g, o.PublicKey[:])
	bio.WriteRawBytes(g, o.MaskedAmount.Commitment[:])
	bio.WriteUint64LE(g, o.MaskedAmount.MaskedValue)
	bio.WriteBool(g, o.EMemo != nil)
	if o.EMemo != nil {
		bio.WriteRawBytes(g, o.EMemo[:])
	}
	return g.N, errors.Wrap(g.Err, "error writing output")
}

func (o *TxOut) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	target, _ := bio.ReadFixed32(g)
	pub, _ := bio.ReadFixed32(g)
	commitment, _ := bio.ReadFixed32(g)
	masked, _ := bio.ReadUint64LE(g)
	hasMemo, _ := bio.ReadBool(g)
	var memo *MemoPayload
	if hasMemo {
		raw, _ := bio.ReadFixedBytes(g, MemoPayloadSize)
		if g.Err == nil {
			memo = new(MemoPayload)
			copy(memo[:], raw)
		}
	}
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading output")
	}
	o.TargetKey = target
	o.PublicKey = pub
	o.MaskedAmount = ucrypto.MaskedAmount{
		Commitment:  commitment,
		MaskedValue: masked,
	}
	o.EMemo = memo
	return g.N, nil
}

func TxOutFromBytes(b []byte) (*TxOut, error) {
	out := new(TxOut)
	if _, err := out.ReadFrom(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return out, nil
}
