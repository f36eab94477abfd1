package chain

import (
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestTxOutOwnership(t *testing.T) {
	key := NewRandomAccountKey()
	addr := key.Subaddress(4)
	memo := newPayload(MemoTypeDestination)
	memo[10] = 0xaa

	out, err := NewTxOut(12345, addr, ucrypto.NewPrivateKey(), memo)
	require.NoError(t, err)

	ss, err := key.SharedSecret(out.PublicKey)
	require.NoError(t, err)
	value, err := out.MaskedAmount.Unmask(ss)
	require.NoError(t, err)
	require.EqualValues(t, 12345, value)

	spendPub, err := ucrypto.RecoverSpendPublicKey(ss, out.TargetKey)
	require.NoError(t, err)
	require.Equal(t, addr.SpendPublicKey, spendPub)
	require.Equal(t, out.TargetKey, key.OnetimePrivateKey(ss, 4).PublicKey())
	require.Equal(t, memo, out.DecryptMemo(ss))

	dec, err := TxOutFromBytes(out.Bytes())
	require.NoError(t, err)
	require.Equal(t, out, dec)
	require.Equal(t, out.ID(), dec.ID())
}

func TestTxSignAndCodec(t *testing.T) {
	key := NewRandomAccountKey()
	prev, err := NewTxOut(500, key.DefaultAddress(), ucrypto.NewPrivateKey(), nil)
	require.NoError(t, err)
	ss, err := key.SharedSecret(prev.PublicKey)
	require.NoError(t, err)

	pay, err := NewTxOut(400, NewRandomAccountKey().DefaultAddress(), ucrypto.NewPrivateKey(), nil)
	require.NoError(t, err)
	tx := &Tx{
		Inputs: []*TxIn{{
			TargetKey: prev.TargetKey,
			PublicKey: prev.PublicKey,
		}},
		Outputs:        []*TxOut{pay},
		Fee:            100,
		TombstoneBlock: 20,
	}
	require.False(t, tx.IsSigned())
	id := tx.ID()

	sig, ki := ucrypto.Sign(tx.PrefixHash(), key.OnetimePrivateKey(ss, 0))
	tx.Inputs[0].Signature = sig
	tx.Inputs[0].KeyImage = ki
	require.Equal(t, id, tx.ID())
	require.True(t, tx.IsSigned())
	require.True(t, tx.VerifySignatures())
	require.Equal(t, key.KeyImage(ss, 0), ki)

	dec, err := TxFromBytes(tx.Bytes())
	require.NoError(t, err)
	require.Equal(t, tx, dec)

	tx.Fee = 101
	require.False(t, tx.VerifySignatures())
}

func TestBlockCodec(t *testing.T) {
	out, err := NewTxOut(1, NewRandomAccountKey().DefaultAddress(), ucrypto.NewPrivateKey(), nil)
	require.NoError(t, err)
	genesis := NewBlock(0, nil, nil, nil)
	block := NewBlock(1, genesis.ID, []*TxOut{out}, []ucrypto.KeyImage{ucrypto.ComputeKeyImage(ucrypto.NewPrivateKey())})

	dec, err := NewBlockFromBytes(block.Bytes())
	require.NoError(t, err)
	require.Equal(t, block.ID, dec.ID)
	require.Equal(t, block.Outputs, dec.Outputs)
	require.Equal(t, block.KeyImages, dec.KeyImages)
	require.NotEqual(t, genesis.ID, block.ID)

	_, err = NewBlockFromBytes(block.Bytes()[:40])
	require.Error(t, err)
}
